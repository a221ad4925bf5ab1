package tss

import (
	"errors"
	"fmt"
)

// Error kinds raised by the cryptographic core. Every failure returned by this
// module wraps exactly one of them, so callers dispatch with errors.Is.
var (
	ErrInvalidModulus    = errors.New("invalid modulus")
	ErrInvalidPlaintext  = errors.New("invalid plaintext")
	ErrInvalidFactor     = errors.New("invalid factor")
	ErrInvalidRandomness = errors.New("invalid randomness")
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrInvalidNonceShare = errors.New("invalid nonce share")
	ErrRngFailure        = errors.New("random source failure")
)

// Blame represents an error caused by a specific party.
// The session that receives it must be aborted and its intermediate values discarded.
type Blame struct {
	PartyID PartyID
	Reason  string
	Err     error
}

func (b *Blame) Error() string {
	if b.Err != nil {
		return fmt.Sprintf("blame party %s: %s: %v", b.PartyID.ID(), b.Reason, b.Err)
	}
	return fmt.Sprintf("blame party %s: %s", b.PartyID.ID(), b.Reason)
}

func (b *Blame) Unwrap() error {
	return b.Err
}

// NewBlame creates a new Blame error.
func NewBlame(party PartyID, reason string, err error) *Blame {
	return &Blame{
		PartyID: party,
		Reason:  reason,
		Err:     err,
	}
}
