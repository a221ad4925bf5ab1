package tss

import (
	"errors"
	"fmt"
	"math/big"
)

// Protocol-level errors.
var (
	ErrInvalidMsg        = errors.New("invalid message received")
	ErrProtocolDone      = errors.New("protocol already finished")
	ErrSessionUsed       = errors.New("session already used")
	ErrInvalidParameters = errors.New("invalid parameters")
	ErrInvalidSignature  = errors.New("invalid signature")
)

// DefaultPaillierBits is the modulus size used when Parameters leaves it unset.
const DefaultPaillierBits = 2048

// PartyID represents a participant in the MPC protocol.
// It must be unique within a session.
type PartyID interface {
	// ID returns the unique string identifier for the party.
	ID() string

	// Moniker returns a human-readable name for the party (optional).
	Moniker() string

	// Key returns the public key associated with this party's identity.
	Key() []byte
}

// Message is the generic interface for all protocol messages.
type Message interface {
	// Type returns a string identifier for the message type.
	Type() string

	// From returns the sender's PartyID.
	From() PartyID

	// To returns the intended recipients.
	// If nil or empty, the message is treated as a broadcast message.
	To() []PartyID

	// IsBroadcast returns true if the message is intended for all parties.
	IsBroadcast() bool

	// Payload returns the serialized data of the message.
	Payload() []byte

	// RoundNumber returns the protocol round this message belongs to.
	RoundNumber() uint32
}

// StateMachine is the core engine that drives the protocol.
// It follows a functional state transition pattern.
type StateMachine interface {
	// Update applies an incoming message to the current state.
	// It returns:
	// - next: The new state machine.
	// - out: A slice of messages to be sent to other parties.
	// - err: An error if the transition failed. The session must then be discarded.
	Update(msg Message) (next StateMachine, out []Message, err error)

	// Result returns the final output of the protocol (e.g. a Signature).
	// Returns nil if the protocol is not yet finished.
	Result() interface{}

	// Details returns metadata about the current state (e.g., "Sign Round 2").
	Details() string
}

// Parameters holds the configuration for a signing session.
type Parameters struct {
	PartyID      PartyID   // The identity of the local party
	Parties      []PartyID // Both participants, in the same order on every side
	Curve        string    // The elliptic curve to use (e.g., "secp256k1")
	SessionID    []byte    // Unique session identifier, echoed in logs
	PaillierBits int       // Paillier modulus size; DefaultPaillierBits when zero

	// HashedMessage is the message digest, reduced by the curve before use.
	HashedMessage []byte
	// R is the first signature component, computed by the caller.
	R *big.Int
}

// Validate checks the parameters for a two-party session.
func (p *Parameters) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil parameters", ErrInvalidParameters)
	}
	if p.PartyID == nil {
		return fmt.Errorf("%w: missing local party", ErrInvalidParameters)
	}
	if len(p.Parties) != 2 {
		return fmt.Errorf("%w: expected 2 parties, got %d", ErrInvalidParameters, len(p.Parties))
	}
	if p.Parties[0].ID() == p.Parties[1].ID() {
		return fmt.Errorf("%w: duplicate party id %s", ErrInvalidParameters, p.Parties[0].ID())
	}
	if p.Index() < 0 {
		return fmt.Errorf("%w: party %s not in party list", ErrInvalidParameters, p.PartyID.ID())
	}
	if p.PaillierBits != 0 && p.PaillierBits < 1024 {
		return fmt.Errorf("%w: paillier modulus of %d bits is too small", ErrInvalidParameters, p.PaillierBits)
	}
	if len(p.HashedMessage) == 0 {
		return fmt.Errorf("%w: missing message hash", ErrInvalidParameters)
	}
	if p.R == nil || p.R.Sign() <= 0 {
		return fmt.Errorf("%w: missing signature component r", ErrInvalidParameters)
	}
	return nil
}

// Index returns the position of the local party in Parties, or -1.
func (p *Parameters) Index() int {
	for i, party := range p.Parties {
		if party.ID() == p.PartyID.ID() {
			return i
		}
	}
	return -1
}

// Peer returns the other participant of a two-party session.
func (p *Parameters) Peer() PartyID {
	switch p.Index() {
	case 0:
		return p.Parties[1]
	case 1:
		return p.Parties[0]
	}
	return nil
}

// Bits returns the Paillier modulus size to use.
func (p *Parameters) Bits() int {
	if p.PaillierBits == 0 {
		return DefaultPaillierBits
	}
	return p.PaillierBits
}
