package paillier

import (
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"

	"github.com/smallyu/go-mta-tss/pkg/tss"
)

// Ciphertext is a Paillier ciphertext, an integer in [0, n^2).
type Ciphertext struct {
	c *big.Int
}

// NewCiphertext wraps c. It is checked by the key that consumes it.
func NewCiphertext(c *big.Int) *Ciphertext {
	return &Ciphertext{c: new(big.Int).Set(c)}
}

// Int returns a copy of the ciphertext value.
func (ct *Ciphertext) Int() *big.Int {
	return new(big.Int).Set(ct.c)
}

// Equal reports whether two ciphertexts hold the same value.
func (ct *Ciphertext) Equal(other *Ciphertext) bool {
	return other != nil && ct.c.Cmp(other.c) == 0
}

// PlaintextSize is the fixed width of an encoded plaintext or randomness value.
func (pk *PublicKey) PlaintextSize() int {
	return (pk.N.BitLen() + 7) / 8
}

// CiphertextSize is the fixed width of an encoded ciphertext.
func (pk *PublicKey) CiphertextSize() int {
	return 2 * pk.PlaintextSize()
}

// CiphertextBytes encodes c at the key's fixed ciphertext width.
func (pk *PublicKey) CiphertextBytes(c *Ciphertext) ([]byte, error) {
	if err := pk.ValidateCiphertext(c); err != nil {
		return nil, err
	}
	return c.c.FillBytes(make([]byte, pk.CiphertextSize())), nil
}

// CiphertextFromBytes decodes a ciphertext of exactly CiphertextSize bytes.
func (pk *PublicKey) CiphertextFromBytes(b []byte) (*Ciphertext, error) {
	if len(b) != pk.CiphertextSize() {
		return nil, fmt.Errorf("paillier: ciphertext of %d bytes, want %d: %w", len(b), pk.CiphertextSize(), tss.ErrInvalidCiphertext)
	}
	c := &Ciphertext{c: new(big.Int).SetBytes(b)}
	if err := pk.ValidateCiphertext(c); err != nil {
		return nil, err
	}
	return c, nil
}

// PlaintextBytes encodes m in [0, n) at the key's fixed plaintext width.
func (pk *PublicKey) PlaintextBytes(m *big.Int) ([]byte, error) {
	if err := pk.checkPlaintext(m); err != nil {
		return nil, err
	}
	return m.FillBytes(make([]byte, pk.PlaintextSize())), nil
}

// PlaintextFromBytes decodes a value of exactly PlaintextSize bytes in [0, n).
func (pk *PublicKey) PlaintextFromBytes(b []byte) (*big.Int, error) {
	if len(b) != pk.PlaintextSize() {
		return nil, fmt.Errorf("paillier: plaintext of %d bytes, want %d: %w", len(b), pk.PlaintextSize(), tss.ErrInvalidPlaintext)
	}
	m := new(big.Int).SetBytes(b)
	if err := pk.checkPlaintext(m); err != nil {
		return nil, err
	}
	return m, nil
}

type publicKeyWire struct {
	N []byte `cbor:"1,keyasint"`
}

type privateKeyWire struct {
	P []byte `cbor:"1,keyasint"`
	Q []byte `cbor:"2,keyasint"`
}

// MarshalBinary encodes the public key as CBOR.
func (pk *PublicKey) MarshalBinary() ([]byte, error) {
	return cbor.Marshal(publicKeyWire{N: pk.N.Bytes()})
}

// UnmarshalBinary decodes a key written by MarshalBinary.
func (pk *PublicKey) UnmarshalBinary(data []byte) error {
	var w publicKeyWire
	if err := cbor.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("paillier: decode public key: %v: %w", err, tss.ErrInvalidModulus)
	}
	decoded, err := NewPublicKey(new(big.Int).SetBytes(w.N))
	if err != nil {
		return err
	}
	*pk = *decoded
	return nil
}

// MarshalBinary encodes the private key as CBOR. Only keys that still hold their
// primes can be encoded.
func (priv *PrivateKey) MarshalBinary() ([]byte, error) {
	if priv.P == nil || priv.Q == nil {
		return nil, fmt.Errorf("paillier: private key has no primes: %w", tss.ErrInvalidModulus)
	}
	return cbor.Marshal(privateKeyWire{P: priv.P.Bytes(), Q: priv.Q.Bytes()})
}

// UnmarshalBinary decodes a key written by MarshalBinary and re-derives it.
func (priv *PrivateKey) UnmarshalBinary(data []byte) error {
	var w privateKeyWire
	if err := cbor.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("paillier: decode private key: %v: %w", err, tss.ErrInvalidModulus)
	}
	decoded, err := NewKeyPair(new(big.Int).SetBytes(w.P), new(big.Int).SetBytes(w.Q))
	if err != nil {
		return err
	}
	*priv = *decoded
	return nil
}
