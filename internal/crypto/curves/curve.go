// Package curves provides the scalar fields of the signing curves.
//
// A Scalar is always an element of Z_q for its curve's order q. Values from the
// Paillier domain enter through Curve.ScalarFromBigInt, which reduces them.
package curves

import (
	"fmt"
	"io"
	"math/big"

	"github.com/smallyu/go-mta-tss/pkg/tss"
)

// Scalar represents a scalar value in the curve's scalar field.
type Scalar interface {
	// Bytes returns the fixed-width canonical encoding.
	Bytes() []byte

	// BigInt returns the scalar as an integer in [0, q).
	BigInt() *big.Int

	Add(s Scalar) Scalar
	Mul(s Scalar) Scalar
	Negate() Scalar

	// Invert returns the modular inverse of the scalar. Zero maps to zero.
	Invert() Scalar

	IsZero() bool
	Equal(s Scalar) bool
}

// Curve exposes the scalar field of a prime-order group.
type Curve interface {
	// Name returns the name of the curve.
	Name() string

	// Order returns the order q of the base point.
	Order() *big.Int

	// ScalarSize is the width of Scalar.Bytes.
	ScalarSize() int

	// NewScalar draws a uniform scalar in [1, q).
	NewScalar(random io.Reader) (Scalar, error)

	// ScalarFromBigInt reduces n modulo q.
	ScalarFromBigInt(n *big.Int) Scalar

	// ScalarFromBytes decodes a canonical fixed-width encoding.
	ScalarFromBytes(b []byte) (Scalar, error)

	// HashToScalar hashes msg and reduces the digest into the field.
	HashToScalar(msg []byte) Scalar
}

// ByName returns the curve registered under name.
func ByName(name string) (Curve, error) {
	switch name {
	case "", "secp256k1":
		return NewSecp256k1(), nil
	case "ed25519", "Ed25519":
		return NewEd25519(), nil
	}
	return nil, fmt.Errorf("curves: unknown curve %q: %w", name, tss.ErrInvalidParameters)
}
