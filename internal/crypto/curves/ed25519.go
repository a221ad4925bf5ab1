package curves

import (
	"crypto/sha512"
	"fmt"
	"io"
	"math/big"

	"filippo.io/edwards25519"

	"github.com/smallyu/go-mta-tss/pkg/tss"
)

// Ed25519ScalarSize is the width of an encoded Ed25519 scalar (little-endian).
const Ed25519ScalarSize = 32

// l = 2^252 + 27742317777372353535851937790883648493
var ed25519Order, _ = new(big.Int).SetString("7237005577332262213973186563042994240857116359379907606001950938285454250989", 10)

type Ed25519Curve struct{}

// NewEd25519 returns the scalar field of edwards25519.
func NewEd25519() *Ed25519Curve {
	return &Ed25519Curve{}
}

func (c *Ed25519Curve) Name() string {
	return "Ed25519"
}

func (c *Ed25519Curve) Order() *big.Int {
	return new(big.Int).Set(ed25519Order)
}

func (c *Ed25519Curve) ScalarSize() int {
	return Ed25519ScalarSize
}

func (c *Ed25519Curve) NewScalar(random io.Reader) (Scalar, error) {
	var b [64]byte
	for {
		if _, err := io.ReadFull(random, b[:]); err != nil {
			return nil, fmt.Errorf("ed25519: %v: %w", err, tss.ErrRngFailure)
		}
		s, err := edwards25519.NewScalar().SetUniformBytes(b[:])
		if err != nil {
			return nil, err
		}
		if s.Equal(edwards25519.NewScalar()) == 0 {
			return &Ed25519Scalar{s: s}, nil
		}
	}
}

func (c *Ed25519Curve) ScalarFromBigInt(n *big.Int) Scalar {
	// edwards25519 scalars are little-endian, big.Int is big-endian.
	var buf [Ed25519ScalarSize]byte
	new(big.Int).Mod(n, ed25519Order).FillBytes(buf[:])
	reverse(buf[:])

	s, err := edwards25519.NewScalar().SetCanonicalBytes(buf[:])
	if err != nil {
		panic("ed25519: reduced scalar rejected")
	}
	return &Ed25519Scalar{s: s}
}

func (c *Ed25519Curve) ScalarFromBytes(b []byte) (Scalar, error) {
	if len(b) != Ed25519ScalarSize {
		return nil, fmt.Errorf("ed25519: scalar of %d bytes, want %d: %w", len(b), Ed25519ScalarSize, tss.ErrInvalidFactor)
	}
	s, err := edwards25519.NewScalar().SetCanonicalBytes(b)
	if err != nil {
		return nil, fmt.Errorf("ed25519: %v: %w", err, tss.ErrInvalidFactor)
	}
	return &Ed25519Scalar{s: s}, nil
}

// HashToScalar is SHA-512 of msg reduced modulo l.
func (c *Ed25519Curve) HashToScalar(msg []byte) Scalar {
	h := sha512.Sum512(msg)
	s, _ := edwards25519.NewScalar().SetUniformBytes(h[:])
	return &Ed25519Scalar{s: s}
}

// Ed25519Scalar implements Scalar
type Ed25519Scalar struct {
	s *edwards25519.Scalar
}

func (s *Ed25519Scalar) Bytes() []byte {
	return s.s.Bytes()
}

func (s *Ed25519Scalar) BigInt() *big.Int {
	b := s.s.Bytes()
	reverse(b)
	return new(big.Int).SetBytes(b)
}

func (s *Ed25519Scalar) Add(other Scalar) Scalar {
	return &Ed25519Scalar{s: edwards25519.NewScalar().Add(s.s, mustEd25519(other).s)}
}

func (s *Ed25519Scalar) Mul(other Scalar) Scalar {
	return &Ed25519Scalar{s: edwards25519.NewScalar().Multiply(s.s, mustEd25519(other).s)}
}

func (s *Ed25519Scalar) Negate() Scalar {
	return &Ed25519Scalar{s: edwards25519.NewScalar().Negate(s.s)}
}

func (s *Ed25519Scalar) Invert() Scalar {
	return &Ed25519Scalar{s: edwards25519.NewScalar().Invert(s.s)}
}

func (s *Ed25519Scalar) IsZero() bool {
	return s.s.Equal(edwards25519.NewScalar()) == 1
}

func (s *Ed25519Scalar) Equal(other Scalar) bool {
	o, ok := other.(*Ed25519Scalar)
	return ok && s.s.Equal(o.s) == 1
}

func mustEd25519(s Scalar) *Ed25519Scalar {
	o, ok := s.(*Ed25519Scalar)
	if !ok {
		panic("type mismatch")
	}
	return o
}

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
