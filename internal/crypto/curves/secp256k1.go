package curves

import (
	"crypto/sha256"
	"fmt"
	"io"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/smallyu/go-mta-tss/internal/crypto/sample"
	"github.com/smallyu/go-mta-tss/pkg/tss"
)

// Secp256k1ScalarSize is the width of an encoded secp256k1 scalar.
const Secp256k1ScalarSize = 32

var one = big.NewInt(1)

type Secp256k1 struct{}

// NewSecp256k1 returns the secp256k1 curve.
func NewSecp256k1() *Secp256k1 {
	return &Secp256k1{}
}

func (c *Secp256k1) Name() string {
	return "secp256k1"
}

func (c *Secp256k1) Order() *big.Int {
	return new(big.Int).Set(secp256k1.S256().N)
}

func (c *Secp256k1) ScalarSize() int {
	return Secp256k1ScalarSize
}

func (c *Secp256k1) NewScalar(random io.Reader) (Scalar, error) {
	k, err := sample.IntRange(random, one, secp256k1.S256().N)
	if err != nil {
		return nil, err
	}
	return c.ScalarFromBigInt(k), nil
}

func (c *Secp256k1) ScalarFromBigInt(n *big.Int) Scalar {
	var buf [Secp256k1ScalarSize]byte
	new(big.Int).Mod(n, secp256k1.S256().N).FillBytes(buf[:])

	s := &Secp256k1Scalar{}
	s.s.SetBytes(&buf)
	return s
}

func (c *Secp256k1) ScalarFromBytes(b []byte) (Scalar, error) {
	if len(b) != Secp256k1ScalarSize {
		return nil, fmt.Errorf("secp256k1: scalar of %d bytes, want %d: %w", len(b), Secp256k1ScalarSize, tss.ErrInvalidFactor)
	}
	s := &Secp256k1Scalar{}
	if overflow := s.s.SetBytes((*[Secp256k1ScalarSize]byte)(b)); overflow != 0 {
		return nil, fmt.Errorf("secp256k1: scalar not below the group order: %w", tss.ErrInvalidFactor)
	}
	return s, nil
}

// HashToScalar is SHA-256 of msg reduced modulo q.
func (c *Secp256k1) HashToScalar(msg []byte) Scalar {
	h := sha256.Sum256(msg)
	s := &Secp256k1Scalar{}
	s.s.SetByteSlice(h[:])
	return s
}

// ScalarBaseMult returns k·G.
func (c *Secp256k1) ScalarBaseMult(k Scalar) *secp256k1.PublicKey {
	var p secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(mustSecp256k1(k).ModN(), &p)
	p.ToAffine()
	return secp256k1.NewPublicKey(&p.X, &p.Y)
}

// ScalarMult returns k·P. It fails when the product is the point at infinity.
func (c *Secp256k1) ScalarMult(k Scalar, point *secp256k1.PublicKey) (*secp256k1.PublicKey, error) {
	var p, res secp256k1.JacobianPoint
	point.AsJacobian(&p)
	secp256k1.ScalarMultNonConst(mustSecp256k1(k).ModN(), &p, &res)
	return affine(&res)
}

// AddPoints returns P1 + P2. It fails when the sum is the point at infinity.
func (c *Secp256k1) AddPoints(p1, p2 *secp256k1.PublicKey) (*secp256k1.PublicKey, error) {
	var j1, j2, res secp256k1.JacobianPoint
	p1.AsJacobian(&j1)
	p2.AsJacobian(&j2)
	secp256k1.AddNonConst(&j1, &j2, &res)
	return affine(&res)
}

// ParsePoint decodes a compressed or uncompressed SEC1 point.
func (c *Secp256k1) ParsePoint(b []byte) (*secp256k1.PublicKey, error) {
	p, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return nil, fmt.Errorf("secp256k1: %v: %w", err, tss.ErrInvalidParameters)
	}
	return p, nil
}

func affine(p *secp256k1.JacobianPoint) (*secp256k1.PublicKey, error) {
	if (p.X.IsZero() && p.Y.IsZero()) || p.Z.IsZero() {
		return nil, fmt.Errorf("secp256k1: point at infinity: %w", tss.ErrInvalidParameters)
	}
	p.ToAffine()
	return secp256k1.NewPublicKey(&p.X, &p.Y), nil
}

// Secp256k1Scalar implements Scalar over secp256k1.ModNScalar.
type Secp256k1Scalar struct {
	s secp256k1.ModNScalar
}

// ModN exposes the underlying field element.
func (s *Secp256k1Scalar) ModN() *secp256k1.ModNScalar {
	return &s.s
}

func (s *Secp256k1Scalar) Bytes() []byte {
	b := s.s.Bytes()
	return b[:]
}

func (s *Secp256k1Scalar) BigInt() *big.Int {
	b := s.s.Bytes()
	return new(big.Int).SetBytes(b[:])
}

func (s *Secp256k1Scalar) Add(other Scalar) Scalar {
	res := &Secp256k1Scalar{}
	res.s.Add2(&s.s, &mustSecp256k1(other).s)
	return res
}

func (s *Secp256k1Scalar) Mul(other Scalar) Scalar {
	res := &Secp256k1Scalar{}
	res.s.Mul2(&s.s, &mustSecp256k1(other).s)
	return res
}

func (s *Secp256k1Scalar) Negate() Scalar {
	res := &Secp256k1Scalar{}
	res.s.NegateVal(&s.s)
	return res
}

func (s *Secp256k1Scalar) Invert() Scalar {
	res := &Secp256k1Scalar{}
	res.s.InverseValNonConst(&s.s)
	return res
}

func (s *Secp256k1Scalar) IsZero() bool {
	return s.s.IsZero()
}

func (s *Secp256k1Scalar) Equal(other Scalar) bool {
	o, ok := other.(*Secp256k1Scalar)
	return ok && s.s.Equals(&o.s)
}

func mustSecp256k1(s Scalar) *Secp256k1Scalar {
	o, ok := s.(*Secp256k1Scalar)
	if !ok {
		panic("type mismatch")
	}
	return o
}
