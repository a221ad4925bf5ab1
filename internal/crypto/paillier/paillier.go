// Package paillier implements the Paillier cryptosystem with generator g = n + 1.
package paillier

import (
	"fmt"
	"io"
	"math/big"

	"github.com/smallyu/go-mta-tss/internal/crypto/sample"
	"github.com/smallyu/go-mta-tss/pkg/tss"
)

var (
	one = big.NewInt(1)
	two = big.NewInt(2)
)

// PublicKey represents a Paillier public key (n, g).
type PublicKey struct {
	N  *big.Int // Modulus n = p * q
	G  *big.Int // Generator, always n + 1
	N2 *big.Int // n^2, cached for performance
}

// PrivateKey represents a Paillier private key (l, m).
// P and Q are nil for keys rebuilt with NewPrivateKeyFromParts.
type PrivateKey struct {
	PublicKey
	Lambda *big.Int // l = (p-1)(q-1)
	Mu     *big.Int // m = l^-1 mod n
	P, Q   *big.Int
}

// NewKeyPair derives a key pair from two distinct primes of equal bit length.
// Primality is not re-checked.
func NewKeyPair(p, q *big.Int) (*PrivateKey, error) {
	if p == nil || q == nil || p.Cmp(two) < 0 || q.Cmp(two) < 0 {
		return nil, fmt.Errorf("paillier: primes must be at least 2: %w", tss.ErrInvalidModulus)
	}
	if p.Cmp(q) == 0 {
		return nil, fmt.Errorf("paillier: p and q must be distinct: %w", tss.ErrInvalidModulus)
	}
	if p.BitLen() != q.BitLen() {
		return nil, fmt.Errorf("paillier: p has %d bits, q has %d: %w", p.BitLen(), q.BitLen(), tss.ErrInvalidModulus)
	}

	n := new(big.Int).Mul(p, q)
	lambda := new(big.Int).Mul(new(big.Int).Sub(p, one), new(big.Int).Sub(q, one))

	mu := new(big.Int).ModInverse(lambda, n)
	if mu == nil {
		return nil, fmt.Errorf("paillier: l has no inverse mod n: %w", tss.ErrInvalidModulus)
	}

	return &PrivateKey{
		PublicKey: *newPublicKey(n),
		Lambda:    lambda,
		Mu:        mu,
		P:         new(big.Int).Set(p),
		Q:         new(big.Int).Set(q),
	}, nil
}

// GenerateKey generates a Paillier key pair with the given bit length for the modulus n.
// bits must be at least 1024.
func GenerateKey(random io.Reader, bits int) (*PrivateKey, error) {
	if bits < 1024 {
		return nil, fmt.Errorf("paillier: bits must be at least 1024: %w", tss.ErrInvalidModulus)
	}

	for {
		p, err := sample.Prime(random, bits/2)
		if err != nil {
			return nil, err
		}
		q, err := sample.Prime(random, bits/2)
		if err != nil {
			return nil, err
		}
		if p.Cmp(q) == 0 {
			continue
		}
		return NewKeyPair(p, q)
	}
}

// NewPublicKey rebuilds the public key for modulus n.
func NewPublicKey(n *big.Int) (*PublicKey, error) {
	if n == nil || n.Cmp(two) <= 0 || n.Bit(0) == 0 {
		return nil, fmt.Errorf("paillier: modulus must be odd and greater than 2: %w", tss.ErrInvalidModulus)
	}
	return newPublicKey(n), nil
}

// NewPublicKeyWithGenerator rebuilds a public key from (n, g), requiring g = n + 1.
func NewPublicKeyWithGenerator(n, g *big.Int) (*PublicKey, error) {
	pk, err := NewPublicKey(n)
	if err != nil {
		return nil, err
	}
	if g == nil || g.Cmp(pk.G) != 0 {
		return nil, fmt.Errorf("paillier: generator must be n+1: %w", tss.ErrInvalidModulus)
	}
	return pk, nil
}

// NewPrivateKeyFromParts rebuilds a private key from (n, l, m) without the primes.
func NewPrivateKeyFromParts(n, lambda, mu *big.Int) (*PrivateKey, error) {
	pk, err := NewPublicKey(n)
	if err != nil {
		return nil, err
	}
	if lambda == nil || mu == nil || lambda.Sign() <= 0 || mu.Sign() <= 0 || mu.Cmp(n) >= 0 {
		return nil, fmt.Errorf("paillier: malformed private key: %w", tss.ErrInvalidModulus)
	}
	check := new(big.Int).Mul(lambda, mu)
	if check.Mod(check, n).Cmp(one) != 0 {
		return nil, fmt.Errorf("paillier: m is not the inverse of l: %w", tss.ErrInvalidModulus)
	}
	return &PrivateKey{
		PublicKey: *pk,
		Lambda:    new(big.Int).Set(lambda),
		Mu:        new(big.Int).Set(mu),
	}, nil
}

func newPublicKey(n *big.Int) *PublicKey {
	return &PublicKey{
		N:  new(big.Int).Set(n),
		G:  new(big.Int).Add(n, one),
		N2: new(big.Int).Mul(n, n),
	}
}

// Encrypt encrypts m with fresh randomness drawn from random.
// It returns the ciphertext and the randomness used.
func (pk *PublicKey) Encrypt(random io.Reader, m *big.Int) (*Ciphertext, *big.Int, error) {
	if err := pk.checkPlaintext(m); err != nil {
		return nil, nil, err
	}
	r, err := sample.Unit(random, pk.N)
	if err != nil {
		return nil, nil, err
	}
	c, err := pk.EncryptWithNonce(m, r)
	if err != nil {
		return nil, nil, err
	}
	return c, r, nil
}

// EncryptWithNonce encrypts m using the caller's randomness r, which must be
// a unit in [1, n).
func (pk *PublicKey) EncryptWithNonce(m, r *big.Int) (*Ciphertext, error) {
	if err := pk.checkPlaintext(m); err != nil {
		return nil, err
	}
	if r == nil || r.Sign() <= 0 || r.Cmp(pk.N) >= 0 {
		return nil, fmt.Errorf("paillier: randomness must be in [1, n): %w", tss.ErrInvalidRandomness)
	}
	if new(big.Int).GCD(nil, nil, r, pk.N).Cmp(one) != 0 {
		return nil, fmt.Errorf("paillier: randomness not coprime to n: %w", tss.ErrInvalidRandomness)
	}

	// c = (1 + n*m) * r^n mod n^2, and (1 + n*m) = g^m mod n^2 for g = n + 1.
	gm := new(big.Int).Mul(pk.N, m)
	gm.Add(gm, one)

	rn := new(big.Int).Exp(r, pk.N, pk.N2)

	c := gm.Mul(gm, rn)
	c.Mod(c, pk.N2)

	return &Ciphertext{c: c}, nil
}

// Decrypt decrypts a ciphertext c into a plaintext in [0, n).
func (priv *PrivateKey) Decrypt(c *Ciphertext) (*big.Int, error) {
	if err := priv.ValidateCiphertext(c); err != nil {
		return nil, err
	}

	// m = L(c^l mod n^2) * mu mod n, where L(x) = (x-1)/n
	u := new(big.Int).Exp(c.c, priv.Lambda, priv.N2)

	l := u.Sub(u, one)
	l.Div(l, priv.N)

	m := l.Mul(l, priv.Mu)
	m.Mod(m, priv.N)

	return m, nil
}

// Add performs homomorphic addition of two ciphertexts.
// E(m1) + E(m2) = E(m1 + m2)
func (pk *PublicKey) Add(c1, c2 *Ciphertext) *Ciphertext {
	c := new(big.Int).Mul(c1.c, c2.c)
	c.Mod(c, pk.N2)
	return &Ciphertext{c: c}
}

// Mul performs homomorphic multiplication of a ciphertext by a scalar.
// E(m)^k = E(m * k); k is reduced modulo n first.
func (pk *PublicKey) Mul(c1 *Ciphertext, k *big.Int) *Ciphertext {
	e := new(big.Int).Mod(k, pk.N)
	return &Ciphertext{c: new(big.Int).Exp(c1.c, e, pk.N2)}
}

// ValidateCiphertext checks that c is in [1, n^2) and coprime to n^2.
func (pk *PublicKey) ValidateCiphertext(c *Ciphertext) error {
	if c == nil || c.c == nil {
		return fmt.Errorf("paillier: missing ciphertext: %w", tss.ErrInvalidCiphertext)
	}
	if c.c.Sign() <= 0 || c.c.Cmp(pk.N2) >= 0 {
		return fmt.Errorf("paillier: ciphertext out of range: %w", tss.ErrInvalidCiphertext)
	}
	// gcd(c, n^2) = 1 iff gcd(c, n) = 1
	if new(big.Int).GCD(nil, nil, c.c, pk.N).Cmp(one) != 0 {
		return fmt.Errorf("paillier: ciphertext not coprime to n^2: %w", tss.ErrInvalidCiphertext)
	}
	return nil
}

// Equal reports whether two public keys share the same modulus.
func (pk *PublicKey) Equal(other *PublicKey) bool {
	return other != nil && pk.N.Cmp(other.N) == 0
}

func (pk *PublicKey) checkPlaintext(m *big.Int) error {
	if m == nil || m.Sign() < 0 || m.Cmp(pk.N) >= 0 {
		return fmt.Errorf("paillier: plaintext must be in range [0, n): %w", tss.ErrInvalidPlaintext)
	}
	return nil
}

// Destroy overwrites the secret values held by the key. The key is unusable afterwards.
func (priv *PrivateKey) Destroy() {
	for _, x := range []*big.Int{priv.Lambda, priv.Mu, priv.P, priv.Q} {
		wipe(x)
	}
	priv.Lambda, priv.Mu, priv.P, priv.Q = nil, nil, nil, nil
}

func wipe(x *big.Int) {
	if x == nil {
		return
	}
	words := x.Bits()
	for i := range words {
		words[i] = 0
	}
	x.SetInt64(0)
}
