// Package mta converts a product of two secret factors into additive shares.
//
// The client holds a and a Paillier key pair, the server holds b. After one
// Client1 -> Server -> Client2 exchange the client holds alpha and the server
// holds beta with alpha + beta = a*b mod q. Neither side proves anything about
// its messages, so the conversion is secure against semi-honest parties only.
package mta

import (
	"fmt"
	"io"
	"math/big"

	"github.com/smallyu/go-mta-tss/internal/crypto/curves"
	"github.com/smallyu/go-mta-tss/internal/crypto/paillier"
	"github.com/smallyu/go-mta-tss/pkg/tss"
)

// ServerResult is the server's output: CB goes back to the client, Beta stays local.
type ServerResult struct {
	CB   *paillier.Ciphertext
	Beta curves.Scalar
}

// ToPlaintext moves a curve scalar into the Paillier plaintext domain of pub.
func ToPlaintext(pub *paillier.PublicKey, s curves.Scalar) (*big.Int, error) {
	if s == nil {
		return nil, fmt.Errorf("mta: missing scalar: %w", tss.ErrInvalidFactor)
	}
	m := s.BigInt()
	if m.Cmp(pub.N) >= 0 {
		return nil, fmt.Errorf("mta: scalar does not fit the paillier modulus: %w", tss.ErrInvalidPlaintext)
	}
	return m, nil
}

// CheckModulus fails unless n > q^2, which keeps a*b + z below n.
func CheckModulus(pub *paillier.PublicKey, curve curves.Curve) error {
	if pub.N.BitLen() <= 2*curve.Order().BitLen() {
		return fmt.Errorf("mta: %d-bit paillier modulus too small for %s: %w", pub.N.BitLen(), curve.Name(), tss.ErrInvalidModulus)
	}
	return nil
}

// Client1 encrypts the client's factor a under its own public key.
// r is the encryption randomness; it is drawn from random when nil.
// It returns ca for the server and the randomness used.
func Client1(random io.Reader, pub *paillier.PublicKey, curve curves.Curve, a curves.Scalar, r *big.Int) (*paillier.Ciphertext, *big.Int, error) {
	if err := CheckModulus(pub, curve); err != nil {
		return nil, nil, err
	}
	m, err := ToPlaintext(pub, a)
	if err != nil {
		return nil, nil, err
	}

	if r == nil {
		return pub.Encrypt(random, m)
	}
	ca, err := pub.EncryptWithNonce(m, r)
	if err != nil {
		return nil, nil, err
	}
	return ca, r, nil
}

// Server answers ca with cb = ca^b * Enc(z) and keeps beta = -z mod q.
// z and r are drawn from random when nil. A zero z is accepted so the
// unblinded case can be exercised.
func Server(random io.Reader, pub *paillier.PublicKey, curve curves.Curve, b curves.Scalar, ca *paillier.Ciphertext, z curves.Scalar, r *big.Int) (*ServerResult, error) {
	if err := CheckModulus(pub, curve); err != nil {
		return nil, err
	}
	if b == nil || b.IsZero() {
		return nil, fmt.Errorf("mta: server factor must be in [1, q): %w", tss.ErrInvalidFactor)
	}
	if err := pub.ValidateCiphertext(ca); err != nil {
		return nil, err
	}

	if z == nil {
		var err error
		if z, err = curve.NewScalar(random); err != nil {
			return nil, err
		}
	}
	zm, err := ToPlaintext(pub, z)
	if err != nil {
		return nil, err
	}

	var cz *paillier.Ciphertext
	if r == nil {
		cz, _, err = pub.Encrypt(random, zm)
	} else {
		cz, err = pub.EncryptWithNonce(zm, r)
	}
	if err != nil {
		return nil, err
	}

	return &ServerResult{
		CB:   pub.Add(pub.Mul(ca, b.BigInt()), cz),
		Beta: z.Negate(),
	}, nil
}

// Client2 decrypts cb and reduces the result into the curve field.
func Client2(priv *paillier.PrivateKey, curve curves.Curve, cb *paillier.Ciphertext) (curves.Scalar, error) {
	t, err := priv.Decrypt(cb)
	if err != nil {
		return nil, err
	}
	return curve.ScalarFromBigInt(t), nil
}
