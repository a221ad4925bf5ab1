package sign

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/smallyu/go-mta-tss/internal/crypto/curves"
	"github.com/smallyu/go-mta-tss/pkg/tss"
)

// PartialSign computes s_i = k_i^-1 * (hm + r*sum_i) mod q.
func PartialSign(hm, r, k, sum curves.Scalar) (curves.Scalar, error) {
	if k == nil || k.IsZero() {
		return nil, fmt.Errorf("sign: nonce share is zero: %w", tss.ErrInvalidNonceShare)
	}
	return k.Invert().Mul(hm.Add(r.Mul(sum))), nil
}

// ShareSign computes s_i = k_i*hm + r*sigma_i mod q, the share form for an
// additively shared nonce k with R = (k*gamma)^-1 * Gamma and sigma_i a share of k*x.
func ShareSign(hm, r, k, sigma curves.Scalar) curves.Scalar {
	return k.Mul(hm).Add(r.Mul(sigma))
}

// InvKGamma returns (kgamma1 + kgamma2)^-1 mod q.
func InvKGamma(kgamma1, kgamma2 curves.Scalar) (curves.Scalar, error) {
	sum := kgamma1.Add(kgamma2)
	if sum.IsZero() {
		return nil, fmt.Errorf("sign: k*gamma sums to zero: %w", tss.ErrInvalidNonceShare)
	}
	return sum.Invert(), nil
}

// ComputeR returns r = x((Gamma1 + Gamma2) * invKGamma) mod q and the point itself.
func ComputeR(invKGamma curves.Scalar, gamma1, gamma2 *secp256k1.PublicKey) (curves.Scalar, *secp256k1.PublicKey, error) {
	curve := curves.NewSecp256k1()
	gamma, err := curve.AddPoints(gamma1, gamma2)
	if err != nil {
		return nil, nil, err
	}
	point, err := curve.ScalarMult(invKGamma, gamma)
	if err != nil {
		return nil, nil, err
	}
	r := curve.ScalarFromBigInt(point.X())
	if r.IsZero() {
		return nil, nil, fmt.Errorf("sign: r is zero: %w", tss.ErrInvalidNonceShare)
	}
	return r, point, nil
}

// SumPK adds two public key points.
func SumPK(pk1, pk2 *secp256k1.PublicKey) (*secp256k1.PublicKey, error) {
	return curves.NewSecp256k1().AddPoints(pk1, pk2)
}

// Verify checks an ECDSA signature over a message hash.
func Verify(pub *secp256k1.PublicKey, hash []byte, sig *Signature) error {
	var r, s secp256k1.ModNScalar
	if r.SetByteSlice(sig.R.Bytes()) || s.SetByteSlice(sig.S.Bytes()) {
		return fmt.Errorf("sign: signature component out of range: %w", tss.ErrInvalidSignature)
	}
	if r.IsZero() || s.IsZero() {
		return fmt.Errorf("sign: zero signature component: %w", tss.ErrInvalidSignature)
	}
	if !ecdsa.NewSignature(&r, &s).Verify(hash, pub) {
		return fmt.Errorf("sign: verification failed: %w", tss.ErrInvalidSignature)
	}
	return nil
}
