// Package shares folds additive shares into per-party signing values.
package shares

import "github.com/smallyu/go-mta-tss/internal/crypto/curves"

// SumMtA returns a*b + alpha1 + beta1 + alpha2 + beta2 mod q: a party's own
// product folded with the additive shares of its two conversions.
func SumMtA(a, b, alpha1, beta1, alpha2, beta2 curves.Scalar) curves.Scalar {
	return SumMtAN(a, b, alpha1, beta1, alpha2, beta2)
}

// SumMtAN is SumMtA for any number of additive terms; with n parties a party
// holds 2(n-1) of them.
func SumMtAN(a, b curves.Scalar, additive ...curves.Scalar) curves.Scalar {
	sum := a.Mul(b)
	for _, term := range additive {
		sum = sum.Add(term)
	}
	return sum
}

// SumS returns s1 + s2 mod q. No low-s normalization is applied.
func SumS(s1, s2 curves.Scalar) curves.Scalar {
	return s1.Add(s2)
}
