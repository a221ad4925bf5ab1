// Package sample draws integers from explicit random sources.
package sample

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"github.com/smallyu/go-mta-tss/pkg/tss"
)

var one = big.NewInt(1)

// IntRange returns a uniform integer in [lo, hi).
func IntRange(random io.Reader, lo, hi *big.Int) (*big.Int, error) {
	width := new(big.Int).Sub(hi, lo)
	if width.Sign() <= 0 {
		return nil, fmt.Errorf("sample: empty range [%s, %s)", lo, hi)
	}
	x, err := rand.Int(random, width)
	if err != nil {
		return nil, fmt.Errorf("sample: %v: %w", err, tss.ErrRngFailure)
	}
	return x.Add(x, lo), nil
}

// Unit returns a uniform r in [1, n) with gcd(r, n) = 1.
func Unit(random io.Reader, n *big.Int) (*big.Int, error) {
	gcd := new(big.Int)
	for {
		r, err := IntRange(random, one, n)
		if err != nil {
			return nil, err
		}
		if gcd.GCD(nil, nil, r, n).Cmp(one) == 0 {
			return r, nil
		}
	}
}

// Prime returns a prime of exactly bits bits.
func Prime(random io.Reader, bits int) (*big.Int, error) {
	p, err := rand.Prime(random, bits)
	if err != nil {
		return nil, fmt.Errorf("sample: prime: %v: %w", err, tss.ErrRngFailure)
	}
	return p, nil
}
