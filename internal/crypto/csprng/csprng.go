// Package csprng provides a seeded deterministic random source.
//
// The Reader is meant for reproducible test runs and for replaying test vectors.
// Production callers pass crypto/rand.Reader to the same APIs instead.
package csprng

import (
	"fmt"
	"sync"

	"golang.org/x/crypto/sha3"

	"github.com/smallyu/go-mta-tss/pkg/tss"
)

// SeedLen is the minimum seed length accepted by New.
const SeedLen = 16

var domain = []byte("go-mta-tss/csprng/v1")

// Reader is an io.Reader backed by a SHAKE256 stream. Draws are serialized, so a
// single Reader may be shared between goroutines.
type Reader struct {
	mu  sync.Mutex
	xof sha3.ShakeHash
}

// New returns a Reader whose output is fully determined by seed.
func New(seed []byte) (*Reader, error) {
	if len(seed) < SeedLen {
		return nil, fmt.Errorf("csprng: seed of %d bytes, need at least %d: %w", len(seed), SeedLen, tss.ErrRngFailure)
	}
	xof := sha3.NewShake256()
	xof.Write(domain)
	xof.Write(seed)
	return &Reader{xof: xof}, nil
}

func (r *Reader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.xof.Read(p)
}
