package mta

import (
	"fmt"
	"io"
	"math/big"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/smallyu/go-mta-tss/internal/crypto/curves"
	"github.com/smallyu/go-mta-tss/internal/crypto/paillier"
	"github.com/smallyu/go-mta-tss/pkg/tss"
)

// ClientSession is the client side of one conversion. It can be finalized once.
type ClientSession struct {
	mu    sync.Mutex
	priv  *paillier.PrivateKey
	curve curves.Curve
	ca    *paillier.Ciphertext
	used  bool
}

// NewClientSession encrypts a and returns the session together with ca.
func NewClientSession(random io.Reader, priv *paillier.PrivateKey, curve curves.Curve, a curves.Scalar) (*ClientSession, *paillier.Ciphertext, error) {
	ca, _, err := Client1(random, &priv.PublicKey, curve, a, nil)
	if err != nil {
		return nil, nil, err
	}
	return &ClientSession{priv: priv, curve: curve, ca: ca}, ca, nil
}

// Finalize opens the server's answer and returns alpha with the transcript.
func (s *ClientSession) Finalize(cb *paillier.Ciphertext) (curves.Scalar, *Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.used {
		return nil, nil, fmt.Errorf("mta: client session: %w", tss.ErrSessionUsed)
	}
	s.used = true

	alpha, err := Client2(s.priv, s.curve, cb)
	if err != nil {
		return nil, nil, err
	}
	return alpha, NewTranscript(&s.priv.PublicKey, s.ca, cb), nil
}

// ServerSession is the server side of one conversion. It can respond once.
type ServerSession struct {
	mu     sync.Mutex
	random io.Reader
	pub    *paillier.PublicKey
	curve  curves.Curve
	b      curves.Scalar
	used   bool
}

// NewServerSession prepares to multiply the client's ciphertext by b under pub.
func NewServerSession(random io.Reader, pub *paillier.PublicKey, curve curves.Curve, b curves.Scalar) (*ServerSession, error) {
	if err := CheckModulus(pub, curve); err != nil {
		return nil, err
	}
	if b == nil || b.IsZero() {
		return nil, fmt.Errorf("mta: server factor must be in [1, q): %w", tss.ErrInvalidFactor)
	}
	return &ServerSession{random: random, pub: pub, curve: curve, b: b}, nil
}

// Respond answers ca with a fresh mask. It returns cb for the client and beta.
func (s *ServerSession) Respond(ca *paillier.Ciphertext) (*paillier.Ciphertext, curves.Scalar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.used {
		return nil, nil, fmt.Errorf("mta: server session: %w", tss.ErrSessionUsed)
	}
	s.used = true

	res, err := Server(s.random, s.pub, s.curve, s.b, ca, nil, nil)
	if err != nil {
		return nil, nil, err
	}
	return res.CB, res.Beta, nil
}

// Transcript records the public messages of one conversion.
type Transcript struct {
	n, ca, cb *big.Int
	digest    [32]byte
}

// NewTranscript binds the two ciphertexts to the key they were made under.
func NewTranscript(pub *paillier.PublicKey, ca, cb *paillier.Ciphertext) *Transcript {
	t := &Transcript{
		n:  new(big.Int).Set(pub.N),
		ca: ca.Int(),
		cb: cb.Int(),
	}

	width := pub.CiphertextSize()
	h := blake3.New()
	h.Write(t.n.FillBytes(make([]byte, pub.PlaintextSize())))
	h.Write(t.ca.FillBytes(make([]byte, width)))
	h.Write(t.cb.FillBytes(make([]byte, width)))
	copy(t.digest[:], h.Sum(nil))
	return t
}

func (t *Transcript) N() *big.Int              { return new(big.Int).Set(t.n) }
func (t *Transcript) CA() *paillier.Ciphertext { return paillier.NewCiphertext(t.ca) }
func (t *Transcript) CB() *paillier.Ciphertext { return paillier.NewCiphertext(t.cb) }

// Digest is a BLAKE3-256 hash of the transcript. It reveals nothing secret.
func (t *Transcript) Digest() [32]byte {
	return t.digest
}
