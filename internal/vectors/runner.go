package vectors

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/big"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/smallyu/go-mta-tss/internal/crypto/curves"
	"github.com/smallyu/go-mta-tss/internal/crypto/mta"
	"github.com/smallyu/go-mta-tss/internal/crypto/paillier"
	"github.com/smallyu/go-mta-tss/internal/crypto/shares"
	"github.com/smallyu/go-mta-tss/internal/protocol/sign"
)

var (
	// ErrUnexpectedResult means the computed S disagreed with the record's RESULT.
	ErrUnexpectedResult = errors.New("vectors: unexpected result")
	// ErrMissingField means a required field is absent.
	ErrMissingField = errors.New("vectors: missing field")
)

// Outcome is what one record produced.
type Outcome struct {
	Test    int
	S       []byte
	Matched bool
}

// party holds one side's inputs. Field names carry the party's digit.
type party struct {
	priv *paillier.PrivateKey
	k, w curves.Scalar
	// randomness for its own request, and for its answer to the peer
	rClient, rServer *big.Int
	// mask used when answering the peer
	z curves.Scalar
}

// Run replays rec through two MtA conversions, SumMtA, PartialSign and SumS.
// Missing primes are generated at paillierBits, missing randomness and masks
// are drawn from random. The returned error wraps ErrUnexpectedResult when the
// comparison against SIG_S contradicts RESULT.
func Run(random io.Reader, rec *Record, paillierBits int) (*Outcome, error) {
	curve := curves.NewSecp256k1()

	p1, err := loadParty(random, rec, curve, "1", "2", paillierBits)
	if err != nil {
		return nil, err
	}
	defer p1.priv.Destroy()
	p2, err := loadParty(random, rec, curve, "2", "1", paillierBits)
	if err != nil {
		return nil, err
	}
	defer p2.priv.Destroy()

	sigR, err := scalarField(rec, curve, "SIG_R")
	if err != nil {
		return nil, err
	}
	golden, ok := rec.Fields["SIG_S"]
	if !ok {
		return nil, fmt.Errorf("%w: test %d: SIG_S", ErrMissingField, rec.Test)
	}

	var hm curves.Scalar
	switch {
	case rec.Has("HM"):
		hm = curve.ScalarFromBigInt(new(big.Int).SetBytes(rec.Fields["HM"]))
	case rec.Has("M"):
		hm = curve.HashToScalar(rec.Fields["M"])
	default:
		return nil, fmt.Errorf("%w: test %d: HM or M", ErrMissingField, rec.Test)
	}

	// alpha1 + beta2 = k1*w2, alpha2 + beta1 = k2*w1
	alpha1, beta2, err := convert(random, curve, p1, p2)
	if err != nil {
		return nil, fmt.Errorf("test %d: k1*w2: %w", rec.Test, err)
	}
	alpha2, beta1, err := convert(random, curve, p2, p1)
	if err != nil {
		return nil, fmt.Errorf("test %d: k2*w1: %w", rec.Test, err)
	}

	sum1 := shares.SumMtAN(p1.k, p1.w, alpha1, beta1)
	sum2 := shares.SumMtAN(p2.k, p2.w, alpha2, beta2)

	s1, err := sign.PartialSign(hm, sigR, p1.k, sum1)
	if err != nil {
		return nil, fmt.Errorf("test %d: party 1: %w", rec.Test, err)
	}
	s2, err := sign.PartialSign(hm, sigR, p2.k, sum2)
	if err != nil {
		return nil, fmt.Errorf("test %d: party 2: %w", rec.Test, err)
	}

	out := &Outcome{Test: rec.Test, S: shares.SumS(s1, s2).Bytes()}
	out.Matched = bytes.Equal(out.S, golden)

	logger := log.WithFields(log.Fields{"test": rec.Test, "matched": out.Matched})
	if rc := boolToInt(!out.Matched); rc != rec.Result {
		logger.WithField("sig_s", hex.EncodeToString(out.S)).Warn("vector failed")
		return out, fmt.Errorf("%w: test %d: got %x, golden %x, want result %d",
			ErrUnexpectedResult, rec.Test, out.S, golden, rec.Result)
	}
	logger.Debug("vector passed")
	return out, nil
}

// RunAll runs records on up to workers goroutines and stops at the first failure.
// Outcomes are returned in record order.
func RunAll(ctx context.Context, random io.Reader, records []*Record, workers, paillierBits int) ([]*Outcome, error) {
	if workers < 1 {
		workers = 1
	}
	outcomes := make([]*Outcome, len(records))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, rec := range records {
		i, rec := i, rec
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := Run(random, rec, paillierBits)
			outcomes[i] = out
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

// convert runs one MtA with client's nonce share against server's key share.
func convert(random io.Reader, curve curves.Curve, client, server *party) (alpha, beta curves.Scalar, err error) {
	pub := &client.priv.PublicKey
	ca, _, err := mta.Client1(random, pub, curve, client.k, client.rClient)
	if err != nil {
		return nil, nil, err
	}
	res, err := mta.Server(random, pub, curve, server.w, ca, server.z, server.rServer)
	if err != nil {
		return nil, nil, err
	}
	alpha, err = mta.Client2(client.priv, curve, res.CB)
	if err != nil {
		return nil, nil, err
	}
	return alpha, res.Beta, nil
}

// loadParty reads party i's fields. R<i><i> encrypts its nonce share, and its
// answer to peer j's request uses R<j><i> and Z<j><i>.
func loadParty(random io.Reader, rec *Record, curve curves.Curve, i, j string, bits int) (*party, error) {
	var (
		p   party
		err error
	)

	// scalars first, so a short record never holds a key
	if p.k, err = scalarField(rec, curve, "K"+i); err != nil {
		return nil, err
	}
	if p.w, err = scalarField(rec, curve, "W"+i); err != nil {
		return nil, err
	}
	if b, ok := rec.Fields["R"+i+i]; ok {
		p.rClient = new(big.Int).SetBytes(b)
	}
	if b, ok := rec.Fields["R"+j+i]; ok {
		p.rServer = new(big.Int).SetBytes(b)
	}
	if b, ok := rec.Fields["Z"+j+i]; ok {
		p.z = curve.ScalarFromBigInt(new(big.Int).SetBytes(b))
	}

	pBytes, hasP := rec.Fields["P"+i]
	qBytes, hasQ := rec.Fields["Q"+i]
	switch {
	case hasP && hasQ:
		p.priv, err = paillier.NewKeyPair(new(big.Int).SetBytes(pBytes), new(big.Int).SetBytes(qBytes))
	case hasP != hasQ:
		err = fmt.Errorf("%w: test %d: P%s and Q%s come together", ErrMissingField, rec.Test, i, i)
	default:
		p.priv, err = paillier.GenerateKey(random, bits)
	}
	if err != nil {
		if p.priv != nil {
			p.priv.Destroy()
		}
		return nil, err
	}
	return &p, nil
}

func scalarField(rec *Record, curve curves.Curve, key string) (curves.Scalar, error) {
	b, ok := rec.Fields[key]
	if !ok {
		return nil, fmt.Errorf("%w: test %d: %s", ErrMissingField, rec.Test, key)
	}
	return curve.ScalarFromBigInt(new(big.Int).SetBytes(b)), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
