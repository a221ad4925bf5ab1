package sign

import (
	"math/big"

	"github.com/fxamacker/cbor/v2"

	"github.com/smallyu/go-mta-tss/internal/crypto/mta"
	"github.com/smallyu/go-mta-tss/internal/crypto/paillier"
	"github.com/smallyu/go-mta-tss/pkg/tss"
)

// round2 serves the peer's conversion with b = w_i and keeps beta.
func (s *state) round2(msg tss.Message) (tss.StateMachine, []tss.Message, error) {
	var payload Round1Payload
	if err := cbor.Unmarshal(msg.Payload(), &payload); err != nil {
		return nil, nil, s.blame("malformed round 1 payload", tss.ErrInvalidMsg)
	}

	peerPk, err := paillier.NewPublicKey(new(big.Int).SetBytes(payload.N))
	if err != nil {
		return nil, nil, s.blame("bad paillier modulus", err)
	}
	ca, err := peerPk.CiphertextFromBytes(payload.CA)
	if err != nil {
		return nil, nil, s.blame("bad MtA request", err)
	}

	server, err := mta.NewServerSession(s.random, peerPk, s.curve, s.keyData.Wi)
	if err != nil {
		return nil, nil, s.blame("unusable paillier key", err)
	}
	cb, beta, err := server.Respond(ca)
	if err != nil {
		return nil, nil, err
	}
	s.peerPk = peerPk
	s.beta = beta
	s.transcripts = append(s.transcripts, mta.NewTranscript(peerPk, ca, cb))

	cbBytes, err := peerPk.CiphertextBytes(cb)
	if err != nil {
		return nil, nil, err
	}
	data, err := cbor.Marshal(Round2Payload{CB: cbBytes})
	if err != nil {
		return nil, nil, err
	}

	s.round = 2
	s.logger.Debug("sign round 2: answered MtA request")
	return s, []tss.Message{s.send(TypeRound2, 2, data)}, nil
}
