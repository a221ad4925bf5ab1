package sign

import (
	"encoding/hex"

	"github.com/fxamacker/cbor/v2"

	"github.com/smallyu/go-mta-tss/internal/crypto/shares"
	"github.com/smallyu/go-mta-tss/pkg/tss"
)

// round3 opens the peer's answer, folds the shares and sends s_i.
func (s *state) round3(msg tss.Message) (tss.StateMachine, []tss.Message, error) {
	var payload Round2Payload
	if err := cbor.Unmarshal(msg.Payload(), &payload); err != nil {
		return nil, nil, s.blame("malformed round 2 payload", tss.ErrInvalidMsg)
	}
	cb, err := s.keyData.PaillierPk().CiphertextFromBytes(payload.CB)
	if err != nil {
		return nil, nil, s.blame("bad MtA response", err)
	}

	alpha, transcript, err := s.client.Finalize(cb)
	if err != nil {
		return nil, nil, s.blame("undecryptable MtA response", err)
	}
	s.alpha = alpha
	s.transcripts = append(s.transcripts, transcript)

	sum := shares.SumMtAN(s.ki, s.keyData.Wi, s.alpha, s.beta)
	si, err := PartialSign(s.hm, s.r, s.ki, sum)
	if err != nil {
		return nil, nil, err
	}
	s.si = si

	data, err := cbor.Marshal(Round3Payload{Si: si.Bytes()})
	if err != nil {
		return nil, nil, err
	}

	digest := transcript.Digest()
	s.round = 3
	s.logger.WithField("transcript", hex.EncodeToString(digest[:8])).Debug("sign round 3: sent partial signature")
	return s, []tss.Message{s.send(TypeRound3, 3, data)}, nil
}

// finish adds the peer's partial signature to ours.
func (s *state) finish(msg tss.Message) (tss.StateMachine, []tss.Message, error) {
	var payload Round3Payload
	if err := cbor.Unmarshal(msg.Payload(), &payload); err != nil {
		return nil, nil, s.blame("malformed round 3 payload", tss.ErrInvalidMsg)
	}
	sj, err := s.curve.ScalarFromBytes(payload.Si)
	if err != nil {
		return nil, nil, s.blame("bad partial signature", err)
	}

	sig := &Signature{R: s.r, S: shares.SumS(s.si, sj)}
	s.logger.Info("signature assembled")
	return &finishedState{signature: sig, transcripts: s.transcripts}, nil, nil
}
