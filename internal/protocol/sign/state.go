package sign

import (
	"encoding/hex"
	"fmt"
	"io"
	"math/big"

	log "github.com/sirupsen/logrus"

	"github.com/smallyu/go-mta-tss/internal/crypto/curves"
	"github.com/smallyu/go-mta-tss/internal/crypto/mta"
	"github.com/smallyu/go-mta-tss/internal/crypto/paillier"
	"github.com/smallyu/go-mta-tss/internal/protocol/keygen"
	"github.com/smallyu/go-mta-tss/pkg/tss"
)

const lastRound = 3

type state struct {
	params  *tss.Parameters
	keyData *keygen.LocalPartySaveData
	random  io.Reader
	curve   *curves.Secp256k1
	peer    tss.PartyID
	logger  *log.Entry

	hm, r curves.Scalar
	ki    curves.Scalar

	client *mta.ClientSession
	alpha  curves.Scalar
	beta   curves.Scalar
	si     curves.Scalar

	peerPk      *paillier.PublicKey
	transcripts []*mta.Transcript

	round int
	// Messages that arrived ahead of the current round
	pending map[uint32]tss.Message
}

// NewStateMachine initializes a two-party signing session for the local party.
// ki is the party's nonce share; r in params must be derived from the joint nonce.
// Both parties produce the same Signature.
func NewStateMachine(random io.Reader, params *tss.Parameters, keyData *keygen.LocalPartySaveData, ki curves.Scalar) (tss.StateMachine, []tss.Message, error) {
	if err := params.Validate(); err != nil {
		return nil, nil, err
	}
	if params.Curve != "" && params.Curve != "secp256k1" {
		return nil, nil, fmt.Errorf("%w: signing supports secp256k1 only, got %s", tss.ErrInvalidParameters, params.Curve)
	}
	if keyData == nil || keyData.PaillierSk == nil || keyData.Wi == nil {
		return nil, nil, fmt.Errorf("%w: incomplete key data", tss.ErrInvalidParameters)
	}
	if ki == nil || ki.IsZero() {
		return nil, nil, fmt.Errorf("sign: nonce share is zero: %w", tss.ErrInvalidNonceShare)
	}

	curve := curves.NewSecp256k1()
	s := &state{
		params:  params,
		keyData: keyData,
		random:  random,
		curve:   curve,
		peer:    params.Peer(),
		hm:      curve.ScalarFromBigInt(new(big.Int).SetBytes(params.HashedMessage)),
		r:       curve.ScalarFromBigInt(params.R),
		ki:      ki,
		round:   1,
		pending: make(map[uint32]tss.Message),
	}
	s.logger = log.WithFields(log.Fields{
		"party":   params.PartyID.ID(),
		"session": hex.EncodeToString(params.SessionID),
	})
	if s.r.IsZero() {
		return nil, nil, fmt.Errorf("%w: r reduces to zero", tss.ErrInvalidParameters)
	}

	return s.round1()
}

func (s *state) Update(msg tss.Message) (tss.StateMachine, []tss.Message, error) {
	senderID := msg.From().ID()
	if senderID == s.params.PartyID.ID() {
		return s, nil, nil
	}
	if senderID != s.peer.ID() {
		return nil, nil, fmt.Errorf("%w: message from unknown party %s", tss.ErrInvalidMsg, senderID)
	}

	rn := msg.RoundNumber()
	if rn < uint32(s.round) || rn > lastRound {
		return nil, nil, fmt.Errorf("%w: received message for round %d, expected %d", tss.ErrInvalidMsg, rn, s.round)
	}
	if _, dup := s.pending[rn]; dup {
		return nil, nil, fmt.Errorf("%w: duplicate message type %s from party %s", tss.ErrInvalidMsg, msg.Type(), senderID)
	}
	s.pending[rn] = msg

	var out []tss.Message
	for {
		next, ok := s.pending[uint32(s.round)]
		if !ok {
			return s, out, nil
		}
		delete(s.pending, uint32(s.round))

		sm, msgs, err := s.nextRound(next)
		if err != nil {
			s.logger.WithField("round", s.round).WithError(err).Warn("signing session aborted")
			return nil, nil, err
		}
		out = append(out, msgs...)
		if _, done := sm.(*finishedState); done {
			return sm, out, nil
		}
	}
}

func (s *state) nextRound(msg tss.Message) (tss.StateMachine, []tss.Message, error) {
	switch s.round {
	case 1:
		return s.round2(msg)
	case 2:
		return s.round3(msg)
	case 3:
		return s.finish(msg)
	default:
		return nil, nil, fmt.Errorf("unknown round %d", s.round)
	}
}

func (s *state) Result() interface{} {
	return nil
}

func (s *state) Details() string {
	return fmt.Sprintf("Sign Round %d", s.round)
}

func (s *state) send(typ string, round uint32, data []byte) tss.Message {
	return &SignMessage{
		FromParty:  s.params.PartyID,
		ToParties:  []tss.PartyID{s.peer},
		IsBcast:    false,
		Data:       data,
		TypeString: typ,
		RoundNum:   round,
	}
}

func (s *state) blame(reason string, err error) error {
	return tss.NewBlame(s.peer, reason, err)
}

// Finished state
type finishedState struct {
	signature   *Signature
	transcripts []*mta.Transcript
}

func (s *finishedState) Update(msg tss.Message) (tss.StateMachine, []tss.Message, error) {
	return nil, nil, tss.ErrProtocolDone
}

func (s *finishedState) Result() interface{} {
	return s.signature
}

func (s *finishedState) Details() string {
	return "Sign Finished"
}

// Transcripts returns the public records of the session's conversions.
func (s *finishedState) Transcripts() []*mta.Transcript {
	return s.transcripts
}
