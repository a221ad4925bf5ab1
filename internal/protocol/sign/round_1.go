package sign

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/smallyu/go-mta-tss/internal/crypto/mta"
	"github.com/smallyu/go-mta-tss/pkg/tss"
)

// round1 opens the conversion in which this party is the client: it sends its
// Paillier modulus and Enc(k_i).
func (s *state) round1() (tss.StateMachine, []tss.Message, error) {
	client, ca, err := mta.NewClientSession(s.random, s.keyData.PaillierSk, s.curve, s.ki)
	if err != nil {
		return nil, nil, fmt.Errorf("sign: encrypt nonce share: %w", err)
	}
	s.client = client

	pk := s.keyData.PaillierPk()
	caBytes, err := pk.CiphertextBytes(ca)
	if err != nil {
		return nil, nil, err
	}
	data, err := cbor.Marshal(Round1Payload{N: pk.N.Bytes(), CA: caBytes})
	if err != nil {
		return nil, nil, err
	}

	s.logger.WithField("paillier_bits", pk.N.BitLen()).Debug("sign round 1: sent MtA request")
	return s, []tss.Message{s.send(TypeRound1, 1, data)}, nil
}
