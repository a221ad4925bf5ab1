package sign

import (
	"github.com/smallyu/go-mta-tss/internal/crypto/curves"
	"github.com/smallyu/go-mta-tss/pkg/tss"
)

// Signature represents the result of the signing protocol.
type Signature struct {
	R curves.Scalar
	S curves.Scalar
}

// Bytes returns r || s, each at the curve's scalar width.
func (sig *Signature) Bytes() []byte {
	return append(sig.R.Bytes(), sig.S.Bytes()...)
}

// Message types of the two-party session.
const (
	TypeRound1 = "SignRound1_MtARequest"
	TypeRound2 = "SignRound2_MtAResponse"
	TypeRound3 = "SignRound3_PartialSignature"
)

// Round1Payload carries the sender's Paillier modulus and Enc(k_i) under it.
type Round1Payload struct {
	N  []byte `cbor:"1,keyasint"`
	CA []byte `cbor:"2,keyasint"`
}

// Round2Payload carries Enc(k_j)^w_i * Enc(z) back to the peer.
type Round2Payload struct {
	CB []byte `cbor:"1,keyasint"`
}

// Round3Payload carries the sender's partial signature s_i.
type Round3Payload struct {
	Si []byte `cbor:"1,keyasint"`
}

// SignMessage is the concrete message type for Signing.
type SignMessage struct {
	FromParty  tss.PartyID
	ToParties  []tss.PartyID
	IsBcast    bool
	Data       []byte
	TypeString string
	RoundNum   uint32
}

func (m *SignMessage) Type() string {
	return m.TypeString
}

func (m *SignMessage) From() tss.PartyID {
	return m.FromParty
}

func (m *SignMessage) To() []tss.PartyID {
	return m.ToParties
}

func (m *SignMessage) IsBroadcast() bool {
	return m.IsBcast
}

func (m *SignMessage) Payload() []byte {
	return m.Data
}

func (m *SignMessage) RoundNumber() uint32 {
	return m.RoundNum
}
