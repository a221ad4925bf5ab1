package sign

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"sync"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallyu/go-mta-tss/internal/crypto/curves"
	"github.com/smallyu/go-mta-tss/internal/protocol/keygen"
	"github.com/smallyu/go-mta-tss/pkg/tss"
)

type MockPartyID struct {
	id string
}

func (m *MockPartyID) ID() string      { return m.id }
func (m *MockPartyID) Moniker() string { return m.id }
func (m *MockPartyID) Key() []byte     { return []byte(m.id) }

var (
	partiesOnce sync.Once
	partyKeys   [2]*keygen.LocalPartySaveData
	partiesErr  error
	parties     = []tss.PartyID{&MockPartyID{id: "1"}, &MockPartyID{id: "2"}}
)

func setupParties(t testing.TB) [2]*keygen.LocalPartySaveData {
	t.Helper()
	partiesOnce.Do(func() {
		for i := range partyKeys {
			partyKeys[i], partiesErr = keygen.NewLocalPartySaveData(rand.Reader, parties[i], 1024)
			if partiesErr != nil {
				return
			}
		}
	})
	require.NoError(t, partiesErr)
	return partyKeys
}

func newSessions(t testing.TB, k1, k2, r curves.Scalar, hash []byte) ([2]tss.StateMachine, [2][]tss.Message) {
	t.Helper()
	keys := setupParties(t)

	var sms [2]tss.StateMachine
	var out [2][]tss.Message
	ks := [2]curves.Scalar{k1, k2}
	for i := 0; i < 2; i++ {
		params := &tss.Parameters{
			PartyID:       parties[i],
			Parties:       parties,
			Curve:         "secp256k1",
			SessionID:     []byte("sign-session"),
			HashedMessage: hash,
			R:             r.BigInt(),
		}
		sm, msgs, err := NewStateMachine(rand.Reader, params, keys[i], ks[i])
		require.NoError(t, err, "party %d", i)
		sms[i] = sm
		out[i] = msgs
	}
	return sms, out
}

// deliver hands msg to its recipient and returns the recipient's replies.
func deliver(t testing.TB, sms *[2]tss.StateMachine, msg tss.Message) []tss.Message {
	t.Helper()
	to := 0
	if msg.From().ID() == parties[0].ID() {
		to = 1
	}
	next, out, err := sms[to].Update(msg)
	require.NoError(t, err, "party %d", to)
	sms[to] = next
	return out
}

func runToCompletion(t *testing.T, sms *[2]tss.StateMachine, out [2][]tss.Message) [2]*Signature {
	t.Helper()
	queue := append(append([]tss.Message{}, out[0]...), out[1]...)
	for len(queue) > 0 {
		msg := queue[0]
		queue = queue[1:]
		queue = append(queue, deliver(t, sms, msg)...)
	}

	var sigs [2]*Signature
	for i := range sms {
		res := sms[i].Result()
		require.NotNil(t, res, "party %d did not finish: %s", i, sms[i].Details())
		sigs[i] = res.(*Signature)
	}
	return sigs
}

func TestSessionEqualNonceShares(t *testing.T) {
	curve := curves.NewSecp256k1()
	keys := setupParties(t)
	hash := sha256.Sum256([]byte("hello world"))
	hm := curve.HashToScalar([]byte("hello world"))

	// With k1 = k2 = k the masks cancel: s = k^-1 * (2*hm + r*(k1+k2)*(w1+w2)).
	k := randomScalar(t, curve)
	r := randomScalar(t, curve)

	sms, out := newSessions(t, k, k, r, hash[:])
	assert.Equal(t, "Sign Round 1", sms[0].Details())
	sigs := runToCompletion(t, &sms, out)

	two := scalar(curve, 2)
	w := keys[0].Wi.Add(keys[1].Wi)
	want := k.Invert().Mul(two.Mul(hm).Add(r.Mul(two.Mul(k)).Mul(w)))

	for i, sig := range sigs {
		assert.True(t, sig.R.Equal(r), "party %d", i)
		assert.True(t, sig.S.Equal(want), "party %d", i)
	}
}

func TestSessionPartiesAgree(t *testing.T) {
	curve := curves.NewSecp256k1()
	hash := sha256.Sum256([]byte("agree"))

	sms, out := newSessions(t, randomScalar(t, curve), randomScalar(t, curve), randomScalar(t, curve), hash[:])
	sigs := runToCompletion(t, &sms, out)
	assert.True(t, sigs[0].S.Equal(sigs[1].S))

	for i := range sms {
		fin, ok := sms[i].(*finishedState)
		require.True(t, ok, "party %d", i)
		assert.Equal(t, "Sign Finished", fin.Details())
		// one conversion served, one opened
		assert.Len(t, fin.Transcripts(), 2)
	}
}

func TestSessionOutOfOrderDelivery(t *testing.T) {
	curve := curves.NewSecp256k1()
	hash := sha256.Sum256([]byte("reordered"))

	sms, out := newSessions(t, randomScalar(t, curve), randomScalar(t, curve), randomScalar(t, curve), hash[:])
	a1, b1 := out[0][0], out[1][0]

	b2 := deliver(t, &sms, a1)
	require.Len(t, b2, 1)

	// party 1 sees the peer's round 2 before its round 1
	early := deliver(t, &sms, b2[0])
	assert.Empty(t, early)

	a23 := deliver(t, &sms, b1)
	require.Len(t, a23, 2)
	assert.Equal(t, TypeRound2, a23[0].Type())
	assert.Equal(t, TypeRound3, a23[1].Type())

	b3 := deliver(t, &sms, a23[0])
	require.Len(t, b3, 1)
	assert.Empty(t, deliver(t, &sms, a23[1]))
	assert.Empty(t, deliver(t, &sms, b3[0]))

	s0 := sms[0].Result().(*Signature)
	s1 := sms[1].Result().(*Signature)
	assert.True(t, s0.S.Equal(s1.S))

	_, _, err := sms[0].Update(b3[0])
	assert.True(t, errors.Is(err, tss.ErrProtocolDone))
}

func TestSessionRejectsBadMessages(t *testing.T) {
	curve := curves.NewSecp256k1()
	hash := sha256.Sum256([]byte("bad"))

	t.Run("unknown sender", func(t *testing.T) {
		sms, _ := newSessions(t, randomScalar(t, curve), randomScalar(t, curve), randomScalar(t, curve), hash[:])
		msg := &SignMessage{FromParty: &MockPartyID{id: "9"}, TypeString: TypeRound1, RoundNum: 1}
		_, _, err := sms[0].Update(msg)
		assert.True(t, errors.Is(err, tss.ErrInvalidMsg))
	})

	t.Run("duplicate", func(t *testing.T) {
		sms, out := newSessions(t, randomScalar(t, curve), randomScalar(t, curve), randomScalar(t, curve), hash[:])
		deliver(t, &sms, out[1][0])
		_, _, err := sms[0].Update(out[1][0])
		assert.True(t, errors.Is(err, tss.ErrInvalidMsg))
	})

	t.Run("own message ignored", func(t *testing.T) {
		sms, out := newSessions(t, randomScalar(t, curve), randomScalar(t, curve), randomScalar(t, curve), hash[:])
		next, msgs, err := sms[0].Update(out[0][0])
		require.NoError(t, err)
		assert.Empty(t, msgs)
		assert.Equal(t, sms[0], next)
	})

	t.Run("malformed payload blames peer", func(t *testing.T) {
		sms, _ := newSessions(t, randomScalar(t, curve), randomScalar(t, curve), randomScalar(t, curve), hash[:])
		msg := &SignMessage{FromParty: parties[1], TypeString: TypeRound1, RoundNum: 1, Data: []byte{0xff}}
		_, _, err := sms[0].Update(msg)

		var blame *tss.Blame
		require.True(t, errors.As(err, &blame))
		assert.Equal(t, "2", blame.PartyID.ID())
	})

	t.Run("truncated ciphertext", func(t *testing.T) {
		sms, out := newSessions(t, randomScalar(t, curve), randomScalar(t, curve), randomScalar(t, curve), hash[:])
		orig := out[1][0].(*SignMessage)
		var p Round1Payload
		require.NoError(t, cbor.Unmarshal(orig.Data, &p))
		p.CA = p.CA[1:]
		data, err := cbor.Marshal(p)
		require.NoError(t, err)

		tampered := *orig
		tampered.Data = data
		_, _, err = sms[0].Update(&tampered)
		assert.True(t, errors.Is(err, tss.ErrInvalidCiphertext))
	})
}

func TestNewStateMachineRejects(t *testing.T) {
	curve := curves.NewSecp256k1()
	keys := setupParties(t)
	hash := sha256.Sum256([]byte("x"))

	params := &tss.Parameters{
		PartyID:       parties[0],
		Parties:       parties,
		HashedMessage: hash[:],
		R:             scalar(curve, 5).BigInt(),
	}

	_, _, err := NewStateMachine(rand.Reader, params, keys[0], scalar(curve, 0))
	assert.True(t, errors.Is(err, tss.ErrInvalidNonceShare))

	_, _, err = NewStateMachine(rand.Reader, params, nil, scalar(curve, 1))
	assert.True(t, errors.Is(err, tss.ErrInvalidParameters))

	other := *params
	other.Curve = "ed25519"
	_, _, err = NewStateMachine(rand.Reader, &other, keys[0], scalar(curve, 1))
	assert.True(t, errors.Is(err, tss.ErrInvalidParameters))

	other = *params
	other.R = curve.Order()
	_, _, err = NewStateMachine(rand.Reader, &other, keys[0], scalar(curve, 1))
	assert.True(t, errors.Is(err, tss.ErrInvalidParameters))
}
