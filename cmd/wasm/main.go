//go:build js && wasm

package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"syscall/js"

	"github.com/smallyu/go-mta-tss/internal/crypto/curves"
	"github.com/smallyu/go-mta-tss/internal/protocol/keygen"
	"github.com/smallyu/go-mta-tss/internal/protocol/sign"
	"github.com/smallyu/go-mta-tss/pkg/mpc"
	"github.com/smallyu/go-mta-tss/pkg/tss"
)

// Active signing sessions, keyed by "<party>-<session>".
var (
	sessions = make(map[string]tss.StateMachine)
	keys     = make(map[string]*keygen.LocalPartySaveData)
)

func main() {
	c := make(chan struct{})

	fmt.Println("Go MtA-TSS WASM Initialized")

	js.Global().Set("GoMtA", map[string]interface{}{
		"NewSign": js.FuncOf(NewSign),
		"Update":  js.FuncOf(Update),
		"Result":  js.FuncOf(Result),
		"Close":   js.FuncOf(Close),

		"GenerateECDSAKeyPair":    js.FuncOf(GenerateECDSAKeyPair),
		"GeneratePaillierKeyPair": octetFunc(2, generatePaillier),
		"MtaClientStep1":          octetFunc(4, mtaClientStep1),
		"MtaServer":               octetFunc(6, mtaServer),
		"MtaClientStep2":          octetFunc(4, mtaClientStep2),
		"SumMtaShares":            octetFunc(6, sumMtaShares),
		"PartialSign":             octetFunc(4, partialSign),
		"SumSignatureShares":      octetFunc(2, sumSignatureShares),
		"ECDSAVerify":             octetFunc(4, ecdsaVerify),
		"ValidatePublicKey":       octetFunc(1, validatePublicKey),
		"DumpPaillierSecretKey":   octetFunc(2, dumpPaillierSecretKey),
		"LoadPaillierSecretKey":   octetFunc(1, loadPaillierSecretKey),
	})

	<-c
}

// NewSign starts a signing session.
// Arguments:
// 0: JSON string of parameters
// Returns:
// JSON {sessionID, messages} or an "error: ..." string
func NewSign(this js.Value, args []js.Value) interface{} {
	if len(args) != 1 {
		return "error: expected 1 argument (jsonParams)"
	}

	type ParamsInput struct {
		PartyID      string   `json:"partyID"`
		AllParties   []string `json:"allParties"`
		SessionID    string   `json:"sessionID"`
		PaillierBits int      `json:"paillierBits"`
		Hash         string   `json:"hash"` // hex
		R            string   `json:"r"`    // hex
		K            string   `json:"k"`    // hex nonce share
		W            string   `json:"w"`    // hex key share
		P            string   `json:"p"`    // hex Paillier prime, optional
		Q            string   `json:"q"`    // hex Paillier prime, optional
	}

	var input ParamsInput
	if err := json.Unmarshal([]byte(args[0].String()), &input); err != nil {
		return fmt.Sprintf("error: invalid json: %v", err)
	}

	parties := make([]tss.PartyID, len(input.AllParties))
	var localParty tss.PartyID
	for i, pid := range input.AllParties {
		p := &SimplePartyID{IDVal: pid, MonikerVal: pid}
		parties[i] = p
		if pid == input.PartyID {
			localParty = p
		}
	}
	if localParty == nil {
		return "error: local party ID not found in allParties"
	}

	hash, err := hex.DecodeString(input.Hash)
	if err != nil {
		return fmt.Sprintf("error: invalid hash: %v", err)
	}
	r, ok := new(big.Int).SetString(input.R, 16)
	if !ok {
		return "error: invalid r"
	}

	curve := curves.NewSecp256k1()
	k, err := decodeScalar(curve, input.K)
	if err != nil {
		return fmt.Sprintf("error: invalid k: %v", err)
	}
	w, err := decodeScalar(curve, input.W)
	if err != nil {
		return fmt.Sprintf("error: invalid w: %v", err)
	}

	params := &tss.Parameters{
		PartyID:       localParty,
		Parties:       parties,
		Curve:         "secp256k1",
		SessionID:     []byte(input.SessionID),
		PaillierBits:  input.PaillierBits,
		HashedMessage: hash,
		R:             r,
	}
	if err := params.Validate(); err != nil {
		return fmt.Sprintf("error: %v", err)
	}

	var keyData *keygen.LocalPartySaveData
	if input.P != "" && input.Q != "" {
		p, q, perr := decodePrimes(input.P, input.Q)
		if perr != nil {
			return fmt.Sprintf("error: %v", perr)
		}
		keyData, err = keygen.NewLocalPartySaveDataFromPrimes(localParty, w, p, q)
	} else {
		keyData, err = keygen.NewLocalPartySaveDataWithShare(rand.Reader, localParty, w, params.Bits())
	}
	if err != nil {
		return fmt.Sprintf("error: key material: %v", err)
	}

	sm, outMsgs, err := sign.NewStateMachine(rand.Reader, params, keyData, k)
	if err != nil {
		keyData.Destroy()
		return fmt.Sprintf("error: failed to create state machine: %v", err)
	}

	handle := fmt.Sprintf("%s-%s", input.PartyID, input.SessionID)
	sessions[handle] = sm
	keys[handle] = keyData

	resp, _ := json.Marshal(map[string]interface{}{
		"sessionID": handle,
		"messages":  encodeMessages(outMsgs),
	})
	return string(resp)
}

// Update applies a peer message to a session.
// Arguments:
// 0: Session ID (string)
// 1: JSON string of message
// Returns:
// JSON array of output messages
func Update(this js.Value, args []js.Value) interface{} {
	if len(args) != 2 {
		return "error: expected 2 arguments (sessionID, jsonMsg)"
	}
	sessionID := args[0].String()

	sm, ok := sessions[sessionID]
	if !ok {
		return "error: session not found"
	}

	var dto MessageDTO
	if err := json.Unmarshal([]byte(args[1].String()), &dto); err != nil {
		return fmt.Sprintf("error: invalid message dto: %v", err)
	}
	data, err := hex.DecodeString(dto.Data)
	if err != nil {
		return fmt.Sprintf("error: invalid hex data: %v", err)
	}

	var to []tss.PartyID
	for _, id := range dto.To {
		to = append(to, &SimplePartyID{IDVal: id, MonikerVal: id})
	}
	msg := &sign.SignMessage{
		FromParty:  &SimplePartyID{IDVal: dto.From, MonikerVal: dto.From},
		ToParties:  to,
		IsBcast:    dto.IsBroadcast,
		Data:       data,
		TypeString: dto.Type,
		RoundNum:   dto.Round,
	}

	next, outMsgs, err := sm.Update(msg)
	if err != nil {
		closeSession(sessionID)
		return fmt.Sprintf("error: update failed: %v", err)
	}
	sessions[sessionID] = next

	return marshalMessages(outMsgs)
}

// Result returns {r, s} in hex once the session has finished, or null.
func Result(this js.Value, args []js.Value) interface{} {
	if len(args) != 1 {
		return "error: expected 1 argument (sessionID)"
	}
	sm, ok := sessions[args[0].String()]
	if !ok {
		return "error: session not found"
	}

	sig, ok := sm.Result().(*sign.Signature)
	if !ok || sig == nil {
		return nil
	}
	b, _ := json.Marshal(map[string]string{
		"r": hex.EncodeToString(sig.R.Bytes()),
		"s": hex.EncodeToString(sig.S.Bytes()),
	})
	return string(b)
}

// Close drops a session and wipes its Paillier key.
func Close(this js.Value, args []js.Value) interface{} {
	if len(args) != 1 {
		return "error: expected 1 argument (sessionID)"
	}
	closeSession(args[0].String())
	return nil
}

func closeSession(id string) {
	if kd, ok := keys[id]; ok {
		kd.Destroy()
	}
	delete(keys, id)
	delete(sessions, id)
}

// GenerateECDSAKeyPair returns {sk, pk} in hex.
func GenerateECDSAKeyPair(this js.Value, args []js.Value) interface{} {
	sk, pk, err := mpc.GenerateECDSAKeyPair(rand.Reader)
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	b, _ := json.Marshal(map[string]string{"sk": hex.EncodeToString(sk), "pk": hex.EncodeToString(pk)})
	return string(b)
}

// octetFunc adapts a byte-oriented call to hex strings. An empty string argument
// is passed as nil, which the octet API reads as "draw it".
func octetFunc(arity int, fn func(in [][]byte) (map[string][]byte, error)) js.Func {
	return js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		if len(args) != arity {
			return fmt.Sprintf("error: expected %d arguments", arity)
		}
		in := make([][]byte, arity)
		for i, a := range args {
			if a.String() == "" {
				continue
			}
			b, err := hex.DecodeString(a.String())
			if err != nil {
				return fmt.Sprintf("error: argument %d: %v", i, err)
			}
			in[i] = b
		}

		out, err := fn(in)
		if err != nil {
			return fmt.Sprintf("error: %v", err)
		}
		enc := make(map[string]string, len(out))
		for k, v := range out {
			enc[k] = hex.EncodeToString(v)
		}
		b, _ := json.Marshal(enc)
		return string(b)
	})
}

func generatePaillier(in [][]byte) (map[string][]byte, error) {
	k, err := mpc.GeneratePaillierKeyPair(rand.Reader, in[0], in[1])
	if err != nil {
		return nil, err
	}
	return map[string][]byte{"n": k.N, "g": k.G, "l": k.L, "m": k.M}, nil
}

func mtaClientStep1(in [][]byte) (map[string][]byte, error) {
	ca, r, err := mpc.MtaClientStep1(rand.Reader, in[0], in[1], in[2], in[3])
	return map[string][]byte{"ca": ca, "r": r}, err
}

func mtaServer(in [][]byte) (map[string][]byte, error) {
	cb, beta, err := mpc.MtaServer(rand.Reader, in[0], in[1], in[2], in[3], in[4], in[5])
	return map[string][]byte{"cb": cb, "beta": beta}, err
}

func mtaClientStep2(in [][]byte) (map[string][]byte, error) {
	alpha, err := mpc.MtaClientStep2(in[0], in[1], in[2], in[3])
	return map[string][]byte{"alpha": alpha}, err
}

func sumMtaShares(in [][]byte) (map[string][]byte, error) {
	sum, err := mpc.SumMtaShares(in[0], in[1], in[2], in[3], in[4], in[5])
	return map[string][]byte{"sum": sum}, err
}

func partialSign(in [][]byte) (map[string][]byte, error) {
	s, err := mpc.PartialSign(in[0], in[1], in[2], in[3])
	return map[string][]byte{"s": s}, err
}

func sumSignatureShares(in [][]byte) (map[string][]byte, error) {
	s, err := mpc.SumSignatureShares(in[0], in[1])
	return map[string][]byte{"s": s}, err
}

func ecdsaVerify(in [][]byte) (map[string][]byte, error) {
	return map[string][]byte{}, mpc.ECDSAVerify(in[0], in[1], in[2], in[3])
}

func validatePublicKey(in [][]byte) (map[string][]byte, error) {
	return map[string][]byte{}, mpc.ValidatePublicKey(in[0])
}

func dumpPaillierSecretKey(in [][]byte) (map[string][]byte, error) {
	data, err := mpc.DumpPaillierSecretKey(in[0], in[1])
	return map[string][]byte{"sk": data}, err
}

func loadPaillierSecretKey(in [][]byte) (map[string][]byte, error) {
	k, err := mpc.LoadPaillierSecretKey(in[0])
	if err != nil {
		return nil, err
	}
	return map[string][]byte{"n": k.N, "g": k.G, "l": k.L, "m": k.M}, nil
}

// Helpers

type SimplePartyID struct {
	IDVal      string
	MonikerVal string
}

func (p *SimplePartyID) ID() string      { return p.IDVal }
func (p *SimplePartyID) Moniker() string { return p.MonikerVal }
func (p *SimplePartyID) Key() []byte     { return []byte(p.IDVal) }

// MessageDTO is the JSON form of a session message. Data is hex.
type MessageDTO struct {
	From        string   `json:"from"`
	To          []string `json:"to"`
	IsBroadcast bool     `json:"isBroadcast"`
	Data        string   `json:"data"`
	Type        string   `json:"type"`
	Round       uint32   `json:"round"`
}

func decodeScalar(curve *curves.Secp256k1, s string) (curves.Scalar, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return curve.ScalarFromBytes(b)
}

func decodePrimes(p, q string) (*big.Int, *big.Int, error) {
	pi, pOK := new(big.Int).SetString(p, 16)
	qi, qOK := new(big.Int).SetString(q, 16)
	if !pOK || !qOK {
		return nil, nil, fmt.Errorf("invalid p/q")
	}
	return pi, qi, nil
}

func encodeMessages(msgs []tss.Message) []MessageDTO {
	out := make([]MessageDTO, 0, len(msgs))
	for _, m := range msgs {
		dto := MessageDTO{
			From:        m.From().ID(),
			IsBroadcast: m.IsBroadcast(),
			Data:        hex.EncodeToString(m.Payload()),
			Type:        m.Type(),
			Round:       m.RoundNumber(),
		}
		for _, p := range m.To() {
			dto.To = append(dto.To, p.ID())
		}
		out = append(out, dto)
	}
	return out
}

func marshalMessages(msgs []tss.Message) string {
	b, _ := json.Marshal(encodeMessages(msgs))
	return string(b)
}
