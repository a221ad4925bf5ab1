package keygen

import (
	"fmt"
	"io"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/smallyu/go-mta-tss/internal/crypto/curves"
	"github.com/smallyu/go-mta-tss/internal/crypto/paillier"
	"github.com/smallyu/go-mta-tss/pkg/tss"
)

// LocalPartySaveData is the key material a party keeps for signing sessions.
type LocalPartySaveData struct {
	LocalPartyID tss.PartyID

	// Key share w_i and W_i = w_i*G
	Wi        curves.Scalar
	PublicKey *btcec.PublicKey

	PaillierSk *paillier.PrivateKey
}

// NewLocalPartySaveData generates a fresh key share and Paillier key pair.
func NewLocalPartySaveData(random io.Reader, id tss.PartyID, paillierBits int) (*LocalPartySaveData, error) {
	kp, err := GenerateECDSAKeyPair(random)
	if err != nil {
		return nil, err
	}
	sk, err := paillier.GenerateKey(random, paillierBits)
	if err != nil {
		return nil, fmt.Errorf("keygen: paillier key: %w", err)
	}
	return &LocalPartySaveData{
		LocalPartyID: id,
		Wi:           kp.Secret,
		PublicKey:    kp.Public,
		PaillierSk:   sk,
	}, nil
}

// NewLocalPartySaveDataWithShare keeps the caller's key share and generates a
// fresh Paillier key pair for it.
func NewLocalPartySaveDataWithShare(random io.Reader, id tss.PartyID, wi curves.Scalar, paillierBits int) (*LocalPartySaveData, error) {
	if wi == nil || wi.IsZero() {
		return nil, fmt.Errorf("keygen: key share must be nonzero: %w", tss.ErrInvalidFactor)
	}
	sk, err := paillier.GenerateKey(random, paillierBits)
	if err != nil {
		return nil, fmt.Errorf("keygen: paillier key: %w", err)
	}
	kp := keyPairFromScalar(wi)
	return &LocalPartySaveData{
		LocalPartyID: id,
		Wi:           kp.Secret,
		PublicKey:    kp.Public,
		PaillierSk:   sk,
	}, nil
}

// NewLocalPartySaveDataFromPrimes builds the save data from a given key share
// and Paillier primes.
func NewLocalPartySaveDataFromPrimes(id tss.PartyID, wi curves.Scalar, p, q *big.Int) (*LocalPartySaveData, error) {
	if wi == nil || wi.IsZero() {
		return nil, fmt.Errorf("keygen: key share must be nonzero: %w", tss.ErrInvalidFactor)
	}
	sk, err := paillier.NewKeyPair(p, q)
	if err != nil {
		return nil, err
	}
	kp := keyPairFromScalar(wi)
	return &LocalPartySaveData{
		LocalPartyID: id,
		Wi:           kp.Secret,
		PublicKey:    kp.Public,
		PaillierSk:   sk,
	}, nil
}

// PaillierPk returns the public half of the party's Paillier key.
func (d *LocalPartySaveData) PaillierPk() *paillier.PublicKey {
	return &d.PaillierSk.PublicKey
}

// Destroy erases the Paillier private key.
func (d *LocalPartySaveData) Destroy() {
	if d.PaillierSk != nil {
		d.PaillierSk.Destroy()
	}
}
