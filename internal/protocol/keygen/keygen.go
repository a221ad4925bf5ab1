// Package keygen prepares the key material one party brings to a signing session.
package keygen

import (
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"

	"github.com/smallyu/go-mta-tss/internal/crypto/curves"
	"github.com/smallyu/go-mta-tss/pkg/tss"
)

// PublicKeySize is the length of an uncompressed SEC1 public key.
const PublicKeySize = 65

// KeyPair is a secp256k1 ECDSA key pair.
type KeyPair struct {
	Secret curves.Scalar
	Public *btcec.PublicKey
}

// GenerateECDSAKeyPair draws a secret scalar from random.
func GenerateECDSAKeyPair(random io.Reader) (*KeyPair, error) {
	sk, err := curves.NewSecp256k1().NewScalar(random)
	if err != nil {
		return nil, err
	}
	return keyPairFromScalar(sk), nil
}

// KeyPairFromSecret rebuilds a key pair from a 32-byte secret.
func KeyPairFromSecret(secret []byte) (*KeyPair, error) {
	sk, err := curves.NewSecp256k1().ScalarFromBytes(secret)
	if err != nil {
		return nil, err
	}
	if sk.IsZero() {
		return nil, fmt.Errorf("keygen: zero secret key: %w", tss.ErrInvalidFactor)
	}
	return keyPairFromScalar(sk), nil
}

// NewMnemonic returns a 24-word BIP-39 mnemonic with entropy drawn from random.
func NewMnemonic(random io.Reader) (string, error) {
	entropy := make([]byte, 32)
	if _, err := io.ReadFull(random, entropy); err != nil {
		return "", fmt.Errorf("keygen: %v: %w", err, tss.ErrRngFailure)
	}
	return bip39.NewMnemonic(entropy)
}

// FromMnemonic derives a key pair from the BIP-32 master key of a BIP-39 mnemonic.
func FromMnemonic(mnemonic, passphrase string) (*KeyPair, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("keygen: invalid mnemonic: %w", tss.ErrInvalidParameters)
	}
	master, err := bip32.NewMasterKey(bip39.NewSeed(mnemonic, passphrase))
	if err != nil {
		return nil, fmt.Errorf("keygen: master key: %v: %w", err, tss.ErrInvalidParameters)
	}
	return KeyPairFromSecret(master.Key)
}

// SecretBytes returns the 32-byte secret key.
func (k *KeyPair) SecretBytes() []byte {
	return k.Secret.Bytes()
}

// PublicBytes returns the uncompressed public key.
func (k *KeyPair) PublicBytes() []byte {
	return k.Public.SerializeUncompressed()
}

func keyPairFromScalar(sk curves.Scalar) *KeyPair {
	_, pub := btcec.PrivKeyFromBytes(sk.Bytes())
	return &KeyPair{Secret: sk, Public: pub}
}
