package mpc

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math/big"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallyu/go-mta-tss/internal/crypto/curves"
	"github.com/smallyu/go-mta-tss/internal/crypto/paillier"
	"github.com/smallyu/go-mta-tss/pkg/tss"
)

const (
	testP = "dd421c503c8007ebdb9be0018e8f762f2bf786c8846d152fb46dd1eb60b74b9e34e6c8aa88db049c71d305813dbde6f917db618a99e578a5c4f35d096e03d54dd73cd835f880b967ca20f7b760daaa9456c51399e60bfe90411ac44742b8e4d4e7aa65beabb7bdf560f6a8f088337ec382fcd6a1ab61b7e0b7df4db9ccd9caf1"
	testQ = "f8b6daba20fa74946ca45c384fdcf28de16d1ae3e26493339e0cc448c5df1bf090303b1ee79c397e8a2c0604c3e3b8ac6ba4793e2709de7a34683beb4613828b78a4d43bb72359baba4528846676847784c0e0dcb0edf8d1aa334534af0e6d6c038db8924ac91e4074822c5a1fbb2b2994db2f68496efbc2a540c153ce7fff59"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func fixedKeys(t *testing.T) *PaillierKeys {
	t.Helper()
	keys, err := GeneratePaillierKeyPair(nil, mustHex(t, testP), mustHex(t, testQ))
	require.NoError(t, err)
	return keys
}

func octet(v int64) []byte {
	return big.NewInt(v).FillBytes(make([]byte, EGS))
}

func randomOctet(t *testing.T) []byte {
	t.Helper()
	sk, _, err := GenerateECDSAKeyPair(rand.Reader)
	require.NoError(t, err)
	return sk
}

func TestGenerateECDSAKeyPair(t *testing.T) {
	sk, pk, err := GenerateECDSAKeyPair(rand.Reader)
	require.NoError(t, err)
	assert.Len(t, sk, EGS)
	require.Len(t, pk, PTS)
	assert.Equal(t, byte(0x04), pk[0])

	_, want := btcec.PrivKeyFromBytes(sk)
	assert.Equal(t, want.SerializeUncompressed(), pk)
}

func TestPaillierKeysFromPrimes(t *testing.T) {
	keys := fixedKeys(t)
	for _, v := range [][]byte{keys.N, keys.G, keys.L, keys.M} {
		assert.Len(t, v, FS2048)
	}

	p := new(big.Int).SetBytes(mustHex(t, testP))
	q := new(big.Int).SetBytes(mustHex(t, testQ))
	n := new(big.Int).SetBytes(keys.N)
	assert.Equal(t, 0, n.Cmp(new(big.Int).Mul(p, q)))
	assert.Equal(t, 0, new(big.Int).SetBytes(keys.G).Cmp(new(big.Int).Add(n, big.NewInt(1))))

	check := new(big.Int).Mul(new(big.Int).SetBytes(keys.L), new(big.Int).SetBytes(keys.M))
	assert.Equal(t, "1", check.Mod(check, n).String())

	_, err := GeneratePaillierKeyPair(nil, mustHex(t, testP), nil)
	assert.True(t, errors.Is(err, tss.ErrInvalidModulus))
	_, err = GeneratePaillierKeyPair(nil, mustHex(t, testP), mustHex(t, testP))
	assert.True(t, errors.Is(err, tss.ErrInvalidModulus))
}

func TestGeneratePaillierKeyPair(t *testing.T) {
	if testing.Short() {
		t.Skip("2048-bit key generation")
	}
	keys, err := GeneratePaillierKeyPair(rand.Reader, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, PaillierBits, new(big.Int).SetBytes(keys.N).BitLen())
}

func TestMtaRoundTrip(t *testing.T) {
	keys := fixedKeys(t)
	a := randomOctet(t)
	b := randomOctet(t)

	ca, r, err := MtaClientStep1(rand.Reader, keys.N, keys.G, a, nil)
	require.NoError(t, err)
	assert.Len(t, ca, FS4096)
	assert.Len(t, r, FS2048)

	cb, beta, err := MtaServer(rand.Reader, keys.N, keys.G, b, ca, nil, nil)
	require.NoError(t, err)
	assert.Len(t, cb, FS4096)

	alpha, err := MtaClientStep2(keys.N, keys.L, keys.M, cb)
	require.NoError(t, err)

	sum, err := SumSignatureShares(alpha, beta)
	require.NoError(t, err)

	q := curves.NewSecp256k1().Order()
	prod := new(big.Int).Mul(new(big.Int).SetBytes(a), new(big.Int).SetBytes(b))
	assert.Equal(t, prod.Mod(prod, q).String(), new(big.Int).SetBytes(sum).String())
}

func TestMtaFixedRandomness(t *testing.T) {
	keys := fixedKeys(t)
	a := octet(2)
	r := big.NewInt(65537).FillBytes(make([]byte, FS2048))

	ca1, r1, err := MtaClientStep1(rand.Reader, keys.N, keys.G, a, r)
	require.NoError(t, err)
	ca2, _, err := MtaClientStep1(rand.Reader, keys.N, keys.G, a, r)
	require.NoError(t, err)
	assert.Equal(t, ca1, ca2)
	assert.Equal(t, r, r1)

	cb, beta, err := MtaServer(rand.Reader, keys.N, keys.G, octet(7), ca1, octet(11), r)
	require.NoError(t, err)
	alpha, err := MtaClientStep2(keys.N, keys.L, keys.M, cb)
	require.NoError(t, err)

	assert.Equal(t, octet(25), alpha)
	minusEleven := curves.NewSecp256k1().ScalarFromBigInt(big.NewInt(-11)).Bytes()
	assert.Equal(t, minusEleven, beta)
}

func TestMtaRejects(t *testing.T) {
	keys := fixedKeys(t)
	ca, _, err := MtaClientStep1(rand.Reader, keys.N, keys.G, randomOctet(t), nil)
	require.NoError(t, err)

	order := curves.NewSecp256k1().Order().FillBytes(make([]byte, EGS))

	_, _, err = MtaServer(rand.Reader, keys.N, keys.G, order, ca, nil, nil)
	assert.True(t, errors.Is(err, tss.ErrInvalidFactor), "b = q: %v", err)

	_, _, err = MtaServer(rand.Reader, keys.N, keys.G, octet(0), ca, nil, nil)
	assert.True(t, errors.Is(err, tss.ErrInvalidFactor), "b = 0: %v", err)

	_, _, err = MtaServer(rand.Reader, keys.N, keys.G, octet(1), ca[1:], nil, nil)
	assert.True(t, errors.Is(err, tss.ErrInvalidCiphertext))

	_, _, err = MtaServer(rand.Reader, keys.N, keys.G, octet(1), make([]byte, FS4096), nil, nil)
	assert.True(t, errors.Is(err, tss.ErrInvalidCiphertext))

	_, _, err = MtaClientStep1(rand.Reader, keys.N[1:], keys.G, octet(1), nil)
	assert.True(t, errors.Is(err, tss.ErrInvalidModulus))

	_, _, err = MtaClientStep1(rand.Reader, keys.N, keys.N, octet(1), nil)
	assert.True(t, errors.Is(err, tss.ErrInvalidModulus), "g != n+1")

	_, _, err = MtaClientStep1(rand.Reader, keys.N, keys.G, octet(1), make([]byte, FS2048))
	assert.True(t, errors.Is(err, tss.ErrInvalidRandomness))

	// r >= n
	allOnes := bytes.Repeat([]byte{0xff}, FS2048)
	_, _, err = MtaClientStep1(rand.Reader, keys.N, keys.G, octet(1), allOnes)
	assert.True(t, errors.Is(err, tss.ErrInvalidRandomness), "r >= n: %v", err)

	_, err = MtaClientStep2(keys.N, keys.L, keys.M, make([]byte, FS4096))
	assert.True(t, errors.Is(err, tss.ErrInvalidCiphertext))
}

func TestSumMtaShares(t *testing.T) {
	sum, err := SumMtaShares(octet(2), octet(3), octet(4), octet(5), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, octet(15), sum)

	sum, err = SumMtaShares(octet(2), octet(3), octet(4), octet(5), octet(1), octet(1))
	require.NoError(t, err)
	assert.Equal(t, octet(17), sum)

	_, err = SumMtaShares(octet(2)[1:], octet(3), octet(4), octet(5), nil, nil)
	assert.True(t, errors.Is(err, tss.ErrInvalidFactor))

	// alpha2 and beta2 are given together or not at all
	_, err = SumMtaShares(octet(2), octet(3), octet(4), octet(5), octet(1), nil)
	assert.True(t, errors.Is(err, tss.ErrInvalidFactor))
	_, err = SumMtaShares(octet(2), octet(3), octet(4), octet(5), nil, octet(1))
	assert.True(t, errors.Is(err, tss.ErrInvalidFactor))
}

func TestPartialSign(t *testing.T) {
	// k1 = 2, w1 = 3 from the hand-worked two-party example
	s1, err := PartialSign(octet(4), octet(3), octet(2), octet(18))
	require.NoError(t, err)
	assert.Equal(t, octet(29), s1)

	s2, err := PartialSign(octet(4), octet(3), octet(5), octet(52))
	require.NoError(t, err)
	assert.Equal(t, octet(32), s2)

	s, err := SumSignatureShares(s1, s2)
	require.NoError(t, err)
	assert.Equal(t, octet(61), s)

	_, err = PartialSign(octet(4), octet(3), octet(0), octet(18))
	assert.True(t, errors.Is(err, tss.ErrInvalidNonceShare))

	_, err = SumSignatureShares(s1, s2[:31])
	assert.True(t, errors.Is(err, tss.ErrInvalidFactor))
}

func TestHash(t *testing.T) {
	want := sha256.Sum256([]byte("abc"))
	// SHA-256("abc") is already below q
	assert.Equal(t, want[:], Hash([]byte("abc")))
}

func TestNonceAndKeyAggregation(t *testing.T) {
	curve := curves.NewSecp256k1()
	scalarOf := func(b []byte) curves.Scalar {
		s, err := curve.ScalarFromBytes(b)
		require.NoError(t, err)
		return s
	}

	k1, k2 := scalarOf(randomOctet(t)), scalarOf(randomOctet(t))
	g1, g2 := scalarOf(randomOctet(t)), scalarOf(randomOctet(t))
	gamma := g1.Add(g2)

	// any additive split of k*gamma will do
	kg1 := k1.Mul(gamma)
	kg2 := k2.Mul(gamma)
	inv, err := InvKGamma(kg1.Bytes(), kg2.Bytes())
	require.NoError(t, err)

	r, rp, err := R(inv, curve.ScalarBaseMult(g1).SerializeUncompressed(), curve.ScalarBaseMult(g2).SerializeUncompressed())
	require.NoError(t, err)

	k := k1.Add(k2)
	assert.Equal(t, curve.ScalarBaseMult(k.Invert()).SerializeUncompressed(), rp)

	sk1, pk1, err := GenerateECDSAKeyPair(rand.Reader)
	require.NoError(t, err)
	sk2, pk2, err := GenerateECDSAKeyPair(rand.Reader)
	require.NoError(t, err)
	pk, err := SumPK(pk1, pk2)
	require.NoError(t, err)

	x := scalarOf(sk1).Add(scalarOf(sk2))
	assert.Equal(t, curve.ScalarBaseMult(x).SerializeUncompressed(), pk)

	// R = k^-1 * G, so s = k * (hm + r*x)
	hm := Hash([]byte("aggregate"))
	s := k.Mul(scalarOf(hm).Add(scalarOf(r).Mul(x)))
	require.NoError(t, ECDSAVerify(hm, pk, r, s.Bytes()))

	wrong := Hash([]byte("other"))
	assert.True(t, errors.Is(ECDSAVerify(wrong, pk, r, s.Bytes()), tss.ErrInvalidSignature))

	_, err = InvKGamma(kg1.Bytes(), kg1.Negate().Bytes())
	assert.True(t, errors.Is(err, tss.ErrInvalidNonceShare))
}

func TestECDSAVerifyAgainstBtcec(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	hm := sha256.Sum256([]byte("btcec"))

	sig := ecdsa.Sign(priv, hm[:])
	r, s := sig.R(), sig.S()
	rb, sb := r.Bytes(), s.Bytes()
	pk := priv.PubKey().SerializeUncompressed()

	require.NoError(t, ECDSAVerify(hm[:], pk, rb[:], sb[:]))
	assert.True(t, errors.Is(ECDSAVerify(hm[:], pk, rb[:], make([]byte, EGS)), tss.ErrInvalidSignature))
	assert.True(t, errors.Is(ECDSAVerify(hm[:], pk[1:], rb[:], sb[:]), tss.ErrInvalidSignature))
}

func TestDumpLoadPaillierPublicKey(t *testing.T) {
	keys := fixedKeys(t)

	data, err := DumpPaillierPublicKey(keys.N, keys.G)
	require.NoError(t, err)

	n, g, err := LoadPaillierPublicKey(data)
	require.NoError(t, err)
	assert.Equal(t, keys.N, n)
	assert.Equal(t, keys.G, g)

	_, _, err = LoadPaillierPublicKey([]byte{0xff, 0x00})
	assert.True(t, errors.Is(err, tss.ErrInvalidModulus))
}

func TestLoadPaillierPublicKeyTooWide(t *testing.T) {
	// n = 2^2048 - 1 fits FS2048 bytes but g = n+1 does not
	n := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 8*FS2048), big.NewInt(1))
	pub, err := paillier.NewPublicKey(n)
	require.NoError(t, err)
	data, err := pub.MarshalBinary()
	require.NoError(t, err)

	_, _, err = LoadPaillierPublicKey(data)
	assert.True(t, errors.Is(err, tss.ErrInvalidModulus), "%v", err)

	// and a modulus wider than FS2048
	pub, err = paillier.NewPublicKey(new(big.Int).Add(new(big.Int).Lsh(n, 8), big.NewInt(0xff)))
	require.NoError(t, err)
	data, err = pub.MarshalBinary()
	require.NoError(t, err)
	_, _, err = LoadPaillierPublicKey(data)
	assert.True(t, errors.Is(err, tss.ErrInvalidModulus), "%v", err)
}

func TestDumpLoadPaillierSecretKey(t *testing.T) {
	keys := fixedKeys(t)

	data, err := DumpPaillierSecretKey(mustHex(t, testP), mustHex(t, testQ))
	require.NoError(t, err)

	loaded, err := LoadPaillierSecretKey(data)
	require.NoError(t, err)
	assert.Equal(t, keys, loaded)

	// the loaded key decrypts
	a, b := randomOctet(t), randomOctet(t)
	ca, _, err := MtaClientStep1(rand.Reader, loaded.N, loaded.G, a, nil)
	require.NoError(t, err)
	cb, beta, err := MtaServer(rand.Reader, loaded.N, loaded.G, b, ca, nil, nil)
	require.NoError(t, err)
	alpha, err := MtaClientStep2(loaded.N, loaded.L, loaded.M, cb)
	require.NoError(t, err)

	curve := curves.NewSecp256k1()
	sc := func(v []byte) curves.Scalar {
		s, err := curve.ScalarFromBytes(v)
		require.NoError(t, err)
		return s
	}
	assert.True(t, sc(alpha).Add(sc(beta)).Equal(sc(a).Mul(sc(b))))

	_, err = DumpPaillierSecretKey(mustHex(t, testP)[1:], mustHex(t, testQ))
	assert.True(t, errors.Is(err, tss.ErrInvalidModulus))

	_, err = LoadPaillierSecretKey([]byte{0xff, 0x00})
	assert.True(t, errors.Is(err, tss.ErrInvalidModulus))
}

func TestValidatePublicKey(t *testing.T) {
	_, pk, err := GenerateECDSAKeyPair(rand.Reader)
	require.NoError(t, err)
	require.NoError(t, ValidatePublicKey(pk))

	assert.True(t, errors.Is(ValidatePublicKey(pk[1:]), tss.ErrInvalidParameters))

	// y+1 leaves the curve
	off := bytes.Clone(pk)
	y := new(big.Int).SetBytes(off[33:])
	y.Add(y, big.NewInt(1)).FillBytes(off[33:])
	assert.True(t, errors.Is(ValidatePublicKey(off), tss.ErrInvalidParameters))

	bad := bytes.Clone(pk)
	bad[0] = 0x05
	assert.True(t, errors.Is(ValidatePublicKey(bad), tss.ErrInvalidParameters))
}
