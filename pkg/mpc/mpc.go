// Package mpc is a byte-oriented API over the two-party signing primitives.
//
// Every input and output is a big-endian byte string of fixed width. Lengths are
// checked on entry and values are left-padded with zeros on exit, so results
// can be stored or sent without further framing.
package mpc

import (
	"fmt"
	"io"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"github.com/smallyu/go-mta-tss/internal/crypto/curves"
	"github.com/smallyu/go-mta-tss/internal/crypto/mta"
	"github.com/smallyu/go-mta-tss/internal/crypto/paillier"
	"github.com/smallyu/go-mta-tss/internal/crypto/shares"
	"github.com/smallyu/go-mta-tss/internal/protocol/keygen"
	"github.com/smallyu/go-mta-tss/internal/protocol/sign"
	"github.com/smallyu/go-mta-tss/pkg/tss"
)

// Field widths in bytes.
const (
	FS2048  = 256 // Paillier n, g, l, m and randomness
	HFS2048 = 128 // one Paillier prime
	FS4096  = 512 // Paillier ciphertext
	EGS     = 32  // secp256k1 scalar
	PTS     = 65  // uncompressed secp256k1 point
	SeedLen = 16
	SHA256  = 32
)

// PaillierBits is the modulus size generated by GeneratePaillierKeyPair.
const PaillierBits = 8 * FS2048

var curve = curves.NewSecp256k1()

// PaillierKeys holds a key pair as FS2048-wide octets.
type PaillierKeys struct {
	N, G []byte
	L, M []byte
}

// GenerateECDSAKeyPair returns a secret key of EGS bytes and its uncompressed public key.
func GenerateECDSAKeyPair(random io.Reader) (sk, pk []byte, err error) {
	kp, err := keygen.GenerateECDSAKeyPair(random)
	if err != nil {
		return nil, nil, err
	}
	return kp.SecretBytes(), kp.PublicBytes(), nil
}

// GeneratePaillierKeyPair derives a key pair from p and q, or generates one
// from random when both are nil.
func GeneratePaillierKeyPair(random io.Reader, p, q []byte) (*PaillierKeys, error) {
	var (
		priv *paillier.PrivateKey
		err  error
	)
	if p == nil && q == nil {
		priv, err = paillier.GenerateKey(random, PaillierBits)
	} else {
		if err = checkLen("p", p, HFS2048, tss.ErrInvalidModulus); err != nil {
			return nil, err
		}
		if err = checkLen("q", q, HFS2048, tss.ErrInvalidModulus); err != nil {
			return nil, err
		}
		priv, err = paillier.NewKeyPair(new(big.Int).SetBytes(p), new(big.Int).SetBytes(q))
	}
	if err != nil {
		return nil, err
	}
	defer priv.Destroy()
	return paillierKeys(priv)
}

// DumpPaillierSecretKey serializes the key pair derived from p and q. The
// encoding holds the primes, so it must be stored as secret material.
func DumpPaillierSecretKey(p, q []byte) ([]byte, error) {
	if err := checkLen("p", p, HFS2048, tss.ErrInvalidModulus); err != nil {
		return nil, err
	}
	if err := checkLen("q", q, HFS2048, tss.ErrInvalidModulus); err != nil {
		return nil, err
	}
	priv, err := paillier.NewKeyPair(new(big.Int).SetBytes(p), new(big.Int).SetBytes(q))
	if err != nil {
		return nil, err
	}
	defer priv.Destroy()
	return priv.MarshalBinary()
}

// LoadPaillierSecretKey reverses DumpPaillierSecretKey.
func LoadPaillierSecretKey(data []byte) (*PaillierKeys, error) {
	var priv paillier.PrivateKey
	if err := priv.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	defer priv.Destroy()
	return paillierKeys(&priv)
}

func paillierKeys(priv *paillier.PrivateKey) (*PaillierKeys, error) {
	if err := fitsModulus(&priv.PublicKey); err != nil {
		return nil, err
	}
	return &PaillierKeys{
		N: pad(priv.N, FS2048),
		G: pad(priv.G, FS2048),
		L: pad(priv.Lambda, FS2048),
		M: pad(priv.Mu, FS2048),
	}, nil
}

// MtaClientStep1 encrypts a under (n, g). r is FS2048 bytes or nil to draw it.
// It returns ca and the randomness used.
func MtaClientStep1(random io.Reader, n, g, a, r []byte) (ca, rOut []byte, err error) {
	pub, err := publicKey(n, g)
	if err != nil {
		return nil, nil, err
	}
	as, err := scalar("a", a)
	if err != nil {
		return nil, nil, err
	}
	ri, err := randomness(pub, r)
	if err != nil {
		return nil, nil, err
	}

	c, used, err := mta.Client1(random, pub, curve, as, ri)
	if err != nil {
		return nil, nil, err
	}
	if rOut, err = pub.PlaintextBytes(used); err != nil {
		return nil, nil, err
	}
	return pad(c.Int(), FS4096), rOut, nil
}

// MtaServer answers ca with b. z is EGS bytes and r FS2048 bytes; either may be
// nil to draw it.
func MtaServer(random io.Reader, n, g, b, ca, z, r []byte) (cb, beta []byte, err error) {
	pub, err := publicKey(n, g)
	if err != nil {
		return nil, nil, err
	}
	bs, err := scalar("b", b)
	if err != nil {
		return nil, nil, err
	}
	c, err := ciphertext(ca)
	if err != nil {
		return nil, nil, err
	}
	var zs curves.Scalar
	if z != nil {
		if zs, err = scalar("z", z); err != nil {
			return nil, nil, err
		}
	}
	ri, err := randomness(pub, r)
	if err != nil {
		return nil, nil, err
	}

	res, err := mta.Server(random, pub, curve, bs, c, zs, ri)
	if err != nil {
		return nil, nil, err
	}
	return pad(res.CB.Int(), FS4096), res.Beta.Bytes(), nil
}

// MtaClientStep2 decrypts cb with the private key (n, l, m).
func MtaClientStep2(n, l, m, cb []byte) ([]byte, error) {
	if err := checkLen("n", n, FS2048, tss.ErrInvalidModulus); err != nil {
		return nil, err
	}
	if err := checkLen("l", l, FS2048, tss.ErrInvalidModulus); err != nil {
		return nil, err
	}
	if err := checkLen("m", m, FS2048, tss.ErrInvalidModulus); err != nil {
		return nil, err
	}
	priv, err := paillier.NewPrivateKeyFromParts(new(big.Int).SetBytes(n), new(big.Int).SetBytes(l), new(big.Int).SetBytes(m))
	if err != nil {
		return nil, err
	}
	defer priv.Destroy()

	c, err := ciphertext(cb)
	if err != nil {
		return nil, err
	}
	alpha, err := mta.Client2(priv, curve, c)
	if err != nil {
		return nil, err
	}
	return alpha.Bytes(), nil
}

// SumMtaShares returns a*b + alpha1 + beta1 + alpha2 + beta2. alpha2 and beta2
// are both nil for the two-term form; giving only one of them is an error.
func SumMtaShares(a, b, alpha1, beta1, alpha2, beta2 []byte) ([]byte, error) {
	if (alpha2 == nil) != (beta2 == nil) {
		return nil, fmt.Errorf("mpc: alpha2 and beta2 come together: %w", tss.ErrInvalidFactor)
	}
	named := []struct {
		name string
		v    []byte
	}{{"a", a}, {"b", b}, {"alpha1", alpha1}, {"beta1", beta1}, {"alpha2", alpha2}, {"beta2", beta2}}

	var in []curves.Scalar
	for _, f := range named {
		if f.v == nil && len(in) >= 4 {
			break
		}
		s, err := scalar(f.name, f.v)
		if err != nil {
			return nil, err
		}
		in = append(in, s)
	}
	if len(in) == 6 {
		return shares.SumMtA(in[0], in[1], in[2], in[3], in[4], in[5]).Bytes(), nil
	}
	return shares.SumMtAN(in[0], in[1], in[2], in[3]).Bytes(), nil
}

// PartialSign computes k^-1 * (hm + r*sum). hm is a SHA256 digest and is reduced
// mod q.
func PartialSign(hm, r, k, sum []byte) ([]byte, error) {
	if err := checkLen("hm", hm, SHA256, tss.ErrInvalidFactor); err != nil {
		return nil, err
	}
	rs, err := scalar("r", r)
	if err != nil {
		return nil, err
	}
	ks, err := scalar("k", k)
	if err != nil {
		return nil, err
	}
	ss, err := scalar("sum", sum)
	if err != nil {
		return nil, err
	}
	s, err := sign.PartialSign(curve.ScalarFromBigInt(new(big.Int).SetBytes(hm)), rs, ks, ss)
	if err != nil {
		return nil, err
	}
	return s.Bytes(), nil
}

// SumSignatureShares returns s1 + s2.
func SumSignatureShares(s1, s2 []byte) ([]byte, error) {
	a, err := scalar("s1", s1)
	if err != nil {
		return nil, err
	}
	b, err := scalar("s2", s2)
	if err != nil {
		return nil, err
	}
	return shares.SumS(a, b).Bytes(), nil
}

// Hash returns SHA-256 of msg reduced mod q.
func Hash(msg []byte) []byte {
	return curve.HashToScalar(msg).Bytes()
}

// InvKGamma returns (kgamma1 + kgamma2)^-1.
func InvKGamma(kgamma1, kgamma2 []byte) ([]byte, error) {
	a, err := scalar("kgamma1", kgamma1)
	if err != nil {
		return nil, err
	}
	b, err := scalar("kgamma2", kgamma2)
	if err != nil {
		return nil, err
	}
	inv, err := sign.InvKGamma(a, b)
	if err != nil {
		return nil, err
	}
	return inv.Bytes(), nil
}

// R returns the signature component r and the point R = (Gamma1 + Gamma2) * invKGamma.
func R(invKGamma, gamma1, gamma2 []byte) (r, rp []byte, err error) {
	inv, err := scalar("invkgamma", invKGamma)
	if err != nil {
		return nil, nil, err
	}
	g1, err := point("gamma1", gamma1)
	if err != nil {
		return nil, nil, err
	}
	g2, err := point("gamma2", gamma2)
	if err != nil {
		return nil, nil, err
	}
	rs, p, err := sign.ComputeR(inv, g1, g2)
	if err != nil {
		return nil, nil, err
	}
	return rs.Bytes(), p.SerializeUncompressed(), nil
}

// SumPK adds two public keys.
func SumPK(pk1, pk2 []byte) ([]byte, error) {
	p1, err := point("pk1", pk1)
	if err != nil {
		return nil, err
	}
	p2, err := point("pk2", pk2)
	if err != nil {
		return nil, err
	}
	sum, err := sign.SumPK(p1, p2)
	if err != nil {
		return nil, err
	}
	return sum.SerializeUncompressed(), nil
}

// ECDSAVerify checks (r, s) over the digest hm under pk.
func ECDSAVerify(hm, pk, r, s []byte) error {
	if err := checkLen("hm", hm, SHA256, tss.ErrInvalidSignature); err != nil {
		return err
	}
	pub, err := btcec.ParsePubKey(pk)
	if err != nil {
		return fmt.Errorf("mpc: public key: %v: %w", err, tss.ErrInvalidSignature)
	}
	if len(r) != EGS || len(s) != EGS {
		return fmt.Errorf("mpc: signature components must be %d bytes: %w", EGS, tss.ErrInvalidSignature)
	}
	var rs, ss btcec.ModNScalar
	if rs.SetByteSlice(r) || ss.SetByteSlice(s) || rs.IsZero() || ss.IsZero() {
		return fmt.Errorf("mpc: signature component out of range: %w", tss.ErrInvalidSignature)
	}
	if !ecdsa.NewSignature(&rs, &ss).Verify(hm, pub) {
		return fmt.Errorf("mpc: verification failed: %w", tss.ErrInvalidSignature)
	}
	return nil
}

// ValidatePublicKey checks that pk is an uncompressed secp256k1 point on the curve.
func ValidatePublicKey(pk []byte) error {
	if err := checkLen("pk", pk, PTS, tss.ErrInvalidParameters); err != nil {
		return err
	}
	pub, err := btcec.ParsePubKey(pk)
	if err != nil {
		return fmt.Errorf("mpc: public key: %v: %w", err, tss.ErrInvalidParameters)
	}
	if !pub.IsOnCurve() {
		return fmt.Errorf("mpc: public key is not on the curve: %w", tss.ErrInvalidParameters)
	}
	return nil
}

// DumpPaillierPublicKey serializes (n, g) for storage.
func DumpPaillierPublicKey(n, g []byte) ([]byte, error) {
	pub, err := publicKey(n, g)
	if err != nil {
		return nil, err
	}
	return pub.MarshalBinary()
}

// LoadPaillierPublicKey reverses DumpPaillierPublicKey.
func LoadPaillierPublicKey(data []byte) (n, g []byte, err error) {
	var pub paillier.PublicKey
	if err := pub.UnmarshalBinary(data); err != nil {
		return nil, nil, err
	}
	if err := fitsModulus(&pub); err != nil {
		return nil, nil, err
	}
	return pad(pub.N, FS2048), pad(pub.G, FS2048), nil
}

// fitsModulus checks that n and g both encode in FS2048 bytes with no leading
// zero byte.
func fitsModulus(pub *paillier.PublicKey) error {
	if pub.PlaintextSize() != FS2048 || pub.G.BitLen() > 8*FS2048 {
		return fmt.Errorf("mpc: %d-bit modulus does not fit %d bytes: %w", pub.N.BitLen(), FS2048, tss.ErrInvalidModulus)
	}
	return nil
}

func publicKey(n, g []byte) (*paillier.PublicKey, error) {
	if err := checkLen("n", n, FS2048, tss.ErrInvalidModulus); err != nil {
		return nil, err
	}
	if err := checkLen("g", g, FS2048, tss.ErrInvalidModulus); err != nil {
		return nil, err
	}
	pub, err := paillier.NewPublicKeyWithGenerator(new(big.Int).SetBytes(n), new(big.Int).SetBytes(g))
	if err != nil {
		return nil, err
	}
	if err := fitsModulus(pub); err != nil {
		return nil, err
	}
	return pub, nil
}

func scalar(name string, b []byte) (curves.Scalar, error) {
	if err := checkLen(name, b, EGS, tss.ErrInvalidFactor); err != nil {
		return nil, err
	}
	return curve.ScalarFromBytes(b)
}

func randomness(pub *paillier.PublicKey, r []byte) (*big.Int, error) {
	if r == nil {
		return nil, nil
	}
	if err := checkLen("r", r, FS2048, tss.ErrInvalidRandomness); err != nil {
		return nil, err
	}
	ri, err := pub.PlaintextFromBytes(r)
	if err != nil {
		return nil, fmt.Errorf("mpc: r: %v: %w", err, tss.ErrInvalidRandomness)
	}
	return ri, nil
}

func ciphertext(b []byte) (*paillier.Ciphertext, error) {
	if err := checkLen("ciphertext", b, FS4096, tss.ErrInvalidCiphertext); err != nil {
		return nil, err
	}
	return paillier.NewCiphertext(new(big.Int).SetBytes(b)), nil
}

func point(name string, b []byte) (*btcec.PublicKey, error) {
	if err := checkLen(name, b, PTS, tss.ErrInvalidFactor); err != nil {
		return nil, err
	}
	return curve.ParsePoint(b)
}

func checkLen(name string, b []byte, want int, kind error) error {
	if len(b) != want {
		return fmt.Errorf("mpc: %s is %d bytes, want %d: %w", name, len(b), want, kind)
	}
	return nil
}

func pad(x *big.Int, width int) []byte {
	return x.FillBytes(make([]byte, width))
}
