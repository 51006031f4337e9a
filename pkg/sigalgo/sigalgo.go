// Package sigalgo implements the SignatureEngine: verification and
// production of the four signature families a COSE_Sign1 C2PA signature may
// carry, plus the ASN.1<->P1363 conversion ECDSA needs to move between the
// COSE wire form and Go's primitive crypto APIs.
package sigalgo

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"math/big"

	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"

	"github.com/wuxler/c2pa/pkg/errdefs"
)

// Algorithm identifies a signing algorithm family plus its hash, mirroring
// the COSE "alg" values the core emits into the protected header.
type Algorithm string

const (
	ES256 Algorithm = "ES256" // ECDSA P-256, SHA-256
	ES384 Algorithm = "ES384" // ECDSA P-384, SHA-384
	ES512 Algorithm = "ES512" // ECDSA P-521, SHA-512
	PS256 Algorithm = "PS256" // RSASSA-PSS, SHA-256
	PS384 Algorithm = "PS384" // RSASSA-PSS, SHA-384
	PS512 Algorithm = "PS512" // RSASSA-PSS, SHA-512
	RS256 Algorithm = "RS256" // RSASSA-PKCS1-v1_5, SHA-256
	RS384 Algorithm = "RS384" // RSASSA-PKCS1-v1_5, SHA-384
	RS512 Algorithm = "RS512" // RSASSA-PKCS1-v1_5, SHA-512
	Ed25519Alg Algorithm = "Ed25519"
)

func (a Algorithm) hash() (crypto.Hash, error) {
	switch a {
	case ES256, PS256, RS256:
		return crypto.SHA256, nil
	case ES384, PS384, RS384:
		return crypto.SHA384, nil
	case ES512, PS512, RS512:
		return crypto.SHA512, nil
	case Ed25519Alg:
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: signature algorithm %q", errdefs.ErrUnsupported, a)
	}
}

func sum(h crypto.Hash, data []byte) []byte {
	switch h {
	case crypto.SHA256:
		s := sha256.Sum256(data)
		return s[:]
	case crypto.SHA384:
		s := sha512.Sum384(data)
		return s[:]
	case crypto.SHA512:
		s := sha512.Sum512(data)
		return s[:]
	default:
		return nil
	}
}

// idRSASSAPSS is the OID RSA-PSS keys are sometimes encoded under. Generic
// SubjectPublicKeyInfo parsing only understands id-rsaEncryption, so
// ParsePublicKeyDER rewrites the OID before handing the DER bytes to x509.ParsePKIXPublicKey.
var idRSASSAPSS = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 10}
var idRSAEncryption = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 1}

// normalizeRSAPSSKey rewrites an RSA-PSS SubjectPublicKeyInfo's algorithm OID
// to plain rsaEncryption so that x509.ParsePKIXPublicKey accepts it. Returns
// der unchanged if it isn't an RSA-PSS key.
func normalizeRSAPSSKey(der []byte) ([]byte, error) {
	var spki struct {
		Algorithm pkix.AlgorithmIdentifier
		PublicKey asn1.BitString
	}
	if _, err := asn1.Unmarshal(der, &spki); err != nil {
		return der, nil //nolint:nilerr // not an SPKI we understand; let the caller's parser report the real error
	}
	if !spki.Algorithm.Algorithm.Equal(idRSASSAPSS) {
		return der, nil
	}
	spki.Algorithm = pkix.AlgorithmIdentifier{Algorithm: idRSAEncryption, Parameters: asn1.NullRawValue}
	out, err := asn1.Marshal(spki)
	if err != nil {
		return nil, fmt.Errorf("rewriting RSA-PSS SPKI algorithm: %w", err)
	}
	return out, nil
}

// ParsePublicKeyDER parses a DER-encoded SubjectPublicKeyInfo, rewriting the
// RSA-PSS OID to rsaEncryption first so generic RSA keys import successfully.
func ParsePublicKeyDER(der []byte) (crypto.PublicKey, error) {
	normalized, err := normalizeRSAPSSKey(der)
	if err != nil {
		return nil, err
	}
	pub, err := x509.ParsePKIXPublicKey(normalized)
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}
	return pub, nil
}

// ParsePrivateKeyDER parses a DER-encoded PKCS#8 private key.
func ParsePrivateKeyDER(der []byte) (crypto.Signer, error) {
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("%w: PKCS8 key of type %T is not a crypto.Signer", errdefs.ErrUnsupported, key)
	}
	return signer, nil
}

// Sign produces a raw signature over data using key under algorithm alg. For
// ECDSA the result is in fixed-width IEEE P1363 form (as COSE requires); for
// RSA-PSS/PKCS1v15 it is the plain RSA signature; for Ed25519 it passes
// through unmodified.
func Sign(alg Algorithm, key crypto.Signer, data []byte) ([]byte, error) {
	h, err := alg.hash()
	if err != nil {
		return nil, err
	}

	switch alg {
	case Ed25519Alg:
		edKey, ok := key.(ed25519.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: Ed25519 requires an ed25519.PrivateKey, got %T", errdefs.ErrUnsupported, key)
		}
		return ed25519.Sign(edKey, data), nil

	case ES256, ES384, ES512:
		digest := sum(h, data)
		asn1Sig, err := key.Sign(rand.Reader, digest, h)
		if err != nil {
			return nil, fmt.Errorf("ecdsa sign: %w", err)
		}
		ecKey, ok := key.Public().(*ecdsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: ECDSA signer public key is %T", errdefs.ErrUnsupported, key.Public())
		}
		return asn1ToP1363(asn1Sig, fieldSize(ecKey.Curve.Params().BitSize))

	case PS256, PS384, PS512:
		digest := sum(h, data)
		opts := &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash, Hash: h}
		return key.Sign(rand.Reader, digest, opts)

	case RS256, RS384, RS512:
		digest := sum(h, data)
		return key.Sign(rand.Reader, digest, h)

	default:
		return nil, fmt.Errorf("%w: %q", errdefs.ErrUnsupported, alg)
	}
}

// Verify checks sig over data against pub under algorithm alg.
func Verify(alg Algorithm, pub crypto.PublicKey, data, sig []byte) error {
	h, err := alg.hash()
	if err != nil {
		return err
	}

	switch alg {
	case Ed25519Alg:
		edKey, ok := pub.(ed25519.PublicKey)
		if !ok {
			return fmt.Errorf("%w: Ed25519 requires an ed25519.PublicKey, got %T", errdefs.ErrUnsupported, pub)
		}
		if !ed25519.Verify(edKey, data, sig) {
			return errdefs.ErrInvalidParameter
		}
		return nil

	case ES256, ES384, ES512:
		ecKey, ok := pub.(*ecdsa.PublicKey)
		if !ok {
			return fmt.Errorf("%w: ECDSA requires an *ecdsa.PublicKey, got %T", errdefs.ErrUnsupported, pub)
		}
		asn1Sig, err := p1363ToASN1(sig, fieldSize(ecKey.Curve.Params().BitSize))
		if err != nil {
			return err
		}
		digest := sum(h, data)
		if !ecdsa.VerifyASN1(ecKey, digest, asn1Sig) {
			return errdefs.ErrInvalidParameter
		}
		return nil

	case PS256, PS384, PS512:
		rsaKey, ok := pub.(*rsa.PublicKey)
		if !ok {
			return fmt.Errorf("%w: RSA-PSS requires an *rsa.PublicKey, got %T", errdefs.ErrUnsupported, pub)
		}
		digest := sum(h, data)
		opts := &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthAuto, Hash: h}
		if err := rsa.VerifyPSS(rsaKey, h, digest, sig, opts); err != nil {
			return fmt.Errorf("%w: %v", errdefs.ErrInvalidParameter, err)
		}
		return nil

	case RS256, RS384, RS512:
		rsaKey, ok := pub.(*rsa.PublicKey)
		if !ok {
			return fmt.Errorf("%w: RSASSA-PKCS1-v1_5 requires an *rsa.PublicKey, got %T", errdefs.ErrUnsupported, pub)
		}
		digest := sum(h, data)
		if err := rsa.VerifyPKCS1v15(rsaKey, h, digest, sig); err != nil {
			return fmt.Errorf("%w: %v", errdefs.ErrInvalidParameter, err)
		}
		return nil

	default:
		return fmt.Errorf("%w: %q", errdefs.ErrUnsupported, alg)
	}
}

// fieldSize returns the byte width of a P1363 coordinate for a curve of the
// given bit size (e.g. 256 -> 32, 384 -> 48, 521 -> 66).
func fieldSize(curveBits int) int {
	return (curveBits + 7) / 8
}

// asn1ToP1363 converts a DER/ASN.1 ECDSA signature (SEQUENCE{r,s}) to the
// fixed-width big-endian r||s form COSE requires.
func asn1ToP1363(der []byte, size int) ([]byte, error) {
	var inner cryptobyte.String
	input := cryptobyte.String(der)
	var r, s big.Int
	if !input.ReadASN1(&inner, cryptobyte_asn1.SEQUENCE) ||
		!inner.ReadASN1Integer(&r) ||
		!inner.ReadASN1Integer(&s) ||
		!inner.Empty() {
		return nil, fmt.Errorf("%w: malformed ASN.1 ECDSA signature", errdefs.ErrInvalidParameter)
	}
	out := make([]byte, 2*size)
	r.FillBytes(out[:size])
	s.FillBytes(out[size:])
	return out, nil
}

// p1363ToASN1 converts a fixed-width big-endian r||s ECDSA signature (as
// carried on the wire in COSE) to DER/ASN.1 form for Go's primitive verifier.
func p1363ToASN1(p1363 []byte, size int) ([]byte, error) {
	if len(p1363) != 2*size {
		return nil, fmt.Errorf("%w: expected %d-byte P1363 signature, got %d", errdefs.ErrInvalidParameter, 2*size, len(p1363))
	}
	var r, s big.Int
	r.SetBytes(p1363[:size])
	s.SetBytes(p1363[size:])

	var b cryptobyte.Builder
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(child *cryptobyte.Builder) {
		child.AddASN1BigInt(&r)
		child.AddASN1BigInt(&s)
	})
	return b.Bytes()
}
