package sigalgo_test

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wuxler/c2pa/pkg/sigalgo"
)

func TestSignVerify_ECDSA(t *testing.T) {
	for _, tc := range []struct {
		alg   sigalgo.Algorithm
		curve elliptic.Curve
	}{
		{sigalgo.ES256, elliptic.P256()},
		{sigalgo.ES384, elliptic.P384()},
		{sigalgo.ES512, elliptic.P521()},
	} {
		t.Run(string(tc.alg), func(t *testing.T) {
			key, err := ecdsa.GenerateKey(tc.curve, rand.Reader)
			require.NoError(t, err)

			data := []byte("claim bytes to sign")
			sig, err := sigalgo.Sign(tc.alg, key, data)
			require.NoError(t, err)

			err = sigalgo.Verify(tc.alg, &key.PublicKey, data, sig)
			require.NoError(t, err)

			err = sigalgo.Verify(tc.alg, &key.PublicKey, []byte("tampered"), sig)
			require.Error(t, err)
		})
	}
}

func TestSignVerify_Ed25519(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	data := []byte("claim bytes")
	sig, err := sigalgo.Sign(sigalgo.Ed25519Alg, priv, data)
	require.NoError(t, err)

	require.NoError(t, sigalgo.Verify(sigalgo.Ed25519Alg, pub, data, sig))
	require.Error(t, sigalgo.Verify(sigalgo.Ed25519Alg, pub, []byte("other"), sig))
}

func TestSignVerify_RSA(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	data := []byte("claim bytes")

	for _, alg := range []sigalgo.Algorithm{sigalgo.PS256, sigalgo.RS256} {
		t.Run(string(alg), func(t *testing.T) {
			sig, err := sigalgo.Sign(alg, key, data)
			require.NoError(t, err)
			require.NoError(t, sigalgo.Verify(alg, &key.PublicKey, data, sig))
			require.Error(t, sigalgo.Verify(alg, &key.PublicKey, []byte("tampered"), sig))
		})
	}
}

func TestParsePublicKeyDER_RewritesRSAPSSOID(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	// Relabel the SubjectPublicKeyInfo with the id-RSASSA-PSS OID, which
	// x509 alone does not accept.
	var spki struct {
		Algorithm pkix.AlgorithmIdentifier
		PublicKey asn1.BitString
	}
	_, err = asn1.Unmarshal(der, &spki)
	require.NoError(t, err)
	spki.Algorithm = pkix.AlgorithmIdentifier{Algorithm: asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 10}}
	pssDER, err := asn1.Marshal(spki)
	require.NoError(t, err)

	pub, err := sigalgo.ParsePublicKeyDER(pssDER)
	require.NoError(t, err)
	require.IsType(t, &rsa.PublicKey{}, pub)
}

func TestParsePrivateKeyDER(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	signer, err := sigalgo.ParsePrivateKeyDER(der)
	require.NoError(t, err)
	require.Equal(t, key.Public(), signer.Public())
}
