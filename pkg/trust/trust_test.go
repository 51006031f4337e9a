package trust_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wuxler/c2pa/pkg/trust"
)

// roundTripFunc adapts a function to xhttp.Client for stubbing OCSP calls.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) Do(r *http.Request) (*http.Response, error) { return f(r) }

func genCA(t *testing.T) (*x509.Certificate, *ecdsa.PrivateKey, []byte) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "test root CA"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert, key, der
}

func genLeaf(t *testing.T, ca *x509.Certificate, caKey *ecdsa.PrivateKey) []byte {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: "test leaf"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, ca, &key.PublicKey, caKey)
	require.NoError(t, err)
	return der
}

func pemEncode(der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

func TestStore_Verify_Trusted(t *testing.T) {
	ca, caKey, caDER := genCA(t)
	leafDER := genLeaf(t, ca, caKey)

	store, err := trust.NewStore(pemEncode(caDER))
	require.NoError(t, err)

	result, err := store.Verify(context.Background(), [][]byte{leafDER}, time.Now())
	require.NoError(t, err)
	require.True(t, result.Trusted)
	require.NotEmpty(t, result.Chains)
}

func TestStore_Verify_UntrustedWithoutRoot(t *testing.T) {
	otherCA, _, _ := genCA(t)
	_, otherKey, _ := genCA(t)
	leafDER := genLeaf(t, otherCA, otherKey)

	unrelatedCA, _, unrelatedDER := genCA(t)
	_ = unrelatedCA
	store, err := trust.NewStore(pemEncode(unrelatedDER))
	require.NoError(t, err)

	result, err := store.Verify(context.Background(), [][]byte{leafDER}, time.Now())
	require.NoError(t, err)
	require.False(t, result.Trusted)
}

func TestStore_CheckRevocation_NoResponderConfigured(t *testing.T) {
	ca, caKey, caDER := genCA(t)
	leafDER := genLeaf(t, ca, caKey)
	leaf, err := x509.ParseCertificate(leafDER)
	require.NoError(t, err)

	store, err := trust.NewStore(pemEncode(caDER))
	require.NoError(t, err)

	checked, revoked, err := store.CheckRevocation(context.Background(), leaf, ca)
	require.NoError(t, err)
	require.False(t, checked)
	require.False(t, revoked)
}

func TestStore_CheckRevocation_UnreachableResponderIsNotRevoked(t *testing.T) {
	ca, caKey, caDER := genCA(t)

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(3),
		Subject:      pkix.Name{CommonName: "leaf with ocsp"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		OCSPServer:   []string{"http://ocsp.example.test"},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, ca, &key.PublicKey, caKey)
	require.NoError(t, err)
	leaf, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	store, err := trust.NewStore(pemEncode(caDER))
	require.NoError(t, err)
	store.SetHTTPClient(roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, context.DeadlineExceeded
	}))

	checked, revoked, err := store.CheckRevocation(context.Background(), leaf, ca)
	require.NoError(t, err)
	require.False(t, checked)
	require.False(t, revoked)
}
