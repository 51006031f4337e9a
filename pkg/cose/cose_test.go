package cose_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wuxler/c2pa/pkg/cose"
	"github.com/wuxler/c2pa/pkg/errdefs"
)

func TestSign1_SignVerifyRoundTrip(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	s := cose.NewSign1(cose.AlgES256, [][]byte{[]byte("fake-leaf-cert")}, 64)
	payload := []byte{0xa1, 0x61, 0x61, 0x01} // arbitrary CBOR claim bytes

	require.NoError(t, s.Sign(payload, key))
	require.NoError(t, s.Verify(payload, &key.PublicKey))

	chain, err := s.CertChain()
	require.NoError(t, err)
	require.Len(t, chain, 1)
	assert.Equal(t, "fake-leaf-cert", string(chain[0]))
}

func TestSign1_VerifyRejectsTamperedPayload(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	s := cose.NewSign1(cose.AlgES256, nil, 16)
	require.NoError(t, s.Sign([]byte("original"), key))

	err = s.Verify([]byte("tampered"), &key.PublicKey)
	assert.Error(t, err)
}

func TestSign1_WireRoundTrip(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	s := cose.NewSign1(cose.AlgES256, [][]byte{[]byte("leaf")}, 32)
	payload := []byte("claim bytes")
	require.NoError(t, s.Sign(payload, key))

	encoded, err := s.Marshal()
	require.NoError(t, err)

	var decoded cose.Sign1
	require.NoError(t, decoded.Unmarshal(encoded))
	require.NoError(t, decoded.Verify(payload, &key.PublicKey))

	alg, err := decoded.Algorithm()
	require.NoError(t, err)
	assert.Equal(t, cose.AlgES256, alg)
}

func TestSign1_TimestampToken(t *testing.T) {
	s := cose.NewSign1(cose.AlgES256, nil, 8)
	_, ok := s.TimestampToken()
	assert.False(t, ok)

	s.SetTimestampToken([]byte("rfc3161-token-bytes"))
	tok, ok := s.TimestampToken()
	require.True(t, ok)
	assert.Equal(t, "rfc3161-token-bytes", string(tok))
}

func TestSign1_SignWithPadding_AbsorbsGrowth(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	s := cose.NewSign1(cose.AlgES256, [][]byte{[]byte("leaf-cert-bytes")}, 96)
	before, err := marshalLen(t, s)
	require.NoError(t, err)

	require.NoError(t, s.SignWithPadding([]byte("claim"), key))

	after, err := marshalLen(t, s)
	require.NoError(t, err)
	assert.Equal(t, before, after, "envelope size must be unchanged after absorbing growth into padding")
	assert.Less(t, s.PaddingLength(), int64(96))
}

func TestSign1_SignWithPadding_InsufficientPaddingFails(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	s := cose.NewSign1(cose.AlgES256, [][]byte{[]byte("leaf")}, 0)
	err = s.SignWithPadding([]byte("claim"), key)
	assert.ErrorIs(t, err, errdefs.ErrInsufficientPadding)
}

func marshalLen(t *testing.T, s *cose.Sign1) (int, error) {
	t.Helper()
	b, err := s.Marshal()
	if err != nil {
		return 0, err
	}
	return len(b), nil
}
