package manifest_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"math/big"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/require"

	"github.com/wuxler/c2pa/pkg/asset"
	"github.com/wuxler/c2pa/pkg/cose"
	"github.com/wuxler/c2pa/pkg/hashing"
	"github.com/wuxler/c2pa/pkg/jumbf"
	"github.com/wuxler/c2pa/pkg/manifest"
)

// selfSignedLeaf returns a self-signed ECDSA P-256 certificate (DER) and its
// private key, standing in for a real signing credential.
func selfSignedLeaf(t *testing.T) ([]byte, *ecdsa.PrivateKey) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "test signer"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	return der, key
}

func dataHashAssertionLabeled(t *testing.T, label string, hash []byte, exclusions []map[string]any) manifest.Assertion {
	t.Helper()
	fields := map[string]any{
		"alg":  "sha256",
		"hash": hash,
	}
	if len(exclusions) > 0 {
		fields["exclusions"] = exclusions
	}
	raw, err := cbor.Marshal(fields)
	require.NoError(t, err)
	a, err := manifest.ParseAssertion(label, jumbf.UUIDCBORAssertion, jumbf.ContentBox{Type: jumbf.TypeCBOR, Raw: raw})
	require.NoError(t, err)
	return a
}

func dataHashAssertion(t *testing.T, hash []byte) manifest.Assertion {
	return dataHashAssertionLabeled(t, "c2pa.hash.data", hash, nil)
}

func actionsAssertion(t *testing.T, entries ...map[string]any) manifest.Assertion {
	t.Helper()
	raw, err := cbor.Marshal(map[string]any{"actions": entries})
	require.NoError(t, err)
	a, err := manifest.ParseAssertion("c2pa.actions", jumbf.UUIDCBORAssertion, jumbf.ContentBox{Type: jumbf.TypeCBOR, Raw: raw})
	require.NoError(t, err)
	return a
}

func ingredientAssertion(t *testing.T, label, relationship string) manifest.Assertion {
	t.Helper()
	raw, err := cbor.Marshal(map[string]any{"relationship": relationship})
	require.NoError(t, err)
	a, err := manifest.ParseAssertion(label, jumbf.UUIDIngredient, jumbf.ContentBox{Type: jumbf.TypeCBOR, Raw: raw})
	require.NoError(t, err)
	return a
}

func thumbnailAssertion(t *testing.T) manifest.Assertion {
	t.Helper()
	a, err := manifest.ParseAssertion("c2pa.thumbnail.claim.jpeg", jumbf.UUIDEmbeddedFile, jumbf.ContentBox{Type: jumbf.TypeEmbeddedData, Raw: []byte("thumb-bytes")})
	require.NoError(t, err)
	return a
}

func newManifest(t *testing.T, mtype manifest.ManifestType, assertions []manifest.Assertion) *manifest.Manifest {
	t.Helper()
	store := &manifest.AssertionStore{Assertions: assertions}

	claim := &manifest.Claim{
		Version:          manifest.ClaimV1,
		InstanceID:       manifest.NewInstanceID(),
		Format:           "image/jpeg",
		DefaultAlgorithm: hashing.SHA256,
		SignatureRef:     "self#jumbf=c2pa.signature",
		ClaimGenerator:   "c2pa-test/1.0",
	}
	for _, a := range assertions {
		data, err := a.EmitBytes()
		require.NoError(t, err)
		href, err := manifest.WithHash("self#jumbf=c2pa.assertions/"+a.FullLabel(), data, hashing.SHA256)
		require.NoError(t, err)
		claim.Assertions = append(claim.Assertions, href)
	}
	_, err := claim.Emit()
	require.NoError(t, err)

	return &manifest.Manifest{
		Label:      "c2pa.contentauth",
		Type:       mtype,
		Claim:      claim,
		Assertions: store,
	}
}

func signManifest(t *testing.T, m *manifest.Manifest) {
	t.Helper()
	leaf, key := selfSignedLeaf(t)
	sig := cose.NewSign1(cose.AlgES256, [][]byte{leaf}, 0)
	require.NoError(t, sig.Sign(m.Claim.RawContent, key))
	m.Signature = sig
}

func TestManifest_Validate_HardBindingMissing(t *testing.T) {
	m := newManifest(t, manifest.ManifestStandard, []manifest.Assertion{
		actionsAssertion(t, map[string]any{"action": "c2pa.created"}),
	})
	signManifest(t, m)

	result, err := m.Validate(nil, nil)
	require.NoError(t, err)
	require.False(t, result.IsValid())
	assertHasCode(t, result, manifest.StatusClaimHardBindingsMissing)
}

func TestManifest_Validate_MultipleHardBindings(t *testing.T) {
	m := newManifest(t, manifest.ManifestStandard, []manifest.Assertion{
		actionsAssertion(t, map[string]any{"action": "c2pa.created"}),
		dataHashAssertionLabeled(t, "c2pa.hash.data", make([]byte, 32), nil),
		dataHashAssertionLabeled(t, "c2pa.hash.data__1", make([]byte, 32), nil),
	})
	signManifest(t, m)

	result, err := m.Validate(nil, nil)
	require.NoError(t, err)
	assertHasCode(t, result, manifest.StatusAssertionMultipleHardBindings)
}

func TestManifest_Validate_SignAndDataHashRoundTrip(t *testing.T) {
	assetBytes := []byte("0123456789ABCDEF0123456789ABCDEF")
	mem := asset.NewMemory(assetBytes, 4)
	require.NoError(t, mem.EnsureManifestSpace(8))
	require.NoError(t, mem.WriteManifestJUMBF(make([]byte, 8)))
	start, length := mem.HashExclusionRange()

	digest, err := hashing.DigestWithExclusions(mem, []hashing.Exclusion{{Start: start, Length: length}}, hashing.SHA256)
	require.NoError(t, err)
	sum, err := hex.DecodeString(digest.Encoded())
	require.NoError(t, err)

	dh := dataHashAssertionLabeled(t, "c2pa.hash.data", sum, []map[string]any{
		{"start": start, "length": length},
	})

	m := newManifest(t, manifest.ManifestStandard, []manifest.Assertion{
		actionsAssertion(t, map[string]any{"action": "c2pa.created"}),
		dh,
	})
	signManifest(t, m)

	result, err := m.Validate(mem, nil)
	require.NoError(t, err)
	assertHasCode(t, result, manifest.StatusClaimSignatureValidated)
	assertHasCode(t, result, manifest.StatusDataHashMatch)
	require.True(t, result.IsValid())
}

func TestManifest_Validate_UpdateManifestRequiresSingleParentNoHardBinding(t *testing.T) {
	ing := ingredientAssertion(t, "c2pa.ingredient", "parentOf")
	m := newManifest(t, manifest.ManifestUpdate, []manifest.Assertion{ing})
	signManifest(t, m)

	result, err := m.Validate(nil, nil)
	require.NoError(t, err)
	require.True(t, result.IsValid())
}

func TestManifest_Validate_UpdateManifestRejectsThumbnail(t *testing.T) {
	ing := ingredientAssertion(t, "c2pa.ingredient", "parentOf")
	thumb := thumbnailAssertion(t)
	m := newManifest(t, manifest.ManifestUpdate, []manifest.Assertion{ing, thumb})
	signManifest(t, m)

	result, err := m.Validate(nil, nil)
	require.NoError(t, err)
	assertHasCode(t, result, manifest.StatusManifestUpdateInvalid)
}

func TestManifest_Validate_ActionRequiresCreatedOrOpened(t *testing.T) {
	m := newManifest(t, manifest.ManifestStandard, []manifest.Assertion{
		actionsAssertion(t, map[string]any{"action": "c2pa.color_adjustments"}),
		dataHashAssertion(t, make([]byte, 32)),
	})
	signManifest(t, m)

	result, err := m.Validate(nil, nil)
	require.NoError(t, err)
	assertHasCode(t, result, manifest.StatusActionMalformed)
}

func assertHasCode(t *testing.T, r *manifest.ValidationResult, code manifest.StatusCode) {
	t.Helper()
	for _, e := range r.Entries {
		if e.Code == code {
			return
		}
	}
	t.Fatalf("expected status code %q among: %+v", code, r.Entries)
}
