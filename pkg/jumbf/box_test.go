package jumbf_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wuxler/c2pa/pkg/jumbf"
)

func buildSample(t *testing.T) *jumbf.SuperBox {
	t.Helper()
	root := jumbf.NewSuperBox(jumbf.DescriptionBox{UUID: jumbf.UUIDManifestStore, Label: "c2pa"})
	manifest := jumbf.NewSuperBox(jumbf.DescriptionBox{UUID: jumbf.UUIDManifest, Label: "urn:uuid:test-manifest"})
	manifest.AddContent(jumbf.ContentBox{Type: jumbf.TypeCBOR, Raw: []byte{0xa1, 0x61, 0x61, 0x01}})
	root.AddChild(manifest)
	return root
}

func TestRoundTrip_FreshlyBuilt(t *testing.T) {
	root := buildSample(t)
	encoded, err := root.Bytes()
	require.NoError(t, err)

	parsed, err := jumbf.Parse(encoded)
	require.NoError(t, err)
	assert.Equal(t, jumbf.UUIDManifestStore, parsed.Description.UUID)
	assert.Equal(t, "c2pa", parsed.Description.Label)
	require.Len(t, parsed.Children, 1)
	assert.Equal(t, "urn:uuid:test-manifest", parsed.Children[0].Description.Label)
	require.Len(t, parsed.Children[0].Contents, 1)
	assert.Equal(t, jumbf.TypeCBOR, parsed.Children[0].Contents[0].Type)
}

func TestRoundTrip_UnmutatedBytesExact(t *testing.T) {
	root := buildSample(t)
	encoded, err := root.Bytes()
	require.NoError(t, err)

	parsed, err := jumbf.Parse(encoded)
	require.NoError(t, err)

	reEncoded, err := parsed.Bytes()
	require.NoError(t, err)
	assert.Equal(t, encoded, reEncoded, "re-emission of an unmutated parse must be byte-exact")
}

func TestTouch_InvalidatesCachedBytes(t *testing.T) {
	root := buildSample(t)
	encoded, err := root.Bytes()
	require.NoError(t, err)
	parsed, err := jumbf.Parse(encoded)
	require.NoError(t, err)

	parsed.Description.Label = "changed"
	parsed.Touch()

	reEncoded, err := parsed.Bytes()
	require.NoError(t, err)
	assert.NotEqual(t, encoded, reEncoded)

	reparsed, err := jumbf.Parse(reEncoded)
	require.NoError(t, err)
	assert.Equal(t, "changed", reparsed.Description.Label)
}

func TestSize_MatchesBytesLength(t *testing.T) {
	root := buildSample(t)
	size, err := root.Size()
	require.NoError(t, err)
	encoded, err := root.Bytes()
	require.NoError(t, err)
	assert.EqualValues(t, len(encoded), size)
}

func TestFindChild_FindContent(t *testing.T) {
	root := buildSample(t)
	child := root.FindChild("urn:uuid:test-manifest")
	require.NotNil(t, child)
	content, ok := child.FindContent(jumbf.TypeCBOR)
	require.True(t, ok)
	assert.NotEmpty(t, content.Raw)

	assert.Nil(t, root.FindChild("no-such-label"))
}

func TestParse_RejectsTruncatedHeader(t *testing.T) {
	_, err := jumbf.Parse([]byte{0x00, 0x00, 0x00})
	assert.Error(t, err)
}

func TestParse_RejectsWrongOuterType(t *testing.T) {
	// A valid-looking box header but of type "jumd" instead of "jumb".
	data := []byte{0x00, 0x00, 0x00, 0x08, 'j', 'u', 'm', 'd'}
	_, err := jumbf.Parse(data)
	assert.Error(t, err)
}
