package hashing_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wuxler/c2pa/pkg/hashing"
)

type memSource struct {
	data []byte
}

func (m memSource) GetRange(offset, length int64) ([]byte, error) {
	return m.data[offset : offset+length], nil
}

func (m memSource) GetLength() int64 { return int64(len(m.data)) }

func TestDigest(t *testing.T) {
	src := memSource{data: []byte("hello world")}
	d, err := hashing.Digest(src, hashing.SHA256)
	require.NoError(t, err)
	assert.Equal(t, "sha256:b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", d.String())
}

func TestDigest_UnsupportedAlgorithm(t *testing.T) {
	src := memSource{data: []byte("x")}
	_, err := hashing.Digest(src, "md5")
	assert.Error(t, err)
}

func TestDigestWithExclusions_OrderInvariant(t *testing.T) {
	data := []byte("0123456789abcdef")
	src := memSource{data: data}

	forward := []hashing.Exclusion{{Start: 2, Length: 3}, {Start: 10, Length: 2}}
	reversed := []hashing.Exclusion{{Start: 10, Length: 2}, {Start: 2, Length: 3}}

	d1, err := hashing.DigestWithExclusions(src, forward, hashing.SHA256)
	require.NoError(t, err)
	d2, err := hashing.DigestWithExclusions(src, reversed, hashing.SHA256)
	require.NoError(t, err)

	assert.Equal(t, d1, d2)
}

func TestDigestWithExclusions_OverlappingRejected(t *testing.T) {
	src := memSource{data: []byte("0123456789")}
	exclusions := []hashing.Exclusion{{Start: 0, Length: 5}, {Start: 3, Length: 2}}
	_, err := hashing.DigestWithExclusions(src, exclusions, hashing.SHA256)
	assert.Error(t, err)
}

func TestDigestWithExclusions_OffsetMarker(t *testing.T) {
	data := []byte("abcdefgh")
	src := memSource{data: data}

	withMarker, err := hashing.DigestWithExclusions(src, []hashing.Exclusion{
		{Start: 4, Length: 0, OffsetMarker: true},
	}, hashing.SHA256)
	require.NoError(t, err)

	noExclusion, err := hashing.Digest(src, hashing.SHA256)
	require.NoError(t, err)

	assert.NotEqual(t, noExclusion, withMarker, "offset marker must perturb the digest stream")
}

func TestStreamDigest(t *testing.T) {
	r := bytes.NewReader([]byte("hello world"))
	d, err := hashing.StreamDigest(r, hashing.SHA256)
	require.NoError(t, err)
	assert.Equal(t, "sha256:b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", d.String())
}
