package merkle_test

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wuxler/c2pa/pkg/hashing"
	"github.com/wuxler/c2pa/pkg/merkle"
)

// rawHex hex-encodes raw digest bytes for comparison against a
// digest.Digest's Encoded() form.
func rawHex(b []byte) string { return hex.EncodeToString(b) }

func TestSigner_FixedBlockFlushesOnBoundary(t *testing.T) {
	s, err := merkle.NewFixedBlockSigner(hashing.SHA256, 4)
	require.NoError(t, err)

	_, err = s.Write([]byte("aaaa"))
	require.NoError(t, err)
	_, err = s.Write([]byte("bb"))
	require.NoError(t, err)
	_, err = s.Write([]byte("bb"))
	require.NoError(t, err)

	res, err := s.Finish()
	require.NoError(t, err)
	assert.Equal(t, uint32(2), res.Count)
	assert.Len(t, res.Hashes, 2)
	assert.Equal(t, int64(4), res.FixedBlockSize)
	assert.Empty(t, res.VariableBlockSizes)

	want0, err := hashing.Digest(byteSource("aaaa"), hashing.SHA256)
	require.NoError(t, err)
	assert.Equal(t, want0.Encoded(), rawHex(res.Hashes[0]))
	want1, err := hashing.Digest(byteSource("bbbb"), hashing.SHA256)
	require.NoError(t, err)
	assert.Equal(t, want1.Encoded(), rawHex(res.Hashes[1]))
}

func TestSigner_FixedBlockFlushesShortTrailingBlock(t *testing.T) {
	s, err := merkle.NewFixedBlockSigner(hashing.SHA256, 4)
	require.NoError(t, err)

	_, err = s.Write([]byte("aaaabb"))
	require.NoError(t, err)

	res, err := s.Finish()
	require.NoError(t, err)
	assert.Equal(t, uint32(2), res.Count)
}

func TestSigner_VariableBlockRecordsBlockSizes(t *testing.T) {
	s := merkle.NewVariableBlockSigner(hashing.SHA256)

	_, err := s.Write([]byte("abc"))
	require.NoError(t, err)
	require.NoError(t, s.EndBlock())

	_, err = s.Write([]byte("de"))
	require.NoError(t, err)
	require.NoError(t, s.EndBlock())

	res, err := s.Finish()
	require.NoError(t, err)
	assert.Equal(t, uint32(2), res.Count)
	assert.Equal(t, []int64{3, 2}, res.VariableBlockSizes)
	assert.Zero(t, res.FixedBlockSize)
}

func TestSigner_VariableBlockFlushesUnterminatedTrailingData(t *testing.T) {
	s := merkle.NewVariableBlockSigner(hashing.SHA256)

	_, err := s.Write([]byte("abc"))
	require.NoError(t, err)
	require.NoError(t, s.EndBlock())

	_, err = s.Write([]byte("trailing"))
	require.NoError(t, err)

	res, err := s.Finish()
	require.NoError(t, err)
	assert.Equal(t, uint32(2), res.Count)
	assert.Equal(t, []int64{3, 8}, res.VariableBlockSizes)
}

func TestSigner_EndBlockInvalidInFixedMode(t *testing.T) {
	s, err := merkle.NewFixedBlockSigner(hashing.SHA256, 4)
	require.NoError(t, err)
	assert.Error(t, s.EndBlock())
}

func TestSigner_CaptureInit(t *testing.T) {
	s := merkle.NewVariableBlockSigner(hashing.SHA256)
	_, err := s.Write([]byte("frag"))
	require.NoError(t, err)
	require.NoError(t, s.EndBlock())
	require.NoError(t, s.CaptureInit([]byte("ftyp+moov bytes")))

	res, err := s.Finish()
	require.NoError(t, err)
	want, err := hashing.Digest(byteSource("ftyp+moov bytes"), hashing.SHA256)
	require.NoError(t, err)
	assert.Equal(t, want.Encoded(), rawHex(res.InitHash))
}

func TestSigner_FinishErrorsWithNoBlocks(t *testing.T) {
	s := merkle.NewVariableBlockSigner(hashing.SHA256)
	_, err := s.Finish()
	assert.Error(t, err)
}
