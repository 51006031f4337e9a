package manifest_test

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"github.com/wuxler/c2pa/pkg/asset/mocks"
	"github.com/wuxler/c2pa/pkg/hashing"
	"github.com/wuxler/c2pa/pkg/manifest"
)

// TestDataHash_ValidateAgainstAsset_CallSequence asserts the exact
// GetLength/GetRange calls DataHash.ValidateAgainstAsset makes against an
// asset.Reader, using a mock in place of a real file so the sequence is
// pinned without touching the filesystem.
func TestDataHash_ValidateAgainstAsset_CallSequence(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockReader(ctrl)

	// layout: [0,4) payload, [4,8) manifest reservation (excluded), [8,12) payload
	full := []byte("headmfstpayl")
	gomock.InOrder(
		src.EXPECT().GetLength().Return(int64(12)),
		src.EXPECT().GetRange(int64(0), int64(4)).Return(full[0:4], nil),
		src.EXPECT().GetRange(int64(8), int64(4)).Return(full[8:12], nil),
	)

	sum, err := hashing.DigestWithExclusions(src, []hashing.Exclusion{{Start: 4, Length: 4}}, hashing.SHA256)
	require.NoError(t, err)

	hash, err := hex.DecodeString(sum.Encoded())
	require.NoError(t, err)

	d := &manifest.DataHash{
		Algorithm:  hashing.SHA256,
		Exclusions: []hashing.Exclusion{{Start: 4, Length: 4}},
		Hash:       hash,
	}

	src2 := mocks.NewMockReader(ctrl)
	gomock.InOrder(
		src2.EXPECT().GetLength().Return(int64(12)),
		src2.EXPECT().GetRange(int64(0), int64(4)).Return(full[0:4], nil),
		src2.EXPECT().GetRange(int64(8), int64(4)).Return(full[8:12], nil),
	)
	ok, err := d.ValidateAgainstAsset(src2, hashing.SHA256)
	require.NoError(t, err)
	require.True(t, ok)
}
