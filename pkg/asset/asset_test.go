package asset_test

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wuxler/c2pa/pkg/asset"
)

func TestMemory_GetRangeBounds(t *testing.T) {
	m := asset.NewMemory([]byte("hello world"), 5)
	b, err := m.GetRange(0, 5)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))

	_, err = m.GetRange(9, 10)
	assert.Error(t, err)
}

func TestMemory_ReserveWriteReadBack(t *testing.T) {
	m := asset.NewMemory([]byte("HEADbodyTAIL"), 4)
	require.NoError(t, m.EnsureManifestSpace(4))

	start, length := m.HashExclusionRange()
	assert.EqualValues(t, 4, start)
	assert.EqualValues(t, 4, length)

	_, ok, err := m.GetManifestJUMBF()
	require.NoError(t, err)
	assert.False(t, ok, "nothing written yet")

	require.NoError(t, m.WriteManifestJUMBF([]byte("JUMB")))
	data, ok, err := m.GetManifestJUMBF()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "JUMB", string(data))

	assert.Equal(t, "HEADJUMBbodyTAIL", string(m.Bytes()))
}

func TestMemory_WriteManifestWrongLengthFails(t *testing.T) {
	m := asset.NewMemory([]byte("0123456789"), 0)
	require.NoError(t, m.EnsureManifestSpace(4))
	err := m.WriteManifestJUMBF([]byte("toolong"))
	assert.Error(t, err)
}

func TestMemory_ReReservePreservesSurroundingBytes(t *testing.T) {
	m := asset.NewMemory([]byte("HEADbodyTAIL"), 4)
	require.NoError(t, m.EnsureManifestSpace(4))
	require.NoError(t, m.WriteManifestJUMBF([]byte("1234")))

	require.NoError(t, m.EnsureManifestSpace(6))
	_, ok, err := m.GetManifestJUMBF()
	require.NoError(t, err)
	assert.False(t, ok, "new reservation clears the written flag")
	assert.Equal(t, "HEAD\x00\x00\x00\x00\x00\x00bodyTAIL", string(m.Bytes()))
}

func TestFile_FlushWritesBack(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/asset.bin", []byte("HEADbodyTAIL"), 0o644))

	f, err := asset.NewFile(fsys, "/asset.bin", 4)
	require.NoError(t, err)
	require.NoError(t, f.EnsureManifestSpace(4))
	require.NoError(t, f.WriteManifestJUMBF([]byte("1234")))
	require.NoError(t, f.Flush())

	out, err := afero.ReadFile(fsys, "/asset.bin")
	require.NoError(t, err)
	assert.Equal(t, "HEAD1234bodyTAIL", string(out))
}
