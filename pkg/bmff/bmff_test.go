package bmff_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wuxler/c2pa/pkg/bmff"
)

type memSource []byte

func (m memSource) GetRange(offset, length int64) ([]byte, error) {
	return m[offset : offset+length], nil
}
func (m memSource) GetLength() int64 { return int64(len(m)) }

func box(typ string, payload []byte) []byte {
	out := make([]byte, 8+len(payload))
	binary.BigEndian.PutUint32(out[0:4], uint32(len(out)))
	copy(out[4:8], typ)
	copy(out[8:], payload)
	return out
}

func fullBox(typ string, version uint8, payload []byte) []byte {
	body := append([]byte{version, 0, 0, 0}, payload...)
	return box(typ, body)
}

func buildFixture() []byte {
	ftyp := box("ftyp", []byte("isom"))
	trak := box("trak", box("mdia", fullBox("meta", 0, nil)))
	moov := box("moov", append(append([]byte{}, trak...)))
	mdat := box("mdat", []byte("payloadbytes"))
	var out []byte
	out = append(out, ftyp...)
	out = append(out, moov...)
	out = append(out, mdat...)
	return out
}

func TestParseTopLevel(t *testing.T) {
	data := buildFixture()
	boxes, err := bmff.ParseTopLevel(memSource(data))
	require.NoError(t, err)
	require.Len(t, boxes, 3)
	assert.Equal(t, "ftyp", boxes[0].Type)
	assert.Equal(t, "moov", boxes[1].Type)
	assert.Equal(t, "mdat", boxes[2].Type)
	require.Len(t, boxes[1].Children, 1)
	assert.Equal(t, "trak", boxes[1].Children[0].Type)
}

func TestGetBoxByPath(t *testing.T) {
	data := buildFixture()
	boxes, err := bmff.ParseTopLevel(memSource(data))
	require.NoError(t, err)

	b, ok, err := bmff.GetBoxByPath(boxes, "moov/trak/mdia")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "mdia", b.Type)
}

func TestGetBoxByPath_MissingReturnsNotFoundNoError(t *testing.T) {
	data := buildFixture()
	boxes, err := bmff.ParseTopLevel(memSource(data))
	require.NoError(t, err)

	_, ok, err := bmff.GetBoxByPath(boxes, "moov/nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFullBoxVersionAndFlags(t *testing.T) {
	data := buildFixture()
	boxes, err := bmff.ParseTopLevel(memSource(data))
	require.NoError(t, err)

	b, ok, err := bmff.GetBoxByPath(boxes, "moov/trak/mdia/meta")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, b.IsFullBox)
	assert.Equal(t, uint8(0), b.Version)
}

func TestMdatOffsetsForMerkleChunking(t *testing.T) {
	data := buildFixture()
	boxes, err := bmff.ParseTopLevel(memSource(data))
	require.NoError(t, err)
	mdat := boxes[2]
	assert.Equal(t, int64(len(data)), mdat.End())
	payload := data[mdat.PayloadOffset:mdat.End()]
	assert.Equal(t, "payloadbytes", string(payload))
}
