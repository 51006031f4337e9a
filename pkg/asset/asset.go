// Package asset implements the byte-source side of the external asset
// reader interface the manifest engine consumes: random-access reads over a
// JPEG/PNG/BMFF file, reservation and write-back of the embedded JUMBF
// manifest, and — for BMFF assets — box lookup by xpath. Locating *where* in
// a given container format the manifest should live is a format-specific
// concern handled upstream (see spec.md §6); callers supply that offset.
package asset

import (
	"fmt"

	"github.com/spf13/afero"

	"github.com/wuxler/c2pa/pkg/bmff"
	"github.com/wuxler/c2pa/pkg/errdefs"
	"github.com/wuxler/c2pa/pkg/hashing"
)

//go:generate mockgen -destination=./mocks/mock_asset.go -package=mocks github.com/wuxler/c2pa/pkg/asset Reader

// Reader is the asset-side interface the manifest engine consumes: a
// random-access byte source plus the manifest-reservation and BMFF
// box-lookup operations spec.md §6 names.
type Reader interface {
	hashing.ByteSource

	// GetManifestJUMBF returns the bytes currently written into the
	// reserved manifest region, or ok=false if no space has been reserved.
	GetManifestJUMBF() (data []byte, ok bool, err error)

	// EnsureManifestSpace reserves exactly length bytes for a JUMBF blob at
	// the asset's manifest insertion point, replacing any prior reservation.
	EnsureManifestSpace(length int64) error

	// WriteManifestJUMBF writes data into the reserved region. len(data)
	// must equal the most recent EnsureManifestSpace length.
	WriteManifestJUMBF(data []byte) error

	// HashExclusionRange returns the reserved region as (start, length), the
	// single data-hash exclusion used when binding a manifest to this asset.
	HashExclusionRange() (start, length int64)

	// GetTopLevelBoxes, GetBoxByPath and GetBoxesByPath are meaningful only
	// for BMFF-family assets (MP4, HEIC); they parse the current byte
	// contents as a box tree on every call that would observe new offsets.
	GetTopLevelBoxes() ([]*bmff.Box, error)
	GetBoxByPath(xpath string) (*bmff.Box, bool, error)
	GetBoxesByPath(xpath string) ([]*bmff.Box, error)
}

// Memory is an in-memory Reader backed by a byte slice.
type Memory struct {
	data     []byte
	insertAt int64
	reserved int64
	written  bool

	boxesValid bool
	boxes      []*bmff.Box
}

// NewMemory returns a Memory asset over data, with the manifest insertion
// point at insertAt (as determined by the caller's format-specific locator).
func NewMemory(data []byte, insertAt int64) *Memory {
	cp := append([]byte(nil), data...)
	return &Memory{data: cp, insertAt: insertAt}
}

func (m *Memory) GetLength() int64 { return int64(len(m.data)) }

func (m *Memory) GetRange(offset, length int64) ([]byte, error) {
	if offset < 0 || length < 0 || offset+length > int64(len(m.data)) {
		return nil, fmt.Errorf("%w: range [%d,%d) out of bounds for %d-byte asset", errdefs.ErrInvalidParameter, offset, offset+length, len(m.data))
	}
	return m.data[offset : offset+length], nil
}

// Bytes returns the asset's current full contents.
func (m *Memory) Bytes() []byte { return append([]byte(nil), m.data...) }

func (m *Memory) GetManifestJUMBF() ([]byte, bool, error) {
	if !m.written || m.reserved == 0 {
		return nil, false, nil
	}
	b, err := m.GetRange(m.insertAt, m.reserved)
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (m *Memory) EnsureManifestSpace(length int64) error {
	if length <= 0 {
		return fmt.Errorf("%w: manifest reservation length must be positive, got %d", errdefs.ErrInvalidParameter, length)
	}
	next := make([]byte, 0, int64(len(m.data))-m.reserved+length)
	next = append(next, m.data[:m.insertAt]...)
	next = append(next, make([]byte, length)...)
	next = append(next, m.data[m.insertAt+m.reserved:]...)
	m.data = next
	m.reserved = length
	m.written = false
	m.boxesValid = false
	return nil
}

func (m *Memory) WriteManifestJUMBF(data []byte) error {
	if int64(len(data)) != m.reserved {
		return fmt.Errorf("%w: wrote %d bytes into a %d-byte reservation", errdefs.ErrInsufficientPadding, len(data), m.reserved)
	}
	copy(m.data[m.insertAt:m.insertAt+m.reserved], data)
	m.written = true
	m.boxesValid = false
	return nil
}

func (m *Memory) HashExclusionRange() (int64, int64) { return m.insertAt, m.reserved }

func (m *Memory) boxesOf() ([]*bmff.Box, error) {
	if m.boxesValid {
		return m.boxes, nil
	}
	boxes, err := bmff.ParseTopLevel(m)
	if err != nil {
		return nil, err
	}
	m.boxes = boxes
	m.boxesValid = true
	return boxes, nil
}

func (m *Memory) GetTopLevelBoxes() ([]*bmff.Box, error) { return m.boxesOf() }

func (m *Memory) GetBoxByPath(xpath string) (*bmff.Box, bool, error) {
	boxes, err := m.boxesOf()
	if err != nil {
		return nil, false, err
	}
	return bmff.GetBoxByPath(boxes, xpath)
}

func (m *Memory) GetBoxesByPath(xpath string) ([]*bmff.Box, error) {
	boxes, err := m.boxesOf()
	if err != nil {
		return nil, err
	}
	return bmff.GetBoxesByPath(boxes, xpath)
}

// File is a Reader backed by a file on an afero.Fs, loaded fully into memory
// on open and written back explicitly via Flush.
type File struct {
	*Memory
	fs   afero.Fs
	path string
}

// NewFile opens path on fsys and returns a File asset with the manifest
// insertion point at insertAt.
func NewFile(fsys afero.Fs, path string, insertAt int64) (*File, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("reading asset %q: %w", path, err)
	}
	return &File{Memory: NewMemory(data, insertAt), fs: fsys, path: path}, nil
}

// Flush writes the asset's current contents back to its backing file.
func (f *File) Flush() error {
	if err := afero.WriteFile(f.fs, f.path, f.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing asset %q: %w", f.path, err)
	}
	return nil
}
