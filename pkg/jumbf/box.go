// Package jumbf implements a minimal JUMBF (JPEG Universal Metadata Box
// Format, ISO/IEC 19566-5) container codec: typed binary super/description/
// content boxes, a serializer, a deserializer, and a size measurer. The
// manifest engine treats this package as a boundary collaborator — it reads
// and writes boxes but does not interpret their CBOR/JSON payloads.
package jumbf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/wuxler/c2pa/pkg/errdefs"
	"github.com/wuxler/c2pa/pkg/util/xio"
)

// FourCC is a 4-byte ASCII box type code, as used throughout ISO base media
// family containers (of which JUMBF is one).
type FourCC [4]byte

func (f FourCC) String() string { return string(f[:]) }

var (
	TypeSuperBox       = FourCC{'j', 'u', 'm', 'b'}
	TypeDescription    = FourCC{'j', 'u', 'm', 'd'}
	TypeCBOR           = FourCC{'c', 'b', 'o', 'r'}
	TypeJSON           = FourCC{'j', 's', 'o', 'n'}
	TypeEmbeddedData   = FourCC{'b', 'f', 'd', 'b'} // embedded-file raw bytes
	TypeEmbeddedMedia  = FourCC{'b', 'i', 'd', 'b'} // embedded-file media-type string
	TypeCodestream     = FourCC{'j', 'p', '2', 'c'}
)

const (
	toggleRequestable = 1 << 0
	toggleLabel       = 1 << 1
	toggleID          = 1 << 2
	toggleSignature   = 1 << 3
)

// DescriptionBox ("jumd") identifies the content of the enclosing SuperBox:
// a type UUID plus an optional label, numeric ID and signature.
type DescriptionBox struct {
	UUID         UUID
	Label        string
	ID           uint32
	HasID        bool
	Signature    [32]byte
	HasSignature bool
	Requestable  bool
}

func (d DescriptionBox) toggles() byte {
	var t byte
	if d.Requestable {
		t |= toggleRequestable
	}
	if d.Label != "" {
		t |= toggleLabel
	}
	if d.HasID {
		t |= toggleID
	}
	if d.HasSignature {
		t |= toggleSignature
	}
	return t
}

func (d DescriptionBox) marshal() []byte {
	var buf bytes.Buffer
	buf.Write(d.UUID[:])
	buf.WriteByte(d.toggles())
	if d.Label != "" {
		buf.WriteString(d.Label)
		buf.WriteByte(0)
	}
	if d.HasID {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], d.ID)
		buf.Write(b[:])
	}
	if d.HasSignature {
		buf.Write(d.Signature[:])
	}
	return buf.Bytes()
}

func parseDescriptionBox(body []byte) (DescriptionBox, error) {
	if len(body) < 17 {
		return DescriptionBox{}, fmt.Errorf("%w: jumd box too short (%d bytes)", errdefs.ErrInvalidParameter, len(body))
	}
	var d DescriptionBox
	copy(d.UUID[:], body[0:16])
	toggles := body[16]
	d.Requestable = toggles&toggleRequestable != 0
	rest := body[17:]

	if toggles&toggleLabel != 0 {
		nul := bytes.IndexByte(rest, 0)
		if nul < 0 {
			return DescriptionBox{}, fmt.Errorf("%w: jumd label missing NUL terminator", errdefs.ErrInvalidParameter)
		}
		d.Label = string(rest[:nul])
		rest = rest[nul+1:]
	}
	if toggles&toggleID != 0 {
		if len(rest) < 4 {
			return DescriptionBox{}, fmt.Errorf("%w: jumd box truncated before ID", errdefs.ErrInvalidParameter)
		}
		d.HasID = true
		d.ID = binary.BigEndian.Uint32(rest[0:4])
		rest = rest[4:]
	}
	if toggles&toggleSignature != 0 {
		if len(rest) < 32 {
			return DescriptionBox{}, fmt.Errorf("%w: jumd box truncated before signature", errdefs.ErrInvalidParameter)
		}
		d.HasSignature = true
		copy(d.Signature[:], rest[0:32])
	}
	return d, nil
}

// ContentBox is a leaf box directly inside a SuperBox that is not itself a
// nested SuperBox: CBOR content, JSON content, an embedded-file data/media
// box, or a codestream. Raw is the exact payload bytes.
type ContentBox struct {
	Type FourCC
	Raw  []byte
}

// SuperBox ("jumb") is a labeled container: a DescriptionBox plus an ordered
// mix of nested SuperBoxes and leaf ContentBoxes.
type SuperBox struct {
	Description DescriptionBox
	Children    []*SuperBox
	Contents    []ContentBox

	// order records the interleaving of Children/Contents as parsed, so
	// re-emission of an unmutated box reproduces the original box order.
	order []boxSlot
	// raw retains the exact source bytes; Bytes returns them verbatim unless
	// Touch has been called, matching the "round-trip byte exactness"
	// invariant for unmutated manifests.
	raw   []byte
	dirty bool
}

type boxSlot struct {
	isChild bool
	index   int
}

// Touch marks the box (and, transitively, its cached raw bytes) as stale so
// the next Bytes call re-serializes instead of returning the original bytes.
func (b *SuperBox) Touch() {
	b.dirty = true
	b.raw = nil
}

// AddChild appends a nested SuperBox.
func (b *SuperBox) AddChild(child *SuperBox) {
	b.order = append(b.order, boxSlot{isChild: true, index: len(b.Children)})
	b.Children = append(b.Children, child)
	b.Touch()
}

// AddContent appends a leaf content box.
func (b *SuperBox) AddContent(c ContentBox) {
	b.order = append(b.order, boxSlot{isChild: false, index: len(b.Contents)})
	b.Contents = append(b.Contents, c)
	b.Touch()
}

// NewSuperBox returns an empty SuperBox described by desc.
func NewSuperBox(desc DescriptionBox) *SuperBox {
	return &SuperBox{Description: desc, dirty: true}
}

// writeBoxHeader writes a box header (length + type) for a body of bodyLen
// bytes, using the 64-bit extended-length form if bodyLen doesn't fit in 32
// bits after accounting for the 8-byte header.
func writeBoxHeader(buf *bytes.Buffer, typ FourCC, bodyLen uint64) {
	total := bodyLen + 8
	if total <= 0xFFFFFFFF {
		var hdr [8]byte
		binary.BigEndian.PutUint32(hdr[0:4], uint32(total))
		copy(hdr[4:8], typ[:])
		buf.Write(hdr[:])
		return
	}
	var hdr [16]byte
	binary.BigEndian.PutUint32(hdr[0:4], 1) // length==1 signals extended form
	copy(hdr[4:8], typ[:])
	binary.BigEndian.PutUint64(hdr[8:16], total+8)
	buf.Write(hdr[:])
}

// readBoxHeader reads one box header from the front of data, returning the
// box type, the body length, and the number of header bytes consumed.
func readBoxHeader(data []byte) (typ FourCC, bodyLen uint64, headerLen int, err error) {
	if len(data) < 8 {
		return FourCC{}, 0, 0, fmt.Errorf("%w: box header truncated", errdefs.ErrInvalidParameter)
	}
	size := binary.BigEndian.Uint32(data[0:4])
	copy(typ[:], data[4:8])
	if size == 1 {
		if len(data) < 16 {
			return FourCC{}, 0, 0, fmt.Errorf("%w: extended box header truncated", errdefs.ErrInvalidParameter)
		}
		total := binary.BigEndian.Uint64(data[8:16])
		if total < 16 {
			return FourCC{}, 0, 0, fmt.Errorf("%w: extended box size %d too small", errdefs.ErrInvalidParameter, total)
		}
		return typ, total - 16, 16, nil
	}
	if uint64(size) < 8 {
		return FourCC{}, 0, 0, fmt.Errorf("%w: box size %d too small", errdefs.ErrInvalidParameter, size)
	}
	return typ, uint64(size) - 8, 8, nil
}

// Parse decodes one SuperBox (type "jumb") from the front of data. The
// original bytes of the parsed region are retained so that Bytes round-trips
// exactly when the box is not subsequently mutated.
func Parse(data []byte) (*SuperBox, error) {
	typ, bodyLen, headerLen, err := readBoxHeader(data)
	if err != nil {
		return nil, err
	}
	if typ != TypeSuperBox {
		return nil, fmt.Errorf("%w: expected %q box, got %q", errdefs.ErrInvalidParameter, TypeSuperBox, typ)
	}
	total := headerLen + int(bodyLen)
	if len(data) < total {
		return nil, fmt.Errorf("%w: jumb box declares %d bytes, only %d available", errdefs.ErrInvalidParameter, total, len(data))
	}
	body := data[headerLen:total]

	box, consumed, err := parseSuperBoxBody(body)
	if err != nil {
		return nil, err
	}
	if consumed != len(body) {
		return nil, fmt.Errorf("%w: jumb box has %d trailing bytes after its children", errdefs.ErrInvalidParameter, len(body)-consumed)
	}
	box.raw = append([]byte(nil), data[:total]...)
	return box, nil
}

func parseSuperBoxBody(body []byte) (*SuperBox, int, error) {
	if len(body) == 0 {
		return nil, 0, fmt.Errorf("%w: jumb box has no description box", errdefs.ErrInvalidParameter)
	}
	typ, bodyLen, headerLen, err := readBoxHeader(body)
	if err != nil {
		return nil, 0, err
	}
	if typ != TypeDescription {
		return nil, 0, fmt.Errorf("%w: jumb box's first child must be %q, got %q", errdefs.ErrInvalidParameter, TypeDescription, typ)
	}
	descEnd := headerLen + int(bodyLen)
	if len(body) < descEnd {
		return nil, 0, fmt.Errorf("%w: jumd box truncated", errdefs.ErrInvalidParameter)
	}
	desc, err := parseDescriptionBox(body[headerLen:descEnd])
	if err != nil {
		return nil, 0, err
	}

	box := &SuperBox{Description: desc}
	off := descEnd
	for off < len(body) {
		typ, bodyLen, headerLen, err := readBoxHeader(body[off:])
		if err != nil {
			return nil, 0, err
		}
		end := off + headerLen + int(bodyLen)
		if end > len(body) {
			return nil, 0, fmt.Errorf("%w: child box at offset %d overruns parent", errdefs.ErrInvalidParameter, off)
		}
		if typ == TypeSuperBox {
			child, consumed, err := parseSuperBoxBody(body[off+headerLen : end])
			if err != nil {
				return nil, 0, err
			}
			if consumed != end-off-headerLen {
				return nil, 0, fmt.Errorf("%w: nested jumb box has trailing bytes", errdefs.ErrInvalidParameter)
			}
			child.raw = append([]byte(nil), body[off:end]...)
			box.order = append(box.order, boxSlot{isChild: true, index: len(box.Children)})
			box.Children = append(box.Children, child)
		} else {
			box.order = append(box.order, boxSlot{isChild: false, index: len(box.Contents)})
			box.Contents = append(box.Contents, ContentBox{Type: typ, Raw: append([]byte(nil), body[off+headerLen:end]...)})
		}
		off = end
	}
	return box, off, nil
}

// Bytes serializes the box. If the box was parsed and has not been mutated
// (directly, or via a mutated descendant), the original bytes are returned
// verbatim.
func (b *SuperBox) Bytes() ([]byte, error) {
	if !b.stale() {
		return b.raw, nil
	}
	body, err := b.marshalBody()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	writeBoxHeader(&buf, TypeSuperBox, uint64(len(body)))
	buf.Write(body)
	return buf.Bytes(), nil
}

// stale reports whether b or any SuperBox below it has been mutated or has
// no parsed bytes to reuse.
func (b *SuperBox) stale() bool {
	if b.dirty || b.raw == nil {
		return true
	}
	for _, c := range b.Children {
		if c.stale() {
			return true
		}
	}
	return false
}

func (b *SuperBox) marshalBody() ([]byte, error) {
	var buf bytes.Buffer
	descBody := b.Description.marshal()
	writeBoxHeader(&buf, TypeDescription, uint64(len(descBody)))
	buf.Write(descBody)

	for _, slot := range b.order {
		if slot.isChild {
			childBytes, err := b.Children[slot.index].Bytes()
			if err != nil {
				return nil, err
			}
			buf.Write(childBytes)
			continue
		}
		c := b.Contents[slot.index]
		writeBoxHeader(&buf, c.Type, uint64(len(c.Raw)))
		buf.Write(c.Raw)
	}
	return buf.Bytes(), nil
}

// Size returns the serialized size of the box in bytes, the "measurable
// size" the core's padding discipline relies on.
func (b *SuperBox) Size() (int64, error) {
	raw, err := b.Bytes()
	if err != nil {
		return 0, err
	}
	mw := xio.NewMeasuredWriter(io.Discard)
	if _, err := mw.Write(raw); err != nil {
		return 0, err
	}
	return mw.Total(), nil
}

// FindChild returns the first direct child SuperBox whose description label
// equals label, or nil if none matches.
func (b *SuperBox) FindChild(label string) *SuperBox {
	for _, c := range b.Children {
		if c.Description.Label == label {
			return c
		}
	}
	return nil
}

// FindContent returns the first direct content box of the given type.
func (b *SuperBox) FindContent(typ FourCC) (ContentBox, bool) {
	for _, c := range b.Contents {
		if c.Type == typ {
			return c, true
		}
	}
	return ContentBox{}, false
}
