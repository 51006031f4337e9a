// Package bmff implements the minimal ISO base-media ("BMFF") box reader the
// C2PA core consumes as an external collaborator: it locates boxes by xpath
// and exposes their header fields, but knows nothing about C2PA assertion
// semantics.
package bmff

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/wuxler/c2pa/pkg/errdefs"
	"github.com/wuxler/c2pa/pkg/hashing"
)

// Box is one ISO-BMFF box: a 4-character type, its framing offsets within
// the asset, and — for FullBoxes — a version and 3-byte flags field parsed
// out of the payload's first 4 bytes.
type Box struct {
	Offset        int64
	Size          int64
	PayloadOffset int64
	Type          string
	UserType      []byte // only set when Type == "uuid"
	IsFullBox     bool
	Version       uint8
	Flags         [3]byte
	Children      []*Box
}

// End returns the offset one past the box's last byte.
func (b *Box) End() int64 { return b.Offset + b.Size }

// containerTypes recurse into their payload looking for child boxes;
// fullBoxContainers additionally carry a FullBox version/flags prefix before
// their children.
var containerTypes = map[string]bool{
	"moov": true, "trak": true, "mdia": true, "minf": true, "stbl": true,
	"udta": true, "dinf": true, "edts": true, "mvex": true, "moof": true,
	"traf": true, "mfra": true,
}

var fullBoxContainers = map[string]bool{
	"meta": true,
}

// ParseTopLevel reads the sequence of top-level boxes in src, recursing into
// known container types.
func ParseTopLevel(src hashing.ByteSource) ([]*Box, error) {
	return parseBoxes(src, 0, src.GetLength())
}

func parseBoxes(src hashing.ByteSource, start, end int64) ([]*Box, error) {
	var boxes []*Box
	off := start
	for off < end {
		b, err := parseOneBox(src, off, end)
		if err != nil {
			return nil, err
		}
		boxes = append(boxes, b)
		off = b.End()
	}
	return boxes, nil
}

func parseOneBox(src hashing.ByteSource, offset, limit int64) (*Box, error) {
	if limit-offset < 8 {
		return nil, fmt.Errorf("%w: box header truncated at offset %d", errdefs.ErrInvalidParameter, offset)
	}
	hdr, err := src.GetRange(offset, 8)
	if err != nil {
		return nil, err
	}
	size := int64(binary.BigEndian.Uint32(hdr[0:4]))
	typ := string(hdr[4:8])

	headerLen := int64(8)
	switch size {
	case 1:
		ext, err := src.GetRange(offset+8, 8)
		if err != nil {
			return nil, err
		}
		size = int64(binary.BigEndian.Uint64(ext))
		headerLen = 16
	case 0:
		size = limit - offset // extends to end of enclosing container
	}
	if size < headerLen || offset+size > limit {
		return nil, fmt.Errorf("%w: box %q at offset %d has invalid size %d", errdefs.ErrInvalidParameter, typ, offset, size)
	}

	b := &Box{Offset: offset, Size: size, PayloadOffset: offset + headerLen, Type: typ}

	if typ == "uuid" {
		ut, err := src.GetRange(b.PayloadOffset, 16)
		if err != nil {
			return nil, err
		}
		b.UserType = ut
		b.PayloadOffset += 16
	}

	payloadStart := b.PayloadOffset
	if fullBoxContainers[typ] {
		fb, err := src.GetRange(payloadStart, 4)
		if err != nil {
			return nil, err
		}
		b.IsFullBox = true
		b.Version = fb[0]
		copy(b.Flags[:], fb[1:4])
		payloadStart += 4
	}

	if containerTypes[typ] || fullBoxContainers[typ] {
		children, err := parseBoxes(src, payloadStart, b.End())
		if err != nil {
			return nil, err
		}
		b.Children = children
	}

	return b, nil
}

// pathSegment is one "/"-separated component of an xpath, optionally
// carrying a "[n]" index selecting the n-th sibling of that type.
type pathSegment struct {
	typ   string
	index int // -1 means unindexed (match all / first, depending on caller)
}

func parsePath(xpath string) ([]pathSegment, error) {
	parts := strings.Split(strings.Trim(xpath, "/"), "/")
	segments := make([]pathSegment, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		seg := pathSegment{index: -1}
		if i := strings.IndexByte(p, '['); i >= 0 {
			if !strings.HasSuffix(p, "]") {
				return nil, fmt.Errorf("%w: malformed xpath segment %q", errdefs.ErrInvalidParameter, p)
			}
			n, err := strconv.Atoi(p[i+1 : len(p)-1])
			if err != nil {
				return nil, fmt.Errorf("%w: malformed xpath index in %q", errdefs.ErrInvalidParameter, p)
			}
			seg.typ = p[:i]
			seg.index = n
		} else {
			seg.typ = p
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

// GetBoxByPath returns the first box matching xpath, or false if none match.
func GetBoxByPath(top []*Box, xpath string) (*Box, bool, error) {
	matches, err := GetBoxesByPath(top, xpath)
	if err != nil || len(matches) == 0 {
		return nil, false, err
	}
	return matches[0], true, nil
}

// GetBoxesByPath returns every box matching xpath. A segment with no [n]
// index matches every sibling of that type at that level; a segment with
// [n] matches only the n-th (0-based) sibling of that type.
func GetBoxesByPath(top []*Box, xpath string) ([]*Box, error) {
	segments, err := parsePath(xpath)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: empty xpath", errdefs.ErrInvalidParameter)
	}
	level := top
	for i, seg := range segments {
		matched := matchSegment(level, seg)
		if i == len(segments)-1 {
			return matched, nil
		}
		if len(matched) == 0 {
			return nil, nil
		}
		var next []*Box
		for _, m := range matched {
			next = append(next, m.Children...)
		}
		level = next
	}
	return nil, nil
}

func matchSegment(level []*Box, seg pathSegment) []*Box {
	var matched []*Box
	count := 0
	for _, b := range level {
		if b.Type != seg.typ {
			continue
		}
		if seg.index < 0 || count == seg.index {
			matched = append(matched, b)
		}
		count++
	}
	return matched
}
