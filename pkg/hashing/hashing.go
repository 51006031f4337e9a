// Package hashing implements the digest primitives the C2PA core builds on:
// one-shot and streaming digests, and exclusion-range hashing over an
// arbitrary byte source.
package hashing

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"hash"
	"io"
	"sort"

	digest "github.com/opencontainers/go-digest"

	"github.com/wuxler/c2pa/pkg/errdefs"
)

// Algorithm identifies one of the digest algorithms the C2PA core supports.
type Algorithm string

// The set of algorithms the core supports. The deprecated non-versioned BMFF
// hash and any algorithm outside this set are rejected with ErrUnsupported.
const (
	SHA256 Algorithm = "sha256"
	SHA384 Algorithm = "sha384"
	SHA512 Algorithm = "sha512"
)

// godigest returns the github.com/opencontainers/go-digest algorithm backing a.
func (a Algorithm) godigest() (digest.Algorithm, error) {
	switch a {
	case SHA256:
		return digest.SHA256, nil
	case SHA384:
		return digest.SHA384, nil
	case SHA512:
		return digest.SHA512, nil
	default:
		return "", fmt.Errorf("%w: %q", errdefs.ErrUnsupported, a)
	}
}

// Size returns the digest size in bytes for a, or 0 if unsupported.
func (a Algorithm) Size() int {
	switch a {
	case SHA256:
		return sha256.Size
	case SHA384:
		return sha512.Size384
	case SHA512:
		return sha512.Size
	default:
		return 0
	}
}

// NewHash returns a new hash.Hash for a. Fails with ErrUnsupported for
// unknown algorithm identifiers.
func NewHash(a Algorithm) (hash.Hash, error) {
	gd, err := a.godigest()
	if err != nil {
		return nil, err
	}
	if !gd.Available() {
		return nil, fmt.Errorf("%w: %q: algorithm not linked into binary", errdefs.ErrUnsupported, a)
	}
	return gd.Hash(), nil
}

// chunkSize is the size of the buffer used to pull bytes from a ByteSource.
const chunkSize = 1 << 20 // 1 MiB

// ByteSource is a random-access source of the bytes to be digested. It is
// satisfied by asset.Reader (see pkg/asset) and by any other type with these
// two methods.
type ByteSource interface {
	GetRange(offset, length int64) ([]byte, error)
	GetLength() int64
}

// Digest computes the digest of the entirety of src under algorithm a.
func Digest(src ByteSource, a Algorithm) (digest.Digest, error) {
	return DigestWithExclusions(src, nil, a)
}

// StreamDigest computes the digest of all bytes read from r under algorithm a.
func StreamDigest(r io.Reader, a Algorithm) (digest.Digest, error) {
	h, err := NewHash(a)
	if err != nil {
		return "", err
	}
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", fmt.Errorf("streaming digest: %w", err)
	}
	gd, _ := a.godigest()
	return digest.NewDigest(gd, h), nil
}

// Exclusion is one range of bytes that DigestWithExclusions must skip (or, if
// Length is zero and OffsetMarker is set, a position marker to fold into the
// digest stream instead of real bytes — used by the BMFF top-level-box
// reordering guard in pkg/manifest's bmffhash.go).
type Exclusion struct {
	Start        int64
	Length       int64
	OffsetMarker bool
}

// DigestWithExclusions digests src, skipping each exclusion range. Exclusions
// are sorted by Start internally, so callers never need to pre-sort them —
// this is the "exclusion ordering" invariant from the core.
func DigestWithExclusions(src ByteSource, exclusions []Exclusion, a Algorithm) (digest.Digest, error) {
	h, err := NewHash(a)
	if err != nil {
		return "", err
	}
	sorted := make([]Exclusion, len(exclusions))
	copy(sorted, exclusions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	total := src.GetLength()
	var prevEnd int64
	for _, ex := range sorted {
		if ex.Start < prevEnd {
			return "", fmt.Errorf("%w: exclusion start %d before previous end %d", errdefs.ErrOverlappingExclusions, ex.Start, prevEnd)
		}
		if err := copyRange(h, src, prevEnd, ex.Start); err != nil {
			return "", err
		}
		if ex.Length == 0 && ex.OffsetMarker {
			var marker [8]byte
			binary.BigEndian.PutUint64(marker[:], uint64(ex.Start))
			h.Write(marker[:])
			prevEnd = ex.Start
			continue
		}
		prevEnd = ex.Start + ex.Length
	}
	if err := copyRange(h, src, prevEnd, total); err != nil {
		return "", err
	}

	gd, _ := a.godigest()
	return digest.NewDigest(gd, h), nil
}

// copyRange hashes src[start:end] in chunkSize pulls.
func copyRange(h hash.Hash, src ByteSource, start, end int64) error {
	for off := start; off < end; off += chunkSize {
		n := chunkSize
		if remaining := end - off; remaining < int64(n) {
			n = int(remaining)
		}
		b, err := src.GetRange(off, int64(n))
		if err != nil {
			return fmt.Errorf("reading range [%d,%d): %w", off, off+int64(n), err)
		}
		h.Write(b)
	}
	return nil
}
