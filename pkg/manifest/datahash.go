package manifest

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"

	"github.com/wuxler/c2pa/pkg/asset"
	"github.com/wuxler/c2pa/pkg/errdefs"
	"github.com/wuxler/c2pa/pkg/hashing"
	"github.com/wuxler/c2pa/pkg/jumbf"
)

// DataHash is the c2pa.hash.data hard-binding assertion: a digest of the
// asset's bytes excluding the ranges the manifest itself occupies, per
// spec.md §4.8.
type DataHash struct {
	assertionBase
	uuid       jumbf.UUID
	Name       string
	Algorithm  hashing.Algorithm
	Exclusions []hashing.Exclusion
	Hash       []byte
	Pad        []byte
}

type dataHashWire struct {
	Exclusions []exclusionWire   `cbor:"exclusions,omitempty"`
	Name       string            `cbor:"name,omitempty"`
	Algorithm  hashing.Algorithm `cbor:"alg,omitempty"`
	Hash       []byte            `cbor:"hash"`
	Pad        []byte            `cbor:"pad,omitempty"`
}

type exclusionWire struct {
	Start  int64 `cbor:"start"`
	Length int64 `cbor:"length"`
}

func parseDataHash(b assertionBase, uuid jumbf.UUID, content jumbf.ContentBox) (Assertion, error) {
	var w dataHashWire
	if err := cbor.Unmarshal(content.Raw, &w); err != nil {
		return nil, errMalformed(StatusAssertionCBORInvalid, b.FullLabel(), err.Error())
	}

	if w.Algorithm != "" {
		if size := w.Algorithm.Size(); size == 0 {
			return nil, errMalformed(StatusAssertionCBORInvalid, b.FullLabel(), fmt.Sprintf("unsupported algorithm %q", w.Algorithm))
		} else if len(w.Hash) != size {
			return nil, errMalformed(StatusAssertionCBORInvalid, b.FullLabel(), fmt.Sprintf("hash length %d does not match %s digest size %d", len(w.Hash), w.Algorithm, size))
		}
	}
	for _, p := range w.Pad {
		if p != 0 {
			return nil, errMalformed(StatusAssertionCBORInvalid, b.FullLabel(), "padding must be all-zero")
		}
	}

	exclusions := make([]hashing.Exclusion, 0, len(w.Exclusions))
	for _, ex := range w.Exclusions {
		if ex.Start < 0 {
			return nil, errMalformed(StatusAssertionCBORInvalid, b.FullLabel(), "exclusion start must be non-negative")
		}
		if ex.Length <= 0 {
			return nil, errMalformed(StatusAssertionCBORInvalid, b.FullLabel(), "exclusion length must be positive")
		}
		exclusions = append(exclusions, hashing.Exclusion{Start: ex.Start, Length: ex.Length})
	}
	sort.Slice(exclusions, func(i, j int) bool { return exclusions[i].Start < exclusions[j].Start })
	var prevEnd int64
	for _, ex := range exclusions {
		if ex.Start < prevEnd {
			return nil, fmt.Errorf("%w: %s: overlapping exclusions", errdefs.ErrOverlappingExclusions, b.FullLabel())
		}
		prevEnd = ex.Start + ex.Length
	}

	d := &DataHash{
		assertionBase: b,
		uuid:          uuid,
		Name:          w.Name,
		Algorithm:     w.Algorithm,
		Hash:          w.Hash,
		Pad:           w.Pad,
		Exclusions:    exclusions,
	}
	return d, nil
}

// ContentUUID implements Assertion.
func (d *DataHash) ContentUUID() jumbf.UUID { return d.uuid }

// EmitBytes implements Assertion: padding bytes must round-trip as all-zero,
// per spec.md §4.8's padding invariant.
func (d *DataHash) EmitBytes() ([]byte, error) {
	for _, p := range d.Pad {
		if p != 0 {
			return nil, fmt.Errorf("%w: %s: padding must be all-zero", errdefs.ErrInvalidParameter, d.FullLabel())
		}
	}
	w := dataHashWire{Name: d.Name, Algorithm: d.Algorithm, Hash: d.Hash, Pad: d.Pad}
	for _, ex := range d.Exclusions {
		w.Exclusions = append(w.Exclusions, exclusionWire{Start: ex.Start, Length: ex.Length})
	}
	return cbor.Marshal(w)
}

// ValidateAgainstAsset digests src excluding d.Exclusions and compares the
// result against d.Hash, per spec.md §4.8.
func (d *DataHash) ValidateAgainstAsset(src asset.Reader, defaultAlg hashing.Algorithm) (bool, error) {
	alg := d.Algorithm
	if alg == "" {
		alg = defaultAlg
	}
	got, err := hashing.DigestWithExclusions(src, d.Exclusions, alg)
	if err != nil {
		return false, err
	}
	sum, err := hex.DecodeString(got.Encoded())
	if err != nil {
		return false, fmt.Errorf("decoding computed digest: %w", err)
	}
	return bytes.Equal(sum, d.Hash), nil
}
