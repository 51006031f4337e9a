package manifest

import (
	"bytes"
	"encoding/hex"

	"github.com/fxamacker/cbor/v2"

	"github.com/wuxler/c2pa/pkg/asset"
	"github.com/wuxler/c2pa/pkg/bmff"
	"github.com/wuxler/c2pa/pkg/hashing"
	"github.com/wuxler/c2pa/pkg/jumbf"
	"github.com/wuxler/c2pa/pkg/merkle"
)

// BMFFExclusion names one region of a BMFF box tree to leave out of a
// c2pa.hash.bmff.v2/v3 digest: the whole box(es) matching XPath, optionally
// gated on the box's total size equalling Length and/or on matching Data,
// Version or Flags. A box reachable by XPath but absent from the asset is
// not an error — it simply contributes nothing to exclude.
type BMFFExclusion struct {
	XPath   string
	Length  int64
	Data    []byte
	Version *uint8
	Flags   *[3]byte
}

// MerkleMap is one fragment's worth of block-level leaf hashes, used by
// fragmented (fMP4) assets where a single whole-asset hash is impractical.
type MerkleMap struct {
	UniqueID           uint32
	LocalID            uint32
	Count              uint32
	Algorithm          hashing.Algorithm
	InitHash           []byte
	Hashes             [][]byte
	FixedBlockSize     int64
	VariableBlockSizes []int64
}

// BMFFHash is the c2pa.hash.bmff.v2/v3 hard-binding assertion: either a
// whole-asset digest with named exclusions, or a set of per-fragment Merkle
// leaf hashes, per spec.md §4.9.
type BMFFHash struct {
	assertionBase
	uuid       jumbf.UUID
	Name       string
	Algorithm  hashing.Algorithm
	Exclusions []BMFFExclusion
	Hash       []byte
	Merkle     []MerkleMap
}

type bmffExclusionWire struct {
	XPath   string `cbor:"xpath"`
	Length  int64  `cbor:"length,omitempty"`
	Data    []byte `cbor:"data,omitempty"`
	Version *uint8 `cbor:"version,omitempty"`
	Flags   []byte `cbor:"flags,omitempty"`
}

type merkleMapWire struct {
	UniqueID           uint32            `cbor:"uniqueId"`
	LocalID            uint32            `cbor:"localId"`
	Count              uint32            `cbor:"count"`
	Algorithm          hashing.Algorithm `cbor:"alg,omitempty"`
	InitHash           []byte            `cbor:"initHash,omitempty"`
	Hashes             [][]byte          `cbor:"hashes"`
	FixedBlockSize     int64             `cbor:"fixedBlockSize,omitempty"`
	VariableBlockSizes []int64           `cbor:"variableBlockSizes,omitempty"`
}

type bmffHashWire struct {
	Exclusions []bmffExclusionWire `cbor:"exclusions,omitempty"`
	Name       string              `cbor:"name,omitempty"`
	Algorithm  hashing.Algorithm   `cbor:"alg,omitempty"`
	Hash       []byte              `cbor:"hash,omitempty"`
	Merkle     []merkleMapWire     `cbor:"merkle,omitempty"`
}

func parseBMFFHash(b assertionBase, uuid jumbf.UUID, content jumbf.ContentBox) (Assertion, error) {
	var w bmffHashWire
	if err := cbor.Unmarshal(content.Raw, &w); err != nil {
		return nil, errMalformed(StatusBMFFHashMalformed, b.FullLabel(), err.Error())
	}
	h := &BMFFHash{assertionBase: b, uuid: uuid, Name: w.Name, Algorithm: w.Algorithm, Hash: w.Hash}
	for _, ex := range w.Exclusions {
		bx := BMFFExclusion{XPath: ex.XPath, Length: ex.Length, Data: ex.Data}
		if ex.Version != nil {
			bx.Version = ex.Version
		}
		if len(ex.Flags) == 3 {
			var f [3]byte
			copy(f[:], ex.Flags)
			bx.Flags = &f
		}
		h.Exclusions = append(h.Exclusions, bx)
	}
	for _, m := range w.Merkle {
		h.Merkle = append(h.Merkle, MerkleMap{
			UniqueID: m.UniqueID, LocalID: m.LocalID, Count: m.Count,
			Algorithm: m.Algorithm, InitHash: m.InitHash, Hashes: m.Hashes,
			FixedBlockSize: m.FixedBlockSize, VariableBlockSizes: m.VariableBlockSizes,
		})
	}
	if len(h.Hash) == 0 && len(h.Merkle) == 0 {
		return nil, errMalformed(StatusBMFFHashMalformed, b.FullLabel(), "neither hash nor merkle present")
	}
	return h, nil
}

// ContentUUID implements Assertion.
func (h *BMFFHash) ContentUUID() jumbf.UUID { return h.uuid }

// EmitBytes implements Assertion.
func (h *BMFFHash) EmitBytes() ([]byte, error) {
	w := bmffHashWire{Name: h.Name, Algorithm: h.Algorithm, Hash: h.Hash}
	for _, ex := range h.Exclusions {
		wex := bmffExclusionWire{XPath: ex.XPath, Length: ex.Length, Data: ex.Data, Version: ex.Version}
		if ex.Flags != nil {
			wex.Flags = ex.Flags[:]
		}
		w.Exclusions = append(w.Exclusions, wex)
	}
	for _, m := range h.Merkle {
		w.Merkle = append(w.Merkle, merkleMapWire{
			UniqueID: m.UniqueID, LocalID: m.LocalID, Count: m.Count,
			Algorithm: m.Algorithm, InitHash: m.InitHash, Hashes: m.Hashes,
			FixedBlockSize: m.FixedBlockSize, VariableBlockSizes: m.VariableBlockSizes,
		})
	}
	return cbor.Marshal(w)
}

// ValidateAgainstAsset resolves h.Exclusions against the asset's box tree and
// digests the remainder (whole-asset mode), or recomputes per-fragment block
// hashes and compares them against the stored Merkle leaves (fragmented
// mode), per spec.md §4.9.
func (h *BMFFHash) ValidateAgainstAsset(src asset.Reader, defaultAlg hashing.Algorithm) (bool, error) {
	alg := h.Algorithm
	if alg == "" {
		alg = defaultAlg
	}
	if len(h.Hash) > 0 {
		return h.validateWholeAsset(src, alg)
	}
	return h.validateMerkle(src, alg)
}

func (h *BMFFHash) validateWholeAsset(src asset.Reader, alg hashing.Algorithm) (bool, error) {
	var exclusions []hashing.Exclusion
	for _, ex := range h.Exclusions {
		boxes, err := src.GetBoxesByPath(ex.XPath)
		if err != nil {
			return false, err
		}
		for _, b := range boxes {
			if !matchesBMFFExclusion(b, ex, src) {
				continue
			}
			if ex.Length > 0 && b.Size != ex.Length {
				continue
			}
			exclusions = append(exclusions, hashing.Exclusion{Start: b.Offset, Length: b.Size})
		}
	}

	top, err := src.GetTopLevelBoxes()
	if err != nil {
		return false, err
	}
	for _, b := range top {
		if fullyExcluded(b, exclusions) {
			continue
		}
		exclusions = append(exclusions, hashing.Exclusion{Start: b.Offset, OffsetMarker: true})
	}

	got, err := hashing.DigestWithExclusions(src, exclusions, alg)
	if err != nil {
		return false, err
	}
	sum, err := hex.DecodeString(got.Encoded())
	if err != nil {
		return false, err
	}
	return bytes.Equal(sum, h.Hash), nil
}

// fullyExcluded reports whether some content exclusion spans box's entire
// byte range. A box only partially excluded (or not excluded at all) still
// contributes its position to the hash via an offset marker, so reordering
// top-level boxes invalidates the hash even when their payloads are excluded.
func fullyExcluded(b *bmff.Box, exclusions []hashing.Exclusion) bool {
	end := b.Offset + b.Size
	for _, ex := range exclusions {
		if ex.Length > 0 && ex.Start <= b.Offset && ex.Start+ex.Length >= end {
			return true
		}
	}
	return false
}

func matchesBMFFExclusion(b *bmff.Box, ex BMFFExclusion, src asset.Reader) bool {
	if ex.Version != nil && (!b.IsFullBox || b.Version != *ex.Version) {
		return false
	}
	if ex.Flags != nil && (!b.IsFullBox || b.Flags != *ex.Flags) {
		return false
	}
	if len(ex.Data) > 0 {
		got, err := src.GetRange(b.PayloadOffset, int64(len(ex.Data)))
		if err != nil || !bytes.Equal(got, ex.Data) {
			return false
		}
	}
	return true
}

// validateMerkle recomputes each fragment's block hashes and compares them
// leaf-by-leaf against the stored hashes; any mismatch fails the fragment.
// Blocks are read starting at the asset's mdat payload offset, not offset 0 —
// the mdat box header precedes the media payload the leaves were computed
// over.
func (h *BMFFHash) validateMerkle(src asset.Reader, alg hashing.Algorithm) (bool, error) {
	mdat, ok, err := src.GetBoxByPath("mdat")
	if err != nil {
		return false, err
	}
	if !ok {
		return false, errMalformed(StatusBMFFHashMalformed, h.FullLabel(), "asset has no mdat box")
	}

	for _, m := range h.Merkle {
		malg := m.Algorithm
		if malg == "" {
			malg = alg
		}
		if len(m.Hashes) == 0 {
			return false, errMalformed(StatusBMFFHashMalformed, h.FullLabel(), "merkle map has no leaf hashes")
		}
		if int(m.Count) != len(m.Hashes) {
			return false, errMalformed(StatusBMFFHashMalformed, h.FullLabel(), "count does not match number of leaf hashes")
		}
		tree := merkle.New(malg)
		offset := mdat.PayloadOffset
		for i := range m.Hashes {
			size := blockSize(m, i)
			data, err := src.GetRange(offset, size)
			if err != nil {
				return false, err
			}
			leaf, err := tree.AddLeaf(data)
			if err != nil {
				return false, err
			}
			sum, err := hex.DecodeString(leaf.Encoded())
			if err != nil {
				return false, err
			}
			if !bytes.Equal(sum, m.Hashes[i]) {
				return false, nil
			}
			offset += size
		}
		if len(m.InitHash) > 0 {
			ok, err := h.validateInitHash(src, m.InitHash, malg)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
	}
	return true, nil
}

// validateInitHash digests the fMP4 initialization segment (ftyp through
// the end of moov), excluding any uuid/pssh boxes nested within moov, and
// compares it against the stored init hash.
func (h *BMFFHash) validateInitHash(src asset.Reader, initHash []byte, alg hashing.Algorithm) (bool, error) {
	top, err := src.GetTopLevelBoxes()
	if err != nil {
		return false, err
	}
	var ftyp, moov *bmff.Box
	for _, b := range top {
		switch {
		case b.Type == "ftyp" && ftyp == nil:
			ftyp = b
		case b.Type == "moov" && moov == nil:
			moov = b
		}
	}
	if ftyp == nil || moov == nil {
		return false, errMalformed(StatusBMFFHashMalformed, h.FullLabel(), "asset missing ftyp/moov for init segment hash")
	}

	total := src.GetLength()
	exclusions := []hashing.Exclusion{
		{Start: 0, Length: ftyp.Offset},
		{Start: moov.End(), Length: total - moov.End()},
	}
	exclusions = append(exclusions, excludeNestedInitBoxes(moov)...)

	got, err := hashing.DigestWithExclusions(src, exclusions, alg)
	if err != nil {
		return false, err
	}
	sum, err := hex.DecodeString(got.Encoded())
	if err != nil {
		return false, err
	}
	return bytes.Equal(sum, initHash), nil
}

// excludeNestedInitBoxes returns an exclusion for every uuid/pssh box
// reachable under box, recursing through its children.
func excludeNestedInitBoxes(box *bmff.Box) []hashing.Exclusion {
	var out []hashing.Exclusion
	for _, child := range box.Children {
		if child.Type == "uuid" || child.Type == "pssh" {
			out = append(out, hashing.Exclusion{Start: child.Offset, Length: child.Size})
			continue
		}
		out = append(out, excludeNestedInitBoxes(child)...)
	}
	return out
}

func blockSize(m MerkleMap, i int) int64 {
	if m.FixedBlockSize > 0 {
		return m.FixedBlockSize
	}
	if i < len(m.VariableBlockSizes) {
		return m.VariableBlockSizes[i]
	}
	return 0
}

