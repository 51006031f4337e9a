package merkle

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/wuxler/c2pa/pkg/errdefs"
	"github.com/wuxler/c2pa/pkg/hashing"
)

// SignResult is the leaf-hash output of a Signer run: everything a
// BMFFHash's MerkleMap needs to record a fragment's block hashes, short of
// the UniqueID/LocalID fragment identifiers the caller assigns itself.
type SignResult struct {
	Algorithm          hashing.Algorithm
	Count              uint32
	Hashes             [][]byte
	FixedBlockSize     int64
	VariableBlockSizes []int64
	InitHash           []byte
}

// Signer incrementally builds a SignResult from a live byte stream, per
// spec.md §4.3: it buffers input until a block boundary is reached, hashes
// each completed block as a leaf as soon as it is available, and optionally
// captures a separate digest over an fMP4 initialization segment. It is the
// write-side counterpart of BMFFHash.validateMerkle's read-side block
// chunking.
type Signer struct {
	tree      *Tree
	alg       hashing.Algorithm
	buf       bytes.Buffer
	blockSize int64 // 0 selects variable-block mode
	varSizes  []int64
	initHash  []byte
}

// NewFixedBlockSigner returns a Signer that flushes a leaf every time
// blockSize bytes have been written.
func NewFixedBlockSigner(alg hashing.Algorithm, blockSize int64) (*Signer, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("%w: fixed block size must be positive", errdefs.ErrInvalidParameter)
	}
	return &Signer{tree: New(alg), alg: alg, blockSize: blockSize}, nil
}

// NewVariableBlockSigner returns a Signer whose block boundaries are marked
// explicitly by calls to EndBlock, for sources (e.g. a capture session
// flushing one fMP4 fragment at a time) that don't produce fixed-size
// blocks.
func NewVariableBlockSigner(alg hashing.Algorithm) *Signer {
	return &Signer{tree: New(alg), alg: alg}
}

// Write buffers p. In fixed-block mode, each time the buffer holds at least
// blockSize bytes it is hashed off as a leaf immediately, so a long-running
// writer never holds more than one block's worth of unhashed data. In
// variable-block mode, Write only buffers; call EndBlock to mark a
// boundary.
func (s *Signer) Write(p []byte) (int, error) {
	s.buf.Write(p)
	if s.blockSize <= 0 {
		return len(p), nil
	}
	for int64(s.buf.Len()) >= s.blockSize {
		if err := s.flush(s.blockSize); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// EndBlock flushes the bytes buffered since the last boundary as one leaf.
// Valid only in variable-block mode.
func (s *Signer) EndBlock() error {
	if s.blockSize > 0 {
		return fmt.Errorf("%w: EndBlock is only valid in variable-block mode", errdefs.ErrInvalidParameter)
	}
	if s.buf.Len() == 0 {
		return fmt.Errorf("%w: EndBlock called with no buffered data", errdefs.ErrInvalidParameter)
	}
	size := int64(s.buf.Len())
	if err := s.flush(size); err != nil {
		return err
	}
	s.varSizes = append(s.varSizes, size)
	return nil
}

func (s *Signer) flush(n int64) error {
	chunk := make([]byte, n)
	if _, err := io.ReadFull(&s.buf, chunk); err != nil {
		return err
	}
	_, err := s.tree.AddLeaf(chunk)
	return err
}

// CaptureInit digests data — the fMP4 init segment, ftyp through the end of
// moov, with any nested uuid/pssh boxes already excluded by the caller — and
// records it as the result's init-segment hash.
func (s *Signer) CaptureInit(data []byte) error {
	h, err := hashing.NewHash(s.alg)
	if err != nil {
		return err
	}
	h.Write(data)
	s.initHash = h.Sum(nil)
	return nil
}

// Finish flushes any partially-filled trailing block as a final leaf and
// returns the accumulated leaf hashes and block-size metadata. In
// fixed-block mode a short final block is still emitted as a leaf; callers
// that need evenly-sized blocks must pad before calling Finish.
func (s *Signer) Finish() (*SignResult, error) {
	if s.buf.Len() > 0 {
		size := int64(s.buf.Len())
		if err := s.flush(size); err != nil {
			return nil, err
		}
		if s.blockSize <= 0 {
			s.varSizes = append(s.varSizes, size)
		}
	}

	leaves := s.tree.layers[0]
	if len(leaves) == 0 {
		return nil, fmt.Errorf("%w: no blocks written", errdefs.ErrInvalidParameter)
	}
	hashes := make([][]byte, len(leaves))
	for i, d := range leaves {
		raw, err := hex.DecodeString(d.Encoded())
		if err != nil {
			return nil, err
		}
		hashes[i] = raw
	}

	res := &SignResult{
		Algorithm: s.alg,
		Count:     uint32(len(hashes)),
		Hashes:    hashes,
		InitHash:  s.initHash,
	}
	if s.blockSize > 0 {
		res.FixedBlockSize = s.blockSize
	} else {
		res.VariableBlockSizes = s.varSizes
	}
	return res, nil
}
