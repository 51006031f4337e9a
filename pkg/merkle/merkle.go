// Package merkle builds binary Merkle trees over leaf digests, produces and
// verifies inclusion proofs, and supports an incremental "streaming"
// construction for live MP4 capture.
package merkle

import (
	"encoding/hex"
	"fmt"

	digest "github.com/opencontainers/go-digest"

	"github.com/wuxler/c2pa/pkg/errdefs"
	"github.com/wuxler/c2pa/pkg/hashing"
)

// Step is one element of an inclusion proof: the sibling hash and which side
// it sits on relative to the node being proved.
type Step struct {
	Hash  digest.Digest
	Right bool // true if Hash is the right-hand sibling of the node on the path
}

// Tree is a binary Merkle tree over an ordered sequence of leaf digests. An
// unpaired node at any layer is promoted unchanged to the next layer (no
// duplication), so a tree of a single leaf has that leaf as its root.
type Tree struct {
	alg    hashing.Algorithm
	layers [][]digest.Digest
	built  bool
}

// New returns an empty Tree that hashes internal nodes with alg.
func New(alg hashing.Algorithm) *Tree {
	return &Tree{alg: alg, layers: [][]digest.Digest{{}}}
}

// AddLeaf appends a leaf computed as Digest(alg, data) to the tree. Fails if
// Build has already been called.
func (t *Tree) AddLeaf(data []byte) (digest.Digest, error) {
	h, err := hashing.NewHash(t.alg)
	if err != nil {
		return "", err
	}
	h.Write(data)
	gd := digestOf(t.alg, h.Sum(nil))
	if err := t.AddLeafHash(gd); err != nil {
		return "", err
	}
	return gd, nil
}

// AddLeafHash appends a precomputed leaf digest to the tree. Fails if Build
// has already been called.
func (t *Tree) AddLeafHash(d digest.Digest) error {
	if t.built {
		return errdefs.ErrTreeBuilt
	}
	t.layers[0] = append(t.layers[0], d)
	return nil
}

// Build finalizes the tree and returns its root. After Build, the tree is
// immutable: further AddLeaf/AddLeafHash calls fail.
func (t *Tree) Build() (digest.Digest, error) {
	if t.built {
		return t.Root()
	}
	if len(t.layers[0]) == 0 {
		return "", errdefs.ErrTreeEmpty
	}
	layer := t.layers[0]
	for len(layer) > 1 {
		next := make([]digest.Digest, 0, (len(layer)+1)/2)
		for i := 0; i < len(layer); i += 2 {
			if i+1 == len(layer) {
				// odd node out: promoted unchanged, never duplicated
				next = append(next, layer[i])
				continue
			}
			next = append(next, t.hashPair(layer[i], layer[i+1]))
		}
		t.layers = append(t.layers, next)
		layer = next
	}
	t.built = true
	return layer[0], nil
}

// Root returns the tree's root. Fails if Build has not been called.
func (t *Tree) Root() (digest.Digest, error) {
	if !t.built {
		return "", fmt.Errorf("%w: Build must be called before Root", errdefs.ErrInvalidParameter)
	}
	top := t.layers[len(t.layers)-1]
	return top[0], nil
}

// Proof returns the inclusion proof for the leaf at index i. The proof omits
// a step at any layer where i's node is an unpaired, promoted node.
func (t *Tree) Proof(i int) ([]Step, error) {
	if !t.built {
		return nil, fmt.Errorf("%w: Build must be called before Proof", errdefs.ErrInvalidParameter)
	}
	if i < 0 || i >= len(t.layers[0]) {
		return nil, fmt.Errorf("%w: leaf index %d out of range", errdefs.ErrInvalidParameter, i)
	}

	var proof []Step
	idx := i
	for level := 0; level < len(t.layers)-1; level++ {
		layer := t.layers[level]
		siblingIdx := idx ^ 1
		if siblingIdx >= len(layer) {
			// idx was an unpaired, promoted node: no proof step at this layer
			idx /= 2
			continue
		}
		proof = append(proof, Step{Hash: layer[siblingIdx], Right: siblingIdx > idx})
		idx /= 2
	}
	return proof, nil
}

// Verify checks that leaf, combined with proof, reduces to root under alg.
func Verify(leaf digest.Digest, proof []Step, root digest.Digest, alg hashing.Algorithm) bool {
	cur := leaf
	for _, step := range proof {
		if step.Right {
			cur = hashPair(alg, cur, step.Hash)
		} else {
			cur = hashPair(alg, step.Hash, cur)
		}
	}
	return cur == root
}

func (t *Tree) hashPair(left, right digest.Digest) digest.Digest {
	return hashPair(t.alg, left, right)
}

// hashPair digests the concatenation of left's and right's raw bytes (not
// their hex encodings), per the core's internal-node hashing rule.
func hashPair(alg hashing.Algorithm, left, right digest.Digest) digest.Digest {
	h, err := hashing.NewHash(alg)
	if err != nil {
		panic(err) // alg was already validated when the tree/leaf was built
	}
	h.Write(rawBytes(left))
	h.Write(rawBytes(right))
	return digestOf(alg, h.Sum(nil))
}

func rawBytes(d digest.Digest) []byte {
	raw, err := hex.DecodeString(d.Encoded())
	if err != nil {
		// digests constructed by this package are always valid hex; a decode
		// failure here means a caller handed us a malformed digest.Digest
		panic(err)
	}
	return raw
}

func digestOf(alg hashing.Algorithm, sum []byte) digest.Digest {
	return digest.NewDigestFromBytes(digest.Algorithm(alg), sum)
}
