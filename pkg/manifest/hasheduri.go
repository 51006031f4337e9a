package manifest

import (
	"bytes"

	"github.com/wuxler/c2pa/pkg/hashing"
)

// HashedURI is a tamper-evident pointer: a JUMBF URI plus the digest of the
// bytes it refers to. The wire form omits Algorithm when it equals the
// enclosing claim's defaultAlgorithm.
type HashedURI struct {
	URI       string            `cbor:"url"`
	Hash      []byte            `cbor:"hash"`
	Algorithm hashing.Algorithm `cbor:"alg,omitempty"`
}

// EffectiveAlgorithm returns h.Algorithm, falling back to fallback (the
// enclosing claim's defaultAlgorithm) when h.Algorithm is unset.
func (h HashedURI) EffectiveAlgorithm(fallback hashing.Algorithm) hashing.Algorithm {
	if h.Algorithm != "" {
		return h.Algorithm
	}
	return fallback
}

// Matches reports whether digesting data under h's effective algorithm
// produces h.Hash. A mismatch is always a reportable validation outcome,
// never a returned error; error is reserved for a malformed/unsupported
// algorithm.
func (h HashedURI) Matches(data []byte, fallback hashing.Algorithm) (bool, error) {
	alg := h.EffectiveAlgorithm(fallback)
	hh, err := hashing.NewHash(alg)
	if err != nil {
		return false, err
	}
	hh.Write(data)
	return bytes.Equal(hh.Sum(nil), h.Hash), nil
}

// WithHash returns a HashedURI for uri whose Hash is the digest of data under
// alg, used while building a claim before signing.
func WithHash(uri string, data []byte, alg hashing.Algorithm) (HashedURI, error) {
	hh, err := hashing.NewHash(alg)
	if err != nil {
		return HashedURI{}, err
	}
	hh.Write(data)
	return HashedURI{URI: uri, Hash: hh.Sum(nil), Algorithm: alg}, nil
}
