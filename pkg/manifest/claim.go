package manifest

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/wuxler/c2pa/pkg/errdefs"
	"github.com/wuxler/c2pa/pkg/hashing"
)

// ClaimVersion distinguishes the V1 and V2 claim CBOR shapes.
type ClaimVersion int

const (
	ClaimV1 ClaimVersion = 1
	ClaimV2 ClaimVersion = 2
)

// ClaimGeneratorInfo names the software that produced a claim.
type ClaimGeneratorInfo struct {
	Name    string `cbor:"name"`
	Version string `cbor:"version,omitempty"`
}

// Claim is the signed document listing the assertions that bind a manifest
// to an asset. Its CBOR serialization is itself the payload the manifest's
// signature covers, so RawContent must be retained verbatim and never
// re-encoded once a signature has been produced over it (spec.md §9: CBOR
// key ordering is not stable across emitters).
type Claim struct {
	Version            ClaimVersion
	InstanceID         string
	Format             string // mandatory for V1, optional for V2
	DefaultAlgorithm   hashing.Algorithm
	SignatureRef       string
	Assertions         []HashedURI
	GatheredAssertions []HashedURI // V2 only
	RedactedAssertions []HashedURI
	ClaimGenerator     string // V1 free-text generator name
	GeneratorInfo      []ClaimGeneratorInfo
	Title              string

	// RawContent holds the exact CBOR bytes this Claim was parsed from, or
	// the bytes produced by the most recent Emit call. It is the detached
	// payload the claim's signature is computed over.
	RawContent []byte
}

// NewInstanceID returns a fresh urn:uuid instance identifier. V2 claim URNs
// come from NewClaimURN instead.
func NewInstanceID() string {
	return "urn:uuid:" + uuid.NewString()
}

// NewClaimURN returns a V2 claim identifier: urn:c2pa:<uuid>, optionally
// suffixed with generator and version-reason components.
func NewClaimURN(generator, versionReason string) string {
	urn := "urn:c2pa:" + uuid.NewString()
	if generator != "" {
		urn += ":" + generator
		if versionReason != "" {
			urn += ":" + versionReason
		}
	}
	return urn
}

type hashedURIWire struct {
	URI       string            `cbor:"url"`
	Hash      []byte            `cbor:"hash"`
	Algorithm hashing.Algorithm `cbor:"alg,omitempty"`
}

func toWire(h HashedURI, defaultAlg hashing.Algorithm) hashedURIWire {
	w := hashedURIWire{URI: h.URI, Hash: h.Hash, Algorithm: h.Algorithm}
	if w.Algorithm == defaultAlg {
		w.Algorithm = "" // wire form omits alg when it matches the claim default
	}
	return w
}

func fromWire(w hashedURIWire, defaultAlg hashing.Algorithm) HashedURI {
	alg := w.Algorithm
	if alg == "" {
		alg = defaultAlg
	}
	return HashedURI{URI: w.URI, Hash: w.Hash, Algorithm: alg}
}

type claimWireV1 struct {
	Algorithm          hashing.Algorithm    `cbor:"alg"`
	InstanceID         string               `cbor:"instanceID"`
	Signature          string               `cbor:"signature"`
	ClaimGenerator     string               `cbor:"claim_generator"`
	ClaimGeneratorInfo []ClaimGeneratorInfo `cbor:"claim_generator_info,omitempty"`
	Format             string               `cbor:"dc:format"`
	Title              string               `cbor:"dc:title,omitempty"`
	Assertions         []hashedURIWire      `cbor:"assertions"`
	RedactedAssertions []hashedURIWire      `cbor:"redacted_assertions,omitempty"`
}

type claimWireV2 struct {
	Algorithm          hashing.Algorithm   `cbor:"alg,omitempty"`
	InstanceID         string              `cbor:"instanceID"`
	Signature          string              `cbor:"signature"`
	GeneratorInfo      *ClaimGeneratorInfo `cbor:"claim_generator_info"`
	CreatedAssertions  []hashedURIWire     `cbor:"created_assertions"`
	GatheredAssertions []hashedURIWire     `cbor:"gathered_assertions,omitempty"`
	RedactedAssertions []hashedURIWire     `cbor:"redacted_assertions,omitempty"`
	Title              string              `cbor:"dc:title,omitempty"`
}

// ParseClaimCBOR decodes a claim from its CBOR content-box bytes. version
// selects which wire shape to decode.
func ParseClaimCBOR(data []byte, version ClaimVersion) (*Claim, error) {
	switch version {
	case ClaimV1:
		return parseClaimV1(data)
	case ClaimV2:
		return parseClaimV2(data)
	default:
		return nil, fmt.Errorf("%w: claim version %d", errdefs.ErrUnsupported, version)
	}
}

func parseClaimV1(data []byte) (*Claim, error) {
	var w claimWireV1
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: decoding V1 claim: %v", errdefs.ErrInvalidParameter, err)
	}
	if w.InstanceID == "" {
		return nil, errdefs.ErrMissingInstanceID
	}
	if w.Format == "" {
		return nil, errdefs.ErrMissingFormat
	}
	if w.Algorithm == "" {
		return nil, errdefs.ErrMissingAlgorithm
	}
	c := &Claim{
		Version:          ClaimV1,
		InstanceID:       w.InstanceID,
		Format:           w.Format,
		DefaultAlgorithm: w.Algorithm,
		SignatureRef:     w.Signature,
		ClaimGenerator:   w.ClaimGenerator,
		GeneratorInfo:    w.ClaimGeneratorInfo,
		Title:            w.Title,
		RawContent:       append([]byte(nil), data...),
	}
	for _, a := range w.Assertions {
		c.Assertions = append(c.Assertions, fromWire(a, w.Algorithm))
	}
	for _, a := range w.RedactedAssertions {
		c.RedactedAssertions = append(c.RedactedAssertions, fromWire(a, w.Algorithm))
	}
	return c, nil
}

func parseClaimV2(data []byte) (*Claim, error) {
	var w claimWireV2
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: decoding V2 claim: %v", errdefs.ErrInvalidParameter, err)
	}
	if w.InstanceID == "" {
		return nil, errdefs.ErrMissingInstanceID
	}
	c := &Claim{
		Version:          ClaimV2,
		InstanceID:       w.InstanceID,
		DefaultAlgorithm: w.Algorithm,
		SignatureRef:     w.Signature,
		Title:            w.Title,
		RawContent:       append([]byte(nil), data...),
	}
	if w.GeneratorInfo != nil {
		c.GeneratorInfo = []ClaimGeneratorInfo{*w.GeneratorInfo}
	}
	for _, a := range w.CreatedAssertions {
		c.Assertions = append(c.Assertions, fromWire(a, w.Algorithm))
	}
	for _, a := range w.GatheredAssertions {
		c.GatheredAssertions = append(c.GatheredAssertions, fromWire(a, w.Algorithm))
	}
	for _, a := range w.RedactedAssertions {
		c.RedactedAssertions = append(c.RedactedAssertions, fromWire(a, w.Algorithm))
	}
	return c, nil
}

// Emit re-serializes the claim to CBOR, storing the result in RawContent and
// returning it. Callers must call Emit exactly once before signing and then
// treat RawContent as immutable — re-encoding after signing would silently
// invalidate the signature (CBOR key order is not guaranteed stable).
func (c *Claim) Emit() ([]byte, error) {
	if c.InstanceID == "" {
		return nil, errdefs.ErrMissingInstanceID
	}
	if c.DefaultAlgorithm == "" {
		return nil, errdefs.ErrMissingAlgorithm
	}

	var b []byte
	var err error
	switch c.Version {
	case ClaimV1:
		if c.Format == "" {
			return nil, errdefs.ErrMissingFormat
		}
		w := claimWireV1{
			Algorithm:          c.DefaultAlgorithm,
			InstanceID:         c.InstanceID,
			Signature:          c.SignatureRef,
			ClaimGenerator:     c.ClaimGenerator,
			ClaimGeneratorInfo: c.GeneratorInfo,
			Format:             c.Format,
			Title:              c.Title,
		}
		for _, a := range c.Assertions {
			w.Assertions = append(w.Assertions, toWire(a, c.DefaultAlgorithm))
		}
		for _, a := range c.RedactedAssertions {
			w.RedactedAssertions = append(w.RedactedAssertions, toWire(a, c.DefaultAlgorithm))
		}
		b, err = cbor.Marshal(w)
	case ClaimV2:
		w := claimWireV2{
			Algorithm:  c.DefaultAlgorithm,
			InstanceID: c.InstanceID,
			Signature:  c.SignatureRef,
			Title:      c.Title,
		}
		if len(c.GeneratorInfo) > 0 {
			w.GeneratorInfo = &c.GeneratorInfo[0]
		}
		for _, a := range c.Assertions {
			w.CreatedAssertions = append(w.CreatedAssertions, toWire(a, c.DefaultAlgorithm))
		}
		for _, a := range c.GatheredAssertions {
			w.GatheredAssertions = append(w.GatheredAssertions, toWire(a, c.DefaultAlgorithm))
		}
		for _, a := range c.RedactedAssertions {
			w.RedactedAssertions = append(w.RedactedAssertions, toWire(a, c.DefaultAlgorithm))
		}
		b, err = cbor.Marshal(w)
	default:
		return nil, fmt.Errorf("%w: claim version %d", errdefs.ErrUnsupported, c.Version)
	}
	if err != nil {
		return nil, fmt.Errorf("encoding claim: %w", err)
	}
	c.RawContent = b
	return b, nil
}
