// Package cose implements COSE_Sign1 (RFC 8152, CBOR tag 18) construction
// and verification for C2PA claim signatures: Sig_structure composition,
// protected/unprotected headers carrying the signing certificate chain and
// an optional RFC3161 timestamp token, and the padding discipline that lets
// a signature be produced in place inside an already-sized JUMBF envelope.
package cose

import (
	"crypto"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/wuxler/c2pa/pkg/errdefs"
	"github.com/wuxler/c2pa/pkg/sigalgo"
	"github.com/wuxler/c2pa/pkg/util/xio"
)

// Algorithm is a COSE "alg" header value, per the IANA COSE Algorithms
// registry, for the families the signature engine supports.
type Algorithm int64

const (
	AlgES256 Algorithm = -7
	AlgES384 Algorithm = -35
	AlgES512 Algorithm = -36
	AlgEdDSA Algorithm = -8
	AlgPS256 Algorithm = -37
	AlgPS384 Algorithm = -38
	AlgPS512 Algorithm = -39
	AlgRS256 Algorithm = -257
	AlgRS384 Algorithm = -258
	AlgRS512 Algorithm = -259
)

var toSigAlgo = map[Algorithm]sigalgo.Algorithm{
	AlgES256: sigalgo.ES256, AlgES384: sigalgo.ES384, AlgES512: sigalgo.ES512,
	AlgEdDSA: sigalgo.Ed25519Alg,
	AlgPS256: sigalgo.PS256, AlgPS384: sigalgo.PS384, AlgPS512: sigalgo.PS512,
	AlgRS256: sigalgo.RS256, AlgRS384: sigalgo.RS384, AlgRS512: sigalgo.RS512,
}

var fromSigAlgo = map[sigalgo.Algorithm]Algorithm{}

func init() {
	for k, v := range toSigAlgo {
		fromSigAlgo[v] = k
	}
}

// SigAlgo returns the sigalgo.Algorithm backing a, or an error if a isn't
// one of the ten supported COSE algorithm codes.
func (a Algorithm) SigAlgo() (sigalgo.Algorithm, error) {
	sa, ok := toSigAlgo[a]
	if !ok {
		return "", fmt.Errorf("%w: COSE alg %d", errdefs.ErrUnsupported, a)
	}
	return sa, nil
}

// FromSigAlgo returns the COSE algorithm code for sa.
func FromSigAlgo(sa sigalgo.Algorithm) (Algorithm, error) {
	a, ok := fromSigAlgo[sa]
	if !ok {
		return 0, fmt.Errorf("%w: signature algorithm %q", errdefs.ErrUnsupported, sa)
	}
	return a, nil
}

// Header labels. alg and x5chain are IANA-registered COSE header
// parameters (1 and 33); sigTst and pad are C2PA-specific string-keyed
// extensions with no numeric IANA assignment.
const (
	labelAlg      = int64(1)
	labelX5Chain  = int64(33)
	labelPad      = "pad"
	labelSigTst   = "sigTst"
)

var encMode = func() cbor.EncMode {
	opts := cbor.CanonicalEncOptions()
	m, err := opts.EncMode()
	if err != nil {
		panic(err) // fixed, valid options; cannot fail at runtime
	}
	return m
}()

// Sign1 is a COSE_Sign1 message under construction or parsed from the wire.
// The payload is always detached: it never appears in the protected header or in
// the serialized message, matching the core's use of the detached-payload
// convention for claim signatures.
type Sign1 struct {
	protected   map[any]any
	unprotected map[any]any
	signature   []byte
	padding     int64
}

// NewSign1 starts a Sign1 for algorithm alg with certChain (each entry a DER
// certificate, leaf first) embedded in the protected header's x5chain, and
// padding bytes of room reserved for later growth.
func NewSign1(alg Algorithm, certChain [][]byte, padding int64) *Sign1 {
	chain := make([]any, len(certChain))
	for i, c := range certChain {
		chain[i] = c
	}
	return &Sign1{
		protected: map[any]any{
			labelAlg:     int64(alg),
			labelX5Chain: chain,
			labelPad:     make([]byte, padding),
		},
		unprotected: map[any]any{},
		padding:     padding,
	}
}

// SetTimestampToken stores an RFC3161 timestamp token in the unprotected
// header's sigTst field.
func (s *Sign1) SetTimestampToken(token []byte) {
	s.unprotected[labelSigTst] = token
}

// TimestampToken returns the RFC3161 timestamp token, if any.
func (s *Sign1) TimestampToken() ([]byte, bool) {
	v, ok := s.unprotected[labelSigTst]
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

// Algorithm returns the COSE algorithm recorded in the protected header.
func (s *Sign1) Algorithm() (Algorithm, error) {
	v, ok := s.protected[labelAlg]
	if !ok {
		return 0, fmt.Errorf("%w: protected header has no alg", errdefs.ErrInvalidParameter)
	}
	n, ok := toInt64(v)
	if !ok {
		return 0, fmt.Errorf("%w: protected header alg is not an integer", errdefs.ErrInvalidParameter)
	}
	return Algorithm(n), nil
}

// Signature returns the raw signature bytes, the value a timestamp
// authority's messageImprint is computed over. Empty until Sign succeeds.
func (s *Sign1) Signature() []byte { return s.signature }

// CertChain returns the DER certificates recorded in the protected header's
// x5chain, leaf first.
func (s *Sign1) CertChain() ([][]byte, error) {
	v, ok := s.protected[labelX5Chain]
	if !ok {
		return nil, nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: x5chain is not an array", errdefs.ErrInvalidParameter)
	}
	out := make([][]byte, len(raw))
	for i, r := range raw {
		b, ok := r.([]byte)
		if !ok {
			return nil, fmt.Errorf("%w: x5chain entry %d is not a byte string", errdefs.ErrInvalidParameter, i)
		}
		out[i] = b
	}
	return out, nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}

func (s *Sign1) protectedBytes() ([]byte, error) {
	b, err := encMode.Marshal(s.protected)
	if err != nil {
		return nil, fmt.Errorf("encoding protected header: %w", err)
	}
	return b, nil
}

// sigStructure builds the Sig_structure ["Signature1", protected, bstr(),
// payload] bytes that are actually signed/verified.
func sigStructure(protected, payload []byte) ([]byte, error) {
	arr := []any{"Signature1", protected, []byte{}, payload}
	b, err := encMode.Marshal(arr)
	if err != nil {
		return nil, fmt.Errorf("encoding Sig_structure: %w", err)
	}
	return b, nil
}

// Sign computes the signature over payload (the claim's detached CBOR
// bytes) using signer, which must match the algorithm recorded via
// NewSign1.
func (s *Sign1) Sign(payload []byte, signer crypto.Signer) error {
	alg, err := s.Algorithm()
	if err != nil {
		return err
	}
	sa, err := alg.SigAlgo()
	if err != nil {
		return err
	}
	protected, err := s.protectedBytes()
	if err != nil {
		return err
	}
	toSign, err := sigStructure(protected, payload)
	if err != nil {
		return err
	}
	sig, err := sigalgo.Sign(sa, signer, toSign)
	if err != nil {
		return fmt.Errorf("signing Sig_structure: %w", err)
	}
	s.signature = sig
	return nil
}

// Verify checks the signature over payload against pub.
func (s *Sign1) Verify(payload []byte, pub crypto.PublicKey) error {
	if len(s.signature) == 0 {
		return errdefs.ErrMissingSignature
	}
	alg, err := s.Algorithm()
	if err != nil {
		return err
	}
	sa, err := alg.SigAlgo()
	if err != nil {
		return err
	}
	protected, err := s.protectedBytes()
	if err != nil {
		return err
	}
	toVerify, err := sigStructure(protected, payload)
	if err != nil {
		return err
	}
	return sigalgo.Verify(sa, pub, toVerify, s.signature)
}

// wireMessage is the CBOR array shape of a COSE_Sign1 message, with the
// payload always omitted (detached).
type wireMessage struct {
	_           struct{} `cbor:",toarray"`
	Protected   []byte
	Unprotected map[any]any
	Payload     *[]byte // always nil: detached payload convention
	Signature   []byte
}

// measureEnvelope returns the current serialized size of the COSE_Sign1
// message, the measurement the padding discipline is built on.
func (s *Sign1) measureEnvelope() (int64, error) {
	b, err := s.Marshal()
	if err != nil {
		return 0, err
	}
	mw := xio.NewMeasuredWriter(io.Discard)
	if _, err := mw.Write(b); err != nil {
		return 0, err
	}
	return mw.Total(), nil
}

// Marshal serializes the message as a CBOR tag-18 array.
func (s *Sign1) Marshal() ([]byte, error) {
	protected, err := s.protectedBytes()
	if err != nil {
		return nil, err
	}
	msg := wireMessage{Protected: protected, Unprotected: s.unprotected, Signature: s.signature}
	tagged := cbor.Tag{Number: 18, Content: msg}
	b, err := encMode.Marshal(tagged)
	if err != nil {
		return nil, fmt.Errorf("encoding COSE_Sign1: %w", err)
	}
	return b, nil
}

// Unmarshal decodes a COSE_Sign1 message, replacing s's contents.
func (s *Sign1) Unmarshal(data []byte) error {
	var tagged cbor.RawTag
	if err := cbor.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("%w: decoding COSE_Sign1: %v", errdefs.ErrInvalidParameter, err)
	}
	if tagged.Number != 18 {
		return fmt.Errorf("%w: expected COSE tag 18, got %d", errdefs.ErrInvalidParameter, tagged.Number)
	}
	var msg wireMessage
	if err := cbor.Unmarshal(tagged.Content, &msg); err != nil {
		return fmt.Errorf("%w: decoding COSE_Sign1 array: %v", errdefs.ErrInvalidParameter, err)
	}
	var protected map[any]any
	if err := cbor.Unmarshal(msg.Protected, &protected); err != nil {
		return fmt.Errorf("%w: decoding protected header: %v", errdefs.ErrInvalidParameter, err)
	}
	s.protected = protected
	s.unprotected = msg.Unprotected
	if s.unprotected == nil {
		s.unprotected = map[any]any{}
	}
	s.signature = msg.Signature
	if pad, ok := protected[labelPad].([]byte); ok {
		s.padding = int64(len(pad))
	}
	return nil
}

// SignWithPadding signs payload, shrinks the protected header's pad entry by
// exactly the growth the real signature introduced, and then signs again over
// the shrunk header, so the envelope's serialized size is unchanged from
// before signing and the stored signature covers the final pad. Fails with
// ErrInsufficientPadding if the reserved padding cannot absorb that growth.
func (s *Sign1) SignWithPadding(payload []byte, signer crypto.Signer) error {
	before, err := s.measureEnvelope()
	if err != nil {
		return err
	}
	if err := s.Sign(payload, signer); err != nil {
		return err
	}
	if err := s.absorbGrowth(before); err != nil {
		return err
	}
	// The first signature covered the old pad value. Signatures of one
	// algorithm and key have a fixed length, so signing again leaves the
	// envelope size where absorbGrowth put it.
	return s.Sign(payload, signer)
}

// absorbGrowth re-measures the envelope and shrinks pad by the delta,
// iterating in case shrinking pad itself crosses a CBOR length-prefix-width
// boundary and changes the envelope size again.
func (s *Sign1) absorbGrowth(before int64) error {
	for i := 0; i < 4; i++ {
		after, err := s.measureEnvelope()
		if err != nil {
			return err
		}
		delta := after - before
		if delta <= 0 {
			return nil
		}
		if delta > s.padding {
			return fmt.Errorf("%w: need %d more bytes than the %d reserved", errdefs.ErrInsufficientPadding, delta, s.padding)
		}
		s.padding -= delta
		s.protected[labelPad] = make([]byte, s.padding)
	}
	return fmt.Errorf("%w: padding did not converge after signing", errdefs.ErrInsufficientPadding)
}

// PaddingLength returns the padding currently reserved in the protected
// header's pad entry.
func (s *Sign1) PaddingLength() int64 { return s.padding }
