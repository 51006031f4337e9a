package manifest

import (
	"context"
	"crypto/x509"
	"fmt"
	"time"

	"github.com/wuxler/c2pa/pkg/asset"
	"github.com/wuxler/c2pa/pkg/cose"
	"github.com/wuxler/c2pa/pkg/errdefs"
	"github.com/wuxler/c2pa/pkg/jumbf"
	"github.com/wuxler/c2pa/pkg/trust"
)

// ManifestType distinguishes a standard manifest from one whose sole purpose
// is to record metadata-only edits against a single parent, per spec.md §4.
type ManifestType int

const (
	ManifestStandard ManifestType = iota
	ManifestUpdate
)

const (
	labelClaim      = "c2pa.claim"
	labelSignature  = "c2pa.signature"
	labelAssertions = "c2pa.assertions"
)

// Manifest is one node in a manifest store's provenance chain: a claim, the
// assertion store it references, and the COSE_Sign1 signature over the
// claim's bytes, per spec.md §4.
type Manifest struct {
	Label      string
	Type       ManifestType
	Claim      *Claim
	Assertions *AssertionStore
	Signature  *cose.Sign1

	// TrustStore, when set, backs the signingCredential.{trusted,untrusted}
	// checks of spec.md §4.12 step 1. Nil means trust policy is out of
	// scope for this validation run (signature math is still checked).
	TrustStore *trust.Store

	box *jumbf.SuperBox
}

// ParseManifest decodes a manifest SuperBox (one child of a manifest store)
// into its claim, assertion store and signature.
func ParseManifest(box *jumbf.SuperBox, version ClaimVersion) (*Manifest, error) {
	m := &Manifest{Label: box.Description.Label, box: box}

	assertionsBox := box.FindChild(labelAssertions)
	if assertionsBox == nil {
		return nil, fmt.Errorf("%w: manifest %q missing assertion store", errdefs.ErrInvalidParameter, m.Label)
	}
	store, err := ParseAssertionStore(assertionsBox)
	if err != nil {
		return nil, err
	}
	m.Assertions = store

	claimBox := box.FindChild(labelClaim)
	if claimBox == nil {
		return nil, fmt.Errorf("%w: manifest %q missing claim", errdefs.ErrInvalidParameter, m.Label)
	}
	claimContent, ok := claimBox.FindContent(jumbf.TypeCBOR)
	if !ok {
		return nil, fmt.Errorf("%w: manifest %q claim box has no CBOR content", errdefs.ErrInvalidParameter, m.Label)
	}
	claim, err := ParseClaimCBOR(claimContent.Raw, version)
	if err != nil {
		return nil, err
	}
	m.Claim = claim

	if sigBox := box.FindChild(labelSignature); sigBox != nil {
		if content, ok := sigBox.FindContent(jumbf.TypeCBOR); ok {
			sig := &cose.Sign1{}
			if err := sig.Unmarshal(content.Raw); err != nil {
				return nil, err
			}
			m.Signature = sig
		}
	}
	return m, nil
}

// Emit serializes the manifest back to a SuperBox.
func (m *Manifest) Emit() (*jumbf.SuperBox, error) {
	box := jumbf.NewSuperBox(jumbf.DescriptionBox{UUID: jumbf.UUIDManifest, Label: m.Label})

	// Reuse the claim's retained bytes so a signed claim is never re-encoded;
	// only a claim that has none yet is emitted here.
	claimBytes := m.Claim.RawContent
	if claimBytes == nil {
		var err error
		if claimBytes, err = m.Claim.Emit(); err != nil {
			return nil, err
		}
	}
	claimBox := jumbf.NewSuperBox(jumbf.DescriptionBox{UUID: jumbf.UUIDClaim, Label: labelClaim})
	claimBox.AddContent(jumbf.ContentBox{Type: jumbf.TypeCBOR, Raw: claimBytes})
	box.AddChild(claimBox)

	assertionsBox, err := m.Assertions.Emit()
	if err != nil {
		return nil, err
	}
	box.AddChild(assertionsBox)

	if m.Signature != nil {
		sigBytes, err := m.Signature.Marshal()
		if err != nil {
			return nil, err
		}
		sigBox := jumbf.NewSuperBox(jumbf.DescriptionBox{UUID: jumbf.UUIDSignature, Label: labelSignature})
		sigBox.AddContent(jumbf.ContentBox{Type: jumbf.TypeCBOR, Raw: sigBytes})
		box.AddChild(sigBox)
	}
	return box, nil
}

// IngredientResolver looks up the active manifest an ingredient's
// c2pa_manifest HashedURI refers to, within the enclosing manifest store or
// across the JUMBFGraph. It returns ok=false (no error) when the reference
// cannot be resolved locally.
type IngredientResolver func(ref HashedURI) (*Manifest, bool, error)

// Validate runs the eight-stage validation pipeline against src (the asset
// the manifest's hard bindings must match) and resolve (used to recurse into
// ingredient manifests), per spec.md §4.12. It never returns an error for a
// validation failure — only for malformed input it cannot even evaluate;
// failures are recorded as status entries instead.
//
// Stages 1-6 check the claim structure itself without touching the asset.
// Per step 6, once any of those stages has recorded a failure, Validate
// returns before stages 7-8 (hard-binding and ingredient-lineage checks)
// read a single byte of src — there is no sound asset binding to check
// against a manifest that already failed its own structural validation.
func (m *Manifest) Validate(src asset.Reader, resolve IngredientResolver) (*ValidationResult, error) {
	result := &ValidationResult{}

	m.validateSignaturePresent(result)
	m.validateStructural(result)
	m.validateRedactedAssertions(result)
	m.validateClaimedAssertions(result)
	m.validateGatheredAssertions(result)
	m.validateActions(result)
	m.validateGuardedContinuation(result)

	if result.HasError() {
		return result, nil
	}

	m.validateHardBindings(src, result)
	m.validateIngredientLineage(resolve, result)

	return result, nil
}

func (m *Manifest) validateSignaturePresent(result *ValidationResult) {
	if m.Signature == nil || m.Claim == nil {
		result.Add(StatusClaimSignatureMissing, m.Label, "manifest has no signature box")
		return
	}

	certChain, err := m.Signature.CertChain()
	if err != nil || len(certChain) == 0 {
		result.Add(StatusClaimSignatureMismatch, m.Label, "signature carries no signing certificate")
		return
	}
	leaf, err := x509.ParseCertificate(certChain[0])
	if err != nil {
		result.Add(StatusClaimSignatureMismatch, m.Label, "signing certificate is not a valid X.509 certificate")
		return
	}
	if err := m.Signature.Verify(m.Claim.RawContent, leaf.PublicKey); err != nil {
		result.Add(StatusClaimSignatureMismatch, m.Label, err.Error())
		return
	}
	result.Add(StatusClaimSignatureValidated, m.Label, "")

	now := time.Now()
	if now.Before(leaf.NotBefore) || now.After(leaf.NotAfter) {
		result.Add(StatusClaimSignatureMismatch, m.Label, "signing certificate is outside its validity period")
	} else {
		result.Add(StatusClaimSignatureInsideValidity, m.Label, "")
	}

	if m.TrustStore == nil {
		return
	}
	tr, err := m.TrustStore.Verify(context.Background(), certChain, now)
	if err != nil {
		result.FromError(m.Label, err)
		return
	}
	if !tr.Trusted {
		result.Add(StatusSigningCredentialUntrusted, m.Label, "")
		return
	}
	result.Add(StatusSigningCredentialTrusted, m.Label, "")

	if len(tr.Chains) == 0 || len(tr.Chains[0]) < 2 {
		return
	}
	issuer := tr.Chains[0][1]
	checked, revoked, err := m.TrustStore.CheckRevocation(context.Background(), leaf, issuer)
	if err != nil {
		result.FromError(m.Label, err)
		return
	}
	if !checked {
		return
	}
	if revoked {
		result.Add(StatusSigningCredentialInvalid, m.Label, "signing certificate has been revoked")
	} else {
		result.Add(StatusSigningCredentialNotRevoked, m.Label, "")
	}
}

// validateStructural checks that the manifest carries a claim at all.
// Whether each assertion the claim references actually resolves in the
// store is validateClaimedAssertions' job (via validateAssertionReference),
// not repeated here.
func (m *Manifest) validateStructural(result *ValidationResult) {
	if m.Claim == nil {
		result.Add(StatusClaimMissing, m.Label, "manifest has no claim")
	}
}

// validateRedactedAssertions checks each of the claim's redacted-assertion
// references per spec.md §4.12 step 3: the target must exist, its hashed
// reference must verify against the stored assertion bytes, it must not be
// an action assertion, and it must not be an assertion this same claim
// created.
func (m *Manifest) validateRedactedAssertions(result *ValidationResult) {
	for _, ref := range m.Claim.RedactedAssertions {
		label := assertionLabelFromURI(ref.URI)

		if claimCreates(m.Claim.Assertions, label) {
			result.Add(StatusAssertionSelfRedacted, ref.URI, "redacted assertion was created by this same claim")
			continue
		}

		a, ok := m.Assertions.Find(label)
		if !ok {
			result.Add(StatusAssertionMissing, ref.URI, "redacted assertion reference does not resolve")
			continue
		}
		data, err := a.EmitBytes()
		if err != nil {
			result.FromError(ref.URI, err)
			continue
		}
		matched, err := ref.Matches(data, m.Claim.DefaultAlgorithm)
		if err != nil {
			result.FromError(ref.URI, err)
			continue
		}
		if !matched {
			result.Add(StatusHashedURIMismatch, ref.URI, "redacted assertion hash does not match stored content")
			continue
		}

		if _, isAction := a.(*Action); isAction {
			result.Add(StatusActionRedacted, ref.URI, "redacted target is an action assertion")
			continue
		}
		result.Add(StatusHashedURIMatch, ref.URI, "")
	}
}

// claimCreates reports whether label names an assertion this claim's own
// assertions list creates.
func claimCreates(assertions []HashedURI, label string) bool {
	for _, ref := range assertions {
		if assertionLabelFromURI(ref.URI) == label {
			return true
		}
	}
	return false
}

func (m *Manifest) validateClaimedAssertions(result *ValidationResult) {
	for _, ref := range m.Claim.Assertions {
		m.validateAssertionReference(ref, result)
	}
}

func (m *Manifest) validateGatheredAssertions(result *ValidationResult) {
	for _, ref := range m.Claim.GatheredAssertions {
		m.validateAssertionReference(ref, result)
	}
}

func (m *Manifest) validateAssertionReference(ref HashedURI, result *ValidationResult) {
	label := assertionLabelFromURI(ref.URI)
	a, ok := m.Assertions.Find(label)
	if !ok {
		result.Add(StatusAssertionMissing, ref.URI, "")
		return
	}
	data, err := a.EmitBytes()
	if err != nil {
		result.FromError(ref.URI, err)
		return
	}
	matched, err := ref.Matches(data, m.Claim.DefaultAlgorithm)
	if err != nil {
		result.FromError(ref.URI, err)
		return
	}
	if matched {
		result.Add(StatusHashedURIMatch, ref.URI, "")
	} else {
		result.Add(StatusHashedURIMismatch, ref.URI, "")
	}
}

// validateGuardedContinuation enforces the manifest-type structural rules of
// spec.md §4.12 step 2: Standard manifests need exactly one hard binding and
// at most one parentOf ingredient; Update manifests need zero hard bindings,
// zero thumbnails, zero action assertions, and exactly one parentOf
// ingredient. The step-6 gate itself — not proceeding to the asset-touching
// stages once this or any earlier stage has recorded a failure — is enforced
// by Validate's HasError check, not here.
func (m *Manifest) validateGuardedContinuation(result *ValidationResult) {
	hardBindings := len(m.Assertions.HardBindings())
	var parents int
	var thumbnails int
	var actions int
	for _, a := range m.Assertions.Assertions {
		switch v := a.(type) {
		case *Ingredient:
			if v.Relationship == RelationshipParentOf {
				parents++
			}
		case *Thumbnail:
			thumbnails++
		case *Action:
			actions++
		}
	}

	switch m.Type {
	case ManifestUpdate:
		if hardBindings > 0 {
			result.Add(StatusManifestUpdateInvalid, m.Label, "update manifest must not contain a hard binding")
		}
		if thumbnails > 0 {
			result.Add(StatusManifestUpdateInvalid, m.Label, "update manifest must not contain a thumbnail")
		}
		if actions > 0 {
			result.Add(StatusManifestUpdateInvalid, m.Label, "update manifest must not contain an action assertion")
		}
		switch {
		case parents == 0:
			result.Add(StatusManifestUpdateInvalid, m.Label, "update manifest has no parentOf ingredient")
		case parents > 1:
			result.Add(StatusManifestUpdateWrongParents, m.Label, "update manifest references more than one parent")
		}
	default:
		switch {
		case hardBindings == 0:
			result.Add(StatusClaimHardBindingsMissing, m.Label, "no data-hash or bmff-hash assertion present")
		case hardBindings > 1:
			result.Add(StatusAssertionMultipleHardBindings, m.Label, "more than one hard-binding assertion present")
		}
		if parents > 1 {
			result.Add(StatusManifestMultipleParents, m.Label, "more than one parentOf ingredient present")
		}
	}
}

func (m *Manifest) validateHardBindings(src asset.Reader, result *ValidationResult) {
	if src == nil {
		return
	}
	for _, hb := range m.Assertions.HardBindings() {
		ok, err := hb.ValidateAgainstAsset(src, m.Claim.DefaultAlgorithm)
		if err != nil {
			result.FromError(hb.FullLabel(), err)
			continue
		}
		switch hb.(type) {
		case *DataHash:
			if ok {
				result.Add(StatusDataHashMatch, hb.FullLabel(), "")
			} else {
				result.Add(StatusDataHashMismatch, hb.FullLabel(), "")
			}
		case *BMFFHash:
			if ok {
				result.Add(StatusBMFFHashMatch, hb.FullLabel(), "")
			} else {
				result.Add(StatusBMFFHashMismatch, hb.FullLabel(), "")
			}
		}
	}
}

func (m *Manifest) validateIngredientLineage(resolve IngredientResolver, result *ValidationResult) {
	// Each level of the walk wraps resolve, so a lineage that leads back to
	// any manifest already on the path ends in an error instead of recursing.
	if next := resolve; next != nil {
		resolve = func(ref HashedURI) (*Manifest, bool, error) {
			p, ok, err := next(ref)
			if err == nil && ok && p == m {
				return nil, false, fmt.Errorf("%w: ingredient lineage leads back to manifest %q", errdefs.ErrInvalidParameter, m.Label)
			}
			return p, ok, err
		}
	}
	for _, a := range m.Assertions.Assertions {
		ing, ok := a.(*Ingredient)
		if !ok {
			continue
		}
		if !ing.KnownProvenance() {
			result.Add(StatusIngredientUnknownProvenance, ing.FullLabel(), "")
			continue
		}
		if resolve == nil {
			continue
		}
		parent, found, err := resolve(*ing.ActiveManifest)
		if err != nil {
			result.FromError(ing.FullLabel(), err)
			continue
		}
		if !found {
			result.Add(StatusIngredientManifestMissing, ing.FullLabel(), "")
			continue
		}
		if parent.box != nil {
			raw, err := parent.box.Bytes()
			if err == nil {
				ok, err = ing.ActiveManifest.Matches(raw, m.Claim.DefaultAlgorithm)
			}
			if err != nil {
				result.FromError(ing.FullLabel(), err)
				continue
			}
			if !ok {
				result.Add(StatusIngredientManifestMismatch, ing.FullLabel(), "ingredient manifest bytes do not match its hash")
				continue
			}
		}
		sub, err := parent.Validate(nil, resolve)
		if err != nil {
			result.FromError(ing.FullLabel(), err)
			continue
		}
		if sub.IsValid() {
			result.Add(StatusIngredientManifestValidated, ing.FullLabel(), "")
		} else {
			result.Add(StatusIngredientManifestMismatch, ing.FullLabel(), "")
		}
		result.Merge(sub)
	}
}

// assertionLabelFromURI extracts the assertion label from a JUMBF URI of the
// form "self#jumbf=/c2pa/<manifest>/c2pa.assertions/<label>" or the bare
// local form "self#jumbf=/c2pa.assertions/<label>".
func assertionLabelFromURI(uri string) string {
	idx := -1
	for i := len(uri) - 1; i >= 0; i-- {
		if uri[i] == '/' {
			idx = i
			break
		}
	}
	if idx < 0 {
		return uri
	}
	return uri[idx+1:]
}
