package manifest

import "strings"

// JUMBFGraph resolves the two URI forms a HashedURI or ingredient reference
// can take: a "self#jumbf=" path local to the manifest doing the
// referencing, or a "self#jumbf=/c2pa/<label>/..." path that crosses into
// another manifest in the same store, per spec.md §4.
//
// A reference that cannot be resolved is reported as ok=false, never an
// error — "not found" is a validation outcome, not a structural failure.
type JUMBFGraph struct {
	store *ManifestStore
}

// NewJUMBFGraph returns a graph rooted at store.
func NewJUMBFGraph(store *ManifestStore) *JUMBFGraph {
	return &JUMBFGraph{store: store}
}

// path strips the "self#jumbf=" prefix (if present) and leading slash from a
// JUMBF URI, returning its "/"-separated segments.
func path(uri string) []string {
	p := strings.TrimPrefix(uri, "self#jumbf=")
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// ResolveManifest resolves a reference to a manifest itself (as used by an
// ingredient's c2pa_manifest field): either "/c2pa/<label>" (cross-manifest)
// or a bare manifest label looked up in the same store.
func (g *JUMBFGraph) ResolveManifest(ref HashedURI) (*Manifest, bool, error) {
	segs := path(ref.URI)
	label := ""
	switch {
	case len(segs) >= 2 && segs[0] == "c2pa":
		label = segs[1]
	case len(segs) == 1:
		label = segs[0]
	default:
		return nil, false, nil
	}
	m, ok := g.store.Find(label)
	return m, ok, nil
}

// ResolveAssertion resolves a reference to an assertion: either
// "/c2pa/<label>/c2pa.assertions/<assertionLabel>" (cross-manifest) or a
// local "/c2pa.assertions/<assertionLabel>" path understood relative to
// fromLabel, per the sameManifestOnly convention most assertion references
// use.
func (g *JUMBFGraph) ResolveAssertion(fromLabel, uri string) (Assertion, bool, error) {
	segs := path(uri)
	if len(segs) == 0 {
		return nil, false, nil
	}

	manifestLabel := fromLabel
	rest := segs
	if segs[0] == "c2pa" && len(segs) >= 2 {
		manifestLabel = segs[1]
		rest = segs[2:]
	}
	if len(rest) == 0 {
		return nil, false, nil
	}
	assertionLabel := rest[len(rest)-1]

	m, ok := g.store.Find(manifestLabel)
	if !ok {
		return nil, false, nil
	}
	a, ok := m.Assertions.Find(assertionLabel)
	return a, ok, nil
}
