package manifest

import (
	"fmt"

	"github.com/wuxler/c2pa/pkg/asset"
	"github.com/wuxler/c2pa/pkg/errdefs"
	"github.com/wuxler/c2pa/pkg/jumbf"
)

const manifestStoreLabel = "c2pa"

// ManifestStore is the ordered chain of manifests embedded in an asset: the
// active manifest is always the last one, and every manifest's label is
// unique within the store, per spec.md §4.
type ManifestStore struct {
	Manifests []*Manifest
}

// ParseManifestStore decodes the outermost "c2pa" JUMBF SuperBox into its
// ordered manifest chain.
func ParseManifestStore(data []byte, version ClaimVersion) (*ManifestStore, error) {
	box, err := jumbf.Parse(data)
	if err != nil {
		return nil, err
	}
	if box.Description.Label != manifestStoreLabel {
		return nil, fmt.Errorf("%w: outer box labeled %q, expected %q",
			errdefs.ErrInvalidParameter, box.Description.Label, manifestStoreLabel)
	}

	store := &ManifestStore{}
	seen := map[string]bool{}
	for _, child := range box.Children {
		m, err := ParseManifest(child, version)
		if err != nil {
			return nil, err
		}
		if seen[m.Label] {
			return nil, fmt.Errorf("%w: duplicate manifest label %q", errdefs.ErrInvalidParameter, m.Label)
		}
		seen[m.Label] = true
		store.Manifests = append(store.Manifests, m)
	}
	if len(store.Manifests) == 0 {
		return nil, fmt.Errorf("%w: manifest store has no manifests", errdefs.ErrInvalidParameter)
	}
	return store, nil
}

// Emit serializes the store back to its JUMBF bytes.
func (s *ManifestStore) Emit() ([]byte, error) {
	box := jumbf.NewSuperBox(jumbf.DescriptionBox{UUID: jumbf.UUIDManifestStore, Label: manifestStoreLabel})
	for _, m := range s.Manifests {
		mb, err := m.Emit()
		if err != nil {
			return nil, err
		}
		box.AddChild(mb)
	}
	return box.Bytes()
}

// Active returns the last manifest in the chain — the one describing the
// asset's current state — or nil if the store is empty.
func (s *ManifestStore) Active() *Manifest {
	if len(s.Manifests) == 0 {
		return nil
	}
	return s.Manifests[len(s.Manifests)-1]
}

// Find returns the manifest with the given label.
func (s *ManifestStore) Find(label string) (*Manifest, bool) {
	for _, m := range s.Manifests {
		if m.Label == label {
			return m, true
		}
	}
	return nil, false
}

// Validate validates the active manifest against src, recursing into
// ingredient manifests via this store's JUMBFGraph.
func (s *ManifestStore) Validate(src asset.Reader) (*ValidationResult, error) {
	active := s.Active()
	if active == nil {
		result := &ValidationResult{}
		result.Add(StatusClaimMissing, "", "manifest store is empty")
		return result, nil
	}
	graph := NewJUMBFGraph(s)
	resolve := func(ref HashedURI) (*Manifest, bool, error) {
		return graph.ResolveManifest(ref)
	}
	result, err := active.Validate(src, resolve)
	if err != nil {
		return nil, err
	}
	return result, nil
}
