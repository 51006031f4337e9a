package manifest

import (
	"fmt"

	"github.com/wuxler/c2pa/pkg/errdefs"
	"github.com/wuxler/c2pa/pkg/jumbf"
)

// assertionStoreLabel is the fixed label of the assertion-store SuperBox
// inside a manifest, per spec.md §4.
const assertionStoreLabel = "c2pa.assertions"

// AssertionStore is the ordered collection of assertions a manifest makes,
// per spec.md §4.7. Order is preserved from the source JUMBF and is the
// order validation visits assertions in.
type AssertionStore struct {
	Assertions []Assertion
}

// ParseAssertionStore decodes every child SuperBox of box (each one
// assertion) into its typed Assertion.
func ParseAssertionStore(box *jumbf.SuperBox) (*AssertionStore, error) {
	store := &AssertionStore{}
	for _, child := range box.Children {
		if len(child.Contents) != 1 {
			return nil, fmt.Errorf("%w: assertion %q must have exactly one content box, got %d",
				errdefs.ErrInvalidParameter, child.Description.Label, len(child.Contents))
		}
		a, err := ParseAssertion(child.Description.Label, child.Description.UUID, child.Contents[0])
		if err != nil {
			return nil, err
		}
		store.Assertions = append(store.Assertions, a)
	}
	return store, nil
}

// Emit serializes the store back to a SuperBox ("c2pa.assertions").
func (s *AssertionStore) Emit() (*jumbf.SuperBox, error) {
	box := jumbf.NewSuperBox(jumbf.DescriptionBox{
		UUID:  jumbf.UUIDAssertionStore,
		Label: assertionStoreLabel,
	})
	for _, a := range s.Assertions {
		data, err := a.EmitBytes()
		if err != nil {
			return nil, fmt.Errorf("emitting assertion %q: %w", a.FullLabel(), err)
		}
		child := jumbf.NewSuperBox(jumbf.DescriptionBox{
			UUID:  a.ContentUUID(),
			Label: a.FullLabel(),
		})
		child.AddContent(jumbf.ContentBox{Type: a.ContentType(), Raw: data})
		box.AddChild(child)
	}
	return box, nil
}

// Find returns the assertion with the given full label (including any
// "__<n>" suffix), or false if absent.
func (s *AssertionStore) Find(fullLabel string) (Assertion, bool) {
	for _, a := range s.Assertions {
		if a.FullLabel() == fullLabel {
			return a, true
		}
	}
	return nil, false
}

// AllWithBaseLabel returns every assertion sharing baseLabel, in store
// order, regardless of "__<n>" disambiguation suffix.
func (s *AssertionStore) AllWithBaseLabel(baseLabel string) []Assertion {
	var out []Assertion
	for _, a := range s.Assertions {
		if a.BaseLabel() == baseLabel {
			out = append(out, a)
		}
	}
	return out
}

// HardBindings returns every assertion implementing HardBindingAssertion.
func (s *AssertionStore) HardBindings() []HardBindingAssertion {
	var out []HardBindingAssertion
	for _, a := range s.Assertions {
		if hb, ok := a.(HardBindingAssertion); ok {
			out = append(out, hb)
		}
	}
	return out
}
