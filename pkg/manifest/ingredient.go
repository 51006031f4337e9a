package manifest

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/wuxler/c2pa/pkg/jumbf"
)

// IngredientRelationship classifies how an ingredient relates to the asset
// the enclosing manifest describes, per spec.md §4.10.
type IngredientRelationship string

const (
	RelationshipParentOf      IngredientRelationship = "parentOf"
	RelationshipComponentOf   IngredientRelationship = "componentOf"
	RelationshipInputTo       IngredientRelationship = "inputTo"
)

// Ingredient is the c2pa.ingredient(.v2/.v3) assertion: a reference to
// another asset (or manifest) this one was derived from, plus that
// ingredient's own provenance chain when known.
type Ingredient struct {
	assertionBase
	uuid            jumbf.UUID
	Title           string
	Format          string
	InstanceID      string
	Relationship    IngredientRelationship
	ActiveManifest  *HashedURI
	ValidationResult *ValidationResult
	Thumbnail       *HashedURI
}

type ingredientWire struct {
	Title            string               `cbor:"dc:title,omitempty"`
	Format           string               `cbor:"dc:format,omitempty"`
	InstanceID       string               `cbor:"instanceID,omitempty"`
	Relationship     string               `cbor:"relationship"`
	ActiveManifest   *hashedURIWire       `cbor:"c2pa_manifest,omitempty"`
	ValidationStatus []statusEntryWire    `cbor:"validationStatus,omitempty"`
	Thumbnail        *hashedURIWire       `cbor:"thumbnail,omitempty"`
}

type statusEntryWire struct {
	Code        string `cbor:"code"`
	URI         string `cbor:"url,omitempty"`
	Explanation string `cbor:"explanation,omitempty"`
}

func parseIngredient(b assertionBase, uuid jumbf.UUID, content jumbf.ContentBox) (Assertion, error) {
	var w ingredientWire
	if err := cbor.Unmarshal(content.Raw, &w); err != nil {
		return nil, errMalformed(StatusAssertionCBORInvalid, b.FullLabel(), err.Error())
	}
	ing := &Ingredient{
		assertionBase: b,
		uuid:          uuid,
		Title:         w.Title,
		Format:        w.Format,
		InstanceID:    w.InstanceID,
		Relationship:  IngredientRelationship(w.Relationship),
	}
	if w.ActiveManifest != nil {
		h := fromWire(*w.ActiveManifest, "")
		ing.ActiveManifest = &h
	}
	if w.Thumbnail != nil {
		h := fromWire(*w.Thumbnail, "")
		ing.Thumbnail = &h
	}
	if len(w.ValidationStatus) > 0 {
		vr := &ValidationResult{}
		for _, s := range w.ValidationStatus {
			vr.Add(StatusCode(s.Code), s.URI, s.Explanation)
		}
		ing.ValidationResult = vr
	}
	return ing, nil
}

// ContentUUID implements Assertion.
func (i *Ingredient) ContentUUID() jumbf.UUID { return i.uuid }

// EmitBytes implements Assertion.
func (i *Ingredient) EmitBytes() ([]byte, error) {
	w := ingredientWire{
		Title:        i.Title,
		Format:       i.Format,
		InstanceID:   i.InstanceID,
		Relationship: string(i.Relationship),
	}
	if i.ActiveManifest != nil {
		h := toWire(*i.ActiveManifest, "")
		w.ActiveManifest = &h
	}
	if i.Thumbnail != nil {
		h := toWire(*i.Thumbnail, "")
		w.Thumbnail = &h
	}
	if i.ValidationResult != nil {
		for _, e := range i.ValidationResult.Entries {
			w.ValidationStatus = append(w.ValidationStatus, statusEntryWire{
				Code: string(e.Code), URI: e.URI, Explanation: e.Explanation,
			})
		}
	}
	return cbor.Marshal(w)
}

// KnownProvenance reports whether this ingredient carries a reference to its
// own active manifest. An ingredient without one is valid but only yields an
// ingredient.unknownProvenance informational status, per spec.md §4.10.
func (i *Ingredient) KnownProvenance() bool { return i.ActiveManifest != nil }
