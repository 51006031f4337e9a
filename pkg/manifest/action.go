package manifest

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/wuxler/c2pa/pkg/hashing"
	"github.com/wuxler/c2pa/pkg/jumbf"
)

// ActionEntry is one action in a c2pa.actions(.v2) assertion: what was done,
// by what, and (for edits that act on other content) which ingredient(s)
// were involved, per spec.md §4.11.
type ActionEntry struct {
	Action            string
	When              string
	SoftwareAgent     string
	Changed           string
	DigitalSourceType string
	Reason            string
	Ingredients       []HashedURI
	Parameters        map[string]any
}

// Action is the c2pa.actions(.v2) assertion. A claim of version < 2 may
// carry at most one action assertion, per spec.md §4.11.
type Action struct {
	assertionBase
	uuid    jumbf.UUID
	Actions []ActionEntry
}

type actionEntryWire struct {
	Action            string                `cbor:"action"`
	When              string                `cbor:"when,omitempty"`
	SoftwareAgent     string                `cbor:"softwareAgent,omitempty"`
	Changed           string                `cbor:"changed,omitempty"`
	DigitalSourceType string                `cbor:"digitalSourceType,omitempty"`
	Reason            string                `cbor:"reason,omitempty"`
	Parameters        map[string]any        `cbor:"parameters,omitempty"`
}

type actionsWire struct {
	Actions []actionEntryWire `cbor:"actions"`
}

func parseAction(b assertionBase, uuid jumbf.UUID, content jumbf.ContentBox) (Assertion, error) {
	var w actionsWire
	if err := cbor.Unmarshal(content.Raw, &w); err != nil {
		return nil, errMalformed(StatusActionMalformed, b.FullLabel(), err.Error())
	}
	a := &Action{assertionBase: b, uuid: uuid}
	for _, we := range w.Actions {
		entry := ActionEntry{
			Action:            we.Action,
			When:              we.When,
			SoftwareAgent:     we.SoftwareAgent,
			Changed:           we.Changed,
			DigitalSourceType: we.DigitalSourceType,
			Reason:            we.Reason,
		}
		if ref, ok := we.Parameters["ingredient"]; ok {
			if h, ok := decodeHashedURIAny(ref); ok {
				entry.Ingredients = append(entry.Ingredients, h)
			}
		}
		if refs, ok := we.Parameters["ingredients"]; ok {
			if list, ok := refs.([]any); ok {
				for _, r := range list {
					if h, ok := decodeHashedURIAny(r); ok {
						entry.Ingredients = append(entry.Ingredients, h)
					}
				}
			}
		}
		entry.Parameters = we.Parameters
		a.Actions = append(a.Actions, entry)
	}
	if base, _, _ := splitLabel(b.FullLabel()); base == "c2pa.actions" {
		for _, e := range a.Actions {
			if len(e.Ingredients) > 1 {
				return nil, errMalformed(StatusActionMalformed, b.FullLabel(), "V1 action carries more than one ingredient")
			}
		}
	}
	return a, nil
}

// decodeHashedURIAny extracts a HashedURI from a generically-decoded CBOR map
// value (map[any]any, as produced when Parameters round-trips through
// map[string]any).
func decodeHashedURIAny(v any) (HashedURI, bool) {
	m, ok := v.(map[any]any)
	if !ok {
		return HashedURI{}, false
	}
	var h HashedURI
	if url, ok := m["url"].(string); ok {
		h.URI = url
	}
	if hb, ok := m["hash"].([]byte); ok {
		h.Hash = hb
	}
	if alg, ok := m["alg"].(string); ok {
		h.Algorithm = hashing.Algorithm(alg)
	}
	return h, h.URI != ""
}

// ContentUUID implements Assertion.
func (a *Action) ContentUUID() jumbf.UUID { return a.uuid }

// EmitBytes implements Assertion.
func (a *Action) EmitBytes() ([]byte, error) {
	w := actionsWire{}
	for _, e := range a.Actions {
		we := actionEntryWire{
			Action:            e.Action,
			When:              e.When,
			SoftwareAgent:     e.SoftwareAgent,
			Changed:           e.Changed,
			DigitalSourceType: e.DigitalSourceType,
			Reason:            e.Reason,
			Parameters:        e.Parameters,
		}
		w.Actions = append(w.Actions, we)
	}
	return cbor.Marshal(w)
}
