package manifest

// actionsRequiringIngredients maps an action type to the ingredient
// relationship its ingredient references must carry, per spec.md §4.11.
var actionsRequiringIngredients = map[string]IngredientRelationship{
	"c2pa.opened":      RelationshipParentOf,
	"c2pa.repackaged":  RelationshipParentOf,
	"c2pa.transcoded":  RelationshipParentOf,
	"c2pa.placed":      RelationshipComponentOf,
	"c2pa.removed":     RelationshipComponentOf,
}

// validateActions implements spec.md §4.11: it walks every Action assertion
// in declaration order and checks the controlled-vocabulary and
// ingredient-linkage rules that validateClaimedAssertions' generic
// hashed-reference check doesn't cover.
func (m *Manifest) validateActions(result *ValidationResult) {
	actionAssertions := 0
	foundCreatedOrOpened := false

	for _, a := range m.Assertions.Assertions {
		act, ok := a.(*Action)
		if !ok {
			continue
		}
		actionAssertions++

		for _, entry := range act.Actions {
			if entry.Action == "c2pa.created" || entry.Action == "c2pa.opened" {
				foundCreatedOrOpened = true
			}

			if entry.Action == "c2pa.redacted" {
				m.validateRedactedAction(act, entry, result)
				continue
			}

			wantRelationship, needsIngredients := actionsRequiringIngredients[entry.Action]
			if !needsIngredients {
				continue
			}
			if len(entry.Ingredients) == 0 {
				if entry.Action == "c2pa.placed" {
					// documented exception: c2pa.placed may carry no ingredient.
					continue
				}
				result.Add(StatusActionMalformed, act.FullLabel(), entry.Action+" requires at least one ingredient")
				continue
			}
			for _, ref := range entry.Ingredients {
				m.validateActionIngredient(act, entry.Action, wantRelationship, ref, result)
			}
		}
	}

	if m.Type == ManifestStandard && !foundCreatedOrOpened {
		result.Add(StatusActionMalformed, "c2pa.actions", "manifest has no c2pa.created or c2pa.opened action")
	}
	if m.Claim.Version < ClaimV2 && actionAssertions > 1 {
		result.Add(StatusActionMalformed, "c2pa.actions", "claim version < 2 carries more than one action assertion")
	}
}

func (m *Manifest) validateActionIngredient(act *Action, actionType string, wantRelationship IngredientRelationship, ref HashedURI, result *ValidationResult) {
	label := assertionLabelFromURI(ref.URI)
	a, ok := m.Assertions.Find(label)
	if !ok {
		result.Add(StatusActionIngredientMismatch, ref.URI, "action references unknown ingredient "+label)
		return
	}
	ing, ok := a.(*Ingredient)
	if !ok {
		result.Add(StatusActionIngredientMismatch, ref.URI, label+" is not an ingredient assertion")
		return
	}
	data, err := ing.EmitBytes()
	if err != nil {
		result.FromError(ref.URI, err)
		return
	}
	matched, err := ref.Matches(data, m.Claim.DefaultAlgorithm)
	if err != nil {
		result.FromError(ref.URI, err)
		return
	}
	if !matched {
		result.Add(StatusActionIngredientMismatch, ref.URI, "ingredient hash does not match")
		return
	}
	if ing.Relationship != wantRelationship {
		result.Add(StatusActionIngredientMismatch, ref.URI,
			actionType+" requires relationship "+string(wantRelationship)+", got "+string(ing.Relationship))
		return
	}
	if ing.Thumbnail != nil {
		thumb, ok := m.Assertions.Find(assertionLabelFromURI(ing.Thumbnail.URI))
		if !ok {
			result.Add(StatusActionIngredientMismatch, ing.Thumbnail.URI, "ingredient thumbnail missing")
			return
		}
		thumbData, err := thumb.EmitBytes()
		if err != nil {
			result.FromError(ing.Thumbnail.URI, err)
			return
		}
		thumbMatched, err := ing.Thumbnail.Matches(thumbData, m.Claim.DefaultAlgorithm)
		if err != nil {
			result.FromError(ing.Thumbnail.URI, err)
			return
		}
		if !thumbMatched {
			result.Add(StatusActionIngredientMismatch, ing.Thumbnail.URI, "ingredient thumbnail hash mismatch")
			return
		}
	}
	result.Add(StatusHashedURIMatch, ref.URI, "")
}

func (m *Manifest) validateRedactedAction(act *Action, entry ActionEntry, result *ValidationResult) {
	redactedURI, _ := entry.Parameters["redacted"].(string)
	if redactedURI == "" {
		result.Add(StatusActionRedactionMismatch, act.FullLabel(), "c2pa.redacted action has no redacted parameter")
		return
	}
	label := assertionLabelFromURI(redactedURI)
	if _, ok := m.Assertions.Find(label); !ok {
		result.Add(StatusActionRedactionMismatch, redactedURI, "redacted parameter does not resolve to an existing assertion")
		return
	}
	if !claimRedacts(m.Claim.RedactedAssertions, label) {
		result.Add(StatusAssertionNotRedacted, redactedURI, "c2pa.redacted action references an assertion the claim's redactedAssertions list does not carry")
		return
	}
	result.Add(StatusAssertionAccessible, redactedURI, "")
}

// claimRedacts reports whether label names an assertion the claim's own
// redactedAssertions list carries.
func claimRedacts(redacted []HashedURI, label string) bool {
	for _, ref := range redacted {
		if assertionLabelFromURI(ref.URI) == label {
			return true
		}
	}
	return false
}
