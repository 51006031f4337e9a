package manifest

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/wuxler/c2pa/pkg/jumbf"
)

// TrainingAndDataMining is the c2pa.training-mining / cawg.training-mining
// assertion: a per-use-case map of allowed/constrained statuses. The engine
// carries it verbatim without interpreting the policy, per spec.md §4.7.
type TrainingAndDataMining struct {
	assertionBase
	uuid   jumbf.UUID
	Entries map[string]any
}

func parseTrainingAndDataMining(b assertionBase, uuid jumbf.UUID, content jumbf.ContentBox) (Assertion, error) {
	var entries map[string]any
	if err := cbor.Unmarshal(content.Raw, &entries); err != nil {
		return nil, errMalformed(StatusAssertionCBORInvalid, b.FullLabel(), err.Error())
	}
	return &TrainingAndDataMining{assertionBase: b, uuid: uuid, Entries: entries}, nil
}

// ContentUUID implements Assertion.
func (t *TrainingAndDataMining) ContentUUID() jumbf.UUID { return t.uuid }

// EmitBytes implements Assertion.
func (t *TrainingAndDataMining) EmitBytes() ([]byte, error) { return cbor.Marshal(t.Entries) }
