package manifest

import (
	"encoding/json"

	"github.com/fxamacker/cbor/v2"

	"github.com/wuxler/c2pa/pkg/jumbf"
)

// CreativeWork is the stds.schema-org.CreativeWork assertion: an opaque
// schema.org JSON-LD document, carried verbatim, per spec.md §4.7.
type CreativeWork struct {
	assertionBase
	uuid   jumbf.UUID
	asJSON bool
	Fields map[string]any
}

func parseCreativeWork(b assertionBase, uuid jumbf.UUID, content jumbf.ContentBox) (Assertion, error) {
	cw := &CreativeWork{assertionBase: b, uuid: uuid, asJSON: content.Type == jumbf.TypeJSON}
	var err error
	if cw.asJSON {
		err = json.Unmarshal(content.Raw, &cw.Fields)
	} else {
		err = cbor.Unmarshal(content.Raw, &cw.Fields)
	}
	if err != nil {
		return nil, errMalformed(StatusAssertionJSONInvalid, b.FullLabel(), err.Error())
	}
	return cw, nil
}

// ContentUUID implements Assertion.
func (cw *CreativeWork) ContentUUID() jumbf.UUID { return cw.uuid }

// EmitBytes implements Assertion.
func (cw *CreativeWork) EmitBytes() ([]byte, error) {
	if cw.asJSON {
		return json.Marshal(cw.Fields)
	}
	return cbor.Marshal(cw.Fields)
}
