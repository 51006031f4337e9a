package manifest

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/wuxler/c2pa/pkg/jumbf"
)

// Metadata is a generic metadata assertion (c2pa.metadata, cawg.metadata,
// stds.metadata, stds.exif, stds.iptc, stds.iptc.photo-metadata): an opaque
// CBOR map the engine neither interprets nor validates against the asset,
// per spec.md §4.7.
type Metadata struct {
	assertionBase
	uuid   jumbf.UUID
	Fields map[string]any
}

func parseMetadata(b assertionBase, uuid jumbf.UUID, content jumbf.ContentBox) (Assertion, error) {
	var fields map[string]any
	if err := cbor.Unmarshal(content.Raw, &fields); err != nil {
		return nil, errMalformed(StatusAssertionCBORInvalid, b.FullLabel(), err.Error())
	}
	return &Metadata{assertionBase: b, uuid: uuid, Fields: fields}, nil
}

// ContentUUID implements Assertion.
func (m *Metadata) ContentUUID() jumbf.UUID { return m.uuid }

// EmitBytes implements Assertion.
func (m *Metadata) EmitBytes() ([]byte, error) { return cbor.Marshal(m.Fields) }
