package manifest

import (
	"github.com/wuxler/c2pa/pkg/jumbf"
)

// Thumbnail is a c2pa.thumbnail.claim.* / c2pa.thumbnail.ingredient*
// assertion: a raw embedded image, carried byte-for-byte. Parsing keeps only
// the content box's bytes; MediaType is not filled in from the box.
type Thumbnail struct {
	assertionBase
	uuid      jumbf.UUID
	MediaType string
	Data      []byte
}

func parseThumbnail(b assertionBase, uuid jumbf.UUID, content jumbf.ContentBox) (Assertion, error) {
	return &Thumbnail{assertionBase: b, uuid: uuid, Data: append([]byte(nil), content.Raw...)}, nil
}

// ContentUUID implements Assertion.
func (t *Thumbnail) ContentUUID() jumbf.UUID { return t.uuid }

// EmitBytes implements Assertion: the embedded bytes round-trip unmodified.
func (t *Thumbnail) EmitBytes() ([]byte, error) { return t.Data, nil }
