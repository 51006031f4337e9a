package manifest

import (
	"fmt"

	"github.com/wuxler/c2pa/pkg/errdefs"
	"github.com/wuxler/c2pa/pkg/jumbf"
)

// Unknown is any assertion whose label the engine does not recognize. Its
// bytes are preserved opaquely; it participates in hashing (so its
// HashedURI reference still validates) but is never re-serialized from
// interpreted fields, since the engine never parsed its structure.
type Unknown struct {
	assertionBase
	uuid jumbf.UUID
	Raw  []byte
}

func parseUnknown(b assertionBase, uuid jumbf.UUID, content jumbf.ContentBox) (Assertion, error) {
	return &Unknown{assertionBase: b, uuid: uuid, Raw: append([]byte(nil), content.Raw...)}, nil
}

// ContentUUID implements Assertion.
func (u *Unknown) ContentUUID() jumbf.UUID { return u.uuid }

// EmitBytes implements Assertion. An Unknown assertion refuses re-encoding
// of anything but its own untouched bytes — there is nothing else to emit.
func (u *Unknown) EmitBytes() ([]byte, error) {
	if u.Raw == nil {
		return nil, fmt.Errorf("%w: %s: unknown assertion has no bytes to emit", errdefs.ErrInvalidParameter, u.FullLabel())
	}
	return u.Raw, nil
}
