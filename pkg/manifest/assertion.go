package manifest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wuxler/c2pa/pkg/asset"
	"github.com/wuxler/c2pa/pkg/errdefs"
	"github.com/wuxler/c2pa/pkg/hashing"
	"github.com/wuxler/c2pa/pkg/jumbf"
)

// Assertion is the common surface every assertion variant implements:
// a label, the JUMBF content-box type it round-trips through, and the
// ability to re-encode itself as content-box bytes.
type Assertion interface {
	FullLabel() string
	BaseLabel() string
	ContentUUID() jumbf.UUID
	ContentType() jumbf.FourCC
	EmitBytes() ([]byte, error)
}

// HardBindingAssertion is implemented by the assertion variants that bind a
// manifest to the literal bytes of its asset (DataHash, BMFFHash).
type HardBindingAssertion interface {
	Assertion
	ValidateAgainstAsset(src asset.Reader, defaultAlg hashing.Algorithm) (bool, error)
}

// assertionBase holds the fields every assertion variant shares.
type assertionBase struct {
	label       string
	labelSuffix int
	hasSuffix   bool
	contentType jumbf.FourCC
}

// ContentType returns the JUMBF content-box type this assertion was parsed
// from (and will be re-emitted as): cbor, json, or an embedded-file type.
func (b assertionBase) ContentType() jumbf.FourCC { return b.contentType }

// FullLabel returns "label" or "label__suffix" per spec.md §3's disambiguation rule.
func (b assertionBase) FullLabel() string {
	if b.hasSuffix {
		return fmt.Sprintf("%s__%d", b.label, b.labelSuffix)
	}
	return b.label
}

func (b assertionBase) BaseLabel() string { return b.label }

// splitLabel separates a wire label of the form "<label>__<suffix>" into its
// base label and suffix, per spec.md §3.
func splitLabel(wire string) (base string, suffix int, hasSuffix bool) {
	i := strings.LastIndex(wire, "__")
	if i < 0 {
		return wire, 0, false
	}
	n, err := strconv.Atoi(wire[i+2:])
	if err != nil {
		return wire, 0, false
	}
	return wire[:i], n, true
}

var metadataLabels = map[string]bool{
	"c2pa.metadata":              true,
	"cawg.metadata":              true,
	"stds.metadata":              true,
	"stds.exif":                  true,
	"stds.iptc":                  true,
	"stds.iptc.photo-metadata":   true,
}

// ParseAssertion dispatches on descLabel (the assertion-store description
// box's label, including any "__<n>" suffix) to build the typed assertion
// the box's content represents, per the table in spec.md §4.7.
func ParseAssertion(descLabel string, uuid jumbf.UUID, content jumbf.ContentBox) (Assertion, error) {
	base, suffix, hasSuffix := splitLabel(descLabel)
	b := assertionBase{label: base, labelSuffix: suffix, hasSuffix: hasSuffix, contentType: content.Type}

	switch {
	case base == "c2pa.actions" || base == "c2pa.actions.v2":
		return parseAction(b, uuid, content)
	case base == "c2pa.hash.data":
		return parseDataHash(b, uuid, content)
	case base == "c2pa.hash.bmff.v2" || base == "c2pa.hash.bmff.v3":
		return parseBMFFHash(b, uuid, content)
	case base == "c2pa.ingredient" || base == "c2pa.ingredient.v2" || base == "c2pa.ingredient.v3":
		return parseIngredient(b, uuid, content)
	case metadataLabels[base]:
		return parseMetadata(b, uuid, content)
	case base == "stds.schema-org.CreativeWork":
		return parseCreativeWork(b, uuid, content)
	case base == "c2pa.training-mining" || base == "cawg.training-mining":
		return parseTrainingAndDataMining(b, uuid, content)
	case strings.HasPrefix(base, "c2pa.thumbnail.claim.") || strings.HasPrefix(base, "c2pa.thumbnail.ingredient"):
		return parseThumbnail(b, uuid, content)
	default:
		return parseUnknown(b, uuid, content)
	}
}

func errMalformed(code StatusCode, label, detail string) error {
	return fmt.Errorf("%w: %s: %s (%s)", errdefs.ErrInvalidParameter, label, detail, code)
}
