package jumbf

import "encoding/hex"

// UUID is the fixed 16-byte type identifier carried in every JUMBF
// description box.
type UUID [16]byte

func (u UUID) String() string {
	b := u[:]
	return hex.EncodeToString(b[0:4]) + "-" + hex.EncodeToString(b[4:6]) + "-" +
		hex.EncodeToString(b[6:8]) + "-" + hex.EncodeToString(b[8:10]) + "-" + hex.EncodeToString(b[10:16])
}

// jumbfSuffix is the fixed 12-byte suffix shared by every C2PA JUMBF box
// type UUID (ISO/IEC 19566-5 Annex B's allocation for this vendor): only the
// leading 4 bytes (an ASCII tag) vary between box kinds.
var jumbfSuffix = [12]byte{0x00, 0x11, 0x00, 0x10, 0x80, 0x00, 0x00, 0xAA, 0x00, 0x38, 0x9B, 0x71}

func withSuffix(tag [4]byte) UUID {
	var u UUID
	copy(u[0:4], tag[:])
	copy(u[4:16], jumbfSuffix[:])
	return u
}

// The fixed type UUIDs the core recognizes. All but UUIDEmbeddedFile share
// the common jumbfSuffix; UUIDEmbeddedFile is allocated outside that scheme.
var (
	UUIDManifestStore   = withSuffix([4]byte{'c', '2', 'p', 'a'})
	UUIDManifest        = withSuffix([4]byte{'c', '2', 'm', 'a'})
	UUIDUpdateManifest  = withSuffix([4]byte{'c', '2', 'u', 'm'})
	UUIDAssertionStore  = withSuffix([4]byte{'c', '2', 'a', 's'})
	UUIDClaim           = withSuffix([4]byte{'c', '2', 'c', 'l'})
	UUIDSignature       = withSuffix([4]byte{'c', '2', 'c', 's'})
	UUIDCBORAssertion   = withSuffix([4]byte{'c', 'b', 'o', 'r'})
	UUIDJSONAssertion   = withSuffix([4]byte{'j', 's', 'o', 'n'})
	UUIDIngredient      = withSuffix([4]byte{'c', 'a', 'i', 'n'})
	UUIDEmbeddedFile    = UUID{0x40, 0xCB, 0x0C, 0x32, 0xBB, 0x8A, 0x48, 0x9D, 0xA7, 0x0B, 0x2A, 0xD6, 0xF4, 0x7F, 0x43, 0x69}
)
