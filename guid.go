package kv3

import "github.com/google/uuid"

// Well-known GUIDs. They are stored on the wire in the mixed-endian layout
// of a Windows GUID; guidFromWire and guidToWire convert to and from the
// RFC 4122 byte order uuid.UUID uses.
var (
	EncodingBlockCompressed = uuid.MustParse("95791a46-95bc-4f6c-a70b-05bca1b7dfd2")
	EncodingUncompressed    = uuid.MustParse("1b860500-f7d8-40c1-ad82-75a48267e714")
	EncodingLZ4             = uuid.MustParse("6847348a-63a1-4f5c-a197-53806fd9b119")
	FormatGeneric           = uuid.MustParse("7412167c-06e9-4698-aff2-e63eb59037e7")

	encodingText = uuid.MustParse("e21c7f3c-8a33-41c5-9977-a76d3a32aa0d")
)

// Legacy documents name their encoding and format; the names resolve to
// GUIDs through these tables.
var (
	legacyEncodings = map[string]uuid.UUID{
		"binary":     EncodingUncompressed,
		"binary_bc":  EncodingBlockCompressed,
		"binary_lz4": EncodingLZ4,
	}
	legacyFormats = map[string]uuid.UUID{
		"generic": FormatGeneric,
	}
)

func lookupName(table map[string]uuid.UUID, id uuid.UUID) (string, bool) {
	for name, g := range table {
		if g == id {
			return name, true
		}
	}
	return "", false
}

func guidFromWire(b []byte) uuid.UUID {
	var u uuid.UUID
	u[0], u[1], u[2], u[3] = b[3], b[2], b[1], b[0]
	u[4], u[5] = b[5], b[4]
	u[6], u[7] = b[7], b[6]
	copy(u[8:], b[8:16])
	return u
}

func guidToWire(u uuid.UUID) []byte {
	b := make([]byte, 16)
	b[0], b[1], b[2], b[3] = u[3], u[2], u[1], u[0]
	b[4], b[5] = u[5], u[4]
	b[6], b[7] = u[7], u[6]
	copy(b[8:], u[8:])
	return b
}
