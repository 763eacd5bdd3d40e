package kv3

// Magic numbers, read little-endian from the first four bytes of a block.
const (
	magicV1 = uint32(0x03564B56) // VKV\x03
	magicV2 = uint32(0x4B563301) // KV3\x01
	magicV3 = uint32(0x4B563302) // KV3\x02
	magicV4 = uint32(0x4B563303) // KV3\x03
	magicV5 = uint32(0x4B563304) // KV3\x04
)

// Version identifies the physical layout a document was read from or is
// written to.
type Version int

const (
	Version0 Version = iota // legacy, encoding and format GUIDs without a magic
	Version1                // VKV\x03, GUID keyed, interleaved values
	Version2                // KV3\x01, partitioned values
	Version3                // KV3\x02, partitioned values with blob blocks
	Version4                // KV3\x03
	Version5                // KV3\x04, adds a two-byte region and linear flags
)

func (v Version) String() string {
	switch v {
	case Version0:
		return "legacy"
	case Version1:
		return "VKV3"
	case Version2:
		return "KV3_01"
	case Version3:
		return "KV3_02"
	case Version4:
		return "KV3_03"
	case Version5:
		return "KV3_04"
	}
	return "unknown"
}

func (v Version) magic() uint32 {
	switch v {
	case Version1:
		return magicV1
	case Version2:
		return magicV2
	case Version3:
		return magicV3
	case Version4:
		return magicV4
	case Version5:
		return magicV5
	}
	return 0
}

// Trailers.
const (
	trailerInterleaved = uint32(0xFFFFFFFF)
	trailerPartitioned = uint32(0xFFEEDD00)
)

type wireType byte

const flagBit = byte(0x80)

const (
	typeNULL                   wireType = 1
	typeBOOLEAN                wireType = 2
	typeINT64                  wireType = 3
	typeUINT64                 wireType = 4
	typeDOUBLE                 wireType = 5
	typeSTRING                 wireType = 6
	typeBINARY_BLOB            wireType = 7
	typeARRAY                  wireType = 8
	typeOBJECT                 wireType = 9
	typeARRAY_TYPED            wireType = 10
	typeINT32                  wireType = 11
	typeUINT32                 wireType = 12
	typeBOOLEAN_TRUE           wireType = 13
	typeBOOLEAN_FALSE          wireType = 14
	typeINT64_ZERO             wireType = 15
	typeINT64_ONE              wireType = 16
	typeDOUBLE_ZERO            wireType = 17
	typeDOUBLE_ONE             wireType = 18
	typeFLOAT                  wireType = 19
	typeINT16                  wireType = 20
	typeUINT16                 wireType = 21
	typeINT32_AS_BYTE          wireType = 23
	typeARRAY_TYPE_BYTE_LENGTH wireType = 24
)

var wireTypeNames = map[wireType]string{
	typeNULL:                   "NULL",
	typeBOOLEAN:                "BOOLEAN",
	typeINT64:                  "INT64",
	typeUINT64:                 "UINT64",
	typeDOUBLE:                 "DOUBLE",
	typeSTRING:                 "STRING",
	typeBINARY_BLOB:            "BINARY_BLOB",
	typeARRAY:                  "ARRAY",
	typeOBJECT:                 "OBJECT",
	typeARRAY_TYPED:            "ARRAY_TYPED",
	typeINT32:                  "INT32",
	typeUINT32:                 "UINT32",
	typeBOOLEAN_TRUE:           "BOOLEAN_TRUE",
	typeBOOLEAN_FALSE:          "BOOLEAN_FALSE",
	typeINT64_ZERO:             "INT64_ZERO",
	typeINT64_ONE:              "INT64_ONE",
	typeDOUBLE_ZERO:            "DOUBLE_ZERO",
	typeDOUBLE_ONE:             "DOUBLE_ONE",
	typeFLOAT:                  "FLOAT",
	typeINT16:                  "INT16",
	typeUINT16:                 "UINT16",
	typeINT32_AS_BYTE:          "INT32_AS_BYTE",
	typeARRAY_TYPE_BYTE_LENGTH: "ARRAY_TYPE_BYTE_LENGTH",
}

func (t wireType) String() string {
	if s, ok := wireTypeNames[t]; ok {
		return s
	}
	return "UNKNOWN"
}

// lz4FrameSize is the only chained LZ4 frame size seen in blocked documents.
const lz4FrameSize = 16384

// Compression method codes used by the KV3\x01 and later headers.
const (
	methodNone = 0
	methodLZ4  = 1
	methodZstd = 2
)
