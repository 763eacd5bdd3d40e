package kv3

// flagCodec maps between flag bytes on the wire and Flag values. Documents
// before KV3\x04 store single bits of a legacy bitmask; KV3\x04 stores the
// Flag ordinal directly.
type flagCodec struct {
	typeMask byte
	linear   bool
}

var (
	legacyFlags = flagCodec{typeMask: 0x7F}
	linearFlags = flagCodec{typeMask: 0x3F, linear: true}
)

// Only one bit is ever set in well-formed documents, so the legacy byte
// is matched as a value rather than decoded as a mask.
var legacyFlagBytes = map[byte]Flag{
	0:  FlagNone,
	1:  FlagResource,
	2:  FlagResourceName,
	8:  FlagPanorama,
	16: FlagSoundEvent,
	32: FlagSubClass,
}

var legacyFlagCodes = [...]byte{
	FlagNone:         0,
	FlagResource:     1,
	FlagResourceName: 2,
	FlagPanorama:     8,
	FlagSoundEvent:   16,
	FlagSubClass:     32,
}

func (fc flagCodec) decodeFlag(b byte) (Flag, bool) {
	if fc.linear {
		if b > byte(FlagSubClass) {
			return 0, false
		}
		return Flag(b), true
	}
	f, ok := legacyFlagBytes[b]
	return f, ok
}

func (fc flagCodec) encodeFlag(f Flag) byte {
	if fc.linear {
		return byte(f)
	}
	return legacyFlagCodes[f]
}

// readTag reads a type byte and, when its high bit is set, the flag byte
// that follows it from the same stream.
func (fc flagCodec) readTag(l layout) (wireType, Flag, error) {
	b, err := l.tag()
	if err != nil {
		return 0, FlagNone, err
	}
	if b&flagBit == 0 {
		return wireType(b), FlagNone, nil
	}
	fb, err := l.tag()
	if err != nil {
		return 0, FlagNone, err
	}
	f, ok := fc.decodeFlag(fb)
	if !ok {
		return 0, FlagNone, corrupt(ErrUnexpectedFlag, l.pos(), int64(fb))
	}
	return wireType(b & fc.typeMask), f, nil
}

// appendTag is the inverse of readTag.
func (fc flagCodec) appendTag(dst []byte, t wireType, f Flag) []byte {
	if f == FlagNone {
		return append(dst, byte(t))
	}
	return append(dst, byte(t)|flagBit, fc.encodeFlag(f))
}

// canonicalKind collapses compact wire encodings onto the kind they carry.
// implicit reports whether t carries its value in the tag alone.
func (t wireType) implicit() bool {
	switch t {
	case typeNULL, typeBOOLEAN_TRUE, typeBOOLEAN_FALSE,
		typeINT64_ZERO, typeINT64_ONE, typeDOUBLE_ZERO, typeDOUBLE_ONE:
		return true
	}
	return false
}

func canonicalKind(t wireType) (Kind, bool) {
	switch t {
	case typeNULL:
		return KindNull, true
	case typeBOOLEAN, typeBOOLEAN_TRUE, typeBOOLEAN_FALSE:
		return KindBoolean, true
	case typeINT16:
		return KindInt16, true
	case typeUINT16:
		return KindUInt16, true
	case typeINT32, typeINT32_AS_BYTE:
		return KindInt32, true
	case typeUINT32:
		return KindUInt32, true
	case typeINT64, typeINT64_ZERO, typeINT64_ONE:
		return KindInt64, true
	case typeUINT64:
		return KindUInt64, true
	case typeFLOAT:
		return KindFloat, true
	case typeDOUBLE, typeDOUBLE_ZERO, typeDOUBLE_ONE:
		return KindDouble, true
	case typeSTRING:
		return KindString, true
	case typeBINARY_BLOB:
		return KindBinaryBlob, true
	case typeARRAY, typeARRAY_TYPED, typeARRAY_TYPE_BYTE_LENGTH:
		return KindArray, true
	case typeOBJECT:
		return KindCollection, true
	}
	return 0, false
}

// wireTypeOf picks the tag the encoder writes for v, preferring the
// compact forms that need no payload.
func wireTypeOf(v Value) (wireType, bool) {
	switch v.Kind {
	case KindNull:
		return typeNULL, true
	case KindBoolean:
		if v.Bool() {
			return typeBOOLEAN_TRUE, true
		}
		return typeBOOLEAN_FALSE, true
	case KindInt16:
		return typeINT16, true
	case KindUInt16:
		return typeUINT16, true
	case KindInt32:
		return typeINT32, true
	case KindUInt32:
		return typeUINT32, true
	case KindInt64:
		switch v.Int() {
		case 0:
			return typeINT64_ZERO, true
		case 1:
			return typeINT64_ONE, true
		}
		return typeINT64, true
	case KindUInt64:
		return typeUINT64, true
	case KindFloat:
		return typeFLOAT, true
	case KindDouble:
		// -0.0 keeps its payload so the sign survives.
		switch {
		case v.u == 0:
			return typeDOUBLE_ZERO, true
		case v.Float() == 1:
			return typeDOUBLE_ONE, true
		}
		return typeDOUBLE, true
	case KindString:
		return typeSTRING, true
	case KindBinaryBlob:
		return typeBINARY_BLOB, true
	case KindArray:
		return typeARRAY, true
	case KindCollection:
		return typeOBJECT, true
	}
	return 0, false
}
