package kv3

import (
	"bytes"
	"fmt"
	"math"
)

// Kind is the canonical type of a Value. Compact wire encodings such as
// BOOLEAN_TRUE or INT64_ZERO never surface here.
type Kind uint8

const (
	KindNull Kind = iota
	KindBoolean
	KindInt16
	KindUInt16
	KindInt32
	KindUInt32
	KindInt64
	KindUInt64
	KindFloat
	KindDouble
	KindString
	KindBinaryBlob
	KindArray
	KindCollection
)

var kindNames = [...]string{
	KindNull:       "Null",
	KindBoolean:    "Boolean",
	KindInt16:      "Int16",
	KindUInt16:     "UInt16",
	KindInt32:      "Int32",
	KindUInt32:     "UInt32",
	KindInt64:      "Int64",
	KindUInt64:     "UInt64",
	KindFloat:      "Float",
	KindDouble:     "Double",
	KindString:     "String",
	KindBinaryBlob: "BinaryBlob",
	KindArray:      "Array",
	KindCollection: "Collection",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Flag annotates how a value is meant to be interpreted downstream.
type Flag uint8

const (
	FlagNone Flag = iota
	FlagResource
	FlagResourceName
	FlagPanorama
	FlagSoundEvent
	FlagSubClass
)

var flagNames = [...]string{
	FlagNone:         "",
	FlagResource:     "resource",
	FlagResourceName: "resource_name",
	FlagPanorama:     "panorama",
	FlagSoundEvent:   "soundevent",
	FlagSubClass:     "subclass",
}

func (f Flag) String() string {
	if int(f) < len(flagNames) {
		return flagNames[f]
	}
	return fmt.Sprintf("Flag(%d)", f)
}

// Value is one node of a KV3 tree.
type Value struct {
	Kind Kind
	Flag Flag

	u   uint64 // integers, booleans and float bits
	s   string
	b   []byte
	obj *Object
}

func Null() Value { return Value{Kind: KindNull} }
func Int16(v int16) Value { return Value{Kind: KindInt16, u: uint64(int64(v))} }
func UInt16(v uint16) Value { return Value{Kind: KindUInt16, u: uint64(v)} }
func Int32(v int32) Value { return Value{Kind: KindInt32, u: uint64(int64(v))} }
func UInt32(v uint32) Value { return Value{Kind: KindUInt32, u: uint64(v)} }
func Int64(v int64) Value { return Value{Kind: KindInt64, u: uint64(v)} }
func UInt64(v uint64) Value { return Value{Kind: KindUInt64, u: v} }
func Float(v float32) Value { return Value{Kind: KindFloat, u: uint64(math.Float32bits(v))} }
func Double(v float64) Value { return Value{Kind: KindDouble, u: math.Float64bits(v)} }
func String(v string) Value { return Value{Kind: KindString, s: v} }
func BinaryBlob(v []byte) Value { return Value{Kind: KindBinaryBlob, b: v} }

func Bool(v bool) Value {
	if v {
		return Value{Kind: KindBoolean, u: 1}
	}
	return Value{Kind: KindBoolean}
}

// ObjectValue wraps o as an Array or Collection value depending on o.IsArray.
func ObjectValue(o *Object) Value {
	if o.IsArray {
		return Value{Kind: KindArray, obj: o}
	}
	return Value{Kind: KindCollection, obj: o}
}

// WithFlag returns a copy of v carrying f.
func (v Value) WithFlag(f Flag) Value {
	v.Flag = f
	return v
}

func (v Value) IsNull() bool { return v.Kind == KindNull }

// Bool reports the value of a Boolean.
func (v Value) Bool() bool { return v.Kind == KindBoolean && v.u != 0 }

// Int returns any signed or unsigned integer kind as an int64.
func (v Value) Int() int64 {
	switch v.Kind {
	case KindInt16, KindInt32, KindInt64, KindUInt16, KindUInt32, KindUInt64:
		return int64(v.u)
	case KindBoolean:
		return int64(v.u)
	}
	return 0
}

// Uint returns any integer kind as a uint64.
func (v Value) Uint() uint64 {
	switch v.Kind {
	case KindInt16, KindInt32, KindInt64, KindUInt16, KindUInt32, KindUInt64, KindBoolean:
		return v.u
	}
	return 0
}

// Float returns Float and Double values as a float64; integers convert.
func (v Value) Float() float64 {
	switch v.Kind {
	case KindFloat:
		return float64(math.Float32frombits(uint32(v.u)))
	case KindDouble:
		return math.Float64frombits(v.u)
	case KindInt16, KindInt32, KindInt64:
		return float64(int64(v.u))
	case KindUInt16, KindUInt32, KindUInt64:
		return float64(v.u)
	}
	return 0
}

func (v Value) isInteger() bool {
	switch v.Kind {
	case KindInt16, KindInt32, KindInt64, KindUInt16, KindUInt32, KindUInt64:
		return true
	}
	return false
}

func (v Value) isUnsigned() bool {
	return v.Kind == KindUInt16 || v.Kind == KindUInt32 || v.Kind == KindUInt64
}

func (v Value) Str() string { return v.s }

func (v Value) Bytes() []byte { return v.b }

// Object returns the Array or Collection held by v, or nil.
func (v Value) Object() *Object { return v.obj }

// Equal reports structural equality: kinds, flags, payloads and, for
// containers, the whole subtree.
func (v Value) Equal(w Value) bool {
	if v.Kind != w.Kind || v.Flag != w.Flag {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindString:
		return v.s == w.s
	case KindBinaryBlob:
		return bytes.Equal(v.b, w.b)
	case KindArray, KindCollection:
		return v.obj.Equal(w.obj)
	}
	return v.u == w.u
}

func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindBoolean:
		return fmt.Sprint(v.Bool())
	case KindInt16, KindInt32, KindInt64:
		return fmt.Sprint(v.Int())
	case KindUInt16, KindUInt32, KindUInt64:
		return fmt.Sprint(v.Uint())
	case KindFloat, KindDouble:
		return fmt.Sprint(v.Float())
	case KindString:
		return v.s
	case KindBinaryBlob:
		return fmt.Sprintf("blob[%d]", len(v.b))
	case KindArray:
		return fmt.Sprintf("array[%d]", v.obj.Len())
	case KindCollection:
		return fmt.Sprintf("object[%d]", v.obj.Len())
	}
	return v.Kind.String()
}

// Interface returns v as a plain Go value: nil, bool, the sized integer and
// float types, string, []byte, []any for arrays and map[string]any for
// collections. Flags are dropped.
func (v Value) Interface() any {
	return v.iface(0)
}

func (v Value) iface(depth int) any {
	switch v.Kind {
	case KindBoolean:
		return v.Bool()
	case KindInt16:
		return int16(v.u)
	case KindUInt16:
		return uint16(v.u)
	case KindInt32:
		return int32(v.u)
	case KindUInt32:
		return uint32(v.u)
	case KindInt64:
		return int64(v.u)
	case KindUInt64:
		return v.u
	case KindFloat:
		return math.Float32frombits(uint32(v.u))
	case KindDouble:
		return math.Float64frombits(v.u)
	case KindString:
		return v.s
	case KindBinaryBlob:
		return v.b
	}

	if v.obj == nil || depth > defaultMaxDepth {
		return nil
	}

	switch v.Kind {
	case KindArray:
		a := make([]any, 0, v.obj.Len())
		for _, e := range v.obj.Values() {
			a = append(a, e.iface(depth+1))
		}
		return a
	case KindCollection:
		m := make(map[string]any, v.obj.Len())
		for _, p := range v.obj.Properties() {
			m[p.Name] = p.Value.iface(depth + 1)
		}
		return m
	}
	return nil
}
