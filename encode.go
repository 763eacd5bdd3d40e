package kv3

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/google/uuid"
)

// compressor is a codec an Encoder can apply to a document body.
type compressor interface {
	compress(b []byte) ([]byte, error)
	decompress(b []byte, size int) ([]byte, error)
}

// An Encoder writes KV3 documents.
type Encoder struct {
	// Version selects the container: Version1 (VKV\x03), Version2
	// (KV3\x01) or Version5 (KV3\x04). The zero value means Version2.
	// Version2 documents holding 16-bit integers are written as Version5,
	// the first version with a region for them.
	Version Version

	// Compression is nil for raw output, or one of LZ4Compressor,
	// BlockCompressor (Version1 only) or ZstdCompressor (Version5 only).
	Compression compressor

	// Format is written as the format GUID. Zero means FormatGeneric.
	Format uuid.UUID

	// TypedArrays writes arrays whose elements share one type tag with the
	// tag stored once.
	TypedArrays bool
}

// NewEncoder returns an encoder for raw KV3\x01 documents.
func NewEncoder() *Encoder {
	return &Encoder{Version: Version2, Format: FormatGeneric}
}

// Marshal returns the default KV3 encoding of root.
func Marshal(root *Object) ([]byte, error) {
	return NewEncoder().Marshal(root)
}

// Encode writes the KV3 encoding of root to w.
func (e *Encoder) Encode(w io.Writer, root *Object) error {
	b, err := e.Marshal(root)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// Marshal returns the KV3 encoding of root, which must be a collection.
func (e *Encoder) Marshal(root *Object) ([]byte, error) {
	if root == nil || root.IsArray {
		return nil, ErrBadRoot
	}

	format := e.Format
	if format == uuid.Nil {
		format = FormatGeneric
	}

	switch e.Version {
	case Version1:
		return e.marshalInterleaved(root, format)

	case Version0, Version2:
		s := &partitionedSink{}
		z, err := e.serialize(root, s, legacyFlags)
		if err != nil {
			return nil, err
		}
		if len(s.bytes2) == 0 {
			return e.marshalPartitioned(z, s, format)
		}
		return e.marshalBlocked(root, format)

	case Version5:
		return e.marshalBlocked(root, format)
	}

	return nil, fmt.Errorf("%w: cannot write %v documents", ErrUnsupportedValue, e.Version)
}

func (e *Encoder) serialize(root *Object, s sink, fc flagCodec) (*serializer, error) {
	z := &serializer{s: s, fc: fc, typed: e.TypedArrays}
	if err := z.root(root); err != nil {
		return nil, err
	}
	return z, nil
}

// VKV\x03: magic, encoding and format GUIDs, then the body, compressed
// according to the encoding.
func (e *Encoder) marshalInterleaved(root *Object, format uuid.UUID) ([]byte, error) {
	var encoding uuid.UUID
	switch e.Compression.(type) {
	case nil:
		encoding = EncodingUncompressed
	case BlockCompressor, *BlockCompressor:
		encoding = EncodingBlockCompressed
	case LZ4Compressor, *LZ4Compressor:
		encoding = EncodingLZ4
	default:
		return nil, fmt.Errorf("%w: %T in VKV\\x03 documents", ErrUnknownCompression, e.Compression)
	}

	s := &interleavedSink{}
	z, err := e.serialize(root, s, legacyFlags)
	if err != nil {
		return nil, err
	}

	body := binary.LittleEndian.AppendUint32(nil, uint32(len(z.strs.list)))
	body = z.strs.append(body)
	body = append(body, s.body...)
	body = binary.LittleEndian.AppendUint32(body, trailerInterleaved)

	b := binary.LittleEndian.AppendUint32(nil, Version1.magic())
	b = append(b, guidToWire(encoding)...)
	b = append(b, guidToWire(format)...)

	switch encoding {
	case EncodingUncompressed:
		return append(b, body...), nil
	case EncodingLZ4:
		b = binary.LittleEndian.AppendUint32(b, uint32(len(body)))
	}

	packed, err := e.Compression.compress(body)
	if err != nil {
		return nil, err
	}
	return append(b, packed...), nil
}

// assemble lays the regions of s out the way the partitioned readers
// expect, up to and including the type bytes. It returns the buffer and
// the length of the strings and types together.
func assemble(s *partitionedSink, strs *stringTable) ([]byte, int) {
	b := make([]byte, 0, len(s.bytes1)+len(s.bytes2)+len(s.bytes4)+len(s.bytes8)+len(s.types)+16)

	b = append(b, s.bytes1...)
	if len(s.bytes2) > 0 {
		b = pad(b, 2)
		b = append(b, s.bytes2...)
	} else {
		b = pad(b, 4)
	}
	b = append(b, s.bytes4...)
	// Aligned even when there are no 8-byte values.
	b = pad(b, 8)
	b = append(b, s.bytes8...)

	start := len(b)
	b = strs.append(b)
	b = append(b, s.types...)

	return b, len(b) - start
}

func pad(b []byte, n int) []byte {
	for len(b)%n != 0 {
		b = append(b, 0)
	}
	return b
}

// KV3\x01: format GUID, method and region counts, the uncompressed size
// and the body.
func (e *Encoder) marshalPartitioned(z *serializer, s *partitionedSink, format uuid.UUID) ([]byte, error) {
	var method uint32
	switch e.Compression.(type) {
	case nil:
		method = methodNone
	case LZ4Compressor, *LZ4Compressor:
		method = methodLZ4
	default:
		return nil, fmt.Errorf("%w: %T in KV3\\x01 documents", ErrUnknownCompression, e.Compression)
	}

	s.setStringCount(len(z.strs.list))
	body, _ := assemble(s, &z.strs)
	body = binary.LittleEndian.AppendUint32(body, trailerPartitioned)

	b := binary.LittleEndian.AppendUint32(nil, Version2.magic())
	b = append(b, guidToWire(format)...)
	for _, v := range []int{int(method), len(s.bytes1), len(s.bytes4) / 4, len(s.bytes8) / 8, len(body)} {
		b = binary.LittleEndian.AppendUint32(b, uint32(v))
	}

	if method == methodNone {
		return append(b, body...), nil
	}
	packed, err := e.Compression.compress(body)
	if err != nil {
		return nil, err
	}
	return append(b, packed...), nil
}

// KV3\x04: the extended header, the main buffer, then the binary blobs
// as blocks.
func (e *Encoder) marshalBlocked(root *Object, format uuid.UUID) ([]byte, error) {
	var (
		method    uint32
		frameSize uint16
	)
	switch e.Compression.(type) {
	case nil:
		method = methodNone
	case LZ4Compressor, *LZ4Compressor:
		method, frameSize = methodLZ4, lz4FrameSize
	case ZstdCompressor, *ZstdCompressor:
		method = methodZstd
	default:
		return nil, fmt.Errorf("%w: %T in KV3\\x04 documents", ErrUnknownCompression, e.Compression)
	}

	s := &partitionedSink{blocked: true}
	z, err := e.serialize(root, s, linearFlags)
	if err != nil {
		return nil, err
	}
	s.setStringCount(len(z.strs.list))

	main, stringsAndTypes := assemble(s, &z.strs)
	for _, n := range s.blockLens {
		main = binary.LittleEndian.AppendUint32(main, uint32(n))
	}
	main = binary.LittleEndian.AppendUint32(main, trailerPartitioned)

	var frames []byte
	if method == methodLZ4 && len(s.blockLens) > 0 {
		var lens []uint16
		if frames, lens, err = lz4EncodeFrames(s.blocks); err != nil {
			return nil, err
		}
		for _, n := range lens {
			main = binary.LittleEndian.AppendUint16(main, n)
		}
	}

	var payload []byte
	switch method {
	case methodNone:
		payload = main
	case methodLZ4:
		payload, err = e.Compression.compress(main)
	case methodZstd:
		all := make([]byte, 0, len(main)+len(s.blocks))
		payload, err = e.Compression.compress(append(append(all, main...), s.blocks...))
	}
	if err != nil {
		return nil, err
	}

	b := binary.LittleEndian.AppendUint32(nil, Version5.magic())
	b = append(b, guidToWire(format)...)
	b = binary.LittleEndian.AppendUint32(b, method)
	b = binary.LittleEndian.AppendUint16(b, 0) // dictionary id
	b = binary.LittleEndian.AppendUint16(b, frameSize)
	for _, v := range []int{len(s.bytes1), len(s.bytes4) / 4, len(s.bytes8) / 8, stringsAndTypes} {
		b = binary.LittleEndian.AppendUint32(b, uint32(v))
	}
	b = binary.LittleEndian.AppendUint16(b, uint16(min(z.objects, math.MaxUint16)))
	b = binary.LittleEndian.AppendUint16(b, uint16(min(z.arrays, math.MaxUint16)))
	for _, v := range []int{len(main), len(payload), len(s.blockLens), len(s.blocks), len(s.bytes2) / 2, 0} {
		b = binary.LittleEndian.AppendUint32(b, uint32(v))
	}

	b = append(b, payload...)

	switch method {
	case methodNone:
		if len(s.blockLens) > 0 {
			b = append(b, s.blocks...)
			b = binary.LittleEndian.AppendUint32(b, trailerPartitioned)
		}
	case methodLZ4:
		b = append(b, frames...)
	}

	return b, nil
}

// stringTable interns the strings a document refers to by index. The
// empty string is never stored; it is written as index -1.
type stringTable struct {
	list []string
	ids  map[string]uint32
}

const emptyStringID = math.MaxUint32

func (t *stringTable) id(s string) uint32 {
	if s == "" {
		return emptyStringID
	}
	if id, ok := t.ids[s]; ok {
		return id
	}
	if t.ids == nil {
		t.ids = make(map[string]uint32)
	}
	id := uint32(len(t.list))
	t.list = append(t.list, s)
	t.ids[s] = id
	return id
}

// append writes the strings null-terminated, in index order.
func (t *stringTable) append(b []byte) []byte {
	for _, s := range t.list {
		b = append(b, s...)
		b = append(b, 0)
	}
	return b
}

// sink is the writing side of layout.
type sink interface {
	tag(p []byte)
	put1(v byte)
	put2(v uint16)
	put4(v uint32)
	put8(v uint64)
	blob(p []byte)
}

type interleavedSink struct {
	body []byte
}

func (s *interleavedSink) tag(p []byte)  { s.body = append(s.body, p...) }
func (s *interleavedSink) put1(v byte)   { s.body = append(s.body, v) }
func (s *interleavedSink) put2(v uint16) { s.body = binary.LittleEndian.AppendUint16(s.body, v) }
func (s *interleavedSink) put4(v uint32) { s.body = binary.LittleEndian.AppendUint32(s.body, v) }
func (s *interleavedSink) put8(v uint64) { s.body = binary.LittleEndian.AppendUint64(s.body, v) }

func (s *interleavedSink) blob(p []byte) {
	s.put4(uint32(len(p)))
	s.body = append(s.body, p...)
}

// partitionedSink collects each value width in its own region. The first
// slot of bytes4 is reserved for the string count.
type partitionedSink struct {
	bytes1, bytes2, bytes4, bytes8, types []byte

	// blocked sinks store binary blobs as blocks instead of in bytes1.
	blocked   bool
	blocks    []byte
	blockLens []int
}

func (s *partitionedSink) tag(p []byte) { s.types = append(s.types, p...) }
func (s *partitionedSink) put1(v byte)  { s.bytes1 = append(s.bytes1, v) }
func (s *partitionedSink) put2(v uint16) {
	s.bytes2 = binary.LittleEndian.AppendUint16(s.bytes2, v)
}

func (s *partitionedSink) put4(v uint32) {
	if s.bytes4 == nil {
		s.bytes4 = make([]byte, 4, 64)
	}
	s.bytes4 = binary.LittleEndian.AppendUint32(s.bytes4, v)
}

func (s *partitionedSink) put8(v uint64) {
	s.bytes8 = binary.LittleEndian.AppendUint64(s.bytes8, v)
}

func (s *partitionedSink) blob(p []byte) {
	if s.blocked {
		s.blockLens = append(s.blockLens, len(p))
		s.blocks = append(s.blocks, p...)
		return
	}
	s.put4(uint32(len(p)))
	s.bytes1 = append(s.bytes1, p...)
}

func (s *partitionedSink) setStringCount(n int) {
	if s.bytes4 == nil {
		s.bytes4 = make([]byte, 4)
	}
	binary.LittleEndian.PutUint32(s.bytes4, uint32(n))
}

// serializer walks a tree and writes it to a sink, interning strings as it
// goes.
type serializer struct {
	s     sink
	fc    flagCodec
	typed bool
	strs  stringTable

	depth   int
	objects int
	arrays  int
	scratch []byte
}

func (z *serializer) root(o *Object) error {
	z.tag(typeOBJECT, FlagNone)
	return z.collection(o)
}

func (z *serializer) tag(t wireType, f Flag) {
	z.scratch = z.fc.appendTag(z.scratch[:0], t, f)
	z.s.tag(z.scratch)
}

func (z *serializer) enter() error {
	z.depth++
	if z.depth > defaultMaxDepth {
		return fmt.Errorf("%w: more than %d levels", ErrTooDeep, defaultMaxDepth)
	}
	return nil
}

func (z *serializer) collection(o *Object) error {
	if err := z.enter(); err != nil {
		return err
	}
	z.objects++
	z.s.put4(uint32(o.Len()))
	for _, p := range o.Properties() {
		z.s.put4(z.strs.id(p.Name))
		if err := z.value(p.Value); err != nil {
			return withField(err, p.Name)
		}
	}
	z.depth--
	return nil
}

func (z *serializer) array(o *Object) error {
	if err := z.enter(); err != nil {
		return err
	}
	z.arrays++
	z.s.put4(uint32(o.Len()))
	for _, p := range o.Properties() {
		if err := z.value(p.Value); err != nil {
			return err
		}
	}
	z.depth--
	return nil
}

// elementTag reports the tag every element of o is written with, if they
// all share one.
func elementTag(o *Object) (wireType, Flag, bool) {
	if o.Len() == 0 {
		return 0, FlagNone, false
	}
	first := o.Index(0)
	t, ok := wireTypeOf(first)
	if !ok {
		return 0, FlagNone, false
	}
	for _, p := range o.Properties()[1:] {
		u, ok := wireTypeOf(p.Value)
		if !ok || u != t || p.Value.Flag != first.Flag {
			return 0, FlagNone, false
		}
	}
	return t, first.Flag, true
}

func (z *serializer) typedArray(o *Object, arrayFlag Flag, t wireType, f Flag) error {
	if err := z.enter(); err != nil {
		return err
	}
	z.arrays++

	// Only the linear-flag format stores short lengths in a single byte.
	if z.fc.linear && o.Len() <= math.MaxUint8 {
		z.tag(typeARRAY_TYPE_BYTE_LENGTH, arrayFlag)
		z.s.put1(byte(o.Len()))
	} else {
		z.tag(typeARRAY_TYPED, arrayFlag)
		z.s.put4(uint32(o.Len()))
	}
	z.tag(t, f)

	for _, p := range o.Properties() {
		if err := z.payload(t, p.Value); err != nil {
			return err
		}
	}
	z.depth--
	return nil
}

func (z *serializer) value(v Value) error {
	t, ok := wireTypeOf(v)
	if !ok {
		return fmt.Errorf("%w: kind %v", ErrUnsupportedValue, v.Kind)
	}
	if (t == typeARRAY || t == typeOBJECT) && v.obj == nil {
		return fmt.Errorf("%w: %v without a container", ErrUnsupportedValue, v.Kind)
	}

	if t == typeARRAY && z.typed {
		if et, ef, ok := elementTag(v.obj); ok {
			return z.typedArray(v.obj, v.Flag, et, ef)
		}
	}

	z.tag(t, v.Flag)
	return z.payload(t, v)
}

// payload writes the data of v, already tagged as t.
func (z *serializer) payload(t wireType, v Value) error {
	switch t {
	case typeNULL, typeBOOLEAN_TRUE, typeBOOLEAN_FALSE,
		typeINT64_ZERO, typeINT64_ONE, typeDOUBLE_ZERO, typeDOUBLE_ONE:
	case typeINT16, typeUINT16:
		z.s.put2(uint16(v.u))
	case typeINT32, typeUINT32, typeFLOAT:
		z.s.put4(uint32(v.u))
	case typeINT64, typeUINT64, typeDOUBLE:
		z.s.put8(v.u)
	case typeSTRING:
		z.s.put4(z.strs.id(v.s))
	case typeBINARY_BLOB:
		z.s.blob(v.b)
	case typeARRAY:
		if v.obj == nil {
			return fmt.Errorf("%w: array without a container", ErrUnsupportedValue)
		}
		return z.array(v.obj)
	case typeOBJECT:
		if v.obj == nil {
			return fmt.Errorf("%w: collection without a container", ErrUnsupportedValue)
		}
		return z.collection(v.obj)
	default:
		return fmt.Errorf("%w: wire type %v", ErrUnsupportedValue, t)
	}
	return nil
}
