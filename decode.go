package kv3

import (
	"io"
	"math"

	"github.com/google/uuid"
)

// Document is a decoded KV3 block together with its header metadata.
type Document struct {
	Version Version

	// Encoding is set for legacy and VKV\x03 documents only.
	Encoding uuid.UUID
	Format   uuid.UUID

	// EncodingName and FormatName are the textual identifiers legacy
	// documents resolve their GUIDs through.
	EncodingName string
	FormatName   string

	// Compression names the block compression: "none", "block", "lz4" or
	// "zstd".
	Compression string

	Root *Object
}

// A Decoder reads KV3 documents. The zero value is usable; NewDecoder
// fills in the defaults.
type Decoder struct {
	// MaxDepth bounds the nesting of objects and arrays.
	MaxDepth int

	// MaxElements bounds the elements of typed arrays whose shared type
	// has no payload (nulls, true, false, 0 and 1), summed over the
	// document. Such elements take no input, so the count alone decides
	// the allocation. Zero means 1<<20 plus 64 per byte of decoded data.
	MaxElements int
}

const (
	defaultMaxDepth        = 256
	defaultElements        = 1 << 20
	defaultElementsPerByte = 64
)

// NewDecoder returns a decoder with default limits.
func NewDecoder() *Decoder {
	return &Decoder{MaxDepth: defaultMaxDepth}
}

// Unmarshal decodes the KV3 block b and returns its root object.
func Unmarshal(b []byte) (*Object, error) {
	doc, err := NewDecoder().Decode(b)
	if err != nil {
		return nil, err
	}
	return doc.Root, nil
}

// DecodeFrom reads a block of size bytes from r and decodes it.
func (d *Decoder) DecodeFrom(r io.Reader, size int64) (*Document, error) {
	if size < 0 {
		return nil, corrupt(ErrTruncated, 0, size)
	}
	b, err := io.ReadAll(io.LimitReader(r, size))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) != size {
		return nil, corrupt(ErrTruncated, len(b), size)
	}
	return d.Decode(b)
}

// Decode parses the KV3 block b, which must span exactly the block: some
// encodings compute their compressed length from what is left of it.
func (d *Decoder) Decode(b []byte) (*Document, error) {
	c := newCursor(b, 0)

	magic, err := c.u32()
	if err != nil {
		return nil, err
	}

	doc := &Document{}

	switch magic {
	case magicV1:
		doc.Version = Version1
		err = d.readVersion1(c, doc)
	case magicV2:
		doc.Version = Version2
		err = d.readVersion2(c, doc)
	case magicV3:
		doc.Version = Version3
		err = d.readVersion3(c, doc)
	case magicV4:
		doc.Version = Version4
		err = d.readVersion3(c, doc)
	case magicV5:
		doc.Version = Version5
		err = d.readVersion3(c, doc)
	default:
		// Legacy blocks start directly with the encoding GUID.
		doc.Version = Version0
		c.off = 0
		err = d.readVersion0(c, doc)
	}

	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (d *Decoder) newBuilder(l layout, fc flagCodec, strs []string) *builder {
	depth := d.MaxDepth
	if depth <= 0 {
		depth = defaultMaxDepth
	}
	elements := d.MaxElements
	if elements <= 0 {
		elements = defaultElements + defaultElementsPerByte*l.remaining()
	}
	return &builder{l: l, flags: fc, strings: strs, maxDepth: depth, elements: elements}
}

func (d *Decoder) readVersion0(c *cursor, doc *Document) error {
	if err := readGUIDs(c, doc); err != nil {
		return err
	}

	name, ok := lookupName(legacyEncodings, doc.Encoding)
	if !ok {
		return corrupt(ErrUnrecognizedMagic, 0, 0)
	}
	doc.EncodingName = name
	doc.FormatName, _ = lookupName(legacyFormats, doc.Format)

	buf, base, err := inflateInterleaved(c, legacyEncodings[name], doc)
	if err != nil {
		return err
	}
	return d.readInterleaved(buf, base, doc)
}

func (d *Decoder) readVersion1(c *cursor, doc *Document) error {
	if err := readGUIDs(c, doc); err != nil {
		return err
	}

	buf, base, err := inflateInterleaved(c, doc.Encoding, doc)
	if err != nil {
		return err
	}
	return d.readInterleaved(buf, base, doc)
}

func readGUIDs(c *cursor, doc *Document) error {
	enc, err := c.guid()
	if err != nil {
		return err
	}
	format, err := c.guid()
	if err != nil {
		return err
	}
	doc.Encoding = guidFromWire(enc)
	doc.Format = guidFromWire(format)
	return nil
}

// inflateInterleaved returns the decompressed body of a legacy or VKV\x03
// block and the input offset error positions are relative to.
func inflateInterleaved(c *cursor, encoding uuid.UUID, doc *Document) ([]byte, int, error) {
	at := c.pos()

	switch encoding {
	case EncodingUncompressed:
		doc.Compression = "none"
		return c.b[c.off:], at, nil

	case EncodingBlockCompressed:
		doc.Compression = "block"
		buf, err := BlockCompressor{}.decompress(c.b[c.off:], 0)
		return buf, 0, err

	case EncodingLZ4:
		doc.Compression = "lz4"
		size, err := c.count()
		if err != nil {
			return nil, 0, err
		}
		buf, err := LZ4Compressor{}.decompress(c.b[c.off:], size)
		return buf, 0, err
	}

	return nil, 0, corrupt(ErrUnrecognizedEncoding, at-32, 0)
}

func (d *Decoder) readInterleaved(buf []byte, base int, doc *Document) error {
	c := newCursor(buf, base)

	n, err := c.count()
	if err != nil {
		return err
	}
	strs, err := c.readStrings(n)
	if err != nil {
		return err
	}

	root, err := d.newBuilder(&interleavedLayout{c: c}, legacyFlags, strs).root()
	if err != nil {
		return err
	}

	if err := checkTrailer(c, trailerInterleaved); err != nil {
		return err
	}

	doc.Root = root
	return nil
}

// checkTrailer reads the sentinel that closes a body. Running out of input
// is ErrTruncated, a wrong value ErrTrailerMismatch.
func checkTrailer(c *cursor, want uint32) error {
	at := c.pos()
	v, err := c.u32()
	if err != nil {
		return err
	}
	if v != want {
		return corrupt(ErrTrailerMismatch, at, int64(v))
	}
	return nil
}

// regions holds the value counts a partitioned header declares.
type regions struct {
	bytes1 int // bytes, not values
	bytes2 int
	bytes4 int
	bytes8 int
}

func readCounts(c *cursor, n int) ([]int, error) {
	counts := make([]int, n)
	for i := range counts {
		v, err := c.count()
		if err != nil {
			return nil, err
		}
		counts[i] = v
	}
	return counts, nil
}

func (d *Decoder) readVersion2(c *cursor, doc *Document) error {
	format, err := c.guid()
	if err != nil {
		return err
	}
	doc.Format = guidFromWire(format)

	methodAt := c.pos()
	method, err := c.u32()
	if err != nil {
		return err
	}
	counts, err := readCounts(c, 4)
	if err != nil {
		return err
	}
	r := regions{bytes1: counts[0], bytes4: counts[1], bytes8: counts[2]}
	size := counts[3]

	var (
		buf  []byte
		base int
	)
	switch method {
	case methodNone:
		doc.Compression = "none"
		base = c.pos()
		buf, err = c.take(size)
	case methodLZ4:
		doc.Compression = "lz4"
		buf, err = LZ4Compressor{}.decompress(c.b[c.off:], size)
	default:
		return corrupt(ErrUnknownCompression, methodAt, int64(method))
	}
	if err != nil {
		return err
	}

	// The last four bytes of the buffer are a terminator.
	if len(buf) < 4 {
		return corrupt(ErrTruncated, base, int64(len(buf)))
	}
	m := newCursor(buf[:len(buf)-4], base)

	l, n, err := partition(m, r)
	if err != nil {
		return err
	}
	strs, err := m.readStrings(n)
	if err != nil {
		return err
	}
	l.types = newCursor(m.b[m.off:], m.pos())

	root, err := d.newBuilder(l, legacyFlags, strs).root()
	if err != nil {
		return err
	}
	doc.Root = root
	return nil
}

// partition splits the fixed-width regions off the front of m, leaving m
// at the string table. It returns the string count.
func partition(m *cursor, r regions) (*partitionedLayout, int, error) {
	l := &partitionedLayout{}

	p, err := m.take(r.bytes1)
	if err != nil {
		return nil, 0, err
	}
	l.bytes1 = newCursor(p, m.pos()-len(p))

	// The integers follow 2-byte values without padding.
	if r.bytes2 > 0 {
		if err := m.align(2); err != nil {
			return nil, 0, err
		}
		p, err = m.take(r.bytes2 * 2)
		if err != nil {
			return nil, 0, err
		}
		l.bytes2 = newCursor(p, m.pos()-len(p))
	} else {
		l.bytes2 = newCursor(nil, m.pos())
		if err := m.align(4); err != nil {
			return nil, 0, err
		}
	}

	p, err = m.take(r.bytes4 * 4)
	if err != nil {
		return nil, 0, err
	}
	l.bytes4 = newCursor(p, m.pos()-len(p))

	// The first integer is the string count.
	n, err := l.bytes4.count()
	if err != nil {
		return nil, 0, err
	}

	if err := m.align(8); err != nil {
		return nil, 0, err
	}
	p, err = m.take(r.bytes8 * 8)
	if err != nil {
		return nil, 0, err
	}
	l.bytes8 = newCursor(p, m.pos()-len(p))

	return l, n, nil
}

// v3Header is the extended header of KV3\x02 and later.
type v3Header struct {
	method         uint32
	dictionaryID   uint16
	frameSize      uint16
	regions        regions
	stringsAndType int
	uncompressed   int
	compressed     int
	blockCount     int
	blockTotal     int
}

func readV3Header(c *cursor, version Version) (v3Header, error) {
	var h v3Header
	var err error

	if h.method, err = c.u32(); err != nil {
		return h, err
	}
	if h.dictionaryID, err = c.u16(); err != nil {
		return h, err
	}
	if h.frameSize, err = c.u16(); err != nil {
		return h, err
	}

	counts, err := readCounts(c, 4)
	if err != nil {
		return h, err
	}
	h.regions = regions{bytes1: counts[0], bytes4: counts[1], bytes8: counts[2]}
	h.stringsAndType = counts[3]

	// object and array counts, used by the engine to preallocate
	if err := c.skip(4); err != nil {
		return h, err
	}

	sizes, err := readCounts(c, 4)
	if err != nil {
		return h, err
	}
	h.uncompressed, h.compressed, h.blockCount, h.blockTotal = sizes[0], sizes[1], sizes[2], sizes[3]

	if version == Version5 {
		n, err := c.count()
		if err != nil {
			return h, err
		}
		h.regions.bytes2 = n
		// reserved
		if err := c.skip(4); err != nil {
			return h, err
		}
	}

	return h, nil
}

func (d *Decoder) readVersion3(c *cursor, doc *Document) error {
	format, err := c.guid()
	if err != nil {
		return err
	}
	doc.Format = guidFromWire(format)

	methodAt := c.pos()
	h, err := readV3Header(c, doc.Version)
	if err != nil {
		return err
	}

	var (
		buf  []byte
		base int
	)

	switch h.method {
	case methodNone:
		if h.dictionaryID != 0 || h.frameSize != 0 {
			return corrupt(ErrUnknownCompression, methodAt, int64(h.method))
		}
		doc.Compression = "none"
		base = c.pos()
		buf, err = c.take(h.compressed)

	case methodLZ4:
		if h.dictionaryID != 0 || h.frameSize != lz4FrameSize {
			return corrupt(ErrUnknownCompression, methodAt, int64(h.method))
		}
		doc.Compression = "lz4"
		var in []byte
		if in, err = c.take(h.compressed); err == nil {
			buf, err = LZ4Compressor{}.decompress(in, h.uncompressed)
		}

	case methodZstd:
		if h.dictionaryID != 0 || h.frameSize != 0 {
			return corrupt(ErrUnknownCompression, methodAt, int64(h.method))
		}
		doc.Compression = "zstd"
		if h.uncompressed > math.MaxInt32-h.blockTotal {
			return corrupt(ErrDecompression, methodAt, int64(h.blockTotal))
		}
		var in []byte
		if in, err = c.take(h.compressed); err == nil {
			buf, err = ZstdCompressor{}.decompress(in, h.uncompressed+h.blockTotal)
		}

	default:
		return corrupt(ErrUnknownCompression, methodAt, int64(h.method))
	}
	if err != nil {
		return err
	}

	m := newCursor(buf, base)

	l, n, err := partition(m, h.regions)
	if err != nil {
		return err
	}

	stringsAt := m.off
	strs, err := m.readStrings(n)
	if err != nil {
		return err
	}

	types, err := m.take(h.stringsAndType - (m.off - stringsAt))
	if err != nil {
		return err
	}
	l.types = newCursor(types, m.pos()-len(types))

	if err := readBlocks(c, m, l, h); err != nil {
		return err
	}

	fc := legacyFlags
	if doc.Version == Version5 {
		fc = linearFlags
	}

	root, err := d.newBuilder(l, fc, strs).root()
	if err != nil {
		return err
	}
	doc.Root = root
	return nil
}

// readBlocks reads the block length table that follows the type bytes and
// the trailer behind it, then locates the block data: after the main data
// in the input for raw documents, as chained LZ4 frames whose lengths
// follow the trailer for LZ4, and behind the trailer in the shared zstd
// frame for zstd.
func readBlocks(c, m *cursor, l *partitionedLayout, h v3Header) error {
	if h.blockCount > 0 {
		lens, err := readCounts(m, min(h.blockCount, m.remaining()/4+1))
		if err != nil {
			return err
		}
		l.blockLens = lens
	}

	if err := checkTrailer(m, trailerPartitioned); err != nil {
		return err
	}

	if h.blockCount == 0 {
		return nil
	}

	var (
		p   []byte
		err error
	)
	switch h.method {
	case methodNone:
		p, err = c.take(h.blockTotal)
	case methodLZ4:
		p, err = lz4DecodeFrames(c, m, h.blockTotal)
	case methodZstd:
		p, err = m.take(h.blockTotal)
	}
	if err != nil {
		return err
	}
	l.blocks = newCursor(p, 0)
	return nil
}
