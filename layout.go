package kv3

import (
	"bytes"
	"encoding/binary"
)

// cursor reads little-endian values from a byte slice. base is added to
// offsets reported in errors so they point into the enclosing buffer.
type cursor struct {
	b    []byte
	off  int
	base int
}

func newCursor(b []byte, base int) *cursor {
	return &cursor{b: b, base: base}
}

func (c *cursor) pos() int { return c.base + c.off }

func (c *cursor) remaining() int { return len(c.b) - c.off }

func (c *cursor) take(n int) ([]byte, error) {
	if n < 0 || n > len(c.b)-c.off {
		return nil, corrupt(ErrTruncated, c.pos(), int64(n))
	}
	p := c.b[c.off : c.off+n]
	c.off += n
	return p, nil
}

func (c *cursor) skip(n int) error {
	_, err := c.take(n)
	return err
}

// align advances the cursor to the next multiple of n, measured from the
// start of its slice.
func (c *cursor) align(n int) error {
	if r := c.off % n; r != 0 {
		return c.skip(n - r)
	}
	return nil
}

func (c *cursor) u8() (byte, error) {
	if c.off >= len(c.b) {
		return 0, corrupt(ErrTruncated, c.pos(), 1)
	}
	v := c.b[c.off]
	c.off++
	return v, nil
}

func (c *cursor) u16() (uint16, error) {
	p, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(p), nil
}

func (c *cursor) u32() (uint32, error) {
	p, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(p), nil
}

func (c *cursor) u64() (uint64, error) {
	p, err := c.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(p), nil
}

// count reads a signed 32-bit element count and rejects negative values.
func (c *cursor) count() (int, error) {
	off := c.pos()
	v, err := c.u32()
	if err != nil {
		return 0, err
	}
	if int32(v) < 0 {
		return 0, corrupt(ErrTruncated, off, int64(int32(v)))
	}
	return int(int32(v)), nil
}

func (c *cursor) guid() ([]byte, error) {
	return c.take(16)
}

// cstring reads a null-terminated UTF-8 string.
func (c *cursor) cstring() (string, error) {
	i := bytes.IndexByte(c.b[c.off:], 0)
	if i < 0 {
		return "", corrupt(ErrTruncated, c.pos(), 0)
	}
	s := string(c.b[c.off : c.off+i])
	c.off += i + 1
	return s, nil
}

// readStrings reads n null-terminated strings. The preallocation is bounded
// by the bytes left so a hostile count cannot force a huge allocation.
func (c *cursor) readStrings(n int) ([]string, error) {
	if n < 0 {
		return nil, corrupt(ErrTruncated, c.pos(), int64(n))
	}
	strs := make([]string, 0, min(n, c.remaining()))
	for i := 0; i < n; i++ {
		s, err := c.cstring()
		if err != nil {
			return nil, err
		}
		strs = append(strs, s)
	}
	return strs, nil
}

// layout hides how a document's values are laid out from the tree builder.
// Each method consumes the next value of its width in document order.
type layout interface {
	// tag reads the next type byte.
	tag() (byte, error)
	// read1 reads a one-byte value: booleans, byte-sized integers and
	// byte-sized typed array lengths.
	read1() (byte, error)
	read2() (uint16, error)
	read4() (uint32, error)
	read8() (uint64, error)
	// count reads a non-negative element count from the 4-byte stream.
	count() (int, error)
	blob() ([]byte, error)
	// pos is the main stream offset, used in diagnostics.
	pos() int
	// remaining bounds preallocation for counts read off the wire.
	remaining() int
}

// interleavedLayout reads every value inline from one stream (legacy and
// VKV\x03 documents).
type interleavedLayout struct {
	c *cursor
}

func (l *interleavedLayout) tag() (byte, error)     { return l.c.u8() }
func (l *interleavedLayout) read1() (byte, error)   { return l.c.u8() }
func (l *interleavedLayout) read2() (uint16, error) { return l.c.u16() }
func (l *interleavedLayout) read4() (uint32, error) { return l.c.u32() }
func (l *interleavedLayout) read8() (uint64, error) { return l.c.u64() }
func (l *interleavedLayout) count() (int, error)    { return l.c.count() }
func (l *interleavedLayout) pos() int               { return l.c.pos() }
func (l *interleavedLayout) remaining() int         { return l.c.remaining() }

func (l *interleavedLayout) blob() ([]byte, error) {
	n, err := l.c.count()
	if err != nil {
		return nil, err
	}
	p, err := l.c.take(n)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), p...), nil
}

// partitionedLayout reads values of each width from their own region
// (KV3\x01 and later). Every region has its own cursor that only moves
// forward; the type bytes are a region of their own too.
type partitionedLayout struct {
	bytes1 *cursor
	bytes2 *cursor
	bytes4 *cursor
	bytes8 *cursor
	types  *cursor

	// blocks holds binary blobs of blocked documents, split by blockLens.
	blocks    *cursor
	blockLens []int
}

func (l *partitionedLayout) tag() (byte, error)     { return l.types.u8() }
func (l *partitionedLayout) read1() (byte, error)   { return l.bytes1.u8() }
func (l *partitionedLayout) read2() (uint16, error) { return l.bytes2.u16() }
func (l *partitionedLayout) read4() (uint32, error) { return l.bytes4.u32() }
func (l *partitionedLayout) read8() (uint64, error) { return l.bytes8.u64() }
func (l *partitionedLayout) count() (int, error)    { return l.bytes4.count() }
func (l *partitionedLayout) pos() int               { return l.bytes4.pos() }

func (l *partitionedLayout) remaining() int {
	return l.bytes1.remaining() + l.bytes4.remaining() + l.bytes8.remaining() + l.types.remaining()
}

func (l *partitionedLayout) blob() ([]byte, error) {
	if l.blocks != nil {
		if len(l.blockLens) == 0 {
			return nil, corrupt(ErrTruncated, l.blocks.pos(), 0)
		}
		n := l.blockLens[0]
		l.blockLens = l.blockLens[1:]
		p, err := l.blocks.take(n)
		if err != nil {
			return nil, err
		}
		return append([]byte(nil), p...), nil
	}

	n, err := l.bytes4.count()
	if err != nil {
		return nil, err
	}
	p, err := l.bytes1.take(n)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), p...), nil
}
