package kv3

import (
	"bytes"
	"fmt"
	"io"
)

// ZstdCompressor compresses a KV3 document using the zstd format. Only
// KV3\x02 and later headers can declare it.
type ZstdCompressor struct {
	Level int // compression level, set to ZstdDefaultCompression by default
}

// Zstd constants
const (
	ZstdBestSpeed          = 1
	ZstdBestCompression    = 20
	ZstdDefaultCompression = 3
)

func (c ZstdCompressor) compress(buf []byte) ([]byte, error) {
	if c.Level == 0 {
		c.Level = ZstdDefaultCompression
	}

	return zstdEncode(buf, c.Level)
}

func (c ZstdCompressor) decompress(buf []byte, size int) ([]byte, error) {
	dst, err := zstdDecode(buf, size)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd: %v", ErrDecompression, err)
	}
	if len(dst) != size {
		return nil, fmt.Errorf("%w: zstd: expected %d bytes, got %d", ErrDecompression, size, len(dst))
	}

	return dst, nil
}

// readLimited reads at most size+1 bytes from r, so output longer than
// declared shows up as a length mismatch. in sizes the first allocation.
func readLimited(r io.Reader, size, in int) ([]byte, error) {
	out := bytes.NewBuffer(make([]byte, 0, min(size, in<<8)))
	_, err := io.Copy(out, io.LimitReader(r, int64(size)+1))
	return out.Bytes(), err
}
