package kv3

import (
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// LZ4Compressor compresses a KV3 document as a single LZ4 block.
type LZ4Compressor struct{}

func (c LZ4Compressor) compress(b []byte) ([]byte, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(b)))

	n, err := lz4.CompressBlock(b, dst, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}

	// CompressBlock reports incompressible input as zero bytes written;
	// the format still needs a valid block.
	if n == 0 {
		return lz4Literals(b), nil
	}

	return dst[:n], nil
}

// lz4MaxRatio bounds how far one input byte can expand.
const lz4MaxRatio = 255

func (c LZ4Compressor) decompress(b []byte, size int) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}
	if size/lz4MaxRatio > len(b) {
		return nil, fmt.Errorf("%w: lz4: %d bytes cannot inflate to %d", ErrDecompression, len(b), size)
	}
	dst := make([]byte, size)

	n, err := lz4.UncompressBlock(b, dst)
	if err != nil {
		return nil, fmt.Errorf("%w: lz4: %v", ErrDecompression, err)
	}
	if n != size {
		return nil, fmt.Errorf("%w: lz4: expected %d bytes, got %d", ErrDecompression, size, n)
	}

	return dst, nil
}

// lz4Literals encodes b as one LZ4 sequence made only of literals.
func lz4Literals(b []byte) []byte {
	n := len(b)
	out := make([]byte, 0, n+n/255+2)

	if n < 15 {
		out = append(out, byte(n<<4))
	} else {
		out = append(out, 0xF0)
		r := n - 15
		for ; r >= 255; r -= 255 {
			out = append(out, 255)
		}
		out = append(out, byte(r))
	}

	return append(out, b...)
}

// lz4DecodeFrames inflates total bytes of chained LZ4 frames. Each frame
// decodes to at most lz4FrameSize bytes and may refer back into the
// output of the frames before it. frameLens supplies the compressed size
// of each frame in turn.
func lz4DecodeFrames(src *cursor, frameLens *cursor, total int) ([]byte, error) {
	if total/lz4MaxRatio > src.remaining() {
		return nil, corrupt(ErrTruncated, src.pos(), int64(total))
	}
	out := make([]byte, total)

	for off := 0; off < total; {
		clen, err := frameLens.u16()
		if err != nil {
			return nil, err
		}
		at := src.pos()
		in, err := src.take(int(clen))
		if err != nil {
			return nil, err
		}

		end := min(off+lz4FrameSize, total)
		dict := out[max(0, off-64<<10):off]

		n, err := lz4.UncompressBlockWithDict(in, out[off:end], dict)
		if err != nil || n < 1 {
			return nil, corrupt(ErrDecompression, at, int64(clen))
		}
		off += n
	}

	return out, nil
}

// lz4EncodeFrames splits b into independent frames of lz4FrameSize bytes.
// It returns the concatenated frames and their compressed lengths.
func lz4EncodeFrames(b []byte) ([]byte, []uint16, error) {
	var (
		frames []byte
		lens   []uint16
		c      LZ4Compressor
	)

	for off := 0; off < len(b); off += lz4FrameSize {
		f, err := c.compress(b[off:min(off+lz4FrameSize, len(b))])
		if err != nil {
			return nil, nil, err
		}
		frames = append(frames, f...)
		lens = append(lens, uint16(len(f)))
	}

	return frames, lens, nil
}
