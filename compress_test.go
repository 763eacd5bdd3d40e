package kv3

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compressInputs() map[string][]byte {
	rnd := rand.New(rand.NewSource(7))
	noise := make([]byte, 3000)
	rnd.Read(noise)

	var mixed []byte
	for i := 0; i < 200; i++ {
		mixed = append(mixed, "m_vecOrigin"...)
		mixed = append(mixed, byte(i), byte(i*7))
	}

	return map[string][]byte{
		"empty":  {},
		"one":    {42},
		"short":  []byte("abc"),
		"repeat": bytes.Repeat([]byte("abc"), 1000),
		"zeros":  make([]byte, 70000),
		"noise":  noise,
		"mixed":  mixed,
	}
}

func TestBlockSelfReference(t *testing.T) {
	// One literal, then a reference one byte back that is longer than the
	// distance it reaches.
	in := []byte{6, 0, 0, 0, 0x02, 0x00, 'a', 0x02, 0x00}

	out, err := BlockCompressor{}.decompress(in, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("aaaaaa"), out)
}

func TestBlockDecompress(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want []byte
		err  error
	}{
		{"stored", []byte{3, 0, 0, blockStoredFlag, 'x', 'y', 'z'}, []byte("xyz"), nil},
		{"literals", []byte{3, 0, 0, 0, 0, 0, 'x', 'y', 'z'}, []byte("xyz"), nil},
		{"short input", []byte{6, 0, 0, 0, 0, 0, 'a', 'b'}, []byte("ab"), nil},
		{"clipped", []byte{2, 0, 0, 0, 0x02, 0x00, 'a', 0x00, 0x00}, []byte("aa"), nil},
		{"before start", []byte{4, 0, 0, 0, 0x01, 0x00, 0x00, 0x00}, nil, ErrDecompression},
		{"no header", []byte{4, 0}, nil, ErrTruncated},
		{"stored short", []byte{9, 0, 0, blockStoredFlag, 'x'}, nil, ErrTruncated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := BlockCompressor{}.decompress(tt.in, 0)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestBlockRoundtrip(t *testing.T) {
	for name, in := range compressInputs() {
		packed, err := BlockCompressor{}.compress(in)
		require.NoError(t, err, name)

		out, err := BlockCompressor{}.decompress(packed, 0)
		require.NoError(t, err, name)
		if !bytes.Equal(in, out) {
			t.Errorf("%s: roundtrip mismatch: %d bytes in, %d out", name, len(in), len(out))
		}
	}

	packed, err := BlockCompressor{}.compress(bytes.Repeat([]byte("abc"), 1000))
	require.NoError(t, err)
	assert.Less(t, len(packed), 1000)

	noise := compressInputs()["noise"]
	packed, err = BlockCompressor{}.compress(noise)
	require.NoError(t, err)
	assert.Equal(t, byte(blockStoredFlag), packed[3])
	assert.Equal(t, len(noise)+4, len(packed))

	_, err = BlockCompressor{}.compress(make([]byte, blockMaxSize+1))
	assert.ErrorIs(t, err, ErrUnsupportedValue)
}

func TestLZ4Roundtrip(t *testing.T) {
	for name, in := range compressInputs() {
		packed, err := LZ4Compressor{}.compress(in)
		require.NoError(t, err, name)

		out, err := LZ4Compressor{}.decompress(packed, len(in))
		require.NoError(t, err, name)
		if !bytes.Equal(in, out) {
			t.Errorf("%s: roundtrip mismatch", name)
		}

		if len(in) > 0 {
			_, err = LZ4Compressor{}.decompress(packed, len(in)+1)
			assert.ErrorIs(t, err, ErrDecompression, name)
		}
	}
}

func TestLZ4Literals(t *testing.T) {
	for _, n := range []int{1, 14, 15, 16, 269, 270, 1000} {
		in := bytes.Repeat([]byte{'q'}, n)
		out, err := LZ4Compressor{}.decompress(lz4Literals(in), n)
		require.NoError(t, err, "%d literals", n)
		assert.Equal(t, in, out)
	}
}

func TestLZ4Bomb(t *testing.T) {
	_, err := LZ4Compressor{}.decompress([]byte{0x1F, 0}, 1<<30)
	assert.ErrorIs(t, err, ErrDecompression)
}

func TestLZ4Frames(t *testing.T) {
	var in []byte
	for i := 0; len(in) < 3*lz4FrameSize+1234; i++ {
		in = binary.LittleEndian.AppendUint32(in, uint32(i%977))
	}

	frames, lens, err := lz4EncodeFrames(in)
	require.NoError(t, err)
	require.Len(t, lens, 4)

	var lenBuf []byte
	for _, n := range lens {
		lenBuf = binary.LittleEndian.AppendUint16(lenBuf, n)
	}

	out, err := lz4DecodeFrames(newCursor(frames, 0), newCursor(lenBuf, 0), len(in))
	require.NoError(t, err)
	assert.True(t, bytes.Equal(in, out))

	// A frame length table that stops early.
	_, err = lz4DecodeFrames(newCursor(frames, 0), newCursor(lenBuf[:4], 0), len(in))
	assert.ErrorIs(t, err, ErrTruncated)

	// Frames cut short.
	_, err = lz4DecodeFrames(newCursor(frames[:len(frames)/2], 0), newCursor(lenBuf, 0), len(in))
	assert.Error(t, err)
}

func TestZstdRoundtrip(t *testing.T) {
	for _, level := range []int{0, ZstdBestSpeed, 9} {
		c := ZstdCompressor{Level: level}
		for name, in := range compressInputs() {
			packed, err := c.compress(in)
			require.NoError(t, err, name)

			out, err := c.decompress(packed, len(in))
			require.NoError(t, err, name)
			if !bytes.Equal(in, out) {
				t.Errorf("level %d, %s: roundtrip mismatch", level, name)
			}
		}
	}

	packed, err := ZstdCompressor{}.compress([]byte("kv3 kv3 kv3"))
	require.NoError(t, err)
	_, err = ZstdCompressor{}.decompress(packed, 5)
	assert.ErrorIs(t, err, ErrDecompression)

	_, err = ZstdCompressor{}.decompress([]byte("not a zstd frame"), 16)
	assert.ErrorIs(t, err, ErrDecompression)
	// A small frame that inflates far past its declared size stops
	// just past that size.
	packed, err = ZstdCompressor{}.compress(make([]byte, 8<<20))
	require.NoError(t, err)
	out, err := zstdDecode(packed, 16)
	require.NoError(t, err)
	assert.Len(t, out, 17)
	_, err = ZstdCompressor{}.decompress(packed, 16)
	assert.ErrorIs(t, err, ErrDecompression)
}
