package kv3

import "encoding/binary"

// BlockCompressor is the LZ-style compressor of VKV\x03 "block compressed"
// documents. A 4-byte header holds the decompressed size in its low 24
// bits; bit 31 marks a stored (uncompressed) payload. The stream is a
// sequence of 16-bit masks, each followed by up to 16 operations: a clear
// bit is one literal byte, a set bit a 16-bit back-reference word.
type BlockCompressor struct{}

const (
	blockStoredFlag = 0x80
	blockMaxSize    = 1<<24 - 1
	blockWindow     = 4096 // offsets are 12 bits, biased by one
	blockMinMatch   = 3
	blockMaxMatch   = 18 // lengths are 4 bits, biased by three
)

func (c BlockCompressor) compress(b []byte) ([]byte, error) {
	if len(b) > blockMaxSize {
		return nil, ErrUnsupportedValue
	}

	out := make([]byte, 4, 4+len(b)+len(b)/8+2)
	out[0], out[1], out[2] = byte(len(b)), byte(len(b)>>8), byte(len(b)>>16)

	// last position of every 3-byte prefix seen so far
	seen := make(map[[3]byte]int)

	maskAt, bit := -1, 16
	var mask uint16

	emit := func(isRef bool) {
		if bit == 16 {
			if maskAt >= 0 {
				binary.LittleEndian.PutUint16(out[maskAt:], mask)
			}
			maskAt = len(out)
			out = append(out, 0, 0)
			mask, bit = 0, 0
		}
		if isRef {
			mask |= 1 << bit
		}
		bit++
	}

	for i := 0; i < len(b); {
		bestLen, bestOff := 0, 0
		if i+blockMinMatch <= len(b) {
			key := [3]byte{b[i], b[i+1], b[i+2]}
			if j, ok := seen[key]; ok && i-j <= blockWindow {
				n := 0
				for n < blockMaxMatch && i+n < len(b) && b[j+n] == b[i+n] {
					n++
				}
				bestLen, bestOff = n, i-j
			}
		}

		if bestLen >= blockMinMatch {
			emit(true)
			word := uint16(bestOff-1)<<4 | uint16(bestLen-blockMinMatch)
			out = binary.LittleEndian.AppendUint16(out, word)
			for k := 0; k < bestLen; k++ {
				if i+k+blockMinMatch <= len(b) {
					seen[[3]byte{b[i+k], b[i+k+1], b[i+k+2]}] = i + k
				}
			}
			i += bestLen
			continue
		}

		emit(false)
		out = append(out, b[i])
		if i+blockMinMatch <= len(b) {
			seen[[3]byte{b[i], b[i+1], b[i+2]}] = i
		}
		i++
	}

	if maskAt >= 0 {
		binary.LittleEndian.PutUint16(out[maskAt:], mask)
	}

	if len(out)-4 >= len(b) {
		stored := make([]byte, 4, 4+len(b))
		copy(stored, out[:3])
		stored[3] = blockStoredFlag
		return append(stored, b...), nil
	}

	return out, nil
}

// decompress ignores size: the header carries it. Running out of input
// before the declared size is reached ends decoding without an error.
func (c BlockCompressor) decompress(b []byte, _ int) ([]byte, error) {
	in := newCursor(b, 0)

	hdr, err := in.take(4)
	if err != nil {
		return nil, err
	}
	size := int(hdr[2])<<16 | int(hdr[1])<<8 | int(hdr[0])

	if hdr[3]&blockStoredFlag != 0 {
		p, err := in.take(size)
		if err != nil {
			return nil, err
		}
		return append([]byte(nil), p...), nil
	}

	out := make([]byte, 0, size)

	for len(out) < size && in.remaining() >= 2 {
		mask, _ := in.u16()

		for i := 0; i < 16 && len(out) < size && in.remaining() > 0; i++ {
			if mask&(1<<i) == 0 {
				lit, _ := in.u8()
				out = append(out, lit)
				continue
			}

			at := in.pos()
			word, err := in.u16()
			if err != nil {
				return out, nil
			}
			offset := int(word&0xFFF0)>>4 + 1
			n := int(word&0x000F) + blockMinMatch

			start := len(out) - offset
			if start < 0 {
				return nil, corrupt(ErrDecompression, at, int64(offset))
			}
			// Byte-wise so a reference shorter than its length repeats.
			for k := 0; k < n && len(out) < size; k++ {
				out = append(out, out[start+k])
			}
		}
	}

	return out, nil
}
