//go:build !clibs
// +build !clibs

package kv3

import (
	"bytes"

	"github.com/klauspost/compress/zstd"
)

func zstdEncode(buf []byte, level int) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return nil, err
	}
	defer encoder.Close()

	return encoder.EncodeAll(buf, nil), nil
}

func zstdDecode(buf []byte, size int) ([]byte, error) {
	decoder, err := zstd.NewReader(bytes.NewReader(buf), zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	defer decoder.Close()

	return readLimited(decoder, size, len(buf))
}
