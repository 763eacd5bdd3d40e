//go:build clibs
// +build clibs

package kv3

import (
	"bytes"

	"github.com/DataDog/zstd"
)

func zstdEncode(buf []byte, level int) ([]byte, error) {
	return zstd.CompressLevel(nil, buf, level)
}

func zstdDecode(buf []byte, size int) ([]byte, error) {
	r := zstd.NewReader(bytes.NewReader(buf))
	defer r.Close()

	return readLimited(r, size, len(buf))
}
