//go:build gofuzz
// +build gofuzz

package kv3

import (
	"errors"

	"github.com/google/go-cmp/cmp"
)

// Fuzz decodes data and, when it decodes, checks that re-encoding the tree
// in every writable version yields the same tree again.
func Fuzz(data []byte) int {
	root, err := Unmarshal(data)
	if err != nil {
		return 0
	}

	for _, e := range []*Encoder{
		{Version: Version1},
		{Version: Version1, Compression: BlockCompressor{}},
		{Version: Version2, Compression: LZ4Compressor{}},
		{Version: Version5, Compression: ZstdCompressor{}, TypedArrays: true},
	} {
		enc, err := e.Marshal(root)
		if err != nil {
			// Trees past the nesting limit decode but cannot be written.
			if errors.Is(err, ErrTooDeep) {
				return 0
			}
			panic("unable to marshal: " + err.Error())
		}

		root2, err := Unmarshal(enc)
		if err != nil {
			panic("unmarshalling marshalled data: " + err.Error())
		}

		if !root.Equal(root2) {
			s := cmp.Diff(ObjectValue(root).Interface(), ObjectValue(root2).Interface())
			panic("failed to roundtrip: " + s)
		}
	}

	return 1
}
