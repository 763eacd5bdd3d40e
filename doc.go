/*
Package kv3 implements the binary KV3 format Valve resource files use to
store generic key/value trees.

Decoding understands every known layout: legacy GUID-keyed blocks, VKV\x03
blocks with their three encodings (raw, the bespoke block compressor and
LZ4), and the partitioned KV3\x01 to KV3\x04 blocks with raw, LZ4 or zstd
compression and binary blobs stored as trailing blocks. All of them decode
to the same tree of Objects and Values:

	doc, err := kv3.NewDecoder().Decode(b)
	if err != nil {
		return err
	}
	name := doc.Root.GetString("m_name")

Encoding writes VKV\x03, KV3\x01 or KV3\x04 blocks:

	e := kv3.NewEncoder()
	e.Compression = kv3.LZ4Compressor{}
	b, err := e.Marshal(root)

Trees can also be rendered in KV3 text syntax with Text and
Document.WriteText, or copied into Go structs with Object.Bind.

The zstd codec is pure Go unless the package is built with the clibs tag,
which switches to the cgo binding of the reference library.
*/
package kv3
