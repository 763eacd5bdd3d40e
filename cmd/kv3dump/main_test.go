package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resourcekit/kv3"
)

func testTree() *kv3.Object {
	return kv3.NewObject().
		Set("m_name", kv3.String("crate")).
		Set("list", kv3.ObjectValue(kv3.NewArray(kv3.Int32(1), kv3.Double(2.5), kv3.Null())))
}

func writeDoc(t *testing.T) (string, []byte) {
	b, err := kv3.Marshal(testTree())
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "crate.kv3")
	require.NoError(t, os.WriteFile(path, b, 0644))
	return path, b
}

func run(t *testing.T, stdin []byte, args ...string) ([]byte, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(bytes.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.Bytes(), err
}

func TestTextCommand(t *testing.T) {
	path, b := writeDoc(t)

	doc, err := kv3.NewDecoder().Decode(b)
	require.NoError(t, err)
	want, err := doc.Text()
	require.NoError(t, err)

	got, err := run(t, nil, "text", path)
	require.NoError(t, err)
	assert.Equal(t, want, string(got))

	got, err = run(t, b, "text")
	require.NoError(t, err)
	assert.Equal(t, want, string(got))
}

func TestInfoCommand(t *testing.T) {
	path, _ := writeDoc(t)

	got, err := run(t, nil, "info", path)
	require.NoError(t, err)
	assert.Contains(t, string(got), path+":\n")
	assert.Contains(t, string(got), "  version:     KV3_01\n")
	assert.Contains(t, string(got), "  compression: none\n")
	assert.Contains(t, string(got), "  properties:  2\n")
}

func TestReencodeCommand(t *testing.T) {
	path, b := writeDoc(t)
	out := filepath.Join(t.TempDir(), "out.kv3")

	_, err := run(t, nil, "reencode", "--version", "kv3_04", "--compression", "zstd", "--typed-arrays", "-o", out, path)
	require.NoError(t, err)

	written, err := os.ReadFile(out)
	require.NoError(t, err)
	doc, err := kv3.NewDecoder().Decode(written)
	require.NoError(t, err)
	assert.Equal(t, kv3.Version5, doc.Version)
	assert.Equal(t, "zstd", doc.Compression)
	assert.True(t, doc.Root.Equal(testTree()))

	cfgPath := filepath.Join(t.TempDir(), "kv3dump.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("reencode:\n  version: vkv3\n  compression: block\n"), 0644))

	got, err := run(t, b, "--config", cfgPath, "reencode")
	require.NoError(t, err)
	doc, err = kv3.NewDecoder().Decode(got)
	require.NoError(t, err)
	assert.Equal(t, kv3.Version1, doc.Version)
	assert.Equal(t, "block", doc.Compression)
	assert.True(t, doc.Root.Equal(testTree()))
}

func TestCommandErrors(t *testing.T) {
	path, _ := writeDoc(t)

	_, err := run(t, []byte("nope"), "info")
	assert.ErrorIs(t, err, kv3.ErrTruncated)

	_, err = run(t, nil, "text", filepath.Join(t.TempDir(), "missing.kv3"))
	assert.Error(t, err)

	_, err = run(t, nil, "reencode", "--compression", "snappy", path)
	assert.Error(t, err)

	_, err = run(t, nil, "--max-depth", "0", "--max-elements", "1", "spew", path)
	assert.NoError(t, err)
}
