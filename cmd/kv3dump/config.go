package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/resourcekit/kv3"
)

// config holds the defaults kv3dump reads from its YAML file. Flags set on
// the command line override them.
type config struct {
	MaxDepth    int `yaml:"max_depth"`
	MaxElements int `yaml:"max_elements"`

	Reencode struct {
		Version     string `yaml:"version"`
		Compression string `yaml:"compression"`
		ZstdLevel   int    `yaml:"zstd_level"`
		TypedArrays bool   `yaml:"typed_arrays"`
	} `yaml:"reencode"`
}

func defaultConfig() *config {
	c := &config{MaxDepth: 256}
	c.Reencode.Version = "kv3_01"
	c.Reencode.Compression = "none"
	c.Reencode.ZstdLevel = kv3.ZstdDefaultCompression
	return c
}

func loadConfig(path string) (*config, error) {
	c := defaultConfig()
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return c, nil
}

func (c *config) decoder() *kv3.Decoder {
	d := kv3.NewDecoder()
	d.MaxDepth = c.MaxDepth
	d.MaxElements = c.MaxElements
	return d
}

func parseVersion(s string) (kv3.Version, error) {
	switch strings.ToLower(s) {
	case "vkv3", "1":
		return kv3.Version1, nil
	case "kv3_01", "2", "":
		return kv3.Version2, nil
	case "kv3_04", "5":
		return kv3.Version5, nil
	}
	return 0, fmt.Errorf("unknown version %q (want vkv3, kv3_01 or kv3_04)", s)
}

func (c *config) encoder() (*kv3.Encoder, error) {
	version, err := parseVersion(c.Reencode.Version)
	if err != nil {
		return nil, err
	}

	e := kv3.NewEncoder()
	e.Version = version
	e.TypedArrays = c.Reencode.TypedArrays

	switch strings.ToLower(c.Reencode.Compression) {
	case "none", "":
	case "lz4":
		e.Compression = kv3.LZ4Compressor{}
	case "block":
		e.Compression = kv3.BlockCompressor{}
	case "zstd":
		e.Compression = kv3.ZstdCompressor{Level: c.Reencode.ZstdLevel}
	default:
		return nil, fmt.Errorf("unknown compression %q (want none, lz4, block or zstd)", c.Reencode.Compression)
	}

	return e, nil
}
