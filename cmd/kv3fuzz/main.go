package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/dchest/siphash"
	"github.com/dgryski/go-ddmin"

	"github.com/resourcekit/kv3"
)

// siphash keys for crasher file names; fixed so reruns dedupe.
const (
	k0 = 0x6b763366757a7a31
	k1 = 0x6372617368657273
)

var encoders = []*kv3.Encoder{
	{Version: kv3.Version1},
	{Version: kv3.Version1, Compression: kv3.BlockCompressor{}},
	{Version: kv3.Version1, Compression: kv3.LZ4Compressor{}},
	{Version: kv3.Version2},
	{Version: kv3.Version2, Compression: kv3.LZ4Compressor{}, TypedArrays: true},
	{Version: kv3.Version5},
	{Version: kv3.Version5, Compression: kv3.LZ4Compressor{}},
	{Version: kv3.Version5, Compression: kv3.ZstdCompressor{}, TypedArrays: true},
}

func main() {
	var (
		iterations = flag.Int("n", 0, "iterations (0 runs forever)")
		seed       = flag.Int64("seed", 1, "random seed")
		flips      = flag.Int("flips", 4, "bytes mutated per document")
		dir        = flag.String("crashers", "crashers", "directory for minimized crashing inputs")
		verbose    = flag.Bool("v", false, "dump every mutated document")
	)
	flag.Parse()

	rnd := rand.New(rand.NewSource(*seed))

	for i := 0; *iterations == 0 || i < *iterations; i++ {
		root := randomObject(rnd, 0)
		enc := encoders[rnd.Intn(len(encoders))]

		doc, err := enc.Marshal(root)
		if err != nil {
			log.Fatalf("marshal with %+v: %s", enc, err)
		}

		back, err := kv3.Unmarshal(doc)
		if err != nil {
			log.Fatalf("unmarshal of fresh %v document: %s\n%s", enc.Version, err, hex.Dump(doc))
		}
		if !root.Equal(back) {
			log.Fatalf("%v document failed to roundtrip\n%s", enc.Version, hex.Dump(doc))
		}

		mutated := mutate(rnd, doc, *flips)
		if *verbose {
			fmt.Println(hex.Dump(mutated))
		}

		if panics(mutated) {
			name, err := save(*dir, ddmin.Minimize(mutated, func(b []byte) ddmin.Result {
				if panics(b) {
					return ddmin.Fail
				}
				return ddmin.Pass
			}))
			if err != nil {
				log.Fatalf("saving crasher: %s", err)
			}
			log.Printf("crasher: %s", name)
		}
	}
}

// panics reports whether decoding b panics. Errors are expected.
func panics(b []byte) (crashed bool) {
	defer func() {
		if r := recover(); r != nil {
			crashed = true
		}
	}()
	kv3.Unmarshal(b)
	return false
}

func save(dir string, b []byte) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	name := filepath.Join(dir, fmt.Sprintf("%016x", siphash.Hash(k0, k1, b)))
	return name, os.WriteFile(name, b, 0644)
}

func mutate(rnd *rand.Rand, b []byte, n int) []byte {
	m := append([]byte(nil), b...)
	if len(m) == 0 {
		return m
	}
	for i := 0; i < n; i++ {
		switch rnd.Intn(4) {
		case 0:
			m[rnd.Intn(len(m))] ^= byte(1 << rnd.Intn(8))
		case 1:
			m[rnd.Intn(len(m))] = byte(rnd.Intn(256))
		case 2:
			m = m[:rnd.Intn(len(m))+1]
		case 3:
			m[rnd.Intn(len(m))] = 0xFF
		}
	}
	return m
}

var names = []string{"", "a", "name", "m_nType", "m_vecOrigin", "root", "children", "0x1", "with space"}

func randomObject(rnd *rand.Rand, depth int) *kv3.Object {
	o := kv3.NewObject()
	for i, n := 0, rnd.Intn(6); i < n; i++ {
		o.Add(names[rnd.Intn(len(names))], randomValue(rnd, depth+1))
	}
	return o
}

func randomValue(rnd *rand.Rand, depth int) kv3.Value {
	kinds := 14
	if depth > 4 {
		kinds = 12
	}

	var v kv3.Value
	switch rnd.Intn(kinds) {
	case 0:
		v = kv3.Null()
	case 1:
		v = kv3.Bool(rnd.Intn(2) == 1)
	case 2:
		v = kv3.Int16(int16(rnd.Uint32()))
	case 3:
		v = kv3.UInt16(uint16(rnd.Uint32()))
	case 4:
		v = kv3.Int32(int32(rnd.Uint32()))
	case 5:
		v = kv3.UInt32(rnd.Uint32())
	case 6:
		v = kv3.Int64(int64(rnd.Uint64()) >> rnd.Intn(64))
	case 7:
		v = kv3.UInt64(rnd.Uint64())
	case 8:
		v = kv3.Float(rnd.Float32())
	case 9:
		v = kv3.Double([]float64{0, 1, rnd.NormFloat64()}[rnd.Intn(3)])
	case 10:
		v = kv3.String(names[rnd.Intn(len(names))])
	case 11:
		b := make([]byte, rnd.Intn(64))
		rnd.Read(b)
		v = kv3.BinaryBlob(b)
	case 12:
		a := kv3.NewArray()
		for i, n := 0, rnd.Intn(5); i < n; i++ {
			a.Append(randomValue(rnd, depth+1))
		}
		v = kv3.ObjectValue(a)
	case 13:
		v = kv3.ObjectValue(randomObject(rnd, depth))
	}

	if rnd.Intn(8) == 0 {
		v = v.WithFlag(kv3.Flag(rnd.Intn(6)))
	}
	return v
}
