package kv3

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrUnrecognizedMagic    = errors.New("kv3: unrecognized magic")
	ErrUnrecognizedEncoding = errors.New("kv3: unrecognized encoding")
	ErrUnknownCompression   = errors.New("kv3: unknown compression method")
	ErrUnexpectedFlag       = errors.New("kv3: unexpected flag")
	ErrUnknownType          = errors.New("kv3: unknown type")
	ErrDecompression        = errors.New("kv3: decompression failed")
	ErrTruncated            = errors.New("kv3: truncated document")
	ErrTrailerMismatch      = errors.New("kv3: trailer mismatch")
	ErrTooDeep              = errors.New("kv3: document nested too deeply")
	ErrStringIndex          = errors.New("kv3: string index out of range")
	ErrTooManyElements      = errors.New("kv3: typed array declares too many elements")

	ErrBadRoot          = errors.New("kv3: root must be a non-array object")
	ErrUnsupportedValue = errors.New("kv3: value cannot be encoded")
	ErrBind             = errors.New("kv3: value does not fit destination")
)

// ErrCorrupt carries the position and field a decode failed at. It unwraps
// to one of the sentinel errors above.
type ErrCorrupt struct {
	Err    error
	Offset int    // byte offset in the buffer being read
	Field  string // property name being parsed, if known
	Value  int64  // offending byte, flag or count, if any
}

func (c *ErrCorrupt) Error() string {
	s := fmt.Sprintf("%v at offset %d", c.Err, c.Offset)
	if c.Value != 0 {
		s += fmt.Sprintf(" (value %d)", c.Value)
	}
	if c.Field != "" {
		s += fmt.Sprintf(" for field %q", c.Field)
	}
	return s
}

func (c *ErrCorrupt) Unwrap() error { return c.Err }

func corrupt(err error, offset int, value int64) error {
	return &ErrCorrupt{Err: err, Offset: offset, Value: value}
}

// withField attaches a property name to an error that lacks one.
func withField(err error, field string) error {
	var c *ErrCorrupt
	if field != "" && errors.As(err, &c) && c.Field == "" {
		c.Field = field
	}
	return err
}
