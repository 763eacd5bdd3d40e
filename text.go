package kv3

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Text renders o in KV3 text syntax, without a header.
func Text(o *Object) (string, error) {
	var sb strings.Builder
	if err := WriteText(&sb, o); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// WriteText writes o to w in KV3 text syntax, without a header.
func WriteText(w io.Writer, o *Object) error {
	t := newTextWriter(w)
	if err := t.object(o, false); err != nil {
		return err
	}
	t.line("")
	return t.w.Flush()
}

// Text renders the document with its header comment.
func (d *Document) Text() (string, error) {
	var sb strings.Builder
	if err := d.WriteText(&sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// WriteText writes the document to w as a KV3 text file: a header comment
// naming the text encoding and the document's format, then the root.
func (d *Document) WriteText(w io.Writer) error {
	t := newTextWriter(w)
	t.line(fmt.Sprintf("<!-- kv3 encoding:text:version{%s} format:%s:version{%s} -->",
		encodingText, d.formatName(), d.format()))

	if err := t.object(d.Root, false); err != nil {
		return err
	}
	t.line("")
	return t.w.Flush()
}

func (d *Document) format() uuid.UUID {
	if d.Format == uuid.Nil {
		return FormatGeneric
	}
	return d.Format
}

func (d *Document) formatName() string {
	if d.FormatName != "" {
		return d.FormatName
	}
	if d.format() == FormatGeneric {
		return "generic"
	}
	return "vrfunknown"
}

// textWriter indents lazily: tabs go out before the first write on a line,
// so blank lines carry none.
type textWriter struct {
	w      *bufio.Writer
	indent int
	bol    bool
}

func newTextWriter(w io.Writer) *textWriter {
	return &textWriter{w: bufio.NewWriter(w), bol: true}
}

func (t *textWriter) write(s string) {
	if s == "" {
		return
	}
	if t.bol {
		for i := 0; i < t.indent; i++ {
			t.w.WriteByte('\t')
		}
		t.bol = false
	}
	t.w.WriteString(s)
}

func (t *textWriter) line(s string) {
	t.write(s)
	t.w.WriteByte('\n')
	t.bol = true
}

func (t *textWriter) enter() error {
	t.indent++
	if t.indent > defaultMaxDepth {
		return fmt.Errorf("%w: more than %d levels", ErrTooDeep, defaultMaxDepth)
	}
	return nil
}

// object writes a collection. Nested collections start on a line of their
// own, below their key.
func (t *textWriter) object(o *Object, nested bool) error {
	if nested {
		t.line("")
	}
	t.line("{")
	if err := t.enter(); err != nil {
		return err
	}
	for _, p := range o.Properties() {
		t.key(p.Name)
		if err := t.value(p.Value); err != nil {
			return err
		}
		t.line("")
	}
	t.indent--
	t.write("}")
	return nil
}

func (t *textWriter) array(o *Object) error {
	t.line("")
	t.line("[")
	if err := t.enter(); err != nil {
		return err
	}
	for _, v := range o.Values() {
		if err := t.value(v); err != nil {
			return err
		}
		t.line(",")
	}
	t.indent--
	t.write("]")
	return nil
}

// key writes a property name followed by " = ". Names are quoted when
// empty, when they start with a digit or when they hold anything but
// ASCII letters, digits, '.' and '_'.
func (t *textWriter) key(name string) {
	quote := name == "" || isDigit(name[0])

	var sb strings.Builder
	sb.Grow(len(name) + 2)
	sb.WriteByte('"')
	for _, r := range name {
		switch r {
		case '\t':
			quote = true
			sb.WriteString(`\t`)
		case '\n':
			quote = true
			sb.WriteString(`\n`)
		case '"':
			quote = true
			sb.WriteString(`\"`)
		case '\\':
			quote = true
			sb.WriteString(`\\`)
		default:
			if r != '.' && r != '_' && !isASCIIAlnum(r) {
				quote = true
			}
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')

	if quote {
		t.write(sb.String())
	} else {
		t.write(name)
	}
	t.write(" = ")
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isASCIIAlnum(r rune) bool {
	return r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
}

func (t *textWriter) value(v Value) error {
	if v.Flag != FlagNone {
		t.write(v.Flag.String() + ":")
	}

	switch v.Kind {
	case KindNull:
		t.write("null")
	case KindBoolean:
		t.write(strconv.FormatBool(v.Bool()))
	case KindInt16, KindInt32, KindInt64:
		t.write(strconv.FormatInt(v.Int(), 10))
	case KindUInt16, KindUInt32, KindUInt64:
		t.write(strconv.FormatUint(v.Uint(), 10))
	case KindFloat:
		t.write(strconv.FormatFloat(v.Float(), 'f', 6, 32))
	case KindDouble:
		t.write(strconv.FormatFloat(v.Float(), 'f', 6, 64))
	case KindString:
		t.str(v.Str())
	case KindBinaryBlob:
		t.blob(v.Bytes())
	case KindArray:
		return t.array(v.Object())
	case KindCollection:
		return t.object(v.Object(), true)
	default:
		return fmt.Errorf("%w: kind %v", ErrUnsupportedValue, v.Kind)
	}
	return nil
}

// str writes s quoted, or between triple quotes when it spans lines.
func (t *textWriter) str(s string) {
	if strings.Contains(s, "\n") {
		t.write(`"""`)
		t.line("")
		// The body is verbatim; indentation would change it.
		t.w.WriteString(s)
		t.bol = false
		t.line("")
		t.write(`"""`)
		return
	}
	t.write(`"` + escapeQuotes(s) + `"`)
}

// escapeQuotes puts a backslash before every double quote that does not
// already have one.
func escapeQuotes(s string) string {
	if !strings.Contains(s, `"`) {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s) + 4)
	for i := 0; i < len(s); i++ {
		if s[i] == '"' && (i == 0 || s[i-1] != '\\') {
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

const (
	hexUpper     = "0123456789ABCDEF"
	blobLineSize = 32
)

// blob writes b as uppercase hex pairs, blobLineSize to a line.
func (t *textWriter) blob(b []byte) {
	t.line("")
	t.line("#[")
	t.indent++

	var pair [3]byte
	for i, c := range b {
		pair[0], pair[1] = hexUpper[c>>4], hexUpper[c&0xF]
		if (i+1)%blobLineSize == 0 {
			t.line(string(pair[:2]))
			continue
		}
		pair[2] = ' '
		t.write(string(pair[:]))
	}
	if len(b)%blobLineSize != 0 {
		t.line("")
	}

	t.indent--
	t.write("]")
}
