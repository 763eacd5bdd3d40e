package kv3

import "math"

// builder rebuilds the value tree from a layout. It does not know which
// physical layout it reads from.
type builder struct {
	l        layout
	flags    flagCodec
	strings  []string
	depth    int
	maxDepth int

	// elements is what is left of the budget for payload-free typed
	// array elements.
	elements int
}

// root reads the top-level value. A non-object root is wrapped in a
// collection under the name "root".
func (b *builder) root() (*Object, error) {
	t, f, err := b.flags.readTag(b.l)
	if err != nil {
		return nil, err
	}

	if t == typeOBJECT {
		obj, err := b.object()
		if err != nil {
			return nil, err
		}
		return obj, nil
	}

	root := NewObject()
	if err := b.value(root, "root", t, f); err != nil {
		return nil, err
	}
	return root, nil
}

func (b *builder) str(at int, id uint32) (string, error) {
	i := int32(id)
	if i == -1 {
		return "", nil
	}
	if i < 0 || int(i) >= len(b.strings) {
		return "", corrupt(ErrStringIndex, at, int64(i))
	}
	return b.strings[i], nil
}

// property reads a named member of a collection.
func (b *builder) property(parent *Object) error {
	at := b.l.pos()
	id, err := b.l.read4()
	if err != nil {
		return err
	}
	name, err := b.str(at, id)
	if err != nil {
		return err
	}

	t, f, err := b.flags.readTag(b.l)
	if err != nil {
		return withField(err, name)
	}
	return b.value(parent, name, t, f)
}

// element reads an anonymous member of an array.
func (b *builder) element(parent *Object) error {
	t, f, err := b.flags.readTag(b.l)
	if err != nil {
		return err
	}
	return b.value(parent, "", t, f)
}

func (b *builder) enter() error {
	b.depth++
	if b.depth > b.maxDepth {
		return corrupt(ErrTooDeep, b.l.pos(), int64(b.depth))
	}
	return nil
}

// capFor bounds a preallocation by the bytes left to read.
func (b *builder) capFor(n int) int {
	return min(n, b.l.remaining())
}

func (b *builder) object() (*Object, error) {
	n, err := b.l.count()
	if err != nil {
		return nil, err
	}
	if err := b.enter(); err != nil {
		return nil, err
	}
	obj := newObjectCap(false, b.capFor(n))
	for i := 0; i < n; i++ {
		if err := b.property(obj); err != nil {
			return nil, err
		}
	}
	b.depth--
	return obj, nil
}

func (b *builder) array() (*Object, error) {
	n, err := b.l.count()
	if err != nil {
		return nil, err
	}
	if err := b.enter(); err != nil {
		return nil, err
	}
	arr := newObjectCap(true, b.capFor(n))
	for i := 0; i < n; i++ {
		if err := b.element(arr); err != nil {
			return nil, err
		}
	}
	b.depth--
	return arr, nil
}

// typedArray reads an array whose elements share one type tag, stored
// once after the count.
func (b *builder) typedArray(byteLength bool) (*Object, error) {
	var n int
	if byteLength {
		c, err := b.l.read1()
		if err != nil {
			return nil, err
		}
		n = int(c)
	} else {
		c, err := b.l.count()
		if err != nil {
			return nil, err
		}
		n = c
	}

	at := b.l.pos()
	t, f, err := b.flags.readTag(b.l)
	if err != nil {
		return nil, err
	}
	if t.implicit() {
		if n > b.elements {
			return nil, corrupt(ErrTooManyElements, at, int64(n))
		}
		b.elements -= n
	}
	if err := b.enter(); err != nil {
		return nil, err
	}
	arr := newObjectCap(true, b.capFor(n))
	for i := 0; i < n; i++ {
		if err := b.value(arr, "", t, f); err != nil {
			return nil, err
		}
	}
	b.depth--
	return arr, nil
}

func (b *builder) value(parent *Object, name string, t wireType, f Flag) error {
	v, err := b.read(t)
	if err != nil {
		return withField(err, name)
	}
	parent.Add(name, v.WithFlag(f))
	return nil
}

// read decodes the payload of one value of wire type t.
func (b *builder) read(t wireType) (Value, error) {
	at := b.l.pos()

	if _, ok := canonicalKind(t); !ok {
		return Value{}, corrupt(ErrUnknownType, at, int64(t))
	}

	switch t {
	case typeNULL:
		return Null(), nil

	case typeBOOLEAN:
		x, err := b.l.read1()
		return Bool(x != 0), err
	case typeBOOLEAN_TRUE:
		return Bool(true), nil
	case typeBOOLEAN_FALSE:
		return Bool(false), nil

	case typeINT16:
		x, err := b.l.read2()
		return Int16(int16(x)), err
	case typeUINT16:
		x, err := b.l.read2()
		return UInt16(x), err

	case typeINT32:
		x, err := b.l.read4()
		return Int32(int32(x)), err
	case typeINT32_AS_BYTE:
		x, err := b.l.read1()
		return Int32(int32(x)), err
	case typeUINT32:
		x, err := b.l.read4()
		return UInt32(x), err

	case typeINT64:
		x, err := b.l.read8()
		return Int64(int64(x)), err
	case typeINT64_ZERO:
		return Int64(0), nil
	case typeINT64_ONE:
		return Int64(1), nil
	case typeUINT64:
		x, err := b.l.read8()
		return UInt64(x), err

	case typeFLOAT:
		x, err := b.l.read4()
		return Float(math.Float32frombits(x)), err

	case typeDOUBLE:
		x, err := b.l.read8()
		return Double(math.Float64frombits(x)), err
	case typeDOUBLE_ZERO:
		return Double(0), nil
	case typeDOUBLE_ONE:
		return Double(1), nil

	case typeSTRING:
		id, err := b.l.read4()
		if err != nil {
			return Value{}, err
		}
		s, err := b.str(at, id)
		return String(s), err

	case typeBINARY_BLOB:
		p, err := b.l.blob()
		return BinaryBlob(p), err

	case typeOBJECT:
		obj, err := b.object()
		if err != nil {
			return Value{}, err
		}
		return ObjectValue(obj), nil

	case typeARRAY:
		arr, err := b.array()
		if err != nil {
			return Value{}, err
		}
		return ObjectValue(arr), nil

	case typeARRAY_TYPED, typeARRAY_TYPE_BYTE_LENGTH:
		arr, err := b.typedArray(t == typeARRAY_TYPE_BYTE_LENGTH)
		if err != nil {
			return Value{}, err
		}
		return ObjectValue(arr), nil
	}

	return Value{}, corrupt(ErrUnknownType, at, int64(t))
}
