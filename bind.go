package kv3

import (
	"fmt"
	"reflect"
)

var (
	valueType     = reflect.TypeOf(Value{})
	objectPtrType = reflect.TypeOf((*Object)(nil))
)

// Bind copies the properties of o into the struct v points to. A field
// binds to the property its kv3 tag names, or to the property with the
// field's own name; `kv3:"-"` skips it. Collections bind to structs and
// string-keyed maps, arrays to slices and arrays, and fields of type Value
// or *Object receive the node as is. Properties without a field are
// ignored.
func (o *Object) Bind(v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%w: Bind needs a non-nil pointer, got %T", ErrBind, v)
	}
	return bindValue(ObjectValue(o), rv.Elem(), 0)
}

func bindError(v Value, dst reflect.Value) error {
	return fmt.Errorf("%w: %v into %v", ErrBind, v.Kind, dst.Type())
}

func bindValue(v Value, dst reflect.Value, depth int) error {
	if depth > defaultMaxDepth {
		return fmt.Errorf("%w: more than %d levels", ErrTooDeep, defaultMaxDepth)
	}

	switch dst.Type() {
	case valueType:
		dst.Set(reflect.ValueOf(v))
		return nil
	case objectPtrType:
		if v.Kind != KindNull && v.obj == nil {
			return bindError(v, dst)
		}
		dst.Set(reflect.ValueOf(v.obj))
		return nil
	}

	switch dst.Kind() {
	case reflect.Pointer:
		if v.IsNull() {
			dst.Set(reflect.Zero(dst.Type()))
			return nil
		}
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		return bindValue(v, dst.Elem(), depth+1)

	case reflect.Interface:
		if dst.NumMethod() != 0 {
			return bindError(v, dst)
		}
		if x := v.Interface(); x != nil {
			dst.Set(reflect.ValueOf(x))
		} else {
			dst.Set(reflect.Zero(dst.Type()))
		}
		return nil

	case reflect.Bool:
		if v.Kind != KindBoolean {
			return bindError(v, dst)
		}
		dst.SetBool(v.Bool())
		return nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if !v.isInteger() || (v.isUnsigned() && int64(v.u) < 0) || dst.OverflowInt(v.Int()) {
			return bindError(v, dst)
		}
		dst.SetInt(v.Int())
		return nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if !v.isInteger() || (!v.isUnsigned() && v.Int() < 0) || dst.OverflowUint(v.Uint()) {
			return bindError(v, dst)
		}
		dst.SetUint(v.Uint())
		return nil

	case reflect.Float32, reflect.Float64:
		if v.Kind != KindFloat && v.Kind != KindDouble && !v.isInteger() {
			return bindError(v, dst)
		}
		dst.SetFloat(v.Float())
		return nil

	case reflect.String:
		if v.Kind != KindString {
			return bindError(v, dst)
		}
		dst.SetString(v.Str())
		return nil

	case reflect.Slice:
		if v.Kind == KindBinaryBlob && dst.Type().Elem().Kind() == reflect.Uint8 {
			dst.SetBytes(append([]byte(nil), v.Bytes()...))
			return nil
		}
		if v.Kind != KindArray {
			return bindError(v, dst)
		}
		s := reflect.MakeSlice(dst.Type(), v.obj.Len(), v.obj.Len())
		for i, e := range v.obj.Values() {
			if err := bindValue(e, s.Index(i), depth+1); err != nil {
				return err
			}
		}
		dst.Set(s)
		return nil

	case reflect.Array:
		var elems []Value
		switch {
		case v.Kind == KindArray:
			elems = v.obj.Values()
		case v.Kind == KindBinaryBlob && dst.Type().Elem().Kind() == reflect.Uint8:
			for _, c := range v.Bytes() {
				elems = append(elems, UInt32(uint32(c)))
			}
		default:
			return bindError(v, dst)
		}
		if len(elems) > dst.Len() {
			return fmt.Errorf("%w: %d elements into %v", ErrBind, len(elems), dst.Type())
		}
		for i, e := range elems {
			if err := bindValue(e, dst.Index(i), depth+1); err != nil {
				return err
			}
		}
		return nil

	case reflect.Map:
		if v.Kind != KindCollection || dst.Type().Key().Kind() != reflect.String {
			return bindError(v, dst)
		}
		m := reflect.MakeMapWithSize(dst.Type(), v.obj.Len())
		for _, p := range v.obj.Properties() {
			e := reflect.New(dst.Type().Elem()).Elem()
			if err := bindValue(p.Value, e, depth+1); err != nil {
				return withBindField(err, p.Name)
			}
			m.SetMapIndex(reflect.ValueOf(p.Name).Convert(dst.Type().Key()), e)
		}
		dst.Set(m)
		return nil

	case reflect.Struct:
		if v.Kind != KindCollection {
			return bindError(v, dst)
		}
		tags := structTags.Get(dst.Type())
		for _, p := range v.obj.Properties() {
			i, ok := tags[p.Name]
			if !ok {
				continue
			}
			if err := bindValue(p.Value, dst.Field(i), depth+1); err != nil {
				return withBindField(err, p.Name)
			}
		}
		return nil
	}

	return bindError(v, dst)
}

func withBindField(err error, name string) error {
	return fmt.Errorf("%s: %w", name, err)
}
