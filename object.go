package kv3

// Property is one named member of a collection. Members of an array have
// an empty Name that is never read back.
type Property struct {
	Name  string
	Value Value
}

// Object is an ordered list of properties acting either as a collection
// (named members) or as an array (anonymous elements).
type Object struct {
	IsArray bool

	props []Property
	index map[string]int
}

// NewObject returns an empty collection.
func NewObject() *Object {
	return &Object{}
}

// NewArray returns an empty array.
func NewArray(values ...Value) *Object {
	o := &Object{IsArray: true, props: make([]Property, 0, len(values))}
	for _, v := range values {
		o.Append(v)
	}
	return o
}

func newObjectCap(isArray bool, n int) *Object {
	return &Object{IsArray: isArray, props: make([]Property, 0, n)}
}

// Add appends a property. On a collection an existing name keeps its
// position and has its value replaced; on an array name is ignored.
func (o *Object) Add(name string, v Value) {
	if o.IsArray {
		o.props = append(o.props, Property{Value: v})
		return
	}
	if o.index == nil {
		o.index = make(map[string]int, cap(o.props))
	}
	if i, ok := o.index[name]; ok {
		o.props[i].Value = v
		return
	}
	o.index[name] = len(o.props)
	o.props = append(o.props, Property{Name: name, Value: v})
}

// Set is Add returning o, for building trees inline.
func (o *Object) Set(name string, v Value) *Object {
	o.Add(name, v)
	return o
}

// Append adds an anonymous element.
func (o *Object) Append(v Value) {
	o.Add("", v)
}

func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.props)
}

// Properties returns the members in order. The slice must not be modified.
func (o *Object) Properties() []Property {
	if o == nil {
		return nil
	}
	return o.props
}

// Values returns the member values in order.
func (o *Object) Values() []Value {
	if o == nil {
		return nil
	}
	vs := make([]Value, len(o.props))
	for i, p := range o.props {
		vs[i] = p.Value
	}
	return vs
}

// Index returns the i-th member value.
func (o *Object) Index(i int) Value { return o.props[i].Value }

// Get looks up a collection member by name.
func (o *Object) Get(name string) (Value, bool) {
	if o == nil || o.IsArray {
		return Value{}, false
	}
	i, ok := o.index[name]
	if !ok {
		return Value{}, false
	}
	return o.props[i].Value, true
}

func (o *Object) Has(name string) bool {
	_, ok := o.Get(name)
	return ok
}

func (o *Object) GetString(name string) string {
	v, _ := o.Get(name)
	return v.Str()
}

func (o *Object) GetInt(name string) int64 {
	v, _ := o.Get(name)
	return v.Int()
}

func (o *Object) GetFloat(name string) float64 {
	v, _ := o.Get(name)
	return v.Float()
}

func (o *Object) GetBool(name string) bool {
	v, _ := o.Get(name)
	return v.Bool()
}

// GetObject returns the named collection, or nil.
func (o *Object) GetObject(name string) *Object {
	v, ok := o.Get(name)
	if !ok || v.Kind != KindCollection {
		return nil
	}
	return v.obj
}

// GetArray returns the named array, or nil.
func (o *Object) GetArray(name string) *Object {
	v, ok := o.Get(name)
	if !ok || v.Kind != KindArray {
		return nil
	}
	return v.obj
}

// Equal reports whether o and p hold the same members in the same order.
// Names are compared for collections only.
func (o *Object) Equal(p *Object) bool {
	if o == nil || p == nil {
		return o == p
	}
	if o.IsArray != p.IsArray || len(o.props) != len(p.props) {
		return false
	}
	for i := range o.props {
		if !o.IsArray && o.props[i].Name != p.props[i].Name {
			return false
		}
		if !o.props[i].Value.Equal(p.props[i].Value) {
			return false
		}
	}
	return true
}
