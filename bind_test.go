package kv3

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bindVec struct {
	X, Y, Z float32
}

type bindModel struct {
	Name     string            `kv3:"m_name"`
	Count    int
	Scale    float64           `kv3:"m_flScale"`
	Tags     []string          `kv3:"m_tags"`
	Origin   bindVec           `kv3:"m_vecOrigin"`
	Corners  [2]bindVec        `kv3:"m_corners"`
	Data     []byte            `kv3:"m_data"`
	Extra    map[string]int64  `kv3:"m_extra"`
	Raw      Value             `kv3:"m_raw"`
	Children *Object           `kv3:"m_children"`
	Parent   *bindVec          `kv3:"m_parent"`
	Any      any               `kv3:"m_any"`
	Enabled  bool              `kv3:"m_bEnabled"`
	Small    uint8             `kv3:"m_nSmall"`
	Skipped  string            `kv3:"-"`
	unexp    string
	Nested   map[string][]bool `kv3:"m_nested"`
}

func vec(x, y, z float64) Value {
	return ObjectValue(NewObject().Set("X", Double(x)).Set("Y", Float(float32(y))).Set("Z", Int32(int32(z))))
}

func TestBind(t *testing.T) {
	children := NewArray(Int32(1))
	root := NewObject().
		Set("m_name", String("crate")).
		Set("Count", Int32(3)).
		Set("m_flScale", Float(0.5)).
		Set("m_tags", ObjectValue(NewArray(String("a"), String("b")))).
		Set("m_vecOrigin", vec(1, 2, 3)).
		Set("m_corners", ObjectValue(NewArray(vec(0, 0, 0), vec(4, 5, 6)))).
		Set("m_data", BinaryBlob([]byte{1, 2})).
		Set("m_extra", ObjectValue(NewObject().Set("k", UInt32(9)))).
		Set("m_raw", String("raw").WithFlag(FlagSoundEvent)).
		Set("m_children", ObjectValue(children)).
		Set("m_parent", vec(7, 8, 9)).
		Set("m_any", ObjectValue(NewArray(Int16(1), String("x")))).
		Set("m_bEnabled", Bool(true)).
		Set("m_nSmall", Int64(200)).
		Set("Skipped", String("no")).
		Set("unexp", String("no")).
		Set("m_nested", ObjectValue(NewObject().Set("flags", ObjectValue(NewArray(Bool(true), Bool(false)))))).
		Set("m_unknown", Null())

	var m bindModel
	m.Skipped = "kept"
	require.NoError(t, root.Bind(&m))

	want := bindModel{
		Name:     "crate",
		Count:    3,
		Scale:    0.5,
		Tags:     []string{"a", "b"},
		Origin:   bindVec{1, 2, 3},
		Corners:  [2]bindVec{{}, {4, 5, 6}},
		Data:     []byte{1, 2},
		Extra:    map[string]int64{"k": 9},
		Raw:      String("raw").WithFlag(FlagSoundEvent),
		Children: children,
		Parent:   &bindVec{7, 8, 9},
		Any:      []any{int16(1), "x"},
		Enabled:  true,
		Small:    200,
		Skipped:  "kept",
		Nested:   map[string][]bool{"flags": {true, false}},
	}
	if diff := cmp.Diff(want, m, cmp.AllowUnexported(bindModel{}, Value{}, Object{})); diff != "" {
		t.Errorf("Bind mismatch (-want +got):\n%s", diff)
	}
}

func TestBindNull(t *testing.T) {
	var m struct {
		P *bindVec
		O *Object
	}
	m.P = &bindVec{X: 1}
	require.NoError(t, NewObject().Set("P", Null()).Set("O", Null()).Bind(&m))
	assert.Nil(t, m.P)
	assert.Nil(t, m.O)
}

func TestBindErrors(t *testing.T) {
	tests := []struct {
		name string
		root *Object
		dst  any
	}{
		{"string into int", NewObject().Set("N", String("1")), &struct{ N int }{}},
		{"overflow", NewObject().Set("N", Int32(300)), &struct{ N int8 }{}},
		{"negative", NewObject().Set("N", Int32(-1)), &struct{ N uint }{}},
		{"unsigned high bit", NewObject().Set("N", UInt64(math.MaxUint64)), &struct{ N int64 }{}},
		{"double into bool", NewObject().Set("N", Double(1)), &struct{ N bool }{}},
		{"array into struct", NewObject().Set("N", ObjectValue(NewArray())), &struct{ N bindVec }{}},
		{"too many elements", NewObject().Set("N", ObjectValue(NewArray(Null(), Null()))), &struct{ N [1]any }{}},
		{"int keys", NewObject().Set("N", ObjectValue(NewObject())), &struct{ N map[int]int }{}},
		{"scalar into object", NewObject().Set("N", Int32(1)), &struct{ N *Object }{}},
		{"nested", NewObject().Set("N", ObjectValue(NewObject().Set("X", String("x")))), &struct{ N bindVec }{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.root.Bind(tt.dst)
			assert.ErrorIs(t, err, ErrBind)
			assert.Contains(t, err.Error(), "N")
		})
	}

	assert.ErrorIs(t, NewObject().Bind(struct{}{}), ErrBind)
	var nilPtr *bindVec
	assert.ErrorIs(t, NewObject().Bind(nilPtr), ErrBind)
}
