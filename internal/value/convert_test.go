package value

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func posInf() float64 {
	return math.Inf(1)
}

func TestFromAny(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected Value
	}{
		{"nil", nil, Null{}},
		{"value passthrough", String("x"), String("x")},
		{"bool", true, Bool(true)},
		{"string", "s", String("s")},
		{"int", 7, Int(7)},
		{"int32", int32(-3), Int(-3)},
		{"uint8", uint8(200), Int(200)},
		{"uint64 overflow", uint64(math.MaxUint64), Float(math.MaxUint64)},
		{"float64", 2.5, Float(2.5)},
		{"json number int", json.Number("12"), Int(12)},
		{"json number float", json.Number("1.25"), Float(1.25)},
		{"slice", []any{1, "a", nil}, Array{Int(1), String("a"), Null{}}},
		{"typed slice", []string{"a", "b"}, Array{String("a"), String("b")}},
		{"nil typed slice", []int(nil), Array{}},
		{
			"map sorted",
			map[string]any{"b": 1, "a": map[string]any{"z": true, "y": false}},
			NewObject(O("a", NewObject(O("y", Bool(false)), O("z", Bool(true)))), O("b", Int(1))),
		},
		{"typed map", map[string]string{"k": "v"}, NewObject(O("k", String("v")))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := FromAny(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, v)
		})
	}
}

func TestFromAnyUnsupported(t *testing.T) {
	_, err := FromAny(struct{}{})
	assert.Error(t, err)

	_, err = FromAny(map[int]string{1: "x"})
	assert.Error(t, err)

	_, err = FromAny([]any{make(chan int)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "array[0]")
}

func TestToAny(t *testing.T) {
	v := NewObject(
		O("s", String("x")),
		O("i", Int(1)),
		O("f", Float(1.5)),
		O("b", Bool(true)),
		O("n", Null{}),
		O("a", Array{Int(2)}),
	)

	assert.Equal(t, map[string]any{
		"s": "x",
		"i": int64(1),
		"f": 1.5,
		"b": true,
		"n": nil,
		"a": []any{int64(2)},
	}, ToAny(v))
	assert.Nil(t, ToAny(Object(nil)))
}
