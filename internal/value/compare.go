package value

import "strings"

// Equal reports strict equality: both values have the same kind and the same
// content. Arrays and objects compare element by element in order, so
// {"a":1,"b":2} and {"b":2,"a":1} differ. A nil Value equals Null.
func Equal(a, b Value) bool {
	if a == nil {
		a = Null{}
	}
	if b == nil {
		b = Null{}
	}

	switch x := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case String:
		y, ok := b.(String)
		return ok && x == y
	case Int:
		y, ok := b.(Int)
		return ok && x == y
	case Float:
		y, ok := b.(Float)
		return ok && x == y
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case Array:
		y, ok := b.(Array)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case Object:
		y, ok := b.(Object)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if x[i].Key != y[i].Key || !Equal(x[i].Value, y[i].Value) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// IsEmpty is the validity gate used before keys-based operations: nil, Null,
// a whitespace-only String, an empty Array and an empty Object are empty.
// Zero numbers and false are not.
func IsEmpty(v Value) bool {
	switch x := v.(type) {
	case nil, Null:
		return true
	case String:
		return IsBlank(string(x))
	case Array:
		return len(x) == 0
	case Object:
		return len(x) == 0
	default:
		return false
	}
}

// IsBlank reports whether s is empty after trimming whitespace.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// KeysEmpty applies IsEmpty to a key list: no keys, or the single-key form
// with a blank key.
func KeysEmpty(keys []string) bool {
	return len(keys) == 0 || (len(keys) == 1 && IsBlank(keys[0]))
}
