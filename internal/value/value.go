package value

import (
	"iter"
	"strconv"
	"strings"
)

// Value is a sealed interface over the JSON-compatible payload types.
// Only Null, String, Int, Float, Bool, Array and Object implement it.
type Value interface {
	value() // Sealed - only these types implement it
}

// Null represents a JSON null.
// Using an explicit type keeps "stored null" distinct from a nil interface.
type Null struct{}

func (Null) value() {}

// String represents a string value.
type String string

func (String) value() {}

// Int represents an integer value. Integers and floats are never conflated:
// Int(1) and Float(1) are different values.
type Int int64

func (Int) value() {}

// Float represents a floating point value.
type Float float64

func (Float) value() {}

// Bool represents a boolean value.
type Bool bool

func (Bool) value() {}

// Array represents an ordered list of values.
type Array []Value

func (Array) value() {}

// Pair is a single key/value entry of an Object.
type Pair struct {
	Key   string
	Value Value
}

// O is a shorthand for Pair for ergonomic construction.
// Example: NewObject(O("theme", String("dark")), O("views", Int(100)))
func O(key string, v Value) Pair {
	return Pair{Key: key, Value: v}
}

// Object is an insertion-ordered mapping from string keys to values.
//
// Methods never mutate the receiver; they return a new Object. A nil Object
// encodes as JSON null and is used for the cleared payload state, while
// Object{} encodes as {}.
type Object []Pair

func (Object) value() {}

// NewObject builds an Object from pairs. Later duplicates replace the value
// of the earlier entry and keep its position.
func NewObject(pairs ...Pair) Object {
	obj := make(Object, 0, len(pairs))
	for _, p := range pairs {
		if i := obj.index(p.Key); i >= 0 {
			obj[i].Value = p.Value
			continue
		}
		obj = append(obj, p)
	}
	return obj
}

func (o Object) index(key string) int {
	for i, p := range o {
		if p.Key == key {
			return i
		}
	}
	return -1
}

// Len returns the number of entries.
func (o Object) Len() int {
	return len(o)
}

// Get returns the value stored under key.
func (o Object) Get(key string) (Value, bool) {
	if i := o.index(key); i >= 0 {
		return o[i].Value, true
	}
	return nil, false
}

// Has reports whether key exists at the top level.
func (o Object) Has(key string) bool {
	return o.index(key) >= 0
}

// HasPath reports whether path exists. A literal top-level key wins;
// otherwise the path is split on "." and walked through nested objects
// (and arrays, by numeric index).
func (o Object) HasPath(path string) bool {
	if o.Has(path) {
		return true
	}
	if !strings.Contains(path, ".") {
		return false
	}

	var cur Value = o
	for _, seg := range strings.Split(path, ".") {
		switch c := cur.(type) {
		case Object:
			next, ok := c.Get(seg)
			if !ok {
				return false
			}
			cur = next
		case Array:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(c) {
				return false
			}
			cur = c[i]
		default:
			return false
		}
	}
	return true
}

// Keys returns the keys in stored order.
func (o Object) Keys() []string {
	keys := make([]string, len(o))
	for i, p := range o {
		keys[i] = p.Key
	}
	return keys
}

// All iterates over the entries in stored order.
func (o Object) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		for _, p := range o {
			if !yield(p.Key, p.Value) {
				return
			}
		}
	}
}

// Clone returns a shallow copy that is never nil.
func (o Object) Clone() Object {
	out := make(Object, len(o))
	copy(out, o)
	return out
}

// With returns a copy with key set to v. An existing key keeps its position.
func (o Object) With(key string, v Value) Object {
	out := o.Clone()
	if i := out.index(key); i >= 0 {
		out[i].Value = v
		return out
	}
	return append(out, Pair{Key: key, Value: v})
}

// Merge returns o overlaid with other: keys of other replace existing values
// in place, new keys are appended in other's order.
func (o Object) Merge(other Object) Object {
	out := o.Clone()
	for _, p := range other {
		if i := out.index(p.Key); i >= 0 {
			out[i].Value = p.Value
			continue
		}
		out = append(out, p)
	}
	return out
}

// Only returns the top-level entries whose key is listed, in stored order.
func (o Object) Only(keys ...string) Object {
	out := Object{}
	for _, p := range o {
		for _, k := range keys {
			if p.Key == k {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// Except returns a copy without the listed keys. A key that exists literally
// is removed; otherwise a dotted key removes the leaf of that path inside
// nested objects.
func (o Object) Except(keys ...string) Object {
	out := o.Clone()
	for _, k := range keys {
		if i := out.index(k); i >= 0 {
			out = append(out[:i:i], out[i+1:]...)
			continue
		}
		if strings.Contains(k, ".") {
			out = forgetPath(out, strings.Split(k, "."))
		}
	}
	return out
}

// forgetPath removes the leaf addressed by parts, copying every object on
// the way down. Missing or non-object intermediates leave o unchanged.
func forgetPath(o Object, parts []string) Object {
	i := o.index(parts[0])
	if i < 0 {
		return o
	}
	if len(parts) == 1 {
		out := o.Clone()
		return append(out[:i:i], out[i+1:]...)
	}
	child, ok := o[i].Value.(Object)
	if !ok {
		return o
	}
	out := o.Clone()
	out[i].Value = forgetPath(child, parts[1:])
	return out
}

// String returns the JSON encoding of the object.
func (o Object) String() string {
	data, err := Marshal(o)
	if err != nil {
		return "<invalid: " + err.Error() + ">"
	}
	return string(data)
}
