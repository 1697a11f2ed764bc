// Package document converts caller input into the shapes the metadata
// engines persist.
//
// Input arrives either as a single payload object (Flat) or as a list of
// payload objects (Nested). The identity key is a derived view over the
// document identifier: it is stripped from input before writes and injected
// into payloads on reads.
package document

import "github.com/roach88/metastore/internal/value"

// Shape classifies caller input.
type Shape int

const (
	// Flat is a single payload object.
	Flat Shape = iota
	// Nested is a list of payload objects.
	Nested
)

func (s Shape) String() string {
	switch s {
	case Flat:
		return "flat"
	case Nested:
		return "nested"
	default:
		return "unknown"
	}
}

// DetectShape inspects the first entry of input: the first element of an
// Array or the first value of an Object. Input is Nested iff that entry is a
// non-empty Object.
func DetectShape(input value.Value) Shape {
	first, ok := firstEntry(input)
	if !ok {
		return Flat
	}
	if obj, ok := first.(value.Object); ok && obj.Len() > 0 {
		return Nested
	}
	return Flat
}

func firstEntry(input value.Value) (value.Value, bool) {
	switch in := input.(type) {
	case value.Array:
		if len(in) == 0 {
			return nil, false
		}
		return in[0], true
	case value.Object:
		if len(in) == 0 {
			return nil, false
		}
		return in[0].Value, true
	default:
		return nil, false
	}
}

// Elements returns the entries of input in order: Array elements or Object
// values. Any other input yields nil.
func Elements(input value.Value) []value.Value {
	switch in := input.(type) {
	case value.Array:
		out := make([]value.Value, len(in))
		copy(out, in)
		return out
	case value.Object:
		out := make([]value.Value, len(in))
		for i, p := range in {
			out[i] = p.Value
		}
		return out
	default:
		return nil
	}
}

// StripIdentityKey removes key from input. A Flat object loses key at the
// top level (a dotted key removes the nested leaf); a Nested input loses key
// from every element object, keeping its container type. Other input is
// returned unchanged.
func StripIdentityKey(input value.Value, key string) value.Value {
	if DetectShape(input) == Nested {
		switch in := input.(type) {
		case value.Array:
			out := make(value.Array, len(in))
			for i, elem := range in {
				out[i] = stripElement(elem, key)
			}
			return out
		case value.Object:
			out := make(value.Object, len(in))
			for i, p := range in {
				out[i] = value.Pair{Key: p.Key, Value: stripElement(p.Value, key)}
			}
			return out
		}
	}

	if obj, ok := input.(value.Object); ok {
		return StripObject(obj, key)
	}
	return input
}

func stripElement(elem value.Value, key string) value.Value {
	if obj, ok := elem.(value.Object); ok {
		return StripObject(obj, key)
	}
	return elem
}

// StripObject is StripIdentityKey for a single payload. A nil payload stays
// nil.
func StripObject(payload value.Object, key string) value.Object {
	if payload == nil {
		return nil
	}
	return payload.Except(key)
}

// InjectIdentityKey returns a new object whose first entry is key. Its value
// is the one stored under key when the payload has it, otherwise id. The
// remaining stored entries follow in their stored order.
func InjectIdentityKey(payload value.Object, id, key string) value.Object {
	out := make(value.Object, 0, len(payload)+1)
	out = append(out, value.Pair{Key: key, Value: value.String(id)})
	for _, p := range payload {
		if p.Key == key {
			out[0].Value = p.Value
			continue
		}
		out = append(out, p)
	}
	return out
}
