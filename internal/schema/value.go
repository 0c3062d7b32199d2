package schema

import "encoding/json"

// Value is a closed sum over the shapes a frontmatter value can take:
// string, number, bool, list, or null. Reference and date values are
// string-backed but keep their flavor so format checks stay exhaustive.
type Value struct {
	value interface{}
}

type refValue struct{ s string }
type dateValue struct{ s string }

// String creates a string Value.
func String(s string) Value { return Value{value: s} }

// Number creates a numeric Value.
func Number(n float64) Value { return Value{value: n} }

// Bool creates a boolean Value.
func Bool(b bool) Value { return Value{value: b} }

// Ref creates a reference Value (the target of a [[wikilink]]).
func Ref(target string) Value { return Value{value: refValue{target}} }

// Date creates a date Value from its canonical string form.
func Date(s string) Value { return Value{value: dateValue{s}} }

// List creates a list Value.
func List(items []Value) Value { return Value{value: items} }

// Null creates a null Value.
func Null() Value { return Value{value: nil} }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.value == nil }

// IsRef reports whether the value is a reference.
func (v Value) IsRef() bool {
	_, ok := v.value.(refValue)
	return ok
}

// AsString returns the value as a string, if possible. Reference and date
// values answer with their underlying string.
func (v Value) AsString() (string, bool) {
	switch x := v.value.(type) {
	case string:
		return x, true
	case refValue:
		return x.s, true
	case dateValue:
		return x.s, true
	}
	return "", false
}

// AsRef returns the reference target, if the value is a reference.
func (v Value) AsRef() (string, bool) {
	if r, ok := v.value.(refValue); ok {
		return r.s, true
	}
	return "", false
}

// AsNumber returns the value as a float64, if possible.
func (v Value) AsNumber() (float64, bool) {
	if n, ok := v.value.(float64); ok {
		return n, true
	}
	return 0, false
}

// AsBool returns the value as a bool, if possible.
func (v Value) AsBool() (bool, bool) {
	if b, ok := v.value.(bool); ok {
		return b, true
	}
	return false, false
}

// AsList returns the value as a list, if possible.
func (v Value) AsList() ([]Value, bool) {
	if l, ok := v.value.([]Value); ok {
		return l, true
	}
	return nil, false
}

// Raw returns the plain Go representation, suitable for serialization.
// Reference values regain their [[bracket]] syntax.
func (v Value) Raw() interface{} {
	switch x := v.value.(type) {
	case refValue:
		return "[[" + x.s + "]]"
	case dateValue:
		return x.s
	case []Value:
		out := make([]interface{}, len(x))
		for i, item := range x {
			out[i] = item.Raw()
		}
		return out
	default:
		return x
	}
}

// FromRaw converts a plain Go value (e.g. a schema default decoded from
// JSON) to a Value. Lists of interface{} become List values.
func FromRaw(raw interface{}) Value {
	switch x := raw.(type) {
	case nil:
		return Null()
	case string:
		return String(x)
	case bool:
		return Bool(x)
	case float64:
		return Number(x)
	case int:
		return Number(float64(x))
	case int64:
		return Number(float64(x))
	case []interface{}:
		items := make([]Value, 0, len(x))
		for _, item := range x {
			items = append(items, FromRaw(item))
		}
		return List(items)
	default:
		return Null()
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Raw())
}
