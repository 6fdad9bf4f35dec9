// Package docvalue provides the dynamically typed document value used at
// the boundary between producer-supplied data and the core's compact
// record encoding.
package docvalue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Kind discriminates the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// Value is a tagged union over the scalar/object/array shapes a document
// field can hold: Null, Bool, Number, String, Array[Value], Object[Name→Value].
type Value struct {
	kind   Kind
	b      bool
	num    float64
	str    string
	arr    []Value
	obj    map[string]Value
	objKey []string // sorted key order, for stable re-encoding
}

// Null returns the null Value.
func Null() Value { return Value{kind: KindNull} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number returns a numeric Value.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// String returns a string Value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Array returns an array Value.
func Array(items []Value) Value { return Value{kind: KindArray, arr: items} }

// Object returns an object Value from a map, recording key order
// deterministically (sorted) since map iteration order is not stable.
func Object(fields map[string]Value) Value {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return Value{kind: KindObject, obj: fields, objKey: keys}
}

// Kind returns the Value's discriminant.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v holds Null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload; valid only when Kind() == KindBool.
func (v Value) AsBool() bool { return v.b }

// AsNumber returns the numeric payload; valid only when Kind() == KindNumber.
func (v Value) AsNumber() float64 { return v.num }

// AsString returns the string payload; valid only when Kind() == KindString.
func (v Value) AsString() string { return v.str }

// AsArray returns the array payload; valid only when Kind() == KindArray.
func (v Value) AsArray() []Value { return v.arr }

// AsObject returns the object payload; valid only when Kind() == KindObject.
func (v Value) AsObject() map[string]Value { return v.obj }

// ObjectKeys returns the object's keys in stable (sorted) order; valid only
// when Kind() == KindObject.
func (v Value) ObjectKeys() []string { return v.objKey }

// FromJSON converts a value produced by encoding/json.Unmarshal (into any)
// into a Value.
func FromJSON(data any) Value {
	switch t := data.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case float64:
		return Number(t)
	case string:
		return String(t)
	case []any:
		items := make([]Value, len(t))
		for i, e := range t {
			items[i] = FromJSON(e)
		}
		return Array(items)
	case map[string]any:
		fields := make(map[string]Value, len(t))
		for k, e := range t {
			fields[k] = FromJSON(e)
		}
		return Object(fields)
	default:
		panic(fmt.Sprintf("docvalue: unsupported JSON type %T", data))
	}
}

// MarshalJSON implements json.Marshaler so a Value round-trips through
// encoding/json, writing object keys in sorted order.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		return json.Marshal(v.num)
	case KindString:
		return json.Marshal(v.str)
	case KindArray:
		return json.Marshal(v.arr)
	case KindObject:
		buf := []byte{'{'}
		for i, k := range v.objKey {
			if i > 0 {
				buf = append(buf, ',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf = append(buf, kb...)
			buf = append(buf, ':')
			vb, err := json.Marshal(v.obj[k])
			if err != nil {
				return nil, err
			}
			buf = append(buf, vb...)
		}
		buf = append(buf, '}')
		return buf, nil
	default:
		return nil, fmt.Errorf("docvalue: unknown kind %d", v.kind)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*v = fromJSONNumber(raw)
	return nil
}

func fromJSONNumber(data any) Value {
	switch t := data.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case json.Number:
		f, _ := t.Float64()
		return Number(f)
	case float64:
		return Number(t)
	case string:
		return String(t)
	case []any:
		items := make([]Value, len(t))
		for i, e := range t {
			items[i] = fromJSONNumber(e)
		}
		return Array(items)
	case map[string]any:
		fields := make(map[string]Value, len(t))
		for k, e := range t {
			fields[k] = fromJSONNumber(e)
		}
		return Object(fields)
	default:
		return Null()
	}
}
