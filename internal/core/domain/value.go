package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// ValueKind tags the variant held by a Value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a decoded JSON value. The zero Value is null.
type Value struct {
	kind ValueKind
	b    bool
	n    json.Number
	s    string
	arr  []Value
	obj  Object
}

// Object is a decoded JSON object, the payload of every successful command.
type Object map[string]Value

func Null() Value { return Value{} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func String(s string) Value { return Value{kind: KindString, s: s} }

func Array(items ...Value) Value { return Value{kind: KindArray, arr: items} }

func ObjectValue(o Object) Value { return Value{kind: KindObject, obj: o} }

// NumberText keeps the literal text of a JSON number.
func NumberText(n json.Number) Value { return Value{kind: KindNumber, n: n} }

// Number wraps a float64.
func Number(f float64) Value {
	return Value{kind: KindNumber, n: json.Number(fmt.Sprint(f))}
}

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsNull() bool    { return v.kind == KindNull }

func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

func (v Value) AsString() (string, bool) {
	return v.s, v.kind == KindString
}

// AsFloat returns the numeric value as float64.
func (v Value) AsFloat() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	f, err := v.n.Float64()
	return f, err == nil
}

// AsInt returns the numeric value when it is an exact integer.
func (v Value) AsInt() (int64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	i, err := v.n.Int64()
	return i, err == nil
}

func (v Value) AsArray() ([]Value, bool) {
	return v.arr, v.kind == KindArray
}

func (v Value) AsObject() (Object, bool) {
	return v.obj, v.kind == KindObject
}

// Native converts the value to plain Go types (nil, bool, json.Number,
// string, []any, map[string]any).
func (v Value) Native() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindArray:
		out := make([]any, len(v.arr))
		for i, item := range v.arr {
			out[i] = item.Native()
		}
		return out
	case KindObject:
		return v.obj.Native()
	default:
		return nil
	}
}

// Native converts the object to map[string]any.
func (o Object) Native() map[string]any {
	out := make(map[string]any, len(o))
	for k, v := range o {
		out[k] = v.Native()
	}
	return out
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Native())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	conv, err := fromNative(raw)
	if err != nil {
		return err
	}
	*v = conv
	return nil
}

// DecodeObject parses body as a JSON object. Any other top-level JSON value,
// trailing data, or malformed input is an error.
func DecodeObject(body []byte) (Object, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("invalid json: trailing data after top-level value")
	}

	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected json object, got %s", describe(raw))
	}

	v, err := fromNative(m)
	if err != nil {
		return nil, err
	}
	return v.obj, nil
}

func fromNative(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return NumberText(t), nil
	case float64:
		return Number(t), nil
	case string:
		return String(t), nil
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			v, err := fromNative(item)
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		return Array(items...), nil
	case map[string]any:
		obj := make(Object, len(t))
		for k, item := range t {
			v, err := fromNative(item)
			if err != nil {
				return Value{}, err
			}
			obj[k] = v
		}
		return ObjectValue(obj), nil
	default:
		return Value{}, fmt.Errorf("unsupported json type %T", raw)
	}
}

func describe(raw any) string {
	switch raw.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case json.Number, float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	default:
		return fmt.Sprintf("%T", raw)
	}
}
