package value

import (
	"fmt"
)

// Tag identifies the variant held by a Value.
type Tag int

const (
	TagNull Tag = iota
	TagBool
	TagNumber
	TagString
	TagList
	TagObject
	TagBinary
	TagEnum
)

// String returns a human-readable name for the tag, used in error messages.
func (t Tag) String() string {
	switch t {
	case TagNull:
		return "null"
	case TagBool:
		return "bool"
	case TagNumber:
		return "number"
	case TagString:
		return "string"
	case TagList:
		return "list"
	case TagObject:
		return "object"
	case TagBinary:
		return "binary"
	case TagEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// Value is the dynamic, JSON-like type used throughout the resolver
// pipeline for arguments, context selections, and row projections.
type Value struct {
	tag    Tag
	b      bool
	num    Number
	str    string
	list   []Value
	object map[string]Value
	bin    []byte
	enum   string
}

// Null returns the null value.
func Null() Value { return Value{tag: TagNull} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{tag: TagBool, b: b} }

// String wraps a string.
func String(s string) Value { return Value{tag: TagString, str: s} }

// Binary wraps a byte slice.
func Binary(b []byte) Value { return Value{tag: TagBinary, bin: b} }

// Enum wraps an enum member name.
func Enum(e string) Value { return Value{tag: TagEnum, enum: e} }

// List wraps a list of values.
func List(vs []Value) Value { return Value{tag: TagList, list: vs} }

// Object wraps a string-keyed map of values.
func Object(m map[string]Value) Value { return Value{tag: TagObject, object: m} }

// FromNumber wraps a Number.
func FromNumber(n Number) Value { return Value{tag: TagNumber, num: n} }

// I32 wraps a 32-bit signed integer.
func I32(v int32) Value { return FromNumber(NumberI32(v)) }

// I64 wraps a 64-bit signed integer.
func I64(v int64) Value { return FromNumber(NumberI64(v)) }

// U64 wraps a 64-bit unsigned integer.
func U64(v uint64) Value { return FromNumber(NumberU64(v)) }

// F32 wraps a 32-bit float.
func F32(v float32) Value { return FromNumber(NumberF32(v)) }

// F64 wraps a 64-bit float.
func F64(v float64) Value { return FromNumber(NumberF64(v)) }

// Tag returns the variant held by v.
func (v Value) Tag() Tag { return v.tag }

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.tag == TagNull }

// AsBool returns the boolean payload. ok is false if v is not a Bool.
func (v Value) AsBool() (val, ok bool) {
	if v.tag != TagBool {
		return false, false
	}
	return v.b, true
}

// AsNumber returns the Number payload. ok is false if v is not a Number.
func (v Value) AsNumber() (Number, bool) {
	if v.tag != TagNumber {
		return Number{}, false
	}
	return v.num, true
}

// AsString returns the string payload. ok is false if v is not a String.
func (v Value) AsString() (string, bool) {
	if v.tag != TagString {
		return "", false
	}
	return v.str, true
}

// AsBinary returns the byte payload. ok is false if v is not Binary.
func (v Value) AsBinary() ([]byte, bool) {
	if v.tag != TagBinary {
		return nil, false
	}
	return v.bin, true
}

// AsEnum returns the enum member name. ok is false if v is not an Enum.
func (v Value) AsEnum() (string, bool) {
	if v.tag != TagEnum {
		return "", false
	}
	return v.enum, true
}

// AsList returns the list payload. ok is false if v is not a List.
func (v Value) AsList() ([]Value, bool) {
	if v.tag != TagList {
		return nil, false
	}
	return v.list, true
}

// AsObject returns the object payload. ok is false if v is not an Object.
func (v Value) AsObject() (map[string]Value, bool) {
	if v.tag != TagObject {
		return nil, false
	}
	return v.object, true
}

// Field looks up a key in an Object value. Returns Null, false if v is
// not an Object or the key is absent — callers distinguish "absent" from
// "present and null" via the second return.
func (v Value) Field(key string) (Value, bool) {
	if v.tag != TagObject {
		return Null(), false
	}
	val, ok := v.object[key]
	return val, ok
}

// Equal reports whether v and other are equal. Two Numbers of different
// tags are equal iff their widened casts agree (see Number.Compare).
// Cross-variant comparisons (e.g. String vs Number) return an error,
// mirroring the source's typed equality rather than silently false.
func Equal(a, b Value) (bool, error) {
	if a.tag == TagNull || b.tag == TagNull {
		return a.tag == TagNull && b.tag == TagNull, nil
	}
	if a.tag != b.tag {
		return false, fmt.Errorf("value: cannot compare %s with %s", a.tag, b.tag)
	}
	switch a.tag {
	case TagBool:
		return a.b == b.b, nil
	case TagNumber:
		ord, err := Compare(a.num, b.num)
		if err != nil {
			return false, err
		}
		return ord == OrderEqual, nil
	case TagString:
		return a.str == b.str, nil
	case TagEnum:
		return a.enum == b.enum, nil
	case TagBinary:
		if len(a.bin) != len(b.bin) {
			return false, nil
		}
		for i := range a.bin {
			if a.bin[i] != b.bin[i] {
				return false, nil
			}
		}
		return true, nil
	case TagList:
		if len(a.list) != len(b.list) {
			return false, nil
		}
		for i := range a.list {
			eq, err := Equal(a.list[i], b.list[i])
			if err != nil || !eq {
				return eq, err
			}
		}
		return true, nil
	case TagObject:
		if len(a.object) != len(b.object) {
			return false, nil
		}
		for k, av := range a.object {
			bv, ok := b.object[k]
			if !ok {
				return false, nil
			}
			eq, err := Equal(av, bv)
			if err != nil || !eq {
				return eq, err
			}
		}
		return true, nil
	default:
		return false, fmt.Errorf("value: unsupported tag %s", a.tag)
	}
}

// GoString renders a Value as a plain Go value (bool, string, a number
// as int32, int64, uint64, float32 or float64 per its width, []byte,
// []any, map[string]any, or nil), for use at the edges —
// JSON marshaling, SQL driver arguments — where a dynamic union is no
// longer needed.
func (v Value) GoString() any {
	switch v.tag {
	case TagNull:
		return nil
	case TagBool:
		return v.b
	case TagNumber:
		return v.num.GoValue()
	case TagString:
		return v.str
	case TagEnum:
		return v.enum
	case TagBinary:
		return v.bin
	case TagList:
		out := make([]any, len(v.list))
		for i, e := range v.list {
			out[i] = e.GoString()
		}
		return out
	case TagObject:
		out := make(map[string]any, len(v.object))
		for k, e := range v.object {
			out[k] = e.GoString()
		}
		return out
	default:
		return nil
	}
}

// FromGo converts a plain Go value (as produced by encoding/json
// Unmarshal into any, or passed as a GraphQL variable) into a Value.
func FromGo(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case []byte:
		return Binary(t), nil
	case int:
		return I64(int64(t)), nil
	case int32:
		return I32(t), nil
	case int64:
		return I64(t), nil
	case uint64:
		return U64(t), nil
	case float32:
		return F32(t), nil
	case float64:
		return F64(t), nil
	case []any:
		out := make([]Value, len(t))
		for i, e := range t {
			cv, err := FromGo(e)
			if err != nil {
				return Value{}, err
			}
			out[i] = cv
		}
		return List(out), nil
	case map[string]any:
		out := make(map[string]Value, len(t))
		for k, e := range t {
			cv, err := FromGo(e)
			if err != nil {
				return Value{}, err
			}
			out[k] = cv
		}
		return Object(out), nil
	default:
		return Value{}, fmt.Errorf("value: unsupported go type %T", v)
	}
}
