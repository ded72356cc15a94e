package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Value is a sealed interface over the JSON value kinds.
// Only Null, Bool, Number, String, Array and *Object implement it.
//
// MarshalJSON does not HTML-escape. Passing a Value through json.Marshal
// does, so wire encoders call MarshalJSON directly.
type Value interface {
	json.Marshaler
	value() // Sealed
}

// Null represents a JSON null.
type Null struct{}

func (Null) value() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// Bool represents a JSON boolean.
type Bool bool

func (Bool) value() {}

// MarshalJSON implements json.Marshaler for Bool.
func (b Bool) MarshalJSON() ([]byte, error) {
	if b {
		return []byte("true"), nil
	}
	return []byte("false"), nil
}

// Number represents a JSON number as its literal text.
// Keeping the text avoids float64 round-trip drift on re-encoding.
type Number string

func (Number) value() {}

// MarshalJSON implements json.Marshaler for Number.
func (n Number) MarshalJSON() ([]byte, error) {
	if !isNumberLiteral(string(n)) {
		return nil, fmt.Errorf("invalid number literal %q", string(n))
	}
	return []byte(n), nil
}

// Float64 returns the number as a float64.
func (n Number) Float64() (float64, error) {
	return strconv.ParseFloat(string(n), 64)
}

// Int64 returns the number as an int64.
// Fails for fractional or out-of-range values.
func (n Number) Int64() (int64, error) {
	return strconv.ParseInt(string(n), 10, 64)
}

// String represents a JSON string.
type String string

func (String) value() {}

// MarshalJSON implements json.Marshaler for String.
func (s String) MarshalJSON() ([]byte, error) {
	return marshalString(string(s))
}

// Array represents a JSON array.
type Array []Value

func (Array) value() {}

// MarshalJSON implements json.Marshaler for Array.
func (a Array) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, elem := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := marshalValue(elem)
		if err != nil {
			return nil, fmt.Errorf("array[%d]: %w", i, err)
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// Field is one key/value pair of an Object.
type Field struct {
	Key   string
	Value Value
}

// Object is a JSON object that remembers key insertion order.
// The zero value is an empty object ready for use.
type Object struct {
	fields []Field
	index  map[string]int
}

func (*Object) value() {}

// NewObject creates an object from fields in order.
// A repeated key replaces the earlier value but keeps the earlier position.
func NewObject(fields ...Field) *Object {
	obj := &Object{}
	for _, f := range fields {
		obj.Set(f.Key, f.Value)
	}
	return obj
}

// F is a shorthand for Field.
// Example: NewObject(F("_type", String("location")), F("created_at", Number("100")))
func F(key string, v Value) Field {
	return Field{Key: key, Value: v}
}

// Len returns the number of fields.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.fields)
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil || o.index == nil {
		return nil, false
	}
	i, ok := o.index[key]
	if !ok {
		return nil, false
	}
	return o.fields[i].Value, true
}

// Set stores v under key. An existing key keeps its position.
func (o *Object) Set(key string, v Value) {
	if v == nil {
		v = Null{}
	}
	if o.index == nil {
		o.index = make(map[string]int)
	}
	if i, ok := o.index[key]; ok {
		o.fields[i].Value = v
		return
	}
	o.index[key] = len(o.fields)
	o.fields = append(o.fields, Field{Key: key, Value: v})
}

// Delete removes key and returns the value it held.
func (o *Object) Delete(key string) (Value, bool) {
	if o == nil || o.index == nil {
		return nil, false
	}
	i, ok := o.index[key]
	if !ok {
		return nil, false
	}
	v := o.fields[i].Value
	o.fields = append(o.fields[:i], o.fields[i+1:]...)
	delete(o.index, key)
	for j := i; j < len(o.fields); j++ {
		o.index[o.fields[j].Key] = j
	}
	return v, true
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	keys := make([]string, 0, o.Len())
	if o == nil {
		return keys
	}
	for _, f := range o.fields {
		keys = append(keys, f.Key)
	}
	return keys
}

// Fields returns a copy of the fields in insertion order.
func (o *Object) Fields() []Field {
	if o == nil {
		return nil
	}
	out := make([]Field, len(o.fields))
	copy(out, o.fields)
	return out
}

// Clone returns a deep copy of the object.
func (o *Object) Clone() *Object {
	out := &Object{}
	if o == nil {
		return out
	}
	for _, f := range o.fields {
		out.Set(f.Key, Clone(f.Value))
	}
	return out
}

// MarshalJSON implements json.Marshaler for *Object in insertion order.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if o != nil {
		for i, f := range o.fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			keyBytes, err := marshalString(f.Key)
			if err != nil {
				return nil, fmt.Errorf("marshal key %q: %w", f.Key, err)
			}
			buf.Write(keyBytes)
			buf.WriteByte(':')
			valBytes, err := marshalValue(f.Value)
			if err != nil {
				return nil, fmt.Errorf("marshal value for key %q: %w", f.Key, err)
			}
			buf.Write(valBytes)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler for *Object.
func (o *Object) UnmarshalJSON(data []byte) error {
	v, err := Decode(data)
	if err != nil {
		return err
	}
	obj, ok := v.(*Object)
	if !ok {
		return fmt.Errorf("expected JSON object, got %s", KindOf(v))
	}
	*o = *obj
	return nil
}

// Clone returns a deep copy of v.
func Clone(v Value) Value {
	switch val := v.(type) {
	case Array:
		out := make(Array, len(val))
		for i, elem := range val {
			out[i] = Clone(elem)
		}
		return out
	case *Object:
		return val.Clone()
	default:
		return v
	}
}

// KindOf names the JSON kind of v for diagnostics.
func KindOf(v Value) string {
	switch v.(type) {
	case nil, Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case *Object:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func marshalValue(v Value) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return v.MarshalJSON()
}

// marshalString encodes s without HTML escaping.
func marshalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func isNumberLiteral(s string) bool {
	return s != "" && json.Valid([]byte(s)) && (s[0] == '-' || (s[0] >= '0' && s[0] <= '9'))
}
