// Package jsonvalue is a small tagged-union JSON tree. Object members keep
// their document order so that walks and re-encoding are deterministic.
package jsonvalue

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
)

type Kind int

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "boolean"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Member is one key/value pair of an object.
type Member struct {
	Key   string
	Value Value
}

// Value is an immutable JSON value. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	num  float64
	raw  string // number literal as written
	str  string
	arr  []Value
	obj  []Member
}

var ErrInvalidJSON = errors.New("invalid json")

// Parse decodes a complete JSON document.
func Parse(data []byte) (Value, error) {
	if !gjson.ValidBytes(data) {
		return Value{}, ErrInvalidJSON
	}
	return FromResult(gjson.ParseBytes(data)), nil
}

// ParseString is Parse for strings.
func ParseString(s string) (Value, error) {
	return Parse([]byte(s))
}

// MustParse panics on invalid input; meant for fixtures.
func MustParse(s string) Value {
	v, err := ParseString(s)
	if err != nil {
		panic(fmt.Sprintf("jsonvalue: %v: %q", err, s))
	}
	return v
}

// FromResult converts an already parsed gjson result.
func FromResult(r gjson.Result) Value {
	switch r.Type {
	case gjson.False:
		return Value{kind: Bool}
	case gjson.True:
		return Value{kind: Bool, b: true}
	case gjson.Number:
		return Value{kind: Number, num: r.Num, raw: r.Raw}
	case gjson.String:
		return Value{kind: String, str: r.Str}
	case gjson.JSON:
		if r.IsArray() {
			elems := make([]Value, 0)
			r.ForEach(func(_, v gjson.Result) bool {
				elems = append(elems, FromResult(v))
				return true
			})
			return Value{kind: Array, arr: elems}
		}
		members := make([]Member, 0)
		r.ForEach(func(k, v gjson.Result) bool {
			members = append(members, Member{Key: k.Str, Value: FromResult(v)})
			return true
		})
		return Value{kind: Object, obj: members}
	}
	return Value{}
}

// Constructors

func NewNull() Value { return Value{} }

func NewBool(b bool) Value { return Value{kind: Bool, b: b} }

func NewNumber(f float64) Value { return Value{kind: Number, num: f} }

func NewString(s string) Value { return Value{kind: String, str: s} }

func NewArray(elems ...Value) Value {
	if elems == nil {
		elems = []Value{}
	}
	return Value{kind: Array, arr: elems}
}

func NewObject(members ...Member) Value {
	if members == nil {
		members = []Member{}
	}
	return Value{kind: Object, obj: members}
}

// Accessors

func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsNull() bool    { return v.kind == Null }
func (v Value) IsArray() bool   { return v.kind == Array }
func (v Value) IsObject() bool  { return v.kind == Object }
func (v Value) IsNumber() bool  { return v.kind == Number }
func (v Value) IsString() bool  { return v.kind == String }
func (v Value) IsBoolean() bool { return v.kind == Bool }

func (v Value) Bool() (bool, bool) { return v.b, v.kind == Bool }

func (v Value) Number() (float64, bool) { return v.num, v.kind == Number }

func (v Value) Str() (string, bool) { return v.str, v.kind == String }

// Len is the element count of an array or member count of an object.
func (v Value) Len() int {
	switch v.kind {
	case Array:
		return len(v.arr)
	case Object:
		return len(v.obj)
	}
	return 0
}

func (v Value) Index(i int) (Value, bool) {
	if v.kind != Array || i < 0 || i >= len(v.arr) {
		return Value{}, false
	}
	return v.arr[i], true
}

// Field looks up key in an object. When a key repeats, the last one wins.
func (v Value) Field(key string) (Value, bool) {
	if v.kind != Object {
		return Value{}, false
	}
	for i := len(v.obj) - 1; i >= 0; i-- {
		if v.obj[i].Key == key {
			return v.obj[i].Value, true
		}
	}
	return Value{}, false
}

func (v Value) Elements() []Value {
	if v.kind != Array {
		return nil
	}
	return v.arr
}

func (v Value) Members() []Member {
	if v.kind != Object {
		return nil
	}
	return v.obj
}

// Keys returns object keys in document order.
func (v Value) Keys() []string {
	if v.kind != Object {
		return nil
	}
	keys := make([]string, len(v.obj))
	for i, m := range v.obj {
		keys[i] = m.Key
	}
	return keys
}

// Interface converts to the encoding/json representation (map[string]any, []any, float64, ...).
func (v Value) Interface() any {
	switch v.kind {
	case Bool:
		return v.b
	case Number:
		return v.num
	case String:
		return v.str
	case Array:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.Interface()
		}
		return out
	case Object:
		out := make(map[string]any, len(v.obj))
		for _, m := range v.obj {
			out[m.Key] = m.Value.Interface()
		}
		return out
	}
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// String renders compact JSON.
func (v Value) String() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return ""
	}
	return string(b)
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case Null:
		buf.WriteString("null")
	case Bool:
		buf.WriteString(strconv.FormatBool(v.b))
	case Number:
		if v.raw != "" {
			buf.WriteString(v.raw)
		} else {
			buf.WriteString(strconv.FormatFloat(v.num, 'g', -1, 64))
		}
	case String:
		b, err := json.Marshal(v.str)
		if err != nil {
			return err
		}
		buf.Write(b)
	case Array:
		buf.WriteByte('[')
		for i, e := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := e.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case Object:
		buf.WriteByte('{')
		for i, m := range v.obj {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, err := json.Marshal(m.Key)
			if err != nil {
				return err
			}
			buf.Write(k)
			buf.WriteByte(':')
			if err := m.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("jsonvalue: unknown kind %d", v.kind)
	}
	return nil
}
