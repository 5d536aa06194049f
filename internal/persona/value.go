package persona

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindScalar
	KindMapping
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindMapping:
		return "mapping"
	case KindList:
		return "list"
	default:
		return "null"
	}
}

// Fields is a mapping that keeps keys in the order the service sent them. A nil
// *Fields reads as empty.
type Fields struct {
	m *orderedmap.OrderedMap[string, Value]
}

// Get returns the value stored under key.
func (f *Fields) Get(key string) (Value, bool) {
	if f == nil || f.m == nil {
		return Value{}, false
	}
	return f.m.Get(key)
}

func (f *Fields) Len() int {
	if f == nil || f.m == nil {
		return 0
	}
	return f.m.Len()
}

// Oldest returns the first pair in server order; walk the rest with Next.
func (f *Fields) Oldest() *orderedmap.Pair[string, Value] {
	if f == nil || f.m == nil {
		return nil
	}
	return f.m.Oldest()
}

// MarshalJSON implements json.Marshaler.
func (f *Fields) MarshalJSON() ([]byte, error) {
	if f == nil || f.m == nil {
		return []byte("{}"), nil
	}
	return f.m.MarshalJSON()
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Fields) UnmarshalJSON(data []byte) error {
	m := orderedmap.New[string, Value]()
	if err := json.Unmarshal(data, m); err != nil {
		return err
	}
	f.m = m
	return nil
}

// Value is one node of a persona section: a scalar, a nested mapping, a list or null.
// JSON numbers and booleans are scalars holding their literal text.
type Value struct {
	kind   Kind
	text   string
	quoted bool
	fields *Fields
	items  []Value
}

// Field is a key/value pair used to build mappings.
type Field struct {
	Key   string
	Value Value
}

// Scalar returns a string scalar.
func Scalar(s string) Value {
	return Value{kind: KindScalar, text: s, quoted: true}
}

// Mapping returns a nested mapping holding fields in the given order.
func Mapping(fields ...Field) Value {
	m := orderedmap.New[string, Value](len(fields))
	for _, f := range fields {
		m.Set(f.Key, f.Value)
	}
	return Value{kind: KindMapping, fields: &Fields{m: m}}
}

// List returns a list value.
func List(items ...Value) Value {
	return Value{kind: KindList, items: items}
}

func (v Value) Kind() Kind { return v.kind }

// Text returns the literal text of a scalar and "" for other kinds.
func (v Value) Text() string {
	if v.kind != KindScalar {
		return ""
	}
	return v.text
}

// Fields returns the mapping of a KindMapping value, nil otherwise.
func (v Value) Fields() *Fields {
	if v.kind != KindMapping {
		return nil
	}
	return v.fields
}

// Items returns the elements of a KindList value.
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	return v.items
}

// String returns the literal text of a scalar and the canonical JSON of anything else.
func (v Value) String() string {
	if v.kind == KindScalar {
		return v.text
	}
	return v.Canonical()
}

// Canonical returns compact JSON for v with mapping keys in server order and no
// HTML escaping.
func (v Value) Canonical() string {
	var buf bytes.Buffer
	v.writeJSON(&buf)
	return buf.String()
}

func (v Value) writeJSON(buf *bytes.Buffer) {
	switch v.kind {
	case KindScalar:
		if v.quoted {
			writeString(buf, v.text)
		} else {
			buf.WriteString(v.text)
		}
	case KindMapping:
		buf.WriteByte('{')
		if v.fields != nil {
			first := true
			for pair := v.fields.Oldest(); pair != nil; pair = pair.Next() {
				if !first {
					buf.WriteByte(',')
				}
				first = false
				writeString(buf, pair.Key)
				buf.WriteByte(':')
				pair.Value.writeJSON(buf)
			}
		}
		buf.WriteByte('}')
	case KindList:
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			item.writeJSON(buf)
		}
		buf.WriteByte(']')
	default:
		buf.WriteString("null")
	}
}

func writeString(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	// Encoding a string cannot fail.
	_ = enc.Encode(s)
	buf.Truncate(buf.Len() - 1)
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	v.writeJSON(&buf)
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errors.New("persona: empty value")
	}

	switch data[0] {
	case '{':
		fields := &Fields{}
		if err := fields.UnmarshalJSON(data); err != nil {
			return fmt.Errorf("decoding mapping: %w", err)
		}
		*v = Value{kind: KindMapping, fields: fields}
	case '[':
		var items []Value
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("decoding list: %w", err)
		}
		*v = Value{kind: KindList, items: items}
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decoding string: %w", err)
		}
		*v = Value{kind: KindScalar, text: s, quoted: true}
	case 'n':
		if string(data) != "null" {
			return fmt.Errorf("persona: invalid literal %q", data)
		}
		*v = Value{}
	default:
		if !json.Valid(data) {
			return fmt.Errorf("persona: invalid literal %q", data)
		}
		*v = Value{kind: KindScalar, text: string(data)}
	}
	return nil
}
