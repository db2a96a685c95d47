package meld

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Attribute is one public component value.
type Attribute struct {
	Name  string
	Value any
}

// Attributes is an ordered snapshot of a component's public values.
//
// Order is declaration order (with "errors" first) and is preserved when
// encoding to JSON or MessagePack, so the serialized snapshot embedded in the
// rendered markup is stable between renders.
type Attributes []Attribute

// Get returns the value for name.
func (a Attributes) Get(name string) (any, bool) {
	for _, attr := range a {
		if attr.Name == name {
			return attr.Value, true
		}
	}
	return nil, false
}

// Names returns the attribute names in order.
func (a Attributes) Names() []string {
	names := make([]string, len(a))
	for i, attr := range a {
		names[i] = attr.Name
	}
	return names
}

// Map returns the attributes as an unordered map.
func (a Attributes) Map() map[string]any {
	m := make(map[string]any, len(a))
	for _, attr := range a {
		m[attr.Name] = attr.Value
	}
	return m
}

// MarshalJSON encodes the attributes as a JSON object in order.
func (a Attributes) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, attr := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(attr.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(attr.Value)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", attr.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping key order.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("%w: attributes must be an object", ErrInvalidFormat)
	}

	out := Attributes{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("%w: attribute name must be a string", ErrInvalidFormat)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return err
		}
		out = append(out, Attribute{Name: name, Value: v})
	}
	*a = out
	return nil
}

var (
	_ msgpack.CustomEncoder = Attributes(nil)
	_ msgpack.CustomDecoder = (*Attributes)(nil)
)

// EncodeMsgpack encodes the attributes as a MessagePack map in order.
func (a Attributes) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(len(a)); err != nil {
		return err
	}
	for _, attr := range a {
		if err := enc.EncodeString(attr.Name); err != nil {
			return err
		}
		if err := enc.Encode(attr.Value); err != nil {
			return err
		}
	}
	return nil
}

// DecodeMsgpack decodes a MessagePack map keeping key order.
func (a *Attributes) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return err
	}
	out := make(Attributes, 0, max(n, 0))
	for i := 0; i < n; i++ {
		name, err := dec.DecodeString()
		if err != nil {
			return err
		}
		v, err := dec.DecodeInterface()
		if err != nil {
			return err
		}
		out = append(out, Attribute{Name: name, Value: v})
	}
	*a = out
	return nil
}

// errorsAttr is the attribute holding a component's FieldErrors.
const errorsAttr = "errors"

// FieldErrors maps form field names to their validation messages.
//
// A field without errors encodes as the empty string rather than an empty
// list; the client checks error entries for truthiness.
type FieldErrors map[string][]string

// Set records the messages for field, replacing earlier ones.
func (e FieldErrors) Set(field string, msgs []string) {
	e[field] = msgs
}

// Has reports whether field has at least one message.
func (e FieldErrors) Has(field string) bool {
	return len(e[field]) > 0
}

// Any reports whether any field has messages.
func (e FieldErrors) Any() bool {
	for _, msgs := range e {
		if len(msgs) > 0 {
			return true
		}
	}
	return false
}

func (e FieldErrors) wire() map[string]any {
	m := make(map[string]any, len(e))
	for field, msgs := range e {
		if len(msgs) == 0 {
			m[field] = ""
		} else {
			m[field] = msgs
		}
	}
	return m
}

// MarshalJSON encodes empty message lists as "".
func (e FieldErrors) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.wire())
}

// UnmarshalJSON accepts a list of messages, a single message or "" per field.
func (e *FieldErrors) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(FieldErrors, len(raw))
	for field, v := range raw {
		out[field] = messages(v)
	}
	*e = out
	return nil
}

// EncodeMsgpack encodes empty message lists as "".
func (e FieldErrors) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.Encode(e.wire())
}

// DecodeMsgpack mirrors UnmarshalJSON.
func (e *FieldErrors) DecodeMsgpack(dec *msgpack.Decoder) error {
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	out := make(FieldErrors, len(raw))
	for field, v := range raw {
		out[field] = messages(v)
	}
	*e = out
	return nil
}

func messages(v any) []string {
	switch x := v.(type) {
	case string:
		if x == "" {
			return nil
		}
		return []string{x}
	case []string:
		return x
	case []any:
		out := make([]string, 0, len(x))
		for _, m := range x {
			out = append(out, fmt.Sprint(m))
		}
		return out
	}
	return nil
}
