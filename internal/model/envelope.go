package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// MetaField is the reserved envelope key holding provenance metadata.
const MetaField = "meta"

// ErrNotObject is returned when a JSON value that must be an object is not.
var ErrNotObject = errors.New("expected a JSON object")

// Meta records where and when an export file was produced.
type Meta struct {
	Origin            string `json:"origin,omitempty"`
	OriginAmVersion   string `json:"originAmVersion,omitempty"`
	ExportedBy        string `json:"exportedBy,omitempty"`
	ExportDate        string `json:"exportDate,omitempty"`
	ExportTool        string `json:"exportTool,omitempty"`
	ExportToolVersion string `json:"exportToolVersion,omitempty"`
}

// Collection is a JSON object of id -> opaque payload that remembers the
// order in which keys appeared in the file.
type Collection struct {
	keys  []string
	items map[string]json.RawMessage
}

// NewCollection creates an empty collection.
func NewCollection() *Collection {
	return &Collection{items: make(map[string]json.RawMessage)}
}

// Set adds or replaces an entry. New keys are appended to the key order.
func (c *Collection) Set(id string, raw json.RawMessage) {
	if c.items == nil {
		c.items = make(map[string]json.RawMessage)
	}
	if _, ok := c.items[id]; !ok {
		c.keys = append(c.keys, id)
	}
	c.items[id] = raw
}

// SetValue marshals v and stores it under id.
func (c *Collection) SetValue(id string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", id, err)
	}
	c.Set(id, raw)
	return nil
}

// Get returns the payload stored under id.
func (c *Collection) Get(id string) (json.RawMessage, bool) {
	if c == nil {
		return nil, false
	}
	raw, ok := c.items[id]
	return raw, ok
}

// Keys returns ids in file order.
func (c *Collection) Keys() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// First returns the first id in file order.
func (c *Collection) First() (string, bool) {
	if c == nil || len(c.keys) == 0 {
		return "", false
	}
	return c.keys[0], true
}

// Len returns the number of entries.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.keys)
}

// MarshalJSON writes entries in key order.
func (c *Collection) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("{}"), nil
	}
	return encodeOrdered(c.keys, c.items)
}

// UnmarshalJSON reads a JSON object preserving key order.
func (c *Collection) UnmarshalJSON(data []byte) error {
	keys, items, err := decodeOrdered(data)
	if err != nil {
		return err
	}
	c.keys = keys
	c.items = items
	return nil
}

// Envelope is the wrapper written around exported objects:
// an optional meta block followed by one or more collections.
type Envelope struct {
	Meta   *Meta
	order  []string
	fields map[string]json.RawMessage
}

// NewEnvelope creates an envelope with the given metadata, which may be nil.
func NewEnvelope(meta *Meta) *Envelope {
	return &Envelope{Meta: meta, fields: make(map[string]json.RawMessage)}
}

// Has reports whether the envelope contains the named top-level field.
func (e *Envelope) Has(name string) bool {
	_, ok := e.fields[name]
	return ok
}

// Set marshals v into the named top-level field.
func (e *Envelope) Set(name string, v any) error {
	if name == MetaField {
		return fmt.Errorf("%q is reserved", MetaField)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	if e.fields == nil {
		e.fields = make(map[string]json.RawMessage)
	}
	if _, ok := e.fields[name]; !ok {
		e.order = append(e.order, name)
	}
	e.fields[name] = raw
	return nil
}

// Decode unmarshals the named top-level field into v.
func (e *Envelope) Decode(name string, v any) error {
	raw, ok := e.fields[name]
	if !ok {
		return &ErrMissingField{Field: name}
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	return nil
}

// Collection decodes the named top-level field as an ordered collection.
func (e *Envelope) Collection(name string) (*Collection, error) {
	c := NewCollection()
	if err := e.Decode(name, c); err != nil {
		return nil, err
	}
	return c, nil
}

// MarshalJSON writes meta first, then the remaining fields in order.
func (e *Envelope) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	if e.Meta != nil {
		mb, err := json.Marshal(e.Meta)
		if err != nil {
			return nil, err
		}
		buf.WriteString(`"meta":`)
		buf.Write(mb)
		first = false
	}
	for _, name := range e.order {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.Write(encodeString(name))
		buf.WriteByte(':')
		buf.Write(e.fields[name])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an envelope, splitting out the meta block.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	keys, items, err := decodeOrdered(data)
	if err != nil {
		return err
	}
	e.Meta = nil
	e.order = nil
	e.fields = make(map[string]json.RawMessage, len(items))
	for _, k := range keys {
		if k == MetaField {
			if string(items[k]) == "null" {
				continue
			}
			var m Meta
			if err := json.Unmarshal(items[k], &m); err != nil {
				return fmt.Errorf("invalid meta: %w", err)
			}
			e.Meta = &m
			continue
		}
		e.order = append(e.order, k)
		e.fields[k] = items[k]
	}
	return nil
}

// ErrMissingField indicates an envelope lacks a required top-level field.
type ErrMissingField struct {
	Field string
}

func (e *ErrMissingField) Error() string {
	return fmt.Sprintf("missing %q collection", e.Field)
}

// decodeOrdered decodes a JSON object into its keys (in order) and raw values.
func decodeOrdered(data []byte) ([]string, map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, ErrNotObject
	}

	var keys []string
	items := make(map[string]json.RawMessage)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected token %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, fmt.Errorf("value of %q: %w", key, err)
		}
		if _, dup := items[key]; !dup {
			keys = append(keys, key)
		}
		items[key] = raw
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return keys, items, nil
}

// encodeOrdered writes a JSON object with keys in the given order and the
// values copied byte for byte.
func encodeOrdered(keys []string, items map[string]json.RawMessage) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(encodeString(k))
		buf.WriteByte(':')
		buf.Write(items[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// encodeString quotes s as a JSON string without escaping HTML characters.
func encodeString(s string) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return bytes.TrimRight(buf.Bytes(), "\n")
}
