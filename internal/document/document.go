// Package document holds the JSON object stored as a record's value.
//
// A Document keeps its fields in insertion order and stores each field as
// raw JSON text, so a read-modify-write never reorders fields, never loses
// numeric precision, and can tell an absent field from a field holding null.
package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var (
	// ErrMalformed is returned when bytes are not a single JSON object.
	ErrMalformed = errors.New("malformed document")
	// ErrUnencodable is returned when a Go value cannot be encoded as JSON.
	ErrUnencodable = errors.New("value is not JSON-encodable")
)

// Document is an ordered JSON object.
type Document struct {
	fields *orderedmap.OrderedMap[string, json.RawMessage]
}

// New returns an empty document.
func New() *Document {
	return &Document{fields: orderedmap.New[string, json.RawMessage]()}
}

// Decode parses raw as a JSON object.
func Decode(raw []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return nil, fmt.Errorf("%w: not a JSON object", ErrMalformed)
	}
	d := New()
	if err := d.fields.UnmarshalJSON(trimmed); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return d, nil
}

// FromValue converts v to a Document. v may be a *Document, raw JSON
// ([]byte, json.RawMessage) or any value that encodes to a JSON object.
func FromValue(v any) (*Document, error) {
	switch t := v.(type) {
	case *Document:
		return t.Clone(), nil
	case json.RawMessage:
		return Decode(t)
	case []byte:
		return Decode(t)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnencodable, err)
	}
	return Decode(raw)
}

// Encode returns the compact JSON form of d.
func (d *Document) Encode() ([]byte, error) {
	raw, err := d.fields.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnencodable, err)
	}
	return raw, nil
}

// Get returns the raw JSON of field and whether it is present. A present
// field holding null returns "null", true.
func (d *Document) Get(field string) (json.RawMessage, bool) {
	return d.fields.Get(field)
}

// Has reports whether field is present.
func (d *Document) Has(field string) bool {
	_, ok := d.fields.Get(field)
	return ok
}

// Set encodes value and stores it under field. New fields are appended;
// existing fields keep their position.
func (d *Document) Set(field string, value any) error {
	raw, err := EncodeValue(value)
	if err != nil {
		return fmt.Errorf("field %q: %w", field, err)
	}
	d.fields.Set(field, raw)
	return nil
}

// Merge sets every field of updates on d, in updates' order.
func (d *Document) Merge(updates *Document) {
	for p := updates.fields.Oldest(); p != nil; p = p.Next() {
		d.fields.Set(p.Key, p.Value)
	}
}

// Delete removes field and reports whether it was present.
func (d *Document) Delete(field string) bool {
	_, ok := d.fields.Delete(field)
	return ok
}

// Len returns the number of fields.
func (d *Document) Len() int {
	return d.fields.Len()
}

// Fields returns the field names in order.
func (d *Document) Fields() []string {
	out := make([]string, 0, d.fields.Len())
	for p := d.fields.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Key)
	}
	return out
}

// Clone returns a copy of d sharing no mutable state.
func (d *Document) Clone() *Document {
	c := New()
	for p := d.fields.Oldest(); p != nil; p = p.Next() {
		c.fields.Set(p.Key, bytes.Clone(p.Value))
	}
	return c
}

// Equal reports whether d and other hold the same fields with equal values.
// Field order is ignored.
func (d *Document) Equal(other *Document) bool {
	if d.Len() != other.Len() {
		return false
	}
	for p := d.fields.Oldest(); p != nil; p = p.Next() {
		v, ok := other.Get(p.Key)
		if !ok || !Equal(p.Value, v) {
			return false
		}
	}
	return true
}

func (d *Document) MarshalJSON() ([]byte, error) {
	return d.Encode()
}

func (d *Document) UnmarshalJSON(data []byte) error {
	parsed, err := Decode(data)
	if err != nil {
		return err
	}
	d.fields = parsed.fields
	return nil
}

// EncodeValue returns the raw JSON for v. json.RawMessage is validated and
// compacted, not re-encoded.
func EncodeValue(v any) (json.RawMessage, error) {
	if raw, ok := v.(json.RawMessage); ok {
		if !json.Valid(raw) {
			return nil, fmt.Errorf("%w: invalid raw JSON", ErrUnencodable)
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnencodable, err)
		}
		return buf.Bytes(), nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnencodable, err)
	}
	return raw, nil
}
