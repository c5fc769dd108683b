package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Type is the JSON type a parameter accepts.
type Type string

const (
	String  Type = "string"
	Integer Type = "integer"
	Number  Type = "number"
	Boolean Type = "boolean"
	Object  Type = "object"
	// Any accepts every JSON value, including null.
	Any Type = "any"
)

// Param describes one tool argument.
type Param struct {
	Name     string
	Type     Type
	Required bool
	Help     string
}

// Args holds arguments checked against a tool's parameters. Optional
// arguments that were omitted or null are absent.
type Args struct {
	raw map[string]json.RawMessage
}

// decodeArgs checks raw against params: it must be a JSON object, every
// required parameter present, no unknown names, and every value of the
// declared type. Null counts as omitted except for Any parameters.
func decodeArgs(params []Param, raw json.RawMessage) (Args, error) {
	fields := map[string]json.RawMessage{}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		if trimmed[0] != '{' {
			return Args{}, fmt.Errorf("%w: arguments must be an object", ErrInvalidParams)
		}
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return Args{}, fmt.Errorf("%w: %v", ErrInvalidParams, err)
		}
	}

	known := make(map[string]Param, len(params))
	for _, p := range params {
		known[p.Name] = p
	}
	for name := range fields {
		if _, ok := known[name]; !ok {
			return Args{}, fmt.Errorf("%w: unknown argument %q", ErrInvalidParams, name)
		}
	}

	out := Args{raw: make(map[string]json.RawMessage, len(fields))}
	for _, p := range params {
		v, ok := fields[p.Name]
		isNull := ok && bytes.Equal(bytes.TrimSpace(v), []byte("null"))
		if !ok || (isNull && p.Type != Any) {
			if p.Required {
				return Args{}, fmt.Errorf("%w: missing argument %q", ErrInvalidParams, p.Name)
			}
			continue
		}
		if err := checkType(p, v); err != nil {
			return Args{}, err
		}
		out.raw[p.Name] = v
	}
	return out, nil
}

func checkType(p Param, v json.RawMessage) error {
	if p.Type == Any {
		return nil
	}
	got := kind(v)
	want := p.Type
	switch {
	case want == Integer && got == Number:
		if _, err := strconv.ParseInt(string(bytes.TrimSpace(v)), 10, 0); err != nil {
			return fmt.Errorf("%w: %q must be an integer, got %s", ErrInvalidParams, p.Name, v)
		}
		return nil
	case want == got:
		return nil
	}
	return fmt.Errorf("%w: %q must be %s %s, got %s", ErrInvalidParams, p.Name, article(want), want, got)
}

func kind(v json.RawMessage) Type {
	t := bytes.TrimSpace(v)
	if len(t) == 0 {
		return Any
	}
	switch t[0] {
	case '"':
		return String
	case '{':
		return Object
	case '[':
		return "array"
	case 't', 'f':
		return Boolean
	case 'n':
		return "null"
	}
	return Number
}

func article(t Type) string {
	if t == Integer || t == Object || t == Any {
		return "an"
	}
	return "a"
}

// Has reports whether name was supplied.
func (a Args) Has(name string) bool {
	_, ok := a.raw[name]
	return ok
}

// String returns a string argument, or "" when absent.
func (a Args) String(name string) string {
	var s string
	if v, ok := a.raw[name]; ok {
		_ = json.Unmarshal(v, &s)
	}
	return s
}

// Int returns an integer argument, or def when absent.
func (a Args) Int(name string, def int) int {
	v, ok := a.raw[name]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(string(bytes.TrimSpace(v)))
	if err != nil {
		return def
	}
	return n
}

// Bool returns a boolean argument, or def when absent.
func (a Args) Bool(name string, def bool) bool {
	v, ok := a.raw[name]
	if !ok {
		return def
	}
	var b bool
	if err := json.Unmarshal(v, &b); err != nil {
		return def
	}
	return b
}

// Number returns a numeric argument as written, or "" when absent.
func (a Args) Number(name string) json.Number {
	v, ok := a.raw[name]
	if !ok {
		return ""
	}
	return json.Number(bytes.TrimSpace(v))
}

// Raw returns the JSON text of an argument, or nil when absent.
func (a Args) Raw(name string) json.RawMessage {
	return a.raw[name]
}

// Members returns an object argument as a map of member name to JSON text.
func (a Args) Members(name string) (map[string]any, error) {
	v, ok := a.raw[name]
	if !ok {
		return nil, nil
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(v, &members); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidParams, name, err)
	}
	out := make(map[string]any, len(members))
	for k, m := range members {
		out[k] = m
	}
	return out, nil
}

// schema renders params as a JSON Schema object.
func schema(params []Param) map[string]any {
	props := make(map[string]any, len(params))
	required := []string{}
	for _, p := range params {
		prop := map[string]any{}
		if p.Type != Any {
			prop["type"] = string(p.Type)
		}
		if p.Help != "" {
			prop["description"] = p.Help
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

// Schema returns the JSON Schema of t's arguments.
func (t Tool) Schema() map[string]any {
	return schema(t.Params)
}
