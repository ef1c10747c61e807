package gentask

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/rickchristie/gentask/schema"
)

// SchemaKind discriminates the OutputSchema variants.
type SchemaKind string

const (
	SchemaKindString SchemaKind = "string"
	SchemaKindList   SchemaKind = "list"
	SchemaKindTyped  SchemaKind = "typed"
)

// OutputSchema describes the structured output a task asks the model for. It is a
// closed union of StringSchema, ListSchema and *TypedSchema.
type OutputSchema interface {
	// Kind reports which variant this is.
	Kind() SchemaKind

	// FieldList renders the field list shown to the model inside <json_fields>.
	FieldList() string

	// FieldProperties renders per-field properties shown inside
	// <json_field_properties>. The boolean is false for variants without properties.
	FieldProperties() (string, bool)

	// Decode parses the model output. It does not strip code fences.
	Decode(text string) (any, error)

	outputSchema()
}

// StringSchema asks for a JSON object whose fields are described in free text.
// Decoded output is whatever the JSON contains.
type StringSchema struct {
	Fields string
}

func (StringSchema) Kind() SchemaKind { return SchemaKindString }

func (s StringSchema) FieldList() string { return s.Fields }

func (StringSchema) FieldProperties() (string, bool) { return "", false }

func (StringSchema) Decode(text string) (any, error) { return decodeAny(text) }

func (StringSchema) outputSchema() {}

// ListSchema asks for a JSON object with the given field names. Decoded output is
// whatever the JSON contains; field presence is not checked.
type ListSchema struct {
	Fields []string
}

func (ListSchema) Kind() SchemaKind { return SchemaKindList }

func (s ListSchema) FieldList() string {
	b, _ := json.Marshal(s.Fields)
	return string(b)
}

func (ListSchema) FieldProperties() (string, bool) { return "", false }

func (ListSchema) Decode(text string) (any, error) { return decodeAny(text) }

func (ListSchema) outputSchema() {}

func decodeAny(text string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// TypedSchema asks for a JSON object validated against a JSON Schema. Output decodes
// into map[string]any (NewTypedSchema) or into a Go type (TypedSchemaFor).
type TypedSchema struct {
	name       string
	fields     []string
	properties map[string]map[string]any
	validator  *schema.Schema
	decode     func(data []byte) (any, error)
}

// NewTypedSchema compiles an object schema. Fields are presented to the model with
// required fields first, in declaration order, then the rest sorted by name.
func NewTypedSchema(raw map[string]any) (*TypedSchema, error) {
	props, _ := raw["properties"].(map[string]any)
	if len(props) == 0 {
		return nil, fmt.Errorf("typed schema has no properties")
	}

	var fields []string
	switch req := raw["required"].(type) {
	case []string:
		fields = append(fields, req...)
	case []any:
		for _, r := range req {
			if s, ok := r.(string); ok {
				fields = append(fields, s)
			}
		}
	}
	var rest []string
	for name := range props {
		if !slices.Contains(fields, name) {
			rest = append(rest, name)
		}
	}
	slices.Sort(rest)
	fields = append(fields, rest...)

	ts, err := compileTyped(raw, fields)
	if err != nil {
		return nil, err
	}
	ts.decode = func(data []byte) (any, error) {
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return m, nil
	}
	return ts, nil
}

// TypedSchemaFor derives a schema from the struct type T. Fields keep struct
// declaration order and the decoded output is a T value.
func TypedSchemaFor[T any]() (*TypedSchema, error) {
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("typed schema requires a struct type, got %s", t)
	}

	ts, err := compileTyped(schema.GenerateJSONSchema(t), schema.FieldNames(t))
	if err != nil {
		return nil, err
	}
	ts.name = t.Name()
	ts.decode = func(data []byte) (any, error) {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
	return ts, nil
}

// MustTypedSchemaFor is like TypedSchemaFor but panics on error.
func MustTypedSchemaFor[T any]() *TypedSchema {
	ts, err := TypedSchemaFor[T]()
	if err != nil {
		panic(err)
	}
	return ts
}

func compileTyped(raw map[string]any, fields []string) (*TypedSchema, error) {
	validator, err := schema.Compile(raw)
	if err != nil {
		return nil, err
	}

	props, _ := raw["properties"].(map[string]any)
	properties := make(map[string]map[string]any, len(props))
	for name, p := range props {
		pm, _ := p.(map[string]any)
		clean := make(map[string]any, len(pm))
		for k, v := range pm {
			if k != "title" {
				clean[k] = v
			}
		}
		properties[name] = clean
	}

	title, _ := raw["title"].(string)
	return &TypedSchema{
		name:       title,
		fields:     fields,
		properties: properties,
		validator:  validator,
	}, nil
}

func (*TypedSchema) Kind() SchemaKind { return SchemaKindTyped }

// Name returns the schema title or the Go type name.
func (s *TypedSchema) Name() string { return s.name }

// Fields returns the field names in presentation order.
func (s *TypedSchema) Fields() []string { return slices.Clone(s.fields) }

// Raw returns the JSON Schema document.
func (s *TypedSchema) Raw() map[string]any { return s.validator.Raw() }

func (s *TypedSchema) FieldList() string {
	b, _ := json.Marshal(s.fields)
	return string(b)
}

// FieldProperties renders the per-field property map as indented JSON, keeping field
// order. The "title" key is omitted from every property.
func (s *TypedSchema) FieldProperties() (string, bool) {
	var buf bytes.Buffer
	buf.WriteString("{")
	for i, name := range s.fields {
		if i > 0 {
			buf.WriteString(",")
		}
		key, _ := json.Marshal(name)
		val, _ := json.MarshalIndent(s.properties[name], "  ", "  ")
		buf.WriteString("\n  ")
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(val)
	}
	buf.WriteString("\n}")
	return buf.String(), true
}

// Decode validates text against the schema and decodes it.
func (s *TypedSchema) Decode(text string) (any, error) {
	if err := s.validator.ValidateJSON(strings.TrimSpace(text)); err != nil {
		return nil, err
	}
	return s.decode([]byte(text))
}

func (*TypedSchema) outputSchema() {}

var (
	_ OutputSchema = StringSchema{}
	_ OutputSchema = ListSchema{}
	_ OutputSchema = (*TypedSchema)(nil)
)
