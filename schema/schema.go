// Package schema compiles JSON Schemas for tool arguments and typed structured output.
//
//	params := schema.Object(map[string]*schema.Property{
//	    "query": schema.String("Search query").MinLength(1),
//	    "limit": schema.Integer("Max results").Min(1),
//	}, "query")
//
//	s, err := schema.Compile(params)
//	err = s.ValidateJSON(`{"query": "go"}`)
//
// Schemas for Go structs come from [GenerateJSONSchema].
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const resourceName = "schema.json"

// Schema pairs a raw JSON Schema document with its compiled validator.
type Schema struct {
	raw      map[string]any
	compiled *jsonschema.Schema
}

// Raw returns the schema document as it was compiled.
func (s *Schema) Raw() map[string]any {
	if s == nil {
		return nil
	}
	return s.raw
}

// Validate checks an already decoded instance. A nil Schema accepts everything.
func (s *Schema) Validate(data map[string]any) error {
	if s == nil || s.compiled == nil {
		return nil
	}
	err := s.compiled.Validate(data)
	if err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

// ValidateJSON parses text as a JSON document and validates it against the schema.
// Malformed JSON is reported as a *ValidationError too.
func (s *Schema) ValidateJSON(text string) error {
	if s == nil || s.compiled == nil {
		return nil
	}
	instance, err := jsonschema.UnmarshalJSON(strings.NewReader(text))
	if err != nil {
		return &ValidationError{Err: fmt.Errorf("invalid JSON: %w", err)}
	}
	if err := s.compiled.Validate(instance); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

// ValidationError is returned by Validate and ValidateJSON.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema validation failed: %v", e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Compile compiles raw. A nil document yields a nil Schema.
func Compile(raw map[string]any) (*Schema, error) {
	if raw == nil {
		return nil, nil
	}

	doc, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}

	schemaData, err := jsonschema.UnmarshalJSON(bytes.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(resourceName, schemaData); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := c.Compile(resourceName)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Schema{raw: raw, compiled: compiled}, nil
}

// MustCompile is Compile for package-level schemas. It panics on error.
func MustCompile(raw map[string]any) *Schema {
	s, err := Compile(raw)
	if err != nil {
		panic(err)
	}
	return s
}

// Object returns an object schema. Names listed in required must be present.
func Object(properties map[string]*Property, required ...string) map[string]any {
	props := make(map[string]any, len(properties))
	for name, prop := range properties {
		props[name] = prop.build()
	}
	obj := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		obj["required"] = required
	}
	return obj
}

// Property is a scalar property of an object schema.
type Property struct {
	typ         string
	description string
	minimum     *float64
	minLength   *int
}

// String returns a string property.
func String(description string) *Property {
	return &Property{typ: "string", description: description}
}

// Integer returns an integer property.
func Integer(description string) *Property {
	return &Property{typ: "integer", description: description}
}

// Min sets the inclusive lower bound of an integer property.
func (p *Property) Min(v float64) *Property {
	p.minimum = &v
	return p
}

// MinLength sets the minimum length of a string property.
func (p *Property) MinLength(n int) *Property {
	p.minLength = &n
	return p
}

func (p *Property) build() map[string]any {
	m := map[string]any{"type": p.typ}
	if p.description != "" {
		m["description"] = p.description
	}
	if p.minimum != nil {
		m["minimum"] = *p.minimum
	}
	if p.minLength != nil {
		m["minLength"] = *p.minLength
	}
	return m
}
