package schema

import (
	"reflect"
	"strings"
	"time"
)

// GenerateJSONSchema creates a JSON Schema from a Go type using reflection.
// Supports: primitives, pointers, structs, slices, maps, time.Time, time.Duration.
//
// Struct fields use their json tag names; a `description` tag becomes the property
// description. Fields are required unless they are pointers or tagged omitempty.
func GenerateJSONSchema(t reflect.Type) map[string]any {
	if t == nil {
		return map[string]any{"type": "null"}
	}

	if t.Kind() == reflect.Pointer {
		s := GenerateJSONSchema(t.Elem())
		if typ, ok := s["type"].(string); ok {
			s["type"] = []string{typ, "null"}
		}
		return s
	}

	switch t {
	case reflect.TypeFor[time.Time]():
		return map[string]any{"type": "string", "format": "date-time"}
	case reflect.TypeFor[time.Duration]():
		return map[string]any{
			"type":        "string",
			"description": "Duration string (e.g., '1h30m', '2s')",
		}
	}

	switch t.Kind() {
	case reflect.String:
		return map[string]any{"type": "string"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return map[string]any{"type": "integer"}
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}
	case reflect.Bool:
		return map[string]any{"type": "boolean"}
	case reflect.Slice, reflect.Array:
		return map[string]any{"type": "array", "items": GenerateJSONSchema(t.Elem())}
	case reflect.Map:
		return map[string]any{
			"type":                 "object",
			"additionalProperties": GenerateJSONSchema(t.Elem()),
		}
	case reflect.Struct:
		return structSchema(t)
	default:
		return map[string]any{}
	}
}

type jsonField struct {
	name     string
	field    reflect.StructField
	required bool
}

// jsonFields lists the exported, non-skipped fields of a struct in declaration order.
func jsonFields(t reflect.Type) []jsonField {
	var out []jsonField
	for i := range t.NumField() {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get("json")
		if tag == "-" {
			continue
		}

		name, opts, _ := strings.Cut(tag, ",")
		if name == "" {
			name = field.Name
		}
		omitempty := false
		for opt := range strings.SplitSeq(opts, ",") {
			if opt == "omitempty" || opt == "omitzero" {
				omitempty = true
			}
		}
		out = append(out, jsonField{
			name:     name,
			field:    field,
			required: !omitempty && field.Type.Kind() != reflect.Pointer,
		})
	}
	return out
}

// FieldNames returns the JSON names of a struct's fields in declaration order. It
// returns nil for non-struct types.
func FieldNames(t reflect.Type) []string {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	fields := jsonFields(t)
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.name
	}
	return names
}

func structSchema(t reflect.Type) map[string]any {
	properties := make(map[string]any)
	required := make([]string, 0)

	for _, f := range jsonFields(t) {
		fieldSchema := GenerateJSONSchema(f.field.Type)
		if desc := f.field.Tag.Get("description"); desc != "" {
			fieldSchema["description"] = desc
		}
		properties[f.name] = fieldSchema
		if f.required {
			required = append(required, f.name)
		}
	}

	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}
