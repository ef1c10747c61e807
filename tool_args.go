package gentask

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// convertArgsForType rewrites argument values that encoding/json cannot map onto the
// target struct by itself:
//   - string -> time.Time (RFC 3339 and a few looser layouts)
//   - string -> time.Duration (time.ParseDuration syntax, e.g. "1h30m")
//
// Nested structs and slices are converted recursively. Unknown keys pass through.
func convertArgsForType(args map[string]any, structType reflect.Type) map[string]any {
	if args == nil || structType.Kind() != reflect.Struct {
		return args
	}

	result := make(map[string]any, len(args))
	for key, value := range args {
		field, found := fieldByJSONName(structType, key)
		if !found {
			result[key] = value
			continue
		}
		result[key] = convertValueToType(value, field.Type)
	}
	return result
}

// fieldByJSONName finds a struct field by json tag, falling back to a case-insensitive
// match on the Go field name.
func fieldByJSONName(structType reflect.Type, name string) (reflect.StructField, bool) {
	for i := range structType.NumField() {
		field := structType.Field(i)
		tag, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if tag == name {
			return field, true
		}
		if strings.EqualFold(field.Name, name) {
			return field, true
		}
	}
	return reflect.StructField{}, false
}

func convertValueToType(value any, targetType reflect.Type) any {
	if value == nil {
		return nil
	}

	elemType := targetType
	if targetType.Kind() == reflect.Pointer {
		elemType = targetType.Elem()
	}

	switch {
	case elemType == reflect.TypeFor[time.Time]():
		if str, ok := value.(string); ok {
			if t, err := parseTime(str); err == nil {
				return t.Format(time.RFC3339Nano)
			}
		}
		return value

	case elemType == reflect.TypeFor[time.Duration]():
		if str, ok := value.(string); ok {
			if d, err := time.ParseDuration(str); err == nil {
				return d.Nanoseconds()
			}
		}
		return value

	case elemType.Kind() == reflect.Struct:
		if m, ok := value.(map[string]any); ok {
			return convertArgsForType(m, elemType)
		}

	case elemType.Kind() == reflect.Slice:
		if arr, ok := value.([]any); ok {
			result := make([]any, len(arr))
			for i, item := range arr {
				result[i] = convertValueToType(item, elemType.Elem())
			}
			return result
		}
	}

	return value
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse time: %s", s)
}
