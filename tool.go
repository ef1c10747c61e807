package gentask

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/rickchristie/gentask/schema"
)

// Tool is a callable exposed to the model. The model supplies arguments as a decoded
// JSON object and receives the returned string as the tool result.
type Tool interface {
	// Name returns the tool's identifier used in tool calls.
	Name() string

	// Description returns a human-readable description for the LLM.
	Description() string

	// ParameterSchema returns the JSON Schema for the tool's parameters.
	// Returns nil if the tool takes no parameters.
	ParameterSchema() map[string]any

	// Call executes the tool. A returned error is reported to the model as the tool
	// result; it does not abort generation.
	Call(ctx context.Context, args map[string]any) (string, error)
}

// ToolFunc adapts a typed Go function into a Tool. Arguments are converted into I
// (see convertArgsForType for the supported conversions) and the output is rendered as
// the string itself when O is a string, or as JSON otherwise.
type ToolFunc[I, O any] struct {
	name        string
	description string
	schema      map[string]any
	fn          func(ctx context.Context, input I) (O, error)
}

// NewToolFunc creates a Tool from a typed function. When paramSchema is nil the schema
// is generated from I by reflection.
func NewToolFunc[I, O any](
	name, description string,
	paramSchema map[string]any,
	fn func(ctx context.Context, input I) (O, error),
) *ToolFunc[I, O] {
	if paramSchema == nil {
		paramSchema = schema.GenerateJSONSchema(reflect.TypeFor[I]())
	}
	return &ToolFunc[I, O]{
		name:        name,
		description: description,
		schema:      paramSchema,
		fn:          fn,
	}
}

func (t *ToolFunc[I, O]) Name() string {
	return t.name
}

func (t *ToolFunc[I, O]) Description() string {
	return t.description
}

func (t *ToolFunc[I, O]) ParameterSchema() map[string]any {
	return t.schema
}

// Call decodes args into I, runs the function, and renders its output.
func (t *ToolFunc[I, O]) Call(ctx context.Context, args map[string]any) (string, error) {
	input, err := decodeArgs[I](args)
	if err != nil {
		return "", fmt.Errorf("tool %s: %w", t.name, err)
	}
	output, err := t.fn(ctx, input)
	if err != nil {
		return "", err
	}
	if s, ok := any(output).(string); ok {
		return s, nil
	}
	b, err := json.Marshal(output)
	if err != nil {
		return "", fmt.Errorf("tool %s: failed to encode output: %w", t.name, err)
	}
	return string(b), nil
}

// decodeArgs converts model-supplied arguments into a value of type I.
func decodeArgs[I any](args map[string]any) (I, error) {
	var input I
	inputType := reflect.TypeFor[I]()
	structType := inputType
	if structType.Kind() == reflect.Pointer {
		structType = structType.Elem()
	}

	argsJSON, err := json.Marshal(convertArgsForType(args, structType))
	if err != nil {
		return input, fmt.Errorf("failed to marshal args: %w", err)
	}

	if inputType.Kind() == reflect.Pointer {
		ptr := reflect.New(inputType.Elem())
		if err := json.Unmarshal(argsJSON, ptr.Interface()); err != nil {
			return input, fmt.Errorf("failed to unmarshal args into input type: %w", err)
		}
		return ptr.Interface().(I), nil
	}
	if err := json.Unmarshal(argsJSON, &input); err != nil {
		return input, fmt.Errorf("failed to unmarshal args into input type: %w", err)
	}
	return input, nil
}

// Compile-time check that ToolFunc implements Tool.
var _ Tool = (*ToolFunc[struct{}, string])(nil)
