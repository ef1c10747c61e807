package task

import (
	"context"
	"strings"

	"github.com/rickchristie/gentask"
	"go.opentelemetry.io/otel/attribute"
)

// Coerce decodes raw model output with the task's output schema. It returns the raw
// text unchanged when there is no schema. Decoding failures are never fatal: the raw
// text is returned together with a *gentask.DecodeError describing the failure.
//
// String and list schemas only require valid JSON. Typed schemas are validated; a
// response wrapped in a ```json code fence is unwrapped and validated once more.
func (t *Task) Coerce(ctx context.Context, raw string) (any, *gentask.DecodeError) {
	schema := t.cfg.OutputSchema
	if schema == nil {
		return raw, nil
	}

	ctx, span := t.tracer.Start(ctx, "gentask.coerce")
	defer span.End()
	span.SetAttributes(attribute.String("schema.kind", string(schema.Kind())))

	v, err := schema.Decode(raw)
	if err != nil && schema.Kind() == gentask.SchemaKindTyped {
		if unfenced, ok := stripJSONFence(raw); ok {
			v, err = schema.Decode(unfenced)
		}
	}
	if err == nil {
		return v, nil
	}

	derr := &gentask.DecodeError{Schema: schema.Kind(), Raw: raw, Err: err}
	span.RecordError(derr)
	t.logger.Warn("failed to decode structured output, using raw text",
		"task", t.ID(), "schema", schema.Kind(), "error", err)
	t.cfg.Hooks.FireDecodeFailure(ctx, t, gentask.DecodeFailureEvent{Err: derr})
	return raw, derr
}

// stripJSONFence unwraps text fenced as a ```json code block.
func stripJSONFence(text string) (string, bool) {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```json") {
		return "", false
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s), true
}
