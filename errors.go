package gentask

import (
	"errors"
	"fmt"
)

// Configuration errors. These are fatal and returned to the caller unmodified.
var (
	// ErrPromptSourceEmpty is returned when a configured prompt generator returns nothing.
	ErrPromptSourceEmpty = errors.New("gentask: prompt generator returned no prompt")

	// ErrPromptConstruction is returned when there is neither an input message nor a
	// literal or generated user prompt to send.
	ErrPromptConstruction = errors.New(
		"gentask: could not build user prompt, provide a user prompt or an input message",
	)

	// ErrNoModel is returned by Prepare when neither a model nor a model factory is set.
	ErrNoModel = errors.New("gentask: no model configured and no model factory to create one")
)

// Tool results surfaced to the model instead of errors.
const (
	// ToolUnavailableKnowledgeBase is returned by the knowledge-base write tool when the
	// task has no knowledge base attached.
	ToolUnavailableKnowledgeBase = "Knowledge base not available"
)

// DecodeError describes a structured output that could not be decoded. It is never
// fatal to a run: the raw text becomes the output and the error is reported on the
// result and through hooks.
type DecodeError struct {
	// Schema is the kind of schema that was applied.
	Schema SchemaKind

	// Raw is the model output that failed to decode.
	Raw string

	// Err is the underlying parse or validation error.
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("gentask: failed to decode %s output: %v", e.Schema, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
