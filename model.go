package gentask

import (
	"context"
	"iter"
)

// Model is the LLM collaborator a task drives. Implementations own the whole
// function-calling loop: a task only registers tools and adjusts settings before the
// call, then observes the final text.
type Model interface {
	// GenerateBatch sends the messages and blocks until the complete response text is
	// available. Any tool calls requested by the model are executed internally.
	GenerateBatch(ctx context.Context, messages []Message) (string, error)

	// GenerateStream sends the messages and returns a lazy sequence of text fragments.
	// The sequence is finite and cannot be restarted. Stopping iteration early cancels
	// the underlying request.
	GenerateStream(ctx context.Context, messages []Message) iter.Seq2[string, error]

	// RegisterTool exposes a tool to the model for subsequent calls.
	RegisterTool(tool Tool)

	// Settings returns the model's mutable settings. Callers may modify the returned
	// value in place before generating.
	Settings() *ModelSettings
}

// ModelFactory creates a model. Tasks without a configured model use their factory
// during Prepare.
type ModelFactory func() (Model, error)

// ToolChoice is the tool selection policy passed to the model.
type ToolChoice string

const (
	// ToolChoiceAuto lets the model decide whether to call tools.
	ToolChoiceAuto ToolChoice = "auto"

	// ToolChoiceNone forbids tool calls.
	ToolChoiceNone ToolChoice = "none"

	// ToolChoiceRequired forces at least one tool call.
	ToolChoiceRequired ToolChoice = "required"
)

// ResponseFormat selects between free text and JSON responses.
type ResponseFormat string

const (
	ResponseFormatText ResponseFormat = "text"
	ResponseFormatJSON ResponseFormat = "json"
)

// ModelSettings holds the knobs a task reconciles against before calling a model.
// Nil pointers mean "not set".
type ModelSettings struct {
	// Name is informational, used for logs and serialization.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// ShowToolCalls makes the model write a short line into the response text for every
	// tool call it runs.
	ShowToolCalls *bool `json:"show_tool_calls,omitempty" yaml:"show_tool_calls,omitempty"`

	// ToolChoice is the tool selection policy.
	ToolChoice *ToolChoice `json:"tool_choice,omitempty" yaml:"tool_choice,omitempty"`

	// ToolCallLimit caps the number of tool calls per generation. Zero means uncapped.
	ToolCallLimit int `json:"tool_call_limit,omitempty" yaml:"tool_call_limit,omitempty"`

	// ResponseFormat is the requested response format. Empty means text.
	ResponseFormat ResponseFormat `json:"response_format,omitempty" yaml:"response_format,omitempty"`
}

// Ptr returns a pointer to v. Handy for the optional fields of ModelSettings.
func Ptr[T any](v T) *T {
	return &v
}
