package gentask

import "time"

// HookEvent is a marker interface for all hook events.
type HookEvent interface {
	// EventName returns the event name, "gentask:<category>[:<timing>]".
	EventName() string
	hookEvent()
}

const (
	EventNameRunBefore       = "gentask:run:before"
	EventNameRunAfter        = "gentask:run:after"
	EventNameModelCallBefore = "gentask:model_call:before"
	EventNameModelCallAfter  = "gentask:model_call:after"
	EventNameReferences      = "gentask:references"
	EventNameToolCall        = "gentask:tool_call"
	EventNameMemoryCommit    = "gentask:memory_commit"
	EventNameDecodeFailure   = "gentask:decode_failure"
	EventNameError           = "gentask:error"
)

// -----------------------------------------------------------------------------
// Run Events
// -----------------------------------------------------------------------------

// BeforeRunEvent is emitted once a run has been prepared, before any prompt is built.
type BeforeRunEvent struct {
	// Message is the caller's input message. May be nil.
	Message *Content

	// Stream is true when the caller requested streaming.
	Stream bool
}

func (BeforeRunEvent) EventName() string { return EventNameRunBefore }
func (BeforeRunEvent) hookEvent()        {}

// AfterRunEvent is emitted when a run ends, successfully or not. Abandoned streams do
// not emit it.
type AfterRunEvent struct {
	// Output is the raw model response text.
	Output string

	// Duration is the wall-clock time of the whole run.
	Duration time.Duration

	// Error is non-nil when the run failed.
	Error error
}

func (AfterRunEvent) EventName() string { return EventNameRunAfter }
func (AfterRunEvent) hookEvent()        {}

// ErrorEvent is emitted when a run fails.
type ErrorEvent struct {
	Err error
}

func (ErrorEvent) EventName() string { return EventNameError }
func (ErrorEvent) hookEvent()        {}

// -----------------------------------------------------------------------------
// Model Call Events
// -----------------------------------------------------------------------------

// BeforeModelCallEvent is emitted before the messages are sent to the model.
type BeforeModelCallEvent struct {
	// Model is the model name from its settings.
	Model string

	// Messages is the outbound message list.
	Messages []Message

	// Stream is true for streaming calls.
	Stream bool
}

func (BeforeModelCallEvent) EventName() string { return EventNameModelCallBefore }
func (BeforeModelCallEvent) hookEvent()        {}

// AfterModelCallEvent is emitted when the model has produced its full response.
type AfterModelCallEvent struct {
	Model    string
	Messages []Message
	Response string
	Duration time.Duration
	Error    error
}

func (AfterModelCallEvent) EventName() string { return EventNameModelCallAfter }
func (AfterModelCallEvent) hookEvent()        {}

// -----------------------------------------------------------------------------
// Augmentation, Tool and Output Events
// -----------------------------------------------------------------------------

// ReferencesEvent is emitted after knowledge retrieval for the prompt.
type ReferencesEvent struct {
	References References
}

func (ReferencesEvent) EventName() string { return EventNameReferences }
func (ReferencesEvent) hookEvent()        {}

// ToolCallEvent is emitted after every bound tool finishes.
type ToolCallEvent struct {
	Call ToolCall
}

func (ToolCallEvent) EventName() string { return EventNameToolCall }
func (ToolCallEvent) hookEvent()        {}

// MemoryCommitEvent is emitted after a turn has been written to memory.
type MemoryCommitEvent struct {
	// Messages is the number of outbound messages recorded.
	Messages int

	// References is true when a References entry was recorded.
	References bool

	// ToolCalls is the number of tool calls recorded.
	ToolCalls int

	// Conversation is true when the turn was mirrored into conversation memory.
	Conversation bool
}

func (MemoryCommitEvent) EventName() string { return EventNameMemoryCommit }
func (MemoryCommitEvent) hookEvent()        {}

// DecodeFailureEvent is emitted when structured output could not be decoded and the
// raw text is used instead.
type DecodeFailureEvent struct {
	Err *DecodeError
}

func (DecodeFailureEvent) EventName() string { return EventNameDecodeFailure }
func (DecodeFailureEvent) hookEvent()        {}
