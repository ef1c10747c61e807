package gentask

import "context"

// TaskInfo identifies the task on whose behalf a prompt generator runs.
type TaskInfo interface {
	ID() string
	Name() string
}

type promptKind int

const (
	promptDefault promptKind = iota
	promptLiteral
	promptGenerator
	promptDisabled
)

// SystemPromptFunc generates a system prompt. Returning an empty string is a
// configuration error.
type SystemPromptFunc func(ctx context.Context, task TaskInfo) (string, error)

// SystemPromptSource selects where a task's system prompt comes from. The zero value
// builds the default prompt from the task's configuration.
type SystemPromptSource struct {
	kind promptKind
	text string
	fn   SystemPromptFunc
}

// SystemLiteral uses s verbatim as the system prompt.
func SystemLiteral(s string) SystemPromptSource {
	return SystemPromptSource{kind: promptLiteral, text: s}
}

// SystemGenerator calls fn on every run to produce the system prompt. A nil fn fails
// every run with ErrPromptSourceEmpty.
func SystemGenerator(fn SystemPromptFunc) SystemPromptSource {
	return SystemPromptSource{kind: promptGenerator, fn: fn}
}

// SystemDisabled sends no system message at all.
func SystemDisabled() SystemPromptSource {
	return SystemPromptSource{kind: promptDisabled}
}

// Literal returns the literal prompt, if this is a literal source.
func (s SystemPromptSource) Literal() (string, bool) {
	return s.text, s.kind == promptLiteral
}

// Generator returns the generator function, if this is a generator source. The
// function may be nil.
func (s SystemPromptSource) Generator() (SystemPromptFunc, bool) {
	return s.fn, s.kind == promptGenerator
}

// IsDisabled reports whether the system prompt is turned off.
func (s SystemPromptSource) IsDisabled() bool { return s.kind == promptDisabled }

// IsDefault reports whether the default prompt should be built.
func (s SystemPromptSource) IsDefault() bool { return s.kind == promptDefault }

// UserPromptRequest is what a user prompt generator receives.
type UserPromptRequest struct {
	Task    TaskInfo
	Message *Content

	// References is the retrieved knowledge text, empty when there is none.
	References string

	// History is the formatted chat history, empty when there is none.
	History string
}

// UserPromptFunc generates the user prompt. Returning nil content is a configuration
// error.
type UserPromptFunc func(ctx context.Context, req UserPromptRequest) (*Content, error)

// UserPromptSource selects where a task's user prompt comes from. The zero value wraps
// the incoming message in the default template when there are references or history.
type UserPromptSource struct {
	kind    promptKind
	content *Content
	fn      UserPromptFunc
}

// UserLiteral always sends content, ignoring the message passed to a run.
func UserLiteral(content *Content) UserPromptSource {
	return UserPromptSource{kind: promptLiteral, content: content}
}

// UserGenerator calls fn on every run to produce the user prompt. A nil fn fails every
// run with ErrPromptSourceEmpty.
func UserGenerator(fn UserPromptFunc) UserPromptSource {
	return UserPromptSource{kind: promptGenerator, fn: fn}
}

// UserDisabled sends the incoming message unchanged.
func UserDisabled() UserPromptSource {
	return UserPromptSource{kind: promptDisabled}
}

// Literal returns the literal content, if this is a literal source.
func (s UserPromptSource) Literal() (*Content, bool) {
	return s.content, s.kind == promptLiteral && s.content != nil
}

// Generator returns the generator function, if this is a generator source. The
// function may be nil.
func (s UserPromptSource) Generator() (UserPromptFunc, bool) {
	return s.fn, s.kind == promptGenerator
}

// IsDisabled reports whether the default template is turned off.
func (s UserPromptSource) IsDisabled() bool { return s.kind == promptDisabled }
