package task

import (
	"context"
	"log/slog"

	"github.com/rickchristie/gentask"
	"github.com/rickchristie/gentask/hooks"
)

// DefaultHistoryMessages is the number of history messages added to prompts and message
// lists by default.
const DefaultHistoryMessages = 8

// ReferencesFunc replaces knowledge-base retrieval. An empty result means no references.
type ReferencesFunc func(ctx context.Context, task gentask.TaskInfo, query string) (string, error)

// HistoryFunc replaces memory-based history formatting. An empty result means no history.
type HistoryFunc func(ctx context.Context, task gentask.TaskInfo) (string, error)

// Config holds everything a Task needs. It is read by Prepare and must not be changed
// afterwards.
type Config struct {
	// Name is an optional human-readable task name.
	Name string

	// ID identifies the task. New assigns a random UUID when empty.
	ID string

	// Model is the LLM collaborator. When nil, Prepare calls ModelFactory.
	Model gentask.Model

	// ModelFactory creates the model during Prepare when Model is nil.
	ModelFactory gentask.ModelFactory

	// -------------------------------------------------------------------------
	// Memory
	// -------------------------------------------------------------------------

	// Memory is the task-local memory. New creates an in-memory one when nil.
	Memory gentask.Memory

	// ConversationMemory is an optional higher-level memory. Every turn is mirrored
	// into it, and history is read from it instead of the task memory.
	ConversationMemory gentask.Memory

	// AddHistoryToMessages inserts the last HistoryMessages messages between the
	// system and the user message.
	AddHistoryToMessages bool

	// AddHistoryToPrompt renders the last HistoryMessages messages into the user
	// prompt.
	AddHistoryToPrompt bool

	// HistoryMessages is the history window counted in messages, not chat pairs: 3
	// yields the last exchange plus the assistant reply before it. Zero means the
	// whole history.
	HistoryMessages int

	// HistoryFunc overrides history formatting for the user prompt.
	HistoryFunc HistoryFunc

	// -------------------------------------------------------------------------
	// Knowledge
	// -------------------------------------------------------------------------

	// KnowledgeBase is searched for references and by the knowledge-base tools.
	KnowledgeBase gentask.KnowledgeBase

	// AddReferencesToPrompt augments plain-text user prompts with references.
	AddReferencesToPrompt bool

	// ReferenceDocuments caps the documents returned by a search. Zero lets the
	// knowledge base decide.
	ReferenceDocuments int

	// ReferencesFunc overrides knowledge-base retrieval.
	ReferencesFunc ReferencesFunc

	// -------------------------------------------------------------------------
	// Tools
	// -------------------------------------------------------------------------

	// Tools are exposed to the model as-is.
	Tools []gentask.Tool

	// UseTools adds the built-in memory and knowledge-base tools.
	UseTools bool

	// ShowToolCalls is applied to the model when the model has no preference.
	ShowToolCalls *bool

	// ToolChoice is applied to the model when the model has no preference.
	ToolChoice *gentask.ToolChoice

	// ToolCallLimit lowers the model's tool call ceiling. It never raises it. Zero
	// leaves the model's ceiling untouched.
	ToolCallLimit int

	// UpdateKnowledgeBase adds the add_to_knowledge_base tool when UseTools is set.
	UpdateKnowledgeBase bool

	// ReadToolCallHistory adds the get_tool_call_history tool when UseTools is set.
	ReadToolCallHistory bool

	// -------------------------------------------------------------------------
	// System prompt
	// -------------------------------------------------------------------------

	// SystemPrompt selects the system prompt source. The zero value builds the
	// default prompt from the fields below.
	SystemPrompt gentask.SystemPromptSource

	// Description opens the default system prompt.
	Description string

	// Instructions replaces the generated instruction list when non-nil.
	Instructions []string

	// ExtraInstructions are appended to the instruction list.
	ExtraInstructions []string

	// AddToSystemPrompt is appended after the instruction block.
	AddToSystemPrompt string

	AddKnowledgeBaseInstructions bool
	AddDontKnowInstructions      bool
	PreventPromptInjection       bool
	LimitToolAccess              bool
	AddDatetimeToInstructions    bool
	Markdown                     bool

	// -------------------------------------------------------------------------
	// User prompt and output
	// -------------------------------------------------------------------------

	// UserPrompt selects the user prompt source. The zero value uses the message,
	// decorated with references and history when available.
	UserPrompt gentask.UserPromptSource

	// OutputSchema requests structured JSON output. Setting it forces batch
	// generation.
	OutputSchema gentask.OutputSchema

	// ParseOutput decodes the response with OutputSchema.
	ParseOutput bool

	// -------------------------------------------------------------------------
	// Ambient
	// -------------------------------------------------------------------------

	// TimeProvider is the clock used for the datetime instruction.
	TimeProvider gentask.TimeProvider

	// Logger receives debug and warning records. Defaults to slog.Default().
	Logger *slog.Logger

	// Hooks observe runs. May be nil.
	Hooks *hooks.Registry
}

// DefaultConfig returns a Config with the stock defaults: markdown formatting,
// knowledge-base and "don't know" instructions, tool access limiting, output parsing,
// and an eight message history window.
func DefaultConfig() Config {
	return Config{
		HistoryMessages:              DefaultHistoryMessages,
		AddKnowledgeBaseInstructions: true,
		AddDontKnowInstructions:      true,
		LimitToolAccess:              true,
		Markdown:                     true,
		ParseOutput:                  true,
	}
}
