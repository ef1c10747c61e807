package gentask

import "context"

// Memory is an append-only log of a task's, or a whole conversation's, interactions.
// Every method takes a context and returns an error so persistent backends fit the same
// contract as in-memory ones.
type Memory interface {
	// AddChatMessage appends a user or assistant message to the chat history.
	AddChatMessage(ctx context.Context, msg Message) error

	// AddLLMMessages appends the full outbound message list of one model call.
	AddLLMMessages(ctx context.Context, msgs []Message) error

	// AddReferences appends a retrieval result.
	AddReferences(ctx context.Context, refs References) error

	// AddToolCall appends a tool invocation.
	AddToolCall(ctx context.Context, call ToolCall) error

	// Chats returns completed (user, assistant) pairs in chronological order.
	Chats(ctx context.Context) ([]Chat, error)

	// LastMessages returns the last n chat messages in chronological order.
	LastMessages(ctx context.Context, n int) ([]Message, error)

	// ToolCalls returns the most recent tool calls, newest first. A limit of zero
	// returns all of them.
	ToolCalls(ctx context.Context, limit int) ([]ToolCall, error)

	// FormattedHistory renders the last limit chat messages as text. Empty history
	// renders as the empty string.
	FormattedHistory(ctx context.Context, limit int) (string, error)

	// Serialize returns a plain snapshot of everything recorded.
	Serialize(ctx context.Context) (MemorySnapshot, error)
}

// MemorySnapshot is the plain record of a Memory.
type MemorySnapshot struct {
	ChatHistory []Message    `json:"chat_history" yaml:"chat_history"`
	LLMMessages []Message    `json:"llm_messages" yaml:"llm_messages"`
	References  []References `json:"references" yaml:"references"`
	ToolCalls   []ToolCall   `json:"tool_calls" yaml:"tool_calls"`
}
