// Package memory provides gentask.Memory implementations: an in-process log and a
// SQLite-backed log that survives restarts.
package memory

import (
	"context"
	"sync"

	"github.com/rickchristie/gentask"
)

// InMemory keeps the log in process memory. It is safe for concurrent use, so a single
// instance can back several tasks as their conversation memory.
type InMemory struct {
	mu          sync.Mutex
	chatHistory []gentask.Message
	llmMessages []gentask.Message
	references  []gentask.References
	toolCalls   []gentask.ToolCall
}

// New creates an empty InMemory.
func New() *InMemory {
	return &InMemory{}
}

func (m *InMemory) AddChatMessage(_ context.Context, msg gentask.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chatHistory = append(m.chatHistory, msg)
	return nil
}

func (m *InMemory) AddLLMMessages(_ context.Context, msgs []gentask.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.llmMessages = append(m.llmMessages, msgs...)
	return nil
}

func (m *InMemory) AddReferences(_ context.Context, refs gentask.References) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.references = append(m.references, refs)
	return nil
}

func (m *InMemory) AddToolCall(_ context.Context, call gentask.ToolCall) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toolCalls = append(m.toolCalls, call)
	return nil
}

func (m *InMemory) Chats(_ context.Context) ([]gentask.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return PairChats(m.chatHistory), nil
}

func (m *InMemory) LastMessages(_ context.Context, n int) ([]gentask.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return lastN(m.chatHistory, n), nil
}

func (m *InMemory) ToolCalls(_ context.Context, limit int) ([]gentask.ToolCall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return newestFirst(m.toolCalls, limit), nil
}

func (m *InMemory) FormattedHistory(ctx context.Context, limit int) (string, error) {
	msgs, err := m.LastMessages(ctx, limit)
	if err != nil {
		return "", err
	}
	return FormatHistory(msgs)
}

func (m *InMemory) Serialize(_ context.Context) (gentask.MemorySnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return gentask.MemorySnapshot{
		ChatHistory: append([]gentask.Message{}, m.chatHistory...),
		LLMMessages: append([]gentask.Message{}, m.llmMessages...),
		References:  append([]gentask.References{}, m.references...),
		ToolCalls:   append([]gentask.ToolCall{}, m.toolCalls...),
	}, nil
}

// Compile-time check that InMemory implements gentask.Memory.
var _ gentask.Memory = (*InMemory)(nil)
