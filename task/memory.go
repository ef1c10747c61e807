package task

import (
	"context"
	"fmt"

	"github.com/rickchristie/gentask"
	"go.opentelemetry.io/otel/attribute"
)

// commit writes a finished turn to the task memory and mirrors it into the
// conversation memory. Entries are appended in order: the user message, the outbound
// messages, the assistant message, the references when retrieval produced text, and
// the tool calls made during generation.
func (t *Task) commit(ctx context.Context, tr *turn, response string, calls []gentask.ToolCall) error {
	ctx, span := t.tracer.Start(ctx, "gentask.commit")
	defer span.End()

	user := gentask.NewMessage(gentask.RoleUser, tr.message)
	assistant := gentask.NewMessage(gentask.RoleAssistant, gentask.Text(response))
	refs := tr.references != nil && tr.references.Text != ""

	write := func(m gentask.Memory) error {
		if err := m.AddChatMessage(ctx, user); err != nil {
			return err
		}
		if err := m.AddLLMMessages(ctx, tr.messages); err != nil {
			return err
		}
		if err := m.AddChatMessage(ctx, assistant); err != nil {
			return err
		}
		if refs {
			if err := m.AddReferences(ctx, *tr.references); err != nil {
				return err
			}
		}
		for _, call := range calls {
			if err := m.AddToolCall(ctx, call); err != nil {
				return err
			}
		}
		return nil
	}

	if err := write(t.memory); err != nil {
		span.RecordError(err)
		return fmt.Errorf("commit to task memory: %w", err)
	}
	conversation := t.cfg.ConversationMemory != nil
	if conversation {
		if err := write(t.cfg.ConversationMemory); err != nil {
			span.RecordError(err)
			return fmt.Errorf("commit to conversation memory: %w", err)
		}
	}

	span.SetAttributes(
		attribute.Int("commit.messages", len(tr.messages)),
		attribute.Int("commit.tool_calls", len(calls)),
		attribute.Bool("commit.references", refs),
	)
	t.cfg.Hooks.FireMemoryCommit(ctx, t, gentask.MemoryCommitEvent{
		Messages:     len(tr.messages),
		References:   refs,
		ToolCalls:    len(calls),
		Conversation: conversation,
	})
	return nil
}
