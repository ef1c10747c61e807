package task

import (
	"context"
	"fmt"

	"github.com/rickchristie/gentask"
)

// FormattedHistory renders recent chat history for the user prompt. HistoryFunc wins
// when set; otherwise the conversation memory is read if attached, else the task
// memory. An empty string means there is no history.
func (t *Task) FormattedHistory(ctx context.Context) (string, error) {
	ctx, span := t.tracer.Start(ctx, "gentask.history")
	defer span.End()

	if t.cfg.HistoryFunc != nil {
		s, err := t.cfg.HistoryFunc(ctx, t)
		if err != nil {
			return "", fmt.Errorf("history func: %w", err)
		}
		return s, nil
	}

	s, err := t.historySource().FormattedHistory(ctx, t.cfg.HistoryMessages)
	if err != nil {
		return "", fmt.Errorf("format history: %w", err)
	}
	return s, nil
}

// historyMessages returns the recent messages inserted before the user message.
func (t *Task) historyMessages(ctx context.Context) ([]gentask.Message, error) {
	msgs, err := t.historySource().LastMessages(ctx, t.cfg.HistoryMessages)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return msgs, nil
}

func (t *Task) historySource() gentask.Memory {
	if t.cfg.ConversationMemory != nil {
		return t.cfg.ConversationMemory
	}
	return t.memory
}
