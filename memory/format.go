package memory

import (
	"github.com/rickchristie/gentask"
	"github.com/tmc/langchaingo/llms"
)

// Prefixes used when chat history is rendered as text.
const (
	HumanPrefix = "USER"
	AIPrefix    = "ASSISTANT"
)

// FormatHistory renders messages as "USER: ...\nASSISTANT: ..." lines.
func FormatHistory(msgs []gentask.Message) (string, error) {
	if len(msgs) == 0 {
		return "", nil
	}
	chat := make([]llms.ChatMessage, len(msgs))
	for i, m := range msgs {
		chat[i] = m.ChatMessage()
	}
	return llms.GetBufferString(chat, HumanPrefix, AIPrefix)
}

// PairChats groups a chat log into (user, assistant) exchanges. A user message without
// a following assistant message is left out.
func PairChats(msgs []gentask.Message) []gentask.Chat {
	var chats []gentask.Chat
	var pending *gentask.Message
	for i := range msgs {
		switch msgs[i].Role {
		case gentask.RoleUser:
			pending = &msgs[i]
		case gentask.RoleAssistant:
			if pending != nil {
				chats = append(chats, gentask.Chat{User: *pending, Assistant: msgs[i]})
				pending = nil
			}
		}
	}
	return chats
}

func lastN[T any](items []T, n int) []T {
	if n <= 0 || n >= len(items) {
		return append([]T(nil), items...)
	}
	return append([]T(nil), items[len(items)-n:]...)
}

// newestFirst returns up to limit items from the end of items, in reverse order.
func newestFirst[T any](items []T, limit int) []T {
	tail := lastN(items, limit)
	for i, j := 0, len(tail)-1; i < j; i, j = i+1, j-1 {
		tail[i], tail[j] = tail[j], tail[i]
	}
	return tail
}
