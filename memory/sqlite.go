package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rickchristie/gentask"
)

const (
	kindChat       = "chat"
	kindLLM        = "llm"
	kindReferences = "references"
	kindToolCall   = "tool_call"
)

// SQLite stores the log of one conversation in a SQLite database. Several
// conversations can share a database file; each SQLite value only sees its own rows.
type SQLite struct {
	db             *sql.DB
	conversationID string
	now            func() time.Time
}

// NewSQLite opens (or creates) the database at path and binds the log to
// conversationID. An empty conversationID starts a new conversation with a random ID.
func NewSQLite(path, conversationID string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: SQLite serializes writers anyway, and ":memory:" databases are
	// per connection.
	db.SetMaxOpenConns(1)
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	s := &SQLite{db: db, conversationID: conversationID, now: time.Now}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// ConversationID returns the ID the log is bound to.
func (s *SQLite) ConversationID() string {
	return s.conversationID
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) init() error {
	ddl := `
	CREATE TABLE IF NOT EXISTS memory_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_memory_conversation ON memory_entries(conversation_id, kind);
	`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *SQLite) insert(ctx context.Context, kind string, payloads ...any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, p := range payloads {
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to encode %s entry: %w", kind, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO memory_entries (conversation_id, kind, payload, created_at)
			VALUES (?, ?, ?, ?)
		`, s.conversationID, kind, string(data), s.now())
		if err != nil {
			return fmt.Errorf("failed to save %s entry: %w", kind, err)
		}
	}
	return tx.Commit()
}

// load decodes every entry of kind, oldest first.
func load[T any](ctx context.Context, s *SQLite, kind string) ([]T, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM memory_entries
		WHERE conversation_id = ? AND kind = ?
		ORDER BY id
	`, s.conversationID, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s entries: %w", kind, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan %s entry: %w", kind, err)
		}
		var v T
		if err := json.Unmarshal([]byte(payload), &v); err != nil {
			return nil, fmt.Errorf("failed to decode %s entry: %w", kind, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *SQLite) AddChatMessage(ctx context.Context, msg gentask.Message) error {
	return s.insert(ctx, kindChat, msg)
}

func (s *SQLite) AddLLMMessages(ctx context.Context, msgs []gentask.Message) error {
	payloads := make([]any, len(msgs))
	for i, m := range msgs {
		payloads[i] = m
	}
	return s.insert(ctx, kindLLM, payloads...)
}

func (s *SQLite) AddReferences(ctx context.Context, refs gentask.References) error {
	return s.insert(ctx, kindReferences, refs)
}

func (s *SQLite) AddToolCall(ctx context.Context, call gentask.ToolCall) error {
	return s.insert(ctx, kindToolCall, call)
}

func (s *SQLite) Chats(ctx context.Context) ([]gentask.Chat, error) {
	msgs, err := load[gentask.Message](ctx, s, kindChat)
	if err != nil {
		return nil, err
	}
	return PairChats(msgs), nil
}

func (s *SQLite) LastMessages(ctx context.Context, n int) ([]gentask.Message, error) {
	msgs, err := load[gentask.Message](ctx, s, kindChat)
	if err != nil {
		return nil, err
	}
	return lastN(msgs, n), nil
}

func (s *SQLite) ToolCalls(ctx context.Context, limit int) ([]gentask.ToolCall, error) {
	calls, err := load[gentask.ToolCall](ctx, s, kindToolCall)
	if err != nil {
		return nil, err
	}
	return newestFirst(calls, limit), nil
}

func (s *SQLite) FormattedHistory(ctx context.Context, limit int) (string, error) {
	msgs, err := s.LastMessages(ctx, limit)
	if err != nil {
		return "", err
	}
	return FormatHistory(msgs)
}

func (s *SQLite) Serialize(ctx context.Context) (gentask.MemorySnapshot, error) {
	var snap gentask.MemorySnapshot
	var err error
	if snap.ChatHistory, err = load[gentask.Message](ctx, s, kindChat); err != nil {
		return snap, err
	}
	if snap.LLMMessages, err = load[gentask.Message](ctx, s, kindLLM); err != nil {
		return snap, err
	}
	if snap.References, err = load[gentask.References](ctx, s, kindReferences); err != nil {
		return snap, err
	}
	if snap.ToolCalls, err = load[gentask.ToolCall](ctx, s, kindToolCall); err != nil {
		return snap, err
	}
	return snap, nil
}

// Compile-time check that SQLite implements gentask.Memory.
var _ gentask.Memory = (*SQLite)(nil)
