package gentask

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
)

// Role identifies the author of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Content is the body of a Message. It is either plain text or a structured list of
// langchaingo content parts (text, images, ...). Structured content is passed through
// untouched by the prompt templates, which only ever decorate plain text.
type Content struct {
	Text  string
	Parts []llms.ContentPart
}

// Text creates plain-text Content.
func Text(s string) *Content {
	return &Content{Text: s}
}

// Parts creates structured Content from the given parts.
func Parts(parts ...llms.ContentPart) *Content {
	return &Content{Parts: parts}
}

// IsStructured reports whether the content is a part list rather than plain text.
func (c *Content) IsStructured() bool {
	return c != nil && c.Parts != nil
}

// String returns the textual view of the content. Structured content is flattened by
// joining its text parts; non-text parts are skipped.
func (c *Content) String() string {
	if c == nil {
		return ""
	}
	if !c.IsStructured() {
		return c.Text
	}
	var texts []string
	for _, part := range c.Parts {
		if tc, ok := part.(llms.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// MarshalJSON renders text content as a JSON string and structured content as a list.
func (c Content) MarshalJSON() ([]byte, error) {
	if c.Parts == nil {
		return json.Marshal(c.Text)
	}
	return json.Marshal(c.Parts)
}

// UnmarshalJSON accepts either a JSON string or a list of typed parts. Only text and
// image_url parts are restored; other part types are dropped.
func (c *Content) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		c.Text = text
		c.Parts = nil
		return nil
	}
	var raw []struct {
		Type     string `json:"type"`
		Text     string `json:"text"`
		ImageURL struct {
			URL    string `json:"url"`
			Detail string `json:"detail"`
		} `json:"image_url"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("content must be a string or a part list: %w", err)
	}
	c.Text = ""
	c.Parts = make([]llms.ContentPart, 0, len(raw))
	for _, p := range raw {
		switch p.Type {
		case "text":
			c.Parts = append(c.Parts, llms.TextContent{Text: p.Text})
		case "image_url":
			c.Parts = append(c.Parts, llms.ImageURLContent{URL: p.ImageURL.URL, Detail: p.ImageURL.Detail})
		}
	}
	return nil
}

// MarshalYAML mirrors MarshalJSON for YAML encoders.
func (c Content) MarshalYAML() (any, error) {
	if c.Parts == nil {
		return c.Text, nil
	}
	return c.String(), nil
}

// Message is a single entry of a conversation.
type Message struct {
	Role    Role    `json:"role" yaml:"role"`
	Content Content `json:"content" yaml:"content"`
}

// NewMessage creates a message with the given role. A nil content produces an empty
// text message.
func NewMessage(role Role, content *Content) Message {
	if content == nil {
		return Message{Role: role}
	}
	return Message{Role: role, Content: *content}
}

// MessageContent converts the message to langchaingo's representation.
func (m Message) MessageContent() llms.MessageContent {
	var parts []llms.ContentPart
	if m.Content.IsStructured() {
		parts = m.Content.Parts
	} else {
		parts = []llms.ContentPart{llms.TextContent{Text: m.Content.Text}}
	}
	return llms.MessageContent{Role: m.Role.chatMessageType(), Parts: parts}
}

// ChatMessage converts the message to a langchaingo chat message, flattening structured
// content to text.
func (m Message) ChatMessage() llms.ChatMessage {
	text := m.Content.String()
	switch m.Role {
	case RoleSystem:
		return llms.SystemChatMessage{Content: text}
	case RoleAssistant:
		return llms.AIChatMessage{Content: text}
	case RoleTool:
		return llms.ToolChatMessage{Content: text}
	default:
		return llms.HumanChatMessage{Content: text}
	}
}

func (r Role) chatMessageType() llms.ChatMessageType {
	switch r {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	case RoleTool:
		return llms.ChatMessageTypeTool
	default:
		return llms.ChatMessageTypeHuman
	}
}

// References is a timed knowledge-base retrieval attached to a turn.
type References struct {
	Query   string
	Text    string
	Elapsed time.Duration
}

type referencesJSON struct {
	Query      string  `json:"query" yaml:"query"`
	References string  `json:"references" yaml:"references"`
	Time       float64 `json:"time" yaml:"time"`
}

func (r References) record() referencesJSON {
	return referencesJSON{
		Query:      r.Query,
		References: r.Text,
		Time:       math.Round(r.Elapsed.Seconds()*10000) / 10000,
	}
}

// MarshalJSON encodes the elapsed time in seconds, rounded to four decimals.
func (r References) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.record())
}

// UnmarshalJSON decodes the representation produced by MarshalJSON.
func (r *References) UnmarshalJSON(data []byte) error {
	var rec referencesJSON
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	r.Query = rec.Query
	r.Text = rec.References
	r.Elapsed = time.Duration(rec.Time * float64(time.Second))
	return nil
}

// MarshalYAML mirrors MarshalJSON for YAML encoders.
func (r References) MarshalYAML() (any, error) {
	return r.record(), nil
}

// Chat is one completed user/assistant exchange.
type Chat struct {
	User      Message `json:"user" yaml:"user"`
	Assistant Message `json:"assistant" yaml:"assistant"`
}

// ToolCall records one invocation of a tool exposed to the model.
type ToolCall struct {
	Name      string         `json:"name" yaml:"name"`
	Arguments map[string]any `json:"arguments,omitempty" yaml:"arguments,omitempty"`
	Result    string         `json:"result,omitempty" yaml:"result,omitempty"`
	Error     string         `json:"error,omitempty" yaml:"error,omitempty"`
	Duration  time.Duration  `json:"duration" yaml:"duration"`
}

// CallString returns a short human-readable form of the call, e.g. "search(query=go)".
// Long string arguments are elided.
func (c ToolCall) CallString() string {
	return FormatCall(c.Name, c.Arguments)
}

// FormatCall renders a tool invocation as name(k=v, ...) with keys in sorted order.
func FormatCall(name string, args map[string]any) string {
	if len(args) == 0 {
		return name + "()"
	}
	keys := slices.Sorted(maps.Keys(args))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := args[k]
		if s, ok := v.(string); ok && len(s) > 50 {
			v = "..."
		}
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}
