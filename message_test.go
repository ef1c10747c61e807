package gentask

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"gopkg.in/yaml.v3"
)

func TestContent_String(t *testing.T) {
	var nilContent *Content
	assert.Equal(t, "", nilContent.String())
	assert.False(t, nilContent.IsStructured())

	assert.Equal(t, "hi", Text("hi").String())
	assert.False(t, Text("hi").IsStructured())

	parts := Parts(
		llms.TextContent{Text: "look at this"},
		llms.ImageURLContent{URL: "https://example.com/cat.png"},
		llms.TextContent{Text: "what is it?"},
	)
	assert.True(t, parts.IsStructured())
	assert.Equal(t, "look at this\nwhat is it?", parts.String())

	// An empty part list is still structured.
	assert.True(t, Parts().IsStructured())
}

func TestContent_JSON(t *testing.T) {
	b, err := json.Marshal(NewMessage(RoleUser, Text("hello")))
	require.NoError(t, err)
	assert.JSONEq(t, `{"role": "user", "content": "hello"}`, string(b))

	var msg Message
	require.NoError(t, json.Unmarshal([]byte(`{
		"role": "user",
		"content": [
			{"type": "text", "text": "describe"},
			{"type": "image_url", "image_url": {"url": "https://example.com/a.png", "detail": "low"}},
			{"type": "binary", "data": "AAAA"}
		]
	}`), &msg))
	assert.Equal(t, RoleUser, msg.Role)
	assert.Equal(t, []llms.ContentPart{
		llms.TextContent{Text: "describe"},
		llms.ImageURLContent{URL: "https://example.com/a.png", Detail: "low"},
	}, msg.Content.Parts)

	var bad Content
	assert.Error(t, json.Unmarshal([]byte(`42`), &bad))
}

func TestContent_YAML(t *testing.T) {
	b, err := yaml.Marshal(NewMessage(RoleAssistant, Parts(llms.TextContent{Text: "a"}, llms.TextContent{Text: "b"})))
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, yaml.Unmarshal(b, &decoded))
	assert.Equal(t, map[string]string{"role": "assistant", "content": "a\nb"}, decoded)
}

func TestNewMessage_NilContent(t *testing.T) {
	msg := NewMessage(RoleUser, nil)
	assert.Equal(t, Message{Role: RoleUser}, msg)
	assert.Equal(t, "", msg.Content.String())
}

func TestMessage_LangchainConversion(t *testing.T) {
	tests := []struct {
		role     Role
		wantType llms.ChatMessageType
	}{
		{role: RoleSystem, wantType: llms.ChatMessageTypeSystem},
		{role: RoleUser, wantType: llms.ChatMessageTypeHuman},
		{role: RoleAssistant, wantType: llms.ChatMessageTypeAI},
		{role: RoleTool, wantType: llms.ChatMessageTypeTool},
	}

	for _, tc := range tests {
		msg := NewMessage(tc.role, Text("x"))
		mc := msg.MessageContent()
		assert.Equal(t, tc.wantType, mc.Role, tc.role)
		assert.Equal(t, []llms.ContentPart{llms.TextContent{Text: "x"}}, mc.Parts)
		assert.Equal(t, tc.wantType, msg.ChatMessage().GetType(), tc.role)
	}

	image := llms.ImageURLContent{URL: "https://example.com/a.png"}
	mc := NewMessage(RoleUser, Parts(image)).MessageContent()
	assert.Equal(t, []llms.ContentPart{image}, mc.Parts)
}

func TestReferences_Encoding(t *testing.T) {
	refs := References{Query: "pi", Text: "3.14159", Elapsed: 123456789 * time.Nanosecond}

	b, err := json.Marshal(refs)
	require.NoError(t, err)
	assert.JSONEq(t, `{"query": "pi", "references": "3.14159", "time": 0.1235}`, string(b))

	var back References
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, "pi", back.Query)
	assert.Equal(t, "3.14159", back.Text)
	assert.InDelta(t, float64(123500*time.Microsecond), float64(back.Elapsed), float64(time.Microsecond))

	y, err := yaml.Marshal(refs)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(y, &decoded))
	assert.Equal(t, map[string]any{"query": "pi", "references": "3.14159", "time": 0.1235}, decoded)
}
