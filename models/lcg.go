package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync"

	"github.com/rickchristie/gentask"
	"github.com/rickchristie/gentask/internal/buffer"
	"github.com/rickchristie/gentask/schema"
	"github.com/tmc/langchaingo/llms"
)

// DefaultToolCallLimit is the tool call ceiling of a new LCG.
const DefaultToolCallLimit = 20

// ErrNoChoices is returned when the provider answers without any choice.
var ErrNoChoices = errors.New("model returned no choices")

// LCG adapts a langchaingo llms.Model to gentask.Model. It runs the function-calling
// loop itself: tool calls requested by the model are executed and their results fed
// back until the model answers with plain text or the tool call ceiling is reached,
// after which tool choice is forced to "none".
//
//	llm, _ := openai.New(openai.WithToken(apiKey))
//	model := models.NewLCG(llm).WithModelName("gpt-4o")
//
// An LCG is meant to be driven by one task at a time.
type LCG struct {
	model    llms.Model
	settings gentask.ModelSettings
	options  []llms.CallOption
	logger   *slog.Logger

	tools      []gentask.Tool
	validators map[string]*schema.Schema

	mu    sync.Mutex
	usage Usage
}

// NewLCG creates an LCG wrapping model.
func NewLCG(model llms.Model) *LCG {
	return &LCG{
		model:      model,
		settings:   gentask.ModelSettings{ToolCallLimit: DefaultToolCallLimit},
		logger:     slog.Default(),
		validators: make(map[string]*schema.Schema),
	}
}

// WithModelName sets the model name reported in settings, logs and hooks.
func (m *LCG) WithModelName(name string) *LCG {
	m.settings.Name = name
	return m
}

// WithCallOptions adds options passed to every GenerateContent call, e.g.
// llms.WithTemperature.
func (m *LCG) WithCallOptions(opts ...llms.CallOption) *LCG {
	m.options = append(m.options, opts...)
	return m
}

// WithLogger sets the logger used for tool call diagnostics.
func (m *LCG) WithLogger(logger *slog.Logger) *LCG {
	m.logger = logger
	return m
}

// Unwrap returns the underlying llms.Model.
func (m *LCG) Unwrap() llms.Model {
	return m.model
}

// Settings returns the mutable settings.
func (m *LCG) Settings() *gentask.ModelSettings {
	return &m.settings
}

// Usage returns the token usage accumulated over every call so far.
func (m *LCG) Usage() Usage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usage
}

// Tools returns the registered tools in registration order.
func (m *LCG) Tools() []gentask.Tool {
	return append([]gentask.Tool(nil), m.tools...)
}

// RegisterTool exposes tool to the model. A tool with the same name replaces the
// earlier one.
func (m *LCG) RegisterTool(tool gentask.Tool) {
	for i, t := range m.tools {
		if t.Name() == tool.Name() {
			m.tools[i] = tool
			m.compileValidator(tool)
			return
		}
	}
	m.tools = append(m.tools, tool)
	m.compileValidator(tool)
}

func (m *LCG) compileValidator(tool gentask.Tool) {
	delete(m.validators, tool.Name())
	s, err := schema.Compile(tool.ParameterSchema())
	if err != nil {
		m.logger.Warn("tool parameter schema does not compile, arguments will not be validated",
			"tool", tool.Name(), "error", err)
		return
	}
	if s != nil {
		m.validators[tool.Name()] = s
	}
}

// GenerateBatch implements gentask.Model.
func (m *LCG) GenerateBatch(ctx context.Context, messages []gentask.Message) (string, error) {
	return m.generate(ctx, messages, nil)
}

type chunk struct {
	text string
	err  error
}

// GenerateStream implements gentask.Model. The provider call runs in its own
// goroutine and feeds an unbounded buffer, so a slow consumer never stalls the
// provider's streaming callback. Stopping iteration cancels the provider call and
// waits for the goroutine, including any tool call in flight, before returning.
func (m *LCG) GenerateStream(ctx context.Context, messages []gentask.Message) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		buf := buffer.NewUnbounded[chunk]()
		done := make(chan struct{})
		defer func() {
			cancel()
			buf.Abort()
			<-done
		}()

		go func() {
			defer close(done)
			defer buf.Close()
			_, err := m.generate(ctx, messages, func(s string) {
				buf.Send(chunk{text: s})
			})
			if err != nil {
				buf.Send(chunk{err: err})
			}
		}()

		for c := range buf.Receive() {
			if c.err != nil {
				yield("", c.err)
				return
			}
			if c.text == "" {
				continue
			}
			if !yield(c.text, nil) {
				return
			}
		}
	}
}

// generate runs the tool loop. When stream is non-nil the provider streams and every
// text fragment, including tool call notices, goes to stream as it is produced.
func (m *LCG) generate(
	ctx context.Context,
	messages []gentask.Message,
	stream func(string),
) (string, error) {
	history := make([]llms.MessageContent, len(messages))
	for i, msg := range messages {
		history[i] = msg.MessageContent()
	}

	var out strings.Builder
	emit := func(s string) {
		out.WriteString(s)
		if stream != nil {
			stream(s)
		}
	}

	calls := 0
	for {
		limitReached := m.settings.ToolCallLimit > 0 && calls >= m.settings.ToolCallLimit
		opts := m.callOptions(limitReached)
		if stream != nil {
			// Only answer text is forwarded; reasoning chunks are dropped.
			opts = append(opts, llms.WithStreamingReasoningFunc(
				func(_ context.Context, _, content []byte) error {
					if len(content) > 0 {
						emit(string(content))
					}
					return nil
				},
			))
		}

		resp, err := m.model.GenerateContent(ctx, history, opts...)
		if err != nil {
			return out.String(), fmt.Errorf("generate content: %w", err)
		}
		if len(resp.Choices) == 0 {
			return out.String(), ErrNoChoices
		}
		choice := resp.Choices[0]
		m.recordUsage(choice.GenerationInfo)

		if stream == nil {
			emit(choice.Content)
		}
		if len(choice.ToolCalls) == 0 {
			return out.String(), nil
		}
		if limitReached {
			m.logger.Warn("model requested tools after the tool call limit, ignoring",
				"model", m.settings.Name, "limit", m.settings.ToolCallLimit)
			return out.String(), nil
		}

		assistant := llms.MessageContent{Role: llms.ChatMessageTypeAI}
		if choice.Content != "" {
			assistant.Parts = append(assistant.Parts, llms.TextContent{Text: choice.Content})
		}
		for _, tc := range choice.ToolCalls {
			assistant.Parts = append(assistant.Parts, tc)
		}
		history = append(history, assistant)

		for _, tc := range choice.ToolCalls {
			name, args, result := m.callTool(ctx, tc)
			calls++
			if m.showToolCalls() {
				emit(fmt.Sprintf(" - Running: %s\n\n", gentask.FormatCall(name, args)))
			}
			history = append(history, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: tc.ID,
					Name:       name,
					Content:    result,
				}},
			})
		}
	}
}

func (m *LCG) showToolCalls() bool {
	return m.settings.ShowToolCalls != nil && *m.settings.ShowToolCalls
}

func (m *LCG) callOptions(limitReached bool) []llms.CallOption {
	opts := append([]llms.CallOption(nil), m.options...)
	if m.settings.ResponseFormat == gentask.ResponseFormatJSON {
		opts = append(opts, llms.WithJSONMode())
	}
	if len(m.tools) == 0 {
		return opts
	}

	defs := make([]llms.Tool, len(m.tools))
	for i, t := range m.tools {
		params := t.ParameterSchema()
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		defs[i] = llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  params,
			},
		}
	}
	opts = append(opts, llms.WithTools(defs))

	switch {
	case limitReached:
		opts = append(opts, llms.WithToolChoice(string(gentask.ToolChoiceNone)))
	case m.settings.ToolChoice != nil:
		opts = append(opts, llms.WithToolChoice(string(*m.settings.ToolChoice)))
	}
	return opts
}

// callTool executes one requested tool call. Failures are reported back to the model
// as the tool result.
func (m *LCG) callTool(ctx context.Context, tc llms.ToolCall) (string, map[string]any, string) {
	if tc.FunctionCall == nil {
		return "", nil, "Error: tool call has no function"
	}
	name := tc.FunctionCall.Name

	var args map[string]any
	if raw := strings.TrimSpace(tc.FunctionCall.Arguments); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return name, nil, fmt.Sprintf("Error: arguments are not a JSON object: %v", err)
		}
	}

	var tool gentask.Tool
	for _, t := range m.tools {
		if t.Name() == name {
			tool = t
			break
		}
	}
	if tool == nil {
		return name, args, fmt.Sprintf("Error: unknown tool %q", name)
	}

	if v, ok := m.validators[name]; ok {
		validated := args
		if validated == nil {
			validated = map[string]any{}
		}
		if err := v.Validate(validated); err != nil {
			return name, args, fmt.Sprintf("Error: %v", err)
		}
	}

	result, err := tool.Call(ctx, args)
	if err != nil {
		m.logger.Warn("tool call failed", "tool", name, "error", err)
		return name, args, fmt.Sprintf("Error: %v", err)
	}
	return name, args, result
}

func (m *LCG) recordUsage(info map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage.add(usageFromGenerationInfo(info))
}

// Compile-time check that LCG implements gentask.Model.
var _ gentask.Model = (*LCG)(nil)
