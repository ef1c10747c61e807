package tt

import (
	"context"
	"iter"
	"slices"
	"strings"
	"sync"

	"github.com/rickchristie/gentask"
)

// -----------------------------------------------------------------------------
// MockModel - implements gentask.Model
// -----------------------------------------------------------------------------

// MockToolCall is a tool invocation a MockModel performs before answering.
type MockToolCall struct {
	Name string
	Args map[string]any
}

// MockToolResult is the outcome of a MockToolCall.
type MockToolResult struct {
	Name   string
	Result string
	Err    error
}

type mockResponse struct {
	fragments []string
	calls     []MockToolCall
	err       error
}

// MockModel is a scripted gentask.Model. Responses are consumed in order by both
// GenerateBatch and GenerateStream; when the queue is empty the model answers "done".
type MockModel struct {
	mu        sync.Mutex
	settings  gentask.ModelSettings
	responses []mockResponse

	// Tools are the registered tools, in registration order.
	Tools []gentask.Tool

	// BatchCalls and StreamCalls capture the messages of every call.
	BatchCalls  [][]gentask.Message
	StreamCalls [][]gentask.Message

	// ToolResults captures the outcome of every scripted tool call.
	ToolResults []MockToolResult

	// Abandoned counts streams the consumer stopped early.
	Abandoned int
}

// NewMockModel creates a MockModel named "test-model".
func NewMockModel() *MockModel {
	return &MockModel{settings: gentask.ModelSettings{Name: "test-model"}}
}

// WithSettings replaces the model settings.
func (m *MockModel) WithSettings(s gentask.ModelSettings) *MockModel {
	m.settings = s
	return m
}

// AddResponse queues a response. Streaming calls deliver each fragment separately;
// batch calls return them joined.
func (m *MockModel) AddResponse(fragments ...string) *MockModel {
	m.responses = append(m.responses, mockResponse{fragments: fragments})
	return m
}

// AddToolResponse queues a response preceded by tool calls. The tools must be
// registered by the time the response is consumed.
func (m *MockModel) AddToolResponse(text string, calls ...MockToolCall) *MockModel {
	m.responses = append(m.responses, mockResponse{fragments: []string{text}, calls: calls})
	return m
}

// AddError queues an error.
func (m *MockModel) AddError(err error) *MockModel {
	m.responses = append(m.responses, mockResponse{err: err})
	return m
}

// CallCount returns the number of batch and stream calls made.
func (m *MockModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.BatchCalls) + len(m.StreamCalls)
}

// Tool returns the registered tool with the given name, or nil.
func (m *MockModel) Tool(name string) gentask.Tool {
	for _, t := range m.Tools {
		if t.Name() == name {
			return t
		}
	}
	return nil
}

// ToolNames returns the names of the registered tools.
func (m *MockModel) ToolNames() []string {
	names := make([]string, len(m.Tools))
	for i, t := range m.Tools {
		names[i] = t.Name()
	}
	return names
}

func (m *MockModel) next() mockResponse {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.responses) == 0 {
		return mockResponse{fragments: []string{"done"}}
	}
	r := m.responses[0]
	m.responses = m.responses[1:]
	return r
}

func (m *MockModel) runTools(ctx context.Context, calls []MockToolCall) {
	for _, c := range calls {
		res := MockToolResult{Name: c.Name}
		if tool := m.Tool(c.Name); tool != nil {
			res.Result, res.Err = tool.Call(ctx, c.Args)
		}
		m.ToolResults = append(m.ToolResults, res)
	}
}

func (m *MockModel) GenerateBatch(ctx context.Context, messages []gentask.Message) (string, error) {
	m.mu.Lock()
	m.BatchCalls = append(m.BatchCalls, slices.Clone(messages))
	m.mu.Unlock()

	r := m.next()
	if r.err != nil {
		return "", r.err
	}
	m.runTools(ctx, r.calls)
	return strings.Join(r.fragments, ""), nil
}

func (m *MockModel) GenerateStream(ctx context.Context, messages []gentask.Message) iter.Seq2[string, error] {
	m.mu.Lock()
	m.StreamCalls = append(m.StreamCalls, slices.Clone(messages))
	m.mu.Unlock()

	return func(yield func(string, error) bool) {
		r := m.next()
		if r.err != nil {
			yield("", r.err)
			return
		}
		m.runTools(ctx, r.calls)
		for _, frag := range r.fragments {
			if !yield(frag, nil) {
				m.mu.Lock()
				m.Abandoned++
				m.mu.Unlock()
				return
			}
		}
	}
}

func (m *MockModel) RegisterTool(tool gentask.Tool) {
	m.Tools = append(m.Tools, tool)
}

func (m *MockModel) Settings() *gentask.ModelSettings {
	return &m.settings
}

// -----------------------------------------------------------------------------
// MockKnowledgeBase - implements gentask.KnowledgeBase
// -----------------------------------------------------------------------------

// MockKnowledgeBase matches documents whose name or content contains the query,
// ignoring case.
type MockKnowledgeBase struct {
	Docs     []gentask.Document
	Searches []string
	Err      error
}

// NewMockKnowledgeBase creates a knowledge base holding docs.
func NewMockKnowledgeBase(docs ...gentask.Document) *MockKnowledgeBase {
	return &MockKnowledgeBase{Docs: docs}
}

func (kb *MockKnowledgeBase) Search(_ context.Context, query string, limit int) ([]gentask.Document, error) {
	kb.Searches = append(kb.Searches, query)
	if kb.Err != nil {
		return nil, kb.Err
	}
	q := strings.ToLower(query)
	var out []gentask.Document
	for _, d := range kb.Docs {
		if strings.Contains(strings.ToLower(d.Content), q) || strings.Contains(strings.ToLower(d.Name), q) {
			out = append(out, d)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (kb *MockKnowledgeBase) Load(_ context.Context, doc gentask.Document) error {
	if kb.Err != nil {
		return kb.Err
	}
	kb.Docs = append(kb.Docs, doc)
	return nil
}

var (
	_ gentask.Model         = (*MockModel)(nil)
	_ gentask.KnowledgeBase = (*MockKnowledgeBase)(nil)
)
