package task

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rickchristie/gentask"
	"github.com/rickchristie/gentask/hooks"
	"github.com/rickchristie/gentask/internal/tt"
	"github.com/rickchristie/gentask/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func snapshot(t *testing.T, m gentask.Memory) gentask.MemorySnapshot {
	t.Helper()
	snap, err := m.Serialize(context.Background())
	require.NoError(t, err)
	return snap
}

func TestRun_PlainMessage(t *testing.T) {
	model := tt.NewMockModel().AddResponse("4")
	task := newTask(func(c *Config) { c.Model = model })

	res, err := task.Run(context.Background(), gentask.Text("What is 2+2?"))
	require.NoError(t, err)
	assert.Equal(t, "4", res.Raw)
	assert.Equal(t, "4", res.Output)
	assert.False(t, res.Structured)
	assert.Nil(t, res.References)
	assert.Equal(t, "4", task.Output())

	require.Len(t, model.BatchCalls, 1)
	msgs := model.BatchCalls[0]
	require.Len(t, msgs, 2)

	assert.Equal(t, gentask.RoleSystem, msgs[0].Role)
	system := msgs[0].Content.Text
	assert.True(t, strings.HasPrefix(system, DefaultDescription))
	assert.True(t, strings.HasSuffix(system, antiLeakTrailer))

	assert.Equal(t, gentask.NewMessage(gentask.RoleUser, gentask.Text("What is 2+2?")), msgs[1])
}

func TestRun_SystemPromptDisabled(t *testing.T) {
	model := tt.NewMockModel()
	task := newTask(func(c *Config) {
		c.Model = model
		c.SystemPrompt = gentask.SystemDisabled()
	})

	_, err := task.Run(context.Background(), gentask.Text("hi"))
	require.NoError(t, err)
	require.Len(t, model.BatchCalls[0], 1)
	assert.Equal(t, gentask.RoleUser, model.BatchCalls[0][0].Role)
}

func TestRun_MemoryCommit(t *testing.T) {
	kb := tt.NewMockKnowledgeBase(gentask.Document{Name: "pi", Content: "pi is about 3.14159"})

	tests := []struct {
		name           string
		references     bool
		message        string
		wantReferences int
	}{
		{name: "no augmentation", message: "pi", wantReferences: 0},
		{name: "augmentation with result", references: true, message: "pi", wantReferences: 1},
		{name: "augmentation without result", references: true, message: "tau", wantReferences: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			model := tt.NewMockModel().AddResponse("answer")
			task := newTask(func(c *Config) {
				c.Model = model
				c.KnowledgeBase = kb
				c.AddReferencesToPrompt = tc.references
			})

			res, err := task.Run(context.Background(), gentask.Text(tc.message))
			require.NoError(t, err)

			snap := snapshot(t, task.Memory())
			require.Len(t, snap.ChatHistory, 2)
			assert.Equal(t, gentask.NewMessage(gentask.RoleUser, gentask.Text(tc.message)), snap.ChatHistory[0])
			assert.Equal(t, gentask.NewMessage(gentask.RoleAssistant, gentask.Text("answer")), snap.ChatHistory[1])
			assert.Equal(t, res.Messages, snap.LLMMessages)
			assert.Len(t, snap.References, tc.wantReferences)
			if tc.wantReferences == 1 {
				assert.Equal(t, tc.message, snap.References[0].Query)
				assert.Contains(t, snap.References[0].Text, "3.14159")
			}
		})
	}
}

func TestRun_ReferencesInUserPrompt(t *testing.T) {
	model := tt.NewMockModel()
	kb := tt.NewMockKnowledgeBase(
		gentask.Document{Name: "paris", Content: "Paris is the capital of France"},
		gentask.Document{Name: "lyon", Content: "Lyon is known for its capital cuisine"},
	)
	task := newTask(func(c *Config) {
		c.Model = model
		c.KnowledgeBase = kb
		c.AddReferencesToPrompt = true
		c.ReferenceDocuments = 1
	})

	res, err := task.Run(context.Background(), gentask.Text("capital"))
	require.NoError(t, err)
	require.NotNil(t, res.References)
	assert.Equal(t, `[{"name":"paris","content":"Paris is the capital of France"}]`, res.References.Text)

	user := model.BatchCalls[0][len(model.BatchCalls[0])-1].Content.Text
	assert.Contains(t, user, "<knowledge_base>\n"+res.References.Text+"\n</knowledge_base>")
	assert.True(t, strings.HasSuffix(user, "USER: capital\nASSISTANT: "))
}

func TestRun_StructuredMessageSkipsReferences(t *testing.T) {
	model := tt.NewMockModel()
	kb := tt.NewMockKnowledgeBase(gentask.Document{Content: "cats"})
	task := newTask(func(c *Config) {
		c.Model = model
		c.KnowledgeBase = kb
		c.AddReferencesToPrompt = true
	})

	msg := gentask.Parts(llms.TextContent{Text: "cats"}, llms.ImageURLContent{URL: "https://example.com/cat.png"})
	res, err := task.Run(context.Background(), msg)
	require.NoError(t, err)
	assert.Nil(t, res.References)
	assert.Empty(t, kb.Searches)
	assert.Equal(t, *msg, model.BatchCalls[0][1].Content)
}

func TestRun_ReferencesFunc(t *testing.T) {
	model := tt.NewMockModel()
	task := newTask(func(c *Config) {
		c.Model = model
		c.AddReferencesToPrompt = true
		c.ReferencesFunc = func(_ context.Context, _ gentask.TaskInfo, query string) (string, error) {
			return "custom refs for " + query, nil
		}
	})

	res, err := task.Run(context.Background(), gentask.Text("go"))
	require.NoError(t, err)
	assert.Equal(t, "custom refs for go", res.References.Text)
	assert.Len(t, snapshot(t, task.Memory()).References, 1)
}

func TestRun_HistoryInMessagesAndPrompt(t *testing.T) {
	ctx := context.Background()
	model := tt.NewMockModel().AddResponse("Paris").AddResponse("Rome")
	task := newTask(func(c *Config) {
		c.Model = model
		c.AddHistoryToMessages = true
		c.AddHistoryToPrompt = true
		c.SystemPrompt = gentask.SystemDisabled()
	})

	_, err := task.Run(ctx, gentask.Text("Capital of France?"))
	require.NoError(t, err)
	_, err = task.Run(ctx, gentask.Text("And Italy?"))
	require.NoError(t, err)

	// First turn has no history, so the message is sent unchanged.
	assert.Equal(t, []gentask.Message{
		gentask.NewMessage(gentask.RoleUser, gentask.Text("Capital of France?")),
	}, model.BatchCalls[0])

	second := model.BatchCalls[1]
	require.Len(t, second, 3)
	assert.Equal(t, gentask.NewMessage(gentask.RoleUser, gentask.Text("Capital of France?")), second[0])
	assert.Equal(t, gentask.NewMessage(gentask.RoleAssistant, gentask.Text("Paris")), second[1])
	tt.AssertTextEqual(t, "Use the following chat history to reference past messages:\n"+
		"<chat_history>\n"+
		"USER: Capital of France?\n"+
		"ASSISTANT: Paris\n"+
		"</chat_history>\n\n"+
		"Respond to the following message:\n"+
		"USER: And Italy?\n"+
		"ASSISTANT: ", second[2].Content.Text)
}

func TestRun_HistoryWindow(t *testing.T) {
	ctx := context.Background()
	model := tt.NewMockModel()
	task := newTask(func(c *Config) {
		c.Model = model
		c.AddHistoryToMessages = true
		c.HistoryMessages = 2
		c.SystemPrompt = gentask.SystemDisabled()
	})

	for _, msg := range []string{"one", "two", "three"} {
		_, err := task.Run(ctx, gentask.Text(msg))
		require.NoError(t, err)
	}

	last := model.BatchCalls[2]
	require.Len(t, last, 3)
	assert.Equal(t, "two", last[0].Content.Text)
	assert.Equal(t, "done", last[1].Content.Text)
	assert.Equal(t, "three", last[2].Content.Text)
}

func TestFormattedHistory_WindowCountsMessages(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	for _, m := range []gentask.Message{
		gentask.NewMessage(gentask.RoleUser, gentask.Text("u1")),
		gentask.NewMessage(gentask.RoleAssistant, gentask.Text("a1")),
		gentask.NewMessage(gentask.RoleUser, gentask.Text("u2")),
		gentask.NewMessage(gentask.RoleAssistant, gentask.Text("a2")),
	} {
		require.NoError(t, mem.AddChatMessage(ctx, m))
	}

	tests := []struct {
		window int
		want   string
	}{
		{window: 1, want: "ASSISTANT: a2"},
		{window: 3, want: "ASSISTANT: a1\nUSER: u2\nASSISTANT: a2"},
		{window: 0, want: "USER: u1\nASSISTANT: a1\nUSER: u2\nASSISTANT: a2"},
	}

	for _, tc := range tests {
		task := newTask(func(c *Config) {
			c.Memory = mem
			c.HistoryMessages = tc.window
		})
		got, err := task.FormattedHistory(ctx)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "window=%d", tc.window)
	}
}

func TestRun_ConversationMemory(t *testing.T) {
	ctx := context.Background()
	conversation := memory.New()
	require.NoError(t, conversation.AddChatMessage(ctx, gentask.NewMessage(gentask.RoleUser, gentask.Text("earlier"))))
	require.NoError(t, conversation.AddChatMessage(ctx, gentask.NewMessage(gentask.RoleAssistant, gentask.Text("reply"))))

	model := tt.NewMockModel().AddResponse("now")
	task := newTask(func(c *Config) {
		c.Model = model
		c.ConversationMemory = conversation
		c.AddHistoryToPrompt = true
		c.SystemPrompt = gentask.SystemDisabled()
	})

	_, err := task.Run(ctx, gentask.Text("current"))
	require.NoError(t, err)

	// History comes from the conversation, not the empty task memory.
	assert.Contains(t, model.BatchCalls[0][0].Content.Text, "USER: earlier\nASSISTANT: reply")

	taskSnap := snapshot(t, task.Memory())
	convSnap := snapshot(t, conversation)
	assert.Len(t, taskSnap.ChatHistory, 2)
	require.Len(t, convSnap.ChatHistory, 4)
	assert.Equal(t, taskSnap.ChatHistory, convSnap.ChatHistory[2:])
	assert.Equal(t, taskSnap.LLMMessages, convSnap.LLMMessages)
}

func TestRun_HistoryFunc(t *testing.T) {
	model := tt.NewMockModel()
	task := newTask(func(c *Config) {
		c.Model = model
		c.AddHistoryToPrompt = true
		c.HistoryFunc = func(context.Context, gentask.TaskInfo) (string, error) {
			return "USER: custom", nil
		}
	})

	_, err := task.Run(context.Background(), gentask.Text("hi"))
	require.NoError(t, err)
	assert.Contains(t, model.BatchCalls[0][1].Content.Text, "<chat_history>\nUSER: custom\n</chat_history>")
}

func TestRun_StructuredOutput(t *testing.T) {
	tests := []struct {
		name           string
		schema         gentask.OutputSchema
		response       string
		want           any
		wantStructured bool
		wantDecodeErr  bool
	}{
		{
			name:           "typed fenced",
			schema:         gentask.MustTypedSchemaFor[answer](),
			response:       "```json\n{\"answer\": 4}\n```",
			want:           answer{Answer: 4},
			wantStructured: true,
		},
		{
			name:           "typed plain",
			schema:         gentask.MustTypedSchemaFor[answer](),
			response:       `{"answer": 4}`,
			want:           answer{Answer: 4},
			wantStructured: true,
		},
		{
			name:          "typed invalid",
			schema:        gentask.MustTypedSchemaFor[answer](),
			response:      `{"answer": "four"}`,
			want:          `{"answer": "four"}`,
			wantDecodeErr: true,
		},
		{
			name:           "string schema",
			schema:         gentask.StringSchema{Fields: "city"},
			response:       `{"city": "Oslo"}`,
			want:           map[string]any{"city": "Oslo"},
			wantStructured: true,
		},
		{
			name:          "list schema not json",
			schema:        gentask.ListSchema{Fields: []string{"city"}},
			response:      "Oslo",
			want:          "Oslo",
			wantDecodeErr: true,
		},
		{
			name:          "string schema fenced is not unwrapped",
			schema:        gentask.StringSchema{Fields: "city"},
			response:      "```json\n{\"city\": \"Oslo\"}\n```",
			want:          "```json\n{\"city\": \"Oslo\"}\n```",
			wantDecodeErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := tt.NewEventRecorder()
			model := tt.NewMockModel().AddResponse(tc.response)
			task := newTask(func(c *Config) {
				c.Model = model
				c.OutputSchema = tc.schema
				c.Hooks = hooks.NewRegistry().Register(recorder)
			})

			res, err := task.Run(context.Background(), gentask.Text("q"))
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.Output)
			assert.Equal(t, tc.want, task.Output())
			assert.Equal(t, tc.response, res.Raw)
			assert.Equal(t, tc.wantStructured, res.Structured)
			assert.Equal(t, gentask.ResponseFormatJSON, model.Settings().ResponseFormat)

			decodeFailures := recorder.CountEventNames()[gentask.EventNameDecodeFailure]
			if tc.wantDecodeErr {
				require.NotNil(t, res.DecodeErr)
				assert.Equal(t, tc.response, res.DecodeErr.Raw)
				assert.Equal(t, 1, decodeFailures)
			} else {
				assert.Nil(t, res.DecodeErr)
				assert.Zero(t, decodeFailures)
			}
		})
	}
}

func TestRun_ParseOutputDisabled(t *testing.T) {
	task := newTask(func(c *Config) {
		c.Model = tt.NewMockModel().AddResponse(`{"answer": 4}`)
		c.OutputSchema = gentask.MustTypedSchemaFor[answer]()
		c.ParseOutput = false
	})

	res, err := task.Run(context.Background(), gentask.Text("q"))
	require.NoError(t, err)
	assert.Equal(t, `{"answer": 4}`, res.Output)
	assert.False(t, res.Structured)
}

func TestRunStream(t *testing.T) {
	recorder := tt.NewEventRecorder()
	model := tt.NewMockModel().AddResponse("Hel", "lo", " world")
	task := newTask(func(c *Config) {
		c.Model = model
		c.Hooks = hooks.NewRegistry().Register(recorder)
	})

	var frags []string
	for frag, err := range task.RunStream(context.Background(), gentask.Text("greet")) {
		require.NoError(t, err)
		frags = append(frags, frag)
	}

	assert.Equal(t, []string{"Hel", "lo", " world"}, frags)
	assert.Len(t, model.StreamCalls, 1)
	assert.Empty(t, model.BatchCalls)
	assert.Equal(t, "Hello world", task.Output())

	snap := snapshot(t, task.Memory())
	require.Len(t, snap.ChatHistory, 2)
	assert.Equal(t, "Hello world", snap.ChatHistory[1].Content.Text)

	assert.Equal(t, []string{
		gentask.EventNameRunBefore,
		gentask.EventNameModelCallBefore,
		gentask.EventNameModelCallAfter,
		gentask.EventNameMemoryCommit,
		gentask.EventNameRunAfter,
	}, recorder.Names())
}

func TestRunStream_AbandonedWritesNothing(t *testing.T) {
	recorder := tt.NewEventRecorder()
	model := tt.NewMockModel().AddResponse("Hel", "lo", " world")
	task := newTask(func(c *Config) {
		c.Model = model
		c.Hooks = hooks.NewRegistry().Register(recorder)
	})

	var frags []string
	for frag, err := range task.RunStream(context.Background(), gentask.Text("greet")) {
		require.NoError(t, err)
		frags = append(frags, frag)
		break
	}

	assert.Equal(t, []string{"Hel"}, frags)
	assert.Equal(t, 1, model.Abandoned)
	assert.Nil(t, task.Output())

	snap := snapshot(t, task.Memory())
	assert.Empty(t, snap.ChatHistory)
	assert.Empty(t, snap.LLMMessages)
	assert.Empty(t, snap.References)
	assert.Empty(t, snap.ToolCalls)

	counts := recorder.CountEventNames()
	assert.Zero(t, counts[gentask.EventNameMemoryCommit])
	assert.Zero(t, counts[gentask.EventNameRunAfter])
}

func TestRunStream_StructuredOutputUsesBatch(t *testing.T) {
	model := tt.NewMockModel().AddResponse("```json\n{\"answer\": 4}\n```")
	task := newTask(func(c *Config) {
		c.Model = model
		c.OutputSchema = gentask.MustTypedSchemaFor[answer]()
	})

	var frags []string
	for frag, err := range task.RunStream(context.Background(), gentask.Text("What is 2+2?")) {
		require.NoError(t, err)
		frags = append(frags, frag)
	}

	assert.Len(t, model.BatchCalls, 1)
	assert.Empty(t, model.StreamCalls)
	assert.Equal(t, []string{"```json\n{\"answer\": 4}\n```"}, frags)
	assert.Equal(t, answer{Answer: 4}, task.Output())
}

func TestRun_Errors(t *testing.T) {
	boom := errors.New("provider unavailable")

	tests := []struct {
		name    string
		mutate  func(*Config)
		msg     *gentask.Content
		wantErr error
	}{
		{
			name:    "no model",
			mutate:  func(c *Config) { c.Model = nil },
			msg:     gentask.Text("hi"),
			wantErr: gentask.ErrNoModel,
		},
		{
			name: "factory error",
			mutate: func(c *Config) {
				c.Model = nil
				c.ModelFactory = func() (gentask.Model, error) { return nil, boom }
			},
			msg:     gentask.Text("hi"),
			wantErr: boom,
		},
		{
			name:    "no message",
			wantErr: gentask.ErrPromptConstruction,
		},
		{
			name: "empty system generator",
			mutate: func(c *Config) {
				c.SystemPrompt = gentask.SystemGenerator(func(context.Context, gentask.TaskInfo) (string, error) {
					return "", nil
				})
			},
			msg:     gentask.Text("hi"),
			wantErr: gentask.ErrPromptSourceEmpty,
		},
		{
			name:    "model error",
			mutate:  func(c *Config) { c.Model = tt.NewMockModel().AddError(boom).AddError(boom) },
			msg:     gentask.Text("hi"),
			wantErr: boom,
		},
		{
			name: "knowledge base error",
			mutate: func(c *Config) {
				c.KnowledgeBase = &tt.MockKnowledgeBase{Err: boom}
				c.AddReferencesToPrompt = true
			},
			msg:     gentask.Text("hi"),
			wantErr: boom,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			task := newTask(tc.mutate)

			_, err := task.Run(context.Background(), tc.msg)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Empty(t, snapshot(t, task.Memory()).ChatHistory)

			var streamErr error
			for _, err := range task.RunStream(context.Background(), tc.msg) {
				streamErr = err
			}
			assert.ErrorIs(t, streamErr, tc.wantErr)
			assert.Empty(t, snapshot(t, task.Memory()).ChatHistory)
		})
	}
}

func TestRun_LiteralUserPromptWithoutMessage(t *testing.T) {
	model := tt.NewMockModel()
	task := newTask(func(c *Config) {
		c.Model = model
		c.UserPrompt = gentask.UserLiteral(gentask.Text("Tell me a joke"))
	})

	_, err := task.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Tell me a joke", model.BatchCalls[0][1].Content.Text)

	snap := snapshot(t, task.Memory())
	require.Len(t, snap.ChatHistory, 2)
	assert.Equal(t, gentask.NewMessage(gentask.RoleUser, nil), snap.ChatHistory[0])
}

func TestPrepare(t *testing.T) {
	calls := 0
	model := tt.NewMockModel()
	task := newTask(func(c *Config) {
		c.Model = nil
		c.ModelFactory = func() (gentask.Model, error) {
			calls++
			return model, nil
		}
		c.Tools = []gentask.Tool{echoTool()}
	})
	assert.Nil(t, task.Model())

	ctx := context.Background()
	require.NoError(t, task.Prepare(ctx))
	require.NoError(t, task.Prepare(ctx))
	_, err := task.Run(ctx, gentask.Text("hi"))
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Same(t, model, task.Model())
	assert.Equal(t, []string{"echo"}, model.ToolNames())
	assert.Equal(t, gentask.ResponseFormat(""), model.Settings().ResponseFormat)
}

func TestSerialize(t *testing.T) {
	task := newTask(func(c *Config) {
		c.ID = "task-1"
		c.Name = "greeter"
		c.Model = tt.NewMockModel().AddResponse("hello")
	})

	_, err := task.Run(context.Background(), gentask.Text("hi"))
	require.NoError(t, err)

	rec, err := task.Serialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "task-1", rec.ID)
	assert.Equal(t, "greeter", rec.Name)
	assert.Equal(t, "hello", rec.Output)
	assert.Len(t, rec.Memory.ChatHistory, 2)
	require.NotNil(t, rec.Model)
	assert.Equal(t, "test-model", rec.Model.Name)
}

func TestNew_AssignsID(t *testing.T) {
	a := New(Config{})
	b := New(Config{})
	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, "fixed", New(Config{ID: "fixed"}).ID())
}
