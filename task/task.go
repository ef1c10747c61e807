// Package task runs single LLM-backed conversational turns.
//
// A Task builds the system and user prompts from its Config, optionally augments the
// user prompt with knowledge-base references and chat history, sends the messages to
// its model (streaming or batch), records the turn in memory and, when an output schema
// is set, decodes the response into a structured value.
//
//	t := task.New(task.Config{
//	    Model:       models.NewLCG(llm),
//	    Description: "You are a travel agent.",
//	    Markdown:    true,
//	})
//	res, err := t.Run(ctx, gentask.Text("Plan a weekend in Lisbon"))
//
// A Task is not safe for concurrent use. Runs on the same Task must be serialized by
// the caller.
package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/rickchristie/gentask"
	"github.com/rickchristie/gentask/memory"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/rickchristie/gentask/task"

// Task is a configured unit of work that turns a message into a model response.
type Task struct {
	cfg      Config
	id       string
	memory   gentask.Memory
	logger   *slog.Logger
	tracer   trace.Tracer
	model    gentask.Model
	prepared bool

	// pending buffers the tool calls of the current run until commit. Streaming models
	// may call tools from their own goroutine.
	mu      sync.Mutex
	pending []gentask.ToolCall

	output any
}

// New creates a task. The task ID is assigned here when cfg.ID is empty, and an
// in-memory store is used when cfg.Memory is nil.
func New(cfg Config) *Task {
	t := &Task{
		cfg:    cfg,
		id:     cfg.ID,
		memory: cfg.Memory,
		logger: cfg.Logger,
		tracer: otel.Tracer(tracerName),
	}
	if t.id == "" {
		t.id = uuid.NewString()
	}
	if t.memory == nil {
		t.memory = memory.New()
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	return t
}

// ID implements gentask.TaskInfo.
func (t *Task) ID() string { return t.id }

// Name implements gentask.TaskInfo.
func (t *Task) Name() string { return t.cfg.Name }

// Config returns a copy of the task configuration.
func (t *Task) Config() Config { return t.cfg }

// Memory returns the task-local memory.
func (t *Task) Memory() gentask.Memory { return t.memory }

// Model returns the model. It is nil until Prepare succeeds when the task was
// configured with a factory.
func (t *Task) Model() gentask.Model {
	if t.model != nil {
		return t.model
	}
	return t.cfg.Model
}

// Output returns the output of the last completed run: the decoded value when an
// output schema decoded successfully, the raw text otherwise. It is nil before the
// first run completes.
func (t *Task) Output() any { return t.output }

// Prepare resolves the model, switches it to JSON responses when an output schema is
// set, and binds the tools. It runs once; later calls return nil immediately. Run and
// RunStream call it.
func (t *Task) Prepare(ctx context.Context) error {
	if t.prepared {
		return nil
	}

	model := t.cfg.Model
	if model == nil {
		if t.cfg.ModelFactory == nil {
			return gentask.ErrNoModel
		}
		m, err := t.cfg.ModelFactory()
		if err != nil {
			return fmt.Errorf("create model: %w", err)
		}
		if m == nil {
			return gentask.ErrNoModel
		}
		model = m
	}
	t.model = model

	if t.cfg.OutputSchema != nil {
		t.model.Settings().ResponseFormat = gentask.ResponseFormatJSON
	}
	tools := t.bindTools()

	t.prepared = true
	t.logger.DebugContext(ctx, "task prepared",
		"task", t.id, "model", t.model.Settings().Name, "tools", tools)
	return nil
}

// Record is the plain serialized form of a task.
type Record struct {
	ID     string                 `json:"task_id" yaml:"task_id"`
	Name   string                 `json:"task_name,omitempty" yaml:"task_name,omitempty"`
	Output any                    `json:"output" yaml:"output"`
	Memory gentask.MemorySnapshot `json:"memory" yaml:"memory"`
	Model  *gentask.ModelSettings `json:"llm,omitempty" yaml:"llm,omitempty"`
}

// Serialize returns the task's plain record.
func (t *Task) Serialize(ctx context.Context) (Record, error) {
	snap, err := t.memory.Serialize(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("serialize memory: %w", err)
	}
	rec := Record{ID: t.id, Name: t.cfg.Name, Output: t.output, Memory: snap}
	if m := t.Model(); m != nil {
		settings := *m.Settings()
		rec.Model = &settings
	}
	return rec, nil
}

func (t *Task) recordToolCall(call gentask.ToolCall) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = append(t.pending, call)
}

// takeToolCalls returns the buffered tool calls and empties the buffer.
func (t *Task) takeToolCalls() []gentask.ToolCall {
	t.mu.Lock()
	defer t.mu.Unlock()
	calls := t.pending
	t.pending = nil
	return calls
}

var _ gentask.TaskInfo = (*Task)(nil)
