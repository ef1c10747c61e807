package hooks

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rickchristie/gentask"
	"gopkg.in/yaml.v3"
)

// LoggerHook implements every hook interface and writes each event as a header line
// followed by a YAML body. Nothing is truncated.
type LoggerHook struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time
}

// NewLoggerHook creates a LoggerHook writing to w.
func NewLoggerHook(w io.Writer) *LoggerHook {
	return &LoggerHook{out: w, now: time.Now}
}

// WithClock replaces the clock used for event timestamps.
func (h *LoggerHook) WithClock(now func() time.Time) *LoggerHook {
	h.now = now
	return h
}

func (h *LoggerHook) write(event gentask.HookEvent, task gentask.TaskInfo, body any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	fmt.Fprintf(
		h.out, "\n>>> [%s] %s (%s): %s\n",
		event.EventName(), task.Name(), task.ID(), h.now().Format("2006-01-02 15:04:05.000"),
	)
	if body == nil {
		return
	}
	data, err := yaml.Marshal(body)
	if err != nil {
		fmt.Fprintf(h.out, "(failed to marshal: %v)\n", err)
		return
	}
	h.out.Write(data)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (h *LoggerHook) OnBeforeRun(_ context.Context, task gentask.TaskInfo, e gentask.BeforeRunEvent) {
	h.write(e, task, map[string]any{
		"message": e.Message.String(),
		"stream":  e.Stream,
	})
}

func (h *LoggerHook) OnAfterRun(_ context.Context, task gentask.TaskInfo, e gentask.AfterRunEvent) {
	body := map[string]any{
		"output":   e.Output,
		"duration": e.Duration.String(),
	}
	if e.Error != nil {
		body["error"] = e.Error.Error()
	}
	h.write(e, task, body)
}

func (h *LoggerHook) OnError(_ context.Context, task gentask.TaskInfo, e gentask.ErrorEvent) {
	h.write(e, task, map[string]any{"error": errString(e.Err)})
}

type loggedMessage struct {
	Role    string `yaml:"role"`
	Content string `yaml:"content"`
}

func loggedMessages(msgs []gentask.Message) []loggedMessage {
	out := make([]loggedMessage, len(msgs))
	for i, m := range msgs {
		out[i] = loggedMessage{Role: string(m.Role), Content: strings.TrimRight(m.Content.String(), "\n")}
	}
	return out
}

func (h *LoggerHook) OnBeforeModelCall(
	_ context.Context,
	task gentask.TaskInfo,
	e gentask.BeforeModelCallEvent,
) {
	h.write(e, task, map[string]any{
		"model":    e.Model,
		"stream":   e.Stream,
		"messages": loggedMessages(e.Messages),
	})
}

func (h *LoggerHook) OnAfterModelCall(
	_ context.Context,
	task gentask.TaskInfo,
	e gentask.AfterModelCallEvent,
) {
	body := map[string]any{
		"model":    e.Model,
		"response": e.Response,
		"duration": e.Duration.String(),
	}
	if e.Error != nil {
		body["error"] = e.Error.Error()
	}
	h.write(e, task, body)
}

func (h *LoggerHook) OnReferences(_ context.Context, task gentask.TaskInfo, e gentask.ReferencesEvent) {
	h.write(e, task, e.References)
}

func (h *LoggerHook) OnToolCall(_ context.Context, task gentask.TaskInfo, e gentask.ToolCallEvent) {
	h.write(e, task, map[string]any{
		"call":     e.Call.CallString(),
		"result":   e.Call.Result,
		"error":    e.Call.Error,
		"duration": e.Call.Duration.String(),
	})
}

func (h *LoggerHook) OnMemoryCommit(_ context.Context, task gentask.TaskInfo, e gentask.MemoryCommitEvent) {
	h.write(e, task, map[string]any{
		"messages":     e.Messages,
		"references":   e.References,
		"tool_calls":   e.ToolCalls,
		"conversation": e.Conversation,
	})
}

func (h *LoggerHook) OnDecodeFailure(_ context.Context, task gentask.TaskInfo, e gentask.DecodeFailureEvent) {
	h.write(e, task, map[string]any{
		"schema": string(e.Err.Schema),
		"raw":    e.Err.Raw,
		"error":  errString(e.Err.Err),
	})
}

var (
	_ gentask.BeforeRunHook       = (*LoggerHook)(nil)
	_ gentask.AfterRunHook        = (*LoggerHook)(nil)
	_ gentask.ErrorHook           = (*LoggerHook)(nil)
	_ gentask.BeforeModelCallHook = (*LoggerHook)(nil)
	_ gentask.AfterModelCallHook  = (*LoggerHook)(nil)
	_ gentask.ReferencesHook      = (*LoggerHook)(nil)
	_ gentask.ToolCallHook        = (*LoggerHook)(nil)
	_ gentask.MemoryCommitHook    = (*LoggerHook)(nil)
	_ gentask.DecodeFailureHook   = (*LoggerHook)(nil)
)
