package tt

import (
	"context"
	"sync"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/rickchristie/gentask"
)

// AssertTextEqual fails with a unified diff when two multi-line texts differ.
func AssertTextEqual(t *testing.T, expected, actual string) bool {
	t.Helper()
	if expected == actual {
		return true
	}
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected),
		B:        difflib.SplitLines(actual),
		FromFile: "expected",
		ToFile:   "actual",
		Context:  3,
	})
	t.Errorf("texts differ:\n%s", diff)
	return false
}

// -----------------------------------------------------------------------------
// Event Collection Helpers
// -----------------------------------------------------------------------------

// EventRecorder is a hook that records every event it receives.
type EventRecorder struct {
	mu     sync.Mutex
	events []gentask.HookEvent
}

// NewEventRecorder creates an empty EventRecorder.
func NewEventRecorder() *EventRecorder {
	return &EventRecorder{}
}

func (r *EventRecorder) record(e gentask.HookEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns the recorded events in order.
func (r *EventRecorder) Events() []gentask.HookEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]gentask.HookEvent(nil), r.events...)
}

// Names returns the names of the recorded events in order.
func (r *EventRecorder) Names() []string {
	events := r.Events()
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = e.EventName()
	}
	return names
}

// CountEventNames counts recorded events by name.
func (r *EventRecorder) CountEventNames() map[string]int {
	counts := make(map[string]int)
	for _, e := range r.Events() {
		counts[e.EventName()]++
	}
	return counts
}

func (r *EventRecorder) OnBeforeRun(_ context.Context, _ gentask.TaskInfo, e gentask.BeforeRunEvent) {
	r.record(e)
}

func (r *EventRecorder) OnAfterRun(_ context.Context, _ gentask.TaskInfo, e gentask.AfterRunEvent) {
	r.record(e)
}

func (r *EventRecorder) OnError(_ context.Context, _ gentask.TaskInfo, e gentask.ErrorEvent) {
	r.record(e)
}

func (r *EventRecorder) OnBeforeModelCall(_ context.Context, _ gentask.TaskInfo, e gentask.BeforeModelCallEvent) {
	r.record(e)
}

func (r *EventRecorder) OnAfterModelCall(_ context.Context, _ gentask.TaskInfo, e gentask.AfterModelCallEvent) {
	r.record(e)
}

func (r *EventRecorder) OnReferences(_ context.Context, _ gentask.TaskInfo, e gentask.ReferencesEvent) {
	r.record(e)
}

func (r *EventRecorder) OnToolCall(_ context.Context, _ gentask.TaskInfo, e gentask.ToolCallEvent) {
	r.record(e)
}

func (r *EventRecorder) OnMemoryCommit(_ context.Context, _ gentask.TaskInfo, e gentask.MemoryCommitEvent) {
	r.record(e)
}

func (r *EventRecorder) OnDecodeFailure(_ context.Context, _ gentask.TaskInfo, e gentask.DecodeFailureEvent) {
	r.record(e)
}

var (
	_ gentask.BeforeRunHook       = (*EventRecorder)(nil)
	_ gentask.AfterRunHook        = (*EventRecorder)(nil)
	_ gentask.ErrorHook           = (*EventRecorder)(nil)
	_ gentask.BeforeModelCallHook = (*EventRecorder)(nil)
	_ gentask.AfterModelCallHook  = (*EventRecorder)(nil)
	_ gentask.ReferencesHook      = (*EventRecorder)(nil)
	_ gentask.ToolCallHook        = (*EventRecorder)(nil)
	_ gentask.MemoryCommitHook    = (*EventRecorder)(nil)
	_ gentask.DecodeFailureHook   = (*EventRecorder)(nil)
)
