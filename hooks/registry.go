package hooks

import (
	"context"

	"github.com/rickchristie/gentask"
)

// Registry stores hooks and dispatches run events to them.
//
// A hook may implement any combination of the gentask hook interfaces; it only
// receives the events it implements. Hooks are called in registration order.
//
//	registry := hooks.NewRegistry().
//	    Register(hooks.NewLoggerHook(os.Stderr)).
//	    Register(&MetricsHook{})
//
// Registry is NOT thread-safe. Register all hooks before starting a run. A nil
// *Registry is valid and dispatches nothing.
type Registry struct {
	hooks []any
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		hooks: make([]any, 0),
	}
}

// Register adds a hook to the registry.
func (r *Registry) Register(hook any) *Registry {
	r.hooks = append(r.hooks, hook)
	return r
}

// Len returns the number of registered hooks.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.hooks)
}

// Clear removes all registered hooks.
func (r *Registry) Clear() {
	if r == nil {
		return
	}
	r.hooks = make([]any, 0)
}

func dispatch[H any](r *Registry, fn func(H)) {
	if r == nil {
		return
	}
	for _, h := range r.hooks {
		if hook, ok := h.(H); ok {
			fn(hook)
		}
	}
}

func (r *Registry) FireBeforeRun(ctx context.Context, task gentask.TaskInfo, event gentask.BeforeRunEvent) {
	dispatch(r, func(h gentask.BeforeRunHook) { h.OnBeforeRun(ctx, task, event) })
}

func (r *Registry) FireAfterRun(ctx context.Context, task gentask.TaskInfo, event gentask.AfterRunEvent) {
	dispatch(r, func(h gentask.AfterRunHook) { h.OnAfterRun(ctx, task, event) })
}

// FireError dispatches an ErrorEvent. This is informational only.
func (r *Registry) FireError(ctx context.Context, task gentask.TaskInfo, event gentask.ErrorEvent) {
	dispatch(r, func(h gentask.ErrorHook) { h.OnError(ctx, task, event) })
}

func (r *Registry) FireBeforeModelCall(
	ctx context.Context,
	task gentask.TaskInfo,
	event gentask.BeforeModelCallEvent,
) {
	dispatch(r, func(h gentask.BeforeModelCallHook) { h.OnBeforeModelCall(ctx, task, event) })
}

func (r *Registry) FireAfterModelCall(
	ctx context.Context,
	task gentask.TaskInfo,
	event gentask.AfterModelCallEvent,
) {
	dispatch(r, func(h gentask.AfterModelCallHook) { h.OnAfterModelCall(ctx, task, event) })
}

func (r *Registry) FireReferences(ctx context.Context, task gentask.TaskInfo, event gentask.ReferencesEvent) {
	dispatch(r, func(h gentask.ReferencesHook) { h.OnReferences(ctx, task, event) })
}

func (r *Registry) FireToolCall(ctx context.Context, task gentask.TaskInfo, event gentask.ToolCallEvent) {
	dispatch(r, func(h gentask.ToolCallHook) { h.OnToolCall(ctx, task, event) })
}

func (r *Registry) FireMemoryCommit(
	ctx context.Context,
	task gentask.TaskInfo,
	event gentask.MemoryCommitEvent,
) {
	dispatch(r, func(h gentask.MemoryCommitHook) { h.OnMemoryCommit(ctx, task, event) })
}

func (r *Registry) FireDecodeFailure(
	ctx context.Context,
	task gentask.TaskInfo,
	event gentask.DecodeFailureEvent,
) {
	dispatch(r, func(h gentask.DecodeFailureHook) { h.OnDecodeFailure(ctx, task, event) })
}
