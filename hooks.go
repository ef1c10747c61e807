package gentask

import "context"

// -----------------------------------------------------------------------------
// Hook Interfaces
// -----------------------------------------------------------------------------
//
// Hooks observe a task's runs. Implement any subset of the interfaces below, register
// the hook with hooks.Registry and set the registry on task.Config.Hooks.
//
//	type Timing struct{}
//
//	func (Timing) OnAfterModelCall(
//	    ctx context.Context, task gentask.TaskInfo, e gentask.AfterModelCallEvent,
//	) {
//	    log.Printf("%s answered in %v", e.Model, e.Duration)
//	}
//
//	registry := hooks.NewRegistry().Register(Timing{})
//
// Hooks are called synchronously, in registration order. They must not call back into
// the task that fired them. ToolCallHook may run on the model's goroutine while a
// stream is being consumed.
// -----------------------------------------------------------------------------

// BeforeRunHook is notified when a run starts.
type BeforeRunHook interface {
	OnBeforeRun(ctx context.Context, task TaskInfo, event BeforeRunEvent)
}

// AfterRunHook is notified when a run completes or fails. It is always called if
// OnBeforeRun was called, except for streams the caller abandoned.
type AfterRunHook interface {
	OnAfterRun(ctx context.Context, task TaskInfo, event AfterRunEvent)
}

// ErrorHook is notified of run failures. The error is still returned to the caller.
type ErrorHook interface {
	OnError(ctx context.Context, task TaskInfo, event ErrorEvent)
}

// BeforeModelCallHook is notified before the model is called.
type BeforeModelCallHook interface {
	OnBeforeModelCall(ctx context.Context, task TaskInfo, event BeforeModelCallEvent)
}

// AfterModelCallHook is notified after the model has answered.
type AfterModelCallHook interface {
	OnAfterModelCall(ctx context.Context, task TaskInfo, event AfterModelCallEvent)
}

// ReferencesHook is notified after knowledge retrieval for the prompt.
type ReferencesHook interface {
	OnReferences(ctx context.Context, task TaskInfo, event ReferencesEvent)
}

// ToolCallHook is notified after each tool call made by the model. It runs on whatever
// goroutine the model executes tools on.
type ToolCallHook interface {
	OnToolCall(ctx context.Context, task TaskInfo, event ToolCallEvent)
}

// MemoryCommitHook is notified after a turn is written to memory.
type MemoryCommitHook interface {
	OnMemoryCommit(ctx context.Context, task TaskInfo, event MemoryCommitEvent)
}

// DecodeFailureHook is notified when structured output falls back to raw text.
type DecodeFailureHook interface {
	OnDecodeFailure(ctx context.Context, task TaskInfo, event DecodeFailureEvent)
}
