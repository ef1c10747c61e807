// Package hooks provides a registry for run lifecycle hooks and a ready-made hook that
// logs every event.
//
// # Hook Interfaces
//
// Run lifecycle:
//   - [gentask.BeforeRunHook], [gentask.AfterRunHook], [gentask.ErrorHook]
//
// Model calls:
//   - [gentask.BeforeModelCallHook], [gentask.AfterModelCallHook]
//
// Augmentation, tools and output:
//   - [gentask.ReferencesHook] - after knowledge retrieval
//   - [gentask.ToolCallHook] - after every tool call the model makes
//   - [gentask.MemoryCommitHook] - after the turn is written to memory
//   - [gentask.DecodeFailureHook] - when structured output falls back to raw text
//
// # Example
//
//	registry := hooks.NewRegistry().Register(hooks.NewLoggerHook(os.Stderr))
//	t := task.New(task.Config{Model: model, Hooks: registry})
//
// See [LoggerHook] for a hook that implements every interface.
package hooks
