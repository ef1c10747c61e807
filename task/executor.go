package task

import (
	"context"
	"iter"
	"strings"
	"time"

	"github.com/rickchristie/gentask"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Result is the outcome of a completed run.
type Result struct {
	// Output is the decoded value when structured decoding succeeded, else Raw.
	Output any

	// Raw is the model's response text.
	Raw string

	// Structured is true when Output holds a decoded value.
	Structured bool

	// DecodeErr is set when an output schema was configured but the response could
	// not be decoded.
	DecodeErr *gentask.DecodeError

	// References is the retrieval made for the prompt, nil when none was made.
	References *gentask.References

	// Messages is the outbound message list sent to the model.
	Messages []gentask.Message

	// ToolCalls are the tool invocations made during generation.
	ToolCalls []gentask.ToolCall

	// Duration is the wall-clock time of the run.
	Duration time.Duration
}

// Text returns the raw response text.
func (r *Result) Text() string { return r.Raw }

// turn holds what a run assembled before generation.
type turn struct {
	message    *gentask.Content
	messages   []gentask.Message
	references *gentask.References
	start      time.Time
}

// Messages assembles the outbound message list for msg: the system prompt if any,
// then history messages if enabled, then the user prompt. References are retrieved
// for plain-text messages when AddReferencesToPrompt is set; the returned References
// is nil otherwise.
func (t *Task) Messages(ctx context.Context, msg *gentask.Content) ([]gentask.Message, *gentask.References, error) {
	system, ok, err := t.SystemPrompt(ctx)
	if err != nil {
		return nil, nil, err
	}

	var refs *gentask.References
	if t.cfg.AddReferencesToPrompt && msg != nil && !msg.IsStructured() && msg.Text != "" {
		r, err := t.References(ctx, msg.Text)
		if err != nil {
			return nil, nil, err
		}
		refs = &r
		t.cfg.Hooks.FireReferences(ctx, t, gentask.ReferencesEvent{References: r})
	}

	var history string
	if t.cfg.AddHistoryToPrompt {
		if history, err = t.FormattedHistory(ctx); err != nil {
			return nil, nil, err
		}
	}

	var refText string
	if refs != nil {
		refText = refs.Text
	}
	user, err := t.UserPrompt(ctx, msg, refText, history)
	if err != nil {
		return nil, nil, err
	}

	var messages []gentask.Message
	if ok && system != "" {
		messages = append(messages, gentask.NewMessage(gentask.RoleSystem, gentask.Text(system)))
	}
	if t.cfg.AddHistoryToMessages {
		past, err := t.historyMessages(ctx)
		if err != nil {
			return nil, nil, err
		}
		messages = append(messages, past...)
	}
	messages = append(messages, gentask.NewMessage(gentask.RoleUser, user))
	return messages, refs, nil
}

// begin prepares the task and assembles the turn for msg.
func (t *Task) begin(ctx context.Context, msg *gentask.Content, stream bool) (*turn, error) {
	if err := t.Prepare(ctx); err != nil {
		return nil, err
	}
	t.takeToolCalls()

	tr := &turn{message: msg, start: time.Now()}
	t.logger.DebugContext(ctx, "task start", "task", t.id, "stream", stream)
	t.cfg.Hooks.FireBeforeRun(ctx, t, gentask.BeforeRunEvent{Message: msg, Stream: stream})

	messages, refs, err := t.Messages(ctx, msg)
	if err != nil {
		return tr, err
	}
	tr.messages = messages
	tr.references = refs
	return tr, nil
}

// finish commits the turn and finalizes the output.
func (t *Task) finish(ctx context.Context, tr *turn, raw string) (*Result, error) {
	calls := t.takeToolCalls()
	if err := t.commit(ctx, tr, raw, calls); err != nil {
		return nil, err
	}

	res := &Result{
		Output:     raw,
		Raw:        raw,
		References: tr.references,
		Messages:   tr.messages,
		ToolCalls:  calls,
	}
	if t.cfg.OutputSchema != nil && t.cfg.ParseOutput {
		res.Output, res.DecodeErr = t.Coerce(ctx, raw)
		res.Structured = res.DecodeErr == nil
	}
	t.output = res.Output
	res.Duration = time.Since(tr.start)

	t.cfg.Hooks.FireAfterRun(ctx, t, gentask.AfterRunEvent{Output: raw, Duration: res.Duration})
	t.logger.DebugContext(ctx, "task end", "task", t.id, "elapsed", res.Duration)
	return res, nil
}

// fail reports a failed run to hooks and the span.
func (t *Task) fail(ctx context.Context, span trace.Span, tr *turn, err error) {
	span.RecordError(err)
	t.takeToolCalls()
	t.cfg.Hooks.FireError(ctx, t, gentask.ErrorEvent{Err: err})
	if tr != nil {
		t.cfg.Hooks.FireAfterRun(ctx, t, gentask.AfterRunEvent{
			Duration: time.Since(tr.start),
			Error:    err,
		})
	}
}

func (t *Task) startRun(ctx context.Context, stream bool) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, "gentask.run")
	span.SetAttributes(
		attribute.String("task.id", t.id),
		attribute.String("task.name", t.cfg.Name),
		attribute.Bool("task.stream", stream),
		attribute.Bool("task.structured", t.cfg.OutputSchema != nil),
	)
	return ctx, span
}

// Run performs one batch turn: a single GenerateBatch call, then the memory commit
// and output decoding. msg may be nil when the user prompt is a literal or a
// generator.
func (t *Task) Run(ctx context.Context, msg *gentask.Content) (*Result, error) {
	ctx, span := t.startRun(ctx, false)
	defer span.End()

	tr, err := t.begin(ctx, msg, false)
	if err != nil {
		t.fail(ctx, span, tr, err)
		return nil, err
	}

	raw, err := t.generateBatch(ctx, tr)
	if err != nil {
		t.fail(ctx, span, tr, err)
		return nil, err
	}

	res, err := t.finish(ctx, tr, raw)
	if err != nil {
		t.fail(ctx, span, tr, err)
		return nil, err
	}
	return res, nil
}

// RunStream performs one streaming turn, yielding response fragments as the model
// produces them. The turn is committed to memory only after the model's sequence is
// exhausted: stopping iteration early cancels generation and records nothing.
//
// When an output schema is set the turn is generated in batch mode and the full
// response text is yielded once; the decoded value is available from Output.
func (t *Task) RunStream(ctx context.Context, msg *gentask.Content) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if t.cfg.OutputSchema != nil {
			res, err := t.Run(ctx, msg)
			if err != nil {
				yield("", err)
				return
			}
			yield(res.Raw, nil)
			return
		}

		ctx, span := t.startRun(ctx, true)
		defer span.End()

		tr, err := t.begin(ctx, msg, true)
		if err != nil {
			t.fail(ctx, span, tr, err)
			yield("", err)
			return
		}

		genCtx, genSpan := t.tracer.Start(ctx, "gentask.generate")
		genStart := time.Now()
		t.fireBeforeModelCall(ctx, tr, true)

		var response strings.Builder
		for frag, err := range t.model.GenerateStream(genCtx, tr.messages) {
			if err != nil {
				genSpan.RecordError(err)
				genSpan.End()
				t.fireAfterModelCall(ctx, tr, genStart, response.String(), err)
				t.fail(ctx, span, tr, err)
				yield("", err)
				return
			}
			response.WriteString(frag)
			if !yield(frag, nil) {
				genSpan.SetAttributes(attribute.Bool("generate.abandoned", true))
				genSpan.End()
				t.logger.DebugContext(ctx, "stream abandoned, nothing recorded", "task", t.id)
				return
			}
		}
		genSpan.End()
		t.fireAfterModelCall(ctx, tr, genStart, response.String(), nil)

		if _, err := t.finish(ctx, tr, response.String()); err != nil {
			t.fail(ctx, span, tr, err)
			yield("", err)
		}
	}
}

func (t *Task) generateBatch(ctx context.Context, tr *turn) (string, error) {
	ctx, span := t.tracer.Start(ctx, "gentask.generate")
	defer span.End()

	start := time.Now()
	t.fireBeforeModelCall(ctx, tr, false)
	raw, err := t.model.GenerateBatch(ctx, tr.messages)
	t.fireAfterModelCall(ctx, tr, start, raw, err)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	span.SetAttributes(attribute.Int("generate.bytes", len(raw)))
	return raw, nil
}

func (t *Task) fireBeforeModelCall(ctx context.Context, tr *turn, stream bool) {
	t.cfg.Hooks.FireBeforeModelCall(ctx, t, gentask.BeforeModelCallEvent{
		Model:    t.model.Settings().Name,
		Messages: tr.messages,
		Stream:   stream,
	})
}

func (t *Task) fireAfterModelCall(
	ctx context.Context,
	tr *turn,
	start time.Time,
	response string,
	err error,
) {
	t.cfg.Hooks.FireAfterModelCall(ctx, t, gentask.AfterModelCallEvent{
		Model:    t.model.Settings().Name,
		Messages: tr.messages,
		Response: response,
		Duration: time.Since(start),
		Error:    err,
	})
}
