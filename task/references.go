package task

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rickchristie/gentask"
	"go.opentelemetry.io/otel/attribute"
)

// References retrieves knowledge for query. The elapsed time is always measured. The
// returned Text is empty when there is nothing to add: no knowledge base, no matching
// documents, or an empty result from ReferencesFunc.
func (t *Task) References(ctx context.Context, query string) (gentask.References, error) {
	ctx, span := t.tracer.Start(ctx, "gentask.references")
	defer span.End()

	start := time.Now()
	text, err := t.retrieve(ctx, query)
	refs := gentask.References{Query: query, Text: text, Elapsed: time.Since(start)}

	span.SetAttributes(
		attribute.Int("references.bytes", len(text)),
		attribute.Float64("references.seconds", refs.Elapsed.Seconds()),
	)
	if err != nil {
		span.RecordError(err)
		return refs, err
	}
	t.logger.Debug("references retrieved",
		"task", t.ID(), "query", query, "bytes", len(text), "elapsed", refs.Elapsed)
	return refs, nil
}

func (t *Task) retrieve(ctx context.Context, query string) (string, error) {
	if t.cfg.ReferencesFunc != nil {
		text, err := t.cfg.ReferencesFunc(ctx, t, query)
		if err != nil {
			return "", fmt.Errorf("references func: %w", err)
		}
		return text, nil
	}

	if t.cfg.KnowledgeBase == nil {
		return "", nil
	}

	docs, err := t.cfg.KnowledgeBase.Search(ctx, query, t.cfg.ReferenceDocuments)
	if err != nil {
		return "", fmt.Errorf("knowledge base search: %w", err)
	}
	if len(docs) == 0 {
		return "", nil
	}
	b, err := json.Marshal(docs)
	if err != nil {
		return "", fmt.Errorf("encode references: %w", err)
	}
	return string(b), nil
}
