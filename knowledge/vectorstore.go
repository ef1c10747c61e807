package knowledge

import (
	"context"
	"fmt"

	"github.com/rickchristie/gentask"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
)

// nameKey is the metadata key that carries a document's name through the store.
const nameKey = "name"

// VectorStore adapts a langchaingo vector store (pgvector, qdrant, chroma, ...) to
// gentask.KnowledgeBase.
type VectorStore struct {
	store   vectorstores.VectorStore
	options []vectorstores.Option
}

// NewVectorStore wraps store. The options are passed to every store call, e.g.
// vectorstores.WithNameSpace or vectorstores.WithScoreThreshold.
func NewVectorStore(store vectorstores.VectorStore, options ...vectorstores.Option) *VectorStore {
	return &VectorStore{store: store, options: options}
}

func (v *VectorStore) Search(ctx context.Context, query string, limit int) ([]gentask.Document, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	found, err := v.store.SimilaritySearch(ctx, query, limit, v.options...)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}

	docs := make([]gentask.Document, len(found))
	for i, d := range found {
		meta := make(map[string]any, len(d.Metadata))
		var name string
		for k, val := range d.Metadata {
			if k == nameKey {
				name, _ = val.(string)
				continue
			}
			meta[k] = val
		}
		if len(meta) == 0 {
			meta = nil
		}
		docs[i] = gentask.Document{Name: name, Content: d.PageContent, Meta: meta}
	}
	return docs, nil
}

func (v *VectorStore) Load(ctx context.Context, doc gentask.Document) error {
	meta := make(map[string]any, len(doc.Meta)+1)
	for k, val := range doc.Meta {
		meta[k] = val
	}
	if doc.Name != "" {
		meta[nameKey] = doc.Name
	}
	_, err := v.store.AddDocuments(ctx, []schema.Document{{
		PageContent: doc.Content,
		Metadata:    meta,
	}}, v.options...)
	if err != nil {
		return fmt.Errorf("failed to add document: %w", err)
	}
	return nil
}

// Compile-time check that VectorStore implements gentask.KnowledgeBase.
var _ gentask.KnowledgeBase = (*VectorStore)(nil)
