package gentask

import "context"

// Document is a unit of knowledge stored in and returned by a KnowledgeBase.
type Document struct {
	Name    string         `json:"name,omitempty" yaml:"name,omitempty"`
	Content string         `json:"content" yaml:"content"`
	Meta    map[string]any `json:"meta_data,omitempty" yaml:"meta_data,omitempty"`
}

// KnowledgeBase is the retrieval collaborator used for prompt augmentation and the
// knowledge-base tools.
type KnowledgeBase interface {
	// Search returns documents relevant to query, best first. A limit of zero lets the
	// knowledge base pick its own default.
	Search(ctx context.Context, query string, limit int) ([]Document, error)

	// Load stores a document so later searches can find it.
	Load(ctx context.Context, doc Document) error
}
