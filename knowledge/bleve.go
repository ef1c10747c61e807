// Package knowledge provides gentask.KnowledgeBase implementations: a local full-text
// index on Bleve and an adapter over any langchaingo vector store.
package knowledge

import (
	"context"
	"fmt"
	"maps"
	"os"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/google/uuid"
	"github.com/rickchristie/gentask"
)

// DefaultSearchLimit is the number of documents returned when a search passes no limit.
const DefaultSearchLimit = 5

// textAnalyzer lowercases unicode words. Stop words are kept.
const textAnalyzer = "gentask_text"

// Bleve is a BM25 full-text knowledge base. Documents with a name are upserted by
// name; unnamed documents get a random ID.
type Bleve struct {
	mu    sync.RWMutex
	index bleve.Index
	docs  map[string]gentask.Document
}

type indexedDocument struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// NewBleve creates an in-memory index.
func NewBleve() (*Bleve, error) {
	m, err := buildIndexMapping()
	if err != nil {
		return nil, err
	}
	index, err := bleve.NewMemOnly(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}
	return &Bleve{index: index, docs: make(map[string]gentask.Document)}, nil
}

// OpenBleve opens the index at path, creating it when it does not exist. Document
// metadata is not persisted; reopened documents carry name and content only.
func OpenBleve(path string) (*Bleve, error) {
	var index bleve.Index
	var err error
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		var m mapping.IndexMapping
		if m, err = buildIndexMapping(); err != nil {
			return nil, err
		}
		index, err = bleve.New(path, m)
	} else {
		index, err = bleve.Open(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open bleve index: %w", err)
	}
	return &Bleve{index: index, docs: make(map[string]gentask.Document)}, nil
}

func buildIndexMapping() (mapping.IndexMapping, error) {
	indexMapping := bleve.NewIndexMapping()
	err := indexMapping.AddCustomAnalyzer(textAnalyzer, map[string]any{
		"type":          custom.Name,
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register analyzer: %w", err)
	}

	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = textAnalyzer
	textField.Store = true

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("name", textField)
	docMapping.AddFieldMappingsAt("content", textField)

	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = textAnalyzer
	return indexMapping, nil
}

// Close closes the underlying index.
func (b *Bleve) Close() error {
	return b.index.Close()
}

// Load indexes doc.
func (b *Bleve) Load(_ context.Context, doc gentask.Document) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := doc.Name
	if id == "" {
		id = uuid.NewString()
	}
	if err := b.index.Index(id, indexedDocument{Name: doc.Name, Content: doc.Content}); err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	doc.Meta = maps.Clone(doc.Meta)
	b.docs[id] = doc
	return nil
}

// Search runs a match query over document names and contents.
func (b *Bleve) Search(_ context.Context, query string, limit int) ([]gentask.Document, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	req := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	req.Size = limit
	req.Fields = []string{"name", "content"}

	result, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	docs := make([]gentask.Document, 0, len(result.Hits))
	for _, hit := range result.Hits {
		if doc, ok := b.docs[hit.ID]; ok {
			docs = append(docs, doc)
			continue
		}
		// Indexed by an earlier process.
		name, _ := hit.Fields["name"].(string)
		content, _ := hit.Fields["content"].(string)
		docs = append(docs, gentask.Document{Name: name, Content: content})
	}
	return docs, nil
}

// Compile-time check that Bleve implements gentask.KnowledgeBase.
var _ gentask.KnowledgeBase = (*Bleve)(nil)
