package retrieval

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/answerflow/llm"
	"github.com/BaSui01/answerflow/types"
)

// IndexedDocument is a document held in the local vector index.
type IndexedDocument struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	URL       string    `json:"url,omitempty"`
	Content   string    `json:"content"`
	Embedding []float64 `json:"embedding"`
}

// VectorIndex is the local vector similarity adapter. Documents and their
// embeddings live in memory; queries are embedded on demand and matched by
// cosine similarity.
type VectorIndex struct {
	embedder llm.Embedder
	logger   *zap.Logger

	mu        sync.RWMutex
	documents []IndexedDocument
}

// NewVectorIndex creates an empty index. A nil embedder yields an
// unconfigured adapter that returns empty result sets.
func NewVectorIndex(embedder llm.Embedder, logger *zap.Logger) *VectorIndex {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VectorIndex{
		embedder: embedder,
		logger:   logger.With(zap.String("adapter", AdapterVectorIndex)),
	}
}

// ID implements SourceAdapter.
func (v *VectorIndex) ID() string { return AdapterVectorIndex }

// Add indexes documents. Every document must carry an embedding.
func (v *VectorIndex) Add(docs []IndexedDocument) error {
	for _, doc := range docs {
		if len(doc.Embedding) == 0 {
			return fmt.Errorf("document %s has no embedding", doc.ID)
		}
	}

	v.mu.Lock()
	v.documents = append(v.documents, docs...)
	total := len(v.documents)
	v.mu.Unlock()

	v.logger.Info("documents indexed",
		zap.Int("count", len(docs)),
		zap.Int("total", total))
	return nil
}

// Count returns the number of indexed documents.
func (v *VectorIndex) Count() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.documents)
}

// Retrieve implements SourceAdapter.
func (v *VectorIndex) Retrieve(ctx context.Context, req Request) ([]types.SourceResult, error) {
	if v.embedder == nil {
		return []types.SourceResult{}, nil
	}

	queryEmbedding, err := v.embedder.Embed(ctx, req.Query.Text)
	if err != nil {
		return nil, types.NewError(types.ErrSourceUnavailable, "query embedding failed").
			WithCause(err).WithSource(AdapterVectorIndex)
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	if len(v.documents) == 0 {
		return []types.SourceResult{}, nil
	}

	results := make([]types.SourceResult, 0, len(v.documents))
	now := time.Now()
	for _, doc := range v.documents {
		similarity := types.CosineSimilarity(queryEmbedding, doc.Embedding)
		results = append(results, types.SourceResult{
			SourceID:       AdapterVectorIndex,
			Title:          doc.Title,
			URL:            doc.URL,
			Content:        doc.Content,
			RelevanceScore: similarity,
			RetrievedAt:    now,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})
	if req.TopK > 0 && len(results) > req.TopK {
		results = results[:req.TopK]
	}
	return results, nil
}
