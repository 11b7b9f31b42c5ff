package mocks

import (
	"context"
	"crypto/sha256"
	"sync"

	"github.com/BaSui01/answerflow/llm"
)

// Embedder is a mock llm.Embedder. Vectors are deterministic per input
// text; specific texts can be pinned to fixed vectors so tests control
// the cosine similarity between them.
type Embedder struct {
	mu     sync.Mutex
	pinned map[string][]float64
	err    error
	calls  int
}

// NewEmbedder returns an embedder producing deterministic vectors.
func NewEmbedder() *Embedder {
	return &Embedder{pinned: make(map[string][]float64)}
}

// Pin fixes the vector returned for text.
func (e *Embedder) Pin(text string, vec []float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pinned[text] = vec
}

// SetError makes every call fail with err.
func (e *Embedder) SetError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

// Calls returns how many embeddings were requested.
func (e *Embedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// Embed implements llm.Embedder. Unpinned texts hash to a unit vector so
// equal texts are identical and distinct texts are almost surely not.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	if vec, ok := e.pinned[text]; ok {
		out := make([]float64, len(vec))
		copy(out, vec)
		return out, nil
	}

	sum := sha256.Sum256([]byte(text))
	vec := make([]float64, 8)
	for i := range vec {
		vec[i] = float64(sum[i]) / 255.0
	}
	return vec, nil
}

var _ llm.Embedder = (*Embedder)(nil)
