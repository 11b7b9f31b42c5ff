package mocks

import (
	"context"
	"sync"

	"github.com/BaSui01/answerflow/retrieval"
	"github.com/BaSui01/answerflow/types"
)

// Adapter is a mock retrieval.SourceAdapter with canned results and error
// injection.
type Adapter struct {
	mu sync.Mutex

	id      string
	results []types.SourceResult
	err     error
	calls   int
	queries []string
}

// NewAdapter returns an adapter with the given id and canned results.
func NewAdapter(id string, results ...types.SourceResult) *Adapter {
	return &Adapter{id: id, results: results}
}

// SetError makes every call fail with err.
func (a *Adapter) SetError(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = err
}

// SetResults replaces the canned results.
func (a *Adapter) SetResults(results ...types.SourceResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results = results
}

// Calls returns how many retrievals were requested.
func (a *Adapter) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// Queries returns the query text of every retrieval, in order.
func (a *Adapter) Queries() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.queries))
	copy(out, a.queries)
	return out
}

// ID implements retrieval.SourceAdapter.
func (a *Adapter) ID() string { return a.id }

// Retrieve implements retrieval.SourceAdapter.
func (a *Adapter) Retrieve(ctx context.Context, req retrieval.Request) ([]types.SourceResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	a.queries = append(a.queries, req.Query.Text)
	if a.err != nil {
		return nil, a.err
	}
	out := make([]types.SourceResult, len(a.results))
	copy(out, a.results)
	return out, nil
}

var _ retrieval.SourceAdapter = (*Adapter)(nil)
