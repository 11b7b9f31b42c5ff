// Package retrieval provides the source adapters and the coordinator that
// fans a query out to all of them in parallel.
//
// Adapters are uniform: each one is independently fallible, bounded by its
// own timeout, and contributes zero results on failure. The coordinator
// records failures in a bitmask but never fails the overall retrieval.
package retrieval

import (
	"context"

	"github.com/BaSui01/answerflow/types"
)

// Request is one retrieval call fanned out to every adapter.
type Request struct {
	Query  types.Query
	Domain types.DomainContext

	// TopK is the number of results wanted from each adapter. The
	// orchestrator widens it on retry.
	TopK int
}

// SourceAdapter is the uniform capability over heterogeneous retrieval
// backends: structured document store, local vector index, web search.
//
// An unconfigured backend returns an empty set rather than erroring.
type SourceAdapter interface {
	// ID returns the adapter's stable identifier, used as SourceID on
	// results and in logs.
	ID() string

	Retrieve(ctx context.Context, req Request) ([]types.SourceResult, error)
}

// Adapter IDs. The coordinator's adapter list fixes precedence: the
// primary store first, the web adapter always present and always invoked.
const (
	AdapterDocumentStore = "document_store"
	AdapterVectorIndex   = "vector_index"
	AdapterWebSearch     = "web_search"
)
