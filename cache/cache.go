// Package cache provides the similarity-keyed response cache: a semantic
// in-memory tier matching paraphrases by embedding cosine similarity,
// and an optional exact-key Redis tier in front of it.
package cache

import (
	"context"

	"github.com/BaSui01/answerflow/types"
)

// Entry is one cached answer payload.
type Entry struct {
	Answer     string               `json:"answer"`
	Sources    []types.RankedResult `json:"sources"`
	Confidence float64              `json:"confidence"`
	Band       types.ConfidenceBand `json:"band"`
}

// Store is the cache contract the orchestrator depends on. Lookup misses
// are silent: an embedding failure or corrupted entry falls through to a
// fresh pipeline run, never an error upward.
type Store interface {
	Lookup(ctx context.Context, query string) (*Entry, bool)
	Store(ctx context.Context, query string, entry Entry)
}

// Tiered checks an exact-key tier before the semantic tier and writes
// through to both. Either tier may be nil.
type Tiered struct {
	exact    Store
	semantic Store
}

// NewTiered composes the two tiers.
func NewTiered(exact, semantic Store) *Tiered {
	return &Tiered{exact: exact, semantic: semantic}
}

// Lookup implements Store.
func (t *Tiered) Lookup(ctx context.Context, query string) (*Entry, bool) {
	if t.exact != nil {
		if entry, ok := t.exact.Lookup(ctx, query); ok {
			return entry, true
		}
	}
	if t.semantic != nil {
		return t.semantic.Lookup(ctx, query)
	}
	return nil, false
}

// Store implements Store.
func (t *Tiered) Store(ctx context.Context, query string, entry Entry) {
	if t.exact != nil {
		t.exact.Store(ctx, query, entry)
	}
	if t.semantic != nil {
		t.semantic.Store(ctx, query, entry)
	}
}
