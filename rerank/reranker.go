// Package rerank merges, deduplicates, and rescores results pooled from
// multiple retrieval backends before generation. Pure functions, no I/O.
package rerank

import (
	"sort"
	"strings"

	"github.com/BaSui01/answerflow/types"
)

// Config tunes the merge scoring. Weights and top-K are configuration,
// not constants.
type Config struct {
	// RelevanceWeight scales the adapter-native relevance score.
	RelevanceWeight float64 `json:"relevance_weight"`
	// OverlapWeight scales the lexical overlap with the query.
	OverlapWeight float64 `json:"overlap_weight"`
	// TopK caps the output length.
	TopK int `json:"top_k"`
	// MinScore drops results whose final score falls below it.
	MinScore float64 `json:"min_score"`
}

// DefaultConfig returns the standard blend.
func DefaultConfig() Config {
	return Config{
		RelevanceWeight: 0.6,
		OverlapWeight:   0.4,
		TopK:            5,
		MinScore:        0.0,
	}
}

// Reranker rescores combined retrieval results against a query.
type Reranker struct {
	config Config
}

// New creates a Reranker.
func New(config Config) *Reranker {
	if config.TopK <= 0 {
		config.TopK = DefaultConfig().TopK
	}
	return &Reranker{config: config}
}

// Rerank deduplicates by identity key (keeping the highest-relevance
// instance), computes finalScore as a weighted blend of adapter relevance
// and query overlap, sorts descending, and cuts to top-K.
//
// Ties on finalScore keep the original adapter order, so primary-store
// results sort before web results when scores are equal. Deterministic
// for a given input order.
func (r *Reranker) Rerank(query string, results []types.SourceResult) []types.RankedResult {
	if len(results) == 0 {
		return []types.RankedResult{}
	}

	// Dedup keeps the best-scored instance per identity key; the key's
	// first-seen position fixes the merge order.
	best := make(map[string]types.SourceResult, len(results))
	order := make([]string, 0, len(results))
	for _, res := range results {
		key := res.IdentityKey()
		existing, seen := best[key]
		if !seen {
			best[key] = res
			order = append(order, key)
			continue
		}
		if res.RelevanceScore > existing.RelevanceScore {
			best[key] = res
		}
	}

	// Candidates are collected in first-seen order, so the stable sort
	// below resolves score ties by original adapter order.
	queryTokens := tokenize(query)
	ranked := make([]types.RankedResult, 0, len(order))
	for _, key := range order {
		res := best[key]
		overlap := lexicalOverlap(queryTokens, res.Content+" "+res.Title)
		final := r.config.RelevanceWeight*res.RelevanceScore + r.config.OverlapWeight*overlap
		if final < r.config.MinScore {
			continue
		}
		ranked = append(ranked, types.RankedResult{
			SourceResult: res,
			FinalScore:   final,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].FinalScore > ranked[j].FinalScore
	})

	if len(ranked) > r.config.TopK {
		ranked = ranked[:r.config.TopK]
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// lexicalOverlap returns the fraction of query tokens present in text.
func lexicalOverlap(queryTokens map[string]bool, text string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	textTokens := tokenize(text)
	matched := 0
	for token := range queryTokens {
		if textTokens[token] {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTokens))
}

func tokenize(s string) map[string]bool {
	tokens := make(map[string]bool)
	for _, f := range strings.Fields(strings.ToLower(s)) {
		f = strings.Trim(f, ".,;:!?\"'()[]")
		if len(f) < 2 {
			continue
		}
		tokens[f] = true
	}
	return tokens
}
