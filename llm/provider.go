// Package llm defines the contracts for the external completion and
// embedding services the orchestrator depends on. Concrete clients live
// outside this repository; tests use testutil/mocks.
package llm

import (
	"context"

	"github.com/BaSui01/answerflow/types"
)

// CompletionRequest is a single chat completion call.
type CompletionRequest struct {
	Messages  []types.Message `json:"messages"`
	Model     string          `json:"model,omitempty"`
	MaxTokens int             `json:"max_tokens,omitempty"`
	// Temperature of 0 keeps routing and validation calls deterministic.
	Temperature float64 `json:"temperature"`
}

// CompletionResponse carries the generated text.
type CompletionResponse struct {
	Content string `json:"content"`
	Model   string `json:"model,omitempty"`
}

// Provider is the unified LLM completion contract.
//
// Implementations fail with a *types.Error carrying UPSTREAM_RATE_LIMITED,
// UPSTREAM_TIMEOUT, or UPSTREAM_UNAVAILABLE so callers can decide what is
// worth retrying.
type Provider interface {
	// Complete performs a synchronous chat completion.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider's unique identifier.
	Name() string
}

// Embedder converts text into a dense vector. Used by the reranker's
// semantic scoring pass and by the semantic cache's similarity key.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}
