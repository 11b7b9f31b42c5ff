// Package mocks provides test doubles for the external collaborators:
// the LLM completion provider, the embedding service, and the web search
// provider. All mocks are safe for concurrent use.
package mocks

import (
	"context"
	"sync"

	"github.com/BaSui01/answerflow/llm"
)

// Provider is a mock llm.Provider with fixed responses and error
// injection.
type Provider struct {
	mu sync.Mutex

	response  string
	responses []string // consumed in order when set; overrides response
	err       error    // permanent failure
	failN     int      // transient failures remaining
	failErr   error

	calls    int
	requests []*llm.CompletionRequest
}

// NewProvider returns a mock that answers every call with response.
func NewProvider(response string) *Provider {
	return &Provider{response: response}
}

// SetResponses queues per-call responses, consumed in order. The last one
// repeats once the queue is exhausted.
func (p *Provider) SetResponses(responses ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = responses
}

// SetError makes every call fail with err.
func (p *Provider) SetError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// FailTimes makes the next n calls fail with err, then succeed.
func (p *Provider) FailTimes(n int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failN = n
	p.failErr = err
}

// Calls returns how many completions were requested.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// LastRequest returns the most recent request, or nil.
func (p *Provider) LastRequest() *llm.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.requests) == 0 {
		return nil
	}
	return p.requests[len(p.requests)-1]
}

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.requests = append(p.requests, req)

	if p.err != nil {
		return nil, p.err
	}
	if p.failN > 0 {
		p.failN--
		return nil, p.failErr
	}

	content := p.response
	if len(p.responses) > 0 {
		content = p.responses[0]
		if len(p.responses) > 1 {
			p.responses = p.responses[1:]
		}
	}
	return &llm.CompletionResponse{Content: content, Model: req.Model}, nil
}

// Name implements llm.Provider.
func (p *Provider) Name() string { return "mock" }

var _ llm.Provider = (*Provider)(nil)
