package answer

import (
	"context"
	"testing"
	"time"

	"github.com/BaSui01/answerflow/testutil/mocks"
	"github.com/BaSui01/answerflow/types"
)

func fastGenConfig() GeneratorConfig {
	cfg := DefaultGeneratorConfig()
	cfg.InitialBackoff = time.Millisecond
	return cfg
}

func TestGenerateSuccess(t *testing.T) {
	t.Parallel()

	provider := mocks.NewProvider("Raft elects a leader [1].")
	g := NewGenerator(provider, nil, fastGenConfig(), nil)

	answer, err := g.Generate(context.Background(), types.Query{Text: "what is raft"},
		[]types.RankedResult{ranked("Raft paper", "raft elects a leader", 1)},
		types.DomainContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "Raft elects a leader [1]." {
		t.Fatalf("unexpected answer %q", answer)
	}
	if provider.Calls() != 1 {
		t.Fatalf("expected 1 call, got %d", provider.Calls())
	}

	req := provider.LastRequest()
	if req.Model != fastGenConfig().Model || req.MaxTokens != fastGenConfig().MaxTokens {
		t.Fatalf("request not built from config: %+v", req)
	}
}

func TestGenerateRetriesTransientFailure(t *testing.T) {
	t.Parallel()

	provider := mocks.NewProvider("recovered")
	provider.FailTimes(1, types.NewError(types.ErrUpstreamTimeout, "slow upstream"))
	g := NewGenerator(provider, nil, fastGenConfig(), nil)

	answer, err := g.Generate(context.Background(), types.Query{Text: "q"}, nil, types.DomainContext{})
	if err != nil {
		t.Fatalf("retry should have recovered: %v", err)
	}
	if answer != "recovered" {
		t.Fatalf("unexpected answer %q", answer)
	}
	if provider.Calls() != 2 {
		t.Fatalf("expected 2 calls (fail then succeed), got %d", provider.Calls())
	}
}

func TestGenerateExhaustedRetriesReturnsUpstreamUnavailable(t *testing.T) {
	t.Parallel()

	provider := mocks.NewProvider("")
	provider.SetError(types.NewError(types.ErrUpstreamTimeout, "always slow"))
	g := NewGenerator(provider, nil, fastGenConfig(), nil)

	_, err := g.Generate(context.Background(), types.Query{Text: "q"}, nil, types.DomainContext{})
	if err == nil {
		t.Fatal("expected an error")
	}
	if types.GetErrorCode(err) != types.ErrUpstreamUnavailable {
		t.Fatalf("expected UPSTREAM_UNAVAILABLE, got %v", types.GetErrorCode(err))
	}
	// MaxRetries=1: initial attempt plus one retry.
	if provider.Calls() != 2 {
		t.Fatalf("expected 2 calls, got %d", provider.Calls())
	}
}

func TestGenerateConversationalSkipsContext(t *testing.T) {
	t.Parallel()

	provider := mocks.NewProvider("hi there")
	g := NewGenerator(provider, nil, fastGenConfig(), nil)

	answer, err := g.GenerateConversational(context.Background(),
		types.Query{Text: "hello", Conversational: true}, types.DomainContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "hi there" {
		t.Fatalf("unexpected answer %q", answer)
	}

	req := provider.LastRequest()
	last := req.Messages[len(req.Messages)-1]
	if last.Content != "hello" {
		t.Fatalf("conversational prompt must pass the raw text, got %q", last.Content)
	}
}
