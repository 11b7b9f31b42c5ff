package answer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/answerflow/llm"
	"github.com/BaSui01/answerflow/llm/retry"
	"github.com/BaSui01/answerflow/types"
)

// GeneratorConfig tunes the generation call.
type GeneratorConfig struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	// MaxRetries is the local retry count before surfacing an upstream
	// failure to the orchestrator.
	MaxRetries     int           `json:"max_retries"`
	InitialBackoff time.Duration `json:"initial_backoff"`
}

// DefaultGeneratorConfig returns production defaults: one local retry.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Model:          "gpt-4o-mini",
		MaxTokens:      1024,
		MaxRetries:     1,
		InitialBackoff: 500 * time.Millisecond,
	}
}

// Generator builds a grounded prompt and invokes the LLM service.
type Generator struct {
	provider llm.Provider
	builder  *PromptBuilder
	config   GeneratorConfig
	retryer  *retry.Retryer
	logger   *zap.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(provider llm.Provider, builder *PromptBuilder, config GeneratorConfig, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if builder == nil {
		builder = NewPromptBuilder(DefaultPromptConfig(), nil)
	}
	policy := &retry.Policy{
		MaxRetries:   config.MaxRetries,
		InitialDelay: config.InitialBackoff,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
	return &Generator{
		provider: provider,
		builder:  builder,
		config:   config,
		retryer:  retry.New(policy, logger),
		logger:   logger.With(zap.String("component", "generator")),
	}
}

// Generate produces an answer grounded in the ranked sources. An empty
// source list is legal: the prompt signals "no external context" so the
// model does not fabricate citations.
//
// Upstream failures get one local backoff retry; if the call still fails
// the returned error carries UPSTREAM_UNAVAILABLE and the orchestrator
// degrades the answer instead of propagating the failure.
func (g *Generator) Generate(ctx context.Context, query types.Query, sources []types.RankedResult, domain types.DomainContext) (string, error) {
	messages := g.builder.Build(query, sources, domain)
	return g.complete(ctx, messages, len(sources))
}

// GenerateConversational answers without any source context, for queries
// classified as conversational.
func (g *Generator) GenerateConversational(ctx context.Context, query types.Query, domain types.DomainContext) (string, error) {
	messages := g.builder.BuildConversational(query, domain)
	return g.complete(ctx, messages, 0)
}

func (g *Generator) complete(ctx context.Context, messages []types.Message, sourceCount int) (string, error) {
	start := time.Now()

	var response *llm.CompletionResponse
	err := g.retryer.Do(ctx, func() error {
		var callErr error
		response, callErr = g.provider.Complete(ctx, &llm.CompletionRequest{
			Messages:  messages,
			Model:     g.config.Model,
			MaxTokens: g.config.MaxTokens,
		})
		return callErr
	})
	if err != nil {
		g.logger.Warn("generation failed after retries", zap.Error(err))
		return "", types.NewError(types.ErrUpstreamUnavailable, "llm completion failed").
			WithCause(err).WithSource(g.provider.Name())
	}

	g.logger.Info("answer generated",
		zap.Int("sources", sourceCount),
		zap.Int("chars", len(response.Content)),
		zap.Duration("duration", time.Since(start)))
	return response.Content, nil
}
