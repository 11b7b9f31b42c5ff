package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/answerflow/types"
)

// OpenAIConfig configures the OpenAI-compatible client. Any endpoint
// speaking the chat-completions and embeddings wire format works.
type OpenAIConfig struct {
	APIKey         string        `json:"api_key"`
	BaseURL        string        `json:"base_url"`
	EmbeddingModel string        `json:"embedding_model"`
	Timeout        time.Duration `json:"timeout"`
}

// DefaultOpenAIConfig reads the API key from OPENAI_API_KEY.
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		APIKey:         os.Getenv("OPENAI_API_KEY"),
		BaseURL:        "https://api.openai.com/v1",
		EmbeddingModel: "text-embedding-3-small",
		Timeout:        30 * time.Second,
	}
}

// OpenAIProvider implements Provider and Embedder over the OpenAI wire
// format.
type OpenAIProvider struct {
	config OpenAIConfig
	client *http.Client
	logger *zap.Logger
}

// NewOpenAIProvider creates the client.
func NewOpenAIProvider(config OpenAIConfig, logger *zap.Logger) *OpenAIProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultOpenAIConfig().BaseURL
	}
	if config.EmbeddingModel == "" {
		config.EmbeddingModel = DefaultOpenAIConfig().EmbeddingModel
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultOpenAIConfig().Timeout
	}
	return &OpenAIProvider{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger.With(zap.String("component", "openai_provider")),
	}
}

// Name implements Provider.
func (p *OpenAIProvider) Name() string { return "openai" }

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string          `json:"model"`
	Messages  []openAIMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

// Complete implements Provider.
func (p *OpenAIProvider) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	messages := make([]openAIMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openAIMessage{Role: string(m.Role), Content: m.Content}
	}

	var resp chatResponse
	err := p.post(ctx, "/chat/completions", chatRequest{
		Model:     req.Model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, types.NewError(types.ErrUpstreamUnavailable, "completion returned no choices")
	}
	return &CompletionResponse{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
	}, nil
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed implements Embedder.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	var resp embeddingResponse
	err := p.post(ctx, "/embeddings", embeddingRequest{
		Model: p.config.EmbeddingModel,
		Input: []string{text},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, types.NewError(types.ErrUpstreamUnavailable, "embedding returned no data")
	}
	return resp.Data[0].Embedding, nil
}

func (p *OpenAIProvider) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return types.NewError(types.ErrInternalError, "marshal request").WithCause(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return types.NewError(types.ErrInternalError, "build request").WithCause(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	}

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return types.NewError(types.ErrUpstreamTimeout, "upstream call timed out").WithCause(err)
		}
		return types.NewError(types.ErrUpstreamUnavailable, "upstream call failed").WithCause(err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, 10<<20))
	if err != nil {
		return types.NewError(types.ErrUpstreamUnavailable, "read upstream response").WithCause(err)
	}

	switch {
	case httpResp.StatusCode == http.StatusTooManyRequests:
		return types.NewError(types.ErrUpstreamRateLimited,
			fmt.Sprintf("upstream rate limited: %s", httpResp.Status))
	case httpResp.StatusCode >= 500:
		return types.NewError(types.ErrUpstreamUnavailable,
			fmt.Sprintf("upstream error: %s", httpResp.Status))
	case httpResp.StatusCode != http.StatusOK:
		return types.NewError(types.ErrUpstreamUnavailable,
			fmt.Sprintf("unexpected status %s: %s", httpResp.Status, truncate(data, 200))).
			WithRetryable(false)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return types.NewError(types.ErrUpstreamUnavailable, "decode upstream response").WithCause(err)
	}
	return nil
}

func truncate(data []byte, n int) string {
	if len(data) > n {
		data = data[:n]
	}
	return string(data)
}

var (
	_ Provider = (*OpenAIProvider)(nil)
	_ Embedder = (*OpenAIProvider)(nil)
)
