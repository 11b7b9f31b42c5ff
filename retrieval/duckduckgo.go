package retrieval

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/BaSui01/answerflow/types"
)

// DuckDuckGoConfig configures the HTML-endpoint search client.
type DuckDuckGoConfig struct {
	BaseURL string        `json:"base_url"`
	Timeout time.Duration `json:"timeout"`
}

// DefaultDuckDuckGoConfig returns production defaults.
func DefaultDuckDuckGoConfig() DuckDuckGoConfig {
	return DuckDuckGoConfig{
		BaseURL: "https://html.duckduckgo.com",
		Timeout: 3 * time.Second,
	}
}

// DuckDuckGoProvider implements WebSearchProvider against the keyless
// DuckDuckGo HTML endpoint.
type DuckDuckGoProvider struct {
	config DuckDuckGoConfig
	client *http.Client
	logger *zap.Logger
}

// NewDuckDuckGoProvider creates the client.
func NewDuckDuckGoProvider(config DuckDuckGoConfig, logger *zap.Logger) *DuckDuckGoProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultDuckDuckGoConfig().BaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultDuckDuckGoConfig().Timeout
	}
	return &DuckDuckGoProvider{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger.With(zap.String("component", "duckduckgo")),
	}
}

// Search implements WebSearchProvider.
func (p *DuckDuckGoProvider) Search(ctx context.Context, query string, maxResults int) ([]types.SourceResult, error) {
	endpoint := fmt.Sprintf("%s/html/?q=%s", p.config.BaseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, types.NewError(types.ErrSourceUnavailable, "build search request").
			WithCause(err).WithSource(AdapterWebSearch)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; answerflow/1.0)")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, types.NewError(types.ErrSourceUnavailable, "web search request failed").
			WithCause(err).WithSource(AdapterWebSearch)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewError(types.ErrSourceUnavailable,
			fmt.Sprintf("web search status %s", resp.Status)).WithSource(AdapterWebSearch)
	}

	results, err := parseSearchResults(io.LimitReader(resp.Body, 2<<20), maxResults)
	if err != nil {
		return nil, types.NewError(types.ErrSourceUnavailable, "parse search results").
			WithCause(err).WithSource(AdapterWebSearch)
	}
	p.logger.Debug("web search completed",
		zap.String("query", query),
		zap.Int("results", len(results)))
	return results, nil
}

// parseSearchResults extracts title/url/snippet triples from the HTML
// result page. Result anchors carry class result__a, snippets class
// result__snippet; position decides the relevance score.
func parseSearchResults(r io.Reader, maxResults int) ([]types.SourceResult, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var results []types.SourceResult
	var current *types.SourceResult

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if maxResults > 0 && len(results) >= maxResults {
			return
		}
		if n.Type == html.ElementNode && n.Data == "a" {
			classes := attr(n, "class")
			switch {
			case strings.Contains(classes, "result__a"):
				if current != nil && current.Title != "" {
					results = append(results, *current)
				}
				current = &types.SourceResult{
					Title: strings.TrimSpace(textContent(n)),
					URL:   resolveRedirect(attr(n, "href")),
				}
			case strings.Contains(classes, "result__snippet"):
				if current != nil {
					current.Content = strings.TrimSpace(textContent(n))
					results = append(results, *current)
					current = nil
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	if current != nil && current.Title != "" && (maxResults <= 0 || len(results) < maxResults) {
		results = append(results, *current)
	}

	// Position-decayed relevance: the engine's own ranking is the only
	// signal the HTML page exposes.
	for i := range results {
		score := 1.0 - float64(i)*0.05
		if score < 0.1 {
			score = 0.1
		}
		results[i].RelevanceScore = score
		results[i].SourceID = AdapterWebSearch
	}
	return results, nil
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg= redirect links to the
// destination URL.
func resolveRedirect(href string) string {
	if !strings.Contains(href, "duckduckgo.com/l/?") && !strings.HasPrefix(href, "/l/?") {
		return href
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	if dest := parsed.Query().Get("uddg"); dest != "" {
		return dest
	}
	return href
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

var _ WebSearchProvider = (*DuckDuckGoProvider)(nil)
