package retrieval

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/answerflow/types"
)

// WebSearchProvider is the external web search contract. Implementations
// wrap a real search API; tests inject a stub.
type WebSearchProvider interface {
	Search(ctx context.Context, query string, maxResults int) ([]types.SourceResult, error)
}

// WebAdapterConfig tunes the always-on web adapter.
type WebAdapterConfig struct {
	// MaxResults caps what is requested from the provider.
	MaxResults int `json:"max_results"`
	// RateLimit is the client-side request rate (requests/second);
	// zero disables limiting.
	RateLimit float64 `json:"rate_limit"`
	// MaxPerDomain caps results per site so one domain cannot dominate.
	MaxPerDomain int `json:"max_per_domain"`
}

// DefaultWebAdapterConfig returns production defaults.
func DefaultWebAdapterConfig() WebAdapterConfig {
	return WebAdapterConfig{
		MaxResults:   10,
		RateLimit:    2,
		MaxPerDomain: 2,
	}
}

// WebAdapter wraps a WebSearchProvider with rate limiting, authority
// scoring, a recency boost, and per-domain diversity. It is always
// invoked regardless of other adapters' success, to preserve freshness.
type WebAdapter struct {
	provider WebSearchProvider
	config   WebAdapterConfig
	limiter  *rate.Limiter
	logger   *zap.Logger

	// now is injectable for recency tests.
	now func() time.Time
}

// NewWebAdapter creates the web source adapter. A nil provider yields an
// unconfigured adapter returning empty result sets.
func NewWebAdapter(provider WebSearchProvider, config WebAdapterConfig, logger *zap.Logger) *WebAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter *rate.Limiter
	if config.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), 1)
	}
	return &WebAdapter{
		provider: provider,
		config:   config,
		limiter:  limiter,
		logger:   logger.With(zap.String("adapter", AdapterWebSearch)),
		now:      time.Now,
	}
}

// ID implements SourceAdapter.
func (w *WebAdapter) ID() string { return AdapterWebSearch }

// Retrieve implements SourceAdapter.
func (w *WebAdapter) Retrieve(ctx context.Context, req Request) ([]types.SourceResult, error) {
	if w.provider == nil {
		return []types.SourceResult{}, nil
	}

	if w.limiter != nil {
		if err := w.limiter.Wait(ctx); err != nil {
			return nil, types.NewError(types.ErrSourceUnavailable, "web search rate wait canceled").
				WithCause(err).WithSource(AdapterWebSearch)
		}
	}

	maxResults := w.config.MaxResults
	if req.TopK > maxResults {
		maxResults = req.TopK
	}
	results, err := w.provider.Search(ctx, req.Query.Text, maxResults)
	if err != nil {
		return nil, types.NewError(types.ErrSourceUnavailable, "web search failed").
			WithCause(err).WithSource(AdapterWebSearch)
	}

	for i := range results {
		results[i].SourceID = AdapterWebSearch
		results[i].RelevanceScore = w.qualityScore(&results[i])
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})
	results = w.ensureDiversity(results)

	w.logger.Debug("web retrieval", zap.Int("results", len(results)))
	return results, nil
}

// qualityScore folds domain authority and recency into the provider's
// native relevance, clamped to [0,1].
func (w *WebAdapter) qualityScore(r *types.SourceResult) float64 {
	score := r.RelevanceScore
	score += authorityBoost(extractDomain(r.URL))
	if w.mentionsRecentDate(r.Content) {
		score += 0.1
	}
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}

func (w *WebAdapter) ensureDiversity(results []types.SourceResult) []types.SourceResult {
	if w.config.MaxPerDomain <= 0 {
		return results
	}
	counts := make(map[string]int)
	diverse := results[:0]
	for _, r := range results {
		d := extractDomain(r.URL)
		if counts[d] >= w.config.MaxPerDomain {
			continue
		}
		counts[d]++
		diverse = append(diverse, r)
	}
	return diverse
}

// mentionsRecentDate checks whether the snippet names the current or
// previous year, a cheap freshness signal.
func (w *WebAdapter) mentionsRecentDate(snippet string) bool {
	year := w.now().Year()
	return strings.Contains(snippet, strconv.Itoa(year)) || strings.Contains(snippet, strconv.Itoa(year-1))
}

var highAuthorityDomains = []string{
	"reuters.com", "bbc.com", "nytimes.com", "nature.com", "science.org",
	"arxiv.org", "who.int", "nih.gov",
}

var mediumAuthoritySuffixes = []string{".gov", ".edu", "wikipedia.org", "github.com"}

// authorityBoost favors sources that earn more citations. High-authority
// domains get +0.2, institutional sources +0.1.
func authorityBoost(domain string) float64 {
	d := strings.ToLower(domain)
	for _, h := range highAuthorityDomains {
		if strings.HasSuffix(d, h) {
			return 0.2
		}
	}
	for _, m := range mediumAuthoritySuffixes {
		if strings.HasSuffix(d, m) || strings.Contains(d, m) {
			return 0.1
		}
	}
	return 0
}

// extractDomain pulls the host out of a URL, dropping a www. prefix.
func extractDomain(url string) string {
	s := url
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/?"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimPrefix(strings.ToLower(s), "www.")
}
