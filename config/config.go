// Package config loads answerflow configuration from defaults, an optional
// YAML file, and environment variable overrides, in that order.
//
// Usage:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("ANSWERFLOW").
//	    Load()
package config

import "time"

// Config is the complete answerflow configuration.
type Config struct {
	Orchestrator OrchestratorConfig `yaml:"orchestrator" env:"ORCHESTRATOR"`
	Retrieval    RetrievalConfig    `yaml:"retrieval" env:"RETRIEVAL"`
	Rerank       RerankConfig       `yaml:"rerank" env:"RERANK"`
	Validation   ValidationConfig   `yaml:"validation" env:"VALIDATION"`
	Cache        CacheConfig        `yaml:"cache" env:"CACHE"`
	Redis        RedisConfig        `yaml:"redis" env:"REDIS"`
	LLM          LLMConfig          `yaml:"llm" env:"LLM"`
	Log          LogConfig          `yaml:"log" env:"LOG"`
}

// OrchestratorConfig bounds the state machine.
type OrchestratorConfig struct {
	// MaxIterations caps RETRIEVE→GENERATE→VALIDATE cycles per query.
	MaxIterations int `yaml:"max_iterations" env:"MAX_ITERATIONS"`
	// QueryTimeout is the end-to-end deadline for one query.
	QueryTimeout time.Duration `yaml:"query_timeout" env:"QUERY_TIMEOUT"`
	// MaxQueryLength rejects oversized questions up front.
	MaxQueryLength int `yaml:"max_query_length" env:"MAX_QUERY_LENGTH"`
}

// RetrievalConfig configures the fan-out coordinator and adapters.
type RetrievalConfig struct {
	// TopK is the base number of results requested per adapter.
	TopK int `yaml:"top_k" env:"TOP_K"`
	// MinTopK / MaxTopK clamp the adaptive depth calculation.
	MinTopK int `yaml:"min_top_k" env:"MIN_TOP_K"`
	MaxTopK int `yaml:"max_top_k" env:"MAX_TOP_K"`
	// AdapterTimeout bounds each individual adapter call.
	AdapterTimeout time.Duration `yaml:"adapter_timeout" env:"ADAPTER_TIMEOUT"`
	// WebSearchTimeout bounds the web adapter separately (slower upstream).
	WebSearchTimeout time.Duration `yaml:"web_search_timeout" env:"WEB_SEARCH_TIMEOUT"`
	// MaxWebResults caps results requested from the web provider.
	MaxWebResults int `yaml:"max_web_results" env:"MAX_WEB_RESULTS"`
	// WebRateLimit is the client-side web search rate (requests/second).
	WebRateLimit float64 `yaml:"web_rate_limit" env:"WEB_RATE_LIMIT"`
	// MaxPerDomain caps web results per site for diversity.
	MaxPerDomain int `yaml:"max_per_domain" env:"MAX_PER_DOMAIN"`
}

// RerankConfig configures merge scoring.
type RerankConfig struct {
	// RelevanceWeight and OverlapWeight blend the adapter-native score
	// with lexical query overlap. They should sum to 1.
	RelevanceWeight float64 `yaml:"relevance_weight" env:"RELEVANCE_WEIGHT"`
	OverlapWeight   float64 `yaml:"overlap_weight" env:"OVERLAP_WEIGHT"`
	// TopK is the final result count handed to generation.
	TopK int `yaml:"top_k" env:"TOP_K"`
	// MinScore drops merged results below this final score.
	MinScore float64 `yaml:"min_score" env:"MIN_SCORE"`
}

// ValidationConfig tunes the grounding validator. The blend weights and
// trigger thresholds are deliberately configuration, not constants.
type ValidationConfig struct {
	// HeuristicWeight / SemanticWeight blend the two scoring tiers.
	HeuristicWeight float64 `yaml:"heuristic_weight" env:"HEURISTIC_WEIGHT"`
	SemanticWeight  float64 `yaml:"semantic_weight" env:"SEMANTIC_WEIGHT"`
	// SemanticTrigger runs the semantic tier only when the heuristic
	// risk exceeds this value.
	SemanticTrigger float64 `yaml:"semantic_trigger" env:"SEMANTIC_TRIGGER"`
	// WarnThreshold attaches a caveat to answers above this risk.
	WarnThreshold float64 `yaml:"warn_threshold" env:"WARN_THRESHOLD"`
}

// CacheConfig configures the semantic response cache.
type CacheConfig struct {
	// SimilarityThreshold is the cosine similarity for a cache hit.
	SimilarityThreshold float64 `yaml:"similarity_threshold" env:"SIMILARITY_THRESHOLD"`
	// TTL is the default entry lifetime; adaptive TTL may shorten it.
	TTL time.Duration `yaml:"ttl" env:"TTL"`
	// MaxEntries triggers LRU eviction.
	MaxEntries int `yaml:"max_entries" env:"MAX_ENTRIES"`
	// AdaptiveTTL shortens lifetimes for temporal queries.
	AdaptiveTTL bool `yaml:"adaptive_ttl" env:"ADAPTIVE_TTL"`
}

// RedisConfig configures the optional exact-key response cache tier.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled" env:"ENABLED"`
	Addr     string        `yaml:"addr" env:"ADDR"`
	Password string        `yaml:"password" env:"PASSWORD"`
	DB       int           `yaml:"db" env:"DB"`
	PoolSize int           `yaml:"pool_size" env:"POOL_SIZE"`
	TTL      time.Duration `yaml:"ttl" env:"TTL"`
}

// LLMConfig configures the completion and embedding clients.
type LLMConfig struct {
	Model          string        `yaml:"model" env:"MODEL"`
	MaxTokens      int           `yaml:"max_tokens" env:"MAX_TOKENS"`
	ContextBudget  int           `yaml:"context_budget" env:"CONTEXT_BUDGET"`
	Timeout        time.Duration `yaml:"timeout" env:"TIMEOUT"`
	MaxRetries     int           `yaml:"max_retries" env:"MAX_RETRIES"`
	InitialBackoff time.Duration `yaml:"initial_backoff" env:"INITIAL_BACKOFF"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() *Config {
	return &Config{
		Orchestrator: OrchestratorConfig{
			MaxIterations:  2,
			QueryTimeout:   60 * time.Second,
			MaxQueryLength: 1000,
		},
		Retrieval: RetrievalConfig{
			TopK:             5,
			MinTopK:          3,
			MaxTopK:          15,
			AdapterTimeout:   3 * time.Second,
			WebSearchTimeout: 5 * time.Second,
			MaxWebResults:    10,
			WebRateLimit:     2,
			MaxPerDomain:     2,
		},
		Rerank: RerankConfig{
			RelevanceWeight: 0.6,
			OverlapWeight:   0.4,
			TopK:            5,
			MinScore:        0.0,
		},
		Validation: ValidationConfig{
			HeuristicWeight: 0.6,
			SemanticWeight:  0.4,
			SemanticTrigger: 0.4,
			WarnThreshold:   0.7,
		},
		Cache: CacheConfig{
			SimilarityThreshold: 0.95,
			TTL:                 time.Hour,
			MaxEntries:          1000,
			AdaptiveTTL:         true,
		},
		Redis: RedisConfig{
			Enabled:  false,
			Addr:     "localhost:6379",
			DB:       0,
			PoolSize: 10,
			TTL:      time.Hour,
		},
		LLM: LLMConfig{
			Model:          "gpt-4o-mini",
			MaxTokens:      1024,
			ContextBudget:  3000,
			Timeout:        30 * time.Second,
			MaxRetries:     1,
			InitialBackoff: 500 * time.Millisecond,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
