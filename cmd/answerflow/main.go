// Command answerflow answers a single question from the command line,
// wiring the full pipeline: configuration, logging, retrieval adapters,
// reranking, generation, validation, and the response cache.
//
// Usage:
//
//	answerflow [-config config.yaml] [-corpus documents.db] <question...>
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"github.com/BaSui01/answerflow/answer"
	"github.com/BaSui01/answerflow/cache"
	"github.com/BaSui01/answerflow/config"
	"github.com/BaSui01/answerflow/domain"
	"github.com/BaSui01/answerflow/llm"
	"github.com/BaSui01/answerflow/orchestrator"
	"github.com/BaSui01/answerflow/rerank"
	"github.com/BaSui01/answerflow/retrieval"
	"github.com/BaSui01/answerflow/types"
	"github.com/BaSui01/answerflow/validate"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration")
	corpusPath := flag.String("corpus", "", "path to the sqlite document corpus")
	domainHint := flag.String("domain", "", "domain hint (medical, legal, general)")
	conversational := flag.Bool("conversational", false, "skip retrieval for a chitchat message")
	flag.Parse()

	question := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if question == "" {
		fmt.Fprintln(os.Stderr, "usage: answerflow [flags] <question>")
		os.Exit(2)
	}

	cfg, err := config.NewLoader().WithConfigPath(*configPath).Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := buildLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	orch, err := buildPipeline(cfg, *corpusPath, logger)
	if err != nil {
		logger.Fatal("pipeline construction failed", zap.Error(err))
	}

	result, err := orch.Answer(context.Background(), types.Query{
		Text:           question,
		DomainHint:     *domainHint,
		Conversational: *conversational,
	})
	if err != nil {
		logger.Fatal("query failed", zap.Error(err))
	}

	fmt.Println(result.Text)
	if result.Warning != "" {
		fmt.Printf("\n[%s]\n", result.Warning)
	}
	if len(result.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, src := range result.Sources {
			fmt.Printf("  [%d] %s %s\n", src.Rank, src.Title, src.URL)
		}
	}
	fmt.Printf("\nConfidence: %s", result.Confidence)
	if result.Degraded {
		fmt.Print(" (degraded)")
	}
	fmt.Println()
}

func buildLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	// Keep stdout clean for the answer itself.
	zcfg.OutputPaths = []string{"stderr"}
	return zcfg.Build()
}

func buildPipeline(cfg *config.Config, corpusPath string, logger *zap.Logger) (*orchestrator.Orchestrator, error) {
	provider := llm.NewOpenAIProvider(llm.OpenAIConfig{
		APIKey:  os.Getenv("OPENAI_API_KEY"),
		BaseURL: os.Getenv("OPENAI_BASE_URL"),
		Timeout: cfg.LLM.Timeout,
	}, logger)

	var db *gorm.DB
	if corpusPath != "" {
		var err error
		db, err = gorm.Open(sqlite.Open(corpusPath), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("open corpus %s: %w", corpusPath, err)
		}
	}
	store, err := retrieval.NewDocumentStore(db, logger)
	if err != nil {
		return nil, fmt.Errorf("document store: %w", err)
	}

	vector := retrieval.NewVectorIndex(provider, logger)
	web := retrieval.NewWebAdapter(
		retrieval.NewDuckDuckGoProvider(retrieval.DefaultDuckDuckGoConfig(), logger),
		retrieval.WebAdapterConfig{
			MaxResults:   cfg.Retrieval.MaxWebResults,
			RateLimit:    cfg.Retrieval.WebRateLimit,
			MaxPerDomain: cfg.Retrieval.MaxPerDomain,
		}, logger)

	coordinator := retrieval.NewCoordinator(
		[]retrieval.SourceAdapter{store, vector, web},
		retrieval.CoordinatorConfig{
			AdapterTimeout:   cfg.Retrieval.AdapterTimeout,
			WebSearchTimeout: cfg.Retrieval.WebSearchTimeout,
		}, logger)

	builder := answer.NewPromptBuilder(answer.PromptConfig{
		ContextBudget: cfg.LLM.ContextBudget,
	}, answer.NewTiktokenCounter(cfg.LLM.Model))
	generator := answer.NewGenerator(provider, builder, answer.GeneratorConfig{
		Model:          cfg.LLM.Model,
		MaxTokens:      cfg.LLM.MaxTokens,
		MaxRetries:     cfg.LLM.MaxRetries,
		InitialBackoff: cfg.LLM.InitialBackoff,
	}, logger)

	semantic := cache.NewSemanticCache(cache.Config{
		SimilarityThreshold: cfg.Cache.SimilarityThreshold,
		TTL:                 cfg.Cache.TTL,
		MaxEntries:          cfg.Cache.MaxEntries,
		AdaptiveTTL:         cfg.Cache.AdaptiveTTL,
	}, provider, logger)

	var responseCache cache.Store = semantic
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		responseCache = cache.NewTiered(cache.NewRedisCache(client, cfg.Redis.TTL, logger), semantic)
	}

	return orchestrator.New(orchestrator.Config{
		MaxIterations:  cfg.Orchestrator.MaxIterations,
		QueryTimeout:   cfg.Orchestrator.QueryTimeout,
		MaxQueryLength: cfg.Orchestrator.MaxQueryLength,
		Depth: retrieval.DepthConfig{
			BaseK: cfg.Retrieval.TopK,
			MinK:  cfg.Retrieval.MinTopK,
			MaxK:  cfg.Retrieval.MaxTopK,
		},
	}, orchestrator.Deps{
		Cache:       responseCache,
		Domains:     domain.NewProvider(logger),
		Coordinator: coordinator,
		Reranker: rerank.New(rerank.Config{
			RelevanceWeight: cfg.Rerank.RelevanceWeight,
			OverlapWeight:   cfg.Rerank.OverlapWeight,
			TopK:            cfg.Rerank.TopK,
			MinScore:        cfg.Rerank.MinScore,
		}),
		Generator: generator,
		Validator: validate.New(validate.Config{
			HeuristicWeight: cfg.Validation.HeuristicWeight,
			SemanticWeight:  cfg.Validation.SemanticWeight,
			SemanticTrigger: cfg.Validation.SemanticTrigger,
			WarnThreshold:   cfg.Validation.WarnThreshold,
		}, provider, logger),
		Metrics: orchestrator.NewMetrics(nil),
		Logger:  logger,
	}), nil
}
