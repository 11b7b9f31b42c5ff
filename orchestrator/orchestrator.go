// Package orchestrator sequences the answer pipeline as an explicit
// state machine: cache check, routing, parallel retrieval, reranking,
// generation, validation, and a bounded low-confidence retry loop.
package orchestrator

import (
	"context"
	"math/bits"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/answerflow/answer"
	"github.com/BaSui01/answerflow/cache"
	"github.com/BaSui01/answerflow/domain"
	"github.com/BaSui01/answerflow/rerank"
	"github.com/BaSui01/answerflow/retrieval"
	"github.com/BaSui01/answerflow/types"
	"github.com/BaSui01/answerflow/validate"
)

// State identifies one node of the pipeline state machine.
type State string

const (
	StateStart        State = "START"
	StateCacheCheck   State = "CACHE_CHECK"
	StateCachedReturn State = "CACHED_RETURN"
	StateRoute        State = "ROUTE"
	StateRetrieve     State = "RETRIEVE"
	StateRerank       State = "RERANK"
	StateGenerate     State = "GENERATE"
	StateValidate     State = "VALIDATE"
	StateReturn       State = "RETURN"
	StateEnd          State = "END"
)

// degradedApology is returned when even generation is unavailable. The
// caller still gets a result; degraded=true tells it to caveat.
const degradedApology = "I'm sorry, I couldn't produce an answer right now. Please try again shortly."

// Config bounds the state machine.
type Config struct {
	// MaxIterations caps RETRIEVE→GENERATE→VALIDATE cycles. Iteration
	// never exceeds it; exhausting it forces a degraded RETURN.
	MaxIterations int `json:"max_iterations"`
	// QueryTimeout is the end-to-end deadline for one query.
	QueryTimeout time.Duration `json:"query_timeout"`
	// MaxQueryLength rejects oversized questions up front.
	MaxQueryLength int `json:"max_query_length"`
	// Depth clamps the adaptive per-adapter retrieval depth.
	Depth retrieval.DepthConfig `json:"depth"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		MaxIterations:  2,
		QueryTimeout:   60 * time.Second,
		MaxQueryLength: 1000,
		Depth:          retrieval.DefaultDepthConfig(),
	}
}

// Deps are the pipeline components. Cache, Domains, and Metrics are
// optional; everything else is required.
type Deps struct {
	Cache       cache.Store
	Domains     *domain.Provider
	Coordinator *retrieval.Coordinator
	Reranker    *rerank.Reranker
	Generator   *answer.Generator
	Validator   *validate.Validator
	Metrics     *Metrics
	Logger      *zap.Logger
}

// Orchestrator runs one query through the pipeline. Each invocation owns
// its AgenticState exclusively; concurrent queries share only the cache.
type Orchestrator struct {
	config      Config
	cache       cache.Store
	domains     *domain.Provider
	coordinator *retrieval.Coordinator
	reranker    *rerank.Reranker
	generator   *answer.Generator
	validator   *validate.Validator
	metrics     *Metrics
	logger      *zap.Logger
}

// New creates an Orchestrator.
func New(config Config, deps Deps) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxIterations <= 0 {
		config.MaxIterations = DefaultConfig().MaxIterations
	}
	if config.Depth.MaxK <= 0 {
		config.Depth = retrieval.DefaultDepthConfig()
	}
	return &Orchestrator{
		config:      config,
		cache:       deps.Cache,
		domains:     deps.Domains,
		coordinator: deps.Coordinator,
		reranker:    deps.Reranker,
		generator:   deps.Generator,
		validator:   deps.Validator,
		metrics:     deps.Metrics,
		logger:      logger.With(zap.String("component", "orchestrator")),
	}
}

// Answer resolves the domain profile for the query and executes the
// pipeline. This is the single entry point for callers.
func (o *Orchestrator) Answer(ctx context.Context, query types.Query) (*types.AnswerResult, error) {
	var domainCtx types.DomainContext
	if o.domains != nil {
		domainCtx = o.domains.Context(query)
	}
	return o.Execute(ctx, query, domainCtx)
}

// Execute runs the state machine for one query. It always returns a
// result, degraded and caveated when sources or upstreams fail, except
// on deadline exhaustion or an invalid query, the only hard errors.
func (o *Orchestrator) Execute(ctx context.Context, query types.Query, domainCtx types.DomainContext) (*types.AnswerResult, error) {
	start := time.Now()
	defer o.metrics.observeQuery(start)

	if strings.TrimSpace(query.Text) == "" {
		return nil, types.NewError(types.ErrInvalidQuery, "empty query")
	}
	if o.config.MaxQueryLength > 0 && len(query.Text) > o.config.MaxQueryLength {
		return nil, types.NewError(types.ErrInvalidQuery, "query exceeds maximum length")
	}

	if o.config.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.QueryTimeout)
		defer cancel()
	}

	st := &types.AgenticState{
		RequestID: uuid.NewString(),
		Query:     query,
		Domain:    domainCtx,
		StartedAt: start,
	}
	logger := o.logger.With(zap.String("request_id", st.RequestID))

	// Retry reformulation adjusts these without touching the immutable
	// query value.
	effectiveQuery := query.Text
	topK := retrieval.AdaptiveDepth(query.Text, o.config.Depth)

	var (
		cached     *cache.Entry
		rawResults []types.SourceResult
		warning    string
		result     *types.AnswerResult
	)

	state := StateStart
	for state != StateEnd {
		if err := ctx.Err(); err != nil {
			logger.Warn("query deadline exceeded", zap.String("state", string(state)))
			return nil, types.NewError(types.ErrDeadlineExceeded, "query deadline exceeded").WithCause(err)
		}

		switch state {
		case StateStart:
			state = StateCacheCheck

		case StateCacheCheck:
			if o.cache == nil || query.Conversational {
				state = StateRoute
				break
			}
			if entry, ok := o.cache.Lookup(ctx, query.Text); ok {
				cached = entry
				o.metrics.cacheHit(true)
				logger.Info("cache hit")
				state = StateCachedReturn
			} else {
				o.metrics.cacheHit(false)
				state = StateRoute
			}

		case StateCachedReturn:
			result = &types.AnswerResult{
				Text:       cached.Answer,
				Sources:    cached.Sources,
				Confidence: cached.Band,
			}
			st.IsComplete = true
			state = StateEnd

		case StateRoute:
			if query.Conversational {
				state = StateGenerate
			} else {
				state = StateRetrieve
			}

		case StateRetrieve:
			retrievalQuery := query
			retrievalQuery.Text = effectiveQuery
			var mask uint64
			rawResults, mask = o.coordinator.Retrieve(ctx, retrieval.Request{
				Query:  retrievalQuery,
				Domain: domainCtx,
				TopK:   topK,
			})
			st.FailureMask = mask
			o.metrics.retrieval(bits.OnesCount64(mask))
			if o.coordinator.AllFailed(mask) {
				st.Degraded = true
				logger.Warn("all source adapters failed")
			}
			state = StateRerank

		case StateRerank:
			st.Sources = o.reranker.Rerank(effectiveQuery, rawResults)
			state = StateGenerate

		case StateGenerate:
			var text string
			var err error
			if query.Conversational {
				text, err = o.generator.GenerateConversational(ctx, query, domainCtx)
			} else {
				text, err = o.generator.Generate(ctx, query, st.Sources, domainCtx)
			}
			if err != nil {
				if ctx.Err() != nil {
					return nil, types.NewError(types.ErrDeadlineExceeded, "query deadline exceeded").WithCause(err)
				}
				logger.Warn("generation unavailable, degrading", zap.Error(err))
				st.Answer = degradedApology
				st.Degraded = true
				st.Confidence = 0
				st.Band = types.ConfidenceLow
				state = StateReturn
				break
			}
			st.Answer = text
			if query.Conversational {
				// No sources to ground against; validation is meaningless
				// for chitchat.
				st.Confidence = 1
				st.Band = types.ConfidenceHigh
				state = StateReturn
			} else {
				state = StateValidate
			}

		case StateValidate:
			res := o.validator.Validate(ctx, st.Answer, st.Sources)
			st.Confidence = res.Confidence
			st.Band = res.Band
			warning = res.Warning
			st.Iteration++

			if res.Band == types.ConfidenceLow && st.Iteration < o.config.MaxIterations {
				o.metrics.retry()
				effectiveQuery = reformulate(query.Text, st.Iteration)
				topK = o.config.Depth.MaxK
				logger.Info("low confidence, retrying",
					zap.Int("iteration", st.Iteration),
					zap.String("reformulated", effectiveQuery))
				state = StateRetrieve
				break
			}
			if res.Band == types.ConfidenceLow {
				st.Degraded = true
			}
			state = StateReturn

		case StateReturn:
			text := st.Answer
			if !query.Conversational && domainCtx.Disclaimer != "" && text != "" {
				text += "\n\n" + domainCtx.Disclaimer
			}
			result = &types.AnswerResult{
				Text:       text,
				Sources:    st.Sources,
				Confidence: st.Band,
				Degraded:   st.Degraded,
				Warning:    warning,
			}
			if o.cache != nil && !query.Conversational && !st.Degraded && st.Answer != "" {
				o.cache.Store(ctx, query.Text, cache.Entry{
					Answer:     text,
					Sources:    st.Sources,
					Confidence: st.Confidence,
					Band:       st.Band,
				})
			}
			st.IsComplete = true
			state = StateEnd
		}
	}

	o.metrics.answer(string(result.Confidence), result.Degraded)
	logger.Info("query completed",
		zap.String("band", string(result.Confidence)),
		zap.Bool("degraded", result.Degraded),
		zap.Int("iterations", st.Iteration),
		zap.Int("sources", len(result.Sources)),
		zap.Duration("duration", time.Since(start)))
	return result, nil
}

// reformulate rewrites the query for a retry cycle and never returns the
// original unchanged. The first retry expands: bare topics become explicit
// questions and questions become requests for detail, which widens lexical
// overlap with differently-phrased sources. Later retries simplify to the
// core intent by stripping question scaffolding and filler.
func reformulate(original string, iteration int) string {
	trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(original), "?"))
	if iteration > 1 {
		if core := coreIntent(trimmed); core != "" && !strings.EqualFold(core, original) {
			return core
		}
	}
	lower := strings.ToLower(trimmed)
	for _, w := range []string{"what", "how", "why", "when", "where", "who", "explain"} {
		if strings.HasPrefix(lower, w) {
			return "Explain in detail: " + trimmed
		}
	}
	return "What is " + trimmed + "?"
}

// fillerWords are scaffolding stripped when reducing a query to its core
// intent. Content words survive.
var fillerWords = map[string]bool{
	"what": true, "how": true, "why": true, "when": true, "where": true,
	"who": true, "which": true, "explain": true, "describe": true,
	"tell": true, "me": true, "about": true, "is": true, "are": true,
	"was": true, "were": true, "does": true, "do": true, "did": true,
	"can": true, "could": true, "the": true, "a": true, "an": true,
	"of": true, "in": true, "please": true,
}

func coreIntent(query string) string {
	var kept []string
	for _, w := range strings.Fields(query) {
		if fillerWords[strings.ToLower(strings.Trim(w, "?,.!"))] {
			continue
		}
		kept = append(kept, strings.Trim(w, "?,.!"))
	}
	return strings.Join(kept, " ")
}
