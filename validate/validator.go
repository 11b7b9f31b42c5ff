// Package validate scores how well a generated answer is grounded in the
// retrieved sources and maps the score to a confidence band.
//
// Scoring runs in two tiers: a fast lexical heuristic on every answer,
// and an embedding similarity pass only when the heuristic already looks
// risky. The blend weights and trigger threshold are configuration.
package validate

import (
	"context"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/BaSui01/answerflow/llm"
	"github.com/BaSui01/answerflow/types"
)

// Config tunes the validator. Zero values fall back to defaults.
type Config struct {
	// HeuristicWeight and SemanticWeight blend the two tiers when both run.
	HeuristicWeight float64 `json:"heuristic_weight"`
	SemanticWeight  float64 `json:"semantic_weight"`
	// SemanticTrigger runs the semantic tier only above this heuristic risk.
	SemanticTrigger float64 `json:"semantic_trigger"`
	// WarnThreshold attaches the stronger caveat above this risk.
	WarnThreshold float64 `json:"warn_threshold"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		HeuristicWeight: 0.6,
		SemanticWeight:  0.4,
		SemanticTrigger: 0.4,
		WarnThreshold:   0.7,
	}
}

// Result is one validation verdict.
type Result struct {
	// Confidence is 1 - risk, in [0,1].
	Confidence float64
	Band       types.ConfidenceBand
	// Risk is the grounding risk the confidence derives from.
	Risk float64
	// Warning is a human-readable caveat for risky answers, empty when the
	// answer is well grounded.
	Warning string
}

// vaguePhrases signal hedged, likely-unsupported claims.
var vaguePhrases = []string{
	"might", "could", "possibly", "perhaps", "may",
	"unclear", "not sure", "seems", "appears",
}

// Validator scores answer grounding. The embedder is optional; without
// one only the heuristic tier runs.
type Validator struct {
	config   Config
	embedder llm.Embedder
	logger   *zap.Logger
}

// New creates a Validator.
func New(config Config, embedder llm.Embedder, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.HeuristicWeight <= 0 && config.SemanticWeight <= 0 {
		config = DefaultConfig()
	}
	if config.WarnThreshold <= 0 {
		config.WarnThreshold = DefaultConfig().WarnThreshold
	}
	return &Validator{
		config:   config,
		embedder: embedder,
		logger:   logger.With(zap.String("component", "validator")),
	}
}

// Validate scores the answer against its sources. Deterministic for the
// same inputs, so the orchestrator can re-validate after a retry without
// side effects.
//
// An empty source list combined with specific factual claims in the
// answer scores zero confidence outright.
func (v *Validator) Validate(ctx context.Context, answer string, sources []types.RankedResult) Result {
	if len(sources) == 0 && containsFactualClaims(answer) {
		return Result{
			Confidence: 0,
			Band:       types.ConfidenceLow,
			Risk:       1,
			Warning:    warningFor(1, v.config.WarnThreshold),
		}
	}

	risk := v.heuristicRisk(answer, sources)

	if v.embedder != nil && risk > v.config.SemanticTrigger {
		semantic := v.semanticRisk(ctx, answer, sources)
		blended := risk*v.config.HeuristicWeight + semantic*v.config.SemanticWeight
		v.logger.Debug("hybrid grounding score",
			zap.Float64("heuristic", risk),
			zap.Float64("semantic", semantic),
			zap.Float64("blended", blended))
		risk = blended
	}
	risk = clamp01(risk)

	confidence := clamp01(1 - risk)
	return Result{
		Confidence: confidence,
		Band:       types.BandForScore(confidence),
		Risk:       risk,
		Warning:    warningFor(risk, v.config.WarnThreshold),
	}
}

// heuristicRisk is the fast tier. Four factors: lexical support of the
// answer's content words in the sources (40%), answer vs context length
// ratio (20%), vague language (20%), source availability (20%).
func (v *Validator) heuristicRisk(answer string, sources []types.RankedResult) float64 {
	risk := 0.0

	support := lexicalSupport(answer, sources)
	if support < 0.3 {
		risk += 0.4
	} else if support < 0.5 {
		risk += 0.2
	}

	if len(sources) > 0 {
		contextLen := 0
		for _, src := range sources {
			contextLen += len(src.Content)
		}
		if contextLen > 0 && float64(len(answer)) > float64(contextLen)*1.5 {
			risk += 0.2
		}
	}

	vague := 0
	lower := strings.ToLower(answer)
	for _, phrase := range vaguePhrases {
		if strings.Contains(lower, phrase) {
			vague++
		}
	}
	if vague > 2 {
		risk += 0.2
	} else if vague > 0 {
		risk += 0.1
	}

	switch {
	case len(sources) == 0:
		risk += 0.2
	case len(sources) < 2:
		risk += 0.1
	}

	return clamp01(risk)
}

// semanticRisk is 1 minus the best cosine similarity between the answer
// and the top sources. Neutral 0.5 when similarity cannot be computed.
func (v *Validator) semanticRisk(ctx context.Context, answer string, sources []types.RankedResult) float64 {
	if len(sources) == 0 {
		return 0.5
	}

	answerVec, err := v.embedder.Embed(ctx, answer)
	if err != nil {
		v.logger.Warn("answer embedding failed, neutral semantic score", zap.Error(err))
		return 0.5
	}

	maxSim := 0.0
	limit := len(sources)
	if limit > 5 {
		limit = 5
	}
	for _, src := range sources[:limit] {
		content := src.Content
		if len(content) > 1000 {
			content = content[:1000]
		}
		vec, err := v.embedder.Embed(ctx, content)
		if err != nil {
			continue
		}
		if sim := types.CosineSimilarity(answerVec, vec); sim > maxSim {
			maxSim = sim
		}
	}
	return clamp01(1 - maxSim)
}

// lexicalSupport returns the fraction of the answer's content words that
// appear somewhere in the source text. 1.0 for an answer with no content
// words (nothing to ground).
func lexicalSupport(answer string, sources []types.RankedResult) float64 {
	tokens := contentTokens(answer)
	if len(tokens) == 0 {
		return 1.0
	}

	var corpus strings.Builder
	for _, src := range sources {
		corpus.WriteString(strings.ToLower(src.Title))
		corpus.WriteByte(' ')
		corpus.WriteString(strings.ToLower(src.Content))
		corpus.WriteByte(' ')
	}
	text := corpus.String()

	supported := 0
	for _, token := range tokens {
		if strings.Contains(text, token) {
			supported++
		}
	}
	return float64(supported) / float64(len(tokens))
}

var supportStopwords = map[string]bool{
	"the": true, "and": true, "for": true, "that": true, "this": true,
	"with": true, "from": true, "are": true, "was": true, "were": true,
	"has": true, "have": true, "not": true, "its": true, "their": true,
}

func contentTokens(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if len(f) < 3 || supportStopwords[f] {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// containsFactualClaims reports whether the answer asserts something
// specific: numbers, or proper nouns past a sentence start.
func containsFactualClaims(answer string) bool {
	words := strings.Fields(answer)
	sentenceStart := true
	for _, w := range words {
		if strings.ContainsFunc(w, unicode.IsDigit) {
			return true
		}
		runes := []rune(w)
		if len(runes) > 0 && unicode.IsUpper(runes[0]) && !sentenceStart {
			return true
		}
		sentenceStart = strings.HasSuffix(w, ".") || strings.HasSuffix(w, "?") || strings.HasSuffix(w, "!")
	}
	return false
}

func warningFor(risk, warnThreshold float64) string {
	switch {
	case risk > 0.8:
		return "High risk: answer may contain unsupported claims"
	case risk > warnThreshold:
		return "Moderate risk: answer partially supported by context"
	case risk > 0.5:
		return "Low risk: answer mostly grounded in context"
	}
	return ""
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
