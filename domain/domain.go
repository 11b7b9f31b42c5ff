// Package domain resolves the behavior profile for a query: which system
// prompt and disclaimer the answer pipeline uses. Profiles live in a
// strategy table keyed by domain id, resolved once per query and passed
// through the pipeline as a value, with no global current-domain state.
package domain

import (
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/answerflow/types"
)

// GeneralID is the fallback domain.
const GeneralID = "general"

type profile struct {
	context  types.DomainContext
	keywords []string
}

// Provider maps domain hints and query text to a DomainContext.
type Provider struct {
	mu       sync.RWMutex
	profiles map[string]profile
	logger   *zap.Logger
}

// NewProvider returns a provider seeded with the built-in general,
// medical, and legal profiles.
func NewProvider(logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Provider{
		profiles: make(map[string]profile),
		logger:   logger.With(zap.String("component", "domain_provider")),
	}

	p.Register(types.DomainContext{
		DomainID:     GeneralID,
		SystemPrompt: "You are a helpful, precise assistant with access to retrieved documents and web results.",
	})
	p.Register(types.DomainContext{
		DomainID: "medical",
		SystemPrompt: "You are a medical information assistant. Ground every claim in the provided " +
			"sources, prefer clinical guidance over anecdote, and never present the answer as a diagnosis.",
		Disclaimer: "This information is for educational purposes only. Always consult a qualified " +
			"healthcare professional for medical advice, diagnosis, or treatment.",
	}, "symptom", "symptoms", "medication", "dosage", "diagnosis", "treatment",
		"contraindication", "contraindications", "side effect", "drug", "disease", "aspirin")
	p.Register(types.DomainContext{
		DomainID: "legal",
		SystemPrompt: "You are a legal research assistant. Cite the provided sources for every claim " +
			"and distinguish statute from interpretation.",
		Disclaimer: "This information is for educational purposes only and does not constitute legal " +
			"advice. Consult a licensed attorney for advice on specific legal matters.",
	}, "statute", "lawsuit", "liability", "contract", "regulation", "compliance",
		"rights", "court", "legal", "attorney")

	return p
}

// Register installs or replaces a profile. Keywords drive detection when
// a query carries no domain hint.
func (p *Provider) Register(ctx types.DomainContext, keywords ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.profiles[ctx.DomainID] = profile{context: ctx, keywords: keywords}
}

// Context resolves the profile for a query: an explicit domain hint wins,
// otherwise keyword detection over the query text, otherwise general.
func (p *Provider) Context(query types.Query) types.DomainContext {
	if query.DomainHint != "" {
		if ctx, ok := p.lookup(query.DomainHint); ok {
			return ctx
		}
		p.logger.Debug("unknown domain hint, detecting from text",
			zap.String("hint", query.DomainHint))
	}
	return p.detect(query.Text)
}

func (p *Provider) lookup(id string) (types.DomainContext, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	prof, ok := p.profiles[strings.ToLower(strings.TrimSpace(id))]
	return prof.context, ok
}

// detect scores each profile by keyword occurrences in the query and
// returns the best scorer, general on a tie at zero. Deterministic: equal
// scores resolve by domain id order.
func (p *Provider) detect(text string) types.DomainContext {
	lower := strings.ToLower(text)

	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := make([]string, 0, len(p.profiles))
	for id := range p.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	bestID := GeneralID
	bestScore := 0
	for _, id := range ids {
		score := 0
		for _, kw := range p.profiles[id].keywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			bestID = id
		}
	}
	return p.profiles[bestID].context
}
