package retrieval

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BaSui01/answerflow/types"
)

// Document is a row in the structured document store, the primary
// retrieval backend for domain corpora.
type Document struct {
	ID        string `gorm:"primaryKey"`
	Title     string
	URL       string
	Body      string `gorm:"index"`
	Domain    string `gorm:"index"`
	CreatedAt time.Time
}

// DocumentStore is the primary source adapter, backed by a relational
// documents table. Scoring is lexical: the fraction of query terms a
// document matches, so results are deterministic on a stable corpus.
type DocumentStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewDocumentStore migrates the documents table and returns the adapter.
// A nil db yields an unconfigured adapter that returns empty result sets.
func NewDocumentStore(db *gorm.DB, logger *zap.Logger) (*DocumentStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if db != nil {
		if err := db.AutoMigrate(&Document{}); err != nil {
			return nil, err
		}
	}
	return &DocumentStore{
		db:     db,
		logger: logger.With(zap.String("adapter", AdapterDocumentStore)),
	}, nil
}

// ID implements SourceAdapter.
func (s *DocumentStore) ID() string { return AdapterDocumentStore }

// Add inserts or refreshes documents in the corpus.
func (s *DocumentStore) Add(ctx context.Context, docs []Document) error {
	if s.db == nil || len(docs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Save(&docs).Error
}

// Retrieve implements SourceAdapter. Candidates are narrowed in SQL by
// term match, then scored by the fraction of query terms present.
func (s *DocumentStore) Retrieve(ctx context.Context, req Request) ([]types.SourceResult, error) {
	if s.db == nil {
		return []types.SourceResult{}, nil
	}

	terms := queryTerms(req.Query.Text)
	if len(terms) == 0 {
		return []types.SourceResult{}, nil
	}

	q := s.db.WithContext(ctx).Model(&Document{})
	if req.Domain.DomainID != "" {
		q = q.Where("domain = ? OR domain = ''", req.Domain.DomainID)
	}
	// Any-term match in SQL; precise scoring happens in memory below.
	var or *gorm.DB
	for _, term := range terms {
		cond := s.db.Where("lower(body) LIKE ?", "%"+term+"%").
			Or("lower(title) LIKE ?", "%"+term+"%")
		if or == nil {
			or = cond
		} else {
			or = or.Or(cond)
		}
	}
	q = q.Where(or)

	var docs []Document
	if err := q.Limit(req.TopK * 4).Find(&docs).Error; err != nil {
		return nil, types.NewError(types.ErrSourceUnavailable, "document store query failed").
			WithCause(err).WithSource(AdapterDocumentStore)
	}

	results := make([]types.SourceResult, 0, len(docs))
	for _, doc := range docs {
		score := termCoverage(terms, doc.Title+" "+doc.Body)
		if score == 0 {
			continue
		}
		results = append(results, types.SourceResult{
			SourceID:       AdapterDocumentStore,
			Title:          doc.Title,
			URL:            doc.URL,
			Content:        doc.Body,
			RelevanceScore: score,
			RetrievedAt:    time.Now(),
		})
	}
	sortByRelevance(results)
	if len(results) > req.TopK {
		results = results[:req.TopK]
	}

	s.logger.Debug("document store retrieval",
		zap.Int("candidates", len(docs)),
		zap.Int("results", len(results)))
	return results, nil
}

// queryTerms lowercases and splits a query, dropping stopwords and short
// tokens that would match everything.
func queryTerms(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?\"'()[]")
		if len(f) < 3 || stopwords[f] {
			continue
		}
		terms = append(terms, f)
	}
	return terms
}

// termCoverage returns the fraction of terms found in text, in [0,1].
func termCoverage(terms []string, text string) float64 {
	if len(terms) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	matched := 0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}

func sortByRelevance(results []types.SourceResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})
}

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "was": true,
	"what": true, "which": true, "with": true, "that": true, "this": true,
	"how": true, "why": true, "when": true, "where": true, "who": true,
	"can": true, "does": true, "has": true, "have": true, "its": true,
}
