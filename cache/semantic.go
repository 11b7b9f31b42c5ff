package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/answerflow/llm"
	"github.com/BaSui01/answerflow/types"
)

// Config tunes the semantic cache.
type Config struct {
	// SimilarityThreshold is the cosine similarity required for a hit.
	// Adaptive per-query thresholds override it for numeric and long
	// queries.
	SimilarityThreshold float64 `json:"similarity_threshold"`
	// TTL is the default entry lifetime, checked lazily on lookup.
	TTL time.Duration `json:"ttl"`
	// MaxEntries triggers least-recently-used eviction.
	MaxEntries int `json:"max_entries"`
	// AdaptiveTTL shortens lifetimes for current-events queries.
	AdaptiveTTL bool `json:"adaptive_ttl"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: 0.95,
		TTL:                 time.Hour,
		MaxEntries:          1000,
		AdaptiveTTL:         true,
	}
}

type semanticEntry struct {
	key       string
	embedding []float64
	payload   Entry
	createdAt time.Time
	ttl       time.Duration
}

// SemanticCache matches queries by embedding cosine similarity, so two
// paraphrases of the same question can hit the same entry. Safe for
// concurrent orchestrations; writes to the same key are last-write-wins.
type SemanticCache struct {
	config   Config
	embedder llm.Embedder
	logger   *zap.Logger

	mu      sync.Mutex
	entries map[string]*list.Element // key -> element holding *semanticEntry
	lru     *list.List               // front = most recently used

	now func() time.Time
}

// NewSemanticCache creates the cache. The embedder is required; lookups
// degrade to misses if it fails at call time.
func NewSemanticCache(config Config, embedder llm.Embedder, logger *zap.Logger) *SemanticCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.SimilarityThreshold <= 0 {
		config.SimilarityThreshold = DefaultConfig().SimilarityThreshold
	}
	if config.TTL <= 0 {
		config.TTL = DefaultConfig().TTL
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultConfig().MaxEntries
	}
	return &SemanticCache{
		config:   config,
		embedder: embedder,
		logger:   logger.With(zap.String("component", "semantic_cache")),
		entries:  make(map[string]*list.Element),
		lru:      list.New(),
		now:      time.Now,
	}
}

// Lookup returns the best cached entry whose query embedding clears the
// similarity threshold. Expired entries encountered during the scan are
// evicted lazily. An embedding failure is a miss, never an error: the
// caller falls through to a fresh pipeline run.
func (c *SemanticCache) Lookup(ctx context.Context, query string) (*Entry, bool) {
	if c.embedder == nil {
		return nil, false
	}
	queryVec, err := c.embedder.Embed(ctx, query)
	if err != nil {
		c.logger.Warn("lookup embedding failed, treating as miss", zap.Error(err))
		return nil, false
	}

	threshold := c.similarityThreshold(query)
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	var (
		best    *list.Element
		bestSim float64
	)
	for elem := c.lru.Front(); elem != nil; {
		next := elem.Next()
		entry := elem.Value.(*semanticEntry)

		if now.Sub(entry.createdAt) > entry.ttl {
			c.removeLocked(elem)
			elem = next
			continue
		}
		if len(entry.embedding) != len(queryVec) {
			// Corrupted entry: stored under a different embedding
			// dimensionality. Evict and keep scanning.
			c.logger.Warn("evicting corrupted cache entry",
				zap.String("key", entry.key),
				zap.String("code", string(types.ErrCacheCorruption)))
			c.removeLocked(elem)
			elem = next
			continue
		}

		if sim := types.CosineSimilarity(queryVec, entry.embedding); sim > bestSim {
			bestSim = sim
			best = elem
		}
		elem = next
	}

	if best == nil || bestSim < threshold {
		return nil, false
	}

	c.lru.MoveToFront(best)
	entry := best.Value.(*semanticEntry)
	c.logger.Debug("semantic cache hit",
		zap.Float64("similarity", bestSim),
		zap.String("key", entry.key))
	payload := entry.payload
	return &payload, true
}

// Store caches the answer under the query's embedding. Storing a query
// already cached refreshes the payload and createdAt (last-write-wins).
// At capacity the least-recently-used entry is evicted.
func (c *SemanticCache) Store(ctx context.Context, query string, entry Entry) {
	if c.embedder == nil {
		return
	}
	queryVec, err := c.embedder.Embed(ctx, query)
	if err != nil {
		c.logger.Warn("store embedding failed, skipping cache write", zap.Error(err))
		return
	}

	key := types.ContentHash(query)
	stored := &semanticEntry{
		key:       key,
		embedding: queryVec,
		payload:   entry,
		createdAt: c.now(),
		ttl:       c.entryTTL(query),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		elem.Value = stored
		c.lru.MoveToFront(elem)
		return
	}

	c.entries[key] = c.lru.PushFront(stored)
	for c.lru.Len() > c.config.MaxEntries {
		c.removeLocked(c.lru.Back())
	}
}

// Len returns the current entry count.
func (c *SemanticCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (c *SemanticCache) removeLocked(elem *list.Element) {
	entry := elem.Value.(*semanticEntry)
	delete(c.entries, entry.key)
	c.lru.Remove(elem)
}

// similarityThreshold adapts per query: numeric queries demand higher
// precision, long explanatory queries tolerate lower.
func (c *SemanticCache) similarityThreshold(query string) float64 {
	if strings.ContainsAny(query, "0123456789") {
		return 0.98
	}
	if len(strings.Fields(query)) > 10 {
		return 0.93
	}
	return c.config.SimilarityThreshold
}

// entryTTL shortens lifetimes for current-events queries so stale news
// does not get served for an hour.
func (c *SemanticCache) entryTTL(query string) time.Duration {
	if !c.config.AdaptiveTTL {
		return c.config.TTL
	}
	lower := strings.ToLower(query)
	for _, word := range []string{"today", "now", "latest", "current"} {
		if strings.Contains(lower, word) {
			return time.Minute
		}
	}
	return c.config.TTL
}
