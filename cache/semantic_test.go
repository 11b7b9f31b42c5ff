package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/BaSui01/answerflow/testutil/mocks"
	"github.com/BaSui01/answerflow/types"
)

func newTestCache(embedder *mocks.Embedder) (*SemanticCache, *time.Time) {
	cfg := DefaultConfig()
	cfg.AdaptiveTTL = false
	c := NewSemanticCache(cfg, embedder, nil)
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }
	return c, &clock
}

// Store followed immediately by Lookup of the same query always hits.
func TestCacheIdempotent(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache(mocks.NewEmbedder())
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		query := fmt.Sprintf("question number %d about caching", i)
		want := Entry{Answer: fmt.Sprintf("answer %d", i), Confidence: 0.9}
		c.Store(ctx, query, want)

		got, ok := c.Lookup(ctx, query)
		if !ok {
			t.Fatalf("store-then-lookup missed for %q", query)
		}
		if got.Answer != want.Answer {
			t.Fatalf("wrong payload: got %q want %q", got.Answer, want.Answer)
		}
	}
}

func TestCacheParaphraseHit(t *testing.T) {
	t.Parallel()

	embedder := mocks.NewEmbedder()
	// Two paraphrases with cosine similarity ~0.9992, above 0.95.
	embedder.Pin("what are aspirin contraindications", []float64{1, 0.04, 0})
	embedder.Pin("when should aspirin be avoided", []float64{1, 0, 0})

	c, _ := newTestCache(embedder)
	ctx := context.Background()

	c.Store(ctx, "what are aspirin contraindications", Entry{Answer: "bleeding disorders"})
	got, ok := c.Lookup(ctx, "when should aspirin be avoided")
	if !ok {
		t.Fatal("paraphrase above threshold must hit")
	}
	if got.Answer != "bleeding disorders" {
		t.Fatalf("wrong payload %q", got.Answer)
	}
}

func TestCacheDissimilarQueryMisses(t *testing.T) {
	t.Parallel()

	embedder := mocks.NewEmbedder()
	embedder.Pin("aspirin dosage", []float64{1, 0, 0})
	embedder.Pin("kafka partitions", []float64{0, 1, 0})

	c, _ := newTestCache(embedder)
	ctx := context.Background()

	c.Store(ctx, "aspirin dosage", Entry{Answer: "ask a doctor"})
	if _, ok := c.Lookup(ctx, "kafka partitions"); ok {
		t.Fatal("orthogonal query must miss")
	}
}

func TestCacheTTLExpiry(t *testing.T) {
	t.Parallel()

	c, clock := newTestCache(mocks.NewEmbedder())
	ctx := context.Background()

	c.Store(ctx, "what is raft", Entry{Answer: "consensus"})
	if _, ok := c.Lookup(ctx, "what is raft"); !ok {
		t.Fatal("fresh entry must hit")
	}

	*clock = clock.Add(2 * time.Hour)
	if _, ok := c.Lookup(ctx, "what is raft"); ok {
		t.Fatal("expired entry must miss")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry not evicted lazily, len=%d", c.Len())
	}
}

func TestCacheAdaptiveTTLForCurrentEvents(t *testing.T) {
	t.Parallel()

	embedder := mocks.NewEmbedder()
	embedder.Pin("what is the latest release", []float64{1, 0, 0})
	embedder.Pin("what is a release", []float64{0, 1, 0})

	c := NewSemanticCache(DefaultConfig(), embedder, nil)
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }
	ctx := context.Background()

	c.Store(ctx, "what is the latest release", Entry{Answer: "v2"})
	c.Store(ctx, "what is a release", Entry{Answer: "a version"})

	clock = clock.Add(5 * time.Minute)
	if _, ok := c.Lookup(ctx, "what is the latest release"); ok {
		t.Fatal("current-events entry must expire after a minute")
	}
	if _, ok := c.Lookup(ctx, "what is a release"); !ok {
		t.Fatal("ordinary entry keeps the default TTL")
	}
}

func TestCacheLastWriteWins(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache(mocks.NewEmbedder())
	ctx := context.Background()

	c.Store(ctx, "what is raft", Entry{Answer: "old"})
	c.Store(ctx, "what is raft", Entry{Answer: "new"})

	got, ok := c.Lookup(ctx, "what is raft")
	if !ok || got.Answer != "new" {
		t.Fatalf("refresh must replace the payload, got %+v ok=%v", got, ok)
	}
	if c.Len() != 1 {
		t.Fatalf("refresh must not duplicate the entry, len=%d", c.Len())
	}
}

func TestCacheLRUEviction(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.MaxEntries = 3
	cfg.AdaptiveTTL = false
	c := NewSemanticCache(cfg, mocks.NewEmbedder(), nil)
	ctx := context.Background()

	c.Store(ctx, "q1", Entry{Answer: "a1"})
	c.Store(ctx, "q2", Entry{Answer: "a2"})
	c.Store(ctx, "q3", Entry{Answer: "a3"})

	// Touch q1 so q2 becomes least recently used.
	if _, ok := c.Lookup(ctx, "q1"); !ok {
		t.Fatal("q1 must hit")
	}
	c.Store(ctx, "q4", Entry{Answer: "a4"})

	if c.Len() != 3 {
		t.Fatalf("capacity exceeded, len=%d", c.Len())
	}
	if _, ok := c.Lookup(ctx, "q2"); ok {
		t.Fatal("least recently used entry must be evicted")
	}
	for _, q := range []string{"q1", "q3", "q4"} {
		if _, ok := c.Lookup(ctx, q); !ok {
			t.Fatalf("%s must survive eviction", q)
		}
	}
}

func TestCacheCorruptedEntryEvictedAsMiss(t *testing.T) {
	t.Parallel()

	embedder := mocks.NewEmbedder()
	embedder.Pin("what is raft", []float64{1, 0, 0, 0, 0})

	c, _ := newTestCache(embedder)
	ctx := context.Background()
	c.Store(ctx, "what is raft", Entry{Answer: "consensus"})

	// The embedding model changed dimensionality under us: stored vectors
	// no longer match fresh ones.
	embedder.Pin("what is raft", []float64{1, 0, 0})
	if _, ok := c.Lookup(ctx, "what is raft"); ok {
		t.Fatal("dimension mismatch must be a miss")
	}
	if c.Len() != 0 {
		t.Fatalf("corrupted entry not evicted, len=%d", c.Len())
	}
}

func TestCacheEmbeddingFailureIsMissNotError(t *testing.T) {
	t.Parallel()

	embedder := mocks.NewEmbedder()
	c, _ := newTestCache(embedder)
	ctx := context.Background()

	c.Store(ctx, "what is raft", Entry{Answer: "consensus"})

	embedder.SetError(types.NewError(types.ErrUpstreamTimeout, "embedding down"))
	if _, ok := c.Lookup(ctx, "what is raft"); ok {
		t.Fatal("embedding failure must degrade to a miss")
	}
}

func TestCacheNumericQueriesNeedHigherSimilarity(t *testing.T) {
	t.Parallel()

	embedder := mocks.NewEmbedder()
	// Similarity ~0.962: above the default 0.95, below the numeric 0.98.
	embedder.Pin("dose of aspirin for adults in mg 500", []float64{1, 0.28, 0})
	embedder.Pin("dose of aspirin for adults in mg 100", []float64{1, 0, 0})

	c, _ := newTestCache(embedder)
	ctx := context.Background()

	c.Store(ctx, "dose of aspirin for adults in mg 500", Entry{Answer: "500mg"})
	if _, ok := c.Lookup(ctx, "dose of aspirin for adults in mg 100"); ok {
		t.Fatal("numeric queries must not match at the relaxed threshold")
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache(mocks.NewEmbedder())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				query := fmt.Sprintf("worker %d question %d", n, j%5)
				c.Store(ctx, query, Entry{Answer: "a"})
				c.Lookup(ctx, query)
			}
		}(i)
	}
	wg.Wait()
}
