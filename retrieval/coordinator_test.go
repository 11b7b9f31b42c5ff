package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/answerflow/types"
)

// stubAdapter is a controllable SourceAdapter for coordinator tests.
type stubAdapter struct {
	id      string
	results []types.SourceResult
	err     error
	delay   time.Duration
	calls   int
}

func (s *stubAdapter) ID() string { return s.id }

func (s *stubAdapter) Retrieve(ctx context.Context, req Request) ([]types.SourceResult, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

func result(content string, score float64) types.SourceResult {
	return types.SourceResult{Content: content, RelevanceScore: score}
}

func TestCoordinatorCombinesAllAdapters(t *testing.T) {
	t.Parallel()

	primary := &stubAdapter{id: AdapterDocumentStore, results: []types.SourceResult{result("doc", 0.9)}}
	vector := &stubAdapter{id: AdapterVectorIndex, results: []types.SourceResult{result("vec", 0.8)}}
	web := &stubAdapter{id: AdapterWebSearch, results: []types.SourceResult{result("web", 0.7)}}

	c := NewCoordinator([]SourceAdapter{primary, vector, web}, DefaultCoordinatorConfig(), zap.NewNop())
	results, mask := c.Retrieve(context.Background(), Request{Query: types.Query{Text: "q"}, TopK: 5})

	if mask != 0 {
		t.Fatalf("expected clean mask, got %b", mask)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	// Precedence order: primary before vector before web.
	if results[0].Content != "doc" || results[2].Content != "web" {
		t.Fatalf("results out of precedence order: %+v", results)
	}
	if results[0].SourceID != AdapterDocumentStore {
		t.Fatalf("source not stamped: %q", results[0].SourceID)
	}
	if results[0].RetrievedAt.IsZero() {
		t.Fatal("retrievedAt not stamped")
	}
}

func TestCoordinatorWebAlwaysInvoked(t *testing.T) {
	t.Parallel()

	primary := &stubAdapter{id: AdapterDocumentStore, results: []types.SourceResult{result("doc", 0.9)}}
	web := &stubAdapter{id: AdapterWebSearch, results: []types.SourceResult{result("web", 0.5)}}

	c := NewCoordinator([]SourceAdapter{primary, web}, DefaultCoordinatorConfig(), zap.NewNop())
	c.Retrieve(context.Background(), Request{Query: types.Query{Text: "q"}, TopK: 5})

	if web.calls != 1 {
		t.Fatal("web adapter must run even when the primary succeeds")
	}
}

func TestCoordinatorPartialFailureTolerance(t *testing.T) {
	t.Parallel()

	failing := &stubAdapter{id: AdapterDocumentStore, err: errors.New("down")}
	alsoFailing := &stubAdapter{id: AdapterVectorIndex, err: errors.New("down")}
	surviving := &stubAdapter{id: AdapterWebSearch, results: []types.SourceResult{result("web", 0.5)}}

	c := NewCoordinator([]SourceAdapter{failing, alsoFailing, surviving}, DefaultCoordinatorConfig(), zap.NewNop())
	results, mask := c.Retrieve(context.Background(), Request{Query: types.Query{Text: "q"}, TopK: 5})

	if len(results) != 1 || results[0].Content != "web" {
		t.Fatalf("expected the surviving adapter's results, got %+v", results)
	}
	if mask != 0b011 {
		t.Fatalf("expected mask 0b011, got %b", mask)
	}
	if c.AllFailed(mask) {
		t.Fatal("one adapter survived")
	}
}

func TestCoordinatorAllFailedReturnsEmptyNotError(t *testing.T) {
	t.Parallel()

	adapters := []SourceAdapter{
		&stubAdapter{id: AdapterDocumentStore, err: errors.New("down")},
		&stubAdapter{id: AdapterVectorIndex, err: errors.New("down")},
		&stubAdapter{id: AdapterWebSearch, err: errors.New("down")},
	}
	c := NewCoordinator(adapters, DefaultCoordinatorConfig(), zap.NewNop())
	results, mask := c.Retrieve(context.Background(), Request{Query: types.Query{Text: "q"}, TopK: 5})

	if len(results) != 0 {
		t.Fatalf("expected empty results, got %d", len(results))
	}
	if !c.AllFailed(mask) {
		t.Fatalf("expected full failure mask, got %b", mask)
	}
}

func TestCoordinatorAbandonsSlowAdapter(t *testing.T) {
	t.Parallel()

	cfg := CoordinatorConfig{AdapterTimeout: 20 * time.Millisecond, WebSearchTimeout: 20 * time.Millisecond}
	slow := &stubAdapter{id: AdapterDocumentStore, delay: 500 * time.Millisecond, results: []types.SourceResult{result("late", 0.9)}}
	fast := &stubAdapter{id: AdapterWebSearch, results: []types.SourceResult{result("web", 0.5)}}

	c := NewCoordinator([]SourceAdapter{slow, fast}, cfg, zap.NewNop())
	start := time.Now()
	results, mask := c.Retrieve(context.Background(), Request{Query: types.Query{Text: "q"}, TopK: 5})

	if time.Since(start) > 300*time.Millisecond {
		t.Fatal("retrieval waited for the abandoned adapter")
	}
	if len(results) != 1 || results[0].Content != "web" {
		t.Fatalf("expected only the fast adapter's results, got %+v", results)
	}
	if mask&1 == 0 {
		t.Fatal("slow adapter should be marked failed")
	}
}

func TestCoordinatorIdempotent(t *testing.T) {
	t.Parallel()

	primary := &stubAdapter{id: AdapterDocumentStore, results: []types.SourceResult{result("a", 0.9), result("b", 0.8)}}
	c := NewCoordinator([]SourceAdapter{primary}, DefaultCoordinatorConfig(), zap.NewNop())

	req := Request{Query: types.Query{Text: "stable"}, TopK: 5}
	first, _ := c.Retrieve(context.Background(), req)
	second, _ := c.Retrieve(context.Background(), req)

	if len(first) != len(second) {
		t.Fatalf("result counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Content != second[i].Content {
			t.Fatalf("result order unstable at %d", i)
		}
	}
}
