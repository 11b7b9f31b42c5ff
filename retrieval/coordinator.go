package retrieval

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/answerflow/types"
)

// CoordinatorConfig bounds the fan-out.
type CoordinatorConfig struct {
	// AdapterTimeout applies to every adapter unless overridden.
	AdapterTimeout time.Duration `json:"adapter_timeout"`
	// WebSearchTimeout overrides AdapterTimeout for the web adapter,
	// whose upstream is slower.
	WebSearchTimeout time.Duration `json:"web_search_timeout"`
}

// DefaultCoordinatorConfig returns production defaults.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		AdapterTimeout:   3 * time.Second,
		WebSearchTimeout: 5 * time.Second,
	}
}

// Coordinator fans one query out to all configured adapters concurrently
// and joins under a bounded wait. Adapter order fixes precedence: index 0
// is the primary store; the web adapter is always invoked regardless of
// the primary's outcome, to preserve freshness.
type Coordinator struct {
	adapters []SourceAdapter
	config   CoordinatorConfig
	logger   *zap.Logger
}

// NewCoordinator creates a Coordinator over a fixed adapter list.
func NewCoordinator(adapters []SourceAdapter, config CoordinatorConfig, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		adapters: adapters,
		config:   config,
		logger:   logger.With(zap.String("component", "retrieval")),
	}
}

// Adapters returns the configured adapter list in precedence order.
func (c *Coordinator) Adapters() []SourceAdapter {
	return c.adapters
}

// Retrieve issues all adapter calls concurrently and collects partial
// results. A timed-out or erroring adapter contributes zero results and
// sets its bit in the returned failure mask; retrieval itself never
// errors. All adapters failing yields an empty result set and a full
// mask; the caller must still attempt generation.
func (c *Coordinator) Retrieve(ctx context.Context, req Request) ([]types.SourceResult, uint64) {
	start := time.Now()

	slots := make([][]types.SourceResult, len(c.adapters))
	var mu sync.Mutex
	var failureMask uint64

	g, gctx := errgroup.WithContext(ctx)
	for i, adapter := range c.adapters {
		i, adapter := i, adapter
		g.Go(func() error {
			timeout := c.config.AdapterTimeout
			if adapter.ID() == AdapterWebSearch && c.config.WebSearchTimeout > 0 {
				timeout = c.config.WebSearchTimeout
			}
			actx, cancel := context.WithTimeout(gctx, timeout)
			defer cancel()

			results, err := adapter.Retrieve(actx, req)
			if err != nil {
				c.logger.Warn("adapter failed",
					zap.String("adapter", adapter.ID()),
					zap.Error(err))
				mu.Lock()
				failureMask |= 1 << uint(i)
				mu.Unlock()
				return nil
			}

			// Stamp the source and retrieval time; adapters may omit both.
			now := time.Now()
			for j := range results {
				if results[j].SourceID == "" {
					results[j].SourceID = adapter.ID()
				}
				if results[j].RetrievedAt.IsZero() {
					results[j].RetrievedAt = now
				}
			}
			slots[i] = results
			return nil
		})
	}
	_ = g.Wait() // goroutines never return errors; failures land in the mask

	// Concatenate in adapter precedence order so downstream tie-breaking
	// stays stable: primary results before web results.
	var combined []types.SourceResult
	for _, results := range slots {
		combined = append(combined, results...)
	}

	c.logger.Info("retrieval completed",
		zap.Int("adapters", len(c.adapters)),
		zap.Int("results", len(combined)),
		zap.Uint64("failure_mask", failureMask),
		zap.Duration("duration", time.Since(start)))

	return combined, failureMask
}

// AllFailed reports whether the mask covers every configured adapter.
func (c *Coordinator) AllFailed(mask uint64) bool {
	if len(c.adapters) == 0 {
		return true
	}
	return mask == (uint64(1)<<uint(len(c.adapters)))-1
}
