package orchestrator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts the pipeline's observable events. Registered against an
// injected registerer so tests can use an isolated registry.
type Metrics struct {
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	retrievals      prometheus.Counter
	adapterFailures prometheus.Counter
	retries         prometheus.Counter
	degraded        prometheus.Counter
	answers         *prometheus.CounterVec
	queryDuration   prometheus.Histogram
}

// NewMetrics creates and registers the metric set. A nil registerer uses
// the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "answerflow",
			Name:      "cache_hits_total",
			Help:      "Queries answered from the response cache.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "answerflow",
			Name:      "cache_misses_total",
			Help:      "Cache lookups that fell through to the pipeline.",
		}),
		retrievals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "answerflow",
			Name:      "retrievals_total",
			Help:      "Retrieval fan-outs issued, including retry cycles.",
		}),
		adapterFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "answerflow",
			Name:      "adapter_failures_total",
			Help:      "Source adapter calls that timed out or errored.",
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "answerflow",
			Name:      "retries_total",
			Help:      "Low-confidence retry cycles executed.",
		}),
		degraded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "answerflow",
			Name:      "degraded_answers_total",
			Help:      "Answers returned with the degraded flag set.",
		}),
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "answerflow",
			Name:      "answers_total",
			Help:      "Answers returned, by confidence band.",
		}, []string{"band"}),
		queryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "answerflow",
			Name:      "query_duration_seconds",
			Help:      "End-to-end query latency.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
	reg.MustRegister(m.cacheHits, m.cacheMisses, m.retrievals, m.adapterFailures,
		m.retries, m.degraded, m.answers, m.queryDuration)
	return m
}

func (m *Metrics) observeQuery(start time.Time) {
	if m == nil {
		return
	}
	m.queryDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) cacheHit(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

func (m *Metrics) retrieval(failures int) {
	if m == nil {
		return
	}
	m.retrievals.Inc()
	m.adapterFailures.Add(float64(failures))
}

func (m *Metrics) retry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

func (m *Metrics) answer(band string, isDegraded bool) {
	if m == nil {
		return
	}
	m.answers.WithLabelValues(band).Inc()
	if isDegraded {
		m.degraded.Inc()
	}
}
