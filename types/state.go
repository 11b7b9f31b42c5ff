package types

import "time"

// ConfidenceBand buckets a numeric confidence score.
type ConfidenceBand string

const (
	ConfidenceHigh   ConfidenceBand = "HIGH"
	ConfidenceMedium ConfidenceBand = "MEDIUM"
	ConfidenceLow    ConfidenceBand = "LOW"
)

// Band thresholds. Scores ≥ HighThreshold map to HIGH, ≥ MediumThreshold
// to MEDIUM, everything below to LOW.
const (
	HighThreshold   = 0.75
	MediumThreshold = 0.45
)

// BandForScore derives the band for a confidence score in [0,1].
func BandForScore(score float64) ConfidenceBand {
	switch {
	case score >= HighThreshold:
		return ConfidenceHigh
	case score >= MediumThreshold:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// AgenticState is the mutable record threaded through one orchestrator
// invocation. It is owned exclusively by that invocation; nothing is
// shared across concurrent queries.
type AgenticState struct {
	RequestID string
	Query     Query
	Domain    DomainContext

	// Iteration counts completed RETRIEVE→GENERATE→VALIDATE cycles.
	// The orchestrator enforces Iteration ≤ MaxIterations as a hard
	// invariant; it is the only writer of this struct.
	Iteration int

	Sources    []RankedResult
	Answer     string
	Confidence float64
	Band       ConfidenceBand

	// FailureMask records which adapters failed during the last
	// retrieval (bit i set means adapter i contributed nothing).
	FailureMask uint64

	IsComplete bool
	Degraded   bool
	StartedAt  time.Time
}

// AnswerResult is the single value returned to the caller.
type AnswerResult struct {
	Text       string         `json:"text"`
	Sources    []RankedResult `json:"sources"`
	Confidence ConfidenceBand `json:"confidence"`

	// Degraded signals that the result should be presented with a
	// caveat: all sources failed, retries were exhausted, or an
	// upstream service was unavailable.
	Degraded bool   `json:"degraded"`
	Warning  string `json:"warning,omitempty"`
}
