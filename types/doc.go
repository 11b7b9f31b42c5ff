// Package types defines the core value types shared across answerflow:
// queries, retrieval results, orchestration state, confidence bands, and
// the structured error taxonomy.
package types
