package types

import "time"

// Query is the immutable inbound question. Created once per request and
// never mutated; the orchestrator copies it into AgenticState.
type Query struct {
	Text string `json:"text"`

	// DomainHint optionally names the domain (medical, legal, ...) the
	// caller already resolved. Empty means keyword detection applies.
	DomainHint string `json:"domain_hint,omitempty"`

	// Conversational is set by the external intent classifier. When true
	// the orchestrator skips retrieval entirely.
	Conversational bool `json:"conversational,omitempty"`

	// ConversationContext carries prior turns for conversational replies.
	ConversationContext []Message `json:"conversation_context,omitempty"`
}

// Role identifies a chat message author.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single chat message sent to the LLM provider.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// DomainContext carries the per-domain prompt material resolved once per
// query and threaded through the state machine as a value.
type DomainContext struct {
	DomainID     string `json:"domain_id"`
	SystemPrompt string `json:"system_prompt"`
	Disclaimer   string `json:"disclaimer,omitempty"`
}

// SourceResult is one document returned by a retrieval adapter.
type SourceResult struct {
	SourceID       string    `json:"source_id"`
	Title          string    `json:"title,omitempty"`
	URL            string    `json:"url,omitempty"`
	Content        string    `json:"content"`
	RelevanceScore float64   `json:"relevance_score"`
	RetrievedAt    time.Time `json:"retrieved_at"`
}

// RankedResult is a SourceResult after merge, dedup, and rescoring.
type RankedResult struct {
	SourceResult

	FinalScore float64 `json:"final_score"`
	Rank       int     `json:"rank"`
}

// IdentityKey returns the dedup key for a result: the normalized URL when
// present, otherwise a hash of the content. Two results with the same key
// are the same document.
func (r *SourceResult) IdentityKey() string {
	if r.URL != "" {
		return NormalizeURL(r.URL)
	}
	return ContentHash(r.Content)
}
