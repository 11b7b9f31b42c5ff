// Package answer builds grounded prompts and invokes the LLM completion
// service to generate an answer from ranked sources.
package answer

import (
	"fmt"
	"strings"

	"github.com/BaSui01/answerflow/types"
)

// PromptConfig bounds the generated prompt.
type PromptConfig struct {
	// ContextBudget caps the total tokens spent on context blocks.
	// Blocks past the budget are dropped, lowest rank first dropped last
	// since blocks are added in rank order.
	ContextBudget int `json:"context_budget"`
	// MaxSnippet truncates a single source's content inside its block.
	MaxSnippet int `json:"max_snippet"`
}

// DefaultPromptConfig returns production defaults.
func DefaultPromptConfig() PromptConfig {
	return PromptConfig{
		ContextBudget: 3000,
		MaxSnippet:    500,
	}
}

// noContextMarker tells the model there is nothing to cite so it does not
// fabricate citations.
const noContextMarker = "No external context is available for this question. " +
	"Answer from general knowledge only, state clearly that no sources were retrieved, " +
	"and do not fabricate citations."

const groundedInstructions = "Answer the question using ONLY the numbered context blocks below. " +
	"Cite sources inline as [1], [2] immediately after each claim. " +
	"If the context does not contain the answer, say so plainly."

// PromptBuilder assembles completion messages from domain context, ranked
// sources, and the query.
type PromptBuilder struct {
	config  PromptConfig
	counter TokenCounter
}

// NewPromptBuilder creates a builder. A nil counter uses the estimate.
func NewPromptBuilder(config PromptConfig, counter TokenCounter) *PromptBuilder {
	if counter == nil {
		counter = EstimateCounter{}
	}
	if config.ContextBudget <= 0 {
		config.ContextBudget = DefaultPromptConfig().ContextBudget
	}
	if config.MaxSnippet <= 0 {
		config.MaxSnippet = DefaultPromptConfig().MaxSnippet
	}
	return &PromptBuilder{config: config, counter: counter}
}

// Build produces the message list for one generation call. Sources are
// rendered as labeled context blocks in rank order; an empty source list
// switches to the explicit no-context form.
func (b *PromptBuilder) Build(query types.Query, sources []types.RankedResult, domain types.DomainContext) []types.Message {
	system := domain.SystemPrompt
	if system == "" {
		system = "You are a helpful, precise assistant."
	}

	var user strings.Builder
	if len(sources) == 0 {
		user.WriteString(noContextMarker)
		user.WriteString("\n\n")
	} else {
		user.WriteString(groundedInstructions)
		user.WriteString("\n\nContext:\n")
		budget := b.config.ContextBudget
		for i, src := range sources {
			block := b.contextBlock(i+1, &src)
			cost := b.counter.CountTokens(block)
			if cost > budget {
				break
			}
			budget -= cost
			user.WriteString(block)
		}
	}

	user.WriteString("Question: ")
	user.WriteString(query.Text)

	messages := make([]types.Message, 0, len(query.ConversationContext)+2)
	messages = append(messages, types.Message{Role: types.RoleSystem, Content: system})
	messages = append(messages, query.ConversationContext...)
	messages = append(messages, types.Message{Role: types.RoleUser, Content: user.String()})
	return messages
}

// BuildConversational produces the message list for the retrieval-free
// short-circuit path: just a conversational system prompt, history, and
// the query. No context blocks and no citation instructions.
func (b *PromptBuilder) BuildConversational(query types.Query, domain types.DomainContext) []types.Message {
	system := "You are a friendly assistant. Reply conversationally and briefly."
	if domain.SystemPrompt != "" {
		system = domain.SystemPrompt + "\nThis is a conversational message; reply briefly without citing sources."
	}

	messages := make([]types.Message, 0, len(query.ConversationContext)+2)
	messages = append(messages, types.Message{Role: types.RoleSystem, Content: system})
	messages = append(messages, query.ConversationContext...)
	messages = append(messages, types.Message{Role: types.RoleUser, Content: query.Text})
	return messages
}

func (b *PromptBuilder) contextBlock(label int, src *types.RankedResult) string {
	content := src.Content
	if len(content) > b.config.MaxSnippet {
		content = content[:b.config.MaxSnippet]
	}
	title := src.Title
	if title != "" {
		title = " " + title + ":"
	}
	return fmt.Sprintf("[%d]%s %s\n", label, title, content)
}
