package answer

import (
	"strings"
	"testing"

	"github.com/BaSui01/answerflow/types"
)

func ranked(title, content string, rank int) types.RankedResult {
	return types.RankedResult{
		SourceResult: types.SourceResult{Title: title, Content: content},
		Rank:         rank,
	}
}

func TestBuildWithSources(t *testing.T) {
	t.Parallel()

	b := NewPromptBuilder(DefaultPromptConfig(), nil)
	msgs := b.Build(
		types.Query{Text: "what is raft"},
		[]types.RankedResult{
			ranked("Raft paper", "raft is a consensus algorithm", 1),
			ranked("Etcd docs", "etcd uses raft for replication", 2),
		},
		types.DomainContext{SystemPrompt: "You answer infra questions."},
	)

	if len(msgs) != 2 {
		t.Fatalf("expected system+user, got %d messages", len(msgs))
	}
	if msgs[0].Role != types.RoleSystem || msgs[0].Content != "You answer infra questions." {
		t.Fatalf("bad system message: %+v", msgs[0])
	}
	user := msgs[1].Content
	if !strings.Contains(user, "[1] Raft paper:") || !strings.Contains(user, "[2] Etcd docs:") {
		t.Fatalf("context blocks missing or unlabeled:\n%s", user)
	}
	if strings.Index(user, "[1]") > strings.Index(user, "[2]") {
		t.Fatal("context blocks out of rank order")
	}
	if !strings.HasSuffix(user, "Question: what is raft") {
		t.Fatalf("question not last:\n%s", user)
	}
	if strings.Contains(user, "No external context") {
		t.Fatal("no-context marker leaked into a grounded prompt")
	}
}

func TestBuildEmptySourcesUsesNoContextMarker(t *testing.T) {
	t.Parallel()

	b := NewPromptBuilder(DefaultPromptConfig(), nil)
	msgs := b.Build(types.Query{Text: "anything"}, nil, types.DomainContext{})

	user := msgs[len(msgs)-1].Content
	if !strings.Contains(user, "No external context") {
		t.Fatal("expected the no-context marker")
	}
	if strings.Contains(user, "[1]") {
		t.Fatal("no context blocks should appear")
	}
}

func TestBuildRespectsContextBudget(t *testing.T) {
	t.Parallel()

	// Budget of 50 tokens = 200 chars under the len/4 estimate. Each block
	// below is ~120 chars, so only the first fits.
	cfg := PromptConfig{ContextBudget: 50, MaxSnippet: 500}
	b := NewPromptBuilder(cfg, EstimateCounter{})

	big := strings.Repeat("word ", 22)
	msgs := b.Build(types.Query{Text: "q"}, []types.RankedResult{
		ranked("First", big, 1),
		ranked("Second", big, 2),
	}, types.DomainContext{})

	user := msgs[len(msgs)-1].Content
	if !strings.Contains(user, "[1] First:") {
		t.Fatal("first block must fit the budget")
	}
	if strings.Contains(user, "[2] Second:") {
		t.Fatal("second block must be dropped over budget")
	}
}

func TestBuildTruncatesLongSnippets(t *testing.T) {
	t.Parallel()

	cfg := PromptConfig{ContextBudget: 3000, MaxSnippet: 10}
	b := NewPromptBuilder(cfg, nil)

	msgs := b.Build(types.Query{Text: "q"}, []types.RankedResult{
		ranked("", "0123456789overflow", 1),
	}, types.DomainContext{})

	user := msgs[len(msgs)-1].Content
	if strings.Contains(user, "overflow") {
		t.Fatal("snippet not truncated to MaxSnippet")
	}
	if !strings.Contains(user, "0123456789") {
		t.Fatal("truncated snippet missing")
	}
}

func TestBuildIncludesConversationHistory(t *testing.T) {
	t.Parallel()

	b := NewPromptBuilder(DefaultPromptConfig(), nil)
	msgs := b.Build(types.Query{
		Text: "and after that?",
		ConversationContext: []types.Message{
			{Role: types.RoleUser, Content: "what is raft"},
			{Role: types.RoleAssistant, Content: "a consensus algorithm"},
		},
	}, nil, types.DomainContext{})

	if len(msgs) != 4 {
		t.Fatalf("expected system+2 history+user, got %d", len(msgs))
	}
	if msgs[1].Content != "what is raft" || msgs[2].Content != "a consensus algorithm" {
		t.Fatal("history not preserved in order")
	}
}

func TestBuildConversationalHasNoContextMachinery(t *testing.T) {
	t.Parallel()

	b := NewPromptBuilder(DefaultPromptConfig(), nil)
	msgs := b.BuildConversational(types.Query{Text: "thanks!"}, types.DomainContext{})

	if len(msgs) != 2 {
		t.Fatalf("expected system+user, got %d", len(msgs))
	}
	user := msgs[1].Content
	if user != "thanks!" {
		t.Fatalf("conversational user message must be the raw text, got %q", user)
	}
	for _, m := range msgs {
		if strings.Contains(m.Content, "No external context") || strings.Contains(m.Content, "numbered context blocks") {
			t.Fatal("conversational prompt must not carry grounding instructions")
		}
	}
}

func TestEstimateCounter(t *testing.T) {
	t.Parallel()

	if got := (EstimateCounter{}).CountTokens("12345678"); got != 2 {
		t.Fatalf("expected 2 tokens for 8 chars, got %d", got)
	}
}
