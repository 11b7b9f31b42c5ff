package domain

import (
	"testing"

	"github.com/BaSui01/answerflow/types"
)

func TestContextExplicitHintWins(t *testing.T) {
	t.Parallel()

	p := NewProvider(nil)
	ctx := p.Context(types.Query{Text: "what is a contract", DomainHint: "medical"})
	if ctx.DomainID != "medical" {
		t.Fatalf("hint must override detection, got %q", ctx.DomainID)
	}
	if ctx.Disclaimer == "" {
		t.Fatal("medical profile must carry a disclaimer")
	}
}

func TestContextDetectsFromKeywords(t *testing.T) {
	t.Parallel()

	p := NewProvider(nil)

	cases := map[string]string{
		"what are aspirin contraindications": "medical",
		"is this contract clause enforceable in court": "legal",
		"how do go channels work": GeneralID,
	}
	for query, want := range cases {
		got := p.Context(types.Query{Text: query})
		if got.DomainID != want {
			t.Fatalf("query %q: got domain %q want %q", query, got.DomainID, want)
		}
	}
}

func TestContextUnknownHintFallsBackToDetection(t *testing.T) {
	t.Parallel()

	p := NewProvider(nil)
	ctx := p.Context(types.Query{Text: "aspirin dosage for adults", DomainHint: "astrology"})
	if ctx.DomainID != "medical" {
		t.Fatalf("unknown hint must fall back to detection, got %q", ctx.DomainID)
	}
}

func TestRegisterReplacesProfile(t *testing.T) {
	t.Parallel()

	p := NewProvider(nil)
	p.Register(types.DomainContext{
		DomainID:     "finance",
		SystemPrompt: "You are a financial research assistant.",
	}, "stock", "dividend", "portfolio")

	ctx := p.Context(types.Query{Text: "which stock pays the best dividend"})
	if ctx.DomainID != "finance" {
		t.Fatalf("registered profile not detected, got %q", ctx.DomainID)
	}
}

func TestContextGeneralHasNoDisclaimer(t *testing.T) {
	t.Parallel()

	p := NewProvider(nil)
	ctx := p.Context(types.Query{Text: "hello there"})
	if ctx.DomainID != GeneralID || ctx.Disclaimer != "" {
		t.Fatalf("general profile wrong: %+v", ctx)
	}
}
