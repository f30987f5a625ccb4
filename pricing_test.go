package council

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-12
}

func TestEstimate_KnownModel(t *testing.T) {
	p := DefaultPricing()
	// 2000 tokens at 0.000375 per 1k.
	if got := p.Estimate("openai/gpt-4o-mini", 2000); !almostEqual(got, 0.00075) {
		t.Errorf("Estimate = %g, want 0.00075", got)
	}
}

func TestEstimate_OrderSensitiveSubstrings(t *testing.T) {
	p := DefaultPricing()
	// "gpt-4o-mini" contains "gpt-4o"; the more specific rule is declared
	// first and must win.
	mini := p.Estimate("openai/gpt-4o-mini", 1000)
	full := p.Estimate("openai/gpt-4o", 1000)
	if almostEqual(mini, full) {
		t.Errorf("mini (%g) and full (%g) must use different rules", mini, full)
	}
	if !almostEqual(mini, 0.000375) {
		t.Errorf("mini = %g, want 0.000375", mini)
	}
	if !almostEqual(full, 0.00625) {
		t.Errorf("full = %g, want 0.00625", full)
	}
}

func TestEstimate_PatternFallback(t *testing.T) {
	p := DefaultPricing()
	// Unknown model with "mini" in the id hits the pattern table.
	if got := p.Estimate("unknown/something-mini", 1000); !almostEqual(got, 0.0005) {
		t.Errorf("Estimate = %g, want pattern rate 0.0005", got)
	}
	// ":free" variants cost nothing.
	if got := p.Estimate("meta-llama/llama-3.1-8b:free", 5000); got != 0 {
		t.Errorf("Estimate = %g, want 0 for free variant", got)
	}
}

func TestEstimate_DefaultRate(t *testing.T) {
	p := DefaultPricing()
	if got := p.Estimate("vendor/unheard-of-model", 1000); !almostEqual(got, 0.002) {
		t.Errorf("Estimate = %g, want default 0.002", got)
	}
}

func TestEstimate_CaseInsensitive(t *testing.T) {
	p := DefaultPricing()
	lower := p.Estimate("anthropic/claude-opus-4", 1000)
	upper := p.Estimate("Anthropic/Claude-Opus-4", 1000)
	if !almostEqual(lower, upper) {
		t.Errorf("case must not matter: %g vs %g", lower, upper)
	}
}

func TestEstimate_NonPositiveTokens(t *testing.T) {
	p := DefaultPricing()
	if got := p.Estimate("openai/gpt-4o", 0); got != 0 {
		t.Errorf("Estimate(0 tokens) = %g, want 0", got)
	}
	if got := p.Estimate("openai/gpt-4o", -10); got != 0 {
		t.Errorf("Estimate(negative tokens) = %g, want 0", got)
	}
}

func TestEstimate_Deterministic(t *testing.T) {
	p := DefaultPricing()
	first := p.Estimate("deepseek/deepseek-chat", 1234)
	for i := 0; i < 10; i++ {
		if got := p.Estimate("deepseek/deepseek-chat", 1234); got != first {
			t.Fatalf("estimate varied across calls: %g vs %g", got, first)
		}
	}
}

func TestEstimate_CustomTableBeforeBuiltins(t *testing.T) {
	p := &Pricing{
		Models:      []Rate{{Match: "special", Rate: 1.0}},
		Patterns:    []Rate{{Match: "special", Rate: 2.0}},
		DefaultRate: 3.0,
	}
	// Models table is consulted before Patterns.
	if got := p.Estimate("vendor/special-model", 1000); !almostEqual(got, 1.0) {
		t.Errorf("Estimate = %g, want models-table rate 1.0", got)
	}
}
