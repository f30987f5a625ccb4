package council

import "strings"

// Rate is one pricing rule: Match is compared as a lowercase substring of
// the model id, Rate is the cost per 1000 tokens (prompt + completion
// combined).
type Rate struct {
	Match string  `json:"match" toml:"match"`
	Rate  float64 `json:"rate" toml:"rate"`
}

// Pricing estimates query cost from token usage. Rules are evaluated in
// declaration order, first match wins, so substring ambiguity between
// two rules is deterministic. Models is consulted before Patterns;
// DefaultRate applies when nothing matches.
type Pricing struct {
	Models      []Rate  `json:"models" toml:"models"`
	Patterns    []Rate  `json:"patterns" toml:"patterns"`
	DefaultRate float64 `json:"default_rate" toml:"default_rate"`
}

// DefaultPricing returns the built-in rate table, used when no pricing
// file is configured. Rates are USD per 1000 total tokens.
func DefaultPricing() *Pricing {
	return &Pricing{
		Models: []Rate{
			{"gpt-4o-mini", 0.000375},
			{"gpt-4o", 0.00625},
			{"gpt-4.1-nano", 0.00025},
			{"gpt-4.1-mini", 0.001},
			{"gpt-4.1", 0.005},
			{"o3-mini", 0.00275},
			{"claude-3-5-haiku", 0.0024},
			{"claude-sonnet-4", 0.009},
			{"claude-opus-4", 0.045},
			{"gemini-2.0-flash", 0.00025},
			{"gemini-2.5-flash", 0.000375},
			{"gemini-2.5-pro", 0.005625},
			{"deepseek", 0.0006},
			{"llama-3", 0.0004},
			{"mistral-large", 0.004},
		},
		Patterns: []Rate{
			{"free", 0},
			{"nano", 0.0003},
			{"mini", 0.0005},
			{"turbo", 0.001},
			{"pro", 0.004},
		},
		DefaultRate: 0.002,
	}
}

// Estimate returns the estimated USD cost for totalTokens billed against
// model. Deterministic; no network. Returns 0 for non-positive token
// counts.
func (p *Pricing) Estimate(model string, totalTokens int) float64 {
	if totalTokens <= 0 {
		return 0
	}
	return float64(totalTokens) / 1000 * p.rate(model)
}

// rate resolves the per-1000-token rate for a model id: exact-fragment
// table first, then pattern table, then the default.
func (p *Pricing) rate(model string) float64 {
	id := strings.ToLower(model)
	for _, r := range p.Models {
		if strings.Contains(id, strings.ToLower(r.Match)) {
			return r.Rate
		}
	}
	for _, r := range p.Patterns {
		if strings.Contains(id, strings.ToLower(r.Match)) {
			return r.Rate
		}
	}
	return p.DefaultRate
}
