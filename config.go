package council

import "time"

// Built-in defaults applied when neither the call site nor the council
// config specifies a value.
const (
	DefaultTemperature = 0.7
	DefaultRounds      = 1
	MaxRounds          = 10

	// DefaultSynthesizerModel is the fixed low-cost model used when the
	// council does not designate a synthesizer.
	DefaultSynthesizerModel = "openai/gpt-4o-mini"
)

// Defaults is the QueryOptions-shaped default block of a council, plus
// the session-level switches that ride along with it.
type Defaults struct {
	Single        bool    `json:"single,omitempty"`          // enable synthesis
	Temperature   float64 `json:"temperature,omitempty"`     // 0..2; 0 = use built-in
	MaxTokens     int     `json:"max_tokens,omitempty"`      // 0 = provider default
	FirstN        int     `json:"first_n,omitempty"`         // 0 = disabled
	Web           bool    `json:"web,omitempty"`             // enable web search
	WebMaxResults int     `json:"web_max_results,omitempty"` // 1..50
	WebContext    string  `json:"web_context,omitempty"`     // "low", "medium", "high"
	TimeLimit     float64 `json:"time_limit,omitempty"`      // seconds, 0.1..300; 0 = disabled
}

// CouncilConfig is the validated configuration the orchestrator consumes.
// Validation (range checks, non-empty model list) is the config
// collaborator's responsibility; see internal/config.
type CouncilConfig struct {
	Models      []ModelRef `json:"models"`
	System      string     `json:"system,omitempty"`
	Synthesizer *ModelRef  `json:"synthesizer,omitempty"`
	Rounds      int        `json:"rounds,omitempty"` // 1..10; 0 = default 1
	Defaults    Defaults   `json:"defaults,omitempty"`
}

// rounds returns the effective round count, clamped to [1, MaxRounds].
func (c CouncilConfig) rounds() int {
	switch {
	case c.Rounds <= 0:
		return DefaultRounds
	case c.Rounds > MaxRounds:
		return MaxRounds
	default:
		return c.Rounds
	}
}

// synthesizer returns the designated synthesizer, falling back to the
// fixed default model.
func (c CouncilConfig) synthesizer() ModelRef {
	if c.Synthesizer != nil {
		return *c.Synthesizer
	}
	return Model(DefaultSynthesizerModel)
}

// timeLimit returns the per-round latency budget, or 0 when disabled.
func (c CouncilConfig) timeLimit() time.Duration {
	if c.Defaults.TimeLimit <= 0 {
		return 0
	}
	return time.Duration(c.Defaults.TimeLimit * float64(time.Second))
}

// effectiveOptions expands the council defaults into QueryOptions,
// then overlays any explicit call-site options. Precedence: explicit
// call site > council defaults > built-ins.
func (c CouncilConfig) effectiveOptions(explicit *QueryOptions) QueryOptions {
	opts := QueryOptions{
		Temperature: DefaultTemperature,
	}
	if c.Defaults.Temperature > 0 {
		opts.Temperature = c.Defaults.Temperature
	}
	if c.Defaults.MaxTokens > 0 {
		opts.MaxTokens = c.Defaults.MaxTokens
	}
	if c.Defaults.FirstN > 0 {
		opts.FirstN = c.Defaults.FirstN
	}
	if c.Defaults.Web || c.Defaults.WebMaxResults > 0 || c.Defaults.WebContext != "" {
		opts.WebSearch = &WebSearch{
			Enabled:       true,
			MaxResults:    c.Defaults.WebMaxResults,
			SearchContext: c.Defaults.WebContext,
		}
	}

	if explicit != nil {
		if explicit.Temperature > 0 {
			opts.Temperature = explicit.Temperature
		}
		if explicit.MaxTokens > 0 {
			opts.MaxTokens = explicit.MaxTokens
		}
		if explicit.FirstN > 0 {
			opts.FirstN = explicit.FirstN
		}
		if explicit.WebSearch != nil {
			opts.WebSearch = explicit.WebSearch
		}
	}

	// First-N at or above the council size degenerates to a plain fan-out.
	if opts.FirstN >= len(c.Models) {
		opts.FirstN = 0
	}
	return opts
}
