// Package config loads and validates council configuration from TOML.
//
// The file declares named councils, an optional default council, an
// optional pricing table, and the observer switch. The API key is never
// read from the file; it comes from the OPENROUTER_API_KEY environment
// variable.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	council "github.com/nevindra/council"
)

// EnvAPIKey is the environment variable holding the gateway bearer key.
const EnvAPIKey = "OPENROUTER_API_KEY"

// File is the root of the TOML document.
type File struct {
	DefaultCouncil string             `toml:"default_council"`
	Councils       map[string]Council `toml:"councils"`
	Pricing        *council.Pricing   `toml:"pricing"`
	Observer       Observer           `toml:"observer"`
}

// Observer enables OTEL instrumentation of the backend.
type Observer struct {
	Enabled bool `toml:"enabled"`
}

// Council is one named council declaration.
type Council struct {
	Models      []ModelRef `toml:"models"`
	System      string     `toml:"system"`
	Synthesizer *ModelRef  `toml:"synthesizer"`
	Rounds      int        `toml:"rounds"`
	Defaults    Defaults   `toml:"defaults"`
}

// Defaults mirrors the council-level option defaults.
type Defaults struct {
	Single        bool    `toml:"single"`
	Temperature   float64 `toml:"temperature"`
	MaxTokens     int     `toml:"max_tokens"`
	FirstN        int     `toml:"first_n"`
	Web           bool    `toml:"web"`
	WebMaxResults int     `toml:"web_max_results"`
	WebContext    string  `toml:"web_context"`
	TimeLimit     float64 `toml:"time_limit"`
}

// ModelRef accepts either a bare model id string or a table with an id
// and a per-model system prompt:
//
//	models = ["openai/gpt-4o", { id = "x-ai/grok-2", system = "..." }]
type ModelRef struct {
	ID     string
	System string
}

// UnmarshalTOML implements toml.Unmarshaler.
func (m *ModelRef) UnmarshalTOML(v any) error {
	switch val := v.(type) {
	case string:
		m.ID = val
		return nil
	case map[string]any:
		id, ok := val["id"].(string)
		if !ok || id == "" {
			return errors.New("model table requires a non-empty 'id'")
		}
		m.ID = id
		if sys, ok := val["system"]; ok {
			s, ok := sys.(string)
			if !ok {
				return errors.New("model 'system' must be a string")
			}
			m.System = s
		}
		for k := range val {
			if k != "id" && k != "system" {
				return fmt.Errorf("unknown model key %q", k)
			}
		}
		return nil
	default:
		return fmt.Errorf("model must be a string or a table, got %T", v)
	}
}

// Load parses and validates the TOML file at path. Unknown keys are
// rejected so typos fail loudly instead of silently using defaults.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	var f File
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("config: unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}

	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &f, nil
}

func (f *File) validate() error {
	if len(f.Councils) == 0 {
		return errors.New("no councils declared")
	}
	if f.DefaultCouncil != "" {
		if _, ok := f.Councils[f.DefaultCouncil]; !ok {
			return fmt.Errorf("default_council %q is not declared", f.DefaultCouncil)
		}
	}
	for name, c := range f.Councils {
		if err := c.validate(); err != nil {
			return fmt.Errorf("council %q: %w", name, err)
		}
	}
	return nil
}

func (c Council) validate() error {
	if len(c.Models) == 0 {
		return errors.New("models must not be empty")
	}
	for i, m := range c.Models {
		if m.ID == "" {
			return fmt.Errorf("models[%d]: empty model id", i)
		}
	}
	if c.Synthesizer != nil && c.Synthesizer.ID == "" {
		return errors.New("synthesizer: empty model id")
	}
	if c.Rounds < 0 || c.Rounds > council.MaxRounds {
		return fmt.Errorf("rounds must be 1..%d, got %d", council.MaxRounds, c.Rounds)
	}

	d := c.Defaults
	if d.Temperature < 0 || d.Temperature > 2 {
		return fmt.Errorf("defaults.temperature must be 0..2, got %g", d.Temperature)
	}
	if d.MaxTokens < 0 {
		return fmt.Errorf("defaults.max_tokens must not be negative, got %d", d.MaxTokens)
	}
	if d.FirstN < 0 {
		return fmt.Errorf("defaults.first_n must be at least 1 when set, got %d", d.FirstN)
	}
	if d.WebMaxResults < 0 || d.WebMaxResults > 50 {
		return fmt.Errorf("defaults.web_max_results must be 1..50, got %d", d.WebMaxResults)
	}
	switch d.WebContext {
	case "", "low", "medium", "high":
	default:
		return fmt.Errorf("defaults.web_context must be low, medium, or high, got %q", d.WebContext)
	}
	if d.TimeLimit != 0 && (d.TimeLimit < 0.1 || d.TimeLimit > 300) {
		return fmt.Errorf("defaults.time_limit must be 0.1..300 seconds, got %g", d.TimeLimit)
	}
	return nil
}

// Resolve returns the named council converted to the orchestrator's
// config shape. An empty name selects default_council; with no default
// and exactly one declared council, that council is used.
func (f *File) Resolve(name string) (council.CouncilConfig, error) {
	if name == "" {
		name = f.DefaultCouncil
	}
	if name == "" {
		if len(f.Councils) == 1 {
			for only := range f.Councils {
				name = only
			}
		} else {
			return council.CouncilConfig{}, errors.New("config: no council selected and no default_council set")
		}
	}

	c, ok := f.Councils[name]
	if !ok {
		return council.CouncilConfig{}, fmt.Errorf("config: council %q is not declared", name)
	}

	cfg := council.CouncilConfig{
		Models: make([]council.ModelRef, len(c.Models)),
		System: c.System,
		Rounds: c.Rounds,
		Defaults: council.Defaults{
			Single:        c.Defaults.Single,
			Temperature:   c.Defaults.Temperature,
			MaxTokens:     c.Defaults.MaxTokens,
			FirstN:        c.Defaults.FirstN,
			Web:           c.Defaults.Web,
			WebMaxResults: c.Defaults.WebMaxResults,
			WebContext:    c.Defaults.WebContext,
			TimeLimit:     c.Defaults.TimeLimit,
		},
	}
	for i, m := range c.Models {
		cfg.Models[i] = council.ModelRef{ID: m.ID, System: m.System}
	}
	if c.Synthesizer != nil {
		cfg.Synthesizer = &council.ModelRef{ID: c.Synthesizer.ID, System: c.Synthesizer.System}
	}
	return cfg, nil
}

// APIKey reads the gateway key from the environment.
func APIKey() (string, error) {
	key := os.Getenv(EnvAPIKey)
	if key == "" {
		return "", fmt.Errorf("config: %s is not set", EnvAPIKey)
	}
	return key, nil
}
