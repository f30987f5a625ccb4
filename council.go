package council

import (
	"context"
	"errors"
	"log/slog"
)

// Council orchestrates a deliberation session: it fans a prompt out to
// the configured models, optionally runs consensus rounds and a final
// synthesis, and aggregates cost, token, and latency accounting.
//
// A Council is stateless across invocations and safe for concurrent use.
type Council struct {
	backend  Backend
	cfg      CouncilConfig
	pricing  *Pricing
	logger   *slog.Logger
	progress ProgressFunc
	guard    *PromptGuard
}

// Option configures a Council.
type Option func(*Council)

// WithLogger sets the structured logger. If not set, a no-op logger is
// used (no output).
func WithLogger(l *slog.Logger) Option {
	return func(c *Council) { c.logger = l }
}

// WithPricing replaces the built-in rate table used for cost estimates.
func WithPricing(p *Pricing) Option {
	return func(c *Council) { c.pricing = p }
}

// WithProgress sets the per-model progress observer. Calls are serialized
// on a single reporter goroutine; the callback need not be thread-safe.
func WithProgress(fn ProgressFunc) Option {
	return func(c *Council) { c.progress = fn }
}

// WithGuard screens the user prompt before any network call. A tripped
// guard fails the session with ErrBlocked.
func WithGuard(g *PromptGuard) Option {
	return func(c *Council) { c.guard = g }
}

// New creates a Council over an already-validated configuration.
func New(backend Backend, cfg CouncilConfig, opts ...Option) *Council {
	c := &Council{
		backend: backend,
		cfg:     cfg,
		pricing: DefaultPricing(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = nopLogger
	}
	return c
}

// Query runs a single fan-out round with the council defaults and returns
// the ordered result vector, one slot per configured model.
func (c *Council) Query(ctx context.Context, prompt string) (RoundResult, error) {
	return c.QueryWithOptions(ctx, prompt, nil)
}

// QueryWithOptions runs a single fan-out round. Explicit options take
// precedence over council defaults, which take precedence over built-ins.
func (c *Council) QueryWithOptions(ctx context.Context, prompt string, explicit *QueryOptions) (RoundResult, error) {
	if err := c.checkPrompt(prompt); err != nil {
		return nil, err
	}
	opts := c.cfg.effectiveOptions(explicit)
	reporter := newProgressReporter(c.progress)
	defer reporter.close()
	return c.runFirstRound(ctx, prompt, opts, reporter), nil
}

// QueryWithConsensus runs the full deliberation: the configured number of
// consensus rounds, time-limit filtering per round, optional synthesis,
// and summary metadata. Per-model failures never propagate; even a fully
// cancelled session returns a well-formed ConsensusResponse.
func (c *Council) QueryWithConsensus(ctx context.Context, prompt string) (ConsensusResponse, error) {
	if err := c.checkPrompt(prompt); err != nil {
		return ConsensusResponse{}, err
	}

	session := NewID()
	opts := c.cfg.effectiveOptions(nil)
	reporter := newProgressReporter(c.progress)
	defer reporter.close()

	c.logger.Info("session started",
		"session_id", session,
		"models", len(c.cfg.Models),
		"rounds", c.cfg.rounds(),
		"first_n", opts.FirstN,
		"single", c.cfg.Defaults.Single)

	resp := ConsensusResponse{
		SessionID: session,
		Rounds:    c.runConsensus(ctx, prompt, opts, reporter),
	}

	if c.cfg.Defaults.Single {
		s := c.synthesize(ctx, prompt, resp.Rounds, opts, reporter)
		c.priceResponses(RoundResult{s})
		resp.Synthesis = &s
	}

	resp.Metadata = c.computeMetadata(resp)

	c.logger.Info("session finished",
		"session_id", session,
		"any_success", resp.AnySuccess(),
		"total_cost", resp.Metadata.TotalCost,
		"total_tokens", resp.Metadata.TotalTokens)
	return resp, nil
}

// AvailableModels returns the ordered model ids from the backend catalog.
// This is the only orchestrator operation that surfaces a network error.
func (c *Council) AvailableModels(ctx context.Context) ([]string, error) {
	infos, err := c.backend.Models(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(infos))
	for i, m := range infos {
		ids[i] = m.ID
	}
	return ids, nil
}

// EstimateCost returns the estimated USD cost of totalTokens billed
// against model, using the council's rate table.
func (c *Council) EstimateCost(model string, totalTokens int) float64 {
	return c.pricing.Estimate(model, totalTokens)
}

// checkPrompt validates preconditions that must fail the session before
// any network call.
func (c *Council) checkPrompt(prompt string) error {
	if len(c.cfg.Models) == 0 {
		return errors.New("council: no models configured")
	}
	if c.guard != nil {
		if err := c.guard.Check(prompt); err != nil {
			c.logger.Warn("prompt blocked by guard")
			return err
		}
	}
	return nil
}

// priceResponses fills in estimated cost for every response that carries
// usage but no cost yet. The backend reports usage; pricing is an
// orchestrator concern.
func (c *Council) priceResponses(responses RoundResult) {
	for _, resp := range responses {
		if resp.Meta != nil && resp.Meta.EstimatedCost == 0 {
			resp.Meta.EstimatedCost = c.pricing.Estimate(resp.Model, resp.Meta.TotalTokens)
		}
	}
}

// computeMetadata aggregates cost, tokens, and latency over every
// response in the transcript, synthesis included.
func (c *Council) computeMetadata(resp ConsensusResponse) *Metadata {
	md := &Metadata{}
	if len(resp.Rounds) > 0 {
		md.ModelCount = len(resp.Rounds[0])
	}

	var latencySum int64
	var latencyCount int64
	tally := func(r ModelResponse) {
		if r.Meta == nil {
			return
		}
		md.TotalCost += r.Meta.EstimatedCost
		md.TotalTokens += r.Meta.TotalTokens
		latencySum += r.Meta.LatencyMs
		latencyCount++
	}
	for _, round := range resp.Rounds {
		for _, r := range round {
			tally(r)
		}
	}
	if resp.Synthesis != nil {
		tally(*resp.Synthesis)
	}
	if latencyCount > 0 {
		md.AverageLatency = latencySum / latencyCount
	}
	return md
}
