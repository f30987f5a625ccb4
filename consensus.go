package council

import (
	"context"
	"fmt"
	"strings"
)

// BuildConsensusPrompt builds the revision prompt shown to the model at
// position i in a follow-up round: each successful peer's answer in
// council order, excluding the model's own. Errored peers are omitted.
// Deterministic for a given input.
func BuildConsensusPrompt(i int, responses RoundResult) string {
	var self string
	if i >= 0 && i < len(responses) {
		self = responses[i].Model
	}

	var b strings.Builder
	b.WriteString("Consider your peers' views and revise your response if needed:\n\n")
	for j, peer := range responses {
		if peer.Err != nil {
			continue
		}
		if j == i || (self != "" && peer.Model == self) {
			continue
		}
		fmt.Fprintf(&b, "**%s**:\n%s\n\n", peer.Model, peer.Content)
	}
	b.WriteString("Based on these perspectives, would you like to revise or expand your answer?")
	return b.String()
}

// runConsensus executes rounds 1..R and returns the transcript. Round 1
// is a straight fan-out (raced to first N when configured); each later
// round shows every surviving model its peers' prior answers and invites
// a revision. An errored slot is carried into every subsequent round
// verbatim, without a network call.
func (c *Council) runConsensus(ctx context.Context, prompt string, opts QueryOptions, reporter *progressReporter) []RoundResult {
	numRounds := c.cfg.rounds()
	rounds := make([]RoundResult, 0, numRounds)
	rounds = append(rounds, c.runFirstRound(ctx, prompt, opts, reporter))

	for k := 2; k <= numRounds; k++ {
		// A session cancelled mid-flight still returns a well-formed
		// transcript; there is nothing left to revise.
		if ctx.Err() != nil {
			break
		}

		prev := rounds[len(rounds)-1]
		next := make(RoundResult, len(prev))

		var sub []modelRequest
		var subIdx []int
		for i, ref := range c.cfg.Models {
			if prev[i].Err != nil {
				next[i] = prev[i] // carry-through
				continue
			}
			reporter.emit(k, ref.ID, ProgressPreparing)
			sub = append(sub, modelRequest{Ref: ref, Messages: []Message{
				SystemMessage(ref.EffectiveSystem(c.cfg.System)),
				UserMessage(prompt),
				AssistantMessage(prev[i].Content),
				UserMessage(BuildConsensusPrompt(i, prev)),
			}})
			subIdx = append(subIdx, i)
		}

		if len(sub) > 0 {
			// First-N applies to round 1 only; the set is fixed afterwards.
			res := queryAll(ctx, c.backend, k, sub, opts, reporter)
			for j, i := range subIdx {
				next[i] = res[j]
			}
		}
		rounds = append(rounds, c.finishRound(k, next))
	}
	return rounds
}

// runFirstRound dispatches round 1: one request per council member with
// the member's effective system prompt and the initial user prompt,
// raced to first N when configured.
func (c *Council) runFirstRound(ctx context.Context, prompt string, opts QueryOptions, reporter *progressReporter) RoundResult {
	reqs := make([]modelRequest, len(c.cfg.Models))
	for i, ref := range c.cfg.Models {
		reporter.emit(1, ref.ID, ProgressPreparing)
		reqs[i] = modelRequest{Ref: ref, Messages: []Message{
			SystemMessage(ref.EffectiveSystem(c.cfg.System)),
			UserMessage(prompt),
		}}
	}

	var round RoundResult
	if opts.FirstN > 0 {
		round = queryFirstN(ctx, c.backend, 1, reqs, opts, opts.FirstN, reporter, c.logger)
	} else {
		round = queryAll(ctx, c.backend, 1, reqs, opts, reporter)
	}
	return c.finishRound(1, round)
}

// finishRound applies the per-round post-processing before the round is
// stored in the transcript: time-limit filtering, then cost estimation.
func (c *Council) finishRound(round int, result RoundResult) RoundResult {
	if limit := c.cfg.timeLimit(); limit > 0 {
		result = applyTimeLimit(result, limit, c.logger)
	}
	c.priceResponses(result)
	c.logger.Info("round complete",
		"round", round,
		"models", len(result),
		"succeeded", countOK(result))
	return result
}

func countOK(r RoundResult) int {
	n := 0
	for _, resp := range r {
		if resp.OK() {
			n++
		}
	}
	return n
}
