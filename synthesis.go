package council

import (
	"context"
	"fmt"
	"strings"
)

// synthesizerSystemPrompt instructs the designated model to answer as a
// single voice.
const synthesizerSystemPrompt = "You are an expert synthesizer. Provide clear, direct answers based on the information given. Never mention the synthesis process or multiple sources."

// noMentionDirective closes every synthesis prompt.
const noMentionDirective = "Do not mention the council, multiple perspectives, or synthesis process. Simply answer the question as if you are providing the definitive response."

// synthesize folds the transcript into a single answer from the
// designated synthesizer model. Queried exactly once, with the session
// temperature. A transcript whose final round has no successful slot
// yields a NoContent error response without a network call.
func (c *Council) synthesize(ctx context.Context, prompt string, rounds []RoundResult, opts QueryOptions, reporter *progressReporter) ModelResponse {
	synth := c.cfg.synthesizer()

	finalRound := rounds[len(rounds)-1]
	if !finalRound.AnySuccess() {
		return ModelResponse{
			Model: synth.ID,
			Err:   &QueryError{Kind: KindNoContent, Message: NoContentMessage},
		}
	}

	var user string
	if len(rounds) == 1 {
		user = buildPerspectivesPrompt(prompt, finalRound)
	} else {
		user = buildDiscussionPrompt(prompt, rounds)
	}

	messages := []Message{
		SystemMessage(synth.EffectiveSystem(synthesizerSystemPrompt)),
		UserMessage(user),
	}

	// Synthesis is a single query outside the round structure; web search
	// and first-N do not apply.
	synthOpts := QueryOptions{Temperature: opts.Temperature, MaxTokens: opts.MaxTokens}

	reporter.emit(len(rounds)+1, synth.ID, ProgressQuerying)
	resp := c.backend.QueryModel(ctx, synth.ID, messages, synthOpts)
	resp.Model = synth.ID
	reporter.settled(len(rounds)+1, resp)
	return resp
}

// buildPerspectivesPrompt is the single-round synthesis compound: each
// successful answer becomes a numbered perspective. Numbering follows the
// council position, so identities stay stable even when some members
// failed.
func buildPerspectivesPrompt(prompt string, round RoundResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Original question: %s\n\n", prompt)
	b.WriteString("Expert Perspectives:\n\n")
	for i, resp := range round {
		if !resp.OK() {
			continue
		}
		fmt.Fprintf(&b, "Perspective %d:\n%s\n\n", i+1, resp.Content)
	}
	b.WriteString("Provide a direct, comprehensive answer to the original question based on these perspectives. ")
	b.WriteString(noMentionDirective)
	return b.String()
}

// buildDiscussionPrompt is the multi-round synthesis compound: every
// round, every surviving member, enumerated as anonymized elders. Elder
// numbers are 1-based council positions; errored elders are skipped but
// keep their numbering.
func buildDiscussionPrompt(prompt string, rounds []RoundResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Original question: %s\n\n", prompt)
	b.WriteString("Full Council Discussion:\n\n")
	for r, round := range rounds {
		fmt.Fprintf(&b, "Round %d:\n\n", r+1)
		for i, resp := range round {
			if !resp.OK() {
				continue
			}
			fmt.Fprintf(&b, "Elder %d:\n%s\n\n", i+1, resp.Content)
		}
	}
	b.WriteString("Provide a unified answer to the original question based on the full discussion. ")
	b.WriteString(noMentionDirective)
	return b.String()
}
