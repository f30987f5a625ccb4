// Package council is a multi-model deliberation engine. A single prompt
// fans out to a declared set of language-model backends reached through a
// common chat-completion gateway; answers are collected in parallel,
// optionally refined over consensus rounds in which each model sees its
// peers' prior answers, and optionally folded into one synthesized answer
// by a designated model.
//
// # Quick Start
//
//	client := openrouter.New(os.Getenv("OPENROUTER_API_KEY"))
//	c := council.New(client, council.CouncilConfig{
//		Models: []council.ModelRef{
//			council.Model("openai/gpt-4o"),
//			council.Model("anthropic/claude-sonnet-4"),
//			council.Model("google/gemini-2.5-pro"),
//		},
//		Rounds:   2,
//		Defaults: council.Defaults{Single: true},
//	})
//
//	resp, err := c.QueryWithConsensus(ctx, "What limits battery energy density?")
//
// # Core Concepts
//
//   - [Backend] is the chat-completion gateway contract; provider/openrouter
//     supplies the production client with retry and web-search support
//   - [Council] is the session orchestrator: fan-out, consensus rounds,
//     first-N racing, time-limit filtering, synthesis, cost accounting
//   - [RoundResult] is one ordered fan-out pass; slot i always corresponds
//     to the council's model i, regardless of completion order
//   - [ConsensusResponse] is the full transcript with summary metadata
//   - [Pricing] is an ordered substring rate table for cost estimation
//
// Per-model failures never abort a session: each surfaces as an error
// slot in its position, and errored slots are carried through later
// rounds without new network calls.
//
// The export package renders finished sessions to Markdown, HTML, JSON,
// or plain text; the observer package adds OpenTelemetry instrumentation.
package council
