// Package export renders finished deliberations for human consumption.
//
// Anonymization happens here, at the presentation boundary: the core
// always carries real model ids, and the Elder numbering is applied only
// when rendering.
package export

import (
	"encoding/json"
	"fmt"
	"strings"

	council "github.com/nevindra/council"
)

// Format selects an output encoding.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatHTML     Format = "html"
)

// Options controls rendering.
type Options struct {
	// Anonymize replaces model ids with "Elder N" labels, numbered by
	// council position.
	Anonymize bool
	// IncludeMeta adds per-response token, cost, and latency lines.
	IncludeMeta bool
}

// Render renders a deliberation in the requested format.
func Render(format Format, prompt string, resp council.ConsensusResponse, opts Options) (string, error) {
	switch format {
	case FormatMarkdown:
		return Markdown(prompt, resp, opts), nil
	case FormatText:
		return Text(prompt, resp, opts), nil
	case FormatJSON:
		b, err := JSON(prompt, resp, opts)
		return string(b), err
	case FormatHTML:
		return HTML(prompt, resp, opts)
	default:
		return "", fmt.Errorf("export: unknown format %q", format)
	}
}

// label returns the display name for the response at council index i.
func label(i int, model string, anonymize bool) string {
	if anonymize {
		return fmt.Sprintf("Elder %d", i+1)
	}
	return model
}

// Markdown renders the full transcript as a Markdown document.
func Markdown(prompt string, resp council.ConsensusResponse, opts Options) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Council Session\n\n")
	if resp.SessionID != "" {
		fmt.Fprintf(&b, "Session `%s`\n\n", resp.SessionID)
	}
	if prompt != "" {
		fmt.Fprintf(&b, "**Question:** %s\n\n", prompt)
	}

	for r, round := range resp.Rounds {
		if len(resp.Rounds) > 1 {
			fmt.Fprintf(&b, "## Round %d\n\n", r+1)
		}
		for i, mr := range round {
			fmt.Fprintf(&b, "### %s\n\n", label(i, mr.Model, opts.Anonymize))
			writeBody(&b, mr, opts, "> ")
		}
	}

	if resp.Synthesis != nil {
		fmt.Fprintf(&b, "## Synthesis\n\n")
		writeBody(&b, *resp.Synthesis, opts, "> ")
	}

	if resp.Metadata != nil {
		fmt.Fprintf(&b, "## Session Totals\n\n")
		fmt.Fprintf(&b, "- Models: %d\n", resp.Metadata.ModelCount)
		fmt.Fprintf(&b, "- Total tokens: %d\n", resp.Metadata.TotalTokens)
		fmt.Fprintf(&b, "- Total cost: $%.6f\n", resp.Metadata.TotalCost)
		fmt.Fprintf(&b, "- Average latency: %d ms\n", resp.Metadata.AverageLatency)
	}

	return b.String()
}

// writeBody writes one response's content or error plus optional meta.
func writeBody(b *strings.Builder, mr council.ModelResponse, opts Options, errPrefix string) {
	if !mr.OK() {
		fmt.Fprintf(b, "%s_%s_\n\n", errPrefix, mr.Err.Message)
		return
	}
	fmt.Fprintf(b, "%s\n\n", strings.TrimSpace(mr.Content))

	if len(mr.Citations) > 0 {
		for _, c := range mr.Citations {
			title := c.Title
			if title == "" {
				title = c.URL
			}
			fmt.Fprintf(b, "- [%s](%s)\n", title, c.URL)
		}
		fmt.Fprintf(b, "\n")
	}

	if opts.IncludeMeta && mr.Meta != nil {
		fmt.Fprintf(b, "_%d tokens, $%.6f, %d ms_\n\n",
			mr.Meta.TotalTokens, mr.Meta.EstimatedCost, mr.Meta.LatencyMs)
	}
}

// Text renders a plain-text transcript without Markdown structure.
func Text(prompt string, resp council.ConsensusResponse, opts Options) string {
	var b strings.Builder

	if prompt != "" {
		fmt.Fprintf(&b, "Question: %s\n\n", prompt)
	}

	for r, round := range resp.Rounds {
		if len(resp.Rounds) > 1 {
			fmt.Fprintf(&b, "--- Round %d ---\n\n", r+1)
		}
		for i, mr := range round {
			fmt.Fprintf(&b, "[%s]\n", label(i, mr.Model, opts.Anonymize))
			if mr.OK() {
				fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(mr.Content))
			} else {
				fmt.Fprintf(&b, "(%s)\n\n", mr.Err.Message)
			}
		}
	}

	if resp.Synthesis != nil {
		fmt.Fprintf(&b, "=== Synthesis ===\n\n")
		if resp.Synthesis.OK() {
			fmt.Fprintf(&b, "%s\n", strings.TrimSpace(resp.Synthesis.Content))
		} else {
			fmt.Fprintf(&b, "(%s)\n", resp.Synthesis.Err.Message)
		}
	}

	if opts.IncludeMeta && resp.Metadata != nil {
		fmt.Fprintf(&b, "\n%d models, %d tokens, $%.6f, avg %d ms\n",
			resp.Metadata.ModelCount, resp.Metadata.TotalTokens,
			resp.Metadata.TotalCost, resp.Metadata.AverageLatency)
	}

	return b.String()
}

// --- JSON transcript ---

type jsonTranscript struct {
	SessionID string        `json:"sessionId,omitempty"`
	Question  string        `json:"question,omitempty"`
	Rounds    [][]jsonSlot  `json:"rounds"`
	Synthesis *jsonSlot     `json:"synthesis,omitempty"`
	Metadata  *jsonMetadata `json:"metadata,omitempty"`
}

type jsonSlot struct {
	Label     string             `json:"label"`
	Model     string             `json:"model,omitempty"`
	Content   string             `json:"content,omitempty"`
	Error     string             `json:"error,omitempty"`
	ErrorKind string             `json:"errorKind,omitempty"`
	Citations []council.Citation `json:"citations,omitempty"`
	Meta      *jsonMeta          `json:"meta,omitempty"`
}

type jsonMeta struct {
	PromptTokens     int     `json:"promptTokens"`
	CompletionTokens int     `json:"completionTokens"`
	TotalTokens      int     `json:"totalTokens"`
	LatencyMs        int64   `json:"latencyMs"`
	EstimatedCost    float64 `json:"estimatedCost"`
}

type jsonMetadata struct {
	TotalCost        float64 `json:"totalCost"`
	TotalTokens      int     `json:"totalTokens"`
	AverageLatencyMs int64   `json:"averageLatencyMs"`
	ModelCount       int     `json:"modelCount"`
}

// JSON renders the transcript as indented JSON. With Anonymize set, the
// model field is omitted so the document carries only Elder labels.
func JSON(prompt string, resp council.ConsensusResponse, opts Options) ([]byte, error) {
	t := jsonTranscript{
		SessionID: resp.SessionID,
		Question:  prompt,
		Rounds:    make([][]jsonSlot, len(resp.Rounds)),
	}

	for r, round := range resp.Rounds {
		slots := make([]jsonSlot, len(round))
		for i, mr := range round {
			slots[i] = toSlot(i, mr, opts)
		}
		t.Rounds[r] = slots
	}

	if resp.Synthesis != nil {
		s := toSlot(0, *resp.Synthesis, Options{IncludeMeta: opts.IncludeMeta})
		s.Label = "Synthesis"
		t.Synthesis = &s
	}

	if resp.Metadata != nil {
		t.Metadata = &jsonMetadata{
			TotalCost:        resp.Metadata.TotalCost,
			TotalTokens:      resp.Metadata.TotalTokens,
			AverageLatencyMs: resp.Metadata.AverageLatency,
			ModelCount:       resp.Metadata.ModelCount,
		}
	}

	return json.MarshalIndent(t, "", "  ")
}

func toSlot(i int, mr council.ModelResponse, opts Options) jsonSlot {
	s := jsonSlot{
		Label:     label(i, mr.Model, opts.Anonymize),
		Citations: mr.Citations,
	}
	if !opts.Anonymize {
		s.Model = mr.Model
	}
	if mr.OK() {
		s.Content = mr.Content
	} else {
		s.Error = mr.Err.Message
		s.ErrorKind = string(mr.Err.Kind)
	}
	if opts.IncludeMeta && mr.Meta != nil {
		s.Meta = &jsonMeta{
			PromptTokens:     mr.Meta.PromptTokens,
			CompletionTokens: mr.Meta.CompletionTokens,
			TotalTokens:      mr.Meta.TotalTokens,
			LatencyMs:        mr.Meta.LatencyMs,
			EstimatedCost:    mr.Meta.EstimatedCost,
		}
	}
	return s
}
