package openrouter

import (
	council "github.com/nevindra/council"
)

// ParseResponse extracts content, citations, and usage from choices[0].
// Returns ok=false when the body has no decodable message content; the
// caller classifies that as a validation failure.
func ParseResponse(resp ChatResponse) (content string, citations []council.Citation, usage *Usage, ok bool) {
	if len(resp.Choices) == 0 {
		return "", nil, nil, false
	}
	choice := resp.Choices[0]
	if choice.Message == nil || choice.Message.Content == "" {
		return "", nil, nil, false
	}
	return choice.Message.Content, ParseCitations(choice.Message.Annotations), resp.Usage, true
}

// ParseCitations converts url_citation annotations to council Citations,
// preserving order. Unknown annotation types are skipped.
func ParseCitations(annotations []Annotation) []council.Citation {
	var out []council.Citation
	for _, a := range annotations {
		if a.Type != "url_citation" || a.URLCitation == nil {
			continue
		}
		out = append(out, council.Citation{
			URL:        a.URLCitation.URL,
			Title:      a.URLCitation.Title,
			Content:    a.URLCitation.Content,
			StartIndex: a.URLCitation.StartIndex,
			EndIndex:   a.URLCitation.EndIndex,
		})
	}
	return out
}

// meta builds a ResponseMeta from usage. A response without usage yields
// nil; the orchestrator treats such successes as having no accounting
// information.
func meta(usage *Usage, latencyMs int64) *council.ResponseMeta {
	if usage == nil {
		return nil
	}
	return &council.ResponseMeta{
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
		LatencyMs:        latencyMs,
	}
}
