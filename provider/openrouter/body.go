package openrouter

import (
	"encoding/json"
	"strings"

	council "github.com/nevindra/council"
)

// onlineSuffix is the OpenRouter model variant that enables native web
// search without further configuration.
const onlineSuffix = ":online"

// BuildBody converts council Messages and a model id into a ChatRequest.
// Web-search augmentation picks exactly one encoding:
//
//   - MaxResults set → web plugin with a result budget
//   - SearchContext set → web_search_options.search_context_size
//   - bare Enabled flag → ":online" model suffix
func BuildBody(model string, messages []council.Message, opts council.QueryOptions) ChatRequest {
	msgs := make([]Message, len(messages))
	for i, m := range messages {
		msgs[i] = Message{Role: m.Role, Content: m.Content}
	}

	temp := opts.Temperature
	req := ChatRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: &temp,
		MaxTokens:   opts.MaxTokens,
		Stream:      false,
	}

	if ws := opts.WebSearch; ws != nil && ws.Enabled {
		switch {
		case ws.MaxResults > 0:
			req.Plugins = []Plugin{{ID: "web", MaxResults: ws.MaxResults}}
		case ws.SearchContext != "":
			req.WebSearchOptions = &WebSearchOptions{SearchContextSize: ws.SearchContext}
		default:
			if !strings.HasSuffix(req.Model, onlineSuffix) {
				req.Model += onlineSuffix
			}
		}
	}

	return req
}

// withSchema adds a strict structured-output constraint to a request.
func withSchema(req ChatRequest, name string, schema json.RawMessage) ChatRequest {
	req.ResponseFormat = &ResponseFormat{
		Type: "json_schema",
		JSONSchema: &JSONSchema{
			Name:   name,
			Schema: schema,
			Strict: true,
		},
	}
	return req
}
