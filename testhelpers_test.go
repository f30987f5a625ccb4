package council

import (
	"context"
	"sync"
)

// stubBackend is a test Backend driven by a respond function. It records
// every call so tests can assert on dispatch counts and message shapes.
type stubBackend struct {
	mu      sync.Mutex
	calls   []stubCall
	respond func(ctx context.Context, model string, messages []Message, opts QueryOptions) ModelResponse
	models  []ModelInfo
}

type stubCall struct {
	Model    string
	Messages []Message
	Opts     QueryOptions
}

func (s *stubBackend) QueryModel(ctx context.Context, model string, messages []Message, opts QueryOptions) ModelResponse {
	s.mu.Lock()
	s.calls = append(s.calls, stubCall{Model: model, Messages: messages, Opts: opts})
	s.mu.Unlock()

	if ctx.Err() != nil {
		return ModelResponse{Model: model, Err: Cancelled()}
	}
	if s.respond != nil {
		return s.respond(ctx, model, messages, opts)
	}
	return ModelResponse{Model: model, Content: "answer from " + model}
}

func (s *stubBackend) Models(_ context.Context) ([]ModelInfo, error) {
	return s.models, nil
}

// callCount returns how many times model was queried.
func (s *stubBackend) callCount(model string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Model == model {
			n++
		}
	}
	return n
}

// lastCall returns the most recent call for model, or nil.
func (s *stubBackend) lastCall(model string) *stubCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.calls) - 1; i >= 0; i-- {
		if s.calls[i].Model == model {
			c := s.calls[i]
			return &c
		}
	}
	return nil
}

var _ Backend = (*stubBackend)(nil)

// ok builds a successful response with usage.
func ok(model, content string, tokens int, latencyMs int64) ModelResponse {
	return ModelResponse{
		Model:   model,
		Content: content,
		Meta: &ResponseMeta{
			PromptTokens:     tokens / 2,
			CompletionTokens: tokens - tokens/2,
			TotalTokens:      tokens,
			LatencyMs:        latencyMs,
		},
	}
}

// fail builds an error response.
func fail(model string, kind ErrorKind, msg string) ModelResponse {
	return ModelResponse{Model: model, Err: &QueryError{Kind: kind, Message: msg}}
}

// threeCouncil is a config with three members and no extras.
func threeCouncil() CouncilConfig {
	return CouncilConfig{
		Models: []ModelRef{Model("alpha/one"), Model("beta/two"), Model("gamma/three")},
	}
}
