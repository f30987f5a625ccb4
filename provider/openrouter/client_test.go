package openrouter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	council "github.com/nevindra/council"
)

func chatOK(content string, tokens int) string {
	resp := ChatResponse{
		Choices: []Choice{{Message: &ChoiceMessage{Role: "assistant", Content: content}}},
		Usage:   &Usage{PromptTokens: tokens / 2, CompletionTokens: tokens - tokens/2, TotalTokens: tokens},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New("test-key",
		WithBaseURL(srv.URL),
		WithBaseDelay(time.Millisecond),
	)
	return c, srv
}

func TestQueryModel_Success(t *testing.T) {
	var gotAuth, gotReferer string
	var gotBody ChatRequest
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReferer = r.Header.Get("HTTP-Referer")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(chatOK("hello", 42)))
	})

	resp := c.QueryModel(context.Background(), "openai/gpt-4o",
		[]council.Message{council.SystemMessage("sys"), council.UserMessage("hi")},
		council.QueryOptions{Temperature: 0.5})

	if !resp.OK() {
		t.Fatalf("unexpected error: %+v", resp.Err)
	}
	if resp.Content != "hello" {
		t.Errorf("content = %q, want hello", resp.Content)
	}
	if resp.Model != "openai/gpt-4o" {
		t.Errorf("model = %q", resp.Model)
	}
	if resp.Meta == nil || resp.Meta.TotalTokens != 42 {
		t.Errorf("meta = %+v, want 42 total tokens", resp.Meta)
	}
	if resp.Meta.LatencyMs < 0 {
		t.Errorf("latency = %d", resp.Meta.LatencyMs)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("auth = %q", gotAuth)
	}
	if gotReferer == "" {
		t.Error("HTTP-Referer not sent")
	}
	if len(gotBody.Messages) != 2 || gotBody.Messages[0].Role != "system" {
		t.Errorf("messages = %+v", gotBody.Messages)
	}
	if gotBody.Temperature == nil || *gotBody.Temperature != 0.5 {
		t.Errorf("temperature = %v, want 0.5", gotBody.Temperature)
	}
}

func TestQueryModel_RetriesOn503(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(chatOK("recovered", 10)))
	})

	resp := c.QueryModel(context.Background(), "m", []council.Message{council.UserMessage("q")}, council.QueryOptions{})
	if !resp.OK() {
		t.Fatalf("unexpected error: %+v", resp.Err)
	}
	if resp.Content != "recovered" {
		t.Errorf("content = %q", resp.Content)
	}
	if calls.Load() != 3 {
		t.Errorf("got %d attempts, want 3", calls.Load())
	}
}

func TestQueryModel_RateLimitExhausted(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"slow down","code":429}}`))
	})

	resp := c.QueryModel(context.Background(), "m", []council.Message{council.UserMessage("q")}, council.QueryOptions{})
	if resp.OK() {
		t.Fatal("expected an error response")
	}
	if resp.Err.Kind != council.KindRateLimit {
		t.Errorf("kind = %q, want rate_limit", resp.Err.Kind)
	}
	// 1 initial attempt + 3 retries.
	if calls.Load() != 4 {
		t.Errorf("got %d attempts, want 4", calls.Load())
	}
}

func TestQueryModel_BadRequestNotRetried(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"unknown model","code":400}}`))
	})

	resp := c.QueryModel(context.Background(), "m", []council.Message{council.UserMessage("q")}, council.QueryOptions{})
	if resp.OK() || resp.Err.Kind != council.KindRemoteAPI {
		t.Fatalf("got %+v, want remote_api error", resp.Err)
	}
	if calls.Load() != 1 {
		t.Errorf("got %d attempts, want 1 (no retry on 4xx)", calls.Load())
	}
	if resp.Err.Message != "http 400: unknown model" {
		t.Errorf("message = %q", resp.Err.Message)
	}
}

func TestQueryModel_EmptyContentIsValidation(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":""}}]}`))
	})

	resp := c.QueryModel(context.Background(), "m", []council.Message{council.UserMessage("q")}, council.QueryOptions{})
	if resp.OK() || resp.Err.Kind != council.KindValidation {
		t.Fatalf("got %+v, want validation error", resp.Err)
	}
	if calls.Load() != 1 {
		t.Errorf("got %d attempts, want 1 (malformed 200 is not retried)", calls.Load())
	}
}

func TestQueryModel_Cancelled(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server starts its background read; without
		// it the client disconnect is never detected and r.Context() never
		// fires, deadlocking srv.Close in cleanup.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	resp := c.QueryModel(ctx, "m", []council.Message{council.UserMessage("q")}, council.QueryOptions{})
	if resp.OK() || resp.Err.Kind != council.KindCancelled {
		t.Fatalf("got %+v, want cancelled", resp.Err)
	}
}

func TestQueryModel_TransportErrorExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := New("k", WithBaseURL(srv.URL), WithBaseDelay(time.Millisecond), WithMaxRetries(1))
	resp := c.QueryModel(context.Background(), "m", []council.Message{council.UserMessage("q")}, council.QueryOptions{})
	if resp.OK() || resp.Err.Kind != council.KindNetwork {
		t.Fatalf("got %+v, want network error", resp.Err)
	}
}

func TestQueryModel_UsageAbsentMeansNoMeta(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"fine"}}]}`))
	})

	resp := c.QueryModel(context.Background(), "m", []council.Message{council.UserMessage("q")}, council.QueryOptions{})
	if !resp.OK() {
		t.Fatalf("unexpected error: %+v", resp.Err)
	}
	if resp.Meta != nil {
		t.Errorf("meta = %+v, want nil when the gateway omits usage", resp.Meta)
	}
}

func TestQueryModel_Citations(t *testing.T) {
	body := `{"choices":[{"message":{"role":"assistant","content":"cited answer",
		"annotations":[{"type":"url_citation","url_citation":{"url":"https://example.org","title":"Example","start_index":0,"end_index":5}},
		{"type":"other"}]}}],"usage":{"prompt_tokens":1,"completion_tokens":2,"total_tokens":3}}`
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	})

	resp := c.QueryModel(context.Background(), "m", []council.Message{council.UserMessage("q")}, council.QueryOptions{})
	if !resp.OK() {
		t.Fatalf("unexpected error: %+v", resp.Err)
	}
	if len(resp.Citations) != 1 {
		t.Fatalf("got %d citations, want 1 (unknown types skipped)", len(resp.Citations))
	}
	if resp.Citations[0].URL != "https://example.org" || resp.Citations[0].EndIndex != 5 {
		t.Errorf("citation = %+v", resp.Citations[0])
	}
}

func TestQueryModel_LatencyIncludesRetryWaits(t *testing.T) {
	var calls atomic.Int32
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(chatOK("ok", 5)))
	})
	_ = srv

	// Base delay 50ms: the measured latency must cover the backoff wait.
	c.baseDelay = 50 * time.Millisecond
	resp := c.QueryModel(context.Background(), "m", []council.Message{council.UserMessage("q")}, council.QueryOptions{})
	if !resp.OK() {
		t.Fatalf("unexpected error: %+v", resp.Err)
	}
	if resp.Meta.LatencyMs < 50 {
		t.Errorf("latency = %dms, want at least the 50ms retry wait", resp.Meta.LatencyMs)
	}
}

func TestModels_Catalog(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("path = %q, want /models", r.URL.Path)
		}
		w.Write([]byte(`{"data":[
			{"id":"a/x","name":"X","pricing":{"prompt":"0.000001","completion":"0.000002"},"context_length":8192},
			{"id":"b/y","name":"Y"}]}`))
	})

	models, err := c.Models(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("got %d models, want 2", len(models))
	}
	if models[0].ID != "a/x" || models[0].PromptPrice != "0.000001" || models[0].ContextLength != 8192 {
		t.Errorf("models[0] = %+v", models[0])
	}
	if models[1].ID != "b/y" || models[1].PromptPrice != "" {
		t.Errorf("models[1] = %+v", models[1])
	}
}

func TestModels_ErrorPropagates(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	if _, err := c.Models(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
}

func TestGenerateStructured(t *testing.T) {
	var gotBody ChatRequest
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(chatOK(`{"answer":42}`, 7)))
	})

	schema := json.RawMessage(`{"type":"object"}`)
	raw, err := c.GenerateStructured(context.Background(), "m",
		[]council.Message{council.UserMessage("q")}, "answer", schema, council.QueryOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw) != `{"answer":42}` {
		t.Errorf("raw = %s", raw)
	}
	if gotBody.ResponseFormat == nil || gotBody.ResponseFormat.Type != "json_schema" {
		t.Errorf("response_format = %+v", gotBody.ResponseFormat)
	}
	if gotBody.ResponseFormat.JSONSchema == nil || !gotBody.ResponseFormat.JSONSchema.Strict {
		t.Errorf("json_schema = %+v", gotBody.ResponseFormat.JSONSchema)
	}
}

func TestGenerateStructured_InvalidJSON(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatOK("not json", 7)))
	})
	if _, err := c.GenerateStructured(context.Background(), "m",
		[]council.Message{council.UserMessage("q")}, "answer", json.RawMessage(`{}`), council.QueryOptions{}); err == nil {
		t.Fatal("expected a validation error")
	}
}
