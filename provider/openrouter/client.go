package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	council "github.com/nevindra/council"
)

// DefaultBaseURL is the OpenRouter API base.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

const (
	defaultReferer    = "https://github.com/nevindra/council"
	defaultTitle      = "Council"
	defaultMaxRetries = 3
	defaultBaseDelay  = time.Second
	backoffCap        = 30 * time.Second
)

// Client speaks the OpenRouter chat completions API. It implements
// council.Backend: per-model failures are materialized as error slots,
// transient failures (429, 5xx, transport) are retried with exponential
// backoff, and every request honors context cancellation.
type Client struct {
	apiKey     string
	baseURL    string
	referer    string
	title      string
	client     *http.Client
	logger     *slog.Logger
	maxRetries int
	baseDelay  time.Duration
}

// New creates an OpenRouter client. The bearer key usually comes from the
// OPENROUTER_API_KEY environment variable; reading it is the caller's
// concern.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		referer:    defaultReferer,
		title:      defaultTitle,
		client:     &http.Client{},
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// QueryModel queries one model. It never returns a Go error: failures are
// classified into a QueryError carried by the response. The latency clock
// starts before the first attempt and stops on final settle, so retry
// waits are included.
func (c *Client) QueryModel(ctx context.Context, model string, messages []council.Message, opts council.QueryOptions) council.ModelResponse {
	start := time.Now()
	body := BuildBody(model, messages, opts)

	content, citations, usage, qerr := c.complete(ctx, body)
	latencyMs := time.Since(start).Milliseconds()

	if qerr != nil {
		c.logger.Warn("query failed",
			"model", model,
			"kind", qerr.Kind,
			"error", qerr.Message,
			"latency_ms", latencyMs)
		return council.ModelResponse{Model: model, Err: qerr}
	}

	c.logger.Debug("query complete", "model", model, "latency_ms", latencyMs)
	return council.ModelResponse{
		Model:     model,
		Content:   content,
		Citations: citations,
		Meta:      meta(usage, latencyMs),
	}
}

// GenerateStructured queries one model with a strict JSON schema
// constraint and returns the raw JSON content. Unlike QueryModel this is
// not part of the orchestration loop, so failures surface as errors.
func (c *Client) GenerateStructured(ctx context.Context, model string, messages []council.Message, schemaName string, schema json.RawMessage, opts council.QueryOptions) (json.RawMessage, error) {
	body := withSchema(BuildBody(model, messages, opts), schemaName, schema)
	content, _, _, qerr := c.complete(ctx, body)
	if qerr != nil {
		return nil, qerr
	}
	raw := json.RawMessage(content)
	if !json.Valid(raw) {
		return nil, &council.QueryError{
			Kind:    council.KindValidation,
			Message: "structured response is not valid JSON",
		}
	}
	return raw, nil
}

// Models retrieves the model catalog, in gateway order. This is the only
// operation that propagates a network failure to the caller.
func (c *Client) Models(ctx context.Context) ([]council.ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("openrouter: create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openrouter: fetch models: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &council.ErrHTTP{Status: resp.StatusCode, Body: string(body)}
	}

	var list ModelList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("openrouter: decode models: %w", err)
	}

	out := make([]council.ModelInfo, len(list.Data))
	for i, m := range list.Data {
		info := council.ModelInfo{
			ID:            m.ID,
			Name:          m.Name,
			ContextLength: m.ContextLength,
		}
		if m.Pricing != nil {
			info.PromptPrice = m.Pricing.Prompt
			info.CompletionPrice = m.Pricing.Completion
		}
		out[i] = info
	}
	return out, nil
}

// complete runs the retry loop for one completion request. Up to
// maxRetries retries on 429, 5xx, and transport errors; 429 honors the
// server's Retry-After. Everything else settles immediately.
func (c *Client) complete(ctx context.Context, body ChatRequest) (string, []council.Citation, *Usage, *council.QueryError) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", nil, nil, &council.QueryError{
			Kind:    council.KindValidation,
			Message: fmt.Sprintf("marshal request: %v", err),
		}
	}

	var lastHTTP *council.ErrHTTP
	var lastTransport error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryDelay(c.baseDelay, attempt-1, lastHTTP)
			c.logger.Warn("retrying transient error",
				"model", body.Model,
				"attempt", attempt,
				"max_retries", c.maxRetries,
				"delay", delay)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", nil, nil, cancelledError(ctx)
			case <-timer.C:
			}
		}

		resp, err := c.post(ctx, payload)
		if err != nil {
			if ctx.Err() != nil {
				return "", nil, nil, cancelledError(ctx)
			}
			lastTransport = err
			lastHTTP = nil
			continue
		}

		if resp.StatusCode != http.StatusOK {
			herr := httpError(resp)
			if herr.Retryable() {
				lastHTTP = herr
				lastTransport = nil
				continue
			}
			return "", nil, nil, &council.QueryError{
				Kind:    council.KindRemoteAPI,
				Message: serverMessage(herr),
			}
		}

		var chat ChatResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&chat)
		resp.Body.Close()
		if decodeErr != nil {
			return "", nil, nil, &council.QueryError{
				Kind:    council.KindValidation,
				Message: fmt.Sprintf("decode response: %v", decodeErr),
			}
		}

		content, citations, usage, ok := ParseResponse(chat)
		if !ok {
			return "", nil, nil, &council.QueryError{
				Kind:    council.KindValidation,
				Message: "response contained no content",
			}
		}
		return content, citations, usage, nil
	}

	// Retries exhausted.
	switch {
	case lastHTTP != nil && lastHTTP.Status == http.StatusTooManyRequests:
		return "", nil, nil, &council.QueryError{
			Kind:       council.KindRateLimit,
			Message:    "rate limited: " + serverMessage(lastHTTP),
			RetryAfter: lastHTTP.RetryAfter,
		}
	case lastHTTP != nil:
		return "", nil, nil, &council.QueryError{
			Kind:    council.KindNetwork,
			Message: "upstream unavailable: " + serverMessage(lastHTTP),
		}
	default:
		return "", nil, nil, &council.QueryError{
			Kind:    council.KindNetwork,
			Message: fmt.Sprintf("network error: %v", lastTransport),
		}
	}
}

// post sends one completion attempt. The response body is open on a 200;
// httpError consumes it otherwise.
func (c *Client) post(ctx context.Context, payload []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)
	return c.client.Do(req)
}

// setHeaders applies bearer auth and the OpenRouter attribution headers.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("HTTP-Referer", c.referer)
	req.Header.Set("X-Title", c.title)
}

// httpError reads and closes the response body and parses Retry-After.
func httpError(resp *http.Response) *council.ErrHTTP {
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return &council.ErrHTTP{
		Status:     resp.StatusCode,
		Body:       string(body),
		RetryAfter: council.ParseRetryAfter(resp.Header.Get("Retry-After")),
	}
}

// serverMessage extracts the server-provided error message from an error
// body, falling back to the raw body.
func serverMessage(herr *council.ErrHTTP) string {
	var er ErrorResponse
	if err := json.Unmarshal([]byte(herr.Body), &er); err == nil && er.Error.Message != "" {
		return fmt.Sprintf("http %d: %s", herr.Status, er.Error.Message)
	}
	return herr.Error()
}

// cancelledError distinguishes deadline expiry from explicit cancellation
// only in the message; both settle as Cancelled slots.
func cancelledError(ctx context.Context) *council.QueryError {
	msg := "Request cancelled"
	if ctx.Err() == context.DeadlineExceeded {
		msg = "Request cancelled: deadline exceeded"
	}
	return &council.QueryError{Kind: council.KindCancelled, Message: msg}
}

// retryDelay computes the backoff before retry i (0-indexed): base * 2^i
// plus up to 50% jitter, capped, with the server's Retry-After as a floor
// when present.
func retryDelay(base time.Duration, i int, herr *council.ErrHTTP) time.Duration {
	exp := base * (1 << i)
	if exp > backoffCap {
		exp = backoffCap
	}
	delay := exp + time.Duration(rand.Int63n(int64(exp)/2+1))
	if herr != nil && herr.RetryAfter > delay {
		delay = herr.RetryAfter
	}
	return delay
}

// Compile-time interface check.
var _ council.Backend = (*Client)(nil)
