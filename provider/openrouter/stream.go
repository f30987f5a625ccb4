package openrouter

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	council "github.com/nevindra/council"
)

// StreamModel queries one model with streaming enabled, sending content
// deltas to ch as they arrive and returning the fully accumulated
// response. The channel is closed when streaming ends; callers read from
// ch in a separate goroutine.
//
// Streaming requests are not retried: once deltas have been delivered the
// attempt cannot be transparently replayed. Transient failures before the
// first byte settle as error slots like non-streaming queries.
func (c *Client) StreamModel(ctx context.Context, model string, messages []council.Message, opts council.QueryOptions, ch chan<- string) council.ModelResponse {
	start := time.Now()

	body := BuildBody(model, messages, opts)
	body.Stream = true
	body.StreamOptions = &StreamOptions{IncludeUsage: true}

	payload, err := json.Marshal(body)
	if err != nil {
		close(ch)
		return council.ModelResponse{Model: model, Err: &council.QueryError{
			Kind:    council.KindValidation,
			Message: fmt.Sprintf("marshal request: %v", err),
		}}
	}

	resp, err := c.post(ctx, payload)
	if err != nil {
		close(ch)
		if ctx.Err() != nil {
			return council.ModelResponse{Model: model, Err: cancelledError(ctx)}
		}
		return council.ModelResponse{Model: model, Err: &council.QueryError{
			Kind:    council.KindNetwork,
			Message: fmt.Sprintf("network error: %v", err),
		}}
	}
	if resp.StatusCode != http.StatusOK {
		close(ch)
		herr := httpError(resp)
		kind := council.KindRemoteAPI
		if herr.Status == http.StatusTooManyRequests {
			kind = council.KindRateLimit
		} else if herr.Status >= 500 {
			kind = council.KindNetwork
		}
		return council.ModelResponse{Model: model, Err: &council.QueryError{
			Kind:       kind,
			Message:    serverMessage(herr),
			RetryAfter: herr.RetryAfter,
		}}
	}
	defer resp.Body.Close()

	content, citations, usage, err := streamSSE(ctx, resp.Body, ch)
	latencyMs := time.Since(start).Milliseconds()
	if err != nil {
		if ctx.Err() != nil {
			return council.ModelResponse{Model: model, Err: cancelledError(ctx)}
		}
		return council.ModelResponse{Model: model, Err: &council.QueryError{
			Kind:    council.KindNetwork,
			Message: fmt.Sprintf("stream interrupted: %v", err),
		}}
	}
	if content == "" {
		return council.ModelResponse{Model: model, Err: &council.QueryError{
			Kind:    council.KindNoContent,
			Message: "stream produced no content",
		}}
	}

	return council.ModelResponse{
		Model:     model,
		Content:   content,
		Citations: citations,
		Meta:      meta(usage, latencyMs),
	}
}

// streamSSE reads an SSE stream from body, sends content deltas to ch,
// and returns the accumulated content, citations, and usage.
//
// SSE format expected:
//
//	data: {"id":"...","choices":[...]}\n
//	data: [DONE]\n
func streamSSE(ctx context.Context, body io.Reader, ch chan<- string) (string, []council.Citation, *Usage, error) {
	defer close(ch)

	scanner := bufio.NewScanner(body)
	// Increase buffer for large SSE payloads.
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	var full strings.Builder
	var citations []council.Citation
	var usage *Usage

	for scanner.Scan() {
		line := scanner.Text()

		// SSE lines that carry data start with "data: ".
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")

		// End-of-stream sentinel.
		if data == "[DONE]" {
			break
		}

		var chunk ChatResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// Skip malformed chunks.
			continue
		}

		// Usage may arrive in a choice-less final chunk.
		if chunk.Usage != nil {
			usage = chunk.Usage
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		delta := chunk.Choices[0].Delta
		if delta == nil {
			continue
		}

		if delta.Content != "" {
			full.WriteString(delta.Content)
			select {
			case ch <- delta.Content:
			case <-ctx.Done():
				return "", nil, nil, ctx.Err()
			}
		}
		if len(delta.Annotations) > 0 {
			citations = append(citations, ParseCitations(delta.Annotations)...)
		}
	}

	if err := scanner.Err(); err != nil {
		return "", nil, nil, err
	}
	return full.String(), citations, usage, nil
}
