package council

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ErrorKind classifies a per-model failure.
type ErrorKind string

const (
	// KindRateLimit is a 429 after retries are exhausted.
	KindRateLimit ErrorKind = "rate_limit"
	// KindNetwork is a transport or upstream failure after retries are exhausted.
	KindNetwork ErrorKind = "network"
	// KindValidation is a structurally invalid backend response.
	KindValidation ErrorKind = "validation"
	// KindRemoteAPI is a non-retryable HTTP error (400-range except 429).
	KindRemoteAPI ErrorKind = "remote_api"
	// KindCancelled is a request terminated via context cancellation.
	KindCancelled ErrorKind = "cancelled"
	// KindSkipped marks a slot not raced to completion under first-N.
	KindSkipped ErrorKind = "skipped"
	// KindTimeLimit marks a success dropped by the time-limit filter.
	KindTimeLimit ErrorKind = "time_limit"
	// KindNoContent is a synthesis over zero successful responses.
	KindNoContent ErrorKind = "no_content"
)

// Sentinel error texts that downstream logic branches on. The exact
// strings are part of the contract.
const (
	FirstNSentinelMessage  = "Response not needed (first-n limit reached)"
	TimeLimitMessagePrefix = "Filtered: exceeded time limit"
	NoContentMessage       = "No successful responses to synthesize"
)

// QueryError is a per-model failure captured in a response slot.
// It never propagates up; it rides inside ModelResponse.Err.
type QueryError struct {
	Kind       ErrorKind     `json:"kind"`
	Message    string        `json:"message"`
	RetryAfter time.Duration `json:"-"` // rate-limit hint, when the server provided one
}

func (e *QueryError) Error() string { return e.Message }

// firstNSentinel returns the reserved error used for slots that were not
// needed to conclude a first-N race.
func firstNSentinel() *QueryError {
	return &QueryError{Kind: KindSkipped, Message: FirstNSentinelMessage}
}

// IsFirstNSentinel reports whether e is the first-N sentinel. Matching is
// by exact message text, per the contract.
func IsFirstNSentinel(e *QueryError) bool {
	return e != nil && e.Message == FirstNSentinelMessage
}

// timeLimitError returns the reserved error for responses dropped by the
// time-limit filter.
func timeLimitError(limit time.Duration) *QueryError {
	return &QueryError{
		Kind:    KindTimeLimit,
		Message: fmt.Sprintf("%s (%s)", TimeLimitMessagePrefix, limit),
	}
}

// Cancelled returns the error placed in a slot whose request was aborted
// via the session context.
func Cancelled() *QueryError {
	return &QueryError{Kind: KindCancelled, Message: "Request cancelled"}
}

// --- Wire-level errors ---

// ErrHTTP is a non-2xx response from the completion gateway. The backend
// client uses it to drive retry decisions before classifying the final
// failure into a QueryError.
type ErrHTTP struct {
	Status     int
	Body       string
	RetryAfter time.Duration
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// Retryable reports whether the status is transient: 429 or any 5xx.
func (e *ErrHTTP) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// ParseRetryAfter parses an HTTP Retry-After header value: either integer
// seconds or an HTTP date. Returns 0 when the value is absent or invalid.
func ParseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// --- Guard errors ---

// ErrBlocked is returned when the prompt guard refuses a session before
// any network call is made.
type ErrBlocked struct {
	Response string // safe message to show the user
}

func (e *ErrBlocked) Error() string { return "prompt blocked: " + e.Response }
