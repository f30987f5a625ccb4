package council

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// SessionState represents the execution state of a background session.
type SessionState int32

const (
	// SessionPending indicates the session has started but dispatch has not begun.
	SessionPending SessionState = iota
	// SessionRunning indicates the deliberation is in progress.
	SessionRunning
	// SessionCompleted indicates the deliberation finished.
	SessionCompleted
	// SessionFailed indicates the deliberation returned an error.
	SessionFailed
	// SessionCancelled indicates the session was cancelled via Cancel() or parent context.
	SessionCancelled
)

// String returns the state name.
func (s SessionState) String() string {
	switch s {
	case SessionPending:
		return "pending"
	case SessionRunning:
		return "running"
	case SessionCompleted:
		return "completed"
	case SessionFailed:
		return "failed"
	case SessionCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether the state is final.
func (s SessionState) IsTerminal() bool {
	return s == SessionCompleted || s == SessionFailed || s == SessionCancelled
}

// SessionHandle tracks a deliberation running in a background goroutine.
// All methods are safe for concurrent use. Front ends that cannot block
// start a session and multiplex on Done().
type SessionHandle struct {
	id     string
	state  atomic.Int32
	result ConsensusResponse
	err    error
	done   chan struct{}
	cancel context.CancelFunc
}

// Start launches c.QueryWithConsensus(ctx, prompt) in a background
// goroutine and returns immediately with a handle for awaiting and
// cancelling. The parent ctx controls the session's lifetime.
func Start(ctx context.Context, c *Council, prompt string) *SessionHandle {
	ctx, cancel := context.WithCancel(ctx)
	h := &SessionHandle{
		id:     NewID(),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	h.state.Store(int32(SessionPending))

	logger := c.logger
	logger.Info("session spawned", "handle_id", h.id)

	go func() {
		defer cancel() // release context resources on completion
		defer func() {
			if p := recover(); p != nil {
				logger.Error("session panic", "handle_id", h.id, "panic", fmt.Sprintf("%v", p))
				h.result = ConsensusResponse{}
				h.err = fmt.Errorf("session panic: %v", p)
				h.state.Store(int32(SessionFailed))
				close(h.done)
			}
		}()
		h.state.Store(int32(SessionRunning))
		start := time.Now()
		result, err := c.QueryWithConsensus(ctx, prompt)

		// Write result/err before close(done). The channel close is the
		// happens-before barrier: all readers (<-h.done in Await, State,
		// Result) are guaranteed to see these writes after the close.
		h.result = result
		h.err = err
		switch {
		case ctx.Err() != nil && !result.AnySuccess():
			h.state.Store(int32(SessionCancelled))
			logger.Info("session cancelled", "handle_id", h.id, "duration", time.Since(start))
		case err != nil:
			h.state.Store(int32(SessionFailed))
			logger.Error("session failed", "handle_id", h.id, "error", err, "duration", time.Since(start))
		default:
			h.state.Store(int32(SessionCompleted))
			logger.Info("session completed", "handle_id", h.id, "duration", time.Since(start))
		}
		close(h.done)
	}()

	return h
}

// ID returns the unique handle identifier (UUIDv7, time-sortable).
func (h *SessionHandle) ID() string { return h.id }

// State returns the current execution state. If the state is terminal,
// State blocks until Done() is closed (nanoseconds) to guarantee that
// Result() returns valid data when State().IsTerminal() is true.
func (h *SessionHandle) State() SessionState {
	s := SessionState(h.state.Load())
	if s.IsTerminal() {
		<-h.done
	}
	return s
}

// Done returns a channel closed when the session reaches a terminal
// state. Composable with select for multiplexing multiple handles.
func (h *SessionHandle) Done() <-chan struct{} { return h.done }

// Await blocks until the session completes or ctx is cancelled.
// Returns zero ConsensusResponse and ctx.Err() if ctx is cancelled first.
func (h *SessionHandle) Await(ctx context.Context) (ConsensusResponse, error) {
	select {
	case <-h.done:
		return h.result, h.err
	case <-ctx.Done():
		return ConsensusResponse{}, ctx.Err()
	}
}

// Result returns the result and error. Only meaningful after Done() is
// closed; before completion it returns a zero ConsensusResponse.
func (h *SessionHandle) Result() (ConsensusResponse, error) {
	select {
	case <-h.done:
		return h.result, h.err
	default:
		return ConsensusResponse{}, nil
	}
}

// Cancel requests cancellation. Non-blocking and idempotent. In-flight
// requests abort promptly and settle as Cancelled slots.
func (h *SessionHandle) Cancel() { h.cancel() }
