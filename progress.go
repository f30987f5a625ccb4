package council

// ProgressStatus is a per-model lifecycle phase. For any single model the
// sequence is preparing, querying, then complete or error; no ordering is
// guaranteed across models.
type ProgressStatus string

const (
	ProgressPreparing ProgressStatus = "preparing"
	ProgressQuerying  ProgressStatus = "querying"
	ProgressComplete  ProgressStatus = "complete"
	ProgressError     ProgressStatus = "error"
)

// ProgressFunc observes per-model progress. The orchestrator serializes
// invocations on a single reporter goroutine, so implementations need not
// be safe for concurrent use.
type ProgressFunc func(round int, model string, status ProgressStatus)

type progressEvent struct {
	round  int
	model  string
	status ProgressStatus
}

// progressReporter funnels events from concurrent query goroutines into a
// single goroutine that invokes the callback, preserving per-model order.
// A reporter with a nil callback drops events without the goroutine.
type progressReporter struct {
	ch   chan progressEvent
	done chan struct{}
}

func newProgressReporter(fn ProgressFunc) *progressReporter {
	if fn == nil {
		return &progressReporter{}
	}
	r := &progressReporter{
		ch:   make(chan progressEvent, 64),
		done: make(chan struct{}),
	}
	go func() {
		defer close(r.done)
		for ev := range r.ch {
			fn(ev.round, ev.model, ev.status)
		}
	}()
	return r
}

// emit queues one event. Safe to call from any goroutine.
func (r *progressReporter) emit(round int, model string, status ProgressStatus) {
	if r.ch == nil {
		return
	}
	r.ch <- progressEvent{round: round, model: model, status: status}
}

// settled emits the terminal event for a response: complete on success,
// error otherwise.
func (r *progressReporter) settled(round int, resp ModelResponse) {
	if resp.OK() {
		r.emit(round, resp.Model, ProgressComplete)
	} else {
		r.emit(round, resp.Model, ProgressError)
	}
}

// close drains queued events and waits for the reporter goroutine.
func (r *progressReporter) close() {
	if r.ch == nil {
		return
	}
	close(r.ch)
	<-r.done
}
