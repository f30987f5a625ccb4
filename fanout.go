package council

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// modelRequest pairs a council member with the message list prepared for
// it. System prompt overrides make the list per-model.
type modelRequest struct {
	Ref      ModelRef
	Messages []Message
}

// queryAll dispatches one concurrent query per request and waits for all
// of them to settle. The returned vector has one slot per request, in
// input order, independent of completion order. A failure in one slot
// never affects the others; cancelling ctx aborts every child request.
func queryAll(ctx context.Context, backend Backend, round int, reqs []modelRequest, opts QueryOptions, reporter *progressReporter) RoundResult {
	results := make(RoundResult, len(reqs))

	var g errgroup.Group
	for i, req := range reqs {
		g.Go(func() error {
			reporter.emit(round, req.Ref.ID, ProgressQuerying)
			resp := backend.QueryModel(ctx, req.Ref.ID, req.Messages, opts)
			resp.Model = req.Ref.ID // slot identity is fixed by input order
			results[i] = resp
			reporter.settled(round, resp)
			return nil
		})
	}
	// Goroutines record failures in their slots and always return nil.
	_ = g.Wait()
	return results
}
