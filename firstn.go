package council

import (
	"context"
	"log/slog"
)

// queryFirstN races the requests and resolves as soon as n of them have
// settled. Settling counts both success and failure toward n, so a dead
// model cannot stall the race. The remaining in-flight requests are
// cancelled and their slots filled with the first-N sentinel. Output
// preserves input order.
//
// With n <= 0 or n >= len(reqs) the race degenerates to a plain fan-out.
func queryFirstN(ctx context.Context, backend Backend, round int, reqs []modelRequest, opts QueryOptions, n int, reporter *progressReporter, logger *slog.Logger) RoundResult {
	if n <= 0 || n >= len(reqs) {
		return queryAll(ctx, backend, round, reqs, opts, reporter)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type settlement struct {
		index int
		resp  ModelResponse
	}

	// Buffered to len(reqs): goroutines abandoned after the race concludes
	// still complete their send and exit without leaking.
	ch := make(chan settlement, len(reqs))
	for i, req := range reqs {
		reporter.emit(round, req.Ref.ID, ProgressQuerying)
		go func() {
			resp := backend.QueryModel(ctx, req.Ref.ID, req.Messages, opts)
			resp.Model = req.Ref.ID
			ch <- settlement{index: i, resp: resp}
		}()
	}

	results := make(RoundResult, len(reqs))
	settled := make([]bool, len(reqs))
	for count := 0; count < n; count++ {
		s := <-ch
		results[s.index] = s.resp
		settled[s.index] = true
		reporter.settled(round, s.resp)
	}
	cancel() // race concluded; abort the rest

	var skipped []string
	for i := range reqs {
		if !settled[i] {
			results[i] = ModelResponse{Model: reqs[i].Ref.ID, Err: firstNSentinel()}
			reporter.emit(round, reqs[i].Ref.ID, ProgressError)
			skipped = append(skipped, reqs[i].Ref.ID)
		}
	}
	if len(skipped) > 0 {
		logger.Debug("first-n race concluded", "round", round, "first_n", n, "skipped", skipped)
	}
	return results
}
