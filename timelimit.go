package council

import (
	"log/slog"
	"time"
)

// applyTimeLimit drops successful responses whose measured latency
// exceeded the per-round budget, replacing them with a TimeLimit error
// slot. Error responses pass through untouched: they failed for reasons
// unrelated to time. So do successes without meta, since there is no
// latency to judge them by. The filter is post-hoc: it never shortens an
// in-flight request.
func applyTimeLimit(round RoundResult, limit time.Duration, logger *slog.Logger) RoundResult {
	out := make(RoundResult, len(round))
	var dropped []string
	for i, resp := range round {
		if resp.OK() && resp.Meta != nil && resp.Meta.LatencyMs > limit.Milliseconds() {
			out[i] = ModelResponse{Model: resp.Model, Err: timeLimitError(limit)}
			dropped = append(dropped, resp.Model)
			continue
		}
		out[i] = resp
	}
	if len(dropped) > 0 {
		logger.Info("responses dropped by time limit", "limit", limit, "models", dropped)
	}
	return out
}
