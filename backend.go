package council

import "context"

// Backend speaks the chat-completion wire protocol to a single remote
// gateway. provider/openrouter supplies the production implementation;
// tests substitute stubs.
type Backend interface {
	// QueryModel queries one model with an ordered message list. It never
	// returns a Go error under normal operation: failures are materialized
	// as a ModelResponse carrying Err. Cancellation of ctx aborts the
	// in-flight attempt and yields a Cancelled slot.
	QueryModel(ctx context.Context, model string, messages []Message, opts QueryOptions) ModelResponse

	// Models retrieves the catalog of available models. This is the only
	// backend operation that may propagate a network failure to the caller.
	Models(ctx context.Context) ([]ModelInfo, error)
}
