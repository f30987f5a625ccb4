package council

// --- Chat protocol types ---

// Message roles used in completion requests.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single entry in a completion request. Messages are ordered;
// a request carries a finite sequence.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SystemMessage returns a Message with role "system".
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

// UserMessage returns a Message with role "user".
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// AssistantMessage returns a Message with role "assistant".
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

// --- Model references ---

// DefaultSystemPrompt is used when neither the model nor the council
// declares a system prompt.
const DefaultSystemPrompt = "You are a thoughtful expert. Answer the question directly and concisely."

// ModelRef identifies a council member: a model id plus an optional
// per-model system prompt override.
type ModelRef struct {
	ID     string `json:"id"`
	System string `json:"system,omitempty"`
}

// Model returns a ModelRef with no system override.
func Model(id string) ModelRef {
	return ModelRef{ID: id}
}

// ModelWithSystem returns a ModelRef carrying a per-model system prompt.
func ModelWithSystem(id, system string) ModelRef {
	return ModelRef{ID: id, System: system}
}

// EffectiveSystem resolves the system prompt for this model:
// the model's override if present, else the council's system prompt,
// else DefaultSystemPrompt.
func (r ModelRef) EffectiveSystem(councilSystem string) string {
	if r.System != "" {
		return r.System
	}
	if councilSystem != "" {
		return councilSystem
	}
	return DefaultSystemPrompt
}

// --- Query options ---

// WebSearch requests search augmentation for a query. Exactly one encoding
// is chosen per call: MaxResults selects the web plugin, SearchContext
// selects provider-native search sizing, and a bare Enabled flag selects
// the ":online" model variant.
type WebSearch struct {
	Enabled       bool   `json:"enabled"`
	MaxResults    int    `json:"max_results,omitempty"`    // 1..50; 0 = unset
	SearchContext string `json:"search_context,omitempty"` // "low", "medium", "high"; "" = unset
}

// QueryOptions is the option bundle carried through the orchestrator.
// Cancellation rides on the context passed to each operation.
type QueryOptions struct {
	Temperature float64    `json:"temperature"`          // 0..2
	MaxTokens   int        `json:"max_tokens,omitempty"` // 0 = provider default
	WebSearch   *WebSearch `json:"web_search,omitempty"`
	FirstN      int        `json:"first_n,omitempty"` // 0 = disabled
}

// --- Responses ---

// Citation is a web-search source reference with byte offsets into the
// response content.
type Citation struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	Content    string `json:"content,omitempty"`
	StartIndex int    `json:"start_index"`
	EndIndex   int    `json:"end_index"`
}

// ResponseMeta holds usage and accounting data for a successful response.
// LatencyMs is measured by the orchestrator wall clock, from dispatch to
// final settle, retry waits included.
type ResponseMeta struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	LatencyMs        int64   `json:"latency_ms"`
	EstimatedCost    float64 `json:"estimated_cost"`
}

// ModelResponse is the result of querying one model. Exactly one of
// Content and Err is meaningful: a success carries Content (plus optional
// Citations and Meta), a failure carries Err.
type ModelResponse struct {
	Model     string        `json:"model"`
	Content   string        `json:"content,omitempty"`
	Citations []Citation    `json:"citations,omitempty"`
	Meta      *ResponseMeta `json:"meta,omitempty"`
	Err       *QueryError   `json:"error,omitempty"`
}

// OK reports whether the response is a success.
func (r ModelResponse) OK() bool { return r.Err == nil }

// RoundResult is one fan-out pass: an ordered vector of responses, one
// slot per council model, slot i corresponding to model i.
type RoundResult []ModelResponse

// AnySuccess reports whether at least one slot carries content.
func (r RoundResult) AnySuccess() bool {
	for _, resp := range r {
		if resp.OK() {
			return true
		}
	}
	return false
}

// Metadata summarizes a finished session.
type Metadata struct {
	TotalCost      float64 `json:"total_cost"`
	TotalTokens    int     `json:"total_tokens"`
	AverageLatency int64   `json:"average_latency_ms"`
	ModelCount     int     `json:"model_count"`
}

// ConsensusResponse is the full transcript of a deliberation session.
type ConsensusResponse struct {
	SessionID string         `json:"session_id"`
	Rounds    []RoundResult  `json:"rounds"`
	Synthesis *ModelResponse `json:"synthesis,omitempty"`
	Metadata  *Metadata      `json:"metadata,omitempty"`
}

// AnySuccess reports whether the final round contains at least one
// successful slot. Callers translate this to process exit codes.
func (c ConsensusResponse) AnySuccess() bool {
	if len(c.Rounds) == 0 {
		return false
	}
	return c.Rounds[len(c.Rounds)-1].AnySuccess()
}

// --- Model catalog ---

// ModelInfo is one entry from the backend's model catalog.
type ModelInfo struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	PromptPrice     string `json:"prompt_price,omitempty"` // per-token rate, as reported by the gateway
	CompletionPrice string `json:"completion_price,omitempty"`
	ContextLength   int    `json:"context_length,omitempty"`
}
