package observer

import "go.opentelemetry.io/otel/attribute"

// Attribute keys for deliberation spans and metrics.
var (
	AttrModel  = attribute.Key("llm.model")
	AttrStatus = attribute.Key("council.status")
	AttrKind   = attribute.Key("council.error_kind")

	AttrTokensPrompt     = attribute.Key("llm.tokens.prompt")
	AttrTokensCompletion = attribute.Key("llm.tokens.completion")
	AttrCostUSD          = attribute.Key("llm.cost_usd")

	AttrSessionID  = attribute.Key("council.session_id")
	AttrModelCount = attribute.Key("council.model_count")
)
