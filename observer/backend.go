package observer

import (
	"context"
	"time"

	council "github.com/nevindra/council"

	"go.opentelemetry.io/otel/codes"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ObservedBackend wraps a council.Backend with OTEL instrumentation.
// Each per-model query becomes a span with token, cost, and duration
// attributes; failures record the error kind without changing the
// error-as-data contract.
type ObservedBackend struct {
	inner   council.Backend
	inst    *Instruments
	pricing *council.Pricing
}

// WrapBackend returns an instrumented backend. The pricing table is used
// to attribute per-query cost on metrics; pass council.DefaultPricing()
// when no custom table is configured.
func WrapBackend(inner council.Backend, inst *Instruments, pricing *council.Pricing) *ObservedBackend {
	if pricing == nil {
		pricing = council.DefaultPricing()
	}
	return &ObservedBackend{inner: inner, inst: inst, pricing: pricing}
}

func (o *ObservedBackend) QueryModel(ctx context.Context, model string, messages []council.Message, opts council.QueryOptions) council.ModelResponse {
	ctx, span := o.inst.Tracer.Start(ctx, "council.query", trace.WithAttributes(
		AttrModel.String(model),
	))
	defer span.End()
	start := time.Now()

	resp := o.inner.QueryModel(ctx, model, messages, opts)

	durationMs := float64(time.Since(start).Milliseconds())
	status := "ok"
	if !resp.OK() {
		status = "error"
		span.SetStatus(codes.Error, resp.Err.Message)
		span.SetAttributes(AttrKind.String(string(resp.Err.Kind)))
	}

	o.record(ctx, span, model, status, durationMs, resp)
	return resp
}

func (o *ObservedBackend) Models(ctx context.Context) ([]council.ModelInfo, error) {
	ctx, span := o.inst.Tracer.Start(ctx, "council.models")
	defer span.End()

	models, err := o.inner.Models(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(AttrModelCount.Int(len(models)))
	return models, err
}

func (o *ObservedBackend) record(ctx context.Context, span trace.Span, model, status string, durationMs float64, resp council.ModelResponse) {
	var promptTokens, completionTokens, totalTokens int
	if resp.Meta != nil {
		promptTokens = resp.Meta.PromptTokens
		completionTokens = resp.Meta.CompletionTokens
		totalTokens = resp.Meta.TotalTokens
	}
	cost := o.pricing.Estimate(model, totalTokens)

	span.SetAttributes(
		AttrTokensPrompt.Int(promptTokens),
		AttrTokensCompletion.Int(completionTokens),
		AttrCostUSD.Float64(cost),
	)

	modelAttrs := metric.WithAttributes(AttrModel.String(model))
	o.inst.TokenUsage.Add(ctx, int64(totalTokens), modelAttrs)
	o.inst.CostTotal.Add(ctx, cost, modelAttrs)
	o.inst.QueryRequests.Add(ctx, 1, metric.WithAttributes(
		AttrModel.String(model),
		AttrStatus.String(status),
	))
	o.inst.QueryDuration.Record(ctx, durationMs, modelAttrs)

	// Structured log
	var rec otellog.Record
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetBody(otellog.StringValue("model query completed"))
	rec.AddAttributes(
		otellog.String("llm.model", model),
		otellog.Int("llm.tokens.prompt", promptTokens),
		otellog.Int("llm.tokens.completion", completionTokens),
		otellog.Float64("llm.cost_usd", cost),
		otellog.Float64("llm.duration_ms", durationMs),
		otellog.String("status", status),
	)
	o.inst.Logger.Emit(ctx, rec)
}

// RecordSession emits session-level metrics and a summary log record
// after a deliberation finishes. Front ends call this once per
// ConsensusResponse.
func (o *ObservedBackend) RecordSession(ctx context.Context, resp council.ConsensusResponse, durationMs float64) {
	status := "error"
	if resp.AnySuccess() {
		status = "ok"
	}
	attrs := metric.WithAttributes(AttrStatus.String(status))
	o.inst.Sessions.Add(ctx, 1, attrs)
	o.inst.SessionDuration.Record(ctx, durationMs, attrs)

	var rec otellog.Record
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetBody(otellog.StringValue("deliberation session completed"))
	rec.AddAttributes(
		otellog.String(string(AttrSessionID), resp.SessionID),
		otellog.String(string(AttrStatus), status),
		otellog.Float64("duration_ms", durationMs),
	)
	if resp.Metadata != nil {
		rec.AddAttributes(
			otellog.Int(string(AttrModelCount), resp.Metadata.ModelCount),
			otellog.Float64(string(AttrCostUSD), resp.Metadata.TotalCost),
		)
	}
	o.inst.Logger.Emit(ctx, rec)
}

// Compile-time interface check.
var _ council.Backend = (*ObservedBackend)(nil)
