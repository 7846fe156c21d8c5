package obs

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shillcollin/chorus/core"
)

// Span attribute keys shared by the providers and the broadcast orchestrator.
const (
	AttrProvider  = attribute.Key("ai.provider")
	AttrModel     = attribute.Key("ai.model")
	AttrOperation = attribute.Key("ai.operation")
	AttrErrorCode = attribute.Key("ai.error.code")
)

// ProviderAttr tags telemetry with the provider serving the request.
func ProviderAttr(name string) attribute.KeyValue { return AttrProvider.String(name) }

// ModelAttr tags telemetry with the resolved model identifier.
func ModelAttr(name string) attribute.KeyValue { return AttrModel.String(name) }

// OperationAttr tags telemetry with the wire operation, e.g. "chat.completions".
func OperationAttr(name string) attribute.KeyValue { return AttrOperation.String(name) }

// RequestRecorder tracks one provider request from span start to completion.
type RequestRecorder struct {
	start time.Time
	span  trace.Span
	attrs []attribute.KeyValue
}

// StartRequest opens a span for a provider request and counts it.
func StartRequest(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, *RequestRecorder) {
	tracer := Tracer()
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	recordRequest(attrs...)
	return ctx, &RequestRecorder{start: time.Now(), span: span, attrs: attrs}
}

// End closes the span and emits latency and token metrics. Errors carrying a
// typed code are stamped on the span so backends can filter by failure class.
func (r *RequestRecorder) End(err error, usage UsageTokens) {
	if r == nil {
		return
	}
	if err != nil {
		var aiErr *core.AIError
		if errors.As(err, &aiErr) {
			r.span.SetAttributes(AttrErrorCode.String(string(aiErr.Code)))
		}
		r.span.RecordError(err)
		r.span.SetStatus(codes.Error, err.Error())
	}
	if usage.TotalTokens > 0 || usage.InputTokens > 0 || usage.OutputTokens > 0 {
		r.span.SetAttributes(
			attribute.Int("ai.tokens.input", usage.InputTokens),
			attribute.Int("ai.tokens.output", usage.OutputTokens),
			attribute.Int("ai.tokens.total", usage.TotalTokens),
		)
		RecordUsage(usage, r.attrs...)
	}
	recordLatency(time.Since(r.start).Seconds()*1000, r.attrs...)
	r.span.End()
}

// AddAttributes appends attributes to the span and to subsequent metric records.
func (r *RequestRecorder) AddAttributes(attrs ...attribute.KeyValue) {
	if r == nil {
		return
	}
	r.attrs = append(r.attrs, attrs...)
	r.span.SetAttributes(attrs...)
}
