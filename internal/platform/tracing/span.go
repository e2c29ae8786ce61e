// Package tracing holds the OpenTelemetry helpers shared by the outbound
// clients.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys used on enrollment spans.
const (
	AttrSessionID     = attribute.Key("enrollment.session_id")
	AttrTemplateID    = attribute.Key("enrollment.template_id")
	AttrFingerprintID = attribute.Key("enrollment.fingerprint_id")
	AttrCourseCount   = attribute.Key("enrollment.course_count")
	AttrHTTPStatus    = attribute.Key("http.response.status_code")
	AttrPeer          = attribute.Key("server.address")
)

// Tracer returns the named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	return otel.GetTracerProvider().Tracer(name)
}

// StartSpan starts a span, or returns the context's span when tracer is nil.
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

// RecordError marks span as failed. The status text stays generic; the error
// itself is attached as an event.
func RecordError(span trace.Span, err error) {
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation failed")
	}
}
