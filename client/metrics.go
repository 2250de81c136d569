package client

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "board-sync/client"

// requestMetrics collects per-call timings for one backend request and emits
// them as an otel span plus a structured log event when the call settles.
type requestMetrics struct {
	logger *log.Logger
	span   trace.Span
	op     string
	method string
	path   string

	start          time.Time
	authDuration   time.Duration
	callDuration   time.Duration
	decodeDuration time.Duration
}

func newRequestMetrics(ctx context.Context, logger *log.Logger, op, method, path string) (*requestMetrics, context.Context) {
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, op, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.path", path),
	)
	return &requestMetrics{
		logger: logger,
		span:   span,
		op:     op,
		method: method,
		path:   path,
		start:  time.Now(),
	}, spanCtx
}

func (m *requestMetrics) ObserveAuth(d time.Duration) {
	if d > 0 {
		m.authDuration = d
	}
}

func (m *requestMetrics) ObserveCall(d time.Duration) {
	if d > 0 {
		m.callDuration = d
	}
}

func (m *requestMetrics) ObserveDecode(d time.Duration) {
	if d > 0 {
		m.decodeDuration = d
	}
}

// Log finalizes the span and writes the metrics event. status is zero when no
// HTTP response was received.
func (m *requestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}

	fields := log.Fields{
		"event.name": m.op,
		"method":     m.method,
		"path":       m.path,
		"total_ms":   durationToMillis(time.Since(m.start)),
	}
	if status != 0 {
		fields["status"] = status
		m.span.SetAttributes(attribute.Int("http.status_code", status))
	}
	if m.authDuration > 0 {
		fields["auth_ms"] = durationToMillis(m.authDuration)
	}
	if m.callDuration > 0 {
		fields["call_ms"] = durationToMillis(m.callDuration)
	}
	if m.decodeDuration > 0 {
		fields["decode_ms"] = durationToMillis(m.decodeDuration)
	}
	if sc := m.span.SpanContext(); sc.HasTraceID() {
		fields["trace_id"] = sc.TraceID().String()
	}

	if err != nil {
		fields["error"] = err.Error()
		m.span.RecordError(err)
		m.span.SetStatus(codes.Error, err.Error())
		if m.logger != nil {
			m.logger.WithFields(fields).Warn("backend.request")
		}
	} else {
		m.span.SetStatus(codes.Ok, "")
		if m.logger != nil {
			m.logger.WithFields(fields).Info("backend.request")
		}
	}
	m.span.End()
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
