package client

import (
	"context"
	"errors"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) (*tracetest.InMemoryExporter, func()) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	return exporter, func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	}
}

func TestRequestMetricsEmitsSpanAndLogEvent(t *testing.T) {
	exporter, restore := setupTestTracer(t)
	defer restore()

	logger, hook := test.NewNullLogger()

	metrics, _ := newRequestMetrics(context.Background(), logger, "board.move_task", "POST", "/api/tasks/t1/move")
	metrics.ObserveAuth(time.Millisecond)
	metrics.ObserveCall(5 * time.Millisecond)
	metrics.Log(200, nil)

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name != "board.move_task" {
		t.Fatalf("unexpected span name: %s", spans[0].Name)
	}
	if spans[0].Status.Code != codes.Ok {
		t.Fatalf("expected Ok span status, got %v", spans[0].Status.Code)
	}

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatalf("expected a log entry")
	}
	if entry.Level != log.InfoLevel {
		t.Fatalf("unexpected level: %v", entry.Level)
	}
	if entry.Data["status"] != 200 {
		t.Fatalf("unexpected status field: %#v", entry.Data["status"])
	}
	if entry.Data["event.name"] != "board.move_task" {
		t.Fatalf("unexpected event name: %#v", entry.Data["event.name"])
	}
}

func TestRequestMetricsRecordsError(t *testing.T) {
	exporter, restore := setupTestTracer(t)
	defer restore()

	logger, hook := test.NewNullLogger()

	metrics, _ := newRequestMetrics(context.Background(), logger, "board.fetch_columns", "GET", "/api/projects/p1/columns")
	metrics.Log(0, errors.New("connection refused"))

	spans := exporter.GetSpans()
	if len(spans) != 1 || spans[0].Status.Code != codes.Error {
		t.Fatalf("expected error span, got %#v", spans)
	}
	entry := hook.LastEntry()
	if entry == nil || entry.Level != log.WarnLevel {
		t.Fatalf("expected warn entry, got %#v", entry)
	}
	if entry.Data["error"] != "connection refused" {
		t.Fatalf("unexpected error field: %#v", entry.Data["error"])
	}
	if _, ok := entry.Data["status"]; ok {
		t.Fatalf("status must be absent when no response was received")
	}
}
