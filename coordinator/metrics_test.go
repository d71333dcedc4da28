package coordinator

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"boardsync/domain"
)

func setupTestTracer(t *testing.T) (*sdktrace.TracerProvider, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return tp, exporter
}

func TestIntentMetricsEmitsSpanAndEvent(t *testing.T) {
	logger, hook := test.NewNullLogger()
	_, exporter := setupTestTracer(t)

	m := newIntentMetrics(context.Background(), logger, domain.IntentMove)
	m.Finish(nil)

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name != intentSpanName {
		t.Fatalf("span name = %s", spans[0].Name)
	}

	entry := hook.LastEntry()
	if entry == nil || entry.Message != "observability.event" {
		t.Fatalf("expected observability event, got %+v", entry)
	}
	attrs, ok := entry.Data["attributes"].(map[string]any)
	if !ok {
		t.Fatalf("attributes not a map: %#v", entry.Data["attributes"])
	}
	if attrs["boardsync.intent.kind"] != string(domain.IntentMove) {
		t.Fatalf("kind attribute = %#v", attrs["boardsync.intent.kind"])
	}
	if attrs["boardsync.intent.rolled_back"] != false {
		t.Fatalf("rolled_back attribute = %#v", attrs["boardsync.intent.rolled_back"])
	}
}

func TestIntentMetricsRecordsRollback(t *testing.T) {
	logger, hook := test.NewNullLogger()
	_, exporter := setupTestTracer(t)

	m := newIntentMetrics(context.Background(), logger, domain.IntentReorder)
	m.SetStage("remote")
	m.SetRolledBack(true)
	m.Finish(errors.New("Conflict"))

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	entry := hook.LastEntry()
	if entry.Data["error"] != "Conflict" {
		t.Fatalf("error field = %#v", entry.Data["error"])
	}
	attrs := entry.Data["attributes"].(map[string]any)
	if attrs["boardsync.intent.error_stage"] != "remote" {
		t.Fatalf("error stage = %#v", attrs["boardsync.intent.error_stage"])
	}
	if attrs["boardsync.intent.rolled_back"] != true {
		t.Fatal("expected rolled_back attribute")
	}
}
