package coordinator

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"boardsync/domain"
)

const (
	intentSpanName    = "coordinator.intent"
	intentEventName   = "board.intent"
	intentEventDomain = "boardsync"
)

// intentMetrics records one intent application as an otel span plus a
// structured observability event.
type intentMetrics struct {
	logger     *log.Logger
	span       trace.Span
	start      time.Time
	kind       domain.IntentKind
	errorStage string
	rolledBack bool
}

func newIntentMetrics(ctx context.Context, logger *log.Logger, kind domain.IntentKind) *intentMetrics {
	_, span := otel.Tracer("boardsync/coordinator").Start(ctx, intentSpanName)
	return &intentMetrics{
		logger: logger,
		span:   span,
		start:  time.Now(),
		kind:   kind,
	}
}

func (m *intentMetrics) SetStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

func (m *intentMetrics) SetRolledBack(rolledBack bool) {
	m.rolledBack = rolledBack
}

func (m *intentMetrics) Finish(err error) {
	if m == nil {
		return
	}
	totalMs := float64(time.Since(m.start)) / float64(time.Millisecond)

	attrs := []attribute.KeyValue{
		attribute.String("boardsync.intent.kind", string(m.kind)),
		attribute.Float64("boardsync.intent.total_ms", totalMs),
		attribute.Bool("boardsync.intent.rolled_back", m.rolledBack),
	}
	if m.errorStage != "" {
		attrs = append(attrs, attribute.String("boardsync.intent.error_stage", m.errorStage))
	}
	m.span.SetAttributes(attrs...)
	if err != nil {
		m.span.SetStatus(codes.Error, err.Error())
	} else {
		m.span.SetStatus(codes.Ok, "")
	}
	m.span.AddEvent("observability.event")
	m.span.End()

	if m.logger == nil {
		return
	}
	fields := log.Fields{
		"event.name":   intentEventName,
		"event.domain": intentEventDomain,
		"attributes": map[string]any{
			"boardsync.intent.kind":        string(m.kind),
			"boardsync.intent.total_ms":    totalMs,
			"boardsync.intent.rolled_back": m.rolledBack,
			"boardsync.intent.error_stage": m.errorStage,
		},
	}
	if sc := m.span.SpanContext(); sc.IsValid() {
		fields["trace_id"] = sc.TraceID().String()
	}
	entry := m.logger.WithFields(fields)
	if err != nil {
		entry.WithField("error", err.Error()).Warn("observability.event")
		return
	}
	entry.Info("observability.event")
}
