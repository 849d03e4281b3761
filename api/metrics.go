package api

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	moveEventName   = "task.move.request"
	moveEventDomain = "board"
	moveRoute       = "/api/tasks/move"
)

var tracer = otel.Tracer("taskboard-api/api")

// moveRequestMetrics accumulates timings for a single move request and emits
// them as one span plus one structured log line when the request finishes.
type moveRequestMetrics struct {
	logger *log.Logger
	span   trace.Span
	start  time.Time

	decodeDuration    time.Duration
	reconcileDuration time.Duration
	source            string
	dest              string
	targetIndex       int
	errorStage        string
}

func newMoveRequestMetrics(ctx context.Context, logger *log.Logger) (*moveRequestMetrics, context.Context) {
	spanCtx, span := tracer.Start(ctx, "PATCH "+moveRoute)
	return &moveRequestMetrics{logger: logger, span: span, start: time.Now()}, spanCtx
}

func (m *moveRequestMetrics) ObserveDecode(d time.Duration)    { m.decodeDuration = d }
func (m *moveRequestMetrics) ObserveReconcile(d time.Duration) { m.reconcileDuration = d }
func (m *moveRequestMetrics) SetErrorStage(stage string)       { m.errorStage = stage }

func (m *moveRequestMetrics) SetMove(source, dest string, targetIndex int) {
	m.source = source
	m.dest = dest
	m.targetIndex = targetIndex
}

// Log finishes the span and writes the observability event. Call exactly once.
func (m *moveRequestMetrics) Log(status int, err error) {
	total := time.Since(m.start)

	m.span.SetAttributes(
		attribute.String("http.route", moveRoute),
		attribute.Int("http.status_code", status),
		attribute.String("board.move.source", m.source),
		attribute.String("board.move.dest", m.dest),
		attribute.Int("board.move.target_index", m.targetIndex),
		attribute.Float64("board.move.total_ms", float64(total.Microseconds())/1000),
	)
	if err != nil {
		m.span.RecordError(err)
		m.span.SetStatus(codes.Error, err.Error())
	} else {
		m.span.SetStatus(codes.Ok, "")
	}
	m.span.End()

	severity := "INFO"
	attrs := map[string]any{
		"http.route":              moveRoute,
		"http.status_code":        status,
		"board.move.source":       m.source,
		"board.move.dest":         m.dest,
		"board.move.target_index": m.targetIndex,
		"board.move.decode_ms":    float64(m.decodeDuration.Microseconds()) / 1000,
		"board.move.reconcile_ms": float64(m.reconcileDuration.Microseconds()) / 1000,
		"board.move.total_ms":     float64(total.Microseconds()) / 1000,
	}
	if err != nil {
		severity = "ERROR"
		attrs["error.stage"] = m.errorStage
		attrs["error.message"] = err.Error()
	}

	m.logger.WithFields(log.Fields{
		"event.name":    moveEventName,
		"event.domain":  moveEventDomain,
		"severity_text": severity,
		"attributes":    attrs,
	}).Info("observability.event")
}
