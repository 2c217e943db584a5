package usecase

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/bibbank/loanservicing/internal/application/usecase"

var tracer = otel.Tracer(instrumentationName)

// replayMetrics are the instruments recorded around schedule replays.
type replayMetrics struct {
	replays    metric.Int64Counter
	superseded metric.Int64Counter
	duration   metric.Float64Histogram
}

// newReplayMetrics creates the instruments on the global meter provider.
// Instruments that cannot be created fall back to no-ops.
func newReplayMetrics() replayMetrics {
	meter := otel.Meter(instrumentationName)
	m := replayMetrics{
		replays:    noop.Int64Counter{},
		superseded: noop.Int64Counter{},
		duration:   noop.Float64Histogram{},
	}
	if c, err := meter.Int64Counter("loanservicing.replays",
		metric.WithDescription("Schedule replays by mode and outcome")); err == nil {
		m.replays = c
	} else {
		otel.Handle(err)
	}
	if c, err := meter.Int64Counter("loanservicing.transactions.superseded",
		metric.WithDescription("Persisted transactions replaced by a replay")); err == nil {
		m.superseded = c
	} else {
		otel.Handle(err)
	}
	if h, err := meter.Float64Histogram("loanservicing.replay.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Duration of schedule replays")); err == nil {
		m.duration = h
	} else {
		otel.Handle(err)
	}
	return m
}

// record adds one replay. mode is "full" or "single".
func (m replayMetrics) record(ctx context.Context, mode string, started time.Time, superseded int, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("outcome", outcome),
	)
	m.replays.Add(ctx, 1, attrs)
	m.duration.Record(ctx, time.Since(started).Seconds(), attrs)
	if superseded > 0 {
		m.superseded.Add(ctx, int64(superseded))
	}
}

func startSpan(ctx context.Context, name, tenantID, loanID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("tenant.id", tenantID),
		attribute.String("loan.id", loanID),
	))
}

// endSpan marks the span failed when err is set and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
