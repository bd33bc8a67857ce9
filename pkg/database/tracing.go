package database

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Palak111111/Scrapify-server/pkg/logger"
)

const tracerName = "github.com/Palak111111/Scrapify-server/pkg/database"

// QueryTracer opens a client span per store operation and warns about
// operations slower than SlowThreshold. The zero value traces without
// slow-query logging.
type QueryTracer struct {
	System        string
	SlowThreshold time.Duration
	Logger        *slog.Logger
}

// NewQueryTracer creates a tracer for system ("postgresql", "mongodb").
func NewQueryTracer(system string, slow time.Duration, logger *slog.Logger) *QueryTracer {
	return &QueryTracer{System: system, SlowThreshold: slow, Logger: logger}
}

// Start begins a span; call the returned func with the operation's error:
//
//	ctx, end := t.Start(ctx, "InsertNotifications", "notifications")
//	defer func() { end(err) }()
func (t *QueryTracer) Start(ctx context.Context, operation, target string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "db."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", t.System),
			attribute.String("db.operation", operation),
			attribute.String("db.target", target),
		),
	)

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		if t.SlowThreshold <= 0 || t.Logger == nil {
			return
		}
		if elapsed := time.Since(start); elapsed >= t.SlowThreshold {
			attrs := []any{
				slog.String("db.system", t.System),
				slog.String("operation", operation),
				slog.String("target", target),
				slog.Duration("duration", elapsed),
			}
			if err != nil {
				attrs = append(attrs, logger.Err(err))
			}
			t.Logger.WarnContext(ctx, "slow query detected", attrs...)
		}
	}
}
