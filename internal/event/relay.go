package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/Palak111111/Scrapify-server/internal/domain"
	"github.com/Palak111111/Scrapify-server/internal/repository"
	pkgkafka "github.com/Palak111111/Scrapify-server/pkg/kafka"
	"github.com/Palak111111/Scrapify-server/pkg/logger"
)

// Publisher writes an event to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// RelayConfig tunes the outbox relay.
type RelayConfig struct {
	PollInterval time.Duration
	BatchSize    int
	// MaxAttempts must match the outbox store's limit. A record whose
	// attempt reaches it is reported as parked.
	MaxAttempts int
	Breaker     BreakerConfig
}

// Relay moves outbox records to Kafka. A record is marked dispatched only
// after the broker acknowledged it, so delivery is at least once.
type Relay struct {
	outbox    repository.OutboxRepository
	publisher Publisher
	breaker   *gobreaker.CircuitBreaker[struct{}]
	cfg       RelayConfig
	metrics   *RelayMetrics
	logger    *slog.Logger
}

// NewRelay creates a relay publishing through a circuit breaker.
func NewRelay(outbox repository.OutboxRepository, publisher Publisher, cfg RelayConfig, metrics *RelayMetrics, logger *slog.Logger) *Relay {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = domain.DefaultOutboxMaxAttempts
	}
	if cfg.Breaker.Name == "" {
		cfg.Breaker = DefaultBreakerConfig("outbox-kafka")
	}
	return &Relay{
		outbox:    outbox,
		publisher: publisher,
		breaker:   newBreaker(cfg.Breaker, metrics.BreakerState, logger),
		cfg:       cfg,
		metrics:   metrics,
		logger:    logger,
	}
}

// Run polls the outbox until ctx is canceled.
func (r *Relay) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "outbox relay started",
		slog.Duration("poll_interval", r.cfg.PollInterval),
		slog.Int("batch_size", r.cfg.BatchSize),
	)

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := r.DispatchPending(ctx); err != nil && ctx.Err() == nil {
			r.logger.ErrorContext(ctx, "outbox poll failed", logger.Err(err))
		}

		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopping")
			return nil
		case <-ticker.C:
		}
	}
}

// DispatchPending publishes one batch of pending records and returns how
// many were dispatched. Failed records stay pending for the next poll. While
// the breaker is open the rest of the batch is left untouched.
func (r *Relay) DispatchPending(ctx context.Context) (int, error) {
	records, err := r.outbox.ListPending(ctx, r.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("list pending outbox records: %w", err)
	}
	r.metrics.Pending.Set(float64(len(records)))

	dispatched := 0
	for i := range records {
		rec := &records[i]

		err := r.publish(ctx, rec)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			r.metrics.Rejected.Inc()
			r.logger.WarnContext(ctx, "circuit breaker open, outbox dispatch paused",
				slog.Int("remaining", len(records)-i),
			)
			break
		}
		if err != nil {
			r.metrics.Failed.WithLabelValues(rec.EventType).Inc()
			r.logger.ErrorContext(ctx, "failed to publish outbox record",
				slog.String("event_id", rec.EventID),
				slog.String("event_type", rec.EventType),
				slog.Int("attempts", rec.Attempts+1),
				logger.Err(err),
			)
			if markErr := r.outbox.MarkFailed(ctx, rec.ID, err.Error()); markErr != nil {
				r.logger.ErrorContext(ctx, "failed to record outbox failure",
					slog.String("event_id", rec.EventID),
					logger.Err(markErr),
				)
				continue
			}
			if rec.Attempts+1 >= r.cfg.MaxAttempts {
				r.metrics.Parked.WithLabelValues(rec.EventType).Inc()
				r.logger.ErrorContext(ctx, "outbox record parked, no attempts left",
					slog.String("event_id", rec.EventID),
					slog.String("event_type", rec.EventType),
					slog.Int("attempts", rec.Attempts+1),
				)
			}
			continue
		}

		r.metrics.Dispatched.WithLabelValues(rec.EventType).Inc()
		dispatched++

		// A record that cannot be marked is published again on the next
		// poll; consumers deduplicate by event id.
		if err := r.outbox.MarkDispatched(ctx, rec.ID); err != nil {
			r.logger.ErrorContext(ctx, "failed to mark outbox record dispatched",
				slog.String("event_id", rec.EventID),
				logger.Err(err),
			)
		}
	}

	if dispatched > 0 {
		r.logger.DebugContext(ctx, "outbox records dispatched", slog.Int("count", dispatched))
	}
	return dispatched, nil
}

func (r *Relay) publish(ctx context.Context, rec *domain.OutboxRecord) error {
	evt, err := pkgkafka.NewEvent(rec.EventType, rec.AggregateID, aggregateType(rec.EventType), Source, rec.Payload)
	if err != nil {
		return err
	}
	evt.WithEventID(rec.EventID).WithMetadata("outbox_attempt", strconv.Itoa(rec.Attempts+1))

	_, err = r.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, r.publisher.Publish(ctx, TopicFor(rec.EventType), evt)
	})
	return err
}
