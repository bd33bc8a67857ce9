package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Palak111111/Scrapify-server/pkg/logger"
)

// Handler processes one decoded event.
type Handler func(ctx context.Context, event *Event) error

// MessageReader is the subset of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ConsumerConfig holds Kafka consumer configuration.
type ConsumerConfig struct {
	Brokers    []string
	GroupID    string
	Topic      string
	MinBytes   int
	MaxBytes   int
	MaxRetries int
	Backoff    time.Duration
}

func (c ConsumerConfig) withDefaults() ConsumerConfig {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.Backoff <= 0 {
		c.Backoff = 100 * time.Millisecond
	}
	if c.MinBytes <= 0 {
		c.MinBytes = 1
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10e6
	}
	return c
}

// NewReader builds a consumer-group reader from cfg.
func NewReader(cfg ConsumerConfig) *kafka.Reader {
	cfg = cfg.withDefaults()
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: cfg.MinBytes,
		MaxBytes: cfg.MaxBytes,
	})
}

// Consumer runs a Handler over a topic. Each message is retried with linear
// backoff up to MaxRetries; a message that still fails goes to the
// dead-letter publisher. Events already recorded in the idempotency store are
// committed without calling the handler.
type Consumer struct {
	cfg       ConsumerConfig
	reader    MessageReader
	handler   Handler
	dlq       DeadLetterPublisher
	store     IdempotencyStore
	metrics   *Metrics
	logger    *slog.Logger
	closeOnce sync.Once
}

// ConsumerOption configures optional Consumer collaborators.
type ConsumerOption func(*Consumer)

// WithDeadLetter routes exhausted messages to p.
func WithDeadLetter(p DeadLetterPublisher) ConsumerOption {
	return func(c *Consumer) { c.dlq = p }
}

// WithIdempotencyStore skips events whose id is already recorded in s.
func WithIdempotencyStore(s IdempotencyStore) ConsumerOption {
	return func(c *Consumer) { c.store = s }
}

// NewConsumer creates a consumer reading from r.
func NewConsumer(cfg ConsumerConfig, r MessageReader, handler Handler, metrics *Metrics, logger *slog.Logger, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		cfg:     cfg.withDefaults(),
		reader:  r,
		handler: handler,
		metrics: metrics,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run consumes until ctx is canceled, then closes the reader.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.InfoContext(ctx, "consumer started",
		slog.String("topic", c.cfg.Topic),
		slog.String("group", c.cfg.GroupID),
	)
	defer func() {
		if err := c.Close(); err != nil {
			c.logger.Error("failed to close consumer", logger.Err(err))
		}
	}()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.Info("consumer stopping", slog.String("topic", c.cfg.Topic))
				return nil
			}
			c.logger.ErrorContext(ctx, "failed to fetch message", logger.Err(err))
			if !sleepCtx(ctx, c.cfg.Backoff) {
				return nil
			}
			continue
		}

		c.metrics.Received.WithLabelValues(msg.Topic, c.cfg.GroupID).Inc()
		if err := c.process(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.ErrorContext(ctx, "message not processed", logger.Err(err))
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.ErrorContext(ctx, "failed to commit message",
				slog.Int64("offset", msg.Offset),
				logger.Err(err),
			)
		}
	}
}

// process handles one message. A non-nil error means the message was given up
// on; it has already been dead-lettered when a publisher is configured.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) error {
	ctx = ExtractTraceContext(ctx, &msg)
	if id := headerValue(msg.Headers, "correlation_id"); id != "" {
		ctx = logger.WithCorrelationID(ctx, id)
	}
	labels := []string{msg.Topic, c.cfg.GroupID}

	event, err := UnmarshalEvent(msg.Value)
	if err != nil {
		c.metrics.Failed.WithLabelValues(labels...).Inc()
		return c.deadLetter(ctx, msg, err)
	}

	if c.store != nil && event.EventID != "" {
		seen, err := c.store.Contains(ctx, event.EventID)
		if err != nil {
			c.logger.WarnContext(ctx, "idempotency lookup failed, processing anyway",
				slog.String("event_id", event.EventID),
				logger.Err(err),
			)
		}
		if seen {
			c.metrics.Duplicates.WithLabelValues(labels...).Inc()
			c.logger.DebugContext(ctx, "skipping duplicate event", slog.String("event_id", event.EventID))
			return nil
		}
	}

	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		if lastErr = c.handler(ctx, event); lastErr == nil {
			break
		}
		c.logger.WarnContext(ctx, "handler failed",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
			slog.Int64("offset", msg.Offset),
			slog.Int("attempt", attempt),
			slog.Int("max_retries", c.cfg.MaxRetries),
			logger.Err(lastErr),
		)
		if attempt < c.cfg.MaxRetries && !sleepCtx(ctx, time.Duration(attempt)*c.cfg.Backoff) {
			return ctx.Err()
		}
	}
	c.metrics.Duration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())

	if lastErr != nil {
		c.metrics.Failed.WithLabelValues(labels...).Inc()
		return c.deadLetter(ctx, msg, lastErr)
	}

	c.metrics.Processed.WithLabelValues(labels...).Inc()
	if c.store != nil && event.EventID != "" {
		if err := c.store.Add(ctx, event.EventID); err != nil {
			c.logger.WarnContext(ctx, "failed to record processed event",
				slog.String("event_id", event.EventID),
				logger.Err(err),
			)
		}
	}
	return nil
}

func (c *Consumer) deadLetter(ctx context.Context, msg kafka.Message, cause error) error {
	if c.dlq == nil {
		return fmt.Errorf("offset %d dropped: %w", msg.Offset, cause)
	}
	if err := c.dlq.Publish(ctx, msg, cause, c.cfg.GroupID); err != nil {
		return fmt.Errorf("offset %d: %w (dead-letter failed: %v)", msg.Offset, cause, err)
	}
	c.metrics.DeadLetter.WithLabelValues(msg.Topic, c.cfg.GroupID).Inc()
	return fmt.Errorf("offset %d dead-lettered: %w", msg.Offset, cause)
}

// Close closes the reader. It is safe to call multiple times.
func (c *Consumer) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.reader.Close()
	})
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
