package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/Palak111111/Scrapify-server/pkg/logger"
)

const (
	defaultRetryAttempts = 3
	defaultRetryBaseWait = time.Second
	retryJitterFraction  = 0.25
)

// retryBackoff returns 1s, 2s, 4s... for attempt 0, 1, 2... with ±25% jitter.
func retryBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := defaultRetryBaseWait << attempt
	jitter := time.Duration(float64(base) * retryJitterFraction * (2*rand.Float64() - 1)) // #nosec G404
	return base + jitter
}

// permanentError stops connectWithRetry without further attempts.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// connectWithRetry calls connect until it succeeds, attempts run out or ctx
// ends. Only startup connections are retried.
func connectWithRetry[T any](ctx context.Context, l *slog.Logger, name string, attempts int, wait func(int) time.Duration, connect func(context.Context) (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)
	for attempt := 0; attempt < attempts; attempt++ {
		v, err := connect(ctx)
		if err == nil {
			return v, nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return zero, err
		}
		lastErr = err
		if attempt == attempts-1 {
			break
		}

		backoff := wait(attempt)
		if l != nil {
			l.WarnContext(ctx, name+" connection failed, retrying",
				slog.Int("attempt", attempt+1),
				slog.Int("max_attempts", attempts),
				slog.Duration("backoff", backoff),
				logger.Err(err),
			)
		}
		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("connect to %s: %w", name, ctx.Err())
		case <-time.After(backoff):
		}
	}
	return zero, fmt.Errorf("connect to %s after %d attempts: %w", name, attempts, lastErr)
}
