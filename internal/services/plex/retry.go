package plex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"commentarycollection/internal/logging"
	"commentarycollection/internal/services"
)

const (
	defaultRetryAttempts = 3
	defaultRetryDelay    = time.Second
)

// Retrier repeats a unit of remote work while its error is retryable.
// Auth and malformed-response failures return immediately.
type Retrier struct {
	Attempts int
	Delay    time.Duration
	// Sleep overrides how pauses are performed (useful for tests).
	Sleep  func(context.Context, time.Duration) error
	Logger *slog.Logger
}

// NewRetrier returns the default policy: 3 attempts, 1s apart.
func NewRetrier(logger *slog.Logger) *Retrier {
	return &Retrier{Attempts: defaultRetryAttempts, Delay: defaultRetryDelay, Logger: logger}
}

// Do runs fn until it succeeds, returns a non-retryable error, or the attempt
// budget is spent. The final error wraps the last failure.
func (r *Retrier) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	attempts := r.attempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !services.IsRetryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		r.logger().Debug("retrying plex request",
			logging.String("operation", op),
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", attempts),
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.Error(err),
		)
		if err := r.sleep(ctx, r.Delay); err != nil {
			return err
		}
	}
	if lastErr == nil {
		lastErr = errors.New("unknown retry failure")
	}
	return fmt.Errorf("%s: failed after %d attempts: %w", op, attempts, lastErr)
}

func (r *Retrier) attempts() int {
	if r == nil || r.Attempts <= 0 {
		return 1
	}
	return r.Attempts
}

func (r *Retrier) logger() *slog.Logger {
	if r == nil || r.Logger == nil {
		return logging.NewNop()
	}
	return r.Logger
}

func (r *Retrier) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	if r.Sleep != nil {
		return r.Sleep(ctx, delay)
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
