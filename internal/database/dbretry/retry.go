package dbretry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

var (
	maxElapsedTime  = 15 * time.Second
	initialInterval = 250 * time.Millisecond
	maxInterval     = 3 * time.Second
	maxRetries      = uint64(4)
)

// IsRetryable reports whether the error is a transient store failure worth
// retrying. Everything else is permanent and surfaces to the caller.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var pgerr *pgdriver.Error
	if errors.As(err, &pgerr) {
		switch pgerr.Field('C') {
		case "08000", // connection_exception
			"08003", // connection_does_not_exist
			"08006", // connection_failure
			"08001", // sqlclient_unable_to_establish_sqlconnection
			"40001", // serialization_failure
			"40P01", // deadlock_detected
			"53300", // too_many_connections
			"57P03": // cannot_connect_now
			return true
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	msg := err.Error()

	return strings.Contains(msg, "connection reset by peer") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "i/o timeout") ||
		strings.Contains(msg, "EOF")
}

func newBackoff(ctx context.Context) backoff.BackOffContext {
	return backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(maxElapsedTime),
		backoff.WithInitialInterval(initialInterval),
		backoff.WithMaxInterval(maxInterval),
	), maxRetries), ctx)
}

// Operation runs a store operation with retry on transient failures and
// returns its result.
func Operation[T any](ctx context.Context, operation func(context.Context) (T, error)) (T, error) {
	var (
		result  T
		lastErr error
	)

	err := backoff.Retry(func() error {
		var err error

		result, err = operation(ctx)
		if err != nil {
			if !IsRetryable(err) {
				return backoff.Permanent(err)
			}

			lastErr = err

			return err
		}

		return nil
	}, newBackoff(ctx))
	if err != nil {
		if lastErr != nil {
			return result, fmt.Errorf("store operation failed after retries: %w", lastErr)
		}

		return result, fmt.Errorf("store operation failed: %w", err)
	}

	return result, nil
}

// NoResult runs a store operation that produces no result.
func NoResult(ctx context.Context, operation func(context.Context) error) error {
	_, err := Operation(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, operation(ctx)
	})

	return err
}

// Transaction runs fn inside a database transaction with retry.
func Transaction(ctx context.Context, db *bun.DB, fn func(context.Context, bun.Tx) error) error {
	return NoResult(ctx, func(ctx context.Context) error {
		return db.RunInTx(ctx, nil, fn)
	})
}
