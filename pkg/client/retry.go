package client

import (
	"context"
	"errors"
	"log"
	"time"
)

const (
	// DefaultMaxAttempts bounds every mutation, first try included
	DefaultMaxAttempts = 3
	// DefaultQueryAttempts bounds every read, first try included
	DefaultQueryAttempts = 3
)

// retryable reports whether a failed request may be sent again.
// Only transport failures and 5xx responses qualify.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

// withRetry runs fn up to attempts times with linear backoff
func (c *Client) withRetry(ctx context.Context, op string, attempts int, fn func(context.Context) error) error {
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !retryable(err) || attempt >= attempts {
			return err
		}

		log.Printf("[WARN] %s failed (attempt %d/%d): %v", op, attempt, attempts, err)

		timer := time.NewTimer(c.retryBackoff * time.Duration(attempt))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}
