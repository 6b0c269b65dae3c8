package peer

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// errRetryable marks an attempt failure that is worth repeating.
var errRetryable = errors.New("retryable peer error")

type retryer struct {
	retryFunc   func(ctx context.Context) error
	maxAttempts int
	interval    time.Duration
	logger      *slog.Logger
}

// run calls retryFunc until it succeeds, returns a non-retryable error,
// exhausts maxAttempts or ctx is done. It returns the number of attempts
// made and the last error.
func (r *retryer) run(ctx context.Context) (int, error) {
	attempt := 0
	for {
		attempt++
		err := r.retryFunc(ctx)
		if err == nil {
			return attempt, nil
		}
		if !errors.Is(err, errRetryable) {
			return attempt, err
		}
		if attempt >= r.maxAttempts {
			r.logger.Warn("peer retries exhausted", "attempt", attempt, "error", err)
			return attempt, err
		}

		r.logger.Warn("retryable peer error, retrying",
			"attempt", attempt,
			"backoff", r.interval,
			"error", err,
		)
		t := time.NewTimer(r.interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return attempt, err
		case <-t.C:
		}
	}
}
