package crawl

import (
	"context"
	"log/slog"
	"time"
)

// DefaultRetryDelays returns the backoff delays for fetch retries: 1s, 2s, 4s.
func DefaultRetryDelays() []time.Duration {
	return []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
}

// FetchWithRetry calls fetch until it succeeds, sleeping delays[i] after
// the i-th failure. It makes len(delays)+1 attempts at most and returns the
// last error if all fail. Retries are logged at debug level when logger is
// non-nil. Context cancellation aborts the wait and returns ctx.Err().
func FetchWithRetry[T any](
	ctx context.Context,
	url string,
	fetch func(ctx context.Context, url string) (T, error),
	logger *slog.Logger,
	delays []time.Duration,
) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt <= len(delays); attempt++ {
		v, err := fetch(ctx, url)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if attempt == len(delays) {
			break
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		if logger != nil {
			logger.Debug("retry", "url", url, "attempt", attempt+2, "err", err)
		}

		timer := time.NewTimer(delays[attempt])
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
	return zero, lastErr
}
