package crawl_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/fwojciec/sitechat/crawl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchWithRetry(t *testing.T) {
	t.Parallel()

	delays := []time.Duration{time.Millisecond, time.Millisecond}

	t.Run("returns first success", func(t *testing.T) {
		t.Parallel()

		calls := 0
		got, err := crawl.FetchWithRetry(context.Background(), "https://example.com",
			func(context.Context, string) (string, error) {
				calls++
				if calls < 2 {
					return "", errors.New("temporary")
				}
				return "ok", nil
			}, nil, delays)

		require.NoError(t, err)
		assert.Equal(t, "ok", got)
		assert.Equal(t, 2, calls)
	})

	t.Run("gives up after all delays with last error", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		calls := 0
		_, err := crawl.FetchWithRetry(context.Background(), "https://example.com",
			func(context.Context, string) (int, error) {
				calls++
				return 0, errors.New("still down")
			}, logger, delays)

		require.EqualError(t, err, "still down")
		assert.Equal(t, 3, calls)
		assert.Contains(t, buf.String(), "attempt=3")
	})

	t.Run("stops waiting when context is canceled", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		_, err := crawl.FetchWithRetry(ctx, "https://example.com",
			func(context.Context, string) (string, error) {
				calls++
				cancel()
				return "", errors.New("boom")
			}, nil, []time.Duration{time.Hour})

		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})

	t.Run("no delays means a single attempt", func(t *testing.T) {
		t.Parallel()

		calls := 0
		_, err := crawl.FetchWithRetry(context.Background(), "https://example.com",
			func(context.Context, string) (string, error) {
				calls++
				return "", errors.New("nope")
			}, nil, nil)

		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}
