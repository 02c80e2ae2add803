package main_test

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fwojciec/sitechat"
	main "github.com/fwojciec/sitechat/cmd/sitechat"
	"github.com/fwojciec/sitechat/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// jobSequence returns successive snapshots of a job, repeating the last.
func jobSequence(snapshots ...*sitechat.Job) func(context.Context, string) (*sitechat.Job, error) {
	var mu sync.Mutex
	i := 0
	return func(_ context.Context, _ string) (*sitechat.Job, error) {
		mu.Lock()
		defer mu.Unlock()
		job := snapshots[min(i, len(snapshots)-1)]
		i++
		return job, nil
	}
}

func TestIngestCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("starts job and follows progress until completion", func(t *testing.T) {
		t.Parallel()

		var got sitechat.JobRequest
		ingest := &mock.IngestService{
			StartJobFn: func(_ context.Context, req sitechat.JobRequest) (*sitechat.Job, error) {
				got = req
				return &sitechat.Job{ID: "job-1", SeedURL: "https://example.com", MaxPages: 10, Status: sitechat.JobPending}, nil
			},
			GetJobFn: jobSequence(
				&sitechat.Job{ID: "job-1", MaxPages: 10, Status: sitechat.JobRunning,
					Progress: sitechat.JobProgress{PagesProcessed: 1, CurrentURL: "https://example.com"}},
				&sitechat.Job{ID: "job-1", MaxPages: 10, Status: sitechat.JobRunning,
					Progress: sitechat.JobProgress{PagesProcessed: 2, CurrentURL: "https://example.com/about"}},
				&sitechat.Job{ID: "job-1", MaxPages: 10, Status: sitechat.JobCompleted,
					Progress: sitechat.JobProgress{PagesProcessed: 2, PagesFailed: 1, ChunksIndexed: 7, Bytes: 2048, Tokens: 900, CurrentURL: "https://example.com/about"}},
			),
		}

		stdout := &bytes.Buffer{}
		deps := &main.Dependencies{
			Ctx:    context.Background(),
			Stdout: stdout,
			Stderr: &bytes.Buffer{},
			Ingest: ingest,
		}

		cmd := &main.IngestCmd{
			URL:          "example.com",
			MaxPages:     10,
			MaxDepth:     0,
			Reset:        true,
			UseSitemap:   true,
			PollInterval: time.Millisecond,
		}
		err := cmd.Run(deps)
		require.NoError(t, err)

		assert.Equal(t, "example.com", got.URL)
		assert.Equal(t, 10, got.MaxPages)
		require.NotNil(t, got.MaxDepth)
		assert.Equal(t, 0, *got.MaxDepth)
		assert.True(t, got.Reset)
		assert.True(t, got.UseSitemap)

		output := stdout.String()
		assert.Contains(t, output, "Started job job-1 for https://example.com")
		assert.Contains(t, output, "[1/10] https://example.com\n")
		assert.Contains(t, output, "[2/10] https://example.com/about\n")
		assert.Equal(t, 1, bytes.Count(stdout.Bytes(), []byte("https://example.com/about")))
		assert.Contains(t, output, "Indexed 2 pages into 7 chunks (2.0 KB, ~900 tokens)")
		assert.Contains(t, output, "1 pages could not be fetched")
	})

	t.Run("returns error when job fails", func(t *testing.T) {
		t.Parallel()

		ingest := &mock.IngestService{
			StartJobFn: func(_ context.Context, _ sitechat.JobRequest) (*sitechat.Job, error) {
				return &sitechat.Job{ID: "job-1", SeedURL: "https://example.com", Status: sitechat.JobPending}, nil
			},
			GetJobFn: jobSequence(
				&sitechat.Job{ID: "job-1", Status: sitechat.JobFailed, Error: "too many failed fetches"},
			),
		}

		stderr := &bytes.Buffer{}
		deps := &main.Dependencies{Ctx: context.Background(), Stdout: &bytes.Buffer{}, Stderr: stderr, Ingest: ingest}

		err := (&main.IngestCmd{URL: "example.com", PollInterval: time.Millisecond}).Run(deps)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "too many failed fetches")
		assert.Contains(t, stderr.String(), "error: job failed: too many failed fetches")
	})

	t.Run("reports invalid request", func(t *testing.T) {
		t.Parallel()

		ingest := &mock.IngestService{
			StartJobFn: func(_ context.Context, _ sitechat.JobRequest) (*sitechat.Job, error) {
				return nil, sitechat.Errorf(sitechat.EINVALID, "max pages must be between 1 and 500")
			},
		}

		stderr := &bytes.Buffer{}
		deps := &main.Dependencies{Ctx: context.Background(), Stdout: &bytes.Buffer{}, Stderr: stderr, Ingest: ingest}

		err := (&main.IngestCmd{URL: "example.com", MaxPages: 900}).Run(deps)
		require.Error(t, err)
		assert.Equal(t, "error: max pages must be between 1 and 500\n", stderr.String())
	})

	t.Run("stops following when context is cancelled", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		ingest := &mock.IngestService{
			StartJobFn: func(_ context.Context, _ sitechat.JobRequest) (*sitechat.Job, error) {
				return &sitechat.Job{ID: "job-1", Status: sitechat.JobPending}, nil
			},
			GetJobFn: func(_ context.Context, _ string) (*sitechat.Job, error) {
				cancel()
				return &sitechat.Job{ID: "job-1", Status: sitechat.JobRunning}, nil
			},
		}

		deps := &main.Dependencies{Ctx: ctx, Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}, Ingest: ingest}

		err := (&main.IngestCmd{URL: "example.com", PollInterval: time.Millisecond}).Run(deps)
		require.ErrorIs(t, err, context.Canceled)
	})
}
