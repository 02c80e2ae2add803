package main

import (
	"fmt"
	"time"

	"github.com/fwojciec/sitechat"
)

// Run executes the ingest command. It starts a job and follows its progress
// until the job completes or fails.
func (c *IngestCmd) Run(deps *Dependencies) error {
	maxDepth := c.MaxDepth
	job, err := deps.Ingest.StartJob(deps.Ctx, sitechat.JobRequest{
		URL:        c.URL,
		MaxPages:   c.MaxPages,
		MaxDepth:   &maxDepth,
		Reset:      c.Reset,
		UseSitemap: c.UseSitemap,
	})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sitechat.ErrorMessage(err))
		return err
	}
	fmt.Fprintf(deps.Stdout, "Started job %s for %s\n", job.ID, job.SeedURL)

	start := time.Now()
	job, err = c.follow(deps, job)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sitechat.ErrorMessage(err))
		return err
	}

	p := job.Progress
	if job.Status == sitechat.JobFailed {
		fmt.Fprintf(deps.Stderr, "error: job failed: %s\n", job.Error)
		return fmt.Errorf("job %s failed: %s", job.ID, job.Error)
	}

	fmt.Fprintf(deps.Stdout, "Indexed %d pages into %d chunks (%s, %s) in %s\n",
		p.PagesProcessed, p.ChunksIndexed, FormatBytes(p.Bytes), FormatTokens(p.Tokens),
		FormatDuration(time.Since(start)))
	if p.PagesFailed > 0 {
		fmt.Fprintf(deps.Stdout, "%d pages could not be fetched\n", p.PagesFailed)
	}
	return nil
}

// follow polls the job, printing each newly processed page, until it
// reaches a terminal status.
func (c *IngestCmd) follow(deps *Dependencies, job *sitechat.Job) (*sitechat.Job, error) {
	interval := c.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last sitechat.JobProgress
	for {
		if p := job.Progress; p.CurrentURL != "" && p.CurrentURL != last.CurrentURL {
			fmt.Fprintf(deps.Stdout, "  [%d/%d] %s\n", p.PagesProcessed, job.MaxPages, TruncateURL(p.CurrentURL, 70))
		}
		last = job.Progress
		if job.Status.Terminal() {
			return job, nil
		}

		select {
		case <-deps.Ctx.Done():
			return nil, deps.Ctx.Err()
		case <-ticker.C:
		}

		next, err := deps.Ingest.GetJob(deps.Ctx, job.ID)
		if err != nil {
			return nil, err
		}
		job = next
	}
}
