package main

import (
	"fmt"

	"github.com/fwojciec/sitechat"
)

// Run executes the jobs command.
func (c *JobsCmd) Run(deps *Dependencies) error {
	filter := sitechat.JobFilter{Limit: c.Limit}
	if c.Status != "" {
		status := sitechat.JobStatus(c.Status)
		switch status {
		case sitechat.JobPending, sitechat.JobRunning, sitechat.JobCompleted, sitechat.JobFailed:
		default:
			err := sitechat.Errorf(sitechat.EINVALID, "unknown job status %q", c.Status)
			fmt.Fprintf(deps.Stderr, "error: %s\n", sitechat.ErrorMessage(err))
			return err
		}
		filter.Status = &status
	}

	jobs, err := deps.Jobs.FindJobs(deps.Ctx, filter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sitechat.ErrorMessage(err))
		return err
	}

	if len(jobs) == 0 {
		fmt.Fprintln(deps.Stdout, "No jobs found. Use 'sitechat ingest' to crawl a website.")
		return nil
	}

	for _, j := range jobs {
		fmt.Fprintf(deps.Stdout, "%s  %-9s  %3d pages  %4d chunks  %s\n",
			j.ID, j.Status, j.Progress.PagesProcessed, j.Progress.ChunksIndexed, TruncateURL(j.SeedURL, 60))
		if j.Error != "" {
			fmt.Fprintf(deps.Stdout, "    error: %s\n", j.Error)
		}
	}

	return nil
}
