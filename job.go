package sitechat

import (
	"context"
	"time"
)

// Ingestion request limits.
const (
	DefaultMaxPages = 50
	MaxMaxPages     = 500
	DefaultMaxDepth = 3
	MaxMaxDepth     = 10
)

// JobStatus is the lifecycle state of an ingestion job.
type JobStatus string

// Job statuses.
const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// CanTransition reports whether moving from s to next is allowed.
// A pending job may fail without ever running, e.g. when it is
// cancelled while waiting for a corpus reset.
func (s JobStatus) CanTransition(next JobStatus) bool {
	switch s {
	case JobPending:
		return next == JobRunning || next == JobFailed
	case JobRunning:
		return next == JobCompleted || next == JobFailed
	}
	return false
}

// Job is one asynchronous crawl-and-index unit of work.
type Job struct {
	ID       string    `json:"id"`
	SeedURL  string    `json:"seedUrl"`
	MaxPages int       `json:"maxPages"`
	MaxDepth int       `json:"maxDepth"`
	Reset    bool      `json:"reset"`
	Status   JobStatus `json:"status"`

	Progress JobProgress `json:"progress"`

	// Visited lists every URL the crawl claimed, in claim order.
	Visited []string `json:"visited,omitempty"`

	Error string `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// JobProgress tracks counters for a job.
type JobProgress struct {
	PagesProcessed int    `json:"pagesProcessed"`
	PagesFailed    int    `json:"pagesFailed"`
	ChunksIndexed  int    `json:"chunksIndexed"`
	Bytes          int    `json:"bytes"`
	Tokens         int    `json:"tokens"`
	CurrentURL     string `json:"currentUrl,omitempty"`
	Message        string `json:"message,omitempty"`
}

// Validate returns an error if the job contains invalid fields.
func (j *Job) Validate() error {
	if j.SeedURL == "" {
		return Errorf(EINVALID, "job seed URL required")
	}
	if j.MaxPages < 1 || j.MaxPages > MaxMaxPages {
		return Errorf(EINVALID, "max pages must be between 1 and %d", MaxMaxPages)
	}
	if j.MaxDepth < 0 || j.MaxDepth > MaxMaxDepth {
		return Errorf(EINVALID, "max depth must be between 0 and %d", MaxMaxDepth)
	}
	return nil
}

// JobRequest carries the parameters of a new ingestion job.
// Zero MaxPages and MaxDepth select the defaults.
type JobRequest struct {
	URL        string `json:"url"`
	MaxPages   int    `json:"max_pages"`
	MaxDepth   *int   `json:"max_depth"`
	Reset      bool   `json:"reset"`
	UseSitemap bool   `json:"use_sitemap"`
}

// JobService represents a service for persisting ingestion jobs.
type JobService interface {
	// CreateJob stores a new pending job, assigning its ID and CreatedAt.
	CreateJob(ctx context.Context, job *Job) error

	// FindJobByID retrieves a job by ID.
	// Returns ENOTFOUND if the job does not exist.
	FindJobByID(ctx context.Context, id string) (*Job, error)

	// FindJobs retrieves jobs matching the filter, most recent first.
	FindJobs(ctx context.Context, filter JobFilter) ([]*Job, error)

	// UpdateJob applies upd to a job.
	// Returns ECONFLICT for a disallowed status change or for any change to
	// a job that already reached a terminal status.
	UpdateJob(ctx context.Context, id string, upd JobUpdate) (*Job, error)

	// DeleteJob permanently removes a job.
	// Returns ENOTFOUND if the job does not exist.
	DeleteJob(ctx context.Context, id string) error
}

// JobFilter represents a filter for FindJobs.
type JobFilter struct {
	ID     *string    `json:"id"`
	Status *JobStatus `json:"status"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// JobUpdate represents a set of fields to update on a job.
type JobUpdate struct {
	Status   *JobStatus   `json:"status"`
	Progress *JobProgress `json:"progress"`
	Visited  []string     `json:"visited"`
	Error    *string      `json:"error"`
}

// IngestService is the ingestion surface exposed to transports.
type IngestService interface {
	StartJob(ctx context.Context, req JobRequest) (*Job, error)
	GetJob(ctx context.Context, id string) (*Job, error)
	ListJobs(ctx context.Context) ([]*Job, error)
	DeleteJob(ctx context.Context, id string) error
}
