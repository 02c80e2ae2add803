package mock

import (
	"context"

	"github.com/fwojciec/sitechat"
)

var _ sitechat.JobService = (*JobService)(nil)

// JobService is a mock implementation of sitechat.JobService.
type JobService struct {
	CreateJobFn   func(ctx context.Context, job *sitechat.Job) error
	FindJobByIDFn func(ctx context.Context, id string) (*sitechat.Job, error)
	FindJobsFn    func(ctx context.Context, filter sitechat.JobFilter) ([]*sitechat.Job, error)
	UpdateJobFn   func(ctx context.Context, id string, upd sitechat.JobUpdate) (*sitechat.Job, error)
	DeleteJobFn   func(ctx context.Context, id string) error
}

func (s *JobService) CreateJob(ctx context.Context, job *sitechat.Job) error {
	return s.CreateJobFn(ctx, job)
}

func (s *JobService) FindJobByID(ctx context.Context, id string) (*sitechat.Job, error) {
	return s.FindJobByIDFn(ctx, id)
}

func (s *JobService) FindJobs(ctx context.Context, filter sitechat.JobFilter) ([]*sitechat.Job, error) {
	return s.FindJobsFn(ctx, filter)
}

func (s *JobService) UpdateJob(ctx context.Context, id string, upd sitechat.JobUpdate) (*sitechat.Job, error) {
	return s.UpdateJobFn(ctx, id, upd)
}

func (s *JobService) DeleteJob(ctx context.Context, id string) error {
	return s.DeleteJobFn(ctx, id)
}

var _ sitechat.IngestService = (*IngestService)(nil)

// IngestService is a mock implementation of sitechat.IngestService.
type IngestService struct {
	StartJobFn  func(ctx context.Context, req sitechat.JobRequest) (*sitechat.Job, error)
	GetJobFn    func(ctx context.Context, id string) (*sitechat.Job, error)
	ListJobsFn  func(ctx context.Context) ([]*sitechat.Job, error)
	DeleteJobFn func(ctx context.Context, id string) error
}

func (s *IngestService) StartJob(ctx context.Context, req sitechat.JobRequest) (*sitechat.Job, error) {
	return s.StartJobFn(ctx, req)
}

func (s *IngestService) GetJob(ctx context.Context, id string) (*sitechat.Job, error) {
	return s.GetJobFn(ctx, id)
}

func (s *IngestService) ListJobs(ctx context.Context) ([]*sitechat.Job, error) {
	return s.ListJobsFn(ctx)
}

func (s *IngestService) DeleteJob(ctx context.Context, id string) error {
	return s.DeleteJobFn(ctx, id)
}
