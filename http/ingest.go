package http

import (
	"net/http"
	"time"

	"github.com/fwojciec/sitechat"
)

type ingestRequest struct {
	URL        string `json:"url" validate:"required"`
	MaxPages   *int   `json:"max_pages" validate:"omitempty,min=1,max=500"`
	MaxDepth   *int   `json:"max_depth" validate:"omitempty,min=0,max=10"`
	Reset      bool   `json:"reset"`
	UseSitemap bool   `json:"use_sitemap"`
}

type ingestResponse struct {
	JobID     string    `json:"job_id"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	URL       string    `json:"url"`
	Timestamp time.Time `json:"timestamp"`
}

type progressResponse struct {
	PagesProcessed int    `json:"pages_processed"`
	PagesFailed    int    `json:"pages_failed"`
	ChunksIndexed  int    `json:"chunks_indexed"`
	Bytes          int    `json:"bytes"`
	Tokens         int    `json:"tokens"`
	CurrentURL     string `json:"current_url,omitempty"`
	Message        string `json:"message"`
}

type jobResponse struct {
	JobID       string           `json:"job_id"`
	Status      string           `json:"status"`
	URL         string           `json:"url"`
	MaxPages    int              `json:"max_pages"`
	MaxDepth    int              `json:"max_depth"`
	Progress    progressResponse `json:"progress"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	Error       string           `json:"error,omitempty"`
}

// newJobResponse renders a job. Until the job runs, started_at reports the
// time it was queued.
func newJobResponse(job *sitechat.Job) jobResponse {
	startedAt := job.CreatedAt
	if job.StartedAt != nil {
		startedAt = *job.StartedAt
	}
	return jobResponse{
		JobID:    job.ID,
		Status:   string(job.Status),
		URL:      job.SeedURL,
		MaxPages: job.MaxPages,
		MaxDepth: job.MaxDepth,
		Progress: progressResponse{
			PagesProcessed: job.Progress.PagesProcessed,
			PagesFailed:    job.Progress.PagesFailed,
			ChunksIndexed:  job.Progress.ChunksIndexed,
			Bytes:          job.Progress.Bytes,
			Tokens:         job.Progress.Tokens,
			CurrentURL:     job.Progress.CurrentURL,
			Message:        job.Progress.Message,
		},
		StartedAt:   startedAt,
		CompletedAt: job.CompletedAt,
		Error:       job.Error,
	}
}

func (s *Server) handleIngestCreate(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := s.decode(w, r, &req); err != nil {
		s.Error(w, r, err)
		return
	}

	jobReq := sitechat.JobRequest{
		URL:        req.URL,
		MaxDepth:   req.MaxDepth,
		Reset:      req.Reset,
		UseSitemap: req.UseSitemap,
	}
	if req.MaxPages != nil {
		jobReq.MaxPages = *req.MaxPages
	}

	job, err := s.IngestService.StartJob(r.Context(), jobReq)
	if err != nil {
		s.Error(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusAccepted, ingestResponse{
		JobID:     job.ID,
		Status:    string(job.Status),
		Message:   "Ingestion job started",
		URL:       job.SeedURL,
		Timestamp: job.CreatedAt,
	})
}

func (s *Server) handleIngestIndex(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.IngestService.ListJobs(r.Context())
	if err != nil {
		s.Error(w, r, err)
		return
	}

	out := make([]jobResponse, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, newJobResponse(job))
	}
	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"jobs":  out,
		"total": len(out),
	})
}

func (s *Server) handleIngestView(w http.ResponseWriter, r *http.Request) {
	job, err := s.IngestService.GetJob(r.Context(), r.PathValue("id"))
	if err != nil {
		s.Error(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, newJobResponse(job))
}

func (s *Server) handleIngestDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.IngestService.DeleteJob(r.Context(), r.PathValue("id")); err != nil {
		s.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
