// Package ingest runs crawl-and-index jobs in the background.
//
// Each job crawls a site, splits page text into chunks, embeds them and
// writes them to the shared chunk index. Jobs run concurrently. Jobs are
// ordered against resets when they start: a job that resets the corpus
// waits for every job started before it, and jobs started after it wait
// until the index is cleared.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/sitechat"
	"github.com/fwojciec/sitechat/crawl"
	"golang.org/x/sync/errgroup"
)

// Manager defaults.
const (
	DefaultEmbedTimeout     = 30 * time.Second
	DefaultEmbedConcurrency = 4
)

// Crawler traverses a site and hands each fetched page to onPage.
type Crawler interface {
	Crawl(ctx context.Context, req sitechat.CrawlRequest, onPage crawl.PageFunc) (*crawl.Result, error)
}

var _ sitechat.IngestService = (*Manager)(nil)

// Manager owns the lifecycle of ingestion jobs.
type Manager struct {
	Jobs     sitechat.JobService
	Crawler  Crawler
	Embedder sitechat.Embedder
	Index    sitechat.ChunkIndex

	// TokenCounter, if set, counts tokens of ingested text for job statistics.
	TokenCounter sitechat.TokenCounter

	ChunkSize    int
	ChunkOverlap int

	EmbedTimeout     time.Duration
	EmbedConcurrency int

	Logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	runs map[string]*run
	wg   sync.WaitGroup

	// cleared is closed once the most recently started reset has cleared
	// the index or given up. Nil until the first reset. Guarded by mu.
	cleared chan struct{}
}

type run struct {
	cancel context.CancelFunc
	done   chan struct{}

	// after lists what must finish before the job may touch the index.
	after []<-chan struct{}

	// release closes the reset's cleared channel. No-op for other jobs.
	release func()
}

// NewManager returns a Manager. Jobs it starts run until they finish,
// are deleted, or the manager is closed.
func NewManager(jobs sitechat.JobService, crawler Crawler, embedder sitechat.Embedder, index sitechat.ChunkIndex) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		Jobs:         jobs,
		Crawler:      crawler,
		Embedder:     embedder,
		Index:        index,
		ChunkSize:    sitechat.DefaultChunkSize,
		ChunkOverlap: sitechat.DefaultChunkOverlap,
		ctx:          ctx,
		cancel:       cancel,
		runs:         make(map[string]*run),
	}
}

// StartJob validates req, records a pending job and starts it in the
// background. The returned job reflects its state at creation.
func (m *Manager) StartJob(ctx context.Context, req sitechat.JobRequest) (*sitechat.Job, error) {
	if _, err := sitechat.ChunkText("", m.ChunkSize, m.ChunkOverlap); err != nil {
		return nil, err
	}
	seed, err := NormalizeSeedURL(req.URL)
	if err != nil {
		return nil, err
	}

	maxPages := req.MaxPages
	if maxPages == 0 {
		maxPages = sitechat.DefaultMaxPages
	}
	maxDepth := sitechat.DefaultMaxDepth
	if req.MaxDepth != nil {
		maxDepth = *req.MaxDepth
	}

	job := &sitechat.Job{
		SeedURL:  seed,
		MaxPages: maxPages,
		MaxDepth: maxDepth,
		Reset:    req.Reset,
		Progress: sitechat.JobProgress{Message: "Queued"},
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}
	if err := m.Jobs.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	jobCtx, cancel := context.WithCancel(m.ctx)
	r := &run{cancel: cancel, done: make(chan struct{}), release: func() {}}

	m.mu.Lock()
	m.admit(r, job.Reset)
	m.runs[job.ID] = r
	m.mu.Unlock()

	snapshot := *job
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer close(r.done)
		defer r.release()
		defer func() {
			cancel()
			m.mu.Lock()
			delete(m.runs, snapshot.ID)
			m.mu.Unlock()
		}()
		m.execute(jobCtx, &snapshot, r, req.UseSitemap)
	}()

	m.logger().Info("job started", "job", job.ID, "url", seed, "max_pages", maxPages, "max_depth", maxDepth, "reset", req.Reset)
	return job, nil
}

// admit orders a new job against the jobs started before it. Every job
// waits for the latest reset to clear the index; a reset also waits for
// all earlier jobs and becomes the barrier for later ones.
// Must be called with mu held.
func (m *Manager) admit(r *run, reset bool) {
	if m.cleared != nil {
		r.after = append(r.after, m.cleared)
	}
	if !reset {
		return
	}
	for _, other := range m.runs {
		r.after = append(r.after, other.done)
	}
	cleared := make(chan struct{})
	r.release = sync.OnceFunc(func() { close(cleared) })
	m.cleared = cleared
}

// GetJob returns the current state of a job.
func (m *Manager) GetJob(ctx context.Context, id string) (*sitechat.Job, error) {
	return m.Jobs.FindJobByID(ctx, id)
}

// ListJobs returns all jobs, most recent first.
func (m *Manager) ListJobs(ctx context.Context) ([]*sitechat.Job, error) {
	return m.Jobs.FindJobs(ctx, sitechat.JobFilter{})
}

// DeleteJob cancels the job if it is still running, waits for it to stop,
// then removes its chunks and its record.
func (m *Manager) DeleteJob(ctx context.Context, id string) error {
	if _, err := m.Jobs.FindJobByID(ctx, id); err != nil {
		return err
	}

	m.mu.Lock()
	r := m.runs[id]
	m.mu.Unlock()
	if r != nil {
		r.cancel()
		select {
		case <-r.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	n, err := m.Index.DeleteChunks(ctx, sitechat.ChunkFilter{JobID: &id})
	if err != nil {
		return fmt.Errorf("delete chunks of job %s: %w", id, err)
	}
	if err := m.Jobs.DeleteJob(ctx, id); err != nil {
		return err
	}
	m.logger().Info("job deleted", "job", id, "chunks", n)
	return nil
}

// Wait blocks until the job's background work has finished.
// It returns immediately for unknown or finished jobs.
func (m *Manager) Wait(ctx context.Context, id string) error {
	m.mu.Lock()
	r := m.runs[id]
	m.mu.Unlock()
	if r == nil {
		return nil
	}
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FailInterrupted marks jobs left pending or running by a previous process
// as failed and rolls back their chunks. Call it before starting new jobs.
func (m *Manager) FailInterrupted(ctx context.Context) (int, error) {
	var count int
	for _, status := range []sitechat.JobStatus{sitechat.JobPending, sitechat.JobRunning} {
		jobs, err := m.Jobs.FindJobs(ctx, sitechat.JobFilter{Status: &status})
		if err != nil {
			return count, err
		}
		for _, job := range jobs {
			m.mu.Lock()
			_, active := m.runs[job.ID]
			m.mu.Unlock()
			if active {
				continue
			}
			if err := m.fail(ctx, job, errors.New("interrupted by shutdown")); err != nil {
				return count, err
			}
			count++
		}
	}
	return count, nil
}

// Close cancels all running jobs and waits for them to stop.
func (m *Manager) Close() error {
	m.cancel()
	m.wg.Wait()
	return nil
}

// execute runs one job to a terminal state.
func (m *Manager) execute(ctx context.Context, job *sitechat.Job, r *run, useSitemap bool) {
	logger := m.logger().With("job", job.ID)
	// Store writes must survive cancellation so the job still reaches a
	// terminal state.
	store := context.WithoutCancel(ctx)

	if err := wait(ctx, r.after); err != nil {
		m.abort(store, job, errors.New("job cancelled"), logger)
		return
	}
	if job.Reset {
		err := m.reset(ctx)
		r.release()
		if err != nil {
			logger.Error("reset failed", "err", err)
			m.abort(store, job, err, logger)
			return
		}
	}

	running := sitechat.JobRunning
	progress := sitechat.JobProgress{Message: "Crawling " + job.SeedURL}
	if _, err := m.Jobs.UpdateJob(store, job.ID, sitechat.JobUpdate{Status: &running, Progress: &progress}); err != nil {
		logger.Error("failed to mark job running", "err", err)
		m.abort(store, job, fmt.Errorf("mark job running: %w", err), logger)
		return
	}
	job.Status = running

	// hashes maps content fingerprints to the first URL indexed with them,
	// so one page reachable under several URLs is indexed once.
	hashes := make(map[string]string)

	req := sitechat.CrawlRequest{
		SeedURL:    job.SeedURL,
		MaxPages:   job.MaxPages,
		MaxDepth:   job.MaxDepth,
		UseSitemap: useSitemap,
	}
	result, err := m.Crawler.Crawl(ctx, req, func(ctx context.Context, page *sitechat.Page) error {
		n := 0
		if first, ok := hashes[page.Hash]; ok && page.Hash != "" {
			logger.Info("duplicate content skipped", "url", page.URL, "duplicate_of", first)
		} else {
			var err error
			if n, err = m.indexPage(ctx, job.ID, page); err != nil {
				return err
			}
			if page.Hash != "" {
				hashes[page.Hash] = page.URL
			}
		}
		progress.PagesProcessed++
		progress.ChunksIndexed += n
		progress.Bytes += len(page.Text)
		progress.Tokens += m.countTokens(ctx, page.Text, logger)
		progress.CurrentURL = page.URL
		progress.Message = fmt.Sprintf("Indexed %d pages", progress.PagesProcessed)
		_, err := m.Jobs.UpdateJob(store, job.ID, sitechat.JobUpdate{Progress: &progress})
		return err
	})
	if result != nil {
		progress.PagesFailed = result.Failed
		if _, uerr := m.Jobs.UpdateJob(store, job.ID, sitechat.JobUpdate{
			Progress: &progress,
			Visited:  result.Visited,
		}); uerr != nil {
			logger.Error("failed to record crawl result", "err", uerr)
		}
	}
	job.Progress = progress

	if err != nil {
		if ctx.Err() != nil {
			err = errors.New("job cancelled")
		}
		logger.Warn("job failed", "err", err)
		m.abort(store, job, err, logger)
		return
	}

	completed := sitechat.JobCompleted
	progress.CurrentURL = ""
	progress.Message = fmt.Sprintf("Indexed %d pages into %d chunks", progress.PagesProcessed, progress.ChunksIndexed)
	if _, err := m.Jobs.UpdateJob(store, job.ID, sitechat.JobUpdate{Status: &completed, Progress: &progress}); err != nil {
		logger.Error("failed to mark job completed", "err", err)
		return
	}
	logger.Info("job completed", "pages", progress.PagesProcessed, "chunks", progress.ChunksIndexed)
}

// reset clears the index. Callers have already waited for earlier jobs.
func (m *Manager) reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.New("job cancelled")
	}
	if err := m.Index.Clear(ctx); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}
	m.logger().Info("index cleared")
	return nil
}

// wait blocks until every channel is closed or ctx is done.
func wait(ctx context.Context, chans []<-chan struct{}) error {
	for _, ch := range chans {
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// abort fails the job, logging when the failure cannot be recorded.
func (m *Manager) abort(ctx context.Context, job *sitechat.Job, err error, logger *slog.Logger) {
	if ferr := m.fail(ctx, job, err); ferr != nil {
		logger.Error("failed to mark job failed", "cause", err, "err", ferr)
	}
}

// fail rolls back the job's chunks and marks it failed with err.
func (m *Manager) fail(ctx context.Context, job *sitechat.Job, err error) error {
	if _, derr := m.Index.DeleteChunks(ctx, sitechat.ChunkFilter{JobID: &job.ID}); derr != nil {
		m.logger().Error("failed to roll back chunks", "job", job.ID, "err", derr)
	}
	failed := sitechat.JobFailed
	msg := err.Error()
	progress := job.Progress
	progress.CurrentURL = ""
	progress.ChunksIndexed = 0
	progress.Message = "Failed"
	_, uerr := m.Jobs.UpdateJob(ctx, job.ID, sitechat.JobUpdate{Status: &failed, Progress: &progress, Error: &msg})
	return uerr
}

// indexPage chunks, embeds and stores a page's text, returning the number
// of chunks written.
func (m *Manager) indexPage(ctx context.Context, jobID string, page *sitechat.Page) (int, error) {
	seq, err := sitechat.ChunkText(page.Text, m.ChunkSize, m.ChunkOverlap)
	if err != nil {
		return 0, err
	}
	var chunks []*sitechat.Chunk
	for c := range seq {
		c.JobID = jobID
		c.SourceURL = page.URL
		c.Title = page.Title
		chunks = append(chunks, &c)
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.embedConcurrency())
	for _, c := range chunks {
		g.Go(func() error {
			embedCtx, cancel := context.WithTimeout(gctx, m.embedTimeout())
			defer cancel()
			emb, err := m.Embedder.Embed(embedCtx, c.Content)
			if err != nil {
				return fmt.Errorf("embed %s: %w", page.URL, err)
			}
			c.Embedding = emb
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	if err := m.Index.AddChunks(ctx, chunks); err != nil {
		return 0, fmt.Errorf("index %s: %w", page.URL, err)
	}
	return len(chunks), nil
}

func (m *Manager) countTokens(ctx context.Context, text string, logger *slog.Logger) int {
	if m.TokenCounter == nil || text == "" {
		return 0
	}
	n, err := m.TokenCounter.CountTokens(ctx, text)
	if err != nil {
		logger.Warn("token count failed", "err", err)
		return 0
	}
	return n
}

func (m *Manager) embedTimeout() time.Duration {
	if m.EmbedTimeout > 0 {
		return m.EmbedTimeout
	}
	return DefaultEmbedTimeout
}

func (m *Manager) embedConcurrency() int {
	if m.EmbedConcurrency > 0 {
		return m.EmbedConcurrency
	}
	return DefaultEmbedConcurrency
}

func (m *Manager) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// NormalizeSeedURL validates a user-supplied site URL, defaulting to https
// when no scheme is given.
func NormalizeSeedURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", sitechat.Errorf(sitechat.EINVALID, "url required")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return "", sitechat.Errorf(sitechat.EINVALID, "invalid url %q", raw)
	}
	return u.String(), nil
}
