package download

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"sdrig/internal/config"
	"sdrig/internal/workspace"
)

// EventState tracks a job through the pool.
type EventState string

const (
	StateStarted  EventState = "started"
	StateProgress EventState = "progress"
	StateRetrying EventState = "retrying"
	StateDone     EventState = "done"
	StateFailed   EventState = "failed"
)

// Event is one job update. Events are emitted from worker goroutines.
type Event struct {
	JobID   string
	Name    string
	State   EventState
	Done    int64
	Total   int64
	Attempt int
	Err     error
}

// JobError pairs a failed job with its last error.
type JobError struct {
	Job *Job
	Err error
}

// Summary is the outcome of one Run.
type Summary struct {
	Done    int
	Skipped int
	Bytes   int64
	Elapsed time.Duration
	Failed  []JobError
}

type fetcher interface {
	Name() string
	Fetch(ctx context.Context, job *Job, report func(done, total int64)) error
}

// Manager executes download plans through a bounded worker pool and keeps
// the manifest current.
type Manager struct {
	ws      *workspace.Workspace
	cfg     *config.Config
	log     *zap.Logger
	fetcher fetcher
	man     *Manifest
	mu      sync.Mutex // guards man
}

// NewManager selects the engine: auto prefers aria2c when on PATH, a forced
// aria2 engine fails fast when the binary is missing.
func NewManager(ws *workspace.Workspace, cfg *config.Config, log *zap.Logger, man *Manifest) (*Manager, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var f fetcher
	switch cfg.Download.Engine {
	case "aria2":
		if !Aria2Available() {
			return nil, fmt.Errorf("download.engine is aria2 but aria2c is not on PATH")
		}
		f = &aria2Fetcher{retries: cfg.Download.Retries}
	case "native":
		f = newNativeFetcher(ws)
	default:
		if Aria2Available() {
			f = &aria2Fetcher{retries: cfg.Download.Retries}
		} else {
			f = newNativeFetcher(ws)
		}
	}
	return &Manager{ws: ws, cfg: cfg, log: log, fetcher: f, man: man}, nil
}

// Engine names the selected download engine.
func (m *Manager) Engine() string { return m.fetcher.Name() }

// Run executes every job in the plan. Failures are collected into the
// summary rather than aborting the pool; only context cancellation stops the
// run early. onEvent, when non-nil, is called concurrently from workers.
func (m *Manager) Run(ctx context.Context, plan *Plan, onEvent func(Event)) (*Summary, error) {
	emit := onEvent
	if emit == nil {
		emit = func(Event) {}
	}
	if nf, ok := m.fetcher.(*nativeFetcher); ok {
		defer nf.client.CloseIdleConnections()
	}

	start := time.Now()
	summary := &Summary{Skipped: len(plan.Skipped)}
	var smu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Download.Workers)
	for _, job := range plan.Jobs {
		g.Go(func() error {
			err := m.runJob(gctx, job, emit)
			if err == nil {
				smu.Lock()
				summary.Done++
				summary.Bytes += job.Size
				smu.Unlock()
				return nil
			}
			if gctx.Err() != nil {
				return gctx.Err()
			}
			smu.Lock()
			summary.Failed = append(summary.Failed, JobError{Job: job, Err: err})
			smu.Unlock()
			emit(Event{JobID: job.ID, Name: job.Filename, State: StateFailed, Err: err})
			m.log.Warn("download failed", zap.String("url", job.URL), zap.Error(err))
			return nil
		})
	}
	err := g.Wait()
	summary.Elapsed = time.Since(start)
	if err != nil {
		return summary, err
	}
	return summary, nil
}

func (m *Manager) runJob(ctx context.Context, job *Job, emit func(Event)) error {
	emit(Event{JobID: job.ID, Name: job.Filename, State: StateStarted})
	m.log.Info("downloading",
		zap.String("url", job.URL),
		zap.String("dest", m.ws.Rel(job.Dest)),
		zap.String("engine", m.fetcher.Name()))

	report := func(done, total int64) {
		emit(Event{JobID: job.ID, Name: job.Filename, State: StateProgress, Done: done, Total: total})
	}

	attempts := m.cfg.Download.Retries + 1
	if _, ok := m.fetcher.(*aria2Fetcher); ok {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = m.fetchOnce(ctx, job, report)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, errUnsupported) {
			break
		}
		if attempt < attempts {
			emit(Event{JobID: job.ID, Name: job.Filename, State: StateRetrying, Attempt: attempt, Err: err})
			m.log.Warn("retrying download",
				zap.String("file", job.Filename),
				zap.Int("attempt", attempt),
				zap.Error(err))
			if serr := sleepCtx(ctx, backoff(attempt)); serr != nil {
				return serr
			}
		}
	}
	if err != nil {
		return err
	}

	sum, size, err := HashFile(job.FinalDest())
	if err != nil {
		return fmt.Errorf("hashing %s: %w", m.ws.Rel(job.FinalDest()), err)
	}
	job.Size = size

	m.mu.Lock()
	m.man.Record(m.ws.Rel(job.FinalDest()), ManifestEntry{
		URL:         job.URL,
		Category:    job.Category,
		Size:        size,
		BLAKE3:      sum,
		CompletedAt: time.Now().UTC(),
	})
	saveErr := m.man.Save(m.ws)
	m.mu.Unlock()
	if saveErr != nil {
		return fmt.Errorf("updating manifest: %w", saveErr)
	}

	emit(Event{JobID: job.ID, Name: filepath.Base(job.FinalDest()), State: StateDone, Done: size, Total: size})
	m.log.Info("download complete",
		zap.String("file", m.ws.Rel(job.FinalDest())),
		zap.Int64("bytes", size))
	return nil
}

// fetchOnce applies the per-attempt timeout.
func (m *Manager) fetchOnce(ctx context.Context, job *Job, report func(int64, int64)) error {
	if timeout := m.cfg.Download.Timeout.Std(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return m.fetcher.Fetch(ctx, job, report)
}

// backoff doubles from 1s per attempt, capped at 30s.
func backoff(attempt int) time.Duration {
	d := time.Second << (attempt - 1)
	if d > 30*time.Second {
		return 30 * time.Second
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
