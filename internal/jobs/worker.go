package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/garnizeh/rojgar/internal/models"
	"github.com/garnizeh/rojgar/pkg/repository"
)

const (
	pollInterval  = 500 * time.Millisecond
	errorInterval = time.Second
)

// WorkerPool drains the persistent queue with a fixed number of goroutines.
// Idle workers poll; Enqueue on the pool wakes one of them immediately.
type WorkerPool struct {
	repo     repository.BackgroundJobRepo
	handlers map[string]Handler
	logger   *slog.Logger
	size     int

	wake     chan struct{}
	quit     chan struct{}
	quitOnce sync.Once
	wg       sync.WaitGroup
}

func NewWorkerPool(repo repository.BackgroundJobRepo, handlers map[string]Handler, logger *slog.Logger, size int) *WorkerPool {
	if size <= 0 {
		size = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkerPool{
		repo:     repo,
		handlers: handlers,
		logger:   logger.With(slog.String("component", "jobs")),
		size:     size,
		wake:     make(chan struct{}, 1),
		quit:     make(chan struct{}),
	}
}

func (p *WorkerPool) Start(ctx context.Context) {
	p.logger.Info("worker pool starting", slog.Int("workers", p.size))
	for i := range p.size {
		p.wg.Add(1)
		go p.loop(ctx, i)
	}
}

// Stop asks every worker to finish its current job and waits. Safe to call twice.
func (p *WorkerPool) Stop() {
	p.quitOnce.Do(func() { close(p.quit) })
	p.wg.Wait()
}

func (p *WorkerPool) loop(ctx context.Context, id int) {
	defer p.wg.Done()
	log := p.logger.With(slog.Int("worker", id))
	for {
		worked, err := p.RunOnce(ctx)
		if err != nil {
			log.Error("fetch job", slog.Any("err", err))
		}
		if worked {
			continue
		}
		delay := pollInterval
		if err != nil {
			delay = errorInterval
		}
		if !p.sleep(ctx, delay) {
			log.Debug("worker exiting")
			return
		}
	}
}

// sleep waits for d or a wake-up; false means the pool is shutting down.
func (p *WorkerPool) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-p.quit:
		return false
	case <-ctx.Done():
		return false
	case <-p.wake:
		return true
	case <-t.C:
		return true
	}
}

// RunOnce claims and processes at most one due job. It reports whether a job
// was found; the error is only about claiming it.
func (p *WorkerPool) RunOnce(ctx context.Context) (bool, error) {
	select {
	case <-p.quit:
		return false, nil
	default:
	}
	job, err := p.repo.FetchNext(ctx)
	if err != nil || job == nil {
		return false, err
	}
	p.process(ctx, job)
	return true, nil
}

func (p *WorkerPool) process(ctx context.Context, job *models.BackgroundJob) {
	log := p.logger.With(slog.Int64("job_id", job.ID), slog.String("type", job.Type))

	h, ok := p.handlers[job.Type]
	if !ok {
		log.Warn("no handler registered; dead-lettering")
		job.Status = models.JobFailed
		job.LastError = "no handler"
		p.deadLetter(ctx, log, job)
		return
	}

	start := time.Now()
	if err := runHandler(ctx, h, job); err != nil {
		p.fail(ctx, log, job, err)
		return
	}
	job.Status = models.JobDone
	if err := p.repo.UpdateJob(ctx, job); err != nil {
		log.Error("mark job done", slog.Any("err", err))
	}
	log.Debug("job done", slog.Duration("took", time.Since(start)))
}

// runHandler converts a handler panic into an error so one bad job cannot
// take a worker down.
func runHandler(ctx context.Context, h Handler, job *models.BackgroundJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, job)
}

func (p *WorkerPool) fail(ctx context.Context, log *slog.Logger, job *models.BackgroundJob, err error) {
	job.Attempts++
	job.LastError = err.Error()
	if job.Attempts >= job.MaxAttempts {
		log.Warn("job out of attempts", slog.Int("attempts", job.Attempts), slog.Any("err", err))
		job.Status = models.JobFailed
		p.deadLetter(ctx, log, job)
		return
	}

	next := time.Now().Add(BackoffDuration(job.Attempts))
	job.NextTryAt = &next
	job.Status = models.JobRetry
	log.Info("job will retry", slog.Int("attempts", job.Attempts), slog.Time("next_try_at", next), slog.Any("err", err))
	if upErr := p.repo.UpdateJob(ctx, job); upErr != nil {
		log.Error("schedule retry", slog.Any("err", upErr))
	}
}

func (p *WorkerPool) deadLetter(ctx context.Context, log *slog.Logger, job *models.BackgroundJob) {
	if err := p.repo.MoveToDeadLetter(ctx, job); err != nil {
		log.Error("move to dead letter", slog.Any("err", err))
	}
}

// Enqueue stores a job and nudges an idle worker.
func (p *WorkerPool) Enqueue(ctx context.Context, typ string, payload any, priority int, maxAttempts int) (int64, error) {
	id, err := Enqueue(ctx, p.repo, typ, payload, priority, maxAttempts)
	if err == nil {
		select {
		case p.wake <- struct{}{}:
		default:
		}
	}
	return id, err
}

// Enqueue marshals payload and stores a new job in repo.
func Enqueue(ctx context.Context, repo repository.BackgroundJobRepo, typ string, payload any, priority int, maxAttempts int) (int64, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("encode %s payload: %w", typ, err)
	}
	return repo.Enqueue(ctx, &models.BackgroundJob{
		Type:        typ,
		Payload:     b,
		Priority:    priority,
		MaxAttempts: maxAttempts,
		ScheduledAt: time.Now(),
	})
}
