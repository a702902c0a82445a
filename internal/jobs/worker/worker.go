package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yungbote/coursepass-backend/internal/data/repos"
	types "github.com/yungbote/coursepass-backend/internal/domain"
	"github.com/yungbote/coursepass-backend/internal/jobs/runtime"
	"github.com/yungbote/coursepass-backend/internal/observability"
	"github.com/yungbote/coursepass-backend/internal/platform/dbctx"
	"github.com/yungbote/coursepass-backend/internal/platform/logger"
	"github.com/yungbote/coursepass-backend/internal/services"
)

// Handler runs one claimed certificate job.
type Handler interface {
	Type() string
	Run(jc *runtime.Context) error
}

type Config struct {
	Concurrency    int
	PollInterval   time.Duration
	StaleAfter     time.Duration
	HeartbeatEvery time.Duration
}

func (c Config) withDefaults() Config {
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = 2 * time.Minute
	}
	if c.HeartbeatEvery <= 0 || c.HeartbeatEvery >= c.StaleAfter {
		c.HeartbeatEvery = c.StaleAfter / 4
	}
	return c
}

type Worker struct {
	log     *logger.Logger
	repo    repos.CertificateRepo
	handler Handler
	notify  services.CertificateNotifier
	cfg     Config
	wake    chan struct{}
	now     func() time.Time
}

func NewWorker(baseLog *logger.Logger, repo repos.CertificateRepo, handler Handler, notify services.CertificateNotifier, cfg Config) *Worker {
	cfg = cfg.withDefaults()
	return &Worker{
		log:     baseLog.With("component", "CertificateWorker"),
		repo:    repo,
		handler: handler,
		notify:  notify,
		cfg:     cfg,
		wake:    make(chan struct{}, cfg.Concurrency),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Wake nudges idle workers after a job was enqueued. Never blocks.
func (w *Worker) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("Starting certificate worker pool", "concurrency", w.cfg.Concurrency, "handler", w.handler.Type())
	var wg sync.WaitGroup
	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.runLoop(ctx, workerID)
		}(i + 1)
	}
	wg.Wait()
	return nil
}

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
		case <-w.wake:
		}
		// drain the queue before going back to sleep
		for ctx.Err() == nil {
			ran, err := w.RunOnce(ctx)
			if err != nil {
				w.log.Warn("ClaimNext failed", "worker_id", workerID, "error", err)
				break
			}
			if !ran {
				break
			}
		}
	}
}

// RunOnce claims and executes at most one job. It reports whether a job ran.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	rec, err := w.repo.ClaimNext(dbctx.Context{Ctx: ctx}, w.cfg.StaleAfter, w.now())
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, nil
	}
	w.execute(ctx, rec)
	return true, nil
}

func (w *Worker) execute(ctx context.Context, rec *types.CertificateRecord) {
	jc := runtime.NewContext(ctx, rec, w.repo, w.notify)
	start := time.Now()

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go w.heartbeat(hbCtx, jc)

	func() {
		defer func() {
			if r := recover(); r != nil {
				w.log.Error("Certificate job panic",
					"record_id", rec.ID,
					"job_id", jc.JobID(),
					"panic", r,
				)
				jc.Fail("panic", errFromRecover(r))
			}
		}()
		if runErr := w.handler.Run(jc); runErr != nil && !jc.Finished() {
			// safety net for handlers that return without reporting
			jc.Fail("run", runErr)
		}
	}()

	if !jc.Finished() {
		jc.Fail("run", fmt.Errorf("handler returned without a result"))
	}
	observability.Current().ObserveCertificateJob(jc.Outcome(), time.Since(start))
}

func (w *Worker) heartbeat(ctx context.Context, jc *runtime.Context) {
	t := time.NewTicker(w.cfg.HeartbeatEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if jc.Finished() {
				return
			}
			if err := jc.Heartbeat(); err != nil {
				w.log.Warn("certificate heartbeat failed", "record_id", jc.Record.ID, "error", err)
			}
		}
	}
}

func errFromRecover(v any) error { return &panicError{Val: v} }

type panicError struct{ Val any }

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.Val) }
