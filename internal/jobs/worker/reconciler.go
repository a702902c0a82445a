package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/yungbote/coursepass-backend/internal/data/repos"
	"github.com/yungbote/coursepass-backend/internal/observability"
	"github.com/yungbote/coursepass-backend/internal/platform/dbctx"
	"github.com/yungbote/coursepass-backend/internal/platform/logger"
	"github.com/yungbote/coursepass-backend/internal/services"
)

const timedOutReason = "processing timed out"

// Reconciler fails certificate jobs that stayed in processing longer than
// the timeout, so a lost worker never leaves a record stuck.
type Reconciler struct {
	log     *logger.Logger
	repo    repos.CertificateRepo
	notify  services.CertificateNotifier
	spec    string
	timeout time.Duration
	now     func() time.Time
}

func NewReconciler(baseLog *logger.Logger, repo repos.CertificateRepo, notify services.CertificateNotifier, spec string, timeout time.Duration) *Reconciler {
	if spec == "" {
		spec = "@every 1m"
	}
	if timeout <= 0 {
		timeout = 15 * time.Minute
	}
	return &Reconciler{
		log:     baseLog.With("component", "CertificateReconciler"),
		repo:    repo,
		notify:  notify,
		spec:    spec,
		timeout: timeout,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run schedules Sweep on the cron spec and blocks until ctx is done.
func (r *Reconciler) Run(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(r.spec, func() {
		if n, err := r.Sweep(ctx); err != nil {
			r.log.Warn("certificate reconcile failed", "error", err)
		} else if n > 0 {
			r.log.Info("certificate jobs timed out", "count", n)
		}
	}); err != nil {
		return fmt.Errorf("schedule reconciler %q: %w", r.spec, err)
	}
	r.log.Info("Starting certificate reconciler", "spec", r.spec, "timeout", r.timeout)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// Sweep fails every processing record requested before now-timeout.
func (r *Reconciler) Sweep(ctx context.Context) (int, error) {
	dbc := dbctx.Context{Ctx: ctx}
	now := r.now()
	stuck, err := r.repo.ListStuck(dbc, now.Add(-r.timeout), 100)
	if err != nil {
		return 0, fmt.Errorf("list stuck certificates: %w", err)
	}
	failed := 0
	for _, rec := range stuck {
		if rec.JobID == nil {
			continue
		}
		ok, err := r.repo.Fail(dbc, rec.ID, *rec.JobID, timedOutReason, now)
		if err != nil {
			return failed, fmt.Errorf("fail stuck certificate %s: %w", rec.ID, err)
		}
		if !ok {
			continue
		}
		failed++
		cur, err := r.repo.GetByID(dbc, rec.ID)
		if err == nil && cur != nil && r.notify != nil {
			r.notify.StatusChanged(ctx, cur)
		}
	}
	observability.Current().AddReconciled(failed)
	return failed, nil
}
