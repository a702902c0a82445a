package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/coursepass-backend/internal/data/repos"
	types "github.com/yungbote/coursepass-backend/internal/domain"
	"github.com/yungbote/coursepass-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursepass-backend/internal/platform/dbctx"
	"github.com/yungbote/coursepass-backend/internal/services"
)

/*
Context is the execution handle for one claimed certificate job.
Pipelines never write certificate_record directly; they report through
Heartbeat, Fail and Succeed. Terminal writes are CAS-guarded on
(id, job_id, status=processing), so a job that lost its record to a forced
restart or the reconciler cannot overwrite the newer state.
*/
type Context struct {
	Ctx    context.Context
	Record *types.CertificateRecord
	Repo   repos.CertificateRepo
	Notify services.CertificateNotifier

	mu       sync.Mutex
	finished bool
	outcome  string
	now      func() time.Time
}

// Outcomes reported by Context.Outcome. Superseded means the terminal write
// lost its CAS because the record moved on (timed out or restarted).
const (
	OutcomeGenerated  = "generated"
	OutcomeFailed     = "failed"
	OutcomeSuperseded = "superseded"
)

func NewContext(ctx context.Context, rec *types.CertificateRecord, repo repos.CertificateRepo, notify services.CertificateNotifier) *Context {
	c := &Context{
		Ctx:    ctxutil.Default(ctx),
		Record: rec,
		Repo:   repo,
		Notify: notify,
		now:    func() time.Time { return time.Now().UTC() },
	}
	c.applyTraceData()
	return c
}

func (c *Context) applyTraceData() {
	if ctxutil.GetTraceData(c.Ctx) != nil {
		return
	}
	jobID := c.JobID()
	if jobID == uuid.Nil {
		return
	}
	c.Ctx = ctxutil.WithTraceData(c.Ctx, &ctxutil.TraceData{RequestID: jobID.String()})
}

func (c *Context) JobID() uuid.UUID {
	if c == nil || c.Record == nil || c.Record.JobID == nil {
		return uuid.Nil
	}
	return *c.Record.JobID
}

// Finished reports whether Fail or Succeed already ran for this execution.
func (c *Context) Finished() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finished
}

// Outcome is empty until Fail or Succeed ran.
func (c *Context) Outcome() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcome
}

// Heartbeat refreshes heartbeat_at so the claim is not considered stale.
func (c *Context) Heartbeat() error {
	if c == nil || c.Record == nil || c.Repo == nil {
		return nil
	}
	return c.Repo.Heartbeat(dbctx.Context{Ctx: c.Ctx}, c.Record.ID, c.JobID(), c.now())
}

// Fail records err as the failure reason. Returns false when the record no
// longer belongs to this job.
func (c *Context) Fail(stage string, err error) bool {
	if c == nil || c.Record == nil {
		return false
	}
	reason := ""
	if err != nil {
		reason = services.NewTransientRenderError(stage, err).Error()
	}
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finished {
		return false
	}
	c.finished = true
	c.outcome = OutcomeSuperseded
	if c.Repo != nil {
		ok, repoErr := c.Repo.Fail(dbctx.Context{Ctx: context.WithoutCancel(c.Ctx)}, c.Record.ID, c.JobID(), reason, now)
		if repoErr != nil || !ok {
			return false
		}
	}
	c.outcome = OutcomeFailed
	c.Record.Status = types.CertificateFailed
	c.Record.ErrorReason = reason
	c.Record.CompletedAt = &now
	c.Record.LockedAt = nil
	if c.Notify != nil {
		c.Notify.StatusChanged(c.Ctx, c.Record)
	}
	return true
}

// Succeed marks the record generated with fileRef.
func (c *Context) Succeed(fileRef string) bool {
	if c == nil || c.Record == nil {
		return false
	}
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finished {
		return false
	}
	c.finished = true
	c.outcome = OutcomeSuperseded
	if c.Repo != nil {
		ok, err := c.Repo.Complete(dbctx.Context{Ctx: context.WithoutCancel(c.Ctx)}, c.Record.ID, c.JobID(), fileRef, now)
		if err != nil || !ok {
			return false
		}
	}
	c.outcome = OutcomeGenerated
	c.Record.Status = types.CertificateGenerated
	c.Record.FileRef = fileRef
	c.Record.ErrorReason = ""
	c.Record.CompletedAt = &now
	c.Record.LockedAt = nil
	if c.Notify != nil {
		c.Notify.StatusChanged(c.Ctx, c.Record)
	}
	return true
}
