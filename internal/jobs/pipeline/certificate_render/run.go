package certificate_render

import (
	"bytes"
	"context"
	"fmt"
	"html"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	types "github.com/yungbote/coursepass-backend/internal/domain"
	"github.com/yungbote/coursepass-backend/internal/domain/certificate"
	jobrt "github.com/yungbote/coursepass-backend/internal/jobs/runtime"
	"github.com/yungbote/coursepass-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursepass-backend/internal/platform/dbctx"
	"github.com/yungbote/coursepass-backend/internal/platform/mailer"
	"github.com/yungbote/coursepass-backend/internal/services"
)

// Run renders and stores one certificate. The artifact key is derived from
// the job id, so a re-delivered job overwrites its own object.
func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Record == nil {
		return nil
	}
	rec := jc.Record
	ctx, span := p.tracer.Start(jc.Ctx, "certificate_render.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("certificate.record_id", rec.ID.String()),
		attribute.String("certificate.job_id", jc.JobID().String()),
		attribute.Int("certificate.attempt", rec.Attempts),
	)
	log := p.log.With(append(ctxutil.LogFields(ctx), "record_id", rec.ID, "job_id", jc.JobID())...)

	fail := func(stage string, err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, stage)
		log.Warn("certificate job failed", "stage", stage, "error", err)
		jc.Fail(stage, err)
		return services.NewTransientRenderError(stage, err)
	}

	dbc := dbctx.Context{Ctx: ctx}
	student, err := p.students.GetByID(dbc, rec.StudentID)
	if err != nil {
		return fail("load", fmt.Errorf("load student: %w", err))
	}
	if student == nil {
		return fail("load", fmt.Errorf("student %s not found", rec.StudentID))
	}
	diploma, err := p.diplomas.GetByID(dbc, rec.DiplomaID)
	if err != nil {
		return fail("load", fmt.Errorf("load diploma: %w", err))
	}
	if diploma == nil {
		return fail("load", fmt.Errorf("diploma %s not found", rec.DiplomaID))
	}

	issuedAt := rec.UpdatedAt
	if rec.RequestedAt != nil {
		issuedAt = *rec.RequestedAt
	}
	png, err := p.renderer.Render(ctx, services.CertificateInput{
		CertificateID: jc.JobID().String(),
		StudentName:   student.DisplayName(),
		DiplomaTitle:  diploma.Title,
		IssuedAt:      issuedAt,
		Template:      p.templates.Lookup(diploma.TemplateKey),
	})
	if err != nil {
		return fail("render", err)
	}
	if err := jc.Heartbeat(); err != nil {
		log.Warn("certificate heartbeat failed", "error", err)
	}

	key := certificate.ArtifactKey(rec.DiplomaID, rec.StudentID, jc.JobID())
	ref, err := p.store.Put(ctx, key, bytes.NewReader(png), "image/png")
	if err != nil {
		return fail("store", err)
	}

	if !jc.Succeed(ref) {
		// superseded by a forced restart or timed out by the reconciler
		log.Warn("certificate result discarded; record moved on")
		return nil
	}
	log.Info("certificate generated", "file_ref", ref)
	p.notifyStudent(ctx, student, diploma, ref)
	return nil
}

func (p *Pipeline) notifyStudent(ctx context.Context, student *types.Student, diploma *types.Diploma, ref string) {
	if p.mail == nil || student.Email == "" {
		return
	}
	name := student.DisplayName()
	msg := mailer.Message{
		ToName:  name,
		ToEmail: student.Email,
		Subject: fmt.Sprintf("Your certificate for %s is ready", diploma.Title),
		Text:    fmt.Sprintf("Hi %s,\n\nYour certificate for %s is ready: %s\n", name, diploma.Title, ref),
		HTML: fmt.Sprintf(`<p>Hi %s,</p><p>Your certificate for <strong>%s</strong> is ready.</p><p><a href="%s">Download certificate</a></p>`,
			html.EscapeString(name), html.EscapeString(diploma.Title), html.EscapeString(ref)),
	}
	if err := p.mail.Send(context.WithoutCancel(ctx), msg); err != nil {
		p.log.Warn("certificate email failed", "student_id", student.ID, "error", err)
	}
}
