package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/coursepass-backend/internal/data/repos"
	types "github.com/yungbote/coursepass-backend/internal/domain"
	"github.com/yungbote/coursepass-backend/internal/domain/certificate"
	"github.com/yungbote/coursepass-backend/internal/observability"
	"github.com/yungbote/coursepass-backend/internal/platform/apierr"
	"github.com/yungbote/coursepass-backend/internal/platform/dbctx"
	"github.com/yungbote/coursepass-backend/internal/platform/logger"
)

type CertificateService interface {
	// RequestGeneration starts a render job when the student is eligible.
	// Repeated or concurrent calls return the same job handle.
	RequestGeneration(ctx context.Context, studentID, diplomaID uuid.UUID, force bool) (*types.JobHandle, error)
	GetStatus(ctx context.Context, studentID, diplomaID uuid.UUID) (*certificate.StatusView, error)
}

type certificateService struct {
	log          *logger.Logger
	diplomas     repos.DiplomaRepo
	enrollment   repos.EnrollmentRepo
	certificates repos.CertificateRepo
	aggregator   ProgressAggregator
	notifier     CertificateNotifier
	now          func() time.Time
}

func NewCertificateService(
	baseLog *logger.Logger,
	diplomas repos.DiplomaRepo,
	enrollment repos.EnrollmentRepo,
	certificates repos.CertificateRepo,
	aggregator ProgressAggregator,
	notifier CertificateNotifier,
) CertificateService {
	if notifier == nil {
		notifier = nopCertificateNotifier{}
	}
	return &certificateService{
		log:          baseLog.With("service", "CertificateService"),
		diplomas:     diplomas,
		enrollment:   enrollment,
		certificates: certificates,
		aggregator:   aggregator,
		notifier:     notifier,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *certificateService) RequestGeneration(ctx context.Context, studentID, diplomaID uuid.UUID, force bool) (*types.JobHandle, error) {
	dbc := dbctx.Context{Ctx: ctx}
	diploma, err := s.diplomas.GetByID(dbc, diplomaID)
	if err != nil {
		return nil, fmt.Errorf("load diploma: %w", err)
	}
	if diploma == nil {
		return nil, apierr.NotFound("diploma_not_found", "diploma %s", diplomaID)
	}
	enr, err := s.enrollment.Get(dbc, studentID, types.ScopeDiploma, diplomaID)
	if err != nil {
		return nil, fmt.Errorf("load enrollment: %w", err)
	}
	if !enr.IsActive() {
		observability.Current().IncCertificateRequest("forbidden")
		return nil, apierr.Forbidden("not_enrolled", "no active enrollment for diploma %s", diplomaID)
	}

	rec, err := s.certificates.Ensure(dbc, studentID, diplomaID)
	if err != nil {
		return nil, fmt.Errorf("ensure certificate record: %w", err)
	}
	switch {
	case rec.Status == types.CertificateProcessing:
		observability.Current().IncCertificateRequest("in_flight")
		return handle(rec), nil
	case rec.Status == types.CertificateGenerated && !force:
		observability.Current().IncCertificateRequest("already_generated")
		return handle(rec), nil
	}

	dp, err := s.aggregator.GetDiplomaProgress(ctx, studentID, diplomaID)
	if err != nil {
		return nil, err
	}
	if !dp.Eligible {
		observability.Current().IncCertificateRequest("not_eligible")
		return nil, apierr.NotEligible("not_eligible", "diploma progress is %d%%", dp.Progress)
	}

	jobID := uuid.New()
	started, err := s.certificates.StartJob(dbc, rec.ID, certificate.RequestableFrom(force), jobID, force, s.now())
	if err != nil {
		return nil, fmt.Errorf("start certificate job: %w", err)
	}
	cur, err := s.certificates.GetByID(dbc, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("reload certificate record: %w", err)
	}
	if cur == nil {
		return nil, fmt.Errorf("certificate record %s vanished", rec.ID)
	}
	if !started {
		// lost the race; the winner's job is the answer
		observability.Current().IncCertificateRequest("in_flight")
		return handle(cur), nil
	}

	observability.Current().IncCertificateRequest("started")
	s.log.Info("certificate job enqueued",
		"student_id", studentID,
		"diploma_id", diplomaID,
		"job_id", jobID,
		"forced", force,
	)
	s.notifier.JobEnqueued(ctx, cur)
	s.notifier.StatusChanged(ctx, cur)
	return handle(cur), nil
}

func (s *certificateService) GetStatus(ctx context.Context, studentID, diplomaID uuid.UUID) (*certificate.StatusView, error) {
	dbc := dbctx.Context{Ctx: ctx}
	diploma, err := s.diplomas.GetByID(dbc, diplomaID)
	if err != nil {
		return nil, fmt.Errorf("load diploma: %w", err)
	}
	if diploma == nil {
		return nil, apierr.NotFound("diploma_not_found", "diploma %s", diplomaID)
	}
	rec, err := s.certificates.Get(dbc, studentID, diplomaID)
	if err != nil {
		return nil, fmt.Errorf("load certificate record: %w", err)
	}
	view := rec.View()
	return &view, nil
}

func handle(rec *types.CertificateRecord) *types.JobHandle {
	h := rec.Handle()
	return &h
}
