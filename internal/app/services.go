package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/coursepass-backend/internal/clients/redis"
	"github.com/yungbote/coursepass-backend/internal/platform/gcp"
	"github.com/yungbote/coursepass-backend/internal/platform/logger"
	"github.com/yungbote/coursepass-backend/internal/platform/mailer"
	"github.com/yungbote/coursepass-backend/internal/services"
)

type Services struct {
	Sessions     services.SessionService
	Progress     services.ProgressService
	Aggregator   services.ProgressAggregator
	Access       services.AccessGate
	Enrollment   services.EnrollmentService
	Certificates services.CertificateService
	Notifier     services.CertificateNotifier

	// render side, used by the worker
	Templates *services.TemplateCatalog
	Renderer  services.CertificateRenderer
	Store     services.ArtifactStore
	Mailer    mailer.Mailer

	bucket *gcp.CertificateBucket
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, bus redis.StatusBus) (Services, error) {
	log.Info("Wiring services...")

	sessions, err := services.NewSessionService(log, services.SessionConfig{
		Secret: cfg.JWTSecret,
		Issuer: cfg.JWTIssuer,
		Leeway: cfg.JWTLeeway,
	})
	if err != nil {
		return Services{}, fmt.Errorf("init session service: %w", err)
	}

	notifier := services.NewCertificateNotifier(log, bus)
	aggregator := services.NewProgressAggregator(log, reposet.Courses, reposet.Diplomas, reposet.Lessons, reposet.Progress)

	templates, err := services.LoadTemplateCatalog(cfg.TemplatesYAML)
	if err != nil {
		return Services{}, err
	}
	renderer, err := services.NewCertificateRenderer(log, cfg.FontPath)
	if err != nil {
		return Services{}, fmt.Errorf("init certificate renderer: %w", err)
	}

	out := Services{
		Sessions:   sessions,
		Aggregator: aggregator,
		Notifier:   notifier,
		Progress:   services.NewProgressService(db, log, reposet.Lessons, reposet.Enrollment, reposet.Progress),
		Access:     services.NewAccessGate(log, reposet.Lessons, reposet.Assessments, reposet.Enrollment, aggregator),
		Enrollment: services.NewEnrollmentService(db, log, reposet.Diplomas, reposet.Courses, reposet.Enrollment, reposet.Certificates),
		Certificates: services.NewCertificateService(
			log,
			reposet.Diplomas,
			reposet.Enrollment,
			reposet.Certificates,
			aggregator,
			notifier,
		),
		Templates: templates,
		Renderer:  renderer,
		Mailer: mailer.New(log, mailer.Config{
			APIKey:    cfg.SendgridAPIKey,
			FromName:  cfg.SendgridFromName,
			FromEmail: cfg.SendgridFromEmail,
			Host:      cfg.SendgridHost,
		}),
	}

	switch cfg.StorageMode {
	case "gcs":
		bucket, err := gcp.NewCertificateBucketFromEnv(log)
		if err != nil {
			return Services{}, fmt.Errorf("init certificate bucket: %w", err)
		}
		out.bucket = bucket
		out.Store = bucket
	case "local", "":
		out.Store = &services.LocalArtifactStore{Root: cfg.LocalArtifactDir, BaseURL: cfg.LocalArtifactURL}
	default:
		return Services{}, fmt.Errorf("unsupported CERT_STORAGE %q", cfg.StorageMode)
	}
	return out, nil
}

func (s Services) close() {
	if s.bucket != nil {
		_ = s.bucket.Close()
	}
}
