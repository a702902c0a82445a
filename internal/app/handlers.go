package app

import (
	"gorm.io/gorm"

	httpH "github.com/yungbote/coursepass-backend/internal/http/handlers"
	"github.com/yungbote/coursepass-backend/internal/platform/logger"
)

type Handlers struct {
	Health      *httpH.HealthHandler
	Progress    *httpH.ProgressHandler
	Enrollment  *httpH.EnrollmentHandler
	Certificate *httpH.CertificateHandler
	Access      *httpH.AccessHandler
}

func wireHandlers(db *gorm.DB, log *logger.Logger, serviceset Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:      httpH.NewHealthHandler(db),
		Progress:    httpH.NewProgressHandler(log, serviceset.Progress, serviceset.Aggregator),
		Enrollment:  httpH.NewEnrollmentHandler(log, serviceset.Enrollment),
		Certificate: httpH.NewCertificateHandler(log, serviceset.Certificates),
		Access:      httpH.NewAccessHandler(log, serviceset.Access),
	}
}
