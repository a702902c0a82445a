package app

import (
	apphttp "github.com/yungbote/coursepass-backend/internal/http"
	"github.com/yungbote/coursepass-backend/internal/observability"
	"github.com/yungbote/coursepass-backend/internal/platform/logger"
)

func routerConfig(log *logger.Logger, cfg Config, handlerset Handlers, middleware Middleware) apphttp.RouterConfig {
	return apphttp.RouterConfig{
		Log:                log,
		ServiceName:        cfg.ServiceName,
		CORSOrigins:        cfg.CORSOrigins,
		Metrics:            observability.Current(),
		AuthMiddleware:     middleware.Auth,
		ProgressHandler:    handlerset.Progress,
		EnrollmentHandler:  handlerset.Enrollment,
		CertificateHandler: handlerset.Certificate,
		AccessHandler:      handlerset.Access,
		HealthHandler:      handlerset.Health,
	}
}

func wireServer(log *logger.Logger, cfg Config, handlerset Handlers, middleware Middleware) *apphttp.Server {
	log.Info("Wiring router...")
	return apphttp.NewServer(routerConfig(log, cfg, handlerset, middleware))
}
