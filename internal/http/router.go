package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/coursepass-backend/internal/http/handlers"
	httpMW "github.com/yungbote/coursepass-backend/internal/http/middleware"
	"github.com/yungbote/coursepass-backend/internal/observability"
	"github.com/yungbote/coursepass-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	CORSOrigins    []string
	Metrics        *observability.Metrics
	AuthMiddleware *httpMW.AuthMiddleware

	ProgressHandler    *httpH.ProgressHandler
	EnrollmentHandler  *httpH.EnrollmentHandler
	CertificateHandler *httpH.CertificateHandler
	AccessHandler      *httpH.AccessHandler
	HealthHandler      *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")

	// Public; a session is attached when present
	if cfg.AccessHandler != nil && cfg.AuthMiddleware != nil {
		api.GET("/authorize", cfg.AuthMiddleware.OptionalAuth(), cfg.AccessHandler.Authorize)
	}

	if cfg.AuthMiddleware == nil {
		return r
	}

	protected := api.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	{
		if cfg.ProgressHandler != nil {
			protected.GET("/progress", cfg.ProgressHandler.GetCourseProgress)
			protected.GET("/diploma-progress", cfg.ProgressHandler.GetDiplomaProgress)
			protected.POST("/lessons/:id/events", cfg.ProgressHandler.RecordLessonEvent)
		}
		if cfg.EnrollmentHandler != nil {
			protected.POST("/enrollments", cfg.EnrollmentHandler.Enroll)
			protected.GET("/enrollments", cfg.EnrollmentHandler.ListMine)
		}
		if cfg.CertificateHandler != nil {
			protected.GET("/certificate-status", cfg.CertificateHandler.GetStatus)
			protected.POST("/certificate/generate", cfg.CertificateHandler.Generate)
		}
	}

	// Operators and trusted collaborators (payment service)
	admin := api.Group("/")
	admin.Use(cfg.AuthMiddleware.RequireAuth(), cfg.AuthMiddleware.RequireAdmin())
	{
		if cfg.EnrollmentHandler != nil {
			admin.POST("/internal/enrollments/activate", cfg.EnrollmentHandler.Activate)
			admin.POST("/admin/diplomas/:id/courses", cfg.EnrollmentHandler.LinkCourse)
			admin.POST("/admin/diplomas/:id/backfill", cfg.EnrollmentHandler.Backfill)
		}
		if cfg.ProgressHandler != nil {
			admin.POST("/admin/progress/correct", cfg.ProgressHandler.CorrectLessonProgress)
		}
		if cfg.CertificateHandler != nil {
			admin.POST("/admin/certificate/generate", cfg.CertificateHandler.AdminGenerate)
		}
	}

	return r
}
