package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/coursepass-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursepass-backend/internal/platform/logger"
)

// Query keys that identify the diploma, course or gated target a request is
// about. They are copied into the request log when present.
var loggedQueryKeys = []string{"diploma_id", "course_id", "target_type", "target_id"}

// RequestLogger writes one line per request. Scrape and health routes are
// only logged when they fail.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if log == nil {
			return
		}
		status := c.Writer.Status()
		if status < 400 && isInfraRoute(c.Request.URL.Path) {
			return
		}

		fields := requestFields(c, time.Since(start))
		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}

func requestFields(c *gin.Context, elapsed time.Duration) []interface{} {
	fields := []interface{}{
		"method", strings.ToUpper(c.Request.Method),
		"route", routeLabel(c),
		"status", c.Writer.Status(),
		"duration_ms", elapsed.Milliseconds(),
	}
	if id := strings.TrimSpace(c.Param("id")); id != "" {
		// /lessons/:id and /admin/diplomas/:id share the param name
		fields = append(fields, "path_id", id)
	}
	q := c.Request.URL.Query()
	for _, key := range loggedQueryKeys {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			fields = append(fields, key, v)
		}
	}

	ctx := c.Request.Context()
	if td := ctxutil.GetTraceData(ctx); td != nil {
		if td.TraceID != "" {
			fields = append(fields, "trace_id", td.TraceID)
		}
		if td.RequestID != "" {
			fields = append(fields, "request_id", td.RequestID)
		}
	}
	if rd := ctxutil.GetRequestData(ctx); rd != nil {
		if rd.UserID != uuid.Nil {
			fields = append(fields, "student_id", rd.UserID.String())
		}
		if rd.Role != "" {
			fields = append(fields, "role", rd.Role)
		}
	}
	if len(c.Errors) > 0 {
		fields = append(fields, "errors", c.Errors.String())
	}
	return fields
}
