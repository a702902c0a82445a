package observability

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	types "github.com/yungbote/coursepass-backend/internal/domain"
	"github.com/yungbote/coursepass-backend/internal/platform/envutil"
	"github.com/yungbote/coursepass-backend/internal/platform/logger"
)

// Metrics methods are nil-safe so callers never check Enabled().
type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	lessonEvents    *prometheus.CounterVec
	progressRetries prometheus.Counter
	accessDecisions *prometheus.CounterVec
	enrollments     *prometheus.CounterVec

	certRequests   *prometheus.CounterVec
	certJobs       *prometheus.CounterVec
	certRender     *prometheus.HistogramVec
	certQueueDepth *prometheus.GaugeVec
	certReconciled prometheus.Counter

	redisUp   prometheus.Gauge
	redisPing prometheus.Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

func Current() *Metrics {
	return instance
}

func scrapeInterval() time.Duration {
	return envutil.Duration("METRICS_SCRAPE_INTERVAL", 15*time.Second)
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = newMetrics()
		if log != nil {
			log.Info("prometheus metrics initialized")
		}
	})
	return instance
}

func newMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cp_api_requests_total",
			Help: "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cp_api_request_duration_seconds",
			Help:    "API request latency in seconds by method/route/status.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"method", "route", "status"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cp_api_inflight_requests",
			Help: "In-flight API requests.",
		}),
		lessonEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cp_lesson_events_total",
			Help: "Lesson events by event/outcome.",
		}, []string{"event", "outcome"}),
		progressRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cp_lesson_progress_cas_retries_total",
			Help: "Lesson progress writes retried after losing a version race.",
		}),
		accessDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cp_access_decisions_total",
			Help: "Access gate decisions by target type/decision/reason.",
		}, []string{"target_type", "decision", "reason"}),
		enrollments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cp_enrollment_transitions_total",
			Help: "Enrollment creations and activations by scope/status.",
		}, []string{"scope", "status"}),
		certRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cp_certificate_requests_total",
			Help: "Certificate generation requests by outcome.",
		}, []string{"outcome"}),
		certJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cp_certificate_jobs_total",
			Help: "Certificate jobs finished by status.",
		}, []string{"status"}),
		certRender: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cp_certificate_render_duration_seconds",
			Help:    "Certificate render and upload latency by status.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"status"}),
		certQueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cp_certificate_records",
			Help: "Certificate records by status.",
		}, []string{"status"}),
		certReconciled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cp_certificate_reconciled_total",
			Help: "Processing records failed by the reconciler after timing out.",
		}),
		redisUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cp_redis_up",
			Help: "Redis reachability (1 up, 0 down).",
		}),
		redisPing: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cp_redis_ping_seconds",
			Help: "Redis ping latency in seconds.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.lessonEvents, m.progressRetries, m.accessDecisions, m.enrollments,
		m.certRequests, m.certJobs, m.certRender, m.certQueueDepth, m.certReconciled,
		m.redisUp, m.redisPing,
	)
	return m
}

// Handler serves the registry. A nil receiver serves 404 so the route can
// stay mounted when metrics are disabled.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route, status).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) IncLessonEvent(event, outcome string) {
	if m == nil {
		return
	}
	m.lessonEvents.WithLabelValues(orUnknown(event), orUnknown(outcome)).Inc()
}

func (m *Metrics) IncProgressRetry() {
	if m == nil {
		return
	}
	m.progressRetries.Inc()
}

func (m *Metrics) IncAccessDecision(targetType, decision, reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "none"
	}
	m.accessDecisions.WithLabelValues(orUnknown(targetType), orUnknown(decision), reason).Inc()
}

func (m *Metrics) IncEnrollment(scope, status string) {
	if m == nil {
		return
	}
	m.enrollments.WithLabelValues(orUnknown(scope), orUnknown(status)).Inc()
}

func (m *Metrics) IncCertificateRequest(outcome string) {
	if m == nil {
		return
	}
	m.certRequests.WithLabelValues(orUnknown(outcome)).Inc()
}

func (m *Metrics) ObserveCertificateJob(status string, dur time.Duration) {
	if m == nil {
		return
	}
	status = orUnknown(status)
	m.certJobs.WithLabelValues(status).Inc()
	m.certRender.WithLabelValues(status).Observe(dur.Seconds())
}

func (m *Metrics) AddReconciled(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.certReconciled.Add(float64(n))
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb redis.UniversalClient) {
	if m == nil || rdb == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}

// StartCertificateQueueCollector samples certificate record counts per status.
func (m *Metrics) StartCertificateQueueCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		if regErr := m.registry.Register(collectors.NewDBStatsCollector(sqlDB, db.Dialector.Name())); regErr != nil && log != nil {
			log.Warn("metrics: db stats collector not registered", "error", regErr)
		}
	}
	interval := scrapeInterval()
	statuses := []types.CertificateStatus{
		types.CertificateNotGenerated,
		types.CertificateProcessing,
		types.CertificateGenerated,
		types.CertificateFailed,
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, s := range statuses {
					m.certQueueDepth.WithLabelValues(string(s)).Set(0)
				}
				var rows []struct {
					Status string
					Count  int64
				}
				if err := db.WithContext(ctx).
					Model(&types.CertificateRecord{}).
					Select("status, count(*) as count").
					Group("status").
					Scan(&rows).Error; err != nil {
					if log != nil {
						log.Warn("metrics: certificate status query failed", "error", err)
					}
					continue
				}
				for _, row := range rows {
					m.certQueueDepth.WithLabelValues(orUnknown(row.Status)).Set(float64(row.Count))
				}
			}
		}
	}()
}

func orUnknown(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	return v
}
