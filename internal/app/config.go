package app

import (
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/yungbote/coursepass-backend/internal/platform/envutil"
	"github.com/yungbote/coursepass-backend/internal/platform/logger"
)

type Config struct {
	Port        string
	RunMode     string
	ServiceName string
	Environment string
	Version     string
	CORSOrigins []string

	JWTSecret string
	JWTIssuer string
	JWTLeeway time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisChannel  string

	WorkerConcurrency int
	WorkerPoll        time.Duration
	CertStaleAfter    time.Duration
	CertHeartbeat     time.Duration
	ReconcileSpec     string
	ProcessingTimeout time.Duration
	TemplatesYAML     string
	FontPath          string

	StorageMode      string
	LocalArtifactDir string
	LocalArtifactURL string

	SendgridAPIKey    string
	SendgridFromName  string
	SendgridFromEmail string
	SendgridHost      string
}

// LoadConfig reads an optional .env first; process env wins over the file.
func LoadConfig(log *logger.Logger) Config {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file loaded", "error", err)
	}
	cfg := Config{
		Port:        envutil.String("PORT", "8080"),
		RunMode:     strings.ToLower(envutil.String("RUN_MODE", "all")),
		ServiceName: envutil.String("OTEL_SERVICE_NAME", "coursepass-backend"),
		Environment: envutil.String("APP_ENV", "development"),
		Version:     envutil.String("APP_VERSION", "dev"),
		CORSOrigins: splitList(envutil.String("CORS_ALLOWED_ORIGINS", "")),

		JWTSecret: envutil.String("JWT_SECRET", ""),
		JWTIssuer: envutil.String("JWT_ISSUER", ""),
		JWTLeeway: envutil.Duration("JWT_LEEWAY", 30*time.Second),

		RedisAddr:     envutil.String("REDIS_ADDR", ""),
		RedisPassword: envutil.String("REDIS_PASSWORD", ""),
		RedisDB:       envutil.Int("REDIS_DB", 0),
		RedisChannel:  envutil.String("REDIS_CHANNEL", "coursepass.certificates"),

		WorkerConcurrency: envutil.Int("WORKER_CONCURRENCY", 4),
		WorkerPoll:        envutil.Duration("WORKER_POLL_INTERVAL", 2*time.Second),
		CertStaleAfter:    envutil.Duration("CERT_STALE_AFTER", 2*time.Minute),
		CertHeartbeat:     envutil.Duration("CERT_HEARTBEAT_EVERY", 20*time.Second),
		ReconcileSpec:     envutil.String("CERT_RECONCILE_SPEC", "@every 1m"),
		ProcessingTimeout: envutil.Duration("CERT_PROCESSING_TIMEOUT", 15*time.Minute),
		TemplatesYAML:     envutil.String("CERT_TEMPLATES_YAML", ""),
		FontPath:          envutil.String("CERT_FONT_PATH", ""),

		StorageMode:      strings.ToLower(envutil.String("CERT_STORAGE", "local")),
		LocalArtifactDir: envutil.String("LOCAL_ARTIFACT_DIR", "./data/certificates"),
		LocalArtifactURL: envutil.String("LOCAL_ARTIFACT_BASE_URL", ""),

		SendgridAPIKey:    envutil.String("SENDGRID_API_KEY", ""),
		SendgridFromName:  envutil.String("SENDGRID_FROM_NAME", "CoursePass"),
		SendgridFromEmail: envutil.String("SENDGRID_FROM_EMAIL", "no-reply@coursepass.local"),
		SendgridHost:      envutil.String("SENDGRID_HOST", ""),
	}
	log.Info("config loaded",
		"run_mode", cfg.RunMode,
		"port", cfg.Port,
		"storage", cfg.StorageMode,
		"redis", cfg.RedisAddr != "",
		"worker_concurrency", cfg.WorkerConcurrency,
	)
	return cfg
}

func (c Config) runsAPI() bool    { return c.RunMode == "all" || c.RunMode == "api" }
func (c Config) runsWorker() bool { return c.RunMode == "all" || c.RunMode == "worker" }

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
