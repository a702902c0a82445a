package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/coursepass-backend/internal/clients/redis"
	"github.com/yungbote/coursepass-backend/internal/data/db"
	apphttp "github.com/yungbote/coursepass-backend/internal/http"
	"github.com/yungbote/coursepass-backend/internal/jobs/pipeline/certificate_render"
	"github.com/yungbote/coursepass-backend/internal/jobs/worker"
	"github.com/yungbote/coursepass-backend/internal/observability"
	"github.com/yungbote/coursepass-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Server   *apphttp.Server
	Cfg      Config
	Repos    Repos
	Services Services

	Worker     *worker.Worker
	Reconciler *worker.Reconciler

	dbService    db.Service
	bus          redis.StatusBus
	otelShutdown func(context.Context) error
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	dbService, err := db.Open(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("open database: %w", err)
	}
	theDB := dbService.DB()
	if err := db.AutoMigrateAll(theDB); err != nil {
		_ = dbService.Close()
		log.Sync()
		return nil, err
	}
	if err := db.EnsureIndexes(theDB); err != nil {
		_ = dbService.Close()
		log.Sync()
		return nil, err
	}

	observability.Init(log)
	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})

	// Redis is optional: without it workers fall back to polling.
	var bus redis.StatusBus
	if cfg.RedisAddr != "" {
		bus, err = redis.NewStatusBus(log, redis.StatusBusConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Channel:  cfg.RedisChannel,
		})
		if err != nil {
			_ = dbService.Close()
			log.Sync()
			return nil, fmt.Errorf("init redis status bus: %w", err)
		}
	} else {
		log.Warn("REDIS_ADDR not set; certificate workers will poll only")
	}

	reposet := wireRepos(theDB, log)

	serviceset, err := wireServices(theDB, log, cfg, reposet, bus)
	if err != nil {
		if bus != nil {
			_ = bus.Close()
		}
		_ = dbService.Close()
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(theDB, log, serviceset)
	middleware := wireMiddleware(log, serviceset)
	server := wireServer(log, cfg, handlerset, middleware)

	pipeline := certificate_render.New(
		log,
		reposet.Students,
		reposet.Diplomas,
		serviceset.Templates,
		serviceset.Renderer,
		serviceset.Store,
		serviceset.Mailer,
	)
	certWorker := worker.NewWorker(log, reposet.Certificates, pipeline, serviceset.Notifier, worker.Config{
		Concurrency:    cfg.WorkerConcurrency,
		PollInterval:   cfg.WorkerPoll,
		StaleAfter:     cfg.CertStaleAfter,
		HeartbeatEvery: cfg.CertHeartbeat,
	})
	reconciler := worker.NewReconciler(log, reposet.Certificates, serviceset.Notifier, cfg.ReconcileSpec, cfg.ProcessingTimeout)

	return &App{
		Log:          log,
		DB:           theDB,
		Server:       server,
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		Worker:       certWorker,
		Reconciler:   reconciler,
		dbService:    dbService,
		bus:          bus,
		otelShutdown: otelShutdown,
	}, nil
}

// Run blocks until ctx is cancelled or one of the components fails.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if m := observability.Current(); m != nil {
		m.StartCertificateQueueCollector(gctx, a.Log, a.DB)
		if a.bus != nil {
			m.StartRedisCollector(gctx, a.Log, a.bus.Client())
		}
	}

	if a.Cfg.runsWorker() {
		if a.bus != nil {
			err := a.bus.StartForwarder(gctx, func(m redis.StatusMessage) {
				if m.Kind == redis.KindJobEnqueued {
					a.Worker.Wake()
				}
			})
			if err != nil {
				return fmt.Errorf("start status forwarder: %w", err)
			}
		}
		g.Go(func() error { return a.Worker.Run(gctx) })
		g.Go(func() error { return a.Reconciler.Run(gctx) })
	}

	if a.Cfg.runsAPI() {
		g.Go(func() error { return a.Server.Run(gctx, ":"+a.Cfg.Port) })
	}

	a.Log.Info("coursepass running", "run_mode", a.Cfg.RunMode)
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
	}
	a.Services.close()
	if a.bus != nil {
		_ = a.bus.Close()
	}
	if a.dbService != nil {
		_ = a.dbService.Close()
	}
	a.Log.Sync()
}
