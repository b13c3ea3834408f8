// Command server runs the content host with the audit subsystem wired in:
// HTTP surface, dispatch worker, and the retention cron.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"chronicle/internal/admin"
	"chronicle/internal/audit/classify"
	"chronicle/internal/audit/dispatch"
	audithandler "chronicle/internal/audit/handler"
	"chronicle/internal/audit/intercept"
	auditmetrics "chronicle/internal/audit/metrics"
	"chronicle/internal/audit/query"
	"chronicle/internal/audit/retention"
	"chronicle/internal/audit/store"
	memorystore "chronicle/internal/audit/store/memory"
	postgresstore "chronicle/internal/audit/store/postgres"
	"chronicle/internal/audit/writer"
	"chronicle/internal/content/documents"
	contenthandler "chronicle/internal/content/handler"
	"chronicle/internal/content/uploader"
	httpapi "chronicle/internal/http"
	jwttoken "chronicle/internal/jwt_token"
	"chronicle/internal/platform/config"
	"chronicle/internal/platform/httpserver"
	"chronicle/internal/platform/logger"
	platformmetrics "chronicle/internal/platform/metrics"
	"chronicle/internal/platform/postgres"
	platformredis "chronicle/internal/platform/redis"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log)
	auditCfg := cfg.Audit.ToAudit()

	registry := prometheus.NewRegistry()
	auditMetrics := auditmetrics.New(registry)
	httpMetrics := platformmetrics.New(registry)

	var auditStore store.Store
	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			log.Error("failed to connect to postgres", "error", err)
			return err
		}
		defer db.Close()

		pg := postgresstore.New(db)
		if err := pg.Migrate(ctx); err != nil {
			log.Error("failed to migrate audit schema", "error", err)
			return err
		}
		auditStore = pg
		log.Info("audit store: postgres")
	} else {
		auditStore = memorystore.New()
		log.Warn("DATABASE_URL not set, audit records are held in memory only")
	}

	classifier := classify.New(auditCfg)
	auditWriter := writer.New(auditStore, auditCfg, log, auditMetrics)
	dispatcher := dispatch.New(auditWriter, cfg.Audit.QueueSize, log, auditMetrics)

	retentionOpts := []retention.Option{}
	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		retentionOpts = append(retentionOpts, retention.WithLocker(retention.NewRedisLocker(redisClient.Client)))
		log.Info("cleanup lock: redis")
	}
	retentionManager := retention.NewManager(auditStore, auditCfg.Deletion, log, auditMetrics, retentionOpts...)

	tokens := jwttoken.NewService(cfg.Server.JWTSigningKey, "chronicle", "chronicle-admin")

	adminService := admin.NewService()
	if _, err := admin.Bootstrap(ctx, adminService, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		log.Error("failed to bootstrap admin user", "error", err)
		return err
	}

	docs := documents.NewService()
	var queue intercept.Queue = dispatcher
	media := uploader.New()
	if auditCfg.Enabled {
		docs.Use(intercept.EntityMiddleware(classifier, queue))
		media = intercept.Media(media, classifier, queue)
	}

	var observer *intercept.Observer
	if auditCfg.Enabled {
		observer = intercept.NewObserver(classifier, queue, log)
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Audit:    audithandler.New(query.NewService(auditStore, log), retentionManager, tokens, log),
		Admin:    admin.NewHandler(adminService, tokens, log),
		Content:  contenthandler.New(docs, media, tokens, log),
		Observer: observer,
		Metrics:  httpMetrics,
		Gatherer: registry,
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	scheduler := cron.New()
	if auditCfg.Enabled && auditCfg.Deletion.Enabled {
		if _, err := retentionManager.Schedule(scheduler, cfg.Audit.CleanupSchedule); err != nil {
			log.Error("invalid cleanup schedule", "schedule", cfg.Audit.CleanupSchedule, "error", err)
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := dispatcher.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		scheduler.Start()
		<-gctx.Done()
		<-scheduler.Stop().Done()
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		return err
	}
	log.Info("server stopped")
	return nil
}
