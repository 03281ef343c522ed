package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/campushub/hubaccess/pkg/api"
	"github.com/campushub/hubaccess/pkg/audit"
	"github.com/campushub/hubaccess/pkg/catalog"
	"github.com/campushub/hubaccess/pkg/config"
	"github.com/campushub/hubaccess/pkg/membership"
	"github.com/campushub/hubaccess/pkg/observability"
	"github.com/campushub/hubaccess/pkg/roles"
	"github.com/campushub/hubaccess/pkg/storage/postgres"
	"github.com/campushub/hubaccess/pkg/visibility"
	"github.com/campushub/hubaccess/pkg/workflow"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	db, err := postgres.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := postgres.RunMigrations(ctx, db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	auditLogger, err := audit.NewDBLogger(db)
	if err != nil {
		log.Fatalf("Failed to initialize audit logger: %v", err)
	}
	defer auditLogger.Close()

	var directory roles.Directory = roles.NewPostgresDirectory(db)
	if cfg.Cache.Enabled {
		opts, err := redis.ParseURL(cfg.Cache.RedisURL)
		if err != nil {
			log.Fatalf("Invalid redis URL: %v", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer client.Close()
		directory = roles.NewCachedDirectory(directory, client, cfg.Cache.TTL)
		logger.Info("role-fact cache enabled")
	}

	registry := membership.NewPostgresRegistry(db)
	resolver := visibility.NewResolver(directory, registry)
	store := workflow.NewPostgresStore(db)
	resources := catalog.NewPostgresCatalog(db)

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	engine := workflow.NewEngine(workflow.Config{
		Roles:      directory,
		Registry:   registry,
		Visibility: resolver,
		Catalog:    resources,
		Store:      store,
		Audit:      auditLogger,
		Logger:     logger,
		Metrics:    metrics,
	})

	httpLogger := logrus.New()
	server := api.NewServer(engine, httpLogger)

	router := http.NewServeMux()
	router.Handle("/", server)
	if metrics != nil {
		router.Handle("/metrics", metrics.Handler())
	}

	// Periodically refresh the pending-requests gauge.
	scheduler := cron.New()
	if metrics != nil {
		_, err := scheduler.AddFunc(cfg.Observability.PendingGaugeSchedule, func() {
			count, err := store.CountPending(context.Background())
			if err != nil {
				logger.WithError(err).Warn("failed to refresh pending request gauge")
				return
			}
			metrics.PendingRequests.Set(float64(count))
		})
		if err != nil {
			log.Fatalf("Failed to schedule pending gauge refresh: %v", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	srv := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Infof("hubaccess listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}
