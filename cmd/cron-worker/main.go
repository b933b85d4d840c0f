package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/library-backend/internal/cron"
	"github.com/angelmondragon/library-backend/internal/penalties"
	"github.com/angelmondragon/library-backend/internal/reservations"
	"github.com/angelmondragon/library-backend/pkg/config"
	"github.com/angelmondragon/library-backend/pkg/db"
	"github.com/angelmondragon/library-backend/pkg/logger"
	"github.com/angelmondragon/library-backend/pkg/metrics"
	"github.com/angelmondragon/library-backend/pkg/migrate"
	"github.com/angelmondragon/library-backend/pkg/redis"
)

func main() {
	once := flag.Bool("once", false, "run every job a single time and exit")
	metricsAddr := flag.String("metrics-addr", "", "optional listen address for /metrics, e.g. :9090")
	jobFilter := flag.String("job", "", "comma-separated job names to run (default: all)")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	reservationMetrics := metrics.NewReservationMetrics(prometheus.DefaultRegisterer)
	cronMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)

	ledger, err := reservations.NewService(reservations.ServiceParams{
		Repo:       reservations.NewRepository(dbClient.DB()),
		DB:         dbClient,
		Calculator: penalties.NewCalculator(cfg.Penalty.DailyRate),
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reservation service", err)
		os.Exit(1)
	}

	overdueJob, err := cron.NewOverdueJob(cron.OverdueJobParams{
		Logger:  logg,
		Ledger:  ledger,
		Metrics: reservationMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create overdue job", err)
		os.Exit(1)
	}
	auditJob, err := cron.NewAvailabilityAuditJob(logg, ledger)
	if err != nil {
		logg.Error(context.Background(), "failed to create availability audit job", err)
		os.Exit(1)
	}

	registry, err := cron.NewRegistry(overdueJob, auditJob)
	if err == nil && *jobFilter != "" {
		registry, err = registry.Only(strings.Split(*jobFilter, ",")...)
	}
	if err != nil {
		logg.Error(context.Background(), "failed to build job registry", err)
		os.Exit(1)
	}

	var lock cron.Lock = cron.NewLocalLock()
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		redisLock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker"), cfg.Cron.LockTTL)
		if err != nil {
			logg.Error(context.Background(), "failed to create cron lock", err)
			os.Exit(1)
		}
		lock = redisLock
	} else {
		logg.Info(context.Background(), "redis not configured, cron lock is process-local")
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    cronMetrics,
		Interval:   cfg.Cron.OverdueScanInterval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.Cron.OverdueScanInterval.String(),
		"once":     *once,
		"jobs":     registry.Names(),
	})

	if *once {
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(ctx, "cron jobs failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "cron jobs completed")
		return
	}

	var metricsServer *http.Server
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logg.Error(ctx, "metrics listener stopped", err)
			}
		}()
	}

	logg.Info(ctx, "starting cron worker")

	runErr := service.Run(ctx)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}
	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		runErr = multierr.Append(runErr, metricsServer.Shutdown(shutdownCtx))
		cancel()
	}
	if runErr != nil {
		logg.Error(ctx, "cron worker stopped unexpectedly", runErr)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
