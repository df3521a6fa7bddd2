package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/constructeye/constructeye/internal/app"
	"github.com/constructeye/constructeye/internal/dashboard"
	dashboardhttp "github.com/constructeye/constructeye/internal/dashboard/http"
	"github.com/constructeye/constructeye/internal/metric"
	"github.com/constructeye/constructeye/internal/observability"
	"github.com/constructeye/constructeye/internal/platform/cache"
	"github.com/constructeye/constructeye/internal/platform/db"
	"github.com/constructeye/constructeye/internal/project"
	projecthttp "github.com/constructeye/constructeye/internal/project/http"
	"github.com/constructeye/constructeye/internal/report"
	reporthttp "github.com/constructeye/constructeye/internal/report/http"
	"github.com/constructeye/constructeye/jobs"
	"github.com/constructeye/constructeye/render"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	format, err := metric.NewFormatter(cfg.ReportLocale, cfg.ReportCurrency)
	if err != nil {
		logger.Error("build formatter", slog.Any("error", err))
		os.Exit(1)
	}

	projectRepo := project.NewRepository(dbpool)

	pdfClient := render.NewClient(cfg.GotenbergURL)
	if err := pdfClient.Ping(ctx); err != nil {
		logger.Warn("gotenberg ping", slog.Any("error", err))
	}
	renderer, err := render.NewRenderer(pdfClient)
	if err != nil {
		logger.Error("parse report template", slog.Any("error", err))
		os.Exit(1)
	}

	reportRepo := report.NewRepository(dbpool)
	composer := report.NewComposer(format, logger)
	reportService := report.NewService(report.ServiceConfig{
		Store:      reportRepo,
		Loader:     projectRepo,
		Composer:   composer,
		Renderer:   renderer,
		StorageDir: cfg.ReportDir,
		Logger:     logger,
	})

	dashboardCache := dashboard.NewCache(redisClient, cfg.DashboardCacheTTL)
	dashboardService := dashboard.NewService(projectRepo, dashboardCache, format)
	if err := dashboardCache.ListenForInvalidation(ctx, dashboard.BumpChannel); err != nil {
		logger.Warn("cache invalidation listener", slog.Any("error", err))
	}

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("create jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		ProjectHandler:   projecthttp.NewHandler(logger, projectRepo),
		ReportHandler:    reporthttp.NewHandler(logger, reportService, jobsClient),
		DashboardHandler: dashboardhttp.NewHandler(logger, dashboardService),
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
