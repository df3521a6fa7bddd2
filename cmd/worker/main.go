package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/constructeye/constructeye/internal/app"
	"github.com/constructeye/constructeye/internal/dashboard"
	jobmetrics "github.com/constructeye/constructeye/internal/jobs"
	"github.com/constructeye/constructeye/internal/metric"
	"github.com/constructeye/constructeye/internal/platform/cache"
	"github.com/constructeye/constructeye/internal/platform/db"
	"github.com/constructeye/constructeye/internal/project"
	"github.com/constructeye/constructeye/internal/report"
	"github.com/constructeye/constructeye/jobs"
	"github.com/constructeye/constructeye/render"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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

	projectRepo := project.NewRepository(pool)

	pdfClient := render.NewClient(cfg.GotenbergURL)
	renderer, err := render.NewRenderer(pdfClient)
	if err != nil {
		logger.Error("parse report template", slog.Any("error", err))
		os.Exit(1)
	}

	reportRepo := report.NewRepository(pool)
	reportService := report.NewService(report.ServiceConfig{
		Store:      reportRepo,
		Loader:     projectRepo,
		Composer:   report.NewComposer(format, logger),
		Renderer:   renderer,
		StorageDir: cfg.ReportDir,
		Logger:     logger,
	})

	dashboardCache := dashboard.NewCache(redisClient, cfg.DashboardCacheTTL)
	dashboardService := dashboard.NewService(projectRepo, dashboardCache, format)

	metrics := jobmetrics.NewMetrics(nil)
	reportJob := report.NewJob(reportService, metrics, logger)
	warmupJob := jobs.NewDashboardWarmupJob(dashboardService, logger, metrics)

	warmupTask, err := jobs.NewDashboardWarmupTask(jobs.DashboardWarmupPayload{Scope: "overview"})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskReportGenerate, Handler: reportJob.Handle},
			{Type: jobs.TaskDashboardWarmup, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "15 1 * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
