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

	"github.com/quarry-erp/quarry-erp/internal/app"
	"github.com/quarry-erp/quarry-erp/internal/auth"
	"github.com/quarry-erp/quarry-erp/internal/dispatch"
	"github.com/quarry-erp/quarry-erp/internal/masterdata/projects"
	"github.com/quarry-erp/quarry-erp/internal/masterdata/suppliers"
	"github.com/quarry-erp/quarry-erp/internal/observability"
	"github.com/quarry-erp/quarry-erp/internal/platform/cache"
	"github.com/quarry-erp/quarry-erp/internal/platform/db"
	"github.com/quarry-erp/quarry-erp/internal/procurement"
	"github.com/quarry-erp/quarry-erp/internal/shared"
	"github.com/quarry-erp/quarry-erp/jobs"
	"github.com/quarry-erp/quarry-erp/report"
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

	sessionManager := shared.NewSessionManager(redisClient, "quarry_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	auditLogger := shared.NewAuditLogger(dbpool)

	projectRepo := projects.NewRepository(dbpool)
	projectService := projects.NewService(projectRepo)
	projectsHandler := projects.NewHandler(logger, projectService)

	supplierRepo := suppliers.NewRepository(dbpool)
	supplierService := suppliers.NewService(supplierRepo)
	suppliersHandler := suppliers.NewHandler(logger, supplierService)

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	publisher := dispatch.NewPublisher(jobsClient, cfg.DispatchEnqueueTimeout, logger)

	procurementRepo := procurement.NewRepository(dbpool)
	procurementService := procurement.NewService(procurementRepo, supplierService, auditLogger, publisher, logger)
	procurementHandler := procurement.NewHandler(logger, procurementService)

	reportClient := report.NewClient(cfg.GotenbergURL)
	documentBuilder := dispatch.NewBuilder(procurementRepo)
	reportHandler := report.NewHandler(reportClient, documentBuilder, procurementService, logger)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		AuthHandler:        authHandler,
		ProcurementHandler: procurementHandler,
		ProjectsHandler:    projectsHandler,
		SuppliersHandler:   suppliersHandler,
		ReportHandler:      reportHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
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
