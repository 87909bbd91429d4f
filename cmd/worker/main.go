package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/quarry-erp/quarry-erp/internal/app"
	"github.com/quarry-erp/quarry-erp/internal/auth"
	"github.com/quarry-erp/quarry-erp/internal/dispatch"
	jobmetrics "github.com/quarry-erp/quarry-erp/internal/jobs"
	"github.com/quarry-erp/quarry-erp/internal/masterdata/suppliers"
	"github.com/quarry-erp/quarry-erp/internal/platform/db"
	"github.com/quarry-erp/quarry-erp/internal/procurement"
	"github.com/quarry-erp/quarry-erp/internal/shared"
	"github.com/quarry-erp/quarry-erp/jobs"
	"github.com/quarry-erp/quarry-erp/report"
)

// directory resolves recipients from the user store and the supplier registry.
type directory struct {
	users     *auth.PGRepository
	suppliers *suppliers.Service
}

func (d directory) EmailsByRole(ctx context.Context, role shared.Role) ([]string, error) {
	return d.users.EmailsByRole(ctx, role)
}

func (d directory) EmailByID(ctx context.Context, userID int64) (string, error) {
	return d.users.EmailByID(ctx, userID)
}

func (d directory) SupplierEmail(ctx context.Context, supplierID int64) (string, error) {
	return d.suppliers.SupplierEmail(ctx, supplierID)
}

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

	registry := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(registry)

	store := procurement.NewRepository(pool)
	dir := directory{
		users:     auth.NewRepository(pool),
		suppliers: suppliers.NewService(suppliers.NewRepository(pool)),
	}
	renderer := report.NewClient(cfg.GotenbergURL)
	notifier := dispatch.NewSMTPNotifier(dispatch.SMTPConfig{
		Addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		Host:     cfg.SMTPHost,
		From:     cfg.SMTPFrom,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
	})
	processor := dispatch.NewProcessor(store, dir, renderer, notifier, metrics, logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeDispatchDocument, Handler: processor.HandleTask},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	metricsServer := &http.Server{
		Addr:         cfg.WorkerMetricsAddr,
		Handler:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("starting worker metrics server", slog.String("addr", cfg.WorkerMetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
