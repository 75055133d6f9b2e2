package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/alabenkhlifa/opauto-core/internal/models"
	"github.com/alabenkhlifa/opauto-core/internal/seed"
	"github.com/alabenkhlifa/opauto-core/internal/service"
	"github.com/alabenkhlifa/opauto-core/internal/store"
	"github.com/alabenkhlifa/opauto-core/pkg/config"
	"github.com/alabenkhlifa/opauto-core/pkg/jobs"
	"github.com/alabenkhlifa/opauto-core/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	approvalStore := store.NewApprovalStore()
	userStore := store.NewUserStore()
	partStore := store.NewPartStore()

	metrics := service.NewMetricsService()
	subscription := service.NewSubscriptionService(models.SubscriptionTier(cfg.Subscription.Tier), logr)

	approvals := service.NewApprovalService(approvalStore, subscription, logr,
		service.WithApprovalMetrics(metrics),
		service.WithDefaultCurrency(cfg.Approvals.DefaultCurrency),
		service.WithMaxBulkSize(cfg.Approvals.MaxBulkSize),
	)
	team := service.NewTeamService(userStore, subscription, logr)
	inventory := service.NewInventoryService(partStore, subscription, logr, service.InventoryServiceConfig{
		DefaultCurrency:    cfg.Approvals.DefaultCurrency,
		DefaultMinQuantity: cfg.Inventory.DefaultMinQuantity,
	})

	var reports *service.ReportService
	queue := jobs.NewQueue("reports", func(ctx context.Context, job jobs.Job) error {
		return reports.Handle(ctx, job)
	}, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		BufferSize: cfg.Reports.QueueSize,
		MaxRetries: cfg.Reports.WorkerRetries,
		RetryDelay: cfg.Reports.RetryDelay,
		Logger:     logr,
	})
	reports = service.NewReportService(approvals, queue, logr, service.WithReportMetrics(metrics))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	queue.Start(ctx)

	if cfg.Seed.Enabled {
		seed.Load(approvalStore, userStore, partStore, logr)
		stats := approvals.Stats()
		logr.Sugar().Infow("demo data seeded",
			"approvals", stats.Total,
			"pending", stats.Pending,
			"team", len(team.List(models.UserFilter{})),
			"reorder_alerts", len(inventory.ReorderAlerts()),
		)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"status":"ok"}`)
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Port), Handler: mux}
	go func() {
		logr.Sugar().Infow("metrics server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("metrics server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("metrics server shutdown", zap.Error(err))
	}
	queue.Stop()
}
