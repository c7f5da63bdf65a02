package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/GeneralToucan/alkinson-newsletter/internal/api"
	"github.com/GeneralToucan/alkinson-newsletter/internal/config"
	"github.com/GeneralToucan/alkinson-newsletter/internal/db"
	"github.com/GeneralToucan/alkinson-newsletter/internal/dispatch"
	"github.com/GeneralToucan/alkinson-newsletter/internal/domain"
	"github.com/GeneralToucan/alkinson-newsletter/internal/metrics"
	"github.com/GeneralToucan/alkinson-newsletter/internal/quota"
	"github.com/GeneralToucan/alkinson-newsletter/internal/ratelimiter"
	"github.com/GeneralToucan/alkinson-newsletter/internal/reconciler"
	"github.com/GeneralToucan/alkinson-newsletter/internal/render"
	"github.com/GeneralToucan/alkinson-newsletter/internal/repository"
	"github.com/GeneralToucan/alkinson-newsletter/internal/runner"
	"github.com/GeneralToucan/alkinson-newsletter/internal/transport"
	"github.com/GeneralToucan/alkinson-newsletter/internal/worker"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ---- database ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied")

	// ---- repositories ----
	subs := repository.NewPgSubscriberRepository(pool)
	issues := repository.NewPgIssueRepository(pool)
	runs := repository.NewPgRunRepository(pool)
	quotaStore := repository.NewPgQuotaStore(pool)
	seen := repository.NewPgProcessedEventStore(pool)

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	tracker := quota.New(cfg.DailyQuota)
	if window, used, err := quotaStore.Load(ctx); err == nil {
		// Carry today's counter across restarts; a stale window is ignored
		// and the tracker starts the day fresh.
		tracker.Restore(window, used)
		logger.Info("quota counter restored",
			zap.Time("window_start", window), zap.Int("used", used))
	} else if !errors.Is(err, domain.ErrNotFound) {
		logger.Fatal("failed to load quota counter", zap.Error(err))
	}
	m.QuotaRemaining.Set(float64(tracker.Snapshot().Remaining))

	gate := ratelimiter.New(cfg.SendInterval)
	mailer := transport.NewHTTPMailer(cfg.MailerBaseURL, cfg.MailerAPIKey, cfg.SenderEmail, cfg.MailerTimeout)

	renderer, err := render.NewTemplateRenderer(cfg.SiteBaseURL)
	if err != nil {
		logger.Fatal("failed to parse email templates", zap.Error(err))
	}

	onSent, onFailed, onSkipped := m.DispatchHooks()
	engine := dispatch.NewEngine(tracker, gate, mailer, renderer,
		cfg.MaxRetries, cfg.MailerTimeout, logger, dispatch.Hooks{
			OnSent:    onSent,
			OnFailed:  onFailed,
			OnSkipped: onSkipped,
		})

	run := runner.New(subs, issues, runs, quotaStore, tracker, engine,
		cfg.BatchSize, cfg.BatchPause, logger)
	run.OnFinished(func(summary *domain.RunSummary) {
		m.RunsCompleted.Inc()
		m.QuotaRemaining.Set(float64(summary.QuotaRemaining))
	})

	// ---- background workers ----
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	onApplied, onMalformed := m.ReconcilerHooks()
	rec := reconciler.New(subs, seen, logger, reconciler.Hooks{
		OnApplied:   onApplied,
		OnMalformed: onMalformed,
	})
	go rec.Run(workerCtx)

	var sched *worker.Scheduler
	if cfg.DistributionSchedule != "" {
		sched, err = worker.NewScheduler(cfg.DistributionSchedule, run, logger)
		if err != nil {
			logger.Fatal("invalid distribution schedule",
				zap.String("spec", cfg.DistributionSchedule), zap.Error(err))
		}
		sched.Start()
	}

	// ---- HTTP server ----
	router := api.NewRouter(run, rec, subs, issues, runs, tracker, reg, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start server in a goroutine so it does not block the shutdown listener.
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests; an in-flight run finishes
	//    within the write timeout or not at all.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Stop the schedule so no new run starts mid-shutdown.
	if sched != nil {
		sched.Stop()
	}

	// 3. Stop the reconciler consumer.
	cancelWorkers()

	// 4. Persist the quota counter so a restart inside the window does not
	//    forget how much of the ceiling is spent.
	snap := tracker.Snapshot()
	saveCtx, saveCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer saveCancel()
	if err := quotaStore.Save(saveCtx, snap.WindowStart, snap.Used); err != nil {
		logger.Error("failed to persist quota counter", zap.Error(err))
	}

	logger.Info("server stopped cleanly")
}
