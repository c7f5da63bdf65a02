package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/GeneralToucan/alkinson-newsletter/internal/api/handler"
	apimw "github.com/GeneralToucan/alkinson-newsletter/internal/api/middleware"
	"github.com/GeneralToucan/alkinson-newsletter/internal/quota"
	"github.com/GeneralToucan/alkinson-newsletter/internal/reconciler"
	"github.com/GeneralToucan/alkinson-newsletter/internal/repository"
	"github.com/GeneralToucan/alkinson-newsletter/internal/runner"
)

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(
	run *runner.Runner,
	rec *reconciler.Reconciler,
	subs repository.SubscriberRepository,
	issues repository.IssueRepository,
	runs repository.RunRepository,
	tracker *quota.Tracker,
	reg prometheus.Gatherer,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)          // recover panics, return 500
	r.Use(chimw.RealIP)             // trust X-Forwarded-For / X-Real-IP
	r.Use(chimw.RequestSize(1<<20)) // 1 MB max request body
	r.Use(apimw.CorrelationID)      // X-Correlation-ID inject / echo
	r.Use(apimw.RequestLogger(logger))

	// --- handler instances ---
	rh := handler.NewRunHandler(run, runs, tracker, logger)
	nh := handler.NewNotificationHandler(rec, logger)
	sh := handler.NewSubscriberHandler(subs, logger)
	ih := handler.NewIssueHandler(issues, logger)
	hh := handler.NewHealthHandler()

	// --- routes ---
	r.Get("/health", hh.Health)

	// Raw Prometheus scrape endpoint
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	// One-click unsubscribe link embedded in every outgoing email.
	r.Get("/unsubscribe", sh.Unsubscribe)

	r.Route("/api/v1", func(r chi.Router) {
		// Distribution runs
		r.Post("/runs", rh.TriggerRun)
		r.Get("/runs/latest", rh.LatestRun)
		r.Get("/quota", rh.Quota)

		// Delivery feedback intake (bounces, complaints)
		r.Post("/notifications", nh.Intake)

		// Subscribers
		r.Post("/subscribers", sh.Subscribe)

		// Issue ingest from the content pipeline
		r.Put("/issues", ih.PutIssue)
		r.Get("/issues/current", ih.GetIssue)
	})

	return r
}
