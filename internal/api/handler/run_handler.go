package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	apimw "github.com/GeneralToucan/alkinson-newsletter/internal/api/middleware"
	"github.com/GeneralToucan/alkinson-newsletter/internal/quota"
	"github.com/GeneralToucan/alkinson-newsletter/internal/repository"
	"github.com/GeneralToucan/alkinson-newsletter/internal/runner"
)

// RunHandler exposes the distribution trigger and run/quota reporting.
type RunHandler struct {
	runner  *runner.Runner
	runs    repository.RunRepository
	tracker *quota.Tracker
	logger  *zap.Logger
}

func NewRunHandler(r *runner.Runner, runs repository.RunRepository, tracker *quota.Tracker, logger *zap.Logger) *RunHandler {
	return &RunHandler{runner: r, runs: runs, tracker: tracker, logger: logger}
}

type triggerRunRequest struct {
	WeekID string `json:"week_id"`
}

// TriggerRun handles POST /api/v1/runs
//
// The run executes synchronously; the response is the full RunSummary.
// An empty or absent week_id distributes the current issue.
func (h *RunHandler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	var req triggerRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	summary, err := h.runner.RunDistribution(r.Context(), req.WeekID)
	if err != nil {
		h.logger.Warn("distribution run not started",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.String("week_id", req.WeekID),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// LatestRun handles GET /api/v1/runs/latest
func (h *RunHandler) LatestRun(w http.ResponseWriter, r *http.Request) {
	summary, err := h.runs.LatestSummary(r.Context())
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// Quota handles GET /api/v1/quota
func (h *RunHandler) Quota(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.tracker.Snapshot())
}
