package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/GeneralToucan/alkinson-newsletter/internal/domain"
	"github.com/GeneralToucan/alkinson-newsletter/internal/repository"
)

// IssueHandler is the ingest surface for the upstream content pipeline:
// it publishes (or republishes) a weekly issue for distribution.
type IssueHandler struct {
	issues repository.IssueRepository
	logger *zap.Logger
}

func NewIssueHandler(issues repository.IssueRepository, logger *zap.Logger) *IssueHandler {
	return &IssueHandler{issues: issues, logger: logger}
}

// PutIssue handles PUT /api/v1/issues
func (h *IssueHandler) PutIssue(w http.ResponseWriter, r *http.Request) {
	var issue domain.Issue
	if err := json.NewDecoder(r.Body).Decode(&issue); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if issue.WeekID == "" {
		respondError(w, http.StatusUnprocessableEntity, "week_id is required")
		return
	}
	if issue.GeneratedAt.IsZero() {
		issue.GeneratedAt = time.Now().UTC()
	}

	if err := h.issues.Upsert(r.Context(), &issue); err != nil {
		h.logger.Error("issue upsert failed", zap.String("week_id", issue.WeekID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, issue)
}

// GetIssue handles GET /api/v1/issues/current
func (h *IssueHandler) GetIssue(w http.ResponseWriter, r *http.Request) {
	issue, err := h.issues.GetCurrent(r.Context())
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, issue)
}
