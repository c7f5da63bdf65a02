package handler

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GeneralToucan/alkinson-newsletter/internal/domain"
	"github.com/GeneralToucan/alkinson-newsletter/internal/repository"
)

// SubscriberHandler handles sign-up and the token-checked unsubscribe link
// embedded in every outgoing newsletter.
type SubscriberHandler struct {
	subs   repository.SubscriberRepository
	logger *zap.Logger
}

func NewSubscriberHandler(subs repository.SubscriberRepository, logger *zap.Logger) *SubscriberHandler {
	return &SubscriberHandler{subs: subs, logger: logger}
}

// Subscribe handles POST /api/v1/subscribers
func (h *SubscriberHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req domain.SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		mapError(w, err)
		return
	}

	now := time.Now().UTC()
	sub := &domain.Subscriber{
		ID:               uuid.New().String(),
		Email:            req.Email,
		Status:           domain.StatusActive,
		UnsubscribeToken: uuid.New().String(),
		SubscribedAt:     now,
		UpdatedAt:        now,
	}

	if err := h.subs.Create(r.Context(), sub); err != nil {
		h.logger.Warn("subscribe failed", zap.String("email", req.Email), zap.Error(err))
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, sub)
}

// Unsubscribe handles GET /unsubscribe?email=...&token=...
//
// The link is opened from a mail client, so the response is a small HTML
// page rather than JSON. Unsubscribing twice is fine: any non-active
// status means the subscriber is already out of rotation.
func (h *SubscriberHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	token := r.URL.Query().Get("token")
	if email == "" || token == "" {
		respondError(w, http.StatusBadRequest, "email and token are required")
		return
	}

	sub, err := h.subs.GetByEmail(r.Context(), email)
	if err != nil {
		mapError(w, err)
		return
	}
	if subtle.ConstantTimeCompare([]byte(sub.UnsubscribeToken), []byte(token)) != 1 {
		mapError(w, domain.ErrInvalidToken)
		return
	}

	if _, err := h.subs.TransitionStatus(r.Context(), sub.ID, domain.StatusActive, domain.StatusUnsubscribed); err != nil {
		h.logger.Error("unsubscribe transition failed", zap.String("email", email), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("subscriber unsubscribed", zap.String("email", email))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("<html><body><h1>You have been unsubscribed.</h1>" +
		"<p>You will no longer receive the newsletter.</p></body></html>"))
}
