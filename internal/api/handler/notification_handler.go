package handler

import (
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/GeneralToucan/alkinson-newsletter/internal/reconciler"
)

// NotificationHandler is the intake for delivery feedback (bounces and
// complaints) pushed by the external notification channel.
type NotificationHandler struct {
	rec    *reconciler.Reconciler
	logger *zap.Logger
}

func NewNotificationHandler(rec *reconciler.Reconciler, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{rec: rec, logger: logger}
}

// Intake handles POST /api/v1/notifications
//
// The channel redelivers on any non-2xx, so the response code is the
// acknowledgement: a queued payload is acked with 200 (malformed ones too,
// they carry no recoverable identifier and redelivery cannot help), while
// a full buffer or an unreadable body answers 503 so the event comes
// around again instead of being lost.
func (h *NotificationHandler) Intake(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Warn("failed to read notification body", zap.Error(err))
		respondError(w, http.StatusServiceUnavailable, "could not read payload")
		return
	}
	if !h.rec.Submit(raw) {
		respondError(w, http.StatusServiceUnavailable, "notification buffer full")
		return
	}
	w.WriteHeader(http.StatusOK)
}
