package domain

import "time"

// Outcome classifies the result of one send attempt pipeline for one
// subscriber. Exactly one SendAttemptResult is produced per subscriber
// per run.
type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// FailureKind narrows a failed outcome.
type FailureKind string

const (
	// FailureTransientExhausted: the transport kept returning retryable
	// errors until the retry bound was reached.
	FailureTransientExhausted FailureKind = "transient_exhausted"
	// FailureRejected: the transport rejected the message outright; no
	// retry was attempted.
	FailureRejected FailureKind = "rejected"
	// FailureCancelled: the run ended while the subscriber still had
	// retries pending after a transient failure.
	FailureCancelled FailureKind = "cancelled"
)

// SkipReason narrows a skipped outcome.
type SkipReason string

const (
	SkipQuotaExhausted    SkipReason = "quota_exhausted"
	SkipInvalidSubscriber SkipReason = "invalid_subscriber"
	SkipRenderFailed      SkipReason = "render_failed"
)

// SendAttemptResult records the final outcome for one subscriber in a run.
// Attempts counts transport calls actually made (0 for skips).
type SendAttemptResult struct {
	SubscriberID string      `json:"subscriber_id"`
	Email        string      `json:"email"`
	Outcome      Outcome     `json:"outcome"`
	MessageID    string      `json:"message_id,omitempty"`
	FailureKind  FailureKind `json:"failure_kind,omitempty"`
	SkipReason   SkipReason  `json:"skip_reason,omitempty"`
	Attempts     int         `json:"attempts"`
	Timestamp    time.Time   `json:"timestamp"`
}

// RunSummary is the immutable aggregate report of one distribution run.
// A run that stops early (quota exhausted, caller cancelled) still yields
// a summary covering everything processed up to that point.
type RunSummary struct {
	RunID          string        `json:"run_id"`
	WeekID         string        `json:"week_id"`
	Total          int           `json:"total"`
	Sent           int           `json:"sent"`
	Failed         int           `json:"failed"`
	Skipped        int           `json:"skipped"`
	QuotaRemaining int           `json:"quota_remaining"`
	StartedAt      time.Time     `json:"started_at"`
	FinishedAt     time.Time     `json:"finished_at"`
	Duration       time.Duration `json:"duration_ns"`
}
