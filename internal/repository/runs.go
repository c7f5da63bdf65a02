package repository

import (
	"context"
	"time"

	"github.com/GeneralToucan/alkinson-newsletter/internal/domain"
)

// RunRepository persists run history and the per-recipient delivery log.
// AppendResult is called as each result is produced, so a crash mid-run
// leaves a partial, inspectable delivery log rather than nothing.
type RunRepository interface {
	SaveSummary(ctx context.Context, summary *domain.RunSummary) error
	LatestSummary(ctx context.Context) (*domain.RunSummary, error)
	AppendResult(ctx context.Context, runID string, result *domain.SendAttemptResult) error
}

// QuotaStore persists the daily send counter so a restart inside a quota
// window does not forget how much of the ceiling is already spent.
type QuotaStore interface {
	// Load returns the persisted window start and count.
	// Returns domain.ErrNotFound when no counter has been saved yet.
	Load(ctx context.Context) (windowStart time.Time, used int, err error)
	Save(ctx context.Context, windowStart time.Time, used int) error
}

// ProcessedEventStore tracks which external notification identifiers have
// already been applied. The feedback channel delivers at-least-once, so
// this is what makes reconciliation effectively exactly-once.
type ProcessedEventStore interface {
	// MarkProcessed records the identifier and reports whether it was new.
	// A false return means the event was already applied and must be a no-op.
	MarkProcessed(ctx context.Context, notificationID string) (bool, error)
}
