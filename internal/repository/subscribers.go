package repository

import (
	"context"

	"github.com/GeneralToucan/alkinson-newsletter/internal/domain"
)

// SubscriberRepository defines all persistence operations for subscribers.
// The pgx implementation is in pg_subscribers.go; tests use the
// hand-written mock (mock_subscribers.go).
//
// Status transitions go through TransitionStatus, a compare-and-update:
// the write succeeds only when the stored status still equals `from`.
// This is what lets the reconciler and an in-flight dispatch run share
// subscriber state safely: the reconciler's transition always wins, and
// a send against a since-bounced subscriber just fails at the transport.
type SubscriberRepository interface {
	Create(ctx context.Context, sub *domain.Subscriber) error
	GetByEmail(ctx context.Context, email string) (*domain.Subscriber, error)
	ListActive(ctx context.Context) ([]*domain.Subscriber, error)
	TransitionStatus(ctx context.Context, id string, from, to domain.SubscriberStatus) (bool, error)
	TransitionStatusByEmail(ctx context.Context, email string, from, to domain.SubscriberStatus) (bool, error)
}
