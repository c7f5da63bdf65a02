package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/GeneralToucan/alkinson-newsletter/internal/domain"
)

type pgSubscriberRepository struct {
	pool *pgxpool.Pool
}

// NewPgSubscriberRepository returns a SubscriberRepository backed by PostgreSQL.
func NewPgSubscriberRepository(pool *pgxpool.Pool) SubscriberRepository {
	return &pgSubscriberRepository{pool: pool}
}

func (r *pgSubscriberRepository) Create(ctx context.Context, s *domain.Subscriber) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO subscribers
			(id, email, status, unsubscribe_token, subscribed_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		s.ID, s.Email, s.Status, s.UnsubscribeToken, s.SubscribedAt, s.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "subscribers_email_key") {
			return domain.ErrDuplicateEmail
		}
		return fmt.Errorf("insert subscriber: %w", err)
	}
	return nil
}

func (r *pgSubscriberRepository) GetByEmail(ctx context.Context, email string) (*domain.Subscriber, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, status, unsubscribe_token, subscribed_at, updated_at
		FROM subscribers WHERE email = $1`, email)

	s, err := scanSubscriber(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return s, err
}

// ListActive returns active subscribers ordered by subscription time, so
// dispatch order (and therefore who gets skipped when the quota runs out)
// is stable across runs.
func (r *pgSubscriberRepository) ListActive(ctx context.Context) ([]*domain.Subscriber, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, email, status, unsubscribe_token, subscribed_at, updated_at
		FROM subscribers
		WHERE status = 'active'
		ORDER BY subscribed_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list active subscribers: %w", err)
	}
	defer rows.Close()

	var subscribers []*domain.Subscriber
	for rows.Next() {
		s, err := scanSubscriber(rows)
		if err != nil {
			return nil, err
		}
		subscribers = append(subscribers, s)
	}
	return subscribers, rows.Err()
}

func (r *pgSubscriberRepository) TransitionStatus(ctx context.Context, id string, from, to domain.SubscriberStatus) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE subscribers SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`, to, id, from)
	if err != nil {
		return false, fmt.Errorf("transition subscriber status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *pgSubscriberRepository) TransitionStatusByEmail(ctx context.Context, email string, from, to domain.SubscriberStatus) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE subscribers SET status = $1, updated_at = NOW()
		WHERE email = $2 AND status = $3`, to, email, from)
	if err != nil {
		return false, fmt.Errorf("transition subscriber status by email: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// scanSubscriber reads a single subscriber row from any pgx row type.
func scanSubscriber(row pgx.Row) (*domain.Subscriber, error) {
	var s domain.Subscriber
	err := row.Scan(&s.ID, &s.Email, &s.Status, &s.UnsubscribeToken, &s.SubscribedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
