package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/GeneralToucan/alkinson-newsletter/internal/domain"
)

type pgRunRepository struct {
	pool *pgxpool.Pool
}

// NewPgRunRepository returns a RunRepository backed by PostgreSQL.
func NewPgRunRepository(pool *pgxpool.Pool) RunRepository {
	return &pgRunRepository{pool: pool}
}

func (r *pgRunRepository) SaveSummary(ctx context.Context, s *domain.RunSummary) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO runs
			(id, week_id, total, sent, failed, skipped, quota_remaining, started_at, finished_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		s.RunID, s.WeekID, s.Total, s.Sent, s.Failed, s.Skipped,
		s.QuotaRemaining, s.StartedAt, s.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run summary: %w", err)
	}
	return nil
}

func (r *pgRunRepository) LatestSummary(ctx context.Context) (*domain.RunSummary, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, week_id, total, sent, failed, skipped, quota_remaining, started_at, finished_at
		FROM runs ORDER BY started_at DESC LIMIT 1`)

	var s domain.RunSummary
	err := row.Scan(&s.RunID, &s.WeekID, &s.Total, &s.Sent, &s.Failed,
		&s.Skipped, &s.QuotaRemaining, &s.StartedAt, &s.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan run summary: %w", err)
	}
	s.Duration = s.FinishedAt.Sub(s.StartedAt)
	return &s, nil
}

func (r *pgRunRepository) AppendResult(ctx context.Context, runID string, res *domain.SendAttemptResult) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO delivery_log
			(run_id, subscriber_id, email, outcome, message_id, failure_kind, skip_reason, attempts, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		runID, res.SubscriberID, res.Email, res.Outcome,
		nullable(res.MessageID), nullable(string(res.FailureKind)), nullable(string(res.SkipReason)),
		res.Attempts, res.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert delivery log entry: %w", err)
	}
	return nil
}

// ---- quota store ----

type pgQuotaStore struct {
	pool *pgxpool.Pool
}

// NewPgQuotaStore returns a QuotaStore backed by a single-row table.
func NewPgQuotaStore(pool *pgxpool.Pool) QuotaStore {
	return &pgQuotaStore{pool: pool}
}

func (q *pgQuotaStore) Load(ctx context.Context) (time.Time, int, error) {
	row := q.pool.QueryRow(ctx,
		`SELECT window_start, used FROM quota_state WHERE id = 1`)

	var windowStart time.Time
	var used int
	err := row.Scan(&windowStart, &used)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, 0, domain.ErrNotFound
	}
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("load quota state: %w", err)
	}
	return windowStart, used, nil
}

func (q *pgQuotaStore) Save(ctx context.Context, windowStart time.Time, used int) error {
	_, err := q.pool.Exec(ctx, `
		INSERT INTO quota_state (id, window_start, used)
		VALUES (1, $1, $2)
		ON CONFLICT (id)
		DO UPDATE SET window_start = EXCLUDED.window_start, used = EXCLUDED.used`,
		windowStart, used)
	if err != nil {
		return fmt.Errorf("save quota state: %w", err)
	}
	return nil
}

// ---- processed event store ----

type pgProcessedEventStore struct {
	pool *pgxpool.Pool
}

// NewPgProcessedEventStore returns a ProcessedEventStore backed by an
// insert-only table with the notification id as primary key.
func NewPgProcessedEventStore(pool *pgxpool.Pool) ProcessedEventStore {
	return &pgProcessedEventStore{pool: pool}
}

func (p *pgProcessedEventStore) MarkProcessed(ctx context.Context, notificationID string) (bool, error) {
	tag, err := p.pool.Exec(ctx, `
		INSERT INTO processed_notifications (notification_id, processed_at)
		VALUES ($1, NOW())
		ON CONFLICT (notification_id) DO NOTHING`, notificationID)
	if err != nil {
		return false, fmt.Errorf("mark notification processed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// nullable maps "" to NULL for optional text columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
