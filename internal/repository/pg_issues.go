package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/GeneralToucan/alkinson-newsletter/internal/domain"
)

type pgIssueRepository struct {
	pool *pgxpool.Pool
}

// NewPgIssueRepository returns an IssueRepository backed by PostgreSQL.
// Sections are stored as a JSONB document; the table only indexes what
// lookups need (week_id, generated_at).
func NewPgIssueRepository(pool *pgxpool.Pool) IssueRepository {
	return &pgIssueRepository{pool: pool}
}

func (r *pgIssueRepository) Upsert(ctx context.Context, issue *domain.Issue) error {
	sections, err := json.Marshal(issue.Sections)
	if err != nil {
		return fmt.Errorf("marshal sections: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO issues (week_id, subject, sections, generated_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (week_id)
		DO UPDATE SET subject = EXCLUDED.subject,
		              sections = EXCLUDED.sections,
		              generated_at = EXCLUDED.generated_at`,
		issue.WeekID, issue.Subject, sections, issue.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert issue: %w", err)
	}
	return nil
}

func (r *pgIssueRepository) GetByWeekID(ctx context.Context, weekID string) (*domain.Issue, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT week_id, subject, sections, generated_at
		FROM issues WHERE week_id = $1`, weekID)
	return scanIssue(row)
}

func (r *pgIssueRepository) GetCurrent(ctx context.Context) (*domain.Issue, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT week_id, subject, sections, generated_at
		FROM issues ORDER BY generated_at DESC LIMIT 1`)
	return scanIssue(row)
}

func scanIssue(row pgx.Row) (*domain.Issue, error) {
	var issue domain.Issue
	var sections []byte
	err := row.Scan(&issue.WeekID, &issue.Subject, &sections, &issue.GeneratedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan issue: %w", err)
	}
	if err := json.Unmarshal(sections, &issue.Sections); err != nil {
		return nil, fmt.Errorf("unmarshal sections: %w", err)
	}
	return &issue, nil
}
