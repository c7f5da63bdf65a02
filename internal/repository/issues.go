package repository

import (
	"context"

	"github.com/GeneralToucan/alkinson-newsletter/internal/domain"
)

// IssueRepository stores weekly newsletter content. Issues are written by
// the upstream content pipeline through the ingest endpoint and read by
// distribution runs; the issue with the newest generated_at is "current".
type IssueRepository interface {
	Upsert(ctx context.Context, issue *domain.Issue) error
	GetByWeekID(ctx context.Context, weekID string) (*domain.Issue, error)
	GetCurrent(ctx context.Context) (*domain.Issue, error)
}
