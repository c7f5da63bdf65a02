package repository

import (
	"context"
	"sync"

	"github.com/GeneralToucan/alkinson-newsletter/internal/domain"
)

// MockIssueRepository is an in-memory IssueRepository for tests.
type MockIssueRepository struct {
	mu     sync.RWMutex
	issues map[string]*domain.Issue

	GetCurrentErr error
}

func NewMockIssueRepository() *MockIssueRepository {
	return &MockIssueRepository{issues: make(map[string]*domain.Issue)}
}

func (m *MockIssueRepository) Upsert(_ context.Context, issue *domain.Issue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *issue
	m.issues[issue.WeekID] = &clone
	return nil
}

func (m *MockIssueRepository) GetByWeekID(_ context.Context, weekID string) (*domain.Issue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	issue, ok := m.issues[weekID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *issue
	return &clone, nil
}

func (m *MockIssueRepository) GetCurrent(_ context.Context) (*domain.Issue, error) {
	if m.GetCurrentErr != nil {
		return nil, m.GetCurrentErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var current *domain.Issue
	for _, issue := range m.issues {
		if current == nil || issue.GeneratedAt.After(current.GeneratedAt) {
			current = issue
		}
	}
	if current == nil {
		return nil, domain.ErrNotFound
	}
	clone := *current
	return &clone, nil
}

var _ IssueRepository = (*MockIssueRepository)(nil)
