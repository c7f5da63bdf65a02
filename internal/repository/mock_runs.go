package repository

import (
	"context"
	"sync"
	"time"

	"github.com/GeneralToucan/alkinson-newsletter/internal/domain"
)

// MockRunRepository is an in-memory RunRepository for tests.
type MockRunRepository struct {
	mu        sync.RWMutex
	summaries []*domain.RunSummary
	results   map[string][]*domain.SendAttemptResult
}

func NewMockRunRepository() *MockRunRepository {
	return &MockRunRepository{results: make(map[string][]*domain.SendAttemptResult)}
}

func (m *MockRunRepository) SaveSummary(_ context.Context, s *domain.RunSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *s
	m.summaries = append(m.summaries, &clone)
	return nil
}

func (m *MockRunRepository) LatestSummary(_ context.Context) (*domain.RunSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.summaries) == 0 {
		return nil, domain.ErrNotFound
	}
	clone := *m.summaries[len(m.summaries)-1]
	return &clone, nil
}

func (m *MockRunRepository) AppendResult(_ context.Context, runID string, res *domain.SendAttemptResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *res
	m.results[runID] = append(m.results[runID], &clone)
	return nil
}

// Results returns the recorded delivery log for a run, in append order.
func (m *MockRunRepository) Results(runID string) []*domain.SendAttemptResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.SendAttemptResult, len(m.results[runID]))
	copy(out, m.results[runID])
	return out
}

var _ RunRepository = (*MockRunRepository)(nil)

// MockQuotaStore is an in-memory QuotaStore for tests.
type MockQuotaStore struct {
	mu          sync.Mutex
	hasState    bool
	windowStart time.Time
	used        int

	SaveErr error
}

func NewMockQuotaStore() *MockQuotaStore {
	return &MockQuotaStore{}
}

func (m *MockQuotaStore) Load(_ context.Context) (time.Time, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasState {
		return time.Time{}, 0, domain.ErrNotFound
	}
	return m.windowStart, m.used, nil
}

func (m *MockQuotaStore) Save(_ context.Context, windowStart time.Time, used int) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hasState = true
	m.windowStart = windowStart
	m.used = used
	return nil
}

var _ QuotaStore = (*MockQuotaStore)(nil)

// MockProcessedEventStore is an in-memory ProcessedEventStore for tests.
type MockProcessedEventStore struct {
	mu   sync.Mutex
	seen map[string]bool
}

func NewMockProcessedEventStore() *MockProcessedEventStore {
	return &MockProcessedEventStore{seen: make(map[string]bool)}
}

func (m *MockProcessedEventStore) MarkProcessed(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[id] {
		return false, nil
	}
	m.seen[id] = true
	return true, nil
}

var _ ProcessedEventStore = (*MockProcessedEventStore)(nil)
