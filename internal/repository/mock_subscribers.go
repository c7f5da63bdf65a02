package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/GeneralToucan/alkinson-newsletter/internal/domain"
)

// MockSubscriberRepository is a hand-written, in-memory implementation of
// SubscriberRepository used in unit tests. No mock-generation library needed.
type MockSubscriberRepository struct {
	mu          sync.RWMutex
	subscribers map[string]*domain.Subscriber // keyed by id

	// Optional error overrides, set in tests to simulate failure paths.
	ListActiveErr error
	CreateErr     error
}

func NewMockSubscriberRepository() *MockSubscriberRepository {
	return &MockSubscriberRepository{
		subscribers: make(map[string]*domain.Subscriber),
	}
}

// Seed inserts subscribers directly, bypassing duplicate checks.
func (m *MockSubscriberRepository) Seed(subs ...*domain.Subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range subs {
		clone := *s
		m.subscribers[s.ID] = &clone
	}
}

func (m *MockSubscriberRepository) Create(_ context.Context, s *domain.Subscriber) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.subscribers {
		if existing.Email == s.Email {
			return domain.ErrDuplicateEmail
		}
	}
	clone := *s
	m.subscribers[s.ID] = &clone
	return nil
}

func (m *MockSubscriberRepository) GetByEmail(_ context.Context, email string) (*domain.Subscriber, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.subscribers {
		if s.Email == email {
			clone := *s
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockSubscriberRepository) ListActive(_ context.Context) ([]*domain.Subscriber, error) {
	if m.ListActiveErr != nil {
		return nil, m.ListActiveErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Subscriber
	for _, s := range m.subscribers {
		if s.Status == domain.StatusActive {
			clone := *s
			result = append(result, &clone)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].SubscribedAt.Equal(result[j].SubscribedAt) {
			return result[i].SubscribedAt.Before(result[j].SubscribedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (m *MockSubscriberRepository) TransitionStatus(_ context.Context, id string, from, to domain.SubscriberStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subscribers[id]
	if !ok || s.Status != from {
		return false, nil
	}
	s.Status = to
	return true, nil
}

func (m *MockSubscriberRepository) TransitionStatusByEmail(_ context.Context, email string, from, to domain.SubscriberStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subscribers {
		if s.Email == email {
			if s.Status != from {
				return false, nil
			}
			s.Status = to
			return true, nil
		}
	}
	return false, nil
}

// StatusOf returns the current status for assertions in tests.
func (m *MockSubscriberRepository) StatusOf(email string) (domain.SubscriberStatus, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.subscribers {
		if s.Email == email {
			return s.Status, true
		}
	}
	return "", false
}

var _ SubscriberRepository = (*MockSubscriberRepository)(nil)
