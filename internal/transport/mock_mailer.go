package transport

import (
	"context"
	"fmt"
	"sync"
)

// MockMailer is a hand-written in-memory Mailer used in unit tests.
// Failures are scripted in order; once the script is exhausted every
// further Send succeeds with a generated message ID.
type MockMailer struct {
	mu     sync.Mutex
	script []error
	sent   []*Message
	calls  int
}

func NewMockMailer() *MockMailer {
	return &MockMailer{}
}

// Fail appends a scripted failure consumed by the next Send call.
func (m *MockMailer) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, err)
}

// FailN appends the same scripted failure n times.
func (m *MockMailer) FailN(n int, err error) {
	for i := 0; i < n; i++ {
		m.Fail(err)
	}
}

func (m *MockMailer) Send(_ context.Context, msg *Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if len(m.script) > 0 {
		err := m.script[0]
		m.script = m.script[1:]
		if err != nil {
			return "", err
		}
	}

	clone := *msg
	m.sent = append(m.sent, &clone)
	return fmt.Sprintf("msg-%04d", m.calls), nil
}

// Calls returns the total number of Send invocations, including failures.
func (m *MockMailer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Sent returns copies of the successfully delivered messages in order.
func (m *MockMailer) Sent() []*Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Message, len(m.sent))
	copy(out, m.sent)
	return out
}

var _ Mailer = (*MockMailer)(nil)
