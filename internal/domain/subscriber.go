package domain

import (
	"strings"
	"time"
)

// SubscriberStatus tracks a subscriber's eligibility for sending.
type SubscriberStatus string

const (
	StatusActive       SubscriberStatus = "active"
	StatusUnsubscribed SubscriberStatus = "unsubscribed"
	StatusBounced      SubscriberStatus = "bounced"
	StatusComplained   SubscriberStatus = "complained"
)

func (s SubscriberStatus) IsValid() bool {
	switch s {
	case StatusActive, StatusUnsubscribed, StatusBounced, StatusComplained:
		return true
	}
	return false
}

// Subscriber is the core recipient entity. Only active subscribers are
// eligible for sending. Status is mutated exclusively through the
// compare-and-update repository operations, so a concurrent bounce
// transition always wins over an in-flight dispatch read.
type Subscriber struct {
	ID               string           `json:"id"`
	Email            string           `json:"email"`
	Status           SubscriberStatus `json:"status"`
	UnsubscribeToken string           `json:"-"`
	SubscribedAt     time.Time        `json:"subscribed_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// Sendable reports whether the subscriber can receive a newsletter issue:
// active status, a plausible address, and a non-empty unsubscribe token
// (every outgoing mail must carry a working unsubscribe link).
func (s *Subscriber) Sendable() bool {
	return s.Status == StatusActive && ValidEmail(s.Email) && s.UnsubscribeToken != ""
}

// ValidEmail applies the same cheap shape check the sign-up endpoint uses.
// Real deliverability is the transport's problem; this only rejects input
// that cannot possibly be an address.
func ValidEmail(email string) bool {
	if len(email) < 3 || len(email) > 254 {
		return false
	}
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return false
	}
	if strings.ContainsAny(email, " \t\r\n") {
		return false
	}
	return strings.IndexByte(email[at+1:], '@') < 0
}

// SubscribeRequest is the inbound payload for creating a subscriber.
type SubscribeRequest struct {
	Email string `json:"email"`
}

func (r *SubscribeRequest) Validate() error {
	r.Email = strings.TrimSpace(strings.ToLower(r.Email))
	if !ValidEmail(r.Email) {
		return ErrInvalidEmail
	}
	return nil
}
