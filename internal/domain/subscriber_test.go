package domain_test

import (
	"strings"
	"testing"
	"time"

	"github.com/GeneralToucan/alkinson-newsletter/internal/domain"
)

func TestSubscribeRequest_Validate(t *testing.T) {
	t.Run("valid email passes", func(t *testing.T) {
		r := domain.SubscribeRequest{Email: "reader@example.com"}
		if err := r.Validate(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("email is trimmed and lowercased", func(t *testing.T) {
		r := domain.SubscribeRequest{Email: "  Reader@Example.COM "}
		if err := r.Validate(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if r.Email != "reader@example.com" {
			t.Fatalf("expected normalized email, got %q", r.Email)
		}
	})

	for _, email := range []string{
		"",
		"no-at-sign",
		"@example.com",
		"reader@",
		"two@@example.com",
		"spa ce@example.com",
		"a@" + strings.Repeat("x", 260),
	} {
		t.Run("rejects "+email, func(t *testing.T) {
			r := domain.SubscribeRequest{Email: email}
			if err := r.Validate(); err != domain.ErrInvalidEmail {
				t.Fatalf("expected ErrInvalidEmail for %q, got %v", email, err)
			}
		})
	}
}

func TestSubscriber_Sendable(t *testing.T) {
	base := domain.Subscriber{
		ID:               "sub-1",
		Email:            "reader@example.com",
		Status:           domain.StatusActive,
		UnsubscribeToken: "tok-1",
		SubscribedAt:     time.Now().UTC(),
	}

	t.Run("active subscriber is sendable", func(t *testing.T) {
		s := base
		if !s.Sendable() {
			t.Fatal("expected sendable")
		}
	})

	t.Run("non-active statuses are not sendable", func(t *testing.T) {
		for _, status := range []domain.SubscriberStatus{
			domain.StatusUnsubscribed, domain.StatusBounced, domain.StatusComplained,
		} {
			s := base
			s.Status = status
			if s.Sendable() {
				t.Fatalf("status %q: expected not sendable", status)
			}
		}
	})

	t.Run("malformed email is not sendable", func(t *testing.T) {
		s := base
		s.Email = "not-an-address"
		if s.Sendable() {
			t.Fatal("expected not sendable")
		}
	})

	t.Run("missing unsubscribe token is not sendable", func(t *testing.T) {
		s := base
		s.UnsubscribeToken = ""
		if s.Sendable() {
			t.Fatal("expected not sendable")
		}
	})
}

func TestSubscriberStatus_IsValid(t *testing.T) {
	for _, status := range []domain.SubscriberStatus{
		domain.StatusActive, domain.StatusUnsubscribed, domain.StatusBounced, domain.StatusComplained,
	} {
		if !status.IsValid() {
			t.Fatalf("status %q: expected valid", status)
		}
	}
	if domain.SubscriberStatus("deleted").IsValid() {
		t.Fatal("expected invalid status to be rejected")
	}
}
