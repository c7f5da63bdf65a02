package reconciler_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/GeneralToucan/alkinson-newsletter/internal/domain"
	"github.com/GeneralToucan/alkinson-newsletter/internal/reconciler"
	"github.com/GeneralToucan/alkinson-newsletter/internal/repository"
)

func newReconciler() (*reconciler.Reconciler, *repository.MockSubscriberRepository) {
	subs := repository.NewMockSubscriberRepository()
	seen := repository.NewMockProcessedEventStore()
	r := reconciler.New(subs, seen, zap.NewNop(), reconciler.Hooks{})
	return r, subs
}

func seedActive(subs *repository.MockSubscriberRepository, email string) {
	subs.Seed(&domain.Subscriber{
		ID:               "id-" + email,
		Email:            email,
		Status:           domain.StatusActive,
		UnsubscribeToken: "tok",
		SubscribedAt:     time.Now().UTC(),
	})
}

func bouncePayload(feedbackID, bounceType, email string) []byte {
	return []byte(fmt.Sprintf(`{
		"notificationType": "Bounce",
		"bounce": {
			"bounceType": %q,
			"bouncedRecipients": [{"emailAddress": %q}],
			"feedbackId": %q,
			"timestamp": "2026-08-24T10:00:00Z"
		}
	}`, bounceType, email, feedbackID))
}

func complaintPayload(feedbackID, email string) []byte {
	return []byte(fmt.Sprintf(`{
		"notificationType": "Complaint",
		"complaint": {
			"complainedRecipients": [{"emailAddress": %q}],
			"feedbackId": %q,
			"timestamp": "2026-08-24T10:00:00Z"
		}
	}`, email, feedbackID))
}

func TestReconciler_PermanentBounce(t *testing.T) {
	r, subs := newReconciler()
	seedActive(subs, "reader@example.com")

	r.HandleNotification(context.Background(), bouncePayload("fb-1", "Permanent", "reader@example.com"))

	if status, _ := subs.StatusOf("reader@example.com"); status != domain.StatusBounced {
		t.Fatalf("expected bounced, got %s", status)
	}
}

func TestReconciler_TransientBounceIsNoOp(t *testing.T) {
	r, subs := newReconciler()
	seedActive(subs, "reader@example.com")

	r.HandleNotification(context.Background(), bouncePayload("fb-1", "Transient", "reader@example.com"))

	if status, _ := subs.StatusOf("reader@example.com"); status != domain.StatusActive {
		t.Fatalf("transient bounce must not change status, got %s", status)
	}
}

func TestReconciler_Complaint(t *testing.T) {
	r, subs := newReconciler()
	seedActive(subs, "reader@example.com")

	r.HandleNotification(context.Background(), complaintPayload("fb-1", "reader@example.com"))

	if status, _ := subs.StatusOf("reader@example.com"); status != domain.StatusComplained {
		t.Fatalf("expected complained, got %s", status)
	}
}

func TestReconciler_Idempotent(t *testing.T) {
	r, subs := newReconciler()
	seedActive(subs, "reader@example.com")

	payload := bouncePayload("fb-same", "Permanent", "reader@example.com")
	r.HandleNotification(context.Background(), payload)
	r.HandleNotification(context.Background(), payload)

	if status, _ := subs.StatusOf("reader@example.com"); status != domain.StatusBounced {
		t.Fatalf("expected bounced, got %s", status)
	}
}

func TestReconciler_TerminalStateAbsorbsFurtherEvents(t *testing.T) {
	r, subs := newReconciler()
	seedActive(subs, "reader@example.com")
	ctx := context.Background()

	// Permanent bounce first, then a complaint for the same subscriber:
	// the first terminal transition wins.
	r.HandleNotification(ctx, bouncePayload("fb-1", "Permanent", "reader@example.com"))
	r.HandleNotification(ctx, complaintPayload("fb-2", "reader@example.com"))

	if status, _ := subs.StatusOf("reader@example.com"); status != domain.StatusBounced {
		t.Fatalf("expected bounced to stick, got %s", status)
	}
}

func TestReconciler_OutOfOrderTransientAfterPermanent(t *testing.T) {
	r, subs := newReconciler()
	seedActive(subs, "reader@example.com")
	ctx := context.Background()

	r.HandleNotification(ctx, bouncePayload("fb-1", "Permanent", "reader@example.com"))
	// A transient bounce with an earlier timestamp arriving late: absorbed
	// as a no-op because transitions depend on stored state, not event order.
	r.HandleNotification(ctx, bouncePayload("fb-0", "Transient", "reader@example.com"))

	if status, _ := subs.StatusOf("reader@example.com"); status != domain.StatusBounced {
		t.Fatalf("expected bounced, got %s", status)
	}
}

func TestReconciler_MalformedPayloadDropped(t *testing.T) {
	r, subs := newReconciler()
	seedActive(subs, "reader@example.com")

	payloads := [][]byte{
		[]byte(`not json at all`),
		[]byte(`{"notificationType": "Delivery"}`),
		[]byte(`{"notificationType": "Bounce"}`),
		[]byte(`{"notificationType": "Bounce", "bounce": {"bounceType": "Permanent", "bouncedRecipients": []}}`),
		[]byte(`{"notificationType": "Complaint", "complaint": {"complainedRecipients": [{"emailAddress": "reader@example.com"}]}}`),
	}
	for _, p := range payloads {
		r.HandleNotification(context.Background(), p)
	}

	if status, _ := subs.StatusOf("reader@example.com"); status != domain.StatusActive {
		t.Fatalf("malformed payloads must not change state, got %s", status)
	}
}

func TestReconciler_UnknownSubscriberIgnored(t *testing.T) {
	r, _ := newReconciler()
	// Must not panic or error for an address we have never seen.
	r.HandleNotification(context.Background(), bouncePayload("fb-1", "Permanent", "stranger@example.com"))
}

func TestReconciler_SubmitRejectsWhenBufferFull(t *testing.T) {
	r, subs := newReconciler()
	seedActive(subs, "reader@example.com")

	// No consumer running: fill the buffer to capacity.
	accepted := 0
	for r.Submit(bouncePayload(fmt.Sprintf("fb-fill-%d", accepted), "Transient", "other@example.com")) {
		accepted++
	}
	if accepted == 0 {
		t.Fatal("expected the buffer to accept payloads before filling up")
	}

	// A permanent bounce arriving during the burst must be rejected, not
	// silently swallowed: the rejection is the channel's cue to redeliver.
	if r.Submit(bouncePayload("fb-bounce", "Permanent", "reader@example.com")) {
		t.Fatal("expected rejection while the buffer is full")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	// Once the consumer drains the backlog, the redelivered bounce lands
	// and the subscriber leaves the active rotation.
	deadline := time.After(5 * time.Second)
	for !r.Submit(bouncePayload("fb-bounce", "Permanent", "reader@example.com")) {
		select {
		case <-deadline:
			t.Fatal("buffer never drained")
		case <-time.After(10 * time.Millisecond):
		}
	}
	for {
		if status, _ := subs.StatusOf("reader@example.com"); status == domain.StatusBounced {
			break
		}
		select {
		case <-deadline:
			t.Fatal("redelivered bounce was not applied")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	<-done
}

func TestReconciler_RunConsumesSubmittedPayloads(t *testing.T) {
	r, subs := newReconciler()
	seedActive(subs, "reader@example.com")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	r.Submit(bouncePayload("fb-1", "Permanent", "reader@example.com"))

	deadline := time.After(2 * time.Second)
	for {
		if status, _ := subs.StatusOf("reader@example.com"); status == domain.StatusBounced {
			break
		}
		select {
		case <-deadline:
			t.Fatal("reconciler did not process the submitted payload in time")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	<-done
}
