package dispatch_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/GeneralToucan/alkinson-newsletter/internal/dispatch"
	"github.com/GeneralToucan/alkinson-newsletter/internal/domain"
	"github.com/GeneralToucan/alkinson-newsletter/internal/quota"
	"github.com/GeneralToucan/alkinson-newsletter/internal/ratelimiter"
	"github.com/GeneralToucan/alkinson-newsletter/internal/render"
	"github.com/GeneralToucan/alkinson-newsletter/internal/transport"
)

// failingRenderer simulates a renderer collaborator outage for one address.
type failingRenderer struct {
	inner   render.Renderer
	failFor string
}

func (f *failingRenderer) Render(issue *domain.Issue, sub *domain.Subscriber) (*render.Email, error) {
	if sub.Email == f.failFor {
		return nil, errors.New("template explosion")
	}
	return f.inner.Render(issue, sub)
}

func testIssue() *domain.Issue {
	return &domain.Issue{
		WeekID:      "2026-week-34",
		Subject:     "Weekly Digest",
		GeneratedAt: time.Now().UTC(),
	}
}

func testSubscribers(n int) []*domain.Subscriber {
	subs := make([]*domain.Subscriber, n)
	for i := range subs {
		subs[i] = &domain.Subscriber{
			ID:               fmt.Sprintf("sub-%02d", i),
			Email:            fmt.Sprintf("reader%02d@example.com", i),
			Status:           domain.StatusActive,
			UnsubscribeToken: fmt.Sprintf("tok-%02d", i),
			SubscribedAt:     time.Now().UTC(),
		}
	}
	return subs
}

func newEngine(t *testing.T, tracker *quota.Tracker, mailer transport.Mailer, maxRetries int) *dispatch.Engine {
	t.Helper()
	renderer, err := render.NewTemplateRenderer("https://news.example.com")
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	return dispatch.NewEngine(
		tracker, ratelimiter.New(0), mailer, renderer,
		maxRetries, time.Second, zap.NewNop(), dispatch.Hooks{},
	)
}

func collect(results *[]*domain.SendAttemptResult) func(*domain.SendAttemptResult) {
	return func(r *domain.SendAttemptResult) {
		*results = append(*results, r)
	}
}

func TestEngine_QuotaCutoffPreservesOrder(t *testing.T) {
	tracker := quota.New(2)
	mailer := transport.NewMockMailer()
	eng := newEngine(t, tracker, mailer, 2)

	subs := testSubscribers(5)
	var results []*domain.SendAttemptResult
	exhausted := eng.Dispatch(context.Background(), testIssue(), subs, collect(&results))

	if !exhausted {
		t.Fatal("expected quota exhaustion to be reported")
	}
	if len(results) != 5 {
		t.Fatalf("expected one result per subscriber, got %d", len(results))
	}
	for i, r := range results {
		if r.SubscriberID != subs[i].ID {
			t.Fatalf("result %d out of order: got %s want %s", i, r.SubscriberID, subs[i].ID)
		}
		if i < 2 && r.Outcome != domain.OutcomeSent {
			t.Fatalf("result %d: expected sent, got %s", i, r.Outcome)
		}
		if i >= 2 {
			if r.Outcome != domain.OutcomeSkipped || r.SkipReason != domain.SkipQuotaExhausted {
				t.Fatalf("result %d: expected skipped(quota_exhausted), got %s(%s)", i, r.Outcome, r.SkipReason)
			}
		}
	}
}

func TestEngine_TransientRetryConsumesOneQuotaUnit(t *testing.T) {
	tracker := quota.New(10)
	mailer := transport.NewMockMailer()
	mailer.FailN(2, &transport.SendError{Kind: transport.KindThrottled, Status: 429, Msg: "slow down"})
	eng := newEngine(t, tracker, mailer, 2)

	var results []*domain.SendAttemptResult
	eng.Dispatch(context.Background(), testIssue(), testSubscribers(1), collect(&results))

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	if r.Outcome != domain.OutcomeSent {
		t.Fatalf("expected sent after retries, got %s", r.Outcome)
	}
	if r.Attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", r.Attempts)
	}
	if r.MessageID == "" {
		t.Fatal("expected the third attempt's message id")
	}
	if used := tracker.Snapshot().Used; used != 1 {
		t.Fatalf("retries must not consume extra quota: used=%d", used)
	}
}

func TestEngine_TransientExhausted(t *testing.T) {
	tracker := quota.New(10)
	mailer := transport.NewMockMailer()
	mailer.FailN(3, &transport.SendError{Kind: transport.KindTimeout, Msg: "deadline"})
	eng := newEngine(t, tracker, mailer, 2)

	var results []*domain.SendAttemptResult
	eng.Dispatch(context.Background(), testIssue(), testSubscribers(1), collect(&results))

	r := results[0]
	if r.Outcome != domain.OutcomeFailed || r.FailureKind != domain.FailureTransientExhausted {
		t.Fatalf("expected failed(transient_exhausted), got %s(%s)", r.Outcome, r.FailureKind)
	}
	if r.Attempts != 3 {
		t.Fatalf("expected 1 initial + 2 retries = 3 attempts, got %d", r.Attempts)
	}
}

func TestEngine_RejectedIsNotRetried(t *testing.T) {
	tracker := quota.New(10)
	mailer := transport.NewMockMailer()
	mailer.Fail(&transport.SendError{Kind: transport.KindRejected, Status: 400, Msg: "bad address"})
	eng := newEngine(t, tracker, mailer, 2)

	var results []*domain.SendAttemptResult
	eng.Dispatch(context.Background(), testIssue(), testSubscribers(1), collect(&results))

	r := results[0]
	if r.Outcome != domain.OutcomeFailed || r.FailureKind != domain.FailureRejected {
		t.Fatalf("expected failed(rejected), got %s(%s)", r.Outcome, r.FailureKind)
	}
	if mailer.Calls() != 1 {
		t.Fatalf("rejected must not be retried: %d transport calls", mailer.Calls())
	}
}

func TestEngine_InvalidSubscriberStillConsumesQuota(t *testing.T) {
	tracker := quota.New(10)
	mailer := transport.NewMockMailer()
	eng := newEngine(t, tracker, mailer, 2)

	subs := testSubscribers(1)
	subs[0].UnsubscribeToken = ""

	var results []*domain.SendAttemptResult
	eng.Dispatch(context.Background(), testIssue(), subs, collect(&results))

	r := results[0]
	if r.Outcome != domain.OutcomeSkipped || r.SkipReason != domain.SkipInvalidSubscriber {
		t.Fatalf("expected skipped(invalid_subscriber), got %s(%s)", r.Outcome, r.SkipReason)
	}
	if mailer.Calls() != 0 {
		t.Fatal("no transport call expected for an invalid subscriber")
	}
	// Reservation precedes validation; the unit stays spent.
	if used := tracker.Snapshot().Used; used != 1 {
		t.Fatalf("expected quota used=1, got %d", used)
	}
}

func TestEngine_RenderFailureSkipsSubscriberOnly(t *testing.T) {
	tracker := quota.New(10)
	mailer := transport.NewMockMailer()
	inner, _ := render.NewTemplateRenderer("https://news.example.com")

	subs := testSubscribers(3)
	eng := dispatch.NewEngine(
		tracker, ratelimiter.New(0), mailer,
		&failingRenderer{inner: inner, failFor: subs[1].Email},
		2, time.Second, zap.NewNop(), dispatch.Hooks{},
	)

	var results []*domain.SendAttemptResult
	eng.Dispatch(context.Background(), testIssue(), subs, collect(&results))

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Outcome != domain.OutcomeSent || results[2].Outcome != domain.OutcomeSent {
		t.Fatal("render failure for one subscriber must not affect the others")
	}
	if results[1].Outcome != domain.OutcomeSkipped || results[1].SkipReason != domain.SkipRenderFailed {
		t.Fatalf("expected skipped(render_failed), got %s(%s)", results[1].Outcome, results[1].SkipReason)
	}
}

func TestEngine_CancelledContextStopsDispatch(t *testing.T) {
	tracker := quota.New(10)
	mailer := transport.NewMockMailer()
	eng := newEngine(t, tracker, mailer, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var results []*domain.SendAttemptResult
	exhausted := eng.Dispatch(ctx, testIssue(), testSubscribers(3), collect(&results))

	if exhausted {
		t.Fatal("cancellation is not quota exhaustion")
	}
	if len(results) != 0 {
		t.Fatalf("expected no results after immediate cancel, got %d", len(results))
	}
}

func TestEngine_CancelledWhileAwaitingRetrySlot(t *testing.T) {
	tracker := quota.New(10)
	mailer := transport.NewMockMailer()
	mailer.Fail(&transport.SendError{Kind: transport.KindThrottled, Status: 429, Msg: "slow down"})

	renderer, err := render.NewTemplateRenderer("https://news.example.com")
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	// An hour-long interval parks the retry on the rate gate until cancel.
	eng := dispatch.NewEngine(
		tracker, ratelimiter.New(time.Hour), mailer, renderer,
		2, time.Second, zap.NewNop(), dispatch.Hooks{},
	)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	var results []*domain.SendAttemptResult
	eng.Dispatch(ctx, testIssue(), testSubscribers(1), collect(&results))

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	if r.Outcome != domain.OutcomeFailed || r.FailureKind != domain.FailureCancelled {
		t.Fatalf("expected failed(cancelled), got %s(%s)", r.Outcome, r.FailureKind)
	}
	// One transport call happened; retries were cut short, not exhausted.
	if r.Attempts != 1 {
		t.Fatalf("expected 1 attempt before cancellation, got %d", r.Attempts)
	}
}
