package dispatch

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/GeneralToucan/alkinson-newsletter/internal/domain"
	"github.com/GeneralToucan/alkinson-newsletter/internal/quota"
	"github.com/GeneralToucan/alkinson-newsletter/internal/ratelimiter"
	"github.com/GeneralToucan/alkinson-newsletter/internal/render"
	"github.com/GeneralToucan/alkinson-newsletter/internal/transport"
)

// Hooks carries the metric callback functions injected by main.
// Using a struct keeps the engine metrics-agnostic.
type Hooks struct {
	OnSent    func(latency time.Duration)
	OnFailed  func(kind domain.FailureKind)
	OnSkipped func(reason domain.SkipReason)
}

func (h *Hooks) fillDefaults() {
	if h.OnSent == nil {
		h.OnSent = func(time.Duration) {}
	}
	if h.OnFailed == nil {
		h.OnFailed = func(domain.FailureKind) {}
	}
	if h.OnSkipped == nil {
		h.OnSkipped = func(domain.SkipReason) {}
	}
}

// Engine turns one subscriber batch into a sequence of send attempts under
// the quota and rate gates. Per subscriber, in input order:
//
//  1. Reserve one quota unit. Exhaustion is a hard stop: this and every
//     remaining subscriber in the batch is recorded as skipped and the
//     engine reports exhaustion to the caller.
//  2. Wait for a rate slot.
//  3. Validate the subscriber (address shape, unsubscribe token). The
//     quota unit from step 1 stays consumed on validation failure; the
//     provider meters attempts, and validation failures are rare.
//  4. Render and send, retrying transient transport failures up to the
//     retry bound with the rate gate re-applied before each retry.
//
// Results are emitted through the sink as they are produced, never batched
// at the end, so an interrupted run leaves a partial, inspectable record.
type Engine struct {
	quota       *quota.Tracker
	gate        *ratelimiter.Gate
	mailer      transport.Mailer
	renderer    render.Renderer
	maxRetries  int
	sendTimeout time.Duration
	logger      *zap.Logger
	hooks       Hooks
}

func NewEngine(
	tracker *quota.Tracker,
	gate *ratelimiter.Gate,
	mailer transport.Mailer,
	renderer render.Renderer,
	maxRetries int,
	sendTimeout time.Duration,
	logger *zap.Logger,
	hooks Hooks,
) *Engine {
	hooks.fillDefaults()
	return &Engine{
		quota:       tracker,
		gate:        gate,
		mailer:      mailer,
		renderer:    renderer,
		maxRetries:  maxRetries,
		sendTimeout: sendTimeout,
		logger:      logger,
		hooks:       hooks,
	}
}

// Dispatch processes the batch sequentially, calling sink once per
// subscriber as each result is produced. It returns exhausted=true when
// the daily quota ran out, which the caller must treat as a hard stop for
// the whole run. A cancelled ctx stops processing without emitting results
// for the untouched remainder.
func (e *Engine) Dispatch(
	ctx context.Context,
	issue *domain.Issue,
	batch []*domain.Subscriber,
	sink func(*domain.SendAttemptResult),
) (exhausted bool) {
	for i, sub := range batch {
		if ctx.Err() != nil {
			e.logger.Info("dispatch interrupted by cancellation",
				zap.Int("remaining", len(batch)-i))
			return false
		}

		if err := e.quota.TryReserve(1); err != nil {
			e.logger.Warn("daily quota exhausted, skipping remainder of batch",
				zap.Int("remaining", len(batch)-i), zap.Error(err))
			for _, skipped := range batch[i:] {
				e.emit(sink, skipResult(skipped, domain.SkipQuotaExhausted))
			}
			return true
		}

		if err := e.gate.AwaitSlot(ctx); err != nil {
			// ctx cancelled while waiting for a slot. The quota unit is
			// already spent; the attempt is simply never made.
			return false
		}

		e.emit(sink, e.attempt(ctx, issue, sub))
	}
	return false
}

// attempt runs validate → render → send-with-retries for one subscriber
// and always produces exactly one result.
func (e *Engine) attempt(ctx context.Context, issue *domain.Issue, sub *domain.Subscriber) *domain.SendAttemptResult {
	log := e.logger.With(
		zap.String("subscriber_id", sub.ID),
		zap.String("email", sub.Email),
	)

	if !sub.Sendable() {
		log.Warn("subscriber failed validation")
		return skipResult(sub, domain.SkipInvalidSubscriber)
	}

	email, err := e.renderer.Render(issue, sub)
	if err != nil {
		log.Warn("render failed", zap.Error(err))
		return skipResult(sub, domain.SkipRenderFailed)
	}

	msg := &transport.Message{
		To:             sub.Email,
		Subject:        email.Subject,
		HTMLBody:       email.HTMLBody,
		TextBody:       email.TextBody,
		UnsubscribeURL: email.UnsubscribeURL,
	}

	start := time.Now()
	attempts := 0
	for {
		if attempts > 0 {
			// Retries queue behind the rate gate like any other send. A ctx
			// cancellation here means retries were cut short, not exhausted.
			if err := e.gate.AwaitSlot(ctx); err != nil {
				return failResult(sub, attempts, domain.FailureCancelled)
			}
		}
		attempts++

		msgID, sendErr := e.send(ctx, msg)
		if sendErr == nil {
			elapsed := time.Since(start)
			log.Info("newsletter sent",
				zap.String("message_id", msgID),
				zap.Int("attempts", attempts),
				zap.Duration("latency", elapsed))
			e.hooks.OnSent(elapsed)
			return &domain.SendAttemptResult{
				SubscriberID: sub.ID,
				Email:        sub.Email,
				Outcome:      domain.OutcomeSent,
				MessageID:    msgID,
				Attempts:     attempts,
				Timestamp:    time.Now().UTC(),
			}
		}

		if !retryable(sendErr) {
			log.Warn("send rejected by transport", zap.Error(sendErr), zap.Int("attempts", attempts))
			return failResult(sub, attempts, domain.FailureRejected)
		}
		if attempts > e.maxRetries {
			log.Warn("transient send failures exhausted retries",
				zap.Error(sendErr), zap.Int("attempts", attempts))
			return failResult(sub, attempts, domain.FailureTransientExhausted)
		}
		log.Warn("transient send failure, will retry",
			zap.Error(sendErr), zap.Int("attempt", attempts))
	}
}

// send performs one bounded transport call.
func (e *Engine) send(ctx context.Context, msg *transport.Message) (string, error) {
	if e.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.sendTimeout)
		defer cancel()
	}
	return e.mailer.Send(ctx, msg)
}

// retryable classifies a transport failure. Typed errors carry their own
// classification; a bare deadline error is a timed-out call and therefore
// transient.
func retryable(err error) bool {
	var sendErr *transport.SendError
	if errors.As(err, &sendErr) {
		return sendErr.Retryable()
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func (e *Engine) emit(sink func(*domain.SendAttemptResult), res *domain.SendAttemptResult) {
	// OnSent fires at send time inside attempt, where the latency is known.
	switch res.Outcome {
	case domain.OutcomeFailed:
		e.hooks.OnFailed(res.FailureKind)
	case domain.OutcomeSkipped:
		e.hooks.OnSkipped(res.SkipReason)
	}
	sink(res)
}

func skipResult(sub *domain.Subscriber, reason domain.SkipReason) *domain.SendAttemptResult {
	return &domain.SendAttemptResult{
		SubscriberID: sub.ID,
		Email:        sub.Email,
		Outcome:      domain.OutcomeSkipped,
		SkipReason:   reason,
		Timestamp:    time.Now().UTC(),
	}
}

func failResult(sub *domain.Subscriber, attempts int, kind domain.FailureKind) *domain.SendAttemptResult {
	return &domain.SendAttemptResult{
		SubscriberID: sub.ID,
		Email:        sub.Email,
		Outcome:      domain.OutcomeFailed,
		FailureKind:  kind,
		Attempts:     attempts,
		Timestamp:    time.Now().UTC(),
	}
}
