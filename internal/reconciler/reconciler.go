package reconciler

import (
	"context"

	"go.uber.org/zap"

	"github.com/GeneralToucan/alkinson-newsletter/internal/domain"
	"github.com/GeneralToucan/alkinson-newsletter/internal/repository"
)

// Hooks carries the metric callbacks injected by main.
type Hooks struct {
	OnApplied   func(eventType domain.EventType)
	OnMalformed func()
}

func (h *Hooks) fillDefaults() {
	if h.OnApplied == nil {
		h.OnApplied = func(domain.EventType) {}
	}
	if h.OnMalformed == nil {
		h.OnMalformed = func() {}
	}
}

// Reconciler consumes asynchronous bounce/complaint notifications and
// applies subscriber-state transitions:
//
//	active --bounce(permanent)--> bounced
//	active --complaint-->         complained
//	active --bounce(transient)--> active (logged, no transition)
//	bounced|complained --any-->   unchanged
//
// Transitions use compare-and-update writes keyed on the current stored
// status, never on event timestamps, so out-of-order delivery is absorbed:
// a transient bounce arriving after a permanent one is a no-op because the
// subscriber is no longer active.
//
// It runs as an independent consumer of its own inbound channel, decoupled
// from any in-progress distribution run.
type Reconciler struct {
	subs   repository.SubscriberRepository
	seen   repository.ProcessedEventStore
	events chan []byte
	logger *zap.Logger
	hooks  Hooks
}

func New(
	subs repository.SubscriberRepository,
	seen repository.ProcessedEventStore,
	logger *zap.Logger,
	hooks Hooks,
) *Reconciler {
	hooks.fillDefaults()
	return &Reconciler{
		subs:   subs,
		seen:   seen,
		events: make(chan []byte, 1024),
		logger: logger,
		hooks:  hooks,
	}
}

// Submit queues a raw payload for asynchronous handling and reports
// whether it was accepted. A full buffer rejects the payload instead of
// dropping it: the feedback channel only redelivers unacknowledged
// notifications, so the caller must surface the rejection rather than ack
// an event that was never queued.
func (r *Reconciler) Submit(raw []byte) bool {
	select {
	case r.events <- raw:
		return true
	default:
		r.logger.Warn("notification buffer full, rejecting payload",
			zap.Int("buffer", cap(r.events)))
		return false
	}
}

// Run consumes queued payloads until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	r.logger.Info("reconciler started")
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopping")
			return
		case raw := <-r.events:
			r.HandleNotification(ctx, raw)
		}
	}
}

// HandleNotification parses and applies one raw payload. It never panics
// and never propagates an error to the caller: malformed payloads are
// logged and dropped, store failures are logged and left for redelivery.
func (r *Reconciler) HandleNotification(ctx context.Context, raw []byte) {
	ev, err := parseNotification(raw)
	if err != nil {
		r.logger.Warn("dropping unparseable notification", zap.Error(err))
		r.hooks.OnMalformed()
		return
	}

	log := r.logger.With(
		zap.String("notification_id", ev.NotificationID),
		zap.String("type", string(ev.Type)),
	)

	// Idempotency gate: the same external identifier is applied at most
	// once even if the channel redelivers. The transitions below are
	// themselves no-ops on re-apply, so the residual crash window between
	// marking and applying cannot corrupt subscriber state.
	fresh, err := r.seen.MarkProcessed(ctx, ev.NotificationID)
	if err != nil {
		log.Error("idempotency check failed, leaving event for redelivery", zap.Error(err))
		return
	}
	if !fresh {
		log.Debug("duplicate notification ignored")
		return
	}

	for _, email := range ev.Emails {
		r.applyTransition(ctx, log, ev, email)
	}
	r.hooks.OnApplied(ev.Type)
}

func (r *Reconciler) applyTransition(ctx context.Context, log *zap.Logger, ev *domain.NotificationEvent, email string) {
	var target domain.SubscriberStatus
	switch {
	case ev.Type == domain.EventBounce && ev.BounceType == domain.BouncePermanent:
		target = domain.StatusBounced
	case ev.Type == domain.EventComplaint:
		target = domain.StatusComplained
	default:
		// Transient bounce: the mailbox hiccupped, the subscriber stays
		// in rotation.
		log.Info("transient bounce, no state change", zap.String("email", email))
		return
	}

	transitioned, err := r.subs.TransitionStatusByEmail(ctx, email, domain.StatusActive, target)
	if err != nil {
		log.Error("status transition failed", zap.String("email", email), zap.Error(err))
		return
	}
	if !transitioned {
		// Unknown address, or the subscriber already left the active
		// rotation (terminal states absorb all further events).
		log.Info("no transition applied", zap.String("email", email), zap.String("target", string(target)))
		return
	}
	log.Info("subscriber status updated",
		zap.String("email", email), zap.String("status", string(target)))
}
