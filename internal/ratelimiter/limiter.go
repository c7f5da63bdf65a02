package ratelimiter

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Gate serializes send attempts against the external mail API. It is a
// single shared token bucket of rate 1/interval with burst 1, so two
// grants are never closer together than the configured interval and no
// burst capacity accumulates. The provider advertises no burst tolerance,
// so none is assumed here.
type Gate struct {
	limiter *rate.Limiter
}

// New creates a Gate with the given minimum spacing between grants.
// A non-positive interval disables limiting entirely (used by tests and
// by operators pointing at a sandbox transport).
func New(interval time.Duration) *Gate {
	if interval <= 0 {
		return &Gate{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Gate{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// AwaitSlot blocks the caller until the interval has elapsed since the
// previous grant. Pending callers queue and are granted slots one at a
// time. Returns a non-nil error only if ctx is cancelled while waiting.
func (g *Gate) AwaitSlot(ctx context.Context) error {
	return g.limiter.Wait(ctx)
}
