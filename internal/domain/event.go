package domain

import "time"

// EventType is the kind of delivery feedback carried by a notification.
type EventType string

const (
	EventBounce    EventType = "bounce"
	EventComplaint EventType = "complaint"
)

// BounceType distinguishes permanent failures (address is dead, subscriber
// leaves the active rotation) from transient ones (mailbox full etc., no
// state change).
type BounceType string

const (
	BouncePermanent BounceType = "permanent"
	BounceTransient BounceType = "transient"
)

// NotificationEvent is a parsed bounce/complaint notification from the
// delivery feedback channel. NotificationID is the external identifier
// used for idempotency: the channel delivers at-least-once, so the same
// event may arrive more than once and must be applied at most once.
type NotificationEvent struct {
	NotificationID string
	Type           EventType
	BounceType     BounceType // set only for Type == EventBounce
	Emails         []string
	Timestamp      time.Time
}
