package transport

import (
	"context"
	"fmt"
)

// Message is a fully rendered, ready-to-send email. Rendering is the
// renderer's job; the transport only moves bytes.
type Message struct {
	To             string
	Subject        string
	HTMLBody       string
	TextBody       string
	UnsubscribeURL string
}

// ErrorKind classifies a send failure the way the retry policy needs it:
// throttled/timeout/unknown are worth retrying, rejected is terminal.
type ErrorKind string

const (
	KindThrottled ErrorKind = "throttled"
	KindTimeout   ErrorKind = "timeout"
	KindRejected  ErrorKind = "rejected"
	KindUnknown   ErrorKind = "unknown"
)

// SendError is the typed failure returned by every Mailer implementation.
type SendError struct {
	Kind   ErrorKind
	Status int // HTTP status when available, 0 otherwise
	Msg    string
}

func (e *SendError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("mailer: %s (status %d): %s", e.Kind, e.Status, e.Msg)
	}
	return fmt.Sprintf("mailer: %s: %s", e.Kind, e.Msg)
}

// Retryable reports whether the failure is transient. Unknown failures
// (provider 5xx, connection resets) are treated as transient so they get
// the bounded retry rather than an immediate terminal record.
func (e *SendError) Retryable() bool {
	switch e.Kind {
	case KindThrottled, KindTimeout, KindUnknown:
		return true
	}
	return false
}

// Mailer abstracts delivery through an external email API. It returns the
// provider's opaque message identifier on success. Mocking this interface
// gives tests full control over provider behaviour without HTTP.
type Mailer interface {
	Send(ctx context.Context, msg *Message) (messageID string, err error)
}
