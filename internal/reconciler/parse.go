package reconciler

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/GeneralToucan/alkinson-newsletter/internal/domain"
)

// ErrMalformedPayload marks a notification that cannot be parsed into an
// event. Such payloads carry no recoverable identifier, so they are logged
// and dropped rather than retried.
var ErrMalformedPayload = errors.New("malformed notification payload")

// rawNotification mirrors the delivery-feedback JSON shape (SES-over-SNS
// style): a top-level type discriminator plus a bounce or complaint block.
type rawNotification struct {
	NotificationType string        `json:"notificationType"`
	Bounce           *rawBounce    `json:"bounce"`
	Complaint        *rawComplaint `json:"complaint"`
}

type rawBounce struct {
	BounceType        string         `json:"bounceType"`
	BouncedRecipients []rawRecipient `json:"bouncedRecipients"`
	FeedbackID        string         `json:"feedbackId"`
	Timestamp         time.Time      `json:"timestamp"`
}

type rawComplaint struct {
	ComplainedRecipients []rawRecipient `json:"complainedRecipients"`
	FeedbackID           string         `json:"feedbackId"`
	Timestamp            time.Time      `json:"timestamp"`
}

type rawRecipient struct {
	EmailAddress string `json:"emailAddress"`
}

// parseNotification turns a raw payload into a NotificationEvent.
// Anything missing the type discriminator, the matching detail block, the
// feedback identifier, or at least one recipient is malformed.
func parseNotification(raw []byte) (*domain.NotificationEvent, error) {
	var n rawNotification
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	switch n.NotificationType {
	case "Bounce":
		if n.Bounce == nil || n.Bounce.FeedbackID == "" || len(n.Bounce.BouncedRecipients) == 0 {
			return nil, fmt.Errorf("%w: incomplete bounce block", ErrMalformedPayload)
		}
		return &domain.NotificationEvent{
			NotificationID: n.Bounce.FeedbackID,
			Type:           domain.EventBounce,
			BounceType:     bounceType(n.Bounce.BounceType),
			Emails:         recipientEmails(n.Bounce.BouncedRecipients),
			Timestamp:      n.Bounce.Timestamp,
		}, nil
	case "Complaint":
		if n.Complaint == nil || n.Complaint.FeedbackID == "" || len(n.Complaint.ComplainedRecipients) == 0 {
			return nil, fmt.Errorf("%w: incomplete complaint block", ErrMalformedPayload)
		}
		return &domain.NotificationEvent{
			NotificationID: n.Complaint.FeedbackID,
			Type:           domain.EventComplaint,
			Emails:         recipientEmails(n.Complaint.ComplainedRecipients),
			Timestamp:      n.Complaint.Timestamp,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown notification type %q", ErrMalformedPayload, n.NotificationType)
	}
}

// bounceType maps the provider's bounce classification onto ours. Only
// "Permanent" removes a subscriber; everything else (Transient,
// Undetermined) is treated as transient and leaves eligibility untouched.
func bounceType(s string) domain.BounceType {
	if s == "Permanent" {
		return domain.BouncePermanent
	}
	return domain.BounceTransient
}

func recipientEmails(recipients []rawRecipient) []string {
	emails := make([]string, 0, len(recipients))
	for _, r := range recipients {
		if r.EmailAddress != "" {
			emails = append(emails, r.EmailAddress)
		}
	}
	return emails
}
