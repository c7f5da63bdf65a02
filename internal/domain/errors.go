package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email is already subscribed")
	ErrInvalidEmail   = errors.New("invalid email address")
	ErrInvalidToken   = errors.New("unsubscribe token does not match")
	ErrRunInProgress  = errors.New("a distribution run is already in progress")
	ErrNoIssue        = errors.New("no newsletter issue available")
)
