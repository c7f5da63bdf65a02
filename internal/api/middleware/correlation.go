package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// HeaderCorrelationID is echoed on every response so a caller can match a
// distribution trigger or a notification post to its log lines.
const HeaderCorrelationID = "X-Correlation-ID"

type ctxKey int

const correlationIDKey ctxKey = iota

// CorrelationID adopts the caller's correlation header or mints a fresh
// UUID, stores it on the request context, and echoes it back.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderCorrelationID)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(HeaderCorrelationID, id)
		next.ServeHTTP(w, r.WithContext(
			context.WithValue(r.Context(), correlationIDKey, id)))
	})
}

// GetCorrelationID returns the request's correlation ID, or an empty
// string when the middleware is not in the chain.
func GetCorrelationID(ctx context.Context) string {
	v, _ := ctx.Value(correlationIDKey).(string)
	return v
}
