package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/GeneralToucan/alkinson-newsletter/internal/api/middleware"
)

func TestCorrelationID_MintsAndEchoes(t *testing.T) {
	var seen string
	h := middleware.CorrelationID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.GetCorrelationID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quota", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if seen == "" {
		t.Fatal("expected a correlation ID on the request context")
	}
	if got := w.Header().Get(middleware.HeaderCorrelationID); got != seen {
		t.Fatalf("expected header %q to echo %q", got, seen)
	}
}

func TestCorrelationID_AdoptsCallerID(t *testing.T) {
	h := middleware.CorrelationID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetCorrelationID(r.Context()); id != "caller-42" {
			t.Fatalf("expected caller's ID to be adopted, got %q", id)
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(middleware.HeaderCorrelationID, "caller-42")
	h.ServeHTTP(httptest.NewRecorder(), req)
}

func TestRequestLogger_PreservesHandlerResponse(t *testing.T) {
	h := middleware.RequestLogger(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short"))
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusTeapot {
		t.Fatalf("expected status to pass through, got %d", w.Code)
	}
	if w.Body.String() != "short" {
		t.Fatalf("expected body to pass through, got %q", w.Body.String())
	}
}
