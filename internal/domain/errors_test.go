package domain

import (
	"net/http"
	"testing"
)

func TestAPIErrorHTTPStatusCode(t *testing.T) {
	tests := []struct {
		err  *APIError
		want int
	}{
		{ErrValidation("bad input"), http.StatusUnprocessableEntity},
		{ErrAuthentication("bad key"), http.StatusUnauthorized},
		{ErrSessionNotFound("sess-1"), http.StatusNotFound},
		{ErrRateLimit("slow down"), http.StatusTooManyRequests},
		{ErrBackend("upstream down"), http.StatusServiceUnavailable},
		{ErrServer("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := tt.err.HTTPStatusCode(); got != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.err.Type, got, tt.want)
		}
	}
}

func TestAPIErrorStatusCodeOverride(t *testing.T) {
	e := ErrValidation("bad input")
	e.StatusCode = http.StatusBadRequest
	if got := e.HTTPStatusCode(); got != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", got, http.StatusBadRequest)
	}
}

func TestAPIErrorMessageFormat(t *testing.T) {
	e := ErrValidation("sessionId is required").WithField("sessionId")
	want := "validation (sessionId): sessionId is required"
	if e.Error() != want {
		t.Errorf("Error() = %q, want %q", e.Error(), want)
	}

	plain := ErrRateLimit("minute limit exceeded")
	if plain.Error() != "rate_limit: minute limit exceeded" {
		t.Errorf("Error() = %q", plain.Error())
	}
}

func TestAPIErrorWithRetryAfter(t *testing.T) {
	e := ErrRateLimit("minute limit exceeded").WithRetryAfter(42)
	if e.RetryAfterSeconds != 42 {
		t.Errorf("retryAfterSeconds = %d, want 42", e.RetryAfterSeconds)
	}
}
