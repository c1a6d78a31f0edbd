package server

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/karanvs/scambait/internal/domain"
)

// AuthMiddleware validates the X-API-Key header against the configured
// key. Health and root endpoints are left open so load balancers can
// probe without credentials.
func AuthMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" || r.URL.Path == "/" {
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get("X-API-Key")
			if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
				apiErr := domain.ErrAuthentication("invalid or missing API key")
				AddLogField(r.Context(), "auth_error", apiErr.Message)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(apiErr.HTTPStatusCode())
				json.NewEncoder(w).Encode(map[string]any{
					"status": "error",
					"error":  apiErr,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
