package middleware

import (
	"crypto/subtle"
	"net/http"

	"talowa-referral/pkg/utils"

	"go.uber.org/zap"
)

// AdminKey guards the repair and listing routes. Authentication proper is
// handled by an external collaborator; this key only fences off operator
// endpoints from the public API surface.
func AdminKey(apiKey string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				logger.Warn("Admin route called but no admin API key configured",
					zap.String("path", r.URL.Path))
				utils.ResponseForbidden(w, "Admin API is disabled")
				return
			}

			got := r.Header.Get("X-Admin-Key")
			if got == "" {
				utils.ResponseUnauthorized(w, "Missing X-Admin-Key header")
				return
			}

			if subtle.ConstantTimeCompare([]byte(got), []byte(apiKey)) != 1 {
				logger.Warn("Invalid admin API key",
					zap.String("path", r.URL.Path),
					zap.String("ip", r.RemoteAddr))
				utils.ResponseUnauthorized(w, "Invalid admin API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
