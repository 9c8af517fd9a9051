package middleware

import (
	"crypto/sha256"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/dispatchly/dispatchly-api/internal/pkg/response"
)

// AdminAuth validates the admin bearer token against a bcrypt hash from
// config. An empty hash disables the admin surface entirely.
func AdminAuth(tokenHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenHash == "" {
				response.Forbidden(w, "Admin API is not enabled")
				return
			}

			authHeader := r.Header.Get("Authorization")
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				response.Unauthorized(w, "Missing admin token")
				return
			}

			// bcrypt input is capped at 72 bytes; hash the token first so
			// arbitrary-length tokens compare correctly.
			digest := sha256.Sum256([]byte(parts[1]))
			if err := bcrypt.CompareHashAndPassword([]byte(tokenHash), digest[:]); err != nil {
				response.Unauthorized(w, "Invalid admin token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
