package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/kasetlab/farmhub/internal/errors"
)

// TokenConfig carries the shared bearer token guarding the dashboard API
type TokenConfig struct {
	APIToken string
}

// TokenMiddleware authenticates dashboard requests with a static bearer
// token. Device endpoints do not pass through here; they authenticate with
// per-farm device keys instead.
type TokenMiddleware struct {
	config TokenConfig
}

func NewTokenMiddleware(config TokenConfig) *TokenMiddleware {
	return &TokenMiddleware{config: config}
}

// Authenticate validates the bearer token and adds the caller roles to the
// request context
func (m *TokenMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			handleError(w, errors.NewAuthError("no token provided", nil))
			return
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(m.config.APIToken)) != 1 {
			handleError(w, errors.NewAuthError("invalid token", nil))
			return
		}

		ctx := context.WithValue(r.Context(), "user_roles", []string{"admin"})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractToken(r *http.Request) string {
	bearerToken := r.Header.Get("Authorization")
	parts := strings.Split(bearerToken, " ")
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}

func handleError(w http.ResponseWriter, err error) {
	if apiErr, ok := err.(*errors.APIError); ok {
		http.Error(w, apiErr.Message, apiErr.Code)
		return
	}
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
