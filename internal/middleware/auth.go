package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Dan9191/bank-cards/internal/models"
)

type contextKey int

const principalKey contextKey = iota

// TokenParser verifies an access token
type TokenParser interface {
	ParseToken(token string) (*models.Principal, error)
}

// AuthMiddleware validates the bearer token and stores the caller's principal in the request context
func AuthMiddleware(parser TokenParser, log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				WriteError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				WriteError(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			principal, err := parser.ParseToken(strings.TrimSpace(parts[1]))
			if err != nil {
				log.WithField("path", r.URL.Path).Debug("Rejected invalid token")
				WriteError(w, http.StatusUnauthorized, models.ErrInvalidToken.Message)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireRole lets through only principals holding role. It must run after AuthMiddleware
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFrom(r.Context())
			if !ok {
				WriteError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if !principal.HasRole(role) {
				WriteError(w, http.StatusForbidden, models.ErrAccessDenied.Message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithPrincipal returns a copy of ctx carrying p
func WithPrincipal(ctx context.Context, p *models.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFrom returns the authenticated caller, if any
func PrincipalFrom(ctx context.Context) (*models.Principal, bool) {
	p, ok := ctx.Value(principalKey).(*models.Principal)
	return p, ok && p != nil
}
