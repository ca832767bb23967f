package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Dias221467/connections-chat/pkg/jwt"
	"github.com/Dias221467/connections-chat/pkg/logger"
)

type contextKey string

// UserContextKey holds the validated *jwt.Claims of the caller.
const UserContextKey contextKey = "user"

// AuthMiddleware validates the bearer token and stores its claims in the
// request context.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				logger.Log.WithField("path", r.URL.Path).Warn("Missing bearer token")
				unauthorized(w)
				return
			}

			claims, err := jwt.ValidateToken(token, secret)
			if err != nil {
				logger.Log.WithError(err).WithField("path", r.URL.Path).Warn("Invalid bearer token")
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), claims)))
		})
	}
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func WithUser(ctx context.Context, claims *jwt.Claims) context.Context {
	return context.WithValue(ctx, UserContextKey, claims)
}

// GetUserFromContext returns the caller's claims or nil.
func GetUserFromContext(ctx context.Context) *jwt.Claims {
	claims, _ := ctx.Value(UserContextKey).(*jwt.Claims)
	return claims
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"code":"UNAUTHENTICATED","message":"missing or invalid token"}`))
}
