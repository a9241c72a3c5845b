package httpapi

import (
	"context"
	"net/http"
	"strings"

	"ocpigw/internal/security"
)

type contextKey string

const tokenKey contextKey = "ocpi-token"

// RequireOcpiToken extracts the credentials token from the Authorization
// header ("Token <value>"; "Bearer" accepted for interop) and stores it in
// the request context. Resolution to a partner happens in the handlers,
// since first contact presents a token that is not yet bound to credentials.
func RequireOcpiToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		var token string
		switch {
		case strings.HasPrefix(auth, "Token "):
			token = strings.TrimPrefix(auth, "Token ")
		case strings.HasPrefix(auth, "Bearer "):
			token = strings.TrimPrefix(auth, "Bearer ")
		}
		if token == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), tokenKey, token)))
	})
}

func tokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}

// RequireBearer guards the admin surface with a static API key. An empty
// configured key disables the check (local development).
func RequireBearer(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || !security.ConstantTimeEqual(strings.TrimPrefix(auth, "Bearer "), token) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
