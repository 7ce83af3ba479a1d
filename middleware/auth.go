package middleware

import (
	"context"
	"net/http"
	"strings"

	"kolabdok/internal/token"
	"kolabdok/pkg/logger"
)

type contextKey string

const (
	UserIDKey contextKey = "userID"
	EmailKey  contextKey = "email"
)

// Auth verifies the session token on every request and puts the caller's
// identity into the request context. Tokens are read from the "token" query
// parameter first because the browser WebSocket API cannot set headers, with
// the Authorization header as a fallback for regular API calls.
func Auth(tokens *token.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := r.URL.Query().Get("token")
			if tokenString == "" {
				authHeader := r.Header.Get("Authorization")
				tokenString = strings.TrimPrefix(authHeader, "Bearer ")
			}

			if tokenString == "" {
				http.Error(w, "Unauthorized: No token provided", http.StatusUnauthorized)
				return
			}

			claims, err := tokens.VerifySession(tokenString)
			if err != nil {
				logger.Sugar.Infof("Rejected session token: %v", err)
				http.Error(w, "Unauthorized: Invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, EmailKey, claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
