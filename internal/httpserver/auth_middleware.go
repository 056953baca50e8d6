package httpserver

import (
	"context"
	"net/http"
	"strings"

	"fromchat/internal/domain"
	"fromchat/internal/security"
)

type contextKey string

const (
	userContextKey    contextKey = "currentUser"
	sessionContextKey contextKey = "currentSession"
)

// WithUser returns a new context carrying the current user and the device
// session id the request authenticated with.
func WithUser(ctx context.Context, user *domain.User, sessionID string) context.Context {
	ctx = context.WithValue(ctx, userContextKey, user)
	return context.WithValue(ctx, sessionContextKey, sessionID)
}

// CurrentUser extracts the current user from context, if any.
func CurrentUser(r *http.Request) *domain.User {
	if u, ok := r.Context().Value(userContextKey).(*domain.User); ok {
		return u
	}
	return nil
}

// CurrentSessionID extracts the device session id the request was
// authenticated with.
func CurrentSessionID(r *http.Request) string {
	if sid, ok := r.Context().Value(sessionContextKey).(string); ok {
		return sid
	}
	return ""
}

// AuthMiddleware validates the Bearer token, rejects revoked device
// sessions, and attaches the user to the context.
func AuthMiddleware(tokens *security.TokenService, users domain.UserRepository, sessions domain.SessionRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
				http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
				return
			}
			tokenStr := strings.TrimSpace(authHeader[len("Bearer "):])

			claims, err := tokens.Parse(tokenStr)
			if err != nil || claims.Username == "" || claims.SessionID == "" {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			sess, err := sessions.GetBySessionID(r.Context(), claims.SessionID)
			if err != nil || sess.Revoked {
				http.Error(w, "session revoked", http.StatusUnauthorized)
				return
			}

			user, err := users.GetByUsername(r.Context(), claims.Username)
			if err != nil || user.Deleted {
				http.Error(w, "user not found", http.StatusUnauthorized)
				return
			}

			// Best effort, a stale last_seen is not worth failing the request.
			_ = sessions.Touch(r.Context(), claims.SessionID)

			ctx := WithUser(r.Context(), user, claims.SessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
