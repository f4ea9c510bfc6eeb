package middleware

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Context key type to avoid collisions
type contextKey string

// SessionIDKey is the context key for the browser session ID
const SessionIDKey contextKey = "session_id"

// GetRequestIDFromContext returns the id assigned by chi's RequestID middleware
func GetRequestIDFromContext(ctx context.Context) string {
	return chimw.GetReqID(ctx)
}

// GetSessionIDFromContext retrieves the session ID set by SessionManager
func GetSessionIDFromContext(ctx context.Context) uuid.UUID {
	if val := ctx.Value(SessionIDKey); val != nil {
		if sessionID, ok := val.(uuid.UUID); ok {
			return sessionID
		}
	}
	return uuid.Nil
}

// WithSessionID adds a session ID to the context
func WithSessionID(ctx context.Context, sessionID uuid.UUID) context.Context {
	return context.WithValue(ctx, SessionIDKey, sessionID)
}
