package middleware

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	ctxUserID contextKey = "user_id"
	ctxHandle contextKey = "handle"
)

// UserIDFromContext returns the authenticated internal user id, or uuid.Nil
// for anonymous requests. Services treat uuid.Nil as "no caller".
func UserIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxUserID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

func HandleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxHandle).(string); ok {
		return v
	}
	return ""
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

func withHandle(ctx context.Context, handle string) context.Context {
	return context.WithValue(ctx, ctxHandle, handle)
}
