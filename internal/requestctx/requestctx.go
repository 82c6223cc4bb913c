// Package requestctx carries per-request values through context.Context.
package requestctx

import "context"

type requestIDContextKey struct{}

type userIDContextKey struct{}

// WithRequestID stores the correlation id of the current request.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestIDContextKey{}, requestID)
}

// RequestID returns the correlation id stored in ctx, or "n/a" outside a request.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return "n/a"
	}
	value, ok := ctx.Value(requestIDContextKey{}).(string)
	if !ok || value == "" {
		return "n/a"
	}
	return value
}

// WithUserID stores the authenticated caller.
func WithUserID(ctx context.Context, userID int64) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, userIDContextKey{}, userID)
}

// UserID returns the authenticated caller and whether one was resolved.
func UserID(ctx context.Context) (int64, bool) {
	if ctx == nil {
		return 0, false
	}
	value, ok := ctx.Value(userIDContextKey{}).(int64)
	if !ok || value <= 0 {
		return 0, false
	}
	return value, true
}
