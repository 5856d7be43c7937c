package auth

import "context"

type contextKey struct{}

// Caller identifies the signed-in user behind a request.
type Caller struct {
	UserID    string
	Email     string
	SessionID string
}

func WithCaller(ctx context.Context, ac Caller) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (Caller, bool) {
	ac, ok := ctx.Value(contextKey{}).(Caller)
	return ac, ok
}

// UserID returns the caller's user id, or "" outside an authenticated request.
func UserID(ctx context.Context) string {
	ac, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return ac.UserID
}

// Email returns the caller's address as stored, which is always lower case.
func Email(ctx context.Context) string {
	ac, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return ac.Email
}
