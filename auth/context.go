// Package auth, as part of the authentication module.
// This file, `context.go`, deals with carrying the authenticated username
// through the request's `context.Context`, from the guard to the handlers.
package auth

import (
	"context"

	"github.com/user/messagely-go/apperror"
)

// `contextKey` is a custom type for context keys. Using a custom type prevents collisions
// with context keys defined in other packages.
type contextKey string

const (
	usernameContextKey contextKey = "auth_username"
)

// NewContextWithUsername returns a child context carrying the authenticated username.
func NewContextWithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, usernameContextKey, username)
}

// UsernameFromContext extracts the username stored by the guard.
// The second return value reports whether one was present.
func UsernameFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(usernameContextKey).(string)
	return username, ok && username != ""
}

// RequireUser is UsernameFromContext for handlers: a missing identity means the
// route was mounted without the guard, and the request is treated as unauthenticated.
func RequireUser(ctx context.Context) (string, error) {
	username, ok := UsernameFromContext(ctx)
	if !ok {
		return "", ErrNoAuthContext
	}
	return username, nil
}

// ErrNoAuthContext is returned when a handler runs without an authenticated identity.
var ErrNoAuthContext = apperror.NewUnauthenticatedError("Unauthorized", nil)
