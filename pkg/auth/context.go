package auth

import (
	"context"
	"errors"
)

// UserContext is the authenticated caller attached to a request
type UserContext struct {
	UserID string
	Email  string
	Roles  []string
}

type contextKey string

const userContextKey contextKey = "user"

// ErrNoUserInContext is returned when a request carries no authenticated user
var ErrNoUserInContext = errors.New("no user in context")

// SetUserInContext attaches the authenticated user to a context
func SetUserInContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// GetUserFromContext extracts the authenticated user from a context
func GetUserFromContext(ctx context.Context) (*UserContext, error) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	if !ok || user == nil {
		return nil, ErrNoUserInContext
	}
	return user, nil
}
