package auth

import (
	"context"

	"github.com/google/uuid"
)

// Role strings mirrored from the user records. Kept here so authorization
// decisions don't pull in the user package.
const (
	RoleCustomer = "CUSTOMER"
	RoleVendor   = "VENDOR"
	RoleAdmin    = "ADMIN"
)

// Service defines the interface for authentication-related business logic.
type Service interface {
	// Login verifies credentials and returns a signed token.
	Login(ctx context.Context, email, password string) (string, error)
}

// Account is the credential view of a user record.
type Account struct {
	ID           uuid.UUID
	Email        string
	Role         string
	PasswordHash string
	Active       bool
}

// AccountSource looks up login credentials by email.
type AccountSource interface {
	AccountByEmail(ctx context.Context, email string) (*Account, error)
}

// Actor identifies the authenticated caller for authorization decisions.
type Actor struct {
	UserID string
	Role   string
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

type contextKey struct{}

// WithActor stores the actor in ctx.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, contextKey{}, a)
}

// FromContext returns the actor set by the middleware.
func FromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(contextKey{}).(Actor)
	return a, ok
}
