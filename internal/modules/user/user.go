package user

import (
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of user roles.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleVendor   Role = "VENDOR"
	RoleAdmin    Role = "ADMIN"
)

// ParseRole maps an identity-provider role string onto the closed set,
// defaulting to CUSTOMER.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleVendor:
		return RoleVendor
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleCustomer
	}
}

// User mirrors an identity-provider account. ExternalID is the provider's
// id and the upsert key for webhook-driven writes.
type User struct {
	ID           uuid.UUID  `json:"id"`
	ExternalID   string     `json:"external_id"`
	Email        string     `json:"email"`
	FirstName    string     `json:"first_name,omitempty"`
	LastName     string     `json:"last_name,omitempty"`
	AvatarURL    string     `json:"avatar_url,omitempty"`
	Role         Role       `json:"role"`
	PasswordHash string     `json:"-"`
	IsActive     bool       `json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Address is a stored shipping or billing address.
type Address struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Kind       string    `json:"kind"` // billing | shipping
	Line1      string    `json:"line1"`
	Line2      string    `json:"line2,omitempty"`
	City       string    `json:"city"`
	State      string    `json:"state,omitempty"`
	PostalCode string    `json:"postal_code"`
	Country    string    `json:"country"`
	IsDefault  bool      `json:"is_default"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Profile is the mutable slice of a user mirrored from the identity
// provider or edited through the profile API.
type Profile struct {
	Email     string
	FirstName string
	LastName  string
	AvatarURL string
	Role      Role
}
