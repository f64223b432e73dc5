package user

import "context"

// Repository defines data access for users and their addresses.
type Repository interface {
	// UpsertByExternalID inserts the user or, if the external id already
	// exists, leaves the row unchanged. Returns the stored user and whether
	// a new row was created. This is what makes webhook replays idempotent.
	UpsertByExternalID(ctx context.Context, u *User) (*User, bool, error)

	// EnsureCustomerProfile creates the dependent customer row if missing.
	EnsureCustomerProfile(ctx context.Context, userID string) error

	GetByID(ctx context.Context, id string) (*User, error)
	GetByExternalID(ctx context.Context, externalID string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)

	// UpdateProfile overwrites the mirrored fields of the user.
	UpdateProfile(ctx context.Context, externalID string, p Profile) (*User, error)

	// Deactivate soft-deletes the user; rows are never physically removed.
	Deactivate(ctx context.Context, externalID string) (*User, error)

	// TouchLastLogin records a session start.
	TouchLastLogin(ctx context.Context, externalID string) (*User, error)

	ListAddresses(ctx context.Context, userID string) ([]*Address, error)
	CreateAddress(ctx context.Context, a *Address) error
}
