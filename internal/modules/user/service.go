package user

import "context"

// Service defines user-facing profile logic plus the lifecycle operations
// driven by identity-provider webhooks.
type Service interface {
	// Me returns the caller's own profile.
	Me(ctx context.Context, userID string) (*User, error)

	// UpdateProfile edits the caller's mirrored fields and invalidates
	// that user's cache entries.
	UpdateProfile(ctx context.Context, userID string, firstName, lastName, avatarURL string) (*User, error)

	ListAddresses(ctx context.Context, userID string) ([]*Address, error)
	AddAddress(ctx context.Context, a *Address) (*Address, error)

	// CreateFromIdentity mirrors a provider "user created" event. Safe to
	// replay: the second delivery finds the existing row and changes
	// nothing. Returns the user and whether this call created it.
	CreateFromIdentity(ctx context.Context, externalID string, p Profile) (*User, bool, error)

	// UpdateFromIdentity mirrors a provider "user updated" event.
	UpdateFromIdentity(ctx context.Context, externalID string, p Profile) (*User, error)

	// DeactivateFromIdentity soft-deactivates on "user deleted".
	DeactivateFromIdentity(ctx context.Context, externalID string) (*User, error)

	// RecordLogin marks a session start from the provider.
	RecordLogin(ctx context.Context, externalID string) (*User, error)
}
