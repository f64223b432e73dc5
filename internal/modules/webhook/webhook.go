// Package webhook ingests deliveries from the identity provider and the
// payment processor. Every delivery is verified, recorded, and processed
// at most once no matter how many times the sender retries it.
package webhook

import "context"

// Repository is the idempotency ledger. The ledger is written only after
// a delivery's effect has been applied; a failed delivery stays unrecorded
// so the provider's retry gets processed instead of skipped.
type Repository interface {
	// Processed reports whether the delivery id has already been applied.
	Processed(ctx context.Context, eventID string) (bool, error)

	// MarkProcessed records the delivery id. It returns false when the id
	// was already recorded by a concurrent delivery.
	MarkProcessed(ctx context.Context, eventID, eventType string) (bool, error)
}

// identityEvent is the envelope the identity provider posts.
type identityEvent struct {
	Type string `json:"type"`
	Data struct {
		ID             string `json:"id"`
		UserID         string `json:"user_id"`
		FirstName      string `json:"first_name"`
		LastName       string `json:"last_name"`
		ImageURL       string `json:"image_url"`
		EmailAddresses []struct {
			EmailAddress string `json:"email_address"`
		} `json:"email_addresses"`
		PublicMetadata struct {
			Role string `json:"role"`
		} `json:"public_metadata"`
	} `json:"data"`
}

func (e identityEvent) email() string {
	if len(e.Data.EmailAddresses) == 0 {
		return ""
	}
	return e.Data.EmailAddresses[0].EmailAddress
}
