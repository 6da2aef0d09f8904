package ports

import "context"

// Profile is the directory projection of a participant used to enrich
// per-seat summaries.
type Profile struct {
	UserID      string
	Username    string
	DisplayName string
}

// Directory resolves participant identities.
type Directory interface {
	// Lookup returns the profile for a participant.
	// Returns an error if the participant cannot be resolved.
	Lookup(ctx context.Context, userID string) (Profile, error)
}
