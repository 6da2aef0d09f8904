package nakama

import (
	"context"
	"fmt"

	"secrethitler/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// NakamaDirectoryAdapter implements ports.Directory using Nakama's account API.
type NakamaDirectoryAdapter struct {
	nk runtime.NakamaModule
}

// NewNakamaDirectoryAdapter creates a new directory adapter.
func NewNakamaDirectoryAdapter(nk runtime.NakamaModule) *NakamaDirectoryAdapter {
	return &NakamaDirectoryAdapter{nk: nk}
}

// Lookup resolves the profile for a user ID.
func (a *NakamaDirectoryAdapter) Lookup(ctx context.Context, userID string) (ports.Profile, error) {
	account, err := a.nk.AccountGetId(ctx, userID)
	if err != nil {
		return ports.Profile{}, fmt.Errorf("failed to get account: %w", err)
	}

	return ports.Profile{
		UserID:      userID,
		Username:    account.User.GetUsername(),
		DisplayName: account.User.GetDisplayName(),
	}, nil
}

var _ ports.Directory = (*NakamaDirectoryAdapter)(nil)
