package onboarding

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"secrethitler/internal/ports"
)

// Result captures non-fatal onboarding outcomes.
type Result struct {
	// ProfileUpdateErr is set when the profile update failed but onboarding continued.
	ProfileUpdateErr error
}

// Service handles post-auth onboarding for new users.
type Service struct {
	accounts ports.AccountPort
	rng      *rand.Rand
}

// NewService constructs an onboarding service with required ports.
// accounts must be non-nil; rng may be nil to use a time-seeded default.
func NewService(accounts ports.AccountPort, rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{
		accounts: accounts,
		rng:      rng,
	}
}

// OnboardNewUser initializes the profile for a newly created account with a
// generated friendly alias. Device-authenticated accounts arrive with opaque
// usernames, so the alias is what other players in a lobby see.
func (s *Service) OnboardNewUser(ctx context.Context, userID string) (Result, error) {
	if s.accounts == nil {
		return Result{}, fmt.Errorf("onboarding service not configured")
	}

	result := Result{}
	displayName := s.generateFriendlyName()
	if err := s.accounts.UpdateProfile(ctx, userID, displayName, displayName); err != nil {
		result.ProfileUpdateErr = err
	}

	return result, nil
}

func (s *Service) generateFriendlyName() string {
	adjectives := []string{"Quiet", "Shady", "Bold", "Clever", "Swift", "Calm", "Cunning", "Witty", "Sly", "Loyal"}
	nouns := []string{"Minister", "Envoy", "Consul", "Deputy", "Senator", "Scribe", "Courier", "Delegate", "Warden", "Magistrate"}

	adj := adjectives[s.rng.Intn(len(adjectives))]
	noun := nouns[s.rng.Intn(len(nouns))]
	num := s.rng.Intn(9000) + 1000

	return fmt.Sprintf("%s%s%d", adj, noun, num)
}
