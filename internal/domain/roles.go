package domain

import "fmt"

const (
	// MinSupportedPlayers is the smallest player count the role table covers.
	MinSupportedPlayers = 3
	// MaxSupportedPlayers is the largest player count the role table covers.
	MaxSupportedPlayers = 10
)

// AssignRoles runs once at session start, after the player list is frozen.
// It deals exactly one Hitler, ceil(n/2)-2 plain Fascists and the remainder
// Liberals, shuffled through the session stream, then records the Hitler
// holder. Player counts outside the supported range indicate the start
// preconditions were already broken.
func (s *Session) AssignRoles() {
	n := len(s.Players)
	if n < MinSupportedPlayers || n > MaxSupportedPlayers {
		panic(fmt.Sprintf("role assignment for unsupported player count %d", n))
	}

	// Fascist-aligned seats including Hitler.
	fascists := (n+1)/2 - 1

	roles := make([]Allegiance, n)
	roles[0] = AllegianceHitler
	for i := 1; i < n; i++ {
		if i < fascists {
			roles[i] = AllegianceFascist
		} else {
			roles[i] = AllegianceLiberal
		}
	}
	s.Rng.Shuffle(n, func(i, j int) { roles[i], roles[j] = roles[j], roles[i] })

	for idx, userID := range s.Players {
		s.States[userID].Allegiance = roles[idx]
		if roles[idx] == AllegianceHitler {
			s.HitlerID = userID
		}
	}
}
