package domain

// Power identifies a fascist executive power.
type Power string

const (
	PowerNone            Power = ""
	PowerInvestigate     Power = "investigate"
	PowerPeek            Power = "peek"
	PowerSpecialElection Power = "special_election"
	PowerExecution       Power = "execution"
)

// FascistPowerFor returns the power unlocked when the given fascist policy
// count is reached, scaled by session size per the printed ruleset.
func FascistPowerFor(enactedFascist, playerCount int) Power {
	switch {
	case playerCount <= 6:
		switch enactedFascist {
		case 3:
			return PowerPeek
		case 4, 5:
			return PowerExecution
		}
	case playerCount <= 8:
		switch enactedFascist {
		case 2:
			return PowerInvestigate
		case 3:
			return PowerSpecialElection
		case 4, 5:
			return PowerExecution
		}
	default:
		switch enactedFascist {
		case 1, 2:
			return PowerInvestigate
		case 3:
			return PowerSpecialElection
		case 4, 5:
			return PowerExecution
		}
	}
	return PowerNone
}

// NextPresider rotates the presiding seat circularly, skipping killed seats.
// If no other live seat exists the current seat is returned unchanged.
func NextPresider(playerCount int, players []string, current int, states map[string]*PlayerState) int {
	next := current
	for i := 0; i < playerCount; i++ {
		next = (next + 1) % playerCount
		if st := states[players[next]]; st != nil && !st.Killed {
			return next
		}
	}
	return current
}
