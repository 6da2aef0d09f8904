package domain

// RecordKind tags entries in a session's append-only history log.
type RecordKind string

const (
	RecordSessionStarted      RecordKind = "session_started"
	RecordChancellorNominated RecordKind = "chancellor_nominated"
	RecordElectionFailed      RecordKind = "election_failed"
	RecordPolicyEnacted       RecordKind = "policy_enacted"
	RecordPowerUsed           RecordKind = "power_used"
	RecordParticipantKilled   RecordKind = "participant_killed"
	RecordSessionFinished     RecordKind = "session_finished"
)

// Record is one tagged history entry. Payload is the kind-specific struct
// below; each carries only the fields relevant to that kind.
type Record struct {
	Kind    RecordKind `json:"kind"`
	Payload any        `json:"payload"`
}

type SessionStartedRecord struct {
	StartSeat   int `json:"start_seat"`
	PlayerCount int `json:"player_count"`
}

type ChancellorNominatedRecord struct {
	PresidentSeat  int `json:"president_seat"`
	ChancellorSeat int `json:"chancellor_seat"`
}

type ElectionFailedRecord struct {
	Tracker int `json:"tracker"`
	// ForcedCard is set when the third consecutive failure forced an enactment.
	ForcedCard *PolicyCard `json:"forced_card,omitempty"`
}

type PolicyEnactedRecord struct {
	Card          PolicyCard `json:"card"`
	ByVote        bool       `json:"by_vote"`
	UnlockedPower Power      `json:"unlocked_power,omitempty"`
}

type PowerUsedRecord struct {
	Power      Power `json:"power"`
	ActorSeat  int   `json:"actor_seat"`
	TargetSeat int   `json:"target_seat,omitempty"`
}

type ParticipantKilledRecord struct {
	UserID   string `json:"user_id"`
	Seat     int    `json:"seat"`
	Quitting bool   `json:"quitting"`
}

type SessionFinishedRecord struct {
	Winner Winner `json:"winner"`
	Method string `json:"method"`
}
