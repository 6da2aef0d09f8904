package domain

// Phase represents the lifecycle stage of a session.
type Phase string

const (
	// PhaseForming is the lobby state where participants can still join and leave freely.
	PhaseForming Phase = "forming"
	// PhaseActive is the in-game state after roles are assigned.
	PhaseActive Phase = "active"
	// PhaseFinished is the terminal state; finished sessions are never mutated again.
	PhaseFinished Phase = "finished"
)

// Allegiance is a participant's hidden role.
type Allegiance int

const (
	AllegianceUnset Allegiance = iota
	AllegianceLiberal
	AllegianceFascist
	AllegianceHitler
)

// FascistAligned reports whether the allegiance is on the fascist team.
func (a Allegiance) FascistAligned() bool {
	return a == AllegianceFascist || a == AllegianceHitler
}

// Party returns the membership revealed by an investigation. Hitler
// investigates as a plain Fascist.
func (a Allegiance) Party() Allegiance {
	if a == AllegianceHitler {
		return AllegianceFascist
	}
	return a
}

// Winner identifies the side recorded when a session finishes.
type Winner string

const (
	WinnerLiberal Winner = "liberal"
	WinnerFascist Winner = "fascist"
	// WinnerNone marks a no-contest finish (session abandoned below quorum).
	WinnerNone Winner = "none"
)

// PlayerState holds per-participant state within one session.
type PlayerState struct {
	Seat         int
	Allegiance   Allegiance
	Killed       bool
	Quit         bool
	Disconnected bool
}

// Turn is the transient per-round nomination state, cleared at the start of
// each round. ChancellorSeat is -1 until the president nominates.
type Turn struct {
	PresidentSeat  int
	ChancellorSeat int
}

// Session holds the authoritative state for one game instance.
type Session struct {
	ID       string
	Capacity int
	Private  bool
	Phase    Phase

	Players []string // seat order; seat index == slice index
	States  map[string]*PlayerState

	Rng  *Stream
	Deck []PolicyCard

	EnactedLiberal  int
	EnactedFascist  int
	ElectionTracker int

	Turn    Turn
	History []Record

	HitlerID string
	Power    Power // pending unlocked power, PowerNone when absent

	StartSeat   int // seat drawn at start; -1 while forming
	PlayerCount int // frozen at start
	LiveCount   int // decremented on kill

	// PositionIndex is the rotation cursor; PresidentIndex is the presiding
	// seat, which diverges from the cursor during a special election.
	PositionIndex    int
	PresidentIndex   int
	SpecialPresident *int

	Winner    Winner
	WinMethod string

	// ScheduledStartAt is the unix time the autostart fires, 0 when no
	// start is pending.
	ScheduledStartAt int64
}

// NewSession creates a forming session whose random stream is seeded from
// the session identifier.
func NewSession(id string, capacity int, private bool) *Session {
	return &Session{
		ID:        id,
		Capacity:  capacity,
		Private:   private,
		Phase:     PhaseForming,
		States:    make(map[string]*PlayerState),
		Rng:       NewStream(id),
		Turn:      Turn{ChancellorSeat: -1},
		StartSeat: -1,
	}
}

// State returns the player state for a participant, or nil if the
// participant has never joined this session.
func (s *Session) State(userID string) *PlayerState {
	return s.States[userID]
}

// SeatOf returns the seat index for a participant, or -1.
func (s *Session) SeatOf(userID string) int {
	if st := s.States[userID]; st != nil {
		return st.Seat
	}
	return -1
}

// IsHitler reports whether the participant holds the Hitler role.
func (s *Session) IsHitler(userID string) bool {
	return s.HitlerID != "" && userID == s.HitlerID
}

// IsPresident reports whether the participant occupies the presiding seat.
func (s *Session) IsPresident(userID string) bool {
	return s.Phase == PhaseActive && s.SeatOf(userID) == s.PresidentIndex
}

// IsChancellor reports whether the participant occupies the nominated seat
// for the current round.
func (s *Session) IsChancellor(userID string) bool {
	return s.Turn.ChancellorSeat >= 0 && s.SeatOf(userID) == s.Turn.ChancellorSeat
}

// EnoughToStart reports whether the lobby population meets the minimum.
func (s *Session) EnoughToStart(minPlayers int) bool {
	return len(s.Players) >= minPlayers
}

// IsFull reports whether every seat is taken.
func (s *Session) IsFull() bool {
	return len(s.Players) >= s.Capacity
}

// IsOpen reports whether new participants may still join.
func (s *Session) IsOpen() bool {
	return s.Phase == PhaseForming && !s.IsFull()
}

// CancelAutostart clears any pending scheduled start.
func (s *Session) CancelAutostart() {
	s.ScheduledStartAt = 0
}

// Record appends a tagged entry to the session history and returns it.
// Finished sessions never accept further entries.
func (s *Session) Record(kind RecordKind, payload any) Record {
	rec := Record{Kind: kind, Payload: payload}
	if s.Phase == PhaseFinished {
		return rec
	}
	s.History = append(s.History, rec)
	return rec
}
