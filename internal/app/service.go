package app

import (
	"context"
	"errors"
	"time"

	"secrethitler/internal/domain"
	"secrethitler/internal/ports"
)

var (
	ErrSessionNotActive = errors.New("session not active")
	ErrNotPresident     = errors.New("actor is not the presiding player")
	ErrNotChancellor    = errors.New("actor is not the nominated chancellor")
	ErrNoNomination     = errors.New("no chancellor nominated")
	ErrWrongPower       = errors.New("power not pending")
	ErrInvalidSeat      = errors.New("seat out of range or not eligible")
	ErrCardUnavailable  = errors.New("card not among the drawn policies")
)

// Params configures rule thresholds for a service instance. Zero fields fall
// back to the rulebook defaults.
type Params struct {
	MinPlayers      int
	LiberalRequired int
	FascistRequired int
	AutostartDelay  time.Duration
}

// Service contains the session use-cases operating on domain state. Methods
// mutate the session, append history, mirror state to the store
// (fire-and-forget) and return events for the transport to dispatch.
type Service struct {
	store ports.SessionStore
	p     Params
	now   func() time.Time
}

// NewService constructs a Service with the provided store and rule params.
func NewService(store ports.SessionStore, p Params) *Service {
	if p.MinPlayers == 0 {
		p.MinPlayers = DefaultMinPlayers
	}
	if p.LiberalRequired == 0 {
		p.LiberalRequired = DefaultLiberalRequired
	}
	if p.FascistRequired == 0 {
		p.FascistRequired = DefaultFascistRequired
	}
	if p.AutostartDelay == 0 {
		p.AutostartDelay = DefaultAutostartDelay
	}
	return &Service{store: store, p: p, now: time.Now}
}

// Create registers a fresh forming session in the store.
func (s *Service) Create(ctx context.Context, sess *domain.Session) {
	s.store.InsertSession(ctx, sess.ID, ProtocolVersion)
}

// Join seats a new participant or restores a returning one, then either
// delivers their perspective (active session), starts (capacity reached) or
// resets the autostart timer.
func (s *Service) Join(ctx context.Context, sess *domain.Session, userID string) []Event {
	st := sess.State(userID)
	if st == nil {
		if sess.Phase != domain.PhaseForming || sess.IsFull() {
			return nil
		}
		seat := len(sess.Players)
		sess.Players = append(sess.Players, userID)
		sess.States[userID] = &domain.PlayerState{Seat: seat}
	} else {
		st.Quit = false
		st.Disconnected = false
	}

	switch {
	case sess.Phase != domain.PhaseForming:
		return []Event{{
			Kind:       EventLobbyData,
			Payload:    LobbyDataPayload{PerspectiveID: userID},
			Recipients: []string{userID},
		}}
	case sess.IsFull():
		return s.Start(ctx, sess, nil)
	default:
		return s.ResetAutostart(sess)
	}
}

// ResetAutostart cancels any pending start, schedules a new one when the
// lobby meets the minimum population, and refreshes the lobby view.
func (s *Service) ResetAutostart(sess *domain.Session) []Event {
	sess.CancelAutostart()
	if sess.EnoughToStart(s.p.MinPlayers) {
		sess.ScheduledStartAt = s.now().Add(s.p.AutostartDelay).Unix()
	}
	return []Event{{Kind: EventLobbyData, Payload: LobbyDataPayload{}}}
}

// Start freezes the lobby and begins the game. Preconditions are
// re-validated because membership may have changed while an autostart was
// pending: participants without a live association are pruned, and the
// attempt is rescheduled if the population falls below the minimum.
// present may be nil to skip pruning.
func (s *Service) Start(ctx context.Context, sess *domain.Session, present func(userID string) bool) []Event {
	if sess.Phase != domain.PhaseForming {
		return nil
	}

	var events []Event
	if present != nil {
		for _, userID := range append([]string(nil), sess.Players...) {
			if !present(userID) {
				events = append(events, s.Remove(ctx, sess, userID)...)
			}
		}
	}
	if !sess.EnoughToStart(s.p.MinPlayers) {
		return append(events, s.ResetAutostart(sess)...)
	}

	sess.CancelAutostart()
	sess.Phase = domain.PhaseActive
	sess.PlayerCount = len(sess.Players)
	sess.LiveCount = sess.PlayerCount

	// Fixed draw order: start seat, deck, roles. Replays depend on it.
	sess.StartSeat = sess.Rng.Intn(sess.PlayerCount)
	sess.PositionIndex = sess.StartSeat
	sess.PresidentIndex = sess.StartSeat
	sess.Turn = domain.Turn{PresidentSeat: sess.StartSeat, ChancellorSeat: -1}
	sess.RebuildDeck()
	sess.AssignRoles()

	sess.Record(domain.RecordSessionStarted, domain.SessionStartedRecord{
		StartSeat:   sess.StartSeat,
		PlayerCount: sess.PlayerCount,
	})

	s.store.SessionStarted(ctx, sess.ID, ports.StartedFields{
		StartedAt:   s.now().Unix(),
		StartSeat:   sess.StartSeat,
		PlayerCount: sess.PlayerCount,
		PlayerIDs:   append([]string(nil), sess.Players...),
	})
	s.store.UpdateParticipants(ctx, sess.Players, ports.ParticipantStarted, sess.ID, true)

	for _, userID := range sess.Players {
		events = append(events, Event{
			Kind:       EventLobbyData,
			Payload:    LobbyDataPayload{PerspectiveID: userID},
			Recipients: []string{userID},
		})
	}
	return events
}

// AdvanceTurn rotates the presidency. A pending special-election override is
// consumed one-shot without moving the rotation cursor; otherwise the cursor
// advances to the next live seat. Clears transient turn data and any pending
// power. No-op once the session is finished.
func (s *Service) AdvanceTurn(sess *domain.Session) {
	if sess.Phase == domain.PhaseFinished {
		return
	}
	if sess.SpecialPresident != nil {
		sess.PresidentIndex = *sess.SpecialPresident
		sess.SpecialPresident = nil
	} else {
		sess.PositionIndex = domain.NextPresider(sess.PlayerCount, sess.Players, sess.PositionIndex, sess.States)
		sess.PresidentIndex = sess.PositionIndex
	}
	sess.Turn = domain.Turn{PresidentSeat: sess.PresidentIndex, ChancellorSeat: -1}
	sess.Power = domain.PowerNone
}

// Nominate records the president's chancellor candidate for this round.
func (s *Service) Nominate(sess *domain.Session, actorID string, chancellorSeat int) ([]Event, error) {
	if sess.Phase != domain.PhaseActive {
		return nil, ErrSessionNotActive
	}
	if !sess.IsPresident(actorID) {
		return nil, ErrNotPresident
	}
	if _, err := s.liveSeat(sess, chancellorSeat); err != nil {
		return nil, err
	}
	if chancellorSeat == sess.PresidentIndex {
		return nil, ErrInvalidSeat
	}

	sess.Turn.ChancellorSeat = chancellorSeat
	rec := sess.Record(domain.RecordChancellorNominated, domain.ChancellorNominatedRecord{
		PresidentSeat:  sess.PresidentIndex,
		ChancellorSeat: chancellorSeat,
	})
	return []Event{actionEvent(sess, rec, nil)}, nil
}

// FailedElection advances the election tracker. The third consecutive
// failure clears the nomination and forces the top policy into law without
// vote-triggered powers, resetting the tracker. The presidency rotates
// either way.
func (s *Service) FailedElection(ctx context.Context, sess *domain.Session, actorID string) ([]Event, error) {
	if sess.Phase != domain.PhaseActive {
		return nil, ErrSessionNotActive
	}
	if !sess.IsPresident(actorID) {
		return nil, ErrNotPresident
	}

	sess.ElectionTracker++
	rec := domain.ElectionFailedRecord{Tracker: sess.ElectionTracker}
	forced := sess.ElectionTracker >= 3
	var forcedCard domain.PolicyCard
	if forced {
		sess.ElectionTracker = 0
		sess.Turn.ChancellorSeat = -1
		forcedCard = sess.DrawPolicy()
		rec.ForcedCard = &forcedCard
	}

	events := []Event{actionEvent(sess, sess.Record(domain.RecordElectionFailed, rec), nil)}
	if forced {
		_, enacted := s.EnactPolicy(ctx, sess, forcedCard, false)
		events = append(events, enacted...)
	}
	s.AdvanceTurn(sess)
	return events, nil
}

// EnactByVote applies the chancellor's chosen card after a passed election.
// The legislative hand is drawn here so the card economy stays balanced:
// three cards leave the deck, one becomes law and the rest are burned until
// the next reshuffle.
func (s *Service) EnactByVote(ctx context.Context, sess *domain.Session, actorID string, card domain.PolicyCard) ([]Event, error) {
	if sess.Phase != domain.PhaseActive {
		return nil, ErrSessionNotActive
	}
	if sess.Turn.ChancellorSeat < 0 {
		return nil, ErrNoNomination
	}
	if !sess.IsChancellor(actorID) {
		return nil, ErrNotChancellor
	}

	hand := sess.PeekPolicies()
	available := false
	for _, c := range hand {
		if c == card {
			available = true
			break
		}
	}
	if !available {
		return nil, ErrCardUnavailable
	}
	sess.DrawPolicies(domain.DeckReserve)

	_, events := s.EnactPolicy(ctx, sess, card, true)
	return events, nil
}

// EnactPolicy applies an enacted card: resets the election tracker, checks
// the victory thresholds (ending the session before any power evaluation),
// and for vote-enacted cards either parks the unlocked power or advances
// the turn. Returns the unlocked power, if any.
func (s *Service) EnactPolicy(ctx context.Context, sess *domain.Session, card domain.PolicyCard, byVote bool) (domain.Power, []Event) {
	sess.ElectionTracker = 0
	power := domain.PowerNone
	if card == domain.PolicyLiberal {
		sess.EnactedLiberal++
	} else {
		sess.EnactedFascist++
		if sess.EnactedFascist < s.p.FascistRequired {
			power = domain.FascistPowerFor(sess.EnactedFascist, sess.PlayerCount)
		}
	}

	rec := sess.Record(domain.RecordPolicyEnacted, domain.PolicyEnactedRecord{
		Card:          card,
		ByVote:        byVote,
		UnlockedPower: power,
	})
	events := []Event{actionEvent(sess, rec, nil)}

	if card == domain.PolicyLiberal && sess.EnactedLiberal >= s.p.LiberalRequired {
		return domain.PowerNone, append(events, s.Finish(ctx, sess, domain.WinnerLiberal, "policy")...)
	}
	if card == domain.PolicyFascist && sess.EnactedFascist >= s.p.FascistRequired {
		return domain.PowerNone, append(events, s.Finish(ctx, sess, domain.WinnerFascist, "policy")...)
	}

	if byVote {
		if power != domain.PowerNone {
			sess.Power = power
		} else {
			s.AdvanceTurn(sess)
		}
	}
	return power, events
}

// Finish ends the session idempotently, recording the winning side and
// method and mirroring the final state to storage.
func (s *Service) Finish(ctx context.Context, sess *domain.Session, winner domain.Winner, method string) []Event {
	if sess.Phase == domain.PhaseFinished {
		return nil
	}

	rec := sess.Record(domain.RecordSessionFinished, domain.SessionFinishedRecord{
		Winner: winner,
		Method: method,
	})
	sess.Winner = winner
	sess.WinMethod = method
	sess.Phase = domain.PhaseFinished
	sess.CancelAutostart()

	var active []string
	for _, userID := range sess.Players {
		if st := sess.State(userID); st != nil && !st.Quit {
			active = append(active, userID)
		}
	}
	s.store.UpdateParticipants(ctx, active, ports.ParticipantFinished, "", true)
	s.store.SessionFinished(ctx, sess.ID, ports.FinishedFields{
		FinishedAt:     s.now().Unix(),
		History:        append([]domain.Record(nil), sess.History...),
		EnactedLiberal: sess.EnactedLiberal,
		EnactedFascist: sess.EnactedFascist,
		Winner:         winner,
		WinMethod:      method,
	})

	return []Event{actionEvent(sess, rec, nil)}
}

// Kill eliminates a live participant. Killing the Hitler holder ends the
// session with a liberal victory; dropping to two or fewer live players
// finishes the session as a no-contest instead of declaring a winner.
// No-op for unknown, already-killed or post-finish participants.
func (s *Service) Kill(ctx context.Context, sess *domain.Session, userID string, quitting bool) []Event {
	if sess.Phase != domain.PhaseActive {
		return nil
	}
	st := sess.State(userID)
	if st == nil || st.Killed {
		return nil
	}

	if quitting {
		st.Quit = true
		s.store.UpdateParticipants(ctx, []string{userID}, ports.ParticipantQuit, "", true)
	}
	st.Killed = true
	sess.LiveCount--

	rec := sess.Record(domain.RecordParticipantKilled, domain.ParticipantKilledRecord{
		UserID:   userID,
		Seat:     st.Seat,
		Quitting: quitting,
	})
	events := []Event{actionEvent(sess, rec, nil)}

	if sess.IsHitler(userID) {
		method := "hitler"
		if quitting {
			method = "hitler quit"
		}
		return append(events, s.Finish(ctx, sess, domain.WinnerLiberal, method)...)
	}
	if sess.LiveCount <= 2 {
		return append(events, s.Finish(ctx, sess, domain.WinnerNone, "abandoned")...)
	}
	return events
}

// Disconnect marks a mid-game participant as disconnected; they stay
// eligible for turn bookkeeping until removed or killed. Before start or
// after finish a disconnect is a full removal.
func (s *Service) Disconnect(ctx context.Context, sess *domain.Session, userID string) []Event {
	if sess.Phase != domain.PhaseActive {
		return s.Remove(ctx, sess, userID)
	}
	if st := sess.State(userID); st != nil {
		st.Disconnected = true
	}
	return nil
}

// Remove handles a voluntary departure. Pre-start the seat is deleted and
// the remaining seats renumbered; mid-game it is a voluntary kill. Removing
// an already-quit participant is a no-op.
func (s *Service) Remove(ctx context.Context, sess *domain.Session, userID string) []Event {
	st := sess.State(userID)
	if st == nil || st.Quit {
		return nil
	}

	switch sess.Phase {
	case domain.PhaseActive:
		return s.Kill(ctx, sess, userID, true)
	case domain.PhaseForming:
		remaining := make([]string, 0, len(sess.Players))
		for _, id := range sess.Players {
			if id != userID {
				remaining = append(remaining, id)
			}
		}
		sess.Players = remaining
		delete(sess.States, userID)
		for idx, id := range sess.Players {
			sess.States[id].Seat = idx
		}
		if len(sess.Players) == 0 {
			sess.CancelAutostart()
			s.store.DeleteSession(ctx, sess.ID)
			return nil
		}
		return s.ResetAutostart(sess)
	default:
		return nil
	}
}

// ExecutePlayer spends a pending execution power on the target seat.
func (s *Service) ExecutePlayer(ctx context.Context, sess *domain.Session, actorID string, targetSeat int) ([]Event, error) {
	if err := s.pendingPower(sess, actorID, domain.PowerExecution); err != nil {
		return nil, err
	}
	targetID, err := s.liveSeat(sess, targetSeat)
	if err != nil {
		return nil, err
	}
	if targetSeat == sess.PresidentIndex {
		return nil, ErrInvalidSeat
	}

	rec := sess.Record(domain.RecordPowerUsed, domain.PowerUsedRecord{
		Power:      domain.PowerExecution,
		ActorSeat:  sess.PresidentIndex,
		TargetSeat: targetSeat,
	})
	events := []Event{actionEvent(sess, rec, nil)}
	events = append(events, s.Kill(ctx, sess, targetID, false)...)
	s.AdvanceTurn(sess)
	return events, nil
}

// CallSpecialElection spends a pending special-election power, handing the
// next presidency to the target seat. Rotation resumes from the original
// cursor afterwards.
func (s *Service) CallSpecialElection(sess *domain.Session, actorID string, targetSeat int) ([]Event, error) {
	if err := s.pendingPower(sess, actorID, domain.PowerSpecialElection); err != nil {
		return nil, err
	}
	if _, err := s.liveSeat(sess, targetSeat); err != nil {
		return nil, err
	}
	if targetSeat == sess.PresidentIndex {
		return nil, ErrInvalidSeat
	}

	seat := targetSeat
	sess.SpecialPresident = &seat
	rec := sess.Record(domain.RecordPowerUsed, domain.PowerUsedRecord{
		Power:      domain.PowerSpecialElection,
		ActorSeat:  sess.PresidentIndex,
		TargetSeat: targetSeat,
	})
	events := []Event{actionEvent(sess, rec, nil)}
	s.AdvanceTurn(sess)
	return events, nil
}

// InvestigateLoyalty spends a pending investigation power. Everyone sees
// that the power was used; only the president learns the target's party.
func (s *Service) InvestigateLoyalty(sess *domain.Session, actorID string, targetSeat int) ([]Event, error) {
	if err := s.pendingPower(sess, actorID, domain.PowerInvestigate); err != nil {
		return nil, err
	}
	targetID, err := s.liveSeat(sess, targetSeat)
	if err != nil {
		return nil, err
	}
	if targetSeat == sess.PresidentIndex {
		return nil, ErrInvalidSeat
	}

	rec := sess.Record(domain.RecordPowerUsed, domain.PowerUsedRecord{
		Power:      domain.PowerInvestigate,
		ActorSeat:  sess.PresidentIndex,
		TargetSeat: targetSeat,
	})
	secret := &Secret{
		TargetID: actorID,
		Payload: InvestigationResult{
			Seat:  targetSeat,
			Party: sess.States[targetID].Allegiance.Party(),
		},
	}
	events := []Event{actionEvent(sess, rec, secret)}
	s.AdvanceTurn(sess)
	return events, nil
}

// PeekTopPolicies spends a pending peek power, showing the president the
// top of the deck without disturbing it.
func (s *Service) PeekTopPolicies(sess *domain.Session, actorID string) ([]Event, error) {
	if err := s.pendingPower(sess, actorID, domain.PowerPeek); err != nil {
		return nil, err
	}

	rec := sess.Record(domain.RecordPowerUsed, domain.PowerUsedRecord{
		Power:     domain.PowerPeek,
		ActorSeat: sess.PresidentIndex,
	})
	secret := &Secret{
		TargetID: actorID,
		Payload:  PolicyPeek{Cards: sess.PeekPolicies()},
	}
	events := []Event{actionEvent(sess, rec, secret)}
	s.AdvanceTurn(sess)
	return events, nil
}

func (s *Service) pendingPower(sess *domain.Session, actorID string, power domain.Power) error {
	if sess.Phase != domain.PhaseActive {
		return ErrSessionNotActive
	}
	if !sess.IsPresident(actorID) {
		return ErrNotPresident
	}
	if sess.Power != power {
		return ErrWrongPower
	}
	return nil
}

func (s *Service) liveSeat(sess *domain.Session, seat int) (string, error) {
	if seat < 0 || seat >= len(sess.Players) {
		return "", ErrInvalidSeat
	}
	userID := sess.Players[seat]
	if st := sess.State(userID); st == nil || st.Killed {
		return "", ErrInvalidSeat
	}
	return userID, nil
}
