package app

import "secrethitler/internal/domain"

// SeatView is the per-seat summary inside a session view.
type SeatView struct {
	UserID string `json:"uid"`
	Name   string `json:"name,omitempty"`
	Seat   int    `json:"seat"`
	// Allegiance is present only when visibility rules let the observer see it.
	Allegiance   *domain.Allegiance `json:"allegiance,omitempty"`
	Killed       bool               `json:"killed,omitempty"`
	Disconnected bool               `json:"disconnected,omitempty"`
}

// SessionView is the observer-specific snapshot of a session.
type SessionView struct {
	ID               string          `json:"id"`
	Phase            domain.Phase    `json:"phase"`
	Capacity         int             `json:"capacity"`
	Private          bool            `json:"private"`
	StartSeat        int             `json:"start_seat"`
	ScheduledStartAt int64           `json:"scheduled_start,omitempty"`
	Players          []SeatView      `json:"players"`
	History          []domain.Record `json:"history"`
}

// BuildView projects the session for one observer, redacting hidden
// allegiances. Observers always see their own role. Fascist-aligned seats
// are visible to plain Fascist observers, and to Hitler only in sessions of
// six or fewer players.
func BuildView(sess *domain.Session, perspectiveID string, name func(userID string) string) SessionView {
	showFascists := false
	if perspectiveID != "" {
		var observer domain.Allegiance
		if st := sess.State(perspectiveID); st != nil {
			observer = st.Allegiance
		}
		showFascists = observer == domain.AllegianceFascist ||
			(observer == domain.AllegianceHitler && sess.PlayerCount <= 6)
	}

	players := make([]SeatView, len(sess.Players))
	for i, userID := range sess.Players {
		st := sess.States[userID]
		sv := SeatView{
			UserID:       userID,
			Seat:         i,
			Killed:       st.Killed,
			Disconnected: st.Disconnected,
		}
		if name != nil {
			sv.Name = name(userID)
		}
		if perspectiveID != "" && st.Allegiance != domain.AllegianceUnset {
			if userID == perspectiveID || (showFascists && st.Allegiance.FascistAligned()) {
				a := st.Allegiance
				sv.Allegiance = &a
			}
		}
		players[i] = sv
	}

	return SessionView{
		ID:               sess.ID,
		Phase:            sess.Phase,
		Capacity:         sess.Capacity,
		Private:          sess.Private,
		StartSeat:        sess.StartSeat,
		ScheduledStartAt: sess.ScheduledStartAt,
		Players:          players,
		History:          sess.History,
	}
}
