package app

import "secrethitler/internal/domain"

// EventKind identifies emitted session events for dispatch.
type EventKind string

const (
	// EventLobbyData requests delivery of a session view; the transport
	// projects it per recipient.
	EventLobbyData EventKind = "lobby_data"
	// EventGameAction broadcasts one history record.
	EventGameAction EventKind = "game_action"
)

// Secret is the enriched copy of an action delivered to a single target
// while everyone else receives only the base payload.
type Secret struct {
	TargetID string
	Payload  any
}

// Event is an app event with optional targeted recipients.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string // user IDs; empty means broadcast
	Secret     *Secret
}

// LobbyDataPayload asks the transport to project and send a session view.
// An empty PerspectiveID means the public view.
type LobbyDataPayload struct {
	PerspectiveID string
}

// ActionPayload is the wire shape of one broadcast history record.
type ActionPayload struct {
	Action string `json:"action"`
	Data   any    `json:"data,omitempty"`
	// Roles reveals every seat's allegiance once the session has finished.
	Roles []domain.Allegiance `json:"roles,omitempty"`
	// Secret is set only on the copy delivered to the secret target.
	Secret any `json:"secret,omitempty"`
}

// InvestigationResult is the secret payload of a loyalty investigation.
// Party is the membership card, so Hitler shows as a plain Fascist.
type InvestigationResult struct {
	Seat  int               `json:"seat"`
	Party domain.Allegiance `json:"party"`
}

// PolicyPeek is the secret payload of a deck inspection.
type PolicyPeek struct {
	Cards []domain.PolicyCard `json:"cards"`
}

// actionEvent wraps a history record for dispatch, attaching the full role
// reveal once the session has finished.
func actionEvent(sess *domain.Session, rec domain.Record, secret *Secret) Event {
	payload := ActionPayload{Action: string(rec.Kind), Data: rec.Payload}
	if sess.Phase == domain.PhaseFinished {
		roles := make([]domain.Allegiance, len(sess.Players))
		for i, userID := range sess.Players {
			roles[i] = sess.States[userID].Allegiance
		}
		payload.Roles = roles
	}
	return Event{Kind: EventGameAction, Payload: payload, Secret: secret}
}
