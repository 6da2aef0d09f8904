package ports

import (
	"context"

	"secrethitler/internal/domain"
)

// ParticipantStatus is the lifecycle flag mirrored onto participant records.
type ParticipantStatus string

const (
	ParticipantStarted  ParticipantStatus = "started"
	ParticipantQuit     ParticipantStatus = "quit"
	ParticipantFinished ParticipantStatus = "finished"
)

// StartedFields is written through when a session starts.
type StartedFields struct {
	StartedAt   int64    `json:"started_at"`
	StartSeat   int      `json:"start_seat"`
	PlayerCount int      `json:"player_count"`
	PlayerIDs   []string `json:"player_ids"`
}

// FinishedFields is written through when a session finishes.
type FinishedFields struct {
	FinishedAt     int64           `json:"finished_at"`
	History        []domain.Record `json:"history"`
	EnactedLiberal int             `json:"enacted_liberal"`
	EnactedFascist int             `json:"enacted_fascist"`
	Winner         domain.Winner   `json:"winner"`
	WinMethod      string          `json:"win_method"`
}

// SessionStore mirrors session state into durable storage. Writes are
// fire-and-forget: implementations log failures and never surface them, so
// gameplay proceeds from in-memory state regardless.
type SessionStore interface {
	// InsertSession records a newly created session and its protocol version.
	InsertSession(ctx context.Context, sessionID string, protocolVersion int)
	// SessionStarted writes the started snapshot.
	SessionStarted(ctx context.Context, sessionID string, fields StartedFields)
	// SessionFinished writes the final snapshot.
	SessionFinished(ctx context.Context, sessionID string, fields FinishedFields)
	// UpdateParticipants flips a lifecycle flag on each participant record,
	// pointing it at sessionID or clearing the pointer when empty.
	UpdateParticipants(ctx context.Context, userIDs []string, status ParticipantStatus, sessionID string, value bool)
	// DeleteSession removes the record of a session that never finished.
	DeleteSession(ctx context.Context, sessionID string)
}
