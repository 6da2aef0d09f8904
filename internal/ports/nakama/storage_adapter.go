package nakama

import (
	"context"
	"encoding/json"
	"time"

	"secrethitler/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

const (
	storageCollectionGames   = "games"
	storageCollectionPlayers = "players"
	storageKeySessionState   = "session_state"
)

// NakamaSessionStoreAdapter implements ports.SessionStore on Nakama's
// storage engine. Writes are best-effort: failures are logged and swallowed
// so a storage outage never stalls a running session.
type NakamaSessionStoreAdapter struct {
	nk     runtime.NakamaModule
	logger runtime.Logger
}

// NewNakamaSessionStoreAdapter creates a new session store adapter.
func NewNakamaSessionStoreAdapter(nk runtime.NakamaModule, logger runtime.Logger) *NakamaSessionStoreAdapter {
	return &NakamaSessionStoreAdapter{
		nk:     nk,
		logger: logger,
	}
}

// gameRecord is the stored shape of one session, merged across lifecycle
// writes.
type gameRecord struct {
	ProtocolVersion int   `json:"protocol_version"`
	CreatedAt       int64 `json:"created_at"`

	StartedAt   int64    `json:"started_at,omitempty"`
	StartSeat   int      `json:"start_seat,omitempty"`
	PlayerCount int      `json:"player_count,omitempty"`
	PlayerIDs   []string `json:"player_ids,omitempty"`

	FinishedAt     int64           `json:"finished_at,omitempty"`
	History        json.RawMessage `json:"history,omitempty"`
	EnactedLiberal int             `json:"enacted_liberal,omitempty"`
	EnactedFascist int             `json:"enacted_fascist,omitempty"`
	Winner         string          `json:"winner,omitempty"`
	WinMethod      string          `json:"win_method,omitempty"`
}

// playerRecord tracks a participant's relation to their latest session.
type playerRecord struct {
	SessionID string `json:"session_id,omitempty"`
	Started   bool   `json:"started"`
	Quit      bool   `json:"quit"`
	Finished  bool   `json:"finished"`
	UpdatedAt int64  `json:"updated_at"`
}

// InsertSession records a freshly created session.
func (a *NakamaSessionStoreAdapter) InsertSession(ctx context.Context, sessionID string, protocolVersion int) {
	a.writeGame(ctx, sessionID, gameRecord{
		ProtocolVersion: protocolVersion,
		CreatedAt:       time.Now().Unix(),
	})
}

// SessionStarted merges the start snapshot into the session record.
func (a *NakamaSessionStoreAdapter) SessionStarted(ctx context.Context, sessionID string, fields ports.StartedFields) {
	rec, ok := a.readGame(ctx, sessionID)
	if !ok {
		return
	}
	rec.StartedAt = fields.StartedAt
	rec.StartSeat = fields.StartSeat
	rec.PlayerCount = fields.PlayerCount
	rec.PlayerIDs = fields.PlayerIDs
	a.writeGame(ctx, sessionID, rec)
}

// SessionFinished merges the final outcome and history into the session record.
func (a *NakamaSessionStoreAdapter) SessionFinished(ctx context.Context, sessionID string, fields ports.FinishedFields) {
	rec, ok := a.readGame(ctx, sessionID)
	if !ok {
		return
	}

	history, err := json.Marshal(fields.History)
	if err != nil {
		a.logger.Error("SessionFinished: Failed to marshal history for %s: %v", sessionID, err)
	} else {
		rec.History = history
	}

	rec.FinishedAt = fields.FinishedAt
	rec.EnactedLiberal = fields.EnactedLiberal
	rec.EnactedFascist = fields.EnactedFascist
	rec.Winner = string(fields.Winner)
	rec.WinMethod = fields.WinMethod
	a.writeGame(ctx, sessionID, rec)
}

// UpdateParticipants flips one lifecycle flag on each participant record.
// sessionID, when non-empty, stamps the record with the session it refers to.
func (a *NakamaSessionStoreAdapter) UpdateParticipants(ctx context.Context, userIDs []string, status ports.ParticipantStatus, sessionID string, value bool) {
	for _, userID := range userIDs {
		rec := a.readPlayer(ctx, userID)
		switch status {
		case ports.ParticipantStarted:
			rec.Started = value
			rec.Quit = false
			rec.Finished = false
		case ports.ParticipantQuit:
			rec.Quit = value
		case ports.ParticipantFinished:
			rec.Finished = value
		default:
			a.logger.Warn("UpdateParticipants: Unknown status %q", status)
			return
		}
		if sessionID != "" {
			rec.SessionID = sessionID
		}
		rec.UpdatedAt = time.Now().Unix()
		a.writePlayer(ctx, userID, rec)
	}
}

// DeleteSession removes the record of a session that dissolved before starting.
func (a *NakamaSessionStoreAdapter) DeleteSession(ctx context.Context, sessionID string) {
	err := a.nk.StorageDelete(ctx, []*runtime.StorageDelete{{
		Collection: storageCollectionGames,
		Key:        sessionID,
	}})
	if err != nil {
		a.logger.Error("DeleteSession: Failed to delete %s: %v", sessionID, err)
	}
}

func (a *NakamaSessionStoreAdapter) readGame(ctx context.Context, sessionID string) (gameRecord, bool) {
	var rec gameRecord
	objects, err := a.nk.StorageRead(ctx, []*runtime.StorageRead{{
		Collection: storageCollectionGames,
		Key:        sessionID,
	}})
	if err != nil {
		a.logger.Error("readGame: Failed to read %s: %v", sessionID, err)
		return rec, false
	}
	if len(objects) == 0 {
		a.logger.Warn("readGame: No record for session %s", sessionID)
		return rec, false
	}
	if err := json.Unmarshal([]byte(objects[0].GetValue()), &rec); err != nil {
		a.logger.Error("readGame: Failed to unmarshal %s: %v", sessionID, err)
		return rec, false
	}
	return rec, true
}

func (a *NakamaSessionStoreAdapter) writeGame(ctx context.Context, sessionID string, rec gameRecord) {
	value, err := json.Marshal(rec)
	if err != nil {
		a.logger.Error("writeGame: Failed to marshal %s: %v", sessionID, err)
		return
	}
	_, err = a.nk.StorageWrite(ctx, []*runtime.StorageWrite{{
		Collection:      storageCollectionGames,
		Key:             sessionID,
		Value:           string(value),
		PermissionRead:  2,
		PermissionWrite: 0,
	}})
	if err != nil {
		a.logger.Error("writeGame: Failed to write %s: %v", sessionID, err)
	}
}

func (a *NakamaSessionStoreAdapter) readPlayer(ctx context.Context, userID string) playerRecord {
	var rec playerRecord
	objects, err := a.nk.StorageRead(ctx, []*runtime.StorageRead{{
		Collection: storageCollectionPlayers,
		Key:        storageKeySessionState,
		UserID:     userID,
	}})
	if err != nil {
		a.logger.Error("readPlayer: Failed to read %s: %v", userID, err)
		return rec
	}
	if len(objects) == 0 {
		return rec
	}
	if err := json.Unmarshal([]byte(objects[0].GetValue()), &rec); err != nil {
		a.logger.Error("readPlayer: Failed to unmarshal %s: %v", userID, err)
	}
	return rec
}

func (a *NakamaSessionStoreAdapter) writePlayer(ctx context.Context, userID string, rec playerRecord) {
	value, err := json.Marshal(rec)
	if err != nil {
		a.logger.Error("writePlayer: Failed to marshal %s: %v", userID, err)
		return
	}
	_, err = a.nk.StorageWrite(ctx, []*runtime.StorageWrite{{
		Collection:      storageCollectionPlayers,
		Key:             storageKeySessionState,
		UserID:          userID,
		Value:           string(value),
		PermissionRead:  1,
		PermissionWrite: 0,
	}})
	if err != nil {
		a.logger.Error("writePlayer: Failed to write %s: %v", userID, err)
	}
}

var _ ports.SessionStore = (*NakamaSessionStoreAdapter)(nil)
