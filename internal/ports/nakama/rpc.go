package nakama

import (
	"context"
	"database/sql"
	"encoding/json"

	"secrethitler/internal/config"

	"github.com/heroiclabs/nakama-common/runtime"
)

// FindGameRequest is the optional payload for the find-game RPC.
type FindGameRequest struct {
	// Capacity caps the session size when a new session is created.
	Capacity int `json:"capacity,omitempty"`
	// Private sessions are excluded from listing; the caller shares the ID out of band.
	Private bool `json:"private,omitempty"`
}

// FindGameResponse is the payload returned to clients when requesting a session.
type FindGameResponse struct {
	MatchID string `json:"match_id"`
	IsNew   bool   `json:"is_new"`
}

// RegisterRPCs registers Nakama RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer) error {
	if err := initializer.RegisterRpc(RpcFindGame, rpcFindGame); err != nil {
		return err
	}
	return initializer.RegisterRpc(RpcVoiceToken, rpcVoiceToken)
}

func rpcFindGame(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userId, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)

	var req FindGameRequest
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			return "", runtime.NewError("Invalid payload", 3) // INVALID_ARGUMENT
		}
	}

	// Private sessions are never matched into; always create a fresh one.
	if !req.Private {
		query := "+label.game:secrethitler +label.phase:forming +label.open:T"

		limit := 10
		authoritative := true
		minSize := 0
		maxSize := config.GetMaxCapacity() - 1 // ensure an open seat

		matches, err := nk.MatchList(ctx, limit, authoritative, "", &minSize, &maxSize, query)
		if err != nil {
			logger.Error("rpcFindGame [User:%s]: Failed to list matches: %v", userId, err)
			return "", err
		}

		if len(matches) > 0 {
			resp := FindGameResponse{MatchID: matches[0].MatchId, IsNew: false}
			b, _ := json.Marshal(resp)
			return string(b), nil
		}
	}

	params := map[string]interface{}{}
	if req.Capacity > 0 {
		params["capacity"] = float64(req.Capacity)
	}
	if req.Private {
		params["private"] = true
	}

	matchID, err := nk.MatchCreate(ctx, MatchNameSecretHitler, params)
	if err != nil {
		logger.Error("rpcFindGame [User:%s]: Failed to create match: %v", userId, err)
		return "", err
	}

	logger.Info("rpcFindGame [User:%s]: Created new match %s", userId, matchID)
	resp := FindGameResponse{MatchID: matchID, IsNew: true}
	b, _ := json.Marshal(resp)
	return string(b), nil
}
