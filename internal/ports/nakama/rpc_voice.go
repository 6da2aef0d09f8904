package nakama

import (
	"context"
	"database/sql"
	"encoding/json"

	"secrethitler/internal/app"
	"secrethitler/internal/config"

	"github.com/heroiclabs/nakama-common/runtime"
)

// rpcVoiceToken signs a voice access token for the calling user.
// Payload: {"action": "login" | "join", "session_id": "..."}
func rpcVoiceToken(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userId, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if userId == "" {
		return "", runtime.NewError("Unauthenticated", 16) // UNAUTHENTICATED
	}

	var req struct {
		Action    string `json:"action"`
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", runtime.NewError("Invalid payload", 3) // INVALID_ARGUMENT
	}

	secret, issuer, domain := voiceCredentials(ctx, logger)
	service := app.NewVoiceService(secret, issuer, domain)

	token, err := service.GenerateToken(userId, req.Action, req.SessionID)
	if err != nil {
		logger.Error("rpcVoiceToken [User:%s]: Failed to generate token: %v", userId, err)
		return "", runtime.NewError("Internal error", 13) // INTERNAL
	}

	res := map[string]string{"token": token}
	resBytes, _ := json.Marshal(res)
	return string(resBytes), nil
}

// voiceCredentials resolves voice backend credentials from the runtime
// environment, falling back to the game config file.
func voiceCredentials(ctx context.Context, logger runtime.Logger) (secret, issuer, domain string) {
	if env, ok := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string); ok {
		secret = env["voice_secret"]
		issuer = env["voice_issuer"]
		domain = env["voice_domain"]
	}

	if cfg := config.GetGameConfig(); cfg != nil {
		if secret == "" {
			secret = cfg.VoiceSecret
		}
		if issuer == "" {
			issuer = cfg.VoiceIssuer
		}
		if domain == "" {
			domain = cfg.VoiceDomain
		}
	}

	if secret == "" || issuer == "" || domain == "" {
		logger.Warn("Voice credentials incomplete; token generation will fail.")
	}
	return secret, issuer, domain
}
