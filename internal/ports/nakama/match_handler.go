package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"time"

	"secrethitler/internal/app"
	"secrethitler/internal/config"
	"secrethitler/internal/domain"
	"secrethitler/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// MatchLabel is the JSON label stored on each match for listing queries.
type MatchLabel struct {
	Game  string `json:"game"`
	Phase string `json:"phase"`
	Open  string `json:"open"` // "T" when joinable, "F" otherwise
}

// MatchState holds the authoritative runtime state for the Nakama match handler.
type MatchState struct {
	Session   *domain.Session             `json:"-"` // Authoritative session state
	Presences map[string]runtime.Presence `json:"-"` // Map UserId -> Presence for targeted messaging
	Names     map[string]string           `json:"-"` // Cached display names for view projection
	App       *app.Service                `json:"-"` // App service with session logic
	Directory ports.Directory             `json:"-"` // Profile lookup for display names
}

func newMatchHandler() *matchHandler {
	return &matchHandler{}
}

type matchHandler struct{}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing match handler.")

	if err := config.LoadGameConfig("data/game_config.json"); err != nil {
		logger.Warn("MatchInit: Could not load game config: %v", err)
	}

	capacity := config.GetDefaultCapacity()
	if val, ok := params["capacity"].(float64); ok && int(val) > 0 {
		capacity = int(val)
	}
	if capacity > config.GetMaxCapacity() {
		capacity = config.GetMaxCapacity()
	}
	if capacity < config.GetMinPlayers() {
		capacity = config.GetMinPlayers()
	}
	private, _ := params["private"].(bool)

	// Environment variables override the config file for deploy-time tuning.
	minPlayers := config.GetMinPlayers()
	autostartDelay := config.GetAutostartDelaySeconds()
	if env, ok := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string); ok {
		if val, ok := env["secrethitler_min_players"]; ok {
			if i, err := strconv.Atoi(val); err == nil && i > 0 {
				minPlayers = i
			}
		}
		if val, ok := env["secrethitler_autostart_delay_sec"]; ok {
			if i, err := strconv.Atoi(val); err == nil && i > 0 {
				autostartDelay = i
			}
		}
	}

	matchID, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)
	session := domain.NewSession(matchID, capacity, private)

	state := &MatchState{
		Session:   session,
		Presences: make(map[string]runtime.Presence),
		Names:     make(map[string]string),
		App: app.NewService(NewNakamaSessionStoreAdapter(nk, logger), app.Params{
			MinPlayers:      minPlayers,
			LiberalRequired: config.GetLiberalRequired(),
			FascistRequired: config.GetFascistRequired(),
			AutostartDelay:  time.Duration(autostartDelay) * time.Second,
		}),
		Directory: NewNakamaDirectoryAdapter(nk),
	}

	state.App.Create(ctx, session)

	labelBytes, err := json.Marshal(mh.buildLabel(state))
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}

	tickRate := 1
	return state, tickRate, string(labelBytes)
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	sess := matchState.Session
	if sess.IsOpen() {
		return state, true, ""
	}

	// Participants with a seat may rejoin a running session; quit flags are
	// cleared on join.
	if sess.Phase == domain.PhaseActive && sess.State(presence.GetUserId()) != nil {
		return state, true, ""
	}

	if sess.Phase == domain.PhaseFinished {
		return state, false, "Session finished"
	}
	return state, false, "Session full"
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		userID := p.GetUserId()
		matchState.Presences[userID] = p
		matchState.Names[userID] = mh.resolveName(ctx, matchState, p)

		events := matchState.App.Join(ctx, matchState.Session, userID)
		for _, ev := range events {
			mh.dispatchEvent(matchState, dispatcher, logger, ev)
		}
	}

	mh.updateLabel(matchState, dispatcher, logger)
	return matchState
}

// MatchLeave is called when one or more players leave the match.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		userID := p.GetUserId()
		delete(matchState.Presences, userID)

		events := matchState.App.Disconnect(ctx, matchState.Session, userID)
		for _, ev := range events {
			mh.dispatchEvent(matchState, dispatcher, logger, ev)
		}
	}

	if mh.shouldTerminate(matchState) {
		logger.Info("MatchLeave: Terminating empty match.")
		return nil
	}

	mh.updateLabel(matchState, dispatcher, logger)
	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	for _, msg := range messages {
		switch msg.GetOpCode() {
		case OpLeaveSession:
			mh.handleLeave(ctx, matchState, dispatcher, logger, msg)
		case OpNominate:
			mh.handleNominate(ctx, matchState, dispatcher, logger, msg)
		case OpElectionFailed:
			mh.handleElectionFailed(ctx, matchState, dispatcher, logger, msg)
		case OpEnactPolicy:
			mh.handleEnactPolicy(ctx, matchState, dispatcher, logger, msg)
		case OpExecute:
			mh.handleExecute(ctx, matchState, dispatcher, logger, msg)
		case OpSpecialElection:
			mh.handleSpecialElection(ctx, matchState, dispatcher, logger, msg)
		case OpInvestigate:
			mh.handleInvestigate(ctx, matchState, dispatcher, logger, msg)
		case OpPeekPolicies:
			mh.handlePeekPolicies(ctx, matchState, dispatcher, logger, msg)
		default:
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
		}
	}

	// Fire a pending autostart once its deadline passes.
	sess := matchState.Session
	if sess.Phase == domain.PhaseForming && sess.ScheduledStartAt > 0 && time.Now().Unix() >= sess.ScheduledStartAt {
		logger.Info("MatchLoop: Autostart deadline reached with %d players.", len(sess.Players))
		events := matchState.App.Start(ctx, sess, func(userID string) bool {
			_, connected := matchState.Presences[userID]
			return connected
		})
		for _, ev := range events {
			mh.dispatchEvent(matchState, dispatcher, logger, ev)
		}
		mh.updateLabel(matchState, dispatcher, logger)
	}

	if mh.shouldTerminate(matchState) {
		logger.Info("MatchLoop: Terminating empty match.")
		return nil
	}

	return matchState
}

// shouldTerminate reports whether the match has no reason to keep running.
func (mh *matchHandler) shouldTerminate(state *MatchState) bool {
	if len(state.Presences) > 0 {
		return false
	}
	return len(state.Session.Players) == 0 || state.Session.Phase == domain.PhaseFinished
}

type seatRequest struct {
	Seat int `json:"seat"`
}

type enactRequest struct {
	Card domain.PolicyCard `json:"card"`
}

func (mh *matchHandler) handleLeave(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	logger.Info("handleLeave: User %s leaving session.", senderID)

	events := state.App.Remove(ctx, state.Session, senderID)
	for _, ev := range events {
		mh.dispatchEvent(state, dispatcher, logger, ev)
	}
	mh.updateLabel(state, dispatcher, logger)
}

func (mh *matchHandler) handleNominate(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()

	var req seatRequest
	if err := json.Unmarshal(msg.GetData(), &req); err != nil {
		logger.Warn("handleNominate: Invalid payload from %s: %v", senderID, err)
		return
	}

	events, err := state.App.Nominate(state.Session, senderID, req.Seat)
	if err != nil {
		logger.Warn("handleNominate: User %s failed to nominate seat %d: %v", senderID, req.Seat, err)
		mh.sendError(state, dispatcher, logger, senderID, 400, err.Error())
		return
	}
	for _, ev := range events {
		mh.dispatchEvent(state, dispatcher, logger, ev)
	}
}

func (mh *matchHandler) handleElectionFailed(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()

	events, err := state.App.FailedElection(ctx, state.Session, senderID)
	if err != nil {
		logger.Warn("handleElectionFailed: User %s failed to report election: %v", senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, 400, err.Error())
		return
	}
	for _, ev := range events {
		mh.dispatchEvent(state, dispatcher, logger, ev)
	}
	mh.updateLabel(state, dispatcher, logger)
}

func (mh *matchHandler) handleEnactPolicy(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()

	var req enactRequest
	if err := json.Unmarshal(msg.GetData(), &req); err != nil {
		logger.Warn("handleEnactPolicy: Invalid payload from %s: %v", senderID, err)
		return
	}

	events, err := state.App.EnactByVote(ctx, state.Session, senderID, req.Card)
	if err != nil {
		logger.Warn("handleEnactPolicy: User %s failed to enact card %d: %v", senderID, req.Card, err)
		mh.sendError(state, dispatcher, logger, senderID, 400, err.Error())
		return
	}
	for _, ev := range events {
		mh.dispatchEvent(state, dispatcher, logger, ev)
	}
	mh.updateLabel(state, dispatcher, logger)
}

func (mh *matchHandler) handleExecute(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()

	var req seatRequest
	if err := json.Unmarshal(msg.GetData(), &req); err != nil {
		logger.Warn("handleExecute: Invalid payload from %s: %v", senderID, err)
		return
	}

	events, err := state.App.ExecutePlayer(ctx, state.Session, senderID, req.Seat)
	if err != nil {
		logger.Warn("handleExecute: User %s failed to execute seat %d: %v", senderID, req.Seat, err)
		mh.sendError(state, dispatcher, logger, senderID, 400, err.Error())
		return
	}
	for _, ev := range events {
		mh.dispatchEvent(state, dispatcher, logger, ev)
	}
	mh.updateLabel(state, dispatcher, logger)
}

func (mh *matchHandler) handleSpecialElection(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()

	var req seatRequest
	if err := json.Unmarshal(msg.GetData(), &req); err != nil {
		logger.Warn("handleSpecialElection: Invalid payload from %s: %v", senderID, err)
		return
	}

	events, err := state.App.CallSpecialElection(state.Session, senderID, req.Seat)
	if err != nil {
		logger.Warn("handleSpecialElection: User %s failed to call election for seat %d: %v", senderID, req.Seat, err)
		mh.sendError(state, dispatcher, logger, senderID, 400, err.Error())
		return
	}
	for _, ev := range events {
		mh.dispatchEvent(state, dispatcher, logger, ev)
	}
}

func (mh *matchHandler) handleInvestigate(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()

	var req seatRequest
	if err := json.Unmarshal(msg.GetData(), &req); err != nil {
		logger.Warn("handleInvestigate: Invalid payload from %s: %v", senderID, err)
		return
	}

	events, err := state.App.InvestigateLoyalty(state.Session, senderID, req.Seat)
	if err != nil {
		logger.Warn("handleInvestigate: User %s failed to investigate seat %d: %v", senderID, req.Seat, err)
		mh.sendError(state, dispatcher, logger, senderID, 400, err.Error())
		return
	}
	for _, ev := range events {
		mh.dispatchEvent(state, dispatcher, logger, ev)
	}
}

func (mh *matchHandler) handlePeekPolicies(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()

	events, err := state.App.PeekTopPolicies(state.Session, senderID)
	if err != nil {
		logger.Warn("handlePeekPolicies: User %s failed to peek: %v", senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, 400, err.Error())
		return
	}
	for _, ev := range events {
		mh.dispatchEvent(state, dispatcher, logger, ev)
	}
}

// dispatchEvent converts an app event into Nakama broadcasts. Lobby data is
// projected per observer so hidden allegiances stay redacted; action events
// carrying a secret send the enriched copy only to its target.
func (mh *matchHandler) dispatchEvent(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, ev app.Event) {
	switch ev.Kind {
	case app.EventLobbyData:
		recipients := ev.Recipients
		if len(recipients) == 0 {
			for userID := range state.Presences {
				recipients = append(recipients, userID)
			}
		}
		for _, userID := range recipients {
			presence, ok := state.Presences[userID]
			if !ok {
				continue
			}
			view := app.BuildView(state.Session, userID, func(id string) string {
				return state.Names[id]
			})
			bytes, err := json.Marshal(view)
			if err != nil {
				logger.Error("dispatchEvent: Failed to marshal view for %s: %v", userID, err)
				continue
			}
			dispatcher.BroadcastMessage(OpLobbyData, bytes, []runtime.Presence{presence}, nil, true)
		}

	case app.EventGameAction:
		payload, ok := ev.Payload.(app.ActionPayload)
		if !ok {
			logger.Error("dispatchEvent: Unexpected action payload type %T", ev.Payload)
			return
		}

		baseBytes, err := json.Marshal(payload)
		if err != nil {
			logger.Error("dispatchEvent: Failed to marshal action: %v", err)
			return
		}

		if ev.Secret == nil {
			dispatcher.BroadcastMessage(OpGameAction, baseBytes, mh.presencesFor(state, ev.Recipients), nil, true)
			return
		}

		// Everyone except the target gets the plain record.
		var others []runtime.Presence
		for userID, p := range state.Presences {
			if userID != ev.Secret.TargetID {
				others = append(others, p)
			}
		}
		if len(others) > 0 {
			dispatcher.BroadcastMessage(OpGameAction, baseBytes, others, nil, true)
		}

		if target, ok := state.Presences[ev.Secret.TargetID]; ok {
			enriched := payload
			enriched.Secret = ev.Secret.Payload
			enrichedBytes, err := json.Marshal(enriched)
			if err != nil {
				logger.Error("dispatchEvent: Failed to marshal secret action: %v", err)
				return
			}
			dispatcher.BroadcastMessage(OpGameAction, enrichedBytes, []runtime.Presence{target}, nil, true)
		}

	default:
		logger.Warn("dispatchEvent: Unknown event kind: %v", ev.Kind)
	}
}

// presencesFor maps recipient user IDs to connected presences. A nil result
// with empty recipients means broadcast to everyone.
func (mh *matchHandler) presencesFor(state *MatchState, recipients []string) []runtime.Presence {
	if len(recipients) == 0 {
		return nil
	}
	out := make([]runtime.Presence, 0, len(recipients))
	for _, userID := range recipients {
		if p, ok := state.Presences[userID]; ok {
			out = append(out, p)
		}
	}
	return out
}

type gameError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// sendError sends an error payload to a specific user.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, code int, message string) {
	bytes, err := json.Marshal(gameError{Code: code, Message: message})
	if err != nil {
		logger.Error("sendError: Failed to marshal: %v", err)
		return
	}

	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("sendError: Cannot send error to %s: Presence not found", userID)
		return
	}
	dispatcher.BroadcastMessage(OpGameError, bytes, []runtime.Presence{presence}, nil, true)
}

// resolveName prefers the account display name set during onboarding and
// falls back to the presence username.
func (mh *matchHandler) resolveName(ctx context.Context, state *MatchState, p runtime.Presence) string {
	if state.Directory != nil {
		if profile, err := state.Directory.Lookup(ctx, p.GetUserId()); err == nil && profile.DisplayName != "" {
			return profile.DisplayName
		}
	}
	return p.GetUsername()
}

func (mh *matchHandler) buildLabel(state *MatchState) MatchLabel {
	open := "F"
	if state.Session.IsOpen() && !state.Session.Private {
		open = "T"
	}
	return MatchLabel{
		Game:  "secrethitler",
		Phase: string(state.Session.Phase),
		Open:  open,
	}
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	labelBytes, err := json.Marshal(mh.buildLabel(state))
	if err != nil {
		logger.Error("updateLabel: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(string(labelBytes)); err != nil {
		logger.Error("updateLabel: Failed to update: %v", err)
	}
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, reason int) interface{} {
	logger.Debug("MatchTerminate: Match terminated for reason %d", reason)
	return state
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}
