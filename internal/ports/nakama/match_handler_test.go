package nakama

import (
	"encoding/json"
	"testing"

	"secrethitler/internal/app"
	"secrethitler/internal/domain"

	"github.com/heroiclabs/nakama-common/runtime"
)

// noopLogger implements runtime.Logger for tests that only need to satisfy the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

// testPresence is a minimal runtime.Presence for dispatch assertions.
type testPresence struct {
	userID   string
	username string
}

func (p testPresence) GetUserId() string                 { return p.userID }
func (p testPresence) GetSessionId() string              { return "session-" + p.userID }
func (p testPresence) GetNodeId() string                 { return "node" }
func (p testPresence) GetHidden() bool                   { return false }
func (p testPresence) GetPersistence() bool              { return true }
func (p testPresence) GetUsername() string               { return p.username }
func (p testPresence) GetStatus() string                 { return "" }
func (p testPresence) GetReason() runtime.PresenceReason { return runtime.PresenceReasonUnknown }

type broadcast struct {
	opCode    int64
	data      []byte
	presences []runtime.Presence
}

// mockDispatcher records match dispatcher calls for assertions.
type mockDispatcher struct {
	broadcasts   []broadcast
	labelUpdates []string
}

func (md *mockDispatcher) BroadcastMessage(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	md.broadcasts = append(md.broadcasts, broadcast{
		opCode:    opCode,
		data:      append([]byte(nil), data...),
		presences: presences,
	})
	return nil
}

func (md *mockDispatcher) BroadcastMessageDeferred(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	return nil
}

func (md *mockDispatcher) MatchKick(presences []runtime.Presence) error {
	return nil
}

func (md *mockDispatcher) MatchLabelUpdate(label string) error {
	md.labelUpdates = append(md.labelUpdates, label)
	return nil
}

func testMatchState(userIDs ...string) *MatchState {
	sess := domain.NewSession("match-1", 10, false)
	state := &MatchState{
		Session:   sess,
		Presences: make(map[string]runtime.Presence),
		Names:     make(map[string]string),
	}
	for i, userID := range userIDs {
		sess.Players = append(sess.Players, userID)
		sess.States[userID] = &domain.PlayerState{Seat: i}
		state.Presences[userID] = testPresence{userID: userID, username: "name-" + userID}
		state.Names[userID] = "name-" + userID
	}
	return state
}

func TestBuildLabel(t *testing.T) {
	handler := &matchHandler{}

	state := testMatchState("u0")
	labelBytes, err := json.Marshal(handler.buildLabel(state))
	if err != nil {
		t.Fatalf("marshal label: %v", err)
	}
	want := `{"game":"secrethitler","phase":"forming","open":"T"}`
	if string(labelBytes) != want {
		t.Fatalf("label = %s, want %s", labelBytes, want)
	}

	state.Session.Phase = domain.PhaseFinished
	if got := handler.buildLabel(state); got.Open != "F" || got.Phase != "finished" {
		t.Fatalf("finished label = %+v", got)
	}

	private := testMatchState("u0")
	private.Session.Private = true
	if got := handler.buildLabel(private); got.Open != "F" {
		t.Fatalf("private session advertised as open: %+v", got)
	}
}

func TestDispatchSecretActionRouting(t *testing.T) {
	handler := &matchHandler{}
	dispatcher := &mockDispatcher{}
	state := testMatchState("u0", "u1", "u2")

	ev := app.Event{
		Kind: app.EventGameAction,
		Payload: app.ActionPayload{
			Action: string(domain.RecordPowerUsed),
			Data:   domain.PowerUsedRecord{Power: domain.PowerInvestigate, ActorSeat: 0, TargetSeat: 1},
		},
		Secret: &app.Secret{
			TargetID: "u0",
			Payload:  app.InvestigationResult{Seat: 1, Party: domain.AllegianceFascist},
		},
	}

	handler.dispatchEvent(state, dispatcher, noopLogger{}, ev)

	if len(dispatcher.broadcasts) != 2 {
		t.Fatalf("broadcasts = %d, want 2", len(dispatcher.broadcasts))
	}

	for _, b := range dispatcher.broadcasts {
		if b.opCode != OpGameAction {
			t.Fatalf("opcode = %d, want %d", b.opCode, OpGameAction)
		}
		var payload map[string]json.RawMessage
		if err := json.Unmarshal(b.data, &payload); err != nil {
			t.Fatalf("unmarshal broadcast: %v", err)
		}
		_, hasSecret := payload["secret"]

		switch len(b.presences) {
		case 2:
			if hasSecret {
				t.Fatal("secret leaked to non-target recipients")
			}
			for _, p := range b.presences {
				if p.GetUserId() == "u0" {
					t.Fatal("plain copy sent to secret target")
				}
			}
		case 1:
			if !hasSecret {
				t.Fatal("target copy missing secret payload")
			}
			if b.presences[0].GetUserId() != "u0" {
				t.Fatalf("secret sent to %s, want u0", b.presences[0].GetUserId())
			}
		default:
			t.Fatalf("unexpected recipient count %d", len(b.presences))
		}
	}
}

func TestDispatchLobbyDataProjectsPerObserver(t *testing.T) {
	handler := &matchHandler{}
	dispatcher := &mockDispatcher{}
	state := testMatchState("u0", "u1", "u2", "u3", "u4")

	sess := state.Session
	roles := []domain.Allegiance{
		domain.AllegianceHitler,
		domain.AllegianceFascist,
		domain.AllegianceLiberal,
		domain.AllegianceLiberal,
		domain.AllegianceLiberal,
	}
	for i, userID := range sess.Players {
		sess.States[userID].Allegiance = roles[i]
	}
	sess.HitlerID = "u0"
	sess.Phase = domain.PhaseActive
	sess.PlayerCount = 5

	handler.dispatchEvent(state, dispatcher, noopLogger{}, app.Event{
		Kind:    app.EventLobbyData,
		Payload: app.LobbyDataPayload{},
	})

	if len(dispatcher.broadcasts) != 5 {
		t.Fatalf("broadcasts = %d, want one per presence", len(dispatcher.broadcasts))
	}

	for _, b := range dispatcher.broadcasts {
		if b.opCode != OpLobbyData {
			t.Fatalf("opcode = %d, want %d", b.opCode, OpLobbyData)
		}
		if len(b.presences) != 1 {
			t.Fatalf("lobby data sent to %d presences, want 1", len(b.presences))
		}
		observer := b.presences[0].GetUserId()

		var view app.SessionView
		if err := json.Unmarshal(b.data, &view); err != nil {
			t.Fatalf("unmarshal view: %v", err)
		}
		for _, sv := range view.Players {
			if sv.Allegiance == nil {
				continue
			}
			if observer == "u2" && sv.UserID != "u2" {
				t.Fatalf("liberal observer %s sees allegiance of %s", observer, sv.UserID)
			}
		}
	}
}

func TestDispatchLobbyDataTargeted(t *testing.T) {
	handler := &matchHandler{}
	dispatcher := &mockDispatcher{}
	state := testMatchState("u0", "u1")

	handler.dispatchEvent(state, dispatcher, noopLogger{}, app.Event{
		Kind:       app.EventLobbyData,
		Payload:    app.LobbyDataPayload{PerspectiveID: "u1"},
		Recipients: []string{"u1"},
	})

	if len(dispatcher.broadcasts) != 1 {
		t.Fatalf("broadcasts = %d, want 1", len(dispatcher.broadcasts))
	}
	if dispatcher.broadcasts[0].presences[0].GetUserId() != "u1" {
		t.Fatalf("view sent to %s, want u1", dispatcher.broadcasts[0].presences[0].GetUserId())
	}
}

func TestShouldTerminate(t *testing.T) {
	handler := &matchHandler{}

	empty := testMatchState()
	if !handler.shouldTerminate(empty) {
		t.Fatal("empty match should terminate")
	}

	forming := testMatchState("u0")
	if handler.shouldTerminate(forming) {
		t.Fatal("occupied forming match should keep running")
	}

	abandoned := testMatchState("u0")
	delete(abandoned.Presences, "u0")
	abandoned.Session.Phase = domain.PhaseFinished
	if !handler.shouldTerminate(abandoned) {
		t.Fatal("finished match with no presences should terminate")
	}
}

func TestMatchJoinAttemptRules(t *testing.T) {
	handler := &matchHandler{}
	state := testMatchState("u0", "u1", "u2", "u3", "u4")
	state.Session.Capacity = 5

	// Forming and full: reject strangers.
	if _, allowed, _ := handler.MatchJoinAttempt(nil, noopLogger{}, nil, nil, nil, 0, state, testPresence{userID: "stranger"}, nil); allowed {
		t.Fatal("full session accepted a new participant")
	}

	// Active: seated participants may rejoin, strangers may not.
	state.Session.Phase = domain.PhaseActive
	if _, allowed, _ := handler.MatchJoinAttempt(nil, noopLogger{}, nil, nil, nil, 0, state, testPresence{userID: "u1"}, nil); !allowed {
		t.Fatal("returning participant rejected")
	}
	if _, allowed, _ := handler.MatchJoinAttempt(nil, noopLogger{}, nil, nil, nil, 0, state, testPresence{userID: "stranger"}, nil); allowed {
		t.Fatal("stranger admitted to a running session")
	}

	state.Session.Phase = domain.PhaseFinished
	if _, allowed, _ := handler.MatchJoinAttempt(nil, noopLogger{}, nil, nil, nil, 0, state, testPresence{userID: "u2"}, nil); allowed {
		t.Fatal("finished session accepted a join")
	}
}
