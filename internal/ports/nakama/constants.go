package nakama

const (
	// RpcFindGame is the Nakama RPC id clients call to find or create an open session.
	RpcFindGame = "find_game"

	// RpcVoiceToken is the Nakama RPC id clients call to obtain a voice access token.
	RpcVoiceToken = "voice_token"

	// MatchNameSecretHitler is the authoritative match handler name registered with Nakama.
	MatchNameSecretHitler = "secrethitler_match"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpLeaveSession    int64 = 1
	OpNominate        int64 = 2
	OpElectionFailed  int64 = 3
	OpEnactPolicy     int64 = 4
	OpExecute         int64 = 5
	OpSpecialElection int64 = 6
	OpInvestigate     int64 = 7
	OpPeekPolicies    int64 = 8

	// Server -> Client events
	OpLobbyData  int64 = 101
	OpGameAction int64 = 102
	OpGameError  int64 = 103
)
