package nakama

const (
	// RPC ids clients call over the Nakama API.
	RpcJoinQueue            = "join_queue"
	RpcLeaveQueue           = "leave_queue"
	RpcFindMatch            = "find_match"
	RpcCreateTournament     = "create_tournament"
	RpcListTournaments      = "list_tournaments"
	RpcRegisterTournament   = "register_tournament"
	RpcUnregisterTournament = "unregister_tournament"

	// MatchNamePong is the authoritative match handler name registered with Nakama.
	MatchNamePong = "pong_match"
)

// Op codes for client messages and server events.
const (
	// Client -> Server. All commands share one opcode; the JSON payload's
	// "type" field selects the action.
	OpClientCommand int64 = 1

	// Server -> Client events
	OpConnection         int64 = 101
	OpPlayerConnected    int64 = 102
	OpPlayerDisconnected int64 = 103
	OpReadyStatus        int64 = 104
	OpGameStart          int64 = 105
	OpGameState          int64 = 106
	OpGameStop           int64 = 107
	OpPing               int64 = 108
	OpError              int64 = 109
)
