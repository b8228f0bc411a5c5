package nakama

// Wire payloads exchanged with clients. Client commands arrive on
// OpClientCommand with a "type" discriminator; server events go out on their
// own op codes but still carry "type" so clients can route on either.

// ClientCommand is any inbound client message.
type ClientCommand struct {
	Type      string `json:"type"`
	Direction string `json:"direction,omitempty"`
}

// Client command types.
const (
	CmdReady  = "ready"
	CmdMove   = "move"
	CmdPause  = "pause"
	CmdResume = "resume"
	CmdReset  = "reset"
)

// ConnectionPayload is the full room context sent to a newly admitted
// player: their own id and seat plus how far along the room is.
type ConnectionPayload struct {
	Type             string `json:"type"`
	Status           string `json:"status"`
	PlayerID         string `json:"playerId"`
	PlayerNumber     int    `json:"playerNumber"`
	RoomID           string `json:"roomId"`
	PlayersConnected int    `json:"playersConnected"`
	PlayersNeeded    int    `json:"playersNeeded"`
}

// PlayerConnectedPayload is the delta sent to already admitted players.
type PlayerConnectedPayload struct {
	Type             string `json:"type"`
	PlayersConnected int    `json:"playersConnected"`
	PlayersNeeded    int    `json:"playersNeeded"`
	NewPlayerNumber  int    `json:"newPlayerNumber"`
}

// PlayerDisconnectedPayload tells the remaining player their opponent
// dropped and a reconnect is being waited on.
type PlayerDisconnectedPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// PingPayload is the periodic liveness probe.
type PingPayload struct {
	Type      string `json:"type"`
	TimeStamp int64  `json:"timeStamp"`
}

// ErrorPayload is sent to a single offending sender.
type ErrorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
