package app

// EventKind identifies emitted engine events for dispatch to the transport.
type EventKind string

const (
	EventReadyStatus EventKind = "ready_status"
	EventGameStart   EventKind = "game_start"
	EventGameStop    EventKind = "game_stop"
)

// Event is an engine event with optional targeted recipients.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string // user IDs; empty means broadcast
}

// ReadyStatusPayload reports which players are ready and whether all are.
type ReadyStatusPayload struct {
	Type         string   `json:"type"`
	PlayersReady []string `json:"playersReady"`
	AllReady     bool     `json:"allReady"`
}

// GameStartPayload announces the start countdown.
type GameStartPayload struct {
	Type      string `json:"type"`
	TimeStamp int64  `json:"timeStamp"`
}

// GameStopPayload announces the end of simulation for this room.
type GameStopPayload struct {
	Type      string `json:"type"`
	TimeStamp int64  `json:"timeStamp"`
}
