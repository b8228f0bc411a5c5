package domain

// GameState represents the lifecycle stage of a pong game.
type GameState string

const (
	// GameStateStart is the pre-game state while seats fill and ready up.
	GameStateStart GameState = "START"
	// GameStatePlaying is the active simulation state.
	GameStatePlaying GameState = "PLAYING"
	// GameStatePaused is the administratively paused state.
	GameStatePaused GameState = "PAUSED"
	// GameStateOver is the state after a side reached the winning score.
	GameStateOver GameState = "GAME_OVER"
)

// Direction is a paddle movement command.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionStop Direction = "stop"
)

// ValidDirection reports whether d is a recognized movement command.
func ValidDirection(d Direction) bool {
	switch d {
	case DirectionUp, DirectionDown, DirectionStop:
		return true
	}
	return false
}

// Position is a point on the playing field.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PaddlePosition is the vertical placement of a paddle; X is fixed per seat.
type PaddlePosition struct {
	Y float64 `json:"y"`
}

// Score tracks points per seat.
type Score struct {
	Player1 int `json:"player1"`
	Player2 int `json:"player2"`
}

// StateFrame is the authoritative per-tick snapshot broadcast to every
// connection in a room. WinnerSeat carries the winning seat number and is
// meaningful only when HasWinner is set.
type StateFrame struct {
	Type                  string         `json:"type"`
	BallPos               Position       `json:"ballPos"`
	Player1PaddlePos      PaddlePosition `json:"player1PaddlePos"`
	Player2PaddlePos      PaddlePosition `json:"player2PaddlePos"`
	Score                 Score          `json:"score"`
	GameState             GameState      `json:"gameState"`
	IsWaitingForBallSpawn int            `json:"isWaitingForBallSpawn"`
	LastScoreTime         int64          `json:"lastScoreTime"`
	HasWinner             bool           `json:"hasWinner"`
	WinnerSeat            int            `json:"winnerId"`
}
