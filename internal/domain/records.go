package domain

import (
	"math/bits"
	"time"
)

// MatchStatus is the lifecycle of a persisted match record.
type MatchStatus string

const (
	MatchPending   MatchStatus = "PENDING"
	MatchOngoing   MatchStatus = "ONGOING"
	MatchCompleted MatchStatus = "COMPLETED"
)

// Match is a persisted two-player match. Player slots may be empty strings
// for bracket placeholders and are mutable only while the match is PENDING.
// RoomID is the live Nakama match backing this record.
type Match struct {
	ID        string      `json:"id"`
	Player1ID string      `json:"player1_id"`
	Player2ID string      `json:"player2_id"`
	Status    MatchStatus `json:"status"`
	WinnerID  string      `json:"winner_id,omitempty"`
	RoomID    string      `json:"room_id,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	PlayedAt  time.Time   `json:"played_at,omitzero"`
}

// HasPlayer reports whether userID occupies either slot.
func (m *Match) HasPlayer(userID string) bool {
	return userID != "" && (m.Player1ID == userID || m.Player2ID == userID)
}

// Opponent returns the other participant's id, or "" if userID is not a
// participant or the slot is still a placeholder.
func (m *Match) Opponent(userID string) string {
	switch userID {
	case m.Player1ID:
		return m.Player2ID
	case m.Player2ID:
		return m.Player1ID
	}
	return ""
}

// Seeded reports whether both player slots are filled.
func (m *Match) Seeded() bool {
	return m.Player1ID != "" && m.Player2ID != ""
}

// WaitingRequest is one user's outstanding matchmaking request. At most one
// exists per user.
type WaitingRequest struct {
	UserID   string    `json:"user_id"`
	Rating   int       `json:"rating"`
	JoinedAt time.Time `json:"joined_at"`
}

// TournamentStatus is the strict forward state machine of a tournament.
type TournamentStatus string

const (
	TournamentRegistration TournamentStatus = "REGISTRATION"
	TournamentPending      TournamentStatus = "PENDING"
	TournamentReady        TournamentStatus = "READY"
	TournamentOngoing      TournamentStatus = "ONGOING"
	TournamentCompleted    TournamentStatus = "COMPLETED"
)

// Tournament is a single-elimination bracket over 4, 8 or 16 players.
type Tournament struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	RequiredPlayers int              `json:"required_players"`
	Status          TournamentStatus `json:"status"`
	CurrentRound    int              `json:"current_round"`
	WinnerID        string           `json:"winner_id,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// TournamentMatch links a Match to its place in the bracket tree.
// NextMatchID is empty only for the final.
type TournamentMatch struct {
	ID           string `json:"id"`
	TournamentID string `json:"tournament_id"`
	MatchID      string `json:"match_id"`
	Round        int    `json:"round"`
	BracketPos   int    `json:"bracket_pos"`
	NextMatchID  string `json:"next_match_id,omitempty"`
}

// Participant is a registered tournament entrant.
type Participant struct {
	TournamentID string    `json:"tournament_id"`
	UserID       string    `json:"user_id"`
	Alias        string    `json:"alias,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
}

// UserProfile is the slice of identity data the core needs.
type UserProfile struct {
	ID       string
	Username string
	Rating   int
}

// ValidRequiredPlayers reports whether n is an allowed bracket size.
func ValidRequiredPlayers(n int) bool {
	return n == 4 || n == 8 || n == 16
}

// TotalRounds returns log2 of the bracket size. Callers must pass a value
// accepted by ValidRequiredPlayers.
func TotalRounds(requiredPlayers int) int {
	return bits.TrailingZeros(uint(requiredPlayers))
}
