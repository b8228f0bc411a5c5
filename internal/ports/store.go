package ports

import (
	"context"

	"pong/internal/domain"
)

// MatchStore persists Match records. Implementations return
// domain.ErrNotFound for unknown ids.
type MatchStore interface {
	// CreateMatch creates a PENDING match. Either player id may be empty for
	// a bracket placeholder slot.
	CreateMatch(ctx context.Context, player1ID, player2ID string) (*domain.Match, error)

	GetMatch(ctx context.Context, id string) (*domain.Match, error)

	// SetPlayerSlot fills a placeholder slot (1 or 2) of a PENDING match.
	// Re-writing the same user into the same slot is a harmless no-op.
	SetPlayerSlot(ctx context.Context, id string, slot int, userID string) error

	// BindRoom records the live room id backing the match.
	BindRoom(ctx context.Context, id, roomID string) error

	// MarkOngoing moves a PENDING match to ONGOING.
	MarkOngoing(ctx context.Context, id string) error

	// CompleteMatch finalizes the match with its winner; the record is
	// immutable afterwards.
	CompleteMatch(ctx context.Context, id, winnerID string) error

	// FindPendingByPlayer lists non-completed matches the user participates
	// in, newest first.
	FindPendingByPlayer(ctx context.Context, userID string) ([]*domain.Match, error)
}

// QueueStore persists matchmaking requests, keyed by user.
type QueueStore interface {
	// CreateRequest stores a request; domain.ErrAlreadyQueued if one exists.
	CreateRequest(ctx context.Context, req *domain.WaitingRequest) error

	// GetRequest returns the user's request or domain.ErrNotFound.
	GetRequest(ctx context.Context, userID string) (*domain.WaitingRequest, error)

	// DeleteRequest removes the user's request; no-op when absent.
	DeleteRequest(ctx context.Context, userID string) error

	ListRequests(ctx context.Context) ([]*domain.WaitingRequest, error)
}

// TournamentStore persists tournaments, their participants and their bracket.
type TournamentStore interface {
	CreateTournament(ctx context.Context, name string, requiredPlayers int) (*domain.Tournament, error)
	GetTournament(ctx context.Context, id string) (*domain.Tournament, error)
	ListNotCompleted(ctx context.Context) ([]*domain.Tournament, error)
	UpdateStatus(ctx context.Context, id string, status domain.TournamentStatus) error
	UpdateCurrentRound(ctx context.Context, id string, round int) error
	SetWinner(ctx context.Context, id, winnerID string) error

	// AddParticipant registers an entrant; domain.ErrAlreadyRegistered on a
	// duplicate registration.
	AddParticipant(ctx context.Context, p *domain.Participant) error
	RemoveParticipant(ctx context.Context, tournamentID, userID string) error
	// ListParticipants returns entrants in registration order.
	ListParticipants(ctx context.Context, tournamentID string) ([]*domain.Participant, error)

	CreateTournamentMatch(ctx context.Context, tm *domain.TournamentMatch) (*domain.TournamentMatch, error)
	GetTournamentMatch(ctx context.Context, id string) (*domain.TournamentMatch, error)
	ListByTournament(ctx context.Context, tournamentID string) ([]*domain.TournamentMatch, error)
	ListByRound(ctx context.Context, tournamentID string, round int) ([]*domain.TournamentMatch, error)
	SetNextMatch(ctx context.Context, tmID, nextMatchID string) error
}

// RoomCreator provisions a live room for a match record and returns its id.
type RoomCreator interface {
	CreateRoom(ctx context.Context, match *domain.Match) (string, error)
}
