package nakama

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"

	"pong/internal/domain"
	"pong/internal/ports"
)

// NakamaTournamentStore persists tournaments, participants and bracket
// matches in Nakama storage. Participants are keyed by tournament and user
// so duplicate registrations fail on the conditional write.
type NakamaTournamentStore struct {
	nk storageAPI
}

// NewNakamaTournamentStore creates a new tournament store adapter.
func NewNakamaTournamentStore(nk storageAPI) *NakamaTournamentStore {
	return &NakamaTournamentStore{nk: nk}
}

func (s *NakamaTournamentStore) CreateTournament(ctx context.Context, name string, requiredPlayers int) (*domain.Tournament, error) {
	t := &domain.Tournament{
		ID:              uuid.NewString(),
		Name:            name,
		RequiredPlayers: requiredPlayers,
		Status:          domain.TournamentRegistration,
		CreatedAt:       time.Now().UTC(),
	}
	if err := writeOne(ctx, s.nk, tournamentCollection, t.ID, t, "*"); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *NakamaTournamentStore) GetTournament(ctx context.Context, id string) (*domain.Tournament, error) {
	var t domain.Tournament
	found, err := readOne(ctx, s.nk, tournamentCollection, id, &t)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrNotFound
	}
	return &t, nil
}

func (s *NakamaTournamentStore) ListNotCompleted(ctx context.Context) ([]*domain.Tournament, error) {
	objects, err := listAll(ctx, s.nk, tournamentCollection)
	if err != nil {
		return nil, err
	}
	var tournaments []*domain.Tournament
	for _, obj := range objects {
		var t domain.Tournament
		if err := unmarshalObject(obj, &t); err != nil {
			return nil, err
		}
		if t.Status != domain.TournamentCompleted {
			tournaments = append(tournaments, &t)
		}
	}
	sort.Slice(tournaments, func(i, j int) bool {
		return tournaments[i].CreatedAt.Before(tournaments[j].CreatedAt)
	})
	return tournaments, nil
}

func (s *NakamaTournamentStore) UpdateStatus(ctx context.Context, id string, status domain.TournamentStatus) error {
	t, err := s.GetTournament(ctx, id)
	if err != nil {
		return err
	}
	t.Status = status
	return writeOne(ctx, s.nk, tournamentCollection, id, t, "")
}

func (s *NakamaTournamentStore) UpdateCurrentRound(ctx context.Context, id string, round int) error {
	t, err := s.GetTournament(ctx, id)
	if err != nil {
		return err
	}
	t.CurrentRound = round
	return writeOne(ctx, s.nk, tournamentCollection, id, t, "")
}

func (s *NakamaTournamentStore) SetWinner(ctx context.Context, id, winnerID string) error {
	t, err := s.GetTournament(ctx, id)
	if err != nil {
		return err
	}
	t.WinnerID = winnerID
	return writeOne(ctx, s.nk, tournamentCollection, id, t, "")
}

func (s *NakamaTournamentStore) AddParticipant(ctx context.Context, p *domain.Participant) error {
	err := writeOne(ctx, s.nk, participantCollection, participantKey(p.TournamentID, p.UserID), p, "*")
	if errors.Is(err, runtime.ErrStorageRejectedVersion) {
		return domain.ErrAlreadyRegistered
	}
	return err
}

func (s *NakamaTournamentStore) RemoveParticipant(ctx context.Context, tournamentID, userID string) error {
	return deleteOne(ctx, s.nk, participantCollection, participantKey(tournamentID, userID))
}

func (s *NakamaTournamentStore) ListParticipants(ctx context.Context, tournamentID string) ([]*domain.Participant, error) {
	objects, err := listAll(ctx, s.nk, participantCollection)
	if err != nil {
		return nil, err
	}
	var participants []*domain.Participant
	for _, obj := range objects {
		var p domain.Participant
		if err := unmarshalObject(obj, &p); err != nil {
			return nil, err
		}
		if p.TournamentID == tournamentID {
			participants = append(participants, &p)
		}
	}
	sort.Slice(participants, func(i, j int) bool {
		return participants[i].RegisteredAt.Before(participants[j].RegisteredAt)
	})
	return participants, nil
}

func (s *NakamaTournamentStore) CreateTournamentMatch(ctx context.Context, tm *domain.TournamentMatch) (*domain.TournamentMatch, error) {
	if tm.ID == "" {
		tm.ID = uuid.NewString()
	}
	if err := writeOne(ctx, s.nk, bracketCollection, tm.ID, tm, "*"); err != nil {
		return nil, err
	}
	return tm, nil
}

func (s *NakamaTournamentStore) GetTournamentMatch(ctx context.Context, id string) (*domain.TournamentMatch, error) {
	var tm domain.TournamentMatch
	found, err := readOne(ctx, s.nk, bracketCollection, id, &tm)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrNotFound
	}
	return &tm, nil
}

func (s *NakamaTournamentStore) ListByTournament(ctx context.Context, tournamentID string) ([]*domain.TournamentMatch, error) {
	objects, err := listAll(ctx, s.nk, bracketCollection)
	if err != nil {
		return nil, err
	}
	var tms []*domain.TournamentMatch
	for _, obj := range objects {
		var tm domain.TournamentMatch
		if err := unmarshalObject(obj, &tm); err != nil {
			return nil, err
		}
		if tm.TournamentID == tournamentID {
			tms = append(tms, &tm)
		}
	}
	sort.Slice(tms, func(i, j int) bool {
		if tms[i].Round != tms[j].Round {
			return tms[i].Round < tms[j].Round
		}
		return tms[i].BracketPos < tms[j].BracketPos
	})
	return tms, nil
}

func (s *NakamaTournamentStore) ListByRound(ctx context.Context, tournamentID string, round int) ([]*domain.TournamentMatch, error) {
	all, err := s.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	var tms []*domain.TournamentMatch
	for _, tm := range all {
		if tm.Round == round {
			tms = append(tms, tm)
		}
	}
	return tms, nil
}

func (s *NakamaTournamentStore) SetNextMatch(ctx context.Context, tmID, nextMatchID string) error {
	tm, err := s.GetTournamentMatch(ctx, tmID)
	if err != nil {
		return err
	}
	tm.NextMatchID = nextMatchID
	return writeOne(ctx, s.nk, bracketCollection, tmID, tm, "")
}

func participantKey(tournamentID, userID string) string {
	return tournamentID + ":" + userID
}

var _ ports.TournamentStore = (*NakamaTournamentStore)(nil)
