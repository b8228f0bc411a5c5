package nakama

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"pong/internal/domain"
	"pong/internal/ports"
)

// NakamaMatchStore persists Match records as JSON objects in Nakama storage.
type NakamaMatchStore struct {
	nk storageAPI
}

// NewNakamaMatchStore creates a new match store adapter.
func NewNakamaMatchStore(nk storageAPI) *NakamaMatchStore {
	return &NakamaMatchStore{nk: nk}
}

func (s *NakamaMatchStore) CreateMatch(ctx context.Context, player1ID, player2ID string) (*domain.Match, error) {
	match := &domain.Match{
		ID:        uuid.NewString(),
		Player1ID: player1ID,
		Player2ID: player2ID,
		Status:    domain.MatchPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := writeOne(ctx, s.nk, matchCollection, match.ID, match, "*"); err != nil {
		return nil, err
	}
	return match, nil
}

func (s *NakamaMatchStore) GetMatch(ctx context.Context, id string) (*domain.Match, error) {
	var match domain.Match
	found, err := readOne(ctx, s.nk, matchCollection, id, &match)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrNotFound
	}
	return &match, nil
}

func (s *NakamaMatchStore) SetPlayerSlot(ctx context.Context, id string, slot int, userID string) error {
	match, err := s.GetMatch(ctx, id)
	if err != nil {
		return err
	}
	if match.Status != domain.MatchPending {
		return domain.ErrMatchCompleted
	}
	switch slot {
	case 1:
		match.Player1ID = userID
	case 2:
		match.Player2ID = userID
	default:
		return fmt.Errorf("invalid player slot %d", slot)
	}
	return writeOne(ctx, s.nk, matchCollection, id, match, "")
}

func (s *NakamaMatchStore) BindRoom(ctx context.Context, id, roomID string) error {
	match, err := s.GetMatch(ctx, id)
	if err != nil {
		return err
	}
	match.RoomID = roomID
	return writeOne(ctx, s.nk, matchCollection, id, match, "")
}

func (s *NakamaMatchStore) MarkOngoing(ctx context.Context, id string) error {
	match, err := s.GetMatch(ctx, id)
	if err != nil {
		return err
	}
	if match.Status == domain.MatchCompleted {
		return domain.ErrMatchCompleted
	}
	match.Status = domain.MatchOngoing
	match.PlayedAt = time.Now().UTC()
	return writeOne(ctx, s.nk, matchCollection, id, match, "")
}

func (s *NakamaMatchStore) CompleteMatch(ctx context.Context, id, winnerID string) error {
	match, err := s.GetMatch(ctx, id)
	if err != nil {
		return err
	}
	if match.Status == domain.MatchCompleted {
		return domain.ErrMatchCompleted
	}
	match.Status = domain.MatchCompleted
	match.WinnerID = winnerID
	return writeOne(ctx, s.nk, matchCollection, id, match, "")
}

func (s *NakamaMatchStore) FindPendingByPlayer(ctx context.Context, userID string) ([]*domain.Match, error) {
	objects, err := listAll(ctx, s.nk, matchCollection)
	if err != nil {
		return nil, err
	}

	var matches []*domain.Match
	for _, obj := range objects {
		var match domain.Match
		if err := unmarshalObject(obj, &match); err != nil {
			return nil, err
		}
		if match.Status != domain.MatchCompleted && match.HasPlayer(userID) {
			matches = append(matches, &match)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return matches, nil
}

var _ ports.MatchStore = (*NakamaMatchStore)(nil)
