package nakama

import (
	"context"
	"fmt"

	"github.com/heroiclabs/nakama-common/api"

	"pong/internal/domain"
	"pong/internal/ports"
)

const defaultRating = 1000

// Rating swing per recorded result.
const ratingDelta = 25

// identityAPI is the slice of runtime.NakamaModule the identity adapter uses.
type identityAPI interface {
	storageAPI
	UsersGetId(ctx context.Context, userIDs []string, facebookIDs []string) ([]*api.User, error)
}

// statsRecord is the per-user competitive record kept in storage.
type statsRecord struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Rating int `json:"rating"`
}

// NakamaIdentityAdapter implements ports.Identity over Nakama accounts plus a
// per-user stats storage record.
type NakamaIdentityAdapter struct {
	nk identityAPI
}

// NewNakamaIdentityAdapter creates a new identity adapter.
func NewNakamaIdentityAdapter(nk identityAPI) *NakamaIdentityAdapter {
	return &NakamaIdentityAdapter{nk: nk}
}

func (a *NakamaIdentityAdapter) GetUser(ctx context.Context, userID string) (*domain.UserProfile, error) {
	users, err := a.nk.UsersGetId(ctx, []string{userID}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user %s: %w", userID, err)
	}
	if len(users) == 0 {
		return nil, domain.ErrUnknownUser
	}

	stats, err := a.loadStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &domain.UserProfile{
		ID:       users[0].GetId(),
		Username: users[0].GetUsername(),
		Rating:   stats.Rating,
	}, nil
}

func (a *NakamaIdentityAdapter) RecordWin(ctx context.Context, userID string) error {
	stats, err := a.loadStats(ctx, userID)
	if err != nil {
		return err
	}
	stats.Wins++
	stats.Rating += ratingDelta
	return writeOne(ctx, a.nk, statsCollection, userID, stats, "")
}

func (a *NakamaIdentityAdapter) RecordLoss(ctx context.Context, userID string) error {
	stats, err := a.loadStats(ctx, userID)
	if err != nil {
		return err
	}
	stats.Losses++
	stats.Rating -= ratingDelta
	if stats.Rating < 0 {
		stats.Rating = 0
	}
	return writeOne(ctx, a.nk, statsCollection, userID, stats, "")
}

func (a *NakamaIdentityAdapter) loadStats(ctx context.Context, userID string) (*statsRecord, error) {
	stats := &statsRecord{Rating: defaultRating}
	if _, err := readOne(ctx, a.nk, statsCollection, userID, stats); err != nil {
		return nil, err
	}
	return stats, nil
}

var _ ports.Identity = (*NakamaIdentityAdapter)(nil)
