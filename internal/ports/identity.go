package ports

import (
	"context"

	"pong/internal/domain"
)

// Identity defines the interface to the external user/profile store.
type Identity interface {
	// GetUser resolves a user's profile, including their current rating.
	// Returns domain.ErrUnknownUser for unknown ids.
	GetUser(ctx context.Context, userID string) (*domain.UserProfile, error)

	// RecordWin increments the user's win counter.
	RecordWin(ctx context.Context, userID string) error

	// RecordLoss increments the user's loss counter.
	RecordLoss(ctx context.Context, userID string) error
}
