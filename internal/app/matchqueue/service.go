// Package matchqueue pairs waiting players into matches by rating proximity.
package matchqueue

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"pong/internal/domain"
	"pong/internal/ports"
)

// Service holds the matchmaking queue use-cases.
type Service struct {
	queue    ports.QueueStore
	matches  ports.MatchStore
	identity ports.Identity
	rooms    ports.RoomCreator

	now func() time.Time
}

// NewService wires the queue service. now may be nil to use time.Now.
func NewService(queue ports.QueueStore, matches ports.MatchStore, identity ports.Identity, rooms ports.RoomCreator, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		queue:    queue,
		matches:  matches,
		identity: identity,
		rooms:    rooms,
		now:      now,
	}
}

// Join enqueues a user with their current rating. Fails with
// domain.ErrAlreadyQueued on a duplicate request and domain.ErrUnknownUser
// when the identity store does not know the user.
func (s *Service) Join(ctx context.Context, userID string) error {
	if _, err := s.queue.GetRequest(ctx, userID); err == nil {
		return domain.ErrAlreadyQueued
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("failed to check queue: %w", err)
	}

	user, err := s.identity.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	req := &domain.WaitingRequest{
		UserID:   user.ID,
		Rating:   user.Rating,
		JoinedAt: s.now(),
	}
	if err := s.queue.CreateRequest(ctx, req); err != nil {
		return fmt.Errorf("failed to enqueue user %s: %w", userID, err)
	}
	return nil
}

// Leave removes the user's request; a no-op when none exists.
func (s *Service) Leave(ctx context.Context, userID string) error {
	return s.queue.DeleteRequest(ctx, userID)
}

// FindMatchForPlayer returns the user's most recent playable match, or
// domain.ErrNotFound.
func (s *Service) FindMatchForPlayer(ctx context.Context, userID string) (*domain.Match, error) {
	matches, err := s.matches.FindPendingByPlayer(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, domain.ErrNotFound
	}
	return matches[0], nil
}

// Sweep takes the current queue in arrival order, pairs requests greedily by
// smallest rating difference, and turns each pair into a PENDING match with
// a live room. Paired requests are deleted; an odd request stays queued for
// the next sweep.
func (s *Service) Sweep(ctx context.Context) ([]*domain.Match, error) {
	requests, err := s.queue.ListRequests(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue: %w", err)
	}
	sort.Slice(requests, func(i, j int) bool {
		return requests[i].JoinedAt.Before(requests[j].JoinedAt)
	})

	var created []*domain.Match
	for _, pair := range pairRequests(requests) {
		match, err := s.createMatch(ctx, pair[0], pair[1])
		if err != nil {
			return created, err
		}
		created = append(created, match)
	}
	return created, nil
}

func (s *Service) createMatch(ctx context.Context, a, b *domain.WaitingRequest) (*domain.Match, error) {
	match, err := s.matches.CreateMatch(ctx, a.UserID, b.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}

	roomID, err := s.rooms.CreateRoom(ctx, match)
	if err != nil {
		return nil, fmt.Errorf("failed to create room for match %s: %w", match.ID, err)
	}
	if err := s.matches.BindRoom(ctx, match.ID, roomID); err != nil {
		return nil, fmt.Errorf("failed to bind room to match %s: %w", match.ID, err)
	}
	match.RoomID = roomID

	if err := s.queue.DeleteRequest(ctx, a.UserID); err != nil {
		return nil, fmt.Errorf("failed to dequeue user %s: %w", a.UserID, err)
	}
	if err := s.queue.DeleteRequest(ctx, b.UserID); err != nil {
		return nil, fmt.Errorf("failed to dequeue user %s: %w", b.UserID, err)
	}
	return match, nil
}

// pairRequests greedily pairs requests already sorted by arrival: for each
// unpaired request, the remaining request with the smallest absolute rating
// difference wins; a zero difference short-circuits the scan, and ties keep
// the earliest-arrival candidate because the scan runs in arrival order.
func pairRequests(requests []*domain.WaitingRequest) [][2]*domain.WaitingRequest {
	var pairs [][2]*domain.WaitingRequest
	used := make([]bool, len(requests))

	for i := 0; i < len(requests)-1; i++ {
		if used[i] {
			continue
		}

		best := -1
		minDiff := 0
		for j := i + 1; j < len(requests); j++ {
			if used[j] {
				continue
			}
			diff := requests[i].Rating - requests[j].Rating
			if diff < 0 {
				diff = -diff
			}
			if best == -1 || diff < minDiff {
				minDiff = diff
				best = j
			}
			if diff == 0 {
				break
			}
		}

		if best != -1 {
			pairs = append(pairs, [2]*domain.WaitingRequest{requests[i], requests[best]})
			used[i] = true
			used[best] = true
		}
	}
	return pairs
}
