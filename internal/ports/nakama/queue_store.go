package nakama

import (
	"context"
	"errors"

	"github.com/heroiclabs/nakama-common/runtime"

	"pong/internal/domain"
	"pong/internal/ports"
)

// NakamaQueueStore persists matchmaking requests keyed by user id, so
// per-user uniqueness rides on the storage engine's conditional write.
type NakamaQueueStore struct {
	nk storageAPI
}

// NewNakamaQueueStore creates a new queue store adapter.
func NewNakamaQueueStore(nk storageAPI) *NakamaQueueStore {
	return &NakamaQueueStore{nk: nk}
}

func (s *NakamaQueueStore) CreateRequest(ctx context.Context, req *domain.WaitingRequest) error {
	err := writeOne(ctx, s.nk, queueCollection, req.UserID, req, "*")
	if errors.Is(err, runtime.ErrStorageRejectedVersion) {
		return domain.ErrAlreadyQueued
	}
	return err
}

func (s *NakamaQueueStore) GetRequest(ctx context.Context, userID string) (*domain.WaitingRequest, error) {
	var req domain.WaitingRequest
	found, err := readOne(ctx, s.nk, queueCollection, userID, &req)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrNotFound
	}
	return &req, nil
}

func (s *NakamaQueueStore) DeleteRequest(ctx context.Context, userID string) error {
	return deleteOne(ctx, s.nk, queueCollection, userID)
}

func (s *NakamaQueueStore) ListRequests(ctx context.Context) ([]*domain.WaitingRequest, error) {
	objects, err := listAll(ctx, s.nk, queueCollection)
	if err != nil {
		return nil, err
	}
	requests := make([]*domain.WaitingRequest, 0, len(objects))
	for _, obj := range objects {
		var req domain.WaitingRequest
		if err := unmarshalObject(obj, &req); err != nil {
			return nil, err
		}
		requests = append(requests, &req)
	}
	return requests, nil
}

var _ ports.QueueStore = (*NakamaQueueStore)(nil)
