package nakama

import (
	"context"
	"fmt"

	"pong/internal/domain"
	"pong/internal/ports"
)

// matchCreatorAPI is the slice of runtime.NakamaModule the room creator uses.
type matchCreatorAPI interface {
	MatchCreate(ctx context.Context, module string, params map[string]interface{}) (string, error)
}

// NakamaRoomCreator provisions an authoritative Nakama match instance for a
// match record. The match id travels in the init params so the handler can
// load its record.
type NakamaRoomCreator struct {
	nk matchCreatorAPI
}

// NewNakamaRoomCreator creates a new room creator adapter.
func NewNakamaRoomCreator(nk matchCreatorAPI) *NakamaRoomCreator {
	return &NakamaRoomCreator{nk: nk}
}

func (c *NakamaRoomCreator) CreateRoom(ctx context.Context, match *domain.Match) (string, error) {
	roomID, err := c.nk.MatchCreate(ctx, MatchNamePong, map[string]interface{}{
		"match_id": match.ID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create room for match %s: %w", match.ID, err)
	}
	return roomID, nil
}

var _ ports.RoomCreator = (*NakamaRoomCreator)(nil)
