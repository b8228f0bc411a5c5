package nakama

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// Storage collections. All records are system-owned (empty user id) and
// hidden from client storage APIs.
const (
	matchCollection       = "matches"
	queueCollection       = "queue"
	tournamentCollection  = "tournaments"
	bracketCollection     = "tournament_matches"
	participantCollection = "participants"
	statsCollection       = "stats"
)

const storageListPageSize = 100

// storageAPI is the slice of runtime.NakamaModule the storage adapters use.
// Tests substitute an in-memory fake.
type storageAPI interface {
	StorageRead(ctx context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error)
	StorageWrite(ctx context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error)
	StorageDelete(ctx context.Context, deletes []*runtime.StorageDelete) error
	StorageList(ctx context.Context, callerID, userID, collection string, limit int, cursor string) ([]*api.StorageObject, string, error)
}

// readOne fetches a single system object; found is false when it is absent.
func readOne(ctx context.Context, nk storageAPI, collection, key string, out interface{}) (found bool, err error) {
	objects, err := nk.StorageRead(ctx, []*runtime.StorageRead{{
		Collection: collection,
		Key:        key,
	}})
	if err != nil {
		return false, fmt.Errorf("failed to read %s/%s: %w", collection, key, err)
	}
	if len(objects) == 0 {
		return false, nil
	}
	if err := json.Unmarshal([]byte(objects[0].GetValue()), out); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s/%s: %w", collection, key, err)
	}
	return true, nil
}

// writeOne persists a system object. version "*" demands the key not exist
// yet; "" overwrites unconditionally.
func writeOne(ctx context.Context, nk storageAPI, collection, key string, value interface{}, version string) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s/%s: %w", collection, key, err)
	}
	_, err = nk.StorageWrite(ctx, []*runtime.StorageWrite{{
		Collection:      collection,
		Key:             key,
		Value:           string(data),
		Version:         version,
		PermissionRead:  runtime.STORAGE_PERMISSION_NO_READ,
		PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
	}})
	if err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", collection, key, err)
	}
	return nil
}

func deleteOne(ctx context.Context, nk storageAPI, collection, key string) error {
	err := nk.StorageDelete(ctx, []*runtime.StorageDelete{{
		Collection: collection,
		Key:        key,
	}})
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, key, err)
	}
	return nil
}

func unmarshalObject(obj *api.StorageObject, out interface{}) error {
	if err := json.Unmarshal([]byte(obj.GetValue()), out); err != nil {
		return fmt.Errorf("failed to unmarshal %s/%s: %w", obj.GetCollection(), obj.GetKey(), err)
	}
	return nil
}

// listAll pages through every system object in a collection.
func listAll(ctx context.Context, nk storageAPI, collection string) ([]*api.StorageObject, error) {
	var all []*api.StorageObject
	cursor := ""
	for {
		objects, next, err := nk.StorageList(ctx, "", "", collection, storageListPageSize, cursor)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", collection, err)
		}
		all = append(all, objects...)
		if next == "" {
			return all, nil
		}
		cursor = next
	}
}
