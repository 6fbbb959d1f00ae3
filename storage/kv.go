package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/Czernobog023/duolist/checklist"
)

// KV bucket and key for the checklist snapshot.
const (
	BucketSnapshot = "DUOLIST_SNAPSHOT"
	snapshotKey    = "state"
)

// KVStore persists snapshots in a NATS JetStream key-value bucket.
// Useful when the server already runs against NATS for event
// publishing; the bucket keeps a short history of revisions.
type KVStore struct {
	kv jetstream.KeyValue
}

// NewKVStore creates a KV-backed snapshot store, creating the bucket
// if it does not exist.
func NewKVStore(ctx context.Context, js jetstream.JetStream) (*KVStore, error) {
	kv, err := js.KeyValue(ctx, BucketSnapshot)
	if err != nil {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      BucketSnapshot,
			Description: "Duolist checklist snapshot",
			History:     5,
		})
		if err != nil {
			return nil, fmt.Errorf("create snapshot bucket: %w", err)
		}
	}
	return &KVStore{kv: kv}, nil
}

// Save writes the snapshot under the single state key.
func (s *KVStore) Save(ctx context.Context, snap *checklist.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if _, err := s.kv.Put(ctx, snapshotKey, data); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	return nil
}

// Load reads the latest snapshot. ErrNoSnapshot when the key was
// never written.
func (s *KVStore) Load(ctx context.Context) (*checklist.Snapshot, error) {
	entry, err := s.kv.Get(ctx, snapshotKey)
	if err != nil {
		if isKeyNotFound(err) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	var snap checklist.Snapshot
	if err := json.Unmarshal(entry.Value(), &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// isKeyNotFound checks if an error indicates a key was not found.
func isKeyNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "key not found")
}
