// Package storage provides snapshot persistence for the checklist.
// Implementations are opaque key-value stores with last-write-wins
// semantics; no transactional guarantees are offered or required.
package storage

import (
	"context"
	"errors"

	"github.com/Czernobog023/duolist/checklist"
)

// ErrNoSnapshot is returned by Load when nothing has been saved yet.
var ErrNoSnapshot = errors.New("no snapshot stored")

// SnapshotStore persists and restores checklist snapshots. The server
// saves after every successful mutation; clients save their local
// replica so a restart resumes from the last seen state.
type SnapshotStore interface {
	Save(ctx context.Context, snap *checklist.Snapshot) error
	Load(ctx context.Context) (*checklist.Snapshot, error)
}
