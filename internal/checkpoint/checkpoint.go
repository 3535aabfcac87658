// Package checkpoint persists conversation snapshots keyed by thread id.
package checkpoint

import (
	"context"
	"errors"

	"github.com/mfateev/yada-go/internal/models"
)

var (
	// ErrThreadNotFound is returned by Load for a thread that was never saved.
	ErrThreadNotFound = errors.New("thread not found")
	// ErrVersionConflict is returned by Save when the snapshot is stale.
	ErrVersionConflict = errors.New("snapshot version conflict")
	// ErrInvalidThreadID is returned by Save for an empty thread id.
	ErrInvalidThreadID = errors.New("thread id is required")
)

// Checkpointer stores the latest snapshot of every thread.
//
// Save uses optimistic concurrency: snap.Version must equal the stored
// version (0 for a new thread). On success the stored copy and snap both
// advance to the next version.
type Checkpointer interface {
	Save(ctx context.Context, snap *models.Snapshot) error
	Load(ctx context.Context, threadID string) (models.Snapshot, error)
}
