package checkpoint

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mfateev/yada-go/internal/models"
)

// Memory keeps snapshots in process memory.
type Memory struct {
	mu    sync.RWMutex
	snaps map[string]models.Snapshot
	now   func() time.Time
}

var _ Checkpointer = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{snaps: map[string]models.Snapshot{}, now: time.Now}
}

func (m *Memory) Save(ctx context.Context, snap *models.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if snap.ThreadID == "" {
		return ErrInvalidThreadID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current, exists := m.snaps[snap.ThreadID]
	switch {
	case !exists && snap.Version != 0:
		return fmt.Errorf("%w: thread %q expected version 0 on create, got %d",
			ErrVersionConflict, snap.ThreadID, snap.Version)
	case exists && snap.Version != current.Version:
		return fmt.Errorf("%w: thread %q expected version %d, got %d",
			ErrVersionConflict, snap.ThreadID, current.Version, snap.Version)
	}

	next := snap.Clone()
	next.Version = snap.Version + 1
	next.UpdatedAt = m.now().UTC()
	m.snaps[snap.ThreadID] = next

	snap.Version = next.Version
	snap.UpdatedAt = next.UpdatedAt
	return nil
}

func (m *Memory) Load(ctx context.Context, threadID string) (models.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return models.Snapshot{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap, ok := m.snaps[threadID]
	if !ok {
		return models.Snapshot{}, ErrThreadNotFound
	}
	return snap.Clone(), nil
}
