package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mfateev/yada-go/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	thread_id  TEXT PRIMARY KEY,
	version    INTEGER NOT NULL,
	state      TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// SQLite stores snapshots in a SQLite database file so threads survive
// process restarts.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

var _ Checkpointer = (*SQLite)(nil)

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create checkpoint directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection serializes writers; SQLite locks the file anyway.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create snapshots table: %w", err)
	}
	return &SQLite{db: db, now: time.Now}, nil
}

// Close releases the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Save(ctx context.Context, snap *models.Snapshot) error {
	if snap.ThreadID == "" {
		return ErrInvalidThreadID
	}

	next := snap.Clone()
	next.Version = snap.Version + 1
	next.UpdatedAt = s.now().UTC()
	state, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	updatedAt := next.UpdatedAt.Format(time.RFC3339Nano)

	var res sql.Result
	if snap.Version == 0 {
		res, err = s.db.ExecContext(ctx,
			`INSERT INTO snapshots (thread_id, version, state, updated_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT (thread_id) DO NOTHING`,
			next.ThreadID, next.Version, string(state), updatedAt)
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE snapshots SET version = ?, state = ?, updated_at = ? WHERE thread_id = ? AND version = ?`,
			next.Version, string(state), updatedAt, next.ThreadID, snap.Version)
	}
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: thread %q is not at version %d", ErrVersionConflict, snap.ThreadID, snap.Version)
	}

	snap.Version = next.Version
	snap.UpdatedAt = next.UpdatedAt
	return nil
}

func (s *SQLite) Load(ctx context.Context, threadID string) (models.Snapshot, error) {
	var state string
	err := s.db.QueryRowContext(ctx, `SELECT state FROM snapshots WHERE thread_id = ?`, threadID).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Snapshot{}, ErrThreadNotFound
	}
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}

	var snap models.Snapshot
	if err := json.Unmarshal([]byte(state), &snap); err != nil {
		return models.Snapshot{}, fmt.Errorf("decode snapshot %q: %w", threadID, err)
	}
	return snap, nil
}
