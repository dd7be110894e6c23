// Package sqlite provides a CheckpointStore backed by a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" driver
)

const (
	createCheckpoints = "CREATE TABLE IF NOT EXISTS checkpoints (" +
		"session_id TEXT PRIMARY KEY, " +
		"run_id TEXT NOT NULL, " +
		"cursor TEXT NOT NULL, " +
		"status TEXT NOT NULL, " +
		"step INTEGER NOT NULL, " +
		"codec TEXT NOT NULL, " +
		"state BLOB, " +
		"updated_at INTEGER NOT NULL" +
		")"

	upsertCheckpoint = "INSERT OR REPLACE INTO checkpoints (" +
		"session_id, run_id, cursor, status, step, codec, state, updated_at) " +
		"VALUES (?, ?, ?, ?, ?, ?, ?, ?)"

	selectCheckpoint = "SELECT run_id, cursor, status, step, codec, state, updated_at " +
		"FROM checkpoints WHERE session_id = ?"

	deleteCheckpoint = "DELETE FROM checkpoints WHERE session_id = ?"

	selectSessions = "SELECT session_id FROM checkpoints ORDER BY session_id"
)

var _ ports.CheckpointStore = (*Store)(nil)

// Store keeps one row per session. A save is a single INSERT OR REPLACE,
// so it is atomic per key.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a database file and prepares the schema.
// The pool is limited to one connection since SQLite serializes writers anyway.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	s, err := NewStore(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// uriEscaper escapes the characters that end the path part of a SQLite URI.
var uriEscaper = strings.NewReplacer("%", "%25", "?", "%3F", "#", "%23")

func dsn(path string) string {
	return "file:" + uriEscaper.Replace(path) + "?_busy_timeout=5000&_journal_mode=WAL"
}

// NewStore uses an existing DB, which must use a SQLite driver.
func NewStore(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if _, err := db.Exec(createCheckpoints); err != nil {
		return nil, fmt.Errorf("create checkpoints table: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Save(ctx context.Context, sessionID string, cp *domain.Checkpoint) error {
	if sessionID == "" {
		return domain.ErrEmptySessionID
	}
	_, err := s.db.ExecContext(ctx, upsertCheckpoint,
		sessionID, cp.RunID, cp.Cursor, string(cp.Status), cp.Step, cp.Codec, cp.State,
		cp.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert checkpoint: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, sessionID string) (*domain.Checkpoint, error) {
	var (
		cp      = domain.Checkpoint{SessionID: sessionID}
		status  string
		updated int64
	)
	err := s.db.QueryRowContext(ctx, selectCheckpoint, sessionID).Scan(
		&cp.RunID, &cp.Cursor, &status, &cp.Step, &cp.Codec, &cp.State, &updated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("select checkpoint: %w", err)
	}
	cp.Status = domain.CheckpointStatus(status)
	cp.UpdatedAt = time.Unix(0, updated).UTC()
	return &cp, nil
}

func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, deleteCheckpoint, sessionID); err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, selectSessions)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, id)
	}
	return sessions, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
