package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStateStore persists namespaces in a single-file SQLite database.
type SQLiteStateStore struct {
	db *sql.DB
}

// NewSQLiteStateStore opens or creates a SQLite database at the given path.
func NewSQLiteStateStore(dbPath string) (*SQLiteStateStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStateStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStateStore) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS engine_state (
		namespace  TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`)
	return err
}

func (s *SQLiteStateStore) Load(ctx context.Context, namespace string) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM engine_state WHERE namespace = ?`, namespace,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return []byte(value), nil
}

func (s *SQLiteStateStore) Save(ctx context.Context, namespace string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO engine_state (namespace, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(namespace) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		namespace, string(value), time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *SQLiteStateStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database.
func (s *SQLiteStateStore) Close() error {
	return s.db.Close()
}
