package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStateStore persists namespaces as JSONB rows in engine_state.
type PostgresStateStore struct {
	db *pgxpool.Pool
}

func NewPostgresStateStore(db *pgxpool.Pool) *PostgresStateStore {
	return &PostgresStateStore{db: db}
}

// Migrate creates the engine_state table if it does not exist.
func (s *PostgresStateStore) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS engine_state (
			namespace  TEXT PRIMARY KEY,
			value      JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	return err
}

func (s *PostgresStateStore) Load(ctx context.Context, namespace string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(ctx,
		`SELECT value FROM engine_state WHERE namespace = $1`,
		namespace,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return value, nil
}

func (s *PostgresStateStore) Save(ctx context.Context, namespace string, value []byte) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO engine_state (namespace, value, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (namespace) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = NOW()`,
		namespace, value,
	)
	return err
}

// Ping checks database connectivity.
func (s *PostgresStateStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
