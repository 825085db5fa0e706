package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is a Backend on a shared PostgreSQL database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps pool and ensures the view_state table exists.
// The store takes ownership of pool and closes it in Close.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	s := &PostgresStore{pool: pool}
	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS view_state (
			key        TEXT PRIMARY KEY,
			value      BYTEA NOT NULL,
			revision   UUID NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return nil, fmt.Errorf("initialize postgres schema: %w", err)
	}
	return s, nil
}

// Get returns the value stored under key.
func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.pool.QueryRow(ctx, `SELECT value FROM view_state WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("postgres get %q: %w", key, err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, true, nil
}

// Set upserts value under key with a new revision.
func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	revision := pgtype.UUID{Bytes: uuid.New(), Valid: true}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO view_state (key, value, revision, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			revision = EXCLUDED.revision,
			updated_at = EXCLUDED.updated_at`,
		key, value, revision,
	)
	if err != nil {
		return fmt.Errorf("postgres set %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM view_state WHERE key = $1`, key); err != nil {
		return fmt.Errorf("postgres delete %q: %w", key, err)
	}
	return nil
}

// List returns entries whose key starts with prefix, ordered by key.
func (s *PostgresStore) List(ctx context.Context, prefix string) ([]Entry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT key, octet_length(value), revision, updated_at
		FROM view_state
		WHERE starts_with(key, $1)
		ORDER BY key`,
		prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres list %q: %w", prefix, err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e        Entry
			size     int32
			revision pgtype.UUID
			updated  pgtype.Timestamptz
		)
		if err := rows.Scan(&e.Key, &size, &revision, &updated); err != nil {
			return nil, fmt.Errorf("postgres scan entry: %w", err)
		}
		e.Size = int(size)
		if revision.Valid {
			e.Revision = uuid.UUID(revision.Bytes).String()
		}
		if updated.Valid {
			e.UpdatedAt = updated.Time.UTC()
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Ping verifies the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
