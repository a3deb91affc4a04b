package tokenstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/adminkit/session/internal/models"
)

// SQLiteStore keeps the token pair in a single-table key-value schema.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an already-opened database and ensures the schema
// exists.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS credentials (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to init credentials schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM credentials WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get credentials[%s]: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteStore) Get(ctx context.Context) (*models.TokenPair, error) {
	access, err := s.get(ctx, KeyAccess)
	if err != nil {
		return nil, err
	}
	refresh, err := s.get(ctx, KeyRefresh)
	if err != nil {
		return nil, err
	}
	if refresh == "" {
		// Older releases wrote the refresh token under a shorter key.
		if refresh, err = s.get(ctx, KeyRefreshLegacy); err != nil {
			return nil, err
		}
	}

	pair := models.TokenPair{AccessToken: access, RefreshToken: refresh}
	if pair.Empty() {
		return nil, nil
	}

	if raw, err := s.get(ctx, keyExpires); err == nil && raw != "" {
		if ts, perr := time.Parse(time.RFC3339, raw); perr == nil {
			pair.ExpiresAt = ts
		}
	}
	return &pair, nil
}

func (s *SQLiteStore) Set(ctx context.Context, pair models.TokenPair) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin credentials tx: %w", err)
	}
	defer tx.Rollback()

	set := func(key, value string) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO credentials (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, key, value)
		if err != nil {
			return fmt.Errorf("failed to set credentials[%s]: %w", key, err)
		}
		return nil
	}

	if err := set(KeyAccess, pair.AccessToken); err != nil {
		return err
	}
	if err := set(KeyRefresh, pair.RefreshToken); err != nil {
		return err
	}
	expires := ""
	if !pair.ExpiresAt.IsZero() {
		expires = pair.ExpiresAt.UTC().Format(time.RFC3339)
	}
	if err := set(keyExpires, expires); err != nil {
		return err
	}
	// The legacy alias must not shadow the fresh pair on the next read.
	if _, err := tx.ExecContext(ctx, `DELETE FROM credentials WHERE key = ?`, KeyRefreshLegacy); err != nil {
		return fmt.Errorf("failed to drop legacy refresh key: %w", err)
	}

	return tx.Commit()
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM credentials`)
	if err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}
