// Package snapshot is the durable local persistence adapter: every store
// serializes its full collection (or ledger) to a namespaced key-value slot
// in an embedded SQLite database and restores it at process start. A
// missing or corrupt slot loads as empty initial state, never an error.
package snapshot

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Store is a durable key-value snapshot store.
type Store struct {
	conn   *sql.DB
	logger zerolog.Logger
}

// Open creates (or opens) the snapshot database at path.
// The caller must Close it when done.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping snapshot database: %w", err)
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS snapshots (
			key   TEXT PRIMARY KEY,
			value BLOB NOT NULL
		)
	`
	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create snapshot schema: %w", err)
	}

	return &Store{
		conn:   conn,
		logger: logger.With().Str("service", "SnapshotStore").Logger(),
	}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Put stores the raw payload under key, replacing any previous value.
func (s *Store) Put(key string, value []byte) error {
	const q = `INSERT INTO snapshots (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value`
	if _, err := s.conn.Exec(q, key, value); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", key, err)
	}
	return nil
}

// Get returns the payload stored under key, or nil when absent.
func (s *Store) Get(key string) ([]byte, error) {
	const q = `SELECT value FROM snapshots WHERE key = ?`
	var value []byte
	err := s.conn.QueryRow(q, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", key, err)
	}
	return value, nil
}

// Delete removes the slot for key. Deleting an absent key is a no-op.
func (s *Store) Delete(key string) error {
	const q = `DELETE FROM snapshots WHERE key = ?`
	if _, err := s.conn.Exec(q, key); err != nil {
		return fmt.Errorf("failed to delete snapshot %s: %w", key, err)
	}
	return nil
}

// SaveJSON marshals v and stores it under key. Serialization failures are
// logged and swallowed so snapshotting never blocks a mutation.
func (s *Store) SaveJSON(key string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Failed to marshal snapshot")
		return
	}
	if err := s.Put(key, payload); err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Failed to persist snapshot")
	}
}

// LoadJSON restores the value stored under key into v. It returns false
// when the slot is absent or corrupt; corrupt slots are logged and treated
// as empty state.
func (s *Store) LoadJSON(key string, v any) bool {
	payload, err := s.Get(key)
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Failed to load snapshot")
		return false
	}
	if payload == nil {
		return false
	}
	if err := json.Unmarshal(payload, v); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Corrupt snapshot; starting from empty state")
		return false
	}
	return true
}
