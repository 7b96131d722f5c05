package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// KVStore persists session keys in the session_kv table. It satisfies
// session.KVStore.
type KVStore struct {
	db *sqlx.DB
}

// KVEntry is one row of session_kv
type KVEntry struct {
	Key       string `db:"key" json:"key"`
	Value     string `db:"value" json:"value"`
	UpdatedAt int64  `db:"updated_at" json:"updated_at"`
}

func NewKVStore(db *sqlx.DB) *KVStore {
	return &KVStore{db: db}
}

func (s *KVStore) Get(key string) (string, bool, error) {
	var value string
	err := s.db.Get(&value, `SELECT value FROM session_kv WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

func (s *KVStore) Set(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO session_kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *KVStore) Remove(key string) error {
	if _, err := s.db.Exec(`DELETE FROM session_kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

// Entries lists every stored key, ordered by key
func (s *KVStore) Entries() ([]KVEntry, error) {
	var entries []KVEntry
	if err := s.db.Select(&entries, `SELECT key, value, updated_at FROM session_kv ORDER BY key`); err != nil {
		return nil, fmt.Errorf("failed to list session keys: %w", err)
	}
	return entries, nil
}
