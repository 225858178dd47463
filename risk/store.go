package risk

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// Store persists the minimal gate state a restart must not forget: the peak
// balance, the start-of-day balance, and the kill-switch latch.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the SQLite-backed store at dbPath.
func OpenStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS gate_state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create gate_state table: %w", err)
	}

	return &Store{db: db}, nil
}

// Put upserts a key-value pair.
func (s *Store) Put(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO gate_state (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at",
		key, value, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert %s: %w", key, err)
	}
	return nil
}

// Get returns the stored value and whether the key exists.
func (s *Store) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM gate_state WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

// Delete removes a key. Clearing the kill-switch latch is an operator action
// done through this.
func (s *Store) Delete(key string) error {
	if _, err := s.db.Exec("DELETE FROM gate_state WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// PutFloat stores a float value under key.
func (s *Store) PutFloat(key string, v float64) error {
	return s.Put(key, strconv.FormatFloat(v, 'g', -1, 64))
}

// GetFloat reads a float value; ok is false when absent or unparsable.
func (s *Store) GetFloat(key string) (float64, bool, error) {
	raw, ok, err := s.Get(key)
	if err != nil || !ok {
		return 0, false, err
	}
	v, perr := strconv.ParseFloat(raw, 64)
	if perr != nil {
		return 0, false, nil
	}
	return v, true, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Persisted keys.
const (
	keyPeakBalance     = "peak_balance"
	keyDayStartBalance = "day_start_balance"
	keyDayStamp        = "day_stamp"
	keyKillSwitch      = "kill_switch"
)
