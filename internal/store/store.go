// Package store provides SQLite persistence for cinelog: the session
// key-value table and the history of selected movies.
package store

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// schemaVersion is stored in PRAGMA user_version.
const schemaVersion = 2

// Store handles SQLite persistence. NOT an interface - concrete type.
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open creates a Store at dbPath, creating and migrating tables as needed.
// ":memory:" opens a private in-memory database.
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		// Shared cache so every pooled connection sees the same database.
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// migrations[i] upgrades a database from user_version i to i+1.
var migrations = []string{
	`
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`,
	`
	CREATE TABLE IF NOT EXISTS history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tmdb_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		year TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL,
		selected_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_history_selected ON history(selected_at DESC);
	CREATE INDEX IF NOT EXISTS idx_history_tmdb ON history(tmdb_id);
	`,
}

func (s *Store) migrate() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	for v := version; v < schemaVersion; v++ {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(migrations[v]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
		// PRAGMA does not accept bound parameters.
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("set user_version: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection.
// Thread-safe: acquires write lock to prevent closing during in-flight operations.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Load returns the values stored for keys. Missing keys are absent from
// the result.
func (s *Store) Load(keys ...string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	rows, err := s.db.Query(
		"SELECT key, value FROM kv WHERE key IN ("+placeholders(len(keys))+")", args...)
	if err != nil {
		return nil, fmt.Errorf("load keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// Save writes all values in one transaction.
func (s *Store) Save(values map[string]string) error {
	return s.Replace(values)
}

// Delete removes keys in one transaction.
func (s *Store) Delete(keys ...string) error {
	return s.Replace(nil, keys...)
}

// Replace writes values and removes keys in one transaction.
func (s *Store) Replace(values map[string]string, remove ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(values) == 0 && len(remove) == 0 {
		return nil
	}
	return s.inTx(func(tx *sql.Tx) error {
		if len(remove) > 0 {
			args := make([]any, len(remove))
			for i, k := range remove {
				args[i] = k
			}
			if _, err := tx.Exec("DELETE FROM kv WHERE key IN ("+placeholders(len(remove))+")", args...); err != nil {
				return fmt.Errorf("delete keys: %w", err)
			}
		}
		if len(values) == 0 {
			return nil
		}

		stmt, err := tx.Prepare(`
			INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		now := time.Now().UTC()
		for k, v := range values {
			if _, err := stmt.Exec(k, v, now); err != nil {
				return fmt.Errorf("save %q: %w", k, err)
			}
		}
		return nil
	})
}

// inTx runs fn in a transaction. Caller must hold s.mu.
func (s *Store) inTx(fn func(*sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
