// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteTier is the durable second tier, backed by a WAL-mode SQLite file so
// cached answers survive process restarts.
type SQLiteTier struct {
	mu  sync.Mutex
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteTier opens or creates the durable tier database at path,
// creating parent directories and the schema as needed.
func NewSQLiteTier(path string) (*SQLiteTier, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS cache_entries (
		key TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		created_at INTEGER NOT NULL,
		ttl_ns INTEGER NOT NULL,
		access_count INTEGER NOT NULL DEFAULT 0,
		last_access INTEGER NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}

	return &SQLiteTier{db: db, now: time.Now}, nil
}

// Close releases the database connection.
func (s *SQLiteTier) Close() error {
	return s.db.Close()
}

func (s *SQLiteTier) Name() string { return "durable" }

func (s *SQLiteTier) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var payload []byte
	var createdNs, ttlNs int64
	row := s.db.QueryRow(
		`SELECT payload, created_at, ttl_ns FROM cache_entries WHERE key = ?`, key)
	if err := row.Scan(&payload, &createdNs, &ttlNs); err != nil {
		return nil, false
	}

	now := s.now()
	e := Entry{CreatedAt: time.Unix(0, createdNs), TTL: time.Duration(ttlNs)}
	if e.Expired(now) {
		s.db.Exec(`DELETE FROM cache_entries WHERE key = ?`, key)
		return nil, false
	}

	s.db.Exec(
		`UPDATE cache_entries SET access_count = access_count + 1, last_access = ? WHERE key = ?`,
		now.UnixNano(), key)
	return payload, true
}

func (s *SQLiteTier) Set(key string, payload []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UnixNano()
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO cache_entries (key, payload, created_at, ttl_ns, access_count, last_access)
		 VALUES (?, ?, ?, ?, 0, ?)`,
		key, payload, now, int64(ttl), now)
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

func (s *SQLiteTier) Invalidate(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting cache entry: %w", err)
	}
	return nil
}

func (s *SQLiteTier) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM cache_entries`).Scan(&n); err != nil {
		return 0
	}
	return n
}

// Ping reports whether the backing database is reachable.
func (s *SQLiteTier) Ping() error {
	return s.db.Ping()
}
