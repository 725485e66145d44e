// Package memory provides the append-only research cache: a SQLite store
// with full-text lookup and an asynchronous write-back queue.
package memory

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Cache is what the research worker needs from memory.
// Lookup returns up to limit stored texts relevant to query; Store appends one entry.
type Cache interface {
	Lookup(ctx context.Context, query string, limit int) ([]string, error)
	Store(ctx context.Context, text string) error
}

// Memory is a single stored research finding.
type Memory struct {
	ID        string
	Text      string
	CreatedAt time.Time
}

// SQLiteStore provides SQLite-backed storage for memories.
// Entries are never updated or deleted.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// NewSQLiteStore opens the database at dbPath, creating parent directories
// if needed. Call Migrate before use.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for concurrent reads
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &SQLiteStore{
		db:     conn,
		dbPath: dbPath,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Path returns the path to the database file.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// Store appends text as a new memory. Duplicate texts are stored again.
func (s *SQLiteStore) Store(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("store memory: empty text")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := "mem-" + uuid.New().String()[:8]
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO memories (id, text, created_at) VALUES (?, ?, ?)",
		id, text, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("store memory: %w", err)
	}
	return nil
}

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// formatTime formats a time.Time for SQLite storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime parses a time string from SQLite.
func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
