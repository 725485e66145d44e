package memory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Lookup returns up to limit memory texts ranked by relevance to query.
// A query with no searchable terms returns no results.
func (s *SQLiteStore) Lookup(ctx context.Context, query string, limit int) ([]string, error) {
	match := matchExpr(query)
	if match == "" || limit <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT m.text
		FROM memories m
		JOIN memories_fts fts ON m.rowid = fts.rowid
		WHERE memories_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("lookup memories: %w", err)
	}
	defer rows.Close()

	var texts []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		texts = append(texts, text)
	}
	return texts, rows.Err()
}

// Recent returns the newest memories, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]*Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, text, created_at
		FROM memories
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	defer rows.Close()

	return scanMemories(rows)
}

// Stats summarizes the store contents.
type Stats struct {
	Count  int
	Oldest time.Time
	Newest time.Time
}

// Stats returns the number of memories and the time range they span.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		count          int
		oldest, newest sql.NullString
	)
	row := s.db.QueryRowContext(ctx, "SELECT COUNT(*), MIN(created_at), MAX(created_at) FROM memories")
	if err := row.Scan(&count, &oldest, &newest); err != nil {
		return nil, fmt.Errorf("memory stats: %w", err)
	}

	stats := &Stats{Count: count}
	if oldest.Valid {
		stats.Oldest, _ = parseTime(oldest.String)
	}
	if newest.Valid {
		stats.Newest, _ = parseTime(newest.String)
	}
	return stats, nil
}

func scanMemories(rows *sql.Rows) ([]*Memory, error) {
	var memories []*Memory
	for rows.Next() {
		var (
			m         Memory
			createdAt string
		)
		if err := rows.Scan(&m.ID, &m.Text, &createdAt); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		t, err := parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		m.CreatedAt = t
		memories = append(memories, &m)
	}
	return memories, rows.Err()
}

// matchExpr turns free text into an FTS5 query: each distinct word quoted,
// joined with OR so any shared term scores.
func matchExpr(query string) string {
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]bool, len(words))
	terms := make([]string, 0, len(words))
	for _, w := range words {
		if seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, `"`+w+`"`)
	}
	return strings.Join(terms, " OR ")
}
