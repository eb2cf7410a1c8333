// Package learning provides SQLite-backed storage of learnings captured
// during task execution. Relevant learnings are retrieved by keyword and
// injected into subtask session contexts.
package learning

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// Learning is one captured piece of actionable knowledge.
type Learning struct {
	// ID is the unique identifier.
	ID string
	// TaskID is the task the learning was captured during.
	TaskID string
	// Topic is a short keyword-bearing title.
	Topic string
	// Content is the learning itself.
	Content string
	// CreatedAt is when the learning was recorded.
	CreatedAt time.Time
	// TriggerCount is how many times the learning was retrieved.
	TriggerCount int
}

// Provider is the retrieval interface the orchestrator depends on.
type Provider interface {
	// Relevant returns learnings matching the description, most
	// frequently triggered first, capped at limit.
	Relevant(description string, limit int) ([]Learning, error)
	// Record stores a new learning.
	Record(taskID, topic, content string) error
	// Close releases the store.
	Close() error
}

// Store provides SQLite-backed learning storage.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// DefaultDBPath returns the project-local learnings database path.
func DefaultDBPath(projectRoot string) string {
	return filepath.Join(projectRoot, ".steward", "learnings.db")
}

const schema = `
CREATE TABLE IF NOT EXISTS learnings (
	id TEXT PRIMARY KEY,
	task_id TEXT NOT NULL,
	topic TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at TEXT NOT NULL,
	trigger_count INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_learnings_topic ON learnings(topic);
`

// Open opens (creating if needed) a learning store at dbPath.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL mode for concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Record stores a new learning.
func (s *Store) Record(taskID, topic, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO learnings (id, task_id, topic, content, created_at, trigger_count)
		VALUES (?, ?, ?, ?, ?, 0)
	`, uuid.New().String(), taskID, topic, content, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record learning: %w", err)
	}
	return nil
}

// Relevant returns learnings whose topic or content matches a keyword of
// the description, most frequently triggered first. Matches have their
// trigger count incremented.
func (s *Store) Relevant(description string, limit int) ([]Learning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 5
	}

	seen := make(map[string]Learning)
	for _, kw := range keywords(description) {
		rows, err := s.db.Query(`
			SELECT id, task_id, topic, content, created_at, trigger_count
			FROM learnings
			WHERE topic LIKE ? OR content LIKE ?
		`, "%"+kw+"%", "%"+kw+"%")
		if err != nil {
			return nil, fmt.Errorf("query learnings: %w", err)
		}
		if err := scanInto(rows, seen); err != nil {
			return nil, err
		}
	}

	matches := make([]Learning, 0, len(seen))
	for _, l := range seen {
		matches = append(matches, l)
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].TriggerCount != matches[j].TriggerCount {
			return matches[i].TriggerCount > matches[j].TriggerCount
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	for _, l := range matches {
		if _, err := s.db.Exec("UPDATE learnings SET trigger_count = trigger_count + 1 WHERE id = ?", l.ID); err != nil {
			return nil, fmt.Errorf("record trigger: %w", err)
		}
	}
	return matches, nil
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// scanInto collects rows into the dedup map.
func scanInto(rows *sql.Rows, seen map[string]Learning) error {
	defer rows.Close()
	for rows.Next() {
		var l Learning
		var createdAt string
		if err := rows.Scan(&l.ID, &l.TaskID, &l.Topic, &l.Content, &createdAt, &l.TriggerCount); err != nil {
			return fmt.Errorf("scan learning: %w", err)
		}
		l.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		seen[l.ID] = l
	}
	return rows.Err()
}

// stopWords are too common to be useful match keywords.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"to": true, "of": true, "in": true, "for": true, "with": true,
	"on": true, "is": true, "it": true, "this": true, "that": true,
}

// keywords extracts match keywords from a description.
func keywords(description string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(description)) {
		w = strings.Trim(w, ".,;:\"'`()[]{}!?")
		if len(w) < 3 || stopWords[w] {
			continue
		}
		out = append(out, w)
	}
	return out
}

// Verify Store implements Provider at compile time.
var _ Provider = (*Store)(nil)
