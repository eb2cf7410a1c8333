// Package state provides file-backed JSON persistence for tasks, session
// records, and decision ledgers. All access goes through a single
// mutex-guarded Store so the no-concurrent-writers invariant is enforced
// structurally rather than by convention.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/steadylabs/steward/pkg/models"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store owns the on-disk state directory. Every mutation is a
// read-modify-persist cycle serialized by the store's lock; the store is
// the single writer for snapshots, session records, and ledgers.
type Store struct {
	dir string
	mu  sync.Mutex
}

// Open opens (creating if needed) a state directory.
func Open(dir string) (*Store, error) {
	for _, sub := range []string{"tasks", "sessions", "ledger"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			return nil, fmt.Errorf("create state directory: %w", err)
		}
	}
	return &Store{dir: dir}, nil
}

// Dir returns the state directory path.
func (s *Store) Dir() string {
	return s.dir
}

// taskPath returns the snapshot file for a task.
func (s *Store) taskPath(taskID string) string {
	return filepath.Join(s.dir, "tasks", taskID+".json")
}

// sessionPath returns the record file for an in-flight subtask session.
func (s *Store) sessionPath(subtaskID string) string {
	return filepath.Join(s.dir, "sessions", subtaskID+".json")
}

// SaveTask rewrites the task snapshot wholesale. The write goes to a
// temporary file first and is renamed into place so a crash cannot leave a
// truncated snapshot.
func (s *Store) SaveTask(task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(s.taskPath(task.ID), task)
}

// LoadTask reads a task snapshot by ID.
func (s *Store) LoadTask(taskID string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var task models.Task
	if err := readJSON(s.taskPath(taskID), &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// ListTaskIDs returns the IDs of every persisted task snapshot.
func (s *Store) ListTaskIDs() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(filepath.Join(s.dir, "tasks"))
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	var ids []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".json"); ok {
			ids = append(ids, name)
		}
	}
	return ids, nil
}

// SaveSession writes the resumable record for an in-flight subtask session.
func (s *Store) SaveSession(rec *models.PersistedSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(s.sessionPath(rec.SubtaskID), rec)
}

// LoadSession reads a session record by subtask ID.
func (s *Store) LoadSession(subtaskID string) (*models.PersistedSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rec models.PersistedSession
	if err := readJSON(s.sessionPath(subtaskID), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteSession removes a session record. Deleting a record that does not
// exist is not an error; completion and cleanup can race benignly.
func (s *Store) DeleteSession(subtaskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.sessionPath(subtaskID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete session record: %w", err)
	}
	return nil
}

// ListSessions returns every persisted session record for a task. An empty
// taskID returns all records.
func (s *Store) ListSessions(taskID string) ([]models.PersistedSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(filepath.Join(s.dir, "sessions"))
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	var recs []models.PersistedSession
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		var rec models.PersistedSession
		if err := readJSON(filepath.Join(s.dir, "sessions", e.Name()), &rec); err != nil {
			// A half-written record is stale, not fatal.
			continue
		}
		if taskID == "" || rec.TaskID == taskID {
			recs = append(recs, rec)
		}
	}
	return recs, nil
}

// writeJSON marshals v and atomically replaces path with the result.
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

// readJSON reads path into v, mapping a missing file to ErrNotFound.
func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, filepath.Base(path))
		}
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}
