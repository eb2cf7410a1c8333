package state

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/steadylabs/steward/pkg/models"
)

// ledgerPath returns the append-only decision log for a task. One JSON
// entry per line; entries are never deleted, only annotated in place when
// review status changes.
func (s *Store) ledgerPath(taskID string) string {
	return filepath.Join(s.dir, "ledger", taskID+".jsonl")
}

// AppendDecision appends a decision to the task's ledger in insertion
// order.
func (s *Store) AppendDecision(taskID string, d models.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal decision %s: %w", d.ID, err)
	}

	f, err := os.OpenFile(s.ledgerPath(taskID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open ledger for %s: %w", taskID, err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append decision %s: %w", d.ID, err)
	}
	return nil
}

// AnnotateDecision updates the review status and feedback of one ledger
// entry in place. Every other field of the entry is preserved. Returns
// ErrNotFound if the decision ID is not in the ledger.
func (s *Store) AnnotateDecision(taskID, decisionID string, status models.ReviewStatus, feedback string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	decisions, err := s.readLedger(taskID)
	if err != nil {
		return err
	}

	found := false
	for i := range decisions {
		if decisions[i].ID == decisionID {
			decisions[i].ReviewStatus = status
			if feedback != "" {
				decisions[i].HumanFeedback = feedback
			}
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: decision %s in ledger %s", ErrNotFound, decisionID, taskID)
	}

	var b strings.Builder
	for _, d := range decisions {
		line, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("marshal decision %s: %w", d.ID, err)
		}
		b.Write(line)
		b.WriteByte('\n')
	}

	path := s.ledgerPath(taskID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write ledger for %s: %w", taskID, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace ledger for %s: %w", taskID, err)
	}
	return nil
}

// LoadLedger returns every decision in the task's ledger in insertion
// order. A task with no ledger yet has an empty ledger.
func (s *Store) LoadLedger(taskID string) ([]models.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLedger(taskID)
}

// readLedger reads the ledger file without taking the lock.
func (s *Store) readLedger(taskID string) ([]models.Decision, error) {
	f, err := os.Open(s.ledgerPath(taskID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open ledger for %s: %w", taskID, err)
	}
	defer f.Close()

	var decisions []models.Decision
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var d models.Decision
		if err := json.Unmarshal([]byte(line), &d); err != nil {
			return nil, fmt.Errorf("decode ledger entry for %s: %w", taskID, err)
		}
		decisions = append(decisions, d)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ledger for %s: %w", taskID, err)
	}
	return decisions, nil
}
