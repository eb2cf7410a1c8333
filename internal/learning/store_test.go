package learning

import (
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "learnings.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRelevant(t *testing.T) {
	s := newTestStore(t)

	if err := s.Record("task-1", "retry backoff", "use exponential backoff for flaky network calls"); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := s.Record("task-1", "schema naming", "prefix migration files with timestamps"); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	got, err := s.Relevant("add backoff to the http client", 5)
	if err != nil {
		t.Fatalf("Relevant() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Relevant() returned %d learnings, want 1", len(got))
	}
	if got[0].Topic != "retry backoff" {
		t.Errorf("Relevant() topic = %q, want %q", got[0].Topic, "retry backoff")
	}
}

func TestRelevantNoMatch(t *testing.T) {
	s := newTestStore(t)

	if err := s.Record("task-1", "retry backoff", "use exponential backoff"); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	got, err := s.Relevant("rename the config package", 5)
	if err != nil {
		t.Fatalf("Relevant() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Relevant() returned %d learnings, want 0", len(got))
	}
}

func TestRelevantOrdersByTriggerCount(t *testing.T) {
	s := newTestStore(t)

	if err := s.Record("task-1", "caching strategy", "invalidate cache on write"); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := s.Record("task-2", "caching pitfalls", "cache keys must include tenant id"); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	// Retrieve one learning twice to raise its trigger count.
	for i := 0; i < 2; i++ {
		if _, err := s.Relevant("tenant cache keys", 5); err != nil {
			t.Fatalf("Relevant() error = %v", err)
		}
	}

	got, err := s.Relevant("review caching behavior", 5)
	if err != nil {
		t.Fatalf("Relevant() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Relevant() returned %d learnings, want 2", len(got))
	}
	if got[0].Topic != "caching pitfalls" {
		t.Errorf("Relevant() first topic = %q, want %q (higher trigger count)", got[0].Topic, "caching pitfalls")
	}
}

func TestRelevantLimit(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 4; i++ {
		if err := s.Record("task-1", "deployment", "deployment note"); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	got, err := s.Relevant("deployment checklist", 2)
	if err != nil {
		t.Fatalf("Relevant() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Relevant() returned %d learnings, want 2", len(got))
	}
}

func TestKeywords(t *testing.T) {
	got := keywords("Fix the retry logic in HTTP client.")
	want := []string{"fix", "retry", "logic", "http", "client"}
	if len(got) != len(want) {
		t.Fatalf("keywords() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("keywords()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
