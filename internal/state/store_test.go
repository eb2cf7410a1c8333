package state

import (
	"errors"
	"testing"
	"time"

	"github.com/steadylabs/steward/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store
}

func TestSaveAndLoadTask(t *testing.T) {
	store := newTestStore(t)

	task := &models.Task{
		ID:          "task-1",
		Description: "migrate module X",
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
		Milestones: []models.Milestone{
			{
				ID:     "ms-1",
				Name:   "Prepare",
				Status: models.MilestonePending,
				Subtasks: []models.Subtask{
					{ID: "ms-1-st-1", Description: "inventory callers"},
					{ID: "ms-1-st-2", Description: "add shims", DependsOn: []string{"ms-1-st-1"}},
				},
			},
			{
				ID:        "ms-2",
				Name:      "Cut over",
				Status:    models.MilestonePending,
				DependsOn: []string{"ms-1"},
			},
		},
		PinnedContext: []models.ContextItem{
			{Key: "tests", Content: "run the full suite", Reason: "regression-prone area"},
		},
	}

	if err := store.SaveTask(task); err != nil {
		t.Fatalf("save task: %v", err)
	}

	got, err := store.LoadTask("task-1")
	if err != nil {
		t.Fatalf("load task: %v", err)
	}

	if got.ID != task.ID || got.Description != task.Description {
		t.Errorf("task identity mismatch: %+v", got)
	}
	if len(got.Milestones) != 2 {
		t.Fatalf("expected 2 milestones, got %d", len(got.Milestones))
	}
	if len(got.Milestones[0].Subtasks) != 2 {
		t.Errorf("expected 2 subtasks, got %d", len(got.Milestones[0].Subtasks))
	}
	if got.Milestones[0].Subtasks[1].DependsOn[0] != "ms-1-st-1" {
		t.Errorf("subtask dependency not preserved: %+v", got.Milestones[0].Subtasks[1])
	}
	if got.Milestones[1].DependsOn[0] != "ms-1" {
		t.Errorf("milestone dependency not preserved: %+v", got.Milestones[1])
	}
	if len(got.PinnedContext) != 1 || got.PinnedContext[0].Key != "tests" {
		t.Errorf("pinned context not preserved: %+v", got.PinnedContext)
	}
}

func TestLoadTaskNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.LoadTask("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveTaskRewritesWholesale(t *testing.T) {
	store := newTestStore(t)

	task := &models.Task{ID: "task-1", Description: "first"}
	if err := store.SaveTask(task); err != nil {
		t.Fatalf("save: %v", err)
	}

	task.Description = "second"
	task.TotalCost = 1.25
	if err := store.SaveTask(task); err != nil {
		t.Fatalf("resave: %v", err)
	}

	got, err := store.LoadTask("task-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Description != "second" || got.TotalCost != 1.25 {
		t.Errorf("snapshot not rewritten: %+v", got)
	}
}

func TestSessionRecordLifecycle(t *testing.T) {
	store := newTestStore(t)

	rec := &models.PersistedSession{
		SubtaskID:      "ms-1-st-1",
		SessionID:      "sess-abc",
		Branch:         "subtask/ms-1/ms-1-st-1",
		BaseCommit:     "deadbeef",
		Status:         models.SessionInProgress,
		LastCheckpoint: time.Now().UTC().Truncate(time.Second),
		MilestoneID:    "ms-1",
		TaskID:         "task-1",
	}

	if err := store.SaveSession(rec); err != nil {
		t.Fatalf("save session: %v", err)
	}

	got, err := store.LoadSession("ms-1-st-1")
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if got.SessionID != "sess-abc" || got.Status != models.SessionInProgress {
		t.Errorf("unexpected session record: %+v", got)
	}

	if err := store.DeleteSession("ms-1-st-1"); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, err := store.LoadSession("ms-1-st-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	// Deleting an already-removed record is not an error.
	if err := store.DeleteSession("ms-1-st-1"); err != nil {
		t.Errorf("second delete should be a no-op, got %v", err)
	}
}

func TestListSessionsFiltersByTask(t *testing.T) {
	store := newTestStore(t)

	recs := []*models.PersistedSession{
		{SubtaskID: "ms-1-st-1", TaskID: "task-1", Status: models.SessionInProgress},
		{SubtaskID: "ms-1-st-2", TaskID: "task-1", Status: models.SessionFailed},
		{SubtaskID: "ms-9-st-1", TaskID: "task-2", Status: models.SessionInProgress},
	}
	for _, r := range recs {
		if err := store.SaveSession(r); err != nil {
			t.Fatalf("save session %s: %v", r.SubtaskID, err)
		}
	}

	got, err := store.ListSessions("task-1")
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 records for task-1, got %d", len(got))
	}

	all, err := store.ListSessions("")
	if err != nil {
		t.Fatalf("list all sessions: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 records total, got %d", len(all))
	}
}
