package orchestrator

import (
	"errors"
	"testing"

	"github.com/steadylabs/steward/internal/state"
	"github.com/steadylabs/steward/pkg/models"
)

func planFixture() []models.Milestone {
	return []models.Milestone{
		{
			ID:     "ms-1",
			Name:   "Extract interfaces",
			Status: models.MilestonePending,
			Subtasks: []models.Subtask{
				{ID: "ms-1-st-1", Description: "define interfaces"},
				{ID: "ms-1-st-2", Description: "move implementations", DependsOn: []string{"ms-1-st-1"}},
			},
		},
		{
			ID:        "ms-2",
			Name:      "Migrate callers",
			Status:    models.MilestonePending,
			DependsOn: []string{"ms-1"},
			Subtasks: []models.Subtask{
				{ID: "ms-2-st-1", Description: "update call sites"},
			},
		},
	}
}

func newTestOrchestrator(t *testing.T, factory *fakeSessionFactory) (*Orchestrator, *state.Store) {
	t.Helper()
	store, err := state.Open(t.TempDir())
	if err != nil {
		t.Fatalf("state.Open() error = %v", err)
	}
	if factory == nil {
		factory = newFakeSessionFactory()
	}
	o, err := New(Config{Store: store, Sessions: factory})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return o, store
}

func createTestTask(t *testing.T, o *Orchestrator) *models.Task {
	t.Helper()
	task, err := o.CreateTask("migrate module X", planFixture(), nil)
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	return task
}

func TestAddSubtaskDuplicateID(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)
	task := createTestTask(t, o)

	err := o.AddSubtask(task, "ms-1", models.Subtask{ID: "ms-1-st-1"})
	if err == nil {
		t.Error("AddSubtask() with duplicate id succeeded, want error")
	}
}

func TestAddSubtaskUnknownDependency(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)
	task := createTestTask(t, o)

	err := o.AddSubtask(task, "ms-1", models.Subtask{ID: "ms-1-st-3", DependsOn: []string{"nope"}})
	if err == nil {
		t.Error("AddSubtask() with unknown dependency succeeded, want error")
	}
}

func TestRemoveSubtaskStripsDependencies(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)
	task := createTestTask(t, o)

	if err := o.RemoveSubtask(task, "ms-1", "ms-1-st-1"); err != nil {
		t.Fatalf("RemoveSubtask() error = %v", err)
	}

	m := task.Milestone("ms-1")
	if len(m.Subtasks) != 1 {
		t.Fatalf("milestone has %d subtasks, want 1", len(m.Subtasks))
	}
	if len(m.Subtasks[0].DependsOn) != 0 {
		t.Errorf("dependent subtask still lists removed dependency: %v", m.Subtasks[0].DependsOn)
	}
}

func TestRemoveSubtaskUnknown(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)
	task := createTestTask(t, o)

	err := o.RemoveSubtask(task, "ms-1", "missing")
	if !errors.Is(err, state.ErrNotFound) {
		t.Errorf("RemoveSubtask() error = %v, want ErrNotFound", err)
	}
}

func TestReorderSubtasksPermutationEnforced(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)
	task := createTestTask(t, o)

	cases := []struct {
		name  string
		order []string
	}{
		{"missing id", []string{"ms-1-st-1"}},
		{"unknown id", []string{"ms-1-st-1", "ms-1-st-9"}},
		{"duplicate id", []string{"ms-1-st-1", "ms-1-st-1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := o.ReorderSubtasks(task, "ms-1", tc.order)
			if !errors.Is(err, ErrBadReorder) {
				t.Errorf("ReorderSubtasks(%v) error = %v, want ErrBadReorder", tc.order, err)
			}
		})
	}

	if err := o.ReorderSubtasks(task, "ms-1", []string{"ms-1-st-2", "ms-1-st-1"}); err != nil {
		t.Fatalf("ReorderSubtasks() with valid permutation error = %v", err)
	}
	m := task.Milestone("ms-1")
	if m.Subtasks[0].ID != "ms-1-st-2" {
		t.Errorf("first subtask = %s, want ms-1-st-2", m.Subtasks[0].ID)
	}
}

func TestReorderMilestonesPermutationEnforced(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)
	task := createTestTask(t, o)

	cases := []struct {
		name  string
		order []string
	}{
		{"missing id", []string{"ms-1"}},
		{"unknown id", []string{"ms-1", "ms-9"}},
		{"duplicate id", []string{"ms-1", "ms-1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := o.ReorderMilestones(task, tc.order)
			if !errors.Is(err, ErrBadReorder) {
				t.Errorf("ReorderMilestones(%v) error = %v, want ErrBadReorder", tc.order, err)
			}
		})
	}

	if err := o.ReorderMilestones(task, []string{"ms-2", "ms-1"}); err != nil {
		t.Fatalf("ReorderMilestones() with valid permutation error = %v", err)
	}
	if task.Milestones[0].ID != "ms-2" {
		t.Errorf("first milestone = %s, want ms-2", task.Milestones[0].ID)
	}
}

func TestUpdateMilestoneCompletedRejected(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)
	task := createTestTask(t, o)
	task.Milestone("ms-1").Status = models.MilestoneCompleted

	err := o.UpdateMilestone(task, models.Milestone{ID: "ms-1", Name: "renamed"})
	if !errors.Is(err, ErrItemActive) {
		t.Errorf("UpdateMilestone() on completed milestone error = %v, want ErrItemActive", err)
	}
}

func TestRemoveMilestoneInProgressRejected(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)
	task := createTestTask(t, o)
	task.Milestone("ms-1").Status = models.MilestoneInProgress

	err := o.RemoveMilestone(task, "ms-1")
	if !errors.Is(err, ErrItemActive) {
		t.Errorf("RemoveMilestone() on in-progress milestone error = %v, want ErrItemActive", err)
	}
}

func TestRemoveMilestoneStripsDependencies(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)
	task := createTestTask(t, o)

	// ms-2 is pending too, so remove the dependency target.
	if err := o.RemoveMilestone(task, "ms-1"); err != nil {
		t.Fatalf("RemoveMilestone() error = %v", err)
	}
	if len(task.Milestones) != 1 {
		t.Fatalf("task has %d milestones, want 1", len(task.Milestones))
	}
	if len(task.Milestones[0].DependsOn) != 0 {
		t.Errorf("ms-2 still lists removed dependency: %v", task.Milestones[0].DependsOn)
	}
}

func TestApplyPlanAdjustmentsNotAtomic(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)
	task := createTestTask(t, o)

	err := o.ApplyPlanAdjustments(task, []PlanAdjustment{
		{Op: OpAddSubtask, MilestoneID: "ms-1", Subtask: &models.Subtask{ID: "ms-1-st-3", Description: "extra"}},
		{Op: OpRemoveSubtask, MilestoneID: "ms-1", SubtaskID: "missing"},
	})
	if err == nil {
		t.Fatal("ApplyPlanAdjustments() succeeded, want failure on second adjustment")
	}

	// The first mutation stays applied.
	if task.Milestone("ms-1").Subtask("ms-1-st-3") == nil {
		t.Error("first adjustment rolled back; batch should not be atomic")
	}
}

func TestGetPlanSnapshotIsDeepCopy(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)
	task := createTestTask(t, o)

	snap := o.GetPlanSnapshot(task)
	if err := o.RemoveSubtask(task, "ms-1", "ms-1-st-1"); err != nil {
		t.Fatalf("RemoveSubtask() error = %v", err)
	}

	if snap.Milestone("ms-1").Subtask("ms-1-st-1") == nil {
		t.Error("snapshot mutated by later plan change; want deep copy")
	}
	if len(snap.Milestone("ms-1").Subtasks[1].DependsOn) != 1 {
		t.Error("snapshot dependency list mutated by later plan change")
	}
}

func TestMutationRejectedOnCompletedTask(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)
	task := createTestTask(t, o)
	now := task.CreatedAt
	task.CompletedAt = &now

	if err := o.AddSubtask(task, "ms-1", models.Subtask{ID: "ms-1-st-3"}); !errors.Is(err, ErrTaskCompleted) {
		t.Errorf("AddSubtask() on completed task error = %v, want ErrTaskCompleted", err)
	}
}
