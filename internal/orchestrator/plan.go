package orchestrator

import (
	"errors"
	"fmt"

	"github.com/steadylabs/steward/internal/state"
	"github.com/steadylabs/steward/pkg/models"
)

// ErrItemActive indicates a mutation targeted an in-progress or completed
// item.
var ErrItemActive = errors.New("cannot mutate an in-progress or completed item")

// ErrBadReorder indicates a reorder whose id set does not exactly match the
// existing items.
var ErrBadReorder = errors.New("reorder must be a permutation of the existing ids")

// AddMilestone appends a milestone to the plan. The id must be unique
// within the task.
func (o *Orchestrator) AddMilestone(task *models.Task, m models.Milestone) error {
	if task.Completed() {
		return ErrTaskCompleted
	}
	if task.Milestone(m.ID) != nil {
		return fmt.Errorf("milestone id %q already exists", m.ID)
	}
	for _, dep := range m.DependsOn {
		if task.Milestone(dep) == nil {
			return fmt.Errorf("milestone %s depends on unknown milestone %q", m.ID, dep)
		}
	}
	if m.Status == "" {
		m.Status = models.MilestonePending
	}

	task.Milestones = append(task.Milestones, m)
	return o.persistPlan(task, "added milestone %s", m.ID)
}

// UpdateMilestone replaces a pending milestone's name, description,
// dependencies, completion criteria, and review flag. Completed and
// in-progress milestones cannot be updated.
func (o *Orchestrator) UpdateMilestone(task *models.Task, updated models.Milestone) error {
	if task.Completed() {
		return ErrTaskCompleted
	}
	m := task.Milestone(updated.ID)
	if m == nil {
		return fmt.Errorf("%w: milestone %s", state.ErrNotFound, updated.ID)
	}
	if m.Status == models.MilestoneInProgress || m.Status == models.MilestoneCompleted {
		return fmt.Errorf("%w: milestone %s", ErrItemActive, updated.ID)
	}
	for _, dep := range updated.DependsOn {
		if dep == updated.ID {
			return fmt.Errorf("milestone %s cannot depend on itself", updated.ID)
		}
		if task.Milestone(dep) == nil {
			return fmt.Errorf("milestone %s depends on unknown milestone %q", updated.ID, dep)
		}
	}

	m.Name = updated.Name
	m.Description = updated.Description
	m.DependsOn = updated.DependsOn
	m.CompletionCriteria = updated.CompletionCriteria
	m.RequiresHumanReview = updated.RequiresHumanReview
	return o.persistPlan(task, "updated milestone %s", updated.ID)
}

// RemoveMilestone removes a pending milestone and strips it from every
// other milestone's dependency list.
func (o *Orchestrator) RemoveMilestone(task *models.Task, milestoneID string) error {
	if task.Completed() {
		return ErrTaskCompleted
	}
	idx := -1
	for i := range task.Milestones {
		if task.Milestones[i].ID == milestoneID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: milestone %s", state.ErrNotFound, milestoneID)
	}
	if task.Milestones[idx].Status != models.MilestonePending {
		return fmt.Errorf("%w: milestone %s", ErrItemActive, milestoneID)
	}

	task.Milestones = append(task.Milestones[:idx], task.Milestones[idx+1:]...)
	for i := range task.Milestones {
		task.Milestones[i].DependsOn = stripID(task.Milestones[i].DependsOn, milestoneID)
	}
	return o.persistPlan(task, "removed milestone %s", milestoneID)
}

// ReorderMilestones reorders the plan's milestones. The new order must be
// an exact permutation of the existing milestone ids.
func (o *Orchestrator) ReorderMilestones(task *models.Task, order []string) error {
	if task.Completed() {
		return ErrTaskCompleted
	}
	if err := checkPermutation(order, milestoneIDs(task)); err != nil {
		return err
	}

	reordered := make([]models.Milestone, 0, len(order))
	for _, id := range order {
		reordered = append(reordered, *task.Milestone(id))
	}
	task.Milestones = reordered
	return o.persistPlan(task, "reordered %d milestones", len(order))
}

// AddSubtask appends a subtask to a milestone. The id must be unique
// within the milestone and dependencies must reference existing subtasks.
func (o *Orchestrator) AddSubtask(task *models.Task, milestoneID string, st models.Subtask) error {
	if task.Completed() {
		return ErrTaskCompleted
	}
	m := task.Milestone(milestoneID)
	if m == nil {
		return fmt.Errorf("%w: milestone %s", state.ErrNotFound, milestoneID)
	}
	if m.Status == models.MilestoneCompleted {
		return fmt.Errorf("%w: milestone %s", ErrItemActive, milestoneID)
	}
	if m.Subtask(st.ID) != nil {
		return fmt.Errorf("subtask id %q already exists in milestone %s", st.ID, milestoneID)
	}
	for _, dep := range st.DependsOn {
		if m.Subtask(dep) == nil {
			return fmt.Errorf("subtask %s depends on unknown subtask %q", st.ID, dep)
		}
	}

	m.Subtasks = append(m.Subtasks, st)
	return o.persistPlan(task, "added subtask %s to milestone %s", st.ID, milestoneID)
}

// UpdateSubtask replaces a subtask's description, acceptance criteria,
// scope, and dependencies. Subtasks that have started or completed cannot
// be updated.
func (o *Orchestrator) UpdateSubtask(task *models.Task, milestoneID string, updated models.Subtask) error {
	if task.Completed() {
		return ErrTaskCompleted
	}
	m := task.Milestone(milestoneID)
	if m == nil {
		return fmt.Errorf("%w: milestone %s", state.ErrNotFound, milestoneID)
	}
	st := m.Subtask(updated.ID)
	if st == nil {
		return fmt.Errorf("%w: subtask %s", state.ErrNotFound, updated.ID)
	}
	if o.subtaskActive(updated.ID) {
		return fmt.Errorf("%w: subtask %s", ErrItemActive, updated.ID)
	}
	for _, dep := range updated.DependsOn {
		if dep == updated.ID {
			return fmt.Errorf("subtask %s cannot depend on itself", updated.ID)
		}
		if m.Subtask(dep) == nil {
			return fmt.Errorf("subtask %s depends on unknown subtask %q", updated.ID, dep)
		}
	}

	st.Description = updated.Description
	st.AcceptanceCriteria = updated.AcceptanceCriteria
	st.Scope = updated.Scope
	st.DependsOn = updated.DependsOn
	return o.persistPlan(task, "updated subtask %s", updated.ID)
}

// RemoveSubtask removes a subtask and strips it from every sibling's
// dependency list.
func (o *Orchestrator) RemoveSubtask(task *models.Task, milestoneID, subtaskID string) error {
	if task.Completed() {
		return ErrTaskCompleted
	}
	m := task.Milestone(milestoneID)
	if m == nil {
		return fmt.Errorf("%w: milestone %s", state.ErrNotFound, milestoneID)
	}
	idx := -1
	for i := range m.Subtasks {
		if m.Subtasks[i].ID == subtaskID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: subtask %s", state.ErrNotFound, subtaskID)
	}
	if o.subtaskActive(subtaskID) {
		return fmt.Errorf("%w: subtask %s", ErrItemActive, subtaskID)
	}

	m.Subtasks = append(m.Subtasks[:idx], m.Subtasks[idx+1:]...)
	for i := range m.Subtasks {
		m.Subtasks[i].DependsOn = stripID(m.Subtasks[i].DependsOn, subtaskID)
	}
	return o.persistPlan(task, "removed subtask %s", subtaskID)
}

// ReorderSubtasks reorders a milestone's subtasks. The new order must be an
// exact permutation of the existing subtask ids.
func (o *Orchestrator) ReorderSubtasks(task *models.Task, milestoneID string, order []string) error {
	if task.Completed() {
		return ErrTaskCompleted
	}
	m := task.Milestone(milestoneID)
	if m == nil {
		return fmt.Errorf("%w: milestone %s", state.ErrNotFound, milestoneID)
	}
	existing := make([]string, len(m.Subtasks))
	for i, st := range m.Subtasks {
		existing[i] = st.ID
	}
	if err := checkPermutation(order, existing); err != nil {
		return err
	}

	reordered := make([]models.Subtask, 0, len(order))
	for _, id := range order {
		reordered = append(reordered, *m.Subtask(id))
	}
	m.Subtasks = reordered
	return o.persistPlan(task, "reordered %d subtasks in milestone %s", len(order), milestoneID)
}

// AdjustmentOp names one plan-mutation operation.
type AdjustmentOp string

const (
	OpAddMilestone     AdjustmentOp = "add_milestone"
	OpUpdateMilestone  AdjustmentOp = "update_milestone"
	OpRemoveMilestone  AdjustmentOp = "remove_milestone"
	OpReorderMilestone AdjustmentOp = "reorder_milestones"
	OpAddSubtask       AdjustmentOp = "add_subtask"
	OpUpdateSubtask    AdjustmentOp = "update_subtask"
	OpRemoveSubtask    AdjustmentOp = "remove_subtask"
	OpReorderSubtasks  AdjustmentOp = "reorder_subtasks"
)

// PlanAdjustment is one mutation in an ApplyPlanAdjustments batch.
type PlanAdjustment struct {
	// Op selects the mutation.
	Op AdjustmentOp `json:"op"`
	// MilestoneID targets a milestone for subtask ops and milestone
	// removal.
	MilestoneID string `json:"milestone_id,omitempty"`
	// SubtaskID targets a subtask for removal.
	SubtaskID string `json:"subtask_id,omitempty"`
	// Milestone carries the payload for milestone add/update.
	Milestone *models.Milestone `json:"milestone,omitempty"`
	// Subtask carries the payload for subtask add/update.
	Subtask *models.Subtask `json:"subtask,omitempty"`
	// Order carries the payload for reorders.
	Order []string `json:"order,omitempty"`
}

// ApplyPlanAdjustments applies mutations strictly in order. The batch is
// not atomic: a failure partway through leaves prior mutations applied and
// persisted. Callers needing atomicity must snapshot via GetPlanSnapshot
// first.
func (o *Orchestrator) ApplyPlanAdjustments(task *models.Task, adjustments []PlanAdjustment) error {
	for i, adj := range adjustments {
		var err error
		switch adj.Op {
		case OpAddMilestone, OpUpdateMilestone:
			if adj.Milestone == nil {
				err = fmt.Errorf("%s requires a milestone payload", adj.Op)
			} else if adj.Op == OpAddMilestone {
				err = o.AddMilestone(task, *adj.Milestone)
			} else {
				err = o.UpdateMilestone(task, *adj.Milestone)
			}
		case OpRemoveMilestone:
			err = o.RemoveMilestone(task, adj.MilestoneID)
		case OpReorderMilestone:
			err = o.ReorderMilestones(task, adj.Order)
		case OpAddSubtask, OpUpdateSubtask:
			if adj.Subtask == nil {
				err = fmt.Errorf("%s requires a subtask payload", adj.Op)
			} else if adj.Op == OpAddSubtask {
				err = o.AddSubtask(task, adj.MilestoneID, *adj.Subtask)
			} else {
				err = o.UpdateSubtask(task, adj.MilestoneID, *adj.Subtask)
			}
		case OpRemoveSubtask:
			err = o.RemoveSubtask(task, adj.MilestoneID, adj.SubtaskID)
		case OpReorderSubtasks:
			err = o.ReorderSubtasks(task, adj.MilestoneID, adj.Order)
		default:
			err = fmt.Errorf("unknown plan adjustment op %q", adj.Op)
		}
		if err != nil {
			return fmt.Errorf("adjustment %d (%s): %w", i, adj.Op, err)
		}
	}
	return nil
}

// GetPlanSnapshot returns a deep copy of the task's plan, safe to hold
// across later mutations.
func (o *Orchestrator) GetPlanSnapshot(task *models.Task) *models.Task {
	snap := *task
	snap.Milestones = make([]models.Milestone, len(task.Milestones))
	for i, m := range task.Milestones {
		snap.Milestones[i] = m
		snap.Milestones[i].DependsOn = append([]string(nil), m.DependsOn...)
		snap.Milestones[i].CompletionCriteria = append([]string(nil), m.CompletionCriteria...)
		snap.Milestones[i].Subtasks = make([]models.Subtask, len(m.Subtasks))
		for j, st := range m.Subtasks {
			snap.Milestones[i].Subtasks[j] = st
			snap.Milestones[i].Subtasks[j].DependsOn = append([]string(nil), st.DependsOn...)
			snap.Milestones[i].Subtasks[j].Scope.ExpectedFiles = append([]string(nil), st.Scope.ExpectedFiles...)
			snap.Milestones[i].Subtasks[j].Scope.ForbiddenPaths = append([]string(nil), st.Scope.ForbiddenPaths...)
		}
	}
	snap.PinnedContext = append([]models.ContextItem(nil), task.PinnedContext...)
	return &snap
}

// subtaskActive reports whether a subtask has completed or has an in-flight
// session record.
func (o *Orchestrator) subtaskActive(subtaskID string) bool {
	if o.completedSubtasks[subtaskID] {
		return true
	}
	if _, err := o.cfg.Store.LoadSession(subtaskID); err == nil {
		return true
	}
	return false
}

// persistPlan saves the task after a successful mutation.
func (o *Orchestrator) persistPlan(task *models.Task, format string, args ...interface{}) error {
	if err := o.cfg.Store.SaveTask(task); err != nil {
		return fmt.Errorf("persist plan: %w", err)
	}
	debugLog(format, args...)
	return nil
}

func stripID(ids []string, remove string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id != remove {
			out = append(out, id)
		}
	}
	return out
}

// milestoneIDs returns the plan's milestone ids in plan order.
func milestoneIDs(task *models.Task) []string {
	ids := make([]string, len(task.Milestones))
	for i, m := range task.Milestones {
		ids[i] = m.ID
	}
	return ids
}

// checkPermutation verifies order contains exactly the existing ids.
func checkPermutation(order, existing []string) error {
	if len(order) != len(existing) {
		return fmt.Errorf("%w: got %d ids, want %d", ErrBadReorder, len(order), len(existing))
	}
	existingSet := make(map[string]bool, len(existing))
	for _, id := range existing {
		existingSet[id] = true
	}
	seen := make(map[string]bool, len(order))
	for _, id := range order {
		if !existingSet[id] {
			return fmt.Errorf("%w: unknown id %q", ErrBadReorder, id)
		}
		if seen[id] {
			return fmt.Errorf("%w: duplicate id %q", ErrBadReorder, id)
		}
		seen[id] = true
	}
	return nil
}
