package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/steadylabs/steward/internal/state"
	"github.com/steadylabs/steward/pkg/models"
)

// ErrDependenciesIncomplete indicates a milestone transition was attempted
// while a dependency is not completed.
var ErrDependenciesIncomplete = errors.New("milestone has incomplete dependencies")

// ErrReviewPending indicates a milestone flagged for human review was not
// approved, pausing the run.
var ErrReviewPending = errors.New("milestone awaits human review")

// NextMilestone returns the first milestone, in plan order, that is not
// completed and whose dependencies are all completed. It returns nil once
// every milestone is completed, or when the remaining milestones are all
// blocked on unfinished dependencies.
func (o *Orchestrator) NextMilestone(task *models.Task) *models.Milestone {
	for i := range task.Milestones {
		m := &task.Milestones[i]
		if m.Status == models.MilestoneCompleted {
			continue
		}
		if o.dependenciesCompleted(task, m) {
			return m
		}
	}
	return nil
}

// dependenciesCompleted reports whether every dependency of m is completed.
func (o *Orchestrator) dependenciesCompleted(task *models.Task, m *models.Milestone) bool {
	for _, dep := range m.DependsOn {
		d := task.Milestone(dep)
		if d == nil || d.Status != models.MilestoneCompleted {
			return false
		}
	}
	return true
}

// StartMilestone transitions a milestone to in_progress. The transition is
// rejected while any dependency is not completed; validation happens before
// anything is persisted.
func (o *Orchestrator) StartMilestone(task *models.Task, milestoneID string) error {
	if task.Completed() {
		return ErrTaskCompleted
	}
	m := task.Milestone(milestoneID)
	if m == nil {
		return fmt.Errorf("%w: milestone %s", state.ErrNotFound, milestoneID)
	}
	if m.Status == models.MilestoneCompleted {
		return fmt.Errorf("milestone %s is already completed", milestoneID)
	}
	if !o.dependenciesCompleted(task, m) {
		return fmt.Errorf("%w: %s", ErrDependenciesIncomplete, milestoneID)
	}

	m.Status = models.MilestoneInProgress
	if err := o.cfg.Store.SaveTask(task); err != nil {
		return fmt.Errorf("persist milestone start: %w", err)
	}
	debugLog("milestone %s started", milestoneID)
	return nil
}

// CompleteMilestone transitions a milestone to completed. Milestones
// flagged RequiresHumanReview complete only through the reviewer; a missing
// reviewer, a timeout, or a rejection leaves the milestone in progress and
// returns ErrReviewPending.
func (o *Orchestrator) CompleteMilestone(ctx context.Context, task *models.Task, milestoneID string) error {
	m := task.Milestone(milestoneID)
	if m == nil {
		return fmt.Errorf("%w: milestone %s", state.ErrNotFound, milestoneID)
	}

	if m.RequiresHumanReview {
		if err := o.reviewMilestone(ctx, m); err != nil {
			return err
		}
	}

	m.Status = models.MilestoneCompleted
	if err := o.cfg.Store.SaveTask(task); err != nil {
		return fmt.Errorf("persist milestone completion: %w", err)
	}
	if o.cfg.Checkpoints != nil {
		o.cfg.Checkpoints.RecordMilestoneComplete(milestoneID)
	}
	debugLog("milestone %s completed", milestoneID)
	return nil
}

// reviewMilestone blocks for the human reviewer within the configured
// timeout. Timeouts and failures resolve to pausing, never to silent
// completion.
func (o *Orchestrator) reviewMilestone(ctx context.Context, m *models.Milestone) error {
	if o.cfg.Reviewer == nil {
		debugLog("milestone %s requires review but no reviewer is configured", m.ID)
		return ErrReviewPending
	}

	reviewCtx, cancel := context.WithTimeout(ctx, o.cfg.ReviewTimeout)
	defer cancel()

	approved, feedback, err := o.cfg.Reviewer.ReviewMilestone(reviewCtx, *m)
	if err != nil {
		debugLog("milestone %s review failed: %v", m.ID, err)
		return fmt.Errorf("%w: %s", ErrReviewPending, m.ID)
	}
	if !approved {
		debugLog("milestone %s review rejected: %s", m.ID, feedback)
		return fmt.Errorf("%w: %s", ErrReviewPending, m.ID)
	}
	return nil
}

// ReadySubtasks returns the subtasks of a milestone, in plan order, that
// have not completed and whose dependencies have all completed.
func (o *Orchestrator) ReadySubtasks(m *models.Milestone) []models.Subtask {
	var ready []models.Subtask
	for _, st := range m.Subtasks {
		if o.completedSubtasks[st.ID] {
			continue
		}
		if o.subtaskReady(st) {
			ready = append(ready, st)
		}
	}
	return ready
}

// subtaskReady reports whether every dependency of st has completed.
func (o *Orchestrator) subtaskReady(st models.Subtask) bool {
	for _, dep := range st.DependsOn {
		if !o.completedSubtasks[dep] {
			return false
		}
	}
	return true
}

// MilestoneSubtasksComplete reports whether every subtask of m completed.
func (o *Orchestrator) MilestoneSubtasksComplete(m *models.Milestone) bool {
	for _, st := range m.Subtasks {
		if !o.completedSubtasks[st.ID] {
			return false
		}
	}
	return true
}
