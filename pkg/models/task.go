// Package models defines the shared types for the Steward control plane.
package models

import "time"

// MilestoneStatus represents the current state of a milestone.
type MilestoneStatus string

const (
	// MilestonePending indicates the milestone has not started.
	MilestonePending MilestoneStatus = "pending"
	// MilestoneInProgress indicates the milestone is being worked on.
	MilestoneInProgress MilestoneStatus = "in_progress"
	// MilestoneCompleted indicates the milestone finished successfully.
	MilestoneCompleted MilestoneStatus = "completed"
	// MilestoneBlocked indicates the milestone cannot proceed.
	MilestoneBlocked MilestoneStatus = "blocked"
)

// Valid returns true if the status is a known value.
func (s MilestoneStatus) Valid() bool {
	switch s {
	case MilestonePending, MilestoneInProgress, MilestoneCompleted, MilestoneBlocked:
		return true
	default:
		return false
	}
}

// ContextItem is a pinned piece of context carried into every subtask
// session as a standing instruction.
type ContextItem struct {
	// Key identifies the context item.
	Key string `json:"key"`
	// Content is the instruction or fact itself.
	Content string `json:"content"`
	// Reason records why the item was pinned.
	Reason string `json:"reason,omitempty"`
}

// Scope declares what a subtask is expected to touch and its resource limits.
type Scope struct {
	// ExpectedFiles lists files or components the subtask should modify.
	ExpectedFiles []string `json:"expected_files,omitempty"`
	// ForbiddenPaths lists paths the subtask must not touch.
	ForbiddenPaths []string `json:"forbidden_paths,omitempty"`
	// MaxIterations caps the session's iteration count. Zero means no cap.
	MaxIterations int `json:"max_iterations,omitempty"`
	// MaxCost caps the session's spend in dollars. Zero means no cap.
	MaxCost float64 `json:"max_cost,omitempty"`
}

// Subtask is a unit of work inside a milestone. Subtask IDs follow the
// pattern <milestone-id>-st-<n> and are unique within their milestone.
type Subtask struct {
	// ID is the subtask identifier, unique within the milestone.
	ID string `json:"id"`
	// Description states what the subtask should accomplish.
	Description string `json:"description"`
	// AcceptanceCriteria defines completion criteria, if any.
	AcceptanceCriteria string `json:"acceptance_criteria,omitempty"`
	// Scope declares expected files, forbidden paths, and limits.
	Scope Scope `json:"scope"`
	// DependsOn lists subtask IDs that must complete first.
	DependsOn []string `json:"depends_on,omitempty"`
}

// Milestone groups subtasks behind a dependency-ordered goal.
type Milestone struct {
	// ID is the milestone identifier, unique within the task.
	ID string `json:"id"`
	// Name is the short milestone title.
	Name string `json:"name"`
	// Description provides detail on what the milestone covers.
	Description string `json:"description,omitempty"`
	// Status is the current state of the milestone.
	Status MilestoneStatus `json:"status"`
	// DependsOn lists milestone IDs that must be completed first.
	DependsOn []string `json:"depends_on,omitempty"`
	// Subtasks is the ordered list of subtasks in this milestone.
	Subtasks []Subtask `json:"subtasks,omitempty"`
	// CompletionCriteria lists conditions that define "done".
	CompletionCriteria []string `json:"completion_criteria,omitempty"`
	// RequiresHumanReview gates completion behind a human review.
	RequiresHumanReview bool `json:"requires_human_review,omitempty"`
}

// Task is the root unit of work. A task is created once, mutated only
// through the orchestrator's plan-mutation API, and is immutable once
// CompletedAt is set.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// Description is the free-text description of the work.
	Description string `json:"description"`
	// Milestones is the ordered milestone list.
	Milestones []Milestone `json:"milestones"`
	// PinnedContext holds standing instructions for all subtasks.
	PinnedContext []ContextItem `json:"pinned_context,omitempty"`
	// CompletedSubtasks records subtask IDs that reached the completed
	// outcome, so scheduling survives a resume.
	CompletedSubtasks []string `json:"completed_subtasks,omitempty"`
	// TotalCost accumulates session spend in dollars.
	TotalCost float64 `json:"total_cost,omitempty"`
	// TotalIterations accumulates session iteration counts.
	TotalIterations int `json:"total_iterations,omitempty"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`
	// CompletedAt is when the task finished, if it has.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Completed reports whether the task has been marked complete.
func (t *Task) Completed() bool {
	return t.CompletedAt != nil
}

// Milestone returns the milestone with the given ID, or nil.
func (t *Task) Milestone(id string) *Milestone {
	for i := range t.Milestones {
		if t.Milestones[i].ID == id {
			return &t.Milestones[i]
		}
	}
	return nil
}

// Subtask returns the subtask with the given ID, or nil.
func (m *Milestone) Subtask(id string) *Subtask {
	for i := range m.Subtasks {
		if m.Subtasks[i].ID == id {
			return &m.Subtasks[i]
		}
	}
	return nil
}
