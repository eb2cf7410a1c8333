package models

import "time"

// SessionStatus is the persisted state of a subtask session.
type SessionStatus string

const (
	// SessionInProgress indicates the session is running.
	SessionInProgress SessionStatus = "in_progress"
	// SessionAwaitingReview indicates the session finished and awaits review.
	SessionAwaitingReview SessionStatus = "awaiting_review"
	// SessionCompleted indicates the session finished successfully.
	SessionCompleted SessionStatus = "completed"
	// SessionFailed indicates the session failed.
	SessionFailed SessionStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionInProgress, SessionAwaitingReview, SessionCompleted, SessionFailed:
		return true
	default:
		return false
	}
}

// SubtaskOutcome is the terminal result a subtask session reports.
// Resource-limit outcomes (blocked, scope_change_needed) are first-class
// results, not errors.
type SubtaskOutcome string

const (
	// OutcomeCompleted indicates the subtask finished successfully.
	OutcomeCompleted SubtaskOutcome = "completed"
	// OutcomeScopeChangeNeeded indicates the subtask needs a scope change.
	OutcomeScopeChangeNeeded SubtaskOutcome = "scope_change_needed"
	// OutcomeBlocked indicates the subtask hit a resource limit or an
	// unresolvable dependency.
	OutcomeBlocked SubtaskOutcome = "blocked"
	// OutcomeFailed indicates the subtask failed.
	OutcomeFailed SubtaskOutcome = "failed"
)

// Valid returns true if the outcome is a known value.
func (o SubtaskOutcome) Valid() bool {
	switch o {
	case OutcomeCompleted, OutcomeScopeChangeNeeded, OutcomeBlocked, OutcomeFailed:
		return true
	default:
		return false
	}
}

// PersistedSession is the resumable record of one in-flight subtask
// session. One record exists per in-flight subtask; the record is removed
// on successful completion.
type PersistedSession struct {
	// SubtaskID is the subtask this session works on.
	SubtaskID string `json:"subtask_id"`
	// SessionID is the external session handle identifier.
	SessionID string `json:"session_id"`
	// Branch is the session's working branch.
	Branch string `json:"branch"`
	// BaseCommit is the commit the branch was cut from.
	BaseCommit string `json:"base_commit"`
	// Status is the persisted session state.
	Status SessionStatus `json:"status"`
	// LastCheckpoint is the last time the session checkpointed.
	LastCheckpoint time.Time `json:"last_checkpoint"`
	// MilestoneID is the owning milestone.
	MilestoneID string `json:"milestone_id"`
	// TaskID is the owning task.
	TaskID string `json:"task_id"`
}
