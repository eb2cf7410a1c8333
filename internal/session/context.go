// Package session defines the execution-session boundary of the control
// plane: the factory that creates and resumes sessions, the handle the
// orchestrator awaits, and the typed context a session is briefed with.
package session

import (
	"github.com/steadylabs/steward/pkg/models"
)

// Context is the full briefing for one execution session. It is built by
// the orchestrator (or derived from a parent for option exploration) and
// handed to the factory.
type Context struct {
	// TaskID is the owning task.
	TaskID string `json:"task_id"`
	// TaskDescription is the parent task's description.
	TaskDescription string `json:"task_description"`
	// MilestoneID is the owning milestone, if any.
	MilestoneID string `json:"milestone_id,omitempty"`
	// SubtaskID is the subtask this session works on, if any.
	SubtaskID string `json:"subtask_id,omitempty"`
	// SubtaskDescription is the subtask's description.
	SubtaskDescription string `json:"subtask_description,omitempty"`
	// AcceptanceCriteria defines completion criteria for the subtask.
	AcceptanceCriteria string `json:"acceptance_criteria,omitempty"`
	// Branch is the session's working branch.
	Branch string `json:"branch,omitempty"`
	// BaseCommit is the commit the branch was cut from.
	BaseCommit string `json:"base_commit,omitempty"`
	// WorkDir is the directory the session executes in.
	WorkDir string `json:"work_dir"`
	// Scope declares expected files, forbidden paths, and limits.
	Scope models.Scope `json:"scope"`
	// PinnedContext holds the task's standing instructions.
	PinnedContext []models.ContextItem `json:"pinned_context,omitempty"`
	// Learnings holds relevant recorded learnings.
	Learnings []string `json:"learnings,omitempty"`
	// RecentDecisions holds recent ledger entries for context.
	RecentDecisions []models.Decision `json:"recent_decisions,omitempty"`
	// Instructions is the composed instruction block for this session.
	Instructions string `json:"instructions"`
	// ParentSessionID links a derived child to the session whose
	// conversation state it inherits. Empty for root sessions.
	ParentSessionID string `json:"parent_session_id,omitempty"`
}

// DeriveChild builds a child context from a parent session's context. The
// child inherits everything the parent knew (task briefing, pinned
// context, learnings, decision history) and overrides only the working
// directory and the option-specific instructions. The inheritance contract
// is this constructor; nothing else copies conversation state.
func DeriveChild(parent Context, parentSessionID, workDir, instructions string) Context {
	child := parent
	child.ParentSessionID = parentSessionID
	child.WorkDir = workDir
	child.Instructions = instructions

	// Slices are shared with the parent by reference; sessions treat
	// their context as read-only.
	return child
}
