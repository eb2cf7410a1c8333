// Package git provides the narrow worktree interface the control plane
// requires from version control.
package git

import "time"

// Worktree is an isolated, independently-checked-out working copy used so
// two option explorations can write concurrently without interfering.
// Worktrees are ephemeral: created when exploration starts, destroyed when
// it finalizes.
type Worktree struct {
	// ID identifies the worktree to the service.
	ID string
	// Path is the absolute filesystem path of the checkout.
	Path string
	// Branch is the branch checked out in the worktree.
	Branch string
	// Base is the branch or commit the worktree branch was cut from.
	Base string
	// CreatedAt is when the worktree was provisioned.
	CreatedAt time.Time
}

// DiffStats summarizes the changes a worktree branch carries over its base.
type DiffStats struct {
	// FilesChanged is the number of files touched.
	FilesChanged int
	// Insertions is the number of added lines.
	Insertions int
	// Deletions is the number of removed lines.
	Deletions int
}

// WorktreeService defines the version-control operations the orchestrator
// and explorer consume. Implementations beyond this interface are out of
// scope for the control plane.
type WorktreeService interface {
	// CreateWorktree provisions a worktree for optionID on a new branch
	// cut from base.
	CreateWorktree(optionID, branch, base string) (*Worktree, error)
	// MergeWorktreeBranch merges the worktree's branch into targetBranch,
	// squashing if requested, and returns the merge commit hash.
	MergeWorktreeBranch(worktreeID, targetBranch string, squash bool) (string, error)
	// RemoveWorktree removes the worktree, optionally deleting its branch.
	RemoveWorktree(worktreeID string, deleteBranch bool) error
	// DiffStats returns the diff summary of the worktree branch over its base.
	DiffStats(worktreeID string) (DiffStats, error)
	// CommitLog returns the one-line commit subjects on the worktree
	// branch since its base, newest first.
	CommitLog(worktreeID string) ([]string, error)
	// Worktree returns the record for a known worktree ID.
	Worktree(worktreeID string) (*Worktree, error)
	// BaseCommit resolves a ref to a commit hash in the main repository.
	BaseCommit(ref string) (string, error)
}
