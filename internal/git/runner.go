package git

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ErrWorktreeNotFound indicates an unknown worktree ID.
var ErrWorktreeNotFound = fmt.Errorf("worktree not found")

// WorktreeManager implements WorktreeService by shelling out to git.
type WorktreeManager struct {
	repoPath string
	baseDir  string
	mu       sync.Mutex
	trees    map[string]*Worktree
}

// NewWorktreeManager creates a WorktreeManager for the repository at
// repoPath. Worktrees are created under baseDir; if baseDir is empty,
// ~/.cache/steward/worktrees is used.
func NewWorktreeManager(repoPath, baseDir string) (*WorktreeManager, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".cache", "steward", "worktrees")
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create worktree base directory: %w", err)
	}
	return &WorktreeManager{
		repoPath: repoPath,
		baseDir:  baseDir,
		trees:    make(map[string]*Worktree),
	}, nil
}

// run executes a git command in dir and returns trimmed output.
func (m *WorktreeManager) run(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, string(out))
	}
	return strings.TrimSpace(string(out)), nil
}

// CreateWorktree provisions a worktree for optionID on a new branch cut
// from base.
func (m *WorktreeManager) CreateWorktree(optionID, branch, base string) (*Worktree, error) {
	path := filepath.Join(m.baseDir, optionID)

	if _, err := m.run(m.repoPath, "worktree", "add", "-b", branch, path, base); err != nil {
		return nil, fmt.Errorf("create worktree for %s: %w", optionID, err)
	}

	wt := &Worktree{
		ID:        optionID,
		Path:      path,
		Branch:    branch,
		Base:      base,
		CreatedAt: time.Now(),
	}

	m.mu.Lock()
	m.trees[optionID] = wt
	m.mu.Unlock()
	return wt, nil
}

// MergeWorktreeBranch merges the worktree's branch into targetBranch and
// returns the resulting commit hash. With squash, the branch's commits are
// collapsed into a single commit on targetBranch.
func (m *WorktreeManager) MergeWorktreeBranch(worktreeID, targetBranch string, squash bool) (string, error) {
	wt, err := m.Worktree(worktreeID)
	if err != nil {
		return "", err
	}

	if _, err := m.run(m.repoPath, "checkout", targetBranch); err != nil {
		return "", fmt.Errorf("checkout %s: %w", targetBranch, err)
	}

	if squash {
		if _, err := m.run(m.repoPath, "merge", "--squash", wt.Branch); err != nil {
			return "", fmt.Errorf("squash merge %s: %w", wt.Branch, err)
		}
		msg := fmt.Sprintf("Merge option %s (squash of %s)", worktreeID, wt.Branch)
		if _, err := m.run(m.repoPath, "commit", "-m", msg); err != nil {
			return "", fmt.Errorf("commit squash of %s: %w", wt.Branch, err)
		}
	} else {
		if _, err := m.run(m.repoPath, "merge", "--no-ff", wt.Branch); err != nil {
			return "", fmt.Errorf("merge %s: %w", wt.Branch, err)
		}
	}

	return m.run(m.repoPath, "rev-parse", "HEAD")
}

// RemoveWorktree removes the worktree, optionally deleting its branch.
// Removal is forced so a dirty or locked worktree cannot strand cleanup.
func (m *WorktreeManager) RemoveWorktree(worktreeID string, deleteBranch bool) error {
	wt, err := m.Worktree(worktreeID)
	if err != nil {
		return err
	}

	if _, err := m.run(m.repoPath, "worktree", "remove", "--force", wt.Path); err != nil {
		return fmt.Errorf("remove worktree %s: %w", worktreeID, err)
	}
	if deleteBranch {
		if _, err := m.run(m.repoPath, "branch", "-D", wt.Branch); err != nil {
			return fmt.Errorf("delete branch %s: %w", wt.Branch, err)
		}
	}

	m.mu.Lock()
	delete(m.trees, worktreeID)
	m.mu.Unlock()
	return nil
}

// DiffStats returns the diff summary of the worktree branch over its base.
func (m *WorktreeManager) DiffStats(worktreeID string) (DiffStats, error) {
	wt, err := m.Worktree(worktreeID)
	if err != nil {
		return DiffStats{}, err
	}

	out, err := m.run(wt.Path, "diff", "--shortstat", wt.Base+"...HEAD")
	if err != nil {
		return DiffStats{}, fmt.Errorf("diff stats for %s: %w", worktreeID, err)
	}
	return parseShortStat(out), nil
}

// CommitLog returns the one-line commit subjects since the worktree's base.
func (m *WorktreeManager) CommitLog(worktreeID string) ([]string, error) {
	wt, err := m.Worktree(worktreeID)
	if err != nil {
		return nil, err
	}

	out, err := m.run(wt.Path, "log", "--oneline", wt.Base+"..HEAD")
	if err != nil {
		return nil, fmt.Errorf("commit log for %s: %w", worktreeID, err)
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// Worktree returns the record for a known worktree ID.
func (m *WorktreeManager) Worktree(worktreeID string) (*Worktree, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wt, ok := m.trees[worktreeID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWorktreeNotFound, worktreeID)
	}
	return wt, nil
}

// BaseCommit resolves a ref to a commit hash in the main repository.
func (m *WorktreeManager) BaseCommit(ref string) (string, error) {
	return m.run(m.repoPath, "rev-parse", ref)
}

// shortStatRe matches the fields of git diff --shortstat output. Each
// field is optional; "1 file changed, 2 deletions(-)" has no insertions.
var shortStatRe = regexp.MustCompile(`(?:(\d+) files? changed)?(?:, (\d+) insertions?\(\+\))?(?:, (\d+) deletions?\(-\))?`)

// parseShortStat parses git diff --shortstat output.
func parseShortStat(out string) DiffStats {
	var stats DiffStats
	matches := shortStatRe.FindStringSubmatch(strings.TrimSpace(out))
	if matches == nil {
		return stats
	}
	stats.FilesChanged, _ = strconv.Atoi(matches[1])
	stats.Insertions, _ = strconv.Atoi(matches[2])
	stats.Deletions, _ = strconv.Atoi(matches[3])
	return stats
}

// Verify WorktreeManager implements WorktreeService at compile time.
var _ WorktreeService = (*WorktreeManager)(nil)
