package explore

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/steadylabs/steward/internal/exec"
)

// substringRunner passes verification for worktrees whose path contains
// the configured substring.
type substringRunner struct {
	pass string
}

func (r *substringRunner) Run(ctx context.Context, workDir, command string, timeout time.Duration) (exec.Result, error) {
	if r.pass != "" && strings.Contains(workDir, r.pass) {
		return exec.Result{ExitCode: 0}, nil
	}
	return exec.Result{ExitCode: 1}, nil
}

func (r *substringRunner) Output(ctx context.Context, workDir, name string, args ...string) ([]byte, error) {
	return nil, nil
}

func TestOptionRunnerSelectsAndMergesWinner(t *testing.T) {
	worktrees := newFakeWorktrees()
	factory := &fakeFactory{}
	runner := NewOptionRunner(Config{
		Worktrees:  worktrees,
		Sessions:   factory,
		Runner:     &substringRunner{pass: "opt-1"},
		BaseBranch: "main",
	}, "/repo", "main", "go test ./...")

	selected, reason, err := runner.ExploreOptions(context.Background(),
		"which cache backend", []string{"use redis", "use memcached"}, "st-1")
	if err != nil {
		t.Fatalf("ExploreOptions() error = %v", err)
	}
	if selected != "use redis" {
		t.Errorf("selected = %q, want %q", selected, "use redis")
	}
	if reason == "" {
		t.Error("expected non-empty selection reasoning")
	}
	if len(worktrees.merged) != 1 {
		t.Fatalf("merged %d worktrees, want 1", len(worktrees.merged))
	}
	if !strings.Contains(worktrees.merged[0], "opt-1") {
		t.Errorf("merged worktree %q, want the opt-1 worktree", worktrees.merged[0])
	}
	for id, deletedBranch := range worktrees.removed {
		wantDelete := strings.Contains(id, "opt-2")
		if deletedBranch != wantDelete {
			t.Errorf("worktree %s branch deletion = %v, want %v", id, deletedBranch, wantDelete)
		}
	}
	if len(worktrees.removed) != 2 {
		t.Errorf("removed %d worktrees, want 2", len(worktrees.removed))
	}
}

func TestOptionRunnerEscalationDiscardsWorktrees(t *testing.T) {
	worktrees := newFakeWorktrees()
	runner := NewOptionRunner(Config{
		Worktrees:  worktrees,
		Sessions:   &fakeFactory{},
		Runner:     &substringRunner{}, // nothing verifies
		BaseBranch: "main",
	}, "/repo", "main", "go test ./...")

	_, _, err := runner.ExploreOptions(context.Background(),
		"which cache backend", []string{"use redis", "use memcached"}, "st-1")
	if err == nil {
		t.Fatal("expected error when no option verifies")
	}
	if len(worktrees.merged) != 0 {
		t.Errorf("merged %d worktrees, want 0", len(worktrees.merged))
	}
	if len(worktrees.removed) != 2 {
		t.Fatalf("removed %d worktrees, want 2", len(worktrees.removed))
	}
	for id, deletedBranch := range worktrees.removed {
		if !deletedBranch {
			t.Errorf("worktree %s branch kept after discard", id)
		}
	}
}

func TestOptionRunnerTooFewOptions(t *testing.T) {
	runner := NewOptionRunner(Config{
		Worktrees: newFakeWorktrees(),
		Sessions:  &fakeFactory{},
		Runner:    &substringRunner{},
	}, "/repo", "main", "true")

	_, _, err := runner.ExploreOptions(context.Background(), "q", []string{"only one"}, "st-1")
	if !errors.Is(err, ErrTooFewOptions) {
		t.Errorf("error = %v, want ErrTooFewOptions", err)
	}
}
