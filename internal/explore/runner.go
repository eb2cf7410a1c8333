package explore

import (
	"context"
	"fmt"

	"github.com/steadylabs/steward/internal/session"
)

// OptionRunner resolves a decision by exploring its top two options on
// isolated worktrees and merging the winner. It satisfies the decision
// manager's parallel-runner contract.
type OptionRunner struct {
	cfg           Config
	repoPath      string
	targetBranch  string
	verifyCommand string
}

// NewOptionRunner creates an OptionRunner. verifyCommand runs in each
// option's worktree to determine the winner; explorations without one
// always escalate, so callers should only wire a runner when the project
// declares how options are verified.
func NewOptionRunner(cfg Config, repoPath, targetBranch, verifyCommand string) *OptionRunner {
	return &OptionRunner{
		cfg:           cfg,
		repoPath:      repoPath,
		targetBranch:  targetBranch,
		verifyCommand: verifyCommand,
	}
}

// ExploreOptions explores the first two options concurrently, merges the
// winning branch into the target branch, and returns the winning option
// text. When no winner can be determined the exploration worktrees are
// discarded and an error is returned so the caller can escalate.
func (r *OptionRunner) ExploreOptions(ctx context.Context, question string, options []string, subtaskID string) (string, string, error) {
	if len(options) < 2 {
		return "", "", ErrTooFewOptions
	}

	opts := make([]Option, 0, 2)
	for i, text := range options[:2] {
		opts = append(opts, Option{
			ID:                  fmt.Sprintf("opt-%d", i+1),
			Description:         text,
			Instructions:        fmt.Sprintf("Decision: %s\n\nImplement this option: %s", question, text),
			VerificationCommand: r.verifyCommand,
		})
	}

	parent := session.Context{
		TaskDescription: question,
		SubtaskID:       subtaskID,
		WorkDir:         r.repoPath,
	}

	ex := New(r.cfg)
	res, err := ex.Explore(ctx, opts, parent, "")
	if err != nil {
		return "", "", fmt.Errorf("explore options: %w", err)
	}

	sel, err := ex.DetermineWinner(ctx, res)
	if err != nil {
		ex.Cancel()
		return "", "", fmt.Errorf("determine winner: %w", err)
	}
	if sel.Escalate || sel.WinnerID == "" {
		ex.Cancel()
		return "", "", fmt.Errorf("no exploration winner: %s", sel.Reasoning)
	}

	if _, err := ex.Finalize(res, sel.WinnerID, r.targetBranch); err != nil {
		return "", "", fmt.Errorf("finalize winner: %w", err)
	}

	for i, opt := range opts {
		if opt.ID == sel.WinnerID {
			return options[i], sel.Reasoning, nil
		}
	}
	return "", "", fmt.Errorf("%w: %s", ErrUnknownOption, sel.WinnerID)
}
