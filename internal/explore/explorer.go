// Package explore runs two competing implementations of a decision option
// concurrently on isolated worktrees, determines a winner, and finalizes by
// merging the winner and discarding the loser.
package explore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/steadylabs/steward/internal/exec"
	"github.com/steadylabs/steward/internal/git"
	"github.com/steadylabs/steward/internal/reasoning"
	"github.com/steadylabs/steward/internal/session"
	"github.com/steadylabs/steward/pkg/models"
)

// verifyTimeout bounds one verification command run.
const verifyTimeout = 5 * time.Minute

// ErrTooFewOptions indicates fewer than two options were supplied.
var ErrTooFewOptions = errors.New("parallel exploration requires at least 2 options")

// ErrUnknownOption indicates a referenced option id is not part of the
// exploration.
var ErrUnknownOption = errors.New("unknown exploration option")

// Option is one candidate implementation to explore.
type Option struct {
	// ID identifies the option.
	ID string
	// Description summarizes the option.
	Description string
	// Instructions is the option-specific briefing for the child session.
	Instructions string
	// VerificationCommand checks the option's worktree after exploration.
	// Empty means the option cannot self-verify.
	VerificationCommand string
}

// OptionResult is the outcome of exploring one option.
type OptionResult struct {
	// OptionID identifies the option.
	OptionID string
	// WorktreeID identifies the worktree the option ran in.
	WorktreeID string
	// Branch is the worktree's branch.
	Branch string
	// Path is the worktree's checkout path.
	Path string
	// SessionID is the child session that ran the option.
	SessionID string
	// Outcome is the child session's terminal outcome.
	Outcome models.SubtaskOutcome
	// Iterations is the child session's iteration count.
	Iterations int
	// Cost is the child session's spend in dollars.
	Cost float64
	// Diff summarizes the option's changes over the base.
	Diff git.DiffStats
	// CommitLog holds the option's commit subjects, newest first.
	CommitLog []string
	// VerificationCommand is carried from the option for winner
	// determination.
	VerificationCommand string
	// Error describes a failure, if any.
	Error string
}

// Result is the outcome of a two-option exploration. The call joins both
// explorations; it never returns with one still running.
type Result struct {
	// Results holds one entry per explored option, in option order.
	Results []OptionResult
	// Complete indicates both explorations reached the completed outcome.
	Complete bool
	// TotalCost is the sum of both options' costs.
	TotalCost float64
	// TotalDuration is the wall time of the whole exploration.
	TotalDuration time.Duration
}

// Selection is the winner determination for a finished exploration.
type Selection struct {
	// WinnerID is the selected option, empty when escalation is required.
	WinnerID string
	// Reasoning explains the selection.
	Reasoning string
	// Escalate indicates no winner could be determined and a human must
	// decide.
	Escalate bool
}

// Config wires an Explorer's collaborators.
type Config struct {
	// Worktrees provisions and destroys isolated checkouts.
	Worktrees git.WorktreeService
	// Sessions creates the child execution sessions.
	Sessions session.Factory
	// Runner executes verification commands.
	Runner exec.CommandRunner
	// Reasoner compares two passing explorations.
	Reasoner reasoning.Collaborator
	// BaseBranch is the branch explorations are cut from.
	BaseBranch string
	// MaxIterationsPerOption caps each child session's iterations.
	MaxIterationsPerOption int
	// MaxCostPerOption caps each child session's spend in dollars.
	MaxCostPerOption float64
	// Logf receives progress messages. Nil disables logging.
	Logf func(format string, args ...any)
}

// Explorer provisions worktrees, forks child sessions, and joins the
// results of a two-option exploration.
type Explorer struct {
	cfg Config

	mu        sync.Mutex
	worktrees []string
	handles   []session.Handle
	cancelled bool
}

// New creates an Explorer.
func New(cfg Config) *Explorer {
	if cfg.Logf == nil {
		cfg.Logf = func(string, ...any) {}
	}
	return &Explorer{cfg: cfg}
}

// Explore runs the first two options concurrently on isolated worktrees and
// returns after both finish. Fewer than two options is an input error; more
// than two are truncated to the first two. The child sessions derive their
// context from parent so they inherit its conversation state.
func (e *Explorer) Explore(ctx context.Context, options []Option, parent session.Context, parentSessionID string) (*Result, error) {
	if len(options) < 2 {
		return nil, ErrTooFewOptions
	}
	if len(options) > 2 {
		e.cfg.Logf("exploration given %d options, truncating to first 2", len(options))
		options = options[:2]
	}

	e.mu.Lock()
	e.cancelled = false
	e.worktrees = nil
	e.handles = nil
	e.mu.Unlock()

	start := time.Now()
	results := make([]OptionResult, 2)

	// Provision both worktrees before launching anything, so a
	// provisioning failure leaves no session running.
	trees := make([]*git.Worktree, 2)
	for i, opt := range options {
		suffix := uuid.New().String()[:8]
		id := fmt.Sprintf("explore-%s-%s", opt.ID, suffix)
		branch := fmt.Sprintf("explore/%s/%s", opt.ID, suffix)

		wt, err := e.cfg.Worktrees.CreateWorktree(id, branch, e.cfg.BaseBranch)
		if err != nil {
			e.removeTracked(true)
			return nil, fmt.Errorf("create worktree for option %s: %w", opt.ID, err)
		}
		trees[i] = wt
		e.track(wt.ID)
	}

	var wg sync.WaitGroup
	for i, opt := range options {
		wg.Add(1)
		go func(i int, opt Option, wt *git.Worktree) {
			defer wg.Done()
			results[i] = e.exploreOne(ctx, opt, wt, parent, parentSessionID)
		}(i, opt, trees[i])
	}
	wg.Wait()

	res := &Result{
		Results:       results,
		Complete:      true,
		TotalDuration: time.Since(start),
	}
	for _, r := range results {
		res.TotalCost += r.Cost
		if r.Outcome != models.OutcomeCompleted {
			res.Complete = false
		}
	}
	return res, nil
}

// exploreOne runs one option's child session in its worktree and captures
// the diff and commit log however the session ended.
func (e *Explorer) exploreOne(ctx context.Context, opt Option, wt *git.Worktree, parent session.Context, parentSessionID string) OptionResult {
	out := OptionResult{
		OptionID:            opt.ID,
		WorktreeID:          wt.ID,
		Branch:              wt.Branch,
		Path:                wt.Path,
		VerificationCommand: opt.VerificationCommand,
		Outcome:             models.OutcomeFailed,
	}

	child := session.DeriveChild(parent, parentSessionID, wt.Path, opt.Instructions)
	child.Branch = wt.Branch
	child.Scope.MaxIterations = e.cfg.MaxIterationsPerOption
	child.Scope.MaxCost = e.cfg.MaxCostPerOption

	handle, err := e.cfg.Sessions.Create(ctx, child)
	if err != nil {
		out.Error = fmt.Sprintf("create session: %v", err)
		e.capture(&out)
		return out
	}
	out.SessionID = handle.ID()
	e.trackHandle(handle)

	result, err := handle.Wait(ctx)
	if err != nil {
		out.Error = fmt.Sprintf("session wait: %v", err)
		e.capture(&out)
		return out
	}

	out.Outcome = result.Outcome
	out.Iterations = result.Iterations
	out.Cost = result.Cost
	if result.Error != "" {
		out.Error = result.Error
	}
	e.capture(&out)
	return out
}

// capture records diff statistics and a commit log for an option, whatever
// state its session ended in.
func (e *Explorer) capture(out *OptionResult) {
	diff, err := e.cfg.Worktrees.DiffStats(out.WorktreeID)
	if err != nil {
		e.cfg.Logf("diff stats for %s: %v", out.WorktreeID, err)
	} else {
		out.Diff = diff
	}

	log, err := e.cfg.Worktrees.CommitLog(out.WorktreeID)
	if err != nil {
		e.cfg.Logf("commit log for %s: %v", out.WorktreeID, err)
	} else {
		out.CommitLog = log
	}
}

// DetermineWinner selects between two finished explorations. Each option's
// verification command runs in its own worktree; if exactly one passes it
// wins, if both pass the reasoning collaborator compares them, and if
// neither passes the selection escalates to a human.
func (e *Explorer) DetermineWinner(ctx context.Context, res *Result) (*Selection, error) {
	if len(res.Results) != 2 {
		return nil, fmt.Errorf("winner determination requires 2 results, got %d", len(res.Results))
	}

	passed := make([]bool, 2)
	for i, r := range res.Results {
		passed[i] = e.verify(ctx, r)
	}

	switch {
	case passed[0] && !passed[1]:
		return &Selection{WinnerID: res.Results[0].OptionID, Reasoning: "only this option passed verification"}, nil
	case passed[1] && !passed[0]:
		return &Selection{WinnerID: res.Results[1].OptionID, Reasoning: "only this option passed verification"}, nil
	case passed[0] && passed[1]:
		return e.compareWinners(ctx, res)
	default:
		return &Selection{
			Escalate:  true,
			Reasoning: "neither option passed verification",
		}, nil
	}
}

// verify runs one option's verification command in its worktree. Options
// without a command, or whose command fails to run, do not pass.
func (e *Explorer) verify(ctx context.Context, r OptionResult) bool {
	if r.VerificationCommand == "" {
		return false
	}
	result, err := e.cfg.Runner.Run(ctx, r.Path, r.VerificationCommand, verifyTimeout)
	if err != nil {
		e.cfg.Logf("verification for %s: %v", r.OptionID, err)
		return false
	}
	return result.Passed()
}

// compareWinners asks the reasoning collaborator to pick between two
// passing explorations. A collaborator failure escalates rather than
// guessing.
func (e *Explorer) compareWinners(ctx context.Context, res *Result) (*Selection, error) {
	if e.cfg.Reasoner == nil {
		return &Selection{Escalate: true, Reasoning: "both options passed; no reasoning collaborator configured"}, nil
	}

	cmp, err := e.cfg.Reasoner.Compare(ctx, candidate(res.Results[0]), candidate(res.Results[1]))
	if err != nil {
		e.cfg.Logf("comparison failed: %v", err)
		return &Selection{Escalate: true, Reasoning: fmt.Sprintf("both options passed; comparison failed: %v", err)}, nil
	}
	return &Selection{WinnerID: cmp.WinnerID, Reasoning: cmp.Reasoning}, nil
}

// candidate converts an option result into a comparison candidate.
func candidate(r OptionResult) reasoning.Candidate {
	return reasoning.Candidate{
		ID:           r.OptionID,
		Summary:      fmt.Sprintf("option %s finished %s after %d iterations", r.OptionID, r.Outcome, r.Iterations),
		CommitLog:    r.CommitLog,
		FilesChanged: r.Diff.FilesChanged,
		Insertions:   r.Diff.Insertions,
		Deletions:    r.Diff.Deletions,
	}
}

// Finalize squash-merges the selected option's branch into targetBranch,
// then removes every worktree. Losing branches are deleted; the winner's
// branch survives at the merge point.
func (e *Explorer) Finalize(res *Result, selectedID, targetBranch string) (string, error) {
	var winner *OptionResult
	for i := range res.Results {
		if res.Results[i].OptionID == selectedID {
			winner = &res.Results[i]
		}
	}
	if winner == nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownOption, selectedID)
	}

	mergeCommit, err := e.cfg.Worktrees.MergeWorktreeBranch(winner.WorktreeID, targetBranch, true)
	if err != nil {
		return "", fmt.Errorf("merge winning branch: %w", err)
	}

	var errs []error
	for _, r := range res.Results {
		deleteBranch := r.OptionID != selectedID
		if err := e.cfg.Worktrees.RemoveWorktree(r.WorktreeID, deleteBranch); err != nil {
			errs = append(errs, fmt.Errorf("remove worktree %s: %w", r.WorktreeID, err))
		}
	}
	e.mu.Lock()
	e.worktrees = nil
	e.handles = nil
	e.mu.Unlock()

	return mergeCommit, errors.Join(errs...)
}

// Cancel marks the in-flight exploration cancelled, force-terminates both
// child sessions, and removes every worktree. This is the only path that
// discards exploration work irrecoverably.
func (e *Explorer) Cancel() error {
	e.mu.Lock()
	e.cancelled = true
	handles := e.handles
	e.mu.Unlock()

	var errs []error
	for _, h := range handles {
		if err := h.Cancel(); err != nil {
			errs = append(errs, fmt.Errorf("cancel session %s: %w", h.ID(), err))
		}
	}
	errs = append(errs, e.removeTracked(true)...)
	return errors.Join(errs...)
}

// Cancelled reports whether the current exploration was cancelled.
func (e *Explorer) Cancelled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancelled
}

func (e *Explorer) track(worktreeID string) {
	e.mu.Lock()
	e.worktrees = append(e.worktrees, worktreeID)
	e.mu.Unlock()
}

func (e *Explorer) trackHandle(h session.Handle) {
	e.mu.Lock()
	e.handles = append(e.handles, h)
	e.mu.Unlock()
}

// removeTracked force-removes every tracked worktree, deleting branches.
func (e *Explorer) removeTracked(deleteBranch bool) []error {
	e.mu.Lock()
	ids := e.worktrees
	e.worktrees = nil
	e.handles = nil
	e.mu.Unlock()

	var errs []error
	for _, id := range ids {
		if err := e.cfg.Worktrees.RemoveWorktree(id, deleteBranch); err != nil {
			errs = append(errs, fmt.Errorf("remove worktree %s: %w", id, err))
		}
	}
	return errs
}
