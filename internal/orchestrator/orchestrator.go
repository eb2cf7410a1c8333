package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/steadylabs/steward/internal/checkpoint"
	"github.com/steadylabs/steward/internal/decision"
	"github.com/steadylabs/steward/internal/git"
	"github.com/steadylabs/steward/internal/learning"
	"github.com/steadylabs/steward/internal/session"
	"github.com/steadylabs/steward/internal/state"
	"github.com/steadylabs/steward/pkg/models"
)

// ErrTaskCompleted indicates a mutation was attempted on a completed task.
var ErrTaskCompleted = errors.New("task is completed and immutable")

// MilestoneReviewer approves a milestone flagged for human review before it
// is marked complete. The context carries the caller's timeout.
type MilestoneReviewer interface {
	ReviewMilestone(ctx context.Context, m models.Milestone) (approved bool, feedback string, err error)
}

// Config wires an Orchestrator's collaborators. Store and Sessions are
// required; the rest are optional.
type Config struct {
	// Store persists task snapshots, session records, and the ledger.
	Store *state.Store
	// Sessions creates and resumes subtask execution sessions.
	Sessions session.Factory
	// Worktrees resolves base commits for session branches. Optional.
	Worktrees git.WorktreeService
	// Decisions is the decision manager sessions raise decisions through.
	// Optional.
	Decisions *decision.Manager
	// Checkpoints gates progress between subtasks. Optional.
	Checkpoints *checkpoint.Evaluator
	// Learnings supplies recorded learnings for subtask contexts. Optional.
	Learnings learning.Provider
	// Reviewer approves milestones flagged RequiresHumanReview. Optional;
	// without one such milestones pause the run.
	Reviewer MilestoneReviewer
	// ReviewTimeout bounds one milestone review. Defaults to 30 minutes.
	ReviewTimeout time.Duration
	// BaseBranch is the branch subtask branches are cut from.
	BaseBranch string
	// Logger receives debug output. Nil disables logging.
	Logger *DebugLogger
}

// Orchestrator drives a task through its milestones. It is the single
// writer of the task snapshot and the decision ledger; all mutations are
// serialized through the state store.
type Orchestrator struct {
	cfg Config

	// completedSubtasks is the set of subtask ids that have reached the
	// completed outcome, across all milestones.
	completedSubtasks map[string]bool
	// pendingInstructions carries checkpoint adjust instructions into the
	// next subtask context.
	pendingInstructions string
	// consecutiveErrors counts failed subtasks since the last success.
	consecutiveErrors int
	// stuck is set when a milestone pass makes no progress.
	stuck bool
}

// New creates an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Store == nil {
		return nil, errors.New("orchestrator requires a state store")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("orchestrator requires a session factory")
	}
	if cfg.ReviewTimeout <= 0 {
		cfg.ReviewTimeout = 30 * time.Minute
	}
	if cfg.BaseBranch == "" {
		cfg.BaseBranch = "main"
	}
	setPackageLogger(cfg.Logger)
	return &Orchestrator{
		cfg:               cfg,
		completedSubtasks: make(map[string]bool),
	}, nil
}

// CreateTask builds and persists a new task from a description and
// milestone plan.
func (o *Orchestrator) CreateTask(description string, milestones []models.Milestone, pinned []models.ContextItem) (*models.Task, error) {
	task := &models.Task{
		ID:            "task-" + uuid.New().String()[:8],
		Description:   description,
		Milestones:    milestones,
		PinnedContext: pinned,
		CreatedAt:     time.Now().UTC(),
	}
	for i := range task.Milestones {
		if task.Milestones[i].Status == "" {
			task.Milestones[i].Status = models.MilestonePending
		}
	}
	if err := validatePlan(task); err != nil {
		return nil, err
	}
	if err := o.cfg.Store.SaveTask(task); err != nil {
		return nil, fmt.Errorf("persist task: %w", err)
	}
	debugLog("created task %s with %d milestones", task.ID, len(task.Milestones))
	return task, nil
}

// LoadTask reloads a persisted task snapshot.
func (o *Orchestrator) LoadTask(taskID string) (*models.Task, error) {
	return o.cfg.Store.LoadTask(taskID)
}

// validatePlan checks id uniqueness and dependency references across the
// whole task.
func validatePlan(task *models.Task) error {
	msIDs := make(map[string]bool)
	for _, m := range task.Milestones {
		if m.ID == "" {
			return errors.New("milestone id must not be empty")
		}
		if msIDs[m.ID] {
			return fmt.Errorf("duplicate milestone id %q", m.ID)
		}
		msIDs[m.ID] = true

		stIDs := make(map[string]bool)
		for _, st := range m.Subtasks {
			if st.ID == "" {
				return fmt.Errorf("milestone %s: subtask id must not be empty", m.ID)
			}
			if stIDs[st.ID] {
				return fmt.Errorf("milestone %s: duplicate subtask id %q", m.ID, st.ID)
			}
			stIDs[st.ID] = true
		}
	}
	for _, m := range task.Milestones {
		for _, dep := range m.DependsOn {
			if !msIDs[dep] {
				return fmt.Errorf("milestone %s depends on unknown milestone %q", m.ID, dep)
			}
		}
	}
	return nil
}
