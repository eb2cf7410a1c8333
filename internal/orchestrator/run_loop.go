package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/steadylabs/steward/internal/checkpoint"
	"github.com/steadylabs/steward/internal/session"
	"github.com/steadylabs/steward/pkg/models"
)

// RunOutcome is how a run loop ended.
type RunOutcome string

const (
	// RunCompleted indicates every milestone completed.
	RunCompleted RunOutcome = "completed"
	// RunPaused indicates a checkpoint review or milestone review paused
	// the run. The task can be resumed.
	RunPaused RunOutcome = "paused"
	// RunAborted indicates a checkpoint review aborted the run.
	RunAborted RunOutcome = "aborted"
	// RunStalled indicates no milestone can make progress, typically
	// because subtasks are blocked or failed.
	RunStalled RunOutcome = "stalled"
)

// Run drives the task until every milestone completes or a checkpoint
// pauses, aborts, or stalls the run. Subtasks run sequentially in readiness
// order; a failed subtask is logged and the loop continues, leaving its
// milestone incomplete.
func (o *Orchestrator) Run(ctx context.Context, task *models.Task) (RunOutcome, error) {
	if task.Completed() {
		return RunCompleted, nil
	}
	o.hydrateCompleted(task)

	for {
		if err := ctx.Err(); err != nil {
			return RunPaused, err
		}

		m := o.NextMilestone(task)
		if m == nil {
			if allMilestonesCompleted(task) {
				return RunCompleted, o.finishTask(task)
			}
			return RunStalled, nil
		}

		outcome, err := o.runMilestone(ctx, task, m)
		if err != nil {
			if errors.Is(err, ErrReviewPending) {
				return RunPaused, nil
			}
			return RunPaused, err
		}
		switch outcome {
		case models.ReviewPause:
			return RunPaused, nil
		case models.ReviewAbort:
			return RunAborted, nil
		}

		// A milestone left incomplete by blocked or failed subtasks stalls
		// the run rather than spinning on it.
		if m.Status != models.MilestoneCompleted {
			return RunStalled, nil
		}
	}
}

// runMilestone runs one milestone's ready subtasks to completion, sampling
// checkpoints between subtasks.
func (o *Orchestrator) runMilestone(ctx context.Context, task *models.Task, m *models.Milestone) (models.ReviewDecision, error) {
	if m.Status != models.MilestoneInProgress {
		if err := o.StartMilestone(task, m.ID); err != nil {
			return models.ReviewContinue, err
		}
	}

	for {
		ready := o.ReadySubtasks(m)
		if len(ready) == 0 {
			break
		}

		progressed := false
		for _, st := range ready {
			result, err := o.runSubtask(ctx, task, m, st)
			if err != nil {
				return models.ReviewContinue, err
			}
			if result.Outcome == models.OutcomeCompleted {
				progressed = true
			}

			if decision := o.sampleCheckpoints(ctx, task); decision != models.ReviewContinue {
				return decision, nil
			}
		}
		if !progressed {
			// Every ready subtask ended blocked, failed, or needing a
			// scope change; the milestone cannot finish this pass.
			o.stuck = true
			break
		}
	}

	if o.MilestoneSubtasksComplete(m) {
		if err := o.CompleteMilestone(ctx, task, m.ID); err != nil {
			return models.ReviewContinue, err
		}
	}
	return models.ReviewContinue, nil
}

// runSubtask spawns and awaits one subtask session. A failed subtask does
// not halt the task; the failure is logged and surfaced in the result.
func (o *Orchestrator) runSubtask(ctx context.Context, task *models.Task, m *models.Milestone, st models.Subtask) (session.Result, error) {
	handle, err := o.SpawnSubtask(ctx, task, m, st)
	if err != nil {
		return session.Result{}, err
	}

	result, err := o.AwaitSubtask(ctx, task, st.ID, handle)
	if err != nil {
		return session.Result{}, err
	}

	switch result.Outcome {
	case models.OutcomeCompleted:
		o.consecutiveErrors = 0
		o.stuck = false
	case models.OutcomeFailed:
		o.consecutiveErrors++
		debugLog("subtask %s failed: %s; continuing with next ready subtask", st.ID, result.Error)
	case models.OutcomeBlocked:
		debugLog("subtask %s blocked (limits or dependency)", st.ID)
	case models.OutcomeScopeChangeNeeded:
		debugLog("subtask %s needs a scope change", st.ID)
	}
	return result, nil
}

// sampleCheckpoints feeds current totals to the evaluator and evaluates any
// triggered checkpoints. Adjust instructions are carried into the next
// subtask context.
func (o *Orchestrator) sampleCheckpoints(ctx context.Context, task *models.Task) models.ReviewDecision {
	if o.cfg.Checkpoints == nil {
		return models.ReviewContinue
	}

	o.cfg.Checkpoints.UpdateCounters(checkpoint.Counters{
		Iterations:        task.TotalIterations,
		Cost:              task.TotalCost,
		Elapsed:           time.Since(task.CreatedAt),
		Stuck:             o.stuck,
		ConsecutiveErrors: o.consecutiveErrors,
	})
	decision := o.cfg.Checkpoints.Sample(ctx)
	if decision == models.ReviewAdjust {
		o.pendingInstructions = o.cfg.Checkpoints.PendingAdjustment()
		debugLog("checkpoint adjustment: %s", o.pendingInstructions)
		return models.ReviewContinue
	}
	return decision
}

// finishTask stamps the completion time. The task is immutable afterwards.
func (o *Orchestrator) finishTask(task *models.Task) error {
	now := time.Now().UTC()
	task.CompletedAt = &now
	if err := o.cfg.Store.SaveTask(task); err != nil {
		return fmt.Errorf("persist task completion: %w", err)
	}
	debugLog("task %s completed (cost %.2f, %d iterations)", task.ID, task.TotalCost, task.TotalIterations)
	return nil
}

func allMilestonesCompleted(task *models.Task) bool {
	for _, m := range task.Milestones {
		if m.Status != models.MilestoneCompleted {
			return false
		}
	}
	return true
}
