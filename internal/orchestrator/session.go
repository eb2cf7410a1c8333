package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/steadylabs/steward/internal/decision"
	"github.com/steadylabs/steward/internal/session"
	"github.com/steadylabs/steward/pkg/models"
)

// recentDecisionWindow caps how many ledger entries a subtask context
// carries.
const recentDecisionWindow = 5

// learningWindow caps how many recorded learnings a subtask context
// carries.
const learningWindow = 5

// SpawnSubtask builds the subtask's execution context, creates a session,
// and persists a resumable session record before returning.
func (o *Orchestrator) SpawnSubtask(ctx context.Context, task *models.Task, m *models.Milestone, st models.Subtask) (session.Handle, error) {
	sc := o.buildContext(task, m, st)

	handle, err := o.cfg.Sessions.Create(ctx, sc)
	if err != nil {
		return nil, fmt.Errorf("create session for subtask %s: %w", st.ID, err)
	}

	rec := &models.PersistedSession{
		SubtaskID:      st.ID,
		SessionID:      handle.ID(),
		Branch:         sc.Branch,
		BaseCommit:     sc.BaseCommit,
		Status:         models.SessionInProgress,
		LastCheckpoint: time.Now().UTC(),
		MilestoneID:    m.ID,
		TaskID:         task.ID,
	}
	if err := o.cfg.Store.SaveSession(rec); err != nil {
		return nil, fmt.Errorf("persist session record for subtask %s: %w", st.ID, err)
	}

	debugLog("spawned session %s for subtask %s on branch %s", handle.ID(), st.ID, sc.Branch)
	return handle, nil
}

// buildContext composes the full briefing for one subtask session.
func (o *Orchestrator) buildContext(task *models.Task, m *models.Milestone, st models.Subtask) session.Context {
	sc := session.Context{
		TaskID:             task.ID,
		TaskDescription:    task.Description,
		MilestoneID:        m.ID,
		SubtaskID:          st.ID,
		SubtaskDescription: st.Description,
		AcceptanceCriteria: st.AcceptanceCriteria,
		Branch:             fmt.Sprintf("subtask/%s/%s", m.ID, st.ID),
		Scope:              st.Scope,
		PinnedContext:      task.PinnedContext,
	}

	if o.cfg.Worktrees != nil {
		if base, err := o.cfg.Worktrees.BaseCommit(o.cfg.BaseBranch); err == nil {
			sc.BaseCommit = base
		} else {
			debugLog("resolve base commit: %v", err)
		}
	}

	if o.cfg.Learnings != nil {
		learnings, err := o.cfg.Learnings.Relevant(st.Description, learningWindow)
		if err != nil {
			debugLog("load learnings for subtask %s: %v", st.ID, err)
		}
		for _, l := range learnings {
			sc.Learnings = append(sc.Learnings, fmt.Sprintf("%s: %s", l.Topic, l.Content))
		}
	}

	if ledger, err := o.cfg.Store.LoadLedger(task.ID); err == nil {
		if len(ledger) > recentDecisionWindow {
			ledger = ledger[len(ledger)-recentDecisionWindow:]
		}
		sc.RecentDecisions = ledger
	}

	sc.Instructions = o.composeInstructions(task, m, st)
	return sc
}

// composeInstructions builds the instruction block sent to the session.
func (o *Orchestrator) composeInstructions(task *models.Task, m *models.Milestone, st models.Subtask) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n", task.Description)
	fmt.Fprintf(&b, "Milestone: %s (%s)\n", m.Name, m.ID)
	fmt.Fprintf(&b, "Subtask %s: %s\n", st.ID, st.Description)
	if st.AcceptanceCriteria != "" {
		fmt.Fprintf(&b, "Acceptance criteria: %s\n", st.AcceptanceCriteria)
	}
	if len(st.Scope.ExpectedFiles) > 0 {
		fmt.Fprintf(&b, "Expected files: %s\n", strings.Join(st.Scope.ExpectedFiles, ", "))
	}
	if len(st.Scope.ForbiddenPaths) > 0 {
		fmt.Fprintf(&b, "Do not touch: %s\n", strings.Join(st.Scope.ForbiddenPaths, ", "))
	}
	if o.pendingInstructions != "" {
		fmt.Fprintf(&b, "Adjustment from checkpoint review: %s\n", o.pendingInstructions)
		o.pendingInstructions = ""
	}
	return b.String()
}

// AwaitSubtask blocks until the session reaches a terminal outcome. On
// completion the session record is removed and cost and iteration totals
// accumulate onto the task. Resource-limit outcomes are returned as
// results, not errors.
func (o *Orchestrator) AwaitSubtask(ctx context.Context, task *models.Task, subtaskID string, handle session.Handle) (session.Result, error) {
	result, err := handle.Wait(ctx)
	if err != nil {
		return session.Result{}, fmt.Errorf("await subtask %s: %w", subtaskID, err)
	}

	task.TotalCost += result.Cost
	task.TotalIterations += result.Iterations

	o.dispatchDecisions(ctx, task, subtaskID, result.Decisions)

	switch result.Outcome {
	case models.OutcomeCompleted:
		o.markSubtaskCompleted(task, subtaskID)
		if err := o.cfg.Store.DeleteSession(subtaskID); err != nil {
			debugLog("delete session record for %s: %v", subtaskID, err)
		}
	default:
		// The record stays for resume; mark what happened.
		if rec, err := o.cfg.Store.LoadSession(subtaskID); err == nil {
			if result.Outcome == models.OutcomeFailed {
				rec.Status = models.SessionFailed
			} else {
				rec.Status = models.SessionAwaitingReview
			}
			rec.LastCheckpoint = time.Now().UTC()
			if err := o.cfg.Store.SaveSession(rec); err != nil {
				debugLog("update session record for %s: %v", subtaskID, err)
			}
		}
	}

	if err := o.cfg.Store.SaveTask(task); err != nil {
		return result, fmt.Errorf("persist task after subtask %s: %w", subtaskID, err)
	}

	debugLog("subtask %s finished with outcome %s (cost %.2f, %d iterations)",
		subtaskID, result.Outcome, result.Cost, result.Iterations)
	return result, nil
}

// dispatchDecisions routes a session's raised decisions through the
// decision manager. A failed dispatch is logged, not fatal; the session
// already finished and the undecided question surfaces at review.
func (o *Orchestrator) dispatchDecisions(ctx context.Context, task *models.Task, subtaskID string, reqs []session.DecisionRequest) {
	if o.cfg.Decisions == nil {
		return
	}
	for _, r := range reqs {
		out, err := o.cfg.Decisions.MakeDecision(ctx, task.ID, decision.Request{
			Question:      r.Question,
			Options:       r.Options,
			Context:       r.Context,
			AffectedAreas: r.AffectedAreas,
			SubtaskID:     subtaskID,
		})
		if err != nil {
			debugLog("decision %q from subtask %s failed: %v", r.Question, subtaskID, err)
			continue
		}
		debugLog("decision %s from subtask %s: tier=%s chosen=%q",
			out.Decision.ID, subtaskID, out.Classification.Tier, out.Decision.ChosenOption)
	}
}

// markSubtaskCompleted records completion in the scheduling set and on the
// task snapshot so it survives a resume.
func (o *Orchestrator) markSubtaskCompleted(task *models.Task, subtaskID string) {
	if o.completedSubtasks[subtaskID] {
		return
	}
	o.completedSubtasks[subtaskID] = true
	task.CompletedSubtasks = append(task.CompletedSubtasks, subtaskID)
}

// hydrateCompleted seeds the scheduling set from a loaded snapshot.
// Subtasks of completed milestones count as completed even if the snapshot
// predates the CompletedSubtasks list.
func (o *Orchestrator) hydrateCompleted(task *models.Task) {
	for _, id := range task.CompletedSubtasks {
		o.completedSubtasks[id] = true
	}
	for _, m := range task.Milestones {
		if m.Status != models.MilestoneCompleted {
			continue
		}
		for _, st := range m.Subtasks {
			o.completedSubtasks[st.ID] = true
		}
	}
}
