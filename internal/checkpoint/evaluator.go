// Package checkpoint runs named pass/fail gates against trigger conditions
// sampled from orchestrator-reported progress counters. A triggered
// checkpoint can pause, redirect, or abort execution.
package checkpoint

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/steadylabs/steward/internal/exec"
	"github.com/steadylabs/steward/pkg/models"
)

// commandTimeout is the hard deadline for command-type criteria.
const commandTimeout = 5 * time.Minute

// defaultReviewTimeout bounds how long a review request waits before
// resolving to pause.
const defaultReviewTimeout = 30 * time.Minute

// Counters is a snapshot of the externally-updated execution counters the
// trigger conditions poll.
type Counters struct {
	// Iterations is the cumulative iteration count.
	Iterations int `json:"iterations"`
	// Cost is the cumulative spend in dollars.
	Cost float64 `json:"cost"`
	// Elapsed is wall time since the run started.
	Elapsed time.Duration `json:"elapsed"`
	// Stuck indicates stuck-detection has flagged the run.
	Stuck bool `json:"stuck"`
	// ConsecutiveErrors is the current consecutive-error count.
	ConsecutiveErrors int `json:"consecutive_errors"`
}

// ReviewRequest asks a human to rule on a checkpoint result.
type ReviewRequest struct {
	// CheckpointID identifies the checkpoint.
	CheckpointID string
	// Name is the checkpoint's display name.
	Name string
	// Result is the evaluation outcome under review.
	Result models.CheckpointResult
}

// ReviewResponse is the human's ruling.
type ReviewResponse struct {
	// Decision is one of continue, adjust, pause, abort.
	Decision models.ReviewDecision
	// Instructions carries free-text adjustment instructions for adjust.
	Instructions string
}

// ReviewRequester is the human-interaction callback for checkpoint review.
// Implementations must respect the context deadline.
type ReviewRequester interface {
	RequestReview(ctx context.Context, req ReviewRequest) (ReviewResponse, error)
}

// Evaluator owns one CheckpointState per definition for the lifetime of a
// run and turns triggered checkpoints into gating decisions.
type Evaluator struct {
	defs   []models.CheckpointDefinition
	runner exec.CommandRunner
	// reviewer may be nil; with no reviewer every non-auto-continue
	// result resolves to pause.
	reviewer      ReviewRequester
	reviewTimeout time.Duration
	workDir       string

	mu         sync.Mutex
	states     map[string]*models.CheckpointState
	counters   Counters
	milestones map[string]bool
	adjustment string
}

// Config contains configuration for a new Evaluator.
type Config struct {
	// Definitions are the checkpoints to guard the run with.
	Definitions []models.CheckpointDefinition
	// Runner executes command-type criteria.
	Runner exec.CommandRunner
	// Reviewer handles review requests. May be nil.
	Reviewer ReviewRequester
	// ReviewTimeout overrides the default 30-minute review deadline.
	ReviewTimeout time.Duration
	// WorkDir is where criterion commands run.
	WorkDir string
}

// NewEvaluator creates an Evaluator with pending state for every
// definition.
func NewEvaluator(cfg Config) *Evaluator {
	states := make(map[string]*models.CheckpointState, len(cfg.Definitions))
	for _, def := range cfg.Definitions {
		states[def.ID] = &models.CheckpointState{
			CheckpointID: def.ID,
			Status:       models.CheckpointPending,
		}
	}

	timeout := cfg.ReviewTimeout
	if timeout == 0 {
		timeout = defaultReviewTimeout
	}

	return &Evaluator{
		defs:          cfg.Definitions,
		runner:        cfg.Runner,
		reviewer:      cfg.Reviewer,
		reviewTimeout: timeout,
		workDir:       cfg.WorkDir,
		states:        states,
		milestones:    make(map[string]bool),
	}
}

// UpdateCounters replaces the counter snapshot the trigger conditions poll.
func (e *Evaluator) UpdateCounters(c Counters) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.counters = c
}

// RecordMilestoneComplete marks a milestone as completed for
// milestone-type conditions.
func (e *Evaluator) RecordMilestoneComplete(milestoneID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.milestones[milestoneID] = true
}

// State returns the current state for a checkpoint ID, or nil.
func (e *Evaluator) State(checkpointID string) *models.CheckpointState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.states[checkpointID]
}

// conditionFires reports whether one trigger condition fires against the
// given counters.
func conditionFires(cond models.TriggerCondition, c Counters, milestones map[string]bool) bool {
	switch cond.Type {
	case models.ConditionIterationCount:
		threshold := int(cond.Threshold)
		return threshold > 0 && c.Iterations > 0 && c.Iterations%threshold == 0
	case models.ConditionCostThreshold:
		return c.Cost >= cond.Threshold
	case models.ConditionTimeThreshold:
		return c.Elapsed.Minutes() >= cond.Threshold
	case models.ConditionMilestone:
		return milestones[cond.MilestoneID]
	case models.ConditionStuckDetection:
		return c.Stuck
	case models.ConditionErrorThreshold:
		return cond.Threshold > 0 && float64(c.ConsecutiveErrors) >= cond.Threshold
	default:
		return false
	}
}

// Triggered returns the definitions whose conditions currently fire and
// that have not already been evaluated this run.
func (e *Evaluator) Triggered() []models.CheckpointDefinition {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []models.CheckpointDefinition
	for _, def := range e.defs {
		st := e.states[def.ID]
		if st.Status != models.CheckpointPending {
			continue
		}
		for _, cond := range def.Conditions {
			if conditionFires(cond, e.counters, e.milestones) {
				out = append(out, def)
				break
			}
		}
	}
	return out
}

// Evaluate runs every criterion of a definition and records the result.
func (e *Evaluator) Evaluate(ctx context.Context, def models.CheckpointDefinition) models.CheckpointResult {
	e.mu.Lock()
	e.states[def.ID].Status = models.CheckpointEvaluating
	e.mu.Unlock()

	result := models.CheckpointResult{
		CheckpointID: def.ID,
		Passed:       true,
	}

	for _, crit := range def.Criteria {
		cr := e.evaluateCriterion(ctx, crit)
		result.Criteria = append(result.Criteria, cr)
		if crit.Required && !cr.Passed {
			result.Passed = false
		}
	}
	result.EvaluatedAt = time.Now()

	e.mu.Lock()
	st := e.states[def.ID]
	st.LastResult = &result
	if result.Passed {
		st.Status = models.CheckpointPassed
	} else {
		st.Status = models.CheckpointFailed
	}
	e.mu.Unlock()

	return result
}

// evaluateCriterion scores one criterion. Manual criteria are never
// auto-passed; command criteria pass on exit code zero. A command-runner
// failure downgrades to a failed criterion, not a crash.
func (e *Evaluator) evaluateCriterion(ctx context.Context, crit models.Criterion) models.CriterionResult {
	switch crit.Type {
	case models.CriterionManual:
		return models.CriterionResult{
			Name:         crit.Name,
			Passed:       false,
			PendingHuman: true,
		}
	case models.CriterionCommand:
		res, err := e.runner.Run(ctx, e.workDir, crit.Command, commandTimeout)
		cr := models.CriterionResult{
			Name:   crit.Name,
			Passed: err == nil && res.Passed(),
			Output: strings.TrimSpace(res.Stdout + res.Stderr),
		}
		if err != nil {
			cr.Err = err.Error()
		} else if res.TimedOut {
			cr.Err = "command timed out"
		} else if res.ExitCode != 0 {
			cr.Err = fmt.Sprintf("exit code %d", res.ExitCode)
		}
		return cr
	default:
		return models.CriterionResult{
			Name: crit.Name,
			Err:  fmt.Sprintf("unknown criterion type %q", crit.Type),
		}
	}
}

// Sample evaluates every triggered checkpoint and returns the most severe
// resulting decision: abort > pause > adjust > continue. With nothing
// triggered it returns continue.
func (e *Evaluator) Sample(ctx context.Context) models.ReviewDecision {
	decision := models.ReviewContinue
	for _, def := range e.Triggered() {
		result := e.Evaluate(ctx, def)
		d := e.resolve(ctx, def, result)
		if severity(d) > severity(decision) {
			decision = d
		}
	}
	return decision
}

// resolve turns an evaluation result into a review decision, consulting
// the reviewer when human involvement is needed.
func (e *Evaluator) resolve(ctx context.Context, def models.CheckpointDefinition, result models.CheckpointResult) models.ReviewDecision {
	if def.AutoContinueOnPass && result.Passed {
		e.record(def.ID, models.ReviewContinue, "")
		return models.ReviewContinue
	}

	if e.reviewer == nil {
		e.record(def.ID, models.ReviewPause, "")
		return models.ReviewPause
	}

	reviewCtx, cancel := context.WithTimeout(ctx, e.reviewTimeout)
	defer cancel()

	resp, err := e.reviewer.RequestReview(reviewCtx, ReviewRequest{
		CheckpointID: def.ID,
		Name:         def.Name,
		Result:       result,
	})
	if err != nil || !resp.Decision.Valid() {
		// Timeouts and malformed responses resolve to pause, never to
		// silent continuation.
		e.record(def.ID, models.ReviewPause, "")
		return models.ReviewPause
	}

	e.record(def.ID, resp.Decision, resp.Instructions)
	return resp.Decision
}

// record stores the decision on the checkpoint state and retains adjust
// instructions for the orchestrator.
func (e *Evaluator) record(checkpointID string, d models.ReviewDecision, instructions string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.states[checkpointID]
	st.LastDecision = d
	if d == models.ReviewAdjust {
		st.AdjustmentInstructions = instructions
		e.adjustment = instructions
	}
}

// PendingAdjustment returns and clears the latest adjust instructions so
// the orchestrator can surface them to the next execution step.
func (e *Evaluator) PendingAdjustment() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	adj := e.adjustment
	e.adjustment = ""
	return adj
}

// severity orders review decisions for aggregation.
func severity(d models.ReviewDecision) int {
	switch d {
	case models.ReviewAbort:
		return 3
	case models.ReviewPause:
		return 2
	case models.ReviewAdjust:
		return 1
	default:
		return 0
	}
}
