package checkpoint

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/steadylabs/steward/internal/exec"
	"github.com/steadylabs/steward/pkg/models"
)

// fakeRunner returns canned results per command.
type fakeRunner struct {
	results map[string]exec.Result
	errs    map[string]error
	calls   []string
}

func (f *fakeRunner) Run(ctx context.Context, workDir, command string, timeout time.Duration) (exec.Result, error) {
	f.calls = append(f.calls, command)
	if err, ok := f.errs[command]; ok {
		return exec.Result{ExitCode: -1}, err
	}
	if res, ok := f.results[command]; ok {
		return res, nil
	}
	return exec.Result{ExitCode: 0}, nil
}

func (f *fakeRunner) Output(ctx context.Context, workDir, name string, args ...string) ([]byte, error) {
	return nil, nil
}

// fakeReviewer returns a fixed response, or blocks past the context
// deadline when block is set.
type fakeReviewer struct {
	resp     ReviewResponse
	block    bool
	requests []ReviewRequest
}

func (f *fakeReviewer) RequestReview(ctx context.Context, req ReviewRequest) (ReviewResponse, error) {
	f.requests = append(f.requests, req)
	if f.block {
		<-ctx.Done()
		return ReviewResponse{}, ctx.Err()
	}
	return f.resp, nil
}

func TestIterationConditionFiresOnMultiples(t *testing.T) {
	cond := models.TriggerCondition{Type: models.ConditionIterationCount, Threshold: 10}

	fires := []int{10, 20, 30}
	for _, n := range fires {
		if !conditionFires(cond, Counters{Iterations: n}, nil) {
			t.Errorf("expected condition to fire at iteration %d", n)
		}
	}

	silent := []int{0, 5, 15, 25}
	for _, n := range silent {
		if conditionFires(cond, Counters{Iterations: n}, nil) {
			t.Errorf("expected condition not to fire at iteration %d", n)
		}
	}
}

func TestThresholdConditions(t *testing.T) {
	tests := []struct {
		name string
		cond models.TriggerCondition
		c    Counters
		want bool
	}{
		{
			name: "cost below",
			cond: models.TriggerCondition{Type: models.ConditionCostThreshold, Threshold: 5},
			c:    Counters{Cost: 4.99},
			want: false,
		},
		{
			name: "cost met",
			cond: models.TriggerCondition{Type: models.ConditionCostThreshold, Threshold: 5},
			c:    Counters{Cost: 5},
			want: true,
		},
		{
			name: "time in minutes",
			cond: models.TriggerCondition{Type: models.ConditionTimeThreshold, Threshold: 30},
			c:    Counters{Elapsed: 31 * time.Minute},
			want: true,
		},
		{
			name: "time below",
			cond: models.TriggerCondition{Type: models.ConditionTimeThreshold, Threshold: 30},
			c:    Counters{Elapsed: 29 * time.Minute},
			want: false,
		},
		{
			name: "stuck",
			cond: models.TriggerCondition{Type: models.ConditionStuckDetection},
			c:    Counters{Stuck: true},
			want: true,
		},
		{
			name: "errors met",
			cond: models.TriggerCondition{Type: models.ConditionErrorThreshold, Threshold: 3},
			c:    Counters{ConsecutiveErrors: 3},
			want: true,
		},
		{
			name: "errors below",
			cond: models.TriggerCondition{Type: models.ConditionErrorThreshold, Threshold: 3},
			c:    Counters{ConsecutiveErrors: 2},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := conditionFires(tt.cond, tt.c, nil); got != tt.want {
				t.Errorf("conditionFires = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMilestoneCondition(t *testing.T) {
	cond := models.TriggerCondition{Type: models.ConditionMilestone, MilestoneID: "ms-1"}

	if conditionFires(cond, Counters{}, map[string]bool{}) {
		t.Error("should not fire before milestone completes")
	}
	if !conditionFires(cond, Counters{}, map[string]bool{"ms-1": true}) {
		t.Error("should fire after milestone completes")
	}
	if conditionFires(cond, Counters{}, map[string]bool{"ms-2": true}) {
		t.Error("should not fire for a different milestone")
	}
}

func testDef(id string, criteria ...models.Criterion) models.CheckpointDefinition {
	return models.CheckpointDefinition{
		ID:   id,
		Name: id,
		Conditions: []models.TriggerCondition{
			{Type: models.ConditionIterationCount, Threshold: 10},
		},
		Criteria: criteria,
	}
}

func TestEvaluateCommandCriteria(t *testing.T) {
	runner := &fakeRunner{
		results: map[string]exec.Result{
			"go test ./...": {ExitCode: 0},
			"go vet ./...":  {ExitCode: 1, Stderr: "vet failed"},
		},
	}
	def := testDef("cp-1",
		models.Criterion{Name: "tests", Type: models.CriterionCommand, Command: "go test ./...", Required: true},
		models.Criterion{Name: "vet", Type: models.CriterionCommand, Command: "go vet ./...", Required: true},
	)
	e := NewEvaluator(Config{Definitions: []models.CheckpointDefinition{def}, Runner: runner})

	result := e.Evaluate(context.Background(), def)
	if result.Passed {
		t.Error("expected failure with one failing required criterion")
	}
	if len(result.Criteria) != 2 {
		t.Fatalf("expected 2 criterion results, got %d", len(result.Criteria))
	}
	if !result.Criteria[0].Passed || result.Criteria[1].Passed {
		t.Errorf("unexpected criterion outcomes: %+v", result.Criteria)
	}

	if st := e.State("cp-1"); st.Status != models.CheckpointFailed {
		t.Errorf("expected failed state, got %s", st.Status)
	}
}

func TestEvaluateOptionalCriterionDoesNotGate(t *testing.T) {
	runner := &fakeRunner{
		results: map[string]exec.Result{"lint": {ExitCode: 1}},
	}
	def := testDef("cp-1",
		models.Criterion{Name: "lint", Type: models.CriterionCommand, Command: "lint", Required: false},
	)
	e := NewEvaluator(Config{Definitions: []models.CheckpointDefinition{def}, Runner: runner})

	result := e.Evaluate(context.Background(), def)
	if !result.Passed {
		t.Error("optional criterion failure must not fail the checkpoint")
	}
}

func TestEvaluateManualCriterionNeverAutoPasses(t *testing.T) {
	def := testDef("cp-1",
		models.Criterion{Name: "sign-off", Type: models.CriterionManual, Required: true},
	)
	e := NewEvaluator(Config{Definitions: []models.CheckpointDefinition{def}, Runner: &fakeRunner{}})

	result := e.Evaluate(context.Background(), def)
	if result.Passed {
		t.Error("manual required criterion must not auto-pass")
	}
	if !result.Criteria[0].PendingHuman {
		t.Error("manual criterion should be pending human confirmation")
	}
}

func TestEvaluateRunnerFailureIsFailedCriterion(t *testing.T) {
	runner := &fakeRunner{errs: map[string]error{"boom": fmt.Errorf("spawn failed")}}
	def := testDef("cp-1",
		models.Criterion{Name: "boom", Type: models.CriterionCommand, Command: "boom", Required: true},
	)
	e := NewEvaluator(Config{Definitions: []models.CheckpointDefinition{def}, Runner: runner})

	result := e.Evaluate(context.Background(), def)
	if result.Passed {
		t.Error("runner failure should fail the criterion, not crash")
	}
	if result.Criteria[0].Err == "" {
		t.Error("expected error message on criterion result")
	}
}

func TestSampleAutoContinueOnPass(t *testing.T) {
	reviewer := &fakeReviewer{resp: ReviewResponse{Decision: models.ReviewAbort}}
	def := testDef("cp-1",
		models.Criterion{Name: "ok", Type: models.CriterionCommand, Command: "ok", Required: true},
	)
	def.AutoContinueOnPass = true

	e := NewEvaluator(Config{
		Definitions: []models.CheckpointDefinition{def},
		Runner:      &fakeRunner{},
		Reviewer:    reviewer,
	})
	e.UpdateCounters(Counters{Iterations: 10})

	if got := e.Sample(context.Background()); got != models.ReviewContinue {
		t.Errorf("expected continue, got %s", got)
	}
	if len(reviewer.requests) != 0 {
		t.Error("auto-continue must not involve the reviewer")
	}
}

func TestSampleReviewTimeoutDefaultsToPause(t *testing.T) {
	reviewer := &fakeReviewer{block: true}
	def := testDef("cp-1",
		models.Criterion{Name: "sign-off", Type: models.CriterionManual, Required: true},
	)
	e := NewEvaluator(Config{
		Definitions:   []models.CheckpointDefinition{def},
		Runner:        &fakeRunner{},
		Reviewer:      reviewer,
		ReviewTimeout: 20 * time.Millisecond,
	})
	e.UpdateCounters(Counters{Iterations: 10})

	if got := e.Sample(context.Background()); got != models.ReviewPause {
		t.Errorf("expected pause on review timeout, got %s", got)
	}
}

func TestSampleAdjustCarriesInstructions(t *testing.T) {
	reviewer := &fakeReviewer{resp: ReviewResponse{
		Decision:     models.ReviewAdjust,
		Instructions: "skip the flaky suite",
	}}
	def := testDef("cp-1",
		models.Criterion{Name: "sign-off", Type: models.CriterionManual, Required: true},
	)
	e := NewEvaluator(Config{
		Definitions: []models.CheckpointDefinition{def},
		Runner:      &fakeRunner{},
		Reviewer:    reviewer,
	})
	e.UpdateCounters(Counters{Iterations: 10})

	if got := e.Sample(context.Background()); got != models.ReviewAdjust {
		t.Errorf("expected adjust, got %s", got)
	}
	if adj := e.PendingAdjustment(); adj != "skip the flaky suite" {
		t.Errorf("expected adjustment instructions, got %q", adj)
	}
	// Instructions are consumed once.
	if adj := e.PendingAdjustment(); adj != "" {
		t.Errorf("expected cleared adjustment, got %q", adj)
	}
}

func TestSampleNoReviewerPauses(t *testing.T) {
	def := testDef("cp-1",
		models.Criterion{Name: "sign-off", Type: models.CriterionManual, Required: true},
	)
	e := NewEvaluator(Config{Definitions: []models.CheckpointDefinition{def}, Runner: &fakeRunner{}})
	e.UpdateCounters(Counters{Iterations: 10})

	if got := e.Sample(context.Background()); got != models.ReviewPause {
		t.Errorf("expected pause without a reviewer, got %s", got)
	}
}

func TestTriggeredSkipsEvaluatedCheckpoints(t *testing.T) {
	def := testDef("cp-1",
		models.Criterion{Name: "ok", Type: models.CriterionCommand, Command: "ok", Required: true},
	)
	def.AutoContinueOnPass = true

	e := NewEvaluator(Config{Definitions: []models.CheckpointDefinition{def}, Runner: &fakeRunner{}})
	e.UpdateCounters(Counters{Iterations: 10})

	if len(e.Triggered()) != 1 {
		t.Fatal("expected one triggered checkpoint")
	}
	e.Sample(context.Background())

	// Once evaluated, the checkpoint does not re-trigger this run.
	if len(e.Triggered()) != 0 {
		t.Error("evaluated checkpoint should not trigger again")
	}
}
