package models

import "time"

// ConditionType identifies what a checkpoint trigger condition samples.
type ConditionType string

const (
	// ConditionIterationCount fires when the iteration counter is a
	// positive multiple of the threshold.
	ConditionIterationCount ConditionType = "iteration_count"
	// ConditionCostThreshold fires once cumulative cost meets the threshold.
	ConditionCostThreshold ConditionType = "cost_threshold"
	// ConditionTimeThreshold fires once elapsed minutes meet the threshold.
	ConditionTimeThreshold ConditionType = "time_threshold"
	// ConditionMilestone fires once the named milestone completes.
	ConditionMilestone ConditionType = "milestone"
	// ConditionStuckDetection fires when the stuck flag is set.
	ConditionStuckDetection ConditionType = "stuck_detection"
	// ConditionErrorThreshold fires once consecutive errors meet the threshold.
	ConditionErrorThreshold ConditionType = "error_threshold"
)

// Valid returns true if the condition type is a known value.
func (c ConditionType) Valid() bool {
	switch c {
	case ConditionIterationCount, ConditionCostThreshold, ConditionTimeThreshold,
		ConditionMilestone, ConditionStuckDetection, ConditionErrorThreshold:
		return true
	default:
		return false
	}
}

// TriggerCondition is one trigger for a checkpoint definition.
type TriggerCondition struct {
	// Type selects which counter or event the condition samples.
	Type ConditionType `json:"type" yaml:"type"`
	// Threshold is the numeric threshold for counter-based conditions.
	Threshold float64 `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	// MilestoneID names the milestone for milestone conditions.
	MilestoneID string `json:"milestone_id,omitempty" yaml:"milestone_id,omitempty"`
}

// CriterionType identifies how a checkpoint criterion is evaluated.
type CriterionType string

const (
	// CriterionCommand runs an external command and scores on exit code.
	CriterionCommand CriterionType = "command"
	// CriterionManual always requires human confirmation.
	CriterionManual CriterionType = "manual"
)

// Valid returns true if the criterion type is a known value.
func (c CriterionType) Valid() bool {
	return c == CriterionCommand || c == CriterionManual
}

// Criterion is one pass/fail check inside a checkpoint.
type Criterion struct {
	// Name identifies the criterion in results.
	Name string `json:"name" yaml:"name"`
	// Type selects command or manual evaluation.
	Type CriterionType `json:"type" yaml:"type"`
	// Command is the shell command for command-type criteria.
	Command string `json:"command,omitempty" yaml:"command,omitempty"`
	// Required marks the criterion as gating the overall result.
	Required bool `json:"required" yaml:"required"`
}

// CheckpointDefinition is a named gate with trigger conditions and criteria.
type CheckpointDefinition struct {
	// ID is the unique identifier for this checkpoint.
	ID string `json:"id" yaml:"id"`
	// Name is the short checkpoint title.
	Name string `json:"name" yaml:"name"`
	// Description explains what the checkpoint guards.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// Conditions lists the triggers; any one firing triggers evaluation.
	Conditions []TriggerCondition `json:"conditions" yaml:"conditions"`
	// Criteria lists the pass/fail checks run on trigger.
	Criteria []Criterion `json:"criteria" yaml:"criteria"`
	// AutoContinueOnPass skips human review when every required
	// criterion passes.
	AutoContinueOnPass bool `json:"auto_continue_on_pass,omitempty" yaml:"auto_continue_on_pass,omitempty"`
}

// CheckpointStatus is the evaluation state of a checkpoint.
type CheckpointStatus string

const (
	// CheckpointPending indicates the checkpoint has not triggered yet.
	CheckpointPending CheckpointStatus = "pending"
	// CheckpointEvaluating indicates criteria are being run.
	CheckpointEvaluating CheckpointStatus = "evaluating"
	// CheckpointPassed indicates every required criterion passed.
	CheckpointPassed CheckpointStatus = "passed"
	// CheckpointFailed indicates a required criterion failed.
	CheckpointFailed CheckpointStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s CheckpointStatus) Valid() bool {
	switch s {
	case CheckpointPending, CheckpointEvaluating, CheckpointPassed, CheckpointFailed:
		return true
	default:
		return false
	}
}

// ReviewDecision is the human's verdict on a checkpoint review.
type ReviewDecision string

const (
	// ReviewContinue resumes execution unchanged.
	ReviewContinue ReviewDecision = "continue"
	// ReviewAdjust resumes execution with adjustment instructions.
	ReviewAdjust ReviewDecision = "adjust"
	// ReviewPause suspends execution. This is the timeout default.
	ReviewPause ReviewDecision = "pause"
	// ReviewAbort stops execution entirely.
	ReviewAbort ReviewDecision = "abort"
)

// Valid returns true if the decision is a known value.
func (d ReviewDecision) Valid() bool {
	switch d {
	case ReviewContinue, ReviewAdjust, ReviewPause, ReviewAbort:
		return true
	default:
		return false
	}
}

// CriterionResult is the outcome of evaluating one criterion.
type CriterionResult struct {
	// Name is the criterion name.
	Name string `json:"name"`
	// Passed indicates the criterion passed.
	Passed bool `json:"passed"`
	// PendingHuman marks manual criteria awaiting confirmation.
	PendingHuman bool `json:"pending_human,omitempty"`
	// Output holds command output for command criteria.
	Output string `json:"output,omitempty"`
	// Err holds the failure message, if any.
	Err string `json:"error,omitempty"`
}

// CheckpointResult is the outcome of one checkpoint evaluation.
type CheckpointResult struct {
	// CheckpointID identifies the evaluated checkpoint.
	CheckpointID string `json:"checkpoint_id"`
	// Passed indicates every required criterion passed.
	Passed bool `json:"passed"`
	// Criteria holds per-criterion outcomes.
	Criteria []CriterionResult `json:"criteria"`
	// EvaluatedAt is when evaluation finished.
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// CheckpointState is the mutable per-definition state for the lifetime of
// a run, keyed by definition ID.
type CheckpointState struct {
	// CheckpointID identifies the definition.
	CheckpointID string `json:"checkpoint_id"`
	// Status is the evaluation state.
	Status CheckpointStatus `json:"status"`
	// LastResult is the most recent evaluation result.
	LastResult *CheckpointResult `json:"last_result,omitempty"`
	// LastDecision is the most recent human review decision.
	LastDecision ReviewDecision `json:"last_decision,omitempty"`
	// AdjustmentInstructions carries free-text adjust instructions that
	// the orchestrator surfaces to the next execution step.
	AdjustmentInstructions string `json:"adjustment_instructions,omitempty"`
}
