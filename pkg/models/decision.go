package models

import "time"

// DecisionTier is the severity classification of a decision. The tier
// controls how much autonomy the engine exercises before acting.
type DecisionTier string

const (
	// TierTrivial decisions are made immediately and not recorded.
	TierTrivial DecisionTier = "trivial"
	// TierMinor decisions are made immediately and recorded for async review.
	TierMinor DecisionTier = "minor"
	// TierMedium decisions are analyzed before acting, with optional
	// parallel exploration when no option is clearly better.
	TierMedium DecisionTier = "medium"
	// TierMajor decisions block for human input.
	TierMajor DecisionTier = "major"
)

// Valid returns true if the tier is a known value.
func (t DecisionTier) Valid() bool {
	switch t {
	case TierTrivial, TierMinor, TierMedium, TierMajor:
		return true
	default:
		return false
	}
}

// tierOrder defines the severity ordering used by Bump and Lower.
var tierOrder = []DecisionTier{TierTrivial, TierMinor, TierMedium, TierMajor}

// Level returns the numeric severity of the tier, trivial=0 through major=3.
// Unknown tiers report -1.
func (t DecisionTier) Level() int {
	for i, tier := range tierOrder {
		if t == tier {
			return i
		}
	}
	return -1
}

// Bump returns the next tier up, capped at major.
func (t DecisionTier) Bump() DecisionTier {
	lvl := t.Level()
	if lvl < 0 || lvl >= len(tierOrder)-1 {
		return TierMajor
	}
	return tierOrder[lvl+1]
}

// Lower returns the next tier down, floored at trivial.
func (t DecisionTier) Lower() DecisionTier {
	lvl := t.Level()
	if lvl <= 0 {
		return TierTrivial
	}
	return tierOrder[lvl-1]
}

// DecisionMaker identifies who made a decision.
type DecisionMaker string

const (
	// MadeByAgent indicates the engine chose autonomously.
	MadeByAgent DecisionMaker = "agent"
	// MadeByHuman indicates a human chose (directly or by selecting a
	// parallel-exploration winner).
	MadeByHuman DecisionMaker = "human"
)

// Valid returns true if the maker is a known value.
func (m DecisionMaker) Valid() bool {
	return m == MadeByAgent || m == MadeByHuman
}

// ReviewStatus tracks the async review state of a recorded decision.
type ReviewStatus string

const (
	// ReviewPending indicates the decision awaits human review.
	ReviewPending ReviewStatus = "pending"
	// ReviewApproved indicates the decision was confirmed.
	ReviewApproved ReviewStatus = "approved"
	// ReviewOverridden indicates a human replaced the decision.
	ReviewOverridden ReviewStatus = "overridden"
)

// Valid returns true if the status is a known value.
func (s ReviewStatus) Valid() bool {
	switch s {
	case ReviewPending, ReviewApproved, ReviewOverridden:
		return true
	default:
		return false
	}
}

// Decision is a single entry in a task's append-only decision ledger.
// Decisions are never deleted; ReviewStatus and HumanFeedback are the only
// fields mutated after creation.
type Decision struct {
	// ID is the unique identifier for this decision.
	ID string `json:"id"`
	// Timestamp is when the decision was made.
	Timestamp time.Time `json:"timestamp"`
	// Tier is the severity classification that governed handling.
	Tier DecisionTier `json:"tier"`
	// Question is the decision being asked.
	Question string `json:"question"`
	// Options is the ordered list of candidate answers.
	Options []string `json:"options"`
	// ChosenOption is the selected option. Empty for a major-tier
	// placeholder awaiting human input.
	ChosenOption string `json:"chosen_option"`
	// Reasoning explains why the option was chosen.
	Reasoning string `json:"reasoning,omitempty"`
	// MadeBy identifies who chose.
	MadeBy DecisionMaker `json:"made_by"`
	// ReviewStatus is the async review state.
	ReviewStatus ReviewStatus `json:"review_status"`
	// HumanFeedback holds reviewer comments, if any.
	HumanFeedback string `json:"human_feedback,omitempty"`
	// SubtaskID is the originating subtask, if the decision arose
	// inside a session.
	SubtaskID string `json:"subtask_id,omitempty"`
}
