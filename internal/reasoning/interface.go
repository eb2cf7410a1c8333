// Package reasoning defines the opaque reasoning collaborator the control
// plane consults for option scoring and qualitative comparison.
package reasoning

import "context"

// AnalysisInput describes a decision whose options should be scored.
type AnalysisInput struct {
	// Question is the decision being asked.
	Question string
	// Options are the candidate answers, in order.
	Options []string
	// Context is optional surrounding context.
	Context string
	// AffectedAreas lists components or paths the decision touches.
	AffectedAreas []string
}

// OptionScore is one option's scored assessment.
type OptionScore struct {
	// Option is the option text.
	Option string `json:"option"`
	// Score is the option's quality score in [0, 1].
	Score float64 `json:"score"`
	// Rationale explains the score.
	Rationale string `json:"rationale,omitempty"`
}

// Analysis is the collaborator's verdict on a scored decision.
type Analysis struct {
	// Scores holds per-option assessments in input order.
	Scores []OptionScore `json:"scores"`
	// ClearWinner indicates one option is clearly better.
	ClearWinner bool `json:"clear_winner"`
	// Winner is the winning option text when ClearWinner is set, or the
	// best guess otherwise.
	Winner string `json:"winner"`
	// Confidence is the collaborator's confidence in the winner.
	Confidence float64 `json:"confidence"`
	// RecommendParallel suggests exploring the top options concurrently.
	RecommendParallel bool `json:"recommend_parallel"`
	// Reasoning summarizes the assessment.
	Reasoning string `json:"reasoning,omitempty"`
}

// Candidate is one finished exploration offered for comparison.
type Candidate struct {
	// ID identifies the option.
	ID string
	// Summary describes the option and how its exploration went.
	Summary string
	// CommitLog holds the exploration's commit subjects.
	CommitLog []string
	// FilesChanged, Insertions, Deletions summarize the diff.
	FilesChanged int
	Insertions   int
	Deletions    int
}

// Comparison is the collaborator's pick between two candidates.
type Comparison struct {
	// WinnerID is the chosen candidate's ID.
	WinnerID string `json:"winner_id"`
	// Reasoning explains the choice.
	Reasoning string `json:"reasoning,omitempty"`
}

// Collaborator scores decision options and compares finished explorations.
// Implementations are external; parse failures are the caller's to
// downgrade.
type Collaborator interface {
	// Analyze scores each option and reports whether one clearly wins.
	Analyze(ctx context.Context, in AnalysisInput) (*Analysis, error)
	// Compare picks between two finished explorations.
	Compare(ctx context.Context, a, b Candidate) (*Comparison, error)
}
