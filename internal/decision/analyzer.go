// Package decision orchestrates the full decision lifecycle: classify a
// question into a tier, act with the autonomy that tier permits, and record
// the outcome in the task's append-only ledger.
package decision

import (
	"context"
	"fmt"

	"github.com/steadylabs/steward/internal/classifier"
	"github.com/steadylabs/steward/internal/reasoning"
)

// Analyzer scores decision options through the reasoning collaborator and
// normalizes failures into conservative defaults.
type Analyzer struct {
	collaborator reasoning.Collaborator
}

// NewAnalyzer creates an Analyzer backed by the given collaborator. A nil
// collaborator yields the conservative fallback on every call.
func NewAnalyzer(c reasoning.Collaborator) *Analyzer {
	return &Analyzer{collaborator: c}
}

// Analyze scores the options for a decision. A collaborator failure or
// unparseable response is downgraded to "no clear winner, confidence 0.5"
// with the first option as best guess, never an error.
func (a *Analyzer) Analyze(ctx context.Context, in classifier.Input) *reasoning.Analysis {
	if a.collaborator == nil {
		return fallbackAnalysis(in, nil)
	}
	analysis, err := a.collaborator.Analyze(ctx, reasoning.AnalysisInput{
		Question:      in.Question,
		Options:       in.Options,
		Context:       in.Context,
		AffectedAreas: in.AffectedAreas,
	})
	if err != nil || analysis == nil {
		return fallbackAnalysis(in, err)
	}
	if analysis.Winner == "" && len(in.Options) > 0 {
		analysis.Winner = in.Options[0]
		analysis.ClearWinner = false
	}
	return analysis
}

// fallbackAnalysis is the conservative default when the collaborator fails.
func fallbackAnalysis(in classifier.Input, err error) *reasoning.Analysis {
	reason := "analysis unavailable"
	if err != nil {
		reason = fmt.Sprintf("analysis failed: %v", err)
	}
	winner := ""
	if len(in.Options) > 0 {
		winner = in.Options[0]
	}
	return &reasoning.Analysis{
		ClearWinner:       false,
		Winner:            winner,
		Confidence:        0.5,
		RecommendParallel: len(in.Options) >= 2,
		Reasoning:         reason,
	}
}
