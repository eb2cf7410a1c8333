package decision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/steadylabs/steward/internal/classifier"
	"github.com/steadylabs/steward/internal/reasoning"
	"github.com/steadylabs/steward/pkg/models"
)

// clearWinnerConfidence is the minimum analyzer confidence at which a
// medium-tier decision is made without parallel exploration.
const clearWinnerConfidence = 0.75

// ErrNoOptions indicates a decision was requested with no options.
var ErrNoOptions = errors.New("decision requires at least one option")

// Ledger is the slice of the state store the manager writes decisions
// through.
type Ledger interface {
	AppendDecision(taskID string, d models.Decision) error
	AnnotateDecision(taskID, decisionID string, status models.ReviewStatus, feedback string) error
	LoadLedger(taskID string) ([]models.Decision, error)
}

// ParallelRunner resolves a medium-tier decision by exploring the top two
// options concurrently and returning the selected option text.
type ParallelRunner interface {
	ExploreOptions(ctx context.Context, question string, options []string, subtaskID string) (selected, reasoning string, err error)
}

// HumanInput blocks for a human's choice on a major-tier decision.
type HumanInput interface {
	Decide(ctx context.Context, question string, options []string) (choice, feedback string, err error)
}

// Guard flags affected areas that must not be decided autonomously.
// Satisfied by *protect.Detector.
type Guard interface {
	Protected(path string) (bool, string)
}

// Request describes a decision to make.
type Request struct {
	// Question is the decision being asked.
	Question string
	// Options are the candidate answers, in order.
	Options []string
	// Context is optional surrounding context.
	Context string
	// AffectedAreas lists components or paths the decision touches.
	AffectedAreas []string
	// SubtaskID is the originating subtask, if any.
	SubtaskID string
	// ForceTier overrides classification when set.
	ForceTier models.DecisionTier
}

// Outcome is the result of making a decision.
type Outcome struct {
	// Decision is the decision record. Trivial decisions are returned but
	// not persisted.
	Decision models.Decision
	// Classification is the tier classification that governed handling.
	Classification classifier.Classification
	// Analysis is the reasoning analysis, present for medium-tier
	// decisions only.
	Analysis *reasoning.Analysis
	// ParallelTriggered indicates parallel exploration resolved the
	// decision.
	ParallelTriggered bool
	// RequiresHuman indicates a placeholder was recorded and a human must
	// supply the choice.
	RequiresHuman bool
}

// Manager dispatches decisions by tier and maintains the per-task ledger.
type Manager struct {
	ledger   Ledger
	analyzer *Analyzer
	parallel ParallelRunner
	human    HumanInput
	guard    Guard
}

// New creates a Manager. parallel and human may be nil when those
// collaborators are not configured.
func New(ledger Ledger, analyzer *Analyzer, parallel ParallelRunner, human HumanInput) *Manager {
	return &Manager{ledger: ledger, analyzer: analyzer, parallel: parallel, human: human}
}

// SetGuard installs a protected-area guard. Decisions touching a
// protected area are escalated to the major tier.
func (m *Manager) SetGuard(g Guard) {
	m.guard = g
}

// MakeDecision classifies the request and acts with the autonomy the tier
// permits. Every non-trivial decision is appended to the task's ledger.
func (m *Manager) MakeDecision(ctx context.Context, taskID string, req Request) (*Outcome, error) {
	if len(req.Options) == 0 {
		return nil, ErrNoOptions
	}

	cls := classifier.Classify(classifier.Input{
		Question:      req.Question,
		Options:       req.Options,
		Context:       req.Context,
		AffectedAreas: req.AffectedAreas,
	})
	if req.ForceTier.Valid() {
		cls.Tier = req.ForceTier
		cls.Reasoning = fmt.Sprintf("tier forced to %s; %s", req.ForceTier, cls.Reasoning)
	}
	if m.guard != nil && cls.Tier != models.TierMajor {
		for _, area := range req.AffectedAreas {
			if hit, reason := m.guard.Protected(area); hit {
				cls.Tier = models.TierMajor
				cls.Reasoning = fmt.Sprintf("%s; escalated to major: %s", cls.Reasoning, reason)
				break
			}
		}
	}

	out := &Outcome{Classification: cls}
	d := models.Decision{
		ID:        "dec-" + uuid.New().String()[:8],
		Timestamp: time.Now().UTC(),
		Tier:      cls.Tier,
		Question:  req.Question,
		Options:   append([]string(nil), req.Options...),
		SubtaskID: req.SubtaskID,
	}

	switch cls.Tier {
	case models.TierTrivial:
		d.ChosenOption = req.Options[0]
		d.Reasoning = cls.Reasoning
		d.MadeBy = models.MadeByAgent
		d.ReviewStatus = models.ReviewApproved
		out.Decision = d
		// Trivial decisions are not recorded.
		return out, nil

	case models.TierMinor:
		d.ChosenOption = req.Options[0]
		d.Reasoning = cls.Reasoning
		d.MadeBy = models.MadeByAgent
		d.ReviewStatus = models.ReviewPending

	case models.TierMedium:
		m.decideMedium(ctx, req, &d, out)

	case models.TierMajor:
		m.decideMajor(ctx, req, &d, out)

	default:
		return nil, fmt.Errorf("unknown decision tier %q", cls.Tier)
	}

	if err := m.ledger.AppendDecision(taskID, d); err != nil {
		return nil, fmt.Errorf("append decision: %w", err)
	}
	out.Decision = d
	return out, nil
}

// decideMedium analyzes the options, resolving via parallel exploration
// when no option clearly wins.
func (m *Manager) decideMedium(ctx context.Context, req Request, d *models.Decision, out *Outcome) {
	analysis := m.analyzer.Analyze(ctx, classifier.Input{
		Question:      req.Question,
		Options:       req.Options,
		Context:       req.Context,
		AffectedAreas: req.AffectedAreas,
	})
	out.Analysis = analysis

	if analysis.ClearWinner && analysis.Confidence >= clearWinnerConfidence {
		d.ChosenOption = analysis.Winner
		d.Reasoning = analysis.Reasoning
		d.MadeBy = models.MadeByAgent
		d.ReviewStatus = models.ReviewPending
		return
	}

	if analysis.RecommendParallel && m.parallel != nil && len(req.Options) >= 2 {
		selected, reason, err := m.parallel.ExploreOptions(ctx, req.Question, req.Options, req.SubtaskID)
		if err == nil && selected != "" {
			d.ChosenOption = selected
			d.Reasoning = reason
			d.MadeBy = models.MadeByHuman
			d.ReviewStatus = models.ReviewApproved
			out.ParallelTriggered = true
			return
		}
		// Exploration failures fall through to the analyzer's best guess.
	}

	d.ChosenOption = analysis.Winner
	d.Reasoning = analysis.Reasoning
	d.MadeBy = models.MadeByAgent
	d.ReviewStatus = models.ReviewPending
}

// decideMajor blocks for human input, or records a placeholder when no
// human collaborator is configured.
func (m *Manager) decideMajor(ctx context.Context, req Request, d *models.Decision, out *Outcome) {
	if m.human != nil {
		choice, feedback, err := m.human.Decide(ctx, req.Question, req.Options)
		if err == nil && choice != "" {
			d.ChosenOption = choice
			d.Reasoning = "chosen by human"
			d.MadeBy = models.MadeByHuman
			d.ReviewStatus = models.ReviewApproved
			d.HumanFeedback = feedback
			return
		}
	}

	d.ChosenOption = ""
	d.Reasoning = "awaiting human decision"
	d.MadeBy = models.MadeByAgent
	d.ReviewStatus = models.ReviewPending
	out.RequiresHuman = true
}

// UpdateReviewStatus mutates a recorded decision's review fields. Unknown
// decision ids fail with the store's not-found error.
func (m *Manager) UpdateReviewStatus(taskID, decisionID string, status models.ReviewStatus, feedback string) error {
	if !status.Valid() {
		return fmt.Errorf("invalid review status %q", status)
	}
	return m.ledger.AnnotateDecision(taskID, decisionID, status, feedback)
}

// PendingReviews returns the ledger entries still awaiting review.
func (m *Manager) PendingReviews(taskID string) ([]models.Decision, error) {
	all, err := m.ledger.LoadLedger(taskID)
	if err != nil {
		return nil, err
	}
	var pending []models.Decision
	for _, d := range all {
		if d.ReviewStatus == models.ReviewPending {
			pending = append(pending, d)
		}
	}
	return pending, nil
}
