package session

import (
	"context"

	"github.com/steadylabs/steward/pkg/models"
)

// DecisionRequest is a decision a session raises for the control plane
// to classify, record, and act on.
type DecisionRequest struct {
	// Question is the decision being asked.
	Question string `json:"question"`
	// Options are the candidate answers, best guess first.
	Options []string `json:"options"`
	// Context is optional surrounding context.
	Context string `json:"context,omitempty"`
	// AffectedAreas lists paths or components the decision touches.
	AffectedAreas []string `json:"affected_areas,omitempty"`
}

// Result is what a finished session reports back to the orchestrator.
type Result struct {
	// Outcome is the terminal subtask outcome.
	Outcome models.SubtaskOutcome `json:"outcome"`
	// Iterations is the number of iterations the session ran.
	Iterations int `json:"iterations"`
	// Cost is the session's spend in dollars.
	Cost float64 `json:"cost"`
	// Summary is a short description of what was done.
	Summary string `json:"summary,omitempty"`
	// Error holds the failure message when Outcome is failed.
	Error string `json:"error,omitempty"`
	// Decisions holds decision requests raised during the session.
	Decisions []DecisionRequest `json:"decisions,omitempty"`
}

// Handle is a live execution session the orchestrator can await or cancel.
type Handle interface {
	// ID returns the session identifier.
	ID() string
	// Wait blocks until the session reaches a terminal outcome. The
	// context bounds the wait, not the session.
	Wait(ctx context.Context) (Result, error)
	// Cancel force-terminates the session.
	Cancel() error
}

// Factory creates and resumes execution sessions. What actually runs
// inside a session is outside the control plane.
type Factory interface {
	// Create starts a new session briefed with sc.
	Create(ctx context.Context, sc Context) (Handle, error)
	// Resume reattaches to a previously persisted session.
	Resume(ctx context.Context, sessionID string) (Handle, error)
}
