package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/steadylabs/steward/pkg/models"
)

// planFile is the YAML plan format accepted by `steward run`.
type planFile struct {
	Description   string            `yaml:"description"`
	PinnedContext []planContextItem `yaml:"pinned_context"`
	Milestones    []planMilestone   `yaml:"milestones"`
}

type planContextItem struct {
	Key     string `yaml:"key"`
	Content string `yaml:"content"`
	Reason  string `yaml:"reason"`
}

type planMilestone struct {
	ID                  string        `yaml:"id"`
	Name                string        `yaml:"name"`
	Description         string        `yaml:"description"`
	DependsOn           []string      `yaml:"depends_on"`
	CompletionCriteria  []string      `yaml:"completion_criteria"`
	RequiresHumanReview bool          `yaml:"requires_human_review"`
	Subtasks            []planSubtask `yaml:"subtasks"`
}

type planSubtask struct {
	ID                 string    `yaml:"id"`
	Description        string    `yaml:"description"`
	AcceptanceCriteria string    `yaml:"acceptance_criteria"`
	DependsOn          []string  `yaml:"depends_on"`
	Scope              planScope `yaml:"scope"`
}

type planScope struct {
	ExpectedFiles  []string `yaml:"expected_files"`
	ForbiddenPaths []string `yaml:"forbidden_paths"`
	MaxIterations  int      `yaml:"max_iterations"`
	MaxCost        float64  `yaml:"max_cost"`
}

// loadPlan reads a YAML plan file into the task model.
func loadPlan(path string) (string, []models.Milestone, []models.ContextItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, nil, fmt.Errorf("read plan file: %w", err)
	}

	var plan planFile
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return "", nil, nil, fmt.Errorf("parse plan file: %w", err)
	}
	if plan.Description == "" {
		return "", nil, nil, fmt.Errorf("plan file %s has no description", path)
	}
	if len(plan.Milestones) == 0 {
		return "", nil, nil, fmt.Errorf("plan file %s has no milestones", path)
	}

	milestones := make([]models.Milestone, 0, len(plan.Milestones))
	for _, pm := range plan.Milestones {
		m := models.Milestone{
			ID:                  pm.ID,
			Name:                pm.Name,
			Description:         pm.Description,
			Status:              models.MilestonePending,
			DependsOn:           pm.DependsOn,
			CompletionCriteria:  pm.CompletionCriteria,
			RequiresHumanReview: pm.RequiresHumanReview,
		}
		for _, ps := range pm.Subtasks {
			m.Subtasks = append(m.Subtasks, models.Subtask{
				ID:                 ps.ID,
				Description:        ps.Description,
				AcceptanceCriteria: ps.AcceptanceCriteria,
				DependsOn:          ps.DependsOn,
				Scope: models.Scope{
					ExpectedFiles:  ps.Scope.ExpectedFiles,
					ForbiddenPaths: ps.Scope.ForbiddenPaths,
					MaxIterations:  ps.Scope.MaxIterations,
					MaxCost:        ps.Scope.MaxCost,
				},
			})
		}
		milestones = append(milestones, m)
	}

	pinned := make([]models.ContextItem, 0, len(plan.PinnedContext))
	for _, pc := range plan.PinnedContext {
		pinned = append(pinned, models.ContextItem{Key: pc.Key, Content: pc.Content, Reason: pc.Reason})
	}

	return plan.Description, milestones, pinned, nil
}
