package checkpoint

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/steadylabs/steward/pkg/models"
)

// definitionsFile is the YAML shape of a checkpoint definitions file.
type definitionsFile struct {
	Checkpoints []models.CheckpointDefinition `yaml:"checkpoints"`
}

// LoadDefinitions reads checkpoint definitions from a YAML file and
// validates them.
func LoadDefinitions(path string) ([]models.CheckpointDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read checkpoint definitions: %w", err)
	}

	var file definitionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse checkpoint definitions: %w", err)
	}

	if err := ValidateDefinitions(file.Checkpoints); err != nil {
		return nil, err
	}
	return file.Checkpoints, nil
}

// ValidateDefinitions checks that every definition is well-formed.
func ValidateDefinitions(defs []models.CheckpointDefinition) error {
	seen := make(map[string]bool, len(defs))
	for _, def := range defs {
		if def.ID == "" {
			return fmt.Errorf("checkpoint %q has no id", def.Name)
		}
		if seen[def.ID] {
			return fmt.Errorf("duplicate checkpoint id %q", def.ID)
		}
		seen[def.ID] = true

		if len(def.Conditions) == 0 {
			return fmt.Errorf("checkpoint %q has no trigger conditions", def.ID)
		}
		for _, cond := range def.Conditions {
			if !cond.Type.Valid() {
				return fmt.Errorf("checkpoint %q: unknown condition type %q", def.ID, cond.Type)
			}
			if cond.Type == models.ConditionMilestone && cond.MilestoneID == "" {
				return fmt.Errorf("checkpoint %q: milestone condition needs milestone_id", def.ID)
			}
		}
		for _, crit := range def.Criteria {
			if !crit.Type.Valid() {
				return fmt.Errorf("checkpoint %q: unknown criterion type %q", def.ID, crit.Type)
			}
			if crit.Type == models.CriterionCommand && crit.Command == "" {
				return fmt.Errorf("checkpoint %q: command criterion %q needs a command", def.ID, crit.Name)
			}
		}
	}
	return nil
}
