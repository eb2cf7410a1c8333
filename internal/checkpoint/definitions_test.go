package checkpoint

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/steadylabs/steward/pkg/models"
)

const sampleYAML = `checkpoints:
  - id: cp-tests
    name: Test gate
    description: Run the suite every 10 iterations
    auto_continue_on_pass: true
    conditions:
      - type: iteration_count
        threshold: 10
      - type: cost_threshold
        threshold: 25
    criteria:
      - name: unit tests
        type: command
        command: go test ./...
        required: true
      - name: reviewer sign-off
        type: manual
        required: false
  - id: cp-milestone
    name: Milestone gate
    conditions:
      - type: milestone
        milestone_id: ms-1
    criteria:
      - name: acceptance
        type: manual
        required: true
`

func writeDefs(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "checkpoints.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write defs: %v", err)
	}
	return path
}

func TestLoadDefinitions(t *testing.T) {
	defs, err := LoadDefinitions(writeDefs(t, sampleYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("expected 2 definitions, got %d", len(defs))
	}

	first := defs[0]
	if first.ID != "cp-tests" || !first.AutoContinueOnPass {
		t.Errorf("unexpected first definition: %+v", first)
	}
	if len(first.Conditions) != 2 || first.Conditions[0].Type != models.ConditionIterationCount {
		t.Errorf("conditions not parsed: %+v", first.Conditions)
	}
	if len(first.Criteria) != 2 || !first.Criteria[0].Required || first.Criteria[1].Required {
		t.Errorf("criteria not parsed: %+v", first.Criteria)
	}

	if defs[1].Conditions[0].MilestoneID != "ms-1" {
		t.Errorf("milestone id not parsed: %+v", defs[1].Conditions[0])
	}
}

func TestLoadDefinitionsValidation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing id",
			yaml:    "checkpoints:\n  - name: x\n    conditions:\n      - type: stuck_detection\n",
			wantErr: "no id",
		},
		{
			name:    "duplicate id",
			yaml:    "checkpoints:\n  - id: a\n    conditions:\n      - type: stuck_detection\n  - id: a\n    conditions:\n      - type: stuck_detection\n",
			wantErr: "duplicate",
		},
		{
			name:    "no conditions",
			yaml:    "checkpoints:\n  - id: a\n",
			wantErr: "no trigger conditions",
		},
		{
			name:    "bad condition type",
			yaml:    "checkpoints:\n  - id: a\n    conditions:\n      - type: phase_of_moon\n",
			wantErr: "unknown condition type",
		},
		{
			name:    "milestone without id",
			yaml:    "checkpoints:\n  - id: a\n    conditions:\n      - type: milestone\n",
			wantErr: "needs milestone_id",
		},
		{
			name:    "command without command",
			yaml:    "checkpoints:\n  - id: a\n    conditions:\n      - type: stuck_detection\n    criteria:\n      - name: c\n        type: command\n",
			wantErr: "needs a command",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadDefinitions(writeDefs(t, tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}
