package session

import (
	"reflect"
	"testing"

	"github.com/steadylabs/steward/pkg/models"
)

func TestDeriveChildOverridesOnlyWorkDirAndInstructions(t *testing.T) {
	parent := Context{
		TaskID:          "task-1",
		TaskDescription: "migrate module X",
		MilestoneID:     "ms-1",
		SubtaskID:       "ms-1-st-1",
		Branch:          "subtask/ms-1/ms-1-st-1",
		BaseCommit:      "deadbeef",
		WorkDir:         "/repo",
		Scope:           models.Scope{MaxIterations: 20, MaxCost: 5},
		PinnedContext:   []models.ContextItem{{Key: "tests", Content: "run them"}},
		Learnings:       []string{"prefer the v2 client"},
		Instructions:    "original instructions",
	}

	child := DeriveChild(parent, "sess-parent", "/worktrees/opt-a", "explore option A")

	if child.WorkDir != "/worktrees/opt-a" {
		t.Errorf("WorkDir = %q, want override", child.WorkDir)
	}
	if child.Instructions != "explore option A" {
		t.Errorf("Instructions = %q, want override", child.Instructions)
	}
	if child.ParentSessionID != "sess-parent" {
		t.Errorf("ParentSessionID = %q, want sess-parent", child.ParentSessionID)
	}

	// Everything else is inherited verbatim.
	if child.TaskID != parent.TaskID || child.TaskDescription != parent.TaskDescription {
		t.Error("task briefing not inherited")
	}
	if child.Branch != parent.Branch || child.BaseCommit != parent.BaseCommit {
		t.Error("branch lineage not inherited")
	}
	if !reflect.DeepEqual(child.Scope, parent.Scope) {
		t.Error("scope not inherited")
	}
	if len(child.PinnedContext) != 1 || child.PinnedContext[0].Key != "tests" {
		t.Error("pinned context not inherited")
	}
	if len(child.Learnings) != 1 {
		t.Error("learnings not inherited")
	}

	// The parent context is untouched.
	if parent.WorkDir != "/repo" || parent.Instructions != "original instructions" {
		t.Error("DeriveChild mutated the parent context")
	}
}

func TestParseResult(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		want    models.SubtaskOutcome
		wantErr bool
	}{
		{
			name: "result on last line",
			out:  "progress line\n{\"outcome\":\"completed\",\"iterations\":3,\"cost\":0.42}\n",
			want: models.OutcomeCompleted,
		},
		{
			name: "blocked outcome",
			out:  "{\"outcome\":\"blocked\"}",
			want: models.OutcomeBlocked,
		},
		{
			name:    "unknown outcome",
			out:     "{\"outcome\":\"finished\"}",
			wantErr: true,
		},
		{
			name:    "no output",
			out:     "\n\n",
			wantErr: true,
		},
		{
			name:    "garbage",
			out:     "not json",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseResult(tt.out)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseResult: %v", err)
			}
			if got.Outcome != tt.want {
				t.Errorf("outcome = %s, want %s", got.Outcome, tt.want)
			}
		})
	}
}
