package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steadylabs/steward/internal/config"
	"github.com/steadylabs/steward/internal/state"
	"github.com/steadylabs/steward/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show persisted tasks and in-flight sessions",
	Long: `Display every persisted task with its milestone progress, plus any
in-flight subtask session records.`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	store, err := openStateStore(cwd)
	if err != nil {
		return err
	}

	taskIDs, err := store.ListTaskIDs()
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	if len(taskIDs) == 0 {
		fmt.Println("No tasks. Run 'steward run <plan.yaml>' to start one.")
		return nil
	}

	for _, id := range taskIDs {
		task, err := store.LoadTask(id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: load task %s: %v\n", id, err)
			continue
		}
		ledger, err := store.LoadLedger(id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: load ledger for %s: %v\n", id, err)
		}
		printTask(task, len(ledger))

		sessions, err := store.ListSessions(id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: list sessions for %s: %v\n", id, err)
			continue
		}
		for _, rec := range sessions {
			fmt.Printf("    session %s: subtask %s on %s (%s)\n",
				rec.SessionID, rec.SubtaskID, rec.Branch, rec.Status)
		}
	}
	return nil
}

func printTask(task *models.Task, decisionCount int) {
	header := fmt.Sprintf("%s  %s", color.CyanString(task.ID), task.Description)
	if task.Completed() {
		header += "  " + color.GreenString("[completed]")
	}
	fmt.Println(header)
	fmt.Printf("  cost $%.2f, %d iterations, %d decisions\n",
		task.TotalCost, task.TotalIterations, decisionCount)

	for _, m := range task.Milestones {
		done := 0
		for _, st := range m.Subtasks {
			for _, cid := range task.CompletedSubtasks {
				if cid == st.ID {
					done++
					break
				}
			}
		}
		fmt.Printf("  %s %s: %s (%d/%d subtasks)\n",
			milestoneBadge(m.Status), m.ID, m.Name, done, len(m.Subtasks))
	}
}

func milestoneBadge(status models.MilestoneStatus) string {
	switch status {
	case models.MilestoneCompleted:
		return color.GreenString("✓")
	case models.MilestoneInProgress:
		return color.YellowString("▶")
	case models.MilestoneBlocked:
		return color.RedString("✗")
	default:
		return "·"
	}
}

// openStateStore opens the configured state directory without wiring the
// whole engine.
func openStateStore(repoPath string) (*state.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	dir := cfg.State.Dir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(repoPath, dir)
	}
	store, err := state.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}
	return store, nil
}
