package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steadylabs/steward/internal/orchestrator"
)

var runCmd = &cobra.Command{
	Use:   "run <plan.yaml>",
	Short: "Create a task from a plan file and run it",
	Long: `Create a task from a YAML plan of milestones and subtasks, then drive
it until every milestone completes or a checkpoint pauses the run.

The plan file looks like:

  description: migrate module X
  milestones:
    - id: ms-1
      name: Extract interfaces
      subtasks:
        - id: ms-1-st-1
          description: define the interfaces
    - id: ms-2
      name: Migrate callers
      depends_on: [ms-1]
      subtasks:
        - id: ms-2-st-1
          description: update call sites`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	if err := CheckGit(); err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	description, milestones, pinned, err := loadPlan(args[0])
	if err != nil {
		return err
	}

	eng, err := buildEngine(cwd)
	if err != nil {
		return err
	}
	defer eng.close()

	task, err := eng.orch.CreateTask(description, milestones, pinned)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	fmt.Printf("Created task %s: %s\n", color.CyanString(task.ID), task.Description)

	eng.watchProgress(cmd.Context())
	outcome, err := eng.orch.Run(cmd.Context(), task)
	if err != nil {
		return fmt.Errorf("run task: %w", err)
	}
	printRunOutcome(task.ID, outcome)
	return nil
}

func printRunOutcome(taskID string, outcome orchestrator.RunOutcome) {
	switch outcome {
	case orchestrator.RunCompleted:
		color.Green("Task %s completed.", taskID)
	case orchestrator.RunPaused:
		color.Yellow("Task %s paused. Resume with: steward resume %s", taskID, taskID)
	case orchestrator.RunAborted:
		color.Red("Task %s aborted by checkpoint review.", taskID)
	case orchestrator.RunStalled:
		color.Yellow("Task %s stalled: no milestone can make progress. Review failed or blocked subtasks.", taskID)
	}
}
