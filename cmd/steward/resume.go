package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <task-id>",
	Short: "Resume an interrupted task",
	Long: `Reload a persisted task snapshot, reattach to any in-flight subtask
sessions, and continue driving the task. Session records that can no
longer be resumed are discarded.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func runResume(cmd *cobra.Command, args []string) error {
	if err := CheckGit(); err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	eng, err := buildEngine(cwd)
	if err != nil {
		return err
	}
	defer eng.close()

	task, live, err := eng.orch.ResumeTask(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("resume task: %w", err)
	}
	if task.Completed() {
		color.Green("Task %s is already completed.", task.ID)
		return nil
	}
	if len(live) > 0 {
		fmt.Printf("Reattached to %d in-flight session(s):\n", len(live))
		for _, rs := range live {
			fmt.Printf("  %s (subtask %s, branch %s)\n", rs.Handle.ID(), rs.Record.SubtaskID, rs.Record.Branch)
		}
	}

	eng.watchProgress(cmd.Context())

	// Drain reattached sessions before scheduling anything new.
	for _, rs := range live {
		if _, err := eng.orch.AwaitSubtask(cmd.Context(), task, rs.Record.SubtaskID, rs.Handle); err != nil {
			fmt.Fprintf(os.Stderr, "warning: await resumed subtask %s: %v\n", rs.Record.SubtaskID, err)
		}
	}

	outcome, err := eng.orch.Run(cmd.Context(), task)
	if err != nil {
		return fmt.Errorf("run task: %w", err)
	}
	printRunOutcome(task.ID, outcome)
	return nil
}
