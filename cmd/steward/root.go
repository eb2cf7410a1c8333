package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

// CheckGit verifies that git is available in PATH.
func CheckGit() error {
	if _, err := exec.LookPath("git"); err != nil {
		return fmt.Errorf("git not found in PATH\n\n" +
			"Steward requires git for subtask branches and parallel exploration worktrees.")
	}
	return nil
}

var rootCmd = &cobra.Command{
	Use:   "steward",
	Short: "Autonomous multi-step work engine",
	Long: `Steward decomposes a large unit of work into milestones and subtasks,
runs each subtask in its own execution session, and decides per decision
how much autonomy to exercise: act alone, record for async review, explore
two competing implementations on parallel worktrees, or block for a human.

Checkpoints gate progress: trigger conditions (iterations, cost, elapsed
time, milestone completion, stuck detection, consecutive errors) raise
pass/fail evaluations that can continue, adjust, pause, or abort the run.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(decisionsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
