package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steadylabs/steward/pkg/models"
)

var (
	decisionsApprove  string
	decisionsOverride string
	decisionsFeedback string
)

var decisionsCmd = &cobra.Command{
	Use:   "decisions <task-id>",
	Short: "Review a task's decision ledger",
	Long: `List the recorded decisions for a task, and optionally approve or
override one:

  steward decisions task-1a2b3c4d
  steward decisions task-1a2b3c4d --approve dec-5e6f7a8b
  steward decisions task-1a2b3c4d --override dec-5e6f7a8b --feedback "use option B"`,
	Args: cobra.ExactArgs(1),
	RunE: runDecisions,
}

func init() {
	decisionsCmd.Flags().StringVar(&decisionsApprove, "approve", "", "Decision id to approve")
	decisionsCmd.Flags().StringVar(&decisionsOverride, "override", "", "Decision id to override")
	decisionsCmd.Flags().StringVar(&decisionsFeedback, "feedback", "", "Reviewer feedback to attach")
}

func runDecisions(cmd *cobra.Command, args []string) error {
	taskID := args[0]

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	store, err := openStateStore(cwd)
	if err != nil {
		return err
	}

	if decisionsApprove != "" && decisionsOverride != "" {
		return fmt.Errorf("--approve and --override are mutually exclusive")
	}
	if decisionsApprove != "" {
		if err := store.AnnotateDecision(taskID, decisionsApprove, models.ReviewApproved, decisionsFeedback); err != nil {
			return fmt.Errorf("approve decision: %w", err)
		}
		color.Green("Approved %s", decisionsApprove)
	}
	if decisionsOverride != "" {
		if err := store.AnnotateDecision(taskID, decisionsOverride, models.ReviewOverridden, decisionsFeedback); err != nil {
			return fmt.Errorf("override decision: %w", err)
		}
		color.Yellow("Overrode %s", decisionsOverride)
	}

	ledger, err := store.LoadLedger(taskID)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	if len(ledger) == 0 {
		fmt.Printf("No recorded decisions for %s.\n", taskID)
		return nil
	}

	for _, d := range ledger {
		fmt.Printf("%s  [%s] %s\n", color.CyanString(d.ID), d.Tier, d.Question)
		fmt.Printf("    chose %q (%s, %s)\n", d.ChosenOption, d.MadeBy, reviewBadge(d.ReviewStatus))
		if d.Reasoning != "" {
			fmt.Printf("    %s\n", strings.TrimSpace(d.Reasoning))
		}
		if d.HumanFeedback != "" {
			fmt.Printf("    feedback: %s\n", d.HumanFeedback)
		}
	}
	return nil
}

func reviewBadge(status models.ReviewStatus) string {
	switch status {
	case models.ReviewApproved:
		return color.GreenString("approved")
	case models.ReviewOverridden:
		return color.YellowString("overridden")
	default:
		return color.YellowString("pending")
	}
}
