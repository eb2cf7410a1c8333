package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/steadylabs/steward/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key]",
	Short: "Show configuration",
	Long: `Display the effective configuration.

Without arguments, displays all configuration values. With one argument,
displays the value for that key.

Configuration is read from ~/.config/steward/config.yaml, with
project-specific overrides in .steward.yaml and STEWARD_* environment
variables. The API key is always shown masked.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		if len(args) == 1 {
			value, err := configValue(cfg, args[0])
			if err != nil {
				return err
			}
			fmt.Println(value)
			return nil
		}

		displayConfig(cfg)
		return nil
	},
}

// displayConfig prints every configuration value, masking the API key and
// warning when the configured key looks malformed.
func displayConfig(cfg *config.Config) {
	key, keyErr := config.GetAPIKey(cfg)
	fmt.Printf("anthropic.api_key: %s\n", config.MaskAPIKey(key))
	fmt.Printf("anthropic.model: %s\n", cfg.Anthropic.Model)
	fmt.Printf("anthropic.use_bedrock: %t\n", cfg.Anthropic.UseBedrock)
	fmt.Printf("defaults.base_branch: %s\n", cfg.Defaults.BaseBranch)
	fmt.Printf("defaults.max_iterations_per_option: %d\n", cfg.Defaults.MaxIterationsPerOption)
	fmt.Printf("defaults.max_cost_per_option: %.2f\n", cfg.Defaults.MaxCostPerOption)
	fmt.Printf("defaults.review_timeout: %s\n", cfg.Defaults.ReviewTimeout)
	fmt.Printf("defaults.verify_command: %s\n", cfg.Defaults.VerifyCommand)
	fmt.Printf("session.command: %s\n", cfg.Session.Command)
	fmt.Printf("state.dir: %s\n", cfg.State.Dir)
	fmt.Printf("state.learnings_db: %s\n", cfg.State.LearningsDB)
	fmt.Printf("checkpoints.file: %s\n", cfg.Checkpoints.File)

	if keyErr == nil && !cfg.Anthropic.UseBedrock {
		if err := config.ValidateAPIKey(key); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
	}
}

// configValue returns a single configuration value by dot-notation key.
func configValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		k, _ := config.GetAPIKey(cfg)
		return config.MaskAPIKey(k), nil
	case "anthropic.model":
		return cfg.Anthropic.Model, nil
	case "anthropic.use_bedrock":
		return strconv.FormatBool(cfg.Anthropic.UseBedrock), nil
	case "defaults.base_branch":
		return cfg.Defaults.BaseBranch, nil
	case "defaults.max_iterations_per_option":
		return strconv.Itoa(cfg.Defaults.MaxIterationsPerOption), nil
	case "defaults.max_cost_per_option":
		return strconv.FormatFloat(cfg.Defaults.MaxCostPerOption, 'f', 2, 64), nil
	case "defaults.review_timeout":
		return cfg.Defaults.ReviewTimeout.String(), nil
	case "defaults.verify_command":
		return cfg.Defaults.VerifyCommand, nil
	case "session.command":
		return cfg.Session.Command, nil
	case "state.dir":
		return cfg.State.Dir, nil
	case "state.learnings_db":
		return cfg.State.LearningsDB, nil
	case "checkpoints.file":
		return cfg.Checkpoints.File, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}
