// Package config handles configuration loading and management for Steward.
// It supports XDG config paths, project-level overrides, and environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for Steward.
type Config struct {
	Anthropic   AnthropicConfig   `mapstructure:"anthropic"`
	Defaults    DefaultsConfig    `mapstructure:"defaults"`
	Session     SessionConfig     `mapstructure:"session"`
	State       StateConfig       `mapstructure:"state"`
	Checkpoints CheckpointsConfig `mapstructure:"checkpoints"`
}

// AnthropicConfig holds reasoning collaborator settings.
type AnthropicConfig struct {
	// APIKey is the Anthropic API key. ${VAR} references are expanded.
	APIKey string `mapstructure:"api_key"`
	// Model overrides the default model.
	Model string `mapstructure:"model"`
	// UseBedrock routes calls through AWS Bedrock instead of the
	// Anthropic API.
	UseBedrock bool `mapstructure:"use_bedrock"`
	// Region is the AWS region for Bedrock.
	Region string `mapstructure:"region"`
	// Profile is the AWS profile for Bedrock.
	Profile string `mapstructure:"profile"`
}

// DefaultsConfig holds default values for task runs.
type DefaultsConfig struct {
	// BaseBranch is the branch subtask and exploration branches are cut
	// from.
	BaseBranch string `mapstructure:"base_branch"`
	// MaxIterationsPerOption caps each parallel exploration session.
	MaxIterationsPerOption int `mapstructure:"max_iterations_per_option"`
	// MaxCostPerOption caps each parallel exploration session's spend.
	MaxCostPerOption float64 `mapstructure:"max_cost_per_option"`
	// ReviewTimeout bounds human review waits.
	ReviewTimeout time.Duration `mapstructure:"review_timeout"`
	// VerifyCommand runs in each exploration worktree to pick a winner.
	// Empty disables decision-level parallel exploration.
	VerifyCommand string `mapstructure:"verify_command"`
}

// SessionConfig holds the external agent command sessions run through.
type SessionConfig struct {
	// Command is the agent binary spawned per subtask session.
	Command string `mapstructure:"command"`
	// Args are extra arguments passed to the command.
	Args []string `mapstructure:"args"`
}

// StateConfig holds persistence settings.
type StateConfig struct {
	// Dir is the state directory. Defaults to .steward/state in the
	// project.
	Dir string `mapstructure:"dir"`
	// LearningsDB is the SQLite learnings database path. Defaults to
	// .steward/learnings.db.
	LearningsDB string `mapstructure:"learnings_db"`
}

// CheckpointsConfig holds checkpoint definition settings.
type CheckpointsConfig struct {
	// File is the YAML file of checkpoint definitions. Empty disables
	// checkpoints.
	File string `mapstructure:"file"`
}

// Load loads configuration from XDG paths, project overrides, and
// environment variables. Precedence (highest to lowest):
// 1. Environment variables (STEWARD_*, ANTHROPIC_API_KEY)
// 2. Project config (.steward.yaml in current directory or parent)
// 3. User config (~/.config/steward/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("STEWARD")
	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	return cfg, nil
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Defaults: DefaultsConfig{
			BaseBranch:             "main",
			MaxIterationsPerOption: 10,
			MaxCostPerOption:       5.0,
			ReviewTimeout:          30 * time.Minute,
		},
		Session: SessionConfig{
			Command: "steward-agent",
		},
		State: StateConfig{
			Dir:         filepath.Join(".steward", "state"),
			LearningsDB: filepath.Join(".steward", "learnings.db"),
		},
	}
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.use_bedrock", false)

	v.SetDefault("defaults.base_branch", "main")
	v.SetDefault("defaults.max_iterations_per_option", 10)
	v.SetDefault("defaults.max_cost_per_option", 5.0)
	v.SetDefault("defaults.review_timeout", "30m")
	v.SetDefault("defaults.verify_command", "")

	v.SetDefault("session.command", "steward-agent")

	v.SetDefault("state.dir", filepath.Join(".steward", "state"))
	v.SetDefault("state.learnings_db", filepath.Join(".steward", "learnings.db"))

	v.SetDefault("checkpoints.file", "")
}

// getUserConfigDir returns the XDG config directory for Steward.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "steward")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "steward")
	}
	return filepath.Join(home, ".config", "steward")
}

// findProjectConfig searches for .steward.yaml in the current directory and
// parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".steward.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}
