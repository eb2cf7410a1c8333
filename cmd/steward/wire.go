package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/steadylabs/steward/internal/checkpoint"
	"github.com/steadylabs/steward/internal/config"
	"github.com/steadylabs/steward/internal/decision"
	"github.com/steadylabs/steward/internal/exec"
	"github.com/steadylabs/steward/internal/explore"
	"github.com/steadylabs/steward/internal/git"
	"github.com/steadylabs/steward/internal/learning"
	"github.com/steadylabs/steward/internal/orchestrator"
	"github.com/steadylabs/steward/internal/protect"
	"github.com/steadylabs/steward/internal/reasoning"
	"github.com/steadylabs/steward/internal/session"
	"github.com/steadylabs/steward/internal/state"
)

// engine bundles the wired control plane for one repository.
type engine struct {
	cfg         *config.Config
	repoPath    string
	store       *state.Store
	orch        *orchestrator.Orchestrator
	decisions   *decision.Manager
	learnings   *learning.Store
	checkpoints *checkpoint.Evaluator
	logger      *orchestrator.DebugLogger
}

// watchProgress starts the checkpoint progress watcher when checkpoints
// are configured. Sessions write counters to .steward/progress.json.
func (e *engine) watchProgress(ctx context.Context) {
	if e.checkpoints == nil {
		return
	}
	path := filepath.Join(e.repoPath, ".steward", "progress.json")
	watcher, err := checkpoint.NewProgressWatcher(path, e.checkpoints)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: progress watcher unavailable: %v\n", err)
		return
	}
	watcher.Start(ctx)
}

// close releases resources held by the engine.
func (e *engine) close() {
	if e.learnings != nil {
		e.learnings.Close()
	}
	if e.logger != nil {
		e.logger.Close()
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// buildEngine wires the control plane against the repository at repoPath.
func buildEngine(repoPath string) (*engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	stateDir := cfg.State.Dir
	if !filepath.IsAbs(stateDir) {
		stateDir = filepath.Join(repoPath, stateDir)
	}
	store, err := state.Open(stateDir)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	dbPath := cfg.State.LearningsDB
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(repoPath, dbPath)
	}
	learnings, err := learning.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open learnings store: %w", err)
	}

	worktrees, err := git.NewWorktreeManager(repoPath, filepath.Join(repoPath, ".steward", "worktrees"))
	if err != nil {
		learnings.Close()
		return nil, fmt.Errorf("init worktree manager: %w", err)
	}

	sessions, err := session.NewProcFactory(cfg.Session.Command, cfg.Session.Args, stateDir)
	if err != nil {
		learnings.Close()
		return nil, fmt.Errorf("init session factory: %w", err)
	}

	// The reasoning collaborator is optional: without credentials,
	// medium-tier decisions fall back to the analyzer's conservative
	// default.
	var reasoner reasoning.Collaborator
	if key, keyErr := config.GetAPIKey(cfg); keyErr == nil || cfg.Anthropic.UseBedrock {
		client, clientErr := reasoning.NewClient(reasoning.ClientConfig{
			Model:         anthropic.Model(cfg.Anthropic.Model),
			APIKey:        key,
			UseAWSBedrock: cfg.Anthropic.UseBedrock,
			AWSRegion:     cfg.Anthropic.Region,
			AWSProfile:    cfg.Anthropic.Profile,
		})
		if clientErr != nil {
			fmt.Fprintf(os.Stderr, "warning: reasoning collaborator unavailable: %v\n", clientErr)
		} else {
			reasoner = client
		}
	}

	var evaluator *checkpoint.Evaluator
	if cfg.Checkpoints.File != "" {
		defs, defErr := checkpoint.LoadDefinitions(cfg.Checkpoints.File)
		if defErr != nil {
			learnings.Close()
			return nil, fmt.Errorf("load checkpoint definitions: %w", defErr)
		}
		evaluator = checkpoint.NewEvaluator(checkpoint.Config{
			Definitions:   defs,
			Runner:        exec.NewRunner(),
			ReviewTimeout: cfg.Defaults.ReviewTimeout,
			WorkDir:       repoPath,
		})
	}

	// Decision-level exploration needs a project-declared verification
	// command to pick winners.
	var parallel decision.ParallelRunner
	if cfg.Defaults.VerifyCommand != "" {
		parallel = explore.NewOptionRunner(explore.Config{
			Worktrees:              worktrees,
			Sessions:               sessions,
			Runner:                 exec.NewRunner(),
			Reasoner:               reasoner,
			BaseBranch:             cfg.Defaults.BaseBranch,
			MaxIterationsPerOption: cfg.Defaults.MaxIterationsPerOption,
			MaxCostPerOption:       cfg.Defaults.MaxCostPerOption,
		}, repoPath, cfg.Defaults.BaseBranch, cfg.Defaults.VerifyCommand)
	}

	manager := decision.New(store, decision.NewAnalyzer(reasoner), parallel, nil)

	guard := protect.New()
	if projectCfg := filepath.Join(repoPath, ".steward.yaml"); fileExists(projectCfg) {
		if guardErr := guard.LoadConfig(projectCfg); guardErr != nil {
			fmt.Fprintf(os.Stderr, "warning: protected areas config ignored: %v\n", guardErr)
		}
	}
	manager.SetGuard(guard)

	logger := orchestrator.NewDebugLoggerForRepo(repoPath)
	orch, err := orchestrator.New(orchestrator.Config{
		Store:         store,
		Sessions:      sessions,
		Worktrees:     worktrees,
		Decisions:     manager,
		Checkpoints:   evaluator,
		Learnings:     learnings,
		ReviewTimeout: cfg.Defaults.ReviewTimeout,
		BaseBranch:    cfg.Defaults.BaseBranch,
		Logger:        logger,
	})
	if err != nil {
		learnings.Close()
		logger.Close()
		return nil, err
	}

	return &engine{
		cfg:         cfg,
		repoPath:    repoPath,
		store:       store,
		orch:        orch,
		decisions:   manager,
		learnings:   learnings,
		checkpoints: evaluator,
		logger:      logger,
	}, nil
}
