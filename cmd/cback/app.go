package main

import (
	"fmt"
	"io"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/cedarbackup/cback/internal/action"
	"github.com/cedarbackup/cback/internal/config"
	"github.com/cedarbackup/cback/internal/executor"
	"github.com/cedarbackup/cback/internal/logging"
	"github.com/cedarbackup/cback/internal/model"
	"github.com/cedarbackup/cback/internal/plan"
)

const lockFileName = "cback.lock"

// app holds the global switches shared by every subcommand.
type app struct {
	configPath string
	verbose    bool
	quiet      bool
	debug      bool
	output     bool
	logfile    string
	owner      string
	mode       string

	stdout io.Writer
	stderr io.Writer
}

func (a *app) loadConfig() (*model.Config, error) {
	return config.Load(a.configPath)
}

func (a *app) newLogger(cfg *model.Config) (*zap.Logger, func() error, error) {
	file := cfg.Logging.File
	if a.logfile != "" {
		file = a.logfile
	}
	owner := cfg.Logging.Owner
	if a.owner != "" {
		owner = a.owner
	}
	modeStr := cfg.Logging.Mode
	if a.mode != "" {
		modeStr = a.mode
	}
	mode, err := logging.ParseFileMode(modeStr)
	if err != nil {
		return nil, nil, err
	}
	return logging.New(logging.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		File:    file,
		Verbose: a.verbose,
		Quiet:   a.quiet,
		Debug:   a.debug,
		Owner:   owner,
		Mode:    mode,
	})
}

// buildPlan resolves requested against the actions and hooks cfg defines.
func buildPlan(cfg *model.Config, requested []string) ([]plan.Step, error) {
	mode, err := action.ParseMode(cfg.Extensions.OrderMode)
	if err != nil {
		return nil, err
	}
	builtins, exts := executor.FromConfig(cfg)
	reg, err := action.NewRegistry(mode, builtins, exts)
	if err != nil {
		return nil, err
	}
	hooks, err := hookTable(cfg)
	if err != nil {
		return nil, err
	}
	return plan.Build(requested, reg, hooks)
}

func hookTable(cfg *model.Config) (*action.HookTable, error) {
	precedence, err := action.ParsePrecedence(cfg.Options.HookPrecedence)
	if err != nil {
		return nil, err
	}
	hooks := make([]action.Hook, 0, len(cfg.Hooks))
	for i, h := range cfg.Hooks {
		phase, err := action.ParsePhase(h.Phase)
		if err != nil {
			return nil, fmt.Errorf("hooks[%d]: %w", i, err)
		}
		hooks = append(hooks, action.Hook{Action: h.Action, Phase: phase, Command: h.Command})
	}
	return action.NewHookTable(hooks, precedence), nil
}

func lockPath(cfg *model.Config) string {
	if cfg.Lock.Path != "" {
		return cfg.Lock.Path
	}
	return filepath.Join(cfg.Options.WorkingDir, lockFileName)
}
