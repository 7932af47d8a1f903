// Package executor provides the action implementations cback can run:
// external commands for configured built-ins and extensions, and the
// in-process configuration validator.
package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"slices"

	"github.com/cedarbackup/cback/internal/action"
	"github.com/cedarbackup/cback/internal/model"
)

// Environment is exported to every command as CBACK_* variables.
type Environment struct {
	WorkingDir  string
	BackupUser  string
	BackupGroup string
	StartingDay string
	RcpCommand  string
}

// EnvironmentFrom copies the options section into an Environment.
func EnvironmentFrom(o model.OptionsConfig) Environment {
	return Environment{
		WorkingDir:  o.WorkingDir,
		BackupUser:  o.BackupUser,
		BackupGroup: o.BackupGroup,
		StartingDay: o.StartingDay,
		RcpCommand:  o.RcpCommand,
	}
}

// Vars returns the variables for one invocation, in a stable order.
func (e Environment) Vars(inv action.Invocation) []string {
	return []string{
		"CBACK_ACTION=" + inv.Action,
		"CBACK_RUN_ID=" + inv.RunID,
		"CBACK_CONFIG=" + inv.ConfigPath,
		"CBACK_WORKING_DIR=" + e.WorkingDir,
		"CBACK_BACKUP_USER=" + e.BackupUser,
		"CBACK_BACKUP_GROUP=" + e.BackupGroup,
		"CBACK_STARTING_DAY=" + e.StartingDay,
		"CBACK_RCP_COMMAND=" + e.RcpCommand,
	}
}

// Command runs an action as an external program:
//
//	argv... --config <path> [--full]
type Command struct {
	Argv []string
	Env  Environment
}

func NewCommand(argv []string, env Environment) *Command {
	return &Command{Argv: slices.Clone(argv), Env: env}
}

// NewExtension builds the command for an extension action. A non-empty
// function is passed as the first argument to the module.
func NewExtension(module, function string, env Environment) *Command {
	argv := []string{module}
	if function != "" {
		argv = append(argv, function)
	}
	return &Command{Argv: argv, Env: env}
}

// Args returns the full argument vector for inv, program included.
func (c *Command) Args(inv action.Invocation) []string {
	args := slices.Clone(c.Argv)
	if inv.ConfigPath != "" {
		args = append(args, "--config", inv.ConfigPath)
	}
	if inv.Full {
		args = append(args, "--full")
	}
	return args
}

func (c *Command) Execute(ctx context.Context, inv action.Invocation) error {
	if len(c.Argv) == 0 || c.Argv[0] == "" {
		return fmt.Errorf("action %q: %w", inv.Action, action.ErrNoExecutor)
	}

	args := c.Args(inv)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Env = append(os.Environ(), c.Env.Vars(inv)...)
	cmd.Stdout = inv.Stdout
	cmd.Stderr = inv.Stderr
	if c.Env.WorkingDir != "" {
		if info, err := os.Stat(c.Env.WorkingDir); err == nil && info.IsDir() {
			cmd.Dir = c.Env.WorkingDir
		}
	}

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("action %q: %w", inv.Action, ctx.Err())
		}
		return fmt.Errorf("action %q: %s: %w", inv.Action, args[0], err)
	}
	return nil
}

// ExitCode extracts the exit status of a failed command, or -1 when err
// did not come from a process exit.
func ExitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// FromConfig turns the actions and extensions sections into registry
// input. Built-ins with no configured command are left out; validate is
// always provided in-process.
func FromConfig(cfg *model.Config) (map[string]action.Executor, []action.Extension) {
	env := EnvironmentFrom(cfg.Options)

	builtins := make(map[string]action.Executor, len(cfg.Actions)+1)
	for name, ac := range cfg.Actions {
		if len(ac.Command) == 0 {
			continue
		}
		builtins[name] = NewCommand(ac.Command, env)
	}
	builtins[action.Validate] = NewValidator()

	exts := make([]action.Extension, 0, len(cfg.Extensions.Actions))
	for _, ec := range cfg.Extensions.Actions {
		ext := action.Extension{
			Name:     ec.Name,
			Executor: NewExtension(ec.Module, ec.Function, env),
			Index:    ec.Index,
		}
		if ec.Depends != nil {
			ext.Depends = &action.Dependencies{
				Before: slices.Clone(ec.Depends.Before),
				After:  slices.Clone(ec.Depends.After),
			}
		}
		exts = append(exts, ext)
	}
	return builtins, exts
}
