package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/user"
	"strings"

	"github.com/cedarbackup/cback/internal/action"
	"github.com/cedarbackup/cback/internal/config"
	"github.com/cedarbackup/cback/internal/model"
)

// ErrInvalidEnvironment is returned by the validate action when the host
// cannot run the configured backup.
var ErrInvalidEnvironment = errors.New("configuration does not match this host")

// Validator is the in-process validate action. It re-reads the
// configuration named by the invocation and checks it against the host.
type Validator struct {
	Load func(path string) (*model.Config, error)
}

func NewValidator() *Validator {
	return &Validator{Load: config.Load}
}

func (v *Validator) Execute(_ context.Context, inv action.Invocation) error {
	cfg, err := v.Load(inv.ConfigPath)
	if err != nil {
		return fmt.Errorf("action %q: %w", inv.Action, err)
	}

	errs := CheckHost(cfg)
	out := inv.Stdout
	if out == nil {
		out = io.Discard
	}
	if errs != nil {
		fmt.Fprint(out, errs.FormatStderr())
		return fmt.Errorf("action %q: %w: %d problem(s)", inv.Action, ErrInvalidEnvironment, len(errs.Errors))
	}
	fmt.Fprintf(out, "configuration %s is valid\n", inv.ConfigPath)
	return nil
}

// CheckHost verifies what file validation cannot: that directories,
// accounts and executables named by cfg exist here.
func CheckHost(cfg *model.Config) *config.ValidationErrors {
	errs := &config.ValidationErrors{}

	if info, err := os.Stat(cfg.Options.WorkingDir); err != nil {
		errs.Add("options.working_dir", err.Error())
	} else if !info.IsDir() {
		errs.Add("options.working_dir", fmt.Sprintf("%s is not a directory", cfg.Options.WorkingDir))
	}

	if cfg.Options.BackupUser != "" {
		if _, err := user.Lookup(cfg.Options.BackupUser); err != nil {
			errs.Add("options.backup_user", err.Error())
		}
	}
	if cfg.Options.BackupGroup != "" {
		if _, err := user.LookupGroup(cfg.Options.BackupGroup); err != nil {
			errs.Add("options.backup_group", err.Error())
		}
	}
	if fields := strings.Fields(cfg.Options.RcpCommand); len(fields) > 0 {
		checkExecutable("options.rcp_command", fields[0], errs)
	}
	checkExecutable("options.shell", cfg.Options.Shell, errs)

	for _, name := range action.BuiltIns() {
		ac, ok := cfg.Actions[name]
		if !ok || len(ac.Command) == 0 {
			continue
		}
		checkExecutable(fmt.Sprintf("actions.%s.command", name), ac.Command[0], errs)
	}
	for i, ext := range cfg.Extensions.Actions {
		checkExecutable(fmt.Sprintf("extensions.actions[%d].module", i), ext.Module, errs)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func checkExecutable(field, program string, errs *config.ValidationErrors) {
	if program == "" {
		return
	}
	if _, err := exec.LookPath(program); err != nil {
		errs.Add(field, err.Error())
	}
}
