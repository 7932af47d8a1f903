package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cedarbackup/cback/internal/action"
	"github.com/cedarbackup/cback/internal/model"
)

type ValidationError struct {
	FieldPath string
	Message   string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.FieldPath, e.Message)
}

type ValidationErrors struct {
	Errors []ValidationError
}

func (ve *ValidationErrors) Add(fieldPath, message string) {
	ve.Errors = append(ve.Errors, ValidationError{FieldPath: fieldPath, Message: message})
}

func (ve *ValidationErrors) HasErrors() bool {
	return len(ve.Errors) > 0
}

func (ve *ValidationErrors) Error() string {
	msgs := make([]string, 0, len(ve.Errors))
	for _, e := range ve.Errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "\n")
}

func (ve *ValidationErrors) FormatStderr() string {
	var sb strings.Builder
	for _, e := range ve.Errors {
		fmt.Fprintf(&sb, "error: %s: %s\n", e.FieldPath, e.Message)
	}
	return sb.String()
}

var weekdays = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
}

// Validate checks cfg and returns every problem found, or nil.
func Validate(cfg *model.Config) *ValidationErrors {
	errs := &ValidationErrors{}

	validateOptions(cfg.Options, errs)

	for name, ac := range cfg.Actions {
		prefix := fmt.Sprintf("actions.%s", name)
		if !action.IsBuiltIn(name) || name == action.Validate {
			errs.Add(prefix, "only collect, stage, store, purge and rebuild take a command")
			continue
		}
		if len(ac.Command) == 0 || ac.Command[0] == "" {
			errs.Add(prefix+".command", "required field is missing")
		}
	}

	mode, err := action.ParseMode(cfg.Extensions.OrderMode)
	if err != nil {
		errs.Add("extensions.order_mode", err.Error())
	}
	validateExtensions(cfg.Extensions.Actions, mode, errs)

	for i, h := range cfg.Hooks {
		prefix := fmt.Sprintf("hooks[%d]", i)
		if h.Action == "" {
			errs.Add(prefix+".action", "required field is missing")
		}
		if _, err := action.ParsePhase(h.Phase); err != nil {
			errs.Add(prefix+".phase", err.Error())
		}
		if strings.TrimSpace(h.Command) == "" {
			errs.Add(prefix+".command", "required field is missing")
		}
	}

	switch cfg.Logging.Format {
	case "", "console", "json":
	default:
		errs.Add("logging.format", fmt.Sprintf("must be 'console' or 'json', got %q", cfg.Logging.Format))
	}
	// An unquoted 0640 reaches here as "416"; the leading zero catches it.
	if m := cfg.Logging.Mode; m != "" {
		if v, err := strconv.ParseUint(m, 8, 32); err != nil || v > 0777 || !strings.HasPrefix(m, "0") {
			errs.Add("logging.mode", fmt.Sprintf("must be a quoted octal permission such as \"0640\", got %q", m))
		}
	}
	if cfg.Logging.Owner != "" {
		name, group, ok := strings.Cut(cfg.Logging.Owner, ":")
		if !ok || name == "" || group == "" {
			errs.Add("logging.owner", fmt.Sprintf("must be user:group, got %q", cfg.Logging.Owner))
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateOptions(o model.OptionsConfig, errs *ValidationErrors) {
	if o.StartingDay != "" && !weekdays[strings.ToLower(o.StartingDay)] {
		errs.Add("options.starting_day", fmt.Sprintf("must be an English day of the week, got %q", o.StartingDay))
	}
	if o.WorkingDir != "" && !filepath.IsAbs(o.WorkingDir) {
		errs.Add("options.working_dir", fmt.Sprintf("must be an absolute path, got %q", o.WorkingDir))
	}
	if _, err := action.ParsePrecedence(o.HookPrecedence); err != nil {
		errs.Add("options.hook_precedence", err.Error())
	}
}

func validateExtensions(exts []model.ExtensionConfig, mode action.Mode, errs *ValidationErrors) {
	seen := make(map[string]bool, len(exts))
	for i, ext := range exts {
		prefix := fmt.Sprintf("extensions.actions[%d]", i)
		switch {
		case ext.Name == "":
			errs.Add(prefix+".name", "required field is missing")
		case ext.Name == action.All || action.IsBuiltIn(ext.Name):
			errs.Add(prefix+".name", fmt.Sprintf("%q is reserved for a built-in action", ext.Name))
		case seen[ext.Name]:
			errs.Add(prefix+".name", fmt.Sprintf("duplicate extension name %q", ext.Name))
		}
		seen[ext.Name] = true

		if ext.Module == "" {
			errs.Add(prefix+".module", "required field is missing")
		}
		if mode == action.ModeIndex && ext.Index == nil {
			errs.Add(prefix+".index", "required in index order mode")
		}
		if ext.Depends != nil {
			for j, ref := range ext.Depends.Before {
				if ref == "" {
					errs.Add(fmt.Sprintf("%s.depends.before[%d]", prefix, j), "empty action name")
				}
			}
			for j, ref := range ext.Depends.After {
				if ref == "" {
					errs.Add(fmt.Sprintf("%s.depends.after[%d]", prefix, j), "empty action name")
				}
			}
		}
	}
}
