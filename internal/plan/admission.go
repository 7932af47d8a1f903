package plan

import (
	"github.com/cedarbackup/cback/internal/action"
)

// exclusive actions must be the only name in a request.
var exclusive = map[string]bool{
	action.All:      true,
	action.Rebuild:  true,
	action.Validate: true,
}

// Admit checks a raw request before any ordering is attempted. Rules apply
// in order: non-empty, exclusivity, then every name must resolve.
func Admit(requested []string, reg *action.Registry) error {
	if len(requested) == 0 {
		return newError(CodeEmptyRequest, nil, "at least one action must be specified")
	}

	for _, name := range requested {
		if exclusive[name] && len(requested) != 1 {
			return newError(CodeExclusivityViolation, []string{name},
				"action %q may not be combined with other actions", name)
		}
	}
	if exclusive[requested[0]] {
		return nil
	}

	var unknown []string
	for _, name := range requested {
		if !reg.Known(name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return newError(CodeUnknownAction, unknown, "unknown action %q", unknown[0])
	}
	return nil
}

// Expand replaces the "all" token with the pipeline actions. Any other
// request is returned as a copy.
func Expand(requested []string) []string {
	if len(requested) == 1 && requested[0] == action.All {
		return action.Pipeline()
	}
	out := make([]string, len(requested))
	copy(out, requested)
	return out
}
