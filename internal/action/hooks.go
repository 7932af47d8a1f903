package action

import "fmt"

// Phase says whether a hook fires before or after its action.
type Phase string

const (
	PhasePre  Phase = "pre"
	PhasePost Phase = "post"
)

// ParsePhase validates a configured hook phase.
func ParsePhase(s string) (Phase, error) {
	switch Phase(s) {
	case PhasePre, PhasePost:
		return Phase(s), nil
	default:
		return "", fmt.Errorf("unknown hook phase %q (want %q or %q)", s, PhasePre, PhasePost)
	}
}

// Hook is a shell command bound to one phase of a named action.
type Hook struct {
	Action  string
	Phase   Phase
	Command string
}

// Precedence picks the winner when several hooks target the same action
// and phase.
type Precedence string

const (
	PrecedenceLast  Precedence = "last"
	PrecedenceFirst Precedence = "first"
)

// ParsePrecedence converts a configuration value. Empty means last-wins.
func ParsePrecedence(s string) (Precedence, error) {
	switch s {
	case "", string(PrecedenceLast):
		return PrecedenceLast, nil
	case string(PrecedenceFirst):
		return PrecedenceFirst, nil
	default:
		return "", fmt.Errorf("unknown hook precedence %q (want %q or %q)", s, PrecedenceLast, PrecedenceFirst)
	}
}

// Binding holds the commands bound to one action. An empty string means no
// hook for that phase.
type Binding struct {
	Pre  string
	Post string
}

type hookKey struct {
	action string
	phase  Phase
}

// HookTable resolves hooks per action name.
type HookTable struct {
	bound map[hookKey]string
}

// NewHookTable indexes hooks. When several hooks share an action and phase,
// precedence decides which one is kept.
func NewHookTable(hooks []Hook, precedence Precedence) *HookTable {
	t := &HookTable{bound: make(map[hookKey]string, len(hooks))}
	for _, h := range hooks {
		k := hookKey{action: h.Action, phase: h.Phase}
		if _, seen := t.bound[k]; seen && precedence == PrecedenceFirst {
			continue
		}
		t.bound[k] = h.Command
	}
	return t
}

// Bind returns the hooks for name. Hooks whose action never appears in a
// plan are simply never asked for.
func (t *HookTable) Bind(name string) Binding {
	if t == nil {
		return Binding{}
	}
	return Binding{
		Pre:  t.bound[hookKey{action: name, phase: PhasePre}],
		Post: t.bound[hookKey{action: name, phase: PhasePost}],
	}
}
