// Package plan turns a requested list of action names into the ordered,
// hook-bound steps a run executes.
package plan

import (
	"github.com/cedarbackup/cback/internal/action"
)

// Step is one resolved unit of a plan. PreHook and PostHook are empty when
// no hook is bound.
type Step struct {
	Name     string
	Executor action.Executor
	PreHook  string
	PostHook string
}

// Build validates requested, expands "all", orders the result using the
// registry's mode and binds hooks to every step.
func Build(requested []string, reg *action.Registry, hooks *action.HookTable) ([]Step, error) {
	if err := Admit(requested, reg); err != nil {
		return nil, err
	}
	names := Expand(requested)

	switch reg.Mode() {
	case action.ModeDependency:
		return buildDependency(names, reg, hooks)
	default:
		return buildIndexed(names, reg, hooks), nil
	}
}

// Names returns the step names in plan order.
func Names(steps []Step) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.Name
	}
	return out
}

func newStep(d action.Descriptor, hooks *action.HookTable) Step {
	b := hooks.Bind(d.Name)
	return Step{
		Name:     d.Name,
		Executor: d.Executor,
		PreHook:  b.Pre,
		PostHook: b.Post,
	}
}

// mustLookup resolves a name that admission already accepted.
func mustLookup(reg *action.Registry, name string) action.Descriptor {
	d, ok := reg.Lookup(name)
	if !ok {
		panic("plan: admitted action " + name + " missing from registry")
	}
	return d
}
