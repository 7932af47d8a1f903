package action

import (
	"fmt"
	"slices"
)

type builtin struct {
	index  int
	before []string
}

// builtins is the fixed action table. The before lists pin the pipeline
// order collect, stage, store, purge in dependency mode, including between
// non-adjacent pipeline actions.
var builtins = map[string]builtin{
	Collect:  {index: CollectIndex, before: []string{Stage, Store, Purge}},
	Stage:    {index: StageIndex, before: []string{Store, Purge}},
	Store:    {index: StoreIndex, before: []string{Purge}},
	Purge:    {index: PurgeIndex},
	Rebuild:  {index: ExclusiveIndex},
	Validate: {index: ExclusiveIndex},
}

var builtinOrder = []string{Collect, Stage, Store, Purge, Rebuild, Validate}

// Pipeline returns the actions "all" expands to, in pipeline order.
func Pipeline() []string {
	return []string{Collect, Stage, Store, Purge}
}

// BuiltIns returns every built-in action name.
func BuiltIns() []string {
	return slices.Clone(builtinOrder)
}

// IsBuiltIn reports whether name is a built-in action.
func IsBuiltIn(name string) bool {
	_, ok := builtins[name]
	return ok
}

// Descriptor is one runnable action, built-in or extension-supplied.
type Descriptor struct {
	Name     string
	Executor Executor
	Ordering Ordering
	BuiltIn  bool
}

// Extension describes an action plugged in through configuration. Index is
// read in index mode and Depends in dependency mode; a nil Depends means no
// constraints.
type Extension struct {
	Name     string
	Executor Executor
	Index    *int
	Depends  *Dependencies
}

// Registry is a read-only view of every action available to one invocation.
type Registry struct {
	mode        Mode
	descriptors map[string]Descriptor
	extensions  []string
}

// NewRegistry builds the registry for mode. executors supplies built-in
// implementations by name; built-ins without one get Unavailable.
func NewRegistry(mode Mode, executors map[string]Executor, extensions []Extension) (*Registry, error) {
	if mode != ModeIndex && mode != ModeDependency {
		return nil, fmt.Errorf("registry: unknown order mode %q", mode)
	}

	r := &Registry{
		mode:        mode,
		descriptors: make(map[string]Descriptor, len(builtins)+len(extensions)),
	}

	for _, name := range builtinOrder {
		b := builtins[name]
		exec := executors[name]
		if exec == nil {
			exec = Unavailable(name)
		}
		var ord Ordering = FixedIndex(b.index)
		if mode == ModeDependency {
			ord = Dependencies{Before: slices.Clone(b.before)}
		}
		r.descriptors[name] = Descriptor{Name: name, Executor: exec, Ordering: ord, BuiltIn: true}
	}

	for i, ext := range extensions {
		if ext.Name == "" {
			return nil, fmt.Errorf("registry: extension[%d]: name is required", i)
		}
		if ext.Name == All || IsBuiltIn(ext.Name) {
			return nil, fmt.Errorf("registry: extension %q: name is reserved for a built-in action", ext.Name)
		}
		if _, dup := r.descriptors[ext.Name]; dup {
			return nil, fmt.Errorf("registry: extension %q: defined more than once", ext.Name)
		}
		if ext.Executor == nil {
			return nil, fmt.Errorf("registry: extension %q: executor is required", ext.Name)
		}

		var ord Ordering
		switch mode {
		case ModeIndex:
			if ext.Index == nil {
				return nil, fmt.Errorf("registry: extension %q: index is required in %s mode", ext.Name, mode)
			}
			ord = FixedIndex(*ext.Index)
		case ModeDependency:
			deps := Dependencies{}
			if ext.Depends != nil {
				deps.Before = slices.Clone(ext.Depends.Before)
				deps.After = slices.Clone(ext.Depends.After)
			}
			ord = deps
		}

		r.descriptors[ext.Name] = Descriptor{Name: ext.Name, Executor: ext.Executor, Ordering: ord}
		r.extensions = append(r.extensions, ext.Name)
	}

	return r, nil
}

// Mode returns the ordering mode the registry was built for.
func (r *Registry) Mode() Mode {
	return r.mode
}

// Lookup returns the descriptor for name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	d, ok := r.descriptors[name]
	return d, ok
}

// Known reports whether name resolves to any descriptor.
func (r *Registry) Known(name string) bool {
	_, ok := r.descriptors[name]
	return ok
}

// Descriptors returns every descriptor: built-ins first in pipeline order,
// then extensions in configuration order.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.descriptors))
	for _, name := range builtinOrder {
		out = append(out, r.descriptors[name])
	}
	for _, name := range r.extensions {
		out = append(out, r.descriptors[name])
	}
	return out
}
