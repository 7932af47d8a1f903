// Package action defines the actions cback knows how to run: the fixed
// built-in table, extension actions supplied by configuration, how each
// action is ordered, and which hook commands fire around it.
package action

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Built-in action names.
const (
	Collect  = "collect"
	Stage    = "stage"
	Store    = "store"
	Purge    = "purge"
	Rebuild  = "rebuild"
	Validate = "validate"

	// All is a request token only. It expands to the pipeline actions and
	// never names a descriptor.
	All = "all"
)

// Built-in priorities used in index mode.
const (
	CollectIndex = 100
	StageIndex   = 200
	StoreIndex   = 300
	PurgeIndex   = 400

	// ExclusiveIndex is carried by rebuild and validate. Both are exclusive
	// actions, so the value is never compared against another action.
	ExclusiveIndex = 0
)

// ErrNoExecutor is returned when a step runs an action that has no
// implementation configured.
var ErrNoExecutor = errors.New("no executor configured")

// Invocation carries the per-run arguments handed to every executor.
type Invocation struct {
	Action     string
	RunID      string
	ConfigPath string
	Full       bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// Executor runs one action.
type Executor interface {
	Execute(ctx context.Context, inv Invocation) error
}

// ExecutorFunc adapts a plain function to Executor.
type ExecutorFunc func(ctx context.Context, inv Invocation) error

func (f ExecutorFunc) Execute(ctx context.Context, inv Invocation) error {
	return f(ctx, inv)
}

// Unavailable returns an executor that always fails with ErrNoExecutor.
func Unavailable(name string) Executor {
	return ExecutorFunc(func(context.Context, Invocation) error {
		return fmt.Errorf("action %q: %w", name, ErrNoExecutor)
	})
}
