// Package runner executes a built plan: for every step it runs the pre
// hook, the action and the post hook, stopping at the first failure.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/cedarbackup/cback/internal/action"
	"github.com/cedarbackup/cback/internal/events"
	"github.com/cedarbackup/cback/internal/executor"
	"github.com/cedarbackup/cback/internal/metrics"
	"github.com/cedarbackup/cback/internal/plan"
)

var (
	ErrActionFailed = errors.New("action failed")
	ErrHookFailed   = errors.New("hook failed")
)

// StepError reports which step stopped the run. Phase is empty when the
// action itself failed.
type StepError struct {
	Action string
	Phase  action.Phase
	Err    error
}

func (e *StepError) Error() string {
	if e.Phase != "" {
		return fmt.Sprintf("%s hook for %q: %v", e.Phase, e.Action, e.Err)
	}
	return e.Err.Error()
}

func (e *StepError) Unwrap() []error {
	if e.Phase != "" {
		return []error{ErrHookFailed, e.Err}
	}
	return []error{ErrActionFailed, e.Err}
}

// Options are the per-run values handed to every executor.
type Options struct {
	RunID      string
	ConfigPath string
	Full       bool
}

// StepResult records one executed step.
type StepResult struct {
	Name     string
	Started  time.Time
	Duration time.Duration
	Err      error
}

// Result summarizes a run. Steps holds only the steps that were attempted.
type Result struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Steps    []StepResult
}

// Runner is safe to reuse across runs but not for concurrent runs.
type Runner struct {
	Shell   string
	Logger  *zap.Logger
	Bus     *events.Bus       // optional
	Metrics *metrics.Recorder // optional
	Stdout  io.Writer
	Stderr  io.Writer
	Env     []string // extra variables for hooks
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func (r *Runner) publish(t events.EventType, runID, name string, data map[string]any) {
	if r.Bus != nil {
		r.Bus.Publish(t, runID, name, data)
	}
}

// Run executes steps in order. It returns the partial result together with
// a *StepError for the first failing step, or ctx.Err() when cancelled
// between steps.
func (r *Runner) Run(ctx context.Context, steps []plan.Step, opts Options) (*Result, error) {
	log := r.logger().With(zap.String("run_id", opts.RunID))
	res := &Result{RunID: opts.RunID, Started: time.Now()}

	log.Info("run started", zap.Strings("actions", plan.Names(steps)), zap.Bool("full", opts.Full))
	r.publish(events.EventRunStarted, opts.RunID, "", map[string]any{
		"actions": plan.Names(steps),
		"full":    opts.Full,
	})

	err := r.runSteps(ctx, steps, opts, res, log)

	res.Finished = time.Now()
	ok := err == nil
	if r.Metrics != nil {
		r.Metrics.ObserveRun(res.Finished, ok)
	}
	data := map[string]any{
		"success":     ok,
		"duration_ms": res.Finished.Sub(res.Started).Milliseconds(),
	}
	if err != nil {
		data["error"] = err.Error()
		log.Error("run failed", zap.Error(err))
	} else {
		log.Info("run completed", zap.Int("steps", len(res.Steps)))
	}
	r.publish(events.EventRunCompleted, opts.RunID, "", data)
	return res, err
}

func (r *Runner) runSteps(ctx context.Context, steps []plan.Step, opts Options, res *Result, log *zap.Logger) error {
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}

		stepLog := log.With(zap.String("action", step.Name))
		sr := StepResult{Name: step.Name, Started: time.Now()}

		err := r.runStep(ctx, step, opts, stepLog)
		sr.Duration = time.Since(sr.Started)
		sr.Err = err
		res.Steps = append(res.Steps, sr)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) runStep(ctx context.Context, step plan.Step, opts Options, log *zap.Logger) error {
	if step.PreHook != "" {
		if err := r.runHook(ctx, step.Name, action.PhasePre, step.PreHook, opts, log); err != nil {
			return err
		}
	}

	log.Info("action started")
	r.publish(events.EventActionStarted, opts.RunID, step.Name, map[string]any{"full": opts.Full})

	start := time.Now()
	err := step.Executor.Execute(ctx, action.Invocation{
		Action:     step.Name,
		RunID:      opts.RunID,
		ConfigPath: opts.ConfigPath,
		Full:       opts.Full,
		Stdout:     r.Stdout,
		Stderr:     r.Stderr,
	})
	elapsed := time.Since(start)
	if r.Metrics != nil {
		r.Metrics.ObserveAction(step.Name, elapsed, err == nil)
	}

	if err != nil {
		fields := []zap.Field{zap.Duration("duration", elapsed), zap.Error(err)}
		data := map[string]any{
			"duration_ms": elapsed.Milliseconds(),
			"error":       err.Error(),
		}
		if code := executor.ExitCode(err); code >= 0 {
			fields = append(fields, zap.Int("exit_code", code))
			data["exit_code"] = code
		}
		log.Error("action failed", fields...)
		r.publish(events.EventActionFailed, opts.RunID, step.Name, data)
		return &StepError{Action: step.Name, Err: err}
	}

	log.Info("action completed", zap.Duration("duration", elapsed))
	r.publish(events.EventActionCompleted, opts.RunID, step.Name, map[string]any{
		"duration_ms": elapsed.Milliseconds(),
	})

	if step.PostHook != "" {
		return r.runHook(ctx, step.Name, action.PhasePost, step.PostHook, opts, log)
	}
	return nil
}

func (r *Runner) runHook(ctx context.Context, name string, phase action.Phase, command string, opts Options, log *zap.Logger) error {
	shell := r.Shell
	if shell == "" {
		shell = "/bin/sh"
	}

	log.Debug("running hook", zap.String("phase", string(phase)), zap.String("command", command))

	cmd := exec.CommandContext(ctx, shell, "-c", command)
	cmd.Env = append(os.Environ(), r.Env...)
	cmd.Env = append(cmd.Env,
		"CBACK_ACTION="+name,
		"CBACK_RUN_ID="+opts.RunID,
		"CBACK_HOOK_PHASE="+string(phase),
	)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	err := cmd.Run()
	if r.Metrics != nil {
		r.Metrics.ObserveHook(string(phase), err == nil)
	}
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		err = ctx.Err()
	}

	log.Error("hook failed", zap.String("phase", string(phase)), zap.String("command", command), zap.Error(err))
	r.publish(events.EventHookFailed, opts.RunID, name, map[string]any{
		"phase":   string(phase),
		"command": command,
		"error":   err.Error(),
	})
	return &StepError{Action: name, Phase: phase, Err: err}
}
