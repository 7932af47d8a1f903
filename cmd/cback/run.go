package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zapio"

	"github.com/cedarbackup/cback/internal/events"
	"github.com/cedarbackup/cback/internal/lock"
	"github.com/cedarbackup/cback/internal/metrics"
	"github.com/cedarbackup/cback/internal/model"
	"github.com/cedarbackup/cback/internal/runner"
)

func newRunCmd(a *app) *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "run <action> [action...]",
		Short: "Run one or more actions",
		Long: `Run the requested actions in plan order.

Examples:
  # Nightly run of the whole pipeline
  cback run all

  # Weekly full backup
  cback run --full collect stage store

  # Check the configuration against this host
  cback run validate`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), args, full)
		},
	}
	cmd.Flags().BoolVarP(&full, "full", "f", false, "perform a full backup regardless of the starting day")
	return cmd
}

func (a *app) run(ctx context.Context, requested []string, full bool) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	// Plan errors are reported before anything touches the host.
	steps, err := buildPlan(cfg, requested)
	if err != nil {
		return err
	}

	logger, closeLog, err := a.newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	runID, err := model.NewRunID(time.Now())
	if err != nil {
		return err
	}
	logger = logger.Named("run")

	runLock := lock.New(lockPath(cfg))
	if err := runLock.TryLock(); err != nil {
		return err
	}
	defer runLock.Unlock()

	bus := events.NewBus(100)
	if cfg.Audit.Path != "" {
		audit, err := events.NewAuditLogger(cfg.Audit.Path, cfg.Audit.MaxSizeBytes)
		if err != nil {
			return err
		}
		defer audit.Close()
		bus.Subscribe(audit.Record(func(err error) {
			logger.Warn("audit write failed", zap.Error(err))
		}), events.AllTypes()...)
	}

	rec := metrics.New()
	stdout, stderr, flush := a.actionOutput(logger)
	r := &runner.Runner{
		Shell:   cfg.Options.Shell,
		Logger:  logger,
		Bus:     bus,
		Metrics: rec,
		Stdout:  stdout,
		Stderr:  stderr,
		Env:     []string{"CBACK_CONFIG=" + a.configPath},
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, runErr := r.Run(ctx, steps, runner.Options{
		RunID:      runID,
		ConfigPath: a.configPath,
		Full:       full,
	})
	flush()
	bus.Close()
	logSummary(logger, res, len(steps))

	if cfg.Metrics.Textfile != "" {
		if err := rec.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Warn("metrics not written", zap.String("path", cfg.Metrics.Textfile), zap.Error(err))
		}
	}
	if runErr != nil {
		return fmt.Errorf("run %s: %w", runID, runErr)
	}
	return nil
}

// actionOutput decides where command output goes: into the log with
// --output or --debug, nowhere with --quiet, otherwise to the terminal.
func (a *app) actionOutput(logger *zap.Logger) (io.Writer, io.Writer, func()) {
	switch {
	case a.output || a.debug:
		out := &zapio.Writer{Log: logger.Named("output"), Level: zapcore.InfoLevel}
		errOut := &zapio.Writer{Log: logger.Named("output"), Level: zapcore.WarnLevel}
		return out, errOut, func() {
			_ = out.Close()
			_ = errOut.Close()
		}
	case a.quiet:
		return nil, nil, func() {}
	default:
		return a.stdout, a.stderr, func() {}
	}
}

// logSummary records one line per attempted step and one for the run.
func logSummary(logger *zap.Logger, res *runner.Result, planned int) {
	if res == nil {
		return
	}
	logger = logger.With(zap.String("run_id", res.RunID))
	for _, s := range res.Steps {
		fields := []zap.Field{
			zap.String("action", s.Name),
			zap.Duration("duration", s.Duration),
			zap.Bool("success", s.Err == nil),
		}
		if s.Err != nil {
			fields = append(fields, zap.Error(s.Err))
		}
		logger.Info("step summary", fields...)
	}
	logger.Info("run summary",
		zap.Int("planned", planned),
		zap.Int("attempted", len(res.Steps)),
		zap.Duration("elapsed", res.Finished.Sub(res.Started)))
}
