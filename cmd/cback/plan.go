package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cedarbackup/cback/internal/plan"
	"github.com/cedarbackup/cback/internal/watch"
)

func newPlanCmd(a *app) *cobra.Command {
	var (
		format  string
		watchIt bool
	)

	cmd := &cobra.Command{
		Use:   "plan <action> [action...]",
		Short: "Show the steps a run would execute",
		Long: `Build the execution plan for the requested actions and print it
without running anything.

Examples:
  cback plan all
  cback plan --format yaml collect mysql stage

  # Reprint whenever the configuration changes
  cback plan --watch all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "text", "yaml":
			default:
				return fmt.Errorf("unknown format %q (want text or yaml)", format)
			}
			if !watchIt {
				return a.printPlan(cmd.OutOrStdout(), args, format)
			}
			return a.watchPlan(cmd.Context(), cmd.OutOrStdout(), args, format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "output format: text or yaml")
	cmd.Flags().BoolVarP(&watchIt, "watch", "w", false, "rebuild the plan when the configuration changes")
	return cmd
}

// planEntry is the YAML form of a step.
type planEntry struct {
	Step     int    `yaml:"step"`
	Action   string `yaml:"action"`
	PreHook  string `yaml:"pre_hook,omitempty"`
	PostHook string `yaml:"post_hook,omitempty"`
}

func (a *app) printPlan(w io.Writer, requested []string, format string) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	steps, err := buildPlan(cfg, requested)
	if err != nil {
		return err
	}
	return writePlan(w, steps, format)
}

func writePlan(w io.Writer, steps []plan.Step, format string) error {
	if format == "yaml" {
		entries := make([]planEntry, len(steps))
		for i, s := range steps {
			entries[i] = planEntry{Step: i + 1, Action: s.Name, PreHook: s.PreHook, PostHook: s.PostHook}
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("encode plan: %w", err)
		}
		return enc.Close()
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STEP\tACTION\tPRE HOOK\tPOST HOOK")
	for i, s := range steps {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, s.Name, orDash(s.PreHook), orDash(s.PostHook))
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// watchPlan prints the plan, then reprints it on every configuration
// change until interrupted. Errors after the first print are reported and
// the watch continues.
func (a *app) watchPlan(ctx context.Context, w io.Writer, requested []string, format string) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog, err := a.newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	logger = logger.Named("watch")

	if err := a.printPlan(w, requested, format); err != nil {
		reportError(a.stderr, err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	watcher := watch.New(a.configPath, func(context.Context) error {
		fmt.Fprintln(w)
		if err := a.printPlan(w, requested, format); err != nil {
			reportError(a.stderr, err)
			return err
		}
		logger.Info("plan rebuilt")
		return nil
	}, logger)
	if err := watcher.Run(ctx); err != nil {
		return err
	}
	logger.Debug("watch stopped", zap.String("path", a.configPath))
	return nil
}
