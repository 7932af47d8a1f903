// Command cback runs Cedar Backup actions: collect, stage, store and purge,
// the rebuild and validate utilities, and any configured extensions.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cedarbackup/cback/internal/config"
	"github.com/cedarbackup/cback/internal/plan"
	"github.com/cedarbackup/cback/internal/runner"
)

var version = "dev"

const (
	exitOK           = 0
	exitUsage        = 1 // configuration, plan and usage errors
	exitActionFailed = 2
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the command line and maps the outcome to an exit status.
func execute(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return exitOK
	}
	reportError(stderr, err)
	return exitCode(err)
}

func exitCode(err error) int {
	if errors.Is(err, runner.ErrActionFailed) || errors.Is(err, runner.ErrHookFailed) {
		return exitActionFailed
	}
	return exitUsage
}

func reportError(w io.Writer, err error) {
	var planErr *plan.Error
	var verrs *config.ValidationErrors
	switch {
	case errors.As(err, &planErr):
		fmt.Fprint(w, planErr.FormatStderr())
	case errors.As(err, &verrs):
		fmt.Fprint(w, verrs.FormatStderr())
	default:
		fmt.Fprintf(w, "error: %v\n", err)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "cback",
		Short: "Cedar Backup action runner",
		Long: `cback runs backup actions in a deterministic order.

The pipeline actions collect, stage, store and purge always run in that
order; "all" runs the whole pipeline. rebuild and validate must be run on
their own. Extension actions declared in the configuration are slotted in
by index or by before/after dependencies, depending on
extensions.order_mode.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", config.DefaultPath, "path to the configuration file")
	flags.BoolVarP(&a.verbose, "verbose", "b", false, "print log messages to the screen")
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "print nothing to the screen")
	flags.BoolVarP(&a.debug, "debug", "d", false, "log at debug level")
	flags.BoolVarP(&a.output, "output", "O", false, "record action and hook output in the log")
	flags.StringVarP(&a.logfile, "logfile", "l", "", "log file (overrides logging.file)")
	flags.StringVarP(&a.owner, "owner", "o", "", "user:group of a newly created log file (overrides logging.owner)")
	flags.StringVarP(&a.mode, "mode", "m", "", "octal mode of a newly created log file (overrides logging.mode)")
	root.MarkFlagsMutuallyExclusive("verbose", "quiet")

	root.AddCommand(
		newRunCmd(a),
		newPlanCmd(a),
		newInitCmd(a),
		&cobra.Command{
			Use:   "version",
			Short: "Print the cback version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				cmd.Printf("cback %s\n", version)
			},
		},
	)
	return root
}
