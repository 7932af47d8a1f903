package main

import (
	"github.com/spf13/cobra"

	"github.com/cedarbackup/cback/internal/setup"
)

func newInitCmd(a *app) *cobra.Command {
	var (
		force      bool
		workingDir string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long: `Write a starting configuration to the --config path.

An existing file is only replaced with --force, and is then kept as
<path>.bak.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := setup.Run(setup.Options{
				Path:       a.configPath,
				WorkingDir: workingDir,
				Force:      force,
			})
			if err != nil {
				return err
			}
			cmd.Printf("wrote %s (working_dir %s)\n", a.configPath, cfg.Options.WorkingDir)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "replace an existing configuration")
	cmd.Flags().StringVar(&workingDir, "working-dir", "", "staging directory to write into the configuration")
	return cmd
}
