/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package app

import (
	"github.com/spf13/cobra"

	"github.com/diagridio/go-shell-cron/internal/config"
)

type rootOptions struct {
	configFile string
	envFiles   []string
}

// load returns the validated configuration named by the persistent flags.
func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configFile, o.envFiles...)
	if err != nil {
		return nil, err
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewRootCommand returns the crond command tree.
func NewRootCommand() *cobra.Command {
	opts := new(rootOptions)

	cmd := &cobra.Command{
		Use:   "crond",
		Short: "crond runs shell commands on cron schedules",
		Long: `crond loads job definitions of the form "name: <cron expression> command"
from a job file, runs each command when its schedule comes due and records
the outcome of every run in a history sink.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML configuration file")
	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", []string{".env"}, "dotenv files loaded before CROND_* variables are read")

	run := newRunCommand(opts)
	cmd.Args = run.Args
	cmd.RunE = run.RunE

	cmd.AddCommand(
		run,
		newNextCommand(opts),
		newValidateCommand(opts),
	)

	return cmd
}
