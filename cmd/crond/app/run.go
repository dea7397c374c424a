/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package app

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/diagridio/go-shell-cron/internal/daemon"
	"github.com/diagridio/go-shell-cron/internal/logging"
)

func newRunCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the scheduler until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}

			log, err := logging.New(logging.Options{
				Level:      cfg.Log.Level,
				File:       cfg.Log.File,
				MaxSizeMB:  cfg.Log.MaxSizeMB,
				MaxBackups: cfg.Log.MaxBackups,
			})
			if err != nil {
				return err
			}

			d, err := daemon.New(cmd.Context(), daemon.Options{
				Log:    log.Logger,
				Config: cfg,
			})
			if err != nil {
				log.Error(err, "Failed to start")
				return errors.Join(err, log.Close())
			}

			err = d.Run(cmd.Context())
			if err != nil {
				log.Error(err, "Daemon failed")
			}
			return errors.Join(err, log.Close())
		},
	}
}
