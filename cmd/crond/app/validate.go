/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/utils/clock"

	"github.com/diagridio/go-shell-cron/internal/job"
	"github.com/diagridio/go-shell-cron/internal/scheduler"
	"github.com/diagridio/go-shell-cron/internal/validator"
)

func newValidateCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [job-file]",
		Short: "Check a job file and print every rejected definition",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}

			path := cfg.JobsFile
			if len(args) == 1 {
				path = args[0]
			}

			loader := job.NewLoader(job.LoaderOptions{
				Log: logr.Discard(),
				Builder: scheduler.NewBuilder(scheduler.BuilderOptions{
					Clock:      clock.RealClock{},
					Calculator: scheduler.NewCalculator(cfg.CalculatorOptions()...),
				}),
				Validator: validator.New(validator.Options{}),
			})

			jobs, err := loader.LoadFile(path)
			out := cmd.OutOrStdout()
			for _, j := range jobs {
				fmt.Fprintf(out, "ok\t%s\t%s\tnext %s\n", j.Name, j.Schedule, j.NextRun.Format(time.RFC3339))
			}

			if err == nil {
				return nil
			}

			var agg utilerrors.Aggregate
			if !errors.As(err, &agg) {
				return err
			}
			for _, e := range agg.Errors() {
				fmt.Fprintf(out, "rejected\t%s\n", e)
			}
			return fmt.Errorf("%d job definition(s) rejected", len(agg.Errors()))
		},
	}
}
