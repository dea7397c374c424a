/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"k8s.io/utils/clock"

	"github.com/diagridio/go-shell-cron/internal/scheduler"
)

type nextOptions struct {
	count       int
	from        string
	sundayFirst bool
}

func newNextCommand(root *rootOptions) *cobra.Command {
	opts := new(nextOptions)

	cmd := &cobra.Command{
		Use:   "next <minute> <hour> <day-of-month> <month> <day-of-week>",
		Short: "Print the upcoming runs of a cron expression",
		Example: `  crond next '*/15 9-17 * * 0-4'
  crond next -n 1 --from 2024-02-28T23:59:00Z '0 0 29 2 *'`,
		Args: cobra.RangeArgs(1, 5),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("sunday-first") {
				cfg.Scheduler.SundayFirst = opts.sundayFirst
			}
			if opts.count < 1 {
				return errors.New("--count must be at least 1")
			}

			builder := scheduler.NewBuilder(scheduler.BuilderOptions{
				Clock:      clock.RealClock{},
				Calculator: scheduler.NewCalculator(cfg.CalculatorOptions()...),
			})

			spec, err := builder.Parse(strings.Join(args, " "))
			if err != nil {
				return err
			}

			from := builder.Clock().Now()
			if len(opts.from) > 0 {
				from, err = time.Parse(time.RFC3339, opts.from)
				if err != nil {
					return fmt.Errorf("invalid --from: %w", err)
				}
			}

			runs, err := builder.Upcoming(spec, from, opts.count)
			for _, run := range runs {
				fmt.Fprintln(cmd.OutOrStdout(), run.Format(time.RFC3339))
			}
			return err
		},
	}

	cmd.Flags().IntVarP(&opts.count, "count", "n", 5, "number of runs to print")
	cmd.Flags().StringVar(&opts.from, "from", "", "RFC3339 instant to search from (default now)")
	cmd.Flags().BoolVar(&opts.sundayFirst, "sunday-first", false, "number weekdays from Sunday=0")

	return cmd
}
