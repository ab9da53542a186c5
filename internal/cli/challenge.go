package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sadopc/hundred/internal/challenge"
	"github.com/sadopc/hundred/internal/store"
)

func newTapCmd(app *App) *cobra.Command {
	var day int
	cmd := &cobra.Command{
		Use:   "tap [n]",
		Short: "Add one square (or n squares) to a day",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := 1
			if len(args) == 1 {
				v, err := strconv.Atoi(args[0])
				if err != nil || v < 1 {
					return fmt.Errorf("n must be a positive number, got %q", args[0])
				}
				n = v
			}
			if err := app.open(); err != nil {
				return err
			}
			defer app.close()

			if day == 0 {
				cur, err := app.tracker.CurrentDay()
				if err != nil {
					return err
				}
				day = cur
			}
			res, err := app.tracker.IncrementN(cmd.Context(), day, n, store.SourceCLI)
			if errors.Is(err, challenge.ErrDayComplete) {
				return fmt.Errorf("day %d is already complete", day)
			}
			if err != nil {
				return err
			}
			last := res[len(res)-1]
			fmt.Fprintf(cmd.OutOrStdout(), "Day %d: %d/%d\n", day, last.Day.Count(), challenge.Target)
			if last.Completed {
				fmt.Fprintf(cmd.OutOrStdout(), "Day %d complete!\n", day)
			}
			if len(res) < n {
				fmt.Fprintf(cmd.ErrOrStderr(), "only %d of %d applied; day %d is full\n", len(res), n, day)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&day, "day", 0, "Day to count on, 1-7 (default: current day)")
	return cmd
}

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show progress for all seven days",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.open(); err != nil {
				return err
			}
			defer app.close()

			snap, err := app.tracker.Snapshot()
			if err != nil {
				return err
			}
			stats, err := app.tracker.Stats()
			if err != nil {
				return err
			}
			writeStatus(cmd.OutOrStdout(), snap, stats)
			return nil
		},
	}
}

func writeStatus(w io.Writer, snap challenge.Snapshot, stats challenge.Stats) {
	for _, d := range snap.Days {
		marker := " "
		if d.Number == snap.CurrentDay {
			marker = "*"
		}
		state := ""
		if d.Completed {
			state = "complete"
		}
		last := "never"
		if t := d.LastActivity(); t != nil {
			last = humanize.Time(*t)
		}
		fmt.Fprintf(w, "%s Day %d  %3d/%d  %-8s  %s\n", marker, d.Number, d.Count(), challenge.Target, state, last)
	}
	fmt.Fprintf(w, "\n%d squares, %d/%d days complete, streak %d\n",
		stats.TotalSquares, stats.CompletedDays, store.NumDays, stats.Streak)
	if snap.Motivation != "" {
		fmt.Fprintf(w, "%q\n", snap.Motivation)
	}
}

func newResetCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear all seven days (settings and API key are kept)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("reset clears every day; pass --yes to confirm")
			}
			if err := app.open(); err != nil {
				return err
			}
			defer app.close()

			if err := app.tracker.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Challenge reset")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")
	return cmd
}
