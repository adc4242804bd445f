package trials

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/miviz/miviz/internal/app"
	"github.com/miviz/miviz/internal/catalog"
	"github.com/miviz/miviz/internal/eeg"
)

// Command creates a new cobra.Command that lists catalog trials.
func Command(ctx *app.Context) *cobra.Command {
	var (
		subject int
		motion  string
	)

	cmd := &cobra.Command{
		Use:   "trials",
		Short: "List the trials in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := catalog.Filter{Subject: subject}
			if motion != "" {
				m, err := eeg.ParseMotion(motion)
				if err != nil {
					return err
				}
				filter.Motion = m
			}

			trials, err := ctx.App.Catalog.ListTrials(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return printTrials(cmd.OutOrStdout(), trials)
		},
	}

	cmd.Flags().IntVarP(&subject, "subject", "s", 0, "Only list trials of this subject (1-9)")
	cmd.Flags().StringVarP(&motion, "motion", "m", "", "Only list trials of this motion: left, right, foot, tongue")

	return cmd
}

func printTrials(w io.Writer, trials []eeg.Trial) error {
	if _, err := fmt.Fprintf(w, "%-10s %-8s %-6s %-12s\n", "Trial", "Subject", "Index", "Motion"); err != nil {
		return err
	}
	for _, t := range trials {
		if _, err := fmt.Fprintf(w, "%-10s %-8d %-6d %-12s\n", t.ID, t.Subject, t.TrialIndex, t.Motion.DisplayName()); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%d trials\n", len(trials))
	return err
}
