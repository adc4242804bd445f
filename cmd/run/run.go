package run

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/miviz/miviz/internal/app"
	"github.com/miviz/miviz/internal/catalog"
	"github.com/miviz/miviz/internal/eeg"
	"github.com/miviz/miviz/internal/errors"
)

type options struct {
	trial   string
	subject int
	motion  string
	format  string
	metrics bool
}

// Command creates a new cobra.Command that runs the pipeline for one trial.
func Command(ctx *app.Context) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "run [trial-id]",
		Short: "Run the pipeline for one trial",
		Long: `Generate, preprocess and augment one trial, then print the simulated
classification results and a per-channel chart summary. The trial is given as an argument or with --trial;
otherwise the first trial of --subject (optionally of --motion) is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(opts.format); err != nil {
				return err
			}
			a := ctx.App

			trial, err := resolveTrial(cmd, a.Catalog, args, opts)
			if err != nil {
				return err
			}

			methods, err := a.Methods()
			if err != nil {
				return err
			}

			res, err := a.Session.Submit(cmd.Context(), a.Request(trial, methods))
			if err != nil {
				return err
			}

			if err := render(cmd.OutOrStdout(), opts.format, res); err != nil {
				return err
			}

			if opts.metrics {
				return a.Metrics.WriteSummary(os.Stderr, "miviz")
			}
			return nil
		},
	}

	if err := setupFlags(cmd, ctx, &opts); err != nil {
		panic(err)
	}

	return cmd
}

// setupFlags configures flags specific to the run command.
func setupFlags(cmd *cobra.Command, ctx *app.Context, opts *options) error {
	cmd.Flags().StringVarP(&opts.trial, "trial", "t", "", "Trial id, e.g. S01-T001; same as the positional argument")
	cmd.Flags().IntVarP(&opts.subject, "subject", "s", eeg.MinSubject, "Subject 1-9 used when no trial id is given")
	cmd.Flags().StringVarP(&opts.motion, "motion", "m", "", "Motion filter used when no trial id is given: left, right, foot, tongue")
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatTable, "Output format: table, json, csv")
	cmd.Flags().BoolVar(&opts.metrics, "metrics", false, "Print pipeline metrics to stderr after the run")

	cmd.Flags().StringSlice("methods", nil, "Augmentation methods: vae, tcn, gan, diffusion")
	cmd.Flags().Bool("remove-eog", true, "Remove ocular artifacts")
	cmd.Flags().Bool("extract-mi", true, "Keep only the motor-imagery segment")
	cmd.Flags().Int("length", 0, "Samples generated per channel")

	// Bind flags to configuration
	return ctx.BindFlags(cmd, map[string]string{
		"methods":    "pipeline.methods",
		"remove-eog": "pipeline.removeeog",
		"extract-mi": "pipeline.extractmi",
		"length":     "pipeline.length",
	})
}

func resolveTrial(cmd *cobra.Command, cat catalog.TrialCatalog, args []string, opts options) (eeg.Trial, error) {
	switch {
	case len(args) == 1:
		return cat.Trial(cmd.Context(), args[0])
	case opts.trial != "":
		return cat.Trial(cmd.Context(), opts.trial)
	}

	filter := catalog.Filter{Subject: opts.subject}
	if opts.motion != "" {
		m, err := eeg.ParseMotion(opts.motion)
		if err != nil {
			return eeg.Trial{}, err
		}
		filter.Motion = m
	}

	trials, err := cat.ListTrials(cmd.Context(), filter)
	if err != nil {
		return eeg.Trial{}, err
	}
	if len(trials) == 0 {
		return eeg.Trial{}, errors.Newf("no trial matches subject %d motion %q", opts.subject, opts.motion).
			Component("cli").
			Category(errors.CategoryNotFound).
			Build()
	}
	return trials[0], nil
}

func checkFormat(format string) error {
	switch format {
	case formatTable, formatJSON, formatCSV:
		return nil
	}
	return fmt.Errorf("%w: output format must be table, json or csv, got %q", errors.ErrInvalidInput, format)
}
