package dataset

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/miviz/miviz/internal/app"
	"github.com/miviz/miviz/internal/dataset"
	"github.com/miviz/miviz/internal/eeg"
	"github.com/miviz/miviz/internal/errors"
)

// Command creates a new cobra.Command that builds an augmented dataset and
// prints per-method classification statistics.
func Command(ctx *app.Context) *cobra.Command {
	var (
		motion  string
		methods []string
		samples bool
	)

	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Build an augmented dataset for one motion",
		Long: `Run the pipeline over --count trials of one motion, cycling through the
catalog, and summarize the simulated classification results per method.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := ctx.App

			spec, err := buildSpec(a, motion, methods)
			if err != nil {
				return err
			}

			out, err := a.Builder.Build(cmd.Context(), spec)
			if err != nil {
				return err
			}
			if err := printSummary(cmd.OutOrStdout(), spec, out); err != nil {
				return err
			}
			if samples {
				return printSamples(cmd.OutOrStdout(), spec, out)
			}
			return nil
		},
	}

	if err := setupFlags(cmd, ctx, &motion, &methods); err != nil {
		panic(err)
	}
	cmd.Flags().BoolVar(&samples, "samples", false, "Also print one line per sample")

	return cmd
}

// setupFlags configures flags specific to the dataset command.
func setupFlags(cmd *cobra.Command, ctx *app.Context, motion *string, methods *[]string) error {
	cmd.Flags().StringVarP(motion, "motion", "m", "", "Motion to build: left, right, foot, tongue")
	cmd.Flags().StringSliceVar(methods, "methods", nil, "Augmentation methods (default: pipeline.methods)")
	cmd.Flags().IntP("count", "n", 0, "Number of samples per method")
	cmd.Flags().IntP("workers", "w", 0, "Concurrent pipeline runs")

	if err := cmd.MarkFlagRequired("motion"); err != nil {
		return err
	}

	// Bind flags to configuration
	return ctx.BindFlags(cmd, map[string]string{
		"count":   "dataset.samplecount",
		"workers": "dataset.workers",
	})
}

func buildSpec(a *app.App, motion string, methodIDs []string) (dataset.Spec, error) {
	m, err := eeg.ParseMotion(motion)
	if err != nil {
		return dataset.Spec{}, err
	}

	methods, err := a.Methods()
	if len(methodIDs) > 0 {
		methods, err = eeg.ParseMethods(methodIDs)
	}
	if err != nil {
		return dataset.Spec{}, err
	}

	return dataset.Spec{
		Motion:      m,
		Methods:     methods,
		SampleCount: a.Settings.Dataset.SampleCount,
		Preprocess:  a.Preprocess(),
		Length:      a.Settings.Pipeline.Length,
	}, nil
}

func printSummary(w io.Writer, spec dataset.Spec, out map[eeg.Method]dataset.MethodSamples) error {
	if _, err := fmt.Fprintf(w, "Motion %s  samples %d  artifacts removed %t  segment extracted %t\n\n",
		spec.Motion.DisplayName(), spec.SampleCount, spec.Preprocess.RemoveArtifacts, spec.Preprocess.ExtractSegment); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%-10s %-8s %-8s %-9s %-10s\n", "Method", "Samples", "Correct", "Accuracy", "Confidence"); err != nil {
		return err
	}
	for _, m := range spec.Methods {
		ms, ok := out[m]
		if !ok {
			return errors.Newf("dataset has no samples for method %s", m).
				Component("cli").
				Category(errors.CategoryNotFound).
				Build()
		}
		s := ms.Summary()
		if _, err := fmt.Fprintf(w, "%-10s %-8d %-8d %-9.3f %-10.3f\n", m, s.Samples, s.Correct, s.Accuracy, s.MeanConfidence); err != nil {
			return err
		}
	}
	return nil
}

func printSamples(w io.Writer, spec dataset.Spec, out map[eeg.Method]dataset.MethodSamples) error {
	if _, err := fmt.Fprintf(w, "\n%-10s %-6s %-10s %-8s %-10s %-10s %-7s\n",
		"Method", "Index", "Trial", "Subject", "Predicted", "Confidence", "Correct"); err != nil {
		return err
	}
	for _, m := range spec.Methods {
		for _, s := range out[m].Samples {
			c := s.Classification
			correct := "-"
			if c.Correct != nil {
				correct = fmt.Sprint(*c.Correct)
			}
			if _, err := fmt.Fprintf(w, "%-10s %-6d %-10s %-8d %-10s %-10.2f %-7s\n",
				m, s.Index, s.TrialID, s.Subject, c.Predicted, c.Confidence, correct); err != nil {
				return err
			}
		}
	}
	return nil
}
