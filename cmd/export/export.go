package export

import (
	"bufio"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/miviz/miviz/internal/app"
	"github.com/miviz/miviz/internal/dataset"
	"github.com/miviz/miviz/internal/eeg"
	"github.com/miviz/miviz/internal/errors"
	"github.com/miviz/miviz/internal/logger"
)

type options struct {
	motion string
	method string
	count  int
	format string
	output string
}

// Command creates a new cobra.Command that exports one method's augmented
// samples.
func Command(ctx *app.Context) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export augmented samples of one motion and method",
		Long: `Validate an export selection, build the samples and write them as CSV in
long format. npz files are produced by the external export service; for
--format npz the selection is validated and printed instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := ctx.App

			sel, err := selection(a, cmd, opts)
			if err != nil {
				return err
			}
			if err := sel.Validate(); err != nil {
				return err
			}

			if sel.Format == dataset.FormatNPZ {
				_, err := fmt.Fprintf(cmd.OutOrStdout(),
					"selection valid: motion=%s method=%s samples=%d format=%s (npz is written by the export service)\n",
					sel.Motion, sel.Method, sel.SampleCount, sel.Format)
				return err
			}

			out, err := a.Builder.Build(cmd.Context(), sel.Spec(a.Preprocess()))
			if err != nil {
				return err
			}

			return write(cmd.OutOrStdout(), afero.NewOsFs(), opts.output, sel, out[sel.Method], a.Logger())
		},
	}

	setupFlags(cmd, &opts)

	return cmd
}

// setupFlags configures flags specific to the export command.
func setupFlags(cmd *cobra.Command, opts *options) {
	cmd.Flags().StringVarP(&opts.motion, "motion", "m", "", "Motion: left, right, foot, tongue")
	cmd.Flags().StringVar(&opts.method, "method", "", "Augmentation method: vae, tcn, gan, diffusion")
	cmd.Flags().IntVarP(&opts.count, "count", "n", 0, "Number of samples (default: dataset.samplecount)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "Export format: csv, npz (default: dataset.format)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file (default: stdout)")
}

// selection resolves flags, falling back to configured defaults. Unknown
// motions and methods are left invalid so Validate reports every problem.
func selection(a *app.App, cmd *cobra.Command, opts options) (dataset.ExportSelection, error) {
	sel := dataset.ExportSelection{
		SampleCount: a.Settings.Dataset.SampleCount,
		Format:      dataset.Format(a.Settings.Dataset.Format),
	}
	if cmd.Flags().Changed("count") {
		sel.SampleCount = opts.count
	}
	if opts.format != "" {
		f, err := dataset.ParseFormat(opts.format)
		if err != nil {
			return sel, err
		}
		sel.Format = f
	}
	if opts.motion != "" {
		m, err := eeg.ParseMotion(opts.motion)
		if err != nil {
			return sel, err
		}
		sel.Motion = m
	}
	if opts.method != "" {
		m, err := eeg.ParseMethod(opts.method)
		if err != nil {
			return sel, err
		}
		sel.Method = m
	}
	return sel, nil
}

func write(stdout io.Writer, fs afero.Fs, path string, sel dataset.ExportSelection, ms dataset.MethodSamples, log logger.Logger) error {
	if path == "" {
		return dataset.WriteCSV(stdout, sel.Motion, ms)
	}

	f, err := fs.Create(path)
	if err != nil {
		return errors.New(err).
			Component("cli").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	bw := bufio.NewWriter(f)
	if err := dataset.WriteCSV(bw, sel.Motion, ms); err != nil {
		_ = f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return errors.New(err).Component("cli").Category(errors.CategoryFileIO).Context("path", path).Build()
	}
	if err := f.Close(); err != nil {
		return errors.New(err).Component("cli").Category(errors.CategoryFileIO).Context("path", path).Build()
	}

	log.Info("export written",
		logger.String("path", path),
		logger.String("motion", sel.Motion.String()),
		logger.String("method", sel.Method.String()),
		logger.Int("samples", len(ms.Samples)))
	return nil
}
