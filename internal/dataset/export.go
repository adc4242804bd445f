package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/miviz/miviz/internal/dsp/synth"
	"github.com/miviz/miviz/internal/eeg"
	"github.com/miviz/miviz/internal/errors"
)

// Sample count bounds shared by builds and export selections.
const (
	MinSampleCount = 1
	MaxSampleCount = 10000
)

// Format is an export file format.
type Format string

const (
	FormatCSV Format = "csv"
	FormatNPZ Format = "npz"
)

// ParseFormat accepts "csv" or "npz", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatNPZ:
		return f, nil
	default:
		return "", errors.UnknownID("dataset", "format", s)
	}
}

// ExportSelection is the set of parameters handed to the export service.
// The core does not produce npz files.
type ExportSelection struct {
	Motion      eeg.Motion `json:"motion" yaml:"motion"`
	Method      eeg.Method `json:"method" yaml:"method"`
	SampleCount int        `json:"sampleCount" yaml:"samplecount"`
	Format      Format     `json:"format" yaml:"format"`
}

// Validate collects every problem with the selection into one error.
func (s ExportSelection) Validate() error {
	var problems []string
	if !s.Motion.Valid() {
		problems = append(problems, "motion is required")
	}
	if !s.Method.Valid() {
		problems = append(problems, "method is required")
	}
	if s.SampleCount < MinSampleCount || s.SampleCount > MaxSampleCount {
		problems = append(problems, fmt.Sprintf("sample count must be in %d..%d, got %d",
			MinSampleCount, MaxSampleCount, s.SampleCount))
	}
	if s.Format != FormatCSV && s.Format != FormatNPZ {
		problems = append(problems, fmt.Sprintf("format must be csv or npz, got %q", s.Format))
	}
	if len(problems) == 0 {
		return nil
	}

	return errors.Newf("%w: %s", errors.ErrInvalidInput, strings.Join(problems, "; ")).
		Component("dataset").
		Category(errors.CategoryValidation).
		Context("problems", len(problems)).
		Build()
}

// Spec converts the selection into a build spec for its single method.
func (s ExportSelection) Spec(p Preprocess) Spec {
	return Spec{
		Motion:      s.Motion,
		Methods:     []eeg.Method{s.Method},
		SampleCount: s.SampleCount,
		Preprocess:  p,
	}
}

var csvHeader = []string{"sample", "trial", "subject", "motion", "method", "channel", "time", "value"}

// WriteCSV renders samples in long format, one row per channel sample.
// Channels are written in canonical order.
func WriteCSV(w io.Writer, motion eeg.Motion, ms MethodSamples) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return errors.New(err).Component("dataset").Category(errors.CategoryFileIO).Build()
	}

	row := make([]string, len(csvHeader))
	for _, s := range ms.Samples {
		for _, ch := range s.Channels.Channels() {
			for i, v := range s.Channels[ch] {
				row[0] = strconv.Itoa(s.Index)
				row[1] = s.TrialID
				row[2] = strconv.Itoa(s.Subject)
				row[3] = motion.String()
				row[4] = ms.Method.String()
				row[5] = ch.String()
				row[6] = ""
				if i < len(s.Labels) {
					row[6] = synth.FormatLabel(s.Labels[i])
				}
				row[7] = strconv.FormatFloat(v, 'g', -1, 64)
				if err := cw.Write(row); err != nil {
					return errors.New(err).Component("dataset").Category(errors.CategoryFileIO).Build()
				}
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.New(err).Component("dataset").Category(errors.CategoryFileIO).Build()
	}
	return nil
}
