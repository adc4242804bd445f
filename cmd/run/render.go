package run

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/miviz/miviz/internal/chart"
	"github.com/miviz/miviz/internal/dsp/synth"
	"github.com/miviz/miviz/internal/eeg"
	"github.com/miviz/miviz/internal/pipeline"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatCSV   = "csv"
)

func render(w io.Writer, format string, res *pipeline.Result) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case formatCSV:
		return writeChartCSV(w, res)
	default:
		return writeTable(w, res)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func writeTable(w io.Writer, res *pipeline.Result) error {
	p := res.Processed
	var b strings.Builder

	fmt.Fprintf(&b, "Trial %s  subject %d  motion %s  generation %d\n",
		res.Trial.ID, res.Trial.Subject, res.Trial.Motion, res.Generation)
	fmt.Fprintf(&b, "Artifacts removed: %s  Segment extracted: %s  Samples per channel: %d  Elapsed: %s\n\n",
		yesNo(p.ArtifactsRemoved), yesNo(p.SegmentExtracted), p.Len(), res.Elapsed.Round(time.Microsecond))

	fmt.Fprintf(&b, "%-10s %-10s %-10s %-10s %-7s\n", "Method", "Source", "Predicted", "Confidence", "Correct")
	for _, c := range res.Classifications {
		correct := "-"
		if c.Correct != nil {
			correct = yesNo(*c.Correct)
		}
		name := c.Method.String()
		if !c.Method.Valid() {
			name = c.Source
		}
		fmt.Fprintf(&b, "%-10s %-10s %-10s %-10.3f %-7s\n", name, c.Source, c.Predicted, c.Confidence, correct)
	}

	fmt.Fprintf(&b, "\n%-8s %-8s %s\n", "Channel", "Points", "Replaced")
	for _, ch := range sortedChannels(res.Charts) {
		prepared := res.Charts[ch]
		fmt.Fprintf(&b, "%-8s %-8d %s\n", ch, prepared.TargetLength, formatReplaced(prepared.Replaced))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func formatReplaced(replaced map[eeg.Method]int) string {
	if len(replaced) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(replaced))
	for _, m := range eeg.Methods() {
		if n, ok := replaced[m]; ok {
			parts = append(parts, fmt.Sprintf("%s=%d", m, n))
		}
	}
	return strings.Join(parts, " ")
}

func sortedChannels(charts map[eeg.Channel]chart.Prepared) []eeg.Channel {
	channels := make([]eeg.Channel, 0, len(charts))
	for ch := range charts {
		channels = append(channels, ch)
	}
	slices.Sort(channels)
	return channels
}

// writeChartCSV writes the aligned chart series in long format, one row per
// channel, series and index. Missing samples are written as empty values.
func writeChartCSV(w io.Writer, res *pipeline.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"channel", "series", "index", "time", "value"}); err != nil {
		return err
	}

	for _, ch := range sortedChannels(res.Charts) {
		prepared := res.Charts[ch]
		series := []chart.Named{{Values: prepared.Real}}
		series = append(series, prepared.Augmented...)

		for _, s := range series {
			name := "real"
			if s.Method.Valid() {
				name = s.Method.String()
			}
			for i, v := range s.Values {
				value := ""
				if !chart.IsNoValue(v) {
					value = strconv.FormatFloat(v, 'f', 4, 64)
				}
				label := ""
				if i < len(prepared.Labels) {
					label = synth.FormatLabel(prepared.Labels[i])
				}
				if err := cw.Write([]string{ch.String(), name, strconv.Itoa(i), label, value}); err != nil {
					return err
				}
			}
		}
	}

	cw.Flush()
	return cw.Error()
}
