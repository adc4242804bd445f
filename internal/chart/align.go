package chart

import (
	"math"

	"github.com/miviz/miviz/internal/eeg"
	"github.com/miviz/miviz/internal/logger"
)

// Named is an augmented series tagged with its method.
type Named struct {
	Method eeg.Method `json:"method"`
	Values Series     `json:"values"`
}

// Aligned holds series resized to a common length. Augmented keeps the input
// order minus any dropped series.
type Aligned struct {
	TargetLength int     `json:"targetLength"`
	Real         Series  `json:"real"`
	Augmented    []Named `json:"augmented"`
}

// Prepared is a chart-ready view of one channel.
type Prepared struct {
	Aligned
	Labels   []float64          `json:"labels"`
	Replaced map[eeg.Method]int `json:"replaced"`
}

// Observer receives alignment and sanitization counts. The pipeline metrics
// implement it.
type Observer interface {
	SeriesDropped(method eeg.Method)
	SamplesReplaced(method eeg.Method, n int)
}

type nopObserver struct{}

func (nopObserver) SeriesDropped(eeg.Method)        {}
func (nopObserver) SamplesReplaced(eeg.Method, int) {}

// Aligner aligns and sanitizes series. The zero value is not usable; use
// NewAligner.
type Aligner struct {
	log      logger.Logger
	observer Observer
}

// NewAligner returns an aligner. A nil logger falls back to the global
// logger and a nil observer discards counts.
func NewAligner(log logger.Logger, observer Observer) *Aligner {
	if log == nil {
		log = logger.Global().Module("chart")
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Aligner{log: log, observer: observer}
}

// Align pads or truncates ref and every augmented series to the longest
// length among them. Series whose method has no metadata entry are dropped.
func Align(ref Series, augmented []Named) Aligned {
	return NewAligner(nil, nil).Align(ref, augmented)
}

// Align is the method form of the package-level Align.
func (a *Aligner) Align(ref Series, augmented []Named) Aligned {
	kept := make([]Named, 0, len(augmented))
	for _, s := range augmented {
		if !s.Method.Valid() {
			a.log.Debug("dropping series without method metadata",
				logger.String("method", s.Method.String()),
				logger.Int("length", len(s.Values)))
			a.observer.SeriesDropped(s.Method)
			continue
		}
		kept = append(kept, s)
	}

	target := len(ref)
	for _, s := range kept {
		target = max(target, len(s.Values))
	}

	out := Aligned{
		TargetLength: target,
		Augmented:    make([]Named, len(kept)),
	}
	var pad int
	out.Real, pad = resize(ref, target)
	if pad > 0 {
		a.log.Trace("padded real series", logger.Int("pad", pad))
	}
	for i, s := range kept {
		values, _ := resize(s.Values, target)
		out.Augmented[i] = Named{Method: s.Method, Values: values}
	}
	return out
}

// Prepare sanitizes each augmented series against ref on their overlap,
// then aligns everything and extends labels to the target length.
func Prepare(labels []float64, ref Series, augmented []Named) Prepared {
	return NewAligner(nil, nil).Prepare(labels, ref, augmented)
}

// Prepare is the method form of the package-level Prepare.
func (a *Aligner) Prepare(labels []float64, ref Series, augmented []Named) Prepared {
	replaced := make(map[eeg.Method]int, len(augmented))
	sanitized := make([]Named, len(augmented))
	for i, s := range augmented {
		values := s.Values
		if s.Method.Valid() {
			var n int
			values, n = SanitizeSeries(s.Values, ref)
			replaced[s.Method] = n
			if n > 0 {
				a.observer.SamplesReplaced(s.Method, n)
			}
		}
		sanitized[i] = Named{Method: s.Method, Values: values}
	}

	aligned := a.Align(ref, sanitized)
	return Prepared{
		Aligned:  aligned,
		Labels:   extendLabels(labels, aligned.TargetLength),
		Replaced: replaced,
	}
}

// extendLabels resizes labels to n, continuing the uniform 1/SampleRate
// spacing past the last label.
func extendLabels(labels []float64, n int) []float64 {
	out := make([]float64, n)
	copied := copy(out, labels)

	last := 0.0
	start := 0
	if copied > 0 {
		last = out[copied-1]
		start = 1
	}
	for i := copied; i < n; i++ {
		step := float64(i-copied+start) / eeg.SampleRate
		out[i] = math.Round((last+step)*1000) / 1000
	}
	return out
}
