// Package classify simulates classifier output for processed and augmented
// signals. It is a stand-in: no features are extracted and the predictions
// carry no information about the signal.
package classify

import (
	"math"

	"github.com/miviz/miviz/internal/dsp/lcg"
	"github.com/miviz/miviz/internal/eeg"
)

// SourceOriginal labels a classification of the unaugmented signal.
const SourceOriginal = "original"

const (
	minConfidence    = 0.70
	confidenceSpan   = 0.25
	baselineAccuracy = 0.65
)

// accuracy is the probability of predicting the true label per method.
// The values are placeholders.
var accuracy = map[eeg.Method]float64{
	eeg.MethodVAE:       0.72,
	eeg.MethodTCN:       0.75,
	eeg.MethodGAN:       0.78,
	eeg.MethodDiffusion: 0.80,
}

// Accuracy returns the simulated accuracy for method. Methods without an
// entry, including MethodUnknown, use the baseline of the original signal.
func Accuracy(method eeg.Method) float64 {
	if a, ok := accuracy[method]; ok {
		return a
	}
	return baselineAccuracy
}

// Simulator draws predictions from an explicit generator state. It is a
// value: Classify returns the advanced simulator instead of mutating it.
type Simulator struct {
	src lcg.Source
}

// New returns a simulator seeded with seed.
func New(seed int64) Simulator {
	return Simulator{src: lcg.New(seed)}
}

// Classify returns a prediction for method. With truth nil the label is
// uniform over the four motions and Correct is nil. With truth set the true
// label is predicted with Accuracy(method), otherwise a uniformly chosen
// wrong label. MethodUnknown classifies the original signal.
func (s Simulator) Classify(method eeg.Method, truth *eeg.Motion) (eeg.Classification, Simulator) {
	src := s.src
	motions := eeg.Motions()

	var predicted eeg.Motion
	var correct *bool

	if truth == nil || !truth.Valid() {
		var idx int
		idx, src = src.Intn(len(motions))
		predicted = motions[idx]
	} else {
		var r float64
		r, src = src.Next()
		if r < Accuracy(method) {
			predicted = *truth
		} else {
			wrong := make([]eeg.Motion, 0, len(motions)-1)
			for _, m := range motions {
				if m != *truth {
					wrong = append(wrong, m)
				}
			}
			var idx int
			idx, src = src.Intn(len(wrong))
			predicted = wrong[idx]
		}
		ok := predicted == *truth
		correct = &ok
	}

	var r float64
	r, src = src.Next()
	confidence := math.Round((minConfidence+r*confidenceSpan)*100) / 100

	source := SourceOriginal
	if method.Valid() {
		source = method.String()
	}

	return eeg.Classification{
		Method:     method,
		Source:     source,
		Predicted:  predicted,
		Confidence: confidence,
		Correct:    correct,
	}, Simulator{src: src}
}

// ClassifyAll classifies the original signal followed by each method in
// order, threading the generator state through every call.
func (s Simulator) ClassifyAll(methods []eeg.Method, truth *eeg.Motion) ([]eeg.Classification, Simulator) {
	out := make([]eeg.Classification, 0, len(methods)+1)

	c, s := s.Classify(eeg.MethodUnknown, truth)
	out = append(out, c)
	for _, m := range methods {
		c, s = s.Classify(m, truth)
		out = append(out, c)
	}
	return out, s
}
