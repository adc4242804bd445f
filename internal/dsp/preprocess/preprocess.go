// Package preprocess implements the two optional preprocessing steps applied
// to a channel before augmentation: ocular artifact removal and
// motor-imagery segment extraction.
package preprocess

import (
	"math"
	"slices"

	"github.com/miviz/miviz/internal/dsp/lcg"
	"github.com/miviz/miviz/internal/eeg"
	"github.com/miviz/miviz/internal/errors"
)

const (
	artifactFrequency   = 3.0
	artifactAmplitude   = 80.0
	spikeThreshold      = 0.95
	spikeSpan           = 200.0
	artifactAttenuation = 0.15

	segmentStart = 0.5
	segmentEnd   = 0.75
)

// ArtifactSeed is the seed of the synthetic artifact for a subject and
// channel. It is offset by one from the signal seed.
func ArtifactSeed(subject, channel int) int64 {
	return int64(subject)*10000 + int64(channel)*100 + 1
}

// Artifact returns n samples of a synthetic EOG artifact: a 3 Hz sinusoid
// plus spikes on roughly 5% of samples. A spike consumes a second draw.
func Artifact(n int, seed int64) []float64 {
	out := make([]float64, max(n, 0))
	src := lcg.New(seed)
	for i := range out {
		v := artifactAmplitude * math.Sin(2*math.Pi*artifactFrequency*float64(i)/eeg.SampleRate)

		var r float64
		r, src = src.Next()
		if r > spikeThreshold {
			var spike float64
			spike, src = src.Centered(spikeSpan)
			v += spike
		}
		out[i] = v
	}
	return out
}

// RemoveArtifact subtracts 15% of the subject/channel artifact from samples.
// The result has the same length as the input.
func RemoveArtifact(samples []float64, subject, channel int) []float64 {
	artifact := Artifact(len(samples), ArtifactSeed(subject, channel))
	out := make([]float64, len(samples))
	for i, v := range samples {
		out[i] = v - artifact[i]*artifactAttenuation
	}
	return out
}

// SegmentBounds returns the half-open range [floor(0.5n), floor(0.75n)).
func SegmentBounds(n int) (start, end int) {
	if n <= 0 {
		return 0, 0
	}
	return int(math.Floor(float64(n) * segmentStart)), int(math.Floor(float64(n) * segmentEnd))
}

// ExtractSegment slices the motor-imagery window out of samples and labels
// in lockstep. Applying it to an already extracted series slices again
// (1000 -> 250 -> 62).
func ExtractSegment(samples, labels []float64) ([]float64, []float64, error) {
	if len(samples) != len(labels) {
		return nil, nil, errors.Newf("%w: %d samples but %d labels", errors.ErrInvalidInput, len(samples), len(labels)).
			Component("preprocess").
			Category(errors.CategoryValidation).
			Context("samples", len(samples)).
			Context("labels", len(labels)).
			Build()
	}

	start, end := SegmentBounds(len(samples))
	return slices.Clone(samples[start:end]), slices.Clone(labels[start:end]), nil
}

// RemoveArtifactSignal applies RemoveArtifact to every channel of sig using
// each channel's own artifact seed. sig is not modified.
func RemoveArtifactSignal(sig *eeg.ProcessedSignal, subject int) (*eeg.ProcessedSignal, error) {
	if sig == nil {
		return nil, errors.InvalidInput("preprocess", "signal is nil")
	}

	out := cloneHeader(sig)
	out.Labels = slices.Clone(sig.Labels)
	for ch, samples := range sig.Channels {
		if len(samples) != len(sig.Labels) {
			return nil, errors.InvalidInput("preprocess", "channel %s has %d samples but %d labels", ch, len(samples), len(sig.Labels))
		}
		out.Channels[ch] = RemoveArtifact(samples, subject, ch.Index())
	}
	out.ArtifactsRemoved = true
	return out, nil
}

// ExtractSegmentSignal applies ExtractSegment to every channel of sig so
// channels stay aligned. sig is not modified.
func ExtractSegmentSignal(sig *eeg.ProcessedSignal) (*eeg.ProcessedSignal, error) {
	if sig == nil {
		return nil, errors.InvalidInput("preprocess", "signal is nil")
	}

	out := cloneHeader(sig)
	start, end := SegmentBounds(len(sig.Labels))
	out.Labels = slices.Clone(sig.Labels[start:end])
	for ch, samples := range sig.Channels {
		seg, _, err := ExtractSegment(samples, sig.Labels)
		if err != nil {
			return nil, err
		}
		out.Channels[ch] = seg
	}
	out.SegmentExtracted = true
	return out, nil
}

func cloneHeader(sig *eeg.ProcessedSignal) *eeg.ProcessedSignal {
	return &eeg.ProcessedSignal{
		Channels:         make(eeg.ChannelSeries, len(sig.Channels)),
		SampleRate:       sig.SampleRate,
		ArtifactsRemoved: sig.ArtifactsRemoved,
		SegmentExtracted: sig.SegmentExtracted,
	}
}
