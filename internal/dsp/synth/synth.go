// Package synth generates deterministic synthetic EEG channels.
//
// A channel is a sum of an alpha-band sinusoid, its beta harmonic at twice
// the frequency, an optional theta component at 0.6x the frequency and
// bounded pseudo-random noise. Frequency, amplitude and phase are derived
// from the subject and channel indices, and the noise is drawn from an
// explicit LCG state, so identical inputs always give bit-identical output.
package synth

import (
	"fmt"
	"math"
	"strconv"

	"github.com/miviz/miviz/internal/dsp/lcg"
	"github.com/miviz/miviz/internal/eeg"
	"github.com/miviz/miviz/internal/errors"
)

const (
	baseFrequency        = 10.0
	subjectFrequencyStep = 2.0
	channelFrequencyStep = 0.3

	baseAmplitude        = 45.0
	subjectAmplitudeStep = 3.0
	channelAmplitudeStep = 0.5

	betaRatio      = 0.5
	thetaRatio     = 0.3
	thetaFreqRatio = 0.6
	noiseRatio     = 0.25

	labelPrecision = 1000.0
)

// Params selects generator variants. The zero value is the current
// generator.
type Params struct {
	// OmitTheta drops the theta component, matching the older two-band
	// generator.
	OmitTheta bool
}

// Waveform holds the per-channel oscillator parameters.
type Waveform struct {
	Frequency float64
	Amplitude float64
	Phase     float64
}

// WaveformFor derives the oscillator parameters for a subject and channel.
func WaveformFor(subject, channel int) Waveform {
	s, c := float64(subject), float64(channel)
	return Waveform{
		Frequency: baseFrequency + (s-1)*subjectFrequencyStep + (c-1)*channelFrequencyStep,
		Amplitude: baseAmplitude + s*subjectAmplitudeStep + c*channelAmplitudeStep,
		Phase:     s*math.Pi/9 + c*math.Pi/22,
	}
}

// DefaultSeed is the generator seed for a subject and channel.
func DefaultSeed(subject, channel int) int64 {
	return int64(subject)*10000 + int64(channel)*100
}

// Generate returns length samples for the given subject and channel and the
// matching time labels in seconds. length 0 yields empty slices.
func Generate(subject, channel, length int, seed int64, p Params) (samples, labels []float64, err error) {
	switch {
	case subject < 1:
		return nil, nil, errors.InvalidInput("synth", "subject must be >= 1, got %d", subject)
	case channel < 1:
		return nil, nil, errors.InvalidInput("synth", "channel must be >= 1, got %d", channel)
	case length < 0:
		return nil, nil, errors.InvalidInput("synth", "length must be >= 0, got %d", length)
	}

	w := WaveformFor(subject, channel)
	src := lcg.New(seed)

	samples = make([]float64, length)
	for i := range samples {
		x := float64(i)

		v := w.Amplitude * math.Sin(2*math.Pi*w.Frequency*x/eeg.SampleRate+w.Phase)
		v += betaRatio * w.Amplitude * math.Sin(2*math.Pi*(w.Frequency*2)*x/eeg.SampleRate+w.Phase)
		if !p.OmitTheta {
			v += thetaRatio * w.Amplitude * math.Sin(2*math.Pi*(w.Frequency*thetaFreqRatio)*x/eeg.SampleRate+w.Phase)
		}

		var r float64
		r, src = src.Next()
		v += (r - 0.5) * w.Amplitude * noiseRatio

		samples[i] = v
	}

	return samples, Labels(length), nil
}

// Labels returns the time axis for n samples: i/SampleRate rounded to
// three decimals.
func Labels(n int) []float64 {
	labels := make([]float64, max(n, 0))
	for i := range labels {
		labels[i] = math.Round(float64(i)/eeg.SampleRate*labelPrecision) / labelPrecision
	}
	return labels
}

// FormatLabel renders a label with three decimals.
func FormatLabel(label float64) string {
	return strconv.FormatFloat(label, 'f', 3, 64)
}

// GenerateTrial generates every channel in channels for one subject. Each
// channel is seeded with DefaultSeed plus seedOffset. All channels share the
// returned labels.
func GenerateTrial(subject int, channels []eeg.Channel, length int, seedOffset int64, p Params) (*eeg.ProcessedSignal, error) {
	if length < 0 {
		return nil, errors.InvalidInput("synth", "length must be >= 0, got %d", length)
	}

	out := &eeg.ProcessedSignal{
		Channels:   make(eeg.ChannelSeries, len(channels)),
		SampleRate: eeg.SampleRate,
	}

	for _, ch := range channels {
		if !ch.Valid() {
			return nil, errors.InvalidInput("synth", "channel %s outside 1..%d", ch, eeg.MaxChannel)
		}
		samples, labels, err := Generate(subject, ch.Index(), length, DefaultSeed(subject, ch.Index())+seedOffset, p)
		if err != nil {
			return nil, fmt.Errorf("generate %s: %w", ch, err)
		}
		out.Channels[ch] = samples
		out.Labels = labels
	}

	if out.Labels == nil {
		out.Labels = Labels(length)
	}
	return out, nil
}
