package synth

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miviz/miviz/internal/eeg"
	"github.com/miviz/miviz/internal/errors"
)

func TestGenerateReferenceValues(t *testing.T) {
	t.Parallel()

	samples, labels, err := Generate(1, 1, 3, DefaultSeed(1, 1), Params{})
	require.NoError(t, err)

	want := []float64{46.125263734548206, 60.619054304536206, 73.88203172566745}
	for i := range want {
		assert.InDelta(t, want[i], samples[i], 1e-9, "sample %d", i)
	}
	assert.Equal(t, []float64{0, 0.004, 0.008}, labels)

	legacy, _, err := Generate(1, 1, 2, DefaultSeed(1, 1), Params{OmitTheta: true})
	require.NoError(t, err)
	assert.InDelta(t, 39.25371959660567, legacy[0], 1e-9)
	assert.InDelta(t, 51.89882502428282, legacy[1], 1e-9)
}

func TestGenerateIsDeterministic(t *testing.T) {
	t.Parallel()

	for subject := 1; subject <= eeg.MaxSubject; subject++ {
		for _, ch := range eeg.VisualizationChannels() {
			seed := DefaultSeed(subject, ch.Index())
			a, la, err := Generate(subject, ch.Index(), 500, seed, Params{})
			require.NoError(t, err)
			b, lb, err := Generate(subject, ch.Index(), 500, seed, Params{})
			require.NoError(t, err)

			assert.Equal(t, a, b)
			assert.Equal(t, la, lb)
		}
	}
}

func TestGenerateSeedChangesNoiseOnly(t *testing.T) {
	t.Parallel()

	a, _, err := Generate(2, 3, 100, 1, Params{})
	require.NoError(t, err)
	b, _, err := Generate(2, 3, 100, 2, Params{})
	require.NoError(t, err)

	w := WaveformFor(2, 3)
	bound := w.Amplitude * noiseRatio
	for i := range a {
		assert.NotEqual(t, a[i], b[i])
		assert.LessOrEqual(t, math.Abs(a[i]-b[i]), bound)
	}
}

func TestGenerateEdgeCases(t *testing.T) {
	t.Parallel()

	samples, labels, err := Generate(1, 1, 0, 0, Params{})
	require.NoError(t, err)
	assert.Empty(t, samples)
	assert.Empty(t, labels)

	tests := []struct {
		name                     string
		subject, channel, length int
	}{
		{"zero subject", 0, 1, 10},
		{"zero channel", 1, 0, 10},
		{"negative length", 1, 1, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := Generate(tt.subject, tt.channel, tt.length, 0, Params{})
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrInvalidInput)
		})
	}
}

func TestWaveformFor(t *testing.T) {
	t.Parallel()

	w := WaveformFor(3, 2)
	assert.InDelta(t, 14.3, w.Frequency, 1e-12)
	assert.InDelta(t, 55.0, w.Amplitude, 1e-12)
	assert.InDelta(t, 3*math.Pi/9+2*math.Pi/22, w.Phase, 1e-12)
	assert.Equal(t, int64(30200), DefaultSeed(3, 2))
}

func TestLabels(t *testing.T) {
	t.Parallel()

	labels := Labels(1000)
	require.Len(t, labels, 1000)
	assert.InDelta(t, 3.996, labels[999], 0)
	assert.Equal(t, "0.500", FormatLabel(labels[125]))
	assert.Equal(t, "3.996", FormatLabel(labels[999]))
}

func TestGenerateTrial(t *testing.T) {
	t.Parallel()

	sig, err := GenerateTrial(4, eeg.VisualizationChannels(), 200, 0, Params{})
	require.NoError(t, err)

	assert.Equal(t, eeg.SampleRate, sig.SampleRate)
	assert.Len(t, sig.Channels, 5)
	assert.True(t, sig.Channels.Aligned())
	assert.Len(t, sig.Labels, 200)

	cz, _, err := Generate(4, eeg.Cz.Index(), 200, DefaultSeed(4, eeg.Cz.Index()), Params{})
	require.NoError(t, err)
	assert.Equal(t, cz, sig.Channels[eeg.Cz])

	_, err = GenerateTrial(1, []eeg.Channel{eeg.Channel(40)}, 10, 0, Params{})
	require.Error(t, err)
}
