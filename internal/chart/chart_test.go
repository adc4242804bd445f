package chart

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miviz/miviz/internal/eeg"
)

func seq(n int, start float64) Series {
	s := make(Series, n)
	for i := range s {
		s[i] = start + float64(i)
	}
	return s
}

func TestSanitize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		aug, ref float64
		want     float64
	}{
		{"deviation above bound is clamped", 65, 10, 10},
		{"deviation at or below bound is kept", 55, 10, 55},
		{"exactly five times is kept", 60, 10, 60},
		{"negative reference", -70, -10, -10},
		{"near-zero reference with large aug", 10, 0.0005, 0.0005},
		{"near-zero reference with small aug", 4.9, 0.0005, 4.9},
		{"zero reference", -6, 0, 0},
		{"reference at threshold uses relative rule", 0.0055, 0.001, 0.0055},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, Sanitize(tt.aug, tt.ref), 0)
		})
	}
}

func TestSanitizeNoValuePassesThrough(t *testing.T) {
	t.Parallel()

	assert.True(t, IsNoValue(Sanitize(NoValue, 10)))
	assert.InDelta(t, 1e6, Sanitize(1e6, NoValue), 0)
	assert.True(t, IsNoValue(Sanitize(NoValue, NoValue)))
}

func TestSanitizeSeries(t *testing.T) {
	t.Parallel()

	ref := Series{10, 10, NoValue, 0}
	aug := Series{65, 55, 1000, 20, 1e9}

	out, replaced := SanitizeSeries(aug, ref)
	require.Len(t, out, 5)
	assert.Equal(t, 2, replaced)
	assert.InDelta(t, 10, out[0], 0)
	assert.InDelta(t, 55, out[1], 0)
	assert.InDelta(t, 1000, out[2], 0, "no reference value")
	assert.InDelta(t, 0, out[3], 0)
	assert.InDelta(t, 1e9, out[4], 0, "outside the overlap")

	assert.InDelta(t, 65, aug[0], 0, "input must not be modified")

	_, replaced = SanitizeSeries(Series{NoValue, NoValue}, Series{1, 1})
	assert.Equal(t, 0, replaced)
}

func TestAlign(t *testing.T) {
	t.Parallel()

	ref := seq(10, 0)
	short := seq(7, 100)
	long := seq(12, 200)

	out := Align(ref, []Named{
		{Method: eeg.MethodVAE, Values: short},
		{Method: eeg.MethodGAN, Values: long},
	})

	assert.Equal(t, 12, out.TargetLength)
	require.Len(t, out.Real, 12)
	assert.Equal(t, 2, len(out.Real)-out.Real.Valid())
	assert.True(t, IsNoValue(out.Real[10]))
	assert.True(t, IsNoValue(out.Real[11]))

	require.Len(t, out.Augmented, 2)
	assert.Equal(t, eeg.MethodVAE, out.Augmented[0].Method)
	assert.Len(t, out.Augmented[0].Values, 12)
	assert.Equal(t, 5, 12-out.Augmented[0].Values.Valid())
	assert.Equal(t, short, out.Augmented[0].Values[:7])

	assert.Equal(t, eeg.MethodGAN, out.Augmented[1].Method)
	assert.Equal(t, long, out.Augmented[1].Values)
}

func TestAlignWithoutAugmentedSeries(t *testing.T) {
	t.Parallel()

	out := Align(seq(3, 0), nil)
	assert.Equal(t, 3, out.TargetLength)
	assert.Empty(t, out.Augmented)

	empty := Align(nil, nil)
	assert.Equal(t, 0, empty.TargetLength)
	assert.Empty(t, empty.Real)
}

type countingObserver struct {
	dropped  []eeg.Method
	replaced map[eeg.Method]int
}

func (c *countingObserver) SeriesDropped(m eeg.Method) { c.dropped = append(c.dropped, m) }
func (c *countingObserver) SamplesReplaced(m eeg.Method, n int) {
	if c.replaced == nil {
		c.replaced = map[eeg.Method]int{}
	}
	c.replaced[m] += n
}

func TestAlignDropsSeriesWithoutMetadata(t *testing.T) {
	t.Parallel()

	obs := &countingObserver{}
	a := NewAligner(nil, obs)

	out := a.Align(seq(4, 0), []Named{
		{Method: eeg.MethodTCN, Values: seq(4, 1)},
		{Method: eeg.MethodUnknown, Values: seq(40, 1)},
		{Method: eeg.MethodDiffusion, Values: seq(2, 1)},
	})

	assert.Equal(t, 4, out.TargetLength, "dropped series do not widen the target")
	require.Len(t, out.Augmented, 2)
	assert.Equal(t, eeg.MethodTCN, out.Augmented[0].Method)
	assert.Equal(t, eeg.MethodDiffusion, out.Augmented[1].Method)
	assert.Equal(t, []eeg.Method{eeg.MethodUnknown}, obs.dropped)
}

func TestPrepare(t *testing.T) {
	t.Parallel()

	obs := &countingObserver{}
	a := NewAligner(nil, obs)

	labels := []float64{0, 0.004, 0.008}
	ref := Series{10, 10, 10}
	out := a.Prepare(labels, ref, []Named{
		{Method: eeg.MethodGAN, Values: Series{65, 55, 10, 1000, 20}},
		{Method: eeg.MethodVAE, Values: Series{11}},
	})

	assert.Equal(t, 5, out.TargetLength)
	assert.Equal(t, []float64{0, 0.004, 0.008, 0.012, 0.016}, out.Labels)
	assert.Equal(t, map[eeg.Method]int{eeg.MethodGAN: 1, eeg.MethodVAE: 0}, out.Replaced)
	assert.Equal(t, 1, obs.replaced[eeg.MethodGAN])

	gan := out.Augmented[0].Values
	assert.InDelta(t, 10, gan[0], 0)
	assert.InDelta(t, 55, gan[1], 0)
	assert.InDelta(t, 1000, gan[3], 0, "sanitizing runs before padding, on the overlap only")
	assert.True(t, IsNoValue(out.Real[3]))
	assert.True(t, IsNoValue(out.Augmented[1].Values[4]))
}

func TestExtendLabelsFromEmpty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []float64{0, 0.004}, extendLabels(nil, 2))
	assert.Equal(t, []float64{1}, extendLabels([]float64{1, 2, 3}, 1))
}

func TestSeriesJSON(t *testing.T) {
	t.Parallel()

	s := Series{1.5, NoValue, -2, math.Inf(1)}
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `[1.5,null,-2,null]`, string(data))

	var back Series
	require.NoError(t, json.Unmarshal([]byte(`[1.5,null,-2]`), &back))
	require.Len(t, back, 3)
	assert.True(t, IsNoValue(back[1]))
	assert.InDelta(t, -2, back[2], 0)

	data, err = json.Marshal(Prepared{Aligned: Align(Series{1}, nil)})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"targetLength":1`)
}
