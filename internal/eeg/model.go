// Package eeg defines the domain model shared by the processing pipeline:
// trials, motion labels, channels, augmentation methods and the series
// types that flow between stages.
//
// All values are treated as immutable once constructed. Stages that derive
// new data return fresh slices and maps.
package eeg

import (
	"maps"
	"slices"
)

// SampleRate is the fixed sampling rate in samples per second. It drives
// label-axis generation and every frequency term in the synthetic signals.
const SampleRate = 250

// Subject bounds for the synthetic trial catalog.
const (
	MinSubject = 1
	MaxSubject = 9
)

// Trial identifies one simulated EEG recording with its true motion label.
type Trial struct {
	ID         string `json:"id"`
	Subject    int    `json:"subject"`
	TrialIndex int    `json:"trialIndex"`
	Motion     Motion `json:"motionType"`
}

// ChannelSeries maps a channel to its samples. All channels of one signal
// share the same sample count.
type ChannelSeries map[Channel][]float64

// Len returns the common sample count, or 0 for an empty series.
func (cs ChannelSeries) Len() int {
	for _, samples := range cs {
		return len(samples)
	}
	return 0
}

// Channels returns the channels present, in canonical order.
func (cs ChannelSeries) Channels() []Channel {
	channels := slices.Collect(maps.Keys(cs))
	slices.Sort(channels)
	return channels
}

// Clone returns a deep copy.
func (cs ChannelSeries) Clone() ChannelSeries {
	out := make(ChannelSeries, len(cs))
	for ch, samples := range cs {
		out[ch] = slices.Clone(samples)
	}
	return out
}

// Aligned reports whether every channel has the same number of samples.
func (cs ChannelSeries) Aligned() bool {
	n := -1
	for _, samples := range cs {
		if n >= 0 && len(samples) != n {
			return false
		}
		n = len(samples)
	}
	return true
}

// ProcessedSignal is a channel set after zero or more preprocessing steps,
// together with its time-label axis in seconds.
type ProcessedSignal struct {
	Channels   ChannelSeries `json:"channels"`
	Labels     []float64     `json:"labels"`
	SampleRate int           `json:"sampleRate"`

	// ArtifactsRemoved and SegmentExtracted record which steps were applied.
	ArtifactsRemoved bool `json:"artifactsRemoved"`
	SegmentExtracted bool `json:"segmentExtracted"`
}

// Len returns the number of samples per channel.
func (p *ProcessedSignal) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Labels)
}

// AugmentedSeries is the output of one augmentation method over a processed
// signal. Its length may differ from the source.
type AugmentedSeries struct {
	Method   Method        `json:"method"`
	Channels ChannelSeries `json:"channels"`
}

// Classification is a simulated prediction for one signal variant.
// Correct is nil when the true label was not supplied.
type Classification struct {
	Method     Method  `json:"method"`
	Source     string  `json:"source"`
	Predicted  Motion  `json:"predicted"`
	Confidence float64 `json:"confidence"`
	Correct    *bool   `json:"correct,omitempty"`
}
