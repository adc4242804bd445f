package chart

import "math"

const (
	// nearZeroBaseline is the |ref| below which the relative rule is
	// replaced by an absolute one.
	nearZeroBaseline = 1e-3

	// absoluteLimit is the largest |augmented| kept against a near-zero
	// baseline.
	absoluteLimit = 5.0

	// relativeLimit is the largest deviation kept, as a multiple of |ref|.
	relativeLimit = 5.0
)

// Sanitize returns the reference sample ref when aug deviates from it beyond
// the chart bound, and aug otherwise. NoValue on either side passes aug
// through unchanged.
func Sanitize(aug, ref float64) float64 {
	if exceedsBound(aug, ref) {
		return ref
	}
	return aug
}

func exceedsBound(aug, ref float64) bool {
	switch {
	case IsNoValue(aug) || IsNoValue(ref):
		return false
	case math.Abs(ref) < nearZeroBaseline:
		return math.Abs(aug) > absoluteLimit
	default:
		return math.Abs(aug-ref) > relativeLimit*math.Abs(ref)
	}
}

// SanitizeSeries applies Sanitize over the overlapping index range of aug
// and ref. Samples of aug past the end of ref are kept as they are. It
// returns a new series and the number of replaced samples.
func SanitizeSeries(aug, ref Series) (Series, int) {
	out := make(Series, len(aug))
	copy(out, aug)

	replaced := 0
	for i := range min(len(aug), len(ref)) {
		if exceedsBound(aug[i], ref[i]) {
			out[i] = ref[i]
			replaced++
		}
	}
	return out, replaced
}
