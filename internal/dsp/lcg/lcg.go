// Package lcg implements the small linear congruential generator used by the
// synthetic signal stages. The state is an explicit value: every draw returns
// the next state, so no generator is shared between calls.
package lcg

const (
	multiplier = 9301
	increment  = 49297

	// Modulus is the period bound of the generator.
	Modulus = 233280
)

// Source is an immutable generator state.
type Source struct {
	state int64
}

// New returns a source seeded with seed. Negative seeds are folded into
// [0, Modulus).
func New(seed int64) Source {
	s := seed % Modulus
	if s < 0 {
		s += Modulus
	}
	return Source{state: s}
}

// Next returns a value in [0, 1) and the advanced source.
func (s Source) Next() (float64, Source) {
	next := (s.state*multiplier + increment) % Modulus
	return float64(next) / Modulus, Source{state: next}
}

// Centered returns Next() - 0.5 scaled by span, i.e. a value in
// [-span/2, span/2).
func (s Source) Centered(span float64) (float64, Source) {
	r, next := s.Next()
	return (r - 0.5) * span, next
}

// Intn returns an integer in [0, n). n must be positive.
func (s Source) Intn(n int) (int, Source) {
	r, next := s.Next()
	return int(r * float64(n)), next
}

// State returns the raw generator state.
func (s Source) State() int64 {
	return s.state
}
