// Package chart prepares processed and augmented series for plotting. It
// clamps wild augmented samples toward the real signal and aligns series of
// different lengths onto a common index axis.
//
// NaN is the "no value" marker throughout. Series encode it as JSON null.
package chart

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// NoValue marks a missing sample.
var NoValue = math.NaN()

// IsNoValue reports whether v is the no-value marker.
func IsNoValue(v float64) bool {
	return math.IsNaN(v)
}

// Series is a sample sequence that may contain NoValue markers.
type Series []float64

// Valid returns the number of samples that are not NoValue.
func (s Series) Valid() int {
	n := 0
	for _, v := range s {
		if !IsNoValue(v) {
			n++
		}
	}
	return n
}

// MarshalJSON writes NoValue as null.
func (s Series) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	buf.Grow(len(s) * 8)
	buf.WriteByte('[')
	for i, v := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		if IsNoValue(v) || math.IsInf(v, 0) {
			buf.WriteString("null")
			continue
		}
		buf.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads null as NoValue.
func (s *Series) UnmarshalJSON(data []byte) error {
	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*s = nil
		return nil
	}

	out := make(Series, len(raw))
	for i, v := range raw {
		if v == nil {
			out[i] = NoValue
			continue
		}
		out[i] = *v
	}
	*s = out
	return nil
}

// resize returns a copy of s with exactly n elements, right-padded with
// NoValue or truncated. pad is the number of markers appended.
func resize(s Series, n int) (out Series, pad int) {
	out = make(Series, n)
	copied := copy(out, s)
	for i := copied; i < n; i++ {
		out[i] = NoValue
	}
	return out, n - copied
}
