package eeg

import (
	"strings"

	"github.com/miviz/miviz/internal/errors"
)

// Motion is a motor-imagery class label.
type Motion uint8

const (
	MotionUnknown Motion = iota
	MotionLeft
	MotionRight
	MotionFoot
	MotionTongue
)

type motionInfo struct {
	id      string
	name    string
	glyph   string
	aliases []string
}

var motionTable = [...]motionInfo{
	MotionUnknown: {id: "unknown", name: "Unknown", glyph: "?"},
	MotionLeft:    {id: "left", name: "Left Hand", glyph: "👈", aliases: []string{"left_hand"}},
	MotionRight:   {id: "right", name: "Right Hand", glyph: "👉", aliases: []string{"right_hand"}},
	MotionFoot:    {id: "foot", name: "Feet", glyph: "🦶", aliases: []string{"feet"}},
	MotionTongue:  {id: "tongue", name: "Tongue", glyph: "👅"},
}

// Motions returns the four valid labels in catalog order.
func Motions() []Motion {
	return []Motion{MotionLeft, MotionRight, MotionFoot, MotionTongue}
}

// ParseMotion resolves a label id or toolbar alias such as "left_hand".
func ParseMotion(s string) (Motion, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, m := range Motions() {
		info := motionTable[m]
		if key == info.id {
			return m, nil
		}
		for _, alias := range info.aliases {
			if key == alias {
				return m, nil
			}
		}
	}
	return MotionUnknown, errors.UnknownID("eeg", "motion", s)
}

// Valid reports whether m is one of the four labels.
func (m Motion) Valid() bool {
	return m >= MotionLeft && m <= MotionTongue
}

func (m Motion) info() motionInfo {
	if int(m) >= len(motionTable) {
		return motionTable[MotionUnknown]
	}
	return motionTable[m]
}

// String returns the label id.
func (m Motion) String() string { return m.info().id }

// DisplayName returns the human-readable label.
func (m Motion) DisplayName() string { return m.info().name }

// Glyph returns the display glyph.
func (m Motion) Glyph() string { return m.info().glyph }

// MarshalText implements encoding.TextMarshaler.
func (m Motion) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Motion) UnmarshalText(text []byte) error {
	parsed, err := ParseMotion(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
