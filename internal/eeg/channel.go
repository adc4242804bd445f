package eeg

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/miviz/miviz/internal/errors"
)

// Channel is a 1-based electrode index. The index feeds seed derivation, so
// it must stay stable. Indices 1..5 form the canonical visualization set;
// the synthetic generator accepts up to MaxChannel.
type Channel int

const (
	Fz Channel = iota + 1
	C3
	Cz
	C4
	Pz
)

// MaxChannel is the largest index the synthetic generator supports.
const MaxChannel Channel = 22

var channelNames = map[Channel]string{
	Fz: "Fz",
	C3: "C3",
	Cz: "Cz",
	C4: "C4",
	Pz: "Pz",
}

// VisualizationChannels returns the canonical 5-channel view in index order.
func VisualizationChannels() []Channel {
	return []Channel{Fz, C3, Cz, C4, Pz}
}

// Valid reports whether c is within the generator range.
func (c Channel) Valid() bool {
	return c >= 1 && c <= MaxChannel
}

// Index returns the 1-based index used for seeding.
func (c Channel) Index() int { return int(c) }

// String returns the electrode name for canonical channels and "ch<N>"
// otherwise.
func (c Channel) String() string {
	if name, ok := channelNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ch%d", int(c))
}

// ParseChannel accepts an electrode name (case-insensitive), "ch<N>" or a
// bare index.
func ParseChannel(s string) (Channel, error) {
	key := strings.TrimSpace(s)
	for ch, name := range channelNames {
		if strings.EqualFold(key, name) {
			return ch, nil
		}
	}

	digits := strings.TrimPrefix(strings.ToLower(key), "ch")
	if n, err := strconv.Atoi(digits); err == nil && Channel(n).Valid() {
		return Channel(n), nil
	}

	return 0, errors.UnknownID("eeg", "channel", s)
}

// MarshalText implements encoding.TextMarshaler so channel maps encode with
// electrode names as keys.
func (c Channel) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Channel) UnmarshalText(text []byte) error {
	parsed, err := ParseChannel(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
