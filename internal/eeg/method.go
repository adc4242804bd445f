package eeg

import (
	"strings"

	"github.com/miviz/miviz/internal/errors"
)

// Method is an augmentation method. The names are labels for deterministic
// transforms; no model is involved.
type Method uint8

const (
	MethodUnknown Method = iota
	MethodVAE            // smoothing
	MethodTCN            // convolution
	MethodGAN            // noise injection
	MethodDiffusion      // iterative denoising
)

// MethodInfo is the fixed display metadata for a method.
type MethodInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	Algorithm string `json:"algorithm"`
}

var methodTable = map[Method]MethodInfo{
	MethodVAE:       {ID: "vae", Name: "VAE", Color: "rgb(75, 192, 192)", Algorithm: "smoothing"},
	MethodTCN:       {ID: "tcn", Name: "TCN", Color: "rgb(255, 159, 64)", Algorithm: "convolution"},
	MethodGAN:       {ID: "gan", Name: "GAN", Color: "rgb(255, 99, 132)", Algorithm: "noise-injection"},
	MethodDiffusion: {ID: "diffusion", Name: "Diffusion", Color: "rgb(153, 102, 255)", Algorithm: "iterative-denoising"},
}

// Methods returns the augmentation methods in display order.
func Methods() []Method {
	return []Method{MethodVAE, MethodTCN, MethodGAN, MethodDiffusion}
}

// Info returns the metadata entry for m. ok is false for MethodUnknown and
// out-of-range values.
func (m Method) Info() (MethodInfo, bool) {
	info, ok := methodTable[m]
	return info, ok
}

// Valid reports whether m has a metadata entry.
func (m Method) Valid() bool {
	_, ok := methodTable[m]
	return ok
}

// String returns the method id, or "unknown".
func (m Method) String() string {
	if info, ok := methodTable[m]; ok {
		return info.ID
	}
	return "unknown"
}

// ParseMethod resolves a method id or display name. Matching ignores case
// and also accepts the algorithm name ("smoothing", "noise-injection", ...).
func ParseMethod(s string) (Method, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, m := range Methods() {
		info := methodTable[m]
		if key == info.ID || key == strings.ToLower(info.Name) || key == info.Algorithm {
			return m, nil
		}
	}
	return MethodUnknown, errors.UnknownID("eeg", "method", s)
}

// ParseMethods parses a list, collapsing duplicates and keeping first-seen order.
func ParseMethods(ids []string) ([]Method, error) {
	out := make([]Method, 0, len(ids))
	seen := make(map[Method]bool, len(ids))
	for _, id := range ids {
		m, err := ParseMethod(id)
		if err != nil {
			return nil, err
		}
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out, nil
}

// MarshalText implements encoding.TextMarshaler.
func (m Method) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Method) UnmarshalText(text []byte) error {
	parsed, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
