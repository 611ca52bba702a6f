package models

import (
	"fmt"
	"strings"
)

// Resolution is the closed set of output size presets.
type Resolution string

const (
	ResolutionOriginal Resolution = "original"
	Resolution720p     Resolution = "720p"
	Resolution480p     Resolution = "480p"
	Resolution240p     Resolution = "240p"
)

// ResolutionValues returns the valid tiers in descending size order.
func ResolutionValues() []Resolution {
	return []Resolution{ResolutionOriginal, Resolution720p, Resolution480p, Resolution240p}
}

// ParseResolution normalises user input ("Original", "720", "720P") to a tier.
func ParseResolution(value string) (Resolution, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v != "" && v != "original" && !strings.HasSuffix(v, "p") {
		v += "p"
	}
	switch Resolution(v) {
	case ResolutionOriginal, Resolution720p, Resolution480p, Resolution240p:
		return Resolution(v), nil
	case "":
		return ResolutionOriginal, nil
	}
	return "", fmt.Errorf("invalid resolution %q, must be one of: original, 720p, 480p, 240p", value)
}

// Height returns the numeric target height, or 0 for the original tier.
func (r Resolution) Height() int {
	switch r {
	case Resolution720p:
		return 720
	case Resolution480p:
		return 480
	case Resolution240p:
		return 240
	}
	return 0
}

// IsValid reports whether r is one of the known tiers.
func (r Resolution) IsValid() bool {
	switch r {
	case ResolutionOriginal, Resolution720p, Resolution480p, Resolution240p:
		return true
	}
	return false
}

func (r Resolution) String() string {
	return string(r)
}

// Set implements pflag.Value.
func (r *Resolution) Set(value string) error {
	parsed, err := ParseResolution(value)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Type implements pflag.Value.
func (r *Resolution) Type() string {
	return "resolution"
}

// UnmarshalText implements encoding.TextUnmarshaler so config files are
// validated at load time.
func (r *Resolution) UnmarshalText(text []byte) error {
	return r.Set(string(text))
}

// MarshalText implements encoding.TextMarshaler.
func (r Resolution) MarshalText() ([]byte, error) {
	return []byte(r), nil
}

// Geometry is an output raster size. Both sides must be even and positive.
type Geometry struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Validate enforces the encoder's even-dimension requirement.
func (g Geometry) Validate() error {
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("geometry %dx%d must be positive", g.Width, g.Height)
	}
	if g.Width%2 != 0 || g.Height%2 != 0 {
		return fmt.Errorf("geometry %dx%d must have even dimensions", g.Width, g.Height)
	}
	return nil
}

// Pixels returns the pixel count.
func (g Geometry) Pixels() int {
	return g.Width * g.Height
}

func (g Geometry) String() string {
	return fmt.Sprintf("%dx%d", g.Width, g.Height)
}
