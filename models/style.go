package models

import (
	"fmt"
	"math"
	"strings"
)

// MinScaledFontSize keeps captions readable on small output tiers.
const MinScaledFontSize = 10

// Style is the caption appearance, authored against the source resolution.
type Style struct {
	FontSize            float64 `json:"fontSize" yaml:"font_size" toml:"font_size"`
	FontFamily          string  `json:"fontFamily" yaml:"font_family" toml:"font_family"`
	FontFile            string  `json:"fontFile,omitempty" yaml:"font_file" toml:"font_file"`
	Color               Color   `json:"color" yaml:"color" toml:"color"`
	BackgroundColor     Color   `json:"backgroundColor" yaml:"background_color" toml:"background_color"`
	OutlineWidth        float64 `json:"borderWidth" yaml:"outline_width" toml:"outline_width"`
	OutlineColor        Color   `json:"borderColor" yaml:"outline_color" toml:"outline_color"`
	BottomOffsetPercent float64 `json:"bottomOffset" yaml:"bottom_offset" toml:"bottom_offset"`
	Opacity             float64 `json:"opacity" yaml:"opacity" toml:"opacity"`
}

// DefaultStyle mirrors the editor defaults: white bold 24px text with a
// 2px black outline, 10% above the bottom edge.
func DefaultStyle() Style {
	return Style{
		FontSize:            24,
		FontFamily:          "Arial",
		Color:               White,
		BackgroundColor:     Transparent,
		OutlineWidth:        2,
		OutlineColor:        Black,
		BottomOffsetPercent: 10,
		Opacity:             1,
	}
}

// Validate checks that every numeric field is in range.
func (s Style) Validate() error {
	var problems []string

	if !(s.FontSize > 0) {
		problems = append(problems, "font size must be positive")
	}
	if s.OutlineWidth < 0 || math.IsNaN(s.OutlineWidth) {
		problems = append(problems, "outline width cannot be negative")
	}
	if !(s.BottomOffsetPercent >= 0 && s.BottomOffsetPercent <= 100) {
		problems = append(problems, "bottom offset must be between 0 and 100")
	}
	if !(s.Opacity >= 0 && s.Opacity <= 1) {
		problems = append(problems, "opacity must be between 0 and 1")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, ", "))
	}
	return nil
}

// ScaledStyle is a Style resolved for one target geometry.
type ScaledStyle struct {
	Style
	Scale float64
}

// Scale derives the style for an output of targetHeight pixels from a
// style authored against sourceHeight pixels. Only size-like fields change.
func (s Style) Scale(targetHeight, sourceHeight int) ScaledStyle {
	k := 1.0
	if sourceHeight > 0 && targetHeight > 0 {
		k = float64(targetHeight) / float64(sourceHeight)
	}
	scaled := s
	scaled.FontSize = math.Max(MinScaledFontSize, s.FontSize*k)
	scaled.OutlineWidth = math.Max(0, s.OutlineWidth*k)
	return ScaledStyle{Style: scaled, Scale: k}
}
