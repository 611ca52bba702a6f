// Package timeutil provides time conversions shared by the export pipeline,
// caption parsers and ffmpeg argument builders.
package timeutil

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FrameRate is the fixed output cadence of every export.
const FrameRate = 30

// FormatSeconds converts seconds to HH:MM:SS.MS format for FFmpeg.
//
// Example:
//
//	FormatSeconds(0)      // "00:00:00.00"
//	FormatSeconds(90)     // "00:01:30.00"
//	FormatSeconds(30.53)  // "00:00:30.53"
func FormatSeconds(seconds float64) string {
	hours := int(seconds) / 3600
	minutes := (int(seconds) % 3600) / 60
	secs := seconds - float64(hours*3600) - float64(minutes*60)
	return fmt.Sprintf("%02d:%02d:%05.2f", hours, minutes, secs)
}

// ToMicros converts floating point seconds to integer microseconds.
// Rounds to nearest so long exports do not accumulate truncation drift.
func ToMicros(seconds float64) int64 {
	return int64(math.Round(seconds * 1e6))
}

// FromMicros converts integer microseconds back to seconds.
func FromMicros(us int64) float64 {
	return float64(us) / 1e6
}

// FrameCount returns the number of grid frames for a duration: floor(d*30).
func FrameCount(duration float64) int {
	if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return 0
	}
	// Guard against 2.0*30 landing on 59.999999.
	return int(math.Floor(duration*FrameRate + 1e-9))
}

// FrameTime returns the grid timestamp of frame i.
func FrameTime(i int) float64 {
	return float64(i) / FrameRate
}

// ParseClock parses "HH:MM:SS.ms", "HH:MM:SS,ms" (SRT) or "MM:SS.ms" into seconds.
func ParseClock(value string) (float64, error) {
	value = strings.TrimSpace(strings.Replace(value, ",", ".", 1))
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}

	parts := strings.Split(value, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}

	total := 0.0
	for i, part := range parts {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("invalid timestamp %q", value)
		}
		if i < len(parts)-1 && v != math.Trunc(v) {
			return 0, fmt.Errorf("invalid timestamp %q", value)
		}
		total = total*60 + v
	}
	return total, nil
}
