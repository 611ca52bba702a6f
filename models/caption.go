// Package models provides the data records shared by the export pipeline.
package models

import (
	"fmt"
	"math"
)

// Caption is one timed entry of the caption list.
//
// The export receives an immutable snapshot of these values; nothing in the
// pipeline mutates a Caption after the run starts.
type Caption struct {
	ID        string  `json:"id" yaml:"id"`
	StartTime float64 `json:"startTime" yaml:"start_time"`
	EndTime   float64 `json:"endTime" yaml:"end_time"`
	Text      string  `json:"text" yaml:"text"`
}

// Validate checks the time range of the caption.
//
// A caption with StartTime == EndTime is legal and is active at exactly
// that instant.
func (c Caption) Validate() error {
	if math.IsNaN(c.StartTime) || math.IsNaN(c.EndTime) {
		return fmt.Errorf("caption %q: times must be numbers", c.ID)
	}
	if c.StartTime < 0 {
		return fmt.Errorf("caption %q: start_time cannot be negative", c.ID)
	}
	if c.EndTime < c.StartTime {
		return fmt.Errorf("caption %q: end_time %.3f is before start_time %.3f", c.ID, c.EndTime, c.StartTime)
	}
	return nil
}

// Duration returns the length of the caption in seconds.
func (c Caption) Duration() float64 {
	return c.EndTime - c.StartTime
}

// ValidateCaptions validates every caption and reports the first problem.
func ValidateCaptions(captions []Caption) error {
	for i, c := range captions {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("caption %d: %w", i, err)
		}
	}
	return nil
}

// CloneCaptions returns an independent copy of the list.
func CloneCaptions(captions []Caption) []Caption {
	if captions == nil {
		return nil
	}
	out := make([]Caption, len(captions))
	copy(out, captions)
	return out
}
