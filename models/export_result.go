package models

import (
	"fmt"
	"strings"
	"time"
)

// Container names the output file format.
type Container string

const (
	ContainerMP4 Container = "mp4"
	ContainerAVI Container = "avi"
)

// ContainerValues returns the supported containers.
func ContainerValues() []Container {
	return []Container{ContainerMP4, ContainerAVI}
}

// IsValid reports whether c is a supported container.
func (c Container) IsValid() bool {
	return c == ContainerMP4 || c == ContainerAVI
}

// Extension returns the file extension including the dot.
func (c Container) Extension() string {
	return "." + string(c)
}

// ExportResult is the terminal artifact of a successful export.
//
// Degraded results are playable but were produced after an encoder flush
// timed out; Warnings explains what was lost.
type ExportResult struct {
	RunID      string        `json:"run_id"`
	Data       []byte        `json:"-"`
	Container  Container     `json:"container"`
	Geometry   Geometry      `json:"geometry"`
	Bitrate    int           `json:"bitrate"`
	Duration   float64       `json:"duration"`
	Frames     int           `json:"frames"`
	VideoUnits int           `json:"video_units"`
	AudioUnits int           `json:"audio_units"`
	Degraded   bool          `json:"degraded"`
	Warnings   []string      `json:"warnings,omitempty"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Validate checks that the result is deliverable.
func (r *ExportResult) Validate() error {
	if len(r.Data) == 0 {
		return fmt.Errorf("result data cannot be empty")
	}
	if err := r.Geometry.Validate(); err != nil {
		return err
	}
	if !r.Container.IsValid() {
		return fmt.Errorf("unknown container %q", r.Container)
	}
	if r.Degraded && len(r.Warnings) == 0 {
		return fmt.Errorf("degraded result must carry a warning")
	}
	return nil
}

// Size returns the output size in bytes.
func (r *ExportResult) Size() int {
	return len(r.Data)
}

// WarningSummary joins the warnings for display.
func (r *ExportResult) WarningSummary() string {
	return strings.Join(r.Warnings, "; ")
}
