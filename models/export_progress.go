package models

import (
	"fmt"
	"time"
)

// Phase is the state of an export run.
type Phase string

const (
	PhasePreparing      Phase = "preparing"
	PhaseRenderingVideo Phase = "rendering_video"
	PhaseEncodingAudio  Phase = "encoding_audio"
	PhaseFinalizing     Phase = "finalizing"
	PhaseDone           Phase = "done"
	PhaseError          Phase = "error"
	PhaseCancelled      Phase = "cancelled"
)

// IsTerminal reports whether no further progress can follow this phase.
func (p Phase) IsTerminal() bool {
	return p == PhaseDone || p == PhaseError || p == PhaseCancelled
}

// Label returns a short human readable phase name.
func (p Phase) Label() string {
	switch p {
	case PhasePreparing:
		return "Preparing"
	case PhaseRenderingVideo:
		return "Rendering video"
	case PhaseEncodingAudio:
		return "Encoding audio"
	case PhaseFinalizing:
		return "Finalizing"
	case PhaseDone:
		return "Done"
	case PhaseError:
		return "Error"
	case PhaseCancelled:
		return "Cancelled"
	}
	return string(p)
}

// ExportProgress is one event of the progress stream.
type ExportProgress struct {
	Phase       Phase     `json:"phase"`
	Fraction    float64   `json:"fraction"` // 0-100, non-decreasing within a run
	Message     string    `json:"message,omitempty"`
	Frame       int       `json:"frame,omitempty"`
	TotalFrames int       `json:"total_frames,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	At          time.Time `json:"at"`
}

// EstimatedTimeRemaining extrapolates from elapsed time and fraction.
func (p ExportProgress) EstimatedTimeRemaining() time.Duration {
	if p.Fraction <= 0 || p.StartedAt.IsZero() || p.At.Before(p.StartedAt) {
		return 0
	}
	elapsed := p.At.Sub(p.StartedAt)
	total := time.Duration(float64(elapsed) / (p.Fraction / 100))
	remaining := total - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// FormatSummary returns a single status line for terminals and logs.
func (p ExportProgress) FormatSummary() string {
	summary := fmt.Sprintf("%s: %.1f%%", p.Phase.Label(), p.Fraction)
	if p.TotalFrames > 0 && p.Phase == PhaseRenderingVideo {
		summary += fmt.Sprintf(" | frame %d/%d", p.Frame, p.TotalFrames)
	}
	if !p.Phase.IsTerminal() {
		summary += " | ETA: " + formatDuration(p.EstimatedTimeRemaining())
	}
	if p.Message != "" {
		summary += " | " + p.Message
	}
	return summary
}

// formatDuration converts a duration to a human-readable string
func formatDuration(d time.Duration) string {
	if d == 0 {
		return "calculating..."
	}

	seconds := int(d.Seconds())
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}

	minutes := seconds / 60
	seconds = seconds % 60

	if minutes < 60 {
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	}

	hours := minutes / 60
	minutes = minutes % 60
	return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
}
