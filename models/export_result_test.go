package models

import (
	"testing"
	"time"
)

func TestExportResultValidate(t *testing.T) {
	valid := func() *ExportResult {
		return &ExportResult{
			RunID:     "run",
			Data:      []byte{1, 2, 3},
			Container: ContainerMP4,
			Geometry:  Geometry{854, 480},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*ExportResult)
		wantErr bool
	}{
		{"valid", func(r *ExportResult) {}, false},
		{"empty data", func(r *ExportResult) { r.Data = nil }, true},
		{"odd geometry", func(r *ExportResult) { r.Geometry.Width = 853 }, true},
		{"unknown container", func(r *ExportResult) { r.Container = "mkv" }, true},
		{"degraded without warning", func(r *ExportResult) { r.Degraded = true }, true},
		{"degraded with warning", func(r *ExportResult) {
			r.Degraded = true
			r.Warnings = []string{"video flush timed out"}
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(r)
			err := r.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestExportProgressEstimatedTimeRemaining(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	p := ExportProgress{Phase: PhaseRenderingVideo, Fraction: 25, StartedAt: start, At: start.Add(10 * time.Second)}
	if eta := p.EstimatedTimeRemaining(); eta != 30*time.Second {
		t.Errorf("expected 30s remaining, got %v", eta)
	}

	p.Fraction = 0
	if eta := p.EstimatedTimeRemaining(); eta != 0 {
		t.Errorf("expected 0 for zero fraction, got %v", eta)
	}
}

func TestExportProgressFormatSummary(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := ExportProgress{
		Phase:       PhaseRenderingVideo,
		Fraction:    40,
		Frame:       120,
		TotalFrames: 300,
		StartedAt:   start,
		At:          start.Add(4 * time.Second),
	}

	expected := "Rendering video: 40.0% | frame 120/300 | ETA: 6s"
	if got := p.FormatSummary(); got != expected {
		t.Errorf("FormatSummary() = %q; want %q", got, expected)
	}

	done := ExportProgress{Phase: PhaseDone, Fraction: 100}
	if got := done.FormatSummary(); got != "Done: 100.0%" {
		t.Errorf("terminal summary = %q", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d        time.Duration
		expected string
	}{
		{0, "calculating..."},
		{45 * time.Second, "45s"},
		{125 * time.Second, "2m5s"},
		{3725 * time.Second, "1h2m5s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.expected {
			t.Errorf("formatDuration(%v) = %q; want %q", tt.d, got, tt.expected)
		}
	}
}

func TestNewAudioChunk(t *testing.T) {
	chunk, err := NewAudioChunk(2, 88200, 44100, 44100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chunk.StartTime() != 2 || chunk.EndTime() != 3 {
		t.Errorf("chunk spans %.2f-%.2f; want 2-3", chunk.StartTime(), chunk.EndTime())
	}

	if _, err := NewAudioChunk(0, 0, 0, 44100); err == nil {
		t.Error("expected error for empty chunk")
	}
	if _, err := NewAudioChunk(0, -1, 10, 44100); err == nil {
		t.Error("expected error for negative start")
	}
}

func TestCaptionValidate(t *testing.T) {
	tests := []struct {
		caption Caption
		wantErr bool
	}{
		{Caption{ID: "a", StartTime: 0, EndTime: 2}, false},
		{Caption{ID: "b", StartTime: 1, EndTime: 1}, false},
		{Caption{ID: "c", StartTime: 2, EndTime: 1}, true},
		{Caption{ID: "d", StartTime: -1, EndTime: 1}, true},
	}
	for _, tt := range tests {
		err := tt.caption.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("caption %s: error = %v, wantErr %v", tt.caption.ID, err, tt.wantErr)
		}
	}
}
