package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"captionburn/models"
)

func TestNew_AutoFormatIsJSONOffTerminal(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Output: &buf})
	require.NoError(t, err)

	logger.Info("export started", "run_id", "abc")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line), buf.String())
	assert.Equal(t, "export started", line["@message"])
	assert.Equal(t, "abc", line["run_id"])
	assert.Equal(t, "captionburn", line["@module"])
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Name: "export", Format: FormatText, Output: &buf})
	require.NoError(t, err)

	logger.Warn("audio dropped", "container", "avi")

	out := buf.String()
	assert.Contains(t, out, "[WARN]")
	assert.Contains(t, out, "export: audio dropped")
	assert.Contains(t, out, "container=avi")
	assert.NotContains(t, out, "\x1b[", "non-terminal output must not be coloured")
}

func TestNew_Level(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "warn", Format: FormatText, Output: &buf})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Error("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Equal(t, hclog.Warn, logger.GetLevel())
}

func TestNew_InvalidOptions(t *testing.T) {
	_, err := New(Options{Level: "chatty"})
	assert.Error(t, err)

	_, err = New(Options{Format: "xml"})
	assert.Error(t, err)
}

func TestIsTerminal_Buffer(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))
}

func progress(phase models.Phase, fraction float64) models.ExportProgress {
	return models.ExportProgress{Phase: phase, Fraction: fraction, Message: phase.Label()}
}

func TestProgressSampler_Allow(t *testing.T) {
	s := NewProgressSampler(nil, 25)

	events := []struct {
		p    models.ExportProgress
		want bool
	}{
		{progress(models.PhasePreparing, 0), true},
		{progress(models.PhaseRenderingVideo, 0), true},
		{progress(models.PhaseRenderingVideo, 10), false},
		{progress(models.PhaseRenderingVideo, 24.9), false},
		{progress(models.PhaseRenderingVideo, 25), true},
		{progress(models.PhaseRenderingVideo, 30), false},
		{progress(models.PhaseRenderingVideo, 79), true},
		{progress(models.PhaseEncodingAudio, 80), true},
		{progress(models.PhaseEncodingAudio, 90), false},
		{progress(models.PhaseFinalizing, 95), true},
		{progress(models.PhaseDone, 100), true},
		{progress(models.PhaseDone, 100), false},
	}

	for i, e := range events {
		assert.Equal(t, e.want, s.Allow(e.p), "event %d (%s %.1f)", i, e.p.Phase, e.p.Fraction)
	}

	s.Reset()
	assert.True(t, s.Allow(progress(models.PhasePreparing, 0)))
}

func TestProgressSampler_Progress(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Format: FormatJSON, Output: &buf})
	require.NoError(t, err)

	s := NewProgressSampler(logger, 0)
	start := time.Now()
	for i := 0; i < 100; i++ {
		s.Progress(models.ExportProgress{
			Phase:       models.PhaseRenderingVideo,
			Fraction:    float64(i) * 0.95,
			Message:     "Rendering frame",
			Frame:       i + 1,
			TotalFrames: 100,
			StartedAt:   start,
			At:          start.Add(time.Duration(i+1) * time.Second),
		})
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	// 0..94% in 10% buckets
	assert.Len(t, lines, 10)

	var first map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "rendering_video", first["phase"])
	assert.EqualValues(t, 100, first["total_frames"])
}
