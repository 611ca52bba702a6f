package config

import (
	"strings"
	"testing"
	"time"

	"captionburn/command/video"
	"captionburn/models"
	"captionburn/pipeline"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Resolution != models.ResolutionOriginal {
		t.Errorf("Expected original resolution, got %s", cfg.Resolution)
	}
	if cfg.Zoom != 1 {
		t.Errorf("Expected zoom 1, got %v", cfg.Zoom)
	}
	if cfg.Container != "mp4" {
		t.Errorf("Expected container mp4, got %s", cfg.Container)
	}
	if cfg.Video.Codec != "" {
		t.Errorf("Expected codec to follow the container, got %s", cfg.Video.Codec)
	}
	if !cfg.Audio.Enabled || cfg.Audio.SampleRate != 44100 || cfg.Audio.Channels != 1 {
		t.Errorf("Unexpected audio defaults: %+v", cfg.Audio)
	}
	if time.Duration(cfg.Export.FlushTimeout) != 10*time.Second || cfg.Export.FlushAttempts != 2 {
		t.Errorf("Unexpected flush defaults: %+v", cfg.Export)
	}
	if cfg.Style != models.DefaultStyle() {
		t.Errorf("Expected default style, got %+v", cfg.Style)
	}

	// Defaults only lack the export paths
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

func TestConfigCopy(t *testing.T) {
	original := DefaultConfig()
	original.Input = "a.mp4"

	copied := original.Copy()
	copied.Input = "b.mp4"
	copied.Style.FontSize = 48
	copied.Audio.Enabled = false

	if original.Input != "a.mp4" || original.Style.FontSize != 24 || !original.Audio.Enabled {
		t.Errorf("Copy should not share state with the original: %+v", original)
	}
}

func TestDurationText(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("1m30s")); err != nil {
		t.Fatalf("UnmarshalText failed: %v", err)
	}
	if time.Duration(d) != 90*time.Second {
		t.Errorf("Expected 90s, got %v", time.Duration(d))
	}

	text, _ := d.MarshalText()
	if string(text) != "1m30s" {
		t.Errorf("Expected 1m30s, got %s", text)
	}

	if err := d.UnmarshalText([]byte("ten seconds")); err == nil {
		t.Error("Expected error for invalid duration")
	}
}

func TestToOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Input = "in.mp4"
	cfg.Resolution = models.Resolution480p
	cfg.Zoom = 1.5
	cfg.Container = "avi"
	cfg.Audio.Enabled = false
	cfg.Export.FlushTimeout = Duration(3 * time.Second)
	cfg.Export.FlushAttempts = 4
	cfg.Export.ProgressStride = 5
	cfg.Video.HWEncoder = "h264_vaapi"
	cfg.Video.HWAccel = "vaapi"
	cfg.Video.HWDevice = "/dev/dri/renderD128"
	cfg.Video.JPEGQuality = 70

	captions := []models.Caption{{ID: "1", StartTime: 0, EndTime: 1, Text: "hello"}}
	opts := cfg.ToOptions(captions)

	if opts.SourcePath != "in.mp4" || len(opts.Captions) != 1 {
		t.Errorf("Unexpected source or captions: %q %d", opts.SourcePath, len(opts.Captions))
	}
	if opts.Resolution != models.Resolution480p || opts.Zoom != 1.5 {
		t.Errorf("Unexpected geometry settings: %s %v", opts.Resolution, opts.Zoom)
	}
	if opts.Container != models.ContainerAVI || opts.EffectiveCodec() != pipeline.CodecMJPEG {
		t.Errorf("Expected avi with mjpeg, got %s %s", opts.Container, opts.EffectiveCodec())
	}
	if opts.Audio {
		t.Error("Audio should be disabled")
	}
	if opts.FlushTimeout != 3*time.Second || opts.FlushAttempts != 4 || opts.ProgressStride != 5 {
		t.Errorf("Unexpected export tuning: %v %d %d", opts.FlushTimeout, opts.FlushAttempts, opts.ProgressStride)
	}
	if opts.HWEncoder != "h264_vaapi" || opts.HWAccel != video.HWAccelVAAPI || opts.HWDevice != "/dev/dri/renderD128" {
		t.Errorf("Unexpected hardware settings: %s %s %s", opts.HWEncoder, opts.HWAccel, opts.HWDevice)
	}
	if opts.JPEGQuality != 70 {
		t.Errorf("Expected jpeg quality 70, got %d", opts.JPEGQuality)
	}
	if err := opts.Validate(); err != nil {
		t.Errorf("Options from a valid config should validate: %v", err)
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Resolution = "1080p"
	cfg.Zoom = 0.5
	cfg.Container = "mkv"
	cfg.Style.Opacity = 2
	cfg.Video.JPEGQuality = 0
	cfg.Audio.SampleRate = 0
	cfg.Export.FlushAttempts = 0
	cfg.Workers = -1
	cfg.Log.Level = "loud"
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected validation error")
	}
	msg := err.Error()
	if !strings.HasPrefix(msg, "configuration validation failed:") {
		t.Errorf("Unexpected error prefix: %s", msg)
	}
	for _, want := range []string{
		"invalid resolution",
		"zoom must be at least 1",
		"invalid container",
		"style:",
		"jpeg quality",
		"sample rate must be positive",
		"flush attempts",
		"workers cannot be negative",
		"invalid log level",
		"invalid log format",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("Expected %q in error:\n%s", want, msg)
		}
	}
}

func TestVideoConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		video     VideoConfig
		container models.Container
		wantErr   bool
	}{
		{"auto codec mp4", VideoConfig{JPEGQuality: 85}, models.ContainerMP4, false},
		{"auto codec avi", VideoConfig{JPEGQuality: 85}, models.ContainerAVI, false},
		{"h264 in avi", VideoConfig{Codec: "h264", JPEGQuality: 85}, models.ContainerAVI, true},
		{"mjpeg in mp4", VideoConfig{Codec: "mjpeg", JPEGQuality: 85}, models.ContainerMP4, true},
		{"unknown codec", VideoConfig{Codec: "vp9", JPEGQuality: 85}, models.ContainerMP4, true},
		{"unknown accel", VideoConfig{HWEncoder: "x", HWAccel: "metal", JPEGQuality: 85}, models.ContainerMP4, true},
		{"accel without encoder", VideoConfig{HWAccel: "cuda", JPEGQuality: 85}, models.ContainerMP4, true},
		{"nvenc", VideoConfig{HWEncoder: "h264_nvenc", HWAccel: "cuda", JPEGQuality: 85}, models.ContainerMP4, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.video.Validate(tt.container)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAudioConfig_ValidateDisabled(t *testing.T) {
	a := AudioConfig{Enabled: false}
	if err := a.Validate(); err != nil {
		t.Errorf("Disabled audio should not be validated: %v", err)
	}
	a.Enabled = true
	if err := a.Validate(); err == nil {
		t.Error("Expected errors for empty enabled audio config")
	}
}
