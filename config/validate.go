package config

import (
	"fmt"
	"math"
	"os"
	"slices"
	"strings"

	"github.com/hashicorp/go-hclog"

	"captionburn/command/video"
	"captionburn/models"
)

// Validate checks the settings shared by every command.
func (c *Config) Validate() error {
	return joinProblems(c.problems())
}

// ValidateExport additionally requires the files an export reads and writes.
func (c *Config) ValidateExport() error {
	var errors []string

	if c.Input == "" {
		errors = append(errors, "input file is required")
	} else if _, err := os.Stat(c.Input); os.IsNotExist(err) {
		errors = append(errors, fmt.Sprintf("input file does not exist: %s", c.Input))
	}

	if c.Output == "" {
		errors = append(errors, "output file is required")
	}

	if c.Captions != "" {
		if _, err := os.Stat(c.Captions); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("captions file does not exist: %s", c.Captions))
		}
	}

	return joinProblems(append(errors, c.problems()...))
}

func (c *Config) problems() []string {
	var errors []string

	if !c.Resolution.IsValid() {
		errors = append(errors, fmt.Sprintf("invalid resolution '%s', must be one of: original, 720p, 480p, 240p", c.Resolution))
	}

	if !(c.Zoom >= 1) || math.IsInf(c.Zoom, 0) {
		errors = append(errors, fmt.Sprintf("zoom must be at least 1, got %v", c.Zoom))
	}

	container := models.Container(c.Container)
	if !container.IsValid() {
		errors = append(errors, fmt.Sprintf("invalid container '%s', must be one of: mp4, avi", c.Container))
	}

	if err := c.Style.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("style: %v", err))
	}

	if err := c.Video.Validate(container); err != nil {
		errors = append(errors, fmt.Sprintf("video config: %v", err))
	}

	if err := c.Audio.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("audio config: %v", err))
	}

	if c.Export.FlushTimeout <= 0 {
		errors = append(errors, "flush timeout must be positive")
	}
	if c.Export.FlushAttempts < 1 {
		errors = append(errors, "flush attempts must be at least 1")
	}
	if c.Export.ProgressStride < 1 {
		errors = append(errors, "progress stride must be at least 1")
	}

	// Validate workers (0 is valid, means auto-detect)
	if c.Workers < 0 {
		errors = append(errors, "workers cannot be negative (use 0 for auto-detect)")
	}

	if hclog.LevelFromString(c.Log.Level) == hclog.NoLevel {
		errors = append(errors, fmt.Sprintf("invalid log level '%s'", c.Log.Level))
	}
	if !slices.Contains(LogFormatValues(), c.Log.Format) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s', must be one of: %s",
			c.Log.Format, strings.Join(LogFormatValues(), ", ")))
	}

	return errors
}

// Validate checks the video settings against the container.
func (v *VideoConfig) Validate(container models.Container) error {
	var errors []string

	switch v.Codec {
	case "":
	case "h264":
		if container == models.ContainerAVI {
			errors = append(errors, "avi output requires the mjpeg codec")
		}
	case "mjpeg":
		if container == models.ContainerMP4 {
			errors = append(errors, "mp4 output requires the h264 codec")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid codec '%s', must be one of: %s",
			v.Codec, strings.Join(CodecValues(), ", ")))
	}

	switch video.HardwareAccel(v.HWAccel) {
	case video.HWAccelNone, video.HWAccelVAAPI, video.HWAccelNVENC, video.HWAccelQSV:
	default:
		errors = append(errors, fmt.Sprintf("invalid hw accel '%s', must be one of: vaapi, cuda, qsv", v.HWAccel))
	}
	if v.HWAccel != "" && v.HWEncoder == "" {
		errors = append(errors, "hw accel requires a hw encoder")
	}

	if v.JPEGQuality < 1 || v.JPEGQuality > 100 {
		errors = append(errors, "jpeg quality must be between 1 and 100")
	}

	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, ", "))
	}
	return nil
}

// Validate checks if audio configuration is valid
func (a *AudioConfig) Validate() error {
	if !a.Enabled {
		return nil
	}

	var errors []string

	if a.Bitrate == "" {
		errors = append(errors, "bitrate is required")
	}
	if a.SampleRate <= 0 {
		errors = append(errors, "sample rate must be positive")
	}
	if a.Channels <= 0 || a.Channels > 8 {
		errors = append(errors, "channels must be between 1 and 8")
	}

	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, ", "))
	}
	return nil
}

func joinProblems(errors []string) error {
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}
	return nil
}
