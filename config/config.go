package config

import (
	"fmt"
	"time"

	"captionburn/command/video"
	"captionburn/models"
	"captionburn/pipeline"
)

// Config holds all settings of a captionburn run.
type Config struct {
	// Input/Output
	Input    string `yaml:"input" toml:"input"`
	Output   string `yaml:"output" toml:"output"`
	Captions string `yaml:"captions" toml:"captions"`

	// Rendering
	Resolution models.Resolution `yaml:"resolution" toml:"resolution"`
	Zoom       float64           `yaml:"zoom" toml:"zoom"`
	Container  string            `yaml:"container" toml:"container"`
	Style      models.Style      `yaml:"style" toml:"style"`

	Video  VideoConfig  `yaml:"video" toml:"video"`
	Audio  AudioConfig  `yaml:"audio" toml:"audio"`
	Export ExportConfig `yaml:"export" toml:"export"`

	// External tools; empty means search PATH
	FFmpeg  string `yaml:"ffmpeg" toml:"ffmpeg"`
	FFprobe string `yaml:"ffprobe" toml:"ffprobe"`

	// Batch execution (0 = auto-detect CPU count)
	Workers int `yaml:"workers" toml:"workers"`

	Log LogConfig `yaml:"log" toml:"log"`

	DryRun bool `yaml:"-" toml:"-"`
}

// VideoConfig selects and tunes the video encoder.
type VideoConfig struct {
	// Empty follows the container: h264 for mp4, mjpeg for avi
	Codec       string `yaml:"codec" toml:"codec"`
	Preset      string `yaml:"preset" toml:"preset"`
	HWEncoder   string `yaml:"hw_encoder" toml:"hw_encoder"`
	HWAccel     string `yaml:"hw_accel" toml:"hw_accel"`
	HWDevice    string `yaml:"hw_device" toml:"hw_device"`
	JPEGQuality int    `yaml:"jpeg_quality" toml:"jpeg_quality"`
}

// AudioConfig holds the audio track settings.
type AudioConfig struct {
	Enabled    bool   `yaml:"enabled" toml:"enabled"`
	Bitrate    string `yaml:"bitrate" toml:"bitrate"`
	SampleRate int    `yaml:"sample_rate" toml:"sample_rate"`
	Channels   int    `yaml:"channels" toml:"channels"`
}

// ExportConfig tunes progress reporting and the finalize step.
type ExportConfig struct {
	FlushTimeout   Duration `yaml:"flush_timeout" toml:"flush_timeout"`
	FlushAttempts  int      `yaml:"flush_attempts" toml:"flush_attempts"`
	ProgressStride int      `yaml:"progress_stride" toml:"progress_stride"`
	TempDir        string   `yaml:"temp_dir" toml:"temp_dir"`
}

// LogConfig controls the logger built by internal/logging.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Duration is a time.Duration written as a Go duration string ("10s")
// in config files.
type Duration time.Duration

func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Resolution: models.ResolutionOriginal,
		Zoom:       1,
		Container:  string(models.ContainerMP4),
		Style:      models.DefaultStyle(),
		Video: VideoConfig{
			Preset:      "veryfast",
			JPEGQuality: pipeline.DefaultJPEGQuality,
		},
		Audio: AudioConfig{
			Enabled:    true,
			Bitrate:    pipeline.DefaultAudioBitrate,
			SampleRate: pipeline.DefaultSampleRate,
			Channels:   pipeline.DefaultChannels,
		},
		Export: ExportConfig{
			FlushTimeout:   Duration(pipeline.DefaultFlushTimeout),
			FlushAttempts:  pipeline.DefaultFlushAttempts,
			ProgressStride: pipeline.DefaultProgressStride,
		},
		Workers: 0,
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Copy returns a deep copy of the config
func (c *Config) Copy() *Config {
	copied := *c
	return &copied
}

// CodecValues returns the accepted video codec names.
func CodecValues() []string {
	return []string{string(pipeline.CodecH264), string(pipeline.CodecMJPEG)}
}

// LogFormatValues returns the accepted log formats.
func LogFormatValues() []string {
	return []string{"auto", "text", "json"}
}

// ToOptions converts the config into export options for the given captions.
func (c *Config) ToOptions(captions []models.Caption) *pipeline.Options {
	opts := pipeline.NewOptions(c.Input).
		WithCaptions(captions).
		WithStyle(c.Style).
		WithResolution(c.Resolution).
		WithZoom(c.Zoom).
		WithContainer(models.Container(c.Container)).
		WithAudio(c.Audio.Enabled).
		WithProgressStride(c.Export.ProgressStride).
		WithFlush(time.Duration(c.Export.FlushTimeout), c.Export.FlushAttempts).
		WithPreset(c.Video.Preset).
		WithTempDir(c.Export.TempDir)

	if c.Video.Codec != "" {
		opts.WithCodec(pipeline.Codec(c.Video.Codec))
	}
	if c.Video.HWEncoder != "" {
		opts.WithHardwareEncoder(c.Video.HWEncoder, video.HardwareAccel(c.Video.HWAccel), c.Video.HWDevice)
	}
	opts.JPEGQuality = c.Video.JPEGQuality
	opts.SampleRate = c.Audio.SampleRate
	opts.Channels = c.Audio.Channels
	opts.AudioBitrate = c.Audio.Bitrate
	return opts
}
