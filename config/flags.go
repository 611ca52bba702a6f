package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/pflag"

	"captionburn/models"
)

// AddFlags registers every config flag on fs. Defaults shown in help come
// from DefaultConfig; only flags the user sets override the config file.
func AddFlags(fs *pflag.FlagSet) {
	d := DefaultConfig()

	fs.String("config", "", "Path to config file (default: search standard locations)")

	// Input/Output
	fs.StringP("input", "i", "", "Source video file")
	fs.StringP("output", "o", "", "Output file")
	fs.StringP("captions", "c", "", "Caption file (.json or .srt)")

	// Rendering
	res := d.Resolution
	fs.VarP(&res, "resolution", "r", "Output tier: original, 720p, 480p, 240p")
	fs.Float64("zoom", d.Zoom, "Center crop zoom factor (>= 1)")
	fs.String("container", d.Container, "Output container: mp4, avi")

	// Style
	fs.Float64("font-size", d.Style.FontSize, "Caption font size in source pixels")
	fs.String("font-family", d.Style.FontFamily, "Caption font family")
	fs.String("font-file", "", "TrueType/OpenType font file")
	fs.String("color", d.Style.Color.String(), "Text colour")
	fs.String("background-color", d.Style.BackgroundColor.String(), "Caption box colour")
	fs.Float64("outline-width", d.Style.OutlineWidth, "Text outline width in source pixels")
	fs.String("outline-color", d.Style.OutlineColor.String(), "Text outline colour")
	fs.Float64("bottom-offset", d.Style.BottomOffsetPercent, "Distance from the bottom edge in percent")
	fs.Float64("opacity", d.Style.Opacity, "Caption opacity (0-1)")

	// Video
	fs.String("codec", d.Video.Codec, "Video codec: h264, mjpeg (default: follows container)")
	fs.String("preset", d.Video.Preset, "Encoder preset")
	fs.String("hw-encoder", "", "Hardware encoder, e.g. h264_nvenc")
	fs.String("hw-accel", "", "Hardware acceleration: vaapi, cuda, qsv")
	fs.String("hw-device", "", "Hardware device, e.g. /dev/dri/renderD128")
	fs.Int("jpeg-quality", d.Video.JPEGQuality, "JPEG quality for mjpeg output (1-100)")

	// Audio
	fs.Bool("no-audio", false, "Drop the audio track")
	fs.String("audio-bitrate", d.Audio.Bitrate, "Audio bitrate, e.g. 128k")
	fs.Int("sample-rate", d.Audio.SampleRate, "Audio sample rate in Hz")
	fs.Int("channels", d.Audio.Channels, "Audio channels")

	// Export
	fs.Duration("flush-timeout", time.Duration(d.Export.FlushTimeout), "Encoder flush timeout per attempt")
	fs.Int("flush-attempts", d.Export.FlushAttempts, "Encoder flush attempts")
	fs.Int("progress-stride", d.Export.ProgressStride, "Report progress every N frames")
	fs.String("temp-dir", "", "Directory for intermediate files")

	fs.String("ffmpeg", "", "Path to ffmpeg (default: search PATH)")
	fs.String("ffprobe", "", "Path to ffprobe (default: search PATH)")
	fs.IntP("workers", "w", d.Workers, "Parallel exports in batch mode (0 = auto-detect)")

	fs.String("log-level", d.Log.Level, "Log level: trace, debug, info, warn, error")
	fs.String("log-format", d.Log.Format, "Log format: auto, text, json")
	fs.BoolP("verbose", "v", false, "Shorthand for --log-level debug")
	fs.Bool("dry-run", false, "Show effective configuration without exporting")
}

// MergeFromFlags overrides config values with the flags the user set.
func (c *Config) MergeFromFlags(fs *pflag.FlagSet) error {
	var firstErr error
	fs.Visit(func(f *pflag.Flag) {
		if firstErr != nil {
			return
		}
		if err := c.mergeFlag(fs, f); err != nil {
			firstErr = fmt.Errorf("--%s: %w", f.Name, err)
		}
	})
	return firstErr
}

func (c *Config) mergeFlag(fs *pflag.FlagSet, f *pflag.Flag) error {
	var err error
	switch f.Name {
	case "input":
		c.Input = f.Value.String()
	case "output":
		c.Output = f.Value.String()
	case "captions":
		c.Captions = f.Value.String()
	case "resolution":
		c.Resolution = *f.Value.(*models.Resolution)
	case "zoom":
		c.Zoom, err = fs.GetFloat64(f.Name)
	case "container":
		c.Container = f.Value.String()

	case "font-size":
		c.Style.FontSize, err = fs.GetFloat64(f.Name)
	case "font-family":
		c.Style.FontFamily = f.Value.String()
	case "font-file":
		c.Style.FontFile = f.Value.String()
	case "color":
		c.Style.Color, err = models.ParseColor(f.Value.String())
	case "background-color":
		c.Style.BackgroundColor, err = models.ParseColor(f.Value.String())
	case "outline-width":
		c.Style.OutlineWidth, err = fs.GetFloat64(f.Name)
	case "outline-color":
		c.Style.OutlineColor, err = models.ParseColor(f.Value.String())
	case "bottom-offset":
		c.Style.BottomOffsetPercent, err = fs.GetFloat64(f.Name)
	case "opacity":
		c.Style.Opacity, err = fs.GetFloat64(f.Name)

	case "codec":
		c.Video.Codec = f.Value.String()
	case "preset":
		c.Video.Preset = f.Value.String()
	case "hw-encoder":
		c.Video.HWEncoder = f.Value.String()
	case "hw-accel":
		c.Video.HWAccel = f.Value.String()
	case "hw-device":
		c.Video.HWDevice = f.Value.String()
	case "jpeg-quality":
		c.Video.JPEGQuality, err = fs.GetInt(f.Name)

	case "no-audio":
		var off bool
		off, err = fs.GetBool(f.Name)
		c.Audio.Enabled = !off
	case "audio-bitrate":
		c.Audio.Bitrate = f.Value.String()
	case "sample-rate":
		c.Audio.SampleRate, err = fs.GetInt(f.Name)
	case "channels":
		c.Audio.Channels, err = fs.GetInt(f.Name)

	case "flush-timeout":
		var d time.Duration
		d, err = fs.GetDuration(f.Name)
		c.Export.FlushTimeout = Duration(d)
	case "flush-attempts":
		c.Export.FlushAttempts, err = fs.GetInt(f.Name)
	case "progress-stride":
		c.Export.ProgressStride, err = fs.GetInt(f.Name)
	case "temp-dir":
		c.Export.TempDir = f.Value.String()

	case "ffmpeg":
		c.FFmpeg = f.Value.String()
	case "ffprobe":
		c.FFprobe = f.Value.String()
	case "workers":
		c.Workers, err = fs.GetInt(f.Name)

	case "log-level":
		c.Log.Level = f.Value.String()
	case "log-format":
		c.Log.Format = f.Value.String()
	case "verbose":
		var verbose bool
		verbose, err = fs.GetBool(f.Name)
		if verbose {
			c.Log.Level = "debug"
		}
	case "dry-run":
		c.DryRun, err = fs.GetBool(f.Name)
	}
	return err
}

// PrintConfig prints the effective configuration
func (c *Config) PrintConfig() {
	c.WriteTable(os.Stdout)
}

// WriteTable renders the effective configuration as a table.
func (c *Config) WriteTable(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Effective Configuration")
	t.AppendHeader(table.Row{"Setting", "Value"})

	codec := c.Video.Codec
	if codec == "" {
		codec = "auto"
	}
	t.AppendRows([]table.Row{
		{"Input", c.Input},
		{"Output", c.Output},
		{"Captions", c.Captions},
		{"Resolution", c.Resolution},
		{"Zoom", c.Zoom},
		{"Container", c.Container},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Font", fmt.Sprintf("%s %gpx", c.Style.FontFamily, c.Style.FontSize)},
		{"Color", c.Style.Color},
		{"Background", c.Style.BackgroundColor},
		{"Outline", fmt.Sprintf("%gpx %s", c.Style.OutlineWidth, c.Style.OutlineColor)},
		{"Bottom Offset", fmt.Sprintf("%g%%", c.Style.BottomOffsetPercent)},
		{"Opacity", c.Style.Opacity},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Video Codec", codec},
		{"Preset", c.Video.Preset},
	})
	if c.Video.HWEncoder != "" {
		t.AppendRow(table.Row{"HW Encoder", fmt.Sprintf("%s (%s)", c.Video.HWEncoder, c.Video.HWAccel)})
	}
	if c.Audio.Enabled {
		t.AppendRow(table.Row{"Audio", fmt.Sprintf("%s, %d Hz, %d ch", c.Audio.Bitrate, c.Audio.SampleRate, c.Audio.Channels)})
	} else {
		t.AppendRow(table.Row{"Audio", "disabled"})
	}
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Flush", fmt.Sprintf("%s x %d", c.Export.FlushTimeout, c.Export.FlushAttempts)},
		{"Progress Stride", c.Export.ProgressStride},
		{"Workers", c.Workers},
		{"Log", fmt.Sprintf("%s (%s)", c.Log.Level, c.Log.Format)},
	})
	t.Render()
}
