package pipeline

import (
	"fmt"
	"math"
	"strings"
	"time"

	"captionburn/command/video"
	"captionburn/compositor"
	"captionburn/models"
)

// Codec names the video codec of the output.
type Codec string

const (
	CodecH264  Codec = "h264"
	CodecMJPEG Codec = "mjpeg"
)

// Defaults for the finalize contract and the audio track.
const (
	DefaultFlushTimeout  = 10 * time.Second
	DefaultFlushAttempts = 2
	DefaultSampleRate    = 44100
	DefaultChannels      = 1
	DefaultAudioBitrate  = "128k"
)

// Options is the single configuration record of an export. Build it with
// NewOptions and the With methods; Export snapshots it, so later changes
// do not affect a running export.
type Options struct {
	SourcePath string
	SourceData []byte

	Captions   []models.Caption
	Style      models.Style
	Resolution models.Resolution
	Zoom       float64

	Container models.Container
	Codec     Codec
	Audio     bool

	// Video encoder tuning.
	Preset      string
	HWEncoder   string
	HWAccel     video.HardwareAccel
	HWDevice    string
	JPEGQuality int

	SampleRate   int
	Channels     int
	AudioBitrate string

	Progress       Sink
	ProgressStride int

	FlushTimeout  time.Duration
	FlushAttempts int

	TempDir  string
	Metadata map[string]string
	Fonts    *compositor.FontCache
}

// NewOptions returns options for exporting the file at sourcePath with the
// default style, the original resolution and an MP4 container.
func NewOptions(sourcePath string) *Options {
	return &Options{
		SourcePath:     sourcePath,
		Style:          models.DefaultStyle(),
		Resolution:     models.ResolutionOriginal,
		Zoom:           1,
		Container:      models.ContainerMP4,
		Audio:          true,
		SampleRate:     DefaultSampleRate,
		Channels:       DefaultChannels,
		AudioBitrate:   DefaultAudioBitrate,
		ProgressStride: DefaultProgressStride,
		FlushTimeout:   DefaultFlushTimeout,
		FlushAttempts:  DefaultFlushAttempts,
	}
}

// WithSourceData exports from in-memory bytes instead of a path. The bytes
// are spooled to the temp dir for decoding.
func (o *Options) WithSourceData(data []byte) *Options {
	o.SourceData = data
	o.SourcePath = ""
	return o
}

func (o *Options) WithCaptions(captions []models.Caption) *Options {
	o.Captions = captions
	return o
}

func (o *Options) WithStyle(style models.Style) *Options {
	o.Style = style
	return o
}

func (o *Options) WithResolution(r models.Resolution) *Options {
	o.Resolution = r
	return o
}

func (o *Options) WithZoom(zoom float64) *Options {
	o.Zoom = zoom
	return o
}

// WithContainer selects the container; the codec follows unless set.
func (o *Options) WithContainer(c models.Container) *Options {
	o.Container = c
	return o
}

func (o *Options) WithCodec(c Codec) *Options {
	o.Codec = c
	return o
}

func (o *Options) WithAudio(enabled bool) *Options {
	o.Audio = enabled
	return o
}

func (o *Options) WithProgress(sink Sink) *Options {
	o.Progress = sink
	return o
}

func (o *Options) WithProgressStride(stride int) *Options {
	o.ProgressStride = stride
	return o
}

// WithFlush sets the per-attempt flush bound and the attempt count.
func (o *Options) WithFlush(timeout time.Duration, attempts int) *Options {
	o.FlushTimeout = timeout
	o.FlushAttempts = attempts
	return o
}

func (o *Options) WithHardwareEncoder(encoder string, accel video.HardwareAccel, device string) *Options {
	o.HWEncoder = encoder
	o.HWAccel = accel
	o.HWDevice = device
	return o
}

func (o *Options) WithPreset(preset string) *Options {
	o.Preset = preset
	return o
}

func (o *Options) WithTempDir(dir string) *Options {
	o.TempDir = dir
	return o
}

func (o *Options) WithMetadata(key, value string) *Options {
	if o.Metadata == nil {
		o.Metadata = make(map[string]string)
	}
	o.Metadata[key] = value
	return o
}

func (o *Options) WithFonts(fonts *compositor.FontCache) *Options {
	o.Fonts = fonts
	return o
}

// EffectiveCodec returns the configured codec, or the one the container
// implies.
func (o *Options) EffectiveCodec() Codec {
	if o.Codec != "" {
		return o.Codec
	}
	if o.Container == models.ContainerAVI {
		return CodecMJPEG
	}
	return CodecH264
}

// Validate reports every problem at once.
func (o *Options) Validate() error {
	var problems []string

	if o.SourcePath == "" && len(o.SourceData) == 0 {
		problems = append(problems, "a source path or source data is required")
	}
	if err := models.ValidateCaptions(o.Captions); err != nil {
		problems = append(problems, err.Error())
	}
	if err := o.Style.Validate(); err != nil {
		problems = append(problems, "style: "+err.Error())
	}
	if !o.Resolution.IsValid() {
		problems = append(problems, fmt.Sprintf("unknown resolution %q", o.Resolution))
	}
	if !(o.Zoom >= 1) || math.IsInf(o.Zoom, 0) {
		problems = append(problems, fmt.Sprintf("zoom must be at least 1, got %v", o.Zoom))
	}
	if !o.Container.IsValid() {
		problems = append(problems, fmt.Sprintf("unknown container %q", o.Container))
	}
	switch codec := o.EffectiveCodec(); {
	case codec != CodecH264 && codec != CodecMJPEG:
		problems = append(problems, fmt.Sprintf("unknown codec %q", codec))
	case codec == CodecH264 && o.Container == models.ContainerAVI:
		problems = append(problems, "avi output requires the mjpeg codec")
	case codec == CodecMJPEG && o.Container == models.ContainerMP4:
		problems = append(problems, "mp4 output requires the h264 codec")
	}
	if o.Audio {
		if o.SampleRate <= 0 {
			problems = append(problems, "sample rate must be positive")
		}
		if o.Channels <= 0 {
			problems = append(problems, "channel count must be positive")
		}
	}
	if o.FlushTimeout <= 0 {
		problems = append(problems, "flush timeout must be positive")
	}
	if o.FlushAttempts < 1 {
		problems = append(problems, "flush attempts must be at least 1")
	}
	if o.JPEGQuality < 0 || o.JPEGQuality > 100 {
		problems = append(problems, "jpeg quality must be between 0 and 100")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid export options:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// snapshot copies everything a running export reads.
func (o *Options) snapshot() Options {
	s := *o
	s.Captions = models.CloneCaptions(o.Captions)
	if o.SourceData != nil {
		s.SourceData = append([]byte(nil), o.SourceData...)
	}
	if o.Metadata != nil {
		s.Metadata = make(map[string]string, len(o.Metadata))
		for k, v := range o.Metadata {
			s.Metadata[k] = v
		}
	}
	if s.ProgressStride < 1 {
		s.ProgressStride = DefaultProgressStride
	}
	s.Codec = o.EffectiveCodec()
	return s
}
