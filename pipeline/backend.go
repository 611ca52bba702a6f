package pipeline

import (
	"context"
	"image"

	"github.com/hashicorp/go-hclog"

	"captionburn/command/video"
	"captionburn/ffmpeg"
	"captionburn/ffprobe"
	"captionburn/models"
	"captionburn/muxer"
)

// FrameSource delivers source frames at requested times, scaled to the
// target geometry. Times are non-decreasing within one export.
type FrameSource interface {
	FrameAt(ctx context.Context, t float64) (image.Image, error)
	Close() error
}

// VideoEncoder turns composited frames into video access units.
type VideoEncoder interface {
	Encode(ctx context.Context, frame *image.RGBA, timestampUs int64) error
	Flush(ctx context.Context) error
	Close() error
}

// AudioSource reads the resampled audio track as interleaved s16le PCM.
type AudioSource interface {
	SampleRate() int
	Channels() int
	ReadSamples(ctx context.Context, buf []byte) (int, error)
	Close() error
}

// AudioEncoder turns PCM into audio access units.
type AudioEncoder interface {
	Encode(ctx context.Context, pcm []byte) error
	Flush(ctx context.Context) error
	Close() error
}

// VideoSettings is the encoder configuration fixed in the preparing phase.
type VideoSettings struct {
	Geometry models.Geometry
	Bitrate  int
	Codec    Codec
	Preset   string
	Encoder  string
	HWAccel  video.HardwareAccel
	HWDevice string
	Quality  int
}

// AudioSettings is the audio encoder configuration.
type AudioSettings struct {
	SampleRate int
	Channels   int
	Bitrate    string
}

// Backend opens the codec resources of one export. Every call returns a
// resource owned exclusively by the caller.
type Backend interface {
	Probe(ctx context.Context, path string) (*models.SourceInfo, error)
	OpenFrames(ctx context.Context, path string, g models.Geometry) (FrameSource, error)
	NewVideoEncoder(ctx context.Context, s VideoSettings, sink ffmpeg.UnitSink) (VideoEncoder, error)
	OpenAudio(ctx context.Context, path string, sampleRate, channels int) (AudioSource, error)
	NewAudioEncoder(ctx context.Context, s AudioSettings, sink ffmpeg.UnitSink) (AudioEncoder, error)
	NewMuxer(c models.Container, opts muxer.Options) (muxer.Muxer, error)
}

// FFmpegBackend runs every codec as an ffmpeg child process, except
// Motion-JPEG which is encoded in process.
type FFmpegBackend struct {
	FFmpeg  string
	FFprobe string
	Logger  hclog.Logger
}

// NewFFmpegBackend creates a backend for the given binaries; empty names
// are looked up on PATH.
func NewFFmpegBackend(ffmpegPath, ffprobePath string, logger hclog.Logger) *FFmpegBackend {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &FFmpegBackend{FFmpeg: ffmpegPath, FFprobe: ffprobePath, Logger: logger}
}

func (b *FFmpegBackend) Probe(ctx context.Context, path string) (*models.SourceInfo, error) {
	return ffprobe.ProbeSource(ctx, b.FFprobe, path)
}

func (b *FFmpegBackend) OpenFrames(ctx context.Context, path string, g models.Geometry) (FrameSource, error) {
	return ffmpeg.NewFrameDecoder(ctx, ffmpeg.FrameDecoderConfig{
		Binary:     b.FFmpeg,
		SourcePath: path,
		Width:      g.Width,
		Height:     g.Height,
	}, b.Logger.Named("decode"))
}

func (b *FFmpegBackend) NewVideoEncoder(ctx context.Context, s VideoSettings, sink ffmpeg.UnitSink) (VideoEncoder, error) {
	if s.Codec == CodecMJPEG {
		return NewJPEGEncoder(s.Geometry, s.Quality, sink)
	}
	return ffmpeg.NewVideoEncoder(ctx, ffmpeg.VideoEncoderConfig{
		Binary:   b.FFmpeg,
		Width:    s.Geometry.Width,
		Height:   s.Geometry.Height,
		Bitrate:  int64(s.Bitrate),
		Preset:   s.Preset,
		Encoder:  s.Encoder,
		HWAccel:  s.HWAccel,
		HWDevice: s.HWDevice,
	}, sink, b.Logger.Named("h264"))
}

func (b *FFmpegBackend) OpenAudio(ctx context.Context, path string, sampleRate, channels int) (AudioSource, error) {
	return ffmpeg.NewPCMDecoder(ctx, ffmpeg.PCMDecoderConfig{
		Binary:     b.FFmpeg,
		SourcePath: path,
		SampleRate: sampleRate,
		Channels:   channels,
	}, b.Logger.Named("pcm"))
}

func (b *FFmpegBackend) NewAudioEncoder(ctx context.Context, s AudioSettings, sink ffmpeg.UnitSink) (AudioEncoder, error) {
	return ffmpeg.NewAACEncoder(ctx, ffmpeg.AACEncoderConfig{
		Binary:     b.FFmpeg,
		Bitrate:    s.Bitrate,
		SampleRate: s.SampleRate,
		Channels:   s.Channels,
	}, sink, b.Logger.Named("aac"))
}

func (b *FFmpegBackend) NewMuxer(c models.Container, opts muxer.Options) (muxer.Muxer, error) {
	opts.Binary = b.FFmpeg
	if opts.Logger == nil {
		opts.Logger = b.Logger.Named("mux")
	}
	return muxer.New(c, opts)
}
