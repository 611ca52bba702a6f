package ffmpeg

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/hashicorp/go-hclog"

	"captionburn/command/video"
	"captionburn/internal/timeutil"
	"captionburn/models"
)

// VideoEncoderConfig holds the parameters fixed for one export.
type VideoEncoderConfig struct {
	Binary   string
	Width    int
	Height   int
	Bitrate  int64
	Preset   string
	Encoder  string              // hardware encoder name, empty for libx264
	HWAccel  video.HardwareAccel // used with Encoder
	HWDevice string
}

// VideoEncoder turns RGBA frames into H.264 access units. Units reach the
// sink in submission order, each stamped with the timestamp its frame was
// submitted with.
type VideoEncoder struct {
	core   *streamEncoder
	width  int
	height int

	mu      sync.Mutex
	pending []int64
	last    int64
	started bool

	scratch []byte
}

// NewVideoEncoder validates the configuration and starts the encoder.
// A configuration the encoder cannot accept fails here, before any frame.
func NewVideoEncoder(ctx context.Context, cfg VideoEncoderConfig, sink UnitSink, logger hclog.Logger) (*VideoEncoder, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	builder := video.NewEncodeBuilder(cfg.Width, cfg.Height).
		SetBinary(cfg.Binary).
		SetBitrate(cfg.Bitrate)
	if cfg.Preset != "" {
		builder.SetPreset(cfg.Preset)
	}
	if cfg.Encoder != "" {
		builder.SetHardwareEncoder(cfg.Encoder, cfg.HWAccel, cfg.HWDevice)
	}
	if err := builder.Validate(); err != nil {
		return nil, err
	}

	v := &VideoEncoder{width: cfg.Width, height: cfg.Height}
	frameDuration := timeutil.ToMicros(1.0 / timeutil.FrameRate)

	core, err := startStreamEncoder(ctx, builder, SplitAccessUnits, func(data []byte) (models.AccessUnit, error) {
		ts, ok := v.popTimestamp()
		if !ok {
			return models.AccessUnit{}, fmt.Errorf("encoder produced more units than frames submitted")
		}
		return models.AccessUnit{
			Stream:      models.StreamVideo,
			Data:        data,
			TimestampUs: ts,
			DurationUs:  frameDuration,
			Keyframe:    IsKeyframe(data),
		}, nil
	}, sink, logger)
	if err != nil {
		return nil, err
	}
	v.core = core
	return v, nil
}

func (v *VideoEncoder) popTimestamp() (int64, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.pending) == 0 {
		return 0, false
	}
	ts := v.pending[0]
	v.pending = v.pending[1:]
	return ts, true
}

// Encode submits one frame. Timestamps must strictly increase.
func (v *VideoEncoder) Encode(ctx context.Context, frame *image.RGBA, timestampUs int64) error {
	b := frame.Bounds()
	if b.Dx() != v.width || b.Dy() != v.height {
		return fmt.Errorf("frame is %dx%d, encoder expects %dx%d", b.Dx(), b.Dy(), v.width, v.height)
	}

	v.mu.Lock()
	if v.started && timestampUs <= v.last {
		v.mu.Unlock()
		return fmt.Errorf("timestamp %dus does not follow %dus", timestampUs, v.last)
	}
	v.started = true
	v.last = timestampUs
	v.pending = append(v.pending, timestampUs)
	v.mu.Unlock()

	return v.core.write(ctx, v.packed(frame))
}

// packed returns the frame's pixels without row padding.
func (v *VideoEncoder) packed(frame *image.RGBA) []byte {
	rowLen := v.width * 4
	if frame.Stride == rowLen && frame.Rect.Min == (image.Point{}) {
		return frame.Pix[:rowLen*v.height]
	}
	if cap(v.scratch) < rowLen*v.height {
		v.scratch = make([]byte, rowLen*v.height)
	}
	out := v.scratch[:rowLen*v.height]
	for y := 0; y < v.height; y++ {
		start := frame.PixOffset(frame.Rect.Min.X, frame.Rect.Min.Y+y)
		copy(out[y*rowLen:(y+1)*rowLen], frame.Pix[start:start+rowLen])
	}
	return out
}

// Flush ends the input and waits for the remaining units, or for ctx.
func (v *VideoEncoder) Flush(ctx context.Context) error {
	return v.core.flush(ctx)
}

// Close stops the encoder without waiting for pending output.
func (v *VideoEncoder) Close() error {
	return v.core.close()
}

// Stats returns the encoder's latest progress counters.
func (v *VideoEncoder) Stats() models.EncoderStats {
	return v.core.stats()
}
