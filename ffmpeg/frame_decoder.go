package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"

	"github.com/hashicorp/go-hclog"

	"captionburn/command/video"
	"captionburn/internal/timeutil"
)

// FrameDecoder reads the source as a constant 30fps sequence of RGBA frames.
//
// Requests must be made with non-decreasing times. Frame i covers the
// instant i/30; a request past the end of the stream returns the last
// decoded frame again.
type FrameDecoder struct {
	proc   *Process
	frame  *image.RGBA
	next   *image.RGBA
	index  int // index of frame, -1 before the first read
	eof    bool
	logger hclog.Logger
}

// FrameDecoderConfig selects the source and the size frames are delivered at.
type FrameDecoderConfig struct {
	Binary     string
	SourcePath string
	Width      int
	Height     int
}

// NewFrameDecoder starts the decoder process.
func NewFrameDecoder(ctx context.Context, cfg FrameDecoderConfig, logger hclog.Logger) (*FrameDecoder, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("frame decoder requires positive dimensions, got %dx%d", cfg.Width, cfg.Height)
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	builder := video.NewDecodeBuilder(cfg.SourcePath).
		SetBinary(cfg.Binary).
		SetScale(cfg.Width, cfg.Height)
	if _, err := builder.DryRun(); err != nil {
		return nil, err
	}

	proc, err := Start(ctx, builder, logger)
	if err != nil {
		return nil, err
	}

	rect := image.Rect(0, 0, cfg.Width, cfg.Height)
	return &FrameDecoder{
		proc:   proc,
		frame:  image.NewRGBA(rect),
		next:   image.NewRGBA(rect),
		index:  -1,
		logger: logger,
	}, nil
}

// FrameAt returns the frame for time t in seconds. The returned image is
// reused by the next call.
func (d *FrameDecoder) FrameAt(ctx context.Context, t float64) (image.Image, error) {
	if t < 0 || math.IsNaN(t) || math.IsInf(t, 0) {
		return nil, fmt.Errorf("invalid frame time %v", t)
	}
	want := int(math.Round(t * timeutil.FrameRate))
	if want < d.index {
		return nil, fmt.Errorf("frame %d requested after frame %d: decoder only moves forward", want, d.index)
	}

	for d.index < want && !d.eof {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := d.readFrame(); err != nil {
			return nil, err
		}
	}

	if d.index < 0 {
		return nil, fmt.Errorf("source produced no video frames: %s", d.proc.StderrTail())
	}
	return d.frame, nil
}

func (d *FrameDecoder) readFrame() error {
	_, err := io.ReadFull(d.proc.Stdout(), d.next.Pix)
	switch {
	case err == nil:
		d.frame, d.next = d.next, d.frame
		d.index++
		return nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		d.eof = true
		if werr := d.proc.Wait(); werr != nil {
			return werr
		}
		d.logger.Debug("frame decoder reached end of stream", "frames", d.index+1)
		return nil
	default:
		return fmt.Errorf("failed to read frame: %w", err)
	}
}

// Frames returns how many frames have been decoded so far.
func (d *FrameDecoder) Frames() int {
	return d.index + 1
}

// Close stops the decoder; unread frames are discarded.
func (d *FrameDecoder) Close() error {
	if d.eof {
		return nil
	}
	// The process is killed on purpose, so its exit status is not an error.
	_ = d.proc.Kill()
	return nil
}
