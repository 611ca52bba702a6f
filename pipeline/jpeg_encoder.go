package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"sync"

	"captionburn/ffmpeg"
	"captionburn/internal/timeutil"
	"captionburn/models"
)

// DefaultJPEGQuality is used when no quality is configured.
const DefaultJPEGQuality = 85

// JPEGEncoder is an intra-only Motion-JPEG encoder. Every unit is a
// keyframe and reaches the sink before Encode returns.
type JPEGEncoder struct {
	geometry models.Geometry
	quality  int
	sink     ffmpeg.UnitSink

	mu      sync.Mutex
	last    int64
	started bool
	closed  bool
	buf     bytes.Buffer
}

// NewJPEGEncoder creates an encoder for frames of geometry g.
func NewJPEGEncoder(g models.Geometry, quality int, sink ffmpeg.UnitSink) (*JPEGEncoder, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		return nil, fmt.Errorf("encoder requires a unit sink")
	}
	if quality == 0 {
		quality = DefaultJPEGQuality
	}
	if quality < 1 || quality > 100 {
		return nil, fmt.Errorf("jpeg quality must be between 1 and 100, got %d", quality)
	}
	return &JPEGEncoder{geometry: g, quality: quality, sink: sink}, nil
}

func (e *JPEGEncoder) Encode(ctx context.Context, frame *image.RGBA, timestampUs int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b := frame.Bounds()
	if b.Dx() != e.geometry.Width || b.Dy() != e.geometry.Height {
		return fmt.Errorf("frame is %dx%d, encoder expects %s", b.Dx(), b.Dy(), e.geometry)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ffmpeg.ErrEncoderClosed
	}
	if e.started && timestampUs <= e.last {
		return fmt.Errorf("timestamp %dus does not follow %dus", timestampUs, e.last)
	}
	e.started = true
	e.last = timestampUs

	e.buf.Reset()
	if err := jpeg.Encode(&e.buf, frame, &jpeg.Options{Quality: e.quality}); err != nil {
		return fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return e.sink(models.AccessUnit{
		Stream:      models.StreamVideo,
		Data:        append([]byte(nil), e.buf.Bytes()...),
		TimestampUs: timestampUs,
		DurationUs:  timeutil.ToMicros(1.0 / timeutil.FrameRate),
		Keyframe:    true,
	})
}

// Flush has nothing to drain; it only closes the input.
func (e *JPEGEncoder) Flush(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

func (e *JPEGEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
