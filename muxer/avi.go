package muxer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/icza/mjpeg"

	"captionburn/models"
)

// AVIMuxer writes Motion-JPEG video into an AVI container. It has no audio
// track; callers check SupportsAudio before encoding audio.
type AVIMuxer struct {
	buffer
	opts Options
}

// NewAVI creates an AVI muxer. Frame dimensions are required up front.
func NewAVI(opts Options) (*AVIMuxer, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("avi muxer requires frame dimensions, got %dx%d", opts.Width, opts.Height)
	}
	return &AVIMuxer{opts: opts}, nil
}

func (m *AVIMuxer) AddVideo(unit models.AccessUnit) error { return m.addVideo(unit) }
func (m *AVIMuxer) SupportsAudio() bool                   { return false }
func (m *AVIMuxer) Container() models.Container           { return models.ContainerAVI }
func (m *AVIMuxer) Counts() (int, int)                    { return m.counts() }

// AddAudio always fails: AVI output is video only.
func (m *AVIMuxer) AddAudio(models.AccessUnit) error {
	return ErrAudioUnsupported
}

// Finalize writes every JPEG frame in timestamp order.
func (m *AVIMuxer) Finalize(ctx context.Context) ([]byte, error) {
	video, _, err := m.seal()
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp(m.opts.TempDir, "captionburn-mux-")
	if err != nil {
		return nil, fmt.Errorf("failed to create mux directory: %w", err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "out.avi")

	writer, err := mjpeg.New(path, int32(m.opts.Width), int32(m.opts.Height), int32(m.opts.frameRate()))
	if err != nil {
		return nil, fmt.Errorf("failed to create video writer: %w", err)
	}
	for i, u := range video {
		if err := ctx.Err(); err != nil {
			writer.Close()
			return nil, err
		}
		if err := writer.AddFrame(u.Data); err != nil {
			writer.Close()
			return nil, fmt.Errorf("failed to add frame %d: %w", i, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish avi: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read muxed output: %w", err)
	}
	return data, nil
}

// Close drops buffered units.
func (m *AVIMuxer) Close() error {
	m.release()
	return nil
}
