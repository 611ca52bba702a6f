package muxer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"captionburn/command/mixing"
	"captionburn/internal/timeutil"
	"captionburn/models"
)

// Options configures a container writer.
type Options struct {
	// Binary is the ffmpeg executable used by the MP4 remux.
	Binary string
	// TempDir holds intermediate files; empty uses os.TempDir.
	TempDir string
	// Width and Height are required by containers that record them up front.
	Width, Height int
	// FrameRate of the video stream; zero means 30.
	FrameRate int
	// Metadata is written into the container where supported.
	Metadata map[string]string
	Logger   hclog.Logger
}

func (o Options) frameRate() int {
	if o.FrameRate > 0 {
		return o.FrameRate
	}
	return timeutil.FrameRate
}

func (o Options) logger() hclog.Logger {
	if o.Logger == nil {
		return hclog.NewNullLogger()
	}
	return o.Logger
}

// MP4Muxer writes H.264 Annex-B video and ADTS AAC audio into MP4 by
// stream-copying the elementary streams with ffmpeg.
type MP4Muxer struct {
	buffer
	opts Options
}

// NewMP4 creates an MP4 muxer.
func NewMP4(opts Options) *MP4Muxer {
	return &MP4Muxer{opts: opts}
}

func (m *MP4Muxer) AddVideo(unit models.AccessUnit) error { return m.addVideo(unit) }
func (m *MP4Muxer) AddAudio(unit models.AccessUnit) error { return m.addAudio(unit) }
func (m *MP4Muxer) SupportsAudio() bool                   { return true }
func (m *MP4Muxer) Container() models.Container           { return models.ContainerMP4 }
func (m *MP4Muxer) Counts() (int, int)                    { return m.counts() }

// Finalize writes the sorted streams to temporary files and remuxes them.
func (m *MP4Muxer) Finalize(ctx context.Context) ([]byte, error) {
	video, audio, err := m.seal()
	if err != nil {
		return nil, err
	}
	logger := m.opts.logger()

	dir, err := os.MkdirTemp(m.opts.TempDir, "captionburn-mux-")
	if err != nil {
		return nil, fmt.Errorf("failed to create mux directory: %w", err)
	}
	defer os.RemoveAll(dir)

	videoPath := filepath.Join(dir, "video.h264")
	if err := writeUnits(videoPath, video); err != nil {
		return nil, err
	}

	outPath := filepath.Join(dir, "out.mp4")
	builder := mixing.NewMixingBuilder(videoPath, outPath).
		SetBinary(m.opts.Binary).
		SetFrameRate(m.opts.frameRate())

	if len(audio) > 0 {
		audioPath := filepath.Join(dir, "audio.aac")
		if err := writeUnits(audioPath, audio); err != nil {
			return nil, err
		}
		builder.SetAudioTrack(audioPath)
	}
	for k, v := range m.opts.Metadata {
		builder.AddMetadata(k, v)
	}

	logger.Debug("remuxing", "video_units", len(video), "audio_units", len(audio))
	if err := builder.Run(ctx); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read muxed output: %w", err)
	}
	return data, nil
}

// Close drops buffered units.
func (m *MP4Muxer) Close() error {
	m.release()
	return nil
}

func writeUnits(path string, units []models.AccessUnit) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	for _, u := range units {
		if _, err := f.Write(u.Data); err != nil {
			f.Close()
			return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
		}
	}
	return f.Close()
}
