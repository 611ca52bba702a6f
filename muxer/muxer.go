// Package muxer collects encoded access units and packs them into the
// output container once encoding has finished.
package muxer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"captionburn/internal/exporterr"
	"captionburn/models"
)

var (
	// ErrFinalized is returned for any use of a muxer after Finalize.
	ErrFinalized = errors.New("muxer already finalized")

	// ErrAudioUnsupported is returned by containers without an audio track.
	ErrAudioUnsupported = errors.New("container does not carry audio")
)

// Muxer accepts access units for a video and an optional audio stream in
// any call order and writes the container on Finalize.
type Muxer interface {
	AddVideo(unit models.AccessUnit) error
	AddAudio(unit models.AccessUnit) error
	// Finalize sorts each stream by timestamp and returns the container
	// bytes. It fails with a validation error when no video was added.
	Finalize(ctx context.Context) ([]byte, error)
	SupportsAudio() bool
	Container() models.Container
	// Counts returns how many units each stream holds.
	Counts() (video, audio int)
	Close() error
}

// buffer is the in-memory store shared by every container.
type buffer struct {
	mu        sync.Mutex
	video     []models.AccessUnit
	audio     []models.AccessUnit
	finalized bool
}

func (b *buffer) add(dst *[]models.AccessUnit, unit models.AccessUnit) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.finalized {
		return ErrFinalized
	}
	if len(unit.Data) == 0 {
		return fmt.Errorf("empty %s access unit at %dus", unit.Stream, unit.TimestampUs)
	}
	*dst = append(*dst, unit)
	return nil
}

func (b *buffer) addVideo(unit models.AccessUnit) error {
	return b.add(&b.video, unit)
}

func (b *buffer) addAudio(unit models.AccessUnit) error {
	return b.add(&b.audio, unit)
}

// seal marks the buffer finalized and returns the sorted streams.
func (b *buffer) seal() (video, audio []models.AccessUnit, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.finalized {
		return nil, nil, ErrFinalized
	}
	b.finalized = true

	if len(b.video) == 0 {
		return nil, nil, exporterr.Validation(string(models.PhaseFinalizing), "mux", "no video frames were encoded", nil)
	}

	video, audio = b.video, b.audio
	sortUnits(video)
	sortUnits(audio)
	b.video, b.audio = nil, nil
	return video, audio, nil
}

func (b *buffer) counts() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.video), len(b.audio)
}

func (b *buffer) release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.finalized = true
	b.video, b.audio = nil, nil
}

// sortUnits orders by timestamp, keeping arrival order for equal stamps.
func sortUnits(units []models.AccessUnit) {
	sort.SliceStable(units, func(i, j int) bool {
		return units[i].TimestampUs < units[j].TimestampUs
	})
}

// New returns the muxer for container.
func New(container models.Container, opts Options) (Muxer, error) {
	switch container {
	case models.ContainerMP4:
		return NewMP4(opts), nil
	case models.ContainerAVI:
		return NewAVI(opts)
	}
	return nil, fmt.Errorf("unsupported container %q", container)
}
