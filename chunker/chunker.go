package chunker

import (
	"fmt"
	"math"

	"captionburn/models"
)

const (
	// DefaultChunkDuration is the default audio chunk length in seconds.
	DefaultChunkDuration = 1.0

	// MinChunkDuration is the shortest allowed chunk in seconds.
	MinChunkDuration = 0.1

	// MaxChunkDuration is the longest allowed chunk in seconds.
	MaxChunkDuration = 600.0

	// DefaultSampleRate is the rate the audio track is resampled to.
	DefaultSampleRate = 44100
)

// Chunker plans fixed-size slices of the resampled audio track so the
// encoder can be fed, and cancellation checked, one slice at a time.
type Chunker struct {
	sampleRate    int
	chunkDuration float64
}

// NewChunker creates a Chunker with one second chunks at 44.1 kHz.
func NewChunker() *Chunker {
	return &Chunker{
		sampleRate:    DefaultSampleRate,
		chunkDuration: DefaultChunkDuration,
	}
}

// SetSampleRate sets the PCM sample rate the plan is expressed in
func (c *Chunker) SetSampleRate(rate int) *Chunker {
	c.sampleRate = rate
	return c
}

// SetChunkDuration sets the chunk length in seconds
func (c *Chunker) SetChunkDuration(seconds float64) *Chunker {
	c.chunkDuration = seconds
	return c
}

// SamplesPerChunk returns the length of every chunk but the last.
func (c *Chunker) SamplesPerChunk() int {
	return int(math.Round(c.chunkDuration * float64(c.sampleRate)))
}

// CreateChunks plans chunks covering the media duration. The final chunk is
// shortened to end at the duration.
//
// The mediaInfo parameter is usually the export's *models.SourceInfo.
func (c *Chunker) CreateChunks(mediaInfo MediaInfo) ([]*models.AudioChunk, error) {
	if mediaInfo == nil {
		return nil, fmt.Errorf("media info cannot be nil")
	}
	duration, err := mediaInfo.GetDuration()
	if err != nil {
		return nil, fmt.Errorf("failed to get duration: %w", err)
	}
	return c.ChunksFor(duration)
}

// ChunksFor plans chunks for a duration in seconds.
func (c *Chunker) ChunksFor(duration float64) ([]*models.AudioChunk, error) {
	if c.sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", c.sampleRate)
	}
	if c.chunkDuration < MinChunkDuration {
		return nil, fmt.Errorf("chunk duration must be at least %.1f seconds", MinChunkDuration)
	}
	if c.chunkDuration > MaxChunkDuration {
		return nil, fmt.Errorf("chunk duration cannot exceed %.0f seconds", MaxChunkDuration)
	}
	if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return nil, fmt.Errorf("invalid duration: %.2f seconds", duration)
	}

	total := int64(math.Round(duration * float64(c.sampleRate)))
	if total == 0 {
		total = 1
	}
	per := int64(c.SamplesPerChunk())

	count := int((total + per - 1) / per)
	chunks := make([]*models.AudioChunk, 0, count)
	for i := 0; i < count; i++ {
		start := int64(i) * per
		samples := per
		if start+samples > total {
			samples = total - start
		}
		chunk, err := models.NewAudioChunk(i, start, int(samples), c.sampleRate)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// ValidateChunks checks that chunks are indexed in order and tile the track
// without gaps or overlaps.
func ValidateChunks(chunks []*models.AudioChunk) error {
	if len(chunks) == 0 {
		return fmt.Errorf("chunk list is empty")
	}

	for i, chunk := range chunks {
		if err := chunk.Validate(); err != nil {
			return fmt.Errorf("chunk %d is invalid: %w", i, err)
		}
		if chunk.Index != i {
			return fmt.Errorf("chunk %d has incorrect index %d", i, chunk.Index)
		}
		if chunk.SampleRate != chunks[0].SampleRate {
			return fmt.Errorf("chunk %d has sample rate %d, expected %d", i, chunk.SampleRate, chunks[0].SampleRate)
		}
	}

	if chunks[0].StartSample != 0 {
		return fmt.Errorf("first chunk starts at sample %d", chunks[0].StartSample)
	}
	for i := 0; i < len(chunks)-1; i++ {
		end := chunks[i].StartSample + int64(chunks[i].Samples)
		next := chunks[i+1].StartSample
		if end > next {
			return fmt.Errorf("chunks %d and %d overlap at sample %d", i, i+1, next)
		}
		if end < next {
			return fmt.Errorf("gap between chunks %d and %d: samples %d to %d", i, i+1, end, next)
		}
	}
	return nil
}
