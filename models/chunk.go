package models

import "fmt"

// AudioChunk is one fixed-size slice of the resampled audio track.
//
// Chunks are planned up front from the source duration and submitted to the
// audio encoder in increasing timestamp order.
type AudioChunk struct {
	Index       int   `json:"index"`
	StartSample int64 `json:"start_sample"`
	Samples     int   `json:"samples"`
	SampleRate  int   `json:"sample_rate"`
}

// NewAudioChunk creates a validated AudioChunk.
func NewAudioChunk(index int, startSample int64, samples, sampleRate int) (*AudioChunk, error) {
	c := &AudioChunk{
		Index:       index,
		StartSample: startSample,
		Samples:     samples,
		SampleRate:  sampleRate,
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid audio chunk: %w", err)
	}
	return c, nil
}

// Validate checks the chunk bounds.
func (c *AudioChunk) Validate() error {
	if c.Index < 0 {
		return fmt.Errorf("index cannot be negative")
	}
	if c.StartSample < 0 {
		return fmt.Errorf("start_sample cannot be negative")
	}
	if c.Samples <= 0 {
		return fmt.Errorf("samples must be positive")
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive")
	}
	return nil
}

// StartTime returns the chunk start in seconds.
func (c *AudioChunk) StartTime() float64 {
	return float64(c.StartSample) / float64(c.SampleRate)
}

// EndTime returns the chunk end in seconds.
func (c *AudioChunk) EndTime() float64 {
	return float64(c.StartSample+int64(c.Samples)) / float64(c.SampleRate)
}
