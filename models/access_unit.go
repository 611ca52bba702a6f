package models

import "fmt"

// StreamKind distinguishes the tracks of the output container.
type StreamKind string

const (
	StreamVideo StreamKind = "video"
	StreamAudio StreamKind = "audio"
)

// AccessUnit is one encoded, independently timestamped chunk of codec output.
type AccessUnit struct {
	Stream      StreamKind
	Data        []byte
	TimestampUs int64
	DurationUs  int64
	Keyframe    bool
}

// SourceInfo describes the decodable source as reported by the prober.
type SourceInfo struct {
	Path       string  `json:"path"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Duration   float64 `json:"duration"`
	FrameRate  float64 `json:"frame_rate"`
	HasAudio   bool    `json:"has_audio"`
	VideoCodec string  `json:"video_codec"`
	AudioCodec string  `json:"audio_codec,omitempty"`
	SampleRate int     `json:"sample_rate,omitempty"`
	FormatName string  `json:"format_name"`
	Rotation   int     `json:"rotation,omitempty"`
	Size       int64   `json:"size,omitempty"`
}

// GetDuration returns the probed duration, rejecting sources without one.
func (s *SourceInfo) GetDuration() (float64, error) {
	if !(s.Duration > 0) {
		return 0, fmt.Errorf("source %s has no usable duration", s.Path)
	}
	return s.Duration, nil
}
