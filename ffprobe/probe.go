package ffprobe

// Package ffprobe extracts source metadata (dimensions, duration, audio
// presence) from media files using the ffprobe command-line tool.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"captionburn/models"
)

// Stream represents a media stream (audio, video, subtitle, etc.)
type Stream struct {
	Index         int               `json:"index"`
	CodecName     string            `json:"codec_name"`
	CodecType     string            `json:"codec_type"`
	CodecLongName string            `json:"codec_long_name"`
	Width         int               `json:"width,omitempty"`
	Height        int               `json:"height,omitempty"`
	RFrameRate    string            `json:"r_frame_rate,omitempty"`
	AvgFrameRate  string            `json:"avg_frame_rate,omitempty"`
	SampleRate    string            `json:"sample_rate,omitempty"`
	Channels      int               `json:"channels,omitempty"`
	Duration      string            `json:"duration,omitempty"`
	Tags          map[string]string `json:"tags,omitempty"`
	SideDataList  []SideData        `json:"side_data_list,omitempty"`
	Disposition   map[string]int    `json:"disposition,omitempty"`
}

// SideData carries per-stream extras; only the display matrix rotation is used.
type SideData struct {
	SideDataType string  `json:"side_data_type"`
	Rotation     float64 `json:"rotation"`
}

// Format represents the container format information.
type Format struct {
	Filename       string `json:"filename"`
	FormatName     string `json:"format_name"`
	FormatLongName string `json:"format_long_name"`
	Duration       string `json:"duration"`
	Size           string `json:"size"`
	BitRate        string `json:"bit_rate"`
}

// ProbeResult holds the raw metadata ffprobe reported for a file.
type ProbeResult struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// GetDuration returns the container duration in seconds, falling back to
// the first video stream when the container does not declare one.
func (pr *ProbeResult) GetDuration() (float64, error) {
	raw := pr.Format.Duration
	if raw == "" || raw == "N/A" {
		if v := pr.VideoStream(); v != nil {
			raw = v.Duration
		}
	}
	if raw == "" || raw == "N/A" {
		return 0, fmt.Errorf("duration not available in format metadata")
	}

	duration, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration '%s': %w", raw, err)
	}
	if duration < 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}
	return duration, nil
}

// VideoStream returns the first video stream that is not cover art.
func (pr *ProbeResult) VideoStream() *Stream {
	for i := range pr.Streams {
		s := &pr.Streams[i]
		if s.CodecType == "video" && s.Disposition["attached_pic"] == 0 {
			return s
		}
	}
	return nil
}

// GetAudioStreams returns all audio streams from the media file.
func (pr *ProbeResult) GetAudioStreams() []Stream {
	var audioStreams []Stream
	for _, stream := range pr.Streams {
		if stream.CodecType == "audio" {
			audioStreams = append(audioStreams, stream)
		}
	}
	return audioStreams
}

// Rotation returns the display rotation of a video stream in degrees,
// normalised to 0, 90, 180 or 270.
func (s *Stream) Rotation() int {
	deg := 0.0
	if r, ok := s.Tags["rotate"]; ok {
		if v, err := strconv.ParseFloat(r, 64); err == nil {
			deg = v
		}
	}
	for _, sd := range s.SideDataList {
		if sd.SideDataType == "Display Matrix" && sd.Rotation != 0 {
			deg = -sd.Rotation
		}
	}
	norm := int(math.Round(deg)) % 360
	if norm < 0 {
		norm += 360
	}
	return norm
}

// FrameRate parses r_frame_rate (or avg_frame_rate) such as "30000/1001".
func (s *Stream) FrameRate() float64 {
	for _, raw := range []string{s.AvgFrameRate, s.RFrameRate} {
		if fps := parseRate(raw); fps > 0 {
			return fps
		}
	}
	return 0
}

func parseRate(raw string) float64 {
	num, den, found := strings.Cut(raw, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

// SourceInfo condenses the probe into what an export needs. Dimensions are
// reported as displayed, so a 90 degree rotation swaps width and height.
func (pr *ProbeResult) SourceInfo() (*models.SourceInfo, error) {
	video := pr.VideoStream()
	if video == nil {
		return nil, fmt.Errorf("no video stream found")
	}
	if video.Width <= 0 || video.Height <= 0 {
		return nil, fmt.Errorf("video stream reports invalid dimensions %dx%d", video.Width, video.Height)
	}

	duration, err := pr.GetDuration()
	if err != nil {
		return nil, err
	}

	info := &models.SourceInfo{
		Path:       pr.Format.Filename,
		Width:      video.Width,
		Height:     video.Height,
		Duration:   duration,
		FrameRate:  video.FrameRate(),
		VideoCodec: video.CodecName,
		FormatName: pr.Format.FormatName,
		Rotation:   video.Rotation(),
	}
	if info.Rotation == 90 || info.Rotation == 270 {
		info.Width, info.Height = info.Height, info.Width
	}
	if size, err := strconv.ParseInt(pr.Format.Size, 10, 64); err == nil {
		info.Size = size
	}

	if audio := pr.GetAudioStreams(); len(audio) > 0 {
		info.HasAudio = true
		info.AudioCodec = audio[0].CodecName
		if rate, err := strconv.Atoi(audio[0].SampleRate); err == nil {
			info.SampleRate = rate
		}
	}
	return info, nil
}

// ParseOutput decodes ffprobe's JSON document.
func ParseOutput(data []byte) (*ProbeResult, error) {
	var result ProbeResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe JSON output: %w", err)
	}
	return &result, nil
}

// Probe runs ffprobe against sourcePath and returns the parsed result.
// An empty binary path means "ffprobe" from PATH.
//
// Example:
//
//	result, err := ffprobe.Probe(ctx, "", "/path/to/video.mp4")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	info, _ := result.SourceInfo()
//	fmt.Printf("%dx%d, %.2fs\n", info.Width, info.Height, info.Duration)
func Probe(ctx context.Context, binary, sourcePath string) (*ProbeResult, error) {
	if sourcePath == "" {
		return nil, fmt.Errorf("source path cannot be empty")
	}
	if binary == "" {
		binary = "ffprobe"
	}

	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		sourcePath,
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("ffprobe failed: %w (output: %s)", err, strings.TrimSpace(stderr.String()))
	}

	return ParseOutput(stdout.Bytes())
}

// ProbeSource is Probe followed by SourceInfo.
func ProbeSource(ctx context.Context, binary, sourcePath string) (*models.SourceInfo, error) {
	result, err := Probe(ctx, binary, sourcePath)
	if err != nil {
		return nil, err
	}
	info, err := result.SourceInfo()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", sourcePath, err)
	}
	if info.Path == "" {
		info.Path = sourcePath
	}
	return info, nil
}
