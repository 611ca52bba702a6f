package ffprobe

import (
	"context"
	"os/exec"
	"strings"
	"testing"
)

const sampleOutput = `{
  "streams": [
    {
      "index": 0,
      "codec_name": "h264",
      "codec_type": "video",
      "width": 1920,
      "height": 1080,
      "r_frame_rate": "30000/1001",
      "avg_frame_rate": "30000/1001",
      "duration": "12.012000"
    },
    {
      "index": 1,
      "codec_name": "aac",
      "codec_type": "audio",
      "sample_rate": "48000",
      "channels": 2
    }
  ],
  "format": {
    "filename": "clip.mp4",
    "format_name": "mov,mp4,m4a,3gp,3g2,mj2",
    "duration": "12.050000",
    "size": "1048576",
    "bit_rate": "696000"
  }
}`

func TestProbe_EmptyPath(t *testing.T) {
	_, err := Probe(context.Background(), "", "")
	if err == nil {
		t.Fatal("Expected error for empty path")
	}
	if !strings.Contains(err.Error(), "cannot be empty") {
		t.Errorf("Expected 'cannot be empty' error, got: %v", err)
	}
}

func TestProbe_NonExistentFile(t *testing.T) {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not installed")
	}
	_, err := Probe(context.Background(), "", "/nonexistent/file.mp4")
	if err == nil {
		t.Fatal("Expected error for nonexistent file")
	}
	if !strings.Contains(err.Error(), "ffprobe failed") {
		t.Errorf("Expected ffprobe error, got: %v", err)
	}
}

func TestParseOutput_SourceInfo(t *testing.T) {
	result, err := ParseOutput([]byte(sampleOutput))
	if err != nil {
		t.Fatalf("ParseOutput failed: %v", err)
	}

	info, err := result.SourceInfo()
	if err != nil {
		t.Fatalf("SourceInfo failed: %v", err)
	}

	if info.Width != 1920 || info.Height != 1080 {
		t.Errorf("Expected 1920x1080, got %dx%d", info.Width, info.Height)
	}
	if info.Duration != 12.05 {
		t.Errorf("Expected container duration 12.05, got %f", info.Duration)
	}
	if !info.HasAudio || info.AudioCodec != "aac" || info.SampleRate != 48000 {
		t.Errorf("Unexpected audio info: %+v", info)
	}
	if info.FrameRate < 29.96 || info.FrameRate > 29.98 {
		t.Errorf("Expected ~29.97 fps, got %f", info.FrameRate)
	}
	if info.Size != 1048576 {
		t.Errorf("Expected size 1048576, got %d", info.Size)
	}
}

func TestParseOutput_InvalidJSON(t *testing.T) {
	if _, err := ParseOutput([]byte("not json")); err == nil {
		t.Error("Expected parse error")
	}
}

func TestSourceInfo_NoVideo(t *testing.T) {
	result := &ProbeResult{
		Streams: []Stream{{CodecType: "audio", CodecName: "mp3"}},
		Format:  Format{Duration: "3.0"},
	}
	if _, err := result.SourceInfo(); err == nil {
		t.Error("Expected error for audio-only input")
	}
}

func TestSourceInfo_SkipsCoverArt(t *testing.T) {
	result := &ProbeResult{
		Streams: []Stream{
			{CodecType: "video", CodecName: "mjpeg", Width: 600, Height: 600, Disposition: map[string]int{"attached_pic": 1}},
			{CodecType: "video", CodecName: "h264", Width: 640, Height: 360},
		},
		Format: Format{Duration: "1.5"},
	}
	info, err := result.SourceInfo()
	if err != nil {
		t.Fatalf("SourceInfo failed: %v", err)
	}
	if info.VideoCodec != "h264" || info.Width != 640 {
		t.Errorf("Expected the h264 stream, got %+v", info)
	}
	if info.HasAudio {
		t.Error("Expected no audio")
	}
}

func TestSourceInfo_RotationSwapsDimensions(t *testing.T) {
	tests := []struct {
		name   string
		stream Stream
		want   int
		w, h   int
	}{
		{
			name:   "rotate tag",
			stream: Stream{CodecType: "video", Width: 1920, Height: 1080, Tags: map[string]string{"rotate": "90"}},
			want:   90, w: 1080, h: 1920,
		},
		{
			name: "display matrix",
			stream: Stream{CodecType: "video", Width: 1920, Height: 1080, SideDataList: []SideData{
				{SideDataType: "Display Matrix", Rotation: -90},
			}},
			want: 90, w: 1080, h: 1920,
		},
		{
			name:   "upside down",
			stream: Stream{CodecType: "video", Width: 1920, Height: 1080, Tags: map[string]string{"rotate": "-180"}},
			want:   180, w: 1920, h: 1080,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := &ProbeResult{Streams: []Stream{tt.stream}, Format: Format{Duration: "2"}}
			info, err := result.SourceInfo()
			if err != nil {
				t.Fatalf("SourceInfo failed: %v", err)
			}
			if info.Rotation != tt.want {
				t.Errorf("Expected rotation %d, got %d", tt.want, info.Rotation)
			}
			if info.Width != tt.w || info.Height != tt.h {
				t.Errorf("Expected %dx%d, got %dx%d", tt.w, tt.h, info.Width, info.Height)
			}
		})
	}
}

func TestProbeResult_GetDuration(t *testing.T) {
	tests := []struct {
		name        string
		result      ProbeResult
		expected    float64
		expectError bool
	}{
		{
			name:     "Valid duration",
			result:   ProbeResult{Format: Format{Duration: "30.5"}},
			expected: 30.5,
		},
		{
			name: "Falls back to stream",
			result: ProbeResult{
				Streams: []Stream{{CodecType: "video", Duration: "4.25"}},
				Format:  Format{Duration: "N/A"},
			},
			expected: 4.25,
		},
		{
			name:        "Missing duration",
			result:      ProbeResult{},
			expectError: true,
		},
		{
			name:        "Invalid duration",
			result:      ProbeResult{Format: Format{Duration: "abc"}},
			expectError: true,
		},
		{
			name:        "Negative duration",
			result:      ProbeResult{Format: Format{Duration: "-1"}},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			duration, err := tt.result.GetDuration()
			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if duration != tt.expected {
				t.Errorf("Expected duration %f, got %f", tt.expected, duration)
			}
		})
	}
}

func TestParseRate(t *testing.T) {
	tests := map[string]float64{
		"30/1":  30,
		"25":    25,
		"0/0":   0,
		"":      0,
		"x/1":   0,
		"60/2":  30,
		"24/0":  0,
	}
	for in, want := range tests {
		if got := parseRate(in); got != want {
			t.Errorf("parseRate(%q) = %f, want %f", in, got, want)
		}
	}
}
