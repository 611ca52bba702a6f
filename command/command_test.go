package command

import (
	"strings"
	"testing"
)

func TestPriorityOrdering(t *testing.T) {
	if PriorityLow >= PriorityNormal {
		t.Error("PriorityLow should be less than PriorityNormal")
	}
	if PriorityNormal >= PriorityHigh {
		t.Error("PriorityNormal should be less than PriorityHigh")
	}
}

func TestTaskTypeConstants(t *testing.T) {
	tests := []struct {
		name     string
		taskType TaskType
		expected string
	}{
		{"FrameDecode", TaskTypeFrameDecode, "frame_decode"},
		{"Video", TaskTypeVideo, "video"},
		{"AudioDecode", TaskTypeAudioDecode, "audio_decode"},
		{"Audio", TaskTypeAudio, "audio"},
		{"Mixing", TaskTypeMixing, "mixing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if string(tt.taskType) != tt.expected {
				t.Errorf("%s = %s; want %s", tt.name, string(tt.taskType), tt.expected)
			}
		})
	}
}

func TestBase(t *testing.T) {
	b := NewBase()
	if b.Binary() != DefaultBinary {
		t.Errorf("Binary() = %s; want %s", b.Binary(), DefaultBinary)
	}
	b.SetBinaryPath("")
	if b.Binary() != DefaultBinary {
		t.Error("Empty path should keep the default binary")
	}
	b.SetBinaryPath("/usr/local/bin/ffmpeg")
	if b.Binary() != "/usr/local/bin/ffmpeg" {
		t.Errorf("Binary() = %s", b.Binary())
	}

	var zero Base
	if zero.Binary() != DefaultBinary {
		t.Error("Zero Base should fall back to the default binary")
	}

	b.SetPriorityValue(PriorityHigh)
	if b.GetPriority() != PriorityHigh {
		t.Error("SetPriorityValue did not stick")
	}
}

func TestGlobalArgs(t *testing.T) {
	args := strings.Join(GlobalArgs(), " ")
	for _, want := range []string{"-hide_banner", "-nostdin", "-loglevel error", "-progress pipe:2"} {
		if !strings.Contains(args, want) {
			t.Errorf("Expected %q in global args: %s", want, args)
		}
	}

	// Each call returns a fresh slice.
	a := GlobalArgs()
	a[0] = "mutated"
	if GlobalArgs()[0] == "mutated" {
		t.Error("GlobalArgs shares its backing array")
	}
}

func TestFormatCommandLine(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"plain", []string{"-i", "in.mp4"}, "ffmpeg -i in.mp4"},
		{"spaces", []string{"-i", "my file.mp4"}, `ffmpeg -i "my file.mp4"`},
		{"empty arg", []string{"-metadata", ""}, `ffmpeg -metadata ""`},
		{"no args", nil, "ffmpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatCommandLine("ffmpeg", tt.args); got != tt.want {
				t.Errorf("FormatCommandLine() = %q; want %q", got, tt.want)
			}
		})
	}
}
