package mixing

import (
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"captionburn/command"
	"captionburn/internal/timeutil"
)

// MixingBuilder constructs the ffmpeg command that packs the encoded
// elementary streams of an export into the output container.
// It supports:
// - A raw H.264 video input at a fixed frame rate
// - An optional ADTS AAC audio input
// - Stream copying (no re-encoding) and container metadata
// - Fast-start layout for MP4 so playback can begin before download ends
type MixingBuilder struct {
	command.Base

	videoInput  string
	videoFormat string
	frameRate   int
	audioInput  string
	audioFormat string
	outputPath  string
	format      string
	faststart   bool

	// Metadata
	metadata map[string]string

	extraArgs []string
}

// NewMixingBuilder creates a new mixing builder.
// videoInput: path to the H.264 elementary stream (required)
// outputPath: path to output file (required)
func NewMixingBuilder(videoInput, outputPath string) *MixingBuilder {
	return &MixingBuilder{
		Base:        command.NewBase(),
		videoInput:  videoInput,
		videoFormat: "h264",
		frameRate:   timeutil.FrameRate,
		outputPath:  outputPath,
		format:      "mp4",
		faststart:   true,
		metadata:    make(map[string]string),
	}
}

// SetBinary sets the ffmpeg executable.
func (m *MixingBuilder) SetBinary(path string) *MixingBuilder {
	m.SetBinaryPath(path)
	return m
}

// SetAudioTrack sets the ADTS audio input. Empty means no audio track.
func (m *MixingBuilder) SetAudioTrack(audioPath string) *MixingBuilder {
	m.audioInput = audioPath
	m.audioFormat = "aac"
	return m
}

// SetFrameRate sets the rate at which raw video units are timed.
func (m *MixingBuilder) SetFrameRate(fps int) *MixingBuilder {
	m.frameRate = fps
	return m
}

// SetFormat sets the output container format (e.g., "mp4", "mov").
func (m *MixingBuilder) SetFormat(format string) *MixingBuilder {
	m.format = format
	return m
}

// SetFaststart toggles moving the moov box to the front of the file.
func (m *MixingBuilder) SetFaststart(enabled bool) *MixingBuilder {
	m.faststart = enabled
	return m
}

// AddMetadata adds metadata to the output file.
// Common keys: title, comment, encoder
func (m *MixingBuilder) AddMetadata(key, value string) *MixingBuilder {
	m.metadata[key] = value
	return m
}

// AddExtraArgs adds custom ffmpeg arguments.
func (m *MixingBuilder) AddExtraArgs(args ...string) *MixingBuilder {
	m.extraArgs = append(m.extraArgs, args...)
	return m
}

// SetPriority sets the task priority for scheduling.
func (m *MixingBuilder) SetPriority(priority int) command.Command {
	m.SetPriorityValue(priority)
	return m
}

// BuildArgs constructs the ffmpeg command arguments.
func (m *MixingBuilder) BuildArgs() []string {
	args := command.GlobalArgs()

	// Raw elementary streams carry no timing; declare the frame rate.
	args = append(args,
		"-f", m.videoFormat,
		"-framerate", strconv.Itoa(m.frameRate),
		"-i", m.videoInput,
	)
	if m.audioInput != "" {
		args = append(args, "-f", m.audioFormat, "-i", m.audioInput)
	}

	args = append(args, "-map", "0:v:0")
	if m.audioInput != "" {
		args = append(args, "-map", "1:a:0")
	}

	args = append(args, "-c", "copy")

	if m.faststart && (m.format == "mp4" || m.format == "mov") {
		args = append(args, "-movflags", "+faststart")
	}

	keys := make([]string, 0, len(m.metadata))
	for key := range m.metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		args = append(args, "-metadata", fmt.Sprintf("%s=%s", key, m.metadata[key]))
	}

	args = append(args, m.extraArgs...)
	args = append(args, "-f", m.format, "-y", m.outputPath)
	return args
}

// Run executes the mixing command and waits for it to finish.
func (m *MixingBuilder) Run(ctx context.Context) error {
	if err := m.validate(); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, m.Binary(), m.BuildArgs()...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("mixing failed: %w, output: %s", err, tail(string(output), 2048))
	}
	return nil
}

// DryRun returns the command that would be executed without running it.
func (m *MixingBuilder) DryRun() (string, error) {
	if err := m.validate(); err != nil {
		return "", err
	}
	return command.FormatCommandLine(m.Binary(), m.BuildArgs()), nil
}

func (m *MixingBuilder) validate() error {
	if m.videoInput == "" {
		return fmt.Errorf("cannot build command: video input is empty")
	}
	if m.outputPath == "" {
		return fmt.Errorf("cannot build command: output path is empty")
	}
	if m.frameRate <= 0 {
		return fmt.Errorf("frame rate must be positive")
	}
	return nil
}

// GetTaskType returns the task type identifier.
func (m *MixingBuilder) GetTaskType() command.TaskType {
	return command.TaskTypeMixing
}

// GetInputPath returns the primary input path (video).
func (m *MixingBuilder) GetInputPath() string {
	return m.videoInput
}

// GetOutputPath returns the output file path.
func (m *MixingBuilder) GetOutputPath() string {
	return m.outputPath
}

// tail keeps the last n bytes of ffmpeg output, where the error usually is.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
