package audio

import (
	"fmt"
	"strconv"
	"strings"

	"captionburn/command"
)

// PCM layout shared by the decoder and encoder: interleaved signed 16-bit
// little-endian samples.
const (
	DefaultSampleRate = 44100
	DefaultChannels   = 1
	BytesPerSample    = 2
	pcmFormat         = "s16le"
)

// DecodeBuilder describes a decoder that converts the source's first audio
// stream to PCM on stdout.
type DecodeBuilder struct {
	command.Base

	sourcePath string
	sampleRate int
	channels   int
	filters    []string
}

// NewDecodeBuilder creates a PCM decoder for sourcePath.
func NewDecodeBuilder(sourcePath string) *DecodeBuilder {
	return &DecodeBuilder{
		Base:       command.NewBase(),
		sourcePath: sourcePath,
		sampleRate: DefaultSampleRate,
		channels:   DefaultChannels,
	}
}

// SetBinary sets the ffmpeg executable.
func (a *DecodeBuilder) SetBinary(path string) *DecodeBuilder {
	a.SetBinaryPath(path)
	return a
}

// SetSampleRate sets the output sample rate in Hz (e.g., 48000, 44100).
func (a *DecodeBuilder) SetSampleRate(rate int) *DecodeBuilder {
	a.sampleRate = rate
	return a
}

// SetChannels sets the number of output channels (e.g., 1 for mono, 2 for stereo).
func (a *DecodeBuilder) SetChannels(channels int) *DecodeBuilder {
	a.channels = channels
	return a
}

// SetFilters adds an audio filter (e.g., "volume=0.5").
func (a *DecodeBuilder) SetFilters(filter string) *DecodeBuilder {
	if filter != "" {
		a.filters = append(a.filters, filter)
	}
	return a
}

// SetPriority sets the task priority.
func (a *DecodeBuilder) SetPriority(priority int) command.Command {
	a.SetPriorityValue(priority)
	return a
}

// SampleRate returns the PCM sample rate.
func (a *DecodeBuilder) SampleRate() int { return a.sampleRate }

// Channels returns the PCM channel count.
func (a *DecodeBuilder) Channels() int { return a.channels }

// BuildArgs constructs the ffmpeg arguments for the PCM decoder.
func (a *DecodeBuilder) BuildArgs() []string {
	args := command.GlobalArgs()
	args = append(args,
		"-i", a.sourcePath,
		"-vn", "-sn", "-dn",
		"-map", "0:a:0",
	)
	if len(a.filters) > 0 {
		args = append(args, "-af", strings.Join(a.filters, ","))
	}
	args = append(args,
		"-ac", strconv.Itoa(a.channels),
		"-ar", strconv.Itoa(a.sampleRate),
		"-f", pcmFormat,
		command.Stdout,
	)
	return args
}

// DryRun returns the FFmpeg command without executing it.
func (a *DecodeBuilder) DryRun() (string, error) {
	if a.sourcePath == "" {
		return "", fmt.Errorf("cannot build command: source path is empty")
	}
	if err := validatePCM(a.sampleRate, a.channels); err != nil {
		return "", err
	}
	return command.FormatCommandLine(a.Binary(), a.BuildArgs()), nil
}

// GetTaskType returns the task type (audio_decode).
func (a *DecodeBuilder) GetTaskType() command.TaskType {
	return command.TaskTypeAudioDecode
}

// GetInputPath returns the source path.
func (a *DecodeBuilder) GetInputPath() string {
	return a.sourcePath
}

// GetOutputPath returns stdout.
func (a *DecodeBuilder) GetOutputPath() string {
	return command.Stdout
}

// EncodeBuilder describes an AAC encoder reading PCM on stdin and writing an
// ADTS stream on stdout.
type EncodeBuilder struct {
	command.Base

	codec      string
	bitrate    string
	sampleRate int
	channels   int
}

// NewEncodeBuilder creates an AAC encoder with default PCM layout.
func NewEncodeBuilder() *EncodeBuilder {
	return &EncodeBuilder{
		Base:       command.NewBase(),
		codec:      "aac",
		bitrate:    "128k",
		sampleRate: DefaultSampleRate,
		channels:   DefaultChannels,
	}
}

// SetBinary sets the ffmpeg executable.
func (a *EncodeBuilder) SetBinary(path string) *EncodeBuilder {
	a.SetBinaryPath(path)
	return a
}

// SetCodec sets the AAC encoder (e.g., "aac", "libfdk_aac").
func (a *EncodeBuilder) SetCodec(codec string) *EncodeBuilder {
	a.codec = codec
	return a
}

// SetBitrate sets the audio bitrate (e.g., "128k", "192k").
func (a *EncodeBuilder) SetBitrate(bitrate string) *EncodeBuilder {
	a.bitrate = bitrate
	return a
}

// SetSampleRate sets the PCM input sample rate in Hz.
func (a *EncodeBuilder) SetSampleRate(rate int) *EncodeBuilder {
	a.sampleRate = rate
	return a
}

// SetChannels sets the PCM input channel count.
func (a *EncodeBuilder) SetChannels(channels int) *EncodeBuilder {
	a.channels = channels
	return a
}

// SetPriority sets the task priority.
func (a *EncodeBuilder) SetPriority(priority int) command.Command {
	a.SetPriorityValue(priority)
	return a
}

// SampleRate returns the PCM sample rate.
func (a *EncodeBuilder) SampleRate() int { return a.sampleRate }

// Channels returns the PCM channel count.
func (a *EncodeBuilder) Channels() int { return a.channels }

// BuildArgs constructs the ffmpeg arguments for the AAC encoder.
func (a *EncodeBuilder) BuildArgs() []string {
	args := command.GlobalArgs()
	args = append(args,
		"-f", pcmFormat,
		"-ar", strconv.Itoa(a.sampleRate),
		"-ac", strconv.Itoa(a.channels),
		"-i", command.Stdin,
		"-c:a", a.codec,
		"-b:a", a.bitrate,
		"-f", "adts",
		command.Stdout,
	)
	return args
}

// DryRun returns the FFmpeg command without executing it.
func (a *EncodeBuilder) DryRun() (string, error) {
	if err := validatePCM(a.sampleRate, a.channels); err != nil {
		return "", err
	}
	if a.bitrate == "" {
		return "", fmt.Errorf("cannot build command: bitrate is empty")
	}
	return command.FormatCommandLine(a.Binary(), a.BuildArgs()), nil
}

// GetTaskType returns the task type (audio).
func (a *EncodeBuilder) GetTaskType() command.TaskType {
	return command.TaskTypeAudio
}

// GetInputPath returns stdin.
func (a *EncodeBuilder) GetInputPath() string {
	return command.Stdin
}

// GetOutputPath returns stdout.
func (a *EncodeBuilder) GetOutputPath() string {
	return command.Stdout
}

func validatePCM(rate, channels int) error {
	if rate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", rate)
	}
	if channels < 1 || channels > 8 {
		return fmt.Errorf("channel count must be between 1 and 8, got %d", channels)
	}
	return nil
}
