package video

import (
	"fmt"

	"captionburn/command"
	"captionburn/internal/timeutil"
)

// DecodeBuilder describes a decoder that resamples the source video to the
// export frame rate and writes raw RGBA frames to stdout.
type DecodeBuilder struct {
	command.Base

	sourcePath    string
	frameRate     int
	width, height int
	startTime     float64
}

// NewDecodeBuilder creates a decoder for sourcePath at the export frame rate.
func NewDecodeBuilder(sourcePath string) *DecodeBuilder {
	return &DecodeBuilder{
		Base:       command.NewBase(),
		sourcePath: sourcePath,
		frameRate:  timeutil.FrameRate,
	}
}

// SetBinary sets the ffmpeg executable.
func (d *DecodeBuilder) SetBinary(path string) *DecodeBuilder {
	d.SetBinaryPath(path)
	return d
}

// SetScale makes ffmpeg resize frames before they reach the pipe. Zero
// dimensions keep the source size, which must then be known to the reader.
func (d *DecodeBuilder) SetScale(width, height int) *DecodeBuilder {
	d.width, d.height = width, height
	return d
}

// SetStartTime skips ahead in the source before decoding.
func (d *DecodeBuilder) SetStartTime(seconds float64) *DecodeBuilder {
	d.startTime = seconds
	return d
}

// SetPriority sets the task priority.
func (d *DecodeBuilder) SetPriority(priority int) command.Command {
	d.SetPriorityValue(priority)
	return d
}

// BuildArgs constructs the ffmpeg arguments for the frame decoder.
func (d *DecodeBuilder) BuildArgs() []string {
	args := command.GlobalArgs()
	if d.startTime > 0 {
		args = append(args, "-ss", timeutil.FormatSeconds(d.startTime))
	}
	args = append(args,
		"-i", d.sourcePath,
		"-an", "-sn", "-dn",
		"-vf", d.filterChain(),
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		command.Stdout,
	)
	return args
}

func (d *DecodeBuilder) filterChain() string {
	filter := fmt.Sprintf("fps=%d", d.frameRate)
	if d.width > 0 && d.height > 0 {
		filter += fmt.Sprintf(",scale=%d:%d:flags=bilinear", d.width, d.height)
	}
	return filter
}

// DryRun returns the command that would be executed without running it
func (d *DecodeBuilder) DryRun() (string, error) {
	if d.sourcePath == "" {
		return "", fmt.Errorf("cannot build command: source path is empty")
	}
	return command.FormatCommandLine(d.Binary(), d.BuildArgs()), nil
}

// GetTaskType returns the task type (frame_decode).
func (d *DecodeBuilder) GetTaskType() command.TaskType {
	return command.TaskTypeFrameDecode
}

// GetInputPath returns the source path.
func (d *DecodeBuilder) GetInputPath() string {
	return d.sourcePath
}

// GetOutputPath returns stdout, where frames are read.
func (d *DecodeBuilder) GetOutputPath() string {
	return command.Stdout
}
