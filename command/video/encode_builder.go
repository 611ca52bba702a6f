package video

import (
	"fmt"
	"strconv"

	"captionburn/command"
	"captionburn/internal/timeutil"
)

// HardwareAccel selects a hardware encoder family.
type HardwareAccel string

const (
	HWAccelNone  HardwareAccel = ""
	HWAccelVAAPI HardwareAccel = "vaapi" // Intel/AMD on Linux
	HWAccelNVENC HardwareAccel = "cuda"  // NVIDIA
	HWAccelQSV   HardwareAccel = "qsv"   // Intel Quick Sync
)

// Keyframe interval in frames: one IDR every two seconds at 30fps.
const KeyframeInterval = 2 * timeutil.FrameRate

// EncodeBuilder describes an H.264 encoder reading raw RGBA frames on stdin
// and writing an Annex-B elementary stream on stdout. Every access unit is
// led by an access unit delimiter so the reader can split the stream.
type EncodeBuilder struct {
	command.Base

	width, height int
	frameRate     int
	bitrate       int64

	codec   string
	encoder string
	hwAccel HardwareAccel
	device  string
	preset  string

	gop         int
	pixelFormat string
	extraArgs   []string
}

// NewEncodeBuilder creates an encoder for frames of the given size.
func NewEncodeBuilder(width, height int) *EncodeBuilder {
	return &EncodeBuilder{
		Base:        command.NewBase(),
		width:       width,
		height:      height,
		frameRate:   timeutil.FrameRate,
		codec:       "libx264",
		preset:      "veryfast",
		gop:         KeyframeInterval,
		pixelFormat: "yuv420p",
	}
}

// SetBinary sets the ffmpeg executable.
func (v *EncodeBuilder) SetBinary(path string) *EncodeBuilder {
	v.SetBinaryPath(path)
	return v
}

// SetBitrate sets the target bitrate in bits per second.
func (v *EncodeBuilder) SetBitrate(bps int64) *EncodeBuilder {
	v.bitrate = bps
	return v
}

// SetCodec sets the software codec (e.g., "libx264").
func (v *EncodeBuilder) SetCodec(codec string) *EncodeBuilder {
	v.codec = codec
	return v
}

// SetHardwareEncoder sets a hardware encoder (e.g., "h264_nvenc", "h264_vaapi").
func (v *EncodeBuilder) SetHardwareEncoder(encoder string, accel HardwareAccel, device string) *EncodeBuilder {
	v.encoder = encoder
	v.hwAccel = accel
	v.device = device
	return v
}

// SetPreset sets the encoding preset (ultrafast ... veryslow for libx264).
func (v *EncodeBuilder) SetPreset(preset string) *EncodeBuilder {
	v.preset = preset
	return v
}

// SetGOP sets the keyframe interval in frames.
func (v *EncodeBuilder) SetGOP(frames int) *EncodeBuilder {
	v.gop = frames
	return v
}

// AddExtraArgs adds custom output arguments before the output path.
func (v *EncodeBuilder) AddExtraArgs(args ...string) *EncodeBuilder {
	v.extraArgs = append(v.extraArgs, args...)
	return v
}

// SetPriority sets the task priority (higher = processed first)
func (v *EncodeBuilder) SetPriority(priority int) command.Command {
	v.SetPriorityValue(priority)
	return v
}

// Width returns the frame width the encoder expects on stdin.
func (v *EncodeBuilder) Width() int { return v.width }

// Height returns the frame height the encoder expects on stdin.
func (v *EncodeBuilder) Height() int { return v.height }

// FrameSize is the byte length of one RGBA frame on stdin.
func (v *EncodeBuilder) FrameSize() int {
	return v.width * v.height * 4
}

// Validate checks the parameters an encoder cannot start without.
func (v *EncodeBuilder) Validate() error {
	if v.width <= 0 || v.height <= 0 || v.width%2 != 0 || v.height%2 != 0 {
		return fmt.Errorf("encoder requires positive even dimensions, got %dx%d", v.width, v.height)
	}
	if v.bitrate <= 0 {
		return fmt.Errorf("encoder requires a positive bitrate")
	}
	if v.gop <= 0 {
		return fmt.Errorf("keyframe interval must be positive")
	}
	return nil
}

// BuildArgs constructs the ffmpeg arguments for the streaming encoder.
func (v *EncodeBuilder) BuildArgs() []string {
	args := command.GlobalArgs()

	if v.hwAccel == HWAccelVAAPI && v.device != "" {
		args = append(args, "-vaapi_device", v.device)
	}

	fps := strconv.Itoa(v.frameRate)
	args = append(args,
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", v.width, v.height),
		"-framerate", fps,
		"-i", command.Stdin,
	)

	if filter := v.uploadFilter(); filter != "" {
		args = append(args, "-vf", filter)
	}

	if v.encoder != "" {
		args = append(args, "-c:v", v.encoder)
	} else {
		args = append(args, "-c:v", v.codec)
		if v.preset != "" {
			args = append(args, "-preset", v.preset)
		}
		args = append(args, "-pix_fmt", v.pixelFormat)
	}

	rate := strconv.FormatInt(v.bitrate, 10)
	gop := strconv.Itoa(v.gop)
	args = append(args,
		"-b:v", rate,
		"-maxrate", rate,
		"-bufsize", strconv.FormatInt(2*v.bitrate, 10),
		"-r", fps,
		"-g", gop,
		"-keyint_min", gop,
		"-sc_threshold", "0",
		"-bf", "0",
		"-bsf:v", "h264_metadata=aud=insert",
	)

	args = append(args, v.extraArgs...)
	args = append(args, "-f", "h264", command.Stdout)
	return args
}

// uploadFilter moves frames to the GPU for VAAPI encoders; NVENC and QSV
// accept system memory frames directly.
func (v *EncodeBuilder) uploadFilter() string {
	if v.encoder == "" {
		return ""
	}
	switch v.hwAccel {
	case HWAccelVAAPI:
		return "format=nv12,hwupload"
	}
	return ""
}

// DryRun returns the command that would be executed without running it
func (v *EncodeBuilder) DryRun() (string, error) {
	if err := v.Validate(); err != nil {
		return "", err
	}
	return command.FormatCommandLine(v.Binary(), v.BuildArgs()), nil
}

// GetTaskType returns the task type (video).
func (v *EncodeBuilder) GetTaskType() command.TaskType {
	return command.TaskTypeVideo
}

// GetInputPath returns stdin, where frames are written.
func (v *EncodeBuilder) GetInputPath() string {
	return command.Stdin
}

// GetOutputPath returns stdout, where the elementary stream is read.
func (v *EncodeBuilder) GetOutputPath() string {
	return command.Stdout
}
