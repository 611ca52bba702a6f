// Package command provides the Command interface shared by the ffmpeg
// argument builders.
//
// Every process an export starts (frame decoder, video encoder, audio decoder,
// audio encoder, final remux) is described by a builder in a sub-package that
// implements Command, so the process layer can start, log and preview them
// without knowing which kind it is.
package command

import (
	"fmt"
	"strings"
)

// Priority levels for task scheduling in the orchestrator.
// Higher priority tasks are processed first.
const (
	PriorityLow    = 0  // Low priority tasks (e.g., snapshots)
	PriorityNormal = 5  // Normal priority tasks (e.g., a batch export)
	PriorityHigh   = 10 // High priority tasks (e.g., an interactive export)
)

// DefaultBinary is the ffmpeg executable looked up on PATH.
const DefaultBinary = "ffmpeg"

// TaskType represents the role a process plays in an export.
type TaskType string

const (
	TaskTypeFrameDecode TaskType = "frame_decode" // Source video to raw RGBA frames
	TaskTypeVideo       TaskType = "video"        // Raw RGBA frames to H.264
	TaskTypeAudioDecode TaskType = "audio_decode" // Source audio to PCM
	TaskTypeAudio       TaskType = "audio"        // PCM to AAC
	TaskTypeMixing      TaskType = "mixing"       // Elementary streams to container
)

// Command represents an ffmpeg invocation that can be built or previewed.
//
// Example usage:
//
//	cmd := video.NewEncodeBuilder(854, 480).
//		SetBitrate(1_500_000).
//		SetPreset("veryfast")
//
//	// Preview the command
//	line, _ := cmd.DryRun()
//
//	// Start it with pipes attached
//	proc, err := ffmpeg.Start(ctx, cmd, logger)
type Command interface {
	// BuildArgs constructs and returns the ffmpeg arguments as a slice,
	// suitable for exec.Command(cmd.Binary(), args...).
	BuildArgs() []string

	// Binary returns the executable to run.
	Binary() string

	// DryRun returns the command line as a string without executing it.
	// It fails when the builder is missing required parameters.
	DryRun() (string, error)

	// GetPriority returns the priority level for task scheduling.
	GetPriority() int

	// SetPriority sets the priority level for task scheduling.
	SetPriority(priority int) Command

	// GetTaskType returns the role of the process.
	GetTaskType() TaskType

	// GetInputPath returns the primary input, "pipe:0" for stdin.
	GetInputPath() string

	// GetOutputPath returns the output, "pipe:1" for stdout.
	GetOutputPath() string
}

// Pipe endpoints as ffmpeg spells them.
const (
	Stdin  = "pipe:0"
	Stdout = "pipe:1"
	Stderr = "pipe:2"
)

// Base carries the fields every builder shares. Builders embed it.
type Base struct {
	binary   string
	priority int
}

// NewBase returns a Base with the default binary and normal priority.
func NewBase() Base {
	return Base{binary: DefaultBinary, priority: PriorityNormal}
}

// Binary returns the executable to run.
func (b *Base) Binary() string {
	if b.binary == "" {
		return DefaultBinary
	}
	return b.binary
}

// SetBinaryPath overrides the executable. Empty keeps the default.
func (b *Base) SetBinaryPath(path string) {
	if path != "" {
		b.binary = path
	}
}

// GetPriority returns the priority level for task scheduling.
func (b *Base) GetPriority() int {
	return b.priority
}

// SetPriorityValue stores a priority; builders wrap it to return themselves.
func (b *Base) SetPriorityValue(priority int) {
	b.priority = priority
}

// GlobalArgs are prepended to every invocation: no banner, no interactive
// stdin handling, errors only, machine-readable progress on stderr.
func GlobalArgs() []string {
	return []string{"-hide_banner", "-nostdin", "-loglevel", "error", "-progress", Stderr, "-nostats"}
}

// FormatCommandLine renders binary and args as a shell-like line, quoting
// arguments that contain spaces.
func FormatCommandLine(binary string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, binary)
	for _, a := range args {
		if a == "" || strings.ContainsAny(a, " \t'\"") {
			a = fmt.Sprintf("%q", a)
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}
