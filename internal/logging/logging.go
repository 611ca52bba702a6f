// Package logging builds the structured loggers used across captionburn.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mattn/go-isatty"

	"captionburn/models"
)

// Format selects how log lines are written.
type Format string

const (
	FormatAuto Format = "auto"
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Options configures New.
type Options struct {
	Name   string
	Level  string
	Format Format
	// Color forces colour on or off; nil decides from the output.
	Color  *bool
	Output io.Writer
}

// New returns an hclog logger. With FormatAuto, text is used on a terminal
// and JSON everywhere else.
func New(opts Options) (hclog.Logger, error) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	level := hclog.Info
	if opts.Level != "" {
		level = hclog.LevelFromString(opts.Level)
		if level == hclog.NoLevel {
			return nil, fmt.Errorf("unknown log level %q", opts.Level)
		}
	}

	tty := IsTerminal(out)
	var jsonFormat bool
	switch Format(strings.ToLower(string(opts.Format))) {
	case FormatJSON:
		jsonFormat = true
	case FormatText:
	case FormatAuto, "":
		jsonFormat = !tty
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	color := hclog.ColorOff
	if opts.Color != nil {
		if *opts.Color {
			color = hclog.ForceColor
		}
	} else if tty && !jsonFormat {
		color = hclog.AutoColor
	}

	name := opts.Name
	if name == "" {
		name = "captionburn"
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      level,
		Output:     out,
		JSONFormat: jsonFormat,
		Color:      color,
	}), nil
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// ProgressSampler forwards export progress to a logger, one line per
// bucket of the fraction and one per phase change. Terminal phases are
// always logged.
type ProgressSampler struct {
	logger hclog.Logger
	bucket float64

	mu         sync.Mutex
	lastPhase  models.Phase
	lastBucket int
}

// NewProgressSampler logs every bucket percent; bucket <= 0 means 10.
func NewProgressSampler(logger hclog.Logger, bucket float64) *ProgressSampler {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if bucket <= 0 {
		bucket = 10
	}
	return &ProgressSampler{logger: logger, bucket: bucket, lastBucket: -1}
}

// Progress implements pipeline.Sink.
func (s *ProgressSampler) Progress(p models.ExportProgress) {
	if !s.Allow(p) {
		return
	}
	args := []interface{}{"phase", p.Phase, "percent", fmt.Sprintf("%.1f", p.Fraction)}
	if p.TotalFrames > 0 && p.Phase == models.PhaseRenderingVideo {
		args = append(args, "frame", p.Frame, "total_frames", p.TotalFrames)
	}
	if !p.Phase.IsTerminal() {
		if eta := p.EstimatedTimeRemaining(); eta > 0 {
			args = append(args, "eta", eta.Round(time.Second).String())
		}
	}
	s.logger.Info(p.Message, args...)
}

// Allow reports whether p would be logged and records it.
func (s *ProgressSampler) Allow(p models.ExportProgress) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := int(p.Fraction / s.bucket)
	if p.Phase == s.lastPhase && bucket == s.lastBucket && !p.Phase.IsTerminal() {
		return false
	}
	if p.Phase == s.lastPhase && p.Phase.IsTerminal() {
		return false
	}
	s.lastPhase = p.Phase
	s.lastBucket = bucket
	return true
}

// Reset forgets the last logged event, for reusing the sampler across runs.
func (s *ProgressSampler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPhase = ""
	s.lastBucket = -1
}
