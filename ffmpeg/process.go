// Package ffmpeg runs the ffmpeg processes of an export and adapts their
// pipes to frames, PCM and encoded access units.
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"

	"captionburn/command"
	"captionburn/models"
)

// stderrTailLines bounds how much ffmpeg log output is kept for error messages.
const stderrTailLines = 20

// Process is a started ffmpeg command with its pipes attached.
type Process struct {
	name   string
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	logger hclog.Logger

	mu    sync.Mutex
	stats models.EncoderStats
	tail  []string

	stderrDone chan struct{}
	waitOnce   sync.Once
	waitErr    error
}

// Start launches c. Stdin and stdout pipes are attached when the command's
// input or output is a pipe. The process is killed if ctx is cancelled.
func Start(ctx context.Context, c command.Command, logger hclog.Logger) (*Process, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	args := c.BuildArgs()
	name := string(c.GetTaskType())

	cmd := exec.CommandContext(ctx, c.Binary(), args...)
	p := &Process{
		name:       name,
		cmd:        cmd,
		logger:     logger.Named(name),
		stderrDone: make(chan struct{}),
	}

	var err error
	if c.GetInputPath() == command.Stdin {
		if p.stdin, err = cmd.StdinPipe(); err != nil {
			return nil, fmt.Errorf("failed to get stdin pipe: %w", err)
		}
	}
	if c.GetOutputPath() == command.Stdout {
		if p.stdout, err = cmd.StdoutPipe(); err != nil {
			return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
		}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stderr pipe: %w", err)
	}

	p.logger.Debug("starting ffmpeg", "command", command.FormatCommandLine(c.Binary(), args))
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", c.Binary(), err)
	}

	go p.readStderr(stderr)
	return p, nil
}

func (p *Process) readStderr(r io.Reader) {
	defer close(p.stderrDone)

	parser := NewProgressParser()
	var stats models.EncoderStats
	err := parser.StreamProgress(r, &stats,
		func(s models.EncoderStats) {
			p.mu.Lock()
			p.stats = s
			p.mu.Unlock()
			p.logger.Trace("encoder stats", "frame", s.Frame, "fps", s.FPS, "out_time", s.Seconds)
		},
		func(line string) {
			p.mu.Lock()
			p.tail = append(p.tail, line)
			if len(p.tail) > stderrTailLines {
				p.tail = p.tail[len(p.tail)-stderrTailLines:]
			}
			p.mu.Unlock()
			p.logger.Debug(line)
		},
	)
	if err != nil {
		p.logger.Debug("stderr reader stopped", "error", err)
	}
}

// Stdin returns the process input, nil when the command reads a file.
func (p *Process) Stdin() io.WriteCloser { return p.stdin }

// Stdout returns the process output, nil when the command writes a file.
func (p *Process) Stdout() io.ReadCloser { return p.stdout }

// Stats returns the latest counters parsed from stderr.
func (p *Process) Stats() models.EncoderStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// StderrTail returns the last log lines ffmpeg printed.
func (p *Process) StderrTail() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return strings.Join(p.tail, "\n")
}

// Wait blocks until the process exits. Callers must have drained stdout.
// It is safe to call more than once.
func (p *Process) Wait() error {
	p.waitOnce.Do(func() {
		<-p.stderrDone
		err := p.cmd.Wait()
		if err != nil {
			if tail := p.StderrTail(); tail != "" {
				err = fmt.Errorf("%s process failed: %w: %s", p.name, err, tail)
			} else {
				err = fmt.Errorf("%s process failed: %w", p.name, err)
			}
		}
		p.waitErr = err
	})
	return p.waitErr
}

// Kill stops the process immediately and reaps it.
func (p *Process) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.logger.Debug("kill failed", "error", err)
	}
	if p.stdout != nil {
		// Unblock Wait if nobody is draining the pipe.
		go io.Copy(io.Discard, p.stdout)
	}
	return p.Wait()
}

// CloseInput signals end of input to an encoder.
func (p *Process) CloseInput() error {
	if p.stdin == nil {
		return nil
	}
	err := p.stdin.Close()
	if err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return nil
}
