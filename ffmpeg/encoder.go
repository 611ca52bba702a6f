package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"captionburn/command"
	"captionburn/models"
)

// maxUnitSize bounds a single access unit read from an encoder.
const maxUnitSize = 64 << 20

// UnitSink receives encoded access units in output order.
type UnitSink func(models.AccessUnit) error

// ErrEncoderClosed is returned when input arrives after the encoder was
// flushed or closed.
var ErrEncoderClosed = errors.New("encoder input already closed")

// unitHandler turns one token of encoder output into an access unit.
type unitHandler func(data []byte) (models.AccessUnit, error)

// streamEncoder pipes input to an ffmpeg process and, on a reader goroutine,
// splits the process output into access units for the sink.
type streamEncoder struct {
	proc   *Process
	logger hclog.Logger

	inMu        sync.Mutex
	inputClosed bool

	done chan struct{}
	err  error // valid once done is closed
}

func startStreamEncoder(ctx context.Context, c command.Command, split bufio.SplitFunc, handle unitHandler, sink UnitSink, logger hclog.Logger) (*streamEncoder, error) {
	if sink == nil {
		return nil, fmt.Errorf("encoder requires a unit sink")
	}
	proc, err := Start(ctx, c, logger)
	if err != nil {
		return nil, err
	}

	e := &streamEncoder{
		proc:   proc,
		logger: logger,
		done:   make(chan struct{}),
	}

	var g errgroup.Group
	g.Go(func() error {
		scanner := bufio.NewScanner(proc.Stdout())
		scanner.Buffer(make([]byte, 0, 256<<10), maxUnitSize)
		scanner.Split(split)
		for scanner.Scan() {
			// The scanner reuses its buffer; units outlive this iteration.
			data := append([]byte(nil), scanner.Bytes()...)
			unit, err := handle(data)
			if err != nil {
				return err
			}
			if err := sink(unit); err != nil {
				return fmt.Errorf("unit sink rejected %s unit at %dus: %w", unit.Stream, unit.TimestampUs, err)
			}
		}
		return scanner.Err()
	})

	go func() {
		readErr := g.Wait()
		if readErr != nil {
			// Stop the process so it does not block on a full stdout pipe.
			_ = proc.Kill()
		}
		waitErr := proc.Wait()
		if readErr != nil {
			e.err = readErr
		} else {
			e.err = waitErr
		}
		close(e.done)
	}()

	return e, nil
}

// write sends input bytes to the process. A failure of the reader side is
// reported in preference to the resulting broken pipe.
func (e *streamEncoder) write(ctx context.Context, p []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.inMu.Lock()
	defer e.inMu.Unlock()
	if e.inputClosed {
		return ErrEncoderClosed
	}

	select {
	case <-e.done:
		if e.err != nil {
			return e.err
		}
		return fmt.Errorf("encoder exited before end of input")
	default:
	}

	if _, err := e.proc.Stdin().Write(p); err != nil {
		select {
		case <-e.done:
			if e.err != nil {
				return e.err
			}
		default:
		}
		return fmt.Errorf("failed to write encoder input: %w", err)
	}
	return nil
}

// flush closes the input and waits for every unit to reach the sink. It may
// be retried after a timeout; the input is only closed once.
func (e *streamEncoder) flush(ctx context.Context) error {
	e.inMu.Lock()
	if !e.inputClosed {
		e.inputClosed = true
		if err := e.proc.CloseInput(); err != nil {
			e.logger.Debug("closing encoder input failed", "error", err)
		}
	}
	e.inMu.Unlock()

	select {
	case <-e.done:
		return e.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close force-stops the process. Units already delivered to the sink stay.
func (e *streamEncoder) close() error {
	e.inMu.Lock()
	e.inputClosed = true
	e.inMu.Unlock()

	select {
	case <-e.done:
		return nil
	default:
	}
	_ = e.proc.Kill()
	<-e.done
	return nil
}

// stats exposes the process counters for diagnostics.
func (e *streamEncoder) stats() models.EncoderStats {
	return e.proc.Stats()
}
