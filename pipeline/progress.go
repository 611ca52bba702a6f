package pipeline

import (
	"fmt"
	"math"
	"sync"
	"time"

	"captionburn/models"
)

// DefaultProgressStride reports every 10th frame.
const DefaultProgressStride = 10

// Phase weights in percent of the whole export.
const (
	videoWeightWithAudio = 80.0
	audioWeight          = 15.0
	videoWeightAlone     = 95.0
	finalizeStart        = 95.0
)

// Sink receives progress events. Calls are made from the export goroutine.
type Sink interface {
	Progress(models.ExportProgress)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(models.ExportProgress)

func (f SinkFunc) Progress(p models.ExportProgress) { f(p) }

// MessageSink adapts a (message, fraction) callback. The fraction is 0-100.
func MessageSink(fn func(message string, fraction float64)) Sink {
	return SinkFunc(func(p models.ExportProgress) {
		msg := p.Message
		if msg == "" {
			msg = p.Phase.Label()
		}
		fn(msg, p.Fraction)
	})
}

// Controller turns pipeline milestones into a monotonic progress stream.
type Controller struct {
	mu       sync.Mutex
	sink     Sink
	hasAudio bool
	stride   int
	now      func() time.Time

	phase    models.Phase
	fraction float64
	started  time.Time
}

// NewController creates a controller. A nil sink discards events; a stride
// below one reports every frame.
func NewController(sink Sink, hasAudio bool, stride int) *Controller {
	if stride < 1 {
		stride = 1
	}
	return &Controller{
		sink:     sink,
		hasAudio: hasAudio,
		stride:   stride,
		now:      time.Now,
		phase:    models.PhasePreparing,
	}
}

// SetAudio changes the weighting. It must be called before rendering starts.
func (c *Controller) SetAudio(hasAudio bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hasAudio = hasAudio
}

// Reset starts a new run at zero.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase = models.PhasePreparing
	c.fraction = 0
	c.started = time.Time{}
}

// Fraction returns the last reported fraction.
func (c *Controller) Fraction() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fraction
}

// Phase returns the current phase.
func (c *Controller) Phase() models.Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Controller) videoWeight() float64 {
	if c.hasAudio {
		return videoWeightWithAudio
	}
	return videoWeightAlone
}

// Begin reports the preparing phase.
func (c *Controller) Begin() {
	c.emit(models.PhasePreparing, 0, "Preparing export", 0, 0)
}

// Frame reports that frame i of total was submitted. Only every stride-th
// frame and the last one produce an event.
func (c *Controller) Frame(i, total int) {
	done := i + 1
	if total <= 0 || (done%c.stride != 0 && done != total) {
		return
	}
	c.mu.Lock()
	w := c.videoWeight()
	c.mu.Unlock()
	fraction := w * float64(done) / float64(total)
	c.emit(models.PhaseRenderingVideo, fraction, fmt.Sprintf("Rendering frame %d of %d", done, total), done, total)
}

// AudioChunk reports that chunk i of total was encoded.
func (c *Controller) AudioChunk(i, total int) {
	if total <= 0 {
		return
	}
	done := i + 1
	fraction := videoWeightWithAudio + audioWeight*float64(done)/float64(total)
	c.emit(models.PhaseEncodingAudio, fraction, fmt.Sprintf("Encoding audio %d/%d", done, total), 0, 0)
}

// Finalizing reports the start of flush and mux.
func (c *Controller) Finalizing() {
	c.emit(models.PhaseFinalizing, finalizeStart, "Finalizing", 0, 0)
}

// Done reports completion at 100%.
func (c *Controller) Done(message string) {
	if message == "" {
		message = "Export complete"
	}
	c.emit(models.PhaseDone, 100, message, 0, 0)
}

// Fail reports a failed run. The fraction does not move.
func (c *Controller) Fail(err error) {
	c.emit(models.PhaseError, 0, err.Error(), 0, 0)
}

// Cancelled reports a cancelled run.
func (c *Controller) Cancelled() {
	c.emit(models.PhaseCancelled, 0, "Export cancelled", 0, 0)
}

func (c *Controller) emit(phase models.Phase, fraction float64, message string, frame, total int) {
	c.mu.Lock()
	if c.phase.IsTerminal() {
		c.mu.Unlock()
		return
	}
	now := c.now()
	if c.started.IsZero() {
		c.started = now
	}
	fraction = math.Min(100, math.Max(c.fraction, fraction))
	c.fraction = fraction
	c.phase = phase
	event := models.ExportProgress{
		Phase:       phase,
		Fraction:    fraction,
		Message:     message,
		Frame:       frame,
		TotalFrames: total,
		StartedAt:   c.started,
		At:          now,
	}
	sink := c.sink
	c.mu.Unlock()

	if sink != nil {
		sink.Progress(event)
	}
}
