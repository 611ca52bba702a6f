// Package pipeline runs a caption burn-in export: it decodes the source on a
// fixed 30fps grid, composites the active caption onto every frame, encodes
// video and audio, and muxes the result into one container.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"captionburn/captions"
	"captionburn/chunker"
	"captionburn/compositor"
	"captionburn/ffmpeg"
	"captionburn/geometry"
	"captionburn/internal/exporterr"
	"captionburn/internal/timeutil"
	"captionburn/models"
	"captionburn/muxer"
)

// Pipeline runs exports against one backend. It holds no per-export state
// and may run several exports concurrently.
type Pipeline struct {
	backend Backend
	logger  hclog.Logger
}

// New creates a pipeline.
func New(backend Backend, logger hclog.Logger) *Pipeline {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Pipeline{backend: backend, logger: logger}
}

// Export runs one export to completion, failure or cancellation.
//
// On success the result carries the container bytes and a final 100%
// progress event has been sent. Failures return an *exporterr.Error and no
// result; a cancelled export returns an error satisfying
// exporterr.IsCancelled. Every resource the export opened is released
// before Export returns.
func (p *Pipeline) Export(ctx context.Context, opts *Options) (*models.ExportResult, error) {
	phase := string(models.PhasePreparing)
	if opts == nil {
		return nil, exporterr.Configuration(phase, "options", "options are required", nil)
	}
	if err := opts.Validate(); err != nil {
		return nil, exporterr.Configuration(phase, "options", "", err)
	}

	snap := opts.snapshot()
	runID := uuid.NewString()
	r := &run{
		opts:    snap,
		backend: p.backend,
		logger:  p.logger.With("run_id", runID),
		ctl:     NewController(snap.Progress, false, snap.ProgressStride),
		runID:   runID,
		started: time.Now(),
		phase:   models.PhasePreparing,
	}
	defer r.release()

	r.ctl.Begin()
	result, err := r.execute(ctx)
	if err != nil {
		if exporterr.IsCancelled(err) {
			r.logger.Info("export cancelled", "phase", r.phase)
			r.ctl.Cancelled()
		} else {
			r.logger.Error("export failed", "phase", r.phase, "error", err)
			r.ctl.Fail(err)
		}
		return nil, err
	}

	msg := "Export complete"
	if result.Degraded {
		msg = "Export complete with warnings: " + result.WarningSummary()
	}
	r.ctl.Done(msg)
	r.logger.Info("export finished",
		"size", humanize.Bytes(uint64(result.Size())),
		"geometry", result.Geometry.String(),
		"frames", result.Frames,
		"degraded", result.Degraded,
		"elapsed", result.Elapsed.Round(time.Millisecond))
	return result, nil
}

// run is the private state of one export.
type run struct {
	opts    Options
	backend Backend
	logger  hclog.Logger
	ctl     *Controller
	runID   string
	started time.Time
	phase   models.Phase

	sourcePath string
	spooled    string
	info       *models.SourceInfo
	plan       geometry.Plan
	withAudio  bool

	comp   *compositor.Compositor
	frames FrameSource
	venc   VideoEncoder
	audio  AudioSource
	aenc   AudioEncoder
	mux    muxer.Muxer

	degraded bool
	warnings []string
}

func (r *run) execute(ctx context.Context) (*models.ExportResult, error) {
	if err := r.prepare(ctx); err != nil {
		return nil, err
	}
	rendered, err := r.renderVideo(ctx)
	if err != nil {
		return nil, err
	}
	// an empty video track fails validation; audio alone is never delivered
	if r.withAudio && rendered > 0 {
		if err := r.encodeAudio(ctx); err != nil {
			return nil, err
		}
	}
	return r.finalize(ctx, rendered)
}

// fail classifies err, preferring cancellation when ctx is done.
func (r *run) fail(ctx context.Context, op string, err error, classify func(phase, op string, err error) *exporterr.Error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return exporterr.Cancelled(string(r.phase), ctxErr)
	}
	return classify(string(r.phase), op, err)
}

func configuration(phase, op string, err error) *exporterr.Error {
	return exporterr.Configuration(phase, op, "", err)
}

func (r *run) checkCancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return exporterr.Cancelled(string(r.phase), err)
	}
	return nil
}

func (r *run) prepare(ctx context.Context) error {
	if err := r.checkCancelled(ctx); err != nil {
		return err
	}
	if err := r.resolveSource(); err != nil {
		return r.fail(ctx, "source", err, configuration)
	}

	info, err := r.backend.Probe(ctx, r.sourcePath)
	if err != nil {
		return r.fail(ctx, "probe", err, exporterr.Decode)
	}
	r.info = info

	plan, err := geometry.Compute(info.Width, info.Height, r.opts.Resolution)
	if err != nil {
		return r.fail(ctx, "geometry", err, configuration)
	}
	if err := plan.Geometry.Validate(); err != nil {
		return r.fail(ctx, "geometry", err, configuration)
	}
	r.plan = plan
	r.logger.Info("export prepared",
		"source", fmt.Sprintf("%dx%d", info.Width, info.Height),
		"target", plan.Geometry.String(),
		"bitrate", plan.Bitrate,
		"duration", info.Duration,
		"captions", len(r.opts.Captions))

	comp, err := compositor.New(compositor.Config{
		Geometry: plan.Geometry,
		Style:    r.opts.Style.Scale(plan.Geometry.Height, info.Height),
		Zoom:     r.opts.Zoom,
		Fonts:    r.opts.Fonts,
	})
	if err != nil {
		return r.fail(ctx, "compositor", err, configuration)
	}
	r.comp = comp

	mux, err := r.backend.NewMuxer(r.opts.Container, muxer.Options{
		TempDir:   r.opts.TempDir,
		Width:     plan.Geometry.Width,
		Height:    plan.Geometry.Height,
		FrameRate: timeutil.FrameRate,
		Metadata:  r.opts.Metadata,
		Logger:    r.logger.Named("mux"),
	})
	if err != nil {
		return r.fail(ctx, "muxer", err, configuration)
	}
	r.mux = mux

	if info.HasAudio && r.opts.Audio {
		if mux.SupportsAudio() {
			r.withAudio = true
		} else {
			r.warn(fmt.Sprintf("%s output has no audio track; source audio was dropped", r.opts.Container))
		}
	}
	r.ctl.SetAudio(r.withAudio)

	frames, err := r.backend.OpenFrames(ctx, r.sourcePath, plan.Geometry)
	if err != nil {
		return r.fail(ctx, "open_frames", err, exporterr.Decode)
	}
	r.frames = frames

	venc, err := r.backend.NewVideoEncoder(ctx, VideoSettings{
		Geometry: plan.Geometry,
		Bitrate:  plan.Bitrate,
		Codec:    r.opts.Codec,
		Preset:   r.opts.Preset,
		Encoder:  r.opts.HWEncoder,
		HWAccel:  r.opts.HWAccel,
		HWDevice: r.opts.HWDevice,
		Quality:  r.opts.JPEGQuality,
	}, mux.AddVideo)
	if err != nil {
		return r.fail(ctx, "video_encoder", err, configuration)
	}
	r.venc = venc
	return nil
}

// resolveSource spools in-memory source bytes to a temporary file.
func (r *run) resolveSource() error {
	if len(r.opts.SourceData) == 0 {
		r.sourcePath = r.opts.SourcePath
		return nil
	}
	f, err := os.CreateTemp(r.opts.TempDir, "captionburn-src-*")
	if err != nil {
		return fmt.Errorf("failed to create source spool: %w", err)
	}
	r.spooled = f.Name()
	if _, err := f.Write(r.opts.SourceData); err != nil {
		f.Close()
		return fmt.Errorf("failed to spool source: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to spool source: %w", err)
	}
	r.sourcePath = r.spooled
	return nil
}

// renderVideo submits every grid frame and returns how many were encoded.
func (r *run) renderVideo(ctx context.Context) (int, error) {
	r.phase = models.PhaseRenderingVideo
	total := timeutil.FrameCount(r.info.Duration)
	canvas := image.NewRGBA(image.Rect(0, 0, r.plan.Geometry.Width, r.plan.Geometry.Height))

	for i := 0; i < total; i++ {
		if err := r.checkCancelled(ctx); err != nil {
			r.logger.Debug("cancelled before frame", "frame", i, "total", total)
			return i, err
		}

		t := timeutil.FrameTime(i)
		src, err := r.frames.FrameAt(ctx, t)
		if err != nil {
			return i, r.fail(ctx, fmt.Sprintf("frame_at %s", timeutil.FormatSeconds(t)), err, exporterr.Decode)
		}

		var active *models.Caption
		if c, ok := captions.Active(r.opts.Captions, t); ok {
			active = &c
		}
		if err := r.comp.RenderInto(canvas, src, active); err != nil {
			return i, r.fail(ctx, "render", err, exporterr.Encode)
		}
		if err := r.venc.Encode(ctx, canvas, timeutil.ToMicros(t)); err != nil {
			return i, r.fail(ctx, "encode_video", err, exporterr.Encode)
		}
		r.ctl.Frame(i, total)
	}
	return total, nil
}

// encodeAudio decodes the whole track once and feeds the encoder one
// planned chunk at a time.
func (r *run) encodeAudio(ctx context.Context) error {
	r.phase = models.PhaseEncodingAudio
	if err := r.checkCancelled(ctx); err != nil {
		return err
	}

	src, err := r.backend.OpenAudio(ctx, r.sourcePath, r.opts.SampleRate, r.opts.Channels)
	if err != nil {
		return r.fail(ctx, "open_audio", err, exporterr.Decode)
	}
	r.audio = src

	enc, err := r.backend.NewAudioEncoder(ctx, AudioSettings{
		SampleRate: src.SampleRate(),
		Channels:   src.Channels(),
		Bitrate:    r.opts.AudioBitrate,
	}, r.mux.AddAudio)
	if err != nil {
		return r.fail(ctx, "audio_encoder", err, configuration)
	}
	r.aenc = enc

	plan, err := chunker.NewChunker().SetSampleRate(src.SampleRate()).CreateChunks(r.info)
	if err != nil {
		return r.fail(ctx, "audio_plan", err, configuration)
	}
	if err := chunker.ValidateChunks(plan); err != nil {
		return r.fail(ctx, "audio_plan", err, configuration)
	}

	frameBytes := 2 * src.Channels()
	buf := make([]byte, plan[0].Samples*frameBytes)
	for i, chunk := range plan {
		if err := r.checkCancelled(ctx); err != nil {
			return err
		}
		n, err := src.ReadSamples(ctx, buf[:chunk.Samples*frameBytes])
		if errors.Is(err, io.EOF) {
			r.logger.Debug("audio ended before planned duration", "chunk", i, "chunks", len(plan))
			break
		}
		if err != nil {
			return r.fail(ctx, "read_audio", err, exporterr.Decode)
		}
		if err := enc.Encode(ctx, buf[:n]); err != nil {
			return r.fail(ctx, "encode_audio", err, exporterr.Encode)
		}
		r.ctl.AudioChunk(i, len(plan))
	}
	r.ctl.AudioChunk(len(plan)-1, len(plan))
	return nil
}

type flusher interface {
	Flush(ctx context.Context) error
	Close() error
}

// statsReporter is implemented by encoders backed by an ffmpeg process.
type statsReporter interface {
	Stats() models.EncoderStats
}

// flush drains an encoder with a bounded number of bounded attempts. When
// every attempt times out the encoder is force-closed and the export is
// marked degraded; whether the output is usable is decided by validation.
func (r *run) flush(ctx context.Context, name string, enc flusher) error {
	var lastErr error
	for attempt := 1; attempt <= r.opts.FlushAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, r.opts.FlushTimeout)
		err := enc.Flush(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return exporterr.Cancelled(string(r.phase), ctx.Err())
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			return exporterr.Encode(string(r.phase), name+"_flush", err)
		}
		lastErr = err
		r.logger.Warn("encoder flush timed out", "encoder", name, "attempt", attempt, "timeout", r.opts.FlushTimeout)
	}

	// read before Close, the process is gone afterwards
	progress := ""
	if sr, ok := enc.(statsReporter); ok {
		stats := sr.Stats()
		progress = fmt.Sprintf(", encoder stopped at frame %d (%.2fs)", stats.Frame, stats.Seconds)
		if r.logger.IsDebug() {
			if js, err := ffmpeg.FormatStatsJSON(stats); err == nil {
				r.logger.Debug("stalled encoder stats", "encoder", name, "stats", js)
			}
		}
	}

	if err := enc.Close(); err != nil {
		r.logger.Debug("force close failed", "encoder", name, "error", err)
	}
	timeout := exporterr.Timeout(string(r.phase), name+"_flush", lastErr)
	r.degraded = true
	r.warn(fmt.Sprintf("%s (%d attempts of %s%s); output may be truncated", timeout.Error(), r.opts.FlushAttempts, r.opts.FlushTimeout, progress))
	return nil
}

func (r *run) finalize(ctx context.Context, rendered int) (*models.ExportResult, error) {
	r.phase = models.PhaseFinalizing
	if err := r.checkCancelled(ctx); err != nil {
		return nil, err
	}
	r.ctl.Finalizing()

	if rendered == 0 {
		// Nothing to flush; the muxer reports the empty output.
		_, err := r.mux.Finalize(ctx)
		if err == nil {
			err = exporterr.Validation(string(r.phase), "mux", "source has no frames to encode", nil)
		}
		return nil, err
	}

	if err := r.flush(ctx, "video", r.venc); err != nil {
		return nil, err
	}
	if r.aenc != nil {
		if err := r.flush(ctx, "audio", r.aenc); err != nil {
			return nil, err
		}
	}

	videoUnits, audioUnits := r.mux.Counts()
	data, err := r.mux.Finalize(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, exporterr.Cancelled(string(r.phase), ctx.Err())
		}
		if errors.Is(err, exporterr.ErrValidation) {
			return nil, err
		}
		return nil, exporterr.Validation(string(r.phase), "mux", "container could not be written", err)
	}

	if err := r.validate(data); err != nil {
		return nil, err
	}

	result := &models.ExportResult{
		RunID:      r.runID,
		Data:       data,
		Container:  r.opts.Container,
		Geometry:   r.plan.Geometry,
		Bitrate:    r.plan.Bitrate,
		Duration:   float64(rendered) / timeutil.FrameRate,
		Frames:     rendered,
		VideoUnits: videoUnits,
		AudioUnits: audioUnits,
		Degraded:   r.degraded,
		Warnings:   r.warnings,
		Elapsed:    time.Since(r.started),
	}
	if err := result.Validate(); err != nil {
		return nil, exporterr.Validation(string(r.phase), "result", "", err)
	}
	return result, nil
}

// validate checks the container structure and the recorded dimensions.
func (r *run) validate(data []byte) error {
	info, err := muxer.Inspect(data, r.opts.Container)
	if err != nil {
		return exporterr.Validation(string(r.phase), "inspect", "output failed structural validation", err)
	}
	g := r.plan.Geometry
	if info.Width != 0 && (info.Width != g.Width || info.Height != g.Height) {
		return exporterr.Validation(string(r.phase), "inspect",
			fmt.Sprintf("output is %dx%d, expected %s", info.Width, info.Height, g), nil)
	}
	return nil
}

func (r *run) warn(msg string) {
	r.logger.Warn(msg)
	r.warnings = append(r.warnings, msg)
}

// release closes everything the export opened, in reverse order.
func (r *run) release() {
	if r.aenc != nil {
		r.closeQuietly("audio encoder", r.aenc)
	}
	if r.audio != nil {
		r.closeQuietly("audio source", r.audio)
	}
	if r.venc != nil {
		r.closeQuietly("video encoder", r.venc)
	}
	if r.frames != nil {
		r.closeQuietly("frame source", r.frames)
	}
	if r.mux != nil {
		r.closeQuietly("muxer", r.mux)
	}
	if r.comp != nil {
		r.closeQuietly("compositor", r.comp)
	}
	if r.spooled != "" {
		if err := os.Remove(r.spooled); err != nil && !os.IsNotExist(err) {
			r.logger.Debug("failed to remove source spool", "path", r.spooled, "error", err)
		}
	}
}

func (r *run) closeQuietly(name string, c io.Closer) {
	if err := c.Close(); err != nil {
		r.logger.Debug("release failed", "resource", name, "error", err)
	}
}
