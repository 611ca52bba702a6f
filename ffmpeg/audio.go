package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hashicorp/go-hclog"

	"captionburn/command/audio"
	"captionburn/models"
)

// PCMDecoder streams the source's audio as interleaved s16le samples.
type PCMDecoder struct {
	proc       *Process
	sampleRate int
	channels   int
	eof        bool
}

// PCMDecoderConfig selects the source and PCM layout.
type PCMDecoderConfig struct {
	Binary     string
	SourcePath string
	SampleRate int
	Channels   int
}

// NewPCMDecoder starts the decoder process.
func NewPCMDecoder(ctx context.Context, cfg PCMDecoderConfig, logger hclog.Logger) (*PCMDecoder, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	builder := audio.NewDecodeBuilder(cfg.SourcePath).SetBinary(cfg.Binary)
	if cfg.SampleRate > 0 {
		builder.SetSampleRate(cfg.SampleRate)
	}
	if cfg.Channels > 0 {
		builder.SetChannels(cfg.Channels)
	}
	if _, err := builder.DryRun(); err != nil {
		return nil, err
	}

	proc, err := Start(ctx, builder, logger)
	if err != nil {
		return nil, err
	}
	return &PCMDecoder{
		proc:       proc,
		sampleRate: builder.SampleRate(),
		channels:   builder.Channels(),
	}, nil
}

// SampleRate returns the PCM sample rate.
func (d *PCMDecoder) SampleRate() int { return d.sampleRate }

// Channels returns the PCM channel count.
func (d *PCMDecoder) Channels() int { return d.channels }

// ReadSamples fills buf with up to len(buf)/(2*channels) sample frames and
// returns the byte count. The final chunk may be short; afterwards io.EOF.
func (d *PCMDecoder) ReadSamples(ctx context.Context, buf []byte) (int, error) {
	if d.eof {
		return 0, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	frameBytes := audio.BytesPerSample * d.channels
	want := len(buf) - len(buf)%frameBytes
	n, err := io.ReadFull(d.proc.Stdout(), buf[:want])
	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		d.eof = true
		if werr := d.proc.Wait(); werr != nil {
			return 0, werr
		}
		n -= n % frameBytes
		if n == 0 {
			return 0, io.EOF
		}
		return n, nil
	default:
		return 0, fmt.Errorf("failed to read PCM: %w", err)
	}
}

// Close stops the decoder.
func (d *PCMDecoder) Close() error {
	if d.eof {
		return nil
	}
	_ = d.proc.Kill()
	return nil
}

// AACEncoderConfig holds the encoder parameters.
type AACEncoderConfig struct {
	Binary     string
	Codec      string
	Bitrate    string
	SampleRate int
	Channels   int
}

// AACEncoder encodes PCM to AAC. Units are timed by the samples they
// decode to, starting at zero.
type AACEncoder struct {
	core       *streamEncoder
	sampleRate int
	samples    int64
}

// NewAACEncoder starts the encoder process.
func NewAACEncoder(ctx context.Context, cfg AACEncoderConfig, sink UnitSink, logger hclog.Logger) (*AACEncoder, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	builder := audio.NewEncodeBuilder().SetBinary(cfg.Binary)
	if cfg.Codec != "" {
		builder.SetCodec(cfg.Codec)
	}
	if cfg.Bitrate != "" {
		builder.SetBitrate(cfg.Bitrate)
	}
	if cfg.SampleRate > 0 {
		builder.SetSampleRate(cfg.SampleRate)
	}
	if cfg.Channels > 0 {
		builder.SetChannels(cfg.Channels)
	}
	if _, err := builder.DryRun(); err != nil {
		return nil, err
	}

	a := &AACEncoder{sampleRate: builder.SampleRate()}
	core, err := startStreamEncoder(ctx, builder, SplitADTSFrames, a.unit, sink, logger)
	if err != nil {
		return nil, err
	}
	a.core = core
	return a, nil
}

func (a *AACEncoder) unit(data []byte) (models.AccessUnit, error) {
	h, err := ParseADTSHeader(data)
	if err != nil {
		return models.AccessUnit{}, err
	}
	rate := int64(h.SampleRate)
	if rate <= 0 {
		rate = int64(a.sampleRate)
	}
	start := a.samples * 1_000_000 / rate
	a.samples += int64(h.Samples())
	end := a.samples * 1_000_000 / rate

	return models.AccessUnit{
		Stream:      models.StreamAudio,
		Data:        data,
		TimestampUs: start,
		DurationUs:  end - start,
		Keyframe:    true,
	}, nil
}

// Encode submits interleaved s16le PCM.
func (a *AACEncoder) Encode(ctx context.Context, pcm []byte) error {
	if len(pcm) == 0 {
		return nil
	}
	return a.core.write(ctx, pcm)
}

// Flush ends the input and waits for the remaining units, or for ctx.
func (a *AACEncoder) Flush(ctx context.Context) error {
	return a.core.flush(ctx)
}

// Close stops the encoder without waiting for pending output.
func (a *AACEncoder) Close() error {
	return a.core.close()
}

// Stats returns the encoder's latest progress counters.
func (a *AACEncoder) Stats() models.EncoderStats {
	return a.core.stats()
}
