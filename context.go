package main

import (
	"context"
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"captionburn/config"
	"captionburn/internal/logging"
	"captionburn/internal/preflight"
	"captionburn/models"
	"captionburn/pipeline"
)

// exportFunc runs one export for cfg and writes cfg.Output.
type exportFunc func(ctx context.Context, cc *commandContext, cfg *config.Config, progress io.Writer) (*models.ExportResult, error)

type commandContext struct {
	// stderr receives logs and the progress line
	stderr io.Writer

	newBackend func(cfg *config.Config, logger hclog.Logger) (pipeline.Backend, error)
	export     exportFunc
}

func newCommandContext() *commandContext {
	return &commandContext{
		stderr:     os.Stderr,
		newBackend: ffmpegBackend,
		export:     runExport,
	}
}

// ffmpegBackend resolves the ffmpeg tools and builds the production backend.
func ffmpegBackend(cfg *config.Config, logger hclog.Logger) (pipeline.Backend, error) {
	bins, err := preflight.CheckBinaries(cfg.FFmpeg, cfg.FFprobe)
	if err != nil {
		return nil, err
	}
	logger.Debug("using ffmpeg tools", "ffmpeg", bins.FFmpeg, "ffprobe", bins.FFprobe)
	return pipeline.NewFFmpegBackend(bins.FFmpeg, bins.FFprobe, logger), nil
}

// loadConfig merges defaults, the config file and the command's flags.
func (c *commandContext) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *commandContext) logger(cfg *config.Config, name string) (hclog.Logger, error) {
	return logging.New(logging.Options{
		Name:   name,
		Level:  cfg.Log.Level,
		Format: logging.Format(cfg.Log.Format),
		Output: c.stderr,
	})
}
