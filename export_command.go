package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"captionburn/captions"
	"captionburn/config"
	"captionburn/geometry"
	"captionburn/internal/exporterr"
	"captionburn/internal/preflight"
	"captionburn/models"
	"captionburn/pipeline"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export [input]",
		Short: "Burn captions into a video",
		Example: `  captionburn export -i movie.mp4 -c captions.json -o burned.mp4
  captionburn export -i movie.mp4 -c captions.srt -o small.mp4 --resolution 480p --zoom 1.2
  captionburn export -i movie.mp4 -c captions.json -o preview.avi --container avi --no-audio
  captionburn export -i movie.mp4 -o out.mp4 --dry-run`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			if len(args) == 1 && !cmd.Flags().Changed("input") {
				cfg.Input = args[0]
			}
			if err := cfg.ValidateExport(); err != nil {
				return exporterr.Configuration(string(models.PhasePreparing), "config", "", err)
			}

			out := cmd.OutOrStdout()
			if cfg.DryRun {
				cfg.WriteTable(out)
				fmt.Fprintln(out, "Configuration is valid. No export will be performed.")
				return nil
			}

			result, err := ctx.export(cmd.Context(), ctx, cfg, ctx.stderr)
			if err != nil {
				return err
			}
			printSummary(out, cfg.Output, result)
			return nil
		},
	}
}

// runExport is the production exportFunc: preflight, export, atomic write.
func runExport(ctx context.Context, cc *commandContext, cfg *config.Config, progress io.Writer) (*models.ExportResult, error) {
	phase := string(models.PhasePreparing)

	logger, err := cc.logger(cfg, "export")
	if err != nil {
		return nil, exporterr.Configuration(phase, "logger", "", err)
	}
	logger = logger.With("output", cfg.Output)

	backend, err := cc.newBackend(cfg, logger)
	if err != nil {
		return nil, err
	}

	lock, err := preflight.LockOutput(cfg.Output)
	if err != nil {
		return nil, exporterr.Configuration(phase, "lock", "", err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release output lock", "lock", lock.Path(), "error", err)
		}
	}()

	var list []models.Caption
	if cfg.Captions != "" {
		list, err = captions.LoadFile(cfg.Captions)
		if err != nil {
			return nil, exporterr.Configuration(phase, "captions", "", err)
		}
		logger.Debug("captions loaded", "count", len(list), "end", captions.End(list))
		for _, w := range overlapWarnings(list) {
			logger.Warn(w)
		}
	}

	if err := checkSpace(ctx, backend, cfg); err != nil {
		return nil, err
	}

	opts := cfg.ToOptions(list).
		WithMetadata("comment", "captions burned by captionburn").
		WithProgress(newProgressSink(progress, logger))

	result, err := pipeline.New(backend, logger).Export(ctx, opts)
	if err != nil {
		return nil, err
	}

	if err := preflight.WriteAtomic(cfg.Output, result.Data, 0644); err != nil {
		return nil, exporterr.Validation(string(models.PhaseFinalizing), "write", "output could not be written", err)
	}
	return result, nil
}

// checkSpace estimates the output size from the policy bitrate and fails
// early when the output filesystem is too small. Probe failures are left
// for the export to report.
func checkSpace(ctx context.Context, backend pipeline.Backend, cfg *config.Config) error {
	info, err := backend.Probe(ctx, cfg.Input)
	if err != nil {
		return nil
	}
	plan, err := geometry.Compute(info.Width, info.Height, cfg.Resolution)
	if err != nil {
		return nil
	}
	audioBits := 0
	if cfg.Audio.Enabled && info.HasAudio {
		if n, err := humanize.ParseBytes(cfg.Audio.Bitrate); err == nil {
			audioBits = int(n)
		}
	}
	need := preflight.EstimateOutputSize(plan.Bitrate, audioBits, info.Duration)
	return preflight.CheckDiskSpace(ctx, cfg.Output, need)
}

// overlapWarnings describes captions that are on screen at the same time.
// While they overlap only the earlier one in the file is drawn.
func overlapWarnings(list []models.Caption) []string {
	sorted := captions.Sorted(list)
	var out []string
	for _, pair := range captions.Overlaps(sorted) {
		a, b := sorted[pair[0]], sorted[pair[1]]
		out = append(out, fmt.Sprintf("captions %s and %s overlap from %.3fs to %.3fs",
			a.ID, b.ID, max(a.StartTime, b.StartTime), min(a.EndTime, b.EndTime)))
	}
	return out
}

func printSummary(w io.Writer, output string, result *models.ExportResult) {
	fmt.Fprintf(w, "Wrote %s (%s, %s, %s frames, %.1fs) in %s\n",
		output,
		humanize.Bytes(uint64(result.Size())),
		result.Geometry,
		humanize.Comma(int64(result.Frames)),
		result.Duration,
		result.Elapsed.Round(10*time.Millisecond))
	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warning)
	}
}
