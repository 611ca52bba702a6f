package main

import (
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"captionburn/captions"
	"captionburn/compositor"
	"captionburn/config"
	"captionburn/geometry"
	"captionburn/internal/exporterr"
	"captionburn/models"
	"captionburn/pipeline"
)

const defaultSnapshotPath = "snapshot.png"

func newSnapshotCommand(ctx *commandContext) *cobra.Command {
	var at float64
	var width int

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Render one composited frame to an image",
		Example: `  captionburn snapshot -i movie.mp4 -c captions.json --at 12.5 -o frame.png
  captionburn snapshot -i movie.mp4 -c captions.json --at 3 --width 320 -o thumb.jpg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Input == "" {
				return exporterr.Configuration(string(models.PhasePreparing), "snapshot", "input file is required", nil)
			}
			if at < 0 {
				return exporterr.Configuration(string(models.PhasePreparing), "snapshot", "--at cannot be negative", nil)
			}
			output := cfg.Output
			if output == "" {
				output = defaultSnapshotPath
			}

			logger, err := ctx.logger(cfg, "snapshot")
			if err != nil {
				return err
			}
			backend, err := ctx.newBackend(cfg, logger)
			if err != nil {
				return err
			}

			img, err := renderSnapshot(cmd.Context(), backend, cfg, at, logger)
			if err != nil {
				return err
			}
			if width > 0 {
				img = imaging.Resize(img, width, 0, imaging.Lanczos)
			}
			if err := imaging.Save(img, output); err != nil {
				return fmt.Errorf("save snapshot: %w", err)
			}

			b := img.Bounds()
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%dx%d at %.3fs)\n", output, b.Dx(), b.Dy(), at)
			return nil
		},
	}

	cmd.Flags().Float64Var(&at, "at", 0, "Source time in seconds")
	cmd.Flags().IntVar(&width, "width", 0, "Resize the image to this width, keeping the aspect ratio")

	return cmd
}

// renderSnapshot composites the frame at t exactly as an export would.
func renderSnapshot(ctx context.Context, backend pipeline.Backend, cfg *config.Config, t float64, logger hclog.Logger) (image.Image, error) {
	phase := string(models.PhasePreparing)

	var list []models.Caption
	if cfg.Captions != "" {
		var err error
		if list, err = captions.LoadFile(cfg.Captions); err != nil {
			return nil, exporterr.Configuration(phase, "captions", "", err)
		}
	}

	info, err := backend.Probe(ctx, cfg.Input)
	if err != nil {
		return nil, exporterr.Decode(phase, "probe", err)
	}
	if t > info.Duration {
		return nil, exporterr.Configuration(phase, "snapshot",
			fmt.Sprintf("time %.3fs is past the end of the source (%.3fs)", t, info.Duration), nil)
	}

	plan, err := geometry.Compute(info.Width, info.Height, cfg.Resolution)
	if err != nil {
		return nil, exporterr.Configuration(phase, "geometry", "", err)
	}

	comp, err := compositor.New(compositor.Config{
		Geometry: plan.Geometry,
		Style:    cfg.Style.Scale(plan.Geometry.Height, info.Height),
		Zoom:     cfg.Zoom,
	})
	if err != nil {
		return nil, exporterr.Configuration(phase, "compositor", "", err)
	}
	defer comp.Close()

	frames, err := backend.OpenFrames(ctx, cfg.Input, plan.Geometry)
	if err != nil {
		return nil, exporterr.Decode(phase, "open_frames", err)
	}
	defer frames.Close()

	src, err := frames.FrameAt(ctx, t)
	if err != nil {
		return nil, exporterr.Decode(string(models.PhaseRenderingVideo), "frame_at", err)
	}

	var active *models.Caption
	if c, ok := captions.Active(list, t); ok {
		active = &c
		logger.Debug("caption active", "id", c.ID, "text", c.Text)
	}
	return comp.Render(src, active), nil
}
