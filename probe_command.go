package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"captionburn/geometry"
	"captionburn/internal/exporterr"
	"captionburn/internal/preflight"
	"captionburn/models"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <input>",
		Short: "Show source details and the output size of every resolution tier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cfg, "probe")
			if err != nil {
				return err
			}
			backend, err := ctx.newBackend(cfg, logger)
			if err != nil {
				return err
			}

			info, err := backend.Probe(cmd.Context(), args[0])
			if err != nil {
				return exporterr.Decode(string(models.PhasePreparing), "probe", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Source", "Value"},
				sourceRows(info),
				nil,
			))
			fmt.Fprintln(out, renderTable(
				[]string{"Tier", "Geometry", "Bitrate", "Est. Size"},
				tierRows(info),
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
			))

			host := preflight.InspectHost(cmd.Context(), cfg.Export.TempDir)
			if host.TotalMemory > 0 {
				fmt.Fprintf(out, "Memory: %s available of %s, temp space: %s free\n",
					humanize.IBytes(host.AvailableMemory), humanize.IBytes(host.TotalMemory), humanize.IBytes(host.TempFree))
			}
			return nil
		},
	}
}

func sourceRows(info *models.SourceInfo) [][]string {
	audio := "none"
	if info.HasAudio {
		audio = fmt.Sprintf("%s, %d Hz", info.AudioCodec, info.SampleRate)
	}
	rows := [][]string{
		{"Path", info.Path},
		{"Format", info.FormatName},
		{"Video", fmt.Sprintf("%s %dx%d @ %.3g fps", info.VideoCodec, info.Width, info.Height, info.FrameRate)},
		{"Audio", audio},
		{"Duration", fmt.Sprintf("%.2fs", info.Duration)},
	}
	if info.Rotation != 0 {
		rows = append(rows, []string{"Rotation", strconv.Itoa(info.Rotation)})
	}
	if info.Size > 0 {
		rows = append(rows, []string{"Size", humanize.Bytes(uint64(info.Size))})
	}
	return rows
}

// tierRows evaluates the dimension/bitrate policy for every tier. Tiers the
// source cannot produce show the error instead.
func tierRows(info *models.SourceInfo) [][]string {
	var rows [][]string
	for _, tier := range models.ResolutionValues() {
		plan, err := geometry.Compute(info.Width, info.Height, tier)
		if err != nil {
			rows = append(rows, []string{tier.String(), err.Error(), "", ""})
			continue
		}
		size := preflight.EstimateOutputSize(plan.Bitrate, 0, info.Duration)
		rows = append(rows, []string{
			tier.String(),
			plan.Geometry.String(),
			humanize.SI(float64(plan.Bitrate), "bps"),
			humanize.Bytes(size),
		})
	}
	return rows
}
