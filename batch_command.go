package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"captionburn/config"
	"captionburn/internal/exporterr"
	"captionburn/models"
	"captionburn/orchestrator"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var gpuSlots int

	cmd := &cobra.Command{
		Use:   "batch <manifest.yaml>",
		Short: "Run many exports, honouring dependencies between them",
		Long: `Run the exports listed in a YAML manifest. Each job overrides the
effective configuration; "after" names jobs that must finish first. A failed
job fails everything that depends on it, other jobs keep running.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.loadConfig(cmd)
			if err != nil {
				return err
			}
			m, err := loadManifest(args[0])
			if err != nil {
				return exporterr.Configuration(string(models.PhasePreparing), "manifest", "", err)
			}

			orch, err := buildBatch(ctx, base, m, gpuSlots)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			orch.SetProgressCallback(func(completed, total int, task *orchestrator.Task) {
				fmt.Fprintf(out, "[%d/%d] %s %s\n", completed, total, task.ID, task.Status)
			})

			start := time.Now()
			results, err := orch.Execute(cmd.Context())
			if err != nil {
				return exporterr.Configuration(string(models.PhasePreparing), "batch", "", err)
			}

			failed := printBatchResults(out, results)
			fmt.Fprintf(out, "%d of %d exports succeeded in %s\n",
				len(results)-failed, len(results), time.Since(start).Round(time.Second))

			if err := cmd.Context().Err(); err != nil {
				return exporterr.Cancelled(string(models.PhasePreparing), err)
			}
			if failed > 0 {
				return fmt.Errorf("%d batch exports failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&gpuSlots, "gpu-slots", 1, "Concurrent hardware encoder sessions")

	return cmd
}

// buildBatch validates every job against the base config and schedules it.
// All invalid jobs are reported together before anything runs.
func buildBatch(ctx *commandContext, base *config.Config, m *manifest, gpuSlots int) (*orchestrator.DAGOrchestrator, error) {
	orch := orchestrator.NewDAGOrchestrator([]orchestrator.ResourceConstraint{
		{Type: orchestrator.ResourceCPU, MaxSlots: base.Workers},
		{Type: orchestrator.ResourceGPUEncode, MaxSlots: gpuSlots},
	})

	// inputs written by an earlier job do not exist yet
	produced := make(map[string]bool, len(m.Jobs))
	for _, job := range m.Jobs {
		produced[job.Output] = true
	}

	var problems []error
	for _, job := range m.Jobs {
		cfg, err := job.config(base)
		if err == nil {
			if produced[cfg.Input] {
				err = cfg.Validate()
			} else {
				err = cfg.ValidateExport()
			}
		}
		if err != nil {
			problems = append(problems, fmt.Errorf("job %s: %w", job.ID, err))
			continue
		}

		task := &orchestrator.Task{
			ID:           job.ID,
			Dependencies: job.After,
			Resource:     resourceFor(cfg),
			Job: orchestrator.JobFunc{
				Output: cfg.Output,
				Fn: func(runCtx context.Context) (*models.ExportResult, error) {
					// progress lines from parallel exports would interleave
					return ctx.export(runCtx, ctx, cfg, io.Discard)
				},
			},
		}
		if err := orch.AddTask(task); err != nil {
			problems = append(problems, err)
		}
	}
	if len(problems) > 0 {
		return nil, exporterr.Configuration(string(models.PhasePreparing), "manifest", "", errors.Join(problems...))
	}
	return orch, nil
}

func printBatchResults(w io.Writer, results []*orchestrator.TaskResult) int {
	failed := 0
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		status, size, detail := "ok", "", ""
		if r.Success {
			size = humanize.Bytes(uint64(r.Export.Size()))
			detail = r.Export.Geometry.String()
			if r.Export.Degraded {
				status = "degraded"
				detail = r.Export.WarningSummary()
			}
		} else {
			failed++
			status = "failed"
			if exporterr.IsCancelled(r.Error) {
				status = "cancelled"
			}
			if r.Error != nil {
				detail = r.Error.Error()
			}
		}
		rows = append(rows, []string{r.TaskID, status, r.OutputPath, size, r.Elapsed.Round(time.Millisecond).String(), detail})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"Job", "Status", "Output", "Size", "Elapsed", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	))
	return failed
}
