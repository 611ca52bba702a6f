package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"captionburn/internal/exporterr"
	"captionburn/models"
)

const defaultDebounce = 500 * time.Millisecond

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-export whenever the caption file changes",
		Long: `Export once, then watch the caption file and export again after every
change. A change during an export cancels it and starts over. Stop with Ctrl+C.`,
		Example: `  captionburn watch -i movie.mp4 -c captions.json -o preview.mp4 --resolution 240p`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.ValidateExport(); err != nil {
				return exporterr.Configuration(string(models.PhasePreparing), "config", "", err)
			}
			if cfg.Captions == "" {
				return exporterr.Configuration(string(models.PhasePreparing), "watch", "a caption file to watch is required", nil)
			}
			logger, err := ctx.logger(cfg, "watch")
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			run := func(runCtx context.Context) {
				result, err := ctx.export(runCtx, ctx, cfg, ctx.stderr)
				switch {
				case err == nil:
					printSummary(out, cfg.Output, result)
				case exporterr.IsCancelled(err):
					logger.Info("export superseded")
				default:
					logger.Error("export failed", "error", err)
				}
			}

			fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", cfg.Captions)
			return watchLoop(cmd.Context(), []string{cfg.Captions}, debounce, logger, run)
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", defaultDebounce, "Quiet period after a change before exporting")

	return cmd
}

// watchLoop runs run once, then again whenever one of files changes and
// stays quiet for debounce. At most one run is in flight: a new change
// cancels the running one and waits for it before starting over. The
// parent directories are watched so editors that replace the file by
// rename are still seen.
func watchLoop(ctx context.Context, files []string, debounce time.Duration, logger hclog.Logger, run func(context.Context)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	targets := make(map[string]bool, len(files))
	dirs := make(map[string]bool, len(files))
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", f, err)
		}
		targets[abs] = true
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	cancelRun := context.CancelFunc(func() {})
	done := make(chan struct{})
	close(done)

	stop := func() {
		cancelRun()
		<-done
	}
	start := func() {
		stop()
		runCtx, cancel := context.WithCancel(ctx)
		finished := make(chan struct{})
		cancelRun, done = cancel, finished
		go func() {
			defer close(finished)
			defer cancel()
			run(runCtx)
		}()
	}

	// fires immediately for the initial export
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			stop()
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				stop()
				return nil
			}
			if !targets[filepath.Clean(event.Name)] {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			logger.Debug("change detected", "file", event.Name, "op", event.Op.String())
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				stop()
				return nil
			}
			logger.Warn("watch error", "error", err)

		case <-timer.C:
			start()
		}
	}
}
