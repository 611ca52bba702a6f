// Package preflight checks the environment before an export starts and
// guards the output file while it is written.
package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"

	"captionburn/internal/exporterr"
	"captionburn/models"
)

// ErrOutputLocked is returned when another export holds the output lock.
var ErrOutputLocked = errors.New("output file is locked by another export")

// sizeMargin is applied on top of the estimated output size.
const sizeMargin = 1.5

// LookBinary resolves an ffmpeg-family tool. An explicit path must exist;
// otherwise name is searched in PATH.
func LookBinary(name, explicit string) (string, error) {
	target := name
	if explicit != "" {
		target = explicit
	}
	path, err := exec.LookPath(target)
	if err != nil {
		return "", exporterr.Configuration(string(models.PhasePreparing), "preflight",
			fmt.Sprintf("%s not found", target), err)
	}
	return path, nil
}

// Binaries holds resolved tool paths.
type Binaries struct {
	FFmpeg  string
	FFprobe string
}

// CheckBinaries resolves ffmpeg and ffprobe and reports both failures at once.
func CheckBinaries(ffmpegPath, ffprobePath string) (Binaries, error) {
	var b Binaries
	var errs []error
	var err error
	if b.FFmpeg, err = LookBinary("ffmpeg", ffmpegPath); err != nil {
		errs = append(errs, err)
	}
	if b.FFprobe, err = LookBinary("ffprobe", ffprobePath); err != nil {
		errs = append(errs, err)
	}
	return b, errors.Join(errs...)
}

// EstimateOutputSize returns the expected container size in bytes for a
// video bitrate in bits per second over duration seconds.
func EstimateOutputSize(videoBitrate int, audioBitrate int, duration float64) uint64 {
	if duration <= 0 {
		return 0
	}
	bits := float64(videoBitrate+audioBitrate) * duration
	return uint64(bits / 8 * sizeMargin)
}

// FreeSpace returns the bytes available to unprivileged users in the
// filesystem holding dir.
func FreeSpace(ctx context.Context, dir string) (uint64, error) {
	usage, err := disk.UsageWithContext(ctx, dir)
	if err != nil {
		return 0, fmt.Errorf("disk usage for %s: %w", dir, err)
	}
	return usage.Free, nil
}

// CheckDiskSpace fails when the directory of output cannot hold need bytes.
func CheckDiskSpace(ctx context.Context, output string, need uint64) error {
	if need == 0 {
		return nil
	}
	dir := filepath.Dir(output)
	free, err := FreeSpace(ctx, dir)
	if err != nil {
		return err
	}
	if free < need {
		return exporterr.Configuration(string(models.PhasePreparing), "preflight",
			fmt.Sprintf("not enough space in %s: %s free, about %s needed",
				dir, humanize.IBytes(free), humanize.IBytes(need)), nil)
	}
	return nil
}

// Host describes the machine for the probe command.
type Host struct {
	TotalMemory     uint64
	AvailableMemory uint64
	TempFree        uint64
}

// InspectHost reports memory and temp dir space. Missing values stay zero.
func InspectHost(ctx context.Context, tempDir string) Host {
	var h Host
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		h.TotalMemory = vm.Total
		h.AvailableMemory = vm.Available
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	if free, err := FreeSpace(ctx, tempDir); err == nil {
		h.TempFree = free
	}
	return h
}
