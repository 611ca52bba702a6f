package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"captionburn/models"
)

func TestLoadConfig_AllLayersPriority(t *testing.T) {
	tmpDir := t.TempDir()
	chdir(t, tmpDir)
	configPath := filepath.Join(tmpDir, "custom.yaml")

	// Create temporary input file for validation
	inputPath := filepath.Join(tmpDir, "test.mp4")
	writeFile(t, inputPath, "test")

	writeFile(t, configPath, `resolution: 720p
workers: 4
zoom: 1.2
style:
  font_size: 36
audio:
  bitrate: 96k
`)

	fs := parseFlags(t,
		"--config", configPath,
		"-i", inputPath,
		"-o", "out.mp4",
		"-r", "480p",
		"--workers", "8",
	)

	cfg, err := LoadConfig(fs)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	// CLI > File > Defaults
	if cfg.Resolution != models.Resolution480p {
		t.Errorf("Expected resolution 480p (from CLI), got %s", cfg.Resolution)
	}
	if cfg.Workers != 8 {
		t.Errorf("Expected workers 8 (from CLI), got %d", cfg.Workers)
	}
	if cfg.Zoom != 1.2 || cfg.Style.FontSize != 36 || cfg.Audio.Bitrate != "96k" {
		t.Errorf("Expected file values for zoom, font size and bitrate, got %v %v %s",
			cfg.Zoom, cfg.Style.FontSize, cfg.Audio.Bitrate)
	}
	if cfg.Container != "mp4" || cfg.Audio.SampleRate != 44100 {
		t.Errorf("Expected defaults for container and sample rate, got %s %d", cfg.Container, cfg.Audio.SampleRate)
	}
}

func TestLoad_DiscoversConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	chdir(t, tmpDir)
	t.Setenv("HOME", filepath.Join(tmpDir, "home"))

	writeFile(t, filepath.Join(tmpDir, "captionburn.toml"), "workers = 3\ncontainer = \"avi\"\n")

	cfg, err := Load(pflag.NewFlagSet("empty", pflag.ContinueOnError))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Workers != 3 || cfg.Container != "avi" {
		t.Errorf("Expected values from ./captionburn.toml, got workers=%d container=%s", cfg.Workers, cfg.Container)
	}
}

func TestLoad_AutoWorkers(t *testing.T) {
	tmpDir := t.TempDir()
	chdir(t, tmpDir)
	t.Setenv("HOME", tmpDir)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Workers != runtime.NumCPU() {
		t.Errorf("Expected %d workers, got %d", runtime.NumCPU(), cfg.Workers)
	}
}

func TestLoadConfig_ValidationErrors(t *testing.T) {
	tmpDir := t.TempDir()
	chdir(t, tmpDir)

	fs := parseFlags(t, "-i", filepath.Join(tmpDir, "missing.mp4"), "--zoom", "0.5")

	_, err := LoadConfig(fs)
	if err == nil {
		t.Fatal("Expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{"input file does not exist", "output file is required", "zoom must be at least 1"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Expected %q in error:\n%s", want, msg)
		}
	}
}

func TestLoadConfig_BadConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "broken.yaml")
	if err := os.WriteFile(configPath, []byte("zoom: [1"), 0644); err != nil {
		t.Fatal(err)
	}

	fs := parseFlags(t, "--config", configPath)
	if _, err := Load(fs); err == nil || !strings.Contains(err.Error(), configPath) {
		t.Errorf("Expected error naming the config file, got %v", err)
	}
}
