package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"captionburn/config"
	"captionburn/models"
	"captionburn/orchestrator"
)

// manifest lists the exports of a batch run.
//
//	jobs:
//	  - id: trailer
//	    input: trailer.mp4
//	    captions: trailer.json
//	    output: out/trailer.mp4
//	  - id: trailer-small
//	    input: out/trailer.mp4
//	    output: out/trailer-240p.mp4
//	    resolution: 240p
//	    after: [trailer]
type manifest struct {
	Jobs []manifestJob `yaml:"jobs"`
}

// manifestJob overrides the base configuration for one export. Relative
// paths are resolved against the manifest's directory.
type manifestJob struct {
	ID         string             `yaml:"id"`
	Input      string             `yaml:"input"`
	Captions   string             `yaml:"captions"`
	Output     string             `yaml:"output"`
	Resolution *models.Resolution `yaml:"resolution"`
	Zoom       *float64           `yaml:"zoom"`
	Container  string             `yaml:"container"`
	Audio      *bool              `yaml:"audio"`
	Style      yaml.Node          `yaml:"style"`
	HWEncoder  string             `yaml:"hw_encoder"`
	HWAccel    string             `yaml:"hw_accel"`
	After      []string           `yaml:"after"`
}

func loadManifest(path string) (*manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if len(m.Jobs) == 0 {
		return nil, fmt.Errorf("manifest %s has no jobs", path)
	}

	base := filepath.Dir(path)
	seen := make(map[string]bool, len(m.Jobs))
	for i := range m.Jobs {
		job := &m.Jobs[i]
		if job.ID == "" {
			job.ID = fmt.Sprintf("job-%d", i+1)
		}
		if seen[job.ID] {
			return nil, fmt.Errorf("duplicate job id %q", job.ID)
		}
		seen[job.ID] = true
		if job.Input == "" || job.Output == "" {
			return nil, fmt.Errorf("job %s needs an input and an output", job.ID)
		}
		job.Input = resolvePath(base, job.Input)
		job.Captions = resolvePath(base, job.Captions)
		job.Output = resolvePath(base, job.Output)
	}
	return &m, nil
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// config applies the job's overrides to a copy of base. Style keys not
// named by the job keep the base value.
func (j manifestJob) config(base *config.Config) (*config.Config, error) {
	cfg := base.Copy()
	cfg.Input = j.Input
	cfg.Captions = j.Captions
	cfg.Output = j.Output
	if j.Resolution != nil {
		cfg.Resolution = *j.Resolution
	}
	if j.Zoom != nil {
		cfg.Zoom = *j.Zoom
	}
	if j.Container != "" {
		cfg.Container = strings.ToLower(j.Container)
	}
	if j.Audio != nil {
		cfg.Audio.Enabled = *j.Audio
	}
	if !j.Style.IsZero() {
		if err := j.Style.Decode(&cfg.Style); err != nil {
			return nil, fmt.Errorf("job %s: style: %w", j.ID, err)
		}
	}
	if j.HWEncoder != "" {
		cfg.Video.HWEncoder = j.HWEncoder
		cfg.Video.HWAccel = j.HWAccel
	}
	return cfg, nil
}

// resourceFor picks the scheduler slot an export competes for.
func resourceFor(cfg *config.Config) orchestrator.ResourceType {
	if cfg.Video.HWEncoder != "" {
		return orchestrator.ResourceGPUEncode
	}
	return orchestrator.ResourceCPU
}
