package config

import (
	"fmt"
	"runtime"

	"github.com/spf13/pflag"
)

// Load builds the configuration with priority: CLI flags > config file >
// defaults. It does not validate; callers pick Validate or ValidateExport
// depending on what the command needs.
func Load(fs *pflag.FlagSet) (*Config, error) {
	// 1. Start with defaults
	cfg := DefaultConfig()

	// 2. Explicit --config wins over the search path
	configPath := ""
	if fs != nil {
		if f := fs.Lookup("config"); f != nil && f.Changed {
			configPath = f.Value.String()
		}
	}
	if configPath == "" {
		configPath = FindConfigFile()
	}

	if configPath != "" {
		fileCfg, err := LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg = fileCfg
	}

	// 3. Merge CLI flags (highest priority, overwrites everything)
	if fs != nil {
		if err := cfg.MergeFromFlags(fs); err != nil {
			return nil, err
		}
	}

	// Auto-detect workers if set to 0
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}

	return cfg, nil
}

// LoadConfig loads and validates the configuration for an export.
func LoadConfig(fs *pflag.FlagSet) (*Config, error) {
	cfg, err := Load(fs)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateExport(); err != nil {
		return nil, err
	}
	return cfg, nil
}
