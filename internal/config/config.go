// Package config loads the p4mid.toml project manifest. The manifest is
// optional; every field has a working default.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the decoded p4mid.toml.
type Config struct {
	Midend MidendConfig `toml:"midend"`
	Schema SchemaConfig `toml:"schema"`
	Output OutputConfig `toml:"output"`
}

// MidendConfig controls the inlining passes.
type MidendConfig struct {
	// AllowMultipleCalls permits inlining instances applied more than
	// once.
	AllowMultipleCalls bool `toml:"allow_multiple_calls"`

	// AllowNestedControls permits flattening controls instantiated
	// inside other controls. On by default.
	AllowNestedControls bool `toml:"allow_nested_controls"`

	// MaxDiagnostics bounds the number of reported diagnostics.
	MaxDiagnostics int `toml:"max_diagnostics"`
}

// SchemaConfig controls runtime schema generation.
type SchemaConfig struct {
	// Cache enables the content-addressed disk cache.
	Cache bool `toml:"cache"`

	// CacheDir overrides the default cache location.
	CacheDir string `toml:"cache_dir"`
}

// OutputConfig is the decoded [output] section. The inline and schema
// commands do not read it; they take their output directory from
// --out-dir only.
type OutputConfig struct {
	Dir string `toml:"dir"`
}

// Default returns the configuration used when no manifest is found.
func Default() Config {
	return Config{
		Midend: MidendConfig{AllowNestedControls: true, MaxDiagnostics: 100},
		Schema: SchemaConfig{Cache: false},
	}
}

// Manifest couples a loaded config with its location.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// Find walks from startDir to the filesystem root looking for
// p4mid.toml.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, "p4mid.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load returns the manifest closest to startDir, or the defaults when
// none exists.
func Load(startDir string) (*Manifest, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &Manifest{Config: Default()}, nil
	}
	cfg, err := decodeFile(path)
	if err != nil {
		return nil, err
	}
	return &Manifest{
		Path:   path,
		Root:   filepath.Dir(path),
		Config: cfg,
	}, nil
}

func decodeFile(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if meta.IsDefined("midend", "max_diagnostics") && cfg.Midend.MaxDiagnostics <= 0 {
		return Config{}, fmt.Errorf("%s: [midend].max_diagnostics must be positive", path)
	}
	if meta.IsDefined("schema", "cache_dir") && strings.TrimSpace(cfg.Schema.CacheDir) == "" {
		return Config{}, fmt.Errorf("%s: [schema].cache_dir must not be blank", path)
	}
	return cfg, nil
}
