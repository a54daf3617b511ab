package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeManifest(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "p4mid.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLoadDefaultsWithoutManifest(t *testing.T) {
	m, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Path != "" || m.Root != "" {
		t.Fatalf("defaults must carry no location, got %q %q", m.Path, m.Root)
	}
	if m.Config.Midend.MaxDiagnostics != 100 {
		t.Fatalf("default max_diagnostics: got %d", m.Config.Midend.MaxDiagnostics)
	}
	if m.Config.Midend.AllowMultipleCalls {
		t.Fatalf("multiple calls must default to off")
	}
	if !m.Config.Midend.AllowNestedControls {
		t.Fatalf("nested controls must default to on")
	}
	if m.Config.Schema.Cache {
		t.Fatalf("cache must default to off")
	}
}

func TestLoadReadsManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
[midend]
allow_multiple_calls = true
allow_nested_controls = false
max_diagnostics = 25

[schema]
cache = true
cache_dir = "/tmp/p4mid-cache"

[output]
dir = "build"
`)
	m, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Path != path || m.Root != dir {
		t.Fatalf("manifest location wrong: %q %q", m.Path, m.Root)
	}
	cfg := m.Config
	if !cfg.Midend.AllowMultipleCalls || cfg.Midend.AllowNestedControls || cfg.Midend.MaxDiagnostics != 25 {
		t.Fatalf("midend section not decoded: %+v", cfg.Midend)
	}
	if !cfg.Schema.Cache || cfg.Schema.CacheDir != "/tmp/p4mid-cache" {
		t.Fatalf("schema section not decoded: %+v", cfg.Schema)
	}
	if cfg.Output.Dir != "build" {
		t.Fatalf("output section not decoded: %+v", cfg.Output)
	}
}

func TestLoadKeepsDefaultsForOmittedFields(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[schema]
cache = true
`)
	m, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Config.Midend.MaxDiagnostics != 100 {
		t.Fatalf("omitted field must keep its default, got %d", m.Config.Midend.MaxDiagnostics)
	}
	if !m.Config.Midend.AllowNestedControls {
		t.Fatalf("omitted allow_nested_controls must keep its default")
	}
}

func TestFindWalksUp(t *testing.T) {
	root := t.TempDir()
	path := writeManifest(t, root, "")
	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	got, ok, err := Find(nested)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !ok || got != path {
		t.Fatalf("find from nested dir: got %q ok=%v, want %q", got, ok, path)
	}
}

func TestFindNearestWins(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "")
	child := filepath.Join(root, "sub")
	if err := os.MkdirAll(child, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	near := writeManifest(t, child, "")

	got, ok, err := Find(child)
	if err != nil || !ok {
		t.Fatalf("find: ok=%v err=%v", ok, err)
	}
	if got != near {
		t.Fatalf("nearest manifest must win: got %q, want %q", got, near)
	}
}

func TestLoadRejectsBadTOML(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `[midend` + "\n")
	if _, err := Load(dir); err == nil {
		t.Fatalf("malformed manifest must fail")
	}
}

func TestLoadRejectsNonPositiveMaxDiagnostics(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[midend]
max_diagnostics = 0
`)
	_, err := Load(dir)
	if err == nil || !strings.Contains(err.Error(), "max_diagnostics") {
		t.Fatalf("zero max_diagnostics must be rejected, got %v", err)
	}
}

func TestLoadRejectsBlankCacheDir(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[schema]
cache_dir = "  "
`)
	_, err := Load(dir)
	if err == nil || !strings.Contains(err.Error(), "cache_dir") {
		t.Fatalf("blank cache_dir must be rejected, got %v", err)
	}
}
