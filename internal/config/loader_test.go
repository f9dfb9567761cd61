package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := Default("test-node")
	cfg.Port = 9999
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded := Load(path, "fallback")
	if loaded.Alias != "test-node" || loaded.Port != 9999 {
		t.Errorf("Load() = %+v, want alias=test-node port=9999", loaded)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "missing.yaml")

	cfg := Load(path, "fallback-alias")
	if cfg.Alias != "fallback-alias" {
		t.Errorf("Load() on missing file = %+v, want fallback alias", cfg)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("Load() on missing file Port = %d, want default %d", cfg.Port, DefaultPort)
	}
}

func TestLoad_CorruptYAMLReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("not: valid: yaml: ["), 0600); err != nil {
		t.Fatal(err)
	}

	cfg := Load(path, "fallback-alias")
	if cfg.Alias != "fallback-alias" {
		t.Errorf("Load() on corrupt file = %+v, want fallback alias", cfg)
	}
}

func TestSave_AtomicOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := Default("node-a")
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	cfg.Alias = "node-b"
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	loaded := Load(path, "unused")
	if loaded.Alias != "node-b" {
		t.Errorf("Alias after second Save = %q, want node-b", loaded.Alias)
	}

	// No stray temp files should remain.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1 (no leftover temp files)", len(entries))
	}
}

func TestValidate(t *testing.T) {
	cfg := Default("node")
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate() on default config error = %v", err)
	}

	cfg.Alias = ""
	if err := Validate(cfg); err == nil {
		t.Error("Validate() with empty alias should error")
	}

	cfg2 := Default("node")
	cfg2.Port = 0
	if err := Validate(cfg2); err == nil {
		t.Error("Validate() with zero port should error")
	}
}

func TestFindConfigFile_ExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "explicit.yaml")
	if err := os.WriteFile(path, []byte("alias: x\n"), 0600); err != nil {
		t.Fatal(err)
	}

	found, err := FindConfigFile(path)
	if err != nil {
		t.Fatalf("FindConfigFile() error = %v", err)
	}
	if found != path {
		t.Errorf("FindConfigFile() = %q, want %q", found, path)
	}
}

func TestFindConfigFile_ExplicitMissing(t *testing.T) {
	_, err := FindConfigFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("FindConfigFile() with missing explicit path should error")
	}
}

func TestLoad_VersionTooNew(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("version: 999\nalias: x\n"), 0600); err != nil {
		t.Fatal(err)
	}

	// Should fall back to defaults with a warning, not panic or crash.
	cfg := Load(path, "fallback")
	if cfg.Alias != "fallback" {
		t.Errorf("Load() with too-new version = %+v, want fallback", cfg)
	}
}
