package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	cfg := &Config{DefaultStore: "work", MergeBatchSize: 500}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DefaultStore != "work" {
		t.Errorf("DefaultStore = %q, want %q", loaded.DefaultStore, "work")
	}
	if loaded.MergeBatchSize != 500 {
		t.Errorf("MergeBatchSize = %d, want 500", loaded.MergeBatchSize)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestSavePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	if err := Save(path, &Config{DefaultStore: "main"}); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}

func TestEffectiveMergeBatchSize(t *testing.T) {
	var nilCfg *Config
	if got := nilCfg.EffectiveMergeBatchSize(); got != DefaultMergeBatchSize {
		t.Errorf("nil config EffectiveMergeBatchSize() = %d, want %d", got, DefaultMergeBatchSize)
	}
	cfg := &Config{MergeBatchSize: 0}
	if got := cfg.EffectiveMergeBatchSize(); got != DefaultMergeBatchSize {
		t.Errorf("zero EffectiveMergeBatchSize() = %d, want %d", got, DefaultMergeBatchSize)
	}
	cfg = &Config{MergeBatchSize: 42}
	if got := cfg.EffectiveMergeBatchSize(); got != 42 {
		t.Errorf("EffectiveMergeBatchSize() = %d, want 42", got)
	}
}
