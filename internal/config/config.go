package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.chathive/config.toml.
type Config struct {
	DefaultStore   string `toml:"default_store"`
	MergeBatchSize int    `toml:"merge_batch_size"`
	BackupsEnabled bool   `toml:"backups_enabled"`
	DefaultAlias   string `toml:"default_alias"`
}

// DefaultMergeBatchSize is used when a Config leaves MergeBatchSize unset.
const DefaultMergeBatchSize = 1000

// EffectiveMergeBatchSize returns cfg.MergeBatchSize, or
// DefaultMergeBatchSize when it is zero or negative.
func (cfg *Config) EffectiveMergeBatchSize() int {
	if cfg == nil || cfg.MergeBatchSize <= 0 {
		return DefaultMergeBatchSize
	}
	return cfg.MergeBatchSize
}

// Load reads config from the given path. Returns an error if the file is
// missing or cannot be parsed.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
