package apppath

import "github.com/chathive/chathive/internal/config"

// DefaultStoreName is used when neither a flag override nor a config
// default is present.
const DefaultStoreName = "main"

// Resolve determines the active store name using precedence:
//  1. flagOverride (--store flag)
//  2. config.toml default_store
//  3. DefaultStoreName
func Resolve(flagOverride string) string {
	if flagOverride != "" {
		return flagOverride
	}
	cfg, err := config.Load(ConfigPath())
	if err == nil && cfg.DefaultStore != "" {
		return cfg.DefaultStore
	}
	return DefaultStoreName
}
