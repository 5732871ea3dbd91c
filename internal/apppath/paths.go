// Package apppath lays out the filesystem tree the core lives under: a
// base directory, one subdirectory per named store, and well-known file
// paths within it.
package apppath

import (
	"os"
	"path/filepath"
)

// BaseDir returns ~/.chathive.
func BaseDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".chathive")
}

// StoreDir returns the directory holding a named store's database,
// dataset roots, backups, and logs.
func StoreDir(name string) string {
	return filepath.Join(BaseDir(), "stores", name)
}

// DBPath returns the SQLite database file path for a named store.
func DBPath(name string) string {
	return filepath.Join(StoreDir(name), "chathive.db")
}

// DatasetsDir returns the directory under which every dataset root for a
// named store lives, one subdirectory per dataset UUID.
func DatasetsDir(name string) string {
	return filepath.Join(StoreDir(name), "datasets")
}

// LockPath returns the exclusive lock file path for a named store.
func LockPath(name string) string {
	return filepath.Join(StoreDir(name), "LOCK")
}

// LogDir returns the log directory for a named store.
func LogDir(name string) string {
	return filepath.Join(StoreDir(name), "logs")
}

// LogPath returns the daemon log file path for a named store.
func LogPath(name string) string {
	return filepath.Join(LogDir(name), "chathived.log")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnsureDir creates the store directory tree with proper permissions.
func EnsureDir(name string) error {
	dirs := []string{
		StoreDir(name),
		DatasetsDir(name),
		LogDir(name),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
