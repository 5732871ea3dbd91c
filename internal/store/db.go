// Package store implements the canonical chat model's persistent
// repository: a SQLite database file plus a sibling directory tree of
// dataset roots and their media
package store

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// DB wraps a SQLite connection plus the filesystem root the store's
// dataset directories live under, and the in-process read/write lock that
// implements the multi-reader/single-writer discipline of 
type DB struct {
	*sql.DB
	dir string

	mu sync.RWMutex

	backupMu       sync.Mutex
	backupsEnabled bool
	backupSuspends int
}

// Open creates a new SQLite connection with WAL mode and foreign keys
// enabled, rooted at dir (the store's directory: dir/chathive.db plus
// dir/datasets/<uuid>/... for media).
func Open(dir string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite3", dbPath(dir)+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &DB{DB: sqlDB, dir: dir}, nil
}

// Dir returns the store's root directory.
func (db *DB) Dir() string { return db.dir }

// DatasetRoot returns the filesystem directory a dataset's media paths are
// relative to.
func (db *DB) DatasetRoot(ds uuid.UUID) string {
	return filepath.Join(db.dir, "datasets", ds.String())
}

// dbPath returns the SQLite database file path within dir.
func dbPath(dir string) string {
	return filepath.Join(dir, "chathive.db")
}
