// Package service implements the process-wide handle→store map that a
// wire-level RPC front end would sit behind, without generating one.
// Load opens and migrates a store,
// assigns it an opaque handle, and returns it; every other operation
// dispatches through that handle; Close releases it. A short-lived mutex
// guards the map itself — never the store operations it dispatches to,
// which already serialize themselves via store.DB's own RWMutex.
package service

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/chathive/chathive/internal/chiveerr"
	"github.com/chathive/chathive/internal/store"
)

// Handle identifies one loaded store within a Registry.
type Handle string

// Registry is the in-process load/get/close map fronting one or more open
// stores for a calling process. The zero value is not usable; use New.
type Registry struct {
	mu     sync.Mutex
	stores map[Handle]*store.DB
	next   int64
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{stores: make(map[Handle]*store.DB)}
}

// Load opens and migrates the store rooted at dir, registers it under a
// freshly minted handle, and returns the handle. The caller is not
// expected to call store.Open itself — Load owns the store's lifetime from
// here until a matching Close.
func (r *Registry) Load(dir string) (Handle, *store.DB, error) {
	db, err := store.Open(dir)
	if err != nil {
		return "", nil, fmt.Errorf("service: load %q: %w", dir, err)
	}
	if _, err := db.Migrate(); err != nil {
		_ = db.Close()
		return "", nil, fmt.Errorf("service: migrate %q: %w", dir, err)
	}

	r.mu.Lock()
	r.next++
	h := Handle(fmt.Sprintf("h%d-%s", r.next, uuid.New().String()))
	r.stores[h] = db
	r.mu.Unlock()

	return h, db, nil
}

// GetLoaded returns the store registered under h, or chiveerr.ErrNotFound
// if no such handle is currently loaded. Every read or mutating operation
// a caller performs goes through the returned *store.DB directly — the
// Registry's own lock is released before the caller ever touches it.
func (r *Registry) GetLoaded(h Handle) (*store.DB, error) {
	r.mu.Lock()
	db, ok := r.stores[h]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("service: handle %q: %w", h, chiveerr.ErrNotFound)
	}
	return db, nil
}

// Close removes h from the registry and closes its underlying store. It
// is chiveerr.ErrNotFound for an unknown handle.
func (r *Registry) Close(h Handle) error {
	r.mu.Lock()
	db, ok := r.stores[h]
	if ok {
		delete(r.stores, h)
	}
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("service: handle %q: %w", h, chiveerr.ErrNotFound)
	}
	return db.Close()
}

// Handles returns every currently loaded handle, in no particular order.
func (r *Registry) Handles() []Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Handle, 0, len(r.stores))
	for h := range r.stores {
		out = append(out, h)
	}
	return out
}

// CloseAll closes every loaded store, used on process shutdown. It
// collects and returns the first error encountered, if any, but always
// attempts every close.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	handles := make([]Handle, 0, len(r.stores))
	for h := range r.stores {
		handles = append(handles, h)
	}
	r.mu.Unlock()

	var firstErr error
	for _, h := range handles {
		if err := r.Close(h); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
