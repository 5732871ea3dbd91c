// Package model defines the canonical chat entity types shared by every
// loader, the Store, the Merger, and the Merge Executor. Types here are
// value types: callers build a complete value and hand it to the Store,
// which is the only component permitted to mutate persisted state.
package model

import "github.com/google/uuid"

// Dataset is the root of ownership for every other entity: a single
// coherent export identified by a UUID, with a human-facing alias and an
// associated filesystem directory (its "dataset root") under which all of
// its media lives.
type Dataset struct {
	UUID  uuid.UUID
	Alias string
}

// NewDatasetUUID generates a fresh random dataset identifier.
func NewDatasetUUID() uuid.UUID {
	return uuid.New()
}
