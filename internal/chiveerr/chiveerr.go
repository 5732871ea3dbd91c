// Package chiveerr defines the error kinds shared by the store, merger,
// and executor. Each kind is a sentinel usable with errors.Is; call sites
// wrap it with fmt.Errorf("...: %w", ...) to attach context.
package chiveerr

import "errors"

var (
	// ErrNotFound marks a missing dataset/user/chat/message/handle.
	ErrNotFound = errors.New("not found")
	// ErrInvariantViolated marks a broken model invariant (e.g. not
	// exactly one myself, foreign key crossing dataset boundaries).
	ErrInvariantViolated = errors.New("invariant violated")
	// ErrFormat is produced only by loaders.
	ErrFormat = errors.New("format not understood")
	// ErrMediaIO marks a file copy or read failure during a Store write.
	ErrMediaIO = errors.New("media i/o error")
	// ErrTimeShiftDetected marks a Merger precondition failure: the two
	// datasets appear to differ by a constant time offset.
	ErrTimeShiftDetected = errors.New("time shift detected between datasets")
	// ErrUnorderable marks a pair of messages the Merger cannot compare.
	ErrUnorderable = errors.New("messages are unorderable")
	// ErrCancelled marks cooperative cancellation of a long operation.
	ErrCancelled = errors.New("cancelled")
	// ErrConflict marks a unique-constraint violation on duplicate
	// (dataset, chat, source_id) during an insert.
	ErrConflict = errors.New("conflict")
)
