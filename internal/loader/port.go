// Package loader defines the contract a source-format reader implements to
// turn an export on disk into a fully-populated canonical dataset in memory.
package loader

import (
	"fmt"

	"github.com/chathive/chathive/internal/model"
)

// Result is everything a loader produces from a single source path: one
// dataset, its users (exactly one with IsMyself), its chats, each chat's
// member list, and each chat's ordered messages.
type Result struct {
	Dataset  model.Dataset
	Users    []model.User
	Chats    []model.Chat
	Members  map[int64][]model.ChatMember
	Messages map[int64][]model.Message
}

// Port is implemented by every source-format reader. Quirk handling for a
// given export format lives entirely behind this interface — callers never
// see anything but already-canonical entities.
type Port interface {
	// Load reads path and returns a fully-populated Result, or one of the
	// three error kinds below.
	Load(path string) (Result, error)
}

// ErrFileNotFound is returned when path does not exist or is not readable.
// It is fatal: no dataset is emitted.
type ErrFileNotFound struct {
	Path string
	Err  error
}

func (e *ErrFileNotFound) Error() string {
	return fmt.Sprintf("loader: file not found: %s: %v", e.Path, e.Err)
}

func (e *ErrFileNotFound) Unwrap() error { return e.Err }

// PartialParseError is returned alongside a best-effort Result when some
// records could not be decoded. It is not fatal — callers may still use the
// partial Result — but every dropped record is named in Warnings.
type PartialParseError struct {
	Warnings []string
}

func (e *PartialParseError) Error() string {
	return fmt.Sprintf("loader: partial parse, %d warning(s)", len(e.Warnings))
}

// FormatError is returned when the input cannot be understood at all. It is
// fatal: no dataset is emitted. Offset and RecordID are populated when the
// loader can identify where parsing failed; either may be zero/empty.
type FormatError struct {
	Offset   int64
	RecordID string
	Err      error
}

func (e *FormatError) Error() string {
	if e.RecordID != "" {
		return fmt.Sprintf("loader: format not understood at record %s: %v", e.RecordID, e.Err)
	}
	return fmt.Sprintf("loader: format not understood at offset %d: %v", e.Offset, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }
