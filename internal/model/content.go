package model

// PathState distinguishes "no path was ever set" from "a path was set but
// the referenced file does not exist on disk". A bare empty string cannot
// carry this distinction, so every media-bearing path field uses PathRef
// instead.
type PathState int

const (
	// PathAbsent means the field was never populated by the source.
	PathAbsent PathState = iota
	// PathPresent means a path is set and the file resolves under the
	// owning dataset root.
	PathPresent
	// PathNotFound means a path is set but the file does not exist.
	PathNotFound
)

// PathRef is a relative-to-dataset-root media path plus its resolution
// state. Path is meaningful only when State != PathAbsent.
type PathRef struct {
	State PathState
	Path  string
}

// Resolved reports whether the reference points at a file that exists.
func (p PathRef) Resolved() bool { return p.State == PathPresent }

// Set reports whether a path was recorded at all (present or not-found).
func (p PathRef) Set() bool { return p.State != PathAbsent }

// ContentKind discriminates the variants of a Regular message's Content.
type ContentKind string

const (
	ContentSticker       ContentKind = "sticker"
	ContentPhoto         ContentKind = "photo"
	ContentVoiceMessage  ContentKind = "voice-message"
	ContentAudio         ContentKind = "audio"
	ContentVideoMessage  ContentKind = "video-message"
	ContentVideo         ContentKind = "video"
	ContentAnimation     ContentKind = "animation"
	ContentFile          ContentKind = "file"
	ContentLocation      ContentKind = "location"
	ContentPoll          ContentKind = "poll"
	ContentSharedContact ContentKind = "shared-contact"
)

// Content is the discriminated variant attached to a Regular message body.
// Only the fields relevant to Kind are meaningful.
type Content struct {
	Kind ContentKind

	// Media-bearing variants (sticker, photo, voice-message, audio,
	// video-message, video, animation, file).
	Path          PathRef
	ThumbnailPath PathRef
	Width         int
	Height        int
	MimeType      string
	DurationSec   int
	FileName      string
	Title         string // audio
	Performer     string // audio

	// location
	Lat float64
	Lon float64

	// poll
	PollQuestion string
	PollAnswers  []string

	// shared-contact
	ContactFirstName string
	ContactLastName  string
	ContactPhone     string
	ContactVCardPath PathRef
}
