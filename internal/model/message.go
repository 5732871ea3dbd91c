package model

import "github.com/google/uuid"

// ServiceSubtype discriminates the tagged variants of a Service message
// body.
type ServiceSubtype string

const (
	ServicePhoneCall          ServiceSubtype = "phone-call"
	ServicePin                ServiceSubtype = "pin"
	ServiceClearHistory       ServiceSubtype = "clear-history"
	ServiceGroupCreate        ServiceSubtype = "group-create"
	ServiceGroupEditTitle     ServiceSubtype = "group-edit-title"
	ServiceGroupEditPhoto     ServiceSubtype = "group-edit-photo"
	ServiceGroupDeletePhoto   ServiceSubtype = "group-delete-photo"
	ServiceGroupInviteMembers ServiceSubtype = "group-invite-members"
	ServiceGroupRemoveMembers ServiceSubtype = "group-remove-members"
	ServiceGroupMigrateFrom   ServiceSubtype = "group-migrate-from"
	ServiceGroupMigrateTo     ServiceSubtype = "group-migrate-to"
	ServiceGroupCall          ServiceSubtype = "group-call"
	ServiceSuggestProfilePhoto ServiceSubtype = "suggest-profile-photo"
	ServiceBlockUser          ServiceSubtype = "block-user"
)

// BodyKind discriminates Regular from Service message bodies.
type BodyKind string

const (
	BodyRegular BodyKind = "regular"
	BodyService BodyKind = "service"
)

// Body is the discriminated variant carried by every Message. When Kind is
// BodyRegular, Text and Content (either may be zero) apply; when Kind is
// BodyService, Subtype and the service-specific fields apply.
type Body struct {
	Kind BodyKind

	// Regular
	Text    RichText
	Content *Content // nil means no typed content

	// Service
	Subtype ServiceSubtype
	// MemberNames carries the display names referenced by group-create,
	// group-invite-members, group-remove-members, and group-call service
	// messages. The Merge Executor rewrites these to resolved users'
	// pretty names where a resolution exists; names without a resolution
	// are preserved verbatim.
	MemberNames []string
	// NewTitle is used by group-edit-title.
	NewTitle string
	// Photo is used by group-edit-photo and suggest-profile-photo, where
	// the missing-media rule applies.
	Photo *PathRef
	// DurationSec is used by phone-call and group-call.
	DurationSec int
}

// Message is the canonical unit of conversation. InternalID is assigned and
// owned by a specific Store and must never be compared or persisted across
// stores; SourceID, when non-nil, is the identifier used by the
// originating platform and is unique within (DatasetUUID, ChatID).
type Message struct {
	DatasetUUID uuid.UUID
	ChatID      int64
	InternalID  int64 // opaque, store-local; zero before insertion
	SourceID    *int64

	FromUserID      int64
	Timestamp       int64 // epoch seconds, UTC unless documented per loader
	EditTimestamp   *int64
	IsDeleted       bool
	ForwardFromName string // empty means unset
	ReplyToSourceID *int64 // soft reference, not enforced

	Body Body
}

// SearchableString returns the canonical plain-text projection used for
// ordering tiebreaks and plain-string search.
func (m Message) SearchableString() string {
	if m.Body.Kind == BodyRegular {
		return m.Body.Text.PlainText()
	}
	return ""
}
