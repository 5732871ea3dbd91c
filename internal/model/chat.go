package model

import "github.com/google/uuid"

// SourceType identifies the exporter a chat originated from.
type SourceType string

const (
	SourceTelegram     SourceType = "telegram"
	SourceWhatsAppDB   SourceType = "whatsapp-db"
	SourceWhatsAppText SourceType = "whatsapp-text"
	SourceTinder       SourceType = "tinder"
	SourceBadoo        SourceType = "badoo"
	SourceMailRuLegacy SourceType = "mailru-legacy"
	SourceMailRu       SourceType = "mailru"
	SourceTextImport   SourceType = "text-import"
)

// ChatType distinguishes one-on-one chats from group chats.
type ChatType string

const (
	ChatPersonal      ChatType = "personal"
	ChatPrivateGroup  ChatType = "private-group"
)

// Chat is keyed by (dataset UUID, int64 id) within its owning dataset.
type Chat struct {
	DatasetUUID uuid.UUID
	ID          int64
	Name        string // empty means unset
	SourceType  SourceType
	Type        ChatType
	MsgCount    int64
	ImagePath   string // relative to dataset root; empty means unset
	MainChatID  *int64 // nil means this chat is not combined with another
}

// ChatMember is the many-to-many relation between a Chat and its Users,
// with an explicit display order preserved from the source export.
type ChatMember struct {
	DatasetUUID uuid.UUID
	ChatID      int64
	UserID      int64
	Order       int
}

// ChatWithDetails bundles a Chat with its resolved members (myself first,
// then in Order) and, when present, its most recent Message — the shape the
// Store's chat-listing read operation returns.
type ChatWithDetails struct {
	Chat        Chat
	Members     []User
	LastMessage *Message
}
