package store

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/chathive/chathive/internal/model"
)

// SearchMessages scans a chat's search_text column for a plain-string
// match, case-insensitively, oldest match first. This is a LIKE scan, not
// a full-text index: the system explicitly carries no search indexing
// beyond plain-string scans, so a virtual FTS table is never built here.
func (db *DB) SearchMessages(ds uuid.UUID, chatID int64, query string, limit int) ([]model.Message, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	pattern := "%" + escapeLike(query) + "%"
	return db.queryMessages(ds, `
		SELECT `+messageColumns+` FROM message
		WHERE ds_uuid = ? AND chat_id = ? AND search_text LIKE ? ESCAPE '\' COLLATE NOCASE
		ORDER BY time_sent ASC, internal_id ASC LIMIT ?`, ds[:], chatID, pattern, limit)
}

// SearchAllChats runs SearchMessages across every chat of a dataset,
// returning results grouped per chat ID.
func (db *DB) SearchAllChats(ds uuid.UUID, query string, limitPerChat int) (map[int64][]model.Message, error) {
	chats, err := db.Chats(ds)
	if err != nil {
		return nil, fmt.Errorf("search all chats: %w", err)
	}

	out := make(map[int64][]model.Message)
	for _, c := range chats {
		msgs, err := db.SearchMessages(ds, c.Chat.ID, query, limitPerChat)
		if err != nil {
			return nil, fmt.Errorf("search all chats: chat %d: %w", c.Chat.ID, err)
		}
		if len(msgs) > 0 {
			out[c.Chat.ID] = msgs
		}
	}
	return out, nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
