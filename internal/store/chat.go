package store

import (
	"database/sql"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/chathive/chathive/internal/chiveerr"
	"github.com/chathive/chathive/internal/model"
)

// Chats returns every chat in a dataset with its members (myself first,
// then Order) and most recent message.
func (db *DB) Chats(ds uuid.UUID) ([]model.ChatWithDetails, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.Query(`SELECT id FROM chat WHERE ds_uuid = ? ORDER BY id`, ds[:])
	if err != nil {
		return nil, fmt.Errorf("chats: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("chats: scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]model.ChatWithDetails, 0, len(ids))
	for _, id := range ids {
		cwd, err := db.chatWithDetails(ds, id)
		if err != nil {
			return nil, err
		}
		out = append(out, cwd)
	}
	return out, nil
}

// Chat returns a single chat (without members/last message) by ID.
func (db *DB) Chat(ds uuid.UUID, id int64) (model.Chat, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.chat(ds, id)
}

func (db *DB) chat(ds uuid.UUID, id int64) (model.Chat, error) {
	var c model.Chat
	var name, imgPath sql.NullString
	var mainChatID sql.NullInt64
	err := db.QueryRow(`
		SELECT name, source_type, type, msg_count, img_path, main_chat_id
		FROM chat WHERE ds_uuid = ? AND id = ?`, ds[:], id).
		Scan(&name, &c.SourceType, &c.Type, &c.MsgCount, &imgPath, &mainChatID)
	if err == sql.ErrNoRows {
		return model.Chat{}, fmt.Errorf("chat %d: %w", id, chiveerr.ErrNotFound)
	}
	if err != nil {
		return model.Chat{}, fmt.Errorf("chat: %w", err)
	}
	c.DatasetUUID = ds
	c.ID = id
	c.Name = stringOrEmpty(name)
	c.ImagePath = stringOrEmpty(imgPath)
	c.MainChatID = int64PtrOrNil(mainChatID)
	return c, nil
}

func (db *DB) chatWithDetails(ds uuid.UUID, id int64) (model.ChatWithDetails, error) {
	c, err := db.chat(ds, id)
	if err != nil {
		return model.ChatWithDetails{}, err
	}

	members, err := db.chatMembers(ds, id)
	if err != nil {
		return model.ChatWithDetails{}, err
	}

	last, err := db.lastMessage(ds, id)
	if err != nil {
		return model.ChatWithDetails{}, err
	}

	return model.ChatWithDetails{Chat: c, Members: members, LastMessage: last}, nil
}

func (db *DB) chatMembers(ds uuid.UUID, chatID int64) ([]model.User, error) {
	rows, err := db.Query(`
		SELECT u.id, u.first_name, u.last_name, u.username, u.phone_numbers, u.is_myself, cm.member_order
		FROM chat_member cm JOIN user u ON u.ds_uuid = cm.ds_uuid AND u.id = cm.user_id
		WHERE cm.ds_uuid = ? AND cm.chat_id = ?`, ds[:], chatID)
	if err != nil {
		return nil, fmt.Errorf("chat members: %w", err)
	}
	defer func() { _ = rows.Close() }()

	type ordered struct {
		user  model.User
		order int
	}
	var members []ordered
	for rows.Next() {
		var u model.User
		var firstName, lastName, username, phoneNumbers sql.NullString
		var isMyself, order int
		if err := rows.Scan(&u.ID, &firstName, &lastName, &username, &phoneNumbers, &isMyself, &order); err != nil {
			return nil, fmt.Errorf("chat members: scan: %w", err)
		}
		u.DatasetUUID = ds
		u.FirstName = stringOrEmpty(firstName)
		u.LastName = stringOrEmpty(lastName)
		u.Username = stringOrEmpty(username)
		u.PhoneNumbers = unmarshalStrings(stringOrEmpty(phoneNumbers))
		u.IsMyself = isMyself != 0
		members = append(members, ordered{user: u, order: order})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(members, func(i, j int) bool {
		if members[i].user.IsMyself != members[j].user.IsMyself {
			return members[i].user.IsMyself
		}
		return members[i].order < members[j].order
	})

	out := make([]model.User, len(members))
	for i, m := range members {
		out[i] = m.user
	}
	return out, nil
}

// InsertChat adds a chat and its member list to a dataset. members must
// already carry the Order a loader assigned; myself's position in the
// final read is resolved by IsMyself, not by Order. The chat's msg_count
// starts at zero whatever c.MsgCount holds; InsertMessages maintains it.
func (db *DB) InsertChat(c model.Chat, members []model.ChatMember) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("insert chat: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`
		INSERT INTO chat (ds_uuid, id, name, source_type, type, msg_count, img_path, main_chat_id)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		c.DatasetUUID[:], c.ID, nullString(c.Name), c.SourceType, c.Type,
		nullString(c.ImagePath), nullInt64(c.MainChatID))
	if err != nil {
		return fmt.Errorf("insert chat: %w", err)
	}

	for _, m := range members {
		if _, err := tx.Exec(`
			INSERT INTO chat_member (ds_uuid, chat_id, user_id, member_order) VALUES (?, ?, ?, ?)`,
			c.DatasetUUID[:], c.ID, m.UserID, m.Order); err != nil {
			return fmt.Errorf("insert chat: member %d: %w", m.UserID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert chat: commit: %w", err)
	}
	return db.maybeAutoBackup()
}

// DeleteChat removes a chat and its members/messages (cascading via
// foreign keys).
func (db *DB) DeleteChat(ds uuid.UUID, id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.Exec(`DELETE FROM chat WHERE ds_uuid = ? AND id = ?`, ds[:], id)
	if err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete chat %d: %w", id, chiveerr.ErrNotFound)
	}
	return db.maybeAutoBackup()
}

// CombinedChats returns every chat whose MainChatID points at mainID — the
// secondary chats a loader folded under a single logical conversation
// ('s chat-combination feature, e.g. Telegram's migrated-group
// history).
func (db *DB) CombinedChats(ds uuid.UUID, mainID int64) ([]model.Chat, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.Query(`SELECT id FROM chat WHERE ds_uuid = ? AND main_chat_id = ? ORDER BY id`, ds[:], mainID)
	if err != nil {
		return nil, fmt.Errorf("combined chats: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	out := make([]model.Chat, 0, len(ids))
	for _, id := range ids {
		c, err := db.chat(ds, id)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
