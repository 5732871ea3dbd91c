package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/chathive/chathive/internal/chiveerr"
	"github.com/chathive/chathive/internal/model"
)

// Users returns every user in a dataset, in insertion order.
func (db *DB) Users(ds uuid.UUID) ([]model.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.Query(`
		SELECT id, first_name, last_name, username, phone_numbers, is_myself
		FROM user WHERE ds_uuid = ? ORDER BY seq`, ds[:])
	if err != nil {
		return nil, fmt.Errorf("users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.User
	for rows.Next() {
		u, err := scanUser(ds, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// User returns a single user by ID within a dataset.
func (db *DB) User(ds uuid.UUID, id int64) (model.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	row := db.QueryRow(`
		SELECT id, first_name, last_name, username, phone_numbers, is_myself
		FROM user WHERE ds_uuid = ? AND id = ?`, ds[:], id)
	u, err := scanUser(ds, row)
	if err == sql.ErrNoRows {
		return model.User{}, fmt.Errorf("user %d: %w", id, chiveerr.ErrNotFound)
	}
	return u, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(ds uuid.UUID, r rowScanner) (model.User, error) {
	var u model.User
	var firstName, lastName, username, phoneNumbers sql.NullString
	var isMyself int
	if err := r.Scan(&u.ID, &firstName, &lastName, &username, &phoneNumbers, &isMyself); err != nil {
		return model.User{}, fmt.Errorf("scan user: %w", err)
	}
	u.DatasetUUID = ds
	u.FirstName = stringOrEmpty(firstName)
	u.LastName = stringOrEmpty(lastName)
	u.Username = stringOrEmpty(username)
	u.PhoneNumbers = unmarshalStrings(stringOrEmpty(phoneNumbers))
	u.IsMyself = isMyself != 0
	return u, nil
}

// InsertUser adds a user to a dataset, assigning it the next insertion
// sequence number.
func (db *DB) InsertUser(u model.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	var seq int64
	if err := db.QueryRow(`SELECT COALESCE(MAX(seq), 0) + 1 FROM user WHERE ds_uuid = ?`, u.DatasetUUID[:]).Scan(&seq); err != nil {
		return fmt.Errorf("insert user: next seq: %w", err)
	}

	_, err := db.Exec(`
		INSERT INTO user (ds_uuid, id, first_name, last_name, username, phone_numbers, is_myself, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.DatasetUUID[:], u.ID, nullString(u.FirstName), nullString(u.LastName),
		nullString(u.Username), nullString(marshalStrings(u.PhoneNumbers)), boolToInt(u.IsMyself), seq)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return db.maybeAutoBackup()
}

// UpdateUser overwrites the mutable fields of an existing user row.
func (db *DB) UpdateUser(u model.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.Exec(`
		UPDATE user SET first_name = ?, last_name = ?, username = ?, phone_numbers = ?, is_myself = ?
		WHERE ds_uuid = ? AND id = ?`,
		nullString(u.FirstName), nullString(u.LastName), nullString(u.Username),
		nullString(marshalStrings(u.PhoneNumbers)), boolToInt(u.IsMyself), u.DatasetUUID[:], u.ID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update user %d: %w", u.ID, chiveerr.ErrNotFound)
	}
	return db.maybeAutoBackup()
}

// MergeUsers folds fromID into intoID within a dataset: every message
// authored by fromID and every chat membership is repointed to intoID,
// and the fromID row is then deleted.
func (db *DB) MergeUsers(ds uuid.UUID, fromID, intoID int64) error {
	if fromID == intoID {
		return nil
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("merge users: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`UPDATE message SET from_id = ? WHERE ds_uuid = ? AND from_id = ?`, intoID, ds[:], fromID); err != nil {
		return fmt.Errorf("merge users: repoint messages: %w", err)
	}

	if _, err := tx.Exec(`
		UPDATE OR IGNORE chat_member SET user_id = ? WHERE ds_uuid = ? AND user_id = ?`, intoID, ds[:], fromID); err != nil {
		return fmt.Errorf("merge users: repoint chat_member: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM chat_member WHERE ds_uuid = ? AND user_id = ?`, ds[:], fromID); err != nil {
		return fmt.Errorf("merge users: clear stale chat_member: %w", err)
	}

	res, err := tx.Exec(`DELETE FROM user WHERE ds_uuid = ? AND id = ?`, ds[:], fromID)
	if err != nil {
		return fmt.Errorf("merge users: delete source: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("merge users %d: %w", fromID, chiveerr.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("merge users: commit: %w", err)
	}
	return db.maybeAutoBackup()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
