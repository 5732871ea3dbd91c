package store

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/chathive/chathive/internal/chiveerr"
	"github.com/chathive/chathive/internal/model"
)

// Datasets returns every dataset known to the store.
func (db *DB) Datasets() ([]model.Dataset, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.Query(`SELECT uuid, alias FROM dataset ORDER BY alias`)
	if err != nil {
		return nil, fmt.Errorf("datasets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Dataset
	for rows.Next() {
		var rawUUID []byte
		var alias string
		if err := rows.Scan(&rawUUID, &alias); err != nil {
			return nil, fmt.Errorf("datasets: scan: %w", err)
		}
		id, err := uuid.FromBytes(rawUUID)
		if err != nil {
			return nil, fmt.Errorf("datasets: decode uuid: %w", err)
		}
		out = append(out, model.Dataset{UUID: id, Alias: alias})
	}
	return out, rows.Err()
}

// Dataset returns a single dataset by UUID.
func (db *DB) Dataset(ds uuid.UUID) (model.Dataset, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.dataset(ds)
}

func (db *DB) dataset(ds uuid.UUID) (model.Dataset, error) {
	var alias string
	err := db.QueryRow(`SELECT alias FROM dataset WHERE uuid = ?`, ds[:]).Scan(&alias)
	if err == sql.ErrNoRows {
		return model.Dataset{}, fmt.Errorf("dataset %s: %w", ds, chiveerr.ErrNotFound)
	}
	if err != nil {
		return model.Dataset{}, fmt.Errorf("dataset: %w", err)
	}
	return model.Dataset{UUID: ds, Alias: alias}, nil
}

// InsertDataset creates the dataset row and its dataset-root directory.
// It does not insert users, chats, or messages — callers absorb a loader's
// output with InsertUser/InsertChat/InsertMessages after this call, exactly
// as 's Lifecycle describes.
func (db *DB) InsertDataset(ds model.Dataset) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := os.MkdirAll(db.DatasetRoot(ds.UUID), 0700); err != nil {
		return fmt.Errorf("insert dataset: create root: %w", err)
	}

	if _, err := db.Exec(`INSERT INTO dataset (uuid, alias) VALUES (?, ?)`, ds.UUID[:], ds.Alias); err != nil {
		return fmt.Errorf("insert dataset: %w", err)
	}
	return db.maybeAutoBackup()
}

// RenameDataset updates a dataset's alias.
func (db *DB) RenameDataset(ds uuid.UUID, alias string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.Exec(`UPDATE dataset SET alias = ? WHERE uuid = ?`, alias, ds[:])
	if err != nil {
		return fmt.Errorf("rename dataset: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("rename dataset %s: %w", ds, chiveerr.ErrNotFound)
	}
	return db.maybeAutoBackup()
}

// DeleteDataset removes a dataset and everything under it (users, chats,
// messages cascade via foreign keys), plus its on-disk dataset root.
func (db *DB) DeleteDataset(ds uuid.UUID) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.Exec(`DELETE FROM dataset WHERE uuid = ?`, ds[:])
	if err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete dataset %s: %w", ds, chiveerr.ErrNotFound)
	}
	if err := os.RemoveAll(db.DatasetRoot(ds)); err != nil {
		return fmt.Errorf("delete dataset: remove root: %w", err)
	}
	return db.maybeAutoBackup()
}

// ShiftDatasetTime adds an integral-hour offset to every message's
// timestamp and edit-timestamp in the dataset, used to correct loaders
// with unknown timezones — the Mail.Ru legacy export's fixed offset in
// particular.
func (db *DB) ShiftDatasetTime(ds uuid.UUID, hours int) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	offset := int64(hours) * 3600
	if _, err := db.Exec(`
		UPDATE message
		SET time_sent = time_sent + ?,
		    time_edited = CASE WHEN time_edited IS NOT NULL THEN time_edited + ? ELSE NULL END
		WHERE ds_uuid = ?`, offset, offset, ds[:]); err != nil {
		return fmt.Errorf("shift dataset time: %w", err)
	}
	return db.maybeAutoBackup()
}

// DatasetStats is a read-only projection over chat/message/user counts
// for a dataset.
type DatasetStats struct {
	ChatCount    int64
	MessageCount int64
	UserCount    int64
}

// Stats computes DatasetStats for a dataset.
func (db *DB) Stats(ds uuid.UUID) (DatasetStats, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var s DatasetStats
	if err := db.QueryRow(`SELECT COUNT(*) FROM chat WHERE ds_uuid = ?`, ds[:]).Scan(&s.ChatCount); err != nil {
		return s, fmt.Errorf("stats: chats: %w", err)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM message WHERE ds_uuid = ?`, ds[:]).Scan(&s.MessageCount); err != nil {
		return s, fmt.Errorf("stats: messages: %w", err)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM user WHERE ds_uuid = ?`, ds[:]).Scan(&s.UserCount); err != nil {
		return s, fmt.Errorf("stats: users: %w", err)
	}
	return s, nil
}
