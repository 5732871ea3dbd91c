package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/chathive/chathive/internal/chiveerr"
	"github.com/chathive/chathive/internal/model"
)

const messageColumns = `internal_id, chat_id, source_id, body_kind, service_subtype, from_id,
	time_sent, time_edited, is_deleted, forward_from_name, reply_to_source_id,
	member_names, new_title, photo_path, duration_sec`

func (db *DB) lastMessage(ds uuid.UUID, chatID int64) (*model.Message, error) {
	row := db.QueryRow(`
		SELECT `+messageColumns+` FROM message
		WHERE ds_uuid = ? AND chat_id = ?
		ORDER BY time_sent DESC, internal_id DESC LIMIT 1`, ds[:], chatID)
	m, err := db.scanMessageRow(ds, row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// MessageByInternalID fetches a single message by its store-assigned
// internal ID.
func (db *DB) MessageByInternalID(ds uuid.UUID, internalID int64) (model.Message, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	row := db.QueryRow(`SELECT `+messageColumns+` FROM message WHERE ds_uuid = ? AND internal_id = ?`, ds[:], internalID)
	m, err := db.scanMessageRow(ds, row)
	if err == sql.ErrNoRows {
		return model.Message{}, fmt.Errorf("message %d: %w", internalID, chiveerr.ErrNotFound)
	}
	return m, err
}

// MessageBySourceID fetches a message by the loader-assigned source ID
// that survives re-ingestion.
func (db *DB) MessageBySourceID(ds uuid.UUID, chatID, sourceID int64) (model.Message, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	row := db.QueryRow(`
		SELECT `+messageColumns+` FROM message
		WHERE ds_uuid = ? AND chat_id = ? AND source_id = ?`, ds[:], chatID, sourceID)
	m, err := db.scanMessageRow(ds, row)
	if err == sql.ErrNoRows {
		return model.Message{}, fmt.Errorf("message source %d: %w", sourceID, chiveerr.ErrNotFound)
	}
	return m, err
}

// FirstMessages returns the earliest limit messages of a chat, oldest first.
func (db *DB) FirstMessages(ds uuid.UUID, chatID int64, limit int) ([]model.Message, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.queryMessages(ds, `
		SELECT `+messageColumns+` FROM message
		WHERE ds_uuid = ? AND chat_id = ?
		ORDER BY time_sent ASC, internal_id ASC LIMIT ?`, ds[:], chatID, limit)
}

// LastMessages returns the most recent limit messages of a chat, but in
// chronological (oldest-first) order — the shape a chat view renders.
func (db *DB) LastMessages(ds uuid.UUID, chatID int64, limit int) ([]model.Message, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	msgs, err := db.queryMessages(ds, `
		SELECT `+messageColumns+` FROM message
		WHERE ds_uuid = ? AND chat_id = ?
		ORDER BY time_sent DESC, internal_id DESC LIMIT ?`, ds[:], chatID, limit)
	if err != nil {
		return nil, err
	}
	reverseMessages(msgs)
	return msgs, nil
}

// MessagesAfter returns up to limit messages at or after afterInternalID,
// chronologically ascending. The anchor must exist; it is the first
// element of a non-empty result.
func (db *DB) MessagesAfter(ds uuid.UUID, chatID, afterInternalID int64, limit int) ([]model.Message, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	anchor, err := db.scanMessageRow(ds, db.QueryRow(`SELECT `+messageColumns+` FROM message WHERE ds_uuid = ? AND internal_id = ?`, ds[:], afterInternalID))
	if err != nil {
		return nil, fmt.Errorf("messages after %d: %w", afterInternalID, err)
	}

	return db.queryMessages(ds, `
		SELECT `+messageColumns+` FROM message
		WHERE ds_uuid = ? AND chat_id = ? AND (time_sent, internal_id) >= (?, ?)
		ORDER BY time_sent ASC, internal_id ASC LIMIT ?`,
		ds[:], chatID, anchor.Timestamp, afterInternalID, limit)
}

// MessagesBefore returns up to limit messages at or before beforeInternalID,
// chronologically ascending. The anchor must exist; it is the last element
// of a non-empty result.
func (db *DB) MessagesBefore(ds uuid.UUID, chatID, beforeInternalID int64, limit int) ([]model.Message, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	anchor, err := db.scanMessageRow(ds, db.QueryRow(`SELECT `+messageColumns+` FROM message WHERE ds_uuid = ? AND internal_id = ?`, ds[:], beforeInternalID))
	if err != nil {
		return nil, fmt.Errorf("messages before %d: %w", beforeInternalID, err)
	}

	msgs, err := db.queryMessages(ds, `
		SELECT `+messageColumns+` FROM message
		WHERE ds_uuid = ? AND chat_id = ? AND (time_sent, internal_id) <= (?, ?)
		ORDER BY time_sent DESC, internal_id DESC LIMIT ?`,
		ds[:], chatID, anchor.Timestamp, beforeInternalID, limit)
	if err != nil {
		return nil, err
	}
	reverseMessages(msgs)
	return msgs, nil
}

// messagesStrictlyAfter returns up to limit messages strictly after
// afterInternalID, chronologically ascending — the exclusive-of-cursor
// semantics NextMessageBatch needs to avoid reprocessing the last message
// of the previous batch.
func (db *DB) messagesStrictlyAfter(ds uuid.UUID, chatID, afterInternalID int64, limit int) ([]model.Message, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	anchor, err := db.scanMessageRow(ds, db.QueryRow(`SELECT `+messageColumns+` FROM message WHERE ds_uuid = ? AND internal_id = ?`, ds[:], afterInternalID))
	if err != nil {
		return nil, fmt.Errorf("messages after %d: %w", afterInternalID, err)
	}

	return db.queryMessages(ds, `
		SELECT `+messageColumns+` FROM message
		WHERE ds_uuid = ? AND chat_id = ? AND (time_sent, internal_id) > (?, ?)
		ORDER BY time_sent ASC, internal_id ASC LIMIT ?`,
		ds[:], chatID, anchor.Timestamp, afterInternalID, limit)
}

// MessagesAroundDate returns up to limit messages centered on the first
// message at or after ts, half before and half after.
func (db *DB) MessagesAroundDate(ds uuid.UUID, chatID, ts int64, limit int) ([]model.Message, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	after := limit / 2
	before := limit - after

	head, err := db.queryMessages(ds, `
		SELECT `+messageColumns+` FROM message
		WHERE ds_uuid = ? AND chat_id = ? AND time_sent < ?
		ORDER BY time_sent DESC, internal_id DESC LIMIT ?`, ds[:], chatID, ts, before)
	if err != nil {
		return nil, err
	}
	reverseMessages(head)

	tail, err := db.queryMessages(ds, `
		SELECT `+messageColumns+` FROM message
		WHERE ds_uuid = ? AND chat_id = ? AND time_sent >= ?
		ORDER BY time_sent ASC, internal_id ASC LIMIT ?`, ds[:], chatID, ts, after)
	if err != nil {
		return nil, err
	}

	return append(head, tail...), nil
}

// ScrollMessages returns limit messages starting at the given chronological
// offset, ascending — an absolute-position window over the chat, the basis
// for jump-to-percentage navigation. At the boundary offsets it returns
// the same window as FirstMessages and LastMessages.
func (db *DB) ScrollMessages(ds uuid.UUID, chatID int64, offset, limit int64) ([]model.Message, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.queryMessages(ds, `
		SELECT `+messageColumns+` FROM message
		WHERE ds_uuid = ? AND chat_id = ?
		ORDER BY time_sent ASC, internal_id ASC LIMIT ? OFFSET ?`, ds[:], chatID, limit, offset)
}

// MessagesSlice returns the inclusive range of messages between id1 and
// id2 (id1 at or before id2 in sort order), ascending. Both ids must exist;
// they are the first and last elements of the result.
func (db *DB) MessagesSlice(ds uuid.UUID, chatID, id1, id2 int64) ([]model.Message, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	lo, hi, err := db.sliceBoundaries(ds, id1, id2)
	if err != nil {
		return nil, err
	}

	return db.queryMessages(ds, `
		SELECT `+messageColumns+` FROM message
		WHERE ds_uuid = ? AND chat_id = ? AND (time_sent, internal_id) >= (?, ?) AND (time_sent, internal_id) <= (?, ?)
		ORDER BY time_sent ASC, internal_id ASC`,
		ds[:], chatID, lo.Timestamp, id1, hi.Timestamp, id2)
}

// MessagesSliceLength returns the length of the range MessagesSlice(ds,
// chatID, id1, id2) would return, without materializing the messages.
func (db *DB) MessagesSliceLength(ds uuid.UUID, chatID, id1, id2 int64) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	lo, hi, err := db.sliceBoundaries(ds, id1, id2)
	if err != nil {
		return 0, err
	}

	var n int64
	err = db.QueryRow(`
		SELECT COUNT(*) FROM message
		WHERE ds_uuid = ? AND chat_id = ? AND (time_sent, internal_id) >= (?, ?) AND (time_sent, internal_id) <= (?, ?)`,
		ds[:], chatID, lo.Timestamp, id1, hi.Timestamp, id2).Scan(&n)
	return n, err
}

func (db *DB) sliceBoundaries(ds uuid.UUID, id1, id2 int64) (lo, hi model.Message, err error) {
	lo, err = db.scanMessageRow(ds, db.QueryRow(`SELECT `+messageColumns+` FROM message WHERE ds_uuid = ? AND internal_id = ?`, ds[:], id1))
	if err != nil {
		return model.Message{}, model.Message{}, fmt.Errorf("messages slice: boundary %d: %w", id1, err)
	}
	hi, err = db.scanMessageRow(ds, db.QueryRow(`SELECT `+messageColumns+` FROM message WHERE ds_uuid = ? AND internal_id = ?`, ds[:], id2))
	if err != nil {
		return model.Message{}, model.Message{}, fmt.Errorf("messages slice: boundary %d: %w", id2, err)
	}
	return lo, hi, nil
}

// NextMessageBatch is the cursor-based pagination primitive the Merger's
// StoreSource and the Merge Executor's replay loop use to stream a whole
// chat without materializing it: after == nil starts at the oldest
// message, otherwise it continues strictly after the cursor.
func (db *DB) NextMessageBatch(ds uuid.UUID, chatID int64, after *int64, limit int) ([]model.Message, error) {
	if after == nil {
		return db.FirstMessages(ds, chatID, limit)
	}
	return db.messagesStrictlyAfter(ds, chatID, *after, limit)
}

func (db *DB) queryMessages(ds uuid.UUID, query string, args ...any) ([]model.Message, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Message
	for rows.Next() {
		m, err := db.scanMessageRow(ds, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (db *DB) scanMessageRow(ds uuid.UUID, r rowScanner) (model.Message, error) {
	var m model.Message
	var sourceID, timeEdited, replyTo, durationSec sql.NullInt64
	var serviceSubtype, forwardFromName, memberNames, newTitle, photoPath sql.NullString
	var isDeleted int

	err := r.Scan(&m.InternalID, &m.ChatID, &sourceID, &m.Body.Kind, &serviceSubtype, &m.FromUserID,
		&m.Timestamp, &timeEdited, &isDeleted, &forwardFromName, &replyTo,
		&memberNames, &newTitle, &photoPath, &durationSec)
	if err != nil {
		return model.Message{}, fmt.Errorf("scan message: %w", err)
	}

	m.DatasetUUID = ds
	m.SourceID = int64PtrOrNil(sourceID)
	m.EditTimestamp = int64PtrOrNil(timeEdited)
	m.IsDeleted = isDeleted != 0
	m.ForwardFromName = stringOrEmpty(forwardFromName)
	m.ReplyToSourceID = int64PtrOrNil(replyTo)
	m.Body.Subtype = model.ServiceSubtype(stringOrEmpty(serviceSubtype))
	m.Body.MemberNames = unmarshalStrings(stringOrEmpty(memberNames))
	m.Body.NewTitle = stringOrEmpty(newTitle)
	m.Body.DurationSec = int(durationSec.Int64)
	if photoPath.Valid {
		ref := pathFromDB(db.DatasetRoot(ds), photoPath)
		m.Body.Photo = &ref
	}

	if m.Body.Kind == model.BodyRegular {
		text, content, err := db.loadRegularBody(ds, m.InternalID)
		if err != nil {
			return model.Message{}, err
		}
		m.Body.Text = text
		m.Body.Content = content
	}

	return m, nil
}

func (db *DB) loadRegularBody(ds uuid.UUID, internalID int64) (model.RichText, *model.Content, error) {
	rows, err := db.Query(`
		SELECT kind, text, href, hidden, lang FROM message_text_element
		WHERE message_internal_id = ? ORDER BY seq`, internalID)
	if err != nil {
		return nil, nil, fmt.Errorf("load text elements: %w", err)
	}
	var text model.RichText
	for rows.Next() {
		var e model.Element
		var href, lang sql.NullString
		var hidden int
		if err := rows.Scan(&e.Kind, &e.Text, &href, &hidden, &lang); err != nil {
			_ = rows.Close()
			return nil, nil, fmt.Errorf("scan text element: %w", err)
		}
		e.Href = stringOrEmpty(href)
		e.Hidden = hidden != 0
		e.Lang = stringOrEmpty(lang)
		text = append(text, e)
	}
	if err := rows.Close(); err != nil {
		return nil, nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	content, err := db.loadContent(ds, internalID)
	if err != nil {
		return nil, nil, err
	}
	return text, content, nil
}

func (db *DB) loadContent(ds uuid.UUID, internalID int64) (*model.Content, error) {
	var c model.Content
	var path, thumb, mime, fileName, title, performer, pollQuestion, pollAnswers sql.NullString
	var contactFirst, contactLast, contactPhone, contactVCard sql.NullString
	var width, height, durationSec sql.NullInt64
	var lat, lon sql.NullFloat64

	err := db.QueryRow(`
		SELECT kind, path, thumbnail_path, width, height, mime_type, duration_sec, file_name, title,
		       performer, lat, lon, poll_question, poll_answers, contact_first_name, contact_last_name,
		       contact_phone, contact_vcard_path
		FROM message_content WHERE message_internal_id = ?`, internalID).Scan(
		&c.Kind, &path, &thumb, &width, &height, &mime, &durationSec, &fileName, &title,
		&performer, &lat, &lon, &pollQuestion, &pollAnswers, &contactFirst, &contactLast,
		&contactPhone, &contactVCard)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load content: %w", err)
	}

	root := db.DatasetRoot(ds)
	c.Path = pathFromDB(root, path)
	c.ThumbnailPath = pathFromDB(root, thumb)
	if width.Valid {
		w := int(width.Int64)
		c.Width = w
	}
	if height.Valid {
		h := int(height.Int64)
		c.Height = h
	}
	c.MimeType = stringOrEmpty(mime)
	c.DurationSec = int(durationSec.Int64)
	c.FileName = stringOrEmpty(fileName)
	c.Title = stringOrEmpty(title)
	c.Performer = stringOrEmpty(performer)
	c.Lat = lat.Float64
	c.Lon = lon.Float64
	c.PollQuestion = stringOrEmpty(pollQuestion)
	c.PollAnswers = unmarshalStrings(stringOrEmpty(pollAnswers))
	c.ContactFirstName = stringOrEmpty(contactFirst)
	c.ContactLastName = stringOrEmpty(contactLast)
	c.ContactPhone = stringOrEmpty(contactPhone)
	c.ContactVCardPath = pathFromDB(root, contactVCard)
	return &c, nil
}

// InsertMessages appends a batch of messages to a chat in a single
// transaction, updating the chat's msg_count. Messages must already carry
// any media under relative paths resolvable against the dataset root —
// callers use CopyIntoDatasetRoot beforehand for media sourced elsewhere.
func (db *DB) InsertMessages(ds uuid.UUID, chatID int64, msgs []model.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("insert messages: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range msgs {
		if err := insertOneMessage(tx, ds, chatID, &msgs[i]); err != nil {
			return fmt.Errorf("insert messages: %w", err)
		}
	}

	if _, err := tx.Exec(`UPDATE chat SET msg_count = msg_count + ? WHERE ds_uuid = ? AND id = ?`, len(msgs), ds[:], chatID); err != nil {
		return fmt.Errorf("insert messages: update count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert messages: commit: %w", err)
	}
	return db.maybeAutoBackup()
}

func insertOneMessage(tx *sql.Tx, ds uuid.UUID, chatID int64, m *model.Message) error {
	var photoPath sql.NullString
	if m.Body.Photo != nil {
		photoPath = pathToDB(*m.Body.Photo)
	}

	res, err := tx.Exec(`
		INSERT INTO message (ds_uuid, chat_id, source_id, body_kind, service_subtype, from_id,
			time_sent, time_edited, is_deleted, forward_from_name, reply_to_source_id,
			search_text, member_names, new_title, photo_path, duration_sec)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ds[:], chatID, nullInt64(m.SourceID), string(m.Body.Kind), nullString(string(m.Body.Subtype)),
		m.FromUserID, m.Timestamp, nullInt64(m.EditTimestamp), boolToInt(m.IsDeleted),
		nullString(m.ForwardFromName), nullInt64(m.ReplyToSourceID), m.SearchableString(),
		nullString(marshalStrings(m.Body.MemberNames)), nullString(m.Body.NewTitle), photoPath,
		nullIntIfNonZero(m.Body.DurationSec))
	if err != nil {
		return fmt.Errorf("insert message row: %w", err)
	}

	internalID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert message row: last insert id: %w", err)
	}
	m.InternalID = internalID

	if m.Body.Kind != model.BodyRegular {
		return nil
	}

	for seq, e := range m.Body.Text {
		if _, err := tx.Exec(`
			INSERT INTO message_text_element (message_internal_id, seq, kind, text, href, hidden, lang)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			internalID, seq, string(e.Kind), e.Text, nullString(e.Href), boolToInt(e.Hidden), nullString(e.Lang)); err != nil {
			return fmt.Errorf("insert text element: %w", err)
		}
	}

	if m.Body.Content != nil {
		c := m.Body.Content
		if _, err := tx.Exec(`
			INSERT INTO message_content (message_internal_id, kind, path, thumbnail_path, width, height,
				mime_type, duration_sec, file_name, title, performer, lat, lon, poll_question, poll_answers,
				contact_first_name, contact_last_name, contact_phone, contact_vcard_path)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			internalID, string(c.Kind), pathToDB(c.Path), pathToDB(c.ThumbnailPath),
			nullIntIfNonZero(c.Width), nullIntIfNonZero(c.Height), nullString(c.MimeType),
			nullIntIfNonZero(c.DurationSec), nullString(c.FileName), nullString(c.Title), nullString(c.Performer),
			nullFloatIfNonZero(c.Lat), nullFloatIfNonZero(c.Lon), nullString(c.PollQuestion),
			nullString(marshalStrings(c.PollAnswers)), nullString(c.ContactFirstName),
			nullString(c.ContactLastName), nullString(c.ContactPhone), pathToDB(c.ContactVCardPath)); err != nil {
			return fmt.Errorf("insert content: %w", err)
		}
	}

	return nil
}

func nullIntIfNonZero(v int) sql.NullInt64 {
	if v == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(v), Valid: true}
}

func nullFloatIfNonZero(v float64) sql.NullFloat64 {
	if v == 0 {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func reverseMessages(msgs []model.Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}
