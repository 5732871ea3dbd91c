package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/chathive/chathive/internal/chiveerr"
	"github.com/chathive/chathive/internal/model"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if _, err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func mustInsertDataset(t *testing.T, db *DB, alias string) model.Dataset {
	t.Helper()
	ds := model.Dataset{UUID: model.NewDatasetUUID(), Alias: alias}
	if err := db.InsertDataset(ds); err != nil {
		t.Fatalf("insert dataset: %v", err)
	}
	return ds
}

func TestDatasetLifecycle(t *testing.T) {
	db := openTestDB(t)
	ds := mustInsertDataset(t, db, "alice-export")

	got, err := db.Datasets()
	if err != nil {
		t.Fatalf("datasets: %v", err)
	}
	if len(got) != 1 || got[0].UUID != ds.UUID || got[0].Alias != "alice-export" {
		t.Fatalf("datasets = %+v", got)
	}

	if err := db.RenameDataset(ds.UUID, "renamed"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	got, _ = db.Datasets()
	if got[0].Alias != "renamed" {
		t.Fatalf("rename did not take effect: %+v", got)
	}

	if err := db.DeleteDataset(ds.UUID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, _ = db.Datasets()
	if len(got) != 0 {
		t.Fatalf("dataset survived delete: %+v", got)
	}

	if err := db.DeleteDataset(ds.UUID); !errors.Is(err, chiveerr.ErrNotFound) {
		t.Fatalf("delete missing dataset: got %v, want ErrNotFound", err)
	}
}

func TestShiftDatasetTime(t *testing.T) {
	db := openTestDB(t)
	ds := mustInsertDataset(t, db, "shift")
	u := model.User{DatasetUUID: ds.UUID, ID: 1, FirstName: "Me", IsMyself: true}
	if err := db.InsertUser(u); err != nil {
		t.Fatalf("insert user: %v", err)
	}
	c := model.Chat{DatasetUUID: ds.UUID, ID: 1, SourceType: model.SourceTextImport, Type: model.ChatPersonal}
	if err := db.InsertChat(c, []model.ChatMember{{DatasetUUID: ds.UUID, ChatID: 1, UserID: 1, Order: 0}}); err != nil {
		t.Fatalf("insert chat: %v", err)
	}

	edit := int64(1100)
	msg := model.Message{
		DatasetUUID: ds.UUID, ChatID: 1, FromUserID: 1, Timestamp: 1000, EditTimestamp: &edit,
		Body: model.Body{Kind: model.BodyRegular, Text: model.RichText{{Kind: model.ElementPlain, Text: "hi"}}},
	}
	batch := []model.Message{msg}
	if err := db.InsertMessages(ds.UUID, 1, batch); err != nil {
		t.Fatalf("insert messages: %v", err)
	}
	msg = batch[0]

	if err := db.ShiftDatasetTime(ds.UUID, 2); err != nil {
		t.Fatalf("shift: %v", err)
	}

	got, err := db.MessageByInternalID(ds.UUID, msg.InternalID)
	if err != nil {
		t.Fatalf("message by internal id: %v", err)
	}
	if got.Timestamp != 1000+7200 {
		t.Fatalf("timestamp = %d, want %d", got.Timestamp, 1000+7200)
	}
	if got.EditTimestamp == nil || *got.EditTimestamp != 1100+7200 {
		t.Fatalf("edit timestamp = %v", got.EditTimestamp)
	}
}

func TestInsertMessagesRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ds := mustInsertDataset(t, db, "round-trip")
	for _, u := range []model.User{
		{DatasetUUID: ds.UUID, ID: 1, FirstName: "Me", IsMyself: true},
		{DatasetUUID: ds.UUID, ID: 2, FirstName: "Them"},
	} {
		if err := db.InsertUser(u); err != nil {
			t.Fatalf("insert user: %v", err)
		}
	}
	c := model.Chat{DatasetUUID: ds.UUID, ID: 1, Name: "DM", SourceType: model.SourceTextImport, Type: model.ChatPersonal}
	members := []model.ChatMember{{DatasetUUID: ds.UUID, ChatID: 1, UserID: 1, Order: 0}, {DatasetUUID: ds.UUID, ChatID: 1, UserID: 2, Order: 1}}
	if err := db.InsertChat(c, members); err != nil {
		t.Fatalf("insert chat: %v", err)
	}

	msg := model.Message{
		DatasetUUID: ds.UUID, ChatID: 1, FromUserID: 2, Timestamp: 500,
		Body: model.Body{
			Kind: model.BodyRegular,
			Text: model.RichText{
				{Kind: model.ElementPlain, Text: "hello "},
				{Kind: model.ElementBold, Text: "world"},
			},
			Content: &model.Content{Kind: model.ContentPhoto, Path: model.PathRef{State: model.PathPresent, Path: "photos/1.jpg"}, Width: 100, Height: 80},
		},
	}
	batch := []model.Message{msg}
	if err := db.InsertMessages(ds.UUID, 1, batch); err != nil {
		t.Fatalf("insert messages: %v", err)
	}
	msg = batch[0]
	if msg.InternalID == 0 {
		t.Fatalf("internal id not assigned")
	}

	got, err := db.MessageByInternalID(ds.UUID, msg.InternalID)
	if err != nil {
		t.Fatalf("message by internal id: %v", err)
	}
	if got.Body.Text.PlainText() != "hello world" {
		t.Fatalf("plain text = %q", got.Body.Text.PlainText())
	}
	if got.Body.Content == nil || got.Body.Content.Width != 100 {
		t.Fatalf("content = %+v", got.Body.Content)
	}
	// The media file was never actually written to disk, so the path must
	// resolve as PathNotFound rather than PathPresent.
	if got.Body.Content.Path.State != model.PathNotFound {
		t.Fatalf("path state = %v, want PathNotFound", got.Body.Content.Path.State)
	}

	chat, err := db.Chat(ds.UUID, 1)
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if chat.MsgCount != 1 {
		t.Fatalf("msg count = %d, want 1", chat.MsgCount)
	}
}

func TestMediaPathResolvesPresentWhenFileExists(t *testing.T) {
	db := openTestDB(t)
	ds := mustInsertDataset(t, db, "media")
	u := model.User{DatasetUUID: ds.UUID, ID: 1, IsMyself: true}
	if err := db.InsertUser(u); err != nil {
		t.Fatalf("insert user: %v", err)
	}
	c := model.Chat{DatasetUUID: ds.UUID, ID: 1, SourceType: model.SourceTextImport, Type: model.ChatPersonal}
	if err := db.InsertChat(c, []model.ChatMember{{DatasetUUID: ds.UUID, ChatID: 1, UserID: 1}}); err != nil {
		t.Fatalf("insert chat: %v", err)
	}

	srcDir := t.TempDir()
	srcFile := filepath.Join(srcDir, "pic.jpg")
	if err := os.WriteFile(srcFile, []byte("fake-jpeg"), 0600); err != nil {
		t.Fatalf("write src file: %v", err)
	}
	rel, err := db.CopyIntoDatasetRoot(ds.UUID, srcFile, filepath.Join("photos", "pic.jpg"))
	if err != nil {
		t.Fatalf("copy into dataset root: %v", err)
	}

	msg := model.Message{
		DatasetUUID: ds.UUID, ChatID: 1, FromUserID: 1, Timestamp: 1,
		Body: model.Body{Kind: model.BodyRegular, Content: &model.Content{Kind: model.ContentPhoto, Path: model.PathRef{State: model.PathPresent, Path: rel}}},
	}
	batch := []model.Message{msg}
	if err := db.InsertMessages(ds.UUID, 1, batch); err != nil {
		t.Fatalf("insert messages: %v", err)
	}
	msg = batch[0]

	got, err := db.MessageByInternalID(ds.UUID, msg.InternalID)
	if err != nil {
		t.Fatalf("message by internal id: %v", err)
	}
	if got.Body.Content.Path.State != model.PathPresent {
		t.Fatalf("path state = %v, want PathPresent", got.Body.Content.Path.State)
	}
}

func TestMessagePagination(t *testing.T) {
	db := openTestDB(t)
	ds := mustInsertDataset(t, db, "pagination")
	u := model.User{DatasetUUID: ds.UUID, ID: 1, IsMyself: true}
	if err := db.InsertUser(u); err != nil {
		t.Fatalf("insert user: %v", err)
	}
	c := model.Chat{DatasetUUID: ds.UUID, ID: 1, SourceType: model.SourceTextImport, Type: model.ChatPersonal}
	if err := db.InsertChat(c, []model.ChatMember{{DatasetUUID: ds.UUID, ChatID: 1, UserID: 1}}); err != nil {
		t.Fatalf("insert chat: %v", err)
	}

	var msgs []model.Message
	for i := int64(0); i < 10; i++ {
		msgs = append(msgs, model.Message{
			DatasetUUID: ds.UUID, ChatID: 1, FromUserID: 1, Timestamp: i,
			Body: model.Body{Kind: model.BodyRegular, Text: model.RichText{{Kind: model.ElementPlain, Text: "m"}}},
		})
	}
	if err := db.InsertMessages(ds.UUID, 1, msgs); err != nil {
		t.Fatalf("insert messages: %v", err)
	}

	first, err := db.FirstMessages(ds.UUID, 1, 3)
	if err != nil {
		t.Fatalf("first messages: %v", err)
	}
	if len(first) != 3 || first[0].Timestamp != 0 || first[2].Timestamp != 2 {
		t.Fatalf("first messages = %+v", timestampsOf(first))
	}

	last, err := db.LastMessages(ds.UUID, 1, 3)
	if err != nil {
		t.Fatalf("last messages: %v", err)
	}
	if len(last) != 3 || last[0].Timestamp != 7 || last[2].Timestamp != 9 {
		t.Fatalf("last messages = %+v", timestampsOf(last))
	}

	after, err := db.MessagesAfter(ds.UUID, 1, first[2].InternalID, 3)
	if err != nil {
		t.Fatalf("messages after: %v", err)
	}
	if len(after) != 3 || after[0].InternalID != first[2].InternalID || after[0].Timestamp != 2 {
		t.Fatalf("messages after = %+v", timestampsOf(after))
	}

	before, err := db.MessagesBefore(ds.UUID, 1, last[0].InternalID, 3)
	if err != nil {
		t.Fatalf("messages before: %v", err)
	}
	if len(before) != 3 || before[2].InternalID != last[0].InternalID || before[2].Timestamp != 7 {
		t.Fatalf("messages before = %+v", timestampsOf(before))
	}

	scrolled, err := db.ScrollMessages(ds.UUID, 1, 4, 3)
	if err != nil {
		t.Fatalf("scroll messages: %v", err)
	}
	if len(scrolled) != 3 || scrolled[0].Timestamp != 4 {
		t.Fatalf("scroll messages = %+v", timestampsOf(scrolled))
	}

	lo, hi := after[1].InternalID, before[1].InternalID
	n, err := db.MessagesSliceLength(ds.UUID, 1, lo, hi)
	if err != nil {
		t.Fatalf("slice length: %v", err)
	}
	if n != 4 {
		t.Fatalf("slice length = %d, want 4", n)
	}

	slice, err := db.MessagesSlice(ds.UUID, 1, lo, hi)
	if err != nil {
		t.Fatalf("slice: %v", err)
	}
	if int64(len(slice)) != n || slice[0].InternalID != lo || slice[len(slice)-1].InternalID != hi {
		t.Fatalf("slice = %+v", timestampsOf(slice))
	}
}

func TestSearchMessagesIsPlainStringScan(t *testing.T) {
	db := openTestDB(t)
	ds := mustInsertDataset(t, db, "search")
	u := model.User{DatasetUUID: ds.UUID, ID: 1, IsMyself: true}
	if err := db.InsertUser(u); err != nil {
		t.Fatalf("insert user: %v", err)
	}
	c := model.Chat{DatasetUUID: ds.UUID, ID: 1, SourceType: model.SourceTextImport, Type: model.ChatPersonal}
	if err := db.InsertChat(c, []model.ChatMember{{DatasetUUID: ds.UUID, ChatID: 1, UserID: 1}}); err != nil {
		t.Fatalf("insert chat: %v", err)
	}

	texts := []string{"good morning", "see you later", "MORNING coffee"}
	var msgs []model.Message
	for i, text := range texts {
		msgs = append(msgs, model.Message{
			DatasetUUID: ds.UUID, ChatID: 1, FromUserID: 1, Timestamp: int64(i),
			Body: model.Body{Kind: model.BodyRegular, Text: model.RichText{{Kind: model.ElementPlain, Text: text}}},
		})
	}
	if err := db.InsertMessages(ds.UUID, 1, msgs); err != nil {
		t.Fatalf("insert messages: %v", err)
	}

	got, err := db.SearchMessages(ds.UUID, 1, "morning", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("search results = %d, want 2", len(got))
	}
}

func TestMergeUsers(t *testing.T) {
	db := openTestDB(t)
	ds := mustInsertDataset(t, db, "merge-users")
	for _, u := range []model.User{
		{DatasetUUID: ds.UUID, ID: 1, FirstName: "Me", IsMyself: true},
		{DatasetUUID: ds.UUID, ID: 2, FirstName: "Old"},
		{DatasetUUID: ds.UUID, ID: 3, FirstName: "New"},
	} {
		if err := db.InsertUser(u); err != nil {
			t.Fatalf("insert user: %v", err)
		}
	}
	c := model.Chat{DatasetUUID: ds.UUID, ID: 1, SourceType: model.SourceTextImport, Type: model.ChatPrivateGroup}
	members := []model.ChatMember{
		{DatasetUUID: ds.UUID, ChatID: 1, UserID: 1, Order: 0},
		{DatasetUUID: ds.UUID, ChatID: 1, UserID: 2, Order: 1},
	}
	if err := db.InsertChat(c, members); err != nil {
		t.Fatalf("insert chat: %v", err)
	}
	msg := model.Message{DatasetUUID: ds.UUID, ChatID: 1, FromUserID: 2, Timestamp: 1,
		Body: model.Body{Kind: model.BodyRegular, Text: model.RichText{{Kind: model.ElementPlain, Text: "hi"}}}}
	batch := []model.Message{msg}
	if err := db.InsertMessages(ds.UUID, 1, batch); err != nil {
		t.Fatalf("insert messages: %v", err)
	}
	msg = batch[0]

	if err := db.MergeUsers(ds.UUID, 2, 3); err != nil {
		t.Fatalf("merge users: %v", err)
	}

	got, err := db.MessageByInternalID(ds.UUID, msg.InternalID)
	if err != nil {
		t.Fatalf("message by internal id: %v", err)
	}
	if got.FromUserID != 3 {
		t.Fatalf("from user = %d, want 3", got.FromUserID)
	}

	if _, err := db.User(ds.UUID, 2); !errors.Is(err, chiveerr.ErrNotFound) {
		t.Fatalf("merged-away user still present: %v", err)
	}
}

func timestampsOf(msgs []model.Message) []int64 {
	out := make([]int64, len(msgs))
	for i, m := range msgs {
		out[i] = m.Timestamp
	}
	return out
}

