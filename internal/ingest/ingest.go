// Package ingest wires a loader.Port's output into a store.DB: the
// Loader -> Store half of the control flow, invoked by chivectl's load
// subcommand. It absorbs
// one loader.Result into a freshly created dataset, publishing progress
// as a bus event and a structured log line.
package ingest

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/chathive/chathive/internal/bus"
	"github.com/chathive/chathive/internal/loader"
	"github.com/chathive/chathive/internal/model"
	"github.com/chathive/chathive/internal/store"
)

// Load runs port against path, creates a new dataset named alias, and
// inserts every user, chat, and message the loader produced. A
// *loader.PartialParseError is not fatal: the dataset is still created
// from whatever the loader managed to parse, and the warnings are logged
// and returned alongside the dataset so a caller can surface them.
func Load(db *store.DB, port loader.Port, path, alias string, b *bus.Bus, logger *zap.Logger) (model.Dataset, []string, error) {
	res, loadErr := port.Load(path)

	var warnings []string
	if pe, ok := asPartialParseError(loadErr); ok {
		warnings = pe.Warnings
	} else if loadErr != nil {
		return model.Dataset{}, nil, fmt.Errorf("ingest: load %q: %w", path, loadErr)
	}

	ds := model.Dataset{UUID: model.NewDatasetUUID(), Alias: alias}
	if err := db.InsertDataset(ds); err != nil {
		return model.Dataset{}, warnings, fmt.Errorf("ingest: create dataset: %w", err)
	}

	for _, u := range res.Users {
		u.DatasetUUID = ds.UUID
		if err := db.InsertUser(u); err != nil {
			return ds, warnings, fmt.Errorf("ingest: insert user %d: %w", u.ID, err)
		}
	}

	chatsLoaded, msgsLoaded := 0, 0
	for _, c := range res.Chats {
		c.DatasetUUID = ds.UUID
		var members []model.ChatMember
		for _, m := range res.Members[c.ID] {
			m.DatasetUUID = ds.UUID
			members = append(members, m)
		}
		if err := db.InsertChat(c, members); err != nil {
			return ds, warnings, fmt.Errorf("ingest: insert chat %d: %w", c.ID, err)
		}
		chatsLoaded++

		msgs := res.Messages[c.ID]
		for i := range msgs {
			msgs[i].DatasetUUID = ds.UUID
		}
		if err := db.InsertMessages(ds.UUID, c.ID, msgs); err != nil {
			return ds, warnings, fmt.Errorf("ingest: insert messages for chat %d: %w", c.ID, err)
		}
		msgsLoaded += len(msgs)
	}

	if logger != nil {
		logger.Info("dataset ingested",
			zap.String("alias", alias),
			zap.Int("chats", chatsLoaded),
			zap.Int("messages", msgsLoaded),
			zap.Int("warnings", len(warnings)))
	}
	if b != nil {
		b.Publish(bus.Event{
			Kind:      "ingest.dataset_loaded",
			Timestamp: time.Now(),
			Payload: DatasetLoaded{
				Dataset:  ds,
				Chats:    chatsLoaded,
				Messages: msgsLoaded,
				Warnings: len(warnings),
			},
		})
	}

	return ds, warnings, nil
}

// DatasetLoaded is the bus payload published once a Load call completes.
type DatasetLoaded struct {
	Dataset  model.Dataset
	Chats    int
	Messages int
	Warnings int
}

func asPartialParseError(err error) (*loader.PartialParseError, bool) {
	pe, ok := err.(*loader.PartialParseError)
	return pe, ok
}
