package executor

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/chathive/chathive/internal/chiveerr"
	"github.com/chathive/chathive/internal/model"
	"github.com/chathive/chathive/internal/store"
)

// Execute replays Input against newStorePath, creating a fresh store there,
// and returns the merged dataset's UUID: create and migrate the new store,
// suspend its backups for the duration of the replay, and on every exit
// path re-enable backups and run an unconditional Backup if the new store
// ended up non-empty.
func Execute(ctx context.Context, newStorePath string, master, slave *store.DB, in Input) (newDB *store.DB, newDataset uuid.UUID, err error) {
	if err := os.MkdirAll(newStorePath, 0700); err != nil {
		return nil, uuid.Nil, fmt.Errorf("executor: create new store dir: %w", err)
	}
	newDB, err = store.Open(newStorePath)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("executor: open new store: %w", err)
	}
	if _, err := newDB.Migrate(); err != nil {
		_ = newDB.Close()
		return nil, uuid.Nil, fmt.Errorf("executor: migrate new store: %w", err)
	}

	newDB.SuspendBackups()
	defer func() {
		newDB.ResumeBackups()
		empty, statErr := newDB.IsEmpty()
		if statErr == nil && !empty {
			_, _ = newDB.Backup()
		}
	}()

	ds := model.Dataset{UUID: model.NewDatasetUUID(), Alias: in.MasterDataset.Alias + " (merged)"}
	if err := newDB.InsertDataset(ds); err != nil {
		return newDB, uuid.Nil, fmt.Errorf("executor: insert merged dataset: %w", err)
	}

	masterUsers, err := master.Users(in.MasterDataset.UUID)
	if err != nil {
		return newDB, uuid.Nil, fmt.Errorf("executor: read master users: %w", err)
	}

	myselfCount := 0
	for _, u := range masterUsers {
		if u.IsMyself {
			myselfCount++
		}
	}
	if myselfCount != 1 {
		return newDB, uuid.Nil, fmt.Errorf("executor: master dataset has %d myself users, want exactly 1: %w", myselfCount, chiveerr.ErrInvariantViolated)
	}

	userMap, nameMap := resolveUsers(masterUsers, in.Users)

	for _, u := range masterUsers {
		nu := u
		nu.DatasetUUID = ds.UUID
		if err := newDB.InsertUser(nu); err != nil {
			return newDB, uuid.Nil, fmt.Errorf("executor: insert user %d: %w", u.ID, err)
		}
	}

	r := &replayer{
		ctx:       ctx,
		newDB:     newDB,
		newDS:     ds.UUID,
		master:    master,
		masterDS:  in.MasterDataset.UUID,
		slave:     slave,
		slaveDS:   in.SlaveDataset,
		userMap:   userMap,
		nameMap:   nameMap,
		batchSize: in.batchSize(),
		nextChat:  1,
	}

	for _, cd := range in.Chats {
		if err := r.chat(cd); err != nil {
			return newDB, uuid.Nil, fmt.Errorf("executor: replay chat: %w", err)
		}
	}

	return newDB, ds.UUID, nil
}

// resolveUsers builds the slave-id -> merged-id map and the slave-pretty-
// name -> merged-pretty-name map used to rewrite group service messages'
// member-name lists. Master users map to themselves, since their rows are
// carried into the merged dataset under the same ids.
func resolveUsers(masterUsers []model.User, decisions []UserDecision) (userMap map[int64]int64, nameMap map[string]string) {
	userMap = make(map[int64]int64, len(masterUsers)+len(decisions))
	nameMap = make(map[string]string, len(decisions))

	byID := make(map[int64]model.User, len(masterUsers))
	for _, u := range masterUsers {
		userMap[u.ID] = u.ID
		byID[u.ID] = u
	}

	for _, d := range decisions {
		switch d.Kind {
		case UserMergeInto:
			userMap[d.SlaveUser.ID] = d.MasterUserID
			if target, ok := byID[d.MasterUserID]; ok {
				if from := d.SlaveUser.PrettyName(); from != "" {
					nameMap[from] = target.PrettyName()
				}
			}
		case UserDrop:
			// No mapping: a message authored by a dropped user keeps its
			// original from_user_id, and its name is preserved verbatim
			// in any service-message member list.
		}
	}
	return userMap, nameMap
}

func (r *replayer) resolveUser(slaveID int64) int64 {
	if id, ok := r.userMap[slaveID]; ok {
		return id
	}
	return slaveID
}
