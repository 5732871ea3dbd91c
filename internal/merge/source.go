package merge

import (
	"context"

	"github.com/google/uuid"

	"github.com/chathive/chathive/internal/model"
	"github.com/chathive/chathive/internal/store"
)

// Source yields a chat's messages in ascending chronological order,
// batch-by-batch, to bound the Merger's memory use. Next returns fewer
// than n messages (including zero) only at exhaustion.
type Source interface {
	Next(ctx context.Context, n int) ([]model.Message, error)
}

// StoreSource is a Source backed by a live Store chat, used by the real
// Merger runs (as opposed to tests, which use SliceSource).
type StoreSource struct {
	DB      *store.DB
	Dataset uuid.UUID
	ChatID  int64

	cursor *int64
}

// NewStoreSource returns a Source over a chat's messages, oldest first.
func NewStoreSource(db *store.DB, dataset uuid.UUID, chatID int64) *StoreSource {
	return &StoreSource{DB: db, Dataset: dataset, ChatID: chatID}
}

func (s *StoreSource) Next(ctx context.Context, n int) ([]model.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	msgs, err := s.DB.NextMessageBatch(s.Dataset, s.ChatID, s.cursor, n)
	if err != nil {
		return nil, err
	}
	if len(msgs) > 0 {
		last := msgs[len(msgs)-1].InternalID
		s.cursor = &last
	}
	return msgs, nil
}

// SliceSource is an in-memory Source, used by tests and by any caller that
// already has a chat's messages materialized.
type SliceSource struct {
	msgs []model.Message
	pos  int
}

// NewSliceSource wraps a pre-sorted slice of messages as a Source.
func NewSliceSource(msgs []model.Message) *SliceSource {
	return &SliceSource{msgs: msgs}
}

func (s *SliceSource) Next(ctx context.Context, n int) ([]model.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.msgs) {
		return nil, nil
	}
	end := s.pos + n
	if end > len(s.msgs) {
		end = len(s.msgs)
	}
	out := s.msgs[s.pos:end]
	s.pos = end
	return out, nil
}
