// Package executor implements the Merge Executor : given a
// master store, a slave store, and a fully resolved set of user/chat/
// message decisions (typically produced by a planning step that replays
// the Merger's diff and applies a human or scripted policy to each
// segment), it materializes a brand-new store containing the merged
// result. It never mutates either input store.
package executor

import (
	"github.com/google/uuid"

	"github.com/chathive/chathive/internal/merge"
	"github.com/chathive/chathive/internal/model"
)

// UserDecisionKind says what becomes of one slave user during the merge.
type UserDecisionKind int

const (
	// UserDrop excludes the slave user's identity from the merged store;
	// any message it authored keeps its original from_user_id, which will
	// dangle unless some other decision also maps that id.
	UserDrop UserDecisionKind = iota
	// UserMergeInto folds the slave user into an existing master user: no
	// new user row is created, and every reference to the slave user is
	// rewritten to MasterUserID.
	UserMergeInto
)

// UserDecision resolves one slave-dataset user's identity against the
// master roster.
type UserDecision struct {
	SlaveUser    model.User
	Kind         UserDecisionKind
	MasterUserID int64 // meaningful only when Kind == UserMergeInto
}

// ChatDecisionKind says what becomes of one chat pairing during the merge.
type ChatDecisionKind int

const (
	// ChatKeep carries a master-only chat into the merged store verbatim.
	ChatKeep ChatDecisionKind = iota
	// ChatDontAdd drops a slave-only chat entirely.
	ChatDontAdd
	// ChatAdd carries a slave-only chat into the merged store verbatim
	// (its messages and members are remapped through the user decisions).
	ChatAdd
	// ChatResolvedCombine merges a chat present on both sides, replaying
	// the diff segments in Messages in order.
	ChatResolvedCombine
)

// ChatDecision resolves one chat pairing.
type ChatDecision struct {
	Kind ChatDecisionKind

	MasterChat    model.Chat
	MasterMembers []model.User
	SlaveChat     model.Chat
	SlaveMembers  []model.User

	// Messages applies only to ChatResolvedCombine, one entry per diff
	// segment in chronological order.
	Messages []MessageDecision
}

// MessageDecisionKind says which side (if any) of a diff segment survives
// into the merged store.
type MessageDecisionKind int

const (
	// MsgRetain keeps a Retain segment's master-only messages (the normal
	// outcome; a planner could in principle drop them, but that is
	// expressed by omitting the segment rather than by a decision kind).
	MsgRetain MessageDecisionKind = iota
	// MsgAdd keeps an Add segment's slave-only messages.
	MsgAdd
	// MsgDontAdd drops an Add segment's slave-only messages entirely.
	MsgDontAdd
	// MsgMatch keeps a Match segment, picking per-pair the side with more
	// resolved media, master winning ties.
	MsgMatch
	// MsgReplace accepts a Replace (Conflict) segment's slave side for the
	// whole range.
	MsgReplace
	// MsgDontReplace keeps a Replace (Conflict) segment's master side for
	// the whole range instead.
	MsgDontReplace
)

// MessageDecision pairs one diff segment with the policy chosen for it.
type MessageDecision struct {
	Kind    MessageDecisionKind
	Segment merge.Segment
}

// Input is everything the Executor needs to materialize a merged store.
type Input struct {
	MasterDataset model.Dataset
	SlaveDataset  uuid.UUID

	Users []UserDecision
	Chats []ChatDecision

	// BatchSize bounds how many messages are buffered before an
	// insert_messages call. Defaults to merge.DefaultBatchSize.
	BatchSize int
}

func (in Input) batchSize() int {
	if in.BatchSize > 0 {
		return in.BatchSize
	}
	return merge.DefaultBatchSize
}
