package executor

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/chathive/chathive/internal/model"
	"github.com/chathive/chathive/internal/store"
)

// side identifies which input store a replayed message or member
// originated from, since that determines both its user-id remapping and
// which dataset root its media files are copied out of.
type side int

const (
	sideMaster side = iota
	sideSlave
)

// replayer holds the shared state threaded through one Execute call's chat
// and message replay.
type replayer struct {
	ctx context.Context

	newDB *store.DB
	newDS uuid.UUID

	master   *store.DB
	masterDS uuid.UUID
	slave    *store.DB
	slaveDS  uuid.UUID

	userMap map[int64]int64
	nameMap map[string]string

	batchSize int
	nextChat  int64
}

func (r *replayer) db(s side) *store.DB {
	if s == sideMaster {
		return r.master
	}
	return r.slave
}

func (r *replayer) dataset(s side) uuid.UUID {
	if s == sideMaster {
		return r.masterDS
	}
	return r.slaveDS
}

// chat replays one ChatDecision into the new store, assigning it a fresh
// chat id (ids are not preserved across the merge, since a ResolvedCombine
// decision has no single original id to keep).
func (r *replayer) chat(cd ChatDecision) error {
	switch cd.Kind {
	case ChatDontAdd:
		return nil

	case ChatKeep:
		return r.carryChat(cd.MasterChat, cd.MasterMembers, sideMaster)

	case ChatAdd:
		return r.carryChat(cd.SlaveChat, cd.SlaveMembers, sideSlave)

	case ChatResolvedCombine:
		return r.combineChat(cd)

	default:
		return fmt.Errorf("executor: unknown chat decision kind %d", cd.Kind)
	}
}

// carryChat inserts a chat that exists on only one side, unmodified apart
// from id renumbering and (for the slave side) user remapping.
func (r *replayer) carryChat(c model.Chat, members []model.User, origin side) error {
	chatID := r.nextChat
	r.nextChat++

	nc := c
	nc.DatasetUUID = r.newDS
	nc.ID = chatID
	nc.MainChatID = nil

	memberRows := r.memberRows(chatID, members, origin)
	if err := r.newDB.InsertChat(nc, memberRows); err != nil {
		return fmt.Errorf("insert chat %q: %w", c.Name, err)
	}

	src := r.db(origin)
	srcDS := r.dataset(origin)
	return r.streamAll(chatID, src, srcDS, c.ID, origin)
}

// combineChat inserts a chat present on both sides under a single fresh id
// and replays each of its diff-segment message decisions in order.
func (r *replayer) combineChat(cd ChatDecision) error {
	chatID := r.nextChat
	r.nextChat++

	nc := cd.MasterChat
	if nc.Name == "" && cd.SlaveChat.Name != "" {
		nc = cd.SlaveChat
	}
	nc.DatasetUUID = r.newDS
	nc.ID = chatID
	nc.MainChatID = nil
	nc.Name = combinedChatName(cd)

	order := unionMemberIDs(cd.MasterMembers, cd.SlaveMembers, r.userMap)
	memberRows := make([]model.ChatMember, 0, len(order))
	for i, uid := range order {
		memberRows = append(memberRows, model.ChatMember{DatasetUUID: r.newDS, ChatID: chatID, UserID: uid, Order: i})
	}

	if err := r.newDB.InsertChat(nc, memberRows); err != nil {
		return fmt.Errorf("insert combined chat %q: %w", nc.Name, err)
	}

	buf := make([]model.Message, 0, r.batchSize)
	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		if err := r.newDB.InsertMessages(r.newDS, chatID, buf); err != nil {
			return fmt.Errorf("insert messages: %w", err)
		}
		buf = buf[:0]
		return nil
	}
	add := func(msg model.Message, origin side) error {
		if err := r.ctx.Err(); err != nil {
			return err
		}
		nm, err := r.rewrite(msg, chatID, origin)
		if err != nil {
			return err
		}
		buf = append(buf, nm)
		if len(buf) >= r.batchSize {
			return flush()
		}
		return nil
	}

	for _, md := range cd.Messages {
		if err := r.applyMessageDecision(md, add); err != nil {
			return err
		}
	}
	return flush()
}

// applyMessageDecision dispatches one diff segment's resolved policy to
// add, in message order.
func (r *replayer) applyMessageDecision(md MessageDecision, add func(model.Message, side) error) error {
	seg := md.Segment
	switch md.Kind {
	case MsgRetain:
		for _, m := range seg.Master {
			if err := add(m, sideMaster); err != nil {
				return err
			}
		}
	case MsgAdd:
		for _, m := range seg.Slave {
			if err := add(m, sideSlave); err != nil {
				return err
			}
		}
	case MsgDontAdd:
		// The slave-only range is dropped entirely.
	case MsgReplace:
		for _, m := range seg.Slave {
			if err := add(m, sideSlave); err != nil {
				return err
			}
		}
	case MsgDontReplace:
		for _, m := range seg.Master {
			if err := add(m, sideMaster); err != nil {
				return err
			}
		}
	case MsgMatch:
		n := len(seg.Master)
		if len(seg.Slave) < n {
			n = len(seg.Slave)
		}
		for i := 0; i < n; i++ {
			mm, sm := seg.Master[i], seg.Slave[i]
			if mediaRichness(sm) > mediaRichness(mm) {
				if err := add(sm, sideSlave); err != nil {
					return err
				}
			} else {
				if err := add(mm, sideMaster); err != nil {
					return err
				}
			}
		}
	default:
		return fmt.Errorf("executor: unknown message decision kind %d", md.Kind)
	}
	return nil
}

// streamAll copies every message of one whole chat from origin into the
// new store, batch by batch.
func (r *replayer) streamAll(newChatID int64, src *store.DB, srcDS uuid.UUID, srcChatID int64, origin side) error {
	var cursor *int64
	for {
		if err := r.ctx.Err(); err != nil {
			return err
		}
		msgs, err := src.NextMessageBatch(srcDS, srcChatID, cursor, r.batchSize)
		if err != nil {
			return fmt.Errorf("next message batch: %w", err)
		}
		if len(msgs) == 0 {
			return nil
		}
		out := make([]model.Message, 0, len(msgs))
		for _, m := range msgs {
			nm, err := r.rewrite(m, newChatID, origin)
			if err != nil {
				return err
			}
			out = append(out, nm)
		}
		if err := r.newDB.InsertMessages(r.newDS, newChatID, out); err != nil {
			return fmt.Errorf("insert messages: %w", err)
		}
		last := msgs[len(msgs)-1].InternalID
		cursor = &last
	}
}

// rewrite produces the message that will actually be inserted into the new
// store: author id remapped, group-service member names rewritten to
// resolved pretty names (unresolved names preserved verbatim), and any
// resolved media files copied into the new dataset root under their
// existing relative path.
func (r *replayer) rewrite(m model.Message, newChatID int64, origin side) (model.Message, error) {
	nm := m
	nm.DatasetUUID = r.newDS
	nm.ChatID = newChatID
	nm.InternalID = 0

	if origin == sideSlave {
		nm.FromUserID = r.resolveUser(m.FromUserID)
		if len(m.Body.MemberNames) > 0 {
			names := make([]string, len(m.Body.MemberNames))
			for i, n := range m.Body.MemberNames {
				if resolved, ok := r.nameMap[n]; ok {
					names[i] = resolved
				} else {
					names[i] = n
				}
			}
			nm.Body.MemberNames = names
		}
	}

	if err := r.copyMedia(&nm.Body, origin); err != nil {
		return model.Message{}, err
	}
	return nm, nil
}

func (r *replayer) copyMedia(b *model.Body, origin side) error {
	root := r.db(origin).DatasetRoot(r.dataset(origin))

	copyRef := func(p *model.PathRef) error {
		if p == nil || !p.Resolved() {
			return nil
		}
		if _, err := r.newDB.CopyIntoDatasetRoot(r.newDS, filepath.Join(root, p.Path), p.Path); err != nil {
			return fmt.Errorf("copy media %q: %w", p.Path, err)
		}
		return nil
	}

	if err := copyRef(b.Photo); err != nil {
		return err
	}
	if b.Content == nil {
		return nil
	}
	if err := copyRef(&b.Content.Path); err != nil {
		return err
	}
	if err := copyRef(&b.Content.ThumbnailPath); err != nil {
		return err
	}
	return copyRef(&b.Content.ContactVCardPath)
}

func mediaRichness(m model.Message) int {
	n := 0
	if m.Body.Photo != nil && m.Body.Photo.Resolved() {
		n++
	}
	if c := m.Body.Content; c != nil {
		if c.Path.Resolved() {
			n++
		}
		if c.ThumbnailPath.Resolved() {
			n++
		}
		if c.ContactVCardPath.Resolved() {
			n++
		}
	}
	return n
}

func (r *replayer) memberRows(chatID int64, members []model.User, origin side) []model.ChatMember {
	out := make([]model.ChatMember, 0, len(members))
	for i, u := range members {
		id := u.ID
		if origin == sideSlave {
			id = r.resolveUser(u.ID)
		}
		out = append(out, model.ChatMember{DatasetUUID: r.newDS, ChatID: chatID, UserID: id, Order: i})
	}
	return out
}

// unionMemberIDs combines both sides' member lists into a single
// deduplicated id order: master members first (in their original order),
// then any slave members (remapped) not already present.
func unionMemberIDs(master, slave []model.User, userMap map[int64]int64) []int64 {
	seen := make(map[int64]bool, len(master)+len(slave))
	var order []int64

	for _, u := range master {
		if !seen[u.ID] {
			seen[u.ID] = true
			order = append(order, u.ID)
		}
	}
	for _, u := range slave {
		id := u.ID
		if mapped, ok := userMap[id]; ok {
			id = mapped
		}
		if !seen[id] {
			seen[id] = true
			order = append(order, id)
		}
	}
	return order
}

// combinedChatName computes the merged chat's display name: for a personal
// chat, the non-self member's resolved pretty name; otherwise the master
// chat's name, falling back to the slave chat's.
func combinedChatName(cd ChatDecision) string {
	if cd.MasterChat.Type == model.ChatPersonal {
		for _, u := range cd.MasterMembers {
			if !u.IsMyself {
				if n := u.PrettyName(); n != "" {
					return n
				}
			}
		}
	}
	if cd.MasterChat.Name != "" {
		return cd.MasterChat.Name
	}
	return cd.SlaveChat.Name
}
