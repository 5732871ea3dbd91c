// Package merge implements the two-stream streaming diff between a master
// and a slave chat's messages (the Merger, 4): a state machine over
// batched reads that partitions the union of both chats into Match, Retain,
// Add, and Replace segments.
package merge

import (
	"context"
	"fmt"

	"github.com/chathive/chathive/internal/chiveerr"
	"github.com/chathive/chathive/internal/equivalence"
	"github.com/chathive/chathive/internal/model"
)

// Kind discriminates the four diff segment variants.
type Kind int

const (
	KindMatch Kind = iota
	KindRetain
	KindAdd
	KindReplace
)

func (k Kind) String() string {
	switch k {
	case KindMatch:
		return "Match"
	case KindRetain:
		return "Retain"
	case KindAdd:
		return "Add"
	case KindReplace:
		return "Replace"
	default:
		return "Unknown"
	}
}

// Segment is one contiguous run of the diff: Master holds the master-side
// messages of the run (empty for Add), Slave holds the slave-side messages
// (empty for Retain). For Match and Replace, Master[i] corresponds to
// Slave[i].
type Segment struct {
	Kind   Kind
	Master []model.Message
	Slave  []model.Message
}

// DefaultBatchSize is the batch size used when Options.BatchSize is zero.
const DefaultBatchSize = 1000

// Options configures a Diff run.
type Options struct {
	// BatchSize bounds how many messages are read from each side per
	// underlying Source.Next call. Defaults to DefaultBatchSize.
	BatchSize int
	// Master and Slave resolve each side's from_user_id to a logical user
	// id for the equivalence check.
	Master equivalence.Context
	Slave  equivalence.Context
}

func (o Options) batchSize() int {
	if o.BatchSize > 0 {
		return o.BatchSize
	}
	return DefaultBatchSize
}

type state int

const (
	noState state = iota
	matchState
	retentionState
	additionState
	conflictState
)

// Diff runs the streaming diff over master and slave, calling emit once
// per finalized segment in left-to-right order. It periodically checks ctx
// for cooperative cancellation between state-machine steps; on
// cancellation it returns chiveerr.ErrCancelled having emitted only
// complete segments, with no partial segment left dangling.
func Diff(ctx context.Context, master, slave Source, opts Options, emit func(Segment) error) error {
	mc := newCursor(master, opts.batchSize())
	sc := newCursor(slave, opts.batchSize())

	st := noState
	var curMaster, curSlave []model.Message

	flush := func() error {
		if st == noState {
			return nil
		}
		seg := Segment{Master: curMaster, Slave: curSlave}
		switch st {
		case matchState:
			seg.Kind = KindMatch
		case retentionState:
			seg.Kind = KindRetain
		case additionState:
			seg.Kind = KindAdd
		case conflictState:
			seg.Kind = KindReplace
		}
		curMaster, curSlave = nil, nil
		st = noState
		return emit(seg)
	}

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("merge diff: %w: %w", chiveerr.ErrCancelled, err)
		}

		mh, mok, err := mc.head(ctx)
		if err != nil {
			return fmt.Errorf("merge diff: read master: %w", err)
		}
		sh, sok, err := sc.head(ctx)
		if err != nil {
			return fmt.Errorf("merge diff: read slave: %w", err)
		}

		if !mok && !sok {
			return flush()
		}

		switch st {
		case matchState:
			if mok && sok && equivalence.Equivalent(mh, opts.Master, sh, opts.Slave) {
				curMaster = append(curMaster, mh)
				curSlave = append(curSlave, sh)
				mc.advance()
				sc.advance()
				continue
			}
			if err := flush(); err != nil {
				return err
			}
			continue

		case retentionState:
			if mok && (!sok || strictlyBefore(mh, sh)) {
				curMaster = append(curMaster, mh)
				mc.advance()
				continue
			}
			if err := flush(); err != nil {
				return err
			}
			continue

		case additionState:
			if sok && (!mok || strictlyBefore(sh, mh)) {
				curSlave = append(curSlave, sh)
				sc.advance()
				continue
			}
			if err := flush(); err != nil {
				return err
			}
			continue

		case conflictState:
			// A Conflict run only continues over pairs that are still
			// "same source_id but not equivalent" — the instant a pair
			// with matching source_id turns out to be equivalent, NoState
			// would choose Match over Conflict, so the run ends here too.
			if mok && sok && sameSourceID(mh, sh) && !equivalence.Equivalent(mh, opts.Master, sh, opts.Slave) {
				curMaster = append(curMaster, mh)
				curSlave = append(curSlave, sh)
				mc.advance()
				sc.advance()
				continue
			}
			if err := flush(); err != nil {
				return err
			}
			continue
		}

		// st == noState: decide the next run.
		switch {
		case !mok:
			curSlave = append(curSlave, sh)
			sc.advance()
			st = additionState
		case !sok:
			curMaster = append(curMaster, mh)
			mc.advance()
			st = retentionState
		case equivalence.Equivalent(mh, opts.Master, sh, opts.Slave):
			curMaster = append(curMaster, mh)
			curSlave = append(curSlave, sh)
			mc.advance()
			sc.advance()
			st = matchState
		case sameSourceID(mh, sh):
			// The Telegram group-migrate-from identifier-width case needs
			// no extra branch here: when from_id straddles the
			// 0x1_0000_0000 boundary the equivalence check above already
			// fails on the user-resolution clause, and a shared source_id
			// routes the pair into this same Conflict path regardless of
			// from_id inequality.
			if offset, shifted := detectTimeShift(mh, opts.Master, sh, opts.Slave); shifted {
				return fmt.Errorf("merge diff: time shift detected between datasets by %d seconds: %w", abs64(offset), chiveerr.ErrTimeShiftDetected)
			}
			curMaster = append(curMaster, mh)
			curSlave = append(curSlave, sh)
			mc.advance()
			sc.advance()
			st = conflictState
		default:
			less, _, orderable := compareHeads(mh, sh)
			if !orderable {
				return fmt.Errorf("merge diff: %w", chiveerr.ErrUnorderable)
			}
			if less {
				curMaster = append(curMaster, mh)
				mc.advance()
				st = retentionState
			} else {
				curSlave = append(curSlave, sh)
				sc.advance()
				st = additionState
			}
		}
	}
}

// strictlyBefore reports whether a orders strictly before b, used to
// decide whether a Retention/Addition run should keep consuming its side.
// A pair sharing a source_id is never "strictly before" here even if their
// searchable text differs — that pairing belongs to NoState's dedicated
// same-source_id Conflict check, not to a chronological tiebreak, so the
// run ends and control returns to NoState. An unorderable pair likewise
// just ends the run rather than erroring — the fatal check applies only to
// the NoState decision, where no directional fallback exists.
func strictlyBefore(a, b model.Message) bool {
	if sameSourceID(a, b) {
		return false
	}
	less, equal, orderable := compareHeads(a, b)
	return orderable && less && !equal
}

// detectTimeShift checks a diff precondition: when two same-source_id
// heads have different timestamps, see whether shifting the slave message
// onto the master's timestamp would make them equivalent — if so, the
// datasets need shift_dataset_time, not a Conflict decision.
func detectTimeShift(master model.Message, masterCtx equivalence.Context, slave model.Message, slaveCtx equivalence.Context) (int64, bool) {
	if master.Timestamp == slave.Timestamp {
		return 0, false
	}
	offset := master.Timestamp - slave.Timestamp
	shifted := slave
	shifted.Timestamp = master.Timestamp
	if equivalence.Equivalent(master, masterCtx, shifted, slaveCtx) {
		return offset, true
	}
	return 0, false
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
