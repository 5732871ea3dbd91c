package merge

import (
	"context"

	"github.com/chathive/chathive/internal/model"
)

// cursor buffers one batch of a Source at a time and exposes single-message
// head/advance semantics over it, refilling transparently on exhaustion.
type cursor struct {
	src   Source
	batch int

	buf  []model.Message
	idx  int
	done bool
}

func newCursor(src Source, batch int) *cursor {
	return &cursor{src: src, batch: batch}
}

// head returns the next unconsumed message without advancing. ok is false
// once the underlying Source is exhausted.
func (c *cursor) head(ctx context.Context) (model.Message, bool, error) {
	if c.idx < len(c.buf) {
		return c.buf[c.idx], true, nil
	}
	if c.done {
		return model.Message{}, false, nil
	}
	msgs, err := c.src.Next(ctx, c.batch)
	if err != nil {
		return model.Message{}, false, err
	}
	if len(msgs) == 0 {
		c.done = true
		return model.Message{}, false, nil
	}
	c.buf = msgs
	c.idx = 0
	return c.buf[0], true, nil
}

func (c *cursor) advance() {
	c.idx++
}
