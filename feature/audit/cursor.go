package audit

import (
	"fmt"

	"corpus-auditor/core/idstream"
)

// cursor holds the head of a stream and enforces ascending order.
type cursor struct {
	name    string
	s       idstream.Stream
	head    uint32
	ok      bool
	started bool
}

func newCursor(name string, s idstream.Stream) (*cursor, error) {
	c := &cursor{name: name, s: s}
	return c, c.next()
}

func (c *cursor) next() error {
	prev := c.head
	id, ok, err := c.s.Next()
	if err != nil {
		return fmt.Errorf("%s: %w", c.name, err)
	}
	if ok && c.started && id < prev {
		return fmt.Errorf("%s: not ascending: %d after %d", c.name, id, prev)
	}
	c.head, c.ok = id, ok
	c.started = c.started || ok
	return nil
}

// skip advances past every occurrence of v and reports whether v was present.
func (c *cursor) skip(v uint32) (bool, error) {
	found := false
	for c.ok && c.head == v {
		found = true
		if err := c.next(); err != nil {
			return found, err
		}
	}
	return found, nil
}
