package httpapi

import "sync"

// conversationLocks serializes turns per conversation while letting different
// conversations proceed in parallel. Entries are dropped once unused.
type conversationLocks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newConversationLocks() *conversationLocks {
	return &conversationLocks{locks: make(map[string]*lockEntry)}
}

func (c *conversationLocks) lock(id string) (unlock func()) {
	c.mu.Lock()
	e, ok := c.locks[id]
	if !ok {
		e = &lockEntry{}
		c.locks[id] = e
	}
	e.refs++
	c.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		c.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(c.locks, id)
		}
		c.mu.Unlock()
	}
}

func (c *conversationLocks) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.locks)
}
