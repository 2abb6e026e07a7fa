package store

import (
	"sync"

	"github.com/qyzk/ohno/internal/gateway"
)

// MemorySessionCache implements gateway.Cache in memory. Sessions do not
// survive a process restart; a restart always identifies fresh.
type MemorySessionCache struct {
	mu   sync.Mutex
	sess gateway.Session
}

// NewMemorySessionCache creates an empty in-memory session cache.
func NewMemorySessionCache() *MemorySessionCache {
	return &MemorySessionCache{}
}

// Load returns the cached session.
func (c *MemorySessionCache) Load() (gateway.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess := c.sess
	if c.sess.LastSeq != nil {
		v := *c.sess.LastSeq
		sess.LastSeq = &v
	}
	return sess, nil
}

// Store overwrites the cached session.
func (c *MemorySessionCache) Store(sess gateway.Session) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sess.LastSeq != nil {
		v := *sess.LastSeq
		sess.LastSeq = &v
	}
	c.sess = sess
	return nil
}
