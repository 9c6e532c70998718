package cms

import "sync"

type execContext struct {
	batch    sync.Mutex
	mu       sync.RWMutex
	user     string
	siteRoot string
}

// NewContext returns a Context for user with the given initial site root.
func NewContext(user, siteRoot string) Context {
	return &execContext{user: user, siteRoot: siteRoot}
}

func (c *execContext) Principal() string {
	return c.user
}

func (c *execContext) SiteRoot() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.siteRoot
}

func (c *execContext) SetSiteRoot(root string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.siteRoot
	c.siteRoot = root
	return prev
}

func (c *execContext) Lock() {
	c.batch.Lock()
}

func (c *execContext) Unlock() {
	c.batch.Unlock()
}
