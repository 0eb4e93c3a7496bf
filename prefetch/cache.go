package prefetch

import (
	"time"
)

// Cache maps URL keys to entries. It lives for the whole session and is
// mutated in place; callers serialize access.
type Cache struct {
	policy  Policy
	entries map[string]*Entry
}

// NewCache creates an empty cache classifying entries with policy. Zero
// windows take the DefaultPolicy values.
func NewCache(policy Policy) *Cache {
	return &Cache{
		policy:  policy.withDefaults(),
		entries: make(map[string]*Entry),
	}
}

// Policy returns the effective freshness policy.
func (c *Cache) Policy() Policy { return c.policy }

// Get returns the entry under key.
func (c *Cache) Get(key string) (*Entry, bool) {
	e, ok := c.entries[key]
	return e, ok
}

// Set stores e under key, replacing any previous entry.
func (c *Cache) Set(key string, e *Entry) {
	if e == nil {
		panic("prefetch: nil entry")
	}
	c.entries[key] = e
}

// Delete removes the entry under key.
func (c *Cache) Delete(key string) {
	delete(c.entries, key)
}

// Len returns the number of entries.
func (c *Cache) Len() int { return len(c.entries) }

// Clear removes every entry.
func (c *Cache) Clear() {
	clear(c.entries)
}

// Classify returns the status of the entry under key at now. A missing
// entry is expired.
func (c *Cache) Classify(key string, now time.Time) Status {
	e, ok := c.entries[key]
	if !ok {
		return StatusExpired
	}
	return c.policy.Classify(e, now)
}

// Prune removes the entries that are expired at now and returns how many
// were removed.
func (c *Cache) Prune(now time.Time) int {
	n := 0
	for k, e := range c.entries {
		if c.policy.Classify(e, now) == StatusExpired {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Upgrade records a prefetch request of kind for key and reports whether a
// fetch must be issued for it. A temporary entry adopts kind without a
// fetch; only an auto entry asked for full content is fetched again.
func (c *Cache) Upgrade(key string, kind Kind) bool {
	e, ok := c.entries[key]
	if !ok {
		return true
	}
	if e.Kind == KindTemporary {
		e.Kind = kind
		return false
	}
	return e.Kind == KindAuto && kind == KindFull
}
