package trigger

import "sync"

// Cache memoizes compiled triggers by their raw text. The snippet manager
// clears it wholesale on every reload so stale patterns never outlive the
// snippet list that produced them.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Compiled
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]*Compiled)}
}

// Get returns the compiled form of trigger, compiling and caching on miss.
func (c *Cache) Get(trigger string) *Compiled {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ct, ok := c.entries[trigger]; ok {
		return ct
	}
	ct := Compile(trigger)
	c.entries[trigger] = ct
	return ct
}

// Invalidate drops every cached entry.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Compiled)
}

// Len reports the number of cached triggers.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
