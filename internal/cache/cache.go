// Package cache memoizes tokenization results. Answer strings repeat heavily
// across QA rows, so the QA encoder keeps one of these per run.
package cache

import "sync"

// TokenCache is a generic interface for caching sub-token sequences.
type TokenCache interface {
	// Get retrieves the sub-tokens for a text, if present.
	Get(text string) ([]string, bool)
	// Put stores the sub-tokens for a text.
	Put(text string, tokens []string)
	// Size returns the number of cached entries.
	Size() int
}

// MapCache is a simple in-memory implementation of TokenCache.
type MapCache struct {
	data map[string][]string
	mu   sync.RWMutex
}

func NewMapCache() *MapCache {
	return &MapCache{data: make(map[string][]string)}
}

func (c *MapCache) Get(text string) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	// Return a copy so callers cannot mutate the cached slice.
	if v, ok := c.data[text]; ok {
		dst := make([]string, len(v))
		copy(dst, v)
		return dst, true
	}
	return nil, false
}

func (c *MapCache) Put(text string, tokens []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	dst := make([]string, len(tokens))
	copy(dst, tokens)
	c.data[text] = dst
}

func (c *MapCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
