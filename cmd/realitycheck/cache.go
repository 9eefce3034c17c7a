package main

import (
	"crypto/md5"
	"fmt"
	"sync"
	"time"
)

// cacheEntry is one stored classification result
type cacheEntry struct {
	result   SentimentResult
	storedAt time.Time
}

// EvictionPolicy decides which entries the classification cache sheds after
// an insert. The policy is a named, swappable strategy so the default can
// change without touching the cache or its callers.
type EvictionPolicy interface {
	Name() string
	// Victims returns the keys to remove given the current entries
	Victims(entries map[string]cacheEntry) []string
}

// KeepAllPolicy never evicts. Acceptable only because run volume is low;
// swap in MaxEntriesPolicy when that stops being true.
type KeepAllPolicy struct{}

func (KeepAllPolicy) Name() string { return "keep-all" }

func (KeepAllPolicy) Victims(map[string]cacheEntry) []string { return nil }

// MaxEntriesPolicy evicts the oldest entries beyond a fixed limit.
type MaxEntriesPolicy struct {
	Limit int
}

func (p MaxEntriesPolicy) Name() string { return fmt.Sprintf("max-entries(%d)", p.Limit) }

func (p MaxEntriesPolicy) Victims(entries map[string]cacheEntry) []string {
	if p.Limit < 1 || len(entries) <= p.Limit {
		return nil
	}
	var victims []string
	for len(entries)-len(victims) > p.Limit {
		oldestKey := ""
		var oldestAt time.Time
		for key, entry := range entries {
			if contains(victims, key) {
				continue
			}
			if oldestKey == "" || entry.storedAt.Before(oldestAt) {
				oldestKey = key
				oldestAt = entry.storedAt
			}
		}
		if oldestKey == "" {
			break
		}
		victims = append(victims, oldestKey)
	}
	return victims
}

// ClassificationCache avoids redundant identical classification calls. It
// is keyed by a content hash of the exact input text and is injected into
// ArticleScorer at construction time.
type ClassificationCache struct {
	entries map[string]cacheEntry
	policy  EvictionPolicy
	mutex   sync.RWMutex
	hits    int64
	misses  int64
}

// NewClassificationCache creates a cache with the given eviction policy
func NewClassificationCache(policy EvictionPolicy) *ClassificationCache {
	if policy == nil {
		policy = KeepAllPolicy{}
	}
	return &ClassificationCache{
		entries: make(map[string]cacheEntry),
		policy:  policy,
	}
}

// Get returns a cached result for the key
func (c *ClassificationCache) Get(key string) (SentimentResult, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		c.misses++
		return SentimentResult{}, false
	}
	c.hits++
	return entry.result, true
}

// Put stores a result and applies the eviction policy
func (c *ClassificationCache) Put(key string, result SentimentResult) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[key] = cacheEntry{result: result, storedAt: time.Now()}
	for _, victim := range c.policy.Victims(c.entries) {
		delete(c.entries, victim)
	}
}

// Len returns the number of cached entries
func (c *ClassificationCache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.entries)
}

// Stats returns hit and miss counts
func (c *ClassificationCache) Stats() (hits, misses int64) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.hits, c.misses
}

// HashText derives the cache key for an input text
func HashText(text string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(text)))
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
