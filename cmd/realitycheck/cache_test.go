package main

import (
	"fmt"
	"testing"
	"time"
)

func TestCacheGetPutRoundtrip(t *testing.T) {
	cache := NewClassificationCache(KeepAllPolicy{})
	key := HashText("article body")
	want := SentimentResult{Score: 0.8, Reasoning: "REAL"}

	if _, ok := cache.Get(key); ok {
		t.Fatal("empty cache returned a hit")
	}
	cache.Put(key, want)
	got, ok := cache.Get(key)
	if !ok || got != want {
		t.Errorf("Get = %+v, %v; want %+v, true", got, ok, want)
	}

	hits, misses := cache.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("stats = %d hits, %d misses; want 1, 1", hits, misses)
	}
}

func TestKeepAllPolicyNeverEvicts(t *testing.T) {
	cache := NewClassificationCache(KeepAllPolicy{})
	for i := 0; i < 50; i++ {
		cache.Put(HashText(fmt.Sprintf("article %d", i)), SentimentResult{Score: 0.5})
	}
	if cache.Len() != 50 {
		t.Errorf("cache holds %d entries, want 50", cache.Len())
	}
}

func TestMaxEntriesPolicyEvictsOldest(t *testing.T) {
	cache := NewClassificationCache(MaxEntriesPolicy{Limit: 3})
	keys := make([]string, 5)
	for i := range keys {
		keys[i] = HashText(fmt.Sprintf("article %d", i))
		cache.Put(keys[i], SentimentResult{Score: float64(i)})
		// Distinct timestamps so eviction order is deterministic
		time.Sleep(2 * time.Millisecond)
	}

	if cache.Len() != 3 {
		t.Fatalf("cache holds %d entries, want 3", cache.Len())
	}
	for _, key := range keys[:2] {
		if _, ok := cache.Get(key); ok {
			t.Errorf("oldest key %s survived eviction", key)
		}
	}
	for _, key := range keys[2:] {
		if _, ok := cache.Get(key); !ok {
			t.Errorf("recent key %s was evicted", key)
		}
	}
}

func TestMaxEntriesPolicyZeroLimitDisablesEviction(t *testing.T) {
	cache := NewClassificationCache(MaxEntriesPolicy{Limit: 0})
	for i := 0; i < 10; i++ {
		cache.Put(HashText(fmt.Sprintf("a%d", i)), SentimentResult{})
	}
	if cache.Len() != 10 {
		t.Errorf("cache holds %d entries, want 10", cache.Len())
	}
}

func TestHashTextIsStable(t *testing.T) {
	if HashText("same input") != HashText("same input") {
		t.Error("identical input hashed differently")
	}
	if HashText("one") == HashText("two") {
		t.Error("different inputs collided")
	}
}
