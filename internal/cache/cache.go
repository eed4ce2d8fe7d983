// Package cache provides a bounded LRU store of validated sentence
// rewrites, so repeated sentences (dialogue, refrains, headers) do not
// trigger redundant provider calls.
package cache

import (
	"fmt"
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/alnah/go-simplify/internal/oracle"
	"github.com/alnah/go-simplify/internal/sentence"
)

// DefaultCapacity bounds the cache when no explicit capacity is given.
const DefaultCapacity = 500

// entry records a validated candidate together with the word limit it
// was produced under. A rewrite valid for a stricter limit is also valid
// for a looser one, never the reverse.
type entry struct {
	limit     int
	candidate oracle.Candidate
}

// Cache maps normalized sentences to previously validated rewrites with
// strict least-recently-used eviction.
//
// Only validated candidates may be stored: the cache must never
// propagate a rejected or unvalidated rewrite across sentences. Callers
// enforce this invariant at the store site.
//
// All methods are safe for concurrent use. The lookup-then-store
// sequence for a single sentence is serialized by the orchestrator, not
// the cache.
type Cache struct {
	mu       sync.Mutex
	entries  *lru.Cache[string, entry]
	capacity int
	hits     uint64
	misses   uint64
}

// Stats is a point-in-time snapshot of cache effectiveness.
type Stats struct {
	Size     int
	Capacity int
	Hits     uint64
	Misses   uint64
}

// HitRate returns the fraction of lookups served from the cache, in [0, 1].
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// New creates a Cache bounded to capacity entries.
// Non-positive capacities fall back to DefaultCapacity.
func New(capacity int) (*Cache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	entries, err := lru.New[string, entry](capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU store: %w", err)
	}
	return &Cache{entries: entries, capacity: capacity}, nil
}

// key builds the cache key from the normalized sentence and the limit
// the candidate was produced under.
func key(normalized string, limit int) string {
	return strconv.Itoa(limit) + "\x1f" + normalized
}

// Lookup returns a cached rewrite usable for the requested limit.
// An entry qualifies if it was produced under the same or a stricter
// limit; entries from looser limits are never served without
// re-validation. The closest (loosest qualifying) entry wins, since its
// fragments are the least over-fragmented.
func (c *Cache) Lookup(sentenceText string, limit int) (oracle.Candidate, bool) {
	normalized := sentence.Normalize(sentenceText)

	c.mu.Lock()
	defer c.mu.Unlock()

	for l := limit; l >= 1; l-- {
		if e, ok := c.entries.Get(key(normalized, l)); ok {
			c.hits++
			return e.candidate, true
		}
	}
	c.misses++
	return oracle.Candidate{}, false
}

// Store records a validated candidate under the limit it was produced
// for. Storing overwrites any previous entry for the same sentence and
// limit.
func (c *Cache) Store(sentenceText string, limit int, candidate oracle.Candidate) {
	normalized := sentence.Normalize(sentenceText)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Add(key(normalized, limit), entry{limit: limit, candidate: candidate})
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Size:     c.entries.Len(),
		Capacity: c.capacity,
		Hits:     c.hits,
		Misses:   c.misses,
	}
}

// Purge empties the cache and resets the counters.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
	c.hits = 0
	c.misses = 0
}
