package explain

import (
	"container/list"
	"crypto/sha256"
	"fmt"
	"math"
	"sync"
	"time"
)

const (
	// DefaultCacheEntries bounds the cache when no capacity is configured.
	DefaultCacheEntries = 100
	// DefaultCacheTTL is the default entry lifetime.
	DefaultCacheTTL = 24 * time.Hour
)

// cacheKey is a fixed-width fingerprint of an explanation request.
type cacheKey [sha256.Size]byte

// computeKey fingerprints the request fields that determine an explanation.
// Fields are written in a fixed, labelled order so semantically identical
// requests always collapse to the same key and any single field change
// produces a different one. The claim ID is deliberately excluded.
func computeKey(errInfo ErrorInfo, claimInfo ClaimInfo) cacheKey {
	h := sha256.New()
	fmt.Fprintf(h, "error_type=%s\n", errInfo.ErrorType)
	fmt.Fprintf(h, "description=%s\n", errInfo.Description)
	fmt.Fprintf(h, "age=%d\n", claimInfo.Age)
	fmt.Fprintf(h, "gender=%s\n", claimInfo.Gender)
	fmt.Fprintf(h, "cpt_code=%s\n", claimInfo.CPTCode)
	fmt.Fprintf(h, "diagnosis_code=%s\n", claimInfo.DiagnosisCode)
	fmt.Fprintf(h, "charge_amount=%.2f\n", claimInfo.ChargeAmount)

	var key cacheKey
	h.Sum(key[:0])
	return key
}

// cacheEntry is one stored explanation with its bookkeeping.
type cacheEntry struct {
	key       cacheKey
	result    ExplanationResult
	createdAt time.Time
	hitCount  int
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits             uint64  `json:"hits"`
	Misses           uint64  `json:"misses"`
	Evictions        uint64  `json:"evictions"`
	TotalRequests    uint64  `json:"total_requests"`
	CurrentSize      int     `json:"current_size"`
	MaxEntries       int     `json:"max_entries"`
	HitRatePercent   float64 `json:"hit_rate_percent"`
	OccupancyPercent float64 `json:"occupancy_percent"`
}

// Cache memoizes explanation results keyed by request fingerprint. Entries
// expire lazily after the configured TTL and the least-recently-used entry is
// evicted when an insert would exceed capacity. All operations are safe for
// concurrent use; a single mutex guards the map, the recency list and the
// counters so each get/put is applied atomically.
type Cache struct {
	mu         sync.Mutex
	maxEntries int
	ttl        time.Duration
	entries    map[cacheKey]*list.Element // values are *cacheEntry
	recency    *list.List                 // front = most recently used

	hits      uint64
	misses    uint64
	evictions uint64
	requests  uint64

	now func() time.Time
}

// NewCache creates a Cache with the given capacity and TTL. Both must be
// positive; construction fails rather than degrading silently.
func NewCache(maxEntries int, ttl time.Duration) (*Cache, error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("cache capacity must be positive, got %d", maxEntries)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive, got %s", ttl)
	}
	return &Cache{
		maxEntries: maxEntries,
		ttl:        ttl,
		entries:    make(map[cacheKey]*list.Element),
		recency:    list.New(),
		now:        time.Now,
	}, nil
}

// Get returns the cached explanation for the request, if present and fresh.
// An expired entry is deleted on the spot and counts as a miss. A hit bumps
// the entry to most-recently-used and increments its hit counter.
func (c *Cache) Get(errInfo ErrorInfo, claimInfo ClaimInfo) (ExplanationResult, bool) {
	key := computeKey(errInfo, claimInfo)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests++

	elem, ok := c.entries[key]
	if !ok {
		c.misses++
		return ExplanationResult{}, false
	}

	entry := elem.Value.(*cacheEntry)
	if c.now().Sub(entry.createdAt) >= c.ttl {
		c.removeLocked(elem)
		c.misses++
		return ExplanationResult{}, false
	}

	entry.hitCount++
	c.recency.MoveToFront(elem)
	c.hits++
	return entry.result, true
}

// Put stores an explanation for the request, evicting the least-recently-used
// entry first when the cache is full and the key is new. An existing key is
// overwritten in place with a fresh timestamp and reset hit counter.
func (c *Cache) Put(errInfo ErrorInfo, claimInfo ClaimInfo, result ExplanationResult) {
	key := computeKey(errInfo, claimInfo)

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.result = result
		entry.createdAt = c.now()
		entry.hitCount = 0
		c.recency.MoveToFront(elem)
		return
	}

	if len(c.entries) >= c.maxEntries {
		c.evictLocked()
	}

	entry := &cacheEntry{key: key, result: result, createdAt: c.now()}
	c.entries[key] = c.recency.PushFront(entry)
}

// evictLocked removes the least-recently-used entry. Caller holds the lock.
func (c *Cache) evictLocked() {
	oldest := c.recency.Back()
	if oldest == nil {
		return
	}
	c.removeLocked(oldest)
	c.evictions++
}

// removeLocked deletes an element from both the map and the recency list so
// the two structures never diverge. Caller holds the lock.
func (c *Cache) removeLocked(elem *list.Element) {
	entry := elem.Value.(*cacheEntry)
	delete(c.entries, entry.key)
	c.recency.Remove(elem)
}

// Stats returns a snapshot of the accumulated counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	hitRate := 0.0
	if c.requests > 0 {
		hitRate = float64(c.hits) / float64(c.requests) * 100
	}
	occupancy := float64(len(c.entries)) / float64(c.maxEntries) * 100

	return Stats{
		Hits:             c.hits,
		Misses:           c.misses,
		Evictions:        c.evictions,
		TotalRequests:    c.requests,
		CurrentSize:      len(c.entries),
		MaxEntries:       c.maxEntries,
		HitRatePercent:   math.Round(hitRate*10) / 10,
		OccupancyPercent: math.Round(occupancy*10) / 10,
	}
}

// Clear empties the cache and resets all counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[cacheKey]*list.Element)
	c.recency.Init()
	c.hits = 0
	c.misses = 0
	c.evictions = 0
	c.requests = 0
}
