// Package respcache is a content-addressed store for model responses,
// bounded by TTL and an LRU entry cap. Only idempotent query/report
// responses belong here; the agent never caches control confirmations.
package respcache

import (
	"container/list"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultMaxAge     = 5 * time.Minute
	DefaultMaxEntries = 200

	// Stored user input is truncated; it exists for pattern-based
	// invalidation and debugging, not for replay.
	userInputKeep = 100
)

type entry struct {
	key       string
	response  string
	timestamp time.Time
	latency   time.Duration
	userInput string
}

// Stats is a point-in-time snapshot of cache behavior.
type Stats struct {
	TotalEntries   int           `json:"total_entries"`
	ValidEntries   int           `json:"valid_entries"`
	ExpiredEntries int           `json:"expired_entries"`
	MaxEntries     int           `json:"max_entries"`
	Hits           int64         `json:"hits"`
	Misses         int64         `json:"misses"`
	HitRate        string        `json:"hit_rate"`
	Evictions      int64         `json:"evictions"`
	SavedLatency   time.Duration `json:"saved_latency"`
	CacheAge       time.Duration `json:"cache_age"`
	MaxAge         time.Duration `json:"max_age"`
}

// RecentQuery is a debugging view of one cached entry.
type RecentQuery struct {
	Query           string `json:"query"`
	Age             string `json:"age"`
	ResponsePreview string `json:"response_preview"`
}

// Cache is safe for concurrent use.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]*list.Element // key -> element holding *entry
	order      *list.List               // front = least recently used
	maxAge     time.Duration
	maxEntries int
	logger     *logrus.Logger

	hits         int64
	misses       int64
	evictions    int64
	savedLatency time.Duration
	created      time.Time

	now func() time.Time
}

// New creates a cache. Non-positive maxAge/maxEntries fall back to the
// defaults.
func New(maxAge time.Duration, maxEntries int, logger *logrus.Logger) *Cache {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	c := &Cache{
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		maxAge:     maxAge,
		maxEntries: maxEntries,
		logger:     logger,
		now:        time.Now,
	}
	c.created = c.now()
	return c
}

// key derives the cache key. The prompt is hashed first because it can
// be arbitrarily long; the utterance is normalized so trivially
// different phrasings collide.
func (c *Cache) key(prompt, userInput string) string {
	promptSum := md5.Sum([]byte(prompt))
	promptHash := hex.EncodeToString(promptSum[:])[:8]
	normalized := strings.ToLower(strings.TrimSpace(userInput))
	combined := md5.Sum([]byte(promptHash + "||" + normalized))
	return hex.EncodeToString(combined[:])
}

// Get returns the cached response for (prompt, userInput), or false on
// a miss. Expired entries are removed on access.
func (c *Cache) Get(prompt, userInput string) (string, bool) {
	key := c.key(prompt, userInput)

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		c.misses++
		return "", false
	}

	e := elem.Value.(*entry)
	if c.now().Sub(e.timestamp) > c.maxAge {
		c.removeLocked(elem)
		c.misses++
		c.evictions++
		return "", false
	}

	c.hits++
	c.savedLatency += e.latency
	c.order.MoveToBack(elem)

	c.logger.WithField("input", truncate(userInput, 30)).Debug("Response cache hit")
	return e.response, true
}

// Set stores a response, evicting least-recently-used entries while the
// cap is exceeded.
func (c *Cache) Set(prompt, userInput, response string, latency time.Duration) {
	key := c.key(prompt, userInput)

	c.mu.Lock()
	defer c.mu.Unlock()

	e := &entry{
		key:       key,
		response:  response,
		timestamp: c.now(),
		latency:   latency,
		userInput: truncate(userInput, userInputKeep),
	}

	if elem, ok := c.entries[key]; ok {
		elem.Value = e
		c.order.MoveToBack(elem)
	} else {
		c.entries[key] = c.order.PushBack(e)
	}

	for c.order.Len() > c.maxEntries {
		c.removeLocked(c.order.Front())
		c.evictions++
	}

	c.logger.WithField("input", truncate(userInput, 30)).Debug("Response cache set")
}

// Invalidate removes entries whose stored user input contains pattern
// (case-insensitive); an empty pattern clears everything. Returns the
// number of removed entries.
func (c *Cache) Invalidate(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pattern == "" {
		count := c.order.Len()
		c.entries = make(map[string]*list.Element)
		c.order.Init()
		return count
	}

	needle := strings.ToLower(pattern)
	removed := 0
	for elem := c.order.Front(); elem != nil; {
		next := elem.Next()
		if strings.Contains(strings.ToLower(elem.Value.(*entry).userInput), needle) {
			c.removeLocked(elem)
			removed++
		}
		elem = next
	}
	return removed
}

// CleanupExpired sweeps out all entries past their TTL regardless of
// access pattern. Returns the number removed.
func (c *Cache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for elem := c.order.Front(); elem != nil; {
		next := elem.Next()
		if now.Sub(elem.Value.(*entry).timestamp) > c.maxAge {
			c.removeLocked(elem)
			c.evictions++
			removed++
		}
		elem = next
	}
	return removed
}

// Stats returns current counters and entry validity counts.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	valid := 0
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		if now.Sub(elem.Value.(*entry).timestamp) <= c.maxAge {
			valid++
		}
	}

	total := c.hits + c.misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(c.hits) / float64(total) * 100
	}

	return Stats{
		TotalEntries:   c.order.Len(),
		ValidEntries:   valid,
		ExpiredEntries: c.order.Len() - valid,
		MaxEntries:     c.maxEntries,
		Hits:           c.hits,
		Misses:         c.misses,
		HitRate:        fmt.Sprintf("%.1f%%", hitRate),
		Evictions:      c.evictions,
		SavedLatency:   c.savedLatency,
		CacheAge:       now.Sub(c.created).Truncate(time.Second),
		MaxAge:         c.maxAge,
	}
}

// RecentQueries returns the most recently used entries, newest first.
func (c *Cache) RecentQueries(limit int) []RecentQuery {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	out := make([]RecentQuery, 0, limit)
	for elem := c.order.Back(); elem != nil && len(out) < limit; elem = elem.Prev() {
		e := elem.Value.(*entry)
		out = append(out, RecentQuery{
			Query:           e.userInput,
			Age:             now.Sub(e.timestamp).Truncate(time.Second).String(),
			ResponsePreview: truncate(e.response, 50),
		})
	}
	return out
}

// Clear empties the cache and resets all statistics.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.order.Init()
	c.hits, c.misses, c.evictions = 0, 0, 0
	c.savedLatency = 0
	c.created = c.now()
}

func (c *Cache) removeLocked(elem *list.Element) {
	delete(c.entries, elem.Value.(*entry).key)
	c.order.Remove(elem)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
