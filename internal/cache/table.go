// Package cache memoizes merged trace tables per replay.
package cache

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/cespare/xxhash/v2"

	"replaytrace/internal/timeline"
)

// DefaultMaxEntries bounds a Cache created with a non-positive size.
const DefaultMaxEntries = 256

// Fingerprint hashes every input that influences timeline.Merge. Inputs that
// are equal field by field produce the same fingerprint.
func Fingerprint(frames []timeline.Frame, events []timeline.Event, sessionStartMs int64) uint64 {
	d := xxhash.New()
	var buf [8]byte

	writeInt := func(v int64) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		d.Write(buf[:])
	}
	writeFloat := func(v float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		d.Write(buf[:])
	}
	writeString := func(s string) {
		writeInt(int64(len(s)))
		d.WriteString(s)
	}

	writeInt(sessionStartMs)

	writeInt(int64(len(frames)))
	for _, f := range frames {
		writeInt(f.TimestampMs)
		writeInt(f.OffsetMs)
		writeString(f.Kind)
		writeString(f.Title)
		writeString(f.Description)
	}

	writeInt(int64(len(events)))
	for _, e := range events {
		writeFloat(e.StartTimestamp)
		writeFloat(e.DurationMs)
		writeString(e.TraceID)
		writeString(e.Transaction)
		writeString(e.Op)
		writeString(e.Project)
	}

	return d.Sum64()
}

type entry struct {
	fingerprint  uint64
	rows         []timeline.Row
	lastAccessed uint64
}

// Cache keeps the last merged table per key together with the fingerprint of
// the inputs it was computed from.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]*entry
	maxEntries int
	clock      uint64
}

// New creates a Cache holding at most maxEntries tables.
func New(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache{
		entries:    make(map[string]*entry),
		maxEntries: maxEntries,
	}
}

// GetOrCompute returns the rows cached under key when they were computed from
// inputs with fingerprint fp. Otherwise it runs compute, stores the result and
// returns it. The boolean reports a cache hit. Returned rows are shared and
// must not be modified.
func (c *Cache) GetOrCompute(key string, fp uint64, compute func() []timeline.Row) ([]timeline.Row, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	if ok && e.fingerprint == fp {
		rows := e.rows
		c.mu.RUnlock()

		c.mu.Lock()
		c.clock++
		e.lastAccessed = c.clock
		c.mu.Unlock()
		return rows, true
	}
	c.mu.RUnlock()

	rows := compute()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}
	c.clock++
	c.entries[key] = &entry{
		fingerprint:  fp,
		rows:         rows,
		lastAccessed: c.clock,
	}

	return rows, false
}

// Invalidate drops the table cached under key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len returns the number of cached tables.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// evictOldest must be called with the write lock held.
func (c *Cache) evictOldest() {
	var oldestKey string
	var oldest uint64
	for key, e := range c.entries {
		if oldestKey == "" || e.lastAccessed < oldest {
			oldestKey = key
			oldest = e.lastAccessed
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
