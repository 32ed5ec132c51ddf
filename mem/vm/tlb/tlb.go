// Package tlb provides a fully associative translation lookaside buffer that
// replaces the least recently used entry.
package tlb

import (
	"github.com/sarchlab/memsim/mem/vm/tlb/internal"
	"github.com/sarchlab/memsim/sim/hooking"
)

// Hook positions triggered by the TLB. The item is always an Entry.
var (
	HookPosHit    = &hooking.HookPos{Name: "TLB.Hit"}
	HookPosMiss   = &hooking.HookPos{Name: "TLB.Miss"}
	HookPosInsert = &hooking.HookPos{Name: "TLB.Insert"}
	HookPosEvict  = &hooking.HookPos{Name: "TLB.Evict"}
)

// An Entry maps a page to a frame.
type Entry = internal.Entry

// Stats counts the outcome of lookups.
type Stats struct {
	Hits   uint64
	Misses uint64
}

// Total returns the number of lookups.
func (s Stats) Total() uint64 {
	return s.Hits + s.Misses
}

// HitRatio returns the percentage of lookups that hit, or 0 if there was no
// lookup.
func (s Stats) HitRatio() float64 {
	total := s.Total()
	if total == 0 {
		return 0
	}

	return float64(s.Hits) / float64(total) * 100
}

// Comp is a TLB.
type Comp struct {
	hooking.HookableBase

	name    string
	numWays int
	set     internal.Set
	stats   Stats
}

// Name returns the name of the TLB.
func (c *Comp) Name() string {
	return c.name
}

// Capacity returns the maximum number of entries.
func (c *Comp) Capacity() int {
	return c.numWays
}

// Len returns the number of entries currently held.
func (c *Comp) Len() int {
	return c.set.Len()
}

// Lookup returns the frame of a page. A hit makes the entry the most recently
// used one. A miss does not insert anything.
func (c *Comp) Lookup(page uint64) (frame uint64, hit bool) {
	entry, found := c.set.Lookup(page)
	if !found {
		c.stats.Misses++
		c.invokeHook(HookPosMiss, Entry{PageNumber: page})

		return 0, false
	}

	c.stats.Hits++
	c.set.Visit(page)
	c.invokeHook(HookPosHit, entry)

	return entry.FrameNumber, true
}

// Insert maps a page to a frame. An existing entry is overwritten and becomes
// the most recently used one. If the TLB is full, the least recently used
// entry is evicted first. Insert does not change the statistics.
func (c *Comp) Insert(page, frame uint64) {
	entry := Entry{PageNumber: page, FrameNumber: frame}

	if _, found := c.set.Lookup(page); found {
		c.set.Update(entry)
		c.set.Visit(page)
		c.invokeHook(HookPosInsert, entry)

		return
	}

	if c.set.Len() >= c.numWays {
		victim, _ := c.set.Evict()
		c.invokeHook(HookPosEvict, victim)
	}

	c.set.Add(entry)
	c.invokeHook(HookPosInsert, entry)
}

// Entries lists the entries from the most to the least recently used.
func (c *Comp) Entries() []Entry {
	return c.set.Entries()
}

// Stats returns the lookup statistics.
func (c *Comp) Stats() Stats {
	return c.stats
}

// ResetStats zeroes the statistics. The entries are kept.
func (c *Comp) ResetStats() {
	c.stats = Stats{}
}

// Flush removes all the entries. The statistics are kept.
func (c *Comp) Flush() {
	c.set.Reset()
}

// Report summarizes the state of the TLB.
func (c *Comp) Report() any {
	return struct {
		Capacity int
		Entries  []Entry
		Hits     uint64
		Misses   uint64
		HitRatio float64
	}{
		Capacity: c.numWays,
		Entries:  c.Entries(),
		Hits:     c.stats.Hits,
		Misses:   c.stats.Misses,
		HitRatio: c.stats.HitRatio(),
	}
}

func (c *Comp) invokeHook(pos *hooking.HookPos, entry Entry) {
	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    pos,
		Item:   entry,
	})
}
