// Package vm provides the page table and the error kinds shared by the
// virtual memory simulators.
package vm

import (
	"errors"
	"fmt"
	"math/rand"
)

// PID stands for Process ID.
type PID uint32

var (
	// ErrInvalidPage is returned when a page number is outside of the page
	// table.
	ErrInvalidPage = errors.New("invalid page")

	// ErrPageFault is returned when the page is in range but is not resident
	// in memory.
	ErrPageFault = errors.New("page fault")

	// ErrInvalidFrame is returned when a frame number is outside of physical
	// memory.
	ErrInvalidFrame = errors.New("invalid frame")
)

// A PageTableEntry tells which frame a page is mapped to and whether the
// mapping can be used.
type PageTableEntry struct {
	FrameNumber uint64
	Valid       bool
}

// A PageTable is a single-level table with one entry per page.
type PageTable struct {
	numFrames uint64
	entries   []PageTableEntry
}

// NewPageTable creates a page table where every page is invalid.
func NewPageTable(numPages, numFrames uint64) *PageTable {
	if numPages == 0 {
		panic("page table must have at least one page")
	}

	if numFrames == 0 {
		panic("physical memory must have at least one frame")
	}

	return &PageTable{
		numFrames: numFrames,
		entries:   make([]PageTableEntry, numPages),
	}
}

// NumPages returns the number of entries in the table.
func (t *PageTable) NumPages() uint64 {
	return uint64(len(t.entries))
}

// NumFrames returns the number of physical frames the table can point to.
func (t *PageTable) NumFrames() uint64 {
	return t.numFrames
}

// Set changes the mapping of a page.
func (t *PageTable) Set(page, frame uint64, valid bool) error {
	if page >= t.NumPages() {
		return fmt.Errorf("%w: page %d, table has %d pages",
			ErrInvalidPage, page, t.NumPages())
	}

	if frame >= t.numFrames {
		return fmt.Errorf("%w: frame %d, memory has %d frames",
			ErrInvalidFrame, frame, t.numFrames)
	}

	t.entries[page] = PageTableEntry{FrameNumber: frame, Valid: valid}

	return nil
}

// Entry returns the entry of a page.
func (t *PageTable) Entry(page uint64) (PageTableEntry, error) {
	if page >= t.NumPages() {
		return PageTableEntry{}, fmt.Errorf("%w: page %d, table has %d pages",
			ErrInvalidPage, page, t.NumPages())
	}

	return t.entries[page], nil
}

// Entries returns a copy of the table, indexed by page number.
func (t *PageTable) Entries() []PageTableEntry {
	entries := make([]PageTableEntry, len(t.entries))
	copy(entries, t.entries)

	return entries
}

// Randomize maps every page to a random frame and marks about half of the
// pages valid. The same generator state always produces the same table.
func (t *PageTable) Randomize(rng *rand.Rand) {
	for i := range t.entries {
		t.entries[i] = PageTableEntry{
			FrameNumber: uint64(rng.Int63n(int64(t.numFrames))),
			Valid:       rng.Intn(2) == 0,
		}
	}
}

// Reset marks every page invalid.
func (t *PageTable) Reset() {
	for i := range t.entries {
		t.entries[i] = PageTableEntry{}
	}
}
