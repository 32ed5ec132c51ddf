// Package addresstranslator translates logical addresses to physical
// addresses with a single-level page table.
package addresstranslator

import (
	"errors"
	"fmt"

	"github.com/sarchlab/memsim/mem/vm"
	"github.com/sarchlab/memsim/sim/hooking"
)

// Hook positions triggered by the address translator. The item is always a
// Translation.
var (
	HookPosTranslated  = &hooking.HookPos{Name: "AT.Translated"}
	HookPosInvalidPage = &hooking.HookPos{Name: "AT.InvalidPage"}
	HookPosPageFault   = &hooking.HookPos{Name: "AT.PageFault"}
)

// A Translation describes one translated address. PhysicalAddress is only
// meaningful when Err is nil.
type Translation struct {
	LogicalAddress  uint64
	PageNumber      uint64
	Offset          uint64
	FrameNumber     uint64
	PhysicalAddress uint64
	Err             error
}

// Comp is an AddressTranslator that maps logical addresses to physical
// addresses through its page table.
type Comp struct {
	hooking.HookableBase

	name      string
	pageSize  uint64
	pageTable *vm.PageTable
}

// Name returns the name of the address translator.
func (c *Comp) Name() string {
	return c.name
}

// PageSize returns the number of bytes in a page.
func (c *Comp) PageSize() uint64 {
	return c.pageSize
}

// PageTable returns the table used for translation.
func (c *Comp) PageTable() *vm.PageTable {
	return c.pageTable
}

// Decompose splits a logical address into a page number and an offset.
func (c *Comp) Decompose(logicalAddress uint64) (page, offset uint64) {
	return logicalAddress / c.pageSize, logicalAddress % c.pageSize
}

// Translate returns the physical address of a logical address. The error
// wraps vm.ErrInvalidPage if the page is outside of the page table and
// vm.ErrPageFault if the page is not resident.
func (c *Comp) Translate(logicalAddress uint64) (uint64, error) {
	t := c.translate(logicalAddress)

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    c.hookPos(t.Err),
		Item:   t,
	})

	return t.PhysicalAddress, t.Err
}

func (c *Comp) translate(logicalAddress uint64) Translation {
	page, offset := c.Decompose(logicalAddress)
	t := Translation{
		LogicalAddress: logicalAddress,
		PageNumber:     page,
		Offset:         offset,
	}

	entry, err := c.pageTable.Entry(page)
	if err != nil {
		t.Err = err
		return t
	}

	if !entry.Valid {
		t.Err = fmt.Errorf("%w: page %d is not in memory", vm.ErrPageFault, page)
		return t
	}

	t.FrameNumber = entry.FrameNumber
	t.PhysicalAddress = entry.FrameNumber*c.pageSize + offset

	return t
}

func (c *Comp) hookPos(err error) *hooking.HookPos {
	switch {
	case err == nil:
		return HookPosTranslated
	case errors.Is(err, vm.ErrInvalidPage):
		return HookPosInvalidPage
	default:
		return HookPosPageFault
	}
}

// Report summarizes the page table used by the translator.
func (c *Comp) Report() any {
	resident := 0
	for _, e := range c.pageTable.Entries() {
		if e.Valid {
			resident++
		}
	}

	return struct {
		PageSize      uint64
		NumPages      uint64
		NumFrames     uint64
		ResidentPages int
	}{
		PageSize:      c.pageSize,
		NumPages:      c.pageTable.NumPages(),
		NumFrames:     c.pageTable.NumFrames(),
		ResidentPages: resident,
	}
}
