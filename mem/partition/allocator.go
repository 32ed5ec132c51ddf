// Package partition simulates contiguous memory allocation over a single
// linear region split into variable-size blocks.
package partition

import (
	"fmt"

	"github.com/sarchlab/memsim/mem/vm"
	"github.com/sarchlab/memsim/sim/hooking"
)

// Hook positions triggered by the allocator. The item is always a Block.
var (
	// HookPosAllocate is triggered with the newly allocated block. The
	// detail is the Strategy used.
	HookPosAllocate = &hooking.HookPos{Name: "Partition.Allocate"}

	// HookPosNoFit is triggered when a request cannot be served. The item
	// carries the requested size and PID; the detail is the Strategy used.
	HookPosNoFit = &hooking.HookPos{Name: "Partition.NoFit"}

	// HookPosFree is triggered for every block released by Deallocate.
	HookPosFree = &hooking.HookPos{Name: "Partition.Free"}

	// HookPosMerge is triggered with the block produced by merging two free
	// neighbors.
	HookPosMerge = &hooking.HookPos{Name: "Partition.Merge"}
)

// A Block is a contiguous range of memory that is either free or owned by
// one process. PID is meaningless when the block is free.
type Block struct {
	StartAddress uint64
	Size         uint64
	IsFree       bool
	PID          vm.PID
}

// EndAddress returns the first address after the block.
func (b Block) EndAddress() uint64 {
	return b.StartAddress + b.Size
}

// Allocator manages a memory region as an address-ordered list of blocks that
// covers the whole region without gaps or overlaps.
type Allocator struct {
	hooking.HookableBase

	name      string
	totalSize uint64
	blocks    []Block
}

// Name returns the name of the allocator.
func (a *Allocator) Name() string {
	return a.name
}

// TotalSize returns the number of bytes managed by the allocator.
func (a *Allocator) TotalSize() uint64 {
	return a.totalSize
}

// Reset frees all the memory.
func (a *Allocator) Reset() {
	a.blocks = []Block{{StartAddress: 0, Size: a.totalSize, IsFree: true}}
}

// Allocate reserves size bytes for a process using one of the built-in
// strategies. It returns false if no free block is large enough. A request of
// 0 bytes is never served.
func (a *Allocator) Allocate(strategy Strategy, pid vm.PID, size uint64) bool {
	return a.AllocateWith(strategy.Policy(), strategy, pid, size)
}

// AllocateWith reserves size bytes with a custom placement policy. The detail
// is passed to the hooks to identify the policy.
func (a *Allocator) AllocateWith(
	policy PlacementPolicy,
	detail any,
	pid vm.PID,
	size uint64,
) bool {
	index := -1
	ok := false

	if size > 0 {
		index, ok = policy.FindBlock(a.blocks, size)
	}

	if !ok {
		a.invokeHook(HookPosNoFit, Block{Size: size, PID: pid}, detail)
		return false
	}

	a.blockMustFit(index, size)
	a.split(index, size)

	a.blocks[index].IsFree = false
	a.blocks[index].PID = pid

	a.invokeHook(HookPosAllocate, a.blocks[index], detail)

	return true
}

func (a *Allocator) blockMustFit(index int, size uint64) {
	if index < 0 || index >= len(a.blocks) {
		panic(fmt.Sprintf("placement policy chose block %d of %d",
			index, len(a.blocks)))
	}

	if !fits(a.blocks[index], size) {
		panic("placement policy chose a block that does not fit")
	}
}

// split cuts the block at index so that it is exactly size bytes long. The
// remainder becomes a new free block right after it.
func (a *Allocator) split(index int, size uint64) {
	b := a.blocks[index]
	if b.Size == size {
		return
	}

	remainder := Block{
		StartAddress: b.StartAddress + size,
		Size:         b.Size - size,
		IsFree:       true,
	}

	a.blocks[index].Size = size

	a.blocks = append(a.blocks, Block{})
	copy(a.blocks[index+2:], a.blocks[index+1:])
	a.blocks[index+1] = remainder
}

// Deallocate releases every block owned by the process and merges the free
// neighbors. An unknown PID changes nothing.
func (a *Allocator) Deallocate(pid vm.PID) {
	freed := false

	for i := range a.blocks {
		b := &a.blocks[i]
		if b.IsFree || b.PID != pid {
			continue
		}

		b.IsFree = true
		b.PID = 0
		freed = true

		a.invokeHook(HookPosFree, *b, nil)
	}

	if freed {
		a.Coalesce()
	}
}

// Coalesce merges every run of adjacent free blocks into one block. Calling
// it again right after is a no-op.
func (a *Allocator) Coalesce() {
	for i := 0; i+1 < len(a.blocks); {
		if !a.blocks[i].IsFree || !a.blocks[i+1].IsFree {
			i++
			continue
		}

		a.blocks[i].Size += a.blocks[i+1].Size
		a.blocks = append(a.blocks[:i+1], a.blocks[i+2:]...)

		a.invokeHook(HookPosMerge, a.blocks[i], nil)
	}
}

// Snapshot returns a copy of the blocks in address order.
func (a *Allocator) Snapshot() []Block {
	blocks := make([]Block, len(a.blocks))
	copy(blocks, a.blocks)

	return blocks
}

// BlocksOf returns the blocks owned by a process, in address order.
func (a *Allocator) BlocksOf(pid vm.PID) []Block {
	var blocks []Block

	for _, b := range a.blocks {
		if !b.IsFree && b.PID == pid {
			blocks = append(blocks, b)
		}
	}

	return blocks
}

// Validate checks that the blocks cover the whole region exactly.
func (a *Allocator) Validate() error {
	if len(a.blocks) == 0 {
		return fmt.Errorf("no block covers the memory")
	}

	next := uint64(0)
	for i, b := range a.blocks {
		if b.StartAddress != next {
			return fmt.Errorf("block %d starts at %d, expected %d",
				i, b.StartAddress, next)
		}

		if b.Size == 0 {
			return fmt.Errorf("block %d at %d is empty", i, b.StartAddress)
		}

		if b.IsFree && b.PID != 0 {
			return fmt.Errorf("free block %d at %d has PID %d",
				i, b.StartAddress, b.PID)
		}

		next = b.EndAddress()
	}

	if next != a.totalSize {
		return fmt.Errorf("blocks end at %d, expected %d", next, a.totalSize)
	}

	return nil
}

func (a *Allocator) invokeHook(pos *hooking.HookPos, b Block, detail any) {
	if a.NumHooks() == 0 {
		return
	}

	a.InvokeHook(hooking.HookCtx{
		Domain: a,
		Pos:    pos,
		Item:   b,
		Detail: detail,
	})
}
