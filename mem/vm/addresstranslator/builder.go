package addresstranslator

import (
	"math/rand"

	"github.com/sarchlab/memsim/mem/vm"
)

// A Builder can create address translators
type Builder struct {
	numPages  uint64
	numFrames uint64
	pageSize  uint64
	pageTable *vm.PageTable
	seed      *int64
}

// MakeBuilder creates a new builder
func MakeBuilder() Builder {
	return Builder{
		numPages:  64,
		numFrames: 32,
		pageSize:  1024,
	}
}

// WithNumPages sets the number of pages of the logical address space.
func (b Builder) WithNumPages(n uint64) Builder {
	b.numPages = n
	return b
}

// WithNumFrames sets the number of frames of physical memory.
func (b Builder) WithNumFrames(n uint64) Builder {
	b.numFrames = n
	return b
}

// WithPageSize sets the number of bytes in a page. Unlike the TLB and the
// MMU of larger simulators, the page size does not need to be a power of 2.
func (b Builder) WithPageSize(n uint64) Builder {
	b.pageSize = n
	return b
}

// WithPageTable sets the page table to translate with. The table overrides
// the number of pages and frames set on the builder.
func (b Builder) WithPageTable(t *vm.PageTable) Builder {
	b.pageTable = t
	return b
}

// WithSeed fills the generated page table with random mappings drawn from a
// generator seeded with s. It has no effect when a page table is provided.
func (b Builder) WithSeed(s int64) Builder {
	b.seed = &s
	return b
}

// Build creates a new address translator.
func (b Builder) Build(name string) *Comp {
	if b.pageSize == 0 {
		panic("page size must be positive")
	}

	t := b.pageTable
	if t == nil {
		t = vm.NewPageTable(b.numPages, b.numFrames)

		if b.seed != nil {
			t.Randomize(rand.New(rand.NewSource(*b.seed)))
		}
	}

	return &Comp{
		name:      name,
		pageSize:  b.pageSize,
		pageTable: t,
	}
}
