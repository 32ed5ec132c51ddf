package tlb

import (
	"github.com/sarchlab/memsim/mem/vm/tlb/internal"
)

// A Builder can build TLBs
type Builder struct {
	numWays int
}

// MakeBuilder returns a Builder
func MakeBuilder() Builder {
	return Builder{
		numWays: 8,
	}
}

// WithNumWays sets the number of ways in a TLB. The TLB is fully
// associative, so this is the number of entries it can hold.
func (b Builder) WithNumWays(n int) Builder {
	b.numWays = n
	return b
}

// Build creates a new TLB
func (b Builder) Build(name string) *Comp {
	if b.numWays <= 0 {
		panic("a TLB must have at least one way")
	}

	return &Comp{
		name:    name,
		numWays: b.numWays,
		set:     internal.NewSet(),
	}
}
