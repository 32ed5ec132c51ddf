package partition

// A Builder can build allocators.
type Builder struct {
	totalSize uint64
}

// MakeBuilder creates a builder with 1 MiB of memory.
func MakeBuilder() Builder {
	return Builder{
		totalSize: 1 << 20,
	}
}

// WithTotalSize sets the number of bytes managed by the allocator.
func (b Builder) WithTotalSize(n uint64) Builder {
	b.totalSize = n
	return b
}

// Build creates an allocator where all the memory is free.
func (b Builder) Build(name string) *Allocator {
	if b.totalSize == 0 {
		panic("memory size must be positive")
	}

	a := &Allocator{
		name:      name,
		totalSize: b.totalSize,
	}
	a.Reset()

	return a
}
