package partition

// A Report summarizes how the memory is used.
type Report struct {
	Total            uint64
	Allocated        uint64
	Free             uint64
	FreeBlockCount   int
	LargestFreeBlock uint64

	// UtilizationPct is the allocated share of the memory, in percent.
	UtilizationPct float64

	// FragmentationPct is the free memory outside of the largest free
	// block, in percent of the memory. It is 0 when at most one block is
	// free.
	FragmentationPct float64
}

// FragmentationReport measures the current state of the memory.
func (a *Allocator) FragmentationReport() Report {
	r := Report{Total: a.totalSize}

	for _, b := range a.blocks {
		if !b.IsFree {
			r.Allocated += b.Size
			continue
		}

		r.Free += b.Size
		r.FreeBlockCount++

		if b.Size > r.LargestFreeBlock {
			r.LargestFreeBlock = b.Size
		}
	}

	r.UtilizationPct = float64(r.Allocated) / float64(r.Total) * 100

	if r.FreeBlockCount > 1 {
		fragmented := r.Free - r.LargestFreeBlock
		r.FragmentationPct = float64(fragmented) / float64(r.Total) * 100
	}

	return r
}

// Report summarizes the state of the allocator.
func (a *Allocator) Report() any {
	return struct {
		Blocks []Block
		Report
	}{
		Blocks: a.Snapshot(),
		Report: a.FragmentationReport(),
	}
}
