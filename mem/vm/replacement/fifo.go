// Package replacement simulates page replacement over a reference string.
package replacement

import (
	"github.com/sarchlab/memsim/sim/hooking"
)

// Hook positions triggered by the simulator. The item is always the Step of
// the reference.
var (
	HookPosHit   = &hooking.HookPos{Name: "FIFO.Hit"}
	HookPosFault = &hooking.HookPos{Name: "FIFO.Fault"}
	HookPosEvict = &hooking.HookPos{Name: "FIFO.Evict"}
)

// A Step is the outcome of one page reference.
type Step struct {
	Page       uint64
	Fault      bool
	HasEvicted bool
	Evicted    uint64

	// Frames lists the resident pages after the reference, oldest first.
	Frames []uint64
}

// Stats counts references and faults.
type Stats struct {
	Faults     uint64
	References uint64
}

// FaultRate returns the percentage of references that faulted, or 0 if there
// was no reference.
func (s Stats) FaultRate() float64 {
	if s.References == 0 {
		return 0
	}

	return float64(s.Faults) / float64(s.References) * 100
}

// HitRate returns the percentage of references that did not fault, or 0 if
// there was no reference.
func (s Stats) HitRate() float64 {
	if s.References == 0 {
		return 0
	}

	return 100 - s.FaultRate()
}

// FIFO keeps a bounded set of resident pages and replaces the page that was
// loaded first. A hit does not change the order.
type FIFO struct {
	hooking.HookableBase

	name      string
	numFrames int
	queue     []uint64
	resident  map[uint64]struct{}
	stats     Stats
}

// Name returns the name of the simulator.
func (f *FIFO) Name() string {
	return f.name
}

// NumFrames returns the number of frames.
func (f *FIFO) NumFrames() int {
	return f.numFrames
}

// Reference accesses a page and tells if the access faulted.
func (f *FIFO) Reference(page uint64) bool {
	return f.reference(page).Fault
}

func (f *FIFO) reference(page uint64) Step {
	f.stats.References++

	step := Step{Page: page}

	if _, found := f.resident[page]; found {
		step.Frames = f.Frames()
		f.invokeHook(HookPosHit, step)

		return step
	}

	f.stats.Faults++
	step.Fault = true

	if len(f.queue) >= f.numFrames {
		step.HasEvicted = true
		step.Evicted = f.queue[0]

		f.queue = f.queue[1:]
		delete(f.resident, step.Evicted)
	}

	f.queue = append(f.queue, page)
	f.resident[page] = struct{}{}

	step.Frames = f.Frames()

	if step.HasEvicted {
		f.invokeHook(HookPosEvict, step)
	}

	f.invokeHook(HookPosFault, step)

	return step
}

// Simulate references every page in order and returns the outcome of each
// reference.
func (f *FIFO) Simulate(pages []uint64) []Step {
	steps := make([]Step, 0, len(pages))

	for _, p := range pages {
		steps = append(steps, f.reference(p))
	}

	return steps
}

// Frames returns the resident pages, oldest first.
func (f *FIFO) Frames() []uint64 {
	frames := make([]uint64, len(f.queue))
	copy(frames, f.queue)

	return frames
}

// IsResident tells if a page is in one of the frames.
func (f *FIFO) IsResident(page uint64) bool {
	_, found := f.resident[page]
	return found
}

// Stats returns the reference statistics.
func (f *FIFO) Stats() Stats {
	return f.stats
}

// Reset empties the frames and zeroes the statistics.
func (f *FIFO) Reset() {
	f.queue = make([]uint64, 0, f.numFrames)
	f.resident = make(map[uint64]struct{}, f.numFrames)
	f.stats = Stats{}
}

// Report summarizes the state of the simulator.
func (f *FIFO) Report() any {
	return struct {
		NumFrames  int
		Frames     []uint64
		Faults     uint64
		References uint64
		FaultRate  float64
	}{
		NumFrames:  f.numFrames,
		Frames:     f.Frames(),
		Faults:     f.stats.Faults,
		References: f.stats.References,
		FaultRate:  f.stats.FaultRate(),
	}
}

func (f *FIFO) invokeHook(pos *hooking.HookPos, step Step) {
	if f.NumHooks() == 0 {
		return
	}

	f.InvokeHook(hooking.HookCtx{
		Domain: f,
		Pos:    pos,
		Item:   step,
	})
}
