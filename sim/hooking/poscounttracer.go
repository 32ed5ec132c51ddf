package hooking

import (
	"sync"
)

// PosCountTracer counts how many times each hook position is triggered.
type PosCountTracer struct {
	lock     sync.Mutex
	posNames []string
	posCount map[string]uint64
}

// NewPosCountTracer creates a new PosCountTracer.
func NewPosCountTracer() *PosCountTracer {
	return &PosCountTracer{
		posCount: make(map[string]uint64),
	}
}

// Func counts the position of the event.
func (t *PosCountTracer) Func(ctx HookCtx) {
	t.lock.Lock()
	defer t.lock.Unlock()

	_, ok := t.posCount[ctx.Pos.Name]
	if !ok {
		t.posNames = append(t.posNames, ctx.Pos.Name)
	}

	t.posCount[ctx.Pos.Name]++
}

// GetPosNames returns the position names in the order they were first seen.
func (t *PosCountTracer) GetPosNames() []string {
	t.lock.Lock()
	defer t.lock.Unlock()

	names := make([]string, len(t.posNames))
	copy(names, t.posNames)

	return names
}

// GetPosCount returns the number of events recorded at a position.
func (t *PosCountTracer) GetPosCount(posName string) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.posCount[posName]
}

// Counts returns a copy of all the counters.
func (t *PosCountTracer) Counts() map[string]uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	counts := make(map[string]uint64, len(t.posCount))
	for k, v := range t.posCount {
		counts[k] = v
	}

	return counts
}

// Reset clears all the counters.
func (t *PosCountTracer) Reset() {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.posNames = nil
	t.posCount = make(map[string]uint64)
}
