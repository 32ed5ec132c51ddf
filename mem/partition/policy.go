package partition

import (
	"fmt"
	"strings"
)

// A PlacementPolicy decides which free block serves a request.
type PlacementPolicy interface {
	// FindBlock returns the index of the chosen block. Only free blocks that
	// are at least size bytes long can be chosen.
	FindBlock(blocks []Block, size uint64) (index int, ok bool)
}

// Strategy names one of the built-in placement policies.
type Strategy int

// The built-in strategies.
const (
	FirstFit Strategy = iota
	BestFit
	WorstFit
)

var strategyNames = map[Strategy]string{
	FirstFit: "first-fit",
	BestFit:  "best-fit",
	WorstFit: "worst-fit",
}

func (s Strategy) String() string {
	name, ok := strategyNames[s]
	if !ok {
		return fmt.Sprintf("Strategy(%d)", int(s))
	}

	return name
}

// Policy returns the placement policy of the strategy.
func (s Strategy) Policy() PlacementPolicy {
	switch s {
	case FirstFit:
		return firstFit{}
	case BestFit:
		return bestFit{}
	case WorstFit:
		return worstFit{}
	default:
		panic(fmt.Sprintf("unknown strategy %d", int(s)))
	}
}

// ParseStrategy converts names such as "best-fit", "bestfit" or "best" into a
// Strategy.
func ParseStrategy(name string) (Strategy, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.TrimSuffix(strings.NewReplacer("-", "", "_", "").Replace(n), "fit")

	switch n {
	case "first":
		return FirstFit, nil
	case "best":
		return BestFit, nil
	case "worst":
		return WorstFit, nil
	default:
		return 0, fmt.Errorf("unknown placement strategy %q", name)
	}
}

func fits(b Block, size uint64) bool {
	return b.IsFree && b.Size >= size
}

// firstFit takes the candidate with the lowest address.
type firstFit struct{}

func (firstFit) FindBlock(blocks []Block, size uint64) (int, bool) {
	for i, b := range blocks {
		if fits(b, size) {
			return i, true
		}
	}

	return -1, false
}

// bestFit takes the smallest candidate. Ties go to the lowest address.
type bestFit struct{}

func (bestFit) FindBlock(blocks []Block, size uint64) (int, bool) {
	best := -1

	for i, b := range blocks {
		if !fits(b, size) {
			continue
		}

		if best < 0 || b.Size < blocks[best].Size {
			best = i
		}
	}

	return best, best >= 0
}

// worstFit takes the largest candidate. Ties go to the lowest address.
type worstFit struct{}

func (worstFit) FindBlock(blocks []Block, size uint64) (int, bool) {
	worst := -1

	for i, b := range blocks {
		if !fits(b, size) {
			continue
		}

		if worst < 0 || b.Size > blocks[worst].Size {
			worst = i
		}
	}

	return worst, worst >= 0
}
