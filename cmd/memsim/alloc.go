package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sarchlab/memsim/mem/partition"
	"github.com/sarchlab/memsim/mem/vm"
)

type allocRequest struct {
	pid  vm.PID
	size uint64
}

type allocScenario struct {
	strategy   partition.Strategy
	requests   []allocRequest
	deallocate []vm.PID
}

const kiB = 1024

var allocScenarios = []allocScenario{
	{
		strategy: partition.FirstFit,
		requests: []allocRequest{
			{1, 100 * kiB}, {2, 150 * kiB}, {3, 200 * kiB},
		},
		deallocate: []vm.PID{2},
	},
	{
		strategy: partition.BestFit,
		requests: []allocRequest{
			{1, 100 * kiB}, {2, 150 * kiB}, {3, 200 * kiB}, {4, 50 * kiB},
		},
	},
	{
		strategy: partition.WorstFit,
		requests: []allocRequest{
			{1, 100 * kiB}, {2, 150 * kiB}, {3, 200 * kiB},
		},
	},
}

func (a *app) runAlloc(w io.Writer) error {
	return a.runAllocWith(w, "")
}

// runAllocWith runs the scenario of one strategy, or all of them when the
// name is empty.
func (a *app) runAllocWith(w io.Writer, strategyName string) error {
	scenarios := allocScenarios

	if strategyName != "" {
		s, err := partition.ParseStrategy(strategyName)
		if err != nil {
			return err
		}

		scenarios = nil
		for _, sc := range allocScenarios {
			if sc.strategy == s {
				scenarios = append(scenarios, sc)
			}
		}
	}

	banner(w, "MEMORY ALLOCATION SIMULATION")

	for _, sc := range scenarios {
		a.runAllocScenario(w, sc)
	}

	return nil
}

func (a *app) runAllocScenario(w io.Writer, sc allocScenario) {
	allocator := partition.MakeBuilder().
		WithTotalSize(a.cfg.TotalMemory).
		Build("Partition." + sc.strategy.String())
	a.attach(allocator)

	fmt.Fprintf(w, "\n--- %s STRATEGY ---\n",
		strings.ToUpper(sc.strategy.String()))

	for _, r := range sc.requests {
		var ok bool

		a.exclusive(func() { ok = allocator.Allocate(sc.strategy, r.pid, r.size) })

		status := "SUCCESS"
		if !ok {
			status = "FAILED"
		}

		fmt.Fprintf(w, "Allocating P%d (%d KB)... %s\n",
			r.pid, r.size/kiB, status)
	}

	if len(sc.deallocate) > 0 {
		printMemoryMap(w, allocator.Snapshot())
	}

	for _, pid := range sc.deallocate {
		a.exclusive(func() { allocator.Deallocate(pid) })
		fmt.Fprintf(w, "Deallocating P%d... SUCCESS\n", pid)
	}

	printMemoryMap(w, allocator.Snapshot())
	printFragmentation(w, allocator.FragmentationReport())
}

func printMemoryMap(w io.Writer, blocks []partition.Block) {
	banner(w, "MEMORY MAP")

	table := newTable(w, "Start Address", "Size (KB)", "Status", "Process ID")
	for _, b := range blocks {
		status, pid := "ALLOCATED", strconv.FormatUint(uint64(b.PID), 10)
		if b.IsFree {
			status, pid = "FREE", "-"
		}

		table.Append([]string{
			strconv.FormatUint(b.StartAddress, 10),
			strconv.FormatUint(b.Size/kiB, 10),
			status,
			pid,
		})
	}
	table.Render()
}

func printFragmentation(w io.Writer, r partition.Report) {
	banner(w, "FRAGMENTATION STATS")
	fmt.Fprintf(w, "Total Memory:              %d KB\n", r.Total/kiB)
	fmt.Fprintf(w, "Allocated Memory:          %d KB\n", r.Allocated/kiB)
	fmt.Fprintf(w, "Free Memory:               %d KB\n", r.Free/kiB)
	fmt.Fprintf(w, "Number of Free Blocks:     %d\n", r.FreeBlockCount)
	fmt.Fprintf(w, "Largest Free Block:        %d KB\n", r.LargestFreeBlock/kiB)
	fmt.Fprintf(w, "Memory Utilization:        %.2f%%\n", r.UtilizationPct)
	fmt.Fprintf(w, "External Fragmentation:    %.2f%%\n", r.FragmentationPct)
}
